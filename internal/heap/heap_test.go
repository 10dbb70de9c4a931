package heap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashlang/dash/internal/heap"
)

// cell is a minimal Traceable payload used to exercise the collector
// without depending on internal/value.
type cell struct {
	next heap.ObjectId
}

func (c *cell) Trace(mark func(heap.ObjectId)) {
	mark(c.next)
}

func TestSweepFreesUnreachableNodes(t *testing.T) {
	h := heap.New()
	scope := heap.NewScopePool().Open()

	rootID := scope.Root(h.Alloc(&cell{}, 1, nil))
	garbageID := h.Alloc(&cell{}, 1, nil) // never rooted

	h.Sweep(func(mark func(heap.ObjectId)) { scope.Trace(mark) })

	require.True(t, h.IsMarked(rootID))
	require.False(t, h.IsMarked(garbageID))
}

func TestSweepFollowsTraceThroughCycle(t *testing.T) {
	h := heap.New()
	scope := heap.NewScopePool().Open()

	a := h.Alloc(&cell{}, 1, nil)
	b := h.Alloc(&cell{next: a}, 1, nil)
	h.Get(a).(*cell).next = b // close the cycle: a -> b -> a
	scope.Root(b)

	h.Sweep(func(mark func(heap.ObjectId)) { scope.Trace(mark) })

	require.True(t, h.IsMarked(a))
	require.True(t, h.IsMarked(b))
}

func TestPersistentSurvivesWithoutScope(t *testing.T) {
	h := heap.New()
	scope := heap.NewScopePool().Open()
	id := scope.Root(h.Alloc(&cell{}, 1, nil))
	p := heap.NewPersistent(h, id)
	scope.Pop() // drop the only scope root

	h.Sweep(func(mark func(heap.ObjectId)) {})

	require.True(t, h.IsMarked(id))

	p.Release()
	h.Sweep(func(mark func(heap.ObjectId)) {})
	require.False(t, h.IsMarked(id))
}

func TestDowncastSurvivesSweep(t *testing.T) {
	h := heap.New()
	scope := heap.NewScopePool().Open()
	id := scope.Root(h.Alloc(&cell{}, 1, nil))

	h.Sweep(func(mark func(heap.ObjectId)) { scope.Trace(mark) })

	_, ok := h.Get(id).(*cell)
	require.True(t, ok)
}

func TestNestedScopeRootsAreIndependentlyPoppable(t *testing.T) {
	h := heap.New()
	pool := heap.NewScopePool()
	outer := pool.Open()
	outerID := outer.Root(h.Alloc(&cell{}, 1, nil))

	inner := outer.Nested()
	innerID := inner.Root(h.Alloc(&cell{}, 1, nil))

	h.Sweep(func(mark func(heap.ObjectId)) { pool.Trace(mark) })
	require.True(t, h.IsMarked(outerID))
	require.True(t, h.IsMarked(innerID))

	inner.Pop()
	h.Sweep(func(mark func(heap.ObjectId)) { pool.Trace(mark) })
	require.True(t, h.IsMarked(outerID))
	require.False(t, h.IsMarked(innerID))
}
