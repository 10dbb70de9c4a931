package vm

import (
	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/heap"
	"github.com/dashlang/dash/internal/value"
)

// tryBlock is one entry of a Frame's try_blocks unwind stack (§3, §4.7): the
// catch/finally instruction offsets (absolute, already resolved from Try's
// relative operands at the point the Try instruction executed) and the
// operand-stack depth to truncate back to before jumping there.
type tryBlock struct {
	catchIP   int // -1 if this try has no catch
	finIP     int // -1 if this try has no finally
	stackSize int // vm.stack length to restore before entering catch/finally
}

// Frame is one call's activation record (§3 "Frame"). Locals live in their
// own per-frame slice rather than on the shared operand stack: LdLocal /
// StoreLocal index this slice directly, while Dup / Pop / RevStack and
// every expression-evaluation opcode operate on the VM's shared operand
// stack, whose base for this call is sp.
type Frame struct {
	fn      *bytecode.Function
	closure *Closure // the closure this call instantiated, nil for the root/eval frame
	reader  bytecode.Reader

	locals []value.Value
	boxes  []*Cell // boxes[n] != nil once local n has been captured by a closure

	this      value.Value
	newTarget value.Value

	// homeObject backs `super`: a method's [[HomeObject]], whose prototype
	// is where `super.foo` / `super(...)` resolve against (§4.5).
	homeObject value.Value

	sp        int // vm.stack length at call entry; Ret truncates back to this
	tryBlocks []tryBlock

	// gen is non-nil when this frame belongs to a generator body (§4.8): the
	// Yield opcode rendezvous with gen's channels instead of just computing
	// a value, and savedStack holds this frame's portion of the operand
	// stack while the generator is suspended between .next() calls (the
	// shared vm.stack is truncated back to sp for every other frame to use
	// meanwhile).
	gen        *GeneratorIterator
	savedStack []value.Value

	// loopHits counts loop-header visits for JIT hotspot detection (§3).
	// This implementation has no JIT backend (see DESIGN.md), so the map
	// is kept only to preserve the Frame's documented shape; nothing reads
	// it.
	loopHits map[int]int
}

func newFrame(fn *bytecode.Function, closure *Closure, sp int) *Frame {
	return &Frame{
		fn:        fn,
		closure:   closure,
		sp:        sp,
		reader:    *bytecode.NewReader(fn.Instructions),
		locals:    make([]value.Value, fn.LocalCount),
		boxes:     make([]*Cell, fn.LocalCount),
		this:      value.Undefined,
		newTarget: value.Undefined,
	}
}

// box returns the Cell backing local slot n, creating it (seeded with the
// local's current value) the first time any closure captures that slot.
func (f *Frame) box(n int) *Cell {
	if f.boxes[n] == nil {
		f.boxes[n] = &Cell{V: f.locals[n]}
	}
	return f.boxes[n]
}

func (f *Frame) loadLocal(n int) value.Value {
	if f.boxes[n] != nil {
		return f.boxes[n].V
	}
	return f.locals[n]
}

func (f *Frame) storeLocal(n int, v value.Value) {
	if f.boxes[n] != nil {
		f.boxes[n].V = v
		return
	}
	f.locals[n] = v
}

func (f *Frame) loadExternal(n int) value.Value {
	return f.closure.cells[n].V
}

func (f *Frame) storeExternal(n int, v value.Value) {
	f.closure.cells[n].V = v
}

// Trace visits every heap reference this frame can reach: its locals
// (boxed or not), its externals (via the owning closure's Trace),
// this/newTarget/homeObject, and its slice of the shared
// operand stack is traced by the VM directly since frames don't own that
// slice's backing array.
func (f *Frame) Trace(mark func(heap.ObjectId)) {
	for i, v := range f.locals {
		if f.boxes[i] != nil {
			markValue(f.boxes[i].V, mark)
			continue
		}
		markValue(v, mark)
	}
	if f.closure != nil {
		f.closure.Trace(mark)
	}
	markValue(f.this, mark)
	markValue(f.newTarget, mark)
	markValue(f.homeObject, mark)
	for _, v := range f.savedStack {
		markValue(v, mark)
	}
}

func markValue(v value.Value, mark func(heap.ObjectId)) {
	if v.Kind() == value.KindObject || v.Kind() == value.KindExternal {
		mark(v.ObjectID())
	}
}
