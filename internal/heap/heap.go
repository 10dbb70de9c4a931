// Package heap implements the engine's tracing garbage collector: an
// intrusive singly-linked list of heap nodes (§4.1), the Trace capability
// used to mark reachable objects (§4.2), and the LocalScope rooting
// discipline that stands in for the source engine's linear-type-enforced
// Unrooted/rooted distinction (§4.2, §9 "Rooting as a type-system feature").
//
// Grounded on original_source/core/src/gc/heap.rs and linkedlist.rs: both
// append to the head and free tail-to-head on drop/sweep. Go has no
// Box<T>/NonNull equivalent worth reaching for here — ordinary pointers and
// the runtime's own GC back our nodes; what we reimplement is the engine's
// own mark/sweep pass over that node graph, because the engine's objects
// form reference cycles (prototype chains, closures capturing `this`) that
// must be explicitly traced rather than left to Go's collector, per §9.
package heap

// ObjectId is a non-owning handle into the Heap. It is Copy, carries no
// ownership, and is only valid while its target node lives — dereferencing
// it (via Heap.Get) is only sound when the holder is rooted (§4.1).
type ObjectId uint32

// Nil is the zero ObjectId, used as a sentinel "no object" (e.g. a
// prototype chain's terminal null).
const Nil ObjectId = 0

// Traceable is implemented by every heap-allocated payload. Trace must call
// mark once for every ObjectId the payload transitively contains; marking
// is idempotent so Trace need not track which ids it has already visited
// (§4.2).
type Traceable interface {
	Trace(mark func(ObjectId))
}

type node struct {
	value   Traceable
	marked  bool
	persist int // persistent-reference count; zero means only scope-rooted
	next    ObjectId
	alive   bool
}

// Heap owns every allocated node and is the only thing with ownership
// rights over them; everything else holds non-owning ObjectIds. Allocation
// appends to the head; Sweep walks tail-to-head unlinking unmarked nodes
// with a zero persistent count (§4.1).
type Heap struct {
	nodes     []node // index 0 is unused so the zero ObjectId can mean "nil"
	head      ObjectId
	tail      ObjectId
	freeList  []ObjectId
	allocated int // approximate live-byte counter used for the GC threshold
	threshold int
	disabled  int // >0 while a critical section forbids collection
}

// defaultThreshold mirrors a small, test-friendly default; hosts configure a
// larger one via SetThreshold for real workloads.
const defaultThreshold = 1 << 16

// New returns an empty Heap.
func New() *Heap {
	h := &Heap{threshold: defaultThreshold}
	h.nodes = make([]node, 1) // reserve index 0 as Nil
	return h
}

// SetThreshold overrides the approximate-byte-count threshold that triggers
// an automatic collection from Alloc.
func (h *Heap) SetThreshold(n int) { h.threshold = n }

// Len returns the number of live nodes currently linked into the heap.
func (h *Heap) Len() int {
	n := 0
	for id := h.tail; id != Nil; id = h.nodes[id].next {
		n++
	}
	return n
}

// DisableGC prevents Alloc from triggering an automatic collection until a
// matching EnableGC call. Used by the VM while it holds raw ObjectIds that
// have not yet been rooted in a LocalScope (e.g. mid-construction of a
// multi-field object literal), per §5's "the GC may be invoked only at
// designated allocation points" invariant.
func (h *Heap) DisableGC() { h.disabled++ }

// EnableGC re-enables automatic collection. It is a programmer error to
// call it more times than DisableGC; this panics rather than silently
// under-count, since an unbalanced call would otherwise leave collection
// permanently disabled.
func (h *Heap) EnableGC() {
	if h.disabled == 0 {
		panic("heap: EnableGC without matching DisableGC")
	}
	h.disabled--
}

// Alloc registers value as a new heap node and returns its id. If the
// tracked byte count exceeds the threshold and GC is not disabled, Alloc
// triggers a Sweep using roots before returning — the caller must therefore
// root the value it is about to receive (e.g. via LocalScope.Root) before
// any further allocation, matching the Unrooted discipline in §4.2.
func (h *Heap) Alloc(value Traceable, approxSize int, roots func(mark func(ObjectId))) ObjectId {
	var id ObjectId
	if n := len(h.freeList); n > 0 {
		id = h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.nodes[id] = node{value: value, alive: true}
	} else {
		id = ObjectId(len(h.nodes))
		h.nodes = append(h.nodes, node{value: value, alive: true})
	}

	if h.head != Nil {
		h.nodes[h.head].next = id
	}
	if h.tail == Nil {
		h.tail = id
	}
	h.head = id
	h.allocated += approxSize

	if h.disabled == 0 && h.allocated >= h.threshold && roots != nil {
		h.Sweep(roots)
	}
	return id
}

// Get dereferences id. The caller must hold id rooted (LocalScope,
// Persistent, or reachability from a still-live root) across any
// intervening allocation; Get itself does not check this, matching the
// structural (not runtime-enforced) nature of the rooting discipline (§9).
func (h *Heap) Get(id ObjectId) Traceable {
	return h.nodes[id].value
}

// Retain increments id's persistent-reference count, keeping it alive
// across sweeps regardless of scope rooting until a matching Release.
func (h *Heap) Retain(id ObjectId) {
	h.nodes[id].persist++
}

// Release decrements id's persistent-reference count.
func (h *Heap) Release(id ObjectId) {
	h.nodes[id].persist--
}

// Mark sets id's mark bit during a trace. It is safe to call redundantly:
// marking is idempotent (§4.2).
func (h *Heap) Mark(id ObjectId) {
	if id == Nil {
		return
	}
	h.nodes[id].marked = true
}

// IsMarked reports whether id was marked during the most recent trace.
func (h *Heap) IsMarked(id ObjectId) bool {
	if id == Nil {
		return true
	}
	return h.nodes[id].marked
}

// Sweep traces from roots and from every node with a non-zero persistent
// count, then frees every node that was not marked, per §4.1's sweep
// semantics. Sweeping is
// infallible (§4.1 "Failure semantics").
func (h *Heap) Sweep(roots func(mark func(ObjectId))) {
	for i := range h.nodes {
		h.nodes[i].marked = false
	}

	visited := make(map[ObjectId]bool, len(h.nodes))
	var mark func(id ObjectId)
	mark = func(id ObjectId) {
		if id == Nil || visited[id] {
			return
		}
		visited[id] = true
		h.Mark(id)
		h.nodes[id].value.Trace(mark)
	}
	roots(mark)
	for i := range h.nodes {
		if h.nodes[i].persist > 0 {
			mark(ObjectId(i))
		}
	}

	h.allocated = 0
	var prevAlive ObjectId
	newTail := Nil
	id := h.tail
	for id != Nil {
		next := h.nodes[id].next
		n := &h.nodes[id]
		if n.marked || n.persist > 0 {
			n.next = Nil
			if prevAlive != Nil {
				h.nodes[prevAlive].next = id
			}
			if newTail == Nil {
				newTail = id
			}
			prevAlive = id
			h.allocated++ // approximate: one unit per surviving node
		} else {
			n.alive = false
			n.value = nil
			h.freeList = append(h.freeList, id)
		}
		id = next
	}
	h.tail = newTail
	h.head = prevAlive
}
