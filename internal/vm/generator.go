package vm

import (
	"github.com/dashlang/dash/internal/heap"
	"github.com/dashlang/dash/internal/value"
)

// GeneratorIterator is the object a call to a Generator-kind closure
// returns immediately, without running the body (§4.8 "Generators"). The
// body actually executes on its own goroutine, handed control only between
// a .next()/.throw()/.return() call and the following Yield or Ret — the
// two goroutines rendezvous over resumeCh/yieldCh so that exactly one of
// them ever touches the shared VM.stack/VM.frames at a time, the same
// single-threaded-cooperative model §5 describes for promises, just
// realized with a Go goroutine standing in for the suspended call instead
// of a hand-written state machine (grounded on the gojs "goroutine per
// blocking host call" pattern used throughout _examples/tetratelabs-wazero's
// WASI and AssemblyScript host modules for a blocking call bridged onto
// Go's cooperative scheduler).
type GeneratorIterator struct {
	vm      *VM
	closure *Closure
	frame   *Frame

	started bool
	done    bool

	resumeCh chan resumeMsg
	yieldCh  chan yieldMsg

	prototype value.Value
}

type resumeKind byte

const (
	resumeNext resumeKind = iota
	resumeThrow
	resumeReturn
)

type resumeMsg struct {
	kind resumeKind
	val  value.Value
}

type yieldMsg struct {
	val    value.Value
	done   bool
	thrown *value.Value
}

func (v *VM) newGenerator(c *Closure, this value.Value, args []value.Value) *GeneratorIterator {
	frame := newFrame(c.fn, c, 0)
	frame.this = this
	bindArguments(v, frame, c.fn, this, args)
	return &GeneratorIterator{
		vm:        v,
		closure:   c,
		frame:     frame,
		resumeCh:  make(chan resumeMsg),
		yieldCh:   make(chan yieldMsg),
		prototype: value.Object(v.generatorProtoID),
	}
}

func (g *GeneratorIterator) GetOwnProperty(value.PropertyKey) (value.PropertyValue, bool) {
	return value.PropertyValue{}, false
}
func (g *GeneratorIterator) SetProperty(value.PropertyKey, value.Value) error { return nil }
func (g *GeneratorIterator) DeleteProperty(value.PropertyKey) bool            { return true }
func (g *GeneratorIterator) GetPrototype() value.Value                       { return g.prototype }
func (g *GeneratorIterator) SetPrototype(v value.Value)                      { g.prototype = v }
func (g *GeneratorIterator) OwnKeys() []value.PropertyKey                    { return nil }
func (g *GeneratorIterator) TypeOf() string                                 { return "object" }
func (g *GeneratorIterator) AsAny() any                                     { return g }
func (g *GeneratorIterator) Trace(mark func(heap.ObjectId)) {
	markValue(g.prototype, mark)
	if g.frame != nil {
		g.frame.Trace(mark)
	}
}

// iterResult builds the {value, done} object every iterator protocol
// step returns (§4.8, and the for-of desugaring IntrinsicIterNext relies
// on).
func (v *VM) iterResult(val value.Value, done bool) value.Value {
	obj := v.allocPlainObject(v.objectProtoValue())
	backing := v.heap.Get(obj.ObjectID()).(value.Object)
	_ = backing.SetProperty(v.wk.valueKey, val)
	doneVal := value.Bool(done)
	_ = backing.SetProperty(v.wk.doneKey, doneVal)
	return obj
}

// next drives the generator with a resumeMsg and waits for its next
// suspension point, translating the result into the §4.8 {value, done}
// shape (or propagating a thrown value out to the caller's own dispatch
// loop).
func (g *GeneratorIterator) next(msg resumeMsg) (value.Value, *value.Value) {
	if g.done {
		if msg.kind == resumeThrow {
			return value.Undefined, &msg.val
		}
		return g.vm.iterResult(value.Undefined, true), nil
	}
	if !g.started {
		g.started = true
		go g.run()
	} else {
		g.resumeCh <- msg
	}
	out := <-g.yieldCh
	if out.thrown != nil {
		g.done = true
		return value.Undefined, out.thrown
	}
	if out.done {
		g.done = true
	}
	return g.vm.iterResult(out.val, out.done), nil
}

// run is the generator body's goroutine entry point: it pushes the
// generator's frame onto the shared frame/operand stacks, executes bytecode
// until a Yield or return, reports that suspension over yieldCh, and blocks
// on resumeCh until driven again.
func (g *GeneratorIterator) run() {
	v := g.vm
	f := g.frame
	f.gen = g
	f.sp = len(v.stack)
	v.frames = append(v.frames, f)

	result, thrown := v.run(f)

	v.stack = v.stack[:f.sp]
	v.frames = v.frames[:len(v.frames)-1]

	if thrown != nil {
		g.yieldCh <- yieldMsg{thrown: thrown}
		return
	}
	g.yieldCh <- yieldMsg{val: result, done: true}
}

// suspend is called by the dispatch loop's Yield handler: it saves this
// frame's live operand-stack contents, pops the frame off the shared
// stacks so sibling execution on the other goroutine sees correct depth,
// reports the yielded value, and blocks until resumed — returning the value
// passed to the next .next()/.throw() call, or a non-nil thrown value if
// resumed via .throw().
func (g *GeneratorIterator) suspend(yielded value.Value) (value.Value, *value.Value, bool) {
	v := g.vm
	f := g.frame
	f.savedStack = append(f.savedStack[:0], v.stack[f.sp:]...)
	v.stack = v.stack[:f.sp]
	v.frames = v.frames[:len(v.frames)-1]

	g.yieldCh <- yieldMsg{val: yielded}
	msg := <-g.resumeCh

	f.sp = len(v.stack)
	v.stack = append(v.stack, f.savedStack...)
	v.frames = append(v.frames, f)

	switch msg.kind {
	case resumeThrow:
		return value.Undefined, &msg.val, false
	case resumeReturn:
		return msg.val, nil, true
	default:
		return msg.val, nil, false
	}
}
