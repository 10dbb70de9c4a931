// Package vm implements the dispatch loop and runtime object model described
// in §3, §4.6-§4.8 and §6 of the engine design: a single operand stack
// shared by every active call frame, a fetch-decode-execute loop over
// internal/bytecode's instruction set, `this`/argument binding on call,
// try/catch/finally unwinding, generator suspension, and the promise/
// microtask driver that schedules async continuations.
//
// Grounded on internal/engine/interpreter/interpreter.go's callEngine: one
// contiguous ce.stack shared across frames, a frame stack pushed/popped
// around a native call, and a single big switch over an instruction kind —
// this package keeps that shape (VM.stack, VM.frames, (*VM).run's switch
// over bytecode.Opcode) and adds the AST-era concerns wazero's WASM
// interpreter never needed: exception unwinding, generator/async
// suspension, and a JS-shaped object/prototype model.
package vm

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/dasherr"
	"github.com/dashlang/dash/internal/heap"
	"github.com/dashlang/dash/internal/interner"
	"github.com/dashlang/dash/internal/value"
)

// maxOperandStack and maxFrameDepth are §4.6's fixed bounds: "capacity ≈
// 8192 Value slots" and "max depth 1024". Exceeding either is a catchable
// RangeError promoted on the next frame, per §4.6 and §7.
const (
	maxOperandStack = 8192
	maxFrameDepth   = 1024
)

// wellKnown is the set of PropertyKeys the VM itself consults by identity
// rather than by re-resolving a string literal on every access (§4.2's root
// set lists "all interner-bound symbols referenced by constants"; these are
// the ones the runtime, not just compiled code, depends on).
type wellKnown struct {
	lengthKey      value.PropertyKey
	nameKey        value.PropertyKey
	prototypeKey   value.PropertyKey
	constructorKey value.PropertyKey
	messageKey     value.PropertyKey
	stackKey       value.PropertyKey
	iteratorKey    value.PropertyKey
	valueKey       value.PropertyKey
	doneKey        value.PropertyKey
}

// VM is one JS engine instance (§5 "each VM owns its statics table and
// interner; values created against one VM must not cross over"). ID is a
// per-instance identifier used to key the host's compilation cache
// alongside a source hash (§4.10's domain-stack wiring for
// github.com/google/uuid).
type VM struct {
	ID uuid.UUID

	heap   *heap.Heap
	scopes *heap.ScopePool
	in     *interner.Interner

	stack  []value.Value
	frames []*Frame

	wk wellKnown

	globalID      heap.ObjectId
	objectProtoID heap.ObjectId
	functionProtoID heap.ObjectId
	arrayProtoID  heap.ObjectId
	errorProtoID  heap.ObjectId
	generatorProtoID heap.ObjectId
	promiseProtoID   heap.ObjectId

	microtasks []microtask

	state State

	exports map[string]value.Value
}

type microtask struct {
	callback value.Value
	this     value.Value
	args     []value.Value
}

// New returns a freshly initialized VM: its own heap, scope pool, interner,
// and global object with the minimal built-in surface §6's CLI and §8's
// testable scenarios need (the Object constructor with Object.defineProperty,
// Array, the Error constructors, Promise, and a console whose log is a
// no-op).
func New(in *interner.Interner) *VM {
	v := &VM{
		ID:     uuid.New(),
		heap:   heap.New(),
		scopes: heap.NewScopePool(),
		in:     in,
		stack:  make([]value.Value, 0, 256),
	}
	v.wk = wellKnown{
		lengthKey:      v.internKey("length"),
		nameKey:        v.internKey("name"),
		prototypeKey:   v.internKey("prototype"),
		constructorKey: v.internKey("constructor"),
		messageKey:     v.internKey("message"),
		stackKey:       v.internKey("stack"),
		iteratorKey:    v.internKey("@@iterator"),
		valueKey:       v.internKey("value"),
		doneKey:        v.internKey("done"),
	}
	v.setupGlobals()
	return v
}

func (v *VM) internKey(s string) value.PropertyKey {
	return value.FromJSString(s, v.in.Intern)
}

func (v *VM) objectProtoValue() value.Value { return value.Object(v.objectProtoID) }
func (v *VM) functionProtoValue() value.Value {
	return value.Object(v.functionProtoID)
}
func (v *VM) arrayProtoValue() value.Value { return value.Object(v.arrayProtoID) }

// allocPlainObject allocates a new ordinary object. It does not root it:
// callers that must keep it alive across a further allocation hold it in
// their own LocalScope (§4.2).
func (v *VM) allocPlainObject(proto value.Value) value.Value {
	obj := value.NewPlainObject(proto)
	id := v.heap.Alloc(obj, 1, v.traceRoots)
	return value.Object(id)
}

func (v *VM) allocArray(elems []value.Value) value.Value {
	arr := value.NewArray(v.arrayProtoValue(), elems, v.wk.lengthKey.Symbol())
	id := v.heap.Alloc(arr, 1+len(elems), v.traceRoots)
	return value.Object(id)
}

// traceRoots is the Heap.Sweep/Alloc roots callback (§4.2's root set): the
// operand stack, every active frame, every open LocalScope, the global
// object, and the well-known prototypes table.
func (v *VM) traceRoots(mark func(heap.ObjectId)) {
	for _, val := range v.stack {
		markValue(val, mark)
	}
	for _, f := range v.frames {
		f.Trace(mark)
	}
	v.scopes.Trace(mark)
	mark(v.globalID)
	mark(v.objectProtoID)
	mark(v.functionProtoID)
	mark(v.arrayProtoID)
	mark(v.errorProtoID)
	mark(v.generatorProtoID)
	mark(v.promiseProtoID)
	for _, mt := range v.microtasks {
		markValue(mt.callback, mark)
		markValue(mt.this, mark)
		for _, a := range mt.args {
			markValue(a, mark)
		}
	}
}

// Eval runs fn as the top-level program (§4.5 "Output ... the root function
// constant"), driving it to completion and then draining the async task
// queue once (§4.7 "after the synchronous top-level frame returns, the host
// calls process_async_tasks()"). It returns the program's final expression
// value or the uncaught thrown value as a Go error.
func (v *VM) Eval(fn *bytecode.Function) (value.Value, error) {
	closure := newClosure(v, fn, nil)
	result, thrown := v.invoke(closure, value.Undefined, nil, value.Undefined, false)
	if thrown != nil {
		return value.Undefined, &ThrownError{Value: *thrown, in: v.in}
	}
	v.ProcessAsyncTasks()
	return result, nil
}

// ProcessAsyncTasks drains the microtask queue (§4.7, §5): each task may
// itself enqueue more, so draining continues until the queue is empty
// rather than running a fixed snapshot.
func (v *VM) ProcessAsyncTasks() {
	for len(v.microtasks) > 0 {
		mt := v.microtasks[0]
		v.microtasks = v.microtasks[1:]
		v.callValue(mt.callback, mt.this, mt.args)
	}
}

// enqueueMicrotask schedules callback(this, args...) to run after the
// current synchronous execution returns to the top level (§4.7's deferred
// microtask queue, FIFO per §5's ordering guarantee).
func (v *VM) enqueueMicrotask(callback, this value.Value, args []value.Value) {
	v.microtasks = append(v.microtasks, microtask{callback: callback, this: this, args: args})
}

// callValue invokes callback(this, args...) if it is callable, swallowing
// (not propagating) a thrown value the way an unhandled promise-reaction
// exception is dropped rather than crashing the driver loop; a production
// host would surface this via an "unhandledRejection"-style hook, which is
// out of scope here.
func (v *VM) callValue(callback, this value.Value, args []value.Value) (value.Value, *value.Value) {
	if callback.Kind() != value.KindObject {
		return value.Undefined, nil
	}
	callable, ok := v.heap.Get(callback.ObjectID()).(value.Callable)
	if !ok {
		return value.Undefined, nil
	}
	return callable.Apply(this, args)
}

// ThrownError wraps an uncaught JS value as a Go error, returned by Eval.
type ThrownError struct {
	Value value.Value
	in    *interner.Interner
}

func (e *ThrownError) Error() string {
	return InspectError(e.in, nil, e.Value)
}

// InspectError renders a thrown value for CLI/diagnostic output: a JS Error
// instance prints "name: message", anything else falls back to a generic
// inspection. h may be nil when called from ThrownError.Error (no live
// heap to resolve prototypes through at that point is an acceptable
// degradation for the common case of throwing a plain Error instance,
// whose message is an own data property reachable without prototype walk).
func InspectError(in *interner.Interner, h *heap.Heap, v value.Value) string {
	if v.Kind() != value.KindObject || h == nil {
		return inspectPrimitive(in, v)
	}
	obj, ok := h.Get(v.ObjectID()).(value.Object)
	if !ok {
		return inspectPrimitive(in, v)
	}
	msgKey := value.FromJSString("message", in.Intern)
	if pv, ok := obj.GetOwnProperty(msgKey); ok {
		return inspectPrimitive(in, pv.Data)
	}
	return "[object]"
}

func inspectPrimitive(in *interner.Interner, v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		return in.Resolve(v.StringSymbol())
	case value.KindNumber:
		return formatNumber(v.Number())
	case value.KindBoolean:
		if v.Bool() {
			return "true"
		}
		return "false"
	case value.KindUndefined:
		return "undefined"
	case value.KindNull:
		return "null"
	default:
		return "[object]"
	}
}

func formatNumber(n float64) string {
	if math.IsNaN(n) {
		return "NaN"
	}
	if math.IsInf(n, 1) {
		return "Infinity"
	}
	if math.IsInf(n, -1) {
		return "-Infinity"
	}
	return fmt.Sprintf("%g", n)
}

// pushStack appends v to the shared operand stack, raising a catchable
// RangeError (fatal per §4.6/§7 if it cannot even be constructed, though in
// practice constructing the error object costs one more slot we always have
// room for since we check before the push that triggered the overflow).
func (v *VM) pushStack(val value.Value) error {
	if len(v.stack) >= maxOperandStack {
		return dasherr.ErrOperandStackOverflow
	}
	v.stack = append(v.stack, val)
	return nil
}

func (v *VM) popStack() value.Value {
	n := len(v.stack) - 1
	val := v.stack[n]
	v.stack = v.stack[:n]
	return val
}

func (v *VM) peekStack() value.Value {
	return v.stack[len(v.stack)-1]
}

// popN pops the top n values off the stack, returned in their original
// left-to-right (bottom-to-top) order.
func (v *VM) popN(n int) []value.Value {
	start := len(v.stack) - n
	out := make([]value.Value, n)
	copy(out, v.stack[start:])
	v.stack = v.stack[:start]
	return out
}
