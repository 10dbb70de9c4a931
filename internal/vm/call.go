package vm

import (
	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/dasherr"
	"github.com/dashlang/dash/internal/value"
)

// makeClosure turns a ConstFunction constant loaded by the currently
// executing frame into a live Closure (functions.go's doc comment: "the VM
// turns a ConstFunction load into a live closure, snapshotting the captured
// externals named in Function.Externals"). Each External either boxes a
// local slot of the enclosing frame (!IsNestedExternal) or passes through an
// already-boxed cell from the enclosing frame's own closure
// (IsNestedExternal), chaining capture through arbitrarily many nesting
// levels.
func (v *VM) makeClosure(enclosing *Frame, fn *bytecode.Function) *Closure {
	cells := make([]*Cell, len(fn.Externals))
	for i, ext := range fn.Externals {
		if ext.IsNestedExternal {
			cells[i] = enclosing.closure.cells[ext.LocalID]
		} else {
			cells[i] = enclosing.box(int(ext.LocalID))
		}
	}
	return newClosure(v, fn, cells)
}

// invoke is the call mechanic shared by Closure.Apply/Construct and the
// dispatch loop's Call opcode (§4.6 "Call semantics"): bind arguments into
// fresh locals, resolve `this` (arrow functions ignore the caller-supplied
// `this` and reuse the one captured at closure-creation time), run the
// callee's bytecode to completion, and report either its return value or an
// uncaught thrown value.
func (v *VM) invoke(c *Closure, this value.Value, args []value.Value, newTarget value.Value, isConstruct bool) (value.Value, *value.Value) {
	if len(v.frames) >= maxFrameDepth {
		return value.Undefined, v.newError("RangeError", "call stack size exceeded")
	}

	frame := newFrame(c.fn, c, len(v.stack))
	if c.fn.Kind == bytecode.Arrow {
		frame.this = c.capturedThis
	} else {
		frame.this = this
	}
	frame.newTarget = newTarget
	frame.homeObject = c.homeObject

	bindArguments(v, frame, c.fn, this, args)

	v.frames = append(v.frames, frame)
	result, thrown := v.run(frame)
	v.frames = v.frames[:len(v.frames)-1]
	v.stack = v.stack[:frame.sp]
	return result, thrown
}

// bindArguments copies min(len(args), ParamCount) positional arguments into
// locals 0..ParamCount-1 (missing trailing parameters default to
// undefined), materializes the rest parameter array when RestLocal >= 0,
// and builds an arguments object when ArgumentsLocal >= 0 (§4.6).
func bindArguments(v *VM, frame *Frame, fn *bytecode.Function, this value.Value, args []value.Value) {
	for i := 0; i < fn.ParamCount; i++ {
		if i < len(args) {
			frame.locals[i] = args[i]
		} else {
			frame.locals[i] = value.Undefined
		}
	}
	if fn.RestLocal >= 0 {
		var rest []value.Value
		if len(args) > fn.ParamCount {
			rest = append(rest, args[fn.ParamCount:]...)
		}
		frame.locals[fn.RestLocal] = v.allocArray(rest)
	}
	if fn.ArgumentsLocal >= 0 {
		frame.locals[fn.ArgumentsLocal] = v.allocArray(append([]value.Value(nil), args...))
	}
}

// callCallable resolves v's Callable backing (a heap object implementing
// value.Callable) and applies it, raising a catchable TypeError when the
// value isn't callable (§7 "calling a non-function").
func (vm *VM) callCallable(callee value.Value, this value.Value, args []value.Value) (value.Value, *value.Value) {
	if callee.Kind() != value.KindObject {
		return value.Undefined, vm.newError("TypeError", "value is not a function")
	}
	obj := vm.heap.Get(callee.ObjectID())
	callable, ok := obj.(value.Callable)
	if !ok {
		return value.Undefined, vm.newError("TypeError", "value is not a function")
	}
	return callable.Apply(this, args)
}

func (vm *VM) constructCallable(callee value.Value, args []value.Value) (value.Value, *value.Value) {
	if callee.Kind() != value.KindObject {
		return value.Undefined, vm.newError("TypeError", "value is not a constructor")
	}
	obj := vm.heap.Get(callee.ObjectID())
	callable, ok := obj.(value.Callable)
	if !ok {
		return value.Undefined, vm.newError("TypeError", "value is not a constructor")
	}
	return callable.Construct(callee, args)
}

// asThrow converts a Go error into a value the dispatch loop can throw
// instead of panicking: nil for nil, a catchable RangeError for the
// operand-stack-overflow sentinel (§4.6/§7: "exceeding either raises a
// catchable RangeError"), and a generic Error carrying err's message for
// anything else.
func (vm *VM) asThrow(err error) *value.Value {
	if err == nil {
		return nil
	}
	if err == dasherr.ErrOperandStackOverflow {
		return vm.newError("RangeError", "operand stack exceeded")
	}
	return vm.newError("Error", err.Error())
}
