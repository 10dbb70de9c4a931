package vm

import "github.com/dashlang/dash/internal/value"

// applyAsync is Closure.Apply's Async-kind branch (§4.8 "Async functions"):
// an async function's body runs synchronously up to its first Await,
// exactly like a generator runs synchronously up to its first Yield, so
// this reuses GeneratorIterator's suspend/resume channel rendezvous
// wholesale rather than a second coroutine implementation — the only
// difference is who drives it. A Generator-kind closure hands its iterator
// to calling bytecode; an Async-kind closure drives its own iterator
// internally and exposes only the Promise the caller actually awaits.
func (v *VM) applyAsync(c *Closure, this value.Value, args []value.Value) (value.Value, *value.Value) {
	gen := v.newGenerator(c, this, args)
	promiseVal, p := v.allocPromise()
	v.driveAsync(gen, p, resumeMsg{kind: resumeNext})
	return promiseVal, nil
}

// driveAsync steps gen once and either settles p (the function returned or
// threw) or arranges to step gen again once the just-awaited value settles
// (the function suspended at an Await), recursing through awaitOn's
// reaction callback rather than blocking any goroutine on promise
// resolution — the same microtask-scheduled continuation style §5
// describes for .then chains.
func (v *VM) driveAsync(gen *GeneratorIterator, p *Promise, msg resumeMsg) {
	out, thrown := gen.next(msg)
	if thrown != nil {
		p.settle(promiseRejected, *thrown)
		return
	}
	obj := v.heap.Get(out.ObjectID()).(value.Object)
	valPV, _ := obj.GetOwnProperty(v.wk.valueKey)
	donePV, _ := obj.GetOwnProperty(v.wk.doneKey)
	if donePV.Data.ToBoolean(v.in) {
		v.resolvePromiseWith(p, valPV.Data)
		return
	}
	v.awaitOn(valPV.Data, func(state promiseState, result value.Value) {
		if state == promiseRejected {
			v.driveAsync(gen, p, resumeMsg{kind: resumeThrow, val: result})
			return
		}
		v.driveAsync(gen, p, resumeMsg{kind: resumeNext, val: result})
	})
}

// toPromiseForAwait normalizes an awaited value into a Promise: an
// already-pending/settled Promise is reused directly (so awaiting another
// async call's result chains through its real reactions), anything else
// becomes an immediately-fulfilled one (§4.8: "awaiting a non-thenable
// value resumes on the next microtask tick with that value").
func (v *VM) toPromiseForAwait(val value.Value) *Promise {
	if val.Kind() == value.KindObject {
		if p, ok := v.heap.Get(val.ObjectID()).(*Promise); ok {
			return p
		}
	}
	p := v.newPromise()
	p.settle(promiseFulfilled, val)
	return p
}

// awaitOn registers onSettled against val's settlement, reusing the same
// reaction/scheduleReaction plumbing Promise.prototype.then uses so an
// Await and a `.then` callback behave identically with respect to
// microtask ordering.
func (v *VM) awaitOn(val value.Value, onSettled func(state promiseState, result value.Value)) {
	p := v.toPromiseForAwait(val)
	r := reaction{
		onFulfilled: nativeFn(v, "", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
			onSettled(promiseFulfilled, arg(args, 0))
			return value.Undefined, nil
		}),
		onRejected: nativeFn(v, "", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
			onSettled(promiseRejected, arg(args, 0))
			return value.Undefined, nil
		}),
		result: v.newPromise(),
	}
	if p.state == promisePending {
		p.reactions = append(p.reactions, r)
		return
	}
	v.scheduleReaction(r, p.state, p.result)
}
