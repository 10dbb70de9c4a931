package vm

import (
	"github.com/dashlang/dash/internal/heap"
	"github.com/dashlang/dash/internal/value"
)

type promiseState int

const (
	promisePending promiseState = iota
	promiseFulfilled
	promiseRejected
)

// Promise is the VM's built-in Promise object (§5's concurrency model: "no
// OS threads; concurrency is cooperative, driven entirely by the microtask
// queue"). Settling a pending promise schedules every already-registered
// reaction as a microtask; settling while reactions are still empty just
// records the outcome so a later .then sees it immediately (§4.7).
type Promise struct {
	vm        *VM
	state     promiseState
	result    value.Value
	reactions []reaction

	props     map[value.PropertyKey]value.PropertyValue
	keyOrder  []value.PropertyKey
	prototype value.Value
}

type reaction struct {
	onFulfilled value.Value
	onRejected  value.Value
	result      *Promise
}

func (v *VM) newPromise() *Promise {
	return &Promise{vm: v, state: promisePending, prototype: value.Object(v.promiseProtoID)}
}

func (v *VM) allocPromise() (value.Value, *Promise) {
	p := v.newPromise()
	id := v.heap.Alloc(p, 1, v.traceRoots)
	return value.Object(id), p
}

func (p *Promise) GetOwnProperty(key value.PropertyKey) (value.PropertyValue, bool) {
	pv, ok := p.props[key]
	return pv, ok
}
func (p *Promise) SetProperty(key value.PropertyKey, v value.Value) error {
	if p.props == nil {
		p.props = make(map[value.PropertyKey]value.PropertyValue, 1)
	}
	if _, exists := p.props[key]; !exists {
		p.keyOrder = append(p.keyOrder, key)
	}
	p.props[key] = value.DataProperty(v, value.DefaultDataDescriptor)
	return nil
}
func (p *Promise) DeleteProperty(key value.PropertyKey) bool { delete(p.props, key); return true }
func (p *Promise) GetPrototype() value.Value                 { return p.prototype }
func (p *Promise) SetPrototype(v value.Value)                { p.prototype = v }
func (p *Promise) OwnKeys() []value.PropertyKey {
	out := make([]value.PropertyKey, len(p.keyOrder))
	copy(out, p.keyOrder)
	return out
}
func (p *Promise) TypeOf() string { return "object" }
func (p *Promise) AsAny() any     { return p }
func (p *Promise) Trace(mark func(heap.ObjectId)) {
	markValue(p.prototype, mark)
	markValue(p.result, mark)
	for _, pv := range p.props {
		markValue(pv.Data, mark)
	}
	for _, r := range p.reactions {
		markValue(r.onFulfilled, mark)
		markValue(r.onRejected, mark)
	}
}

func (p *Promise) settle(state promiseState, result value.Value) {
	if p.state != promisePending {
		return
	}
	p.state = state
	p.result = result
	reactions := p.reactions
	p.reactions = nil
	for _, r := range reactions {
		p.vm.scheduleReaction(r, state, result)
	}
}

// scheduleReaction enqueues the microtask that runs a single .then/.catch
// handler against a settled promise's outcome, settling the chained promise
// with the handler's return value (or propagating if no handler of the
// matching kind was registered) — §4.7's reaction model.
func (v *VM) scheduleReaction(r reaction, state promiseState, result value.Value) {
	handler := r.onFulfilled
	if state == promiseRejected {
		handler = r.onRejected
	}
	v.enqueueMicrotask(nativeFn(v, "", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		if handler.Kind() != value.KindObject {
			if state == promiseRejected {
				r.result.settle(promiseRejected, result)
			} else {
				r.result.settle(promiseFulfilled, result)
			}
			return value.Undefined, nil
		}
		out, thrown := vm.callCallable(handler, value.Undefined, []value.Value{result})
		if thrown != nil {
			r.result.settle(promiseRejected, *thrown)
			return value.Undefined, nil
		}
		vm.resolvePromiseWith(r.result, out)
		return value.Undefined, nil
	}), value.Undefined, nil)
}

// resolvePromiseWith settles target with value, chaining onto value if it
// is itself a thenable (§4.7's "resolution chains through nested
// thenables").
func (v *VM) resolvePromiseWith(target *Promise, val value.Value) {
	if val.Kind() == value.KindObject {
		if inner, ok := v.heap.Get(val.ObjectID()).(*Promise); ok {
			inner.reactions = append(inner.reactions, reaction{
				onFulfilled: nativeFn(v, "", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
					target.settle(promiseFulfilled, arg(args, 0))
					return value.Undefined, nil
				}),
				onRejected: nativeFn(v, "", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
					target.settle(promiseRejected, arg(args, 0))
					return value.Undefined, nil
				}),
				result: target,
			})
			if inner.state != promisePending {
				r := inner.reactions[len(inner.reactions)-1]
				inner.reactions = inner.reactions[:len(inner.reactions)-1]
				v.scheduleReaction(r, inner.state, inner.result)
			}
			return
		}
	}
	target.settle(promiseFulfilled, val)
}

func (v *VM) installPromiseBuiltins() {
	proto := v.heap.Get(v.promiseProtoID).(value.Object)
	_ = proto.SetProperty(v.internKey("then"), nativeFn(v, "then", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		p, ok := vm.heap.Get(this.ObjectID()).(*Promise)
		if !ok {
			return value.Undefined, vm.throwTypeError("Promise.prototype.then called on non-promise")
		}
		chainedVal, chained := vm.allocPromise()
		r := reaction{onFulfilled: arg(args, 0), onRejected: arg(args, 1), result: chained}
		if p.state == promisePending {
			p.reactions = append(p.reactions, r)
		} else {
			vm.scheduleReaction(r, p.state, p.result)
		}
		return chainedVal, nil
	}))
	_ = proto.SetProperty(v.internKey("catch"), nativeFn(v, "catch", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		thenPV, _ := proto.GetOwnProperty(vm.internKey("then"))
		thenFn := vm.heap.Get(thenPV.Data.ObjectID()).(value.Callable)
		return thenFn.Apply(this, []value.Value{value.Undefined, arg(args, 0)})
	}))

	ctor := nativeFn(v, "Promise", nil)
	nf := v.heap.Get(ctor.ObjectID()).(*NativeFunc)
	nf.construct = func(vm *VM, newTarget value.Value, args []value.Value) (value.Value, *value.Value) {
		promiseVal, p := vm.allocPromise()
		executor := arg(args, 0)
		resolveFn := nativeFn(vm, "resolve", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
			vm.resolvePromiseWith(p, arg(args, 0))
			return value.Undefined, nil
		})
		rejectFn := nativeFn(vm, "reject", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
			p.settle(promiseRejected, arg(args, 0))
			return value.Undefined, nil
		})
		if _, thrown := vm.callCallable(executor, value.Undefined, []value.Value{resolveFn, rejectFn}); thrown != nil {
			p.settle(promiseRejected, *thrown)
		}
		return promiseVal, nil
	}
	_ = nf.SetProperty(v.wk.prototypeKey, value.Object(v.promiseProtoID))
	_ = nf.SetProperty(v.internKey("resolve"), nativeFn(v, "resolve", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		promiseVal, p := vm.allocPromise()
		vm.resolvePromiseWith(p, arg(args, 0))
		return promiseVal, nil
	}))
	_ = nf.SetProperty(v.internKey("reject"), nativeFn(v, "reject", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		promiseVal, p := vm.allocPromise()
		p.settle(promiseRejected, arg(args, 0))
		return promiseVal, nil
	}))
	v.defineGlobal("Promise", ctor)
}
