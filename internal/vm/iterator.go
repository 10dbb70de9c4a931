package vm

import (
	"github.com/dashlang/dash/internal/heap"
	"github.com/dashlang/dash/internal/value"
)

// jsIterator is the VM-internal handle IntrinsicGetIterator/
// IntrinsicGetKeyIterator produce and IntrinsicIterNext advances. It is
// deliberately not value.Object-shaped JS surface; a for-of/for-in loop
// only ever touches it through these two intrinsics, never through user
// bytecode directly (§4.5's "the compiler never reasons about built-in
// object shapes" — the VM owns the whole protocol, including the iterator
// handle's representation).
type jsIterator interface {
	heap.Traceable
	next(v *VM) (val value.Value, done bool, thrown *value.Value)
}

// arrayIter walks a value.Array's indices in order; it is the common case
// for `for (const x of someArray)`.
type arrayIter struct {
	arr value.Value
	idx int
}

func (a *arrayIter) Trace(mark func(heap.ObjectId)) { markValue(a.arr, mark) }
func (a *arrayIter) next(v *VM) (value.Value, bool, *value.Value) {
	arr := v.heap.Get(a.arr.ObjectID()).(*value.Array)
	if a.idx >= int(arr.Length()) {
		return value.Undefined, true, nil
	}
	pv, _ := arr.GetOwnProperty(value.IndexKey(uint32(a.idx)))
	a.idx++
	return pv.Data, false, nil
}

// keysIter walks a pre-computed snapshot of enumerable string keys,
// produced eagerly by IntrinsicGetKeyIterator (for-in, §4.5).
type keysIter struct {
	keys []value.PropertyKey
	idx  int
}

func (k *keysIter) Trace(func(heap.ObjectId)) {}
func (k *keysIter) next(v *VM) (value.Value, bool, *value.Value) {
	if k.idx >= len(k.keys) {
		return value.Undefined, true, nil
	}
	key := k.keys[k.idx]
	k.idx++
	return value.String(key.Symbol()), false, nil
}

// genIter adapts a *GeneratorIterator to jsIterator so `for (const x of
// gen())` drives the same Yield-suspension machinery as an explicit
// .next() call.
type genIter struct {
	gen *GeneratorIterator
}

func (g *genIter) Trace(mark func(heap.ObjectId)) { g.gen.Trace(mark) }
func (g *genIter) next(v *VM) (value.Value, bool, *value.Value) {
	out, thrown := g.gen.next(resumeMsg{kind: resumeNext})
	if thrown != nil {
		return value.Undefined, true, thrown
	}
	obj := v.heap.Get(out.ObjectID()).(value.Object)
	valPV, _ := obj.GetOwnProperty(v.wk.valueKey)
	donePV, _ := obj.GetOwnProperty(v.wk.doneKey)
	return valPV.Data, donePV.Data.ToBoolean(v.in), nil
}

// objectIter adapts a generic iterable (an object exposing a
// [Symbol.iterator]-equivalent own property whose value is the iterator
// object itself, with a callable "next") to jsIterator.
type objectIter struct {
	iterObj value.Value
	nextFn  value.Value
}

func (o *objectIter) Trace(mark func(heap.ObjectId)) {
	markValue(o.iterObj, mark)
	markValue(o.nextFn, mark)
}
func (o *objectIter) next(v *VM) (value.Value, bool, *value.Value) {
	out, thrown := v.callCallable(o.nextFn, o.iterObj, nil)
	if thrown != nil {
		return value.Undefined, true, thrown
	}
	if out.Kind() != value.KindObject {
		return value.Undefined, true, nil
	}
	obj := v.heap.Get(out.ObjectID()).(value.Object)
	valPV, _ := obj.GetOwnProperty(v.wk.valueKey)
	donePV, _ := obj.GetOwnProperty(v.wk.doneKey)
	return valPV.Data, donePV.Data.ToBoolean(v.in), nil
}

// getIterator implements IntrinsicGetIterator: arrays and generators get a
// direct native adaptor; anything else is expected to expose an
// `@@iterator` own property (the interned sentinel name the compiler's
// well-known iteratorKey resolves to — see DESIGN.md on why this engine
// uses a plain string convention rather than a true Symbol.iterator, which
// would need first-class Symbol property keys threaded through every
// built-in).
func (v *VM) getIterator(iterable value.Value) (value.Value, *value.Value) {
	if iterable.Kind() != value.KindObject {
		return value.Undefined, v.throwTypeError("value is not iterable")
	}
	switch obj := v.heap.Get(iterable.ObjectID()).(type) {
	case *value.Array:
		it := &arrayIter{arr: iterable}
		return value.Object(v.heap.Alloc(it, 1, v.traceRoots)), nil
	case *GeneratorIterator:
		it := &genIter{gen: obj}
		return value.Object(v.heap.Alloc(it, 1, v.traceRoots)), nil
	default:
		pv, ok := value.GetProperty(v.heap, iterable, v.wk.iteratorKey)
		if !ok {
			return value.Undefined, v.throwTypeError("value is not iterable")
		}
		iterObj, thrown := v.callCallable(pv.Data, iterable, nil)
		if thrown != nil {
			return value.Undefined, thrown
		}
		nextPV, ok := value.GetProperty(v.heap, iterObj, v.internKey("next"))
		if !ok {
			return value.Undefined, v.throwTypeError("iterator has no next method")
		}
		it := &objectIter{iterObj: iterObj, nextFn: nextPV.Data}
		return value.Object(v.heap.Alloc(it, 1, v.traceRoots)), nil
	}
}

// getKeyIterator implements IntrinsicGetKeyIterator (for-in): an eager
// snapshot of own-and-inherited enumerable string keys, walking the
// prototype chain and de-duplicating shadowed names the way §4.5 describes
// for-in enumeration order.
func (v *VM) getKeyIterator(iterable value.Value) (value.Value, *value.Value) {
	if iterable.Kind() != value.KindObject {
		it := &keysIter{}
		return value.Object(v.heap.Alloc(it, 1, v.traceRoots)), nil
	}
	seen := make(map[value.PropertyKey]bool)
	var keys []value.PropertyKey
	cur := iterable
	for !cur.IsNull() && !cur.IsUndefined() {
		obj := v.heap.Get(cur.ObjectID()).(value.Object)
		for _, k := range obj.OwnKeys() {
			if k.Kind() != value.KeyString || seen[k] {
				continue
			}
			seen[k] = true
			if pv, ok := obj.GetOwnProperty(k); ok && pv.Descriptor.Has(value.Enumerable) {
				keys = append(keys, k)
			}
		}
		cur = obj.GetPrototype()
	}
	it := &keysIter{keys: keys}
	return value.Object(v.heap.Alloc(it, 1, v.traceRoots)), nil
}

// iterNext implements IntrinsicIterNext, called with the iterator value
// already popped off the stack. Per codegen.go's compileForEach comment,
// the result is pushed as either just `true` (exhausted — stack balance
// with the loop's single JmpTrueP consuming only that flag) or `value`
// followed by `false` (the loop body's StoreLocal/assign then consumes the
// value once the false flag has been popped by JmpTrueP's fall-through).
func (v *VM) iterNext(iterVal value.Value) *value.Value {
	it, ok := v.heap.Get(iterVal.ObjectID()).(jsIterator)
	if !ok {
		_ = v.pushStack(value.Bool(true))
		return nil
	}
	val, done, thrown := it.next(v)
	if thrown != nil {
		return thrown
	}
	if done {
		_ = v.pushStack(value.Bool(true))
		return nil
	}
	_ = v.pushStack(val)
	_ = v.pushStack(value.Bool(false))
	return nil
}
