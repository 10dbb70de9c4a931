package vm

import (
	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/value"
)

// execIntrinsic implements IntrinsicOp's sub-operation byte (§4.4): the
// iteration-protocol, spread-expansion, and `new`/`delete`/`typeof`
// mechanics the compiler desugars to rather than encoding as dedicated
// opcodes. Every case here operates directly on v.stack the same way the
// dispatch loop's other opcode handlers do.
func (v *VM) execIntrinsic(f *Frame, sub bytecode.Intrinsic) *value.Value {
	switch sub {
	case bytecode.IntrinsicGetIterator:
		iterable := v.popStack()
		it, thrown := v.getIterator(iterable)
		if thrown != nil {
			return thrown
		}
		_ = v.pushStack(it)

	case bytecode.IntrinsicGetKeyIterator:
		obj := v.popStack()
		it, thrown := v.getKeyIterator(obj)
		if thrown != nil {
			return thrown
		}
		_ = v.pushStack(it)

	case bytecode.IntrinsicIterNext:
		iterVal := v.popStack()
		return v.iterNext(iterVal)

	case bytecode.IntrinsicNewObject:
		proto := v.popStack()
		_ = v.pushStack(v.allocPlainObject(proto))

	case bytecode.IntrinsicArrayNew:
		_ = v.pushStack(v.allocArray(nil))

	case bytecode.IntrinsicArrayPush:
		val := v.popStack()
		arrVal := v.peekStack()
		arr := v.heap.Get(arrVal.ObjectID()).(*value.Array)
		_ = arr.SetProperty(value.IndexKey(arr.Length()), val)

	case bytecode.IntrinsicArraySpread:
		iterable := v.popStack()
		arrVal := v.peekStack()
		if thrown := v.spreadInto(arrVal, iterable); thrown != nil {
			return thrown
		}

	case bytecode.IntrinsicCallSpread:
		argsVal := v.popStack()
		callee := v.popStack()
		args := v.materializeArray(argsVal)
		result, thrown := v.callCallable(callee, value.Undefined, args)
		if thrown != nil {
			return thrown
		}
		_ = v.pushStack(result)

	case bytecode.IntrinsicCallSpreadMethod:
		argsVal := v.popStack()
		callee := v.popStack()
		receiver := v.popStack()
		args := v.materializeArray(argsVal)
		result, thrown := v.callCallable(callee, receiver, args)
		if thrown != nil {
			return thrown
		}
		_ = v.pushStack(result)

	case bytecode.IntrinsicConstructSpread:
		argsVal := v.popStack()
		ctor := v.popStack()
		args := v.materializeArray(argsVal)
		result, thrown := v.constructCallable(ctor, args)
		if thrown != nil {
			return thrown
		}
		_ = v.pushStack(result)

	case bytecode.IntrinsicTypeof:
		val := v.popStack()
		_ = v.pushStack(value.String(v.in.Intern(val.TypeOf(v.heap))))

	case bytecode.IntrinsicDeleteProperty:
		keyVal := v.popStack()
		obj := v.popStack()
		if obj.Kind() != value.KindObject {
			_ = v.pushStack(value.Bool(true))
			break
		}
		key := v.toPropertyKey(keyVal)
		backing := v.heap.Get(obj.ObjectID()).(value.Object)
		_ = v.pushStack(value.Bool(backing.DeleteProperty(key)))

	case bytecode.IntrinsicToNumber:
		val := v.popStack()
		_ = v.pushStack(value.Number(val.ToNumber(v.in)))

	case bytecode.IntrinsicObjectSpread:
		src := v.popStack()
		objVal := v.peekStack()
		if thrown := v.objectSpreadInto(objVal, src); thrown != nil {
			return thrown
		}

	default:
		return v.throwTypeError("unsupported intrinsic operation")
	}
	return nil
}

// spreadInto drains iterable into arr via the same jsIterator protocol
// IntrinsicGetIterator/IntrinsicIterNext use, rather than a one-off
// special case for arrays — so `[...gen()]` and `[...someArray]` both go
// through one code path (§4.4/§4.5).
func (v *VM) spreadInto(arrVal, iterable value.Value) *value.Value {
	iterVal, thrown := v.getIterator(iterable)
	if thrown != nil {
		return thrown
	}
	it, ok := v.heap.Get(iterVal.ObjectID()).(jsIterator)
	if !ok {
		return nil
	}
	arr := v.heap.Get(arrVal.ObjectID()).(*value.Array)
	for {
		val, done, thrown := it.next(v)
		if thrown != nil {
			return thrown
		}
		if done {
			return nil
		}
		_ = arr.SetProperty(value.IndexKey(arr.Length()), val)
	}
}

// materializeArray copies a *value.Array's dense elements into a plain Go
// slice, the shape IntrinsicCallSpread/IntrinsicConstructSpread need to
// hand off to callCallable/constructCallable's args parameter.
func (v *VM) materializeArray(arrVal value.Value) []value.Value {
	arr := v.heap.Get(arrVal.ObjectID()).(*value.Array)
	n := int(arr.Length())
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		pv, _ := arr.GetOwnProperty(value.IndexKey(uint32(i)))
		out[i] = pv.Data
	}
	return out
}

// objectSpreadInto copies src's own enumerable properties onto dst
// (`{...src}`, §4.4) — a plain copy rather than iteration, unlike
// IntrinsicArraySpread, since object spread never consults an iterator
// protocol.
func (v *VM) objectSpreadInto(dst, src value.Value) *value.Value {
	if src.Kind() != value.KindObject {
		return nil
	}
	srcObj := v.heap.Get(src.ObjectID()).(value.Object)
	dstObj := v.heap.Get(dst.ObjectID()).(value.Object)
	for _, k := range srcObj.OwnKeys() {
		pv, ok := srcObj.GetOwnProperty(k)
		if !ok || !pv.Descriptor.Has(value.Enumerable) {
			continue
		}
		val := pv.Data
		if pv.IsAccessor {
			if pv.Accessor.Get.Kind() != value.KindObject {
				continue
			}
			result, thrown := v.callCallable(pv.Accessor.Get, src, nil)
			if thrown != nil {
				return thrown
			}
			val = result
		}
		_ = dstObj.SetProperty(k, val)
	}
	return nil
}
