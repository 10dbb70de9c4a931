package vm

import (
	"github.com/dashlang/dash/internal/value"
)

// setupGlobals bootstraps the prototype chain (Object.prototype at the
// root, Function/Array/Error/Generator/Promise prototypes hanging off it)
// and the global object, then installs the minimal built-in surface the
// CLI and the testable scenarios in §8 exercise: Object.defineProperty/
// Object.keys, a Function prototype, Array.prototype.push/pop/forEach, the
// Error constructor family, and a Promise constructor with .then/.catch and
// the Promise.resolve/Promise.reject statics.
func (v *VM) setupGlobals() {
	v.heap.DisableGC()
	defer v.heap.EnableGC()

	objectProto := value.NewPlainObject(value.Null)
	v.objectProtoID = v.heap.Alloc(objectProto, 1, v.traceRoots)

	functionProto := value.NewPlainObject(v.objectProtoValue())
	v.functionProtoID = v.heap.Alloc(functionProto, 1, v.traceRoots)

	arrayProto := value.NewPlainObject(v.objectProtoValue())
	v.arrayProtoID = v.heap.Alloc(arrayProto, 1, v.traceRoots)

	errorProto := value.NewPlainObject(v.objectProtoValue())
	v.errorProtoID = v.heap.Alloc(errorProto, 1, v.traceRoots)

	generatorProto := value.NewPlainObject(v.objectProtoValue())
	v.generatorProtoID = v.heap.Alloc(generatorProto, 1, v.traceRoots)

	promiseProto := value.NewPlainObject(v.objectProtoValue())
	v.promiseProtoID = v.heap.Alloc(promiseProto, 1, v.traceRoots)

	global := value.NewPlainObject(v.objectProtoValue())
	v.globalID = v.heap.Alloc(global, 1, v.traceRoots)

	v.installObjectBuiltins()
	v.installArrayBuiltins()
	v.installErrorBuiltins()
	v.installPromiseBuiltins()
	v.installGeneratorBuiltins()
	v.installConsole()
}

func (v *VM) globalObject() value.Object {
	return v.heap.Get(v.globalID).(value.Object)
}

func (v *VM) defineGlobal(name string, val value.Value) {
	key := v.internKey(name)
	_ = v.globalObject().SetProperty(key, val)
}

// lookupGlobal implements the LdGlobal opcode's documented behavior (see
// internal/compiler/expr.go's comment on compileUnary's UnaryTypeof case):
// a missing binding resolves to undefined rather than raising.
func (v *VM) lookupGlobal(key value.PropertyKey) value.Value {
	if pv, ok := value.GetProperty(v.heap, value.Object(v.globalID), key); ok {
		return pv.Data
	}
	return value.Undefined
}

func (v *VM) storeGlobal(key value.PropertyKey, val value.Value) {
	_ = v.globalObject().SetProperty(key, val)
}

func nativeFn(v *VM, name string, fn func(v *VM, this value.Value, args []value.Value) (value.Value, *value.Value)) value.Value {
	nf := v.newNativeFunc(name, v.functionProtoValue(), fn)
	id := v.heap.Alloc(nf, 1, v.traceRoots)
	return value.Object(id)
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined
}

func (v *VM) installObjectBuiltins() {
	ctor := nativeFn(v, "Object", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		if len(args) > 0 && args[0].Kind() == value.KindObject {
			return args[0], nil
		}
		return vm.allocPlainObject(vm.objectProtoValue()), nil
	})
	ctorObj := v.heap.Get(ctor.ObjectID()).(value.Object)
	_ = ctorObj.SetProperty(v.wk.prototypeKey, v.objectProtoValue())

	_ = ctorObj.SetProperty(v.internKey("defineProperty"), nativeFn(v, "defineProperty", objectDefineProperty))
	_ = ctorObj.SetProperty(v.internKey("keys"), nativeFn(v, "keys", objectKeys))
	_ = ctorObj.SetProperty(v.internKey("getPrototypeOf"), nativeFn(v, "getPrototypeOf", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		target := arg(args, 0)
		if target.Kind() != value.KindObject {
			return value.Null, nil
		}
		return vm.heap.Get(target.ObjectID()).(value.Object).GetPrototype(), nil
	}))
	v.defineGlobal("Object", ctor)
}

// objectDefineProperty implements Object.defineProperty(obj, key, descriptor)
// (§8's E4 scenario): a plain-object descriptor with value/writable/
// enumerable/configurable/get/set fields, installed via DefineOwnProperty so
// a non-writable existing property can still be redefined (the defining
// difference from an ordinary assignment, which SetProperty would reject).
func objectDefineProperty(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
	target := arg(args, 0)
	if target.Kind() != value.KindObject {
		return value.Undefined, vm.throwTypeError("Object.defineProperty called on non-object")
	}
	keyVal := arg(args, 1)
	descVal := arg(args, 2)
	key := value.FromJSString(vm.toStringGo(keyVal), vm.in.Intern)

	desc, ok := vm.heap.Get(target.ObjectID()).(*value.PlainObject)
	if !ok {
		return value.Undefined, vm.throwTypeError("Object.defineProperty target must be an ordinary object")
	}
	if descVal.Kind() != value.KindObject {
		return value.Undefined, vm.throwTypeError("property descriptor must be an object")
	}
	descObj := vm.heap.Get(descVal.ObjectID()).(value.Object)

	var bits value.Descriptor
	if truthy(vm, descObj, "writable") {
		bits |= value.Writable
	}
	if truthy(vm, descObj, "enumerable") {
		bits |= value.Enumerable
	}
	if truthy(vm, descObj, "configurable") {
		bits |= value.Configurable
	}

	getPV, hasGet := descObj.GetOwnProperty(vm.internKey("get"))
	setPV, hasSet := descObj.GetOwnProperty(vm.internKey("set"))
	if hasGet || hasSet {
		get, set := value.Undefined, value.Undefined
		if hasGet {
			get = getPV.Data
		}
		if hasSet {
			set = setPV.Data
		}
		desc.DefineOwnProperty(key, value.AccessorProperty(get, set, bits))
		return target, nil
	}

	valPV, _ := descObj.GetOwnProperty(vm.wk.valueKey)
	desc.DefineOwnProperty(key, value.DataProperty(valPV.Data, bits))
	return target, nil
}

func truthy(vm *VM, obj value.Object, name string) bool {
	pv, ok := obj.GetOwnProperty(vm.internKey(name))
	if !ok {
		return false
	}
	return pv.Data.ToBoolean(vm.in)
}

func objectKeys(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
	target := arg(args, 0)
	if target.Kind() != value.KindObject {
		return vm.allocArray(nil), nil
	}
	obj := vm.heap.Get(target.ObjectID()).(value.Object)
	var out []value.Value
	for _, k := range obj.OwnKeys() {
		if k.Kind() != value.KeyString {
			continue
		}
		pv, ok := obj.GetOwnProperty(k)
		if !ok || !pv.Descriptor.Has(value.Enumerable) {
			continue
		}
		out = append(out, value.String(k.Symbol()))
	}
	return vm.allocArray(out), nil
}

func (v *VM) installArrayBuiltins() {
	proto := v.heap.Get(v.arrayProtoID).(value.Object)
	_ = proto.SetProperty(v.internKey("push"), nativeFn(v, "push", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		arr, ok := vm.heap.Get(this.ObjectID()).(*value.Array)
		if !ok {
			return value.Undefined, vm.throwTypeError("Array.prototype.push called on non-array")
		}
		for _, a := range args {
			_ = arr.SetProperty(value.IndexKey(arr.Length()), a)
		}
		return value.Number(float64(arr.Length())), nil
	}))
	_ = proto.SetProperty(v.internKey("pop"), nativeFn(v, "pop", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		arr, ok := vm.heap.Get(this.ObjectID()).(*value.Array)
		if !ok || arr.Length() == 0 {
			return value.Undefined, nil
		}
		last := arr.Length() - 1
		pv, _ := arr.GetOwnProperty(value.IndexKey(last))
		arr.DeleteProperty(value.IndexKey(last))
		_ = arr.SetProperty(v.wk.lengthKey, value.Number(float64(last)))
		return pv.Data, nil
	}))
	_ = proto.SetProperty(v.internKey("forEach"), nativeFn(v, "forEach", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		arr, ok := vm.heap.Get(this.ObjectID()).(*value.Array)
		if !ok {
			return value.Undefined, nil
		}
		cb := arg(args, 0)
		for i := 0; i < arr.Length(); i++ {
			el, _ := arr.GetOwnProperty(value.IndexKey(uint32(i)))
			if _, thrown := vm.callCallable(cb, value.Undefined, []value.Value{el.Data, value.Number(float64(i)), this}); thrown != nil {
				return value.Undefined, thrown
			}
		}
		return value.Undefined, nil
	}))
	ctor := nativeFn(v, "Array", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		return vm.allocArray(append([]value.Value(nil), args...)), nil
	})
	ctorObj := v.heap.Get(ctor.ObjectID()).(value.Object)
	_ = ctorObj.SetProperty(v.wk.prototypeKey, v.arrayProtoValue())
	v.defineGlobal("Array", ctor)
}

func (v *VM) installErrorBuiltins() {
	proto := v.heap.Get(v.errorProtoID).(value.Object)
	_ = proto.SetProperty(v.wk.nameKey, value.String(v.in.Intern("Error")))
	_ = proto.SetProperty(v.wk.messageKey, value.String(v.in.Intern("")))
	_ = proto.SetProperty(v.internKey("toString"), nativeFn(v, "toString", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		return value.String(vm.in.Intern(InspectError(vm.in, vm.heap, this))), nil
	}))

	for _, name := range []string{"Error", "TypeError", "RangeError", "SyntaxError", "ReferenceError"} {
		name := name
		ctor := nativeFn(v, name, nil)
		nf := v.heap.Get(ctor.ObjectID()).(*NativeFunc)
		nf.construct = func(vm *VM, newTarget value.Value, args []value.Value) (value.Value, *value.Value) {
			msg := ""
			if len(args) > 0 {
				msg = vm.toStringGo(args[0])
			}
			errVal := vm.newError(name, msg)
			return *errVal, nil
		}
		_ = nf.SetProperty(v.wk.prototypeKey, v.errorProtoValue())
		v.defineGlobal(name, ctor)
	}
}

func (v *VM) installGeneratorBuiltins() {
	proto := v.heap.Get(v.generatorProtoID).(value.Object)
	_ = proto.SetProperty(v.internKey("next"), nativeFn(v, "next", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		gen, ok := vm.heap.Get(this.ObjectID()).(*GeneratorIterator)
		if !ok {
			return value.Undefined, vm.throwTypeError("not a generator")
		}
		return gen.next(resumeMsg{kind: resumeNext, val: arg(args, 0)})
	}))
	_ = proto.SetProperty(v.internKey("throw"), nativeFn(v, "throw", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		gen, ok := vm.heap.Get(this.ObjectID()).(*GeneratorIterator)
		if !ok {
			return value.Undefined, vm.throwTypeError("not a generator")
		}
		return gen.next(resumeMsg{kind: resumeThrow, val: arg(args, 0)})
	}))
	_ = proto.SetProperty(v.internKey("return"), nativeFn(v, "return", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		gen, ok := vm.heap.Get(this.ObjectID()).(*GeneratorIterator)
		if !ok {
			return value.Undefined, vm.throwTypeError("not a generator")
		}
		return gen.next(resumeMsg{kind: resumeReturn, val: arg(args, 0)})
	}))
}

func (v *VM) installConsole() {
	console := v.allocPlainObject(v.objectProtoValue())
	consoleObj := v.heap.Get(console.ObjectID()).(value.Object)
	logFn := nativeFn(v, "log", func(vm *VM, this value.Value, args []value.Value) (value.Value, *value.Value) {
		return value.Undefined, nil
	})
	_ = consoleObj.SetProperty(v.internKey("log"), logFn)
	v.defineGlobal("console", console)
}

// toStringGo is the VM's pragmatic ToString used by built-ins that need a
// Go string out of a Value (property keys, Error messages): strings and
// numbers convert directly; objects fall back to "[object Object]" rather
// than invoking a user-defined toString, since none of the wired-in
// built-ins need that generality.
func (v *VM) toStringGo(val value.Value) string {
	switch val.Kind() {
	case value.KindString:
		return v.in.Resolve(val.StringSymbol())
	case value.KindNumber:
		return formatNumber(val.Number())
	case value.KindBoolean:
		if val.Bool() {
			return "true"
		}
		return "false"
	case value.KindUndefined:
		return "undefined"
	case value.KindNull:
		return "null"
	default:
		return "[object Object]"
	}
}
