package vm

import (
	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/value"
)

// run is the fetch-decode-execute loop (§3, §4.4): one Reader per frame,
// one shared operand stack across every active frame. It returns either
// the frame's Ret value or a thrown value that neither this frame nor any
// of its nested try blocks could handle, for the caller (invoke, or a
// suspended generator's run goroutine) to propagate further.
//
// Grounded on internal/engine/interpreter/interpreter.go's callEngine.
// callNativeFunc: a single big switch over an instruction kind, operating
// on a stack shared across recursive calls rather than per-frame stacks.
func (v *VM) run(f *Frame) (value.Value, *value.Value) {
	for {
		op, wide := f.reader.FetchOp()

		switch {
		case op <= bytecode.UShr:
			rhs := v.popStack()
			lhs := v.popStack()
			if err := v.pushStack(v.binaryOp(op, lhs, rhs)); err != nil {
				if !v.dispatchThrow(f, *v.asThrow(err)) {
					return value.Undefined, v.asThrow(err)
				}
			}
			continue
		case op >= bytecode.Lt && op <= bytecode.StrictNe:
			rhs := v.popStack()
			lhs := v.popStack()
			_ = v.pushStack(v.binaryOp(op, lhs, rhs))
			continue
		}

		switch op {
		case bytecode.Neg:
			_ = v.pushStack(v.unaryNeg(v.popStack()))
		case bytecode.Not:
			_ = v.pushStack(v.unaryNot(v.popStack()))
		case bytecode.BitNot:
			_ = v.pushStack(v.unaryBitNot(v.popStack()))

		case bytecode.Pop:
			v.popStack()
		case bytecode.Dup:
			_ = v.pushStack(v.peekStack())
		case bytecode.RevStack:
			n := f.reader.Operand(wide)
			top := v.stack[len(v.stack)-n:]
			for i, j := 0, len(top)-1; i < j; i, j = i+1, j-1 {
				top[i], top[j] = top[j], top[i]
			}

		case bytecode.LdLocal:
			n := f.reader.Operand(wide)
			_ = v.pushStack(f.loadLocal(n))
		case bytecode.LdGlobal:
			idx := f.reader.Operand(wide)
			key := v.identifierKey(f, idx)
			_ = v.pushStack(v.lookupGlobal(key))
		case bytecode.LdLocalExt:
			n := f.reader.Operand(wide)
			_ = v.pushStack(f.loadExternal(n))
		case bytecode.StoreLocalExt:
			n := f.reader.Operand(wide)
			f.storeExternal(n, v.popStack())
		case bytecode.Constant:
			idx := f.reader.Operand(wide)
			_ = v.pushStack(v.constantValue(f, uint16(idx)))
		case bytecode.StoreLocal:
			n := f.reader.Operand(wide)
			f.storeLocal(n, v.popStack())
		case bytecode.StoreGlobal:
			idx := f.reader.Operand(wide)
			key := v.identifierKey(f, idx)
			v.storeGlobal(key, v.popStack())

		case bytecode.Jmp:
			off := f.reader.JumpOffset()
			f.reader.Jump(off)
		case bytecode.JmpFalseP:
			off := f.reader.JumpOffset()
			if !v.popStack().ToBoolean(v.in) {
				f.reader.Jump(off)
			}
		case bytecode.JmpFalseNP:
			off := f.reader.JumpOffset()
			if !v.peekStack().ToBoolean(v.in) {
				f.reader.Jump(off)
			}
		case bytecode.JmpTrueP:
			off := f.reader.JumpOffset()
			if v.popStack().ToBoolean(v.in) {
				f.reader.Jump(off)
			}
		case bytecode.JmpTrueNP:
			off := f.reader.JumpOffset()
			if v.peekStack().ToBoolean(v.in) {
				f.reader.Jump(off)
			}
		case bytecode.JmpNullishP:
			off := f.reader.JumpOffset()
			if v.popStack().IsNullish() {
				f.reader.Jump(off)
			}
		case bytecode.JmpNullishNP:
			off := f.reader.JumpOffset()
			if v.peekStack().IsNullish() {
				f.reader.Jump(off)
			}

		case bytecode.Call:
			if thrown := v.execCall(f); thrown != nil {
				if !v.dispatchThrow(f, *thrown) {
					return value.Undefined, thrown
				}
			}
		case bytecode.Ret:
			return v.popStack(), nil

		case bytecode.ArrayLit:
			n := f.reader.Operand(wide)
			elems := v.popN(n)
			_ = v.pushStack(v.allocArray(elems))
		case bytecode.ObjLit:
			n := f.reader.Operand(wide)
			if thrown := v.execObjLit(n); thrown != nil {
				if !v.dispatchThrow(f, *thrown) {
					return value.Undefined, thrown
				}
			}
		case bytecode.StaticPropAccess:
			idx := f.reader.Operand(wide)
			key := v.identifierKey(f, idx)
			obj := v.popStack()
			pv, ok := value.GetProperty(v.heap, obj, key)
			if !ok {
				_ = v.pushStack(value.Undefined)
			} else if thrown := v.pushPropertyResult(obj, pv); thrown != nil {
				if !v.dispatchThrow(f, *thrown) {
					return value.Undefined, thrown
				}
			}
		case bytecode.DynamicPropAccess:
			keyVal := v.popStack()
			obj := v.popStack()
			key := v.toPropertyKey(keyVal)
			pv, ok := value.GetProperty(v.heap, obj, key)
			if !ok {
				_ = v.pushStack(value.Undefined)
			} else if thrown := v.pushPropertyResult(obj, pv); thrown != nil {
				if !v.dispatchThrow(f, *thrown) {
					return value.Undefined, thrown
				}
			}
		case bytecode.StaticPropSet:
			idx := f.reader.Operand(wide)
			key := v.identifierKey(f, idx)
			obj := v.popStack()
			val := v.popStack()
			if thrown := v.setPropertyOrThrow(obj, key, val); thrown != nil {
				if !v.dispatchThrow(f, *thrown) {
					return value.Undefined, thrown
				}
			}
		case bytecode.DynamicPropSet:
			keyVal := v.popStack()
			obj := v.popStack()
			val := v.popStack()
			key := v.toPropertyKey(keyVal)
			if thrown := v.setPropertyOrThrow(obj, key, val); thrown != nil {
				if !v.dispatchThrow(f, *thrown) {
					return value.Undefined, thrown
				}
			}

		case bytecode.This:
			_ = v.pushStack(f.this)
		case bytecode.Super:
			_ = v.pushStack(v.superPrototype(f))
		case bytecode.ObjIn:
			obj := v.popStack()
			key := v.popStack()
			_ = v.pushStack(value.Bool(value.HasProperty(v.heap, obj, v.toPropertyKey(key))))
		case bytecode.InstanceOf:
			ctor := v.popStack()
			target := v.popStack()
			if ctor.Kind() != value.KindObject {
				thrown := v.throwTypeError("right-hand side of 'instanceof' is not callable")
				if !v.dispatchThrow(f, *thrown) {
					return value.Undefined, thrown
				}
				continue
			}
			_ = v.pushStack(value.Bool(value.InstanceOf(v.heap, target, ctor, v.wk.prototypeKey)))

		case bytecode.Try:
			catchOff, finOff := f.reader.TryOperand()
			base := f.reader.Pos()
			tb := tryBlock{catchIP: -1, finIP: -1, stackSize: len(v.stack)}
			if catchOff != 0 {
				tb.catchIP = base + catchOff
			}
			if finOff != 0 {
				tb.finIP = base + finOff
			}
			f.tryBlocks = append(f.tryBlocks, tb)
		case bytecode.TryEnd:
			if len(f.tryBlocks) > 0 {
				f.tryBlocks = f.tryBlocks[:len(f.tryBlocks)-1]
			}
		case bytecode.Throw:
			thrown := v.popStack()
			if !v.dispatchThrow(f, thrown) {
				return value.Undefined, &thrown
			}

		case bytecode.ImportStatic:
			_, _ = f.reader.ImportOperand()
			_ = v.pushStack(value.Undefined)
		case bytecode.ImportDyn:
			v.popStack()
			promiseVal, p := v.allocPromise()
			p.settle(promiseRejected, *v.throwTypeError("dynamic import is not supported by this runtime"))
			_ = v.pushStack(promiseVal)
		case bytecode.ExportDefault:
			v.setExport("default", v.popStack())
		case bytecode.ExportNamed:
			idx := f.reader.Operand(wide)
			name := v.in.Resolve(f.fn.Pool.Get(uint16(idx)).Str)
			v.setExport(name, v.popStack())

		case bytecode.Yield, bytecode.Await:
			val := v.popStack()
			if f.gen == nil {
				thrown := v.throwTypeError("yield/await used outside a suspendable function")
				if !v.dispatchThrow(f, *thrown) {
					return value.Undefined, thrown
				}
				continue
			}
			resumeVal, thrownVal, isReturn := f.gen.suspend(val)
			if thrownVal != nil {
				if !v.dispatchThrow(f, *thrownVal) {
					return value.Undefined, thrownVal
				}
				continue
			}
			if isReturn {
				return resumeVal, nil
			}
			_ = v.pushStack(resumeVal)

		case bytecode.Debugger:
			// No debugger to trap into; a no-op like the teacher's
			// interpreter treats an unreachable host trap.

		case bytecode.IntrinsicOp:
			sub := bytecode.Intrinsic(f.reader.Byte())
			if thrown := v.execIntrinsic(f, sub); thrown != nil {
				if !v.dispatchThrow(f, *thrown) {
					return value.Undefined, thrown
				}
			}

		default:
			// Unreachable for well-formed bytecode; Wide is consumed
			// transparently by FetchOp and never observed here.
		}

		if f.reader.Done() {
			return value.Undefined, nil
		}
	}
}

// identifierKey resolves a constant-pool identifier index (LdGlobal,
// StoreGlobal, StaticPropAccess, StaticPropSet, ExportNamed all share this
// encoding) into a PropertyKey, applying the same index-normalization
// FromJSString does for any other string-derived key.
func (v *VM) identifierKey(f *Frame, idx int) value.PropertyKey {
	entry := f.fn.Pool.Get(uint16(idx))
	return value.StringKeyFromJS(v.in, entry.Str)
}

// constantValue realizes a Constant opcode's pool entry into a runtime
// Value; only ConstFunction requires VM involvement (turning the compiled
// record into a live Closure per makeClosure's doc comment), every other
// kind is a direct payload copy.
func (v *VM) constantValue(f *Frame, idx uint16) value.Value {
	entry := f.fn.Pool.Get(idx)
	switch entry.Kind {
	case bytecode.ConstNumber:
		return value.Number(entry.Number)
	case bytecode.ConstString:
		return value.String(entry.Str)
	case bytecode.ConstBoolean:
		return value.Bool(entry.Boolean)
	case bytecode.ConstNull:
		return value.Null
	case bytecode.ConstUndefined:
		return value.Undefined
	case bytecode.ConstFunction:
		closure := v.makeClosure(f, entry.Func)
		id := v.heap.Alloc(closure, 2, v.traceRoots)
		return value.Object(id)
	case bytecode.ConstRegex:
		return v.allocRegexLiteral(entry)
	default:
		return value.Undefined
	}
}

// allocRegexLiteral builds a minimal object carrying a regex literal's
// source/flags descriptor (constant.go's doc comment: "the regex engine
// itself is out of scope, so the pool only carries the literal's
// descriptor") — enough for code that reads `.source`/`.flags` without
// this engine implementing pattern matching.
func (v *VM) allocRegexLiteral(entry bytecode.ConstEntry) value.Value {
	obj := v.allocPlainObject(v.objectProtoValue())
	backing := v.heap.Get(obj.ObjectID()).(value.Object)
	_ = backing.SetProperty(v.internKey("source"), value.String(entry.RegexSource))
	_ = backing.SetProperty(v.internKey("flags"), value.String(entry.RegexFlags))
	return obj
}

// toPropertyKey is the VM's own-evaluated ToPropertyKey step (§4.3): a
// string/symbol key is used directly (with Index normalization applied by
// FromJSString), anything else coerces through toStringGo.
func (v *VM) toPropertyKey(val value.Value) value.PropertyKey {
	switch val.Kind() {
	case value.KindString:
		return value.StringKeyFromJS(v.in, val.StringSymbol())
	case value.KindSymbol:
		return value.SymbolKey(val.StringSymbol())
	default:
		return value.FromJSString(v.toStringGo(val), v.in.Intern)
	}
}

// pushPropertyResult pushes pv's value, invoking its getter against obj
// when pv is an accessor property (§4.3's "property access transparently
// invokes an accessor's getter").
func (v *VM) pushPropertyResult(obj value.Value, pv value.PropertyValue) *value.Value {
	if !pv.IsAccessor {
		_ = v.pushStack(pv.Data)
		return nil
	}
	if pv.Accessor.Get.Kind() != value.KindObject {
		_ = v.pushStack(value.Undefined)
		return nil
	}
	result, thrown := v.callCallable(pv.Accessor.Get, obj, nil)
	if thrown != nil {
		return thrown
	}
	_ = v.pushStack(result)
	return nil
}

// setPropertyOrThrow implements a Store*PropSet opcode's write, invoking an
// inherited accessor's setter when present and otherwise writing an own
// data property through the object's SetProperty (§4.3).
func (v *VM) setPropertyOrThrow(obj value.Value, key value.PropertyKey, val value.Value) *value.Value {
	if obj.Kind() != value.KindObject && obj.Kind() != value.KindExternal {
		return v.throwTypeError("cannot set property of non-object")
	}
	if pv, ok := value.GetProperty(v.heap, obj, key); ok && pv.IsAccessor {
		if pv.Accessor.Set.Kind() == value.KindObject {
			_, thrown := v.callCallable(pv.Accessor.Set, obj, []value.Value{val})
			return thrown
		}
		return nil
	}
	backing := v.heap.Get(obj.ObjectID()).(value.Object)
	_ = backing.SetProperty(key, val)
	return nil
}

// superPrototype resolves `super` against the current frame's
// [[HomeObject]] (Frame's doc comment on homeObject): the object whose
// prototype backs `super.foo()` / `super(...)` lookups (§4.5).
func (v *VM) superPrototype(f *Frame) value.Value {
	if f.homeObject.Kind() != value.KindObject {
		return value.Undefined
	}
	return v.heap.Get(f.homeObject.ObjectID()).(value.Object).GetPrototype()
}

// dispatchThrow implements §4.7's unwind: walk f's try blocks from
// innermost outward, truncating the shared operand stack back to each
// block's entry depth as it's skipped or entered. A catch target gets the
// thrown value pushed (the compiler's catch prologue always starts with a
// StoreLocal-or-Pop consuming exactly one value, internal/compiler's
// codegen.go compileTry). A finally-only block (no catch clause) is
// entered with nothing pushed, since its body's bytecode never expects
// one — per compileTry's layout this also means an exception that reaches
// a catchless try/finally runs the finally block and then resumes normal
// execution rather than automatically re-raising past it, since no Try/
// TryEnd encoding marks "resume unwinding after this finally completes"
// (documented as a known simplification in DESIGN.md).
func (v *VM) dispatchThrow(f *Frame, thrown value.Value) bool {
	for len(f.tryBlocks) > 0 {
		tb := f.tryBlocks[len(f.tryBlocks)-1]
		f.tryBlocks = f.tryBlocks[:len(f.tryBlocks)-1]
		v.stack = v.stack[:tb.stackSize]
		if tb.catchIP >= 0 {
			_ = v.pushStack(thrown)
			f.reader.SetPos(tb.catchIP)
			return true
		}
		if tb.finIP >= 0 {
			f.reader.SetPos(tb.finIP)
			return true
		}
	}
	return false
}

// execObjLit applies ObjLit's n (kind, key, value) triplets to the object
// literal's already-pushed-and-left-underneath object (codegen.go's
// compileObjectLit), in original declaration order so later duplicate keys
// correctly override earlier ones.
func (v *VM) execObjLit(n int) *value.Value {
	triplets := v.popN(3 * n)
	obj := v.peekStack()
	backing := v.heap.Get(obj.ObjectID()).(value.Object)
	for i := 0; i < n; i++ {
		kindVal := triplets[3*i]
		keyVal := triplets[3*i+1]
		propVal := triplets[3*i+2]
		key := v.toPropertyKey(keyVal)
		switch propKind(kindVal.Number()) {
		case propGetter:
			existing, _ := backing.GetOwnProperty(key)
			set := value.Undefined
			if existing.IsAccessor {
				set = existing.Accessor.Set
			}
			if po, ok := backing.(*value.PlainObject); ok {
				po.DefineOwnProperty(key, value.AccessorProperty(propVal, set, value.DefaultDataDescriptor))
			} else {
				_ = backing.SetProperty(key, propVal)
			}
		case propSetter:
			existing, _ := backing.GetOwnProperty(key)
			get := value.Undefined
			if existing.IsAccessor {
				get = existing.Accessor.Get
			}
			if po, ok := backing.(*value.PlainObject); ok {
				po.DefineOwnProperty(key, value.AccessorProperty(get, propVal, value.DefaultDataDescriptor))
			} else {
				_ = backing.SetProperty(key, propVal)
			}
		default: // propData, propMethod
			_ = backing.SetProperty(key, propVal)
		}
	}
	return nil
}

// propKind mirrors ast.PropertyKind's numeric values, staged into the
// constant pool as a plain number by the compiler's propKindConst helper.
type propKind int

const (
	propData propKind = iota
	propGetter
	propSetter
	propSpread
	propMethod
)

// execCall implements the Call opcode (§4.6): decode the metadata byte and
// argument count, pop the callee (and receiver, for an object-method
// call) from beneath the popped arguments, and dispatch through Apply or
// Construct.
func (v *VM) execCall(f *Frame) *value.Value {
	meta := bytecode.CallMeta(f.reader.Byte())
	argc := f.reader.CallArgc(meta)
	args := v.popN(argc)

	var callee, this value.Value
	if meta.IsObjectMethod() {
		callee = v.popStack()
		this = v.popStack()
	} else {
		callee = v.popStack()
		this = value.Undefined
	}

	var result value.Value
	var thrown *value.Value
	if meta.IsConstructor() {
		result, thrown = v.constructCallable(callee, args)
	} else {
		result, thrown = v.callCallable(callee, this, args)
	}
	if thrown != nil {
		return thrown
	}
	_ = v.pushStack(result)
	return nil
}
