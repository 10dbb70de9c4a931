// Package value implements the tagged Value representation and the Object
// capability set every heap-allocated JS value implements (§3, §4.3).
package value

import (
	"math"
	"strconv"

	"github.com/dashlang/dash/internal/heap"
	"github.com/dashlang/dash/internal/interner"
)

// Kind tags which variant a Value currently holds.
type Kind byte

const (
	KindUndefined Kind = iota
	KindNull
	KindNumber
	KindBoolean
	KindString
	KindSymbol
	KindObject
	// KindExternal marks a heap slot that aliases an outer captured local
	// (§3): the VM dereferences through one extra indirection (the shared
	// Cell) rather than treating it as an ordinary object reference.
	KindExternal
)

// Value is the fixed-size tagged union unifying primitives and heap
// references (§3). It is deliberately Copy: every field is a plain scalar,
// so passing a Value around never risks aliasing heap node storage
// directly — only ObjectId does that, and only through the owning Heap.
type Value struct {
	kind Kind
	num  float64
	sym  interner.Symbol
	obj  heap.ObjectId
}

// Undefined is the JS `undefined` value.
var Undefined = Value{kind: KindUndefined}

// Null is the JS `null` value.
var Null = Value{kind: KindNull}

// Number wraps an f64.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool wraps a boolean; true/false are encoded via num to avoid a second
// field purely for one bit.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBoolean, num: 1}
	}
	return Value{kind: KindBoolean, num: 0}
}

// String wraps an interned string symbol.
func String(sym interner.Symbol) Value { return Value{kind: KindString, sym: sym} }

// Sym wraps an interned symbol-typed value (the JS `Symbol` primitive, not
// to be confused with interner.Symbol's role as every string's handle).
func Sym(sym interner.Symbol) Value { return Value{kind: KindSymbol, sym: sym} }

// Object wraps a heap reference.
func Object(id heap.ObjectId) Value { return Value{kind: KindObject, obj: id} }

// External wraps a heap slot aliasing an outer captured local (§3).
func External(id heap.ObjectId) Value { return Value{kind: KindExternal, obj: id} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v is `undefined`.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// IsNull reports whether v is `null`.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNullish reports whether v is `null` or `undefined` (used by `??` and
// optional chaining).
func (v Value) IsNullish() bool { return v.kind == KindNull || v.kind == KindUndefined }

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// IsObject reports whether v holds a heap object reference.
func (v Value) IsObject() bool { return v.kind == KindObject }

// Number returns the numeric payload; only meaningful when Kind() ==
// KindNumber.
func (v Value) Number() float64 { return v.num }

// Bool returns the boolean payload; only meaningful when Kind() ==
// KindBoolean.
func (v Value) Bool() bool { return v.num != 0 }

// StringSymbol returns the interned symbol backing a string or symbol
// value.
func (v Value) StringSymbol() interner.Symbol { return v.sym }

// ObjectID returns the heap reference backing an object or external value.
func (v Value) ObjectID() heap.ObjectId { return v.obj }

// TypeOf implements the JS `typeof` operator's fixed mapping (§4.3). It
// requires a Heap to resolve an object's own TypeOf (functions report
// "function", everything else "object").
func (v Value) TypeOf(h *heap.Heap) string {
	switch v.kind {
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindUndefined:
		return "undefined"
	case KindNull:
		// Famously not "null" — ECMAScript's typeof null === "object".
		return "object"
	case KindObject, KindExternal:
		obj := h.Get(v.obj).(Object)
		if obj.TypeOf() == "function" {
			return "function"
		}
		return "object"
	default:
		return "object"
	}
}

// ToBoolean implements JS's ToBoolean abstract operation. NaN is falsy
// along with 0, "", null, and undefined; every object reference is truthy.
func (v Value) ToBoolean(in *interner.Interner) bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindBoolean:
		return v.num != 0
	case KindString:
		return in.Resolve(v.sym) != ""
	default:
		return true
	}
}

// ToNumber implements a pragmatic subset of JS's ToNumber: numbers pass
// through, booleans become 0/1, null becomes 0, undefined becomes NaN,
// strings are parsed (empty/whitespace-only parses as 0, unparsable as
// NaN), objects are not coerced here (the VM's ToPrimitive step handles
// valueOf/toString before calling ToNumber on the result).
func (v Value) ToNumber(in *interner.Interner) float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBoolean:
		return v.num
	case KindNull:
		return 0
	case KindUndefined:
		return math.NaN()
	case KindString:
		s := in.Resolve(v.sym)
		trimmed := trimJSWhitespace(s)
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func trimJSWhitespace(s string) string {
	start, end := 0, len(s)
	for start < end && isJSSpace(s[start]) {
		start++
	}
	for end > start && isJSSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isJSSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// StrictEquals implements the `===` operator (§8's E1/E5 scenarios rely on
// numeric strict-equality, and the compiler's `switch` desugaring always
// uses StrictEq per §4.5). Two values are strictly equal only when their
// Kind matches and, for non-reference kinds, their payload matches; object
// references compare by identity.
func (v Value) StrictEquals(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindUndefined, KindNull:
		return true
	case KindNumber:
		return v.num == other.num // NaN !== NaN falls out of IEEE 754 comparison
	case KindBoolean:
		return v.num == other.num
	case KindString, KindSymbol:
		return v.sym == other.sym
	case KindObject, KindExternal:
		return v.obj == other.obj
	default:
		return false
	}
}

// LooseEquals implements a pragmatic `==`: strict-equal values are
// loose-equal; null and undefined are loose-equal to each other and to
// nothing else; number/string/boolean pairs coerce to number before
// comparing, matching the common case of ECMAScript's Abstract Equality
// Comparison (the exhaustive object-to-primitive coercion ladder is not
// reproduced here, consistent with spec.md's note that specific built-ins'
// bodies are assumed, not specified).
func (v Value) LooseEquals(other Value, in *interner.Interner) bool {
	if v.StrictEquals(other) {
		return true
	}
	if v.IsNullish() && other.IsNullish() {
		return true
	}
	if v.IsNullish() || other.IsNullish() {
		return false
	}
	coercible := func(k Kind) bool { return k == KindNumber || k == KindString || k == KindBoolean }
	if coercible(v.kind) && coercible(other.kind) && !(v.kind == KindString && other.kind == KindString) {
		return v.ToNumber(in) == other.ToNumber(in)
	}
	return false
}
