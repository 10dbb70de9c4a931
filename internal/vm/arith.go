package vm

import (
	"math"

	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/value"
)

// binaryOp executes one arithmetic/bitwise/comparison opcode's semantics
// against the already-popped lhs/rhs operands (§4.3's coercion rules): Add
// is the one operator that branches on operand kind (string concatenation
// vs. numeric addition) before falling back to ToNumber for everything
// else, matching ECMA-262's abstract addition algorithm closely enough for
// this engine's documented subset (see internal/value/value.go's ToNumber
// doc comment on what coercion this implementation does and doesn't do).
func (v *VM) binaryOp(op bytecode.Opcode, lhs, rhs value.Value) value.Value {
	switch op {
	case bytecode.Add:
		if lhs.Kind() == value.KindString || rhs.Kind() == value.KindString {
			return value.String(v.in.Intern(v.toPrimitiveString(lhs) + v.toPrimitiveString(rhs)))
		}
		return value.Number(lhs.ToNumber(v.in) + rhs.ToNumber(v.in))
	case bytecode.Sub:
		return value.Number(lhs.ToNumber(v.in) - rhs.ToNumber(v.in))
	case bytecode.Mul:
		return value.Number(lhs.ToNumber(v.in) * rhs.ToNumber(v.in))
	case bytecode.Div:
		return value.Number(lhs.ToNumber(v.in) / rhs.ToNumber(v.in))
	case bytecode.Rem:
		return value.Number(math.Mod(lhs.ToNumber(v.in), rhs.ToNumber(v.in)))
	case bytecode.Pow:
		return value.Number(math.Pow(lhs.ToNumber(v.in), rhs.ToNumber(v.in)))
	case bytecode.BitAnd:
		return value.Number(float64(toInt32(lhs.ToNumber(v.in)) & toInt32(rhs.ToNumber(v.in))))
	case bytecode.BitOr:
		return value.Number(float64(toInt32(lhs.ToNumber(v.in)) | toInt32(rhs.ToNumber(v.in))))
	case bytecode.BitXor:
		return value.Number(float64(toInt32(lhs.ToNumber(v.in)) ^ toInt32(rhs.ToNumber(v.in))))
	case bytecode.Shl:
		return value.Number(float64(toInt32(lhs.ToNumber(v.in)) << (toUint32(rhs.ToNumber(v.in)) & 31)))
	case bytecode.Shr:
		return value.Number(float64(toInt32(lhs.ToNumber(v.in)) >> (toUint32(rhs.ToNumber(v.in)) & 31)))
	case bytecode.UShr:
		return value.Number(float64(toUint32(lhs.ToNumber(v.in)) >> (toUint32(rhs.ToNumber(v.in)) & 31)))
	case bytecode.Lt, bytecode.Le, bytecode.Gt, bytecode.Ge:
		return v.compareOp(op, lhs, rhs)
	case bytecode.Eq:
		return value.Bool(lhs.LooseEquals(rhs, v.in))
	case bytecode.Ne:
		return value.Bool(!lhs.LooseEquals(rhs, v.in))
	case bytecode.StrictEq:
		return value.Bool(lhs.StrictEquals(rhs))
	case bytecode.StrictNe:
		return value.Bool(!lhs.StrictEquals(rhs))
	}
	return value.Undefined
}

// compareOp implements the four relational operators. Per §4.3, string
// operands compare lexicographically; anything else coerces through
// ToNumber (a NaN operand makes every relational comparison false).
func (v *VM) compareOp(op bytecode.Opcode, lhs, rhs value.Value) value.Value {
	if lhs.Kind() == value.KindString && rhs.Kind() == value.KindString {
		l, r := v.in.Resolve(lhs.StringSymbol()), v.in.Resolve(rhs.StringSymbol())
		switch op {
		case bytecode.Lt:
			return value.Bool(l < r)
		case bytecode.Le:
			return value.Bool(l <= r)
		case bytecode.Gt:
			return value.Bool(l > r)
		default:
			return value.Bool(l >= r)
		}
	}
	l, r := lhs.ToNumber(v.in), rhs.ToNumber(v.in)
	if math.IsNaN(l) || math.IsNaN(r) {
		return value.Bool(false)
	}
	switch op {
	case bytecode.Lt:
		return value.Bool(l < r)
	case bytecode.Le:
		return value.Bool(l <= r)
	case bytecode.Gt:
		return value.Bool(l > r)
	default:
		return value.Bool(l >= r)
	}
}

func (v *VM) unaryNeg(val value.Value) value.Value { return value.Number(-val.ToNumber(v.in)) }
func (v *VM) unaryNot(val value.Value) value.Value { return value.Bool(!val.ToBoolean(v.in)) }
func (v *VM) unaryBitNot(val value.Value) value.Value {
	return value.Number(float64(^toInt32(val.ToNumber(v.in))))
}

func toInt32(n float64) int32 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return int32(uint32(int64(n)))
}

func toUint32(n float64) uint32 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return uint32(int64(n))
}

// toPrimitiveString is Add's string-coercion path: strings resolve
// directly, everything else goes through the same pragmatic ToString used
// by Object.defineProperty's key coercion (see globals.go's toStringGo doc
// comment on the scope of this simplification).
func (v *VM) toPrimitiveString(val value.Value) string {
	return v.toStringGo(val)
}
