// Package bytecode defines the instruction set, the per-function constant
// pool, and the on-disk serialization format shared by the compiler
// (internal/compiler) and the dispatch loop (internal/vm).
//
// Opcodes are a single byte. Per §4.4 of the engine's design, opcodes are
// stable across versions: the byte value assigned to an opcode here is part
// of the cross-version bytecode contract and must never be reassigned, only
// appended to.
package bytecode

// Opcode identifies a single bytecode instruction. The mnemonic comment
// above each constant documents its operand encoding; most opcodes carry
// either no operand, a narrow (1-byte) operand, or a wide (2-byte,
// little-endian) operand, chosen at emission time by Builder.EmitOperand.
type Opcode byte

const (
	// Arithmetic. Pop rhs, pop lhs, push lhs OP rhs.
	Add Opcode = iota
	Sub
	Mul
	Div
	Rem
	Pow
	BitAnd
	BitOr
	BitXor
	Shl
	Shr
	UShr
	Neg
	Not
	BitNot

	// Comparisons. Pop rhs, pop lhs, push bool.
	Lt
	Le
	Gt
	Ge
	Eq
	Ne
	StrictEq
	StrictNe

	// Stack manipulation.
	Pop
	Dup
	RevStack // operand: narrow/wide n — reverse the top n stack slots in place

	// Loads / stores. LdLocal/StoreLocal operand is a local slot index.
	// LdGlobal/StoreGlobal operand is a constant-pool index of an
	// identifier. LdLocalExt/StoreLocalExt operand is an index into the
	// current frame's externals slice.
	LdLocal
	LdGlobal
	LdLocalExt
	StoreLocalExt
	Constant // operand: constant-pool index
	StoreLocal
	StoreGlobal

	// Control flow. Jump operands are signed, relative to the byte
	// immediately following the operand. P/NP suffixes mean "pop"/"not
	// pop" the condition value before taking (or falling through) the
	// branch.
	Jmp
	JmpFalseP
	JmpFalseNP
	JmpTrueP
	JmpTrueNP
	JmpNullishP
	JmpNullishNP

	// Calls.
	Call // operand: one CallMeta byte (argc in bits 2..7), then a u16 argc only when argc >= WideArgc
	Ret

	// Objects.
	ArrayLit // operand: element count n
	ObjLit   // operand: entry count n; each entry is a (kind, key, value) stack triplet, kind distinguishing data/getter/setter/method
	StaticPropAccess
	DynamicPropAccess
	StaticPropSet
	DynamicPropSet
	This
	Super
	ObjIn
	InstanceOf

	// Exceptions. Try operand: catch_off:i16 fin_off:i16.
	Try
	TryEnd
	Throw

	// Modules.
	ImportStatic // operand: kind:u8 cp_path:u16
	ImportDyn
	ExportDefault
	ExportNamed

	// Suspension.
	Yield
	Await

	// Debugger / intrinsics.
	Debugger
	IntrinsicOp // operand: sub:u8

	// Wide is not itself emitted by codegen directly; Builder.EmitOperand
	// prefixes the following instruction with Wide when that instruction's
	// operand does not fit in a single byte, doubling the operand width to
	// 16 bits little-endian. This keeps every other opcode's encoding a
	// uniform "opcode byte [+ narrow-or-wide operand]" shape instead of
	// needing a _Long sibling opcode per instruction.
	Wide

	// opcodeCount is a sentinel, not a real opcode; it bounds validation
	// tables sized by opcode value.
	opcodeCount
)

// jumpOpcodes is the set of opcodes whose operand is a signed relative
// offset, consulted by IsJump.
var jumpOpcodes = map[Opcode]bool{
	Jmp:             true,
	JmpFalseP:       true,
	JmpFalseNP:      true,
	JmpTrueP:        true,
	JmpTrueNP:       true,
	JmpNullishP:     true,
	JmpNullishNP:    true,
}

// IsJump reports whether op's operand is a relative jump offset.
func IsJump(op Opcode) bool { return jumpOpcodes[op] }

// String renders the opcode's mnemonic for disassembly (`dash dump`)
// and panic/assertion messages. Unknown values fall back to a numeric form
// so a corrupt buffer never panics while being printed.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "Opcode(" + itoa(int(op)) + ")"
}

var opcodeNames = [...]string{
	Add: "Add", Sub: "Sub", Mul: "Mul", Div: "Div", Rem: "Rem", Pow: "Pow",
	BitAnd: "BitAnd", BitOr: "BitOr", BitXor: "BitXor", Shl: "Shl", Shr: "Shr", UShr: "UShr",
	Neg: "Neg", Not: "Not", BitNot: "BitNot",
	Lt: "Lt", Le: "Le", Gt: "Gt", Ge: "Ge", Eq: "Eq", Ne: "Ne", StrictEq: "StrictEq", StrictNe: "StrictNe",
	Pop: "Pop", Dup: "Dup", RevStack: "RevStack",
	LdLocal: "LdLocal", LdGlobal: "LdGlobal", LdLocalExt: "LdLocalExt", StoreLocalExt: "StoreLocalExt",
	Constant: "Constant", StoreLocal: "StoreLocal", StoreGlobal: "StoreGlobal",
	Jmp: "Jmp", JmpFalseP: "JmpFalseP", JmpFalseNP: "JmpFalseNP",
	JmpTrueP: "JmpTrueP", JmpTrueNP: "JmpTrueNP", JmpNullishP: "JmpNullishP", JmpNullishNP: "JmpNullishNP",
	Call: "Call", Ret: "Ret",
	ArrayLit: "ArrayLit", ObjLit: "ObjLit", StaticPropAccess: "StaticPropAccess", DynamicPropAccess: "DynamicPropAccess",
	StaticPropSet: "StaticPropSet", DynamicPropSet: "DynamicPropSet", This: "This", Super: "Super",
	ObjIn: "ObjIn", InstanceOf: "InstanceOf",
	Try: "Try", TryEnd: "TryEnd", Throw: "Throw",
	ImportStatic: "ImportStatic", ImportDyn: "ImportDyn", ExportDefault: "ExportDefault", ExportNamed: "ExportNamed",
	Yield: "Yield", Await: "Await",
	Debugger: "Debugger", IntrinsicOp: "IntrinsicOp",
	Wide: "Wide",
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// CallMeta packs the Call opcode's metadata byte: bit 0 is is_constructor,
// bit 1 is is_object_method, bits 2..7 are argc when argc < 63 (the narrow
// form); when argc >= 63 the argc bits hold the WideArgc sentinel and the
// true count follows the metadata byte as a u16 operand.
type CallMeta byte

const (
	callMetaConstructor CallMeta = 1 << 0
	callMetaObjectMethod CallMeta = 1 << 1
	callMetaArgcShift             = 2
	callMetaArgcMask              = 0x3f
	// WideArgc is the sentinel stored in the argc bits when argc >= 63 and
	// the true count is carried as a separate u16 operand.
	WideArgc = 63
)

// NewCallMeta packs a metadata byte for a Call instruction.
func NewCallMeta(isConstructor, isObjectMethod bool, argc int) CallMeta {
	var m CallMeta
	if isConstructor {
		m |= callMetaConstructor
	}
	if isObjectMethod {
		m |= callMetaObjectMethod
	}
	n := argc
	if n >= WideArgc {
		n = WideArgc
	}
	m |= CallMeta(n<<callMetaArgcShift) & (callMetaArgcMask << callMetaArgcShift)
	return m
}

// IsConstructor reports whether the call is a `new` expression.
func (m CallMeta) IsConstructor() bool { return m&callMetaConstructor != 0 }

// IsObjectMethod reports whether the callee was resolved as receiver.method().
func (m CallMeta) IsObjectMethod() bool { return m&callMetaObjectMethod != 0 }

// Argc returns the narrow argument count, or WideArgc if the true count was
// too large to fit and must be read from the wide u16 operand that follows.
func (m CallMeta) Argc() int { return int((m >> callMetaArgcShift) & callMetaArgcMask) }
