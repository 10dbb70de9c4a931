package bytecode

import "encoding/binary"

// Builder accumulates the instruction stream for a single function being
// compiled. internal/compiler owns one Builder per function scope; nested
// function expressions get their own Builder whose finished Function is
// embedded as a ConstFunction in the enclosing function's pool.
//
// Jump patching follows the teacher's "jump container" idiom
// (internal/engine/interpreter's lowerIR keeps a label->[]func(addr) map and
// replays it once the label's address is known): Builder.Label reserves a
// symbolic target, EmitJump emits a placeholder offset and, if the label is
// not yet placed, registers a patch callback; Builder.PlaceLabel resolves
// the address and fires every pending callback. Backward jumps (the label
// is already placed, e.g. a loop header) patch immediately at emission.
type Builder struct {
	pool *Pool
	code []byte

	nextLabel int
	addrOf    map[int]int           // label -> resolved byte address, once placed
	pending   map[int][]func(addr int)
}

// NewBuilder returns a Builder emitting into a fresh instruction stream
// backed by pool.
func NewBuilder(pool *Pool) *Builder {
	return &Builder{
		pool:    pool,
		addrOf:  make(map[int]int),
		pending: make(map[int][]func(addr int)),
	}
}

// Pool returns the builder's constant pool.
func (b *Builder) Pool() *Pool { return b.pool }

// Len returns the current length of the emitted instruction stream, i.e.
// the byte address the next emitted instruction will occupy.
func (b *Builder) Len() int { return len(b.code) }

// Emit appends a single zero-operand opcode.
func (b *Builder) Emit(op Opcode) {
	b.code = append(b.code, byte(op))
}

// EmitByte appends an opcode followed by a raw single-byte operand,
// bypassing narrow/wide selection. Used for opcodes whose operand is
// already byte-sized by definition, e.g. Call's metadata byte.
func (b *Builder) EmitByte(op Opcode, operand byte) {
	b.code = append(b.code, byte(op), operand)
}

// EmitOperand appends op followed by operand, encoded narrow (1 byte) when
// operand fits in 0..255, else prefixed with Wide and encoded as a 2-byte
// little-endian operand (§4.4).
func (b *Builder) EmitOperand(op Opcode, operand int) {
	if operand >= 0 && operand <= 0xff {
		b.code = append(b.code, byte(op), byte(operand))
		return
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(operand))
	b.code = append(b.code, byte(Wide), byte(op), buf[0], buf[1])
}

// Label allocates a new, unplaced symbolic jump target.
func (b *Builder) Label() int {
	id := b.nextLabel
	b.nextLabel++
	return id
}

// PlaceLabel marks label as resolved at the builder's current position and
// fires every jump site that was waiting on it.
func (b *Builder) PlaceLabel(label int) {
	addr := len(b.code)
	b.addrOf[label] = addr
	for _, patch := range b.pending[label] {
		patch(addr)
	}
	delete(b.pending, label)
}

// EmitJump appends a jump opcode targeting label. If label's address is
// already known (a backward jump, e.g. a loop header), the signed relative
// offset is computed and written immediately; otherwise a 16-bit
// placeholder is emitted and patched once PlaceLabel(label) runs.
//
// The offset is relative to the byte immediately following the two offset
// bytes, matching §4.4's jump semantics exactly.
func (b *Builder) EmitJump(op Opcode, label int) {
	b.code = append(b.code, byte(op))
	operandAt := len(b.code)
	b.code = append(b.code, 0, 0) // placeholder, patched below or by PlaceLabel

	if addr, ok := b.addrOf[label]; ok {
		b.patchJumpOffset(operandAt, addr)
		return
	}
	b.pending[label] = append(b.pending[label], func(addr int) {
		b.patchJumpOffset(operandAt, addr)
	})
}

func (b *Builder) patchJumpOffset(operandAt, targetAddr int) {
	rel := targetAddr - (operandAt + 2)
	binary.LittleEndian.PutUint16(b.code[operandAt:operandAt+2], uint16(int16(rel)))
}

// EmitCall appends a Call instruction: the metadata byte, then — only when
// argc does not fit in the metadata byte's 6 argc bits — a wide u16 argc
// operand (§4.4 "when argc>=63 a wide form supplies argc as u16").
func (b *Builder) EmitCall(argc int, isConstructor, isObjectMethod bool) {
	meta := NewCallMeta(isConstructor, isObjectMethod, argc)
	b.EmitByte(Call, byte(meta))
	if argc >= WideArgc {
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(argc))
		b.code = append(b.code, buf[0], buf[1])
	}
}

// EmitTry appends a Try instruction with placeholder catch/finally offsets,
// resolved the same way EmitJump resolves a single offset: immediately if
// the label is already placed, else deferred until PlaceLabel runs. Either
// label may be the sentinel NoLabel (-1), meaning "no catch"/"no finally",
// which is encoded as offset 0 and never patched.
func (b *Builder) EmitTry(catchLabel, finLabel int) {
	b.code = append(b.code, byte(Try))
	b.emitTryOffset(catchLabel)
	b.emitTryOffset(finLabel)
}

// NoLabel marks an absent catch or finally target in EmitTry.
const NoLabel = -1

func (b *Builder) emitTryOffset(label int) {
	operandAt := len(b.code)
	b.code = append(b.code, 0, 0)
	if label == NoLabel {
		return
	}
	if addr, ok := b.addrOf[label]; ok {
		b.patchJumpOffset(operandAt, addr)
		return
	}
	b.pending[label] = append(b.pending[label], func(addr int) {
		b.patchJumpOffset(operandAt, addr)
	})
}

// EmitImportStatic appends an ImportStatic instruction: kind byte, then the
// constant-pool path index as a fixed-width u16 (not narrow/wide-selected;
// paths are always looked up by pool index so there is no savings in a
// narrow form).
func (b *Builder) EmitImportStatic(kind byte, pathIdx uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], pathIdx)
	b.code = append(b.code, byte(ImportStatic), kind, buf[0], buf[1])
}

// Bytes returns the finished instruction stream. It must only be called
// after every label referenced by an EmitJump has been placed; the compiler
// enforces this by placing every label it allocates before returning from
// its visit of the enclosing statement.
func (b *Builder) Bytes() []byte { return b.code }

// Unresolved reports any label that was jumped to but never placed, which
// would otherwise silently leave a zero-offset jump in the stream. Callers
// use this as an assertion at the end of compiling a function body.
func (b *Builder) Unresolved() []int {
	var out []int
	for label := range b.pending {
		out = append(out, label)
	}
	return out
}
