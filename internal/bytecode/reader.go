package bytecode

import "encoding/binary"

// Reader is a cursor over a Function's instruction stream. The VM's
// dispatch loop owns one Reader per active frame (embedded in
// vm.frame.ip), advancing it as it fetches and decodes each instruction.
type Reader struct {
	code []byte
	pos  int
}

// NewReader returns a Reader positioned at the start of code.
func NewReader(code []byte) *Reader { return &Reader{code: code} }

// Pos returns the reader's current byte offset, used to save/restore an
// instruction pointer across generator suspension (§4.8).
func (r *Reader) Pos() int { return r.pos }

// SetPos resumes the reader at a previously saved offset.
func (r *Reader) SetPos(pos int) { r.pos = pos }

// Done reports whether the reader has consumed the whole instruction
// stream; reaching this without a Ret is a compiler invariant violation.
func (r *Reader) Done() bool { return r.pos >= len(r.code) }

// FetchOp reads the next opcode and, if it is a Wide prefix, the real
// opcode that follows, reporting whether the operand that follows (if any)
// should be read as a 16-bit wide operand.
func (r *Reader) FetchOp() (op Opcode, wide bool) {
	op = Opcode(r.code[r.pos])
	r.pos++
	if op == Wide {
		op = Opcode(r.code[r.pos])
		r.pos++
		wide = true
	}
	return op, wide
}

// Operand reads an operand after FetchOp reported wide, consuming 2 bytes;
// otherwise it consumes 1 byte. Both are returned widened to int.
func (r *Reader) Operand(wide bool) int {
	if wide {
		v := binary.LittleEndian.Uint16(r.code[r.pos : r.pos+2])
		r.pos += 2
		return int(v)
	}
	v := r.code[r.pos]
	r.pos++
	return int(v)
}

// Byte reads a single raw byte operand, e.g. Call's metadata byte.
func (r *Reader) Byte() byte {
	v := r.code[r.pos]
	r.pos++
	return v
}

// JumpOffset reads a signed 16-bit relative jump offset, per §4.4's jump
// semantics: the offset is relative to the byte immediately following the
// two offset bytes, i.e. relative to r.Pos() after this call.
func (r *Reader) JumpOffset() int {
	v := int16(binary.LittleEndian.Uint16(r.code[r.pos : r.pos+2]))
	r.pos += 2
	return int(v)
}

// Jump adds offset (as returned by JumpOffset, already relative to the
// post-operand position) to the reader's position.
func (r *Reader) Jump(offset int) { r.pos += offset }

// CallArgc reads the wide u16 argc operand that follows a Call instruction's
// metadata byte when meta.Argc() reports the WideArgc sentinel; otherwise
// the narrow count from meta is authoritative and no bytes are consumed.
func (r *Reader) CallArgc(meta CallMeta) int {
	if meta.Argc() != WideArgc {
		return meta.Argc()
	}
	v := binary.LittleEndian.Uint16(r.code[r.pos : r.pos+2])
	r.pos += 2
	return int(v)
}

// ImportOperand reads ImportStatic's kind byte and u16 constant-pool path
// index.
func (r *Reader) ImportOperand() (kind byte, pathIdx uint16) {
	kind = r.code[r.pos]
	r.pos++
	pathIdx = binary.LittleEndian.Uint16(r.code[r.pos : r.pos+2])
	r.pos += 2
	return kind, pathIdx
}

// TryOperand reads the Try opcode's two signed 16-bit offsets
// (catch_off, fin_off), each relative to the position immediately after
// both offsets have been read (i.e. after this call returns), per §4.4.
func (r *Reader) TryOperand() (catchOff, finOff int) {
	catchOff = int(int16(binary.LittleEndian.Uint16(r.code[r.pos : r.pos+2])))
	r.pos += 2
	finOff = int(int16(binary.LittleEndian.Uint16(r.code[r.pos : r.pos+2])))
	r.pos += 2
	return catchOff, finOff
}
