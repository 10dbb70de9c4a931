package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dashlang/dash/internal/dasherr"
	"github.com/dashlang/dash/internal/interner"
)

// Version is the current on-disk bytecode format version (§6). Serialize
// always writes this value; Deserialize rejects any other value outright,
// per the teacher's own strict version-gating of its compilation cache
// (internal/compilationcache keys entries by a hash that includes a format
// version for exactly this reason).
const Version uint32 = 5

// Serialize encodes fn as the on-disk bytecode format: a little-endian u32
// version header followed by a structured binary encoding of fn (§6).
func Serialize(fn *Function) []byte {
	var buf bytes.Buffer
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], Version)
	buf.Write(hdr[:])
	writeFunction(&buf, fn)
	return buf.Bytes()
}

// Deserialize decodes the on-disk bytecode format produced by Serialize. It
// returns dasherr.ErrBytecodeVersion if the header does not match Version.
func Deserialize(data []byte) (*Function, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("dash: truncated bytecode: %w", io.ErrUnexpectedEOF)
	}
	if v := binary.LittleEndian.Uint32(data[:4]); v != Version {
		return nil, fmt.Errorf("%w: got %d, want %d", dasherr.ErrBytecodeVersion, v, Version)
	}
	r := &byteReader{data: data[4:]}
	fn, err := readFunction(r)
	if err != nil {
		return nil, fmt.Errorf("dash: corrupt bytecode: %w", err)
	}
	return fn, nil
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) u8() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) u16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *byteReader) f64() (float64, error) {
	bits, err := r.u64()
	if err != nil {
		return 0, err
	}
	return asFloat(bits), nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, io.ErrUnexpectedEOF
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeF64(buf *bytes.Buffer, v float64) { writeU64(buf, floatBits(v)) }

func writeFunction(buf *bytes.Buffer, fn *Function) {
	writeU32(buf, uint32(len(fn.Instructions)))
	buf.Write(fn.Instructions)

	writeU32(buf, uint32(fn.Pool.Len()))
	for _, c := range fn.Pool.Entries() {
		writeConstant(buf, c)
	}

	writeU32(buf, uint32(fn.LocalCount))
	writeU32(buf, uint32(fn.ParamCount))
	writeU32(buf, uint32(fn.RestLocal))
	writeU32(buf, uint32(fn.ArgumentsLocal))
	buf.WriteByte(byte(fn.Kind))

	writeU16(buf, uint16(len(fn.Externals)))
	for _, ext := range fn.Externals {
		writeU16(buf, ext.LocalID)
		if ext.IsNestedExternal {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}

	writeU32(buf, uint32(fn.SourceName))
	if fn.IsStrict {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeConstant(buf *bytes.Buffer, c ConstEntry) {
	buf.WriteByte(byte(c.Kind))
	switch c.Kind {
	case ConstNumber:
		writeF64(buf, c.Number)
	case ConstString, ConstIdentifier:
		writeU32(buf, uint32(c.Str))
	case ConstBoolean:
		if c.Boolean {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case ConstNull, ConstUndefined:
		// no payload
	case ConstFunction:
		writeFunction(buf, c.Func)
	case ConstRegex:
		writeU32(buf, uint32(c.RegexSource))
		writeU32(buf, uint32(c.RegexFlags))
	}
}

func readFunction(r *byteReader) (*Function, error) {
	instrLen, err := r.u32()
	if err != nil {
		return nil, err
	}
	instructions, err := r.bytes(int(instrLen))
	if err != nil {
		return nil, err
	}
	instrCopy := append([]byte(nil), instructions...)

	poolLen, err := r.u32()
	if err != nil {
		return nil, err
	}
	entries := make([]ConstEntry, 0, poolLen)
	for i := uint32(0); i < poolLen; i++ {
		c, err := readConstant(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, c)
	}

	localCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	paramCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	restLocal, err := r.u32()
	if err != nil {
		return nil, err
	}
	argumentsLocal, err := r.u32()
	if err != nil {
		return nil, err
	}
	kindByte, err := r.u8()
	if err != nil {
		return nil, err
	}

	extCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	externals := make([]External, 0, extCount)
	for i := uint16(0); i < extCount; i++ {
		localID, err := r.u16()
		if err != nil {
			return nil, err
		}
		nested, err := r.u8()
		if err != nil {
			return nil, err
		}
		externals = append(externals, External{LocalID: localID, IsNestedExternal: nested != 0})
	}

	sourceName, err := r.u32()
	if err != nil {
		return nil, err
	}
	strictByte, err := r.u8()
	if err != nil {
		return nil, err
	}

	return &Function{
		Instructions:   instrCopy,
		Pool:           FromEntries(entries),
		LocalCount:     int(localCount),
		ParamCount:     int(paramCount),
		RestLocal:      int(int32(restLocal)),
		ArgumentsLocal: int(int32(argumentsLocal)),
		Kind:           FunctionKind(kindByte),
		Externals:      externals,
		SourceName:     interner.Symbol(sourceName),
		IsStrict:       strictByte != 0,
	}, nil
}

func readConstant(r *byteReader) (ConstEntry, error) {
	kindByte, err := r.u8()
	if err != nil {
		return ConstEntry{}, err
	}
	kind := ConstantKind(kindByte)
	c := ConstEntry{Kind: kind}
	switch kind {
	case ConstNumber:
		c.Number, err = r.f64()
	case ConstString, ConstIdentifier:
		var v uint32
		v, err = r.u32()
		c.Str = interner.Symbol(v)
	case ConstBoolean:
		var b byte
		b, err = r.u8()
		c.Boolean = b != 0
	case ConstNull, ConstUndefined:
		// no payload
	case ConstFunction:
		c.Func, err = readFunction(r)
	case ConstRegex:
		var src, flags uint32
		src, err = r.u32()
		if err == nil {
			flags, err = r.u32()
		}
		c.RegexSource = interner.Symbol(src)
		c.RegexFlags = interner.Symbol(flags)
	}
	return c, err
}
