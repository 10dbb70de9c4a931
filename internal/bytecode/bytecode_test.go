package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/interner"
)

func buildSample(t *testing.T) *bytecode.Function {
	t.Helper()
	pool := bytecode.NewPool()
	in := interner.New()

	numIdx, err := pool.Add(bytecode.ConstEntry{Kind: bytecode.ConstNumber, Number: 41})
	require.NoError(t, err)

	b := bytecode.NewBuilder(pool)
	end := b.Label()
	b.Emit(bytecode.This)
	b.EmitJump(bytecode.JmpFalseP, end)
	b.EmitOperand(bytecode.Constant, int(numIdx))
	b.PlaceLabel(end)
	b.Emit(bytecode.Ret)

	require.Empty(t, b.Unresolved())

	return &bytecode.Function{
		Instructions: b.Bytes(),
		Pool:         pool,
		LocalCount:   2,
		ParamCount:   1,
		RestLocal:    -1,
		ArgumentsLocal: -1,
		Kind:         bytecode.Normal,
		SourceName:   in.Intern("sample"),
		IsStrict:     true,
	}
}

func TestBytecodeRoundTrip(t *testing.T) {
	fn := buildSample(t)

	encoded := bytecode.Serialize(fn)
	decoded, err := bytecode.Deserialize(encoded)
	require.NoError(t, err)

	require.Equal(t, fn.Instructions, decoded.Instructions)
	require.Equal(t, fn.LocalCount, decoded.LocalCount)
	require.Equal(t, fn.ParamCount, decoded.ParamCount)
	require.Equal(t, fn.Kind, decoded.Kind)
	require.Equal(t, fn.Pool.Len(), decoded.Pool.Len())
	require.Equal(t, fn.Pool.Get(0).Number, decoded.Pool.Get(0).Number)
}

func TestDeserializeRejectsWrongVersion(t *testing.T) {
	fn := buildSample(t)
	encoded := bytecode.Serialize(fn)
	encoded[0] ^= 0xff // corrupt the version header

	_, err := bytecode.Deserialize(encoded)
	require.Error(t, err)
}

func TestBuilderBackwardJumpPatchesImmediately(t *testing.T) {
	pool := bytecode.NewPool()
	b := bytecode.NewBuilder(pool)

	head := b.Label()
	b.PlaceLabel(head)
	b.Emit(bytecode.This)
	b.EmitJump(bytecode.Jmp, head)

	r := bytecode.NewReader(b.Bytes())
	op, wide := r.FetchOp()
	require.Equal(t, bytecode.This, op)
	require.False(t, wide)

	op, _ = r.FetchOp()
	require.Equal(t, bytecode.Jmp, op)
	offset := r.JumpOffset()
	// Jump back to address 0 (the loop head), relative to the position
	// right after the two offset bytes.
	require.Equal(t, -r.Pos(), offset)
}

func TestEmitOperandPicksWideWhenNeeded(t *testing.T) {
	pool := bytecode.NewPool()
	b := bytecode.NewBuilder(pool)
	b.EmitOperand(bytecode.LdLocal, 5)
	b.EmitOperand(bytecode.LdLocal, 1000)

	r := bytecode.NewReader(b.Bytes())
	op, wide := r.FetchOp()
	require.Equal(t, bytecode.LdLocal, op)
	require.False(t, wide)
	require.Equal(t, 5, r.Operand(wide))

	op, wide = r.FetchOp()
	require.Equal(t, bytecode.LdLocal, op)
	require.True(t, wide)
	require.Equal(t, 1000, r.Operand(wide))
}
