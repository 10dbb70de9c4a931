package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashlang/dash/internal/heap"
	"github.com/dashlang/dash/internal/interner"
	"github.com/dashlang/dash/internal/value"
)

func TestPropertyKeyNormalizesNumericStrings(t *testing.T) {
	in := interner.New()
	intern := func(s string) interner.Symbol { return in.Intern(s) }

	idx := value.FromJSString("42", intern)
	require.Equal(t, value.KeyIndex, idx.Kind())
	require.Equal(t, uint32(42), idx.Index())

	// Leading zero is not canonical: "042" stays a string key.
	str := value.FromJSString("042", intern)
	require.Equal(t, value.KeyString, str.Kind())

	zero := value.FromJSString("0", intern)
	require.Equal(t, value.KeyIndex, zero.Kind())
	require.Equal(t, uint32(0), zero.Index())

	name := value.FromJSString("foo", intern)
	require.Equal(t, value.KeyString, name.Kind())
}

func TestStrictEquality(t *testing.T) {
	require.True(t, value.Number(1).StrictEquals(value.Number(1)))
	require.False(t, value.Number(1).StrictEquals(value.Number(2)))
	require.False(t, value.Number(1).StrictEquals(value.Bool(true)))
	require.True(t, value.Undefined.StrictEquals(value.Undefined))
	require.False(t, value.Undefined.StrictEquals(value.Null))

	nan := value.Number(nanValue())
	require.False(t, nan.StrictEquals(nan))
}

func nanValue() float64 {
	var f float64
	return f / f
}

func TestLooseEquality(t *testing.T) {
	in := interner.New()
	require.True(t, value.Null.LooseEquals(value.Undefined, in))
	require.True(t, value.Number(1).LooseEquals(value.Bool(true), in))
	require.False(t, value.Number(0).LooseEquals(value.Bool(true), in))
}

func TestPrototypeChainWalk(t *testing.T) {
	h := heap.New()
	scope := heap.NewScopePool().Open()
	in := interner.New()

	protoID := scope.Root(h.Alloc(value.NewPlainObject(value.Null), 1, nil))
	proto := value.Object(protoID)

	key := value.FromJSString("greeting", func(s string) interner.Symbol { return in.Intern(s) })
	h.Get(protoID).(*value.PlainObject).DefineOwnProperty(key, value.DataProperty(value.Number(7), value.DefaultDataDescriptor))

	childID := scope.Root(h.Alloc(value.NewPlainObject(proto), 1, nil))
	child := value.Object(childID)

	pv, ok := value.GetProperty(h, child, key)
	require.True(t, ok)
	require.Equal(t, float64(7), pv.Data.Number())
}

func TestArrayDenseAndSparseRegions(t *testing.T) {
	lenSym := interner.New().Intern("length")
	arr := value.NewArray(value.Null, []value.Value{value.Number(1), value.Number(2)}, lenSym)

	pv, ok := arr.GetOwnProperty(value.IndexKey(0))
	require.True(t, ok)
	require.Equal(t, float64(1), pv.Data.Number())

	require.NoError(t, arr.SetProperty(value.IndexKey(1000), value.Number(99)))
	pv, ok = arr.GetOwnProperty(value.IndexKey(1000))
	require.True(t, ok)
	require.Equal(t, float64(99), pv.Data.Number())

	// The dense region did not grow to accommodate the far sparse write.
	lengthPV, ok := arr.GetOwnProperty(value.IndexKey(2))
	require.False(t, ok)
	_ = lengthPV
}

func TestArgumentsSnapshotsAtCallEntry(t *testing.T) {
	lenSym := interner.New().Intern("length")
	args := value.NewArguments(value.Null, []value.Value{value.Number(1), value.Number(2)}, lenSym)

	pv, ok := args.GetOwnProperty(value.IndexKey(1))
	require.True(t, ok)
	require.Equal(t, float64(2), pv.Data.Number())

	_, ok = args.GetOwnProperty(value.IndexKey(2))
	require.False(t, ok)

	require.NoError(t, args.SetProperty(value.IndexKey(0), value.Number(99)))
	pv, ok = args.GetOwnProperty(value.IndexKey(0))
	require.True(t, ok)
	require.Equal(t, float64(99), pv.Data.Number())
}

func TestConcreteObjectsSatisfyObjectInterface(t *testing.T) {
	var _ value.Object = (*value.PlainObject)(nil)
	var _ value.Object = (*value.Array)(nil)
	var _ value.Object = (*value.Arguments)(nil)
}

func TestTypeOfMapping(t *testing.T) {
	h := heap.New()
	require.Equal(t, "number", value.Number(1).TypeOf(h))
	require.Equal(t, "undefined", value.Undefined.TypeOf(h))
	require.Equal(t, "object", value.Null.TypeOf(h))
}
