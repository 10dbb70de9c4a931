package interner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashlang/dash/internal/interner"
)

func TestInternDeduplicates(t *testing.T) {
	in := interner.New()

	a := in.Intern("foo")
	b := in.Intern("foo")
	c := in.Intern("bar")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Equal(t, "foo", in.Resolve(a))
	require.Equal(t, "bar", in.Resolve(c))
}

func TestInternEmptyStringIsNotZeroSentinelCollision(t *testing.T) {
	in := interner.New()

	sym := in.Intern("")
	require.Equal(t, interner.Symbol(1), sym)
	require.Equal(t, "", in.Resolve(sym))
}

func TestLenCountsReservedSlot(t *testing.T) {
	in := interner.New()
	require.Equal(t, 1, in.Len())

	in.Intern("x")
	require.Equal(t, 2, in.Len())
	in.Intern("x")
	require.Equal(t, 2, in.Len())
}
