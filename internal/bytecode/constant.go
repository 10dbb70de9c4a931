package bytecode

import (
	"github.com/dashlang/dash/internal/dasherr"
	"github.com/dashlang/dash/internal/interner"
)

// maxConstants is the bound from §4.4: a function's constant pool is a
// bounded (max 65535) vector, addressable by a 16-bit index.
const maxConstants = 1<<16 - 1

// ConstantKind tags the variant stored in a Pool slot.
type ConstantKind byte

const (
	ConstNumber ConstantKind = iota
	ConstString
	ConstIdentifier
	ConstBoolean
	ConstNull
	ConstUndefined
	ConstFunction
	ConstRegex
)

// ConstEntry is one entry of a function's constant pool.
type ConstEntry struct {
	Kind ConstantKind

	Number  float64
	Str     interner.Symbol // used for ConstString and ConstIdentifier
	Boolean bool
	Func    *Function // used for ConstFunction

	// RegexSource / RegexFlags back ConstRegex; the regex engine itself is
	// out of scope, so the pool only carries the literal's descriptor.
	RegexSource interner.Symbol
	RegexFlags  interner.Symbol
}

// Pool is a per-function constant pool. Pool.Add deduplicates numbers and
// strings by structural equality so that e.g. the literal `1` appearing
// twice in a function body occupies a single slot.
type Pool struct {
	entries []ConstEntry
	byValue map[any]uint16
}

// NewPool returns an empty constant pool.
func NewPool() *Pool {
	return &Pool{byValue: make(map[any]uint16, 8)}
}

// poolKey is the deduplication key for entries that support structural
// dedup (numbers, strings, identifiers, booleans, null, undefined). Numbers
// are keyed by their IEEE-754 bit pattern, so -0 and 0 stay distinct.
// Functions and regexes are never deduplicated: each literal occurrence
// compiles a fresh entry.
type poolKey struct {
	kind ConstantKind
	num  uint64
	sym  interner.Symbol
	b    bool
}

// Add inserts c, returning its pool index. Structurally-equal number,
// string, identifier, boolean, null and undefined constants are
// deduplicated; function and regex constants always allocate a new slot.
func (p *Pool) Add(c ConstEntry) (uint16, error) {
	switch c.Kind {
	case ConstNumber, ConstString, ConstIdentifier, ConstBoolean, ConstNull, ConstUndefined:
		key := poolKey{kind: c.Kind, num: floatBits(c.Number), sym: c.Str, b: c.Boolean}
		if idx, ok := p.byValue[key]; ok {
			return idx, nil
		}
		if len(p.entries) >= maxConstants {
			return 0, dasherr.ErrConstantPoolOverflow
		}
		idx := uint16(len(p.entries))
		p.entries = append(p.entries, c)
		p.byValue[key] = idx
		return idx, nil
	default:
		if len(p.entries) >= maxConstants {
			return 0, dasherr.ErrConstantPoolOverflow
		}
		idx := uint16(len(p.entries))
		p.entries = append(p.entries, c)
		return idx, nil
	}
}

// Get returns the constant at idx. It panics on an out-of-range index: a
// well-formed function body (compiled by internal/compiler) never emits a
// Constant opcode whose operand exceeds its own pool's length.
func (p *Pool) Get(idx uint16) ConstEntry { return p.entries[idx] }

// Len returns the number of entries in the pool.
func (p *Pool) Len() int { return len(p.entries) }

// Entries exposes the pool's backing slice for serialization.
func (p *Pool) Entries() []ConstEntry { return p.entries }

// FromEntries rebuilds a Pool from a deserialized entry slice. The
// resulting pool's Add no longer deduplicates against the restored entries
// (a deserialized function is never recompiled into), so byValue is left
// empty.
func FromEntries(entries []ConstEntry) *Pool {
	return &Pool{entries: entries, byValue: make(map[any]uint16)}
}
