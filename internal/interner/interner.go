// Package interner implements the Symbol table consumed by every other
// component in the engine: the compiler interns identifiers and string
// literals into the constant pool, the value representation stores strings
// as interned symbols, and the VM resolves symbols back to their text only
// when a built-in or the inspector actually needs the bytes.
package interner

import "sync"

// Symbol is an opaque handle into an Interner's table. The zero Symbol is
// never returned by Intern; it is reserved so a zero-valued Symbol field can
// be distinguished from "the empty string was interned".
type Symbol uint32

// Interner deduplicates strings behind a stable, Copy-able handle. It is
// safe for concurrent use because a single VM's interner may be read from
// host callbacks running outside the dispatch loop (e.g. while formatting a
// stack trace for a panic handler).
type Interner struct {
	mu      sync.RWMutex
	bySym   []string
	byValue map[string]Symbol
}

// New returns an Interner with its reserved zero slot already populated.
func New() *Interner {
	in := &Interner{
		bySym:   make([]string, 1, 64),
		byValue: make(map[string]Symbol, 64),
	}
	in.bySym[0] = ""
	return in
}

// Intern returns the Symbol for s, allocating a new slot if s has not been
// seen by this Interner before.
func (in *Interner) Intern(s string) Symbol {
	in.mu.RLock()
	if sym, ok := in.byValue[s]; ok {
		in.mu.RUnlock()
		return sym
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	// Re-check: another goroutine may have interned s while we waited for
	// the write lock.
	if sym, ok := in.byValue[s]; ok {
		return sym
	}
	sym := Symbol(len(in.bySym))
	in.bySym = append(in.bySym, s)
	in.byValue[s] = sym
	return sym
}

// Resolve returns the text for sym. It panics if sym did not come from this
// Interner; a Symbol is only ever valid against the Interner that minted it.
func (in *Interner) Resolve(sym Symbol) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.bySym[sym]
}

// Len returns the number of distinct strings interned so far, including the
// reserved empty-string slot.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.bySym)
}
