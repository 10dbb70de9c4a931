package value

import (
	"github.com/dashlang/dash/internal/heap"
	"github.com/dashlang/dash/internal/interner"
)

// Array is a dense/sparse hybrid backing for JS arrays (§9 "supplemented
// features", grounded on original_source's vm/value/array.rs existing as a
// distinct exotic kind rather than a plain property bag): small, mostly
// contiguous arrays store their elements in dense directly instead of
// paying a map lookup per index, falling back to sparse for indices beyond
// the dense region (e.g. `a[1000] = 1` on a 3-element array) so that a
// single far-out write doesn't force allocating a million-entry slice.
type Array struct {
	dense      []Value
	sparse     map[uint32]Value
	holes      map[uint32]bool // indices within [0,len(dense)) that are holes, not `undefined`
	named      map[PropertyKey]PropertyValue // non-index own properties, e.g. custom fields
	namedOrder []PropertyKey
	prototype  Value
	lengthSym  interner.Symbol
}

// NewArray returns an array whose dense region is initialized from elems.
// lengthSym is the VM's interned "length" symbol, threaded in once at
// construction so GetOwnProperty/SetProperty can recognize the `.length`
// accessor without re-interning a string literal on every property access.
func NewArray(prototype Value, elems []Value, lengthSym interner.Symbol) *Array {
	dense := make([]Value, len(elems))
	copy(dense, elems)
	return &Array{dense: dense, prototype: prototype, lengthSym: lengthSym}
}

// Length returns the array's current `.length`.
func (a *Array) Length() uint32 { return uint32(len(a.dense)) }

func (a *Array) GetOwnProperty(key PropertyKey) (PropertyValue, bool) {
	switch key.Kind() {
	case KeyIndex:
		idx := key.Index()
		if idx < uint32(len(a.dense)) {
			if a.holes != nil && a.holes[idx] {
				return PropertyValue{}, false
			}
			return DataProperty(a.dense[idx], DefaultDataDescriptor), true
		}
		if v, ok := a.sparse[idx]; ok {
			return DataProperty(v, DefaultDataDescriptor), true
		}
		return PropertyValue{}, false
	default:
		if a.isLengthKey(key) {
			return DataProperty(Number(float64(len(a.dense))), Writable), true
		}
		pv, ok := a.named[key]
		return pv, ok
	}
}

func (a *Array) SetProperty(key PropertyKey, v Value) error {
	switch key.Kind() {
	case KeyIndex:
		idx := key.Index()
		if idx < uint32(len(a.dense)) {
			a.dense[idx] = v
			if a.holes != nil {
				delete(a.holes, idx)
			}
			return nil
		}
		if idx == uint32(len(a.dense)) {
			a.dense = append(a.dense, v)
			return nil
		}
		// Far beyond the dense region: grow into sparse rather than
		// allocating (idx - len) undefined slots.
		if a.sparse == nil {
			a.sparse = make(map[uint32]Value)
		}
		a.sparse[idx] = v
		return nil
	default:
		if a.isLengthKey(key) {
			n := v.Number()
			if v.Kind() != KindNumber {
				n = 0
			}
			a.setLength(uint32(n))
			return nil
		}
		if a.named == nil {
			a.named = make(map[PropertyKey]PropertyValue, 2)
		}
		if _, exists := a.named[key]; !exists {
			a.namedOrder = append(a.namedOrder, key)
		}
		a.named[key] = DataProperty(v, DefaultDataDescriptor)
		return nil
	}
}

func (a *Array) setLength(n uint32) {
	if int(n) <= len(a.dense) {
		a.dense = a.dense[:n]
		return
	}
	if a.holes == nil {
		a.holes = make(map[uint32]bool)
	}
	for i := uint32(len(a.dense)); i < n; i++ {
		a.holes[i] = true
	}
	grown := make([]Value, n)
	copy(grown, a.dense)
	a.dense = grown
}

func (a *Array) DeleteProperty(key PropertyKey) bool {
	switch key.Kind() {
	case KeyIndex:
		idx := key.Index()
		if idx < uint32(len(a.dense)) {
			a.dense[idx] = Undefined
			if a.holes == nil {
				a.holes = make(map[uint32]bool)
			}
			a.holes[idx] = true
			return true
		}
		delete(a.sparse, idx)
		return true
	default:
		if !a.isLengthKey(key) {
			delete(a.named, key)
		}
		return true
	}
}

func (a *Array) GetPrototype() Value  { return a.prototype }
func (a *Array) SetPrototype(v Value) { a.prototype = v }

func (a *Array) OwnKeys() []PropertyKey {
	out := make([]PropertyKey, 0, len(a.dense)+len(a.sparse)+len(a.namedOrder))
	for i := range a.dense {
		if a.holes != nil && a.holes[uint32(i)] {
			continue
		}
		out = append(out, IndexKey(uint32(i)))
	}
	for idx := range a.sparse {
		out = append(out, IndexKey(idx))
	}
	out = append(out, a.namedOrder...)
	return out
}

func (a *Array) TypeOf() string { return "object" }
func (a *Array) AsAny() any     { return a }

func (a *Array) Trace(mark func(heap.ObjectId)) {
	traceValue(a.prototype, mark)
	for _, v := range a.dense {
		traceValue(v, mark)
	}
	for _, v := range a.sparse {
		traceValue(v, mark)
	}
	for _, pv := range a.named {
		traceValue(pv.Data, mark)
	}
}

func (a *Array) isLengthKey(key PropertyKey) bool {
	return key.Kind() == KeyString && key.Symbol() == a.lengthSym
}
