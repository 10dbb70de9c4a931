package value

import (
	"github.com/dashlang/dash/internal/heap"
	"github.com/dashlang/dash/internal/interner"
)

// Arguments is an array-like object snapshotting a call's arguments: it
// exposes indexed access and `length`. Unlike Array it has no named
// own-properties beyond the indices and `.length` — callee/caller are not
// reproduced. The VM's call path does not construct it: a function's
// `arguments` binding is a plain Array (internal/vm's bindArguments).
type Arguments struct {
	elems     []Value
	prototype Value
	lengthSym interner.Symbol
}

// NewArguments returns an Arguments object snapshotting args at call entry
// (§4.6: a later reassignment of a named parameter does not retroactively
// change arguments[i] unless the VM's non-strict aliasing mode is in play,
// which this engine does not implement).
func NewArguments(prototype Value, args []Value, lengthSym interner.Symbol) *Arguments {
	elems := make([]Value, len(args))
	copy(elems, args)
	return &Arguments{elems: elems, prototype: prototype, lengthSym: lengthSym}
}

func (a *Arguments) GetOwnProperty(key PropertyKey) (PropertyValue, bool) {
	switch key.Kind() {
	case KeyIndex:
		idx := key.Index()
		if idx >= uint32(len(a.elems)) {
			return PropertyValue{}, false
		}
		return DataProperty(a.elems[idx], DefaultDataDescriptor), true
	default:
		if key.Kind() == KeyString && key.Symbol() == a.lengthSym {
			return DataProperty(Number(float64(len(a.elems))), Writable), true
		}
		return PropertyValue{}, false
	}
}

func (a *Arguments) SetProperty(key PropertyKey, v Value) error {
	if key.Kind() == KeyIndex {
		idx := key.Index()
		if idx < uint32(len(a.elems)) {
			a.elems[idx] = v
		}
	}
	return nil
}

func (a *Arguments) DeleteProperty(key PropertyKey) bool {
	if key.Kind() == KeyIndex {
		idx := key.Index()
		if idx < uint32(len(a.elems)) {
			a.elems[idx] = Undefined
		}
	}
	return true
}

func (a *Arguments) GetPrototype() Value  { return a.prototype }
func (a *Arguments) SetPrototype(v Value) { a.prototype = v }

func (a *Arguments) OwnKeys() []PropertyKey {
	out := make([]PropertyKey, len(a.elems))
	for i := range a.elems {
		out[i] = IndexKey(uint32(i))
	}
	return out
}

func (a *Arguments) TypeOf() string { return "object" }
func (a *Arguments) AsAny() any     { return a }

func (a *Arguments) Trace(mark func(heap.ObjectId)) {
	traceValue(a.prototype, mark)
	for _, v := range a.elems {
		traceValue(v, mark)
	}
}
