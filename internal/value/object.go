package value

import (
	"strconv"

	"github.com/dashlang/dash/internal/heap"
	"github.com/dashlang/dash/internal/interner"
)

// PropertyKeyKind tags a PropertyKey's variant.
type PropertyKeyKind byte

const (
	KeyString PropertyKeyKind = iota
	KeySymbol
	KeyIndex
)

// PropertyKey is one of {String(Symbol), Symbol(Symbol), Index(u32)} (§3).
// Index keys never carry a string payload: the PropertyKey normalization
// invariant (§3) guarantees any string key parseable as a 32-bit unsigned
// integer is represented as Index at construction time, so indexed
// gets/sets on arrays never allocate or compare a string.
type PropertyKey struct {
	kind PropertyKeyKind
	sym  interner.Symbol
	idx  uint32
}

// StringKeyFromJS constructs a PropertyKey from an already-interned string
// symbol, applying the Index normalization invariant.
func StringKeyFromJS(in *interner.Interner, sym interner.Symbol) PropertyKey {
	return FromJSString(in.Resolve(sym), func(s string) interner.Symbol { return in.Intern(s) })
}

// FromJSString is the PropertyKey construction site named in §3: any string
// parseable as a canonical 32-bit unsigned integer (no leading zeros unless
// the string is exactly "0", no leading '+'/'-', no whitespace) normalizes
// to an Index key.
func FromJSString(s string, intern func(string) interner.Symbol) PropertyKey {
	if idx, ok := canonicalUint32(s); ok {
		return PropertyKey{kind: KeyIndex, idx: idx}
	}
	return PropertyKey{kind: KeyString, sym: intern(s)}
}

func canonicalUint32(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	if s == "0" {
		return 0, true
	}
	if s[0] == '0' || s[0] < '0' || s[0] > '9' {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	// Reject values whose decimal round-trip doesn't match (overflow wrap
	// already excluded by ParseUint's bit size, but guards future copy/paste).
	if strconv.FormatUint(n, 10) != s {
		return 0, false
	}
	return uint32(n), true
}

// SymbolKey constructs a PropertyKey from a JS Symbol's backing interned
// value.
func SymbolKey(sym interner.Symbol) PropertyKey { return PropertyKey{kind: KeySymbol, sym: sym} }

// IndexKey constructs a PropertyKey directly from an already-known index,
// used by array-literal codegen and the VM's indexed-access fast path.
func IndexKey(idx uint32) PropertyKey { return PropertyKey{kind: KeyIndex, idx: idx} }

// Kind reports which variant the key holds.
func (k PropertyKey) Kind() PropertyKeyKind { return k.kind }

// Symbol returns the interned symbol backing a String or Symbol key.
func (k PropertyKey) Symbol() interner.Symbol { return k.sym }

// Index returns the numeric index backing an Index key.
func (k PropertyKey) Index() uint32 { return k.idx }

// String renders the key for inspection / error messages.
func (k PropertyKey) String(in *interner.Interner) string {
	switch k.kind {
	case KeyIndex:
		return strconv.FormatUint(uint64(k.idx), 10)
	default:
		return in.Resolve(k.sym)
	}
}

// Descriptor is the writable/enumerable/configurable bitfield attached to
// every PropertyValue (§3).
type Descriptor byte

const (
	Writable Descriptor = 1 << iota
	Enumerable
	Configurable
)

// DefaultDataDescriptor is what object/array literal properties and plain
// assignment get: writable, enumerable, configurable, matching ordinary JS
// property creation.
const DefaultDataDescriptor = Writable | Enumerable | Configurable

// Has reports whether bit is set.
func (d Descriptor) Has(bit Descriptor) bool { return d&bit != 0 }

// Accessor holds a getter/setter pair; either may be the zero Value
// (IsUndefined) if only one half is defined.
type Accessor struct {
	Get Value
	Set Value
}

// PropertyValue carries either a static data value or a getter/setter
// pair, plus its descriptor bitfield (§3).
type PropertyValue struct {
	Descriptor Descriptor
	IsAccessor bool
	Data       Value
	Accessor   Accessor
}

// DataProperty builds an ordinary value-holding PropertyValue.
func DataProperty(v Value, d Descriptor) PropertyValue {
	return PropertyValue{Descriptor: d, Data: v}
}

// AccessorProperty builds a getter/setter PropertyValue.
func AccessorProperty(get, set Value, d Descriptor) PropertyValue {
	return PropertyValue{Descriptor: d, IsAccessor: true, Accessor: Accessor{Get: get, Set: set}}
}

// Object is the capability set every heap value implements (§3, §4.3),
// replacing a deep inheritance hierarchy of concrete JS types with a single
// trait plus downcasting, per §9's design note.
//
// Reentrancy: Apply, Construct, and the property accessors may re-enter the
// VM (e.g. an accessor property's getter, a Proxy trap, or a function
// call). Implementations that need to call back into bytecode take the
// executor through the VM interface they are constructed with; this
// package only defines the shape.
type Object interface {
	heap.Traceable

	GetOwnProperty(key PropertyKey) (PropertyValue, bool)
	SetProperty(key PropertyKey, v Value) error
	DeleteProperty(key PropertyKey) bool
	GetPrototype() Value
	SetPrototype(v Value)
	OwnKeys() []PropertyKey

	// TypeOf returns "function" or "object"; every other typeof result is
	// produced directly from the primitive Kind (§4.3).
	TypeOf() string

	// AsAny exposes the concrete implementer for built-ins that need a
	// specific downcast (e.g. an Array built-in method needing direct
	// access to the dense backing slice) instead of going through the
	// trait.
	AsAny() any
}

// Callable is implemented by objects that support `f(...)` / `new f(...)`.
// Not every Object is Callable (plain objects and arrays are not); the VM's
// Call opcode handler type-asserts to this interface and raises a
// TypeError when it fails, matching "callee is not a function".
type Callable interface {
	Object
	// Apply invokes the callable with the given `this` binding and
	// arguments, returning either the (already-rooted) result or a thrown
	// value.
	Apply(this Value, args []Value) (Value, *Value)
	// Construct invokes the callable as `new callee(...)`; newTarget lets
	// subclass constructors observe the originally-invoked constructor for
	// `new.target`.
	Construct(newTarget Value, args []Value) (Value, *Value)
}
