package value

import "github.com/dashlang/dash/internal/heap"

// PlainObject is the ordinary `{}`-style heap object: a property table plus
// a prototype reference. It implements Object directly; built-ins that need
// more (arrays, functions, generators) embed or wrap it.
type PlainObject struct {
	props     map[PropertyKey]PropertyValue
	keyOrder  []PropertyKey // insertion order, for OwnKeys / for-in determinism
	prototype Value
	// Extensible mirrors Object.preventExtensions/isExtensible. SetProperty
	// on a non-extensible object ignores a brand-new key (returns nil
	// without adding it); DefineOwnProperty does not consult the flag.
	extensible bool
}

// NewPlainObject returns an empty, extensible object with the given
// prototype (pass value.Null for no prototype).
func NewPlainObject(prototype Value) *PlainObject {
	return &PlainObject{
		props:      make(map[PropertyKey]PropertyValue, 4),
		prototype:  prototype,
		extensible: true,
	}
}

func (o *PlainObject) GetOwnProperty(key PropertyKey) (PropertyValue, bool) {
	pv, ok := o.props[key]
	return pv, ok
}

func (o *PlainObject) SetProperty(key PropertyKey, v Value) error {
	if existing, ok := o.props[key]; ok {
		if existing.IsAccessor {
			existing.Accessor.Set = v // replacing the setter target is not our concern here; VM invokes it instead
			return nil
		}
		if !existing.Descriptor.Has(Writable) {
			return nil // silently ignored; the VM's property-set path does not raise for it either
		}
		existing.Data = v
		o.props[key] = existing
		return nil
	}
	if !o.extensible {
		return nil
	}
	o.props[key] = DataProperty(v, DefaultDataDescriptor)
	o.keyOrder = append(o.keyOrder, key)
	return nil
}

// DefineOwnProperty installs pv at key with full descriptor control,
// bypassing the writable check SetProperty enforces — the path used by
// Object.defineProperty (§8 scenario E4).
func (o *PlainObject) DefineOwnProperty(key PropertyKey, pv PropertyValue) {
	if _, exists := o.props[key]; !exists {
		o.keyOrder = append(o.keyOrder, key)
	}
	o.props[key] = pv
}

func (o *PlainObject) DeleteProperty(key PropertyKey) bool {
	pv, ok := o.props[key]
	if !ok {
		return true
	}
	if !pv.Descriptor.Has(Configurable) {
		return false
	}
	delete(o.props, key)
	for i, k := range o.keyOrder {
		if k == key {
			o.keyOrder = append(o.keyOrder[:i], o.keyOrder[i+1:]...)
			break
		}
	}
	return true
}

func (o *PlainObject) GetPrototype() Value  { return o.prototype }
func (o *PlainObject) SetPrototype(v Value) { o.prototype = v }

func (o *PlainObject) OwnKeys() []PropertyKey {
	out := make([]PropertyKey, len(o.keyOrder))
	copy(out, o.keyOrder)
	return out
}

func (o *PlainObject) TypeOf() string { return "object" }

func (o *PlainObject) AsAny() any { return o }

func (o *PlainObject) Trace(mark func(heap.ObjectId)) {
	if o.prototype.kind == KindObject || o.prototype.kind == KindExternal {
		mark(o.prototype.obj)
	}
	for _, pv := range o.props {
		traceValue(pv.Data, mark)
		if pv.IsAccessor {
			traceValue(pv.Accessor.Get, mark)
			traceValue(pv.Accessor.Set, mark)
		}
	}
}

func traceValue(v Value, mark func(heap.ObjectId)) {
	if v.kind == KindObject || v.kind == KindExternal {
		mark(v.obj)
	}
}
