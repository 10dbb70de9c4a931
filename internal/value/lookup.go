package value

import "github.com/dashlang/dash/internal/heap"

// maxPrototypeChainWalk bounds the prototype-chain walk so a host-supplied
// or malicious `__proto__` cycle cannot hang GetProperty forever; a
// well-formed program never has a chain this deep.
const maxPrototypeChainWalk = 100000

// GetProperty implements the prototype-chain walk described in §4.3:
// consult v's own table, then follow GetPrototype() until Null. Returns the
// first matching property and whether one was found; the object that owns
// it is not returned.
func GetProperty(h *heap.Heap, v Value, key PropertyKey) (PropertyValue, bool) {
	cur := v
	for i := 0; i < maxPrototypeChainWalk; i++ {
		if cur.kind != KindObject && cur.kind != KindExternal {
			return PropertyValue{}, false
		}
		obj := h.Get(cur.obj).(Object)
		if pv, ok := obj.GetOwnProperty(key); ok {
			return pv, true
		}
		cur = obj.GetPrototype()
		if cur.IsNull() || cur.IsUndefined() {
			return PropertyValue{}, false
		}
	}
	return PropertyValue{}, false
}

// HasProperty implements the `in` operator's own-or-inherited check.
func HasProperty(h *heap.Heap, v Value, key PropertyKey) bool {
	_, ok := GetProperty(h, v, key)
	return ok
}

// InstanceOf walks target's prototype chain looking for ctor's `.prototype`
// value, implementing the `instanceof` operator. prototypeKey is the
// caller's interned "prototype" PropertyKey (well-known keys are interned
// once per VM and threaded in, rather than re-interned on every call).
func InstanceOf(h *heap.Heap, target, ctor Value, prototypeKey PropertyKey) bool {
	if target.kind != KindObject && target.kind != KindExternal {
		return false
	}
	ctorObj, ok := h.Get(ctor.obj).(Object)
	if !ok {
		return false
	}
	protoPV, ok := ctorObj.GetOwnProperty(prototypeKey)
	if !ok {
		return false
	}
	proto := protoPV.Data

	cur := h.Get(target.obj).(Object).GetPrototype()
	for i := 0; i < maxPrototypeChainWalk; i++ {
		if cur.IsNull() || cur.IsUndefined() {
			return false
		}
		if cur.kind == KindObject && proto.kind == KindObject && cur.obj == proto.obj {
			return true
		}
		cur = h.Get(cur.obj).(Object).GetPrototype()
	}
	return false
}
