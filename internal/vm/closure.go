package vm

import (
	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/heap"
	"github.com/dashlang/dash/internal/value"
)

// Closure is the heap object a ConstFunction constant turns into at load
// time (functions.go's doc comment on compileFunctionLiteral): "the VM
// turns a ConstFunction load into a live closure, snapshotting the
// captured externals named in Function.Externals." It implements
// value.Object directly (own property table for `.prototype`/`.name`/
// `.length` and any static class members assigned onto it, per §4.5's
// class desugaring) plus value.Callable, re-entering the owning VM's
// dispatch loop on Apply/Construct.
type Closure struct {
	vm    *VM
	fn    *bytecode.Function
	cells []*Cell

	props     map[value.PropertyKey]value.PropertyValue
	keyOrder  []value.PropertyKey
	prototype value.Value

	// homeObject backs `super` inside a method body (§4.5): its prototype
	// is where `super.foo()` / `super(...)` resolve.
	homeObject value.Value

	// capturedThis is the enclosing frame's `this` at the moment an
	// Arrow-kind closure was created. The compiler emits a plain `this`
	// opcode inside an arrow body identical to one inside an ordinary
	// function (internal/compiler/expr.go has no arrow special case for
	// ast.ThisExpr); arrows get lexical `this` by having invoke() ignore
	// the caller-supplied `this` and install this field instead whenever
	// fn.Kind == bytecode.Arrow.
	capturedThis value.Value
}

func newClosure(v *VM, fn *bytecode.Function, cells []*Cell) *Closure {
	capturedThis := value.Undefined
	if fn.Kind == bytecode.Arrow && len(v.frames) > 0 {
		capturedThis = v.frames[len(v.frames)-1].this
	}
	return &Closure{
		vm:           v,
		fn:           fn,
		cells:        cells,
		props:        make(map[value.PropertyKey]value.PropertyValue, 2),
		prototype:    v.functionProtoValue(),
		homeObject:   value.Undefined,
		capturedThis: capturedThis,
	}
}

func (c *Closure) GetOwnProperty(key value.PropertyKey) (value.PropertyValue, bool) {
	switch key {
	case c.vm.wk.lengthKey:
		return value.DataProperty(value.Number(float64(c.fn.ParamCount)), 0), true
	case c.vm.wk.nameKey:
		return value.DataProperty(value.String(c.fn.SourceName), 0), true
	case c.vm.wk.prototypeKey:
		if c.fn.Kind == bytecode.Arrow || c.fn.Kind == bytecode.Method {
			break
		}
		if pv, ok := c.props[key]; ok {
			return pv, true
		}
		proto := c.vm.allocPlainObject(c.vm.objectProtoValue())
		c.props[key] = value.DataProperty(proto, value.Writable)
		c.keyOrder = append(c.keyOrder, key)
		return c.props[key], true
	}
	pv, ok := c.props[key]
	return pv, ok
}

func (c *Closure) SetProperty(key value.PropertyKey, v value.Value) error {
	if _, exists := c.props[key]; !exists {
		c.keyOrder = append(c.keyOrder, key)
	}
	c.props[key] = value.DataProperty(v, value.DefaultDataDescriptor)
	return nil
}

func (c *Closure) DeleteProperty(key value.PropertyKey) bool {
	delete(c.props, key)
	for i, k := range c.keyOrder {
		if k == key {
			c.keyOrder = append(c.keyOrder[:i], c.keyOrder[i+1:]...)
			break
		}
	}
	return true
}

func (c *Closure) GetPrototype() value.Value  { return c.prototype }
func (c *Closure) SetPrototype(v value.Value) { c.prototype = v }

func (c *Closure) OwnKeys() []value.PropertyKey {
	out := make([]value.PropertyKey, len(c.keyOrder))
	copy(out, c.keyOrder)
	return out
}

func (c *Closure) TypeOf() string { return "function" }
func (c *Closure) AsAny() any     { return c }

func (c *Closure) Trace(mark func(heap.ObjectId)) {
	markValue(c.prototype, mark)
	markValue(c.homeObject, mark)
	for _, cell := range c.cells {
		markValue(cell.V, mark)
	}
	for _, pv := range c.props {
		markValue(pv.Data, mark)
		if pv.IsAccessor {
			markValue(pv.Accessor.Get, mark)
			markValue(pv.Accessor.Set, mark)
		}
	}
}

// Apply invokes the closure with an explicit `this` (§4.6's method/bare
// call binding already having been decided by the caller). A Generator-kind
// closure never runs its body here: calling it returns a fresh
// GeneratorIterator immediately (§4.8), and the body only executes as the
// iterator is driven via .next()/.throw()/.return().
func (c *Closure) Apply(this value.Value, args []value.Value) (value.Value, *value.Value) {
	if c.fn.Kind == bytecode.Generator {
		gen := c.vm.newGenerator(c, this, args)
		id := c.vm.heap.Alloc(gen, 1, c.vm.traceRoots)
		return value.Object(id), nil
	}
	if c.fn.Kind == bytecode.Async {
		return c.vm.applyAsync(c, this, args)
	}
	return c.vm.invoke(c, this, args, value.Undefined, false)
}

// Construct invokes the closure as `new callee(...)` (§4.6): allocate a new
// object whose prototype is callee.prototype, bind it as `this`; if the
// constructor body returns an object, that object is the result instead.
func (c *Closure) Construct(newTarget value.Value, args []value.Value) (value.Value, *value.Value) {
	proto := c.vm.objectProtoValue()
	if pv, ok := c.GetOwnProperty(c.vm.wk.prototypeKey); ok && pv.Data.Kind() == value.KindObject {
		proto = pv.Data
	}
	this := c.vm.allocPlainObject(proto)
	result, thrown := c.vm.invoke(c, this, args, newTarget, true)
	if thrown != nil {
		return value.Undefined, thrown
	}
	if result.Kind() == value.KindObject {
		return result, nil
	}
	return this, nil
}

// NativeFunc is a host-provided built-in implemented directly in Go rather
// than compiled bytecode (e.g. Object.defineProperty, console.log). It
// satisfies value.Callable the same way Closure does, letting built-ins and
// user functions share every call site (Call opcode, IntrinsicCallSpread,
// `new`) without a type switch at the dispatch loop level.
type NativeFunc struct {
	vm        *VM
	name      string
	fn        func(v *VM, this value.Value, args []value.Value) (value.Value, *value.Value)
	construct func(v *VM, newTarget value.Value, args []value.Value) (value.Value, *value.Value)

	props     map[value.PropertyKey]value.PropertyValue
	keyOrder  []value.PropertyKey
	prototype value.Value
}

func (v *VM) newNativeFunc(name string, prototype value.Value, fn func(v *VM, this value.Value, args []value.Value) (value.Value, *value.Value)) *NativeFunc {
	return &NativeFunc{vm: v, name: name, fn: fn, prototype: prototype, props: make(map[value.PropertyKey]value.PropertyValue, 1)}
}

func (n *NativeFunc) GetOwnProperty(key value.PropertyKey) (value.PropertyValue, bool) {
	pv, ok := n.props[key]
	return pv, ok
}
func (n *NativeFunc) SetProperty(key value.PropertyKey, v value.Value) error {
	if _, exists := n.props[key]; !exists {
		n.keyOrder = append(n.keyOrder, key)
	}
	n.props[key] = value.DataProperty(v, value.DefaultDataDescriptor)
	return nil
}
func (n *NativeFunc) DeleteProperty(key value.PropertyKey) bool { delete(n.props, key); return true }
func (n *NativeFunc) GetPrototype() value.Value                 { return n.prototype }
func (n *NativeFunc) SetPrototype(v value.Value)                { n.prototype = v }
func (n *NativeFunc) OwnKeys() []value.PropertyKey {
	out := make([]value.PropertyKey, len(n.keyOrder))
	copy(out, n.keyOrder)
	return out
}
func (n *NativeFunc) TypeOf() string { return "function" }
func (n *NativeFunc) AsAny() any     { return n }
func (n *NativeFunc) Trace(mark func(heap.ObjectId)) {
	markValue(n.prototype, mark)
	for _, pv := range n.props {
		markValue(pv.Data, mark)
	}
}
func (n *NativeFunc) Apply(this value.Value, args []value.Value) (value.Value, *value.Value) {
	return n.fn(n.vm, this, args)
}
func (n *NativeFunc) Construct(newTarget value.Value, args []value.Value) (value.Value, *value.Value) {
	if n.construct != nil {
		return n.construct(n.vm, newTarget, args)
	}
	return value.Undefined, nil
}
