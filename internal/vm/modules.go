package vm

import "github.com/dashlang/dash/internal/value"

// setExport and GetExport back ExportDefault/ExportNamed (§4.4): this
// engine has no module loader wired in (ImportStatic/ImportDyn are
// resolved as a no-op undefined / a rejected promise respectively — see
// DESIGN.md), so a module's exports are recorded directly on the VM that
// evaluated it rather than threaded through a resolver/registry the way a
// multi-file host would. A host embedding this package can still read
// back what a single Eval call exported.
func (v *VM) setExport(name string, val value.Value) {
	if v.exports == nil {
		v.exports = make(map[string]value.Value, 1)
	}
	v.exports[name] = val
}

// GetExport returns the value a prior Eval call exported under name, or
// undefined if nothing was exported under that name.
func (v *VM) GetExport(name string) value.Value {
	val, ok := v.exports[name]
	if !ok {
		return value.Undefined
	}
	return val
}
