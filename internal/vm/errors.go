package vm

import "github.com/dashlang/dash/internal/value"

// newError builds a plain Error-shaped object (name, message, stack own
// properties) the way a thrown `new TypeError(...)` would look to user
// code, and returns it ready to be returned as the *value.Value "thrown"
// half of a dispatch result (§7 "Error Handling Design": every fatal
// condition this engine produces itself — stack overflow, calling a
// non-function, a failed property access on null/undefined — is
// represented as an ordinary thrown value, not a distinct Go error path,
// so user try/catch can observe it like any other exception).
func (v *VM) newError(name, message string) *value.Value {
	obj := v.allocPlainObject(v.errorProtoValue())
	backing, _ := v.heap.Get(obj.ObjectID()).(value.Object)
	nameSym := v.in.Intern(name)
	msgSym := v.in.Intern(message)
	_ = backing.SetProperty(v.wk.nameKey, value.String(nameSym))
	_ = backing.SetProperty(v.wk.messageKey, value.String(msgSym))
	stackSym := v.in.Intern(name + ": " + message + v.frameStackTrace())
	_ = backing.SetProperty(v.wk.stackKey, value.String(stackSym))
	return &obj
}

func (v *VM) errorProtoValue() value.Value { return value.Object(v.errorProtoID) }

// frameStackTrace renders the active call chain as "\n    at <fn>" lines,
// innermost frame first, the way V8-style stack strings read (§7).
func (v *VM) frameStackTrace() string {
	out := ""
	for i := len(v.frames) - 1; i >= 0; i-- {
		name := "<anonymous>"
		if sym := v.frames[i].fn.SourceName; sym != 0 {
			name = v.in.Resolve(sym)
		}
		out += "\n    at " + name
	}
	return out
}

// throwTypeError and throwRangeError are convenience wrappers used
// throughout the dispatch loop and intrinsics for the two most common
// engine-raised exception kinds.
func (v *VM) throwTypeError(message string) *value.Value  { return v.newError("TypeError", message) }
func (v *VM) throwRangeError(message string) *value.Value { return v.newError("RangeError", message) }
