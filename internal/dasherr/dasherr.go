// Package dasherr defines the error kinds shared across the compiler and
// the VM (§7 of the engine design). Compile errors are sentinel values,
// returned bare or wrapped with position context in a *CompileError whose
// Unwrap yields the sentinel, matching the
// teacher's convention of sentinel wasmruntime.Err* values wrapped at the
// point of failure (see internal/engine/interpreter in the teacher repo).
package dasherr

import "errors"

// Compile-time sentinel errors (§4.5, §7). These are returned, never
// thrown: they abort compilation before any bytecode for the offending
// function is handed to the VM.
var (
	ErrConstantPoolOverflow = errors.New("dash: constant pool overflow (more than 65535 constants in one function)")
	ErrLocalOverflow        = errors.New("dash: local overflow (more than 65535 locals in one function)")
	ErrExportNameOverflow   = errors.New("dash: export name overflow")
	ErrParamOverflow        = errors.New("dash: parameter overflow (more than 255 parameters)")
	ErrConstAssignment      = errors.New("dash: assignment to const binding")
	ErrYieldOutsideGenerator = errors.New("dash: yield used outside a generator function")
	ErrAwaitOutsideAsync    = errors.New("dash: await used outside an async function")
	ErrUnknownBinding       = errors.New("dash: reference to unknown binding under strict resolution")
	ErrUnimplemented        = errors.New("dash: unimplemented construct")
)

// Fatal VM errors (§4.6, §7): when an error reaching this state cannot
// itself be promoted to a catchable JS RangeError (no room left to
// construct the error object), the VM terminates rather than continue with
// corrupted stack/frame invariants.
var (
	ErrOperandStackOverflow = errors.New("dash: operand stack overflow")
	ErrFrameStackOverflow   = errors.New("dash: call frame stack overflow (max depth 1024)")
	ErrBytecodeVersion      = errors.New("dash: unsupported bytecode version")
)

// CompileError wraps a sentinel compile-time error with the source
// position and function name it occurred in, so `dash check` can report a
// useful diagnostic without the VM ever being invoked.
type CompileError struct {
	Reason   error // one of the Err* sentinels above
	Function string
	Line     int
	Column   int
}

func (e *CompileError) Error() string {
	if e.Function == "" {
		return e.Reason.Error()
	}
	return e.Function + ": " + e.Reason.Error()
}

func (e *CompileError) Unwrap() error { return e.Reason }
