// Package compiler lowers a parsed ast.Program into bytecode.Function
// records (§4.5): hoisting and implicit-return AST transforms, a scope
// manager tracking local allocation and closure capture, visitor-based
// codegen, and an optional local optimizer.
//
// Grounded on internal/engine/interpreter/interpreter.go's lowerIR: that
// function walks a wasm.Module's IR in one pass emitting into a single
// instruction buffer with a label->patch-callback jump container
// (internal/bytecode.Builder adopts the same idiom); this package adds the
// AST-specific scope/hoisting/optimizer passes wazero's IR lowering doesn't
// need because WASM arrives already resolved.
package compiler

import (
	"github.com/dashlang/dash/ast"
	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/dasherr"
	"github.com/dashlang/dash/internal/interner"
)

// OptLevel selects how aggressively the local optimizer runs (§4.5).
type OptLevel byte

const (
	OptNone OptLevel = iota
	OptBasic
	OptAggressive
)

// Compiler holds cross-function configuration; a fresh one is cheap (no
// mutable compile state lives here, only on fnCompiler per function).
type Compiler struct {
	in  *interner.Interner
	opt OptLevel
}

// New returns a Compiler that interns identifiers/strings against in and
// applies opt's optimizations.
func New(in *interner.Interner, opt OptLevel) *Compiler {
	return &Compiler{in: in, opt: opt}
}

// Compile lowers prog's top-level statements into a root Function (§4.5
// "Output: a CompileResult = root function constant + externals descriptor
// + source name"). The root function has no parameters and is always
// FunctionKind Normal.
func (c *Compiler) Compile(prog *ast.Program, sourceName string) (*bytecode.Function, error) {
	fc := newFnCompiler(c, nil, bytecode.Normal)
	fc.argumentsLocal = -1
	fc.restLocal = -1

	body := c.optimizeBody(prog.Body)
	body = hoist(fc, body)
	body = insertImplicitReturn(body)

	if err := fc.compileStmts(body); err != nil {
		return nil, err
	}
	return fc.finish(sourceName)
}

func (c *Compiler) optimizeBody(body []ast.Stmt) []ast.Stmt {
	if c.opt == OptNone {
		return body
	}
	return optimizeStmts(body, c.opt)
}

// fnCompiler is the mutable state for compiling a single function body
// (root, declaration, expression, method, or arrow).
type fnCompiler struct {
	c     *Compiler
	scope *funcScope
	b     *bytecode.Builder
	kind  bytecode.FunctionKind

	loops []loopCtx
	tries []tryCtx

	paramCount     int
	restLocal      int // -1 if the function has no rest parameter
	argumentsLocal int // -1 if the function never references `arguments`
	isStrict       bool
}

type loopCtx struct {
	label         interner.Symbol // 0 if the loop is unlabeled
	breakLabel    int
	continueLabel int
}

type tryCtx struct {
	catchLabel int
	finLabel   int
}

func newFnCompiler(c *Compiler, parent *funcScope, kind bytecode.FunctionKind) *fnCompiler {
	pool := bytecode.NewPool()
	return &fnCompiler{
		c:         c,
		scope:     newFuncScope(parent),
		b:         bytecode.NewBuilder(pool),
		kind:      kind,
		isStrict:  true, // §4.6 "the engine defaults to strict"
	}
}

// finish assembles the Function record from accumulated builder/scope
// state. Per §8 property 2, every well-formed function body ends with a Ret
// already emitted by compileStmts' implicit-return handling (insertImplicitReturn
// guarantees the AST itself ends in a ReturnStmt before codegen runs).
func (fc *fnCompiler) finish(sourceName string) (*bytecode.Function, error) {
	if unresolved := fc.b.Unresolved(); len(unresolved) > 0 {
		return nil, &dasherr.CompileError{Reason: dasherr.ErrUnimplemented, Function: sourceName}
	}
	externals := make([]bytecode.External, len(fc.scope.externals))
	for i, ec := range fc.scope.externals {
		externals[i] = bytecode.External{LocalID: uint16(ec.localID), IsNestedExternal: ec.isNestedExternal}
	}
	restLocal := -1
	if fc.restLocal >= 0 {
		restLocal = fc.restLocal
	}
	argsLocal := -1
	if fc.argumentsLocal >= 0 {
		argsLocal = fc.argumentsLocal
	}
	return &bytecode.Function{
		Instructions:   fc.b.Bytes(),
		Pool:           fc.b.Pool(),
		LocalCount:     fc.scope.maxSlot + 1,
		ParamCount:     fc.paramCount,
		RestLocal:      restLocal,
		ArgumentsLocal: argsLocal,
		Kind:           fc.kind,
		Externals:      externals,
		SourceName:     fc.c.in.Intern(sourceName),
		IsStrict:       fc.isStrict,
	}, nil
}

func (fc *fnCompiler) currentLoop(label interner.Symbol) (loopCtx, bool) {
	if label == 0 {
		if len(fc.loops) == 0 {
			return loopCtx{}, false
		}
		return fc.loops[len(fc.loops)-1], true
	}
	for i := len(fc.loops) - 1; i >= 0; i-- {
		if fc.loops[i].label == label {
			return fc.loops[i], true
		}
	}
	return loopCtx{}, false
}
