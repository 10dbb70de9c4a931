package compiler_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashlang/dash/ast"
	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/compiler"
	"github.com/dashlang/dash/internal/dasherr"
	"github.com/dashlang/dash/internal/interner"
)

func TestCompileReturnLiteral(t *testing.T) {
	in := interner.New()
	prog := ast.NewProgram(0, []ast.Stmt{
		ast.NewReturnStmt(0, ast.NewNumberLiteral(0, 9)),
	})

	fn, err := compiler.New(in, compiler.OptNone).Compile(prog, "main")
	require.NoError(t, err)
	require.NotEmpty(t, fn.Instructions)
	require.Equal(t, bytecode.Normal, fn.Kind)

	r := bytecode.NewReader(fn.Instructions)
	op, _ := r.FetchOp()
	require.Equal(t, bytecode.Constant, op)
}

func TestCompileFunctionDeclNestsPoolEntry(t *testing.T) {
	in := interner.New()
	name := in.Intern("f")
	fnExpr := ast.NewFunctionExpr(0, name, nil, []ast.Stmt{
		ast.NewReturnStmt(0, ast.NewNumberLiteral(0, 1)),
	}, false, false, false, false)

	prog := ast.NewProgram(0, []ast.Stmt{
		ast.NewFunctionDecl(0, fnExpr),
		ast.NewReturnStmt(0, ast.NewCallExpr(0, ast.NewIdent(0, name), nil, false)),
	})

	fn, err := compiler.New(in, compiler.OptNone).Compile(prog, "main")
	require.NoError(t, err)

	var sawNestedFunction bool
	for i := 0; i < fn.Pool.Len(); i++ {
		if fn.Pool.Get(uint16(i)).Kind == bytecode.ConstFunction {
			sawNestedFunction = true
		}
	}
	require.True(t, sawNestedFunction)
}

func TestCompileGeneratorFunctionSetsKind(t *testing.T) {
	in := interner.New()
	name := in.Intern("gen")
	genExpr := ast.NewFunctionExpr(0, name, nil, []ast.Stmt{
		ast.NewExprStmt(0, ast.NewYieldExpr(0, ast.NewNumberLiteral(0, 1), false)),
	}, true, false, false, false)

	prog := ast.NewProgram(0, []ast.Stmt{ast.NewFunctionDecl(0, genExpr)})

	fn, err := compiler.New(in, compiler.OptNone).Compile(prog, "main")
	require.NoError(t, err)

	var found *bytecode.Function
	for i := 0; i < fn.Pool.Len(); i++ {
		entry := fn.Pool.Get(uint16(i))
		if entry.Kind == bytecode.ConstFunction && entry.Func.Kind == bytecode.Generator {
			found = entry.Func
		}
	}
	require.NotNil(t, found)
}

func TestCompileAsyncFunctionSetsKind(t *testing.T) {
	in := interner.New()
	name := in.Intern("f")
	asyncExpr := ast.NewFunctionExpr(0, name, nil, []ast.Stmt{
		ast.NewReturnStmt(0, ast.NewAwaitExpr(0, ast.NewNumberLiteral(0, 1))),
	}, false, true, false, false)

	prog := ast.NewProgram(0, []ast.Stmt{ast.NewFunctionDecl(0, asyncExpr)})

	fn, err := compiler.New(in, compiler.OptNone).Compile(prog, "main")
	require.NoError(t, err)

	var found *bytecode.Function
	for i := 0; i < fn.Pool.Len(); i++ {
		entry := fn.Pool.Get(uint16(i))
		if entry.Kind == bytecode.ConstFunction && entry.Func.Kind == bytecode.Async {
			found = entry.Func
		}
	}
	require.NotNil(t, found)
}

func TestCompileTryCatchEmitsTryOpcode(t *testing.T) {
	in := interner.New()
	e := in.Intern("e")
	prog := ast.NewProgram(0, []ast.Stmt{
		ast.NewTryStmt(0,
			[]ast.Stmt{ast.NewThrowStmt(0, ast.NewStringLiteral(0, in.Intern("x")))},
			&ast.CatchClause{Param: e, HasParam: true, Body: []ast.Stmt{}},
			nil,
		),
	})

	fn, err := compiler.New(in, compiler.OptNone).Compile(prog, "main")
	require.NoError(t, err)

	var sawTry bool
	r := bytecode.NewReader(fn.Instructions)
	for !r.Done() {
		op, wide := r.FetchOp()
		if op == bytecode.Try {
			sawTry = true
			r.TryOperand()
			continue
		}
		skipOperand(r, op, wide)
	}
	require.True(t, sawTry)
}

// §8.5: any program assigning to a const binding fails to compile with
// ConstAssignment — including on the very first reassignment, not just a
// second one.
func TestConstReassignmentFailsToCompile(t *testing.T) {
	in := interner.New()
	x := in.Intern("x")
	prog := ast.NewProgram(0, []ast.Stmt{
		ast.NewVarDecl(0, ast.DeclConst, []ast.Declarator{{Name: x, Init: ast.NewNumberLiteral(0, 5)}}),
		ast.NewExprStmt(0, ast.NewAssignExpr(0, ast.AssignPlain, ast.NewIdent(0, x), ast.NewNumberLiteral(0, 6))),
	})

	_, err := compiler.New(in, compiler.OptNone).Compile(prog, "main")
	require.Error(t, err)
	require.True(t, errors.Is(err, dasherr.ErrConstAssignment))
}

func TestLetReassignmentCompiles(t *testing.T) {
	in := interner.New()
	x := in.Intern("x")
	prog := ast.NewProgram(0, []ast.Stmt{
		ast.NewVarDecl(0, ast.DeclLet, []ast.Declarator{{Name: x, Init: ast.NewNumberLiteral(0, 5)}}),
		ast.NewExprStmt(0, ast.NewAssignExpr(0, ast.AssignPlain, ast.NewIdent(0, x), ast.NewNumberLiteral(0, 6))),
	})

	_, err := compiler.New(in, compiler.OptNone).Compile(prog, "main")
	require.NoError(t, err)
}

// §4.5: `yield` outside a generator is a reported compile error, not a
// runtime TypeError.
func TestYieldOutsideGeneratorFailsToCompile(t *testing.T) {
	in := interner.New()
	prog := ast.NewProgram(0, []ast.Stmt{
		ast.NewExprStmt(0, ast.NewYieldExpr(0, ast.NewNumberLiteral(0, 1), false)),
	})

	_, err := compiler.New(in, compiler.OptNone).Compile(prog, "main")
	require.Error(t, err)
	require.True(t, errors.Is(err, dasherr.ErrYieldOutsideGenerator))
}

// §4.5: `await` outside an async function is a reported compile error, not
// a runtime TypeError.
func TestAwaitOutsideAsyncFailsToCompile(t *testing.T) {
	in := interner.New()
	prog := ast.NewProgram(0, []ast.Stmt{
		ast.NewExprStmt(0, ast.NewAwaitExpr(0, ast.NewNumberLiteral(0, 1))),
	})

	_, err := compiler.New(in, compiler.OptNone).Compile(prog, "main")
	require.Error(t, err)
	require.True(t, errors.Is(err, dasherr.ErrAwaitOutsideAsync))
}

// skipOperand advances past any operand bytes for opcodes this walk doesn't
// otherwise interpret, keeping the reader aligned on instruction boundaries.
func skipOperand(r *bytecode.Reader, op bytecode.Opcode, wide bool) {
	switch op {
	case bytecode.Constant, bytecode.LdLocal, bytecode.StoreLocal, bytecode.LdLocalExt,
		bytecode.StoreLocalExt, bytecode.LdGlobal, bytecode.StoreGlobal, bytecode.ArrayLit,
		bytecode.ObjLit, bytecode.RevStack, bytecode.StaticPropAccess, bytecode.StaticPropSet,
		bytecode.ExportNamed:
		r.Operand(wide)
	case bytecode.Jmp, bytecode.JmpFalseP, bytecode.JmpFalseNP, bytecode.JmpTrueP,
		bytecode.JmpTrueNP, bytecode.JmpNullishP, bytecode.JmpNullishNP:
		r.JumpOffset()
	case bytecode.Call:
		r.Byte()
	case bytecode.ImportStatic:
		r.ImportOperand()
	case bytecode.IntrinsicOp:
		r.Byte()
	}
}
