package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dashlang/dash/ast"
	"github.com/dashlang/dash/internal/compiler"
	"github.com/dashlang/dash/internal/interner"
	"github.com/dashlang/dash/internal/value"
	"github.com/dashlang/dash/internal/vm"
)

// compileAndRun is this suite's hand-built-AST harness, the same approach
// the teacher's own wazeroir/compiler_test.go takes with hand-built
// wasm.Module values rather than parsing text (§8: the parser is external,
// so tests construct ASTs directly).
func compileAndRun(t *testing.T, in *interner.Interner, body []ast.Stmt) (value.Value, error) {
	t.Helper()
	prog := ast.NewProgram(0, body)
	fn, err := compiler.New(in, compiler.OptNone).Compile(prog, "test")
	require.NoError(t, err)
	return vm.New(in).Eval(fn)
}

func TestArithmeticPrecedence(t *testing.T) {
	in := interner.New()
	// return 1 + 2 * 3;
	body := []ast.Stmt{
		ast.NewReturnStmt(0, ast.NewBinaryExpr(0, ast.OpAdd,
			ast.NewNumberLiteral(0, 1),
			ast.NewBinaryExpr(0, ast.OpMul, ast.NewNumberLiteral(0, 2), ast.NewNumberLiteral(0, 3)),
		)),
	}
	result, err := compileAndRun(t, in, body)
	require.NoError(t, err)
	require.True(t, result.IsNumber())
	require.Equal(t, float64(7), result.Number())
}

func TestVarAndIfElse(t *testing.T) {
	in := interner.New()
	x := in.Intern("x")
	// let x = 5; if (x > 3) { return "big" } return "small";
	body := []ast.Stmt{
		ast.NewVarDecl(0, ast.DeclLet, []ast.Declarator{{Name: x, Init: ast.NewNumberLiteral(0, 5)}}),
		ast.NewIfStmt(0,
			ast.NewBinaryExpr(0, ast.OpGt, ast.NewIdent(0, x), ast.NewNumberLiteral(0, 3)),
			ast.NewBlockStmt(0, []ast.Stmt{ast.NewReturnStmt(0, ast.NewStringLiteral(0, in.Intern("big")))}),
			nil,
		),
		ast.NewReturnStmt(0, ast.NewStringLiteral(0, in.Intern("small"))),
	}
	result, err := compileAndRun(t, in, body)
	require.NoError(t, err)
	require.Equal(t, "big", in.Resolve(result.StringSymbol()))
}

func TestClosureCapturesOuterLocal(t *testing.T) {
	in := interner.New()
	counter := in.Intern("counter")
	makeCounter := in.Intern("makeCounter")
	c := in.Intern("c")
	// function makeCounter() {
	//   let counter = 0;
	//   return function() { counter = counter + 1; return counter; };
	// }
	// let c = makeCounter();
	// return c();
	inner := ast.NewFunctionExpr(0, 0, nil, []ast.Stmt{
		ast.NewExprStmt(0, ast.NewAssignExpr(0, ast.AssignPlain, ast.NewIdent(0, counter),
			ast.NewBinaryExpr(0, ast.OpAdd, ast.NewIdent(0, counter), ast.NewNumberLiteral(0, 1)))),
		ast.NewReturnStmt(0, ast.NewIdent(0, counter)),
	}, false, false, false, false)
	outer := ast.NewFunctionExpr(0, makeCounter, nil, []ast.Stmt{
		ast.NewVarDecl(0, ast.DeclLet, []ast.Declarator{{Name: counter, Init: ast.NewNumberLiteral(0, 0)}}),
		ast.NewReturnStmt(0, inner),
	}, false, false, false, false)

	body := []ast.Stmt{
		ast.NewFunctionDecl(0, outer),
		ast.NewVarDecl(0, ast.DeclLet, []ast.Declarator{{Name: c, Init: ast.NewCallExpr(0, ast.NewIdent(0, makeCounter), nil, false)}}),
		ast.NewReturnStmt(0, ast.NewCallExpr(0, ast.NewIdent(0, c), nil, false)),
	}
	result, err := compileAndRun(t, in, body)
	require.NoError(t, err)
	require.Equal(t, float64(1), result.Number())
}

func TestTryCatchFinallyRuns(t *testing.T) {
	in := interner.New()
	e := in.Intern("e")
	seen := in.Intern("seen")
	// let seen = 0;
	// try { throw "boom"; } catch (e) { seen = 1; } finally { seen = seen + 10; }
	// return seen;
	body := []ast.Stmt{
		ast.NewVarDecl(0, ast.DeclLet, []ast.Declarator{{Name: seen, Init: ast.NewNumberLiteral(0, 0)}}),
		ast.NewTryStmt(0,
			[]ast.Stmt{ast.NewThrowStmt(0, ast.NewStringLiteral(0, in.Intern("boom")))},
			&ast.CatchClause{Param: e, HasParam: true, Body: []ast.Stmt{
				ast.NewExprStmt(0, ast.NewAssignExpr(0, ast.AssignPlain, ast.NewIdent(0, seen), ast.NewNumberLiteral(0, 1))),
			}},
			[]ast.Stmt{
				ast.NewExprStmt(0, ast.NewAssignExpr(0, ast.AssignPlain, ast.NewIdent(0, seen),
					ast.NewBinaryExpr(0, ast.OpAdd, ast.NewIdent(0, seen), ast.NewNumberLiteral(0, 10)))),
			},
		),
		ast.NewReturnStmt(0, ast.NewIdent(0, seen)),
	}
	result, err := compileAndRun(t, in, body)
	require.NoError(t, err)
	require.Equal(t, float64(11), result.Number())
}

func TestUncaughtThrowPropagatesAsError(t *testing.T) {
	in := interner.New()
	body := []ast.Stmt{
		ast.NewThrowStmt(0, ast.NewStringLiteral(0, in.Intern("oops"))),
	}
	_, err := compileAndRun(t, in, body)
	require.Error(t, err)
}

func TestForOfSumsArray(t *testing.T) {
	in := interner.New()
	x := in.Intern("x")
	total := in.Intern("total")
	arr := in.Intern("arr")
	// let arr = [1, 2, 3]; let total = 0;
	// for (let x of arr) { total = total + x; }
	// return total;
	body := []ast.Stmt{
		ast.NewVarDecl(0, ast.DeclLet, []ast.Declarator{{Name: arr, Init: ast.NewArrayLit(0, []ast.ArrayElement{
			{Expr: ast.NewNumberLiteral(0, 1)},
			{Expr: ast.NewNumberLiteral(0, 2)},
			{Expr: ast.NewNumberLiteral(0, 3)},
		})}}),
		ast.NewVarDecl(0, ast.DeclLet, []ast.Declarator{{Name: total, Init: ast.NewNumberLiteral(0, 0)}}),
		ast.NewForEachStmt(0, ast.ForOf, ast.DeclLet, true, x, nil, ast.NewIdent(0, arr),
			ast.NewBlockStmt(0, []ast.Stmt{
				ast.NewExprStmt(0, ast.NewAssignExpr(0, ast.AssignPlain, ast.NewIdent(0, total),
					ast.NewBinaryExpr(0, ast.OpAdd, ast.NewIdent(0, total), ast.NewIdent(0, x)))),
			}),
		),
		ast.NewReturnStmt(0, ast.NewIdent(0, total)),
	}
	result, err := compileAndRun(t, in, body)
	require.NoError(t, err)
	require.Equal(t, float64(6), result.Number())
}

func TestGeneratorYieldsThenReturns(t *testing.T) {
	in := interner.New()
	gen := in.Intern("gen")
	it := in.Intern("it")
	next := in.Intern("next")
	val := in.Intern("value")
	// function* gen() { yield 1; yield 2; return 3; }
	// let it = gen();
	// return it.next().value + it.next().value + it.next().value;
	genFn := ast.NewFunctionExpr(0, gen, nil, []ast.Stmt{
		ast.NewExprStmt(0, ast.NewYieldExpr(0, ast.NewNumberLiteral(0, 1), false)),
		ast.NewExprStmt(0, ast.NewYieldExpr(0, ast.NewNumberLiteral(0, 2), false)),
		ast.NewReturnStmt(0, ast.NewNumberLiteral(0, 3)),
	}, true, false, false, false)

	nextCall := func() ast.Expr {
		return ast.NewStaticMember(0,
			ast.NewCallExpr(0, ast.NewStaticMember(0, ast.NewIdent(0, it), next, false), nil, false),
			val, false)
	}

	body := []ast.Stmt{
		ast.NewFunctionDecl(0, genFn),
		ast.NewVarDecl(0, ast.DeclLet, []ast.Declarator{{Name: it, Init: ast.NewCallExpr(0, ast.NewIdent(0, gen), nil, false)}}),
		ast.NewReturnStmt(0, ast.NewBinaryExpr(0, ast.OpAdd,
			ast.NewBinaryExpr(0, ast.OpAdd, nextCall(), nextCall()), nextCall())),
	}
	result, err := compileAndRun(t, in, body)
	require.NoError(t, err)
	require.Equal(t, float64(6), result.Number())
}

func TestAsyncFunctionReturnsPromise(t *testing.T) {
	in := interner.New()
	fnName := in.Intern("f")
	// async function f() { return (await 41) + 1; }
	// return f(); // a Promise object; resolution is driven by the microtask
	// queue rather than synchronously observable here (§5).
	asyncFn := ast.NewFunctionExpr(0, fnName, nil, []ast.Stmt{
		ast.NewReturnStmt(0, ast.NewBinaryExpr(0, ast.OpAdd,
			ast.NewAwaitExpr(0, ast.NewNumberLiteral(0, 41)), ast.NewNumberLiteral(0, 1))),
	}, false, true, false, false)

	body := []ast.Stmt{
		ast.NewFunctionDecl(0, asyncFn),
		ast.NewReturnStmt(0, ast.NewCallExpr(0, ast.NewIdent(0, fnName), nil, false)),
	}
	result, err := compileAndRun(t, in, body)
	require.NoError(t, err)
	require.True(t, result.IsObject())
}

func TestObjectLiteralAndPropertyAccess(t *testing.T) {
	in := interner.New()
	obj := in.Intern("obj")
	a := in.Intern("a")
	b := in.Intern("b")
	// let obj = { a: 1, b: 2 }; return obj.a + obj.b;
	body := []ast.Stmt{
		ast.NewVarDecl(0, ast.DeclLet, []ast.Declarator{{Name: obj, Init: ast.NewObjectLit(0, []ast.Property{
			{Kind: ast.PropData, Key: a, Value: ast.NewNumberLiteral(0, 1)},
			{Kind: ast.PropData, Key: b, Value: ast.NewNumberLiteral(0, 2)},
		})}}),
		ast.NewReturnStmt(0, ast.NewBinaryExpr(0, ast.OpAdd,
			ast.NewStaticMember(0, ast.NewIdent(0, obj), a, false),
			ast.NewStaticMember(0, ast.NewIdent(0, obj), b, false))),
	}
	result, err := compileAndRun(t, in, body)
	require.NoError(t, err)
	require.Equal(t, float64(3), result.Number())
}

func TestDeleteAndTypeofIntrinsics(t *testing.T) {
	in := interner.New()
	obj := in.Intern("obj")
	a := in.Intern("a")
	// let obj = { a: 1 };
	// delete obj.a;
	// return typeof obj.a; // expect "undefined"
	body := []ast.Stmt{
		ast.NewVarDecl(0, ast.DeclLet, []ast.Declarator{{Name: obj, Init: ast.NewObjectLit(0, []ast.Property{
			{Kind: ast.PropData, Key: a, Value: ast.NewNumberLiteral(0, 1)},
		})}}),
		ast.NewExprStmt(0, ast.NewUnaryExpr(0, ast.UnaryDelete, ast.NewStaticMember(0, ast.NewIdent(0, obj), a, false))),
		ast.NewReturnStmt(0, ast.NewUnaryExpr(0, ast.UnaryTypeof, ast.NewStaticMember(0, ast.NewIdent(0, obj), a, false))),
	}
	result, err := compileAndRun(t, in, body)
	require.NoError(t, err)
	require.Equal(t, "undefined", in.Resolve(result.StringSymbol()))
}
