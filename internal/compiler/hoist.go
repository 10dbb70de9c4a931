package compiler

import (
	"github.com/dashlang/dash/ast"
	"github.com/dashlang/dash/internal/interner"
)

// hoist applies §4.5's two-pass AST transforms' first pass: var and
// function declarations anywhere in body are lifted to the nearest
// function scope. Function declarations additionally become ordered
// assignments prepended to whichever block directly contains them.
func hoist(fc *fnCompiler, body []ast.Stmt) []ast.Stmt {
	hoistVarsInStmts(fc, body)
	return hoistFunctionsInBlock(fc, body)
}

func hoistVarsInStmts(fc *fnCompiler, stmts []ast.Stmt) {
	for _, s := range stmts {
		hoistVarsInStmt(fc, s)
	}
}

func hoistVarsInStmt(fc *fnCompiler, s ast.Stmt) {
	switch n := s.(type) {
	case *ast.VarDecl:
		if n.Kind == ast.DeclVar {
			for _, d := range n.Decls {
				declareIfAbsent(fc, d.Name, ast.DeclVar)
			}
		}
	case *ast.BlockStmt:
		hoistVarsInStmts(fc, n.Body)
	case *ast.IfStmt:
		hoistVarsInStmt(fc, n.Consequent)
		if n.Alternate != nil {
			hoistVarsInStmt(fc, n.Alternate)
		}
	case *ast.WhileStmt:
		hoistVarsInStmt(fc, n.Body)
	case *ast.DoWhileStmt:
		hoistVarsInStmt(fc, n.Body)
	case *ast.ForStmt:
		if vd, ok := n.Init.(*ast.VarDecl); ok && vd.Kind == ast.DeclVar {
			for _, d := range vd.Decls {
				declareIfAbsent(fc, d.Name, ast.DeclVar)
			}
		}
		hoistVarsInStmt(fc, n.Body)
	case *ast.ForEachStmt:
		if n.IsDecl && n.BindKind == ast.DeclVar {
			declareIfAbsent(fc, n.Name, ast.DeclVar)
		}
		hoistVarsInStmt(fc, n.Body)
	case *ast.SwitchStmt:
		for _, c := range n.Cases {
			hoistVarsInStmts(fc, c.Body)
		}
	case *ast.TryStmt:
		hoistVarsInStmts(fc, n.Block)
		if n.Catch != nil {
			hoistVarsInStmts(fc, n.Catch.Body)
		}
		if n.Finally != nil {
			hoistVarsInStmts(fc, n.Finally)
		}
	case *ast.LabeledStmt:
		hoistVarsInStmt(fc, n.Body)
	}
}

func declareIfAbsent(fc *fnCompiler, name interner.Symbol, kind ast.DeclKind) {
	if _, ok := fc.scope.findOwn(name); ok {
		return
	}
	// Hoisted declarations never fail overflow checks silently: a program
	// with enough distinct var/function names to exhaust the local table
	// gets ErrLocalOverflow from the later explicit declare() call inside
	// codegen, same as any other local. Compile-time hoisting itself never
	// surfaces that error (it has no Stmt to attribute it to), so it is
	// swallowed here and re-raised when the declaration is visited.
	_, _ = fc.scope.declare(name, kind)
}

// hoistFunctionsInBlock pulls every direct FunctionDecl statement out of
// stmts, declares each as a local, and prepends (in original order) an
// assignment statement in its place, ahead of every other statement in this
// block — implementing "function declarations become ordered assignments
// prepended to the enclosing block" (§4.5) so `x(); function x(){}` sees x
// already bound.
func hoistFunctionsInBlock(fc *fnCompiler, stmts []ast.Stmt) []ast.Stmt {
	var fnDecls []*ast.FunctionDecl
	rest := make([]ast.Stmt, 0, len(stmts))
	for _, s := range stmts {
		if fd, ok := s.(*ast.FunctionDecl); ok {
			fnDecls = append(fnDecls, fd)
			continue
		}
		rest = append(rest, recurseHoistFunctions(fc, s))
	}
	if len(fnDecls) == 0 {
		return rest
	}
	out := make([]ast.Stmt, 0, len(fnDecls)+len(rest))
	for _, fd := range fnDecls {
		declareIfAbsent(fc, fd.Fn.Name, ast.DeclLet)
		assign := ast.NewAssignExpr(fd.Pos(), ast.AssignPlain, ast.NewIdent(fd.Pos(), fd.Fn.Name), fd.Fn)
		out = append(out, ast.NewExprStmt(fd.Pos(), assign))
	}
	return append(out, rest...)
}

func recurseHoistFunctions(fc *fnCompiler, s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case *ast.BlockStmt:
		n.Body = hoistFunctionsInBlock(fc, n.Body)
		return n
	case *ast.IfStmt:
		n.Consequent = recurseHoistFunctions(fc, n.Consequent)
		if n.Alternate != nil {
			n.Alternate = recurseHoistFunctions(fc, n.Alternate)
		}
		return n
	case *ast.WhileStmt:
		n.Body = recurseHoistFunctions(fc, n.Body)
		return n
	case *ast.DoWhileStmt:
		n.Body = recurseHoistFunctions(fc, n.Body)
		return n
	case *ast.ForStmt:
		n.Body = recurseHoistFunctions(fc, n.Body)
		return n
	case *ast.ForEachStmt:
		n.Body = recurseHoistFunctions(fc, n.Body)
		return n
	case *ast.SwitchStmt:
		for i := range n.Cases {
			n.Cases[i].Body = hoistFunctionsInBlock(fc, n.Cases[i].Body)
		}
		return n
	case *ast.TryStmt:
		n.Block = hoistFunctionsInBlock(fc, n.Block)
		if n.Catch != nil {
			n.Catch.Body = hoistFunctionsInBlock(fc, n.Catch.Body)
		}
		if n.Finally != nil {
			n.Finally = hoistFunctionsInBlock(fc, n.Finally)
		}
		return n
	case *ast.LabeledStmt:
		n.Body = recurseHoistFunctions(fc, n.Body)
		return n
	default:
		return s
	}
}

// insertImplicitReturn applies §4.5's second pass: a terminal expression
// statement becomes a return, a terminal block recurses, and anything else
// gets `return undefined` appended. An already-terminal return or throw is
// left alone rather than followed by dead code.
func insertImplicitReturn(body []ast.Stmt) []ast.Stmt {
	if len(body) == 0 {
		return []ast.Stmt{ast.NewReturnStmt(0, nil)}
	}
	last := body[len(body)-1]
	switch n := last.(type) {
	case *ast.ExprStmt:
		body[len(body)-1] = ast.NewReturnStmt(n.Pos(), n.Expr)
		return body
	case *ast.BlockStmt:
		n.Body = insertImplicitReturn(n.Body)
		return body
	case *ast.ReturnStmt:
		return body
	case *ast.ThrowStmt:
		return body
	default:
		return append(body, ast.NewReturnStmt(last.Pos(), nil))
	}
}
