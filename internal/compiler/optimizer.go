package compiler

import "github.com/dashlang/dash/ast"

// optimizeStmts applies §4.5's local optimizer passes (constant folding,
// conditional elimination, dead-statement elimination) over a statement
// list before hoisting runs. OptBasic folds and eliminates; OptAggressive
// additionally removes expression statements whose value is provably
// unused and side-effect free.
func optimizeStmts(body []ast.Stmt, opt OptLevel) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(body))
	for _, s := range body {
		s = optimizeStmt(s, opt)
		if s == nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

func optimizeStmt(s ast.Stmt, opt OptLevel) ast.Stmt {
	switch n := s.(type) {
	case *ast.ExprStmt:
		n.Expr = foldExpr(n.Expr)
		if opt >= OptAggressive && !hasSideEffect(n.Expr) {
			return nil
		}
		return n
	case *ast.VarDecl:
		for i := range n.Decls {
			if n.Decls[i].Init != nil {
				n.Decls[i].Init = foldExpr(n.Decls[i].Init)
			}
		}
		return n
	case *ast.BlockStmt:
		n.Body = optimizeStmts(n.Body, opt)
		return n
	case *ast.IfStmt:
		n.Test = foldExpr(n.Test)
		if lit, ok := n.Test.(*ast.Literal); ok {
			if isTruthyLiteral(lit) {
				return optimizeStmt(n.Consequent, opt)
			}
			if n.Alternate == nil {
				return nil
			}
			return optimizeStmt(n.Alternate, opt)
		}
		n.Consequent = optimizeStmt(n.Consequent, opt)
		if n.Alternate != nil {
			n.Alternate = optimizeStmt(n.Alternate, opt)
		}
		return n
	case *ast.WhileStmt:
		n.Test = foldExpr(n.Test)
		if lit, ok := n.Test.(*ast.Literal); ok && !isTruthyLiteral(lit) {
			return nil
		}
		n.Body = optimizeStmt(n.Body, opt)
		return n
	case *ast.DoWhileStmt:
		n.Test = foldExpr(n.Test)
		n.Body = optimizeStmt(n.Body, opt)
		return n
	case *ast.ForStmt:
		if init, ok := n.Init.(ast.Expr); ok {
			n.Init = foldExpr(init)
		}
		if n.Test != nil {
			n.Test = foldExpr(n.Test)
		}
		if n.Update != nil {
			n.Update = foldExpr(n.Update)
		}
		n.Body = optimizeStmt(n.Body, opt)
		return n
	case *ast.ForEachStmt:
		n.Iterable = foldExpr(n.Iterable)
		n.Body = optimizeStmt(n.Body, opt)
		return n
	case *ast.SwitchStmt:
		n.Disc = foldExpr(n.Disc)
		for i := range n.Cases {
			if n.Cases[i].Test != nil {
				n.Cases[i].Test = foldExpr(n.Cases[i].Test)
			}
			n.Cases[i].Body = optimizeStmts(n.Cases[i].Body, opt)
		}
		return n
	case *ast.TryStmt:
		n.Block = optimizeStmts(n.Block, opt)
		if n.Catch != nil {
			n.Catch.Body = optimizeStmts(n.Catch.Body, opt)
		}
		if n.Finally != nil {
			n.Finally = optimizeStmts(n.Finally, opt)
		}
		return n
	case *ast.LabeledStmt:
		n.Body = optimizeStmt(n.Body, opt)
		return n
	case *ast.ReturnStmt:
		if n.Arg != nil {
			n.Arg = foldExpr(n.Arg)
		}
		return n
	case *ast.ThrowStmt:
		n.Arg = foldExpr(n.Arg)
		return n
	default:
		return s
	}
}

// foldExpr constant-folds literal-literal binary/unary expressions and
// eliminates literal-tested conditionals. It never folds across a call,
// property access, or anything that could observably run user code.
func foldExpr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.BinaryExpr:
		n.Left = foldExpr(n.Left)
		n.Right = foldExpr(n.Right)
		if l, ok := n.Left.(*ast.Literal); ok {
			if r, ok := n.Right.(*ast.Literal); ok {
				if folded, ok := foldBinary(n.Op, l, r); ok {
					return folded
				}
			}
		}
		return n
	case *ast.UnaryExpr:
		n.Operand = foldExpr(n.Operand)
		if lit, ok := n.Operand.(*ast.Literal); ok {
			if folded, ok := foldUnary(n.Op, lit); ok {
				return folded
			}
		}
		return n
	case *ast.LogicalExpr:
		n.Left = foldExpr(n.Left)
		n.Right = foldExpr(n.Right)
		return n
	case *ast.ConditionalExpr:
		n.Test = foldExpr(n.Test)
		n.Then = foldExpr(n.Then)
		n.Else = foldExpr(n.Else)
		if lit, ok := n.Test.(*ast.Literal); ok {
			if isTruthyLiteral(lit) {
				return n.Then
			}
			return n.Else
		}
		return n
	case *ast.SequenceExpr:
		for i := range n.Exprs {
			n.Exprs[i] = foldExpr(n.Exprs[i])
		}
		return n
	case *ast.AssignExpr:
		n.RHS = foldExpr(n.RHS)
		return n
	default:
		return e
	}
}

// foldBinary evaluates l OP r at compile time, preserving IEEE-754 double
// semantics exactly (including division by zero producing +/-Inf or NaN,
// never a compile error) for the arithmetic/comparison operator families on
// number literals; string concatenation is not folded.
func foldBinary(op ast.BinaryOp, l, r *ast.Literal) (*ast.Literal, bool) {
	if op == ast.OpAdd && l.Kind == ast.LitString && r.Kind == ast.LitString {
		return nil, false // string interning needs the live Interner, not available here
	}
	if l.Kind != ast.LitNumber || r.Kind != ast.LitNumber {
		return nil, false
	}
	a, b := l.Number, r.Number
	switch op {
	case ast.OpAdd:
		return ast.NewNumberLiteral(l.Pos(), a+b), true
	case ast.OpSub:
		return ast.NewNumberLiteral(l.Pos(), a-b), true
	case ast.OpMul:
		return ast.NewNumberLiteral(l.Pos(), a*b), true
	case ast.OpDiv:
		return ast.NewNumberLiteral(l.Pos(), a/b), true
	case ast.OpLt:
		return ast.NewBoolLiteral(l.Pos(), a < b), true
	case ast.OpLe:
		return ast.NewBoolLiteral(l.Pos(), a <= b), true
	case ast.OpGt:
		return ast.NewBoolLiteral(l.Pos(), a > b), true
	case ast.OpGe:
		return ast.NewBoolLiteral(l.Pos(), a >= b), true
	case ast.OpStrictEq:
		return ast.NewBoolLiteral(l.Pos(), a == b), true
	case ast.OpStrictNe:
		return ast.NewBoolLiteral(l.Pos(), a != b), true
	default:
		return nil, false
	}
}

func foldUnary(op ast.UnaryOp, lit *ast.Literal) (*ast.Literal, bool) {
	switch op {
	case ast.UnaryNeg:
		if lit.Kind != ast.LitNumber {
			return nil, false
		}
		return ast.NewNumberLiteral(lit.Pos(), -lit.Number), true
	case ast.UnaryNot:
		return ast.NewBoolLiteral(lit.Pos(), !isTruthyLiteral(lit)), true
	default:
		return nil, false
	}
}

func isTruthyLiteral(lit *ast.Literal) bool {
	switch lit.Kind {
	case ast.LitBoolean:
		return lit.Bool
	case ast.LitNumber:
		return lit.Number != 0
	case ast.LitNull, ast.LitUndefined:
		return false
	case ast.LitString:
		return true // non-empty-string check needs Interner.Resolve, unavailable here
	default:
		return true
	}
}

// hasSideEffect conservatively reports whether evaluating e could do
// anything observable (throw, call, mutate) — used only to drop a
// discarded expression statement under OptAggressive. Anything not
// recognized is assumed to have a side effect.
func hasSideEffect(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Literal, *ast.Ident, *ast.ThisExpr:
		return false
	case *ast.SequenceExpr:
		for _, sub := range n.Exprs {
			if hasSideEffect(sub) {
				return true
			}
		}
		return false
	case *ast.BinaryExpr:
		return hasSideEffect(n.Left) || hasSideEffect(n.Right)
	case *ast.UnaryExpr:
		if n.Op == ast.UnaryDelete {
			return true
		}
		return hasSideEffect(n.Operand)
	default:
		return true
	}
}
