package ast

import "github.com/dashlang/dash/internal/interner"

type Stmt interface {
	Node
	stmtNode()
}

type stmtBase struct{ base }

func (stmtBase) stmtNode() {}

type ExprStmt struct {
	stmtBase
	Expr Expr
}

func NewExprStmt(pos int, e Expr) *ExprStmt { return &ExprStmt{stmtBase{base{pos}}, e} }

// DeclKind is var | let | const, carried on every binding (§3 Scope).
type DeclKind byte

const (
	DeclVar DeclKind = iota
	DeclLet
	DeclConst
)

type Declarator struct {
	Name interner.Symbol
	Init Expr // nil if uninitialized
}

type VarDecl struct {
	stmtBase
	Kind  DeclKind
	Decls []Declarator
}

func NewVarDecl(pos int, kind DeclKind, decls []Declarator) *VarDecl {
	return &VarDecl{stmtBase{base{pos}}, kind, decls}
}

type BlockStmt struct {
	stmtBase
	Body []Stmt
}

func NewBlockStmt(pos int, body []Stmt) *BlockStmt { return &BlockStmt{stmtBase{base{pos}}, body} }

type IfStmt struct {
	stmtBase
	Test       Expr
	Consequent Stmt
	Alternate  Stmt // nil if no else
}

func NewIfStmt(pos int, test Expr, then, els Stmt) *IfStmt {
	return &IfStmt{stmtBase{base{pos}}, test, then, els}
}

type WhileStmt struct {
	stmtBase
	Test Expr
	Body Stmt
	Label interner.Symbol
}

func NewWhileStmt(pos int, test Expr, body Stmt) *WhileStmt {
	return &WhileStmt{stmtBase{base{pos}}, test, body, 0}
}

type DoWhileStmt struct {
	stmtBase
	Body Stmt
	Test Expr
	Label interner.Symbol
}

func NewDoWhileStmt(pos int, body Stmt, test Expr) *DoWhileStmt {
	return &DoWhileStmt{stmtBase{base{pos}}, body, test, 0}
}

// ForStmt is the classic C-style for; any of Init/Test/Update may be nil.
type ForStmt struct {
	stmtBase
	Init   Node // *VarDecl or Expr or nil
	Test   Expr
	Update Expr
	Body   Stmt
	Label  interner.Symbol
}

func NewForStmt(pos int, init Node, test, update Expr, body Stmt) *ForStmt {
	return &ForStmt{stmtBase{base{pos}}, init, test, update, body, 0}
}

// ForEachKind distinguishes for-of from for-in; both desugar to a while loop
// over an iteration protocol (§4.5).
type ForEachKind byte

const (
	ForOf ForEachKind = iota
	ForIn
)

type ForEachStmt struct {
	stmtBase
	Kind      ForEachKind
	BindKind  DeclKind // binding's declaration kind if `for (let x of ...)`
	IsDecl    bool     // false for `for (x of ...)` reusing an existing binding
	Name      interner.Symbol
	Target    Expr // non-nil when IsDecl is false
	Iterable  Expr
	Body      Stmt
	Label     interner.Symbol
}

func NewForEachStmt(pos int, kind ForEachKind, bindKind DeclKind, isDecl bool, name interner.Symbol, target, iterable Expr, body Stmt) *ForEachStmt {
	return &ForEachStmt{stmtBase{base{pos}}, kind, bindKind, isDecl, name, target, iterable, body, 0}
}

type BreakStmt struct {
	stmtBase
	Label interner.Symbol // 0 ("") for unlabeled
}

func NewBreakStmt(pos int, label interner.Symbol) *BreakStmt { return &BreakStmt{stmtBase{base{pos}}, label} }

type ContinueStmt struct {
	stmtBase
	Label interner.Symbol
}

func NewContinueStmt(pos int, label interner.Symbol) *ContinueStmt {
	return &ContinueStmt{stmtBase{base{pos}}, label}
}

type LabeledStmt struct {
	stmtBase
	Label interner.Symbol
	Body  Stmt
}

func NewLabeledStmt(pos int, label interner.Symbol, body Stmt) *LabeledStmt {
	return &LabeledStmt{stmtBase{base{pos}}, label, body}
}

type SwitchCase struct {
	Test Expr // nil for `default`
	Body []Stmt
}

type SwitchStmt struct {
	stmtBase
	Disc  Expr
	Cases []SwitchCase
}

func NewSwitchStmt(pos int, disc Expr, cases []SwitchCase) *SwitchStmt {
	return &SwitchStmt{stmtBase{base{pos}}, disc, cases}
}

type ReturnStmt struct {
	stmtBase
	Arg Expr // nil for bare `return`
}

func NewReturnStmt(pos int, arg Expr) *ReturnStmt { return &ReturnStmt{stmtBase{base{pos}}, arg} }

type ThrowStmt struct {
	stmtBase
	Arg Expr
}

func NewThrowStmt(pos int, arg Expr) *ThrowStmt { return &ThrowStmt{stmtBase{base{pos}}, arg} }

type CatchClause struct {
	Param interner.Symbol // 0 if catch has no binding
	HasParam bool
	Body  []Stmt
}

type TryStmt struct {
	stmtBase
	Block   []Stmt
	Catch   *CatchClause // nil if no catch
	Finally []Stmt       // nil if no finally
}

func NewTryStmt(pos int, block []Stmt, catch *CatchClause, fin []Stmt) *TryStmt {
	return &TryStmt{stmtBase{base{pos}}, block, catch, fin}
}

type FunctionDecl struct {
	stmtBase
	Fn *FunctionExpr
}

func NewFunctionDecl(pos int, fn *FunctionExpr) *FunctionDecl { return &FunctionDecl{stmtBase{base{pos}}, fn} }

type ClassDecl struct {
	stmtBase
	Class *ClassExpr
}

func NewClassDecl(pos int, class *ClassExpr) *ClassDecl { return &ClassDecl{stmtBase{base{pos}}, class} }

// ImportKind distinguishes a default-binding import from a namespace
// (`import * as x`) import (§4.5 ImportStatic kind).
type ImportKind byte

const (
	ImportDefault ImportKind = iota
	ImportNamespace
)

type ImportStmt struct {
	stmtBase
	Kind ImportKind
	Name interner.Symbol
	Path interner.Symbol
}

func NewImportStmt(pos int, kind ImportKind, name, path interner.Symbol) *ImportStmt {
	return &ImportStmt{stmtBase{base{pos}}, kind, name, path}
}

type ExportDefaultStmt struct {
	stmtBase
	Value Expr
}

func NewExportDefaultStmt(pos int, value Expr) *ExportDefaultStmt {
	return &ExportDefaultStmt{stmtBase{base{pos}}, value}
}

type ExportNamedStmt struct {
	stmtBase
	Decl Stmt // the wrapped VarDecl/FunctionDecl/ClassDecl being exported
}

func NewExportNamedStmt(pos int, decl Stmt) *ExportNamedStmt {
	return &ExportNamedStmt{stmtBase{base{pos}}, decl}
}

type DebuggerStmt struct{ stmtBase }

func NewDebuggerStmt(pos int) *DebuggerStmt { return &DebuggerStmt{stmtBase{base{pos}}} }

type EmptyStmt struct{ stmtBase }

func NewEmptyStmt(pos int) *EmptyStmt { return &EmptyStmt{stmtBase{base{pos}}} }
