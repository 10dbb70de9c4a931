// Package ast defines the node types the compiler consumes. The lexer and
// parser that produce these trees are out of scope (§1): this package is the
// contract between them and internal/compiler, not a parser.
package ast

import "github.com/dashlang/dash/internal/interner"

// Node is implemented by every AST node. Pos is a byte offset into the
// source used for compile-error reporting; it is not otherwise interpreted.
type Node interface {
	Pos() int
}

type base struct {
	pos int
}

func (b base) Pos() int { return b.pos }

// Program is the root of a parsed module or script.
type Program struct {
	base
	Body []Stmt
}

func NewProgram(pos int, body []Stmt) *Program { return &Program{base{pos}, body} }

// ---- Expressions ----

type Expr interface {
	Node
	exprNode()
}

type exprBase struct{ base }

func (exprBase) exprNode() {}

// LiteralKind tags which primitive a Literal node holds.
type LiteralKind byte

const (
	LitNumber LiteralKind = iota
	LitString
	LitBoolean
	LitNull
	LitUndefined
)

type Literal struct {
	exprBase
	Kind   LiteralKind
	Number float64
	Str    interner.Symbol
	Bool   bool
}

func NewNumberLiteral(pos int, n float64) *Literal { return &Literal{exprBase{base{pos}}, LitNumber, n, 0, false} }
func NewStringLiteral(pos int, s interner.Symbol) *Literal {
	return &Literal{exprBase{base{pos}}, LitString, 0, s, false}
}
func NewBoolLiteral(pos int, b bool) *Literal { return &Literal{exprBase{base{pos}}, LitBoolean, 0, 0, b} }
func NewNullLiteral(pos int) *Literal         { return &Literal{exprBase{base{pos}}, LitNull, 0, 0, false} }
func NewUndefinedLiteral(pos int) *Literal    { return &Literal{exprBase{base{pos}}, LitUndefined, 0, 0, false} }

// Ident is a bare identifier reference, resolved by the compiler's scope
// manager to a local, external, or global access.
type Ident struct {
	exprBase
	Name interner.Symbol
}

func NewIdent(pos int, name interner.Symbol) *Ident { return &Ident{exprBase{base{pos}}, name} }

// BinaryOp enumerates binary operators; string rendering is for diagnostics
// only, the compiler switches on the constant.
type BinaryOp byte

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpPow
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpUShr
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpStrictEq
	OpStrictNe
	OpIn
	OpInstanceOf
)

type BinaryExpr struct {
	exprBase
	Op          BinaryOp
	Left, Right Expr
}

func NewBinaryExpr(pos int, op BinaryOp, l, r Expr) *BinaryExpr {
	return &BinaryExpr{exprBase{base{pos}}, op, l, r}
}

// LogicalOp is split from BinaryOp because codegen short-circuits instead
// of evaluating both sides (§4.5).
type LogicalOp byte

const (
	LogAnd LogicalOp = iota
	LogOr
	LogNullish
)

type LogicalExpr struct {
	exprBase
	Op          LogicalOp
	Left, Right Expr
}

func NewLogicalExpr(pos int, op LogicalOp, l, r Expr) *LogicalExpr {
	return &LogicalExpr{exprBase{base{pos}}, op, l, r}
}

type UnaryOp byte

const (
	UnaryNeg UnaryOp = iota
	UnaryPlus
	UnaryNot
	UnaryBitNot
	UnaryTypeof
	UnaryVoid
	UnaryDelete
)

type UnaryExpr struct {
	exprBase
	Op      UnaryOp
	Operand Expr
}

func NewUnaryExpr(pos int, op UnaryOp, operand Expr) *UnaryExpr {
	return &UnaryExpr{exprBase{base{pos}}, op, operand}
}

// UpdateOp is ++ / -- in prefix or postfix position.
type UpdateOp byte

const (
	UpdateInc UpdateOp = iota
	UpdateDec
)

type UpdateExpr struct {
	exprBase
	Op      UpdateOp
	Operand Expr
	Prefix  bool
}

func NewUpdateExpr(pos int, op UpdateOp, operand Expr, prefix bool) *UpdateExpr {
	return &UpdateExpr{exprBase{base{pos}}, op, operand, prefix}
}

// AssignOp covers `=` and every compound assignment; compound forms compile
// as load-op-store (§4.5).
type AssignOp byte

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignRem
	AssignPow
	AssignBitAnd
	AssignBitOr
	AssignBitXor
	AssignShl
	AssignShr
	AssignUShr
	AssignAnd // &&=
	AssignOr  // ||=
	AssignNullish
)

type AssignExpr struct {
	exprBase
	Op          AssignOp
	Target, RHS Expr
}

func NewAssignExpr(pos int, op AssignOp, target, rhs Expr) *AssignExpr {
	return &AssignExpr{exprBase{base{pos}}, op, target, rhs}
}

type ConditionalExpr struct {
	exprBase
	Test, Then, Else Expr
}

func NewConditionalExpr(pos int, test, then, els Expr) *ConditionalExpr {
	return &ConditionalExpr{exprBase{base{pos}}, test, then, els}
}

// MemberExpr is `a.b` (Computed=false, Prop unused) or `a[b]` (Computed=true,
// PropExpr used). Optional marks `?.`.
type MemberExpr struct {
	exprBase
	Object   Expr
	Prop     interner.Symbol
	PropExpr Expr
	Computed bool
	Optional bool
}

func NewStaticMember(pos int, obj Expr, prop interner.Symbol, optional bool) *MemberExpr {
	return &MemberExpr{exprBase{base{pos}}, obj, prop, nil, false, optional}
}

func NewDynamicMember(pos int, obj, propExpr Expr, optional bool) *MemberExpr {
	return &MemberExpr{exprBase{base{pos}}, obj, 0, propExpr, true, optional}
}

// CallExpr is a function or method call. When Callee is a MemberExpr, the
// compiler emits the dual-op leaving receiver+callee on the stack (§4.5).
type CallExpr struct {
	exprBase
	Callee   Expr
	Args     []Expr
	Optional bool
}

func NewCallExpr(pos int, callee Expr, args []Expr, optional bool) *CallExpr {
	return &CallExpr{exprBase{base{pos}}, callee, args, optional}
}

type NewExpr struct {
	exprBase
	Callee Expr
	Args   []Expr
}

func NewNewExpr(pos int, callee Expr, args []Expr) *NewExpr {
	return &NewExpr{exprBase{base{pos}}, callee, args}
}

// ArrayElement pairs an element expression with whether it is a spread
// (`...x`); a nil Expr with Hole=true represents a sparse-array elision.
type ArrayElement struct {
	Expr   Expr
	Spread bool
	Hole   bool
}

type ArrayLit struct {
	exprBase
	Elements []ArrayElement
}

func NewArrayLit(pos int, elems []ArrayElement) *ArrayLit { return &ArrayLit{exprBase{base{pos}}, elems} }

// PropertyKind distinguishes a normal key:value entry from an accessor or
// spread entry in an object literal.
type PropertyKind byte

const (
	PropData PropertyKind = iota
	PropGetter
	PropSetter
	PropSpread
	PropMethod
)

type Property struct {
	Kind     PropertyKind
	Key      interner.Symbol
	KeyExpr  Expr // non-nil for computed keys
	Computed bool
	Value    Expr
}

type ObjectLit struct {
	exprBase
	Properties []Property
}

func NewObjectLit(pos int, props []Property) *ObjectLit { return &ObjectLit{exprBase{base{pos}}, props} }

type ThisExpr struct{ exprBase }

func NewThisExpr(pos int) *ThisExpr { return &ThisExpr{exprBase{base{pos}}} }

type SuperExpr struct{ exprBase }

func NewSuperExpr(pos int) *SuperExpr { return &SuperExpr{exprBase{base{pos}}} }

type SequenceExpr struct {
	exprBase
	Exprs []Expr
}

func NewSequenceExpr(pos int, exprs []Expr) *SequenceExpr { return &SequenceExpr{exprBase{base{pos}}, exprs} }

// FunctionExpr is both a standalone function expression and the body a
// FunctionDecl/ClassDecl method wraps.
type FunctionExpr struct {
	exprBase
	Name       interner.Symbol // 0 ("") if anonymous
	Params     []Param
	Body       []Stmt
	IsGenerator bool
	IsAsync    bool
	IsArrow    bool
	IsMethod   bool
}

func NewFunctionExpr(pos int, name interner.Symbol, params []Param, body []Stmt, gen, async, arrow, method bool) *FunctionExpr {
	return &FunctionExpr{exprBase{base{pos}}, name, params, body, gen, async, arrow, method}
}

// Param is one formal parameter; Rest marks the trailing `...rest` slot.
type Param struct {
	Name    interner.Symbol
	Rest    bool
	Default Expr // nil if no default
}

type YieldExpr struct {
	exprBase
	Arg      Expr // nil for bare `yield`
	Delegate bool // `yield*`
}

func NewYieldExpr(pos int, arg Expr, delegate bool) *YieldExpr { return &YieldExpr{exprBase{base{pos}}, arg, delegate} }

type AwaitExpr struct {
	exprBase
	Arg Expr
}

func NewAwaitExpr(pos int, arg Expr) *AwaitExpr { return &AwaitExpr{exprBase{base{pos}}, arg} }

type SpreadExpr struct {
	exprBase
	Arg Expr
}

func NewSpreadExpr(pos int, arg Expr) *SpreadExpr { return &SpreadExpr{exprBase{base{pos}}, arg} }

type ImportExpr struct {
	exprBase
	Source Expr
}

func NewImportExpr(pos int, source Expr) *ImportExpr { return &ImportExpr{exprBase{base{pos}}, source} }

// ClassExpr is an expression-position class; ClassDecl wraps one bound to a
// name at statement position.
type ClassExpr struct {
	exprBase
	Name       interner.Symbol
	SuperClass Expr // nil if no `extends`
	Members    []ClassMember
}

func NewClassExpr(pos int, name interner.Symbol, super Expr, members []ClassMember) *ClassExpr {
	return &ClassExpr{exprBase{base{pos}}, name, super, members}
}

type ClassMember struct {
	Key      interner.Symbol
	Computed bool
	KeyExpr  Expr
	Static   bool
	Kind     PropertyKind // PropMethod | PropGetter | PropSetter | PropData (field)
	Value    *FunctionExpr
	FieldInit Expr
}
