package compiler

import (
	"github.com/dashlang/dash/ast"
	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/dasherr"
)

var binaryOpcodes = map[ast.BinaryOp]bytecode.Opcode{
	ast.OpAdd: bytecode.Add, ast.OpSub: bytecode.Sub, ast.OpMul: bytecode.Mul,
	ast.OpDiv: bytecode.Div, ast.OpRem: bytecode.Rem, ast.OpPow: bytecode.Pow,
	ast.OpBitAnd: bytecode.BitAnd, ast.OpBitOr: bytecode.BitOr, ast.OpBitXor: bytecode.BitXor,
	ast.OpShl: bytecode.Shl, ast.OpShr: bytecode.Shr, ast.OpUShr: bytecode.UShr,
	ast.OpLt: bytecode.Lt, ast.OpLe: bytecode.Le, ast.OpGt: bytecode.Gt, ast.OpGe: bytecode.Ge,
	ast.OpEq: bytecode.Eq, ast.OpNe: bytecode.Ne, ast.OpStrictEq: bytecode.StrictEq, ast.OpStrictNe: bytecode.StrictNe,
	ast.OpIn: bytecode.ObjIn, ast.OpInstanceOf: bytecode.InstanceOf,
}

// compoundAssignOp maps a compound AssignOp to the BinaryOp it desugars to
// (load-op-store, §4.5); AssignPlain/AssignAnd/AssignOr/AssignNullish are
// handled separately since the logical compound forms short-circuit.
var compoundAssignOp = map[ast.AssignOp]ast.BinaryOp{
	ast.AssignAdd: ast.OpAdd, ast.AssignSub: ast.OpSub, ast.AssignMul: ast.OpMul,
	ast.AssignDiv: ast.OpDiv, ast.AssignRem: ast.OpRem, ast.AssignPow: ast.OpPow,
	ast.AssignBitAnd: ast.OpBitAnd, ast.AssignBitOr: ast.OpBitOr, ast.AssignBitXor: ast.OpBitXor,
	ast.AssignShl: ast.OpShl, ast.AssignShr: ast.OpShr, ast.AssignUShr: ast.OpUShr,
}

func (fc *fnCompiler) compileExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Literal:
		return fc.compileLiteral(n)
	case *ast.Ident:
		return fc.compileIdentLoad(n)
	case *ast.BinaryExpr:
		return fc.compileBinary(n)
	case *ast.LogicalExpr:
		return fc.compileLogical(n)
	case *ast.UnaryExpr:
		return fc.compileUnary(n)
	case *ast.UpdateExpr:
		return fc.compileUpdate(n)
	case *ast.AssignExpr:
		return fc.compileAssign(n)
	case *ast.ConditionalExpr:
		return fc.compileConditional(n)
	case *ast.MemberExpr:
		return fc.compileMemberLoad(n)
	case *ast.CallExpr:
		return fc.compileCall(n)
	case *ast.NewExpr:
		return fc.compileNew(n)
	case *ast.ArrayLit:
		return fc.compileArrayLit(n)
	case *ast.ObjectLit:
		return fc.compileObjectLit(n)
	case *ast.ThisExpr:
		fc.b.Emit(bytecode.This)
		return nil
	case *ast.SuperExpr:
		fc.b.Emit(bytecode.Super)
		return nil
	case *ast.SequenceExpr:
		for i, sub := range n.Exprs {
			if err := fc.compileExpr(sub); err != nil {
				return err
			}
			if i+1 < len(n.Exprs) {
				fc.b.Emit(bytecode.Pop)
			}
		}
		return nil
	case *ast.FunctionExpr:
		return fc.compileFunctionLiteral(n)
	case *ast.ClassExpr:
		return fc.compileClassLiteral(n)
	case *ast.YieldExpr:
		return fc.compileYield(n)
	case *ast.AwaitExpr:
		if fc.kind != bytecode.Async {
			return &dasherr.CompileError{Reason: dasherr.ErrAwaitOutsideAsync}
		}
		if err := fc.compileExpr(n.Arg); err != nil {
			return err
		}
		fc.b.Emit(bytecode.Await)
		return nil
	case *ast.SpreadExpr:
		return fc.compileExpr(n.Arg)
	case *ast.ImportExpr:
		if err := fc.compileExpr(n.Source); err != nil {
			return err
		}
		fc.b.Emit(bytecode.ImportDyn)
		return nil
	default:
		return &dasherr.CompileError{Reason: dasherr.ErrUnimplemented}
	}
}

func (fc *fnCompiler) compileLiteral(n *ast.Literal) error {
	var entry bytecode.ConstEntry
	switch n.Kind {
	case ast.LitNumber:
		entry = bytecode.ConstEntry{Kind: bytecode.ConstNumber, Number: n.Number}
	case ast.LitString:
		entry = bytecode.ConstEntry{Kind: bytecode.ConstString, Str: n.Str}
	case ast.LitBoolean:
		entry = bytecode.ConstEntry{Kind: bytecode.ConstBoolean, Boolean: n.Bool}
	case ast.LitNull:
		entry = bytecode.ConstEntry{Kind: bytecode.ConstNull}
	default:
		entry = bytecode.ConstEntry{Kind: bytecode.ConstUndefined}
	}
	idx, err := fc.b.Pool().Add(entry)
	if err != nil {
		return err
	}
	fc.b.EmitOperand(bytecode.Constant, int(idx))
	return nil
}

func (fc *fnCompiler) compileIdentLoad(n *ast.Ident) error {
	slot, kind := fc.scope.resolve(n.Name)
	switch kind {
	case bindLocal:
		fc.b.EmitOperand(bytecode.LdLocal, slot)
	case bindExternal:
		fc.b.EmitOperand(bytecode.LdLocalExt, slot)
	default:
		idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstIdentifier, Str: n.Name})
		if err != nil {
			return err
		}
		fc.b.EmitOperand(bytecode.LdGlobal, int(idx))
	}
	return nil
}

func (fc *fnCompiler) compileBinary(n *ast.BinaryExpr) error {
	if err := fc.compileExpr(n.Left); err != nil {
		return err
	}
	if err := fc.compileExpr(n.Right); err != nil {
		return err
	}
	op, ok := binaryOpcodes[n.Op]
	if !ok {
		return &dasherr.CompileError{Reason: dasherr.ErrUnimplemented}
	}
	fc.b.Emit(op)
	return nil
}

// compileLogical implements §4.5's short-circuit desugaring: left value,
// conditional jump that does not pop on the taken (short-circuit) branch,
// Pop + right value on the fall-through branch, unifying stack depth at the
// end label either way.
func (fc *fnCompiler) compileLogical(n *ast.LogicalExpr) error {
	if err := fc.compileExpr(n.Left); err != nil {
		return err
	}
	end := fc.b.Label()
	switch n.Op {
	case ast.LogAnd:
		fc.b.EmitJump(bytecode.JmpFalseNP, end)
	case ast.LogOr:
		fc.b.EmitJump(bytecode.JmpTrueNP, end)
	default:
		fc.b.EmitJump(bytecode.JmpNullishNP, end)
	}
	fc.b.Emit(bytecode.Pop)
	if err := fc.compileExpr(n.Right); err != nil {
		return err
	}
	fc.b.PlaceLabel(end)
	return nil
}

func (fc *fnCompiler) compileUnary(n *ast.UnaryExpr) error {
	switch n.Op {
	case ast.UnaryNeg:
		if err := fc.compileExpr(n.Operand); err != nil {
			return err
		}
		fc.b.Emit(bytecode.Neg)
		return nil
	case ast.UnaryPlus:
		if err := fc.compileExpr(n.Operand); err != nil {
			return err
		}
		fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicToNumber))
		return nil
	case ast.UnaryNot:
		if err := fc.compileExpr(n.Operand); err != nil {
			return err
		}
		fc.b.Emit(bytecode.Not)
		return nil
	case ast.UnaryBitNot:
		if err := fc.compileExpr(n.Operand); err != nil {
			return err
		}
		fc.b.Emit(bytecode.BitNot)
		return nil
	case ast.UnaryTypeof:
		// `typeof undeclaredGlobal` must not throw a ReferenceError; the
		// VM's LdGlobal handler reached via this opcode sequence treats a
		// missing binding as undefined rather than raising (§4.3).
		if err := fc.compileExpr(n.Operand); err != nil {
			return err
		}
		fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicTypeof))
		return nil
	case ast.UnaryVoid:
		if err := fc.compileExpr(n.Operand); err != nil {
			return err
		}
		fc.b.Emit(bytecode.Pop)
		fc.emitUndefined()
		return nil
	case ast.UnaryDelete:
		return fc.compileDelete(n.Operand)
	default:
		return &dasherr.CompileError{Reason: dasherr.ErrUnimplemented}
	}
}

func (fc *fnCompiler) compileDelete(target ast.Expr) error {
	m, ok := target.(*ast.MemberExpr)
	if !ok {
		// `delete` on a non-member target (a bare identifier or any other
		// expression) is always true and has no observable effect beyond
		// evaluating the operand once for its side effects.
		if err := fc.compileExpr(target); err != nil {
			return err
		}
		fc.b.Emit(bytecode.Pop)
		idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstBoolean, Boolean: true})
		if err != nil {
			return err
		}
		fc.b.EmitOperand(bytecode.Constant, int(idx))
		return nil
	}
	if err := fc.compileExpr(m.Object); err != nil {
		return err
	}
	if m.Computed {
		if err := fc.compileExpr(m.PropExpr); err != nil {
			return err
		}
	} else {
		idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstIdentifier, Str: m.Prop})
		if err != nil {
			return err
		}
		fc.b.EmitOperand(bytecode.Constant, int(idx))
	}
	fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicDeleteProperty))
	return nil
}

func (fc *fnCompiler) compileUpdate(n *ast.UpdateExpr) error {
	delta := 1.0
	if n.Op == ast.UpdateDec {
		delta = -1.0
	}
	if n.Prefix {
		return fc.compileCompoundStore(n.Operand, func() error {
			if err := fc.compileExpr(n.Operand); err != nil {
				return err
			}
			return fc.pushDeltaAdd(delta)
		})
	}
	// Postfix: evaluate old value once, compute new value, store it, but
	// leave the OLD value as the expression's result. The compiler
	// evaluates the target twice (once to read, once inside the store
	// helper) except for simple identifiers/locals where re-resolution is
	// free; this matches the teacher's own stack-shuffling style elsewhere
	// (interpreter.go's Dup-heavy lowering) rather than introducing a
	// dedicated "load-dup-store" opcode.
	if err := fc.compileExpr(n.Operand); err != nil {
		return err
	}
	fc.b.Emit(bytecode.Dup)
	if err := fc.pushDeltaAdd(delta); err != nil {
		return err
	}
	return fc.compileAssignTarget(n.Operand)
}

func (fc *fnCompiler) pushDeltaAdd(delta float64) error {
	idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstNumber, Number: delta})
	if err != nil {
		return err
	}
	fc.b.EmitOperand(bytecode.Constant, int(idx))
	fc.b.Emit(bytecode.Add)
	return nil
}

// compileCompoundStore runs valueThunk (which must push exactly one value)
// then stores it into target, leaving a copy as the expression's result.
func (fc *fnCompiler) compileCompoundStore(target ast.Expr, valueThunk func() error) error {
	if err := valueThunk(); err != nil {
		return err
	}
	return fc.storeInto(target)
}

// storeInto dups TOS, stores the dup into target, leaving the original as
// the expression's value.
func (fc *fnCompiler) storeInto(target ast.Expr) error {
	fc.b.Emit(bytecode.Dup)
	return fc.compileAssignTarget(target)
}

func (fc *fnCompiler) compileAssign(n *ast.AssignExpr) error {
	switch n.Op {
	case ast.AssignPlain:
		if err := fc.compileExpr(n.RHS); err != nil {
			return err
		}
		return fc.storeInto(n.Target)
	case ast.AssignAnd, ast.AssignOr, ast.AssignNullish:
		if err := fc.compileExpr(n.Target); err != nil {
			return err
		}
		end := fc.b.Label()
		switch n.Op {
		case ast.AssignAnd:
			fc.b.EmitJump(bytecode.JmpFalseNP, end)
		case ast.AssignOr:
			fc.b.EmitJump(bytecode.JmpTrueNP, end)
		default:
			fc.b.EmitJump(bytecode.JmpNullishNP, end)
		}
		fc.b.Emit(bytecode.Pop)
		if err := fc.compileExpr(n.RHS); err != nil {
			return err
		}
		if err := fc.storeInto(n.Target); err != nil {
			return err
		}
		fc.b.PlaceLabel(end)
		return nil
	default:
		binOp, ok := compoundAssignOp[n.Op]
		if !ok {
			return &dasherr.CompileError{Reason: dasherr.ErrUnimplemented}
		}
		if err := fc.compileExpr(n.Target); err != nil {
			return err
		}
		if err := fc.compileExpr(n.RHS); err != nil {
			return err
		}
		fc.b.Emit(binaryOpcodes[binOp])
		return fc.storeInto(n.Target)
	}
}

// compileAssignTarget stores TOS into target, consuming it (no value is
// left behind — callers that need the stored value as an expression result
// call storeInto, which Dups first).
func (fc *fnCompiler) compileAssignTarget(target ast.Expr) error {
	switch t := target.(type) {
	case *ast.Ident:
		isConst, isLocal := fc.scope.isConstLocal(t.Name)
		if isLocal && isConst {
			return &dasherr.CompileError{Reason: dasherr.ErrConstAssignment}
		}
		slot, kind := fc.scope.resolve(t.Name)
		switch kind {
		case bindLocal:
			fc.b.EmitOperand(bytecode.StoreLocal, slot)
		case bindExternal:
			fc.b.EmitOperand(bytecode.StoreLocalExt, slot)
		default:
			idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstIdentifier, Str: t.Name})
			if err != nil {
				return err
			}
			fc.b.EmitOperand(bytecode.StoreGlobal, int(idx))
		}
		return nil
	case *ast.MemberExpr:
		if err := fc.compileExpr(t.Object); err != nil {
			return err
		}
		if t.Computed {
			if err := fc.compileExpr(t.PropExpr); err != nil {
				return err
			}
			fc.b.Emit(bytecode.DynamicPropSet)
			return nil
		}
		idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstIdentifier, Str: t.Prop})
		if err != nil {
			return err
		}
		fc.b.EmitOperand(bytecode.StaticPropSet, int(idx))
		return nil
	default:
		return &dasherr.CompileError{Reason: dasherr.ErrUnimplemented}
	}
}

func (fc *fnCompiler) compileConditional(n *ast.ConditionalExpr) error {
	if err := fc.compileExpr(n.Test); err != nil {
		return err
	}
	elseLabel := fc.b.Label()
	fc.b.EmitJump(bytecode.JmpFalseP, elseLabel)
	if err := fc.compileExpr(n.Then); err != nil {
		return err
	}
	end := fc.b.Label()
	fc.b.EmitJump(bytecode.Jmp, end)
	fc.b.PlaceLabel(elseLabel)
	if err := fc.compileExpr(n.Else); err != nil {
		return err
	}
	fc.b.PlaceLabel(end)
	return nil
}

func (fc *fnCompiler) compileMemberLoad(n *ast.MemberExpr) error {
	if err := fc.compileExpr(n.Object); err != nil {
		return err
	}
	if n.Computed {
		if err := fc.compileExpr(n.PropExpr); err != nil {
			return err
		}
		fc.b.Emit(bytecode.DynamicPropAccess)
		return nil
	}
	idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstIdentifier, Str: n.Prop})
	if err != nil {
		return err
	}
	fc.b.EmitOperand(bytecode.StaticPropAccess, int(idx))
	return nil
}

func hasSpread(args []ast.Expr) bool {
	for _, a := range args {
		if _, ok := a.(*ast.SpreadExpr); ok {
			return true
		}
	}
	return false
}

func (fc *fnCompiler) compileCall(n *ast.CallExpr) error {
	member, isMethod := n.Callee.(*ast.MemberExpr)
	if isMethod {
		if err := fc.compileExpr(member.Object); err != nil {
			return err
		}
		fc.b.Emit(bytecode.Dup)
		if member.Computed {
			if err := fc.compileExpr(member.PropExpr); err != nil {
				return err
			}
			fc.b.Emit(bytecode.DynamicPropAccess)
		} else {
			idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstIdentifier, Str: member.Prop})
			if err != nil {
				return err
			}
			fc.b.EmitOperand(bytecode.StaticPropAccess, int(idx))
		}
	} else {
		if err := fc.compileExpr(n.Callee); err != nil {
			return err
		}
	}

	if hasSpread(n.Args) {
		if err := fc.compileSpreadArgs(n.Args); err != nil {
			return err
		}
		if isMethod {
			fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicCallSpreadMethod))
		} else {
			fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicCallSpread))
		}
		return nil
	}

	for _, a := range n.Args {
		if err := fc.compileExpr(a); err != nil {
			return err
		}
	}
	fc.b.EmitCall(len(n.Args), false, isMethod)
	return nil
}

func (fc *fnCompiler) compileNew(n *ast.NewExpr) error {
	if err := fc.compileExpr(n.Callee); err != nil {
		return err
	}
	if hasSpread(n.Args) {
		if err := fc.compileSpreadArgs(n.Args); err != nil {
			return err
		}
		fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicConstructSpread))
		return nil
	}
	for _, a := range n.Args {
		if err := fc.compileExpr(a); err != nil {
			return err
		}
	}
	fc.b.EmitCall(len(n.Args), true, false)
	return nil
}

// compileSpreadArgs builds a single arguments array out of a possibly mixed
// plain/spread argument list (§4.4's IntrinsicArrayNew/Push/Spread, see
// bytecode/intrinsic.go).
func (fc *fnCompiler) compileSpreadArgs(args []ast.Expr) error {
	fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicArrayNew))
	for _, a := range args {
		if spread, ok := a.(*ast.SpreadExpr); ok {
			if err := fc.compileExpr(spread.Arg); err != nil {
				return err
			}
			fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicArraySpread))
			continue
		}
		if err := fc.compileExpr(a); err != nil {
			return err
		}
		fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicArrayPush))
	}
	return nil
}

func (fc *fnCompiler) compileArrayLit(n *ast.ArrayLit) error {
	spread := false
	for _, el := range n.Elements {
		if el.Spread {
			spread = true
			break
		}
	}
	if !spread {
		for _, el := range n.Elements {
			if el.Hole {
				fc.emitUndefined()
				continue
			}
			if err := fc.compileExpr(el.Expr); err != nil {
				return err
			}
		}
		fc.b.EmitOperand(bytecode.ArrayLit, len(n.Elements))
		return nil
	}
	fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicArrayNew))
	for _, el := range n.Elements {
		if el.Hole {
			fc.emitUndefined()
			fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicArrayPush))
			continue
		}
		if err := fc.compileExpr(el.Expr); err != nil {
			return err
		}
		if el.Spread {
			fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicArraySpread))
		} else {
			fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicArrayPush))
		}
	}
	return nil
}

// propKindConst stages a Property's kind as a small integer constant pushed
// ahead of its key/value pair — ObjLit's operand is the entry count and
// each entry is a (kind, key, value) triplet on the stack, letting the VM
// distinguish a data property from a getter/setter/method without widening
// the opcode's own operand (§4.4's "sub-kind encoded per entry").
func (fc *fnCompiler) propKindConst(k ast.PropertyKind) (uint16, error) {
	return fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstNumber, Number: float64(k)})
}

func (fc *fnCompiler) compileObjectLit(n *ast.ObjectLit) error {
	idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstUndefined})
	if err != nil {
		return err
	}
	fc.b.EmitOperand(bytecode.Constant, int(idx)) // default-prototype sentinel consumed below
	fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicNewObject))

	count := 0
	for _, p := range n.Properties {
		if p.Kind == ast.PropSpread {
			if err := fc.compileExpr(p.Value); err != nil {
				return err
			}
			fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicObjectSpread))
			continue
		}
		kindIdx, err := fc.propKindConst(p.Kind)
		if err != nil {
			return err
		}
		fc.b.EmitOperand(bytecode.Constant, int(kindIdx))
		if p.Computed {
			if err := fc.compileExpr(p.KeyExpr); err != nil {
				return err
			}
		} else {
			keyIdx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstIdentifier, Str: p.Key})
			if err != nil {
				return err
			}
			fc.b.EmitOperand(bytecode.Constant, int(keyIdx))
		}
		if err := fc.compileExpr(p.Value); err != nil {
			return err
		}
		count++
	}
	fc.b.EmitOperand(bytecode.ObjLit, count)
	return nil
}
