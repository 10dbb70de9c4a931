package compiler

import (
	"github.com/dashlang/dash/ast"
	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/dasherr"
)

// compileFunctionLiteral compiles fn as a nested function body sharing fc's
// scope as its lexical parent (§4.5's external-capture chain is built by
// funcScope.resolve walking this parent link), embeds the finished
// bytecode.Function as a ConstFunction pool entry, and emits a Constant
// load of it — the VM turns a ConstFunction load into a live closure,
// snapshotting the captured externals named in Function.Externals.
func (fc *fnCompiler) compileFunctionLiteral(fn *ast.FunctionExpr) error {
	kind := bytecode.Normal
	switch {
	case fn.IsGenerator:
		kind = bytecode.Generator
	case fn.IsAsync:
		kind = bytecode.Async
	case fn.IsArrow:
		kind = bytecode.Arrow
	case fn.IsMethod:
		kind = bytecode.Method
	}

	inner := newFnCompiler(fc.c, fc.scope, kind)
	inner.restLocal = -1
	inner.argumentsLocal = -1

	for _, p := range fn.Params {
		slot, err := inner.scope.declare(p.Name, ast.DeclLet)
		if err != nil {
			return err
		}
		if p.Rest {
			inner.restLocal = slot
			continue
		}
		inner.paramCount++
		if p.Default != nil {
			if err := inner.compileParamDefault(slot, p.Default); err != nil {
				return err
			}
		}
	}

	if !fn.IsArrow {
		argsName := fc.c.in.Intern("arguments")
		if _, ok := inner.scope.findOwn(argsName); !ok {
			slot, err := inner.scope.declare(argsName, ast.DeclLet)
			if err != nil {
				return err
			}
			inner.argumentsLocal = slot
		}
	}

	body := fc.c.optimizeBody(fn.Body)
	body = hoist(inner, body)
	body = insertImplicitReturn(body)
	if err := inner.compileStmts(body); err != nil {
		return err
	}

	sourceName := "<anonymous>"
	if fn.Name != 0 {
		sourceName = fc.c.in.Resolve(fn.Name)
	}
	compiled, err := inner.finish(sourceName)
	if err != nil {
		return err
	}

	idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstFunction, Func: compiled})
	if err != nil {
		return err
	}
	fc.b.EmitOperand(bytecode.Constant, int(idx))
	return nil
}

// compileParamDefault emits `if (local[slot] === undefined) local[slot] =
// default` ahead of the function's hoisted body (§4.6's default-parameter
// semantics: absent arguments arrive as undefined, not a distinct "missing"
// marker, so the check is a plain strict-equality test).
func (fc *fnCompiler) compileParamDefault(slot int, def ast.Expr) error {
	fc.b.EmitOperand(bytecode.LdLocal, slot)
	undef, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstUndefined})
	if err != nil {
		return err
	}
	fc.b.EmitOperand(bytecode.Constant, int(undef))
	fc.b.Emit(bytecode.StrictEq)
	skip := fc.b.Label()
	fc.b.EmitJump(bytecode.JmpFalseP, skip)
	if err := fc.compileExpr(def); err != nil {
		return err
	}
	fc.b.EmitOperand(bytecode.StoreLocal, slot)
	fc.b.Emit(bytecode.Pop)
	fc.b.PlaceLabel(skip)
	return nil
}

// compileClassLiteral desugars a class to a constructor function plus
// prototype-method assignments (§4.5): the constructor body is the class's
// `constructor` member (or an empty one, for a base class, or one that
// forwards every argument to `super(...)` for a derived class). Every other
// instance member becomes a StaticPropSet/DynamicPropSet assignment on the
// constructor's `.prototype`; static members are assigned the same way on
// the constructor itself.
func (fc *fnCompiler) compileClassLiteral(class *ast.ClassExpr) error {
	var ctor *ast.FunctionExpr
	var instanceMembers []ast.ClassMember
	var staticMembers []ast.ClassMember
	for _, m := range class.Members {
		if !m.Computed && m.Key == fc.c.in.Intern("constructor") && !m.Static && m.Kind == ast.PropMethod {
			ctor = m.Value
			continue
		}
		if m.Static {
			staticMembers = append(staticMembers, m)
		} else {
			instanceMembers = append(instanceMembers, m)
		}
	}
	if ctor == nil {
		ctor = fc.defaultConstructor(class)
	}

	if err := fc.compileFunctionLiteral(ctor); err != nil {
		return err
	}

	for _, m := range instanceMembers {
		fc.b.Emit(bytecode.Dup)
		idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstIdentifier, Str: fc.c.in.Intern("prototype")})
		if err != nil {
			return err
		}
		fc.b.EmitOperand(bytecode.StaticPropAccess, int(idx))
		if err := fc.assignClassMember(m); err != nil {
			return err
		}
	}
	for _, m := range staticMembers {
		fc.b.Emit(bytecode.Dup)
		if err := fc.assignClassMember(m); err != nil {
			return err
		}
	}
	return nil
}

// defaultConstructor builds the implicit constructor a class gets when it
// declares no `constructor` member: an empty body for a base class, or a
// body that forwards every argument to `super(...)` for a derived one
// (§4.5).
func (fc *fnCompiler) defaultConstructor(class *ast.ClassExpr) *ast.FunctionExpr {
	pos := class.Pos()
	var body []ast.Stmt
	if class.SuperClass != nil {
		argsName := fc.c.in.Intern("arguments")
		call := ast.NewCallExpr(pos, ast.NewSuperExpr(pos),
			[]ast.Expr{ast.NewSpreadExpr(pos, ast.NewIdent(pos, argsName))}, false)
		body = []ast.Stmt{ast.NewExprStmt(pos, call)}
	}
	return ast.NewFunctionExpr(pos, class.Name, nil, body, false, false, false, true)
}

// assignClassMember consumes the target object left on the stack by its
// caller (Dup'd receiver — either a prototype or the constructor itself)
// and defines m's key/value pair on it.
func (fc *fnCompiler) assignClassMember(m ast.ClassMember) error {
	if m.Kind == ast.PropData {
		var err error
		if m.FieldInit != nil {
			err = fc.compileExpr(m.FieldInit)
		} else {
			fc.emitUndefined()
		}
		if err != nil {
			return err
		}
	} else {
		if err := fc.compileFunctionLiteral(m.Value); err != nil {
			return err
		}
	}
	// [target, value] -> [value, target], the order the property-set
	// opcodes pop.
	fc.b.EmitOperand(bytecode.RevStack, 2)
	if m.Computed {
		if err := fc.compileExpr(m.KeyExpr); err != nil {
			return err
		}
		fc.b.Emit(bytecode.DynamicPropSet)
		return nil
	}
	idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstIdentifier, Str: m.Key})
	if err != nil {
		return err
	}
	fc.b.EmitOperand(bytecode.StaticPropSet, int(idx))
	return nil
}

// compileYield compiles `yield`/`yield*` (§4.8): the operand (or undefined
// for a bare yield) is pushed, the Yield opcode suspends the generator
// frame, and the resumed value (sent via .next(v)) is left on the stack as
// the expression's result once execution continues.
func (fc *fnCompiler) compileYield(n *ast.YieldExpr) error {
	if fc.kind != bytecode.Generator {
		return &dasherr.CompileError{Reason: dasherr.ErrYieldOutsideGenerator}
	}
	if n.Arg != nil {
		if err := fc.compileExpr(n.Arg); err != nil {
			return err
		}
	} else {
		fc.emitUndefined()
	}
	if n.Delegate {
		// yield* delegates to an inner iterable: drive it with the same
		// iterator-protocol intrinsics for-of uses, re-yielding each value.
		fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicGetIterator))
		loopHead := fc.b.Label()
		doneLabel := fc.b.Label()
		fc.b.PlaceLabel(loopHead)
		fc.b.Emit(bytecode.Dup)
		fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicIterNext))
		fc.b.EmitJump(bytecode.JmpTrueP, doneLabel)
		fc.b.Emit(bytecode.Yield)
		fc.b.Emit(bytecode.Pop)
		fc.b.EmitJump(bytecode.Jmp, loopHead)
		fc.b.PlaceLabel(doneLabel)
		fc.b.Emit(bytecode.Pop)
		fc.emitUndefined()
		return nil
	}
	fc.b.Emit(bytecode.Yield)
	return nil
}
