package compiler

import (
	"github.com/dashlang/dash/ast"
	"github.com/dashlang/dash/internal/bytecode"
	"github.com/dashlang/dash/internal/dasherr"
	"github.com/dashlang/dash/internal/interner"
)

func (fc *fnCompiler) compileStmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := fc.compileStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (fc *fnCompiler) compileStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.ExprStmt:
		if err := fc.compileExpr(n.Expr); err != nil {
			return err
		}
		fc.b.Emit(bytecode.Pop)
		return nil

	case *ast.VarDecl:
		return fc.compileVarDecl(n)

	case *ast.BlockStmt:
		fc.scope.enterBlock()
		defer fc.scope.exitBlock()
		return fc.compileStmts(n.Body)

	case *ast.IfStmt:
		return fc.compileIf(n)

	case *ast.WhileStmt:
		return fc.compileWhile(n, n.Label)

	case *ast.DoWhileStmt:
		return fc.compileDoWhile(n, n.Label)

	case *ast.ForStmt:
		return fc.compileFor(n, n.Label)

	case *ast.ForEachStmt:
		return fc.compileForEach(n, n.Label)

	case *ast.BreakStmt:
		loop, ok := fc.currentLoop(n.Label)
		if !ok {
			return &dasherr.CompileError{Reason: dasherr.ErrUnimplemented}
		}
		fc.b.EmitJump(bytecode.Jmp, loop.breakLabel)
		return nil

	case *ast.ContinueStmt:
		loop, ok := fc.currentLoop(n.Label)
		if !ok {
			return &dasherr.CompileError{Reason: dasherr.ErrUnimplemented}
		}
		fc.b.EmitJump(bytecode.Jmp, loop.continueLabel)
		return nil

	case *ast.LabeledStmt:
		return fc.compileLabeled(n)

	case *ast.SwitchStmt:
		return fc.compileSwitch(n)

	case *ast.ReturnStmt:
		if n.Arg != nil {
			if err := fc.compileExpr(n.Arg); err != nil {
				return err
			}
		} else {
			fc.emitUndefined()
		}
		fc.b.Emit(bytecode.Ret)
		return nil

	case *ast.ThrowStmt:
		if err := fc.compileExpr(n.Arg); err != nil {
			return err
		}
		fc.b.Emit(bytecode.Throw)
		return nil

	case *ast.TryStmt:
		return fc.compileTry(n)

	case *ast.FunctionDecl:
		// Hoisting rewrites every FunctionDecl that sits directly in a
		// statement list it visits into an assignment statement (hoist.go);
		// one that reaches codegen sits elsewhere (e.g. as an export
		// statement's declaration) — compile it the same way hoisting's
		// synthetic assignment would.
		slot, err := fc.declareOrResolve(n.Fn.Name)
		if err != nil {
			return err
		}
		if err := fc.compileFunctionLiteral(n.Fn); err != nil {
			return err
		}
		fc.b.EmitOperand(bytecode.StoreLocal, slot)
		fc.b.Emit(bytecode.Pop)
		return nil

	case *ast.ClassDecl:
		slot, err := fc.declareOrResolve(n.Class.Name)
		if err != nil {
			return err
		}
		if err := fc.compileClassLiteral(n.Class); err != nil {
			return err
		}
		fc.b.EmitOperand(bytecode.StoreLocal, slot)
		fc.b.Emit(bytecode.Pop)
		return nil

	case *ast.ImportStmt:
		idx, err := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstIdentifier, Str: n.Path})
		if err != nil {
			return err
		}
		kind := byte(0)
		if n.Kind == ast.ImportNamespace {
			kind = 1
		}
		fc.b.EmitImportStatic(kind, idx)
		slot, err := fc.declareOrResolve(n.Name)
		if err != nil {
			return err
		}
		fc.b.EmitOperand(bytecode.StoreLocal, slot)
		fc.b.Emit(bytecode.Pop)
		return nil

	case *ast.ExportDefaultStmt:
		if err := fc.compileExpr(n.Value); err != nil {
			return err
		}
		fc.b.Emit(bytecode.ExportDefault)
		return nil

	case *ast.ExportNamedStmt:
		if err := fc.compileStmt(n.Decl); err != nil {
			return err
		}
		fc.b.Emit(bytecode.ExportNamed)
		return nil

	case *ast.DebuggerStmt:
		fc.b.Emit(bytecode.Debugger)
		return nil

	case *ast.EmptyStmt:
		return nil

	default:
		return &dasherr.CompileError{Reason: dasherr.ErrUnimplemented}
	}
}

func (fc *fnCompiler) emitUndefined() {
	idx, _ := fc.b.Pool().Add(bytecode.ConstEntry{Kind: bytecode.ConstUndefined})
	fc.b.EmitOperand(bytecode.Constant, int(idx))
}

// declareOrResolve declares name as a new local if this is its first
// appearance in the current function scope, otherwise resolves its existing
// slot (the case when hoisting has already declared the name).
func (fc *fnCompiler) declareOrResolve(name interner.Symbol) (int, error) {
	if slot, ok := fc.scope.findOwn(name); ok {
		return slot, nil
	}
	return fc.scope.declare(name, ast.DeclLet)
}

func (fc *fnCompiler) compileVarDecl(n *ast.VarDecl) error {
	for _, d := range n.Decls {
		slot, ok := fc.scope.findOwn(d.Name)
		if !ok {
			var err error
			slot, err = fc.scope.declare(d.Name, n.Kind)
			if err != nil {
				return err
			}
		}
		if d.Init != nil {
			if err := fc.compileExpr(d.Init); err != nil {
				return err
			}
			fc.b.EmitOperand(bytecode.StoreLocal, slot)
			fc.b.Emit(bytecode.Pop)
		} else if n.Kind != ast.DeclVar {
			// let/const without initializer still need a defined slot value;
			// var's hoisted slot already starts as Undefined by convention
			// of local-slot zero-init in the VM.
			fc.emitUndefined()
			fc.b.EmitOperand(bytecode.StoreLocal, slot)
			fc.b.Emit(bytecode.Pop)
		}
	}
	return nil
}

func (fc *fnCompiler) compileIf(n *ast.IfStmt) error {
	if err := fc.compileExpr(n.Test); err != nil {
		return err
	}
	elseLabel := fc.b.Label()
	fc.b.EmitJump(bytecode.JmpFalseP, elseLabel)
	if err := fc.compileStmt(n.Consequent); err != nil {
		return err
	}
	if n.Alternate == nil {
		fc.b.PlaceLabel(elseLabel)
		return nil
	}
	endLabel := fc.b.Label()
	fc.b.EmitJump(bytecode.Jmp, endLabel)
	fc.b.PlaceLabel(elseLabel)
	if err := fc.compileStmt(n.Alternate); err != nil {
		return err
	}
	fc.b.PlaceLabel(endLabel)
	return nil
}

func (fc *fnCompiler) pushLoop(label interner.Symbol) (breakLabel, continueLabel int) {
	breakLabel = fc.b.Label()
	continueLabel = fc.b.Label()
	fc.loops = append(fc.loops, loopCtx{label: label, breakLabel: breakLabel, continueLabel: continueLabel})
	return
}

func (fc *fnCompiler) popLoop() { fc.loops = fc.loops[:len(fc.loops)-1] }

func (fc *fnCompiler) compileWhile(n *ast.WhileStmt, label interner.Symbol) error {
	headLabel := fc.b.Label()
	breakLabel, continueLabel := fc.pushLoop(label)
	defer fc.popLoop()

	fc.b.PlaceLabel(headLabel)
	fc.b.PlaceLabel(continueLabel)
	if err := fc.compileExpr(n.Test); err != nil {
		return err
	}
	fc.b.EmitJump(bytecode.JmpFalseP, breakLabel)
	if err := fc.compileStmt(n.Body); err != nil {
		return err
	}
	fc.b.EmitJump(bytecode.Jmp, headLabel)
	fc.b.PlaceLabel(breakLabel)
	return nil
}

func (fc *fnCompiler) compileDoWhile(n *ast.DoWhileStmt, label interner.Symbol) error {
	headLabel := fc.b.Label()
	breakLabel, continueLabel := fc.pushLoop(label)
	defer fc.popLoop()

	fc.b.PlaceLabel(headLabel)
	if err := fc.compileStmt(n.Body); err != nil {
		return err
	}
	fc.b.PlaceLabel(continueLabel)
	if err := fc.compileExpr(n.Test); err != nil {
		return err
	}
	fc.b.EmitJump(bytecode.JmpTrueP, headLabel)
	fc.b.PlaceLabel(breakLabel)
	return nil
}

func (fc *fnCompiler) compileFor(n *ast.ForStmt, label interner.Symbol) error {
	fc.scope.enterBlock()
	defer fc.scope.exitBlock()

	switch init := n.Init.(type) {
	case *ast.VarDecl:
		if err := fc.compileVarDecl(init); err != nil {
			return err
		}
	case ast.Expr:
		if err := fc.compileExpr(init); err != nil {
			return err
		}
		fc.b.Emit(bytecode.Pop)
	}

	headLabel := fc.b.Label()
	incLabel := fc.b.Label()
	breakLabel, continueLabel := fc.pushLoop(label)
	defer fc.popLoop()

	fc.b.PlaceLabel(headLabel)
	if n.Test != nil {
		if err := fc.compileExpr(n.Test); err != nil {
			return err
		}
		fc.b.EmitJump(bytecode.JmpFalseP, breakLabel)
	}
	if err := fc.compileStmt(n.Body); err != nil {
		return err
	}
	fc.b.PlaceLabel(continueLabel)
	fc.b.PlaceLabel(incLabel)
	if n.Update != nil {
		if err := fc.compileExpr(n.Update); err != nil {
			return err
		}
		fc.b.Emit(bytecode.Pop)
	}
	fc.b.EmitJump(bytecode.Jmp, headLabel)
	fc.b.PlaceLabel(breakLabel)
	return nil
}

// compileForEach desugars for-of/for-in to a while loop over the iteration
// protocol (§4.5). The iterator-fetch/advance calls are expressed as
// IntrinsicOp sub-operations (the iterator protocol's mechanics — calling
// `[Symbol.iterator]()` and walking a prototype chain for for-in key
// enumeration — live in the VM, matching the compiler/VM split used
// elsewhere: the compiler never reasons about built-in object shapes).
func (fc *fnCompiler) compileForEach(n *ast.ForEachStmt, label interner.Symbol) error {
	fc.scope.enterBlock()
	defer fc.scope.exitBlock()

	if err := fc.compileExpr(n.Iterable); err != nil {
		return err
	}
	sub := bytecode.IntrinsicGetIterator
	if n.Kind == ast.ForIn {
		sub = bytecode.IntrinsicGetKeyIterator
	}
	fc.b.EmitByte(bytecode.IntrinsicOp, byte(sub))
	iterSlot, err := fc.scope.declare(0, ast.DeclLet) // anonymous compiler temp
	if err != nil {
		return err
	}
	fc.b.EmitOperand(bytecode.StoreLocal, iterSlot)
	fc.b.Emit(bytecode.Pop)

	var bindSlot int
	if n.IsDecl {
		bindSlot, err = fc.scope.declare(n.Name, n.BindKind)
		if err != nil {
			return err
		}
	}

	headLabel := fc.b.Label()
	breakLabel, continueLabel := fc.pushLoop(label)
	defer fc.popLoop()

	fc.b.PlaceLabel(headLabel)
	fc.b.PlaceLabel(continueLabel)
	fc.b.EmitOperand(bytecode.LdLocal, iterSlot)
	fc.b.EmitByte(bytecode.IntrinsicOp, byte(bytecode.IntrinsicIterNext))
	// intrinsicIterNext pushes the next value then a false done-flag on top,
	// or only a true flag once the iterator is exhausted, so the loop can
	// JmpTrueP on done without a temporary object allocation.
	fc.b.EmitJump(bytecode.JmpTrueP, breakLabel)
	if n.IsDecl {
		fc.b.EmitOperand(bytecode.StoreLocal, bindSlot)
		fc.b.Emit(bytecode.Pop)
	} else {
		if err := fc.compileAssignTarget(n.Target); err != nil {
			return err
		}
	}
	if err := fc.compileStmt(n.Body); err != nil {
		return err
	}
	fc.b.EmitJump(bytecode.Jmp, headLabel)
	fc.b.PlaceLabel(breakLabel)
	return nil
}

func (fc *fnCompiler) compileLabeled(n *ast.LabeledStmt) error {
	switch body := n.Body.(type) {
	case *ast.WhileStmt:
		body.Label = n.Label
		return fc.compileWhile(body, n.Label)
	case *ast.DoWhileStmt:
		body.Label = n.Label
		return fc.compileDoWhile(body, n.Label)
	case *ast.ForStmt:
		body.Label = n.Label
		return fc.compileFor(body, n.Label)
	case *ast.ForEachStmt:
		body.Label = n.Label
		return fc.compileForEach(body, n.Label)
	default:
		// A label on a non-loop statement only matters for `break label;`
		// targeting it; model it as a single-iteration loop whose body is
		// the statement and whose "continue" is unreachable.
		breakLabel, _ := fc.pushLoop(n.Label)
		defer fc.popLoop()
		if err := fc.compileStmt(n.Body); err != nil {
			return err
		}
		fc.b.PlaceLabel(breakLabel)
		return nil
	}
}

// compileSwitch implements §4.5's fall-through desugaring: the discriminant
// is evaluated once into a temp local, each case re-loads it and compares
// StrictEq, falling through via JmpFalseP chains to the next case test.
func (fc *fnCompiler) compileSwitch(n *ast.SwitchStmt) error {
	fc.scope.enterBlock()
	defer fc.scope.exitBlock()

	if err := fc.compileExpr(n.Disc); err != nil {
		return err
	}
	tmpSlot, err := fc.scope.declare(0, ast.DeclLet)
	if err != nil {
		return err
	}
	fc.b.EmitOperand(bytecode.StoreLocal, tmpSlot)
	fc.b.Emit(bytecode.Pop)

	breakLabel, continueLabel := fc.pushLoop(0)
	_ = continueLabel // switch has no continue target of its own
	defer fc.popLoop()

	bodyLabels := make([]int, len(n.Cases))
	for i := range n.Cases {
		bodyLabels[i] = fc.b.Label()
	}
	defaultIdx := -1
	nextTestLabels := make([]int, len(n.Cases))
	for i := range n.Cases {
		nextTestLabels[i] = fc.b.Label()
	}

	for i, c := range n.Cases {
		fc.b.PlaceLabel(nextTestLabels[i])
		if c.Test == nil {
			defaultIdx = i
			continue
		}
		fc.b.EmitOperand(bytecode.LdLocal, tmpSlot)
		if err := fc.compileExpr(c.Test); err != nil {
			return err
		}
		fc.b.Emit(bytecode.StrictEq)
		next := breakLabel
		if i+1 < len(n.Cases) {
			next = nextTestLabels[i+1]
		}
		fc.b.EmitJump(bytecode.JmpFalseP, next)
		fc.b.EmitJump(bytecode.Jmp, bodyLabels[i])
	}
	if defaultIdx >= 0 {
		fc.b.EmitJump(bytecode.Jmp, bodyLabels[defaultIdx])
	} else {
		fc.b.EmitJump(bytecode.Jmp, breakLabel)
	}

	for i, c := range n.Cases {
		fc.b.PlaceLabel(bodyLabels[i])
		if err := fc.compileStmts(c.Body); err != nil {
			return err
		}
	}
	fc.b.PlaceLabel(breakLabel)
	return nil
}

// compileTry implements §4.5's Try/TryEnd/Throw sequence. fc.tries records
// the enclosing try statements during compilation; unwinding through nested
// tries happens at run time via the VM frame's try-block stack.
func (fc *fnCompiler) compileTry(n *ast.TryStmt) error {
	catchLabel := bytecode.NoLabel
	finLabel := bytecode.NoLabel
	if n.Catch != nil {
		catchLabel = fc.b.Label()
	}
	if n.Finally != nil {
		finLabel = fc.b.Label()
	}
	fc.b.EmitTry(catchLabel, finLabel)
	fc.tries = append(fc.tries, tryCtx{catchLabel: catchLabel, finLabel: finLabel})

	fc.scope.enterBlock()
	if err := fc.compileStmts(n.Block); err != nil {
		fc.scope.exitBlock()
		return err
	}
	fc.scope.exitBlock()
	fc.tries = fc.tries[:len(fc.tries)-1]
	fc.b.Emit(bytecode.TryEnd)

	afterLabel := fc.b.Label()
	fc.b.EmitJump(bytecode.Jmp, afterLabel)

	if n.Catch != nil {
		fc.b.PlaceLabel(catchLabel)
		fc.scope.enterBlock()
		if n.Catch.HasParam {
			slot, err := fc.scope.declare(n.Catch.Param, ast.DeclLet)
			if err != nil {
				fc.scope.exitBlock()
				return err
			}
			fc.b.EmitOperand(bytecode.StoreLocal, slot)
			fc.b.Emit(bytecode.Pop)
		} else {
			fc.b.Emit(bytecode.Pop)
		}
		if err := fc.compileStmts(n.Catch.Body); err != nil {
			fc.scope.exitBlock()
			return err
		}
		fc.scope.exitBlock()
	}

	fc.b.PlaceLabel(afterLabel)
	if n.Finally != nil {
		fc.b.PlaceLabel(finLabel)
		fc.scope.enterBlock()
		err := fc.compileStmts(n.Finally)
		fc.scope.exitBlock()
		if err != nil {
			return err
		}
	}
	return nil
}
