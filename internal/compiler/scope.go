package compiler

import (
	"github.com/dashlang/dash/ast"
	"github.com/dashlang/dash/internal/dasherr"
	"github.com/dashlang/dash/internal/interner"
)

// local is one binding in a function scope's linear local vector (§3
// "Scope").
type local struct {
	name     interner.Symbol
	kind     ast.DeclKind
	isExtern bool
	slot     int
	depth    int
}

// bindingKind tags how scope.resolve found a name, driving which opcode the
// caller emits.
type bindingKind byte

const (
	bindLocal bindingKind = iota
	bindExternal
	bindGlobal
)

// funcScope is the compile-time scope record for one function being
// compiled (§4.5 "Scope management"). Lookup walks outward: current
// function's locals, then each enclosing funcScope's locals (marking the
// found local is_extern and recording an external descriptor indexed by
// outer slot id).
type funcScope struct {
	parent *funcScope

	locals     []local
	blockDepth int

	// externals records, in the order first referenced, which outer local
	// (or outer external) this function captures; index into this slice is
	// the External operand the compiler emits for LdLocalExt/StoreLocalExt.
	externals []externalCapture
	// externalIndex dedups repeated captures of the same outer binding.
	externalIndex map[capKey]int

	maxSlot int
}

type capKey struct {
	outer *funcScope
	slot  int
	fromExternal bool
}

type externalCapture struct {
	localID          int
	isNestedExternal bool
}

func newFuncScope(parent *funcScope) *funcScope {
	return &funcScope{parent: parent, externalIndex: make(map[capKey]int)}
}

// enterBlock/exitBlock track nesting depth only; locals are not removed on
// block exit because each local's slot stays live for the remainder of the
// function (the compiler does not reuse slots across sibling blocks, trading
// a few extra local slots for a simpler allocator).
func (s *funcScope) enterBlock() { s.blockDepth++ }
func (s *funcScope) exitBlock()  { s.blockDepth-- }

// declare allocates a new local slot for name at the current block depth.
func (s *funcScope) declare(name interner.Symbol, kind ast.DeclKind) (int, error) {
	if len(s.locals) >= 1<<16-1 {
		return 0, dasherr.ErrLocalOverflow
	}
	slot := len(s.locals)
	s.locals = append(s.locals, local{name: name, kind: kind, slot: slot, depth: s.blockDepth})
	if slot > s.maxSlot {
		s.maxSlot = slot
	}
	return slot, nil
}

// findOwn looks up name among this scope's own locals only, most-recent
// declaration first (shadowing in nested blocks).
func (s *funcScope) findOwn(name interner.Symbol) (int, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if s.locals[i].name == name {
			return i, true
		}
	}
	return -1, false
}

// resolve implements §4.5's lookup: own locals first, then each enclosing
// function's locals/externals, marking captured outer locals is_extern and
// returning the capture chain's external index for this function.
func (s *funcScope) resolve(name interner.Symbol) (slot int, kind bindingKind) {
	if i, ok := s.findOwn(name); ok {
		return i, bindLocal
	}
	if s.parent == nil {
		return 0, bindGlobal
	}
	outerSlot, outerKind := s.parent.resolve(name)
	switch outerKind {
	case bindGlobal:
		return 0, bindGlobal
	case bindLocal:
		s.parent.locals[outerSlot].isExtern = true
		return s.captureExternal(capKey{outer: s.parent, slot: outerSlot, fromExternal: false}, outerSlot, false), bindExternal
	default: // bindExternal: the parent itself captured this name from further out
		return s.captureExternal(capKey{outer: s.parent, slot: outerSlot, fromExternal: true}, outerSlot, true), bindExternal
	}
}

func (s *funcScope) captureExternal(key capKey, localID int, fromExternal bool) int {
	if idx, ok := s.externalIndex[key]; ok {
		return idx
	}
	idx := len(s.externals)
	s.externals = append(s.externals, externalCapture{localID: localID, isNestedExternal: fromExternal})
	s.externalIndex[key] = idx
	return idx
}

// isConstLocal reports whether name resolves to a local declared `const`,
// either in this function or in an enclosing one (a captured external).
// The declaration's initializer is the sole permitted assignment and is
// compiled through compileVarDecl, never through an AssignExpr, so any
// AssignExpr target that resolves here is necessarily a reassignment.
// Globals are not const-checked.
func (s *funcScope) isConstLocal(name interner.Symbol) (isConst bool, isLocal bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if i, ok := sc.findOwn(name); ok {
			return sc.locals[i].kind == ast.DeclConst, true
		}
	}
	return false, false
}
