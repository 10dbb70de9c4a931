package heap

// Unrooted wraps an ObjectId that was just allocated and has not yet been
// registered with a LocalScope. Per §4.2, a function that may return a
// freshly-allocated object returns Unrooted instead of a bare ObjectId; the
// caller must call Root before performing any further operation that could
// itself allocate (and thus trigger a sweep). Go has no linear-type system
// to enforce this structurally, so Unrooted exists purely as a naming
// convention callers are expected to honor immediately — see §9's note that
// implementations without linear types should make every allocating
// operation take a scope, which is the path internal/vm and internal/value
// take everywhere they can.
type Unrooted struct {
	ID ObjectId
}

// Root registers u with scope, returning the now-rooted ObjectId.
func (u Unrooted) Root(scope *LocalScope) ObjectId {
	return scope.root(u.ID)
}

// LocalScope is a stack-tied scratch list of rooted ObjectIds (§4.2). Every
// function that allocates takes a *LocalScope parameter; the scope keeps
// its rooted ids reachable across the current and any nested allocation
// until the scope itself is closed (Pop), at which point its slot returns
// to a free list so LocalScopes are pooled rather than heap-churned on
// every call (§4.2 "scopes are pooled to avoid per-allocation heap
// traffic").
type LocalScope struct {
	pool  *ScopePool
	slot  int
	ids   []ObjectId
	outer *LocalScope
}

// root appends id to the scope's scratch list, rooting it.
func (s *LocalScope) root(id ObjectId) ObjectId {
	s.ids = append(s.ids, id)
	return id
}

// Root is the public entry point used once a value is known not to be
// Unrooted-wrapped (e.g. re-rooting an id fetched off the operand stack
// into a nested scope before a call that may allocate).
func (s *LocalScope) Root(id ObjectId) ObjectId { return s.root(id) }

// Trace visits every ObjectId rooted directly by this scope; a Nested child
// is a separate scope of the pool, traced by ScopePool.Trace. It is part of
// the Heap's root set (§4.2).
func (s *LocalScope) Trace(mark func(ObjectId)) {
	for _, id := range s.ids {
		mark(id)
	}
}

// Nested borrows a fresh child LocalScope from the same pool. Nested scopes
// "borrow-split" per §4.2: the child is independently poppable and its ids
// are additional roots alongside the parent's for as long as both are open.
func (s *LocalScope) Nested() *LocalScope {
	return s.pool.open()
}

// Pop closes the scope, returning its pooled slot to the free list. Any id
// rooted only by this scope (and not also reachable from an outer root) may
// be collected on the next sweep.
func (s *LocalScope) Pop() {
	s.ids = s.ids[:0]
	s.pool.release(s)
}

// ScopePool is the free-list allocator backing LocalScope (§4.2 "scopes are
// pooled"). A VM owns one ScopePool for its lifetime.
type ScopePool struct {
	free []*LocalScope
	openScopes []*LocalScope // all scopes currently checked out, traced as roots
}

// NewScopePool returns an empty pool.
func NewScopePool() *ScopePool {
	return &ScopePool{}
}

// Open checks out a top-level LocalScope.
func (p *ScopePool) Open() *LocalScope { return p.open() }

func (p *ScopePool) open() *LocalScope {
	var s *LocalScope
	if n := len(p.free); n > 0 {
		s = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		s = &LocalScope{pool: p}
	}
	s.ids = s.ids[:0]
	p.openScopes = append(p.openScopes, s)
	return s
}

func (p *ScopePool) release(s *LocalScope) {
	for i, o := range p.openScopes {
		if o == s {
			p.openScopes = append(p.openScopes[:i], p.openScopes[i+1:]...)
			break
		}
	}
	p.free = append(p.free, s)
}

// Trace visits every id rooted by every currently-open scope in the pool;
// this is how "all LocalScope scratch lists currently alive" (§4.2's root
// set) enters a Heap.Sweep call.
func (p *ScopePool) Trace(mark func(ObjectId)) {
	for _, s := range p.openScopes {
		s.Trace(mark)
	}
}
