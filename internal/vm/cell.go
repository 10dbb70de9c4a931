package vm

import "github.com/dashlang/dash/internal/value"

// Cell is the shared storage a captured local is "boxed" into the first
// time any closure captures it (§3 "External-capture descriptor": "a
// shared cell that both the creator and the closure reference"). Once a
// frame boxes local n, every further LdLocal/StoreLocal on slot n in that
// frame reads/writes through the same Cell a nested closure sees via
// LdLocalExt/StoreLocalExt, so the owning frame and its closures always
// observe the same storage.
//
// A Cell is a plain Go pointer, not a heap.ObjectId: it is reachable from
// Go's own GC through the Frame/Closure that holds it, but any value.Value
// it carries may itself be a heap object reference that our tracing
// collector needs to know about, so every root that can reach a live Cell
// traces its value explicitly (see Frame.Trace, Closure.Trace).
type Cell struct {
	V value.Value
}
