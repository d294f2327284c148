// Package heap implements the host-resident handle table: a mapping from
// small opaque integers to arbitrary host values.
//
// Six reserved handles (null, undefined, true, false, +infinity, NaN) are
// permanent constants that never occupy table slots. All other handles
// pack a slot index and a generation; freeing a slot bumps its generation,
// making stale handles detectably invalid rather than undefined behavior.
//
// One heap is shared by all concurrently in-flight requests. Handles are
// created by primitives that produce new values and destroyed only by
// explicit guest frees; per-request Scopes reclaim and report whatever a
// request leaks.
package heap
