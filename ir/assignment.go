package ir

import "github.com/calyx-lang/calyxgo/guard"

// Assignment is the triple (destination port, source port, guard) that is
// Calyx's only wiring primitive (spec.md §3): when Guard evaluates true,
// Src's value drives Dst.
type Assignment struct {
	Dst   *Port
	Src   *Port
	Guard guard.Handle
}

// IsUnguarded reports whether the assignment's guard is the pool's constant
// True handle — the case spec.md §8 requires to emit as a bare `assign`
// with no mux and no default.
func (a Assignment) IsUnguarded(pool *guard.Pool) bool {
	return a.Guard == pool.TrueHandle()
}
