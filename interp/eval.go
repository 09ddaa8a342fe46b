package interp

import (
	"github.com/calyx-lang/calyxgo/guard"
	"github.com/calyx-lang/calyxgo/ident"
)

// guardCache memoizes one settle pass's guard evaluations against a single
// State, since the same handle is typically read by several assignments and
// guard trees can nest arbitrarily deep (spec.md §4.9 "memoized per cycle").
type guardCache struct {
	state *State
	cache map[guard.Handle]bool
	seen  map[guard.Handle]bool
}

func newGuardCache(state *State) *guardCache {
	return &guardCache{state: state, cache: map[guard.Handle]bool{}, seen: map[guard.Handle]bool{}}
}

// Eval computes whether h currently holds, reading live port values off the
// cache's State.
func (g *guardCache) Eval(h guard.Handle) bool {
	if h == 0 {
		return true
	}
	if g.seen[h] {
		return g.cache[h]
	}
	pool := g.state.Prog.Guards
	f := pool.Get(h)
	var result bool
	switch f.Kind {
	case guard.KindTrue:
		result = true
	case guard.KindPort:
		result = g.portBit(f.Port)
	case guard.KindNot:
		result = !g.Eval(f.L)
	case guard.KindAnd:
		result = g.Eval(f.L) && g.Eval(f.R)
	case guard.KindOr:
		result = g.Eval(f.L) || g.Eval(f.R)
	case guard.KindComp:
		result = g.compare(f)
	case guard.KindInfo:
		result = uint64(f.Info.Lo) <= g.state.Cycle() && g.state.Cycle() < f.Info.Hi
	}
	g.cache[h] = result
	g.seen[h] = true
	return result
}

func (g *guardCache) portBit(id ident.ID) bool {
	idx, ok := g.state.Prog.IdentPort[id]
	if !ok {
		return false
	}
	return g.state.Get(idx) != 0
}

func (g *guardCache) compare(f guard.Flat) bool {
	lhsIdx, ok1 := g.state.Prog.IdentPort[f.Port]
	rhsIdx, ok2 := g.state.Prog.IdentPort[f.Rhs]
	if !ok1 || !ok2 {
		return false
	}
	lhs, rhs := g.state.Get(lhsIdx), g.state.Get(rhsIdx)
	switch f.Op {
	case guard.Eq:
		return lhs == rhs
	case guard.Neq:
		return lhs != rhs
	case guard.Lt:
		return lhs < rhs
	case guard.Gt:
		return lhs > rhs
	case guard.Le:
		return lhs <= rhs
	case guard.Ge:
		return lhs >= rhs
	default:
		return false
	}
}
