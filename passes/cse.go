package passes

import (
	"github.com/calyx-lang/calyxgo/guard"
	"github.com/calyx-lang/calyxgo/ir"
)

// cseKey identifies one fully-specified assignment (destination, source,
// guard): a group that lists the identical triple twice is driving the same
// wire from the same value under the same condition redundantly, the
// Calyx analogue of calyx-opt/src/passes_experimental/cse_exp.rs collapsing
// two basic-block instructions that recompute the same value.
type cseKey struct {
	dst   *ir.Port
	src   *ir.Port
	guard guard.Handle
}

// CSE removes assignments that exactly duplicate an earlier one (same
// destination, source, and guard) within the same group or comb group.
// Assignments to the same destination under different guards or from
// different sources are never touched — only byte-for-byte redundant wiring
// is eliminated.
func CSE(c *ir.Component) error {
	for _, g := range c.AllGroups() {
		g.Assignments = dedupAssignments(g.Assignments)
	}
	for _, g := range c.CombGroups {
		g.Assignments = dedupAssignments(g.Assignments)
	}
	return nil
}

func dedupAssignments(assigns []ir.Assignment) []ir.Assignment {
	seen := make(map[cseKey]bool, len(assigns))
	out := make([]ir.Assignment, 0, len(assigns))
	for _, a := range assigns {
		key := cseKey{dst: a.Dst, src: a.Src, guard: a.Guard}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
