package ir

import (
	"fmt"

	"github.com/calyx-lang/calyxgo/diag"
)

// Validate checks every structural invariant spec.md §3 lists, returning
// every violation found (not just the first) so a caller — typically the
// traversal framework between passes — can report them all at once.
func Validate(c *Component) []*diag.Diagnostic {
	var errs []*diag.Diagnostic

	reachable := reachablePorts(c)
	errs = append(errs, validatePortReachability(c, reachable)...)
	errs = append(errs, validateHoleOwnership(c)...)
	errs = append(errs, validateCombAcyclic(c)...)
	errs = append(errs, validateControlScope(c)...)
	errs = append(errs, ValidateStaticLatencies(c.Control)...)

	return errs
}

func reachablePorts(c *Component) map[*Port]bool {
	out := make(map[*Port]bool)
	for _, p := range c.Signature.Ports {
		out[p] = true
	}
	for _, cell := range c.Cells {
		for _, p := range cell.Ports {
			out[p] = true
		}
	}
	for _, g := range c.AllGroups() {
		if g.Go != nil {
			out[g.Go] = true
		}
		if g.Done != nil {
			out[g.Done] = true
		}
	}
	return out
}

func validatePortReachability(c *Component, reachable map[*Port]bool) []*diag.Diagnostic {
	var errs []*diag.Diagnostic
	check := func(scope string, a Assignment) {
		if a.Dst != nil && !reachable[a.Dst] {
			errs = append(errs, diag.New(diag.MalformedStructure,
				"assignment in %s writes unreachable port %q", scope, a.Dst.QualifiedName()))
		}
		if a.Src != nil && !reachable[a.Src] {
			errs = append(errs, diag.New(diag.MalformedStructure,
				"assignment in %s reads unreachable port %q", scope, a.Src.QualifiedName()))
		}
	}
	for _, a := range c.Continuous {
		check("continuous assignments", a)
	}
	for _, g := range c.AllGroups() {
		for _, a := range g.Assignments {
			check(fmt.Sprintf("group %q", g.Name.Name()), a)
		}
	}
	for _, g := range c.CombGroups {
		for _, a := range g.Assignments {
			check(fmt.Sprintf("comb group %q", g.Name.Name()), a)
		}
	}
	return errs
}

// validateHoleOwnership enforces "a group contains no assignments to holes
// of a different group".
func validateHoleOwnership(c *Component) []*diag.Diagnostic {
	var errs []*diag.Diagnostic
	for _, g := range c.AllGroups() {
		for _, a := range g.Assignments {
			if a.Dst != nil && a.Dst.IsHole() && a.Dst.Parent.Group != g {
				errs = append(errs, diag.New(diag.MalformedStructure,
					"group %q assigns to hole %q owned by a different group",
					g.Name.Name(), a.Dst.QualifiedName()))
			}
		}
	}
	// continuous assignments may never target any group's hole.
	for _, a := range c.Continuous {
		if a.Dst != nil && a.Dst.IsHole() {
			errs = append(errs, diag.New(diag.MalformedStructure,
				"continuous assignment writes hole %q", a.Dst.QualifiedName()))
		}
	}
	return errs
}

// validateCombAcyclic enforces "no combinational cycles" within each
// combinational group: no assignment whose source transitively depends on a
// stateful output within the same cycle. We approximate "stateful output"
// as any port belonging to a non-combinational cell (one with a go/done
// pair) and walk the comb-group's own dst->src edges for a cycle among
// purely-combinational ports.
func validateCombAcyclic(c *Component) []*diag.Diagnostic {
	var errs []*diag.Diagnostic
	for _, g := range c.CombGroups {
		edges := make(map[*Port][]*Port)
		for _, a := range g.Assignments {
			if a.Src != nil && a.Src.Parent.Kind == ParentCell && a.Src.Parent.Cell != nil && !a.Src.Parent.Cell.IsComb() {
				continue // stateful source: starts a fresh cycle, not part of the comb fan-in
			}
			edges[a.Dst] = append(edges[a.Dst], a.Src)
		}
		const (
			white = 0
			gray  = 1
			black = 2
		)
		color := make(map[*Port]int)
		var cyclePort *Port
		var visit func(p *Port) bool
		visit = func(p *Port) bool {
			color[p] = gray
			for _, next := range edges[p] {
				switch color[next] {
				case gray:
					cyclePort = next
					return true
				case white:
					if visit(next) {
						return true
					}
				}
			}
			color[p] = black
			return false
		}
		for dst := range edges {
			if color[dst] == white && visit(dst) {
				name := "<unknown>"
				if cyclePort != nil {
					name = cyclePort.QualifiedName()
				}
				errs = append(errs, diag.New(diag.MalformedStructure,
					"combinational cycle in comb group %q through port %q", g.Name.Name(), name))
				break
			}
		}
	}
	return errs
}

// validateControlScope enforces "control nodes may refer only to
// groups/cells of the enclosing component".
func validateControlScope(c *Component) []*diag.Diagnostic {
	var errs []*diag.Diagnostic
	groupSet := make(map[*Group]bool)
	for _, g := range c.AllGroups() {
		groupSet[g] = true
	}
	combSet := make(map[*CombGroup]bool)
	for _, g := range c.CombGroups {
		combSet[g] = true
	}
	cellSet := make(map[*Cell]bool)
	for _, cell := range c.Cells {
		cellSet[cell] = true
	}

	var walk func(n Control)
	walk = func(n Control) {
		switch v := n.(type) {
		case nil:
			return
		case *Enable:
			if !groupSet[v.Group] {
				errs = append(errs, diag.New(diag.MalformedStructure, "enable refers to a group outside the component"))
			}
		case *StaticEnable:
			if !groupSet[v.Group] {
				errs = append(errs, diag.New(diag.MalformedStructure, "static enable refers to a group outside the component"))
			}
		case *Invoke:
			if !cellSet[v.Cell] && !v.Cell.Reference {
				errs = append(errs, diag.New(diag.MalformedStructure, "invoke refers to a cell outside the component"))
			}
		case *Seq:
			for _, s := range v.Stmts {
				walk(s)
			}
		case *Par:
			for _, s := range v.Stmts {
				walk(s)
			}
		case *If:
			if v.CombGroup != nil && !combSet[v.CombGroup] {
				errs = append(errs, diag.New(diag.MalformedStructure, "if refers to a comb group outside the component"))
			}
			walk(v.True)
			walk(v.False)
		case *While:
			if v.CombGroup != nil && !combSet[v.CombGroup] {
				errs = append(errs, diag.New(diag.MalformedStructure, "while refers to a comb group outside the component"))
			}
			walk(v.Body)
		case *Repeat:
			walk(v.Body)
		case *StaticSeq:
			for _, s := range v.Stmts {
				walk(s)
			}
		case *StaticPar:
			for _, s := range v.Stmts {
				walk(s)
			}
		case *StaticIf:
			walk(v.True)
			walk(v.False)
		case *StaticRepeat:
			walk(v.Body)
		}
	}
	walk(c.Control)
	return errs
}

// ValidateStaticLatencies checks the invariant that a static control node's
// declared latency is consistent with the latencies of its constituents
// (spec.md §3): StaticSeq = sum, StaticPar = max, StaticRepeat = n*body,
// StaticIf = max(branches).
func ValidateStaticLatencies(c Control) []*diag.Diagnostic {
	var errs []*diag.Diagnostic
	var walk func(n Control) (uint64, bool)
	walk = func(n Control) (uint64, bool) {
		switch v := n.(type) {
		case nil:
			return 0, true
		case *Empty:
			return 0, true
		case *StaticEnable:
			return v.Latency, true
		case *StaticInvoke:
			return v.Latency, true
		case *StaticSeq:
			var sum uint64
			for _, s := range v.Stmts {
				lat, ok := walk(s)
				if !ok {
					return 0, false
				}
				sum += lat
			}
			if sum != v.Latency {
				errs = append(errs, diag.New(diag.MalformedStructure,
					"static seq declares latency %d but constituents sum to %d", v.Latency, sum))
			}
			return v.Latency, true
		case *StaticPar:
			var max uint64
			for _, s := range v.Stmts {
				lat, ok := walk(s)
				if !ok {
					return 0, false
				}
				if lat > max {
					max = lat
				}
			}
			if max != v.Latency {
				errs = append(errs, diag.New(diag.MalformedStructure,
					"static par declares latency %d but longest thread is %d", v.Latency, max))
			}
			return v.Latency, true
		case *StaticIf:
			t, ok1 := walk(v.True)
			f, ok2 := walk(v.False)
			if !ok1 || !ok2 {
				return 0, false
			}
			max := t
			if f > max {
				max = f
			}
			if max != v.Latency {
				errs = append(errs, diag.New(diag.MalformedStructure,
					"static if declares latency %d but branches give %d", v.Latency, max))
			}
			return v.Latency, true
		case *StaticRepeat:
			bodyLat, ok := walk(v.Body)
			if !ok {
				return 0, false
			}
			want := v.Num * bodyLat
			if want != v.Latency {
				errs = append(errs, diag.New(diag.MalformedStructure,
					"static repeat declares latency %d but %d x %d = %d", v.Latency, v.Num, bodyLat, want))
			}
			return v.Latency, true
		default:
			// dynamic node: not subject to static-latency checking, but it
			// also cannot nest inside a static node — caller already
			// wouldn't reach here from a static parent.
			return 0, false
		}
	}
	walk(c)
	return errs
}
