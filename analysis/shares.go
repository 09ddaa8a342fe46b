package analysis

import "github.com/calyx-lang/calyxgo/ir"

// ShareSet records, for every pair of a component's static groups, whether
// they were ever observed running concurrently under some StaticPar — the
// fact a resource-sharing pass needs before letting two groups reuse the
// same hardware instance or FSM slot. Concurrency is not transitive (A and B
// never running together, and B and C never running together, says nothing
// about A and C), so this is a plain pairwise table, not a partition.
type ShareSet struct {
	conflicts map[*ir.Group]map[*ir.Group]bool
}

// CanShare reports whether a and b were never observed running concurrently,
// and therefore may share one hardware instance.
func (s *ShareSet) CanShare(a, b *ir.Group) bool {
	if a == b {
		return true
	}
	if m, ok := s.conflicts[a]; ok && m[b] {
		return false
	}
	return true
}

// ComputeShareSets walks every StaticPar in c's control tree and marks every
// pair of static groups transitively enabled beneath distinct threads of
// that StaticPar as conflicting, generalizing verify/lint.go's
// port-write-conflict scan (which flagged two instructions writing the same
// PE register in the same timestep) from "same cycle, same register" to
// "same StaticPar, different thread".
func ComputeShareSets(c *ir.Component) *ShareSet {
	s := &ShareSet{conflicts: map[*ir.Group]map[*ir.Group]bool{}}

	var collectEnables func(n ir.Control) []*ir.Group
	collectEnables = func(n ir.Control) []*ir.Group {
		var out []*ir.Group
		switch v := n.(type) {
		case *ir.StaticEnable:
			out = append(out, v.Group)
		case *ir.StaticSeq:
			for _, st := range v.Stmts {
				out = append(out, collectEnables(st)...)
			}
		case *ir.StaticPar:
			for _, st := range v.Stmts {
				out = append(out, collectEnables(st)...)
			}
		case *ir.StaticIf:
			out = append(out, collectEnables(v.True)...)
			out = append(out, collectEnables(v.False)...)
		case *ir.StaticRepeat:
			out = append(out, collectEnables(v.Body)...)
		}
		return out
	}

	mark := func(a, b *ir.Group) {
		if a == b {
			return
		}
		if s.conflicts[a] == nil {
			s.conflicts[a] = map[*ir.Group]bool{}
		}
		if s.conflicts[b] == nil {
			s.conflicts[b] = map[*ir.Group]bool{}
		}
		s.conflicts[a][b] = true
		s.conflicts[b][a] = true
	}

	var walk func(n ir.Control)
	walk = func(n ir.Control) {
		if n == nil {
			return
		}
		if par, ok := n.(*ir.StaticPar); ok {
			threads := make([][]*ir.Group, len(par.Stmts))
			for i, st := range par.Stmts {
				threads[i] = collectEnables(st)
			}
			for i := range threads {
				for j := i + 1; j < len(threads); j++ {
					for _, a := range threads[i] {
						for _, b := range threads[j] {
							mark(a, b)
						}
					}
				}
			}
		}
		switch v := n.(type) {
		case *ir.Seq:
			for _, st := range v.Stmts {
				walk(st)
			}
		case *ir.StaticSeq:
			for _, st := range v.Stmts {
				walk(st)
			}
		case *ir.Par:
			for _, st := range v.Stmts {
				walk(st)
			}
		case *ir.StaticPar:
			for _, st := range v.Stmts {
				walk(st)
			}
		case *ir.If:
			walk(v.True)
			walk(v.False)
		case *ir.StaticIf:
			walk(v.True)
			walk(v.False)
		case *ir.While:
			walk(v.Body)
		case *ir.Repeat:
			walk(v.Body)
		case *ir.StaticRepeat:
			walk(v.Body)
		}
	}
	walk(c.Control)

	return s
}
