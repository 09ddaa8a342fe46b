// Package analysis computes read-only facts about a Component's control tree
// and wiring: dominance, static-latency soundness, and group share-sets,
// generalized from verify/lint.go's fixed-point structural checks over a
// CGRA program into per-control-node facts over a Calyx control tree.
package analysis

import (
	"github.com/calyx-lang/calyxgo/ir"
)

// DomMap maps a control node's NodeID to the set of NodeIDs guaranteed to
// have run before it (every control-flow path from the root to that node
// passes through each dominator), including the node itself, plus the exit
// points and contents needed to answer read/write queries about a subtree.
type DomMap struct {
	doms  map[ir.NodeID]map[ir.NodeID]bool
	exits map[ir.NodeID][]ir.NodeID
	nodes map[ir.NodeID]ir.Control
	all   []ir.NodeID
}

// Dominates reports whether a dominates b (a == b counts as dominating).
func (d *DomMap) Dominates(a, b ir.NodeID) bool {
	set, ok := d.doms[b]
	if !ok {
		return false
	}
	return set[a]
}

// Dominators returns the set of nodes dominating n, including n.
func (d *DomMap) Dominators(n ir.NodeID) map[ir.NodeID]bool {
	return d.doms[n]
}

// ExitsOf returns the node ids through which control provably leaves n's
// subtree — the set a Seq's next statement (or whatever follows n) unions
// the dominator sets of to build its own incoming dominator set.
func (d *DomMap) ExitsOf(n ir.NodeID) []ir.NodeID {
	return append([]ir.NodeID(nil), d.exits[n]...)
}

// ComputeDominance builds a DomMap over c's control tree by propagating a
// guaranteed-predecessor dominator set down through the tree (spec.md §4.3):
// dom(n) = {n} ∪ ⋃ dom(p) over n's guaranteed predecessors p. Two rules are
// special-cased relative to a plain "union of guaranteed predecessors' exits"
// walk:
//
//   - While: the body's predecessor is the While node itself only — no
//     back-edge from the body's own exit, since a guard that only evaluated
//     true zero times never ran the body at all; likewise the node(s) after
//     a While are dominated by the While node alone, not by anything inside
//     its body.
//   - If: both branches are dominated by the If node (having evaluated its
//     guard) plus everything before it, but the synthetic join after the If
//     is dominated by the If node alone — not by either branch — since which
//     branch ran is not known statically.
//
// Seq and Par do not need special-casing: a Seq's statement i+1 is dominated
// by everything dominating statement i's exit(s); a Par's continuation is
// dominated by the union of every thread's exit(s), since Par only completes
// once every thread has.
func ComputeDominance(c *ir.Component) *DomMap {
	d := &DomMap{
		doms:  map[ir.NodeID]map[ir.NodeID]bool{},
		exits: map[ir.NodeID][]ir.NodeID{},
		nodes: map[ir.NodeID]ir.Control{},
	}
	visitDom(c.Control, map[ir.NodeID]bool{}, d)
	return d
}

func visitDom(n ir.Control, inDom map[ir.NodeID]bool, d *DomMap) []ir.NodeID {
	if n == nil {
		return nil
	}
	id := n.NodeID()
	set := make(map[ir.NodeID]bool, len(inDom)+1)
	for a := range inDom {
		set[a] = true
	}
	set[id] = true
	d.doms[id] = set
	d.nodes[id] = n
	d.all = append(d.all, id)

	var exits []ir.NodeID
	switch v := n.(type) {
	case *ir.Seq:
		exits = visitSeq(v.Stmts, set, d, id)
	case *ir.StaticSeq:
		exits = visitSeq(v.Stmts, set, d, id)
	case *ir.Par:
		exits = visitPar(v.Stmts, set, d, id)
	case *ir.StaticPar:
		exits = visitPar(v.Stmts, set, d, id)
	case *ir.If:
		visitDom(v.True, set, d)
		visitDom(v.False, set, d)
		exits = []ir.NodeID{id}
	case *ir.StaticIf:
		visitDom(v.True, set, d)
		visitDom(v.False, set, d)
		exits = []ir.NodeID{id}
	case *ir.While:
		// external-only predecessor: the body never inherits its own prior
		// exit, since the guard may have been false on the very first check.
		visitDom(v.Body, set, d)
		exits = []ir.NodeID{id}
	case *ir.Repeat:
		exits = visitUnconditionalLoop(v.Body, set, d, id)
	case *ir.StaticRepeat:
		exits = visitUnconditionalLoop(v.Body, set, d, id)
	default: // Empty, Enable, StaticEnable, Invoke, StaticInvoke
		exits = []ir.NodeID{id}
	}
	d.exits[id] = exits
	return exits
}

// visitSeq threads each statement's exits into the next statement's incoming
// dominator set, and reports the last statement's exits as the Seq's own
// (an empty Seq behaves like Empty and exits through itself).
func visitSeq(stmts []ir.Control, inDom map[ir.NodeID]bool, d *DomMap, seqID ir.NodeID) []ir.NodeID {
	cur := inDom
	var last []ir.NodeID
	for _, s := range stmts {
		last = visitDom(s, cur, d)
		cur = unionDoms(last, d)
	}
	if last == nil {
		return []ir.NodeID{seqID}
	}
	return last
}

// visitPar starts every thread from the same incoming dominator set (they
// all run concurrently from the same entry point) and reports the union of
// every thread's exits, since Par only completes once all threads have.
func visitPar(stmts []ir.Control, inDom map[ir.NodeID]bool, d *DomMap, parID ir.NodeID) []ir.NodeID {
	var all []ir.NodeID
	for _, s := range stmts {
		all = append(all, visitDom(s, inDom, d)...)
	}
	if all == nil {
		return []ir.NodeID{parID}
	}
	return all
}

// visitUnconditionalLoop handles Repeat/StaticRepeat: unlike While, the
// iteration count is a compile-time constant baked into the node, so (for
// Num >= 1) the body is guaranteed to run and its exits dominate whatever
// follows — no special-casing needed since the body is the same node on
// every iteration and a single pass already reflects the fixed point.
func visitUnconditionalLoop(body ir.Control, inDom map[ir.NodeID]bool, d *DomMap, loopID ir.NodeID) []ir.NodeID {
	exits := visitDom(body, inDom, d)
	if exits == nil {
		return []ir.NodeID{loopID}
	}
	return exits
}

func unionDoms(ids []ir.NodeID, d *DomMap) map[ir.NodeID]bool {
	out := map[ir.NodeID]bool{}
	for _, id := range ids {
		for a := range d.doms[id] {
			out[a] = true
		}
	}
	return out
}

// NodeReads returns the subset of candidates read somewhere in node id's
// subtree: a group's assignment sources, an Invoke's input bindings, or an
// If/While's own guard port. Used by sharing/scheduling passes that need to
// know which of a restricted set of cells a node might observe.
func (d *DomMap) NodeReads(id ir.NodeID, candidates map[*ir.Cell]bool) map[*ir.Cell]bool {
	out := map[*ir.Cell]bool{}
	if n, ok := d.nodes[id]; ok {
		collectReads(n, candidates, out)
	}
	return out
}

func collectReads(n ir.Control, candidates map[*ir.Cell]bool, out map[*ir.Cell]bool) {
	switch v := n.(type) {
	case nil, *ir.Empty:
		return
	case *ir.Enable:
		collectGroupReads(v.Group.Assignments, candidates, out)
	case *ir.StaticEnable:
		collectGroupReads(v.Group.Assignments, candidates, out)
	case *ir.Invoke:
		for _, b := range v.Inputs {
			addPortTo(b.Src, candidates, out)
		}
	case *ir.StaticInvoke:
		for _, b := range v.Inputs {
			addPortTo(b.Src, candidates, out)
		}
	case *ir.Seq:
		for _, s := range v.Stmts {
			collectReads(s, candidates, out)
		}
	case *ir.StaticSeq:
		for _, s := range v.Stmts {
			collectReads(s, candidates, out)
		}
	case *ir.Par:
		for _, s := range v.Stmts {
			collectReads(s, candidates, out)
		}
	case *ir.StaticPar:
		for _, s := range v.Stmts {
			collectReads(s, candidates, out)
		}
	case *ir.If:
		addPortTo(v.Port, candidates, out)
		collectReads(v.True, candidates, out)
		collectReads(v.False, candidates, out)
	case *ir.StaticIf:
		addPortTo(v.Port, candidates, out)
		collectReads(v.True, candidates, out)
		collectReads(v.False, candidates, out)
	case *ir.While:
		addPortTo(v.Port, candidates, out)
		collectReads(v.Body, candidates, out)
	case *ir.Repeat:
		collectReads(v.Body, candidates, out)
	case *ir.StaticRepeat:
		collectReads(v.Body, candidates, out)
	}
}

func collectGroupReads(assigns []ir.Assignment, candidates map[*ir.Cell]bool, out map[*ir.Cell]bool) {
	for _, a := range assigns {
		addPortTo(a.Src, candidates, out)
	}
}

func addPortTo(p *ir.Port, candidates map[*ir.Cell]bool, out map[*ir.Cell]bool) {
	if p == nil || p.Parent.Kind != ir.ParentCell || p.Parent.Cell == nil {
		return
	}
	if candidates[p.Parent.Cell] {
		out[p.Parent.Cell] = true
	}
}

// KeyWrittenGuaranteed reports whether cell is written by at least one of
// the nodes in ids — typically a dominator set from Dominators, used to
// decide whether a cell's state at some program point is guaranteed to have
// been freshly written by a node already known to have run.
func (d *DomMap) KeyWrittenGuaranteed(cell *ir.Cell, ids []ir.NodeID) bool {
	for _, id := range ids {
		if n, ok := d.nodes[id]; ok && nodeWrites(n, cell) {
			return true
		}
	}
	return false
}

func nodeWrites(n ir.Control, cell *ir.Cell) bool {
	switch v := n.(type) {
	case *ir.Enable:
		return groupWrites(v.Group.Assignments, cell)
	case *ir.StaticEnable:
		return groupWrites(v.Group.Assignments, cell)
	case *ir.Invoke:
		return bindingsWrite(v.Outputs, cell)
	case *ir.StaticInvoke:
		return bindingsWrite(v.Outputs, cell)
	default:
		return false
	}
}

func groupWrites(assigns []ir.Assignment, cell *ir.Cell) bool {
	for _, a := range assigns {
		if portOwnedBy(a.Dst, cell) {
			return true
		}
	}
	return false
}

func bindingsWrite(bindings []ir.PortBinding, cell *ir.Cell) bool {
	for _, b := range bindings {
		if portOwnedBy(b.Src, cell) {
			return true
		}
	}
	return false
}

func portOwnedBy(p *ir.Port, cell *ir.Cell) bool {
	return p != nil && p.Parent.Kind == ir.ParentCell && p.Parent.Cell == cell
}

// StaticParSiblings reports whether a and b are both direct children of the
// same StaticPar node — the structural check passes use to decide whether a
// domination-based scheduling refinement (two static threads of the same
// StaticPar never need mutual exclusion, since they provably run in the same
// window) applies: a structural same-parent check rather than a purely
// dominance-based one.
func StaticParSiblings(c *ir.Component, a, b ir.NodeID) bool {
	var parent ir.NodeID
	found := false
	var walk func(n ir.Control)
	walk = func(n ir.Control) {
		if n == nil || found {
			return
		}
		if par, ok := n.(*ir.StaticPar); ok {
			hasA, hasB := false, false
			for _, s := range par.Stmts {
				if s.NodeID() == a {
					hasA = true
				}
				if s.NodeID() == b {
					hasB = true
				}
			}
			if hasA && hasB {
				parent = par.NodeID()
				found = true
				return
			}
			for _, s := range par.Stmts {
				walk(s)
			}
			return
		}
		switch v := n.(type) {
		case *ir.Seq:
			for _, s := range v.Stmts {
				walk(s)
			}
		case *ir.StaticSeq:
			for _, s := range v.Stmts {
				walk(s)
			}
		case *ir.Par:
			for _, s := range v.Stmts {
				walk(s)
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
	_ = parent
	return found
}
