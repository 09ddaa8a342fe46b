package passes

import "github.com/calyx-lang/calyxgo/ir"

// Window is the half-open cycle interval [Lo, Hi) during which a static
// group or transition is active, relative to the start of the enclosing
// static control node.
type Window struct {
	Lo, Hi uint64
}

// Enable is one row of a top-down static timing schedule: a static group
// active during Window.
type Enable struct {
	Group  *ir.Group
	Window Window
}

// Schedule is the flattened top-down static timing (TDST) table for one
// static control tree: every static group it (transitively) enables, paired
// with the absolute cycle window during which it is active. It is a
// standalone analysis: neither AllocateFSM nor the Verilog backend reads it.
type Schedule struct {
	Enables     []Enable
	TotalCycles uint64
}

// BuildSchedule computes the TDST table for a static control node, assigning
// absolute windows top-down the way spec.md §4.6 describes: a StaticSeq's
// children each get the running offset advanced by the prior child's
// latency; a StaticPar's children all start at the parent's own offset;
// StaticRepeat unrolls its body Num times, each copy offset by one body
// latency; StaticIf keeps both branches' windows (only one is truly active
// per run, but both need seats reserved since either may run).
func BuildSchedule(root ir.Control) *Schedule {
	lat, ok := ir.StaticLatency(root)
	if !ok {
		return &Schedule{}
	}
	s := &Schedule{TotalCycles: lat}
	build(root, 0, s)
	return s
}

func build(n ir.Control, offset uint64, s *Schedule) {
	switch v := n.(type) {
	case nil, *ir.Empty:
		return
	case *ir.StaticEnable:
		s.Enables = append(s.Enables, Enable{Group: v.Group, Window: Window{Lo: offset, Hi: offset + v.Latency}})
	case *ir.StaticSeq:
		cur := offset
		for _, st := range v.Stmts {
			build(st, cur, s)
			lat, _ := ir.StaticLatency(st)
			cur += lat
		}
	case *ir.StaticPar:
		for _, st := range v.Stmts {
			build(st, offset, s)
		}
	case *ir.StaticIf:
		build(v.True, offset, s)
		build(v.False, offset, s)
	case *ir.StaticRepeat:
		bodyLat, _ := ir.StaticLatency(v.Body)
		for i := uint64(0); i < v.Num; i++ {
			build(v.Body, offset+i*bodyLat, s)
		}
	}
}
