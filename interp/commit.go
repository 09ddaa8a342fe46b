package interp

import "github.com/calyx-lang/calyxgo/flatten"

// Commit ticks every stateful cell once: registers latch their `in` input if
// `write_en` was asserted during the preceding Settle, and pipelined
// primitives (std_mult_pipe, std_div_pipe) advance their shift buffer one
// stage, surfacing a result and asserting `done` when a value reaches the
// last stage. Commit is the state-changing half of the cycle spec.md §4.9
// splits from the read-only Settle phase.
func Commit(s *State) {
	for ci := range s.Prog.Cells {
		cell := &s.Prog.Cells[ci]
		switch cell.Proto.PrimitiveName {
		case "std_reg":
			commitRegister(s, ci, cell)
		default:
			if op, ok := PipelinedRegistry[cell.Proto.PrimitiveName]; ok {
				commitPipeline(s, ci, cell, op)
			}
		}
	}
	s.cycle++
}

func findPort(cell *flatten.FlatCell, s *State, name string) (flatten.PortIndex, bool) {
	for _, idx := range cell.Ports {
		if portLocalName(s.Prog.Ports[idx].Name) == name {
			return idx, true
		}
	}
	return 0, false
}

func commitRegister(s *State, ci int, cell *flatten.FlatCell) {
	writeEn, ok := findPort(cell, s, "write_en")
	if !ok {
		return
	}
	in, _ := findPort(cell, s, "in")
	out, _ := findPort(cell, s, "out")
	doneP, hasDone := findPort(cell, s, "done")

	if s.Get(writeEn) != 0 {
		s.Cells[ci].Reg = s.Get(in)
		s.Cells[ci].RegValid = true
		if hasDone {
			s.Set(doneP, 1)
		}
	} else if hasDone {
		s.Set(doneP, 0)
	}
	s.Set(out, s.Cells[ci].Reg)
}

func commitPipeline(s *State, ci int, cell *flatten.FlatCell, op PipelinedOp) {
	goP, hasGo := findPort(cell, s, "go")
	left, _ := findPort(cell, s, "left")
	right, _ := findPort(cell, s, "right")
	out, _ := findPort(cell, s, "out")
	doneP, hasDone := findPort(cell, s, "done")

	cs := &s.Cells[ci]
	if len(cs.Pipe) != op.Depth {
		cs.Pipe = make([]pipeStage, op.Depth)
	}

	// shift right to left: stage i receives what stage i-1 held, stage 0
	// receives a freshly latched operand pair when go is asserted. The
	// result that exits the pipeline this cycle is whatever the shift just
	// pushed into the last stage, not what sat there before the shift.
	for i := op.Depth - 1; i > 0; i-- {
		cs.Pipe[i] = cs.Pipe[i-1]
	}
	if !hasGo || s.Get(goP) != 0 {
		cs.Pipe[0] = pipeStage{valid: true, value: op.Combine(s.Get(left), s.Get(right))}
	} else {
		cs.Pipe[0] = pipeStage{}
	}
	result := cs.Pipe[op.Depth-1]

	if result.valid {
		s.Set(out, result.value)
		if hasDone {
			s.Set(doneP, 1)
		}
	} else if hasDone {
		s.Set(doneP, 0)
	}
}
