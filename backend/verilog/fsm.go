package verilog

import (
	"fmt"
	"strings"

	"github.com/calyx-lang/calyxgo/ir"
	"github.com/calyx-lang/calyxgo/passes"
)

// writeFSM synthesizes the static-schedule FSM for a component whose control
// tree is already fully static (spec.md §4.5): a state register, the
// combinational decode driving each static group's go hole for the states
// it is active in, and the next-state logic realizing AllocateFSM's
// transition-compressed runs and guarded branch/reset edges. Components
// whose control still has dynamic nodes are left to their existing
// group-level go/done holes, unchanged by this function.
func writeFSM(b *strings.Builder, c *ir.Component) error {
	if c.Control == nil || !ir.IsStatic(c.Control) {
		return nil
	}
	promoted := c.Kind != ir.DeclaredStatic
	prog, err := passes.AllocateFSM(c.Control, promoted)
	if err != nil {
		return fmt.Errorf("verilog: allocating fsm for %s: %w", c.Name.Name(), err)
	}
	if prog.NumStates() == 0 {
		return nil
	}

	width := bitsFor(prog.NumStates())
	goPort := signatureHole(c.Signature, "go")
	fmt.Fprintf(b, "  logic [%d:0] _fsm_state;\n", width-1)
	if prog.NeedsLoopedOnce {
		b.WriteString("  logic _looped_once;\n")
	}

	writeFSMGroupDecode(b, prog)
	writeFSMTransitions(b, c, prog, goPort)
	writeFSMDone(b, c, prog, goPort)
	return nil
}

func bitsFor(n uint64) uint64 {
	bits := uint64(1)
	for (uint64(1) << bits) < n {
		bits++
	}
	return bits
}

func signatureHole(sig *ir.Cell, name string) *ir.Port {
	for _, p := range sig.Ports {
		if p.Name.Name() == name {
			return p
		}
	}
	return nil
}

// writeFSMGroupDecode emits one assign per static group driving its go hole
// high across every state (or compressed run) that activates it.
func writeFSMGroupDecode(b *strings.Builder, prog *passes.FSMProgram) {
	byGroup := map[*ir.Group][]passes.FSMState{}
	var order []*ir.Group
	for _, st := range prog.States {
		for _, g := range st.Groups {
			if _, ok := byGroup[g]; !ok {
				order = append(order, g)
			}
			byGroup[g] = append(byGroup[g], st)
		}
	}
	for _, g := range order {
		fmt.Fprintf(b, "  assign %s = %s;\n", connName(g.Go), stateMembership(byGroup[g], prog.Runs))
	}
}

// stateMembership renders the disjunction of state-range/state-equality
// tests selecting sts, collapsing any state covered by one of runs into a
// single range comparison instead of listing every member state.
func stateMembership(sts []passes.FSMState, runs []passes.FSMRun) string {
	covered := map[uint64]bool{}
	var terms []string
	for _, st := range sts {
		if covered[st.ID] {
			continue
		}
		if run, ok := runCovering(runs, st.ID); ok {
			terms = append(terms, fmt.Sprintf("(_fsm_state >= %d && _fsm_state <= %d)", run.Lo, run.Hi))
			for id := run.Lo; id <= run.Hi; id++ {
				covered[id] = true
			}
			continue
		}
		terms = append(terms, fmt.Sprintf("_fsm_state == %d", st.ID))
		covered[st.ID] = true
	}
	if len(terms) == 0 {
		return "1'd0"
	}
	return strings.Join(terms, " || ")
}

func runCovering(runs []passes.FSMRun, id uint64) (passes.FSMRun, bool) {
	for _, r := range runs {
		if id >= r.Lo && id <= r.Hi {
			return r, true
		}
	}
	return passes.FSMRun{}, false
}

// writeFSMTransitions emits the next-state always_ff block: compressed runs
// become a single increment-while-in-range arm, guarded edges (branch
// choices and the reset-to-0 path) become explicit per-edge arms.
func writeFSMTransitions(b *strings.Builder, c *ir.Component, prog *passes.FSMProgram, goPort *ir.Port) {
	b.WriteString("  always_ff @(posedge clk) begin\n")
	if goPort != nil {
		fmt.Fprintf(b, "    if (!%s) _fsm_state <= '0;\n", connName(goPort))
		b.WriteString("    else ")
	} else {
		b.WriteString("    ")
	}
	b.WriteString("case (1'b1)\n")
	for _, run := range prog.Runs {
		fmt.Fprintf(b, "      (_fsm_state >= %d && _fsm_state < %d): _fsm_state <= _fsm_state + 1'd1;\n", run.Lo, run.Hi)
	}
	for _, e := range prog.Edges {
		if e.Kind != passes.EdgeGuarded {
			continue
		}
		if e.Guard == nil {
			fmt.Fprintf(b, "      _fsm_state == %d: _fsm_state <= %d;\n", e.From, e.To)
			continue
		}
		cond := connName(e.Guard)
		if e.Negate {
			cond = "!" + cond
		}
		fmt.Fprintf(b, "      (_fsm_state == %d) && %s: _fsm_state <= %d;\n", e.From, cond, e.To)
	}
	b.WriteString("      default: _fsm_state <= _fsm_state + 1'd1;\n")
	b.WriteString("    endcase\n")
	if prog.NeedsLoopedOnce {
		b.WriteString("    _looped_once <= (_fsm_state != '0);\n")
	}
	b.WriteString("  end\n")
}

// writeFSMDone ties the component's done hole: a declared-static component
// pulses done whenever the state register is about to wrap back to 0, while
// a promoted component's done must fall for one cycle after pulsing, so it
// is qualified by looped_once (spec.md §4.5).
func writeFSMDone(b *strings.Builder, c *ir.Component, prog *passes.FSMProgram, goPort *ir.Port) {
	donePort := signatureHole(c.Signature, "done")
	if donePort == nil {
		return
	}
	last := prog.NumStates() - 1
	cond := fmt.Sprintf("_fsm_state == %d", last)
	if prog.NeedsLoopedOnce {
		cond = fmt.Sprintf("(%s) && _looped_once", cond)
	}
	if goPort != nil {
		cond = fmt.Sprintf("%s && (%s)", connName(goPort), cond)
	}
	fmt.Fprintf(b, "  assign %s = %s;\n", connName(donePort), cond)
}
