package interp

import (
	"fmt"
	"sort"

	"github.com/calyx-lang/calyxgo/flatten"
	"github.com/calyx-lang/calyxgo/ir"
)

// maxGroupCycles bounds how many cycles Run lets the whole control tree take
// before it gives up and reports it as not terminating, the runtime-phase
// analogue of Settle's maxSettleIters bound.
const maxGroupCycles = 1_000_000

// cont is one control node compiled into a steppable, resumable form: an
// arbitrarily deep Par can't be run to completion recursively (its children
// must interleave cycle by cycle), so every node — not just Par — exposes
// itself as a pair of callbacks the orchestrator drives one cycle at a time.
//
// prepare is called at the start of a cycle: it asserts whatever go bits
// this node's currently-active work needs and returns the assignments that
// should join the cycle's Settle pass. A node that already resolved its own
// concurrency internally (Par) returns nil, having settled its subtree
// itself.
//
// checkDone is called after Commit: it reads whatever done bits resulted
// from that commit, advances internal cursors, and reports whether this
// node's subtree has fully finished as of this cycle.
type cont struct {
	prepare   func(s *State) []flatten.FlatAssignment
	checkDone func(s *State) bool
}

// Interpreter drives a flatten.Program's control tree through the
// settle/commit cycle loop, following the same builder-then-run shape as
// api.DriverBuilder: build once via NewInterpreter, then Run.
type Interpreter struct {
	State *State
	Cfg   Config

	root cont

	// active holds the NodeID of every control node currently mid-execution
	// (prepared at least once, not yet reported done), the live set a
	// debugger's `where`/`pc` commands read between cycles.
	active map[ir.NodeID]bool

	// ranThisTick holds every node whose prepare ran during the cycle Step
	// just completed, including ones that also reported done in that same
	// cycle (a one-cycle group leaves active empty by the time Step
	// returns, but it did run, and a breakpoint on it must still fire).
	ranThisTick map[ir.NodeID]bool

	// err latches the first error a Par's SettlePar call or an if/while
	// condition's comb-group Settle reports, since cont's prepare/checkDone callbacks have no
	// return-error path of their own; tick surfaces it to Run's caller.
	err error
}

// NewInterpreter allocates a fresh State over prog and wraps it with cfg.
func NewInterpreter(prog *flatten.Program, cfg Config) *Interpreter {
	return &Interpreter{State: NewState(prog), Cfg: cfg, active: map[ir.NodeID]bool{}, ranThisTick: map[ir.NodeID]bool{}}
}

// Step runs exactly one settle/commit cycle and reports whether the whole
// control tree has finished as of this cycle. A debugger drives the
// interpreter through Step so it can inspect State and ActiveNodeIDs between
// cycles; Run is just Step looped to completion.
func (itp *Interpreter) Step() (done bool, err error) {
	if itp.root.prepare == nil {
		itp.root = itp.build(itp.State.Prog.Control)
	}
	if err := itp.tick(itp.root); err != nil {
		return false, err
	}
	return itp.root.checkDone(itp.State), nil
}

// ActiveNodeIDs returns the NodeIDs of every control node currently
// mid-execution, in ascending order.
func (itp *Interpreter) ActiveNodeIDs() []ir.NodeID {
	out := make([]ir.NodeID, 0, len(itp.active))
	for id := range itp.active {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ActiveSet returns the live active-node membership test itself, for
// callers (a debugger's breakpoint matcher) that only need set membership
// and would otherwise rebuild one from ActiveNodeIDs every cycle. The
// returned map is itp's own and must not be mutated by the caller.
func (itp *Interpreter) ActiveSet() map[ir.NodeID]bool {
	return itp.active
}

// RanThisTick reports whether id's prepare ran during the cycle the most
// recent Step call executed, regardless of whether that same cycle also
// reported it done. A breakpoint on a one-cycle group would never be seen
// by ActiveSet (the group is already gone by the time Step returns), so
// breakpoint and watchpoint matching read this instead.
func (itp *Interpreter) RanThisTick() map[ir.NodeID]bool {
	return itp.ranThisTick
}

// Run executes prog's control tree to completion, returning the number of
// cycles it took.
func (itp *Interpreter) Run() (uint64, error) {
	start := itp.State.Cycle()
	for i := 0; i < maxGroupCycles; i++ {
		done, err := itp.Step()
		if err != nil {
			return itp.State.Cycle() - start, err
		}
		if done {
			return itp.State.Cycle() - start, nil
		}
	}
	return itp.State.Cycle() - start, fmt.Errorf("interp: control tree did not terminate within %d cycles", maxGroupCycles)
}

func (itp *Interpreter) tick(root cont) error {
	s := itp.State
	itp.ranThisTick = map[ir.NodeID]bool{}
	extra := root.prepare(s)
	if itp.err != nil {
		return itp.err
	}
	active := make([]flatten.FlatAssignment, 0, len(s.Prog.Continuous)+len(extra))
	active = append(active, s.Prog.Continuous...)
	active = append(active, extra...)
	if err := Settle(s, active); err != nil {
		return err
	}
	Commit(s)
	return nil
}

// build compiles an ir.Control subtree into a cont, dispatching on the
// concrete node type the way passmgr.Walk does, then wraps the result so
// itp.active reflects exactly the nodes currently between their first
// prepare and their done checkDone.
func (itp *Interpreter) build(n ir.Control) cont {
	c := itp.buildInner(n)
	if n == nil {
		return c
	}
	id := n.NodeID()
	return cont{
		prepare: func(s *State) []flatten.FlatAssignment {
			itp.active[id] = true
			itp.ranThisTick[id] = true
			return c.prepare(s)
		},
		checkDone: func(s *State) bool {
			done := c.checkDone(s)
			if done {
				delete(itp.active, id)
			}
			return done
		},
	}
}

func (itp *Interpreter) buildInner(n ir.Control) cont {
	switch node := n.(type) {
	case nil, *ir.Empty:
		return doneCont()
	case *ir.Enable:
		return itp.buildEnable(node.Group)
	case *ir.StaticEnable:
		return itp.buildStaticEnable(node.Group)
	case *ir.Invoke:
		return itp.buildInvoke(node)
	case *ir.StaticInvoke:
		return itp.buildStaticInvoke(node)
	case *ir.Seq:
		return itp.buildSeq(node.Stmts)
	case *ir.StaticSeq:
		return itp.buildSeq(node.Stmts)
	case *ir.Par:
		return itp.buildPar(node.Stmts)
	case *ir.StaticPar:
		return itp.buildPar(node.Stmts)
	case *ir.If:
		return itp.buildIf(node.Port, node.CombGroup, node.True, node.False)
	case *ir.StaticIf:
		return itp.buildIf(node.Port, nil, node.True, node.False)
	case *ir.While:
		return itp.buildWhile(node.Port, node.CombGroup, node.Body)
	case *ir.Repeat:
		return itp.buildRepeat(node.Num, node.Body)
	case *ir.StaticRepeat:
		return itp.buildRepeat(node.Num, node.Body)
	default:
		return doneCont()
	}
}

func doneCont() cont {
	return cont{
		prepare:   func(*State) []flatten.FlatAssignment { return nil },
		checkDone: func(*State) bool { return true },
	}
}

func (itp *Interpreter) buildEnable(g *ir.Group) cont {
	idx, ok := itp.State.Prog.GroupIndex[g]
	if !ok {
		return doneCont()
	}
	fg := &itp.State.Prog.Groups[idx]
	started := false
	return cont{
		prepare: func(s *State) []flatten.FlatAssignment {
			started = true
			s.Set(fg.Go, 1)
			return fg.Assignments
		},
		checkDone: func(s *State) bool {
			if !started {
				return false
			}
			if fg.Done == 0 || s.Get(fg.Done) != 0 {
				s.Set(fg.Go, 0)
				return true
			}
			return false
		},
	}
}

func (itp *Interpreter) buildStaticEnable(g *ir.Group) cont {
	idx, ok := itp.State.Prog.GroupIndex[g]
	if !ok {
		return doneCont()
	}
	fg := &itp.State.Prog.Groups[idx]
	remaining := fg.Latency
	if remaining == 0 {
		remaining = 1
	}
	return cont{
		prepare: func(s *State) []flatten.FlatAssignment {
			s.Set(fg.Go, 1)
			return fg.Assignments
		},
		checkDone: func(s *State) bool {
			remaining--
			if remaining == 0 {
				s.Set(fg.Go, 0)
				return true
			}
			return false
		},
	}
}

func (itp *Interpreter) buildSeq(stmts []ir.Control) cont {
	children := make([]cont, len(stmts))
	for i, stmt := range stmts {
		children[i] = itp.build(stmt)
	}
	cur := 0
	return cont{
		prepare: func(s *State) []flatten.FlatAssignment {
			if cur >= len(children) {
				return nil
			}
			return children[cur].prepare(s)
		},
		checkDone: func(s *State) bool {
			if cur >= len(children) {
				return true
			}
			if children[cur].checkDone(s) {
				cur++
			}
			return cur >= len(children)
		},
	}
}

func (itp *Interpreter) buildPar(stmts []ir.Control) cont {
	children := make([]cont, len(stmts))
	finished := make([]bool, len(stmts))
	for i, stmt := range stmts {
		children[i] = itp.build(stmt)
	}
	return cont{
		prepare: func(s *State) []flatten.FlatAssignment {
			var lists [][]flatten.FlatAssignment
			for i, ch := range children {
				if finished[i] {
					continue
				}
				lists = append(lists, ch.prepare(s))
			}
			if len(lists) == 0 {
				return nil
			}
			if _, err := SettlePar(s, lists, itp.Cfg); err != nil && itp.err == nil {
				itp.err = err
			}
			return nil
		},
		checkDone: func(s *State) bool {
			all := true
			for i, ch := range children {
				if finished[i] {
					continue
				}
				if ch.checkDone(s) {
					finished[i] = true
				} else {
					all = false
				}
			}
			return all
		},
	}
}

// buildIf lazily resolves its branch the first cycle it's prepared, after
// settling the optional comb group that gates the condition port.
func (itp *Interpreter) buildIf(port *ir.Port, combGroup *ir.CombGroup, trueBr, falseBr ir.Control) cont {
	portIdx, hasPort := itp.State.Prog.PortIndexOf(port)
	var chosen cont
	resolved := false

	resolve := func(s *State) {
		if combGroup != nil {
			if idx, ok := itp.State.Prog.CombGroupIndex[combGroup]; ok {
				if err := Settle(s, itp.State.Prog.CombGroups[idx].Assignments); err != nil && itp.err == nil {
					itp.err = err
				}
			}
		}
		cond := hasPort && s.Get(portIdx) != 0
		if cond {
			chosen = itp.build(trueBr)
		} else {
			chosen = itp.build(falseBr)
		}
		resolved = true
	}

	return cont{
		prepare: func(s *State) []flatten.FlatAssignment {
			if !resolved {
				resolve(s)
			}
			return chosen.prepare(s)
		},
		checkDone: func(s *State) bool {
			if !resolved {
				return false
			}
			return chosen.checkDone(s)
		},
	}
}

// buildWhile re-tests Port before every iteration, rebuilding Body's cont
// fresh each time since a completed cont can't be re-entered.
func (itp *Interpreter) buildWhile(port *ir.Port, combGroup *ir.CombGroup, body ir.Control) cont {
	portIdx, hasPort := itp.State.Prog.PortIndexOf(port)
	var cur cont
	var curValid bool

	testCond := func(s *State) bool {
		if combGroup != nil {
			if idx, ok := itp.State.Prog.CombGroupIndex[combGroup]; ok {
				if err := Settle(s, itp.State.Prog.CombGroups[idx].Assignments); err != nil && itp.err == nil {
					itp.err = err
				}
			}
		}
		return hasPort && s.Get(portIdx) != 0
	}

	finished := false
	return cont{
		prepare: func(s *State) []flatten.FlatAssignment {
			if finished {
				return nil
			}
			if !curValid {
				if !testCond(s) {
					finished = true
					return nil
				}
				cur = itp.build(body)
				curValid = true
			}
			return cur.prepare(s)
		},
		checkDone: func(s *State) bool {
			if finished {
				return true
			}
			if !curValid {
				return false
			}
			if cur.checkDone(s) {
				curValid = false
			}
			return false
		},
	}
}

func (itp *Interpreter) buildRepeat(num uint64, body ir.Control) cont {
	remaining := num
	var cur cont
	var curValid bool
	finished := remaining == 0
	return cont{
		prepare: func(s *State) []flatten.FlatAssignment {
			if finished {
				return nil
			}
			if !curValid {
				cur = itp.build(body)
				curValid = true
			}
			return cur.prepare(s)
		},
		checkDone: func(s *State) bool {
			if finished {
				return true
			}
			if cur.checkDone(s) {
				curValid = false
				remaining--
				if remaining == 0 {
					finished = true
				}
			}
			return finished
		},
	}
}

// buildInvoke drives an invocation's port bindings directly onto the
// callee's ports and runs it to completion via its go/done handshake.
// Invoking a sub-component cell only drives the boundary ports this
// program's arena knows about; it does not recurse into a nested
// flatten.Program for the callee's own body, since this interpreter
// operates on one component's arena at a time.
func (itp *Interpreter) buildInvoke(n *ir.Invoke) cont {
	prog := itp.State.Prog
	goIdx, hasGo := portIndexOfOrFalse(prog, n.Cell.GoPort())
	doneIdx, hasDone := portIndexOfOrFalse(prog, n.Cell.DonePort())
	bindings := invokeBindings(prog, n.Cell, n.Inputs, n.Outputs)
	started := false
	return cont{
		prepare: func(s *State) []flatten.FlatAssignment {
			started = true
			if hasGo {
				s.Set(goIdx, 1)
			}
			return bindings
		},
		checkDone: func(s *State) bool {
			if !started {
				return false
			}
			if !hasDone || s.Get(doneIdx) != 0 {
				if hasGo {
					s.Set(goIdx, 0)
				}
				return true
			}
			return false
		},
	}
}

func (itp *Interpreter) buildStaticInvoke(n *ir.StaticInvoke) cont {
	prog := itp.State.Prog
	bindings := invokeBindings(prog, n.Cell, n.Inputs, n.Outputs)
	remaining := n.Latency
	if remaining == 0 {
		remaining = 1
	}
	return cont{
		prepare: func(s *State) []flatten.FlatAssignment {
			return bindings
		},
		checkDone: func(s *State) bool {
			remaining--
			return remaining == 0
		},
	}
}

// portIndexOfOrFalse is PortIndexOf with a nil-safe guard for optional
// handshake ports (a comb primitive's GoPort/DonePort are both nil).
func portIndexOfOrFalse(prog *flatten.Program, p *ir.Port) (flatten.PortIndex, bool) {
	if p == nil {
		return 0, false
	}
	return prog.PortIndexOf(p)
}

// invokeBindings turns Invoke's caller/callee port bindings into flattened
// assignments that, while active, drive values across the invocation
// boundary exactly like a group's wires would.
func invokeBindings(prog *flatten.Program, callee *ir.Cell, inputs, outputs []ir.PortBinding) []flatten.FlatAssignment {
	var out []flatten.FlatAssignment
	for _, b := range inputs {
		srcIdx, ok := portIndexOfOrFalse(prog, b.Src)
		if !ok {
			continue
		}
		dstIdx, ok := portIndexOfOrFalse(prog, callee.Port(b.CalleePort))
		if !ok {
			continue
		}
		out = append(out, flatten.FlatAssignment{Dst: dstIdx, Src: srcIdx})
	}
	for _, b := range outputs {
		dstIdx, ok := portIndexOfOrFalse(prog, b.Src)
		if !ok {
			continue
		}
		srcIdx, ok := portIndexOfOrFalse(prog, callee.Port(b.CalleePort))
		if !ok {
			continue
		}
		out = append(out, flatten.FlatAssignment{Dst: dstIdx, Src: srcIdx})
	}
	return out
}
