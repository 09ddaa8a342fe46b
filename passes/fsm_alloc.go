package passes

import (
	"fmt"

	"github.com/calyx-lang/calyxgo/attr"
	"github.com/calyx-lang/calyxgo/ident"
	"github.com/calyx-lang/calyxgo/ir"
)

// FSMState is one state of an allocated static-control FSM: the id, the
// static groups whose go hole should be driven while the FSM sits in it, and
// how many cycles it holds before advancing (1 for an ordinary per-cycle
// state; >1 for an @one_state StaticEnable compressed into a single state
// with a cycle counter, per spec.md §4.5).
type FSMState struct {
	ID         uint64
	Groups     []*ir.Group
	HoldCycles uint64
}

// FSMEdgeKind discriminates an FSM transition.
type FSMEdgeKind int

const (
	// EdgeUnconditional advances once the From state's HoldCycles elapse.
	EdgeUnconditional FSMEdgeKind = iota
	// EdgeGuarded only fires while Guard reads true (an if/while branch
	// choice, or the reset-to-0 edge out of a final state).
	EdgeGuarded
)

// FSMEdge is one From -> To transition, optionally gated by Guard. Negate
// inverts Guard's sense (the false-branch side of an if).
type FSMEdge struct {
	From, To uint64
	Kind     FSMEdgeKind
	Guard    *ir.Port
	Negate   bool
}

// FSMRun is a maximal stretch of states chained only by unconditional,
// single-cycle-hold edges — the shape spec.md §4.5's transition compression
// collapses into one range-guarded counter comparison instead of one mux arm
// per state.
type FSMRun struct {
	Lo, Hi uint64 // [Lo, Hi] inclusive state range
}

// FSMProgram is the realized static FSM for one static control tree
// (spec.md §4.5). ResetEdges returns states to 0 and (conceptually) zeroes
// any loop counters nested within repeats; NeedsLoopedOnce marks a promoted
// (not declared-static) component, whose done pulse must come from a
// one-cycle looped_once register rather than a bare "state == last" compare,
// since such a component can be re-invoked the very cycle it finishes.
type FSMProgram struct {
	States          []FSMState
	Edges           []FSMEdge
	Runs            []FSMRun
	NeedsLoopedOnce bool
}

// NumStates reports how many states were allocated.
func (p *FSMProgram) NumStates() uint64 { return uint64(len(p.States)) }

type fsmEntry struct {
	State  uint64
	Guard  *ir.Port
	Negate bool
}

type fsmBuilder struct {
	states []FSMState
	edges  []FSMEdge
}

func (b *fsmBuilder) newState(groups []*ir.Group, hold uint64) uint64 {
	if hold == 0 {
		hold = 1
	}
	id := uint64(len(b.states))
	b.states = append(b.states, FSMState{ID: id, Groups: groups, HoldCycles: hold})
	return id
}

func (b *fsmBuilder) connect(exits []uint64, entries []fsmEntry) {
	for _, e := range exits {
		for _, en := range entries {
			kind := EdgeUnconditional
			if en.Guard != nil {
				kind = EdgeGuarded
			}
			b.edges = append(b.edges, FSMEdge{From: e, To: en.State, Kind: kind, Guard: en.Guard, Negate: en.Negate})
		}
	}
}

// AllocateFSM builds the FSM program for a static control tree per spec.md
// §4.5. promoted marks whether the component housing root was promoted into
// static form rather than declared static from the outset; see
// FSMProgram.NeedsLoopedOnce. StaticPar has no single FSM of its own — split
// its threads out with BuildParThreads before calling AllocateFSM on each.
func AllocateFSM(root ir.Control, promoted bool) (*FSMProgram, error) {
	b := &fsmBuilder{}
	entries, exits, err := b.build(root)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &FSMProgram{NeedsLoopedOnce: promoted}, nil
	}
	if entries[0].State != 0 {
		return nil, fmt.Errorf("fsm alloc: control tree must enter at state 0, got %d", entries[0].State)
	}
	// reset path: every terminal exit loops back to state 0 once the start
	// (go) signal is deasserted for that cycle — represented here as an
	// unconditional-looking edge the backend gates on go's absence.
	for _, e := range exits {
		b.edges = append(b.edges, FSMEdge{From: e, To: 0, Kind: EdgeGuarded})
	}
	return &FSMProgram{
		States:          b.states,
		Edges:           b.edges,
		Runs:            compressRuns(b.states, b.edges),
		NeedsLoopedOnce: promoted,
	}, nil
}

func (b *fsmBuilder) build(n ir.Control) ([]fsmEntry, []uint64, error) {
	switch v := n.(type) {
	case nil, *ir.Empty:
		return nil, nil, nil
	case *ir.StaticEnable:
		return b.buildEnable(v)
	case *ir.StaticInvoke:
		id := b.newState(nil, v.Latency)
		return []fsmEntry{{State: id}}, []uint64{id}, nil
	case *ir.StaticSeq:
		return b.buildSeq(v.Stmts)
	case *ir.StaticIf:
		return b.buildIf(v)
	case *ir.StaticRepeat:
		return b.buildRepeat(v)
	case *ir.StaticPar:
		// pass-ordering bug: StaticPar must be split into per-thread FSMs by
		// BuildParThreads before reaching here.
		panic("fsm alloc: residual StaticPar in a tree already expected lowered")
	default:
		return nil, nil, fmt.Errorf("fsm alloc: unexpected control node %T", n)
	}
}

// buildEnable allocates either one state per latency cycle (the default),
// so a mid-window mux arm can target the exact cycle, or — when the group
// carries @one_state — a single state that holds for the whole latency via
// a cycle counter, spec.md §4.5's minimal encoding for groups that don't
// need per-cycle addressability.
func (b *fsmBuilder) buildEnable(v *ir.StaticEnable) ([]fsmEntry, []uint64, error) {
	if v.Group.Attrs.Has(attr.OneState) || v.Latency <= 1 {
		id := b.newState([]*ir.Group{v.Group}, v.Latency)
		return []fsmEntry{{State: id}}, []uint64{id}, nil
	}
	first := b.newState([]*ir.Group{v.Group}, 1)
	prev := first
	for i := uint64(1); i < v.Latency; i++ {
		cur := b.newState([]*ir.Group{v.Group}, 1)
		b.edges = append(b.edges, FSMEdge{From: prev, To: cur, Kind: EdgeUnconditional})
		prev = cur
	}
	return []fsmEntry{{State: first}}, []uint64{prev}, nil
}

func (b *fsmBuilder) buildSeq(stmts []ir.Control) ([]fsmEntry, []uint64, error) {
	var firstEntries []fsmEntry
	var exits []uint64
	for i, s := range stmts {
		entries, stExits, err := b.build(s)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			firstEntries = entries
		} else {
			b.connect(exits, entries)
		}
		exits = stExits
	}
	return firstEntries, exits, nil
}

func (b *fsmBuilder) buildIf(v *ir.StaticIf) ([]fsmEntry, []uint64, error) {
	trueEntries, trueExits, err := b.build(v.True)
	if err != nil {
		return nil, nil, err
	}
	falseEntries, falseExits, err := b.build(v.False)
	if err != nil {
		return nil, nil, err
	}
	var entries []fsmEntry
	for _, e := range trueEntries {
		entries = append(entries, fsmEntry{State: e.State, Guard: v.Port, Negate: false})
	}
	for _, e := range falseEntries {
		entries = append(entries, fsmEntry{State: e.State, Guard: v.Port, Negate: true})
	}
	exits := append(append([]uint64{}, trueExits...), falseExits...)
	return entries, exits, nil
}

// maxUnrolledRepeat bounds how many iterations buildRepeat will literally
// unroll into distinct states before falling back to a single counter-held
// state, keeping a large @bound loop from exploding state count.
const maxUnrolledRepeat = 64

func (b *fsmBuilder) buildRepeat(v *ir.StaticRepeat) ([]fsmEntry, []uint64, error) {
	bodyLat, _ := ir.StaticLatency(v.Body)
	if v.Num*bodyLat > maxUnrolledRepeat {
		id := b.newState(nil, v.Latency)
		return []fsmEntry{{State: id}}, []uint64{id}, nil
	}
	var firstEntries []fsmEntry
	var exits []uint64
	for i := uint64(0); i < v.Num; i++ {
		entries, bodyExits, err := b.build(v.Body)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			firstEntries = entries
		} else {
			b.connect(exits, entries)
		}
		exits = bodyExits
	}
	return firstEntries, exits, nil
}

// compressRuns finds maximal chains of single-hold-cycle states linked only
// by unconditional edges, so the backend can realize them as one
// range-guarded counter increment instead of one mux arm per state
// (spec.md §4.5's transition compression).
func compressRuns(states []FSMState, edges []FSMEdge) []FSMRun {
	next := map[uint64]uint64{}
	hasOtherIn := map[uint64]bool{}
	for _, e := range edges {
		if e.Kind == EdgeUnconditional {
			next[e.From] = e.To
		}
	}
	indeg := map[uint64]int{}
	for _, e := range edges {
		if e.Kind == EdgeUnconditional {
			indeg[e.To]++
		}
	}
	var runs []FSMRun
	visited := map[uint64]bool{}
	for _, s := range states {
		if visited[s.ID] || indeg[s.ID] > 1 || s.HoldCycles != 1 {
			continue
		}
		// only start a run at a state with at most one unconditional
		// predecessor, so runs don't overlap.
		lo := s.ID
		hi := s.ID
		visited[hi] = true
		for {
			n, ok := next[hi]
			if !ok || indeg[n] != 1 {
				break
			}
			st := stateByID(states, n)
			if st == nil || st.HoldCycles != 1 {
				break
			}
			hi = n
			visited[hi] = true
		}
		if hi != lo {
			runs = append(runs, FSMRun{Lo: lo, Hi: hi})
		}
		_ = hasOtherIn
	}
	return runs
}

func stateByID(states []FSMState, id uint64) *FSMState {
	for i := range states {
		if states[i].ID == id {
			return &states[i]
		}
	}
	return nil
}

// BuildParThreads splits a StaticPar's threads into independent FSM
// programs, one per thread, since spec.md §4.5 gives StaticPar no FSM of its
// own: each thread runs its own FSM, all started together by a wrapping
// pulse group (see WrapParThreads).
func BuildParThreads(stmts []ir.Control, promoted bool) ([]*FSMProgram, error) {
	programs := make([]*FSMProgram, len(stmts))
	for i, s := range stmts {
		p, err := AllocateFSM(s, promoted)
		if err != nil {
			return nil, err
		}
		programs[i] = p
	}
	return programs, nil
}

// WrapParThreads builds the static wrapping group spec.md §4.5 describes for
// a StaticPar: a one-cycle group (latency 1, @interval 0:1) whose only job
// is to pulse every thread's representative group's go hole during cycle 0,
// kicking off each thread's own FSM in parallel.
func WrapParThreads(c *ir.Component, name ident.Identifier, threadGroups []*ir.Group) *ir.Group {
	wrap := c.AddStaticGroup(name, 1)
	wrap.Attrs.Set(attr.Interval, 1)
	for _, tg := range threadGroups {
		wrap.Assignments = append(wrap.Assignments, c.Assign(tg.Go, wrap.Go).Guarded(nil))
	}
	return wrap
}
