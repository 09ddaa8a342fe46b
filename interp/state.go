// Package interp provides a cycle-accurate interpreter for a flattened
// Calyx program: each cycle runs a settle phase (iterate comb assignments to
// a fixed point) followed by a commit phase (tick every stateful cell once),
// mirroring core/emu.go's instEmulator cycle loop and cross-checked in spirit
// against verify/funcsim.go's dataflow-only FunctionalSimulator.
package interp

import (
	"github.com/calyx-lang/calyxgo/flatten"
	"github.com/calyx-lang/calyxgo/ir"
)

// State holds one interpretation's live port values and stateful-cell
// internals, separate from the (read-only, shared) flatten.Program it runs
// over.
type State struct {
	Prog *flatten.Program

	Values []uint64 // indexed by flatten.PortIndex
	Cells  []CellState

	cycle uint64
}

// CellState is the stateful contents of one cell: a register's held value,
// a pipeline's shift buffer, or nothing for a purely combinational cell.
type CellState struct {
	Reg       uint64
	RegValid  bool
	Pipe      []pipeStage
	MemBacked HostMemory // non-nil for cells backed by host memory
}

type pipeStage struct {
	valid bool
	value uint64
	op    string
}

// NewState allocates a State with every port initialized to zero, except a
// constant cell's output, which is seeded with its declared value once: a
// constant has no go/write_en handshake and no assignment ever targets its
// own output, so nothing else in the settle/commit loop would ever drive it.
func NewState(prog *flatten.Program) *State {
	s := &State{
		Prog:   prog,
		Values: make([]uint64, len(prog.Ports)),
		Cells:  make([]CellState, len(prog.Cells)),
	}
	for _, cell := range prog.Cells {
		if cell.Proto.Kind != ir.ConstantProto {
			continue
		}
		for _, idx := range cell.Ports {
			s.Values[idx] = cell.Proto.ConstValue
		}
	}
	return s
}

// Get returns the current value on port idx.
func (s *State) Get(idx flatten.PortIndex) uint64 { return s.Values[idx] }

// Set drives port idx to val.
func (s *State) Set(idx flatten.PortIndex, val uint64) { s.Values[idx] = val }

// Clone returns a deep copy of s, used by the par fork/merge logic so
// concurrent threads never alias the same Values slice (spec.md §5).
func (s *State) Clone() *State {
	out := &State{
		Prog:   s.Prog,
		Values: append([]uint64(nil), s.Values...),
		Cells:  append([]CellState(nil), s.Cells...),
		cycle:  s.cycle,
	}
	for i, c := range s.Cells {
		out.Cells[i].Pipe = append([]pipeStage(nil), c.Pipe...)
	}
	return out
}

// Cycle returns the number of commit phases executed so far.
func (s *State) Cycle() uint64 { return s.cycle }
