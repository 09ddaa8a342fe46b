// Package flatten re-encodes a Component tree into arena-indexed arrays: one
// flat program where every port, cell, and guard is addressed by a small
// integer local to its owning component plus a base offset for the
// particular instantiation being interpreted. Grounded on
// cgra-new/fu.go's FuncUnit.regfile (a []operand_impl.URegister addressed
// through confignew's small-int-id binding layer) generalized from one
// function unit's register file to an entire program's cell/port arenas.
package flatten

import (
	"github.com/calyx-lang/calyxgo/guard"
	"github.com/calyx-lang/calyxgo/ident"
	"github.com/calyx-lang/calyxgo/ir"
)

// PortIndex addresses one port within a single component's flattened arena.
type PortIndex uint32

// CellIndex addresses one cell within a single component's flattened arena.
type CellIndex uint32

// BaseIndices is the per-instantiation offset a multiply-instantiated
// sub-component gets added to every PortIndex/CellIndex it emits, the same
// role confignew.IDImplBinding's local-offset translation played for
// distinguishing two function units built from the same template.
type BaseIndices struct {
	PortBase PortIndex
	CellBase CellIndex
}

// Translate returns the globally-unique index for a locally-addressed port.
func (b BaseIndices) Translate(p PortIndex) PortIndex { return b.PortBase + p }

// TranslateCell returns the globally-unique index for a locally-addressed
// cell.
func (b BaseIndices) TranslateCell(c CellIndex) CellIndex { return b.CellBase + c }

// FlatPort is one arena-resident port record: its width, direction, and the
// cell (if any) that owns it.
type FlatPort struct {
	Width uint64
	Dir   ir.Direction
	Cell  CellIndex // CellIndex(^uint32(0)) if the port belongs to the signature or a hole
	Name  string
}

const noCellOwner = CellIndex(^uint32(0))

// FlatCell is one arena-resident cell record.
type FlatCell struct {
	Name      string
	Proto     ir.Prototype
	Ports     []PortIndex
	Reference bool
	External  bool
}

// FlatAssignment is an assignment whose ports are arena indices rather than
// pointers.
type FlatAssignment struct {
	Dst   PortIndex
	Src   PortIndex
	Guard guard.Handle
}

// FlatGroup is one group's go/done holes plus the assignments active only
// while that group runs, kept separate from other groups' assignments so
// the interpreter's control stepper can gate Settle by "which groups are
// currently enabled" without re-deriving membership from guards.
type FlatGroup struct {
	Name        string
	Go, Done    PortIndex // Done is the zero PortIndex for a static group
	Static      bool
	Latency     uint64
	Assignments []FlatAssignment
}

// Program is the flattened form of one Component, ready for cycle-stepped
// interpretation without chasing pointers through the IR tree.
type Program struct {
	Ports       []FlatPort
	Cells       []FlatCell
	Continuous  []FlatAssignment
	Groups      []FlatGroup
	CombGroups  []FlatGroup // Go/Done unused; Static always false
	Assignments []FlatAssignment // every assignment in the program, flattened; kept for analyses that don't care about scope
	Guards      *guard.Pool
	Control     ir.Control

	// IdentPort resolves the ident.ID a guard.Flat node carries (KindPort's
	// Port, KindComp's Port/Rhs) back to the arena index of the port that
	// name was interned from, so guard evaluation never has to walk the IR
	// tree at interpretation time.
	IdentPort map[ident.ID]PortIndex

	// GroupIndex maps a live *ir.Group (the control tree, left unflattened,
	// still references these) to its index into Groups, so a control
	// stepper holding an *ir.Enable can find that group's flattened
	// assignments in O(1).
	GroupIndex map[*ir.Group]int

	// CombGroupIndex is GroupIndex's analogue for the CombGroup an If/While
	// node settles before testing its condition port.
	CombGroupIndex map[*ir.CombGroup]int

	portIndex map[*ir.Port]PortIndex
	cellIndex map[*ir.Cell]CellIndex
}

// PortIndexOf returns the arena index assigned to a *ir.Port encountered
// during Flatten, or (0, false) if p was never seen.
func (p *Program) PortIndexOf(port *ir.Port) (PortIndex, bool) {
	idx, ok := p.portIndex[port]
	return idx, ok
}

// CellIndexOf returns the arena index assigned to a *ir.Cell encountered
// during Flatten, or (0, false) if c was never seen.
func (p *Program) CellIndexOf(cell *ir.Cell) (CellIndex, bool) {
	idx, ok := p.cellIndex[cell]
	return idx, ok
}

// Flatten walks c's signature, cells, and groups once, assigning each port
// and cell a dense arena index and re-expressing every assignment (including
// group holes) in terms of those indices.
func Flatten(c *ir.Component) *Program {
	p := &Program{
		Guards:         c.Guards,
		Control:        c.Control,
		IdentPort:      map[ident.ID]PortIndex{},
		GroupIndex:     map[*ir.Group]int{},
		CombGroupIndex: map[*ir.CombGroup]int{},
		portIndex:      map[*ir.Port]PortIndex{},
		cellIndex:      map[*ir.Cell]CellIndex{},
	}

	addPort := func(port *ir.Port, owner CellIndex) PortIndex {
		idx := PortIndex(len(p.Ports))
		p.Ports = append(p.Ports, FlatPort{Width: port.Width, Dir: port.Dir, Cell: owner, Name: port.QualifiedName()})
		p.portIndex[port] = idx
		p.IdentPort[port.Name.ID()] = idx
		return idx
	}

	for _, port := range c.Signature.Ports {
		addPort(port, noCellOwner)
	}

	for _, cell := range c.Cells {
		cellIdx := CellIndex(len(p.Cells))
		p.cellIndex[cell] = cellIdx
		flat := FlatCell{Name: cell.Name.Name(), Proto: cell.Proto, Reference: cell.Reference, External: cell.External}
		p.Cells = append(p.Cells, flat)
		var portIdxs []PortIndex
		for _, port := range cell.Ports {
			portIdxs = append(portIdxs, addPort(port, cellIdx))
		}
		p.Cells[cellIdx].Ports = portIdxs
	}

	flattenAssign := func(a ir.Assignment) (FlatAssignment, bool) {
		dst, ok1 := p.portIndex[a.Dst]
		src, ok2 := p.portIndex[a.Src]
		if !ok1 || !ok2 {
			return FlatAssignment{}, false
		}
		return FlatAssignment{Dst: dst, Src: src, Guard: a.Guard}, true
	}

	for _, g := range c.AllGroups() {
		fg := FlatGroup{Name: g.Name.Name(), Static: g.Static, Latency: g.Latency}
		if g.Go != nil {
			fg.Go = addPort(g.Go, noCellOwner)
		}
		if g.Done != nil {
			fg.Done = addPort(g.Done, noCellOwner)
		}
		for _, a := range g.Assignments {
			if fa, ok := flattenAssign(a); ok {
				fg.Assignments = append(fg.Assignments, fa)
				p.Assignments = append(p.Assignments, fa)
			}
		}
		p.GroupIndex[g] = len(p.Groups)
		p.Groups = append(p.Groups, fg)
	}

	for _, cg := range c.CombGroups {
		fg := FlatGroup{Name: cg.Name.Name()}
		for _, a := range cg.Assignments {
			if fa, ok := flattenAssign(a); ok {
				fg.Assignments = append(fg.Assignments, fa)
				p.Assignments = append(p.Assignments, fa)
			}
		}
		p.CombGroupIndex[cg] = len(p.CombGroups)
		p.CombGroups = append(p.CombGroups, fg)
	}

	for _, a := range c.Continuous {
		if fa, ok := flattenAssign(a); ok {
			p.Continuous = append(p.Continuous, fa)
			p.Assignments = append(p.Assignments, fa)
		}
	}

	return p
}
