package ir

import (
	"github.com/calyx-lang/calyxgo/attr"
	"github.com/calyx-lang/calyxgo/guard"
	"github.com/calyx-lang/calyxgo/ident"
)

// Kind classifies a component per spec.md §3: "a component is either
// normal, combinational-only (no control, no stateful cells), or
// declared-static with a fixed latency."
type Kind int

const (
	Normal Kind = iota
	Combinational
	DeclaredStatic
)

// Component is an identifier, a signature (pseudo-cell whose ports are the
// boundary), owned lists of cells/groups/assignments, and a root control
// node. It is built once by the frontend, then mutated exclusively by
// passes, each of which receives exclusive access to it for the duration of
// its visit (spec.md §3 "Lifecycle").
type Component struct {
	Name      ident.Identifier
	Signature *Cell

	Cells        []*Cell
	Groups       []*Group // dynamic groups
	StaticGroups []*Group // Static == true
	CombGroups   []*CombGroup
	Continuous   []Assignment
	Control      Control

	Guards *guard.Pool
	Ident  *ident.Table

	Kind    Kind
	Latency uint64 // meaningful only when Kind == DeclaredStatic

	Attrs *attr.Set
}

// NewComponent allocates an empty, normal-kind component with its own ident
// table and guard pool (guard pools are per-component during optimization,
// per spec.md §5).
func NewComponent(name ident.Identifier) *Component {
	return &Component{
		Name:   name,
		Ident:  ident.NewTable(),
		Guards: guard.NewPool(),
		Attrs:  &attr.Set{},
		Signature: &Cell{
			Name:  name,
			Proto: Prototype{Kind: SignatureProto},
			Attrs: &attr.Set{},
		},
	}
}

// AddSignaturePort adds a boundary port. dir is the direction as seen from
// inside the component body (an external "input" is Input here).
func (c *Component) AddSignaturePort(name ident.Identifier, width uint64, dir Direction) *Port {
	p := NewPort(name, width, dir)
	p.Parent = Parent{Kind: ParentSignature, Cell: c.Signature}
	c.Signature.Ports = append(c.Signature.Ports, p)
	return p
}

// AddCell appends and returns a new cell owned by c.
func (c *Component) AddCell(name ident.Identifier, proto Prototype) *Cell {
	cell := NewCell(name, proto)
	c.Cells = append(c.Cells, cell)
	return cell
}

// Cell looks up an owned cell by name (not the signature).
func (c *Component) Cell(name string) *Cell {
	for _, cell := range c.Cells {
		if cell.Name.Name() == name {
			return cell
		}
	}
	return nil
}

// AddGroup appends and returns a new dynamic group.
func (c *Component) AddGroup(name ident.Identifier) *Group {
	g := NewGroup(c.Ident, name)
	c.Groups = append(c.Groups, g)
	return g
}

// AddStaticGroup appends and returns a new static group with the given
// latency.
func (c *Component) AddStaticGroup(name ident.Identifier, latency uint64) *Group {
	g := NewStaticGroup(c.Ident, name, latency)
	c.StaticGroups = append(c.StaticGroups, g)
	return g
}

// AddCombGroup appends and returns a new combinational group.
func (c *Component) AddCombGroup(name ident.Identifier) *CombGroup {
	g := NewCombGroup(name)
	c.CombGroups = append(c.CombGroups, g)
	return g
}

// Group looks up a dynamic or static group by name.
func (c *Component) Group(name string) *Group {
	for _, g := range c.Groups {
		if g.Name.Name() == name {
			return g
		}
	}
	for _, g := range c.StaticGroups {
		if g.Name.Name() == name {
			return g
		}
	}
	return nil
}

// AllGroups returns dynamic and static groups concatenated, for callers that
// don't care about the distinction (e.g. the printer).
func (c *Component) AllGroups() []*Group {
	out := make([]*Group, 0, len(c.Groups)+len(c.StaticGroups))
	out = append(out, c.Groups...)
	out = append(out, c.StaticGroups...)
	return out
}

// AllAssignments returns continuous assignments plus every group's and
// comb-group's assignments, used by analyses that don't care about scope.
func (c *Component) AllAssignments() []Assignment {
	var out []Assignment
	out = append(out, c.Continuous...)
	for _, g := range c.AllGroups() {
		out = append(out, g.Assignments...)
	}
	for _, cg := range c.CombGroups {
		out = append(out, cg.Assignments...)
	}
	return out
}
