package ir

import (
	"github.com/calyx-lang/calyxgo/attr"
	"github.com/calyx-lang/calyxgo/ident"
)

// Group is a named collection of assignments plus the implicit go/done
// holes (spec.md §3). A static group declares a fixed non-zero cycle count
// and has no done hole; a group with neither hole is a CombGroup instead.
type Group struct {
	Name        ident.Identifier
	Assignments []Assignment
	Go          *Port
	Done        *Port // nil when Static
	Static      bool
	Latency     uint64 // meaningful only when Static
	Attrs       *attr.Set
}

// NewGroup allocates a dynamic (non-static) group with fresh go/done holes.
func NewGroup(table *ident.Table, name ident.Identifier) *Group {
	g := &Group{Name: name, Attrs: &attr.Set{}}
	g.Go = newHole(table, g, "go")
	g.Done = newHole(table, g, "done")
	return g
}

// NewStaticGroup allocates a static group with the given fixed latency and a
// go hole only (no done — static groups complete on a cycle count, not a
// pulse).
func NewStaticGroup(table *ident.Table, name ident.Identifier, latency uint64) *Group {
	g := &Group{Name: name, Attrs: &attr.Set{}, Static: true, Latency: latency}
	g.Go = newHole(table, g, "go")
	return g
}

func newHole(table *ident.Table, g *Group, name string) *Port {
	id := table.Intern(name, g.Name.Pos())
	p := NewPort(id, 1, Output)
	p.Parent = Parent{Kind: ParentHole, Group: g}
	return p
}

// Hole looks up a group's go/done port by name.
func (g *Group) Hole(name string) *Port {
	if g.Go != nil && g.Go.Name.Name() == name {
		return g.Go
	}
	if g.Done != nil && g.Done.Name.Name() == name {
		return g.Done
	}
	return nil
}

// CombGroup holds assignments active while an attached control node (an If,
// While, or Invoke) is active; it has neither a go nor a done hole and must
// contain only combinational assignments.
type CombGroup struct {
	Name        ident.Identifier
	Assignments []Assignment
	Attrs       *attr.Set
}

// NewCombGroup allocates an empty combinational group.
func NewCombGroup(name ident.Identifier) *CombGroup {
	return &CombGroup{Name: name, Attrs: &attr.Set{}}
}
