package ir

import (
	"sort"

	"github.com/calyx-lang/calyxgo/attr"
	"github.com/calyx-lang/calyxgo/ident"
)

// PrototypeKind discriminates what a Cell is an instance of (spec.md §3).
type PrototypeKind int

const (
	// PrimProto is a library primitive (std_reg, std_mult_pipe, comb_mem_d2, ...).
	PrimProto PrototypeKind = iota
	// SubComponentProto refers to another component defined in the same program.
	SubComponentProto
	// ConstantProto is a literal constant cell with one output port.
	ConstantProto
	// SignatureProto marks the enclosing component's own signature
	// pseudo-cell (spec.md: "the enclosing component's own signature
	// pseudo-cell").
	SignatureProto
)

// Param is one name=value parameter binding on a primitive instantiation
// (e.g. WIDTH=32). Stored as an ordered slice, not a map, so emission order
// (and therefore generated Verilog text) is deterministic.
type Param struct {
	Name  string
	Value uint64
}

// Prototype describes what a Cell instantiates.
type Prototype struct {
	Kind PrototypeKind

	// valid when Kind == PrimProto
	PrimitiveName string
	Params        []Param

	// valid when Kind == SubComponentProto
	ComponentName ident.Identifier

	// valid when Kind == ConstantProto
	ConstValue uint64
	ConstWidth uint64
}

// Param looks up a named parameter, returning ok=false if unset.
func (p Prototype) Param(name string) (uint64, bool) {
	for _, kv := range p.Params {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return 0, false
}

// SortedParams returns a copy of Params sorted by name, used by the backend
// when it needs a canonical parameter order independent of declaration
// order (e.g. for deduplicating inline primitive module bodies).
func (p Prototype) SortedParams() []Param {
	out := make([]Param, len(p.Params))
	copy(out, p.Params)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Cell is a named instance owning its ports (spec.md §3). A cell may be
// marked Reference (bound externally at each invocation, per an Invoke
// control node) or External (backed by host memory, for memories synthesized
// with @external).
type Cell struct {
	Name      ident.Identifier
	Proto     Prototype
	Ports     []*Port
	Reference bool
	External  bool
	Attrs     *attr.Set
}

// NewCell allocates a cell with an empty port list and attribute set.
func NewCell(name ident.Identifier, proto Prototype) *Cell {
	return &Cell{Name: name, Proto: proto, Attrs: &attr.Set{}}
}

// AddPort appends a port to the cell, wiring its Parent back-reference and
// returning it for chaining.
func (c *Cell) AddPort(name ident.Identifier, width uint64, dir Direction) *Port {
	p := NewPort(name, width, dir)
	p.Parent = Parent{Kind: ParentCell, Cell: c}
	c.Ports = append(c.Ports, p)
	return p
}

// Port looks up a port by name, returning nil if absent.
func (c *Cell) Port(name string) *Port {
	for _, p := range c.Ports {
		if p.Name.Name() == name {
			return p
		}
	}
	return nil
}

// GoPort and DonePort return a primitive cell's standard handshake ports, if
// present. Combinational primitives and constants have neither.
func (c *Cell) GoPort() *Port   { return c.Port("go") }
func (c *Cell) DonePort() *Port { return c.Port("done") }

// IsComb reports whether the cell is purely combinational, judged only by
// its ports: it has neither a go nor a done port. Reference and external
// cells are not treated specially.
func (c *Cell) IsComb() bool {
	return c.GoPort() == nil && c.DonePort() == nil
}
