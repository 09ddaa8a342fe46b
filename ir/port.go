// Package ir is Calyx's in-memory component representation: cells, ports,
// groups, assignments and the control tree (spec.md §3, §4). Components are
// built once by an external frontend, then mutated in place by optimization
// passes that receive exclusive access to one component at a time.
package ir

import (
	"github.com/calyx-lang/calyxgo/attr"
	"github.com/calyx-lang/calyxgo/ident"
)

// Direction is a port's dataflow direction as declared at the cell that owns
// it. The Verilog backend is responsible for reversing direction between
// the component's "inside view" (what the body sees) and its "outside view"
// (the emitted module's port list) per spec.md §4.7 — ir.Direction always
// names the inside view.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Opposite returns the reversed direction, used by the backend's inside/
// outside view flip.
func (d Direction) Opposite() Direction {
	if d == Input {
		return Output
	}
	return Input
}

// ParentKind discriminates a Port's non-owning back-reference, following the
// "ParentId as a variant tag" design from spec.md §9 rather than a cyclic
// owning pointer.
type ParentKind int

const (
	ParentCell ParentKind = iota
	ParentSignature
	ParentHole
)

// Parent is a Port's non-owning back-reference to whatever declared it.
type Parent struct {
	Kind  ParentKind
	Cell  *Cell  // valid when Kind == ParentCell or ParentSignature (the owning component's signature cell)
	Group *Group // valid when Kind == ParentHole
}

// Port is a directed terminal of width >= 1 on a cell, a component
// signature, or a group hole. Port identity is by pointer, never by name —
// spec.md §3 is explicit that two distinctly-allocated ports with the same
// name are not the same port.
type Port struct {
	Name   ident.Identifier
	Width  uint64
	Dir    Direction
	Parent Parent
	Attrs  *attr.Set
}

// NewPort allocates a fresh port with an empty attribute set.
func NewPort(name ident.Identifier, width uint64, dir Direction) *Port {
	return &Port{Name: name, Width: width, Dir: dir, Attrs: &attr.Set{}}
}

// QualifiedName renders "cell.port" / "group[hole]" / "port" depending on
// the parent, matching the surface syntax's three port-reference forms from
// spec.md §6.
func (p *Port) QualifiedName() string {
	switch p.Parent.Kind {
	case ParentCell:
		return p.Parent.Cell.Name.Name() + "." + p.Name.Name()
	case ParentHole:
		return p.Parent.Group.Name.Name() + "[" + p.Name.Name() + "]"
	default:
		return p.Name.Name()
	}
}

// IsHole reports whether p is a group's implicit go/done hole.
func (p *Port) IsHole() bool { return p.Parent.Kind == ParentHole }

// IsData reports whether both the port and its owning cell carry the @data
// attribute, the condition spec.md §4.7 uses to pick the unguarded-default
// emission strategy over the zero-default one.
func (p *Port) IsData() bool {
	if !p.Attrs.Has(attr.Data) {
		return false
	}
	if p.Parent.Kind == ParentCell && p.Parent.Cell != nil {
		return p.Parent.Cell.Attrs.Has(attr.Data)
	}
	return false
}
