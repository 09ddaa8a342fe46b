package main

import (
	"fmt"

	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/ir"
)

// Surface-syntax parsing is an explicit external collaborator (spec.md §1
// "Out of scope" / §6 "The parser is external; the IR boundary accepts the
// post-parse AST"), so this binary has no Calyx-text front end. Instead its
// positional input argument names one of the builtin components below,
// constructed the same way the interp/flatten test fixtures are: directly
// through ir.NewBuilder. A real deployment appends a text-or-JSON front end
// at this same seam; fixtureByName is that seam.
func fixtureByName(name string) (*ir.Component, error) {
	switch name {
	case "adder":
		return buildAdderComponent(), nil
	case "counter":
		return buildCounterComponent(), nil
	default:
		return nil, fmt.Errorf("calyx: unknown builtin component %q (known: adder, counter)", name)
	}
}

// buildAdderComponent wires a combinational adder into a register behind a
// single dynamic group: do_add reads the register and a constant, adds
// them, and latches the sum back into the register.
func buildAdderComponent() *ir.Component {
	c := ir.NewBuilder("adder").Build()
	table := c.Ident
	pos := diag.Position{}

	addCell := c.AddCell(table.Intern("a", pos), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_add",
		Params: []ir.Param{{Name: "WIDTH", Value: 8}}})
	left := addCell.AddPort(table.Intern("left", pos), 8, ir.Input)
	right := addCell.AddPort(table.Intern("right", pos), 8, ir.Input)
	aOut := addCell.AddPort(table.Intern("out", pos), 8, ir.Output)

	reg := c.AddCell(table.Intern("x", pos), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_reg",
		Params: []ir.Param{{Name: "WIDTH", Value: 8}}})
	regIn := reg.AddPort(table.Intern("in", pos), 8, ir.Input)
	writeEn := reg.AddPort(table.Intern("write_en", pos), 1, ir.Input)
	regOut := reg.AddPort(table.Intern("out", pos), 8, ir.Output)
	regDone := reg.AddPort(table.Intern("done", pos), 1, ir.Output)

	one := c.AddCell(table.Intern("const1", pos), ir.Prototype{Kind: ir.ConstantProto, ConstValue: 1, ConstWidth: 8})
	oneOut := one.AddPort(table.Intern("out", pos), 8, ir.Output)

	g := c.AddGroup(table.Intern("do_add", pos))
	g.Assignments = append(g.Assignments,
		c.Assign(left, regOut).Guarded(nil),
		c.Assign(right, oneOut).Guarded(nil),
		c.Assign(regIn, aOut).Guarded(nil),
		c.Assign(writeEn, oneOut).Guarded(nil),
		c.Assign(g.Done, regDone).Guarded(nil),
	)

	c.Control = ir.NewSeq(ir.NewEnable(g))
	ir.AssignNodeIDs(c.Control, 1)
	return c
}

// buildCounterComponent repeats its own increment group (tick) ten times
// inside a repeat node, the simplest control shape that exercises step-over and a
// multi-iteration breakpoint hit count.
func buildCounterComponent() *ir.Component {
	c := ir.NewBuilder("counter").Build()
	table := c.Ident
	pos := diag.Position{}

	reg := c.AddCell(table.Intern("cnt", pos), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_reg",
		Params: []ir.Param{{Name: "WIDTH", Value: 8}}})
	regIn := reg.AddPort(table.Intern("in", pos), 8, ir.Input)
	writeEn := reg.AddPort(table.Intern("write_en", pos), 1, ir.Input)
	regOut := reg.AddPort(table.Intern("out", pos), 8, ir.Output)
	regDone := reg.AddPort(table.Intern("done", pos), 1, ir.Output)

	addCell := c.AddCell(table.Intern("incr", pos), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_add",
		Params: []ir.Param{{Name: "WIDTH", Value: 8}}})
	left := addCell.AddPort(table.Intern("left", pos), 8, ir.Input)
	right := addCell.AddPort(table.Intern("right", pos), 8, ir.Input)
	aOut := addCell.AddPort(table.Intern("out", pos), 8, ir.Output)

	one := c.AddCell(table.Intern("const1", pos), ir.Prototype{Kind: ir.ConstantProto, ConstValue: 1, ConstWidth: 8})
	oneOut := one.AddPort(table.Intern("out", pos), 8, ir.Output)

	g := c.AddGroup(table.Intern("tick", pos))
	g.Assignments = append(g.Assignments,
		c.Assign(left, regOut).Guarded(nil),
		c.Assign(right, oneOut).Guarded(nil),
		c.Assign(regIn, aOut).Guarded(nil),
		c.Assign(writeEn, oneOut).Guarded(nil),
		c.Assign(g.Done, regDone).Guarded(nil),
	)

	c.Control = ir.NewSeq(ir.NewRepeat(10, ir.NewEnable(g)))
	ir.AssignNodeIDs(c.Control, 1)
	return c
}
