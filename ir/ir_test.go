package ir_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/guard"
	"github.com/calyx-lang/calyxgo/ir"
)

// buildAdder constructs the spec.md §8 "Adder" scenario:
//
//	a = std_add(8); x = std_reg(8); c = std_const(8, 5)
//	group do_add: a.left = x.out; a.right = c.out; x.in = a.out;
//	              x.write_en = 1'd1; do_add[done] = x.done
func buildAdder() (*ir.Component, *ir.Group) {
	c := ir.NewBuilder("main").Build()

	a := c.AddCell(c.Ident.Intern("a", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_add"})
	aLeft := a.AddPort(c.Ident.Intern("left", diag.Position{}), 8, ir.Input)
	aRight := a.AddPort(c.Ident.Intern("right", diag.Position{}), 8, ir.Input)
	aOut := a.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)

	x := c.AddCell(c.Ident.Intern("x", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_reg"})
	xIn := x.AddPort(c.Ident.Intern("in", diag.Position{}), 8, ir.Input)
	xWriteEn := x.AddPort(c.Ident.Intern("write_en", diag.Position{}), 1, ir.Input)
	xOut := x.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)
	xDone := x.AddPort(c.Ident.Intern("done", diag.Position{}), 1, ir.Output)

	constCell := c.AddCell(c.Ident.Intern("const5", diag.Position{}), ir.Prototype{Kind: ir.ConstantProto, ConstValue: 5, ConstWidth: 8})
	constOut := constCell.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)

	g := c.AddGroup(c.Ident.Intern("do_add", diag.Position{}))
	g.Assignments = append(g.Assignments,
		c.Assign(aLeft, xOut).Guarded(nil),
		c.Assign(aRight, constOut).Guarded(nil),
		c.Assign(xIn, aOut).Guarded(nil),
		c.Assign(xWriteEn, constOut).Guarded(guard.True()),
		c.Assign(g.Done, xDone).Guarded(nil),
	)

	c.Control = ir.NewSeq(ir.NewEnable(g))
	ir.AssignNodeIDs(c.Control, 1)

	return c, g
}

var _ = Describe("Component", func() {
	It("validates a well-formed adder component with no errors", func() {
		c, _ := buildAdder()
		Expect(ir.Validate(c)).To(BeEmpty())
	})

	It("rejects an assignment that writes a port from a foreign component", func() {
		c, g := buildAdder()
		other := ir.NewBuilder("other").Build()
		foreignCell := other.AddCell(other.Ident.Intern("f", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_wire"})
		foreignPort := foreignCell.AddPort(other.Ident.Intern("in", diag.Position{}), 8, ir.Input)

		g.Assignments = append(g.Assignments, c.Assign(foreignPort, g.Go).Guarded(nil))

		errs := ir.Validate(c)
		Expect(errs).NotTo(BeEmpty())
		found := false
		for _, e := range errs {
			if e.Kind == diag.MalformedStructure {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})

	It("rejects a group assigning to another group's hole", func() {
		c, g := buildAdder()
		other := c.AddGroup(c.Ident.Intern("other_group", diag.Position{}))
		g.Assignments = append(g.Assignments, c.Assign(other.Done, g.Go).Guarded(nil))

		errs := ir.Validate(c)
		Expect(errs).NotTo(BeEmpty())
	})
})

var _ = Describe("StaticLatency", func() {
	It("sums StaticSeq latencies", func() {
		c := ir.NewBuilder("s").Build()
		g1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 1)
		g2 := c.AddStaticGroup(c.Ident.Intern("g2", diag.Position{}), 2)
		g3 := c.AddStaticGroup(c.Ident.Intern("g3", diag.Position{}), 1)

		seq := ir.NewStaticSeq(4, ir.NewStaticEnable(g1), ir.NewStaticEnable(g2), ir.NewStaticEnable(g3))
		Expect(ir.ValidateStaticLatencies(seq)).To(BeEmpty())

		lat, ok := ir.StaticLatency(seq)
		Expect(ok).To(BeTrue())
		Expect(lat).To(Equal(uint64(4)))
	})

	It("flags an inconsistent StaticPar latency", func() {
		c := ir.NewBuilder("p").Build()
		g1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 2)
		g2 := c.AddStaticGroup(c.Ident.Intern("g2", diag.Position{}), 5)

		par := ir.NewStaticPar(3, ir.NewStaticEnable(g1), ir.NewStaticEnable(g2))
		errs := ir.ValidateStaticLatencies(par)
		Expect(errs).To(HaveLen(1))
	})

	It("computes StaticRepeat as n times body", func() {
		c := ir.NewBuilder("r").Build()
		g := c.AddStaticGroup(c.Ident.Intern("g", diag.Position{}), 3)
		rep := ir.NewStaticRepeat(4, ir.NewStaticEnable(g), 3)
		Expect(rep.Latency).To(Equal(uint64(12)))
		Expect(ir.ValidateStaticLatencies(rep)).To(BeEmpty())
	})
})
