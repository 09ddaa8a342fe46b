package analysis_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/calyx-lang/calyxgo/analysis"
	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/ir"
)

var _ = Describe("ComputeDominance", func() {
	It("has every node dominate itself and the root dominate everything", func() {
		c := ir.NewBuilder("main").Build()
		g1 := c.AddGroup(c.Ident.Intern("g1", diag.Position{}))
		g2 := c.AddGroup(c.Ident.Intern("g2", diag.Position{}))
		seq := ir.NewSeq(ir.NewEnable(g1), ir.NewEnable(g2))
		c.Control = seq
		ir.AssignNodeIDs(c.Control, 1)

		dom := analysis.ComputeDominance(c)
		root := seq.NodeID()
		e1 := seq.Stmts[0].NodeID()
		e2 := seq.Stmts[1].NodeID()

		Expect(dom.Dominates(root, e1)).To(BeTrue())
		Expect(dom.Dominates(root, e2)).To(BeTrue())
		// a seq's later statement is guaranteed to run only after its
		// earlier statements have, so the earlier one is a real dominator.
		Expect(dom.Dominates(e1, e2)).To(BeTrue())
		Expect(dom.Dominates(e2, e1)).To(BeFalse())
		Expect(dom.Dominates(e1, e1)).To(BeTrue())
	})

	It("accumulates every guaranteed predecessor across a three-statement seq", func() {
		c := ir.NewBuilder("main").Build()
		g1 := c.AddGroup(c.Ident.Intern("g1", diag.Position{}))
		g2 := c.AddGroup(c.Ident.Intern("g2", diag.Position{}))
		g3 := c.AddGroup(c.Ident.Intern("g3", diag.Position{}))
		seq := ir.NewSeq(ir.NewEnable(g1), ir.NewEnable(g2), ir.NewEnable(g3))
		c.Control = seq
		ir.AssignNodeIDs(c.Control, 1)

		dom := analysis.ComputeDominance(c)
		a, b, cc := seq.Stmts[0].NodeID(), seq.Stmts[1].NodeID(), seq.Stmts[2].NodeID()

		Expect(dom.Dominates(a, cc)).To(BeTrue())
		Expect(dom.Dominates(b, cc)).To(BeTrue())
		dominators := dom.Dominators(cc)
		Expect(dominators).To(HaveKey(a))
		Expect(dominators).To(HaveKey(b))
	})

	It("dominates an if's branches from the if node but not across branches, and joins back through the if alone", func() {
		c := ir.NewBuilder("main").Build()
		p := c.AddSignaturePort(c.Ident.Intern("cond", diag.Position{}), 1, ir.Input)
		g1 := c.AddGroup(c.Ident.Intern("g1", diag.Position{}))
		g2 := c.AddGroup(c.Ident.Intern("g2", diag.Position{}))
		g3 := c.AddGroup(c.Ident.Intern("g3", diag.Position{}))
		ifNode := ir.NewIf(p, ir.NewEnable(g1), ir.NewEnable(g2))
		after := ir.NewEnable(g3)
		seq := ir.NewSeq(ifNode, after)
		c.Control = seq
		ir.AssignNodeIDs(c.Control, 1)

		dom := analysis.ComputeDominance(c)
		Expect(dom.Dominates(ifNode.NodeID(), ifNode.True.NodeID())).To(BeTrue())
		Expect(dom.Dominates(ifNode.NodeID(), ifNode.False.NodeID())).To(BeTrue())
		Expect(dom.Dominates(ifNode.True.NodeID(), ifNode.False.NodeID())).To(BeFalse())

		// the node after the if is dominated by the if node itself, not by
		// whichever branch happened to run.
		Expect(dom.Dominates(ifNode.NodeID(), after.NodeID())).To(BeTrue())
		Expect(dom.Dominates(ifNode.True.NodeID(), after.NodeID())).To(BeFalse())
		Expect(dom.ExitsOf(ifNode.NodeID())).To(ConsistOf(ifNode.NodeID()))
	})

	It("does not carry a while body's own exit back as its own predecessor", func() {
		c := ir.NewBuilder("main").Build()
		p := c.AddSignaturePort(c.Ident.Intern("cond", diag.Position{}), 1, ir.Input)
		g1 := c.AddGroup(c.Ident.Intern("g1", diag.Position{}))
		whileNode := ir.NewWhile(p, ir.NewEnable(g1))
		c.Control = whileNode
		ir.AssignNodeIDs(c.Control, 1)

		dom := analysis.ComputeDominance(c)
		Expect(dom.Dominates(whileNode.NodeID(), whileNode.Body.NodeID())).To(BeTrue())
		Expect(dom.Dominates(whileNode.Body.NodeID(), whileNode.Body.NodeID())).To(BeTrue())
		Expect(dom.ExitsOf(whileNode.NodeID())).To(ConsistOf(whileNode.NodeID()))
	})

	It("reports reads and guaranteed writes for a group enable", func() {
		c := ir.NewBuilder("main").Build()
		reg := c.AddCell(c.Ident.Intern("r", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_reg"})
		src := c.AddCell(c.Ident.Intern("s", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_reg"})
		g1 := c.AddGroup(c.Ident.Intern("g1", diag.Position{}))
		dst := reg.AddPort(c.Ident.Intern("in", diag.Position{}), 32, ir.Input)
		from := src.AddPort(c.Ident.Intern("out", diag.Position{}), 32, ir.Output)
		g1.Assignments = append(g1.Assignments, c.Assign(dst, from).Guarded(nil))
		enable := ir.NewEnable(g1)
		c.Control = enable
		ir.AssignNodeIDs(c.Control, 1)

		dom := analysis.ComputeDominance(c)
		candidates := map[*ir.Cell]bool{reg: true, src: true}
		reads := dom.NodeReads(enable.NodeID(), candidates)
		Expect(reads).To(HaveKey(src))
		Expect(reads).NotTo(HaveKey(reg))
		Expect(dom.KeyWrittenGuaranteed(reg, []ir.NodeID{enable.NodeID()})).To(BeTrue())
		Expect(dom.KeyWrittenGuaranteed(src, []ir.NodeID{enable.NodeID()})).To(BeFalse())
	})
})

var _ = Describe("ComputeShareSets", func() {
	It("marks two groups enabled in different threads of the same StaticPar as conflicting", func() {
		c := ir.NewBuilder("main").Build()
		g1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 1)
		g2 := c.AddStaticGroup(c.Ident.Intern("g2", diag.Position{}), 1)
		par := ir.NewStaticPar(1, ir.NewStaticEnable(g1), ir.NewStaticEnable(g2))
		c.Control = par

		shares := analysis.ComputeShareSets(c)
		Expect(shares.CanShare(g1, g2)).To(BeFalse())
	})

	It("allows sharing for two static groups that never co-occur under a StaticPar", func() {
		c := ir.NewBuilder("main").Build()
		g1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 1)
		g2 := c.AddStaticGroup(c.Ident.Intern("g2", diag.Position{}), 1)
		c.Control = ir.NewStaticSeq(2, ir.NewStaticEnable(g1), ir.NewStaticEnable(g2))

		shares := analysis.ComputeShareSets(c)
		Expect(shares.CanShare(g1, g2)).To(BeTrue())
	})
})
