package passes_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/calyx-lang/calyxgo/attr"
	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/ir"
	"github.com/calyx-lang/calyxgo/passes"
)

var _ = Describe("CSE", func() {
	It("removes an exact duplicate assignment within a group", func() {
		c := ir.NewBuilder("main").Build()
		cell := c.AddCell(c.Ident.Intern("a", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_wire"})
		in := cell.AddPort(c.Ident.Intern("in", diag.Position{}), 8, ir.Input)
		out := cell.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)

		g := c.AddGroup(c.Ident.Intern("g", diag.Position{}))
		a1 := c.Assign(in, out).Guarded(nil)
		a2 := c.Assign(in, out).Guarded(nil)
		g.Assignments = []ir.Assignment{a1, a2}

		Expect(passes.CSE(c)).To(Succeed())
		Expect(g.Assignments).To(HaveLen(1))
	})
})

var _ = Describe("PromoteStatic", func() {
	It("promotes a Seq of two static enables into a StaticSeq", func() {
		c := ir.NewBuilder("main").Build()
		g1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 2)
		g2 := c.AddStaticGroup(c.Ident.Intern("g2", diag.Position{}), 3)
		c.Control = ir.NewSeq(ir.NewEnable(g1), ir.NewEnable(g2))

		Expect(passes.PromoteStatic(c, passes.DefaultPromotionPolicy())).To(Succeed())
		seq, ok := c.Control.(*ir.StaticSeq)
		Expect(ok).To(BeTrue())
		Expect(seq.Latency).To(Equal(uint64(5)))
	})

	It("promotes a dynamic enable carrying a @promote_static hint once it clears the policy", func() {
		c := ir.NewBuilder("main").Build()
		g := c.AddGroup(c.Ident.Intern("g", diag.Position{}))
		g.Attrs.Set(attr.PromoteStatic, 4)
		c.Control = ir.NewEnable(g)

		policy := passes.PromotionPolicy{Threshold: 1, CycleLimit: 10, IfDiffTolerance: 0}
		Expect(passes.PromoteStatic(c, policy)).To(Succeed())
		enable, ok := c.Control.(*ir.StaticEnable)
		Expect(ok).To(BeTrue())
		Expect(enable.Latency).To(Equal(uint64(4)))
	})

	It("leaves a hinted enable dynamic when its latency exceeds the cycle limit", func() {
		c := ir.NewBuilder("main").Build()
		g := c.AddGroup(c.Ident.Intern("g", diag.Position{}))
		g.Attrs.Set(attr.PromoteStatic, 100)
		c.Control = ir.NewEnable(g)

		policy := passes.PromotionPolicy{Threshold: 1, CycleLimit: 10, IfDiffTolerance: 0}
		Expect(passes.PromoteStatic(c, policy)).To(Succeed())
		_, ok := c.Control.(*ir.Enable)
		Expect(ok).To(BeTrue())
	})

	It("splits an oversized static-eligible seq at the midpoint instead of leaving it fully dynamic", func() {
		c := ir.NewBuilder("main").Build()
		g1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 6)
		g2 := c.AddStaticGroup(c.Ident.Intern("g2", diag.Position{}), 6)
		c.Control = ir.NewSeq(ir.NewEnable(g1), ir.NewEnable(g2))

		policy := passes.PromotionPolicy{Threshold: 1, CycleLimit: 10, IfDiffTolerance: 0}
		Expect(passes.PromoteStatic(c, policy)).To(Succeed())
		seq, ok := c.Control.(*ir.Seq)
		Expect(ok).To(BeTrue())
		Expect(seq.Stmts).To(HaveLen(2))
		_, leftStatic := seq.Stmts[0].(*ir.StaticEnable)
		Expect(leftStatic).To(BeTrue())
	})
})

var _ = Describe("BuildSchedule", func() {
	It("assigns sequential non-overlapping windows for a StaticSeq", func() {
		c := ir.NewBuilder("main").Build()
		gg1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 2)
		gg2 := c.AddStaticGroup(c.Ident.Intern("g2", diag.Position{}), 3)
		seq := ir.NewStaticSeq(5, ir.NewStaticEnable(gg1), ir.NewStaticEnable(gg2))

		sched := passes.BuildSchedule(seq)
		Expect(sched.TotalCycles).To(Equal(uint64(5)))
		Expect(sched.Enables[0].Window).To(Equal(passes.Window{Lo: 0, Hi: 2}))
		Expect(sched.Enables[1].Window).To(Equal(passes.Window{Lo: 2, Hi: 5}))
	})

	It("gives every StaticPar child the same start window", func() {
		c := ir.NewBuilder("main").Build()
		gg1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 2)
		gg2 := c.AddStaticGroup(c.Ident.Intern("g2", diag.Position{}), 4)
		par := ir.NewStaticPar(4, ir.NewStaticEnable(gg1), ir.NewStaticEnable(gg2))

		sched := passes.BuildSchedule(par)
		Expect(sched.Enables[0].Window.Lo).To(Equal(uint64(0)))
		Expect(sched.Enables[1].Window.Lo).To(Equal(uint64(0)))
	})
})

var _ = Describe("AllocateFSM", func() {
	It("allocates one state per latency cycle for an ordinary static seq", func() {
		c := ir.NewBuilder("main").Build()
		gg1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 2)
		gg2 := c.AddStaticGroup(c.Ident.Intern("g2", diag.Position{}), 3)
		seq := ir.NewStaticSeq(5, ir.NewStaticEnable(gg1), ir.NewStaticEnable(gg2))

		prog, err := passes.AllocateFSM(seq, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.NumStates()).To(Equal(uint64(5)))
		Expect(prog.States[0].Groups).To(ConsistOf(gg1))
		Expect(prog.States[2].Groups).To(ConsistOf(gg2))
	})

	It("collapses a @one_state static enable into a single counter-held state", func() {
		c := ir.NewBuilder("main").Build()
		gg1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 6)
		gg1.Attrs.SetFlag(attr.OneState)
		enable := ir.NewStaticEnable(gg1)

		prog, err := passes.AllocateFSM(enable, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.NumStates()).To(Equal(uint64(1)))
		Expect(prog.States[0].HoldCycles).To(Equal(uint64(6)))
	})

	It("routes an if's branches through the guard and merges them into one successor set", func() {
		c := ir.NewBuilder("main").Build()
		p := c.AddSignaturePort(c.Ident.Intern("cond", diag.Position{}), 1, ir.Input)
		g1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 2)
		g2 := c.AddStaticGroup(c.Ident.Intern("g2", diag.Position{}), 2)
		after := c.AddStaticGroup(c.Ident.Intern("after", diag.Position{}), 1)
		ifNode := ir.NewStaticIf(p, ir.NewStaticEnable(g1), ir.NewStaticEnable(g2), 2)
		seq := ir.NewStaticSeq(3, ifNode, ir.NewStaticEnable(after))

		prog, err := passes.AllocateFSM(seq, false)
		Expect(err).NotTo(HaveOccurred())
		var guarded int
		for _, e := range prog.Edges {
			if e.Kind == passes.EdgeGuarded && e.Guard == p {
				guarded++
			}
		}
		Expect(guarded).To(BeNumerically(">=", 2))
	})

	It("marks a promoted component's program as needing a looped_once done pulse", func() {
		c := ir.NewBuilder("main").Build()
		gg1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 3)
		enable := ir.NewStaticEnable(gg1)

		prog, err := passes.AllocateFSM(enable, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.NeedsLoopedOnce).To(BeTrue())
	})
})
