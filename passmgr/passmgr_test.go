package passmgr_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/ir"
	"github.com/calyx-lang/calyxgo/passmgr"
)

func buildTree() *ir.Component {
	c := ir.NewBuilder("main").Build()
	g1 := c.AddGroup(c.Ident.Intern("g1", diag.Position{}))
	g2 := c.AddGroup(c.Ident.Intern("g2", diag.Position{}))
	g3 := c.AddGroup(c.Ident.Intern("g3", diag.Position{}))
	c.Control = ir.NewSeq(
		ir.NewEnable(g1),
		ir.NewPar(ir.NewEnable(g2), ir.NewEnable(g3)),
	)
	return c
}

var _ = Describe("Walk", func() {
	It("visits every Enable node in preorder", func() {
		c := buildTree()
		var seen []string
		v := &passmgr.Visitor{
			EnableHook: func(n *ir.Enable) passmgr.Result {
				seen = append(seen, n.Group.Name.Name())
				return passmgr.Continue
			},
		}
		ok := passmgr.Walk(v, c.Control)
		Expect(ok).To(BeTrue())
		Expect(seen).To(Equal([]string{"g1", "g2", "g3"}))
	})

	It("stops immediately when a hook returns Stop", func() {
		c := buildTree()
		count := 0
		v := &passmgr.Visitor{
			EnableHook: func(n *ir.Enable) passmgr.Result {
				count++
				return passmgr.Stop
			},
		}
		ok := passmgr.Walk(v, c.Control)
		Expect(ok).To(BeFalse())
		Expect(count).To(Equal(1))
	})

	It("skips a Par's children when its hook returns SkipChildren", func() {
		c := buildTree()
		var seen []string
		v := &passmgr.Visitor{
			ParHook: func(n *ir.Par) passmgr.Result {
				return passmgr.SkipChildren
			},
			EnableHook: func(n *ir.Enable) passmgr.Result {
				seen = append(seen, n.Group.Name.Name())
				return passmgr.Continue
			},
		}
		passmgr.Walk(v, c.Control)
		Expect(seen).To(Equal([]string{"g1"}))
	})
})

var _ = Describe("Pipeline", func() {
	It("runs passes in order and tracks invalidation", func() {
		c := buildTree()
		var order []string
		p1 := passmgr.NewBuilder("p1").
			WithInvalidates("doms").
			WithRun(func(c *ir.Component) error { order = append(order, "p1"); return nil }).
			Build()
		p2 := passmgr.NewBuilder("p2").
			WithRequires(passmgr.Dependency{Pass: "p1"}).
			WithRun(func(c *ir.Component) error { order = append(order, "p2"); return nil }).
			Build()

		pipeline := passmgr.NewPipeline(nil, p1, p2)
		Expect(pipeline.Run(c)).To(Succeed())
		Expect(order).To(Equal([]string{"p1", "p2"}))
	})

	It("stops and wraps the error when a pass fails", func() {
		c := buildTree()
		failing := passmgr.NewBuilder("boom").
			WithRun(func(c *ir.Component) error { return fmt.Errorf("exploded") }).
			Build()
		pipeline := passmgr.NewPipeline(nil, failing)
		err := pipeline.Run(c)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("boom"))
	})
})
