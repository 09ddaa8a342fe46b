package guard_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/guard"
	"github.com/calyx-lang/calyxgo/ident"
)

var _ = Describe("Pool", func() {
	var (
		table *ident.Table
		pool  *guard.Pool
		pa    ident.Identifier
		pb    ident.Identifier
	)

	BeforeEach(func() {
		table = ident.NewTable()
		pool = guard.NewPool()
		pa = table.Intern("a.out", diag.Position{})
		pb = table.Intern("b.out", diag.Position{})
	})

	It("interns structurally equal trees to the same handle", func() {
		g1 := guard.And(guard.Port(pa.ID()), guard.Port(pb.ID()))
		g2 := guard.And(guard.Port(pa.ID()), guard.Port(pb.ID()))

		h1 := pool.Flatten(g1)
		h2 := pool.Flatten(g2)

		Expect(h1).To(Equal(h2))
	})

	It("does not canonicalize commutative forms", func() {
		g1 := guard.And(guard.Port(pa.ID()), guard.Port(pb.ID()))
		g2 := guard.And(guard.Port(pb.ID()), guard.Port(pa.ID()))

		Expect(pool.Flatten(g1)).NotTo(Equal(pool.Flatten(g2)))
	})

	It("shares sub-guards across separate Flatten calls", func() {
		shared := guard.Port(pa.ID())
		h1 := pool.Flatten(guard.Not(shared))
		h2 := pool.Flatten(guard.Not(guard.Port(pa.ID())))

		Expect(h1).To(Equal(h2))
	})

	It("computes the read set of a composite guard as the union of children", func() {
		g := guard.And(guard.Port(pa.ID()), guard.Not(guard.Port(pb.ID())))
		h := pool.Flatten(g)

		Expect(pool.Reads(h)).To(ConsistOf(pa.ID(), pb.ID()))
	})

	It("reserves handle 1 for True and treats it as the pool default", func() {
		Expect(pool.TrueHandle()).To(Equal(guard.Handle(1)))
		Expect(pool.Get(pool.TrueHandle()).Kind).To(Equal(guard.KindTrue))
	})

	It("iterates nodes in an order where children precede parents", func() {
		g := guard.And(guard.Port(pa.ID()), guard.Port(pb.ID()))
		top := pool.Flatten(g)

		seen := map[guard.Handle]bool{}
		pool.Iter(func(h guard.Handle, f guard.Flat) bool {
			if f.Kind == guard.KindAnd {
				Expect(seen[f.L]).To(BeTrue())
				Expect(seen[f.R]).To(BeTrue())
			}
			seen[h] = true
			return true
		})
		Expect(seen[top]).To(BeTrue())
	})
})
