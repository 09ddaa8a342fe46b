package ir

import (
	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/guard"
	"github.com/calyx-lang/calyxgo/ident"
)

// Builder constructs a Component with a fluent, chainable With* API, the
// same shape as config.DeviceBuilder's WithEngine/WithFreq/WithWidth,
// generalized from "build a CGRA mesh" to "build a Calyx component".
type Builder struct {
	table   *ident.Table
	name    string
	kind    Kind
	latency uint64
}

// NewBuilder starts building a component named name.
func NewBuilder(name string) Builder {
	return Builder{table: ident.NewTable(), name: name}
}

// WithKind sets the component's kind (Normal, Combinational, DeclaredStatic).
func (b Builder) WithKind(k Kind) Builder {
	b.kind = k
	return b
}

// WithStaticLatency marks the component DeclaredStatic with the given fixed
// latency.
func (b Builder) WithStaticLatency(n uint64) Builder {
	b.kind = DeclaredStatic
	b.latency = n
	return b
}

// Build finalizes the component.
func (b Builder) Build() *Component {
	c := NewComponent(b.table.Intern(b.name, diag.Position{}))
	c.Ident = b.table
	c.Kind = b.kind
	c.Latency = b.latency
	return c
}

// AssignBuilder is a tiny helper for constructing an Assignment against a
// component's own guard pool, reducing the (dst, src, tree-guard) triple
// call sites to one fluent expression.
type AssignBuilder struct {
	pool *guard.Pool
	dst  *Port
	src  *Port
}

// Assign starts building an assignment into dst on c's guard pool.
func (c *Component) Assign(dst, src *Port) AssignBuilder {
	return AssignBuilder{pool: c.Guards, dst: dst, src: src}
}

// Guarded finalizes the assignment with guard tree g (nil means
// unconditional / True).
func (b AssignBuilder) Guarded(g *guard.Tree) Assignment {
	h := b.pool.TrueHandle()
	if g != nil {
		h = b.pool.Flatten(g)
	}
	return Assignment{Dst: b.dst, Src: b.src, Guard: h}
}
