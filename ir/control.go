package ir

import "github.com/calyx-lang/calyxgo/attr"

// NodeID is the stable numeric id a preorder pass assigns to every control
// node (spec.md §4.3, §9). Ids must be regenerated after any structural
// mutation — AssignNodeIDs does this.
type NodeID uint32

// Control is the common interface implemented by every control-tree node.
// Concrete node types are plain structs (Seq, Par, If, ...), matched with a
// type switch by the traversal framework and the analyses — idiomatic for a
// small, closed, rarely-extended node set, the same shape Go's own ast.Node
// hierarchy uses.
type Control interface {
	NodeID() NodeID
	SetNodeID(NodeID)
	Attributes() *attr.Set
}

type base struct {
	id    NodeID
	attrs *attr.Set
}

func newBase() base { return base{attrs: &attr.Set{}} }

func (b *base) NodeID() NodeID         { return b.id }
func (b *base) SetNodeID(id NodeID)    { b.id = id }
func (b *base) Attributes() *attr.Set  { return b.attrs }

// Empty is the no-op control leaf.
type Empty struct{ base }

func NewEmpty() *Empty { return &Empty{newBase()} }

// Enable activates a single dynamic group until it pulses done.
type Enable struct {
	base
	Group *Group
}

func NewEnable(g *Group) *Enable { return &Enable{newBase(), g} }

// PortBinding binds one callee port (by name, since the callee's Cell may be
// a Reference bound later) to a caller-side source port, used for Invoke's
// input bindings; Src plays the symmetric role for output bindings.
type PortBinding struct {
	CalleePort string
	Src        *Port // for inputs: the value driven in; for outputs: the destination driven
}

// RefCellBinding binds one of the invoked cell's `ref` cell parameters to a
// concrete cell from the enclosing component, for the duration of one
// invocation.
type RefCellBinding struct {
	CalleeRefName string
	Cell          *Cell
}

// Invoke bridges argument ports to a callee cell's ports for one activation.
type Invoke struct {
	base
	Cell      *Cell
	Inputs    []PortBinding
	Outputs   []PortBinding
	CombGroup *CombGroup // optional
	RefCells  []RefCellBinding
}

func NewInvoke(cell *Cell) *Invoke { return &Invoke{base: newBase(), Cell: cell} }

// Seq runs its children in order, one at a time.
type Seq struct {
	base
	Stmts []Control
}

func NewSeq(stmts ...Control) *Seq { return &Seq{newBase(), stmts} }

// Par runs its children concurrently; it completes when all have completed.
type Par struct {
	base
	Stmts []Control
}

func NewPar(stmts ...Control) *Par { return &Par{newBase(), stmts} }

// If gates on Port (one bit), optionally settled first by CombGroup.
type If struct {
	base
	Port      *Port
	CombGroup *CombGroup // optional
	True      Control
	False     Control // may be *Empty
}

func NewIf(port *Port, trueBr, falseBr Control) *If {
	if falseBr == nil {
		falseBr = NewEmpty()
	}
	return &If{base: newBase(), Port: port, True: trueBr, False: falseBr}
}

// While re-enters Body for as long as Port reads true.
type While struct {
	base
	Port      *Port
	CombGroup *CombGroup // optional
	Body      Control
}

func NewWhile(port *Port, body Control) *While {
	return &While{base: newBase(), Port: port, Body: body}
}

// Repeat runs Body Num times, unconditionally.
type Repeat struct {
	base
	Num  uint64
	Body Control
}

func NewRepeat(num uint64, body Control) *Repeat {
	return &Repeat{base: newBase(), Num: num, Body: body}
}

// --- static analogues: each carries a declared, invariant cycle latency ---

// StaticEnable activates a static group for exactly its declared latency.
type StaticEnable struct {
	base
	Group   *Group
	Latency uint64
}

func NewStaticEnable(g *Group) *StaticEnable {
	return &StaticEnable{base: newBase(), Group: g, Latency: g.Latency}
}

// NewStaticEnableWithLatency builds a StaticEnable whose latency comes from
// an inferred @promote_static hint rather than the group's own declared
// Latency field — used when promoting an Enable of a dynamic group.
func NewStaticEnableWithLatency(g *Group, latency uint64) *StaticEnable {
	return &StaticEnable{base: newBase(), Group: g, Latency: latency}
}

// StaticInvoke is Invoke's static analogue: the callee is itself
// declared-static, so the invocation's latency is known at compile time.
type StaticInvoke struct {
	base
	Cell     *Cell
	Inputs   []PortBinding
	Outputs  []PortBinding
	RefCells []RefCellBinding
	Latency  uint64
}

// StaticSeq's latency is the sum of its statements' latencies.
type StaticSeq struct {
	base
	Stmts   []Control
	Latency uint64
}

func NewStaticSeq(latency uint64, stmts ...Control) *StaticSeq {
	return &StaticSeq{base: newBase(), Stmts: stmts, Latency: latency}
}

// StaticPar's latency is the max of its threads' latencies.
type StaticPar struct {
	base
	Stmts   []Control
	Latency uint64
}

func NewStaticPar(latency uint64, stmts ...Control) *StaticPar {
	return &StaticPar{base: newBase(), Stmts: stmts, Latency: latency}
}

// StaticIf's latency is the max of its two branches' latencies (both
// branches execute the same number of cycles after a prior normalization
// pass pads the shorter one, per spec.md §4.6).
type StaticIf struct {
	base
	Port    *Port
	True    Control
	False   Control
	Latency uint64
}

func NewStaticIf(port *Port, trueBr, falseBr Control, latency uint64) *StaticIf {
	return &StaticIf{base: newBase(), Port: port, True: trueBr, False: falseBr, Latency: latency}
}

// StaticRepeat's latency is Num * Body's latency.
type StaticRepeat struct {
	base
	Num     uint64
	Body    Control
	Latency uint64
}

func NewStaticRepeat(num uint64, body Control, bodyLatency uint64) *StaticRepeat {
	return &StaticRepeat{base: newBase(), Num: num, Body: body, Latency: num * bodyLatency}
}

// StaticLatency returns c's static latency contribution, or (0, false) if c
// is not a static control node (spec.md §8 "static-latency soundness").
func StaticLatency(c Control) (uint64, bool) {
	switch n := c.(type) {
	case *StaticEnable:
		return n.Latency, true
	case *StaticInvoke:
		return n.Latency, true
	case *StaticSeq:
		return n.Latency, true
	case *StaticPar:
		return n.Latency, true
	case *StaticIf:
		return n.Latency, true
	case *StaticRepeat:
		return n.Latency, true
	case *Empty:
		return 0, true
	default:
		return 0, false
	}
}

// IsStatic reports whether c is one of the static control variants (or
// Empty, which trivially has latency 0 and composes with either family).
func IsStatic(c Control) bool {
	_, ok := StaticLatency(c)
	return ok
}

// AssignNodeIDs walks c in preorder and assigns each node a fresh NodeID
// starting from start, returning the next unused id — the numbering spec.md
// §4.3/§9 requires for dominator analysis and debugger breakpoint paths.
// Call this again after any structural mutation to the tree.
func AssignNodeIDs(c Control, start NodeID) NodeID {
	if c == nil {
		return start
	}
	c.SetNodeID(start)
	next := start + 1
	switch n := c.(type) {
	case *Seq:
		for _, s := range n.Stmts {
			next = AssignNodeIDs(s, next)
		}
	case *Par:
		for _, s := range n.Stmts {
			next = AssignNodeIDs(s, next)
		}
	case *If:
		next = AssignNodeIDs(n.True, next)
		next = AssignNodeIDs(n.False, next)
	case *While:
		next = AssignNodeIDs(n.Body, next)
	case *Repeat:
		next = AssignNodeIDs(n.Body, next)
	case *StaticSeq:
		for _, s := range n.Stmts {
			next = AssignNodeIDs(s, next)
		}
	case *StaticPar:
		for _, s := range n.Stmts {
			next = AssignNodeIDs(s, next)
		}
	case *StaticIf:
		next = AssignNodeIDs(n.True, next)
		next = AssignNodeIDs(n.False, next)
	case *StaticRepeat:
		next = AssignNodeIDs(n.Body, next)
	}
	return next
}
