// Package guard implements Calyx's guard algebra: a hash-consed DAG of
// boolean expressions over cell ports, shared within a component so that
// structurally identical guards collapse to one handle (spec.md §4.1).
package guard

import (
	"fmt"
	"sort"

	"github.com/calyx-lang/calyxgo/ident"
)

// CompOp enumerates the comparison operators a Comp node may carry.
type CompOp int

const (
	Eq CompOp = iota
	Neq
	Lt
	Gt
	Le
	Ge
)

func (op CompOp) String() string {
	switch op {
	case Eq:
		return "=="
	case Neq:
		return "!="
	case Lt:
		return "<"
	case Gt:
		return ">"
	case Le:
		return "<="
	case Ge:
		return ">="
	default:
		return "?"
	}
}

// Handle is a stable reference to an interned guard node within one Pool.
// The zero Handle is never issued by Pool.intern; it denotes "no guard"
// where that is meaningful (e.g. an absent optional comb-group condition).
type Handle uint32

// Kind discriminates the flattened node shapes a Pool stores.
type Kind int

const (
	KindTrue Kind = iota
	KindPort
	KindNot
	KindAnd
	KindOr
	KindComp
	KindInfo
)

// TimingInfo is the `%[lo:hi]` static-timing predicate: true while the
// enclosing static group's cycle counter is within [Lo, Hi).
type TimingInfo struct {
	Lo, Hi uint64
}

// Flat is the pool-resident, already-interned representation of one guard
// node: children are Handles into the same pool, never pointers, so pool
// entries are plain comparable values fit for use as map keys.
type Flat struct {
	Kind Kind
	Port ident.ID // valid for KindPort, and as the lhs for KindComp
	Rhs  ident.ID // valid for KindComp (the right-hand port)
	Op   CompOp   // valid for KindComp
	L, R Handle   // children for KindNot(L), KindAnd/KindOr(L,R)
	Info TimingInfo
}

// shape is the hashable lookup key for Flat — identical to Flat today, kept
// distinct so a future addition to Flat (e.g. a debug label) doesn't
// accidentally change hash-consing identity.
type shape = Flat

// Tree is the caller-built, pre-interning guard representation: a plain Go
// tree that Pool.Flatten walks bottom-up. Build a Tree with the package
// constructors (True, Port, Not, And, Or, Comp, Info) and hand it to
// Pool.Flatten once.
type Tree struct {
	kind Kind
	port ident.ID
	rhs  ident.ID
	op   CompOp
	l, r *Tree
	info TimingInfo
}

func True() *Tree { return &Tree{kind: KindTrue} }

func Port(p ident.ID) *Tree { return &Tree{kind: KindPort, port: p} }

func Not(g *Tree) *Tree { return &Tree{kind: KindNot, l: g} }

// And and Or deliberately do NOT canonicalize operand order. spec.md §8
// requires that intern(And(g1,g2)) != intern(And(g2,g1)) unless the two
// trees are already structurally identical — canonicalizing here would
// silently reorder the guards Verilog emission sees, which the backend's
// flat-assign wire numbering depends on staying stable.
func And(a, b *Tree) *Tree { return &Tree{kind: KindAnd, l: a, r: b} }

func Or(a, b *Tree) *Tree { return &Tree{kind: KindOr, l: a, r: b} }

func Comp(op CompOp, lhs, rhs ident.ID) *Tree {
	return &Tree{kind: KindComp, port: lhs, rhs: rhs, op: op}
}

func Info(lo, hi uint64) *Tree { return &Tree{kind: KindInfo, info: TimingInfo{Lo: lo, Hi: hi}} }

// Pool is a per-component hash-consed guard store: a dense vector of Flat
// nodes plus a hash table keyed by structural shape, exactly mirroring
// confignew.NameIDBinding's table-plus-counter shape but keyed on a guard's
// flattened form instead of a bare string.
type Pool struct {
	nodes     []Flat
	index     map[shape]Handle
	readCache []readSet // lazily populated, parallel to nodes
}

// readSet is a small set of port ids, stored sorted for determinism and
// cheap union.
type readSet struct {
	computed bool
	ports    []ident.ID
}

// NewPool constructs an empty pool with the True guard pre-interned at
// handle 1 (handle 0 stays reserved for "no guard").
func NewPool() *Pool {
	p := &Pool{index: make(map[shape]Handle)}
	p.nodes = append(p.nodes, Flat{}) // handle 0 sentinel, never returned
	p.readCache = append(p.readCache, readSet{computed: true})
	p.intern(Flat{Kind: KindTrue})
	return p
}

// TrueHandle is the pool-wide handle for the constant True guard.
func (p *Pool) TrueHandle() Handle { return 1 }

// Get returns the Flat node for h.
func (p *Pool) Get(h Handle) Flat { return p.nodes[h] }

// Flatten interns t (and, recursively, its children) into the pool,
// returning the resulting handle. Equal-shaped sub-trees collapse onto the
// same handle even across separate Flatten calls.
func (p *Pool) Flatten(t *Tree) Handle {
	if t == nil {
		return p.TrueHandle()
	}
	switch t.kind {
	case KindTrue:
		return p.TrueHandle()
	case KindPort:
		return p.intern(Flat{Kind: KindPort, Port: t.port})
	case KindNot:
		return p.intern(Flat{Kind: KindNot, L: p.Flatten(t.l)})
	case KindAnd:
		return p.intern(Flat{Kind: KindAnd, L: p.Flatten(t.l), R: p.Flatten(t.r)})
	case KindOr:
		return p.intern(Flat{Kind: KindOr, L: p.Flatten(t.l), R: p.Flatten(t.r)})
	case KindComp:
		return p.intern(Flat{Kind: KindComp, Port: t.port, Rhs: t.rhs, Op: t.op})
	case KindInfo:
		return p.intern(Flat{Kind: KindInfo, Info: t.info})
	default:
		panic(fmt.Sprintf("guard: unknown tree kind %d", t.kind))
	}
}

// intern performs the post-order hash-table lookup-or-insert described in
// spec.md §4.1: a miss appends to the dense vector and indexes the new
// handle by its flat shape.
func (p *Pool) intern(f Flat) Handle {
	if h, ok := p.index[f]; ok {
		return h
	}
	p.nodes = append(p.nodes, f)
	p.readCache = append(p.readCache, readSet{})
	h := Handle(len(p.nodes) - 1)
	p.index[f] = h
	return h
}

// Iter yields (handle, node) pairs in insertion order, which Pool.Flatten
// guarantees is also a valid post-order (children always precede parents) —
// the order the Verilog backend's flat-assign mode relies on when emitting
// one `_guardK` wire per handle.
func (p *Pool) Iter(yield func(h Handle, f Flat) bool) {
	for h := Handle(1); int(h) < len(p.nodes); h++ {
		if !yield(h, p.nodes[h]) {
			return
		}
	}
}

// Reads returns the set of ports h's guard reads, computing and memoizing it
// on first request (spec.md §4.1 "a lazy cache avoids recomputation").
func (p *Pool) Reads(h Handle) []ident.ID {
	if p.readCache[h].computed {
		return p.readCache[h].ports
	}
	f := p.nodes[h]
	var out []ident.ID
	switch f.Kind {
	case KindTrue, KindInfo:
		// no ports read
	case KindPort:
		out = []ident.ID{f.Port}
	case KindComp:
		out = []ident.ID{f.Port, f.Rhs}
	case KindNot:
		out = append(out, p.Reads(f.L)...)
	case KindAnd, KindOr:
		out = append(out, p.Reads(f.L)...)
		out = append(out, p.Reads(f.R)...)
	}
	out = dedupSorted(out)
	p.readCache[h] = readSet{computed: true, ports: out}
	return out
}

func dedupSorted(ids []ident.ID) []ident.ID {
	if len(ids) < 2 {
		return ids
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

// Size returns the number of distinct interned nodes (excluding the zero
// sentinel).
func (p *Pool) Size() int { return len(p.nodes) - 1 }
