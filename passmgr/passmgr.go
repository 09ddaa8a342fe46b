// Package passmgr implements the ordered control-tree visitor every
// optimization and analysis pass runs through, generalized from
// api/driver.go's Driver.Tick(now)-per-step loop: where that loop ticked
// one accelerator cycle and reported whether progress was made, a Pass here
// visits one control node and reports what to do next.
package passmgr

import (
	"fmt"
	"log/slog"

	"github.com/calyx-lang/calyxgo/ir"
)

// Result tells the visitor what to do after a hook returns.
type Result int

const (
	// Continue descends into the node's children as usual.
	Continue Result = iota
	// SkipChildren proceeds to the node's siblings without visiting children.
	SkipChildren
	// Change indicates children should be re-visited, since this hook
	// rewrote them to new nodes a fixed-point pass wants to re-check.
	Change
	// Stop aborts the remainder of the traversal immediately.
	Stop
)

// Visitor receives callbacks for each control-node variant as the traversal
// walks c.Control. Every field is optional; a nil hook behaves as Continue.
// Embedding only the hooks a pass needs is idiomatic for this shape, the
// same way api/driver.go callers only override the Driver methods they use.
type Visitor struct {
	Component *ir.Component

	EnableHook       func(n *ir.Enable) Result
	StaticEnableHook func(n *ir.StaticEnable) Result
	InvokeHook       func(n *ir.Invoke) Result
	StaticInvokeHook func(n *ir.StaticInvoke) Result
	SeqHook          func(n *ir.Seq) Result
	StaticSeqHook    func(n *ir.StaticSeq) Result
	ParHook          func(n *ir.Par) Result
	StaticParHook    func(n *ir.StaticPar) Result
	IfHook           func(n *ir.If) Result
	StaticIfHook     func(n *ir.StaticIf) Result
	WhileHook        func(n *ir.While) Result
	RepeatHook       func(n *ir.Repeat) Result
	StaticRepeatHook func(n *ir.StaticRepeat) Result
	EmptyHook        func(n *ir.Empty) Result
}

// Walk runs v over c, visiting every node in preorder. It returns false if a
// hook returned Stop.
func Walk(v *Visitor, c ir.Control) bool {
	return walk(v, c)
}

func walk(v *Visitor, c ir.Control) bool {
	switch n := c.(type) {
	case nil:
		return true
	case *ir.Empty:
		return dispatch(v.EmptyHook, n, nil)
	case *ir.Enable:
		return dispatch(v.EnableHook, n, nil)
	case *ir.StaticEnable:
		return dispatch(v.StaticEnableHook, n, nil)
	case *ir.Invoke:
		return dispatch(v.InvokeHook, n, nil)
	case *ir.StaticInvoke:
		return dispatch(v.StaticInvokeHook, n, nil)
	case *ir.Seq:
		return dispatch(v.SeqHook, n, func() bool { return walkAll(v, n.Stmts) })
	case *ir.StaticSeq:
		return dispatch(v.StaticSeqHook, n, func() bool { return walkAll(v, n.Stmts) })
	case *ir.Par:
		return dispatch(v.ParHook, n, func() bool { return walkAll(v, n.Stmts) })
	case *ir.StaticPar:
		return dispatch(v.StaticParHook, n, func() bool { return walkAll(v, n.Stmts) })
	case *ir.If:
		return dispatch(v.IfHook, n, func() bool { return walk(v, n.True) && walk(v, n.False) })
	case *ir.StaticIf:
		return dispatch(v.StaticIfHook, n, func() bool { return walk(v, n.True) && walk(v, n.False) })
	case *ir.While:
		return dispatch(v.WhileHook, n, func() bool { return walk(v, n.Body) })
	case *ir.Repeat:
		return dispatch(v.RepeatHook, n, func() bool { return walk(v, n.Body) })
	case *ir.StaticRepeat:
		return dispatch(v.StaticRepeatHook, n, func() bool { return walk(v, n.Body) })
	default:
		return true
	}
}

func walkAll(v *Visitor, stmts []ir.Control) bool {
	for _, s := range stmts {
		if !walk(v, s) {
			return false
		}
	}
	return true
}

// dispatch calls hook if set, interprets its Result, and descends via
// descend (nil for leaves). A nil hook behaves like Continue.
func dispatch[T any](hook func(T) Result, n T, descend func() bool) bool {
	res := Continue
	if hook != nil {
		res = hook(n)
	}
	switch res {
	case Stop:
		return false
	case SkipChildren:
		return true
	default: // Continue, Change
		if descend != nil {
			return descend()
		}
		return true
	}
}

// Dependency names another pass that must run, and have its invalidation
// honored, before this one.
type Dependency struct {
	Pass string
}

// Pass is the unit of scheduling the pass pipeline (package passes) runs:
// a name, the analyses it depends on, the analyses it invalidates by
// mutating the control tree or cells, and the Run function itself.
type Pass struct {
	Name        string
	Requires    []Dependency
	Invalidates []string
	Run         func(c *ir.Component) error
}

// Builder assembles a Pass with the same fluent With* shape
// api.DriverBuilder used for wiring a Driver's engine/config, generalized
// here from "build a simulated accelerator" to "build a pass descriptor".
type Builder struct {
	pass Pass
}

// NewBuilder starts building a pass named name.
func NewBuilder(name string) Builder {
	return Builder{pass: Pass{Name: name}}
}

// WithRequires declares analyses that must be available before Run executes.
func (b Builder) WithRequires(deps ...Dependency) Builder {
	b.pass.Requires = append(b.pass.Requires, deps...)
	return b
}

// WithInvalidates declares analyses this pass's Run invalidates.
func (b Builder) WithInvalidates(names ...string) Builder {
	b.pass.Invalidates = append(b.pass.Invalidates, names...)
	return b
}

// WithRun sets the pass body.
func (b Builder) WithRun(fn func(c *ir.Component) error) Builder {
	b.pass.Run = fn
	return b
}

// Build finalizes the pass.
func (b Builder) Build() Pass { return b.pass }

// Pipeline runs an ordered list of passes over c, logging progress the same
// way api/driver.go's Tick loop traced each simulated cycle, and stopping at
// the first error.
type Pipeline struct {
	Passes []Pass
	Logger *slog.Logger

	valid map[string]bool
}

// NewPipeline constructs a pipeline that will run passes in order.
func NewPipeline(logger *slog.Logger, passes ...Pass) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Passes: passes, Logger: logger, valid: map[string]bool{}}
}

// Run executes every pass in order against c.
func (p *Pipeline) Run(c *ir.Component) error {
	for _, pass := range p.Passes {
		for _, dep := range pass.Requires {
			if !p.valid[dep.Pass] {
				p.Logger.Warn("pass dependency not satisfied", "pass", pass.Name, "requires", dep.Pass)
			}
		}
		p.Logger.Debug("running pass", "pass", pass.Name, "component", c.Name.Name())
		if err := pass.Run(c); err != nil {
			return fmt.Errorf("pass %q: %w", pass.Name, err)
		}
		for _, inv := range pass.Invalidates {
			delete(p.valid, inv)
		}
		p.valid[pass.Name] = true
	}
	return nil
}
