// Package debugger drives an interp.Interpreter under explicit user command:
// breakpoints keyed by a structural control-tree path, watchpoints on group
// activation, a small REPL command grammar, and go-pretty table state dumps —
// the interactive analogue of core/util.go's PrintState, extended with the
// step/continue/break loop spec.md §4.10 describes.
package debugger

import (
	"fmt"

	"github.com/calyx-lang/calyxgo/ir"
)

// PathIndex resolves a control node's structural path — a colon-separated
// walk from the component name down through the tree, e.g.
// "main:seq[2]:while.body" — in both directions, and separately indexes
// which NodeIDs are Enables of a given group so `break component::group`
// shorthand can target every activation site of a group in one command.
//
// A path segment names the edge a child is reached by, not the child's own
// kind: "seq[2]" means "the seq parent's child at index 2" regardless of
// what that child turns out to be; "while.body" means "the while parent's
// body", regardless of whether the body is itself a seq or a single enable.
// This keeps a path stable as long as the tree's shape at that point doesn't
// change, even if, say, static promotion later rewrites the child itself.
type PathIndex struct {
	pathByID map[ir.NodeID]string
	idByPath map[string]ir.NodeID
	byGroup  map[string][]ir.NodeID
}

// BuildPaths walks root and assigns every node a structural path rooted at
// componentName.
func BuildPaths(componentName string, root ir.Control) *PathIndex {
	idx := &PathIndex{
		pathByID: map[ir.NodeID]string{},
		idByPath: map[string]ir.NodeID{},
		byGroup:  map[string][]ir.NodeID{},
	}
	walkPaths(idx, root, componentName)
	return idx
}

func (idx *PathIndex) record(n ir.Control, path string) {
	if n == nil {
		return
	}
	id := n.NodeID()
	idx.pathByID[id] = path
	idx.idByPath[path] = id
	if name, ok := groupName(n); ok {
		idx.byGroup[name] = append(idx.byGroup[name], id)
	}
}

func groupName(n ir.Control) (string, bool) {
	switch v := n.(type) {
	case *ir.Enable:
		return v.Group.Name.Name(), true
	case *ir.StaticEnable:
		return v.Group.Name.Name(), true
	}
	return "", false
}

func walkPaths(idx *PathIndex, n ir.Control, path string) {
	if n == nil {
		return
	}
	idx.record(n, path)
	switch v := n.(type) {
	case *ir.Seq:
		for i, s := range v.Stmts {
			walkPaths(idx, s, fmt.Sprintf("%s:seq[%d]", path, i))
		}
	case *ir.StaticSeq:
		for i, s := range v.Stmts {
			walkPaths(idx, s, fmt.Sprintf("%s:static seq[%d]", path, i))
		}
	case *ir.Par:
		for i, s := range v.Stmts {
			walkPaths(idx, s, fmt.Sprintf("%s:par[%d]", path, i))
		}
	case *ir.StaticPar:
		for i, s := range v.Stmts {
			walkPaths(idx, s, fmt.Sprintf("%s:static par[%d]", path, i))
		}
	case *ir.If:
		walkPaths(idx, v.True, path+":if.true")
		walkPaths(idx, v.False, path+":if.false")
	case *ir.StaticIf:
		walkPaths(idx, v.True, path+":static if.true")
		walkPaths(idx, v.False, path+":static if.false")
	case *ir.While:
		walkPaths(idx, v.Body, path+":while.body")
	case *ir.Repeat:
		walkPaths(idx, v.Body, path+":repeat.body")
	case *ir.StaticRepeat:
		walkPaths(idx, v.Body, path+":static repeat.body")
	}
}

// Path returns the structural path recorded for id, or "" if id is unknown.
func (idx *PathIndex) Path(id ir.NodeID) string { return idx.pathByID[id] }

// NodeID resolves a structural path back to its NodeID.
func (idx *PathIndex) NodeID(path string) (ir.NodeID, bool) {
	id, ok := idx.idByPath[path]
	return id, ok
}

// EnablesOf returns every NodeID that enables the named group, supporting
// the `component::group` breakpoint shorthand spec.md §4.10 mentions
// alongside full structural paths.
func (idx *PathIndex) EnablesOf(group string) []ir.NodeID {
	return idx.byGroup[group]
}
