package debugger

import (
	"github.com/rs/xid"

	"github.com/calyx-lang/calyxgo/ir"
)

// Breakpoint halts execution the moment the interpreter reports Target as
// active (spec.md §4.10 "When the interpreter is about to execute a node
// whose id matches an enabled breakpoint, execution halts").
type Breakpoint struct {
	ID      xid.ID
	Target  ir.NodeID
	Path    string
	Enabled bool
}

// WatchWhen selects whether a Watchpoint fires as its group becomes active
// or as it leaves the active set.
type WatchWhen int

const (
	WatchBefore WatchWhen = iota
	WatchAfter
)

func (w WatchWhen) String() string {
	if w == WatchAfter {
		return "after"
	}
	return "before"
}

// Watchpoint fires its PrintSpec automatically when Group transitions into
// (WatchBefore) or out of (WatchAfter) the active set.
type Watchpoint struct {
	ID        xid.ID
	Group     string
	When      WatchWhen
	PrintSpec string
	Enabled   bool

	wasActive bool
}
