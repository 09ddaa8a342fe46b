package debugger

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/xid"

	"github.com/calyx-lang/calyxgo/flatten"
	"github.com/calyx-lang/calyxgo/interp"
	"github.com/calyx-lang/calyxgo/ir"
	"github.com/calyx-lang/calyxgo/printer"
)

// Session wraps an interp.Interpreter with the bookkeeping a REPL needs:
// structural paths to resolve break/watch targets, the breakpoint and
// watchpoint tables themselves, and a notion of "what just happened" for
// Where to report. Grounded on verify/report.go's GenerateReport plus
// core/util.go's PrintState, extended with the step/continue/break loop
// spec.md §4.10 describes.
type Session struct {
	Component *ir.Component
	Prog      *flatten.Program
	Interp    *interp.Interpreter
	Paths     *PathIndex

	Breakpoints []*Breakpoint
	Watchpoints []*Watchpoint

	Out io.Writer

	newInterp func() *interp.Interpreter // rebuilds a fresh Interpreter for Restart
}

// NewSession builds a Session ready to debug component, already flattened
// into prog, interpreted under cfg.
func NewSession(component *ir.Component, prog *flatten.Program, cfg interp.Config, out io.Writer) *Session {
	newInterp := func() *interp.Interpreter { return interp.NewInterpreter(prog, cfg) }
	return &Session{
		Component: component,
		Prog:      prog,
		Interp:    newInterp(),
		Paths:     BuildPaths(component.Name.Name(), component.Control),
		Out:       out,
		newInterp: newInterp,
	}
}

// Step advances the interpreter by n cycles, or until a breakpoint matches
// the active set, whichever comes first. It returns the number of cycles
// actually run and whether a breakpoint stopped it early.
func (sess *Session) Step(n int) (ran int, hitBreakpoint bool, err error) {
	for i := 0; i < n; i++ {
		done, err := sess.Interp.Step()
		ran++
		if err != nil {
			return ran, false, err
		}
		sess.fireWatchpoints()
		if done {
			return ran, false, nil
		}
		if sess.matchBreakpoint() {
			return ran, true, nil
		}
	}
	return ran, false, nil
}

// Continue runs until completion or until a breakpoint matches, whichever
// comes first, bounded by maxGroupCycles the way Interpreter.Run is.
func (sess *Session) Continue() (ran int, hitBreakpoint bool, err error) {
	const bound = 1_000_000
	for i := 0; i < bound; i++ {
		done, err := sess.Interp.Step()
		ran++
		if err != nil {
			return ran, false, err
		}
		sess.fireWatchpoints()
		if done {
			return ran, false, nil
		}
		if sess.matchBreakpoint() {
			return ran, true, nil
		}
	}
	return ran, false, fmt.Errorf("debugger: did not halt within %d cycles", bound)
}

// StepOver runs until target (a breakpoint id or structural path) leaves the
// active set, or bound cycles elapse (bound <= 0 means unbounded, capped the
// same as Continue).
func (sess *Session) StepOver(target string, bound int) (ran int, err error) {
	id, ok := sess.resolveTarget(target)
	if !ok {
		return 0, fmt.Errorf("debugger: step-over: unknown target %q", target)
	}
	limit := bound
	if limit <= 0 {
		limit = 1_000_000
	}
	for i := 0; i < limit; i++ {
		done, err := sess.Interp.Step()
		ran++
		if err != nil {
			return ran, err
		}
		sess.fireWatchpoints()
		if done || !sess.Interp.ActiveSet()[id] {
			return ran, nil
		}
	}
	return ran, fmt.Errorf("debugger: step-over: %q still active after %d cycles", target, limit)
}

// Where reports the structural paths of every currently active control node.
func (sess *Session) Where() []string {
	ids := sess.Interp.ActiveNodeIDs()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if p := sess.Paths.Path(id); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PrintPort resolves "cell.port"[/format] to its current value and renders
// it per format (see formatValue).
func (sess *Session) PrintPort(qualifiedName, format string) (string, error) {
	for idx, fp := range sess.Prog.Ports {
		if fp.Name == qualifiedName {
			val := sess.Interp.State.Get(flatten.PortIndex(idx))
			return formatValue(val, fp.Width, format), nil
		}
	}
	return "", fmt.Errorf("debugger: no port named %q", qualifiedName)
}

// PrintState renders a go-pretty table of every port on the named cell,
// reusing printer.DumpState verbatim.
func (sess *Session) PrintState(cellName string) (string, error) {
	cell := sess.findCell(cellName)
	if cell == nil {
		return "", fmt.Errorf("debugger: no cell named %q", cellName)
	}
	rows := make([]printer.PortState, 0, len(cell.Ports))
	for _, port := range cell.Ports {
		idx, ok := sess.Prog.PortIndexOf(port)
		if !ok {
			continue
		}
		rows = append(rows, printer.PortState{Port: port, Value: sess.Interp.State.Get(idx)})
	}
	return printer.DumpState(cellName, rows), nil
}

func (sess *Session) findCell(name string) *ir.Cell {
	for _, c := range sess.Component.Cells {
		if c.Name.Name() == name {
			return c
		}
	}
	return nil
}

// AddBreakpoint resolves target (a structural path, or "component::group"
// group shorthand) to one or more control nodes and records a breakpoint on
// each, returning their ids.
func (sess *Session) AddBreakpoint(target string) ([]xid.ID, error) {
	ids, err := sess.resolveTargets(target)
	if err != nil {
		return nil, err
	}
	out := make([]xid.ID, 0, len(ids))
	for _, nid := range ids {
		bp := &Breakpoint{ID: xid.New(), Target: nid, Path: sess.Paths.Path(nid), Enabled: true}
		sess.Breakpoints = append(sess.Breakpoints, bp)
		out = append(out, bp.ID)
	}
	return out, nil
}

// AddWatchpoint records a watchpoint on the named group.
func (sess *Session) AddWatchpoint(group string, when WatchWhen, printSpec string) xid.ID {
	wp := &Watchpoint{ID: xid.New(), Group: group, When: when, PrintSpec: printSpec, Enabled: true}
	sess.Watchpoints = append(sess.Watchpoints, wp)
	return wp.ID
}

// DeleteBreakpoint removes a breakpoint or watchpoint by id-or-path,
// reporting whether anything was found.
func (sess *Session) DeleteBreakpoint(target string) bool {
	found := false
	sess.Breakpoints, found = filterOutBreakpoints(sess.Breakpoints, target, found)
	sess.Watchpoints, found = filterOutWatchpoints(sess.Watchpoints, target, found)
	return found
}

// EnableBreakpoint/DisableBreakpoint toggle a breakpoint or watchpoint by
// id-or-path without removing it.
func (sess *Session) EnableBreakpoint(target string) bool  { return sess.setEnabled(target, true) }
func (sess *Session) DisableBreakpoint(target string) bool { return sess.setEnabled(target, false) }

func (sess *Session) setEnabled(target string, enabled bool) bool {
	found := false
	for _, bp := range sess.Breakpoints {
		if matchesTarget(bp.ID, bp.Path, target) {
			bp.Enabled = enabled
			found = true
		}
	}
	for _, wp := range sess.Watchpoints {
		if matchesTarget(wp.ID, wp.Group, target) {
			wp.Enabled = enabled
			found = true
		}
	}
	return found
}

// Restart discards all interpreter state and cycle history, rebuilding a
// fresh Interpreter over the same flatten.Program; breakpoints and
// watchpoints survive.
func (sess *Session) Restart() {
	sess.Interp = sess.newInterp()
}

func (sess *Session) matchBreakpoint() bool {
	ran := sess.Interp.RanThisTick()
	for _, bp := range sess.Breakpoints {
		if bp.Enabled && ran[bp.Target] {
			return true
		}
	}
	return false
}

func (sess *Session) fireWatchpoints() {
	ran := sess.Interp.RanThisTick()
	for _, wp := range sess.Watchpoints {
		if !wp.Enabled {
			continue
		}
		ids := sess.Paths.EnablesOf(wp.Group)
		isActive := false
		for _, id := range ids {
			if ran[id] {
				isActive = true
				break
			}
		}
		fire := (wp.When == WatchBefore && isActive && !wp.wasActive) ||
			(wp.When == WatchAfter && !isActive && wp.wasActive)
		wp.wasActive = isActive
		if fire && wp.PrintSpec != "" && sess.Out != nil {
			target, format := splitFormat(wp.PrintSpec)
			if s, err := sess.PrintPort(target, format); err == nil {
				fmt.Fprintf(sess.Out, "watch %s: %s = %s\n", wp.Group, target, s)
			}
		}
	}
}

// resolveTarget resolves a single id-or-path target to exactly one NodeID.
func (sess *Session) resolveTarget(target string) (ir.NodeID, bool) {
	if id, ok := sess.Paths.NodeID(target); ok {
		return id, true
	}
	for _, bp := range sess.Breakpoints {
		if bp.ID.String() == target {
			return bp.Target, true
		}
	}
	return 0, false
}

// resolveTargets resolves target to one or more NodeIDs: a structural path
// resolves to exactly one, while "component::group" resolves to every
// Enable of that group.
func (sess *Session) resolveTargets(target string) ([]ir.NodeID, error) {
	if idx := strings.Index(target, "::"); idx >= 0 {
		group := target[idx+2:]
		ids := sess.Paths.EnablesOf(group)
		if len(ids) == 0 {
			return nil, fmt.Errorf("debugger: no enables of group %q", group)
		}
		return ids, nil
	}
	id, ok := sess.Paths.NodeID(target)
	if !ok {
		return nil, fmt.Errorf("debugger: unknown path %q", target)
	}
	return []ir.NodeID{id}, nil
}

func matchesTarget(id xid.ID, path, target string) bool {
	return id.String() == target || path == target
}

func filterOutBreakpoints(bps []*Breakpoint, target string, found bool) ([]*Breakpoint, bool) {
	out := bps[:0]
	for _, bp := range bps {
		if matchesTarget(bp.ID, bp.Path, target) {
			found = true
			continue
		}
		out = append(out, bp)
	}
	return out, found
}

func filterOutWatchpoints(wps []*Watchpoint, target string, found bool) ([]*Watchpoint, bool) {
	out := wps[:0]
	for _, wp := range wps {
		if matchesTarget(wp.ID, wp.Group, target) {
			found = true
			continue
		}
		out = append(out, wp)
	}
	return out, found
}

// formatValue renders val (width bits wide) per format: "" or "unsigned"
// (decimal unsigned, the default), "signed" (two's-complement decimal),
// "binary", or "ufixed.K"/"sfixed.K" (fixed-point with K fractional bits).
func formatValue(val uint64, width uint64, format string) string {
	switch {
	case format == "" || format == "unsigned":
		return strconv.FormatUint(val, 10)
	case format == "signed":
		return strconv.FormatInt(signExtend(val, width), 10)
	case format == "binary":
		return fmt.Sprintf("%0*b", width, val)
	case strings.HasPrefix(format, "ufixed."):
		k, err := strconv.Atoi(strings.TrimPrefix(format, "ufixed."))
		if err != nil {
			return strconv.FormatUint(val, 10)
		}
		return formatFixed(float64(val), k)
	case strings.HasPrefix(format, "sfixed."):
		k, err := strconv.Atoi(strings.TrimPrefix(format, "sfixed."))
		if err != nil {
			return strconv.FormatInt(signExtend(val, width), 10)
		}
		return formatFixed(float64(signExtend(val, width)), k)
	default:
		return strconv.FormatUint(val, 10)
	}
}

func signExtend(val uint64, width uint64) int64 {
	if width == 0 || width >= 64 {
		return int64(val)
	}
	signBit := uint64(1) << (width - 1)
	if val&signBit == 0 {
		return int64(val)
	}
	return int64(val) - int64(1<<width)
}

func formatFixed(raw float64, fracBits int) string {
	scale := float64(uint64(1) << uint(fracBits))
	return strconv.FormatFloat(raw/scale, 'f', -1, 64)
}
