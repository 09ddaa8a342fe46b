package debugger_test

import (
	"bytes"
	"testing"

	"github.com/calyx-lang/calyxgo/debugger"
	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/flatten"
	"github.com/calyx-lang/calyxgo/interp"
	"github.com/calyx-lang/calyxgo/ir"
)

// sessionFixture is the same do_add-style adder the interp package tests
// against, wrapped in a Session so break/watch/print can be exercised
// end to end without re-deriving a whole program from scratch.
type sessionFixture struct {
	Sess    *debugger.Session
	Group   *ir.Group
	RegOut  *ir.Port
	EnableNodeID func() ir.NodeID
}

func buildSessionFixture(out *bytes.Buffer) *sessionFixture {
	b := ir.NewBuilder("adder")
	c := b.Build()
	table := c.Ident
	pos := diag.Position{}

	addCell := c.AddCell(table.Intern("a", pos), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_add"})
	left := addCell.AddPort(table.Intern("left", pos), 8, ir.Input)
	right := addCell.AddPort(table.Intern("right", pos), 8, ir.Input)
	aOut := addCell.AddPort(table.Intern("out", pos), 8, ir.Output)

	regCell := c.AddCell(table.Intern("x", pos), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_reg"})
	regIn := regCell.AddPort(table.Intern("in", pos), 8, ir.Input)
	writeEn := regCell.AddPort(table.Intern("write_en", pos), 1, ir.Input)
	regOut := regCell.AddPort(table.Intern("out", pos), 8, ir.Output)
	regDone := regCell.AddPort(table.Intern("done", pos), 1, ir.Output)

	constCell := c.AddCell(table.Intern("const5", pos), ir.Prototype{Kind: ir.ConstantProto, ConstValue: 5, ConstWidth: 8})
	constOut := constCell.AddPort(table.Intern("out", pos), 8, ir.Output)

	g := c.AddGroup(table.Intern("do_add", pos))
	g.Assignments = append(g.Assignments,
		c.Assign(left, regOut).Guarded(nil),
		c.Assign(right, constOut).Guarded(nil),
		c.Assign(regIn, aOut).Guarded(nil),
		c.Assign(writeEn, constOut).Guarded(nil),
		c.Assign(g.Done, regDone).Guarded(nil),
	)

	enable := ir.NewEnable(g)
	c.Control = ir.NewSeq(enable)
	ir.AssignNodeIDs(c.Control, 1)

	prog := flatten.Flatten(c)
	sess := debugger.NewSession(c, prog, interp.Config{}, out)

	return &sessionFixture{
		Sess:         sess,
		Group:        g,
		RegOut:       regOut,
		EnableNodeID: enable.NodeID,
	}
}

func TestSessionStepRunsRequestedCycles(t *testing.T) {
	var out bytes.Buffer
	f := buildSessionFixture(&out)

	ran, hit, err := f.Sess.Step(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Fatalf("did not expect a breakpoint hit with none set")
	}
	if ran == 0 {
		t.Fatalf("expected at least one cycle to run")
	}
}

func TestSessionBreakpointStopsContinue(t *testing.T) {
	var out bytes.Buffer
	f := buildSessionFixture(&out)

	path := f.Sess.Paths.Path(f.EnableNodeID())
	if path == "" {
		t.Fatalf("expected the enable to have a structural path")
	}
	if _, err := f.Sess.AddBreakpoint(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, hit, err := f.Sess.Continue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hit {
		t.Fatalf("expected the breakpoint to halt execution")
	}

	where := f.Sess.Where()
	if len(where) != 2 || where[0] != "adder" || where[1] != path {
		t.Errorf("Where() = %v, want [%q %q] (root seq, then the enable)", where, "adder", path)
	}
}

func TestSessionGroupShorthandResolvesToEnables(t *testing.T) {
	var out bytes.Buffer
	f := buildSessionFixture(&out)

	ids, err := f.Sess.AddBreakpoint("adder::do_add")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected exactly one enable of do_add, got %d", len(ids))
	}
}

func TestSessionDeleteAndDisableBreakpoint(t *testing.T) {
	var out bytes.Buffer
	f := buildSessionFixture(&out)

	path := f.Sess.Paths.Path(f.EnableNodeID())
	f.Sess.AddBreakpoint(path)

	if !f.Sess.DisableBreakpoint(path) {
		t.Fatalf("expected DisableBreakpoint to find the breakpoint")
	}
	if _, hit, _ := f.Sess.Continue(); hit {
		t.Errorf("disabled breakpoint should not halt execution")
	}

	f.Sess.Restart()
	f.Sess.EnableBreakpoint(path)
	if !f.Sess.DeleteBreakpoint(path) {
		t.Fatalf("expected DeleteBreakpoint to find the breakpoint")
	}
	if _, hit, _ := f.Sess.Continue(); hit {
		t.Errorf("deleted breakpoint should not halt execution")
	}
}

func TestSessionPrintPortFormats(t *testing.T) {
	var out bytes.Buffer
	f := buildSessionFixture(&out)

	f.Sess.Continue()

	s, err := f.Sess.PrintPort(f.RegOut.QualifiedName(), "unsigned")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "5" {
		t.Errorf("got %q, want \"5\"", s)
	}
}

func TestSessionPrintStateRendersTable(t *testing.T) {
	var out bytes.Buffer
	f := buildSessionFixture(&out)

	f.Sess.Continue()

	s, err := f.Sess.PrintState("x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == "" {
		t.Errorf("expected a non-empty rendered table")
	}
}

func TestSessionPrintPortUnknownNameErrors(t *testing.T) {
	var out bytes.Buffer
	f := buildSessionFixture(&out)

	if _, err := f.Sess.PrintPort("nope.nope", ""); err == nil {
		t.Fatalf("expected an error for an unknown port")
	}
}

func TestSessionWatchpointFiresOnActivation(t *testing.T) {
	var out bytes.Buffer
	f := buildSessionFixture(&out)

	f.Sess.AddWatchpoint("do_add", debugger.WatchBefore, f.RegOut.QualifiedName())
	f.Sess.Continue()

	if out.Len() == 0 {
		t.Errorf("expected the watchpoint to have printed something")
	}
}
