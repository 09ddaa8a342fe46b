package verilog_test

import (
	"strings"
	"testing"

	"github.com/calyx-lang/calyxgo/attr"
	"github.com/calyx-lang/calyxgo/backend/verilog"
	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/guard"
	"github.com/calyx-lang/calyxgo/ir"
)

func buildAdder(t *testing.T) *ir.Component {
	t.Helper()
	c := ir.NewBuilder("main").Build()
	c.AddSignaturePort(c.Ident.Intern("go", diag.Position{}), 1, ir.Input)
	c.AddSignaturePort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)

	a := c.AddCell(c.Ident.Intern("a", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_add"})
	aLeft := a.AddPort(c.Ident.Intern("left", diag.Position{}), 8, ir.Input)
	aRight := a.AddPort(c.Ident.Intern("right", diag.Position{}), 8, ir.Input)
	aOut := a.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)

	outPort := c.Signature.Port("out")
	c.Continuous = append(c.Continuous,
		c.Assign(outPort, aOut).Guarded(nil),
	)
	_ = aLeft
	_ = aRight
	return c
}

func TestEmitProducesAModuleWithSignaturePorts(t *testing.T) {
	c := buildAdder(t)
	out, errs := verilog.Emit(c, verilog.Options{})
	if len(errs) != 0 {
		t.Fatalf("unexpected diagnostics: %v", errs)
	}
	for _, want := range []string{"module main(", "input logic [0:0] go", "output logic [7:0] out", "endmodule"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestEmitFlatAssignEmitsGuardWires(t *testing.T) {
	c := buildAdder(t)
	out, _ := verilog.Emit(c, verilog.Options{FlatAssign: true})
	if !strings.Contains(out, "_guard1") {
		t.Errorf("expected a _guard1 wire in flat-assign output:\n%s", out)
	}
}

func TestCheckDisjointDriversFlagsTwoUnconditionalWrites(t *testing.T) {
	c := ir.NewBuilder("main").Build()
	w := c.AddCell(c.Ident.Intern("w", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_wire"})
	in := w.AddPort(c.Ident.Intern("in", diag.Position{}), 8, ir.Input)
	s1 := c.AddCell(c.Ident.Intern("s1", diag.Position{}), ir.Prototype{Kind: ir.ConstantProto, ConstWidth: 8, ConstValue: 1})
	s1Out := s1.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)
	s2 := c.AddCell(c.Ident.Intern("s2", diag.Position{}), ir.Prototype{Kind: ir.ConstantProto, ConstWidth: 8, ConstValue: 2})
	s2Out := s2.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)

	c.Continuous = append(c.Continuous,
		c.Assign(in, s1Out).Guarded(nil),
		c.Assign(in, s2Out).Guarded(nil),
	)

	errs := verilog.CheckDisjointDrivers(c)
	if len(errs) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d: %v", len(errs), errs)
	}
}

func TestEmitDataPortWithMultipleGuardsDefaultsToX(t *testing.T) {
	c := ir.NewBuilder("main").Build()
	w := c.AddCell(c.Ident.Intern("w", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_wire"})
	in := w.AddPort(c.Ident.Intern("in", diag.Position{}), 8, ir.Input)
	in.Attrs.SetFlag(attr.Data)
	w.Attrs.SetFlag(attr.Data)
	cond := w.AddPort(c.Ident.Intern("cond", diag.Position{}), 1, ir.Input)
	s1 := c.AddCell(c.Ident.Intern("s1", diag.Position{}), ir.Prototype{Kind: ir.ConstantProto, ConstWidth: 8, ConstValue: 1})
	s1Out := s1.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)
	s2 := c.AddCell(c.Ident.Intern("s2", diag.Position{}), ir.Prototype{Kind: ir.ConstantProto, ConstWidth: 8, ConstValue: 2})
	s2Out := s2.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)

	c.Continuous = append(c.Continuous,
		c.Assign(in, s1Out).Guarded(guard.Port(cond.Name.ID())),
		c.Assign(in, s2Out).Guarded(guard.Not(guard.Port(cond.Name.ID()))),
	)

	out, _ := verilog.Emit(c, verilog.Options{})
	if !strings.Contains(out, "'x") {
		t.Errorf("expected an 'x default for a multiply-guarded data port:\n%s", out)
	}
	if strings.Contains(out, "always_comb begin") {
		t.Errorf("data port assignment should not use an always_comb block:\n%s", out)
	}
}

func TestEmitControlPortWithSingleTrueGuardIsBareAssign(t *testing.T) {
	c := ir.NewBuilder("main").Build()
	c.AddSignaturePort(c.Ident.Intern("done", diag.Position{}), 1, ir.Output)
	w := c.AddCell(c.Ident.Intern("w", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_wire"})
	out := w.AddPort(c.Ident.Intern("out", diag.Position{}), 1, ir.Output)
	c.Continuous = append(c.Continuous, c.Assign(c.Signature.Port("done"), out).Guarded(nil))

	rendered, _ := verilog.Emit(c, verilog.Options{})
	if !strings.Contains(rendered, "assign done = w_out;") {
		t.Errorf("expected a bare assign for the single true-guarded destination:\n%s", rendered)
	}
}

func TestEmitControlPortWithTwoGuardsDefaultsToZero(t *testing.T) {
	c := ir.NewBuilder("main").Build()
	w := c.AddCell(c.Ident.Intern("w", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_wire"})
	in := w.AddPort(c.Ident.Intern("in", diag.Position{}), 8, ir.Input)
	cond := w.AddPort(c.Ident.Intern("cond", diag.Position{}), 1, ir.Input)
	s1 := c.AddCell(c.Ident.Intern("s1", diag.Position{}), ir.Prototype{Kind: ir.ConstantProto, ConstWidth: 8, ConstValue: 1})
	s1Out := s1.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)
	s2 := c.AddCell(c.Ident.Intern("s2", diag.Position{}), ir.Prototype{Kind: ir.ConstantProto, ConstWidth: 8, ConstValue: 2})
	s2Out := s2.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)

	c.Continuous = append(c.Continuous,
		c.Assign(in, s1Out).Guarded(guard.Port(cond.Name.ID())),
		c.Assign(in, s2Out).Guarded(guard.Not(guard.Port(cond.Name.ID()))),
	)

	out, _ := verilog.Emit(c, verilog.Options{})
	if !strings.Contains(out, "8'd0") {
		t.Errorf("expected a zero default for a multiply-guarded control port:\n%s", out)
	}
}

func TestEmitAssertsFatalOnMultipleDrivers(t *testing.T) {
	c := ir.NewBuilder("main").Build()
	w := c.AddCell(c.Ident.Intern("w", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_wire"})
	in := w.AddPort(c.Ident.Intern("in", diag.Position{}), 8, ir.Input)
	cond := w.AddPort(c.Ident.Intern("cond", diag.Position{}), 1, ir.Input)
	s1 := c.AddCell(c.Ident.Intern("s1", diag.Position{}), ir.Prototype{Kind: ir.ConstantProto, ConstWidth: 8, ConstValue: 1})
	s1Out := s1.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)
	s2 := c.AddCell(c.Ident.Intern("s2", diag.Position{}), ir.Prototype{Kind: ir.ConstantProto, ConstWidth: 8, ConstValue: 2})
	s2Out := s2.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)

	c.Continuous = append(c.Continuous,
		c.Assign(in, s1Out).Guarded(guard.Port(cond.Name.ID())),
		c.Assign(in, s2Out).Guarded(guard.Not(guard.Port(cond.Name.ID()))),
	)

	out, _ := verilog.Emit(c, verilog.Options{})
	if !strings.Contains(out, `$fatal(2, "Multiple assignment to port 'w.in'")`) {
		t.Errorf("expected a $fatal(2, ...) disjoint-driver assertion:\n%s", out)
	}
}

func TestEmitFSMDrivesStaticGroupsAcrossStates(t *testing.T) {
	c := ir.NewBuilder("main").WithKind(ir.DeclaredStatic).Build()
	c.AddSignaturePort(c.Ident.Intern("go", diag.Position{}), 1, ir.Input)
	c.AddSignaturePort(c.Ident.Intern("done", diag.Position{}), 1, ir.Output)
	g1 := c.AddStaticGroup(c.Ident.Intern("g1", diag.Position{}), 2)
	g2 := c.AddStaticGroup(c.Ident.Intern("g2", diag.Position{}), 1)
	c.Control = ir.NewStaticSeq(3, ir.NewStaticEnable(g1), ir.NewStaticEnable(g2))
	ir.AssignNodeIDs(c.Control, 1)

	out, errs := verilog.Emit(c, verilog.Options{})
	if len(errs) != 0 {
		t.Fatalf("unexpected diagnostics: %v", errs)
	}
	for _, want := range []string{"_fsm_state", "g1_go", "g2_go", "always_ff @(posedge clk)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in FSM output:\n%s", want, out)
		}
	}
}

func TestCheckDisjointDriversAllowsTwoGuardedWrites(t *testing.T) {
	c := ir.NewBuilder("main").Build()
	w := c.AddCell(c.Ident.Intern("w", diag.Position{}), ir.Prototype{Kind: ir.PrimProto, PrimitiveName: "std_wire"})
	in := w.AddPort(c.Ident.Intern("in", diag.Position{}), 8, ir.Input)
	cond := w.AddPort(c.Ident.Intern("cond", diag.Position{}), 1, ir.Input)
	s1 := c.AddCell(c.Ident.Intern("s1", diag.Position{}), ir.Prototype{Kind: ir.ConstantProto, ConstWidth: 8, ConstValue: 1})
	s1Out := s1.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)
	s2 := c.AddCell(c.Ident.Intern("s2", diag.Position{}), ir.Prototype{Kind: ir.ConstantProto, ConstWidth: 8, ConstValue: 2})
	s2Out := s2.AddPort(c.Ident.Intern("out", diag.Position{}), 8, ir.Output)

	c.Continuous = append(c.Continuous,
		c.Assign(in, s1Out).Guarded(guard.Port(cond.Name.ID())),
		c.Assign(in, s2Out).Guarded(guard.Not(guard.Port(cond.Name.ID()))),
	)

	errs := verilog.CheckDisjointDrivers(c)
	if len(errs) != 0 {
		t.Fatalf("expected no static conflict for two guarded writes, got: %v", errs)
	}
}
