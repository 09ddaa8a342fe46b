// Package verilog renders a Component to synthesizable SystemVerilog text:
// one module per component, a flat per-assignment guard-wire encoding, and a
// disjoint-driver runtime assertion for every multiply-driven port.
// Generated the way verify/report.go builds config text — by hand-building
// strings, not through a templating library.
package verilog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/guard"
	"github.com/calyx-lang/calyxgo/ident"
	"github.com/calyx-lang/calyxgo/ir"
)

// Options controls emission mode.
type Options struct {
	// FlatAssign, when true, emits one named `_guardK` wire per distinct
	// guard-pool entry instead of inlining the guard expression at every use
	// site (spec.md §4.7) — trades wire count for avoiding repeated
	// sub-expression text in large fan-out designs.
	FlatAssign bool
}

// Emit renders c as one SystemVerilog module plus its disjoint-driver
// assertions, returning any structural diagnostics found along the way (it
// does not stop at the first one).
func Emit(c *ir.Component, opt Options) (string, []*diag.Diagnostic) {
	var errs []*diag.Diagnostic
	errs = append(errs, CheckDisjointDrivers(c)...)

	var b strings.Builder
	fmt.Fprintf(&b, "module %s(\n", verilogName(c.Name.Name()))
	writePortList(&b, c.Signature)
	b.WriteString(");\n\n")

	writeCellInstances(&b, c)
	b.WriteString("\n")

	if err := writeFSM(&b, c); err != nil {
		errs = append(errs, diag.New(diag.PassAssumption, "%s", err))
	}

	if opt.FlatAssign {
		writeGuardWires(&b, c)
	}

	writeAssignments(&b, c, opt)
	writeDisjointAsserts(&b, c)

	b.WriteString("\nendmodule\n")
	return b.String(), errs
}

func verilogName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// writePortList renders the module's port list, prefixed with the implicit
// clk/reset pair every component carries regardless of what its own
// signature declares — the two signals the FSM's always_ff block and reset
// path (spec.md §4.5) need but that never appear in ir.Cell.Ports.
func writePortList(b *strings.Builder, sig *ir.Cell) {
	lines := []string{"  input logic clk", "  input logic reset"}
	for _, p := range sig.Ports {
		dir := "input"
		if p.Dir == ir.Output {
			dir = "output"
		}
		lines = append(lines, fmt.Sprintf("  %s logic [%d:0] %s", dir, widthMinusOne(p.Width), verilogName(p.Name.Name())))
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n")
}

func widthMinusOne(w uint64) uint64 {
	if w == 0 {
		return 0
	}
	return w - 1
}

func writeCellInstances(b *strings.Builder, c *ir.Component) {
	for _, cell := range c.Cells {
		switch cell.Proto.Kind {
		case ir.ConstantProto:
			fmt.Fprintf(b, "  logic [%d:0] %s;\n", widthMinusOne(cell.Proto.ConstWidth), verilogName(cell.Name.Name()+"_out"))
			fmt.Fprintf(b, "  assign %s = %d'd%d;\n", verilogName(cell.Name.Name()+"_out"), cell.Proto.ConstWidth, cell.Proto.ConstValue)
		case ir.SignatureProto:
			// no instance: the signature is the module boundary itself.
		default:
			fmt.Fprintf(b, "  %s %s (\n", primitiveModuleName(cell.Proto), verilogName(cell.Name.Name()))
			var conns []string
			for _, p := range cell.Ports {
				conns = append(conns, fmt.Sprintf("    .%s(%s)", verilogName(p.Name.Name()), verilogName(cell.Name.Name()+"_"+p.Name.Name())))
			}
			b.WriteString(strings.Join(conns, ",\n"))
			b.WriteString("\n  );\n")
		}
	}
}

func primitiveModuleName(p ir.Prototype) string {
	if p.Kind == ir.SubComponentProto {
		return verilogName(p.ComponentName.Name())
	}
	return p.PrimitiveName
}

// writeGuardWires emits one `_guardK` wire per pool entry, assigned from its
// children's wires — the flat-assign mode's defining trait (spec.md §4.7).
func writeGuardWires(b *strings.Builder, c *ir.Component) {
	c.Guards.Iter(func(h guard.Handle, f guard.Flat) bool {
		b.WriteString(guardWireDecl(c.Ident, h, f))
		return true
	})
}

func guardWireName(h guard.Handle) string { return fmt.Sprintf("_guard%d", h) }

func guardWireDecl(table *ident.Table, h guard.Handle, f guard.Flat) string {
	var rhs string
	switch f.Kind {
	case guard.KindTrue:
		rhs = "1'd1"
	case guard.KindPort:
		rhs = verilogName(identName(table, f.Port))
	case guard.KindNot:
		rhs = "~" + guardWireName(f.L)
	case guard.KindAnd:
		rhs = guardWireName(f.L) + " & " + guardWireName(f.R)
	case guard.KindOr:
		rhs = guardWireName(f.L) + " | " + guardWireName(f.R)
	case guard.KindComp:
		rhs = fmt.Sprintf("%s %s %s", verilogName(identName(table, f.Port)), verilogCompOp(f.Op), verilogName(identName(table, f.Rhs)))
	default:
		rhs = "1'd1"
	}
	return fmt.Sprintf("  logic %s;\n  assign %s = %s;\n", guardWireName(h), guardWireName(h), rhs)
}

func verilogCompOp(op guard.CompOp) string {
	switch op {
	case guard.Eq:
		return "=="
	case guard.Neq:
		return "!="
	case guard.Lt:
		return "<"
	case guard.Gt:
		return ">"
	case guard.Le:
		return "<="
	case guard.Ge:
		return ">="
	default:
		return "=="
	}
}

func identName(table *ident.Table, id ident.ID) string {
	if name, ok := table.Lookup(id); ok {
		return name
	}
	return "_unknown"
}

// writeAssignments groups continuous assignments by destination and emits
// each group per spec.md §4.7's data-port/control-port split: a single
// true-guarded source always collapses to a bare `assign`, since no mux is
// needed no matter which kind of port it drives (spec.md §8); beyond that,
// data ports drive directly with an 'x cascade default, while control ports
// default to zero and specialize the one-guard case.
func writeAssignments(b *strings.Builder, c *ir.Component, opt Options) {
	groups := groupByDst(c.AllAssignments())
	var dsts []*ir.Port
	for dst := range groups {
		dsts = append(dsts, dst)
	}
	sort.Slice(dsts, func(i, j int) bool { return dsts[i].QualifiedName() < dsts[j].QualifiedName() })

	for _, dst := range dsts {
		rows := groups[dst]
		if len(rows) == 1 && rows[0].IsUnguarded(c.Guards) {
			fmt.Fprintf(b, "  assign %s = %s;\n", connName(dst), connName(rows[0].Src))
			continue
		}
		if dst.IsData() {
			writeDataAssignment(b, c, dst, rows, opt)
		} else {
			writeControlAssignment(b, c, dst, rows, opt)
		}
	}
}

// writeDataAssignment implements the data-port emission strategy: an
// unguarded source drives directly, and two or more guarded sources become a
// ternary cascade defaulting to 'x, since an undriven cycle on a data port is
// a don't-care rather than a defined zero.
func writeDataAssignment(b *strings.Builder, c *ir.Component, dst *ir.Port, rows []ir.Assignment, opt Options) {
	for _, a := range rows {
		if a.IsUnguarded(c.Guards) {
			fmt.Fprintf(b, "  assign %s = %s;\n", connName(dst), connName(a.Src))
			return
		}
	}
	fmt.Fprintf(b, "  assign %s = %s;\n", connName(dst), ternaryCascade(c, dst, rows, opt, "'x"))
}

// writeControlAssignment implements the control-port emission strategy:
// default zero, with the one-guard case specialized to a direct wire when
// the guard is constant true (handled already by the bare-assign shortcut
// above), to the guard itself when the source is a constant 1, or to a
// two-arm ternary otherwise; two or more guards fold into a cascade.
func writeControlAssignment(b *strings.Builder, c *ir.Component, dst *ir.Port, rows []ir.Assignment, opt Options) {
	if len(rows) == 1 {
		a := rows[0]
		cond := guardRef(c, a.Guard, opt)
		if isConstantOne(a.Src) {
			fmt.Fprintf(b, "  assign %s = %s;\n", connName(dst), cond)
			return
		}
		fmt.Fprintf(b, "  assign %s = %s ? %s : %d'd0;\n", connName(dst), cond, connName(a.Src), dst.Width)
		return
	}
	fmt.Fprintf(b, "  assign %s = %s;\n", connName(dst), ternaryCascade(c, dst, rows, opt, fmt.Sprintf("%d'd0", dst.Width)))
}

// ternaryCascade folds rows right into a chain of ternaries terminating in
// def, the shape spec.md §4.7 calls for when a destination has more than one
// guarded driver.
func ternaryCascade(c *ir.Component, dst *ir.Port, rows []ir.Assignment, opt Options, def string) string {
	expr := def
	for i := len(rows) - 1; i >= 0; i-- {
		a := rows[i]
		cond := guardRef(c, a.Guard, opt)
		expr = fmt.Sprintf("%s ? %s : (%s)", cond, connName(a.Src), expr)
	}
	return expr
}

// isConstantOne reports whether src is driven by a std_const(_, 1) cell, the
// condition under which a control port's sole guarded driver can skip the
// ternary and become the guard itself.
func isConstantOne(src *ir.Port) bool {
	if src.Parent.Kind != ir.ParentCell || src.Parent.Cell == nil {
		return false
	}
	proto := src.Parent.Cell.Proto
	return proto.Kind == ir.ConstantProto && proto.ConstValue == 1
}

func guardRef(c *ir.Component, h guard.Handle, opt Options) string {
	if opt.FlatAssign {
		return guardWireName(h)
	}
	return inlineGuard(c, h)
}

func inlineGuard(c *ir.Component, h guard.Handle) string {
	f := c.Guards.Get(h)
	switch f.Kind {
	case guard.KindTrue:
		return "1'd1"
	case guard.KindPort:
		return verilogName(identName(c.Ident, f.Port))
	case guard.KindNot:
		return "~(" + inlineGuard(c, f.L) + ")"
	case guard.KindAnd:
		return "(" + inlineGuard(c, f.L) + ") & (" + inlineGuard(c, f.R) + ")"
	case guard.KindOr:
		return "(" + inlineGuard(c, f.L) + ") | (" + inlineGuard(c, f.R) + ")"
	case guard.KindComp:
		return fmt.Sprintf("%s %s %s", verilogName(identName(c.Ident, f.Port)), verilogCompOp(f.Op), verilogName(identName(c.Ident, f.Rhs)))
	default:
		return "1'd1"
	}
}

// connName renders the wire name backing a port: for a cell port, the
// cell_port flattened name; for a group hole, the group_hole flattened name
// (so two groups' go holes never collide on the bare name "go"); for a
// signature port, the bare name.
func connName(p *ir.Port) string {
	switch p.Parent.Kind {
	case ir.ParentCell:
		return verilogName(p.Parent.Cell.Name.Name() + "_" + p.Name.Name())
	case ir.ParentHole:
		return verilogName(p.Parent.Group.Name.Name() + "_" + p.Name.Name())
	default:
		return verilogName(p.Name.Name())
	}
}

func groupByDst(assigns []ir.Assignment) map[*ir.Port][]ir.Assignment {
	out := map[*ir.Port][]ir.Assignment{}
	for _, a := range assigns {
		out[a.Dst] = append(out[a.Dst], a)
	}
	return out
}
