// Package printer renders a Component back to its round-trip textual form
// and to a human-facing tabular dump, the two jobs core/util.go's PrintState
// and program/test.go's String() split between them.
package printer

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/calyx-lang/calyxgo/attr"
	"github.com/calyx-lang/calyxgo/guard"
	"github.com/calyx-lang/calyxgo/ident"
	"github.com/calyx-lang/calyxgo/ir"
)

// Print renders c in the same textual shape it would have been parsed from:
// cells, groups, continuous assignments, and the control tree, in source
// order. It is not guaranteed byte-identical to any original source file,
// only structurally round-trippable.
func Print(c *ir.Component) string {
	var b strings.Builder

	fmt.Fprintf(&b, "component %s(", c.Name.Name())
	printSignature(&b, c.Signature, ir.Input)
	b.WriteString(") -> (")
	printSignature(&b, c.Signature, ir.Output)
	b.WriteString(") {\n")

	b.WriteString("  cells {\n")
	for _, cell := range c.Cells {
		fmt.Fprintf(&b, "    %s%s = %s;\n", refPrefix(cell), cell.Name.Name(), prototypeString(cell.Proto))
	}
	b.WriteString("  }\n")

	b.WriteString("  wires {\n")
	for _, a := range c.Continuous {
		fmt.Fprintf(&b, "    %s;\n", assignString(c.Guards, c.Ident, a))
	}
	for _, g := range c.AllGroups() {
		printGroup(&b, c.Guards, c.Ident, g)
	}
	for _, g := range c.CombGroups {
		printCombGroup(&b, c.Guards, c.Ident, g)
	}
	b.WriteString("  }\n")

	b.WriteString("  control {\n")
	b.WriteString(indent(printControl(c.Control), "    "))
	b.WriteString("\n  }\n")
	b.WriteString("}\n")

	return b.String()
}

func refPrefix(cell *ir.Cell) string {
	if cell.Reference {
		return "ref "
	}
	return ""
}

func printSignature(b *strings.Builder, sig *ir.Cell, dir ir.Direction) {
	first := true
	for _, p := range sig.Ports {
		if p.Dir != dir {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(b, "%s: %d", p.Name.Name(), p.Width)
	}
}

func prototypeString(p ir.Prototype) string {
	switch p.Kind {
	case ir.ConstantProto:
		return fmt.Sprintf("std_const(%d, %d)", p.ConstWidth, p.ConstValue)
	case ir.SubComponentProto:
		return p.ComponentName.Name() + "()"
	default:
		var params []string
		for _, kv := range p.Params {
			params = append(params, fmt.Sprintf("%d", kv.Value))
		}
		return fmt.Sprintf("%s(%s)", p.PrimitiveName, strings.Join(params, ", "))
	}
}

func printGroup(b *strings.Builder, pool *guard.Pool, table *ident.Table, g *ir.Group) {
	kw := "group"
	suffix := ""
	if g.Static {
		kw = "static group"
		suffix = fmt.Sprintf("<%d>", g.Latency)
	}
	fmt.Fprintf(b, "    %s %s%s {\n", kw, g.Name.Name(), suffix)
	for _, a := range g.Assignments {
		fmt.Fprintf(b, "      %s;\n", assignString(pool, table, a))
	}
	b.WriteString("    }\n")
}

func printCombGroup(b *strings.Builder, pool *guard.Pool, table *ident.Table, g *ir.CombGroup) {
	fmt.Fprintf(b, "    comb group %s {\n", g.Name.Name())
	for _, a := range g.Assignments {
		fmt.Fprintf(b, "      %s;\n", assignString(pool, table, a))
	}
	b.WriteString("    }\n")
}

func assignString(pool *guard.Pool, table *ident.Table, a ir.Assignment) string {
	if a.IsUnguarded(pool) {
		return fmt.Sprintf("%s = %s", portRef(a.Dst), portRef(a.Src))
	}
	return fmt.Sprintf("%s = %s ? %s", portRef(a.Dst), guardString(pool, table, a.Guard), portRef(a.Src))
}

func portRef(p *ir.Port) string {
	if p == nil {
		return "<nil>"
	}
	return p.QualifiedName()
}

func identName(table *ident.Table, id ident.ID) string {
	if name, ok := table.Lookup(id); ok {
		return name
	}
	return "?"
}

func guardString(pool *guard.Pool, table *ident.Table, h guard.Handle) string {
	f := pool.Get(h)
	switch f.Kind {
	case guard.KindTrue:
		return "1'd1"
	case guard.KindPort:
		return identName(table, f.Port)
	case guard.KindNot:
		return "!" + parenGuard(pool, table, f.L)
	case guard.KindAnd:
		return parenGuard(pool, table, f.L) + " & " + parenGuard(pool, table, f.R)
	case guard.KindOr:
		return parenGuard(pool, table, f.L) + " | " + parenGuard(pool, table, f.R)
	case guard.KindComp:
		return fmt.Sprintf("%s %s %s", identName(table, f.Port), f.Op, identName(table, f.Rhs))
	default:
		return "?"
	}
}

func parenGuard(pool *guard.Pool, table *ident.Table, h guard.Handle) string {
	f := pool.Get(h)
	if f.Kind == guard.KindPort || f.Kind == guard.KindTrue {
		return guardString(pool, table, h)
	}
	return "(" + guardString(pool, table, h) + ")"
}

func printControl(c ir.Control) string {
	switch n := c.(type) {
	case nil, *ir.Empty:
		return ""
	case *ir.Enable:
		return n.Group.Name.Name() + ";"
	case *ir.StaticEnable:
		return n.Group.Name.Name() + ";"
	case *ir.Invoke:
		return fmt.Sprintf("invoke %s(...)(...);", n.Cell.Name.Name())
	case *ir.Seq:
		return wrapBlock("seq", n.Stmts)
	case *ir.StaticSeq:
		return wrapBlock("static seq", n.Stmts)
	case *ir.Par:
		return wrapBlock("par", n.Stmts)
	case *ir.StaticPar:
		return wrapBlock("static par", n.Stmts)
	case *ir.If:
		return printIf(n.Port.QualifiedName(), n.True, n.False, "if")
	case *ir.StaticIf:
		return printIf(n.Port.QualifiedName(), n.True, n.False, "static if")
	case *ir.While:
		return fmt.Sprintf("while %s {\n%s\n}", n.Port.QualifiedName(), indent(printControl(n.Body), "  "))
	case *ir.Repeat:
		return fmt.Sprintf("repeat %d {\n%s\n}", n.Num, indent(printControl(n.Body), "  "))
	case *ir.StaticRepeat:
		return fmt.Sprintf("static repeat %d {\n%s\n}", n.Num, indent(printControl(n.Body), "  "))
	default:
		return "/* unknown control */"
	}
}

func printIf(cond string, t, f ir.Control, kw string) string {
	s := fmt.Sprintf("%s %s {\n%s\n}", kw, cond, indent(printControl(t), "  "))
	if _, isEmpty := f.(*ir.Empty); isEmpty || f == nil {
		return s
	}
	return s + fmt.Sprintf(" else {\n%s\n}", indent(printControl(f), "  "))
}

func wrapBlock(kw string, stmts []ir.Control) string {
	var lines []string
	for _, s := range stmts {
		lines = append(lines, printControl(s))
	}
	return fmt.Sprintf("%s {\n%s\n}", kw, indent(strings.Join(lines, "\n"), "  "))
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			continue
		}
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// PortState is one row of a human-facing state dump: a port's qualified
// name, bit width, and current value.
type PortState struct {
	Port  *ir.Port
	Value uint64
}

// DumpState renders a table of cell port values, the same go-pretty
// table.Writer format core/util.go's PrintState used for register/buffer
// contents, repurposed here for Calyx cell state during interpretation or a
// debugger "print-state" command.
func DumpState(cellName string, rows []PortState) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Port", "Width", "Direction", "Value"})
	for _, r := range rows {
		dir := "in"
		if r.Port.Dir == ir.Output {
			dir = "out"
		}
		t.AppendRow(table.Row{r.Port.QualifiedName(), r.Port.Width, dir, r.Value})
	}
	t.SetTitle(cellName)
	return t.Render()
}

// DumpAttrs renders a component's attribute set as a compact one-line
// string, e.g. "@go @static(4)", for debugger-facing dumps (not full
// round-trip source); Print does not call it.
func DumpAttrs(s *attr.Set) string {
	if s == nil || s.Len() == 0 {
		return ""
	}
	var parts []string
	s.Each(func(k attr.Key, v uint64) {
		if v == 1 {
			parts = append(parts, "@"+attr.Name(k))
		} else {
			parts = append(parts, fmt.Sprintf("@%s(%d)", attr.Name(k), v))
		}
	})
	return strings.Join(parts, " ")
}
