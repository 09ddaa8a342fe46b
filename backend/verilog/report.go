package verilog

import (
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/calyx-lang/calyxgo/ir"
)

// Report summarizes one Emit call for a human reader, the same role
// verify/report.go's VerificationReport played for a CGRA program's
// assembled-and-checked summary.
type Report struct {
	ComponentName string
	CellCount     int
	GroupCount    int
	AssignCount   int
	Diagnostics   int
}

// BuildReport derives a Report from c and the diagnostics Emit returned for
// it.
func BuildReport(c *ir.Component, diagCount int) Report {
	return Report{
		ComponentName: c.Name.Name(),
		CellCount:     len(c.Cells),
		GroupCount:    len(c.AllGroups()),
		AssignCount:   len(c.AllAssignments()),
		Diagnostics:   diagCount,
	}
}

// Render renders a set of Reports as a go-pretty table, one row per
// component, for -v emission summaries.
func Render(reports []Report) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Component", "Cells", "Groups", "Assignments", "Diagnostics"})
	for _, r := range reports {
		t.AppendRow(table.Row{r.ComponentName, r.CellCount, r.GroupCount, r.AssignCount, r.Diagnostics})
	}
	t.SetTitle("Verilog Emission Summary")
	return t.Render()
}
