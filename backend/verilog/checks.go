package verilog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/ir"
)

// CheckDisjointDrivers reports every destination port driven by more than
// one assignment when at least one of those drivers is unguarded. A port
// whose drivers are all guarded is never reported, whatever the guards are
// (not even g and !g are compared); such ports are left to the emitted
// `$onehot0` runtime assertion, generalized from verify/lint.go's
// "port write conflict within same PE/timestep" STRUCT issue.
func CheckDisjointDrivers(c *ir.Component) []*diag.Diagnostic {
	var errs []*diag.Diagnostic
	groups := groupByDst(c.AllAssignments())
	for dst, rows := range groups {
		if len(rows) < 2 {
			continue
		}
		unguarded := 0
		for _, a := range rows {
			if a.IsUnguarded(c.Guards) {
				unguarded++
			}
		}
		if unguarded > 1 || (unguarded == 1 && len(rows) > 1) {
			errs = append(errs, diag.New(diag.MalformedStructure,
				"port %q has %d statically-conflicting drivers (at least one unconditional)",
				dst.QualifiedName(), len(rows)))
		}
	}
	return errs
}

// writeDisjointAsserts emits a SystemVerilog immediate assertion per
// multiply-driven port using `$onehot0` over the set of active guard
// conditions, catching at simulation time any conflict the static
// CheckDisjointDrivers pass could not prove disjoint ahead of time.
func writeDisjointAsserts(b *strings.Builder, c *ir.Component) {
	groups := groupByDst(c.AllAssignments())
	var dsts []*ir.Port
	for dst, rows := range groups {
		if len(rows) > 1 {
			dsts = append(dsts, dst)
		}
	}
	sort.Slice(dsts, func(i, j int) bool { return dsts[i].QualifiedName() < dsts[j].QualifiedName() })

	for _, dst := range dsts {
		rows := groups[dst]
		var conds []string
		for _, a := range rows {
			conds = append(conds, inlineGuard(c, a.Guard))
		}
		fmt.Fprintf(b, "  always_comb assert ($onehot0({%s})) else $fatal(2, \"Multiple assignment to port '%s'\");\n",
			strings.Join(conds, ", "), dst.QualifiedName())
	}
}
