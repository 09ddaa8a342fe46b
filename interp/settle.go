package interp

import (
	"github.com/calyx-lang/calyxgo/diag"
	"github.com/calyx-lang/calyxgo/flatten"
	"github.com/calyx-lang/calyxgo/ir"
)

// maxSettleIters bounds the fixed-point loop so a combinational cycle that
// slipped past ir.Validate cannot hang the interpreter; hitting it is always
// a bug, never a legitimate program state.
const maxSettleIters = 1000

// Settle iterates comb assignments and primitive evaluation to a fixed
// point: repeatedly re-evaluate every active assignment and every
// combinational primitive until no port's value changes, the dataflow phase
// spec.md §4.9 runs before each Commit. It reports a Runtime diagnostic
// naming a still-changing port when maxSettleIters is exhausted without
// converging — the symptom of a combinational cycle that slipped past
// ir.Validate.
func Settle(s *State, active []flatten.FlatAssignment) error {
	cache := newGuardCache(s)
	var lastChanged flatten.PortIndex
	for iter := 0; iter < maxSettleIters; iter++ {
		changed := false
		for _, a := range active {
			if !cache.Eval(a.Guard) {
				continue
			}
			newVal := s.Get(a.Src)
			if s.Get(a.Dst) != newVal {
				s.Set(a.Dst, newVal)
				changed = true
				lastChanged = a.Dst
			}
		}
		if evalPrimitives(s) {
			changed = true
		}
		if !changed {
			return nil
		}
		cache = newGuardCache(s) // port values moved; drop stale guard memo
	}
	return diag.New(diag.Runtime,
		"combinational settling did not converge after %d iterations, still changing at port %q",
		maxSettleIters, s.Prog.Ports[lastChanged].Name)
}

// evalPrimitives runs every combinational cell's Primitive over its current
// input values and writes any changed outputs back to the arena, reporting
// whether anything changed.
func evalPrimitives(s *State) bool {
	changed := false
	for ci, cell := range s.Prog.Cells {
		prim, ok := Registry[cell.Proto.PrimitiveName]
		if !ok {
			continue
		}
		_ = ci
		inputs := map[string]uint64{}
		outputs := map[flatten.PortIndex]string{}
		for _, pidx := range cell.Ports {
			port := s.Prog.Ports[pidx]
			name := portLocalName(port.Name)
			if port.Dir == ir.Input {
				inputs[name] = s.Get(pidx)
			} else {
				outputs[pidx] = name
			}
		}
		results := prim(inputs)
		for pidx, name := range outputs {
			if v, ok := results[name]; ok && s.Get(pidx) != v {
				s.Set(pidx, v)
				changed = true
			}
		}
	}
	return changed
}

// portLocalName strips a flattened port's "cell.port" qualified name down to
// just "port", since Primitive functions are keyed by the bare port name.
func portLocalName(qualified string) string {
	for i := len(qualified) - 1; i >= 0; i-- {
		if qualified[i] == '.' {
			return qualified[i+1:]
		}
	}
	return qualified
}
