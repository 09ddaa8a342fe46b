package interp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calyx-lang/calyxgo/flatten"
)

// LevelDiagnostic sits between Info and Warn: loud enough to show up in a
// default-configured slog handler, quiet enough not to read as a hard
// failure when AllowParConflicts papers over a race on purpose.
const LevelDiagnostic = slog.Level(2)

// Config tunes interpreter behavior that spec.md leaves as an open question
// per-deployment choice.
type Config struct {
	// AllowParConflicts, when false (the default), makes a genuine
	// conflicting concurrent write (two Par threads driving the same port
	// to different values in the same cycle) a fatal error. When true, the
	// interpreter resolves it last-write-wins (by thread index) and logs
	// the collision at LevelDiagnostic instead of failing.
	AllowParConflicts bool
	Logger            *slog.Logger
}

// Conflict records one port two concurrent threads drove to different
// values in the same cycle.
type Conflict struct {
	Port            flatten.PortIndex
	ThreadA, ThreadB int
	ValA, ValB      uint64
}

// SettlePar runs each thread's assignments against its own full copy of base
// made by State.Clone (so no thread observes another's in-progress writes), then
// merges every port the threads touched back into base: a port only one
// thread changed takes that thread's value; a port two threads changed to
// the same value is unaffected; threads disagreeing is a Conflict, resolved
// per cfg.AllowParConflicts. This is the fork/merge model spec.md §5
// describes for `par`, with every thread paying for a deep copy of the state.
func SettlePar(base *State, threadAssigns [][]flatten.FlatAssignment, cfg Config) ([]Conflict, error) {
	clones := make([]*State, len(threadAssigns))
	for i, assigns := range threadAssigns {
		clones[i] = base.Clone()
		if err := Settle(clones[i], assigns); err != nil {
			return nil, fmt.Errorf("interp: thread %d: %w", i, err)
		}
	}

	var conflicts []Conflict
	for idx := range base.Values {
		pidx := flatten.PortIndex(idx)
		baseVal := base.Values[idx]
		winner := baseVal
		winnerSet := false
		winnerThread := -1

		for t, clone := range clones {
			v := clone.Get(pidx)
			if v == baseVal {
				continue
			}
			if !winnerSet {
				winner, winnerSet, winnerThread = v, true, t
				continue
			}
			if v == winner {
				continue
			}
			conflicts = append(conflicts, Conflict{Port: pidx, ThreadA: winnerThread, ThreadB: t, ValA: winner, ValB: v})
			if !cfg.AllowParConflicts {
				return conflicts, fmt.Errorf("interp: conflicting concurrent writes to port %d (thread %d wrote %d, thread %d wrote %d)",
					pidx, winnerThread, winner, t, v)
			}
			if cfg.Logger != nil {
				cfg.Logger.Log(context.Background(), LevelDiagnostic, "par write conflict resolved last-write-wins",
					"port", pidx, "thread_a", winnerThread, "value_a", winner, "thread_b", t, "value_b", v)
			}
			winner, winnerThread = v, t
		}
		if winnerSet {
			base.Values[idx] = winner
		}
	}
	return conflicts, nil
}
