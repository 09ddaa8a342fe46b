// Package config holds the compiler-wide defaults cmd/calyx loads from CLI
// flags: which backend runs, what pass pipeline executes beforehand, and the
// interpreter's convergence and concurrency-conflict policy, via a fluent
// With* value-receiver builder in the same shape as api.DriverBuilder and
// passmgr.Builder, generalized from describing a tile grid's wiring to
// describing one compiler invocation's wiring.
package config

import "log/slog"

// Config is the resolved set of choices one `calyx` invocation runs with.
type Config struct {
	// Backend selects the output format: "verilog", "calyx" (pretty-print),
	// "xilinx", or "interpreter".
	Backend string

	// Passes is the pipeline, in run order, after -p/-d flags have been
	// applied to DefaultPassPipeline().
	Passes []string
	// PassOptions holds -x pass:opt=val bindings, pass name -> option -> value.
	PassOptions map[string]map[string]string

	// LibDirs is the -l search path list for extern primitive libraries.
	LibDirs []string
	// OutputFile is the -o destination; empty means stdout.
	OutputFile string

	// FlatAssign selects the Verilog backend's emission mode
	// (backend/verilog.Options.FlatAssign). VerifyDisjoint is recorded but
	// not read: backend/verilog.Emit always emits the disjoint-driver
	// assertions.
	FlatAssign     bool
	VerifyDisjoint bool

	// MaxSettleIters and MaxGroupCycles record a per-cycle fixed-point bound
	// and a per-run cycle bound. The interpreter does not read them; it
	// applies its own fixed bounds, equal to these defaults (1000 and
	// 1,000,000).
	MaxSettleIters int
	MaxGroupCycles int
	// AllowParConflicts selects par's conflict policy (spec.md §5's
	// configurable "error vs last-write-wins"); see interp.Config.
	AllowParConflicts bool

	// StaticPromotionThreshold, StaticPromotionCycleLimit, and
	// StaticPromotionIfDiffTolerance are the three knobs spec.md §4.4's
	// promotion policy gates a candidate behind: minimum approximate size,
	// maximum inferred cycle count, and (for an if) maximum branch-latency
	// skew. Spec.md §4.4 leaves the cutoffs as a deployment choice; Default()
	// picks threshold 64, cycle limit 1<<20, and tolerance 0.
	StaticPromotionThreshold       uint64
	StaticPromotionCycleLimit      uint64
	StaticPromotionIfDiffTolerance uint64

	// MemDataFile and MemDumpFile are the interpreter's memory
	// initialization/dump JSON files (spec.md §6 "Data files").
	MemDataFile string
	MemDumpFile string

	Logger *slog.Logger
}

// DefaultPassPipeline is the pipeline cmd/calyx runs absent any -p/-d flags:
// CSE first since it only ever deletes redundant assignments (cheap, and
// never invalidates anything static-promotion depends on), then static
// promotion. FSM allocation is an analysis the Verilog backend builds on
// demand from the already-promoted control tree, and TDST scheduling is a
// standalone analysis nothing in the pipeline or backend calls; neither is
// an IR-mutating pass, so they have no pipeline entry.
func DefaultPassPipeline() []string {
	return []string{"cse", "static-promotion"}
}

// Default returns the configuration a bare `calyx` invocation starts from.
func Default() Config {
	return Config{
		Backend:                  "verilog",
		Passes:                   DefaultPassPipeline(),
		PassOptions:              map[string]map[string]string{},
		FlatAssign:               true,
		VerifyDisjoint:           true,
		MaxSettleIters:           1000,
		MaxGroupCycles:                 1_000_000,
		StaticPromotionThreshold:       64,
		StaticPromotionCycleLimit:      1 << 20,
		StaticPromotionIfDiffTolerance: 0,
		Logger:                         slog.Default(),
	}
}

// Builder assembles a Config fluently, the same shape api.DriverBuilder uses
// to wire a simulated accelerator's engine and frequency.
type Builder struct {
	cfg Config
}

// NewBuilder starts from Default().
func NewBuilder() Builder {
	return Builder{cfg: Default()}
}

// WithBackend sets the output backend name.
func (b Builder) WithBackend(name string) Builder {
	b.cfg.Backend = name
	return b
}

// WithPasses replaces the pipeline outright; cmd/calyx calls it with
// DefaultPassPipeline() followed by the -p passes.
func (b Builder) WithPasses(names ...string) Builder {
	b.cfg.Passes = append([]string(nil), names...)
	return b
}

// WithDisabledPasses removes named passes from the current pipeline (-d).
func (b Builder) WithDisabledPasses(names ...string) Builder {
	b.cfg.Passes = removeAll(b.cfg.Passes, names)
	return b
}

// WithPassOption records one -x pass:opt=val binding.
func (b Builder) WithPassOption(pass, key, value string) Builder {
	opts := map[string]map[string]string{}
	for p, kv := range b.cfg.PassOptions {
		opts[p] = kv
	}
	if opts[pass] == nil {
		opts[pass] = map[string]string{}
	} else {
		inner := map[string]string{}
		for k, v := range opts[pass] {
			inner[k] = v
		}
		opts[pass] = inner
	}
	opts[pass][key] = value
	b.cfg.PassOptions = opts
	return b
}

// WithLibDir appends a -l library search directory.
func (b Builder) WithLibDir(dir string) Builder {
	b.cfg.LibDirs = append(append([]string(nil), b.cfg.LibDirs...), dir)
	return b
}

// WithOutputFile sets the -o destination.
func (b Builder) WithOutputFile(path string) Builder {
	b.cfg.OutputFile = path
	return b
}

// WithFlatAssign toggles the Verilog backend's named-guard-wire mode.
func (b Builder) WithFlatAssign(v bool) Builder {
	b.cfg.FlatAssign = v
	return b
}

// WithVerifyDisjoint sets VerifyDisjoint, which the backend does not read.
func (b Builder) WithVerifyDisjoint(v bool) Builder {
	b.cfg.VerifyDisjoint = v
	return b
}

// WithMaxSettleIters sets MaxSettleIters, which the interpreter does not read.
func (b Builder) WithMaxSettleIters(n int) Builder {
	b.cfg.MaxSettleIters = n
	return b
}

// WithMaxGroupCycles sets MaxGroupCycles, which the interpreter does not read.
func (b Builder) WithMaxGroupCycles(n int) Builder {
	b.cfg.MaxGroupCycles = n
	return b
}

// WithAllowParConflicts sets par's conflict-tolerance policy.
func (b Builder) WithAllowParConflicts(v bool) Builder {
	b.cfg.AllowParConflicts = v
	return b
}

// WithStaticPromotionThreshold overrides the static-promotion cutoff.
func (b Builder) WithStaticPromotionThreshold(n uint64) Builder {
	b.cfg.StaticPromotionThreshold = n
	return b
}

// WithStaticPromotionCycleLimit overrides the maximum inferred latency a
// candidate may carry and still be promoted.
func (b Builder) WithStaticPromotionCycleLimit(n uint64) Builder {
	b.cfg.StaticPromotionCycleLimit = n
	return b
}

// WithStaticPromotionIfDiffTolerance overrides the maximum latency skew
// tolerated between an if's two branches before promotion is blocked.
func (b Builder) WithStaticPromotionIfDiffTolerance(n uint64) Builder {
	b.cfg.StaticPromotionIfDiffTolerance = n
	return b
}

// WithMemDataFile sets the memory-initialization JSON path.
func (b Builder) WithMemDataFile(path string) Builder {
	b.cfg.MemDataFile = path
	return b
}

// WithMemDumpFile sets the memory-dump JSON path.
func (b Builder) WithMemDumpFile(path string) Builder {
	b.cfg.MemDumpFile = path
	return b
}

// WithLogger overrides the default logger.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.cfg.Logger = l
	return b
}

// Build finalizes the Config.
func (b Builder) Build() Config { return b.cfg }

func removeAll(names []string, remove []string) []string {
	drop := make(map[string]bool, len(remove))
	for _, r := range remove {
		drop[r] = true
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !drop[n] {
			out = append(out, n)
		}
	}
	return out
}
