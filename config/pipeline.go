package config

import (
	"fmt"

	"github.com/calyx-lang/calyxgo/ir"
	"github.com/calyx-lang/calyxgo/passes"
	"github.com/calyx-lang/calyxgo/passmgr"
)

// knownPasses is the registry cmd/calyx's -p/-d/-x flags resolve names
// against, built fresh per call so two pipelines never share mutable
// passmgr.Pass state. static-promotion closes over cfg's promotion policy
// since passmgr.Pass.Run's signature carries no room for one.
func knownPasses(cfg Config) map[string]passmgr.Pass {
	policy := passes.PromotionPolicy{
		Threshold:       cfg.StaticPromotionThreshold,
		CycleLimit:      cfg.StaticPromotionCycleLimit,
		IfDiffTolerance: cfg.StaticPromotionIfDiffTolerance,
	}
	return map[string]passmgr.Pass{
		"cse": passmgr.NewBuilder("cse").
			WithInvalidates("dominance").
			WithRun(passes.CSE).
			Build(),
		"static-promotion": passmgr.NewBuilder("static-promotion").
			WithRequires(passmgr.Dependency{Pass: "cse"}).
			WithInvalidates("dominance", "static-latency").
			WithRun(func(c *ir.Component) error { return passes.PromoteStatic(c, policy) }).
			Build(),
	}
}

// BuildPipeline resolves cfg.Passes, in order, into a passmgr.Pipeline ready
// to run against a component.
func BuildPipeline(cfg Config) (*passmgr.Pipeline, error) {
	registry := knownPasses(cfg)
	ordered := make([]passmgr.Pass, 0, len(cfg.Passes))
	for _, name := range cfg.Passes {
		p, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("config: unknown pass %q", name)
		}
		ordered = append(ordered, p)
	}
	return passmgr.NewPipeline(cfg.Logger, ordered...), nil
}
