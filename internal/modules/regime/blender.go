package regime

import (
	"github.com/rs/zerolog"

	"github.com/aristath/hrp-allocator/internal/modules/allocation"
)

// BlendConfig holds the regime-aware blending parameters.
type BlendConfig struct {
	// DefensiveAssets receive priority allocation during DRAWDOWN. Size 0, 1,
	// or N are all handled by the same path.
	DefensiveAssets []string

	// MaxDrawdownAllocation is the total defensive budget during DRAWDOWN,
	// in (0, 1].
	MaxDrawdownAllocation float64

	// AllowUnknownDefensives silently drops defensive assets outside the
	// universe instead of failing. Off by default: unknown references
	// usually mean a configuration mistake.
	AllowUnknownDefensives bool
}

// Blender redistributes base weights between defensive and risky instruments
// when a DRAWDOWN regime is in force.
type Blender struct {
	cfg BlendConfig
	log zerolog.Logger
}

// NewBlender creates a blender for the given configuration.
func NewBlender(cfg BlendConfig, log zerolog.Logger) *Blender {
	return &Blender{
		cfg: cfg,
		log: log.With().Str("component", "blender").Logger(),
	}
}

// Blend produces the final weight vector for a period.
//
// NORMAL passes base weights through untouched. DRAWDOWN with defensive
// assets splits MaxDrawdownAllocation equally among them (independent of
// their base weights) and renormalizes the risky remainder to
// 1 - MaxDrawdownAllocation. DRAWDOWN without defensive assets scales every
// weight by 1 - MaxDrawdownAllocation: the residual is deliberately left
// uninvested as implicit cash, so the result sums below 1.0. That asymmetry
// is part of the contract, not an error.
func (b *Blender) Blend(base allocation.WeightVector, label Label, universe []string) (allocation.WeightVector, error) {
	defensives, err := b.resolveDefensives(universe)
	if err != nil {
		return nil, err
	}

	if label != Drawdown {
		return base.Clone(), nil
	}

	maxAlloc := b.cfg.MaxDrawdownAllocation

	if len(defensives) == 0 {
		final := make(allocation.WeightVector, len(base))
		for symbol, w := range base {
			final[symbol] = w * (1 - maxAlloc)
		}
		b.log.Debug().
			Float64("invested", final.Sum()).
			Msg("Drawdown with no defensive assets, scaling to cash")
		return final, nil
	}

	defensiveSet := make(map[string]bool, len(defensives))
	for _, symbol := range defensives {
		defensiveSet[symbol] = true
	}

	final := make(allocation.WeightVector, len(universe))
	defensiveWeight := maxAlloc / float64(len(defensives))
	for _, symbol := range defensives {
		// Defensive allocation is independent of base weight: a defensive
		// instrument with zero base weight still gets its equal split.
		final[symbol] = defensiveWeight
	}

	riskySum := 0.0
	for symbol, w := range base {
		if !defensiveSet[symbol] {
			riskySum += w
		}
	}

	riskyBudget := 1 - maxAlloc
	for symbol, w := range base {
		if defensiveSet[symbol] {
			continue
		}
		if riskySum > 0 {
			final[symbol] = w * riskyBudget / riskySum
		} else {
			// All base weight sat on defensives: the risky side stays empty
			// and any shortfall under maxAlloc < 1 is left uninvested.
			final[symbol] = 0
		}
	}

	if err := final.Validate(); err != nil {
		return nil, err
	}
	return final, nil
}

// resolveDefensives validates the defensive set against the universe. Unknown
// references fail with *DegenerateInputError unless AllowUnknownDefensives is
// set, in which case they are dropped.
func (b *Blender) resolveDefensives(universe []string) ([]string, error) {
	if len(b.cfg.DefensiveAssets) == 0 {
		return nil, nil
	}

	known := make(map[string]bool, len(universe))
	for _, symbol := range universe {
		known[symbol] = true
	}

	resolved := make([]string, 0, len(b.cfg.DefensiveAssets))
	var unknown []string
	for _, symbol := range b.cfg.DefensiveAssets {
		if known[symbol] {
			resolved = append(resolved, symbol)
		} else {
			unknown = append(unknown, symbol)
		}
	}

	if len(unknown) > 0 {
		if !b.cfg.AllowUnknownDefensives {
			return nil, &allocation.DegenerateInputError{
				Reason:  "defensive asset not in universe",
				Symbols: unknown,
			}
		}
		b.log.Warn().
			Strs("symbols", unknown).
			Msg("Dropping defensive assets outside the universe")
	}

	return resolved, nil
}
