package backtest

import (
	"fmt"

	"github.com/aristath/hrp-allocator/internal/modules/allocation"
	"github.com/aristath/hrp-allocator/internal/modules/regime"
)

// Default strategy parameters (trading-day conventions).
const (
	DefaultLookbackWindow        = 252
	DefaultRebalanceFreq         = 21
	DefaultMaxDrawdownAllocation = 0.30
	DefaultDrawdownThreshold     = 0.05
	DefaultRegimeVolMultiplier   = 1.5
	DefaultPeriodsPerYear        = 252
)

// Config is the full, explicit configuration of one backtest run. It is
// validated once at entry; the engine holds no state across runs.
type Config struct {
	LookbackWindow         int      `json:"lookback_window" yaml:"lookback_window"`
	RebalanceFreq          int      `json:"rebalance_freq" yaml:"rebalance_freq"`
	DefensiveAssets        []string `json:"defensive_assets" yaml:"defensive_assets"`
	MaxDrawdownAllocation  float64  `json:"max_drawdown_allocation" yaml:"max_drawdown_allocation"`
	DrawdownThreshold      float64  `json:"drawdown_threshold" yaml:"drawdown_threshold"`
	RegimeVolMultiplier    float64  `json:"regime_vol_multiplier" yaml:"regime_vol_multiplier"`
	RegimeTriggerPolicy    string   `json:"regime_trigger_policy" yaml:"regime_trigger_policy"`
	MaxVolatility          *float64 `json:"max_volatility,omitempty" yaml:"max_volatility"`
	AllowCash              bool     `json:"allow_cash" yaml:"allow_cash"`
	AllowUnknownDefensives bool     `json:"allow_unknown_defensives" yaml:"allow_unknown_defensives"`
	PeriodsPerYear         int      `json:"periods_per_year" yaml:"periods_per_year"`
}

// DefaultConfig returns the reference parameter set: one-year lookback,
// monthly rebalancing, 30% defensive budget, OR trigger policy, cash allowed.
func DefaultConfig() Config {
	return Config{
		LookbackWindow:        DefaultLookbackWindow,
		RebalanceFreq:         DefaultRebalanceFreq,
		MaxDrawdownAllocation: DefaultMaxDrawdownAllocation,
		DrawdownThreshold:     DefaultDrawdownThreshold,
		RegimeVolMultiplier:   DefaultRegimeVolMultiplier,
		RegimeTriggerPolicy:   regime.TriggerOr,
		AllowCash:             true,
		PeriodsPerYear:        DefaultPeriodsPerYear,
	}
}

// Validate checks every recognized option against its documented range and
// the defensive set against the universe. Unknown defensive references fail
// here (not silently filtered) unless AllowUnknownDefensives is set.
func (c Config) Validate(universe []string) error {
	if len(universe) == 0 {
		return &allocation.DegenerateInputError{Reason: "instrument universe is empty"}
	}
	if c.LookbackWindow < 2 {
		return fmt.Errorf("lookback_window must be >= 2, got %d", c.LookbackWindow)
	}
	if c.RebalanceFreq < 1 {
		return fmt.Errorf("rebalance_freq must be >= 1, got %d", c.RebalanceFreq)
	}
	if c.MaxDrawdownAllocation <= 0 || c.MaxDrawdownAllocation > 1 {
		return fmt.Errorf("max_drawdown_allocation must be in (0, 1], got %g", c.MaxDrawdownAllocation)
	}
	if c.DrawdownThreshold <= 0 || c.DrawdownThreshold >= 1 {
		return fmt.Errorf("drawdown_threshold must be in (0, 1), got %g", c.DrawdownThreshold)
	}
	if c.RegimeVolMultiplier <= 0 {
		return fmt.Errorf("regime_vol_multiplier must be > 0, got %g", c.RegimeVolMultiplier)
	}
	if c.RegimeTriggerPolicy != "" && c.RegimeTriggerPolicy != regime.TriggerOr && c.RegimeTriggerPolicy != regime.TriggerAnd {
		return fmt.Errorf("regime_trigger_policy must be %q or %q, got %q", regime.TriggerOr, regime.TriggerAnd, c.RegimeTriggerPolicy)
	}
	if c.MaxVolatility != nil && *c.MaxVolatility <= 0 {
		return fmt.Errorf("max_volatility must be > 0, got %g", *c.MaxVolatility)
	}
	if c.PeriodsPerYear < 1 {
		return fmt.Errorf("periods_per_year must be >= 1, got %d", c.PeriodsPerYear)
	}

	if !c.AllowUnknownDefensives {
		known := make(map[string]bool, len(universe))
		for _, symbol := range universe {
			known[symbol] = true
		}
		for _, symbol := range c.DefensiveAssets {
			if !known[symbol] {
				return &allocation.DegenerateInputError{
					Reason:  "defensive asset not in universe",
					Symbols: []string{symbol},
				}
			}
		}
	}

	return nil
}

// RebalanceDecision is the outcome of one rebalancing date's computation. It
// is a pure function of the trailing window (see Engine.ComputeRebalance),
// which makes parameter sweeps embarrassingly parallel for callers.
type RebalanceDecision struct {
	Date         string                  `json:"date"`
	BaseWeights  allocation.WeightVector `json:"base_weights"`
	FinalWeights allocation.WeightVector `json:"final_weights"`
	Regime       regime.Label            `json:"regime"`
}

// PeriodRecord is one period of backtest output.
type PeriodRecord struct {
	Date            string                  `json:"date"`
	BaseWeights     allocation.WeightVector `json:"base_weights"`
	FinalWeights    allocation.WeightVector `json:"final_weights"`
	Regime          regime.Label            `json:"regime"`
	Return          float64                 `json:"return"`
	CumulativeValue float64                 `json:"cumulative_value"`
	Rebalanced      bool                    `json:"rebalanced"`
}

// Result is the full output of one backtest: per-period records for the
// regime-aware strategy, the plain-HRP comparison path, and summary metrics
// for both. Read-only once returned.
type Result struct {
	Records []PeriodRecord `json:"records"`

	// BaseValues is the cumulative value path of the plain-HRP strategy,
	// parallel to Records, kept for comparison reporting.
	BaseValues []float64 `json:"base_values"`

	Metrics     Metrics `json:"metrics"`
	BaseMetrics Metrics `json:"base_metrics"`
}

// FinalValue returns the regime-aware strategy's terminal cumulative value.
func (r *Result) FinalValue() float64 {
	if len(r.Records) == 0 {
		return 1.0
	}
	return r.Records[len(r.Records)-1].CumulativeValue
}

// LatestWeights returns the final weights in force at the end of the run.
func (r *Result) LatestWeights() allocation.WeightVector {
	if len(r.Records) == 0 {
		return nil
	}
	return r.Records[len(r.Records)-1].FinalWeights
}
