package backtest

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/hrp-allocator/internal/modules/allocation"
	"github.com/aristath/hrp-allocator/internal/modules/regime"
)

// Engine runs rebalancing backtests: at every scheduled date it recomputes
// HRP base weights from the trailing lookback window, classifies the regime,
// blends, and holds the resulting weights fixed until the next rebalance
// (buy-and-hold drift between rebalances). It is stateless between runs.
type Engine struct {
	cfg      Config
	hrp      *allocation.Service
	detector *regime.Detector
	blender  *regime.Blender
	log      zerolog.Logger
}

// NewEngine wires an engine for one configuration. The configuration is not
// validated here; Run validates it against the return matrix it receives.
func NewEngine(cfg Config, log zerolog.Logger) *Engine {
	if cfg.PeriodsPerYear < 1 {
		cfg.PeriodsPerYear = DefaultPeriodsPerYear
	}
	return &Engine{
		cfg: cfg,
		hrp: allocation.NewService(2, log),
		detector: regime.NewDetector(regime.DetectorConfig{
			DrawdownThreshold: cfg.DrawdownThreshold,
			VolMultiplier:     cfg.RegimeVolMultiplier,
			TriggerPolicy:     cfg.RegimeTriggerPolicy,
		}, log),
		blender: regime.NewBlender(regime.BlendConfig{
			DefensiveAssets:        cfg.DefensiveAssets,
			MaxDrawdownAllocation:  cfg.MaxDrawdownAllocation,
			AllowUnknownDefensives: cfg.AllowUnknownDefensives,
		}, log),
		log: log.With().Str("component", "backtest").Logger(),
	}
}

// ComputeRebalance performs one rebalancing date's full computation from a
// trailing return window: base HRP weights, regime label, blended final
// weights, and the optional volatility clamp. It is a pure function of the
// window, so callers sweeping parameters can run it concurrently.
func (e *Engine) ComputeRebalance(window *allocation.ReturnMatrix) (*RebalanceDecision, error) {
	base, err := e.hrp.BaseWeights(window)
	if err != nil {
		return nil, err
	}

	label := e.detector.Current(window)

	final, err := e.blender.Blend(base, label, window.Symbols)
	if err != nil {
		return nil, err
	}

	if e.cfg.MaxVolatility != nil {
		est, err := allocation.EstimateCovariance(window, 2)
		if err != nil {
			return nil, err
		}
		base = ApplyVolatilityConstraint(base, est, *e.cfg.MaxVolatility, e.cfg.AllowCash, e.cfg.PeriodsPerYear)
		final = ApplyVolatilityConstraint(final, est, *e.cfg.MaxVolatility, e.cfg.AllowCash, e.cfg.PeriodsPerYear)
	}

	date := ""
	if len(window.Dates) > 0 {
		date = window.Dates[len(window.Dates)-1]
	}

	return &RebalanceDecision{
		Date:         date,
		BaseWeights:  base,
		FinalWeights: final,
		Regime:       label,
	}, nil
}

// Run executes the backtest over the full return matrix.
//
// The simulation starts after LookbackWindow periods and rebalances every
// RebalanceFreq periods. Equal weights are held until the first rebalance
// completes. Portfolio returns are the weighted sum of per-instrument period
// returns under the weights in force; a missing instrument return contributes
// nothing for that period (explicitly, not as silent zero data).
func (e *Engine) Run(rm *allocation.ReturnMatrix) (*Result, error) {
	if err := e.cfg.Validate(rm.Symbols); err != nil {
		return nil, err
	}

	required := e.cfg.LookbackWindow + e.cfg.RebalanceFreq
	if rm.NumPeriods() < required {
		return nil, &allocation.InsufficientDataError{
			Available: rm.NumPeriods(),
			Required:  required,
		}
	}

	lookback := e.cfg.LookbackWindow
	dates := rm.Dates[lookback:]

	heldBase := allocation.EqualWeights(rm.Symbols)
	heldFinal := allocation.EqualWeights(rm.Symbols)
	currentRegime := regime.Normal

	records := make([]PeriodRecord, 0, len(dates))
	returns := make([]float64, 0, len(dates))
	baseReturns := make([]float64, 0, len(dates))
	baseValues := make([]float64, 0, len(dates))

	value := 1.0
	baseValue := 1.0

	for i, date := range dates {
		rebalanced := false
		if i%e.cfg.RebalanceFreq == 0 {
			window := rm.Window(lookback+i, lookback)
			decision, err := e.ComputeRebalance(window)
			if err != nil {
				return nil, fmt.Errorf("rebalance at %s: %w", date, err)
			}
			heldBase = decision.BaseWeights
			heldFinal = decision.FinalWeights
			currentRegime = decision.Regime
			rebalanced = true

			e.log.Debug().
				Str("date", date).
				Str("regime", string(currentRegime)).
				Float64("invested", heldFinal.Sum()).
				Msg("Rebalanced")
		}

		row := rm.Data[lookback+i]
		periodReturn := weightedReturn(heldFinal, rm.Symbols, row)
		basePeriodReturn := weightedReturn(heldBase, rm.Symbols, row)

		value *= 1 + periodReturn
		baseValue *= 1 + basePeriodReturn
		if math.IsNaN(value) || math.IsNaN(baseValue) {
			return nil, fmt.Errorf("portfolio value became NaN at %s", date)
		}

		returns = append(returns, periodReturn)
		baseReturns = append(baseReturns, basePeriodReturn)
		baseValues = append(baseValues, baseValue)

		records = append(records, PeriodRecord{
			Date:            date,
			BaseWeights:     heldBase,
			FinalWeights:    heldFinal,
			Regime:          currentRegime,
			Return:          periodReturn,
			CumulativeValue: value,
			Rebalanced:      rebalanced,
		})
	}

	values := make([]float64, len(records))
	for i, rec := range records {
		values[i] = rec.CumulativeValue
	}

	result := &Result{
		Records:     records,
		BaseValues:  baseValues,
		Metrics:     CalculateMetrics(returns, values, e.cfg.PeriodsPerYear),
		BaseMetrics: CalculateMetrics(baseReturns, baseValues, e.cfg.PeriodsPerYear),
	}

	e.log.Info().
		Int("periods", len(records)).
		Float64("final_value", result.FinalValue()).
		Float64("base_final_value", baseValue).
		Msg("Backtest complete")

	return result, nil
}

// weightedReturn computes the portfolio return of one period under the held
// weights. Missing instrument returns (NaN) contribute nothing.
func weightedReturn(weights allocation.WeightVector, symbols []string, row []float64) float64 {
	total := 0.0
	for col, symbol := range symbols {
		r := row[col]
		if math.IsNaN(r) {
			continue
		}
		total += weights[symbol] * r
	}
	return total
}
