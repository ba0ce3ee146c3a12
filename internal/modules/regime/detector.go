package regime

import (
	"sort"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/aristath/hrp-allocator/internal/modules/allocation"
	"github.com/aristath/hrp-allocator/pkg/formulas"
)

// DetectorConfig holds regime-detection parameters.
type DetectorConfig struct {
	DrawdownThreshold float64 // running drawdown that counts as stress, e.g. 0.05
	VolMultiplier     float64 // short vol vs baseline, e.g. 1.5
	ShortWindow       int     // SMA window for the realized-vol series
	TriggerPolicy     string  // TriggerOr (default) or TriggerAnd
}

// Detector classifies each period of a return window as NORMAL or DRAWDOWN
// from two trailing statistics: the equal-weighted portfolio's peak-to-current
// drawdown, and smoothed cross-sectional volatility measured against its
// expanding median baseline.
//
// Every label at index i uses data up to and including row i only, so labels
// are causal and safe to consume at a rebalancing date without lookahead.
type Detector struct {
	cfg DetectorConfig
	log zerolog.Logger
}

// NewDetector creates a detector, applying defaults for unset parameters.
func NewDetector(cfg DetectorConfig, log zerolog.Logger) *Detector {
	if cfg.DrawdownThreshold <= 0 {
		cfg.DrawdownThreshold = 0.05
	}
	if cfg.VolMultiplier <= 0 {
		cfg.VolMultiplier = 1.5
	}
	if cfg.ShortWindow <= 0 {
		cfg.ShortWindow = 5
	}
	if cfg.TriggerPolicy == "" {
		cfg.TriggerPolicy = TriggerOr
	}
	return &Detector{
		cfg: cfg,
		log: log.With().Str("component", "regime_detector").Logger(),
	}
}

// Classify labels every period of the window. Periods inside the volatility
// warm-up are NORMAL.
func (d *Detector) Classify(window *allocation.ReturnMatrix) []Label {
	n := window.NumPeriods()
	labels := make([]Label, n)
	for i := range labels {
		labels[i] = Normal
	}
	if n < d.cfg.ShortWindow {
		return labels
	}

	vol := window.CrossSectionalVolatility()
	smoothed := smoothVolatility(vol, d.cfg.ShortWindow)

	cumulative := formulas.CumulativeValue(window.EqualWeightedReturns())
	drawdowns := formulas.RunningDrawdown(cumulative)

	for i := d.cfg.ShortWindow; i < n; i++ {
		baseline := expandingMedian(smoothed[:i+1])

		volSpike := baseline > 0 && smoothed[i] > d.cfg.VolMultiplier*baseline
		inDrawdown := drawdowns[i] > d.cfg.DrawdownThreshold

		triggered := volSpike || inDrawdown
		if d.cfg.TriggerPolicy == TriggerAnd {
			triggered = volSpike && inDrawdown
		}
		if triggered {
			labels[i] = Drawdown
		}
	}

	return labels
}

// Current returns the label in force at the window's final date.
func (d *Detector) Current(window *allocation.ReturnMatrix) Label {
	labels := d.Classify(window)
	if len(labels) == 0 {
		return Normal
	}
	current := labels[len(labels)-1]
	d.log.Debug().
		Str("date", window.Dates[len(window.Dates)-1]).
		Str("regime", string(current)).
		Msg("Classified regime")
	return current
}

// smoothVolatility smooths the raw volatility series with a trailing SMA.
// Indices inside the talib warm-up use the expanding mean instead, so every
// point stays defined and causal.
func smoothVolatility(vol []float64, period int) []float64 {
	smoothed := make([]float64, len(vol))
	var sma []float64
	if len(vol) >= period {
		sma = talib.Sma(vol, period)
	}

	running := 0.0
	for i, v := range vol {
		running += v
		if i >= period-1 && sma != nil {
			smoothed[i] = sma[i]
		} else {
			smoothed[i] = running / float64(i+1)
		}
	}
	return smoothed
}

// expandingMedian returns the median of the series seen so far.
func expandingMedian(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	sorted := append([]float64{}, series...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
