package backtest

import (
	"math"

	"github.com/aristath/hrp-allocator/internal/modules/allocation"
)

// ApplyVolatilityConstraint clamps a weight vector to a maximum annualized
// portfolio volatility, estimated from the window's covariance.
//
// When the estimated volatility exceeds maxVolatility the weights are scaled
// down by maxVolatility / estimated. With allowCash the freed budget sits in
// an implicit zero-return cash position (the vector sums below 1.0);
// otherwise the scaled weights are renormalized back to a full allocation,
// which only changes the mix when part of the vector lies outside the
// covariance estimate.
func ApplyVolatilityConstraint(
	weights allocation.WeightVector,
	est *allocation.CovarianceEstimate,
	maxVolatility float64,
	allowCash bool,
	periodsPerYear int,
) allocation.WeightVector {
	if len(weights) == 0 || maxVolatility <= 0 || est == nil {
		return weights
	}

	aligned := make([]float64, len(est.Symbols))
	for i, symbol := range est.Symbols {
		aligned[i] = weights[symbol]
	}

	variance := est.PortfolioVariance(aligned)
	if variance <= 0 || math.IsNaN(variance) {
		return weights
	}

	annualized := math.Sqrt(variance * float64(periodsPerYear))
	if annualized <= maxVolatility {
		return weights
	}

	scale := maxVolatility / annualized
	clamped := make(allocation.WeightVector, len(weights))
	for symbol, w := range weights {
		clamped[symbol] = w * scale
	}

	if !allowCash {
		if total := clamped.Sum(); total > 0 {
			for symbol := range clamped {
				clamped[symbol] /= total
			}
		}
	}

	return clamped
}
