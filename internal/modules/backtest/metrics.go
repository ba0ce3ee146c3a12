package backtest

import (
	"math"

	"github.com/aristath/hrp-allocator/pkg/formulas"
)

// Metrics summarizes a realized backtest return series.
type Metrics struct {
	TotalReturn          float64 `json:"total_return"`
	AnnualizedReturn     float64 `json:"annualized_return"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	SortinoRatio         float64 `json:"sortino_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	CurrentDrawdown      float64 `json:"current_drawdown"`
	DaysInDrawdown       int     `json:"days_in_drawdown"`
	Periods              int     `json:"periods"`
}

// CalculateMetrics computes summary statistics from a periodic return series
// and its cumulative value path.
func CalculateMetrics(returns []float64, values []float64, periodsPerYear int) Metrics {
	m := Metrics{Periods: len(returns)}
	if len(returns) == 0 || len(values) == 0 {
		return m
	}

	finalValue := values[len(values)-1]
	m.TotalReturn = finalValue - 1

	if finalValue > 0 {
		m.AnnualizedReturn = math.Pow(finalValue, float64(periodsPerYear)/float64(len(returns))) - 1
	} else {
		m.AnnualizedReturn = -1
	}

	m.AnnualizedVolatility = formulas.StdDev(returns) * math.Sqrt(float64(periodsPerYear))

	if sharpe := formulas.CalculateSharpeRatio(returns, 0, periodsPerYear); sharpe != nil {
		m.SharpeRatio = *sharpe
	}
	if sortino := formulas.CalculateSortinoRatio(returns, 0, 0, periodsPerYear); sortino != nil {
		m.SortinoRatio = *sortino
	}
	if dd := formulas.CalculateDrawdownMetrics(values); dd != nil {
		m.MaxDrawdown = dd.MaxDrawdown
		m.CurrentDrawdown = dd.CurrentDrawdown
		m.DaysInDrawdown = dd.DaysInDrawdown
	}

	return m
}
