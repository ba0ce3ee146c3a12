package allocation

import (
	"math"

	"github.com/aristath/hrp-allocator/pkg/formulas"
)

// CovarianceEstimate holds the covariance and correlation structure of a
// return window. Symbols lists the instruments that survived the
// missing-data policy, in universe order; both matrices are indexed by it.
type CovarianceEstimate struct {
	Symbols []string
	Cov     [][]float64
	Corr    [][]float64
}

// Index returns the matrix index of a symbol, or -1.
func (e *CovarianceEstimate) Index(symbol string) int {
	for i, s := range e.Symbols {
		if s == symbol {
			return i
		}
	}
	return -1
}

// PortfolioVariance computes w' Σ w for weights aligned with e.Symbols.
func (e *CovarianceEstimate) PortfolioVariance(weights []float64) float64 {
	variance := 0.0
	for i := range weights {
		for j := range weights {
			variance += weights[i] * e.Cov[i][j] * weights[j]
		}
	}
	return variance
}

// EstimateCovariance computes the covariance and correlation matrices of a
// return window.
//
// Missing-data policy (this changes portfolio composition, so it is fixed and
// documented here): instruments whose window is entirely missing are dropped
// from the estimate; isolated missing points are imputed as zero for that
// period.
//
// Requires at least minObservations rows (floored at 2); fails with
// *InsufficientDataError otherwise.
func EstimateCovariance(window *ReturnMatrix, minObservations int) (*CovarianceEstimate, error) {
	if minObservations < 2 {
		minObservations = 2
	}
	if window.NumPeriods() < minObservations {
		return nil, &InsufficientDataError{
			Available: window.NumPeriods(),
			Required:  minObservations,
		}
	}
	if window.NumAssets() == 0 {
		return nil, &DegenerateInputError{Reason: "instrument universe is empty"}
	}

	// Apply the missing-data policy column by column.
	symbols := make([]string, 0, window.NumAssets())
	columns := make([][]float64, 0, window.NumAssets())
	for col, symbol := range window.Symbols {
		series := window.Column(col)
		observed := 0
		for i, r := range series {
			if math.IsNaN(r) {
				series[i] = 0
			} else {
				observed++
			}
		}
		if observed == 0 {
			continue
		}
		symbols = append(symbols, symbol)
		columns = append(columns, series)
	}

	if len(symbols) == 0 {
		return nil, &InsufficientDataError{
			Available: 0,
			Required:  minObservations,
		}
	}

	n := len(symbols)
	cov := make([][]float64, n)
	corr := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
		corr[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		cov[i][i] = formulas.Variance(columns[i])
		corr[i][i] = 1.0
		for j := i + 1; j < n; j++ {
			c := formulas.Covariance(columns[i], columns[j])
			cov[i][j] = c
			cov[j][i] = c

			r := formulas.Correlation(columns[i], columns[j])
			if math.IsNaN(r) {
				// Constant series have undefined correlation; treat as
				// uncorrelated so clustering stays well-defined.
				r = 0
			}
			corr[i][j] = r
			corr[j][i] = r
		}
	}

	return &CovarianceEstimate{Symbols: symbols, Cov: cov, Corr: corr}, nil
}
