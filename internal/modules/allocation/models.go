package allocation

import (
	"math"

	"github.com/aristath/hrp-allocator/pkg/formulas"
)

// WeightSumTolerance is the numerical tolerance used when checking that a
// fully-invested weight vector sums to 1.0.
const WeightSumTolerance = 1e-9

// ReturnMatrix holds periodic returns for a set of instruments.
//
// Rows align with Dates, columns with Symbols. A NaN entry marks a missing
// observation. Missing data is carried explicitly so downstream code has to
// decide how to treat it instead of silently reading zeros.
//
// A ReturnMatrix is built once per backtest pass and treated as read-only
// afterwards; Window returns views that share the underlying rows.
type ReturnMatrix struct {
	Dates   []string
	Symbols []string
	Data    [][]float64
}

// NewReturnMatrix validates and wraps returns data.
func NewReturnMatrix(dates []string, symbols []string, data [][]float64) (*ReturnMatrix, error) {
	if len(symbols) == 0 {
		return nil, &DegenerateInputError{Reason: "instrument universe is empty"}
	}

	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if seen[s] {
			return nil, &DegenerateInputError{Reason: "duplicate instrument identifier", Symbols: []string{s}}
		}
		seen[s] = true
	}

	if len(data) != len(dates) {
		return nil, &DegenerateInputError{Reason: "row count does not match date count"}
	}
	for _, row := range data {
		if len(row) != len(symbols) {
			return nil, &DegenerateInputError{Reason: "row width does not match instrument count"}
		}
	}

	return &ReturnMatrix{Dates: dates, Symbols: symbols, Data: data}, nil
}

// NumPeriods returns the number of dated rows.
func (rm *ReturnMatrix) NumPeriods() int {
	return len(rm.Dates)
}

// NumAssets returns the number of instruments.
func (rm *ReturnMatrix) NumAssets() int {
	return len(rm.Symbols)
}

// Window returns the trailing slice of rows [end-lookback, end).
// The returned matrix shares backing rows with the parent.
func (rm *ReturnMatrix) Window(end, lookback int) *ReturnMatrix {
	start := end - lookback
	if start < 0 {
		start = 0
	}
	if end > len(rm.Dates) {
		end = len(rm.Dates)
	}
	return &ReturnMatrix{
		Dates:   rm.Dates[start:end],
		Symbols: rm.Symbols,
		Data:    rm.Data[start:end],
	}
}

// Column copies the return series of instrument index col.
func (rm *ReturnMatrix) Column(col int) []float64 {
	series := make([]float64, len(rm.Data))
	for i, row := range rm.Data {
		series[i] = row[col]
	}
	return series
}

// EqualWeightedReturns computes the cross-sectional mean return of each row,
// skipping missing observations. A row with no observations yields 0.
func (rm *ReturnMatrix) EqualWeightedReturns() []float64 {
	means := make([]float64, len(rm.Data))
	for i, row := range rm.Data {
		sum := 0.0
		count := 0
		for _, r := range row {
			if !math.IsNaN(r) {
				sum += r
				count++
			}
		}
		if count > 0 {
			means[i] = sum / float64(count)
		}
	}
	return means
}

// CrossSectionalVolatility computes the per-row standard deviation of returns
// across instruments, skipping missing observations.
func (rm *ReturnMatrix) CrossSectionalVolatility() []float64 {
	vols := make([]float64, len(rm.Data))
	for i, row := range rm.Data {
		observed := make([]float64, 0, len(row))
		for _, r := range row {
			if !math.IsNaN(r) {
				observed = append(observed, r)
			}
		}
		vols[i] = formulas.StdDev(observed)
	}
	return vols
}

// WeightVector maps instrument identifiers to non-negative allocation
// fractions. A fully-invested vector sums to 1.0 within WeightSumTolerance; a
// vector with a deliberate cash residual sums to less.
type WeightVector map[string]float64

// EqualWeights builds a uniform weight vector over the given instruments.
func EqualWeights(symbols []string) WeightVector {
	w := make(WeightVector, len(symbols))
	for _, s := range symbols {
		w[s] = 1.0 / float64(len(symbols))
	}
	return w
}

// Sum returns the total allocation.
func (w WeightVector) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Clone returns an independent copy.
func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Validate checks the weight-vector invariants: no NaN, no negative entries.
// A vector violating these must never be returned by the engine.
func (w WeightVector) Validate() error {
	for symbol, v := range w {
		if math.IsNaN(v) {
			return &DegenerateInputError{Reason: "weight is NaN", Symbols: []string{symbol}}
		}
		if v < 0 {
			return &DegenerateInputError{Reason: "weight is negative", Symbols: []string{symbol}}
		}
	}
	return nil
}
