package allocation

import (
	"math"

	"github.com/rs/zerolog"
)

// Service computes Hierarchical Risk Parity base weights from a return
// window. It is stateless between calls: every result is a pure function of
// the window handed in.
type Service struct {
	minObservations int
	log             zerolog.Logger
}

// NewService creates a new HRP service. minObservations floors the number of
// return rows required for covariance estimation (values below 2 are raised
// to 2).
func NewService(minObservations int, log zerolog.Logger) *Service {
	if minObservations < 2 {
		minObservations = 2
	}
	return &Service{
		minObservations: minObservations,
		log:             log.With().Str("component", "hrp").Logger(),
	}
}

// BaseWeights computes the HRP weight vector for a return window:
// covariance/correlation estimation, quasi-diagonalization via average-linkage
// clustering, then recursive bisection.
//
// A single-instrument universe receives weight 1.0. Instruments dropped by the
// covariance missing-data policy receive weight 0. A degenerate correlation
// structure falls back to equal weights rather than returning NaN.
func (s *Service) BaseWeights(window *ReturnMatrix) (WeightVector, error) {
	if window.NumAssets() == 0 {
		return nil, &DegenerateInputError{Reason: "instrument universe is empty"}
	}
	if window.NumAssets() == 1 {
		return WeightVector{window.Symbols[0]: 1.0}, nil
	}

	est, err := EstimateCovariance(window, s.minObservations)
	if err != nil {
		return nil, err
	}

	if hasNaN(est.Corr) {
		s.log.Warn().
			Int("num_assets", window.NumAssets()).
			Msg("NaN in correlation matrix, falling back to equal weights")
		return EqualWeights(window.Symbols), nil
	}

	order := QuasiDiagonalOrder(est.Corr)
	raw := RecursiveBisection(est.Cov, order)

	weights := make(WeightVector, len(window.Symbols))
	for _, symbol := range window.Symbols {
		weights[symbol] = 0
	}
	for i, symbol := range est.Symbols {
		weights[symbol] = raw[i]
	}

	if weights.Sum() <= 0 {
		s.log.Warn().Msg("HRP weights sum to zero, falling back to equal weights")
		return EqualWeights(window.Symbols), nil
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	return weights, nil
}

func hasNaN(matrix [][]float64) bool {
	for _, row := range matrix {
		for _, v := range row {
			if math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}
