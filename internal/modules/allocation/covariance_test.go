package allocation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMatrix(t *testing.T, symbols []string, data [][]float64) *ReturnMatrix {
	t.Helper()
	dates := make([]string, len(data))
	for i := range dates {
		dates[i] = "d" + string(rune('0'+i))
	}
	rm, err := NewReturnMatrix(dates, symbols, data)
	require.NoError(t, err)
	return rm
}

func TestEstimateCovariance_InsufficientData(t *testing.T) {
	rm := mustMatrix(t, []string{"SPY", "QQQ"}, [][]float64{{0.01, 0.02}})

	_, err := EstimateCovariance(rm, 2)

	var insufficient *InsufficientDataError
	require.Error(t, err)
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Available)
	assert.Equal(t, 2, insufficient.Required)
}

func TestEstimateCovariance_DropsFullyMissingColumn(t *testing.T) {
	nan := math.NaN()
	rm := mustMatrix(t, []string{"SPY", "DEAD", "QQQ"}, [][]float64{
		{0.01, nan, 0.02},
		{-0.01, nan, 0.01},
		{0.02, nan, -0.02},
	})

	est, err := EstimateCovariance(rm, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "QQQ"}, est.Symbols)
	assert.Equal(t, -1, est.Index("DEAD"))
	assert.Len(t, est.Cov, 2)
}

func TestEstimateCovariance_ImputesIsolatedMissing(t *testing.T) {
	nan := math.NaN()
	rm := mustMatrix(t, []string{"SPY"}, [][]float64{
		{0.02}, {nan}, {-0.02},
	})

	est, err := EstimateCovariance(rm, 2)
	require.NoError(t, err)

	// The missing point is treated as a zero return: the variance of
	// {0.02, 0, -0.02} rather than of the two observed points.
	assert.InDelta(t, 0.0004, est.Cov[0][0], 1e-12)
	assert.False(t, math.IsNaN(est.Cov[0][0]))
}

func TestEstimateCovariance_UnitDiagonalCorrelation(t *testing.T) {
	rm := mustMatrix(t, []string{"SPY", "QQQ"}, [][]float64{
		{0.01, 0.03},
		{-0.02, 0.01},
		{0.015, -0.02},
	})

	est, err := EstimateCovariance(rm, 2)
	require.NoError(t, err)

	for i := range est.Corr {
		assert.Equal(t, 1.0, est.Corr[i][i])
		for j := range est.Corr[i] {
			assert.False(t, math.IsNaN(est.Corr[i][j]))
			assert.InDelta(t, est.Corr[i][j], est.Corr[j][i], 1e-12)
		}
	}
}

func TestEstimateCovariance_ConstantSeriesTreatedAsUncorrelated(t *testing.T) {
	rm := mustMatrix(t, []string{"FLAT", "SPY"}, [][]float64{
		{0.01, 0.02},
		{0.01, -0.01},
		{0.01, 0.03},
	})

	est, err := EstimateCovariance(rm, 2)
	require.NoError(t, err)

	// Correlation against a constant series is undefined; it is pinned to 0
	// so clustering downstream never sees NaN.
	assert.Equal(t, 0.0, est.Corr[0][1])
}

func TestPortfolioVariance(t *testing.T) {
	est := &CovarianceEstimate{
		Symbols: []string{"A", "B"},
		Cov: [][]float64{
			{0.04, 0.00},
			{0.00, 0.01},
		},
	}

	// 0.25*0.04 + 0.25*0.01 with equal weights.
	variance := est.PortfolioVariance([]float64{0.5, 0.5})
	assert.InDelta(t, 0.0125, variance, 1e-12)
}
