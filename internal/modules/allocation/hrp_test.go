package allocation

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseWeights_EmptyUniverse(t *testing.T) {
	svc := NewService(2, zerolog.Nop())
	rm := &ReturnMatrix{Dates: []string{"d1"}, Symbols: []string{}, Data: [][]float64{{}}}

	_, err := svc.BaseWeights(rm)

	var degenerate *DegenerateInputError
	require.Error(t, err)
	assert.True(t, errors.As(err, &degenerate))
}

func TestBaseWeights_SingleInstrument(t *testing.T) {
	svc := NewService(2, zerolog.Nop())
	rm := mustMatrix(t, []string{"SPY"}, [][]float64{{0.01}, {-0.02}, {0.03}})

	weights, err := svc.BaseWeights(rm)
	require.NoError(t, err)

	assert.Equal(t, WeightVector{"SPY": 1.0}, weights)
}

func TestBaseWeights_UncorrelatedEqualVariance(t *testing.T) {
	svc := NewService(2, zerolog.Nop())

	// Orthogonal sign patterns with identical magnitude: zero sample
	// correlation and equal variance, so the split must be exactly 50/50.
	rm := mustMatrix(t, []string{"A", "B"}, [][]float64{
		{0.01, 0.01},
		{-0.01, 0.01},
		{0.01, -0.01},
		{-0.01, -0.01},
		{0.01, 0.01},
		{-0.01, 0.01},
		{0.01, -0.01},
		{-0.01, -0.01},
	})

	weights, err := svc.BaseWeights(rm)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, weights["A"], WeightSumTolerance)
	assert.InDelta(t, 0.5, weights["B"], WeightSumTolerance)
}

func TestBaseWeights_InsufficientData(t *testing.T) {
	svc := NewService(2, zerolog.Nop())
	rm := mustMatrix(t, []string{"A", "B"}, [][]float64{{0.01, 0.02}})

	_, err := svc.BaseWeights(rm)

	var insufficient *InsufficientDataError
	require.Error(t, err)
	assert.True(t, errors.As(err, &insufficient))
}

func TestBaseWeights_DroppedInstrumentGetsZero(t *testing.T) {
	svc := NewService(2, zerolog.Nop())
	nan := math.NaN()
	rm := mustMatrix(t, []string{"A", "DEAD", "B"}, [][]float64{
		{0.01, nan, 0.02},
		{-0.02, nan, 0.01},
		{0.015, nan, -0.01},
		{-0.005, nan, 0.02},
	})

	weights, err := svc.BaseWeights(rm)
	require.NoError(t, err)

	assert.Equal(t, 0.0, weights["DEAD"])
	assert.InDelta(t, 1.0, weights.Sum(), WeightSumTolerance)
}

func TestBaseWeights_NeverNaNOrNegative(t *testing.T) {
	svc := NewService(2, zerolog.Nop())
	rm := mustMatrix(t, []string{"A", "B", "C"}, [][]float64{
		{0.01, 0.01, 0.0},
		{0.01, -0.01, 0.0},
		{-0.01, 0.02, 0.0},
		{0.02, 0.005, 0.0},
	})

	weights, err := svc.BaseWeights(rm)
	require.NoError(t, err)

	for symbol, w := range weights {
		assert.False(t, math.IsNaN(w), "weight for %s is NaN", symbol)
		assert.GreaterOrEqual(t, w, 0.0)
	}
	assert.InDelta(t, 1.0, weights.Sum(), WeightSumTolerance)
}
