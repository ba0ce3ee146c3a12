package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecursiveBisection_EqualVarianceSplitsEvenly(t *testing.T) {
	cov := [][]float64{
		{0.04, 0.0},
		{0.0, 0.04},
	}

	weights := RecursiveBisection(cov, []int{0, 1})

	assert.InDelta(t, 0.5, weights[0], WeightSumTolerance)
	assert.InDelta(t, 0.5, weights[1], WeightSumTolerance)
}

func TestRecursiveBisection_InverseVarianceSplit(t *testing.T) {
	// varLeft=0.01, varRight=0.04: left gets 1 - 0.01/0.05 = 0.8.
	cov := [][]float64{
		{0.01, 0.0},
		{0.0, 0.04},
	}

	weights := RecursiveBisection(cov, []int{0, 1})

	assert.InDelta(t, 0.8, weights[0], 1e-12)
	assert.InDelta(t, 0.2, weights[1], 1e-12)
}

func TestRecursiveBisection_ZeroVarianceSideTakesBudget(t *testing.T) {
	cov := [][]float64{
		{0.0, 0.0},
		{0.0, 0.04},
	}

	weights := RecursiveBisection(cov, []int{0, 1})

	assert.InDelta(t, 1.0, weights[0], 1e-12)
	assert.InDelta(t, 0.0, weights[1], 1e-12)
}

func TestRecursiveBisection_BothZeroVarianceSplitEvenly(t *testing.T) {
	cov := [][]float64{
		{0.0, 0.0},
		{0.0, 0.0},
	}

	weights := RecursiveBisection(cov, []int{0, 1})

	assert.InDelta(t, 0.5, weights[0], 1e-12)
	assert.InDelta(t, 0.5, weights[1], 1e-12)
}

func TestRecursiveBisection_SumsToOne(t *testing.T) {
	cov := [][]float64{
		{0.040, 0.006, 0.002, 0.001},
		{0.006, 0.020, 0.001, 0.002},
		{0.002, 0.001, 0.090, 0.010},
		{0.001, 0.002, 0.010, 0.030},
	}

	for _, order := range [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{2, 0, 3, 1},
	} {
		weights := RecursiveBisection(cov, order)

		total := 0.0
		for _, w := range weights {
			assert.GreaterOrEqual(t, w, 0.0)
			total += w
		}
		assert.InDelta(t, 1.0, total, WeightSumTolerance)
	}
}

func TestRecursiveBisection_OutOfOrderIndicesGetZero(t *testing.T) {
	cov := [][]float64{
		{0.04, 0.0, 0.0},
		{0.0, 0.04, 0.0},
		{0.0, 0.0, 0.04},
	}

	// Instrument 2 was dropped from the order (e.g. by the missing-data
	// policy) and must carry no weight.
	weights := RecursiveBisection(cov, []int{0, 1})

	assert.Equal(t, 0.0, weights[2])
	assert.InDelta(t, 1.0, weights[0]+weights[1], WeightSumTolerance)
}
