package regime

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/hrp-allocator/internal/modules/allocation"
)

func matrixFromRows(t *testing.T, symbols []string, rows [][]float64) *allocation.ReturnMatrix {
	t.Helper()
	dates := make([]string, len(rows))
	for i := range dates {
		dates[i] = fmt.Sprintf("d%03d", i)
	}
	rm, err := allocation.NewReturnMatrix(dates, symbols, rows)
	require.NoError(t, err)
	return rm
}

// repeatRows builds n identical return rows.
func repeatRows(row []float64, n int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = append([]float64{}, row...)
	}
	return rows
}

func TestClassify_FlatMarketStaysNormal(t *testing.T) {
	d := NewDetector(DetectorConfig{}, zerolog.Nop())
	rm := matrixFromRows(t, []string{"A", "B"}, repeatRows([]float64{0.001, 0.001}, 20))

	labels := d.Classify(rm)

	for i, label := range labels {
		assert.Equal(t, Normal, label, "period %d", i)
	}
}

func TestClassify_WarmupIsNormal(t *testing.T) {
	d := NewDetector(DetectorConfig{ShortWindow: 5}, zerolog.Nop())

	// Steep losses from the very first period. The first ShortWindow labels
	// must still be NORMAL because the volatility baseline has no history.
	rm := matrixFromRows(t, []string{"A", "B"}, repeatRows([]float64{-0.03, -0.03}, 15))

	labels := d.Classify(rm)

	for i := 0; i < 5; i++ {
		assert.Equal(t, Normal, labels[i], "warm-up period %d", i)
	}
}

func TestClassify_DrawdownTrigger(t *testing.T) {
	d := NewDetector(DetectorConfig{DrawdownThreshold: 0.05, ShortWindow: 5}, zerolog.Nop())

	// Identical returns across instruments keep cross-sectional volatility at
	// zero, so only the drawdown condition can fire. A steady -2% per period
	// breaches the 5% running drawdown after a few periods.
	rm := matrixFromRows(t, []string{"A", "B"}, repeatRows([]float64{-0.02, -0.02}, 15))

	labels := d.Classify(rm)

	assert.Equal(t, Drawdown, labels[14], "deep drawdown must be flagged")
	assert.Equal(t, Drawdown, d.Current(rm))
}

func TestClassify_VolSpikeTrigger(t *testing.T) {
	// Symmetric rows keep the equal-weighted return at zero, so there is
	// never a drawdown. Dispersion jumps 50x late in the window.
	rows := repeatRows([]float64{0.001, -0.001}, 20)
	rows = append(rows, repeatRows([]float64{0.05, -0.05}, 10)...)

	or := NewDetector(DetectorConfig{TriggerPolicy: TriggerOr}, zerolog.Nop())
	and := NewDetector(DetectorConfig{TriggerPolicy: TriggerAnd}, zerolog.Nop())

	rm := matrixFromRows(t, []string{"A", "B"}, rows)

	orLabels := or.Classify(rm)
	assert.Equal(t, Drawdown, orLabels[len(orLabels)-1],
		"OR policy flags a volatility spike alone")

	// AND requires the drawdown condition too, which never fires here.
	andLabels := and.Classify(rm)
	for i, label := range andLabels {
		assert.Equal(t, Normal, label, "AND policy period %d", i)
	}
}

func TestClassify_IsCausal(t *testing.T) {
	d := NewDetector(DetectorConfig{}, zerolog.Nop())

	calm := repeatRows([]float64{0.001, 0.001}, 15)
	crash := append(repeatRows([]float64{0.001, 0.001}, 15), repeatRows([]float64{-0.05, -0.05}, 10)...)

	calmLabels := d.Classify(matrixFromRows(t, []string{"A", "B"}, calm))
	crashLabels := d.Classify(matrixFromRows(t, []string{"A", "B"}, crash))

	// A future crash must not change labels already assigned to the calm
	// prefix: label i depends only on rows up to i.
	for i := range calmLabels {
		assert.Equal(t, calmLabels[i], crashLabels[i], "period %d", i)
	}
}

func TestCurrent_ShortWindowDefaultsNormal(t *testing.T) {
	d := NewDetector(DetectorConfig{ShortWindow: 5}, zerolog.Nop())
	rm := matrixFromRows(t, []string{"A"}, repeatRows([]float64{-0.10}, 3))

	assert.Equal(t, Normal, d.Current(rm))
}
