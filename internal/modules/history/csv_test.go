package history

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/hrp-allocator/internal/modules/allocation"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "returns.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSVReturns(t *testing.T) {
	path := writeTempCSV(t, "date,SPY,QQQ\n2024-01-02,0.01,-0.02\n2024-01-03,,0.005\n")

	rm, err := LoadCSVReturns(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "QQQ"}, rm.Symbols)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, rm.Dates)
	assert.Equal(t, 0.01, rm.Data[0][0])
	assert.True(t, math.IsNaN(rm.Data[1][0]), "empty cell becomes a missing observation")
	assert.Equal(t, 0.005, rm.Data[1][1])
}

func TestLoadCSVPrices(t *testing.T) {
	path := writeTempCSV(t, "date,SPY,QQQ\n2024-01-02,100,50\n2024-01-03,102,49\n2024-01-04,102,\n")

	rm, err := LoadCSVPrices(path)
	require.NoError(t, err)

	// The first date is the return base, so rows start at the second date.
	assert.Equal(t, []string{"2024-01-03", "2024-01-04"}, rm.Dates)
	assert.InDelta(t, 0.02, rm.Data[0][0], 1e-12)
	assert.InDelta(t, 0.0, rm.Data[1][0], 1e-12)
	assert.InDelta(t, -0.02, rm.Data[0][1], 1e-12)
	assert.True(t, math.IsNaN(rm.Data[1][1]), "missing price yields a missing return")
}

func TestLoadCSVPrices_SingleRow(t *testing.T) {
	path := writeTempCSV(t, "date,SPY\n2024-01-02,100\n")

	_, err := LoadCSVPrices(path)

	var insufficient *allocation.InsufficientDataError
	require.Error(t, err)
	assert.True(t, errors.As(err, &insufficient))
}

func TestLoadCSVReturns_HeaderOnly(t *testing.T) {
	path := writeTempCSV(t, "date,SPY\n")

	_, err := LoadCSVReturns(path)

	var insufficient *allocation.InsufficientDataError
	require.Error(t, err)
	assert.True(t, errors.As(err, &insufficient))
}

func TestLoadCSVReturns_NoInstrumentColumns(t *testing.T) {
	path := writeTempCSV(t, "date\n2024-01-02\n")

	_, err := LoadCSVReturns(path)

	var degenerate *allocation.DegenerateInputError
	require.Error(t, err)
	assert.True(t, errors.As(err, &degenerate))
}

func TestLoadCSVReturns_BadNumber(t *testing.T) {
	path := writeTempCSV(t, "date,SPY\n2024-01-02,abc\n")

	_, err := LoadCSVReturns(path)
	assert.Error(t, err)
}
