package backtest

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/hrp-allocator/internal/database"
	"github.com/aristath/hrp-allocator/internal/modules/allocation"
	"github.com/aristath/hrp-allocator/internal/modules/regime"
)

func testRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestRepository_SaveAndListRuns(t *testing.T) {
	repo := testRepository(t)

	cfg := DefaultConfig()
	cfg.DefensiveAssets = []string{"TLT"}
	result := &Result{
		Records: []PeriodRecord{
			{Date: "d1", CumulativeValue: 1.02},
			{Date: "d2", CumulativeValue: 1.05, FinalWeights: allocation.WeightVector{"SPY": 0.7, "TLT": 0.3}},
		},
		Metrics:     Metrics{TotalReturn: 0.05, Periods: 2},
		BaseMetrics: Metrics{TotalReturn: 0.04, Periods: 2},
	}

	id, err := repo.SaveRun(cfg, result)
	require.NoError(t, err)
	assert.Positive(t, id)

	runs, err := repo.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, id, run.ID)
	assert.Equal(t, []string{"TLT"}, run.Config.DefensiveAssets)
	assert.Equal(t, 0.05, run.Metrics.TotalReturn)
	assert.Equal(t, 0.04, run.BaseMetrics.TotalReturn)
	assert.Equal(t, 1.05, run.FinalValue)
	assert.Equal(t, 2, run.Periods)
}

func TestRepository_ListRunsNewestFirst(t *testing.T) {
	repo := testRepository(t)

	cfg := DefaultConfig()
	for i := 0; i < 3; i++ {
		_, err := repo.SaveRun(cfg, &Result{
			Records: []PeriodRecord{{Date: "d1", CumulativeValue: 1.0 + float64(i)/100}},
		})
		require.NoError(t, err)
	}

	runs, err := repo.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Greater(t, runs[0].ID, runs[1].ID)
}

func TestRepository_TargetWeightsRoundTrip(t *testing.T) {
	repo := testRepository(t)

	weights := allocation.WeightVector{"SPY": 0.55, "TLT": 0.30, "GLD": 0.15}
	require.NoError(t, repo.SaveTargetWeights(weights, regime.Drawdown))

	got, label, err := repo.GetTargetWeights()
	require.NoError(t, err)
	assert.Equal(t, regime.Drawdown, label)
	assert.Equal(t, weights, got)

	// A second save replaces the stored allocation wholesale.
	replacement := allocation.WeightVector{"SPY": 1.0}
	require.NoError(t, repo.SaveTargetWeights(replacement, regime.Normal))

	got, label, err = repo.GetTargetWeights()
	require.NoError(t, err)
	assert.Equal(t, regime.Normal, label)
	assert.Equal(t, replacement, got)
}
