package scheduler

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/hrp-allocator/internal/modules/backtest"
	"github.com/aristath/hrp-allocator/internal/modules/history"
)

// AllocationRefreshJob recomputes the current target allocation from the
// latest trailing window and persists it for the HTTP surface to serve.
type AllocationRefreshJob struct {
	mu        sync.Mutex
	engine    *backtest.Engine
	cfg       backtest.Config
	universe  []string
	histLimit int
	historyDB *history.DB
	repo      *backtest.Repository
	log       zerolog.Logger
}

// AllocationRefreshConfig holds configuration for the refresh job
type AllocationRefreshConfig struct {
	Engine       *backtest.Engine
	Strategy     backtest.Config
	Universe     []string
	HistoryLimit int
	HistoryDB    *history.DB
	Repo         *backtest.Repository
	Log          zerolog.Logger
}

// NewAllocationRefreshJob creates a new allocation refresh job
func NewAllocationRefreshJob(cfg AllocationRefreshConfig) *AllocationRefreshJob {
	return &AllocationRefreshJob{
		engine:    cfg.Engine,
		cfg:       cfg.Strategy,
		universe:  cfg.Universe,
		histLimit: cfg.HistoryLimit,
		historyDB: cfg.HistoryDB,
		repo:      cfg.Repo,
		log:       cfg.Log.With().Str("job", "allocation_refresh").Logger(),
	}
}

// Name returns the job name
func (j *AllocationRefreshJob) Name() string {
	return "allocation_refresh"
}

// Run recomputes and stores the target allocation.
func (j *AllocationRefreshJob) Run() error {
	if !j.mu.TryLock() {
		j.log.Warn().Msg("Allocation refresh already running, skipping")
		return nil
	}
	defer j.mu.Unlock()

	if len(j.universe) == 0 {
		j.log.Warn().Msg("No universe configured, skipping refresh")
		return nil
	}

	rm, err := j.historyDB.LoadReturnMatrix(j.universe, j.histLimit)
	if err != nil {
		return fmt.Errorf("failed to load return matrix: %w", err)
	}

	if rm.NumPeriods() < j.cfg.LookbackWindow {
		return fmt.Errorf("not enough history for refresh: have %d periods, need %d",
			rm.NumPeriods(), j.cfg.LookbackWindow)
	}

	window := rm.Window(rm.NumPeriods(), j.cfg.LookbackWindow)
	decision, err := j.engine.ComputeRebalance(window)
	if err != nil {
		return fmt.Errorf("failed to compute rebalance: %w", err)
	}

	if err := j.repo.SaveTargetWeights(decision.FinalWeights, decision.Regime); err != nil {
		return fmt.Errorf("failed to save target weights: %w", err)
	}

	j.log.Info().
		Str("date", decision.Date).
		Str("regime", string(decision.Regime)).
		Float64("invested", decision.FinalWeights.Sum()).
		Msg("Refreshed target allocation")

	return nil
}
