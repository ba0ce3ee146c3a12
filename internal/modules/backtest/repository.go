package backtest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/hrp-allocator/internal/modules/allocation"
	"github.com/aristath/hrp-allocator/internal/modules/regime"
)

// Repository persists backtest runs and the latest target weights. It owns
// the backtest_runs and target_weights tables created by the application
// database's migration.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new backtest repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "backtests").Logger(),
	}
}

// RunSummary is one stored backtest run.
type RunSummary struct {
	ID          int64   `json:"id"`
	CreatedAt   string  `json:"created_at"`
	Config      Config  `json:"config"`
	Metrics     Metrics `json:"metrics"`
	BaseMetrics Metrics `json:"base_metrics"`
	FinalValue  float64 `json:"final_value"`
	Periods     int     `json:"periods"`
}

// SaveRun stores a completed run's configuration and summary metrics.
func (r *Repository) SaveRun(cfg Config, result *Result) (int64, error) {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config: %w", err)
	}
	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal metrics: %w", err)
	}
	baseMetricsJSON, err := json.Marshal(result.BaseMetrics)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal base metrics: %w", err)
	}

	res, err := r.db.Exec(`
		INSERT INTO backtest_runs (created_at, config_json, metrics_json, base_metrics_json, final_value, periods)
		VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		string(configJSON),
		string(metricsJSON),
		string(baseMetricsJSON),
		result.FinalValue(),
		len(result.Records),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert backtest run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	r.log.Info().Int64("run_id", id).Float64("final_value", result.FinalValue()).Msg("Saved backtest run")
	return id, nil
}

// ListRuns returns stored runs, newest first.
func (r *Repository) ListRuns(limit int) ([]RunSummary, error) {
	rows, err := r.db.Query(`
		SELECT id, created_at, config_json, metrics_json, base_metrics_json, final_value, periods
		FROM backtest_runs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var run RunSummary
		var configJSON, metricsJSON, baseMetricsJSON string

		err := rows.Scan(&run.ID, &run.CreatedAt, &configJSON, &metricsJSON, &baseMetricsJSON, &run.FinalValue, &run.Periods)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}

		if err := json.Unmarshal([]byte(configJSON), &run.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config for run %d: %w", run.ID, err)
		}
		if err := json.Unmarshal([]byte(metricsJSON), &run.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics for run %d: %w", run.ID, err)
		}
		if err := json.Unmarshal([]byte(baseMetricsJSON), &run.BaseMetrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal base metrics for run %d: %w", run.ID, err)
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// SaveTargetWeights replaces the stored target allocation.
func (r *Repository) SaveTargetWeights(weights allocation.WeightVector, label regime.Label) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM target_weights`); err != nil {
		return fmt.Errorf("failed to clear target weights: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for symbol, weight := range weights {
		_, err := tx.Exec(`
			INSERT INTO target_weights (symbol, weight, regime, updated_at)
			VALUES (?, ?, ?, ?)`,
			symbol, weight, string(label), now)
		if err != nil {
			return fmt.Errorf("failed to insert target weight for %s: %w", symbol, err)
		}
	}

	return tx.Commit()
}

// GetTargetWeights returns the stored target allocation and its regime.
func (r *Repository) GetTargetWeights() (allocation.WeightVector, regime.Label, error) {
	rows, err := r.db.Query(`SELECT symbol, weight, regime FROM target_weights`)
	if err != nil {
		return nil, regime.Normal, fmt.Errorf("failed to query target weights: %w", err)
	}
	defer rows.Close()

	weights := make(allocation.WeightVector)
	label := regime.Normal
	for rows.Next() {
		var symbol, regimeStr string
		var weight float64
		if err := rows.Scan(&symbol, &weight, &regimeStr); err != nil {
			return nil, regime.Normal, fmt.Errorf("failed to scan target weight: %w", err)
		}
		weights[symbol] = weight
		label = regime.Label(regimeStr)
	}

	return weights, label, rows.Err()
}
