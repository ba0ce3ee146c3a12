package backtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/hrp-allocator/internal/modules/allocation"
	"github.com/aristath/hrp-allocator/internal/modules/history"
)

// Handler handles HTTP requests for the backtest module.
type Handler struct {
	historyDB    *history.DB
	repo         *Repository
	universe     []string
	historyLimit int
	log          zerolog.Logger
}

// NewHandler creates a new backtest handler.
func NewHandler(
	historyDB *history.DB,
	repo *Repository,
	universe []string,
	historyLimit int,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		historyDB:    historyDB,
		repo:         repo,
		universe:     universe,
		historyLimit: historyLimit,
		log:          log.With().Str("component", "backtest_handler").Logger(),
	}
}

// RunRequest is the POST /api/backtests/run payload. Symbols defaults to the
// configured universe; Config fields default via DefaultConfig.
type RunRequest struct {
	Symbols []string `json:"symbols"`
	Config  *Config  `json:"config"`
}

// HandleRun handles POST /api/backtests/run - runs a backtest and stores the summary.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = h.universe
	}
	if len(symbols) == 0 {
		h.writeError(w, http.StatusBadRequest, "No symbols requested and no universe configured")
		return
	}

	cfg := DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
		if cfg.PeriodsPerYear == 0 {
			cfg.PeriodsPerYear = DefaultPeriodsPerYear
		}
	}

	h.log.Info().
		Strs("symbols", symbols).
		Int("lookback", cfg.LookbackWindow).
		Int("rebalance_freq", cfg.RebalanceFreq).
		Msg("Running backtest")

	rm, err := h.historyDB.LoadReturnMatrix(symbols, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load return matrix")
		h.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load history: %v", err))
		return
	}

	engine := NewEngine(cfg, h.log)
	result, err := engine.Run(rm)
	if err != nil {
		status := http.StatusInternalServerError
		var insufficientErr *allocation.InsufficientDataError
		var degenerateErr *allocation.DegenerateInputError
		if errors.As(err, &insufficientErr) || errors.As(err, &degenerateErr) {
			status = http.StatusBadRequest
		}
		h.log.Error().Err(err).Msg("Backtest failed")
		h.writeError(w, status, fmt.Sprintf("Backtest failed: %v", err))
		return
	}

	runID, err := h.repo.SaveRun(cfg, result)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to save backtest run")
		h.writeError(w, http.StatusInternalServerError, "Failed to save backtest run")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":       runID,
		"metrics":      result.Metrics,
		"base_metrics": result.BaseMetrics,
		"final_value":  result.FinalValue(),
		"weights":      result.LatestWeights(),
		"periods":      len(result.Records),
	})
}

// HandleListRuns handles GET /api/backtests - returns stored runs, newest first.
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.repo.ListRuns(50)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backtest runs")
		h.writeError(w, http.StatusInternalServerError, "Failed to list backtest runs")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}

// HandleCurrentAllocation handles GET /api/allocation/current - returns the
// stored target weights produced by the refresh job or the latest run.
func (h *Handler) HandleCurrentAllocation(w http.ResponseWriter, r *http.Request) {
	weights, label, err := h.repo.GetTargetWeights()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get target weights")
		h.writeError(w, http.StatusInternalServerError, "Failed to get target weights")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"weights":  weights,
		"regime":   label,
		"invested": weights.Sum(),
	})
}

// HTTP helpers

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
