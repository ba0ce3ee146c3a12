package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/hrp-allocator/internal/config"
	"github.com/aristath/hrp-allocator/internal/database"
	"github.com/aristath/hrp-allocator/internal/modules/backtest"
	"github.com/aristath/hrp-allocator/internal/modules/history"
	"github.com/aristath/hrp-allocator/internal/scheduler"
	"github.com/aristath/hrp-allocator/internal/server"
	"github.com/aristath/hrp-allocator/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := logger.New(logger.Config{Level: "error"})
		errLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting HRP allocator")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	historyDB := history.NewDB(cfg.HistoryDir, log)
	backtestRepo := backtest.NewRepository(db.Conn(), log)

	// Nightly target-allocation refresh
	strategy := backtest.DefaultConfig()
	strategy.DefensiveAssets = cfg.DefensiveAssets

	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	refreshJob := scheduler.NewAllocationRefreshJob(scheduler.AllocationRefreshConfig{
		Engine:       backtest.NewEngine(strategy, log),
		Strategy:     strategy,
		Universe:     cfg.Universe,
		HistoryLimit: cfg.HistoryLimit,
		HistoryDB:    historyDB,
		Repo:         backtestRepo,
		Log:          log,
	})
	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}

	// Compute an allocation at startup so /api/allocation/current has data
	// before the first scheduled run.
	go func() {
		if err := sched.RunNow(refreshJob); err != nil {
			log.Warn().Err(err).Msg("Initial allocation refresh failed")
		}
	}()

	srv := server.New(server.Config{
		Port:            cfg.Port,
		Log:             log,
		BacktestHandler: backtest.NewHandler(historyDB, backtestRepo, cfg.Universe, cfg.HistoryLimit, log),
		DevMode:         cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
