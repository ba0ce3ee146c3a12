package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/aristath/hrp-allocator/internal/modules/allocation"
	"github.com/aristath/hrp-allocator/internal/modules/backtest"
	"github.com/aristath/hrp-allocator/internal/modules/history"
	"github.com/aristath/hrp-allocator/pkg/logger"
)

func main() {
	var (
		csvPath    = flag.String("csv", "", "CSV file of periodic returns (date,SYM1,SYM2,...)")
		pricesPath = flag.String("prices", "", "CSV file of closing prices, converted to returns")
		historyDir = flag.String("history", "", "Directory of per-symbol price history databases")
		symbolsArg = flag.String("symbols", "", "Comma-separated instrument universe (required with -history)")
		configPath = flag.String("config", "", "YAML strategy configuration file")
		defensives = flag.String("defensive", "", "Comma-separated defensive assets (overrides config)")
		lookback   = flag.Int("lookback", 0, "Lookback window in periods (overrides config)")
		freq       = flag.Int("freq", 0, "Rebalance frequency in periods (overrides config)")
		maxAlloc   = flag.Float64("max-alloc", 0, "Max defensive allocation in (0,1] (overrides config)")
		histLimit  = flag.Int("limit", 505, "Max history rows to load per symbol")
		logLevel   = flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	log := logger.New(logger.Config{Level: *logLevel, Pretty: true})

	cfg := backtest.DefaultConfig()
	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			fatalf("read config: %v", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			fatalf("parse config: %v", err)
		}
		if cfg.PeriodsPerYear == 0 {
			cfg.PeriodsPerYear = backtest.DefaultPeriodsPerYear
		}
	}
	if *defensives != "" {
		cfg.DefensiveAssets = splitList(*defensives)
	}
	if *lookback > 0 {
		cfg.LookbackWindow = *lookback
	}
	if *freq > 0 {
		cfg.RebalanceFreq = *freq
	}
	if *maxAlloc > 0 {
		cfg.MaxDrawdownAllocation = *maxAlloc
	}

	rm, err := loadReturns(*csvPath, *pricesPath, *historyDir, splitList(*symbolsArg), *histLimit, log)
	if err != nil {
		fatalf("load returns: %v", err)
	}

	result, err := backtest.NewEngine(cfg, log).Run(rm)
	if err != nil {
		fatalf("backtest: %v", err)
	}

	printMetrics(result)
	printWeights(result.LatestWeights())
}

func loadReturns(csvPath, pricesPath, historyDir string, symbols []string, limit int, log zerolog.Logger) (*allocation.ReturnMatrix, error) {
	switch {
	case csvPath != "":
		return history.LoadCSVReturns(csvPath)
	case pricesPath != "":
		return history.LoadCSVPrices(pricesPath)
	case historyDir != "":
		if len(symbols) == 0 {
			return nil, fmt.Errorf("-symbols is required with -history")
		}
		return history.NewDB(historyDir, log).LoadReturnMatrix(symbols, limit)
	default:
		return nil, fmt.Errorf("one of -csv, -prices or -history is required")
	}
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}

func printMetrics(result *backtest.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Backtest Results")
	t.AppendHeader(table.Row{"Metric", "Regime-Aware HRP", "HRP"})
	t.AppendRows([]table.Row{
		{"Total Return", pct(result.Metrics.TotalReturn), pct(result.BaseMetrics.TotalReturn)},
		{"Annualized Return", pct(result.Metrics.AnnualizedReturn), pct(result.BaseMetrics.AnnualizedReturn)},
		{"Volatility", pct(result.Metrics.AnnualizedVolatility), pct(result.BaseMetrics.AnnualizedVolatility)},
		{"Sharpe Ratio", num(result.Metrics.SharpeRatio), num(result.BaseMetrics.SharpeRatio)},
		{"Max Drawdown", pct(result.Metrics.MaxDrawdown), pct(result.BaseMetrics.MaxDrawdown)},
		{"Periods", result.Metrics.Periods, result.BaseMetrics.Periods},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}

func printWeights(weights allocation.WeightVector) {
	symbols := make([]string, 0, len(weights))
	for symbol := range weights {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Current Target Weights")
	t.AppendHeader(table.Row{"Symbol", "Weight"})
	for _, symbol := range symbols {
		t.AppendRow(table.Row{symbol, pct(weights[symbol])})
	}
	t.AppendFooter(table.Row{"Invested", pct(weights.Sum())})
	t.SetStyle(table.StyleLight)
	t.Render()
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func num(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "backtest: "+format+"\n", args...)
	os.Exit(1)
}
