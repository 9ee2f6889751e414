package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rustyeddy/tradebot/config"
	"github.com/rustyeddy/tradebot/engine"
	"github.com/rustyeddy/tradebot/journal"
	"github.com/rustyeddy/tradebot/strategies"
)

var rootCmd = &cobra.Command{
	Use:   "tradebot",
	Short: "A Kraken trading bot with deterministic backtesting",
	Long: `Tradebot runs pluggable signal strategies against Kraken market data.

The same decision logic runs unmodified in three modes:
  - backtest: deterministic replay of a historical CSV dataset
  - paper:    live streaming data, simulated fills
  - live:     live streaming data, real signed orders

Trades and equity snapshots are appended to a SQLite or CSV ledger.`,
}

var (
	cfgPath string
	verbose bool
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "path to run configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func buildLogger() (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

func buildJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		return journal.NewCSV(cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	case "none":
		return journal.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Journal.Type)
	}
}

func buildStrategy(cfg *config.Config) (strategies.Strategy, error) {
	return strategies.FromParams(cfg.Strategy.Name, strategies.Params{
		ShortWindow: cfg.Strategy.ShortWindow,
		LongWindow:  cfg.Strategy.LongWindow,
		Period:      cfg.Strategy.Period,
		Oversold:    cfg.Strategy.Oversold,
		Overbought:  cfg.Strategy.Overbought,
	})
}

func modeOf(cfg *config.Config) engine.Mode {
	switch cfg.Mode {
	case "live":
		return engine.Live
	case "paper":
		return engine.Paper
	default:
		return engine.Backtest
	}
}
