package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebot/backtest"
	"github.com/rustyeddy/tradebot/config"
	"github.com/rustyeddy/tradebot/engine"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a historical dataset and print the metrics report",
	Long: `Backtest replays a headerless CSV dataset
(timestamp,open,high,low,close,volume,vwap) through the configured
strategy and prints the final metrics report as JSON.

Example:
  tradebot backtest -c config.yaml --data data/btcusd_1m.csv`,
	RunE: runBacktest,
}

var (
	btDataPath string
	btStrategy string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btDataPath, "data", "d", "", "historical CSV path (overrides config data.csv_path)")
	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "", "strategy name (overrides config strategy.name)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return err
	}
	if btDataPath != "" {
		cfg.Data.CSVPath = btDataPath
	}
	if btStrategy != "" {
		cfg.Strategy.Name = btStrategy
	}
	if cfg.Data.CSVPath == "" {
		return fmt.Errorf("no historical data: set data.csv_path or --data")
	}

	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	j, err := buildJournal(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	strat, err := buildStrategy(cfg)
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Config{
		Symbol:        cfg.Symbol,
		Mode:          engine.Backtest,
		Strategy:      strat.Name(),
		Capital:       cfg.Capital,
		StopLossPct:   cfg.Strategy.StopLossPct,
		TakeProfitPct: cfg.Strategy.TakeProfitPct,
	}, nil, j, log)
	if err != nil {
		return err
	}

	feed, err := backtest.OpenCSV(cfg.Data.CSVPath, log)
	if err != nil {
		return err
	}

	runner := &backtest.Runner{
		Engine:           eng,
		Feed:             feed,
		Strategy:         strat,
		RiskFreeRate:     cfg.RiskFreeRate,
		TimeframeMinutes: cfg.Timeframe,
		Log:              log,
	}

	report, err := runner.Run(context.Background())
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
