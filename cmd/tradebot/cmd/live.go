package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradebot/bus"
	"github.com/rustyeddy/tradebot/config"
	"github.com/rustyeddy/tradebot/engine"
	"github.com/rustyeddy/tradebot/kraken"
	"github.com/rustyeddy/tradebot/live"
	"github.com/rustyeddy/tradebot/market"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run the streaming trading loop until interrupted",
	Long: `Live subscribes to Kraken's OHLC websocket channel and runs the
configured strategy on every candle until SIGINT/SIGTERM.

With mode: paper in the configuration, fills are simulated; with
mode: live, signed market orders are sent to the exchange.`,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return err
	}
	if cfg.Mode == "backtest" {
		return fmt.Errorf("live command requires mode paper or live, config says %q", cfg.Mode)
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

	var exchange engine.OrderPlacer
	if modeOf(cfg) == engine.Live {
		exchange = kraken.NewClient(cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.Exchange.RESTURL)
	}

	eng, err := engine.New(engine.Config{
		Symbol:        cfg.Symbol,
		Mode:          modeOf(cfg),
		Strategy:      strat.Name(),
		Capital:       cfg.Capital,
		StopLossPct:   cfg.Strategy.StopLossPct,
		TakeProfitPct: cfg.Strategy.TakeProfitPct,
	}, exchange, j, log)
	if err != nil {
		return err
	}

	b := bus.New(log)
	stream := kraken.NewStream(kraken.StreamConfig{
		URL:      cfg.Exchange.WSURL,
		Symbols:  []string{cfg.Symbol},
		Interval: cfg.Timeframe,
	}, func(symbol string, c market.Candle) {
		b.Publish(symbol, c)
	}, log)

	runner := &live.Runner{
		Symbol:   cfg.Symbol,
		Engine:   eng,
		Strategy: strat,
		Bus:      b,
		Stream:   stream,
		Log:      log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		zap.String("mode", cfg.Mode),
		zap.String("symbol", cfg.Symbol),
		zap.String("strategy", strat.Name()))

	err = runner.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("stopped",
		zap.Float64("balance", eng.Balance()),
		zap.Int("trades", len(eng.Trades())),
		zap.Int("ignored_signals", eng.IgnoredSignals()))
	return nil
}
