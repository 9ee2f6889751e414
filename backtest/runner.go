package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradebot/engine"
	"github.com/rustyeddy/tradebot/metrics"
	"github.com/rustyeddy/tradebot/strategies"
)

// Runner replays an ordered historical feed through the engine. The
// per-candle sequence is identical to the live runner's:
//
//	1. check stop/take exit conditions
//	2. ask the strategy for a signal
//	3. execute the signal
//	4. snapshot portfolio value
//
// Given the same data, strategy, and configuration the run is fully
// deterministic, which is what makes strategy validation reproducible.
type Runner struct {
	Engine   *engine.Engine
	Feed     CandleFeed
	Strategy strategies.Strategy

	RiskFreeRate     float64
	TimeframeMinutes int

	Log *zap.Logger
}

// Run executes the replay and computes the final report.
func (r *Runner) Run(ctx context.Context) (metrics.Report, error) {
	if r.Engine == nil {
		return metrics.Report{}, fmt.Errorf("backtest: Engine is required")
	}
	if r.Feed == nil {
		return metrics.Report{}, fmt.Errorf("backtest: Feed is required")
	}
	if r.Strategy == nil {
		return metrics.Report{}, fmt.Errorf("backtest: Strategy is required")
	}
	if r.Log == nil {
		r.Log = zap.NewNop()
	}
	defer r.Feed.Close()

	candles := 0
	for {
		if err := ctx.Err(); err != nil {
			return metrics.Report{}, err
		}

		c, ok, err := r.Feed.Next()
		if err != nil {
			return metrics.Report{}, err
		}
		if !ok {
			break
		}
		candles++

		if err := r.Engine.CheckExitConditions(ctx, c.Close, c.Time); err != nil {
			return metrics.Report{}, err
		}

		sig := r.Strategy.ProcessCandle(c, r.Engine.PositionType())
		if err := r.Engine.ExecuteOrder(ctx, sig, c.Close, c.Time); err != nil {
			return metrics.Report{}, err
		}

		r.Engine.PortfolioValue(c.Close, c.Time)
	}

	r.Log.Info("replay finished",
		zap.Int("candles", candles),
		zap.Int("trades", len(r.Engine.Trades())),
		zap.Int("ignored_signals", r.Engine.IgnoredSignals()))

	report := metrics.Calculate(metrics.Input{
		Trades:           r.Engine.Trades(),
		Equity:           r.Engine.Snapshots(),
		InitialCapital:   r.Engine.Capital(),
		RiskFreeRate:     r.RiskFreeRate,
		TimeframeMinutes: r.TimeframeMinutes,
	})
	return report, nil
}
