// Package live runs the streaming trading loop. Ingestion (the exchange
// websocket) and consumption (the per-tick trading sequence) are
// independent goroutines connected by the bus; exactly one consumer
// processes a symbol's candles in order, so the engine sees a single
// serialized writer.
package live

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradebot/bus"
	"github.com/rustyeddy/tradebot/engine"
	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/strategies"
)

// CandleStream is the ingestion side: it delivers candles to a handler
// until the context is cancelled. kraken.Stream satisfies it.
type CandleStream interface {
	Run(ctx context.Context) error
}

type Runner struct {
	Symbol   string
	Engine   *engine.Engine
	Strategy strategies.Strategy
	Bus      *bus.Bus
	Stream   CandleStream
	Log      *zap.Logger
}

// Run starts ingestion and consumption and blocks until ctx is
// cancelled. Stream must have been built with a handler that publishes
// to Bus under the same symbol (see cmd/tradebot).
func (r *Runner) Run(ctx context.Context) error {
	if r.Engine == nil || r.Strategy == nil || r.Bus == nil || r.Stream == nil {
		return fmt.Errorf("live: engine, strategy, bus, and stream are all required")
	}
	if r.Log == nil {
		r.Log = zap.NewNop()
	}

	ticks, err := r.Bus.Subscribe(r.Symbol)
	if err != nil {
		return err
	}

	streamDone := make(chan error, 1)
	go func() {
		streamDone <- r.Stream.Run(ctx)
	}()

	r.Log.Info("live loop started", zap.String("symbol", r.Symbol))

	for {
		select {
		case <-ctx.Done():
			// Let the stream wind down before reporting.
			<-streamDone
			return ctx.Err()

		case c, ok := <-ticks:
			if !ok {
				return <-streamDone
			}
			if err := r.processTick(ctx, c); err != nil {
				// Order failures are terminal for the tick, not the run.
				r.Log.Error("tick processing failed",
					zap.String("symbol", r.Symbol),
					zap.Time("time", c.Time),
					zap.Error(err))
			}
		}
	}
}

// processTick runs the same four-step sequence as the backtest runner.
func (r *Runner) processTick(ctx context.Context, c market.Candle) error {
	if err := r.Engine.CheckExitConditions(ctx, c.Close, c.Time); err != nil {
		return err
	}

	sig := r.Strategy.ProcessCandle(c, r.Engine.PositionType())
	if err := r.Engine.ExecuteOrder(ctx, sig, c.Close, c.Time); err != nil {
		return err
	}

	r.Engine.PortfolioValue(c.Close, c.Time)
	return nil
}
