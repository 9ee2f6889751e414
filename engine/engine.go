package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradebot/internal/id"
	"github.com/rustyeddy/tradebot/journal"
	"github.com/rustyeddy/tradebot/market"
)

// Fee is the flat per-fill fee buffer applied when sizing entries.
const Fee = 0.01

// OrderPlacer places market orders against the exchange. Only Live mode
// engines call it; Backtest and Paper fills are assumed instantaneous at
// the signal price.
type OrderPlacer interface {
	AddOrder(ctx context.Context, symbol, side string, volume float64) (txid string, err error)
}

// Config holds the per-run engine parameters.
type Config struct {
	Symbol        string
	Mode          Mode
	Strategy      string
	Capital       float64
	StopLossPct   float64 // e.g. 0.02 puts a long stop 2% below entry
	TakeProfitPct float64
}

// Engine owns the balance/position state machine for a single run. It
// consumes strategy signals, applies stop/take exits, and appends every
// fill to the trade ledger. One engine instance per symbol; state is
// never shared across concurrent runs.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	balance float64
	pos     Position

	trades    []Trade
	snapshots []Snapshot
	ignored   int

	exchange OrderPlacer
	journal  journal.Journal
	log      *zap.Logger
}

// New builds an engine. exchange may be nil unless cfg.Mode is Live;
// j may be journal.Nop{} when no ledger is wanted.
func New(cfg Config, exchange OrderPlacer, j journal.Journal, log *zap.Logger) (*Engine, error) {
	if cfg.Capital <= 0 {
		return nil, fmt.Errorf("engine: capital must be positive, got %v", cfg.Capital)
	}
	if cfg.Mode == Live && exchange == nil {
		return nil, fmt.Errorf("engine: live mode requires an exchange client")
	}
	if j == nil {
		j = journal.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Engine{
		cfg:      cfg,
		balance:  cfg.Capital,
		exchange: exchange,
		journal:  j,
		log:      log,
	}, nil
}

// ExecuteOrder applies one signal at the given price. A signal that is
// incompatible with the current position is a counted no-op, not an
// error. In Live mode the exchange call must succeed before any state
// mutation; on failure the transition is aborted and no trade recorded.
func (e *Engine) ExecuteOrder(ctx context.Context, sig market.Signal, price float64, ts time.Time) error {
	if price <= 0 {
		return fmt.Errorf("engine: non-positive price %v for %s at %s", price, sig, ts)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch sig {
	case market.Buy:
		if e.pos.Type != market.Flat || e.balance <= 0 {
			e.noteIgnored(sig, price, ts)
			return nil
		}
		qty := e.balance / price * (1 - Fee)
		if err := e.placeLive(ctx, "buy", qty, sig, price, ts); err != nil {
			return err
		}
		e.pos = Position{
			Type:       market.Long,
			Quantity:   qty,
			EntryPrice: price,
			StopLoss:   price * (1 - e.cfg.StopLossPct),
			TakeProfit: price * (1 + e.cfg.TakeProfitPct),
		}
		e.balance = 0
		e.recordTrade(sig, price, qty, ts, nil)

	case market.Sell:
		if e.pos.Type != market.Long {
			e.noteIgnored(sig, price, ts)
			return nil
		}
		qty := e.pos.Quantity
		if err := e.placeLive(ctx, "sell", qty, sig, price, ts); err != nil {
			return err
		}
		revenue := qty * price
		pnl := revenue - qty*e.pos.EntryPrice
		e.balance = revenue
		e.pos = Position{}
		e.recordTrade(sig, price, qty, ts, &pnl)

	case market.SellShort:
		if e.pos.Type != market.Flat || e.balance <= 0 {
			e.noteIgnored(sig, price, ts)
			return nil
		}
		qty := e.balance / price * (1 - Fee)
		if err := e.placeLive(ctx, "sell", qty, sig, price, ts); err != nil {
			return err
		}
		e.pos = Position{
			Type:          market.Short,
			Quantity:      qty,
			EntryPrice:    price,
			StopLoss:      price * (1 + e.cfg.StopLossPct),
			TakeProfit:    price * (1 - e.cfg.TakeProfitPct),
			ShortProceeds: qty * price,
		}
		// Capital stays locked as margin while the short is open.
		e.balance = 0
		e.recordTrade(sig, price, qty, ts, nil)

	case market.CoverShort:
		if e.pos.Type != market.Short {
			e.noteIgnored(sig, price, ts)
			return nil
		}
		qty := e.pos.Quantity
		if err := e.placeLive(ctx, "buy", qty, sig, price, ts); err != nil {
			return err
		}
		buyBack := qty * price
		pnl := e.pos.ShortProceeds - buyBack
		e.balance = e.pos.ShortProceeds + pnl
		e.pos = Position{}
		e.recordTrade(sig, price, qty, ts, &pnl)

	case market.None:
		// nothing to do

	default:
		return fmt.Errorf("engine: unknown signal %d", sig)
	}

	return nil
}

// CheckExitConditions runs before signal generation each tick and forces
// an exit when the stop-loss or take-profit threshold is breached.
func (e *Engine) CheckExitConditions(ctx context.Context, price float64, ts time.Time) error {
	e.mu.Lock()
	pos := e.pos
	e.mu.Unlock()

	switch pos.Type {
	case market.Long:
		if price <= pos.StopLoss || price >= pos.TakeProfit {
			e.logExit(pos, price, ts)
			return e.ExecuteOrder(ctx, market.Sell, price, ts)
		}
	case market.Short:
		if price >= pos.StopLoss || price <= pos.TakeProfit {
			e.logExit(pos, price, ts)
			return e.ExecuteOrder(ctx, market.CoverShort, price, ts)
		}
	}
	return nil
}

// PortfolioValue returns total equity at the given price and appends a
// snapshot to the equity curve. Call it exactly once per processed tick
// so the curve's sampling rate matches the configured timeframe.
func (e *Engine) PortfolioValue(price float64, ts time.Time) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	var equity float64
	switch e.pos.Type {
	case market.Long:
		equity = e.balance + e.pos.Quantity*price
	case market.Short:
		// Locked proceeds plus the open short's unrealized result.
		equity = e.balance + e.pos.ShortProceeds + (e.pos.ShortProceeds - e.pos.Quantity*price)
	default:
		equity = e.balance
	}

	e.snapshots = append(e.snapshots, Snapshot{Time: ts, Equity: equity})

	if err := e.journal.RecordEquity(journal.EquitySnapshot{Time: ts, Equity: equity}); err != nil {
		e.log.Warn("equity snapshot not persisted",
			zap.String("symbol", e.cfg.Symbol),
			zap.Time("time", ts),
			zap.Error(err))
	}

	return equity
}

// Capital returns the initial capital the run started with.
func (e *Engine) Capital() float64 {
	return e.cfg.Capital
}

func (e *Engine) Balance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance
}

func (e *Engine) Position() Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos
}

func (e *Engine) PositionType() market.PositionType {
	return e.Position().Type
}

// IgnoredSignals counts signals dropped because they were incompatible
// with the position at the time. A growing count usually means a buggy
// strategy.
func (e *Engine) IgnoredSignals() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ignored
}

// Trades returns a copy of the append-only trade history.
func (e *Engine) Trades() []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// Snapshots returns a copy of the equity curve.
func (e *Engine) Snapshots() []Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Snapshot, len(e.snapshots))
	copy(out, e.snapshots)
	return out
}

// placeLive sends the order to the exchange in Live mode. Called with
// e.mu held; the engine is single-writer per symbol so holding the lock
// across the call only serializes what is already serial.
func (e *Engine) placeLive(ctx context.Context, side string, volume float64, sig market.Signal, price float64, ts time.Time) error {
	if e.cfg.Mode != Live {
		return nil
	}

	txid, err := e.exchange.AddOrder(ctx, e.cfg.Symbol, side, volume)
	if err != nil {
		e.log.Error("live order failed, transition aborted",
			zap.String("symbol", e.cfg.Symbol),
			zap.String("signal", sig.String()),
			zap.Float64("price", price),
			zap.Time("time", ts),
			zap.Error(err))
		return fmt.Errorf("engine: live %s order: %w", side, err)
	}

	e.log.Info("live order executed",
		zap.String("symbol", e.cfg.Symbol),
		zap.String("signal", sig.String()),
		zap.String("txid", txid),
		zap.Float64("volume", volume))
	return nil
}

func (e *Engine) recordTrade(sig market.Signal, price, qty float64, ts time.Time, pnl *float64) {
	tr := Trade{
		ID:       id.New(),
		Symbol:   e.cfg.Symbol,
		Side:     sig,
		Price:    price,
		Quantity: qty,
		Time:     ts,
		PnL:      pnl,
		Mode:     e.cfg.Mode,
		Strategy: e.cfg.Strategy,
	}
	e.trades = append(e.trades, tr)

	e.log.Info("fill",
		zap.String("symbol", tr.Symbol),
		zap.String("side", sig.String()),
		zap.Float64("price", price),
		zap.Float64("quantity", qty),
		zap.Time("time", ts))

	err := e.journal.RecordTrade(journal.TradeRecord{
		TradeID:    tr.ID,
		Symbol:     tr.Symbol,
		Side:       sig.String(),
		Price:      price,
		Quantity:   qty,
		Time:       ts,
		RealizedPL: pnl,
		Mode:       string(tr.Mode),
		Strategy:   tr.Strategy,
	})
	if err != nil {
		// Best-effort persistence: keep the in-memory record.
		e.log.Warn("trade not persisted",
			zap.String("trade_id", tr.ID),
			zap.String("symbol", tr.Symbol),
			zap.Error(err))
	}
}

func (e *Engine) noteIgnored(sig market.Signal, price float64, ts time.Time) {
	e.ignored++
	e.log.Warn("signal incompatible with position, ignored",
		zap.String("symbol", e.cfg.Symbol),
		zap.String("signal", sig.String()),
		zap.String("position", e.pos.Type.String()),
		zap.Float64("price", price),
		zap.Time("time", ts))
}

func (e *Engine) logExit(pos Position, price float64, ts time.Time) {
	reason := "StopLoss"
	if (pos.Type == market.Long && price >= pos.TakeProfit) ||
		(pos.Type == market.Short && price <= pos.TakeProfit) {
		reason = "TakeProfit"
	}
	e.log.Info("exit condition hit",
		zap.String("symbol", e.cfg.Symbol),
		zap.String("position", pos.Type.String()),
		zap.String("reason", reason),
		zap.Float64("price", price),
		zap.Time("time", ts))
}
