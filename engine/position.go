package engine

import (
	"time"

	"github.com/rustyeddy/tradebot/market"
)

// Mode governs whether orders reach the exchange.
type Mode string

const (
	Backtest Mode = "BACKTEST"
	Paper    Mode = "PAPER"
	Live     Mode = "LIVE"
)

// Position is the engine's current exposure. Invariant: Type is Flat
// exactly when Quantity is zero, and at most one position is open at a
// time.
type Position struct {
	Type          market.PositionType
	Quantity      float64
	EntryPrice    float64
	StopLoss      float64
	TakeProfit    float64
	ShortProceeds float64 // sale proceeds locked while short
}

// Trade is one in-memory fill record. PnL is nil on entries and set on
// exits. The slice held by the engine is append-only.
type Trade struct {
	ID       string
	Symbol   string
	Side     market.Signal
	Price    float64
	Quantity float64
	Time     time.Time
	PnL      *float64
	Mode     Mode
	Strategy string
}

// Snapshot is one equity curve point, appended exactly once per
// processed tick.
type Snapshot struct {
	Time   time.Time
	Equity float64
}
