package journal

import "time"

// TradeRecord is one appended ledger row. Records are created on every
// fill and never mutated or deleted. RealizedPL is nil for entry fills;
// exits carry the realized profit or loss of the round trip.
type TradeRecord struct {
	TradeID    string
	Symbol     string
	Side       string
	Price      float64
	Quantity   float64
	Time       time.Time
	RealizedPL *float64
	Mode       string
	Strategy   string
}

// EquitySnapshot is one point of the equity curve.
type EquitySnapshot struct {
	Time   time.Time
	Equity float64
}

// Journal is the append-only trade/run ledger collaborator. Writes are
// best-effort from the engine's point of view: a failure is logged and
// does not roll back in-memory state.
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything. Useful for runs that don't need a ledger.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
