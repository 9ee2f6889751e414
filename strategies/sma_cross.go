package strategies

import (
	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/market"
)

// SMACross trades a fast/slow simple moving average crossover.
// - Flat: short above long opens a long, short below long opens a short
// - In a position: the opposing relation forces the exit
//
// The price buffer is capped at the long window, so memory stays bounded
// no matter how long the feed runs.
type SMACross struct {
	short *indicators.SimpleMA
	long  *indicators.SimpleMA
}

func NewSMACross(shortWindow, longWindow int) *SMACross {
	return &SMACross{
		short: indicators.NewMA(shortWindow),
		long:  indicators.NewMA(longWindow),
	}
}

func (s *SMACross) Name() string { return "sma-cross" }

func (s *SMACross) ProcessCandle(c market.Candle, pos market.PositionType) market.Signal {
	s.short.Update(c.Close)
	s.long.Update(c.Close)

	// Wait until the slow average is warmed up.
	if !s.long.Ready() {
		return market.None
	}

	diff := s.short.Value() - s.long.Value()

	switch pos {
	case market.Flat:
		if diff > 0 {
			return market.Buy
		}
		if diff < 0 {
			return market.SellShort
		}
	case market.Long:
		if diff < 0 {
			return market.Sell
		}
	case market.Short:
		if diff > 0 {
			return market.CoverShort
		}
	}
	return market.None
}
