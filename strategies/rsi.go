package strategies

import (
	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/market"
)

// RSI is a mean-reversion strategy over a Wilder-smoothed oscillator.
// - Flat: oscillator below the oversold threshold opens a long,
//   above the overbought threshold opens a short
// - In a position: the opposing threshold forces the exit
type RSI struct {
	rsi        *indicators.RSI
	oversold   float64
	overbought float64
}

func NewRSI(period int, oversold, overbought float64) *RSI {
	return &RSI{
		rsi:        indicators.NewRSI(period),
		oversold:   oversold,
		overbought: overbought,
	}
}

func (s *RSI) Name() string { return "rsi" }

func (s *RSI) ProcessCandle(c market.Candle, pos market.PositionType) market.Signal {
	s.rsi.Update(c.Close)

	if !s.rsi.Ready() {
		return market.None
	}

	v := s.rsi.Value()

	switch pos {
	case market.Flat:
		if v < s.oversold {
			return market.Buy
		}
		if v > s.overbought {
			return market.SellShort
		}
	case market.Long:
		if v > s.overbought {
			return market.Sell
		}
	case market.Short:
		if v < s.oversold {
			return market.CoverShort
		}
	}
	return market.None
}
