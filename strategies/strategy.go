package strategies

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/tradebot/market"
)

// Strategy is the single capability a signal generator must implement.
// It is called once per candle with the engine's current exposure and
// returns the action to take (or market.None).
//
// Adding a strategy means implementing this interface and wiring it into
// FromParams; the execution engine and runners never change.
type Strategy interface {
	Name() string
	ProcessCandle(c market.Candle, pos market.PositionType) market.Signal
}

// Params carries the named strategy parameters from the run configuration.
// Fields not used by the selected strategy are ignored.
type Params struct {
	ShortWindow int // sma-cross
	LongWindow  int // sma-cross

	Period     int     // rsi
	Oversold   float64 // rsi
	Overbought float64 // rsi
}

// FromParams builds a strategy by name. Unknown names and missing required
// parameters are configuration errors and should abort startup.
func FromParams(name string, p Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sma", "sma-cross", "smacross":
		if p.ShortWindow <= 0 || p.LongWindow <= 0 {
			return nil, fmt.Errorf("strategies: sma-cross requires short_window and long_window")
		}
		if p.ShortWindow >= p.LongWindow {
			return nil, fmt.Errorf("strategies: sma-cross short_window (%d) must be less than long_window (%d)",
				p.ShortWindow, p.LongWindow)
		}
		return NewSMACross(p.ShortWindow, p.LongWindow), nil

	case "rsi":
		if p.Period <= 0 {
			return nil, fmt.Errorf("strategies: rsi requires period")
		}
		if p.Oversold <= 0 || p.Overbought <= 0 || p.Oversold >= p.Overbought {
			return nil, fmt.Errorf("strategies: rsi thresholds invalid (oversold=%v overbought=%v)",
				p.Oversold, p.Overbought)
		}
		return NewRSI(p.Period, p.Oversold, p.Overbought), nil

	default:
		return nil, fmt.Errorf("strategies: unknown strategy %q (supported: sma-cross, rsi)", name)
	}
}
