// Package metrics computes post-run performance statistics from the
// trade and equity history produced by the execution engine.
package metrics

import (
	"math"

	"github.com/rustyeddy/tradebot/engine"
)

const minutesPerYear = 365 * 24 * 60

// Input bundles everything the calculator needs. TimeframeMinutes is the
// equity curve's sampling period and drives annualization; feeding a
// curve sampled at a different rate produces a wrong Sharpe ratio.
type Input struct {
	Trades           []engine.Trade
	Equity           []engine.Snapshot
	InitialCapital   float64
	RiskFreeRate     float64
	TimeframeMinutes int
}

// Report is the final metrics summary, emitted as structured output by
// the backtest command.
type Report struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinLossRatio  float64 `json:"win_loss_ratio"`

	MaxProfit float64 `json:"max_profit"`
	MaxLoss   float64 `json:"max_loss"`
	AvgProfit float64 `json:"avg_profit"`
	AvgLoss   float64 `json:"avg_loss"`

	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`

	InitialCapital float64 `json:"initial_capital"`
	FinalValue     float64 `json:"final_value"`
}

// Calculate builds the report. Win/loss statistics come from exit
// trades' realized PnL sign; entry trades carry no PnL and are excluded.
func Calculate(in Input) Report {
	r := Report{
		TotalTrades:    len(in.Trades),
		InitialCapital: in.InitialCapital,
	}

	var profits, losses []float64
	for _, t := range in.Trades {
		if t.PnL == nil {
			continue
		}
		if *t.PnL > 0 {
			profits = append(profits, *t.PnL)
		} else {
			losses = append(losses, *t.PnL)
		}
	}

	r.WinningTrades = len(profits)
	r.LosingTrades = len(losses)
	if r.LosingTrades > 0 {
		r.WinLossRatio = float64(r.WinningTrades) / float64(r.LosingTrades)
	} else if r.WinningTrades > 0 {
		r.WinLossRatio = math.Inf(1)
	}

	if len(profits) > 0 {
		r.MaxProfit = max(profits)
		r.AvgProfit = mean(profits)
	}
	if len(losses) > 0 {
		r.MaxLoss = min(losses)
		r.AvgLoss = mean(losses)
	}

	if len(in.Equity) > 0 {
		r.FinalValue = in.Equity[len(in.Equity)-1].Equity
	} else {
		r.FinalValue = in.InitialCapital
	}

	returns := periodReturns(in.Equity)
	r.SharpeRatio = sharpe(returns, in.RiskFreeRate, in.TimeframeMinutes)
	r.MaxDrawdown = maxDrawdown(in.Equity)

	return r
}

// sharpe annualizes the mean excess per-period return over its standard
// deviation. A zero standard deviation yields exactly 0.0 — a defined
// sentinel, not a true Sharpe value — to avoid NaN/Inf on flat curves.
func sharpe(returns []float64, riskFreeRate float64, timeframeMinutes int) float64 {
	if len(returns) == 0 || timeframeMinutes <= 0 {
		return 0
	}

	periodsPerYear := float64(minutesPerYear) / float64(timeframeMinutes)

	excess := make([]float64, len(returns))
	for i, ret := range returns {
		excess[i] = ret - riskFreeRate/periodsPerYear
	}

	sd := stdev(excess)
	if sd == 0 {
		return 0
	}
	return mean(excess) / sd * math.Sqrt(periodsPerYear)
}

// maxDrawdown reports the most negative peak-to-trough decline of the
// equity curve, as a fraction of the running peak.
func maxDrawdown(equity []engine.Snapshot) float64 {
	var peak, worst float64
	for _, s := range equity {
		if s.Equity > peak {
			peak = s.Equity
		}
		if peak > 0 {
			dd := (s.Equity - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

func periodReturns(equity []engine.Snapshot) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			continue
		}
		out = append(out, (equity[i].Equity-prev)/prev)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the population standard deviation.
func stdev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func max(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func min(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
