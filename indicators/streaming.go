package indicators

import "fmt"

// SimpleMA is a streaming Simple Moving Average over close prices.
type SimpleMA struct {
	period int
	prices []float64
}

// NewMA creates a new Simple Moving Average indicator with the given period.
func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		prices: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("MA(%d)", m.period)
}

func (m *SimpleMA) Warmup() int {
	return m.period
}

func (m *SimpleMA) Reset() {
	m.prices = m.prices[:0]
}

func (m *SimpleMA) Update(close float64) {
	m.prices = append(m.prices, close)
	// Keep only the last 'period' prices
	if len(m.prices) > m.period {
		m.prices = m.prices[1:]
	}
}

func (m *SimpleMA) Ready() bool {
	return len(m.prices) >= m.period
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}

	sum := 0.0
	for _, p := range m.prices {
		sum += p
	}
	return sum / float64(len(m.prices))
}

// RSI is a streaming Relative Strength Index using Wilder smoothing.
//
// The first 'period' deltas seed plain averages of gains and losses;
// after that each update is O(1):
//
//	avg = (avg*(period-1) + current) / period
type RSI struct {
	period int

	lastClose float64
	haveLast  bool

	seedGains  float64
	seedLosses float64
	seeded     int

	avgGain float64
	avgLoss float64
	ready   bool
}

// NewRSI creates a new Wilder RSI indicator with the given period.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}

// Warmup is period+1 closes: one to anchor the first delta, then
// 'period' deltas for the seed averages.
func (r *RSI) Warmup() int {
	return r.period + 1
}

func (r *RSI) Reset() {
	r.haveLast = false
	r.seedGains = 0
	r.seedLosses = 0
	r.seeded = 0
	r.avgGain = 0
	r.avgLoss = 0
	r.ready = false
}

func (r *RSI) Update(close float64) {
	if !r.haveLast {
		r.lastClose = close
		r.haveLast = true
		return
	}

	delta := close - r.lastClose
	r.lastClose = close

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if !r.ready {
		r.seedGains += gain
		r.seedLosses += loss
		r.seeded++
		if r.seeded == r.period {
			r.avgGain = r.seedGains / float64(r.period)
			r.avgLoss = r.seedLosses / float64(r.period)
			r.ready = true
		}
		return
	}

	n := float64(r.period)
	r.avgGain = (r.avgGain*(n-1) + gain) / n
	r.avgLoss = (r.avgLoss*(n-1) + loss) / n
}

func (r *RSI) Ready() bool {
	return r.ready
}

// Value returns the oscillator in [0, 100]. With zero average loss the
// value saturates at 100 rather than dividing by zero.
func (r *RSI) Value() float64 {
	if !r.ready {
		return 0
	}
	if r.avgLoss == 0 {
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
