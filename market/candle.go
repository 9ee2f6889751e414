package market

import "time"

// Candle represents one OHLC(+volume) sample for a fixed time bucket.
// Only Time and Close are required by the trading core; the remaining
// fields are carried through from the data source when available.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	VWAP   float64
}
