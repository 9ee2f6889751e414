package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradebot/market"
)

// CandleFeed yields candles one at a time in non-decreasing timestamp
// order. Implementations return ok=false, err=nil at end of data.
type CandleFeed interface {
	Next() (c market.Candle, ok bool, err error)
	Close() error
}

// CSVFeed reads headerless historical rows:
//
//	timestamp,open,high,low,close,volume,vwap
//
// Timestamps are epoch seconds. A malformed or retrograde row is a data
// error for that row only: it is logged and skipped, and the replay
// continues.
type CSVFeed struct {
	f    *os.File
	r    *csv.Reader
	last time.Time
	log  *zap.Logger
}

func OpenCSV(path string, log *zap.Logger) (*CSVFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("backtest: open data file: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	return &CSVFeed{f: f, r: r, log: log}, nil
}

func (c *CSVFeed) Next() (market.Candle, bool, error) {
	for {
		row, err := c.r.Read()
		if err == io.EOF {
			return market.Candle{}, false, nil
		}
		if err != nil {
			// csv parse errors are scoped to one row; skip it
			c.log.Warn("malformed data row skipped", zap.Error(err))
			continue
		}

		candle, err := parseRow(row)
		if err != nil {
			c.log.Warn("malformed data row skipped",
				zap.Strings("row", row),
				zap.Error(err))
			continue
		}
		if candle.Time.Before(c.last) {
			c.log.Warn("out-of-order data row skipped",
				zap.Time("row_time", candle.Time),
				zap.Time("last_time", c.last))
			continue
		}

		c.last = candle.Time
		return candle, true, nil
	}
}

func (c *CSVFeed) Close() error {
	return c.f.Close()
}

func parseRow(row []string) (market.Candle, error) {
	if len(row) < 7 {
		return market.Candle{}, fmt.Errorf("need 7 columns, got %d", len(row))
	}

	fields := make([]float64, 7)
	for i := 0; i < 7; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("column %d: %w", i, err)
		}
		fields[i] = v
	}

	if fields[4] <= 0 {
		return market.Candle{}, fmt.Errorf("non-positive close %v", fields[4])
	}

	return market.Candle{
		Time:   time.Unix(int64(fields[0]), 0).UTC(),
		Open:   fields[1],
		High:   fields[2],
		Low:    fields[3],
		Close:  fields[4],
		Volume: fields[5],
		VWAP:   fields[6],
	}, nil
}
