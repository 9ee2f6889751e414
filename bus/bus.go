// Package bus is a small in-process publish/subscribe hand-off between
// the stream ingestion task and the tick consumer, keyed by symbol.
// Each topic has at most one subscriber; delivery within a topic is
// serialized and in order, which is what lets the execution engine run
// without additional locking around its critical section.
package bus

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradebot/market"
)

const defaultBuffer = 256

type Bus struct {
	mu     sync.Mutex
	topics map[string]chan market.Candle
	buffer int
	log    *zap.Logger
}

func New(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		topics: make(map[string]chan market.Candle),
		buffer: defaultBuffer,
		log:    log,
	}
}

// Subscribe returns the receive channel for a symbol. A symbol supports
// exactly one subscriber; a second call for the same symbol is a
// programming error.
func (b *Bus) Subscribe(symbol string) (<-chan market.Candle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.topics[symbol]; ok {
		return nil, fmt.Errorf("bus: symbol %q already has a subscriber", symbol)
	}
	ch := make(chan market.Candle, b.buffer)
	b.topics[symbol] = ch
	return ch, nil
}

// Publish hands a candle to the symbol's subscriber. Candles for symbols
// with no subscriber are dropped silently; a full buffer drops the
// candle with a warning rather than blocking the ingestion loop.
func (b *Bus) Publish(symbol string, c market.Candle) {
	b.mu.Lock()
	ch, ok := b.topics[symbol]
	b.mu.Unlock()
	if !ok {
		return
	}

	select {
	case ch <- c:
	default:
		b.log.Warn("bus buffer full, candle dropped",
			zap.String("symbol", symbol),
			zap.Time("time", c.Time))
	}
}

// Close closes every topic channel, letting consumers drain and exit.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sym, ch := range b.topics {
		close(ch)
		delete(b.topics, sym)
	}
}
