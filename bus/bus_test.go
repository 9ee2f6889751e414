package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebot/market"
)

func TestPublishDeliversInOrder(t *testing.T) {
	b := New(nil)
	ch, err := b.Subscribe("BTC/USD")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		b.Publish("BTC/USD", market.Candle{Close: float64(i)})
	}
	b.Close()

	var got []float64
	for c := range ch {
		got = append(got, c.Close)
	}
	require.Len(t, got, 10)
	for i, v := range got {
		assert.Equal(t, float64(i), v)
	}
}

func TestSecondSubscriberRejected(t *testing.T) {
	b := New(nil)
	_, err := b.Subscribe("BTC/USD")
	require.NoError(t, err)

	_, err = b.Subscribe("BTC/USD")
	assert.Error(t, err)

	// A different symbol is its own topic.
	_, err = b.Subscribe("ETH/USD")
	assert.NoError(t, err)
}

func TestPublishWithoutSubscriberIsDropped(t *testing.T) {
	b := New(nil)
	// Must not block or panic.
	b.Publish("BTC/USD", market.Candle{Close: 1, Time: time.Now()})
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	b := New(nil)
	b.buffer = 2
	ch, err := b.Subscribe("BTC/USD")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		b.Publish("BTC/USD", market.Candle{Close: float64(i)})
	}
	b.Close()

	// The first two fit, the rest are shed.
	var got []float64
	for c := range ch {
		got = append(got, c.Close)
	}
	assert.Equal(t, []float64{0, 1}, got)
}
