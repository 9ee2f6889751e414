package kraken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebot/market"
)

// wsServer accepts OHLC subscriptions, records each subscribe payload and
// serves the scripted frames for that connection, then drops it.
type wsServer struct {
	frames [][]string // frames[i] is sent to the i-th connection

	mu         sync.Mutex
	subscribes []string
}

func (s *wsServer) handler() http.Handler {
	upgrader := websocket.Upgrader{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		s.mu.Lock()
		n := len(s.subscribes)
		s.subscribes = append(s.subscribes, string(payload))
		s.mu.Unlock()

		if n < len(s.frames) {
			for _, f := range s.frames[n] {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
					return
				}
			}
		}
	})
}

func (s *wsServer) subscribeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribes)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamResubscribesAfterDisconnect(t *testing.T) {
	candle := `{"channel":"ohlc","type":"update","data":[{"symbol":"BTC/USD","open":100,"high":101,"low":99,"close":100.5,"volume":2,"vwap":100.2,"end":"2024-01-01T09:01:00Z"}]}`

	ws := &wsServer{frames: [][]string{{candle}, {candle}}}
	srv := httptest.NewServer(ws.handler())
	defer srv.Close()

	var mu sync.Mutex
	var received []market.Candle
	stream := NewStream(StreamConfig{
		URL:            wsURL(srv),
		Symbols:        []string{"BTC/USD"},
		Interval:       1,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	}, func(symbol string, c market.Candle) {
		mu.Lock()
		received = append(received, c)
		mu.Unlock()
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	// The server drops every connection after its scripted frames, so
	// the stream must come back and subscribe again.
	require.Eventually(t, func() bool {
		return ws.subscribeCount() >= 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	// Each session subscribed with identical parameters.
	ws.mu.Lock()
	first, second := ws.subscribes[0], ws.subscribes[1]
	ws.mu.Unlock()
	assert.JSONEq(t, first, second)
	assert.Contains(t, first, `"channel":"ohlc"`)
	assert.Contains(t, first, `"BTC/USD"`)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, received)
	assert.InDelta(t, 100.5, received[0].Close, 1e-9)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 1, 0, 0, time.UTC), received[0].Time)
}

func TestStreamDropsCandleWithoutPeriodEnd(t *testing.T) {
	frames := []string{
		`{"channel":"ohlc","type":"update","data":[{"symbol":"BTC/USD","close":99.9}]}`,
		`{"channel":"ohlc","type":"snapshot","data":[{"symbol":"BTC/USD","close":101,"end":1704100860}]}`,
		`{"channel":"heartbeat"}`,
		`not even json`,
	}

	ws := &wsServer{frames: [][]string{frames}}
	srv := httptest.NewServer(ws.handler())
	defer srv.Close()

	var mu sync.Mutex
	var received []market.Candle
	stream := NewStream(StreamConfig{
		URL:            wsURL(srv),
		Symbols:        []string{"BTC/USD"},
		Interval:       1,
		InitialBackoff: 5 * time.Millisecond,
	}, func(symbol string, c market.Candle) {
		mu.Lock()
		received = append(received, c)
		mu.Unlock()
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	// Only the well-formed candle makes it through.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.InDelta(t, 101.0, received[0].Close, 1e-9)
	assert.Equal(t, time.Unix(1704100860, 0).UTC(), received[0].Time)
}

func TestParseEndFormats(t *testing.T) {
	got, ok := parseEnd([]byte(`"2024-01-01T09:01:00Z"`))
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 1, 0, 0, time.UTC), got)

	got, ok = parseEnd([]byte(`1704100860`))
	require.True(t, ok)
	assert.Equal(t, time.Unix(1704100860, 0).UTC(), got)

	_, ok = parseEnd(nil)
	assert.False(t, ok)

	_, ok = parseEnd([]byte(`"yesterday"`))
	assert.False(t, ok)
}
