package kraken

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradebot/market"
)

// CandleHandler receives every parsed candle update from the stream.
// Ordering is guaranteed within one symbol's subscription only.
type CandleHandler func(symbol string, c market.Candle)

// StreamConfig configures the websocket OHLC subscription.
type StreamConfig struct {
	URL      string
	Symbols  []string
	Interval int // minutes

	// Reconnect backoff. The delay doubles after each failed attempt up
	// to MaxBackoff and resets once a connection is established.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Stream maintains a Kraken v2 OHLC subscription, reconnecting and
// resubscribing with identical parameters until the context is
// cancelled.
type Stream struct {
	cfg     StreamConfig
	handler CandleHandler
	log     *zap.Logger
}

func NewStream(cfg StreamConfig, h CandleHandler, log *zap.Logger) *Stream {
	if cfg.URL == "" {
		cfg.URL = DefaultWSURL
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Stream{cfg: cfg, handler: h, log: log}
}

type subscribeRequest struct {
	Method string          `json:"method"`
	Params subscribeParams `json:"params"`
}

type subscribeParams struct {
	Channel  string   `json:"channel"`
	Symbol   []string `json:"symbol"`
	Interval int      `json:"interval"`
}

type streamMessage struct {
	Channel string         `json:"channel"`
	Type    string         `json:"type"`
	Data    []streamCandle `json:"data"`
}

type streamCandle struct {
	Symbol string          `json:"symbol"`
	Open   float64         `json:"open"`
	High   float64         `json:"high"`
	Low    float64         `json:"low"`
	Close  float64         `json:"close"`
	Volume float64         `json:"volume"`
	VWAP   float64         `json:"vwap"`
	End    json.RawMessage `json:"end"` // period-end timestamp, required
}

// Run blocks until ctx is cancelled, reconnecting on any transport
// failure. The returned error is ctx.Err().
func (s *Stream) Run(ctx context.Context) error {
	backoff := s.cfg.InitialBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		connected, err := s.connectOnce(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if connected {
			backoff = s.cfg.InitialBackoff
		}

		s.log.Warn("stream disconnected, retrying",
			zap.Strings("symbols", s.cfg.Symbols),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

// connectOnce dials, subscribes, and pumps messages until the connection
// drops. connected reports whether the dial and subscribe succeeded, so
// the caller knows to reset its backoff.
func (s *Stream) connectOnce(ctx context.Context) (connected bool, err error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// Unblock the read loop when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	sub := subscribeRequest{
		Method: "subscribe",
		Params: subscribeParams{
			Channel:  "ohlc",
			Symbol:   s.cfg.Symbols,
			Interval: s.cfg.Interval,
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return false, err
	}

	s.log.Info("subscribed to ohlc stream",
		zap.String("url", s.cfg.URL),
		zap.Strings("symbols", s.cfg.Symbols),
		zap.Int("interval", s.cfg.Interval))

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		s.dispatch(payload)
	}
}

func (s *Stream) dispatch(payload []byte) {
	var msg streamMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.log.Warn("undecodable stream message dropped", zap.Error(err))
		return
	}
	if msg.Channel != "ohlc" || (msg.Type != "update" && msg.Type != "snapshot") {
		return
	}

	for _, sc := range msg.Data {
		end, ok := parseEnd(sc.End)
		if !ok {
			// Required period-end timestamp missing: drop, don't fail.
			s.log.Warn("malformed candle dropped, missing period-end timestamp",
				zap.String("symbol", sc.Symbol),
				zap.Float64("close", sc.Close))
			continue
		}
		if s.handler == nil {
			continue
		}
		s.handler(sc.Symbol, market.Candle{
			Time:   end,
			Open:   sc.Open,
			High:   sc.High,
			Low:    sc.Low,
			Close:  sc.Close,
			Volume: sc.Volume,
			VWAP:   sc.VWAP,
		})
	}
}

// parseEnd accepts either an RFC3339 string or an epoch-seconds number.
func parseEnd(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if t, err := time.Parse(time.RFC3339, str); err == nil {
			return t, true
		}
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			return epochToTime(f), true
		}
		return time.Time{}, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return epochToTime(f), true
	}
	return time.Time{}, false
}

func epochToTime(sec float64) time.Time {
	whole := int64(sec)
	frac := sec - float64(whole)
	return time.Unix(whole, int64(frac*1e9)).UTC()
}
