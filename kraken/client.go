package kraken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/tradebot/market"
)

const (
	// DefaultRESTURL is Kraken's production REST endpoint.
	DefaultRESTURL = "https://api.kraken.com"
	// DefaultWSURL is Kraken's production v2 websocket endpoint.
	DefaultWSURL = "wss://ws.kraken.com/v2"

	// orderTimeout bounds a single order placement. A timed-out order is
	// surfaced as a rejection; it is never retried blindly because a blind
	// retry risks a duplicate fill.
	orderTimeout = 15 * time.Second
)

// RejectionError carries the provider's error strings verbatim. It is
// terminal for the call that produced it.
type RejectionError struct {
	Messages []string
}

func (e *RejectionError) Error() string {
	return "kraken: " + strings.Join(e.Messages, "; ")
}

// Client is a Kraken REST client. It is stateless aside from credentials
// and the nonce counter, and safe for shared read-only use. Private calls
// against one credential are serialized: a single in-flight request with
// strictly increasing nonces avoids exchange-side replay rejections.
type Client struct {
	key     string
	secret  string
	baseURL string
	http    *http.Client

	mu        sync.Mutex // serializes private calls and nonce allocation
	lastNonce int64
}

// NewClient builds a client. baseURL defaults to DefaultRESTURL; key and
// secret may be empty for public-only use.
func NewClient(key, secret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultRESTURL
	}
	return &Client{
		key:     key,
		secret:  secret,
		baseURL: baseURL,
		http:    &http.Client{Timeout: orderTimeout},
	}
}

// AddOrder places a market order and returns the exchange transaction ID.
func (c *Client) AddOrder(ctx context.Context, symbol, side string, volume float64) (string, error) {
	if side != "buy" && side != "sell" {
		return "", fmt.Errorf("kraken: bad order side %q", side)
	}

	data := url.Values{}
	data.Set("pair", symbol)
	data.Set("type", side)
	data.Set("ordertype", "market")
	data.Set("volume", strconv.FormatFloat(volume, 'f', -1, 64))

	ctx, cancel := context.WithTimeout(ctx, orderTimeout)
	defer cancel()

	raw, err := c.private(ctx, "AddOrder", data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Bounded timeout counts as a rejection of this attempt.
			return "", &RejectionError{Messages: []string{"order timed out: " + err.Error()}}
		}
		return "", err
	}

	var result struct {
		TxID []string `json:"txid"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("kraken: decode AddOrder result: %w", err)
	}
	if len(result.TxID) == 0 {
		return "", fmt.Errorf("kraken: AddOrder result missing txid")
	}
	return result.TxID[0], nil
}

// OHLC fetches historical candles from the public OHLC endpoint.
// interval is in minutes (1, 5, 15, 30, 60, 240, 1440, ...).
func (c *Client) OHLC(ctx context.Context, pair string, interval int) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("pair", pair)
	params.Set("interval", strconv.Itoa(interval))

	raw, err := c.public(ctx, "OHLC", params)
	if err != nil {
		return nil, err
	}

	// Result is keyed by the (possibly normalized) pair name plus a
	// "last" cursor; take the one array value.
	var result map[string]json.RawMessage
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("kraken: decode OHLC result: %w", err)
	}

	var rows [][]json.RawMessage
	for k, v := range result {
		if k == "last" {
			continue
		}
		if err := json.Unmarshal(v, &rows); err != nil {
			return nil, fmt.Errorf("kraken: decode OHLC rows for %s: %w", k, err)
		}
		break
	}

	candles := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		// [time, open, high, low, close, vwap, volume, count]
		if len(row) < 7 {
			continue
		}
		ts, err := rawFloat(row[0])
		if err != nil {
			continue
		}
		o, _ := rawFloat(row[1])
		h, _ := rawFloat(row[2])
		l, _ := rawFloat(row[3])
		cl, err := rawFloat(row[4])
		if err != nil {
			continue
		}
		vwap, _ := rawFloat(row[5])
		vol, _ := rawFloat(row[6])

		candles = append(candles, market.Candle{
			Time:   time.Unix(int64(ts), 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  cl,
			VWAP:   vwap,
			Volume: vol,
		})
	}
	return candles, nil
}

// Ticker returns the last trade price for a pair.
func (c *Client) Ticker(ctx context.Context, pair string) (float64, error) {
	params := url.Values{}
	params.Set("pair", pair)

	raw, err := c.public(ctx, "Ticker", params)
	if err != nil {
		return 0, err
	}

	var result map[string]struct {
		C []string `json:"c"` // last trade closed: [price, lot volume]
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("kraken: decode Ticker result: %w", err)
	}

	for _, v := range result {
		if len(v.C) == 0 {
			break
		}
		return strconv.ParseFloat(v.C[0], 64)
	}
	return 0, fmt.Errorf("kraken: Ticker result missing last price for %s", pair)
}

// private sends a signed POST to /0/private/<endpoint>.
func (c *Client) private(ctx context.Context, endpoint string, data url.Values) (json.RawMessage, error) {
	if c.key == "" || c.secret == "" {
		return nil, fmt.Errorf("kraken: %s requires API credentials", endpoint)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := "/0/private/" + endpoint
	data.Set("nonce", c.nonceLocked())

	sig, err := Sign(c.secret, path, data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", c.key)
	req.Header.Set("API-Sign", sig)

	return c.do(req)
}

// public sends an unsigned GET to /0/public/<endpoint>.
func (c *Client) public(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	u := c.baseURL + "/0/public/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, fmt.Errorf("kraken: %s: %w", req.URL.Path, req.Context().Err())
		}
		return nil, fmt.Errorf("kraken: %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kraken: read %s response: %w", req.URL.Path, err)
	}

	var envelope struct {
		Error  []string        `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("kraken: decode %s response: %w", req.URL.Path, err)
	}
	if len(envelope.Error) > 0 {
		return nil, &RejectionError{Messages: envelope.Error}
	}
	return envelope.Result, nil
}

// nonceLocked allocates a strictly increasing nonce (milliseconds, bumped
// when two calls land in the same millisecond). Callers hold c.mu.
func (c *Client) nonceLocked() string {
	n := time.Now().UnixMilli()
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return strconv.FormatInt(n, 10)
}

func rawFloat(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}
