package kraken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOrderSendsSignedRequest(t *testing.T) {
	var gotPath, gotKey, gotSig string
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("API-Key")
		gotSig = r.Header.Get("API-Sign")
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.Write([]byte(`{"error":[],"result":{"txid":["OUF4EM-FRGI2-MQMWZD"],"descr":{"order":"buy 1.25 XBTUSD @ market"}}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", docSecret, srv.URL)
	txid, err := c.AddOrder(context.Background(), "BTC/USD", "buy", 1.25)
	require.NoError(t, err)
	assert.Equal(t, "OUF4EM-FRGI2-MQMWZD", txid)

	assert.Equal(t, "/0/private/AddOrder", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.NotEmpty(t, gotSig)
	assert.Equal(t, "BTC/USD", gotForm["pair"])
	assert.Equal(t, "buy", gotForm["type"])
	assert.Equal(t, "market", gotForm["ordertype"])
	assert.Equal(t, "1.25", gotForm["volume"])
	assert.NotEmpty(t, gotForm["nonce"])
}

func TestAddOrderSurfacesRejectionVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":["EOrder:Insufficient funds","EGeneral:Invalid arguments"],"result":null}`))
	}))
	defer srv.Close()

	c := NewClient("k", docSecret, srv.URL)
	_, err := c.AddOrder(context.Background(), "BTC/USD", "sell", 2)

	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, []string{"EOrder:Insufficient funds", "EGeneral:Invalid arguments"}, rej.Messages)
	assert.Contains(t, rej.Error(), "EOrder:Insufficient funds")
}

func TestAddOrderRejectsBadSide(t *testing.T) {
	c := NewClient("k", docSecret, "http://127.0.0.1:0")
	_, err := c.AddOrder(context.Background(), "BTC/USD", "hold", 1)
	assert.Error(t, err)
}

func TestAddOrderTimeoutBecomesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"error":[],"result":{"txid":["X"]}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient("k", docSecret, srv.URL)
	_, err := c.AddOrder(ctx, "BTC/USD", "buy", 1)

	var rej *RejectionError
	assert.ErrorAs(t, err, &rej)
}

func TestPrivateRequiresCredentials(t *testing.T) {
	c := NewClient("", "", "http://127.0.0.1:0")
	_, err := c.AddOrder(context.Background(), "BTC/USD", "buy", 1)
	assert.Error(t, err)
}

func TestNoncesStrictlyIncrease(t *testing.T) {
	var nonces []int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		n, err := strconv.ParseInt(r.PostForm.Get("nonce"), 10, 64)
		require.NoError(t, err)
		nonces = append(nonces, n)
		w.Write([]byte(`{"error":[],"result":{"txid":["T"]}}`))
	}))
	defer srv.Close()

	c := NewClient("k", docSecret, srv.URL)
	for i := 0; i < 5; i++ {
		_, err := c.AddOrder(context.Background(), "BTC/USD", "buy", 1)
		require.NoError(t, err)
	}

	require.Len(t, nonces, 5)
	for i := 1; i < len(nonces); i++ {
		assert.Greater(t, nonces[i], nonces[i-1])
	}
}

func TestOHLCParsesStringAndNumericFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/0/public/OHLC", r.URL.Path)
		assert.Equal(t, "XBTUSD", r.URL.Query().Get("pair"))
		assert.Equal(t, "1", r.URL.Query().Get("interval"))
		w.Write([]byte(`{"error":[],"result":{
			"XXBTZUSD":[
				[1688671200,"30306.1","30306.2","30305.7","30305.7","30306.1","3.39243896",23],
				[1688671260,"30304.5","30310.0","30304.5","30309.1","30307.2","1.00000000",10]
			],
			"last":1688671260}}`))
	}))
	defer srv.Close()

	c := NewClient("", "", srv.URL)
	candles, err := c.OHLC(context.Background(), "XBTUSD", 1)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, time.Unix(1688671200, 0).UTC(), candles[0].Time)
	assert.InDelta(t, 30306.1, candles[0].Open, 1e-9)
	assert.InDelta(t, 30305.7, candles[0].Close, 1e-9)
	assert.InDelta(t, 3.39243896, candles[0].Volume, 1e-9)
	assert.InDelta(t, 30309.1, candles[1].Close, 1e-9)
}

func TestTickerReturnsLastPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":[],"result":{"XXBTZUSD":{"c":["30303.2","0.001"]}}}`))
	}))
	defer srv.Close()

	c := NewClient("", "", srv.URL)
	price, err := c.Ticker(context.Background(), "XBTUSD")
	require.NoError(t, err)
	assert.InDelta(t, 30303.2, price, 1e-9)
}
