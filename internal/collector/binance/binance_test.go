package binance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/newthinker/stratsim/internal/collector"
	"github.com/newthinker/stratsim/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinance_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*Binance)(nil)
}

func TestBinance_Name(t *testing.T) {
	b := New()
	if b.Name() != "binance" {
		t.Errorf("expected 'binance', got '%s'", b.Name())
	}
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"BTC", "BTCUSDT"},
		{"btc", "BTCUSDT"},
		{"BTC-USDT", "BTCUSDT"},
		{"eth/btc", "ETHBTC"},
		{"BNB_BUSD", "BNBBUSD"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeSymbol(tc.input); got != tc.expected {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestBinance_ToInterval(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1m", "1m"},
		{"5m", "5m"},
		{"15m", "15m"},
		{"1h", "1h"},
		{"4h", "4h"},
		{"1d", "1d"},
		{"1wk", "1w"},
		{"unknown", "1d"},
	}

	b := New()
	for _, tc := range tests {
		got := b.toInterval(tc.input)
		if got != tc.expected {
			t.Errorf("toInterval(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func kline(i int, price string) []any {
	return []any{float64(t0.AddDate(0, 0, i).UnixMilli()), price, price, price, price, "12.5", 0}
}

func TestBinance_FetchHistory(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		gotQuery = map[string]string{
			"symbol":   r.URL.Query().Get("symbol"),
			"interval": r.URL.Query().Get("interval"),
		}
		json.NewEncoder(w).Encode([][]any{kline(0, "42000.5"), kline(1, "43000")})
	}))
	defer server.Close()

	b := NewWithBaseURL(server.URL)
	data, err := b.FetchHistory(context.Background(), "btc-usdt", t0, t0.AddDate(0, 0, 5), "1d")
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", gotQuery["symbol"])
	assert.Equal(t, "1d", gotQuery["interval"])
	require.Len(t, data, 2)
	assert.Equal(t, "BTCUSDT", data[0].Symbol)
	assert.Equal(t, 42000.5, data[0].Close)
	assert.Equal(t, int64(12), data[0].Volume)
	assert.Equal(t, t0.AddDate(0, 0, 1), data[1].Time)
}

func TestBinance_FetchHistoryPaginates(t *testing.T) {
	var calls []int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		from, _ := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		calls = append(calls, from)

		n := pageLimit
		if len(calls) > 1 {
			n = 3
		}
		offset := (len(calls) - 1) * pageLimit
		out := make([][]any, n)
		for i := range out {
			out[i] = kline(offset+i, "1")
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer server.Close()

	b := NewWithBaseURL(server.URL)
	data, err := b.FetchHistory(context.Background(), "ETHUSDT", t0, t0.AddDate(10, 0, 0), "1d")
	require.NoError(t, err)

	assert.Len(t, data, pageLimit+3)
	require.Len(t, calls, 2)
	assert.Equal(t, t0.AddDate(0, 0, pageLimit-1).UnixMilli()+1, calls[1])
}

func TestBinance_FetchHistoryErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr *core.Error
	}{
		{"bad symbol", http.StatusBadRequest, `{"code":-1121,"msg":"Invalid symbol."}`, core.ErrInvalidArgument},
		{"empty", http.StatusOK, `[]`, core.ErrNoData},
		{"malformed kline", http.StatusOK, `[[1, "x", "1", "1", "1", "1"]]`, core.ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewWithBaseURL(server.URL).FetchHistory(context.Background(), "BTC", t0, t0.AddDate(0, 1, 0), "1d")
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestBinance_FetchHistoryRejectsSymbol(t *testing.T) {
	_, err := New().FetchHistory(context.Background(), "BTC$", t0, t0.AddDate(0, 1, 0), "1d")
	assert.True(t, errors.Is(err, core.ErrInvalidArgument))
}

func TestBinance_InitBaseURL(t *testing.T) {
	b := New()
	require.NoError(t, b.Init(collector.Config{Extra: map[string]any{"base_url": "http://localhost:9/"}}))
	assert.Equal(t, "http://localhost:9", b.baseURL)
}
