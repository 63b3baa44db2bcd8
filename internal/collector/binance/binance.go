// Package binance loads spot kline history from the Binance REST API.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/stratsim/internal/collector"
	"github.com/newthinker/stratsim/internal/core"
)

const (
	defaultBaseURL = "https://api.binance.com"
	defaultQuote   = "USDT"
	pageLimit      = 1000
)

// Common quote currencies in order of priority for detection
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "BTC", "ETH", "BNB"}

var validSymbol = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// NormalizeSymbol converts "btc", "BTC-USDT" or "BTC/USDT" into the exchange
// form "BTCUSDT". A bare base asset gets the USDT quote.
func NormalizeSymbol(input string) string {
	s := strings.ToUpper(input)
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
	if s == "" {
		return ""
	}

	// Ensure there's a base currency left (symbol must be longer than quote)
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s
		}
	}
	return s + defaultQuote
}

// Binance implements collector.Collector for Binance spot klines
type Binance struct {
	client  *http.Client
	baseURL string
}

// New creates a new Binance collector
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: defaultBaseURL,
	}
}

// NewWithBaseURL creates a Binance collector with custom base URL (for testing)
func NewWithBaseURL(u string) *Binance {
	b := New()
	b.baseURL = strings.TrimRight(u, "/")
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

func (b *Binance) Init(cfg collector.Config) error {
	if u, ok := cfg.Extra["base_url"].(string); ok && u != "" {
		b.baseURL = strings.TrimRight(u, "/")
	}
	return nil
}

// FetchHistory fetches klines in pages of 1000 until end is reached.
func (b *Binance) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	pair := NormalizeSymbol(symbol)
	if !validSymbol.MatchString(pair) {
		return nil, core.WrapError(core.ErrInvalidArgument, fmt.Errorf("invalid symbol %q", symbol))
	}

	var data []core.OHLCV
	from := start
	for {
		page, err := b.fetchPage(ctx, pair, from, end, interval)
		if err != nil {
			return nil, err
		}
		data = append(data, page...)
		if len(page) < pageLimit {
			break
		}
		from = page[len(page)-1].Time.Add(time.Millisecond)
		if from.After(end) {
			break
		}
	}

	if len(data) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("binance: no klines for %s", pair))
	}
	return data, nil
}

func (b *Binance) fetchPage(ctx context.Context, pair string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	q := url.Values{}
	q.Set("symbol", pair)
	q.Set("interval", b.toInterval(interval))
	q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(pageLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, core.WrapError(core.ErrInvalidArgument, fmt.Errorf("binance: %s", apiErr.Msg))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var klines [][]any
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("decoding response: %w", err))
	}

	data := make([]core.OHLCV, 0, len(klines))
	for i, k := range klines {
		bar, err := parseKline(k)
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("kline %d: %w", i, err))
		}
		bar.Symbol = pair
		bar.Interval = interval
		data = append(data, bar)
	}

	return data, nil
}

// parseKline reads [openTime, open, high, low, close, volume, ...].
func parseKline(k []any) (core.OHLCV, error) {
	if len(k) < 6 {
		return core.OHLCV{}, errors.New("short kline")
	}
	openTime, ok := k[0].(float64)
	if !ok {
		return core.OHLCV{}, errors.New("open time is not a number")
	}

	var values [5]float64
	for i := range values {
		str, ok := k[i+1].(string)
		if !ok {
			return core.OHLCV{}, fmt.Errorf("field %d is not a string", i+1)
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return core.OHLCV{}, err
		}
		values[i] = v
	}

	return core.OHLCV{
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: int64(values[4]),
		Time:   time.UnixMilli(int64(openTime)).UTC(),
	}, nil
}

func (b *Binance) toInterval(interval string) string {
	switch interval {
	case "1m", "5m", "15m", "30m":
		return interval
	case "1h", "2h", "4h":
		return interval
	case "1d":
		return "1d"
	case "1w", "1wk":
		return "1w"
	default:
		return "1d"
	}
}
