package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/newthinker/stratsim/internal/core"
	"github.com/newthinker/stratsim/internal/strategy"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

type stubProvider struct {
	bars []core.OHLCV
}

func (p *stubProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	return p.bars, nil
}

type stubStrategy struct {
	name    string
	signals []core.Action
}

func (s *stubStrategy) Name() string        { return s.name }
func (s *stubStrategy) Description() string { return s.name + " test strategy" }
func (s *stubStrategy) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{PriceHistory: 1}
}
func (s *stubStrategy) Init(cfg strategy.Config) error { return nil }
func (s *stubStrategy) Signals(bars []core.OHLCV) ([]core.Action, error) {
	return s.signals, nil
}

func closes(values ...float64) []core.OHLCV {
	bars := make([]core.OHLCV, len(values))
	for i, v := range values {
		bars[i] = core.OHLCV{
			Symbol: "AAPL", Interval: "1d",
			Open: v, High: v, Low: v, Close: v,
			Time: day0.AddDate(0, 0, i),
		}
	}
	return bars
}

var testDefaults = backtest.Params{
	InitialAccount:    1000,
	RiskPerTrade:      1,
	TotalAcceptedRisk: 1,
	ForceCloseAtEnd:   true,
}

// newTestRig builds a backtester over closes 10,12,15,20 with two strategies:
// "late" buys first and sells last, "early" sells one bar sooner.
func newTestRig() (*backtest.Backtester, *strategy.Registry) {
	reg := strategy.NewRegistry()
	reg.Register(&stubStrategy{name: "late", signals: []core.Action{
		core.ActionBuy, core.ActionNone, core.ActionNone, core.ActionSell}})
	reg.Register(&stubStrategy{name: "early", signals: []core.Action{
		core.ActionBuy, core.ActionNone, core.ActionSell, core.ActionNone}})
	return backtest.New(&stubProvider{bars: closes(10, 12, 15, 20)}, reg), reg
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil && env.Data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}
