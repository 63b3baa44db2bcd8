package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/newthinker/stratsim/internal/api/response"
	"github.com/newthinker/stratsim/internal/core"
	"github.com/newthinker/stratsim/internal/indicator"
)

// HistorySource fetches validated bars. *backtest.Backtester implements it.
type HistorySource interface {
	History(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// Series is an indicator series on the wire; warm-up bars are null.
type Series []*float64

func toSeries(xs []float64) Series {
	out := make(Series, len(xs))
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		v := x
		out[i] = &v
	}
	return out
}

// IndicatorsResponse carries the standard indicator suite aligned on Dates.
type IndicatorsResponse struct {
	Symbol    string               `json:"symbol"`
	Interval  string               `json:"interval"`
	Dates     []time.Time          `json:"dates"`
	Close     []float64            `json:"close"`
	SMA       Series               `json:"sma"`
	EMA       Series               `json:"ema"`
	MACD      map[string]Series    `json:"macd"`
	Bollinger map[string]Series    `json:"bollinger"`
	RSI       Series               `json:"rsi"`
	ADX       map[string]Series    `json:"adx"`
	Periods   map[string][]float64 `json:"periods"`
}

// IndicatorsHandler computes indicators over fetched history.
type IndicatorsHandler struct {
	history HistorySource
}

func NewIndicatorsHandler(history HistorySource) *IndicatorsHandler {
	return &IndicatorsHandler{history: history}
}

// Get handles GET /api/indicators?symbol=&start=&end=&interval=.
func (h *IndicatorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidArgument, errors.New("symbol is required")))
		return
	}
	start, end, err := parseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	interval := q.Get("interval")
	if interval == "" {
		interval = "1d"
	}

	bars, err := h.history.History(r.Context(), symbol, start, end, interval)
	if err != nil {
		response.Fail(w, err)
		return
	}
	suite, err := indicator.Compute(bars)
	if err != nil {
		response.Fail(w, err)
		return
	}

	dates := make([]time.Time, len(bars))
	for i, b := range bars {
		dates[i] = b.Time
	}
	response.JSON(w, http.StatusOK, IndicatorsResponse{
		Symbol:   symbol,
		Interval: interval,
		Dates:    dates,
		Close:    core.Closes(bars),
		SMA:      toSeries(suite.SMA),
		EMA:      toSeries(suite.EMA),
		MACD: map[string]Series{
			"macd":      toSeries(suite.MACD.MACD),
			"signal":    toSeries(suite.MACD.Signal),
			"histogram": toSeries(suite.MACD.Histogram),
		},
		Bollinger: map[string]Series{
			"middle": toSeries(suite.Bollinger.Middle),
			"upper":  toSeries(suite.Bollinger.Upper),
			"lower":  toSeries(suite.Bollinger.Lower),
		},
		RSI: toSeries(suite.RSI),
		ADX: map[string]Series{
			"plus_di":  toSeries(suite.ADX.PlusDI),
			"minus_di": toSeries(suite.ADX.MinusDI),
			"adx":      toSeries(suite.ADX.ADX),
		},
		Periods: map[string][]float64{
			"sma":       {indicator.SMAPeriod},
			"ema":       {indicator.EMAPeriod},
			"macd":      {indicator.MACDFast, indicator.MACDSlow, indicator.MACDSignal},
			"bollinger": {indicator.BollingerPeriod, indicator.BollingerStdDevs},
			"rsi":       {indicator.RSIPeriod},
			"adx":       {indicator.ADXPeriod},
		},
	})
}
