// internal/api/handler/api/compare.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/newthinker/stratsim/internal/api/response"
	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/newthinker/stratsim/internal/core"
)

// CompareStrategy names a strategy and optionally overrides its risk limits.
type CompareStrategy struct {
	Name              string   `json:"name"`
	RiskPerTrade      *float64 `json:"risk_per_trade,omitempty"`
	TotalAcceptedRisk *float64 `json:"total_accepted_risk,omitempty"`
}

// CompareRequest is the request body for a multi-strategy comparison.
type CompareRequest struct {
	Symbol         string            `json:"symbol"`
	Start          string            `json:"start"`
	End            string            `json:"end"`
	Interval       string            `json:"interval,omitempty"`
	InitialAccount *float64          `json:"initial_account,omitempty"`
	Strategies     []CompareStrategy `json:"strategies"`
}

// CompareHandler runs comparisons synchronously.
type CompareHandler struct {
	backtester *backtest.Backtester
	defaults   backtest.Params
}

// NewCompareHandler creates a new compare handler.
func NewCompareHandler(backtester *backtest.Backtester, defaults backtest.Params) *CompareHandler {
	return &CompareHandler{backtester: backtester, defaults: defaults}
}

// Compare handles POST /api/compare.
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidArgument, err))
		return
	}
	if req.Symbol == "" || len(req.Strategies) == 0 {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidArgument, errors.New("symbol and at least one strategy are required")))
		return
	}

	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		response.Fail(w, err)
		return
	}

	cr := backtest.CompareRequest{
		Symbol:         req.Symbol,
		Start:          start,
		End:            end,
		Interval:       req.Interval,
		InitialAccount: h.defaults.InitialAccount,
		Strategies:     make([]string, len(req.Strategies)),
		Limits:         make([]backtest.RiskLimits, len(req.Strategies)),
	}
	if req.InitialAccount != nil {
		cr.InitialAccount = *req.InitialAccount
	}
	for i, s := range req.Strategies {
		limits := backtest.RiskLimits{
			RiskPerTrade:      h.defaults.RiskPerTrade,
			TotalAcceptedRisk: h.defaults.TotalAcceptedRisk,
		}
		if s.RiskPerTrade != nil {
			limits.RiskPerTrade = *s.RiskPerTrade
		}
		if s.TotalAcceptedRisk != nil {
			limits.TotalAcceptedRisk = *s.TotalAcceptedRisk
		}
		cr.Strategies[i] = s.Name
		cr.Limits[i] = limits
	}

	ctx, cancel := context.WithTimeout(r.Context(), simulationTimeout)
	defer cancel()

	cmp, err := h.backtester.Compare(ctx, cr)
	if err != nil {
		response.Fail(w, err)
		return
	}

	final := make(map[string]float64, len(cmp.Names))
	for _, name := range cmp.Names {
		final[name] = cmp.Final(name)
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"symbol":     req.Symbol,
		"dates":      cmp.Dates,
		"names":      cmp.Names,
		"series":     cmp.Series,
		"final":      final,
		"bankruptcy": bankruptcies(cmp),
	})
}

func bankruptcies(cmp *backtest.Comparison) map[string]bool {
	out := make(map[string]bool, len(cmp.Results))
	for name, res := range cmp.Results {
		out[name] = res.Bankrupt
	}
	return out
}
