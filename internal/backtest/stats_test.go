package backtest

import (
	"math"
	"testing"

	"github.com/newthinker/stratsim/internal/core"
)

func closedAt(action core.Action, investment, pl float64) Position {
	return Position{Action: action, TotalInvestment: investment, NumberOfShares: 1, Exit: &Exit{ProfitLoss: pl}}
}

func TestCalculateStats_Empty(t *testing.T) {
	stats := CalculateStats(&Result{}, 1000)
	if stats.TotalTrades != 0 {
		t.Error("expected 0 trades for empty input")
	}
	if CalculateStats(nil, 1000).TotalTrades != 0 {
		t.Error("expected 0 trades for nil result")
	}
}

func TestCalculateStats_WinRate(t *testing.T) {
	res := &Result{Ledger: []Position{
		closedAt(core.ActionBuy, 100, 10),
		closedAt(core.ActionSell, 100, 5),
		closedAt(core.ActionBuy, 100, -3),
		closedAt(core.ActionBuy, 100, 2),
	}}

	stats := CalculateStats(res, 1000)

	if stats.TotalTrades != 4 {
		t.Errorf("TotalTrades = %d, want 4", stats.TotalTrades)
	}
	if stats.WinningTrades != 3 {
		t.Errorf("WinningTrades = %d, want 3", stats.WinningTrades)
	}
	if stats.WinRate != 75 {
		t.Errorf("WinRate = %f, want 75", stats.WinRate)
	}
}

func TestCalculateStats_TotalReturn(t *testing.T) {
	res := &Result{Ledger: []Position{
		closedAt(core.ActionBuy, 500, 100),
		closedAt(core.ActionSell, 500, -50),
	}}

	stats := CalculateStats(res, 1000)

	if stats.TotalProfitLoss != 50 {
		t.Errorf("TotalProfitLoss = %f, want 50", stats.TotalProfitLoss)
	}
	if math.Abs(stats.TotalReturn-5.0) > 0.001 {
		t.Errorf("TotalReturn = %f, want 5", stats.TotalReturn)
	}
}

func TestCalculateStats_IgnoresOpenPositions(t *testing.T) {
	res := &Result{Ledger: []Position{
		closedAt(core.ActionBuy, 100, 10),
		{Action: core.ActionBuy, TotalInvestment: 100},
	}}

	stats := CalculateStats(res, 1000)

	if stats.WinningTrades != 1 || stats.OpenTrades != 1 {
		t.Errorf("should only count closed trades, got %d winning, %d open", stats.WinningTrades, stats.OpenTrades)
	}
}

func TestCalculateMaxDrawdown(t *testing.T) {
	// 1000 -> 1200 -> 900 -> 1000: peak 1200, trough 900, DD = 25%
	equity := []EquityPoint{{Account: 1200}, {Account: 900}, {Account: 1000}}
	dd := calculateMaxDrawdown(1000, equity)

	if math.Abs(dd-0.25) > 1e-9 {
		t.Errorf("MaxDrawdown = %f, expected 0.25", dd)
	}
}

func TestCalculateSharpeRatio_Flat(t *testing.T) {
	if got := calculateSharpeRatio([]float64{0.1, 0.1, 0.1}); got != 0 {
		t.Errorf("zero variance should give 0, got %f", got)
	}
	if got := calculateSharpeRatio([]float64{0.1}); got != 0 {
		t.Errorf("single return should give 0, got %f", got)
	}
}

func TestCalculateStats_DrawdownIncludesForcedClose(t *testing.T) {
	// Long 100 @10 is force-closed @5: the account falls from 1000 to 500.
	res, err := NewSimulator().Run(barsFrom(10, 10, 5), []core.Action{B, N, N}, fullRisk(true))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := res.Equity[len(res.Equity)-1].Account; got != 500 {
		t.Errorf("last equity account = %f, want 500", got)
	}
	if got := res.Equity[len(res.Equity)-1].FrozenFunds; got != 0 {
		t.Errorf("last equity frozen funds = %f, want 0", got)
	}

	stats := CalculateStats(res, 1000)
	if math.Abs(stats.MaxDrawdown-50) > 1e-9 {
		t.Errorf("MaxDrawdown = %f, want 50", stats.MaxDrawdown)
	}
	if stats.TotalReturn != -50 {
		t.Errorf("TotalReturn = %f, want -50", stats.TotalReturn)
	}
}

func TestCalculateStats_DrawdownWithoutForcedClose(t *testing.T) {
	res, err := NewSimulator().Run(barsFrom(10, 10, 5), []core.Action{B, N, N}, fullRisk(false))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Open positions stay frozen and unrealized.
	if got := res.Equity[len(res.Equity)-1]; got.Account != 1000 || got.FrozenFunds != 1000 {
		t.Errorf("last equity = %+v, want account 1000 frozen 1000", got)
	}
	if stats := CalculateStats(res, 1000); stats.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %f, want 0", stats.MaxDrawdown)
	}
}
