package backtest

import (
	"fmt"
	"time"

	"github.com/newthinker/stratsim/internal/core"
)

// Params configures a single simulation run.
type Params struct {
	InitialAccount    float64 `json:"initial_account" mapstructure:"initial_account"`
	RiskPerTrade      float64 `json:"risk_per_trade" mapstructure:"risk_per_trade"`
	TotalAcceptedRisk float64 `json:"total_accepted_risk" mapstructure:"total_accepted_risk"`
	ForceCloseAtEnd   bool    `json:"force_close_at_end" mapstructure:"force_close"`
}

// Validate checks the numeric ranges of the parameters.
func (p Params) Validate() error {
	if !(p.InitialAccount > 0) {
		return core.WrapError(core.ErrInvalidArgument,
			fmt.Errorf("initial account must be positive, got %v", p.InitialAccount))
	}
	if !inUnitInterval(p.RiskPerTrade) {
		return core.WrapError(core.ErrInvalidArgument,
			fmt.Errorf("risk per trade must be in (0, 1], got %v", p.RiskPerTrade))
	}
	if !inUnitInterval(p.TotalAcceptedRisk) {
		return core.WrapError(core.ErrInvalidArgument,
			fmt.Errorf("total accepted risk must be in (0, 1], got %v", p.TotalAcceptedRisk))
	}
	return nil
}

func inUnitInterval(v float64) bool {
	return v > 0 && v <= 1
}

// Position is one row of the simulation ledger. Everything except Exit is
// fixed when the position opens; Exit is set exactly once when it closes.
type Position struct {
	Action          core.Action `json:"action"`
	EntryPrice      float64     `json:"entry_price"`
	OpenedOn        time.Time   `json:"opened_on"`
	NumberOfShares  int64       `json:"number_of_shares"`
	TotalInvestment float64     `json:"total_investment"`
	Exit            *Exit       `json:"exit,omitempty"` // nil while the position is open
}

// Exit records how and when a position was closed.
type Exit struct {
	ClosingPrice float64   `json:"closing_price"`
	ClosedOn     time.Time `json:"closed_on"`
	ProfitLoss   float64   `json:"profit_loss"`
}

// IsClosed returns true if the position has an exit
func (p Position) IsClosed() bool {
	return p.Exit != nil
}

// IsWin returns true if the position closed with a profit
func (p Position) IsWin() bool {
	return p.Exit != nil && p.Exit.ProfitLoss > 0
}

// ProfitLossAt returns the profit or loss of the position if it were closed at price.
func (p Position) ProfitLossAt(price float64) float64 {
	value := price * float64(p.NumberOfShares)
	if p.Action == core.ActionSell {
		return p.TotalInvestment - value
	}
	return value - p.TotalInvestment
}

// Return is the realized profit or loss relative to the capital committed.
func (p Position) Return() float64 {
	if p.Exit == nil || p.TotalInvestment == 0 {
		return 0
	}
	return p.Exit.ProfitLoss / p.TotalInvestment
}

// close moves the position from open to closed and returns the realized P&L.
func (p *Position) close(price float64, at time.Time) float64 {
	pl := p.ProfitLossAt(price)
	p.Exit = &Exit{ClosingPrice: price, ClosedOn: at, ProfitLoss: pl}
	return pl
}

// EquityPoint is the account state after a bar has been processed.
type EquityPoint struct {
	Time        time.Time `json:"time"`
	Account     float64   `json:"account"`
	FrozenFunds float64   `json:"frozen_funds"`
}

// Result holds the outcome of a single simulation run
type Result struct {
	Ledger       []Position    `json:"ledger"`
	FinalAccount float64       `json:"final_account"`
	FrozenFunds  float64       `json:"frozen_funds"`
	Bankrupt     bool          `json:"bankrupt"`
	HaltedAt     int           `json:"halted_at"` // bar index of the bankruptcy halt, -1 otherwise
	Rejected     int           `json:"rejected"`  // signals skipped by the risk limits
	Equity       []EquityPoint `json:"equity"`
}

// OpenPositions returns the positions still open at the end of the run.
func (r *Result) OpenPositions() []Position {
	var open []Position
	for _, p := range r.Ledger {
		if !p.IsClosed() {
			open = append(open, p)
		}
	}
	return open
}

// ClosedPositions returns the positions that were closed during the run.
func (r *Result) ClosedPositions() []Position {
	var closed []Position
	for _, p := range r.Ledger {
		if p.IsClosed() {
			closed = append(closed, p)
		}
	}
	return closed
}

// Stats holds performance statistics
type Stats struct {
	TotalTrades     int     `json:"total_trades"`
	OpenTrades      int     `json:"open_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	WinRate         float64 `json:"win_rate"`          // Percentage of profitable closed positions
	TotalProfitLoss float64 `json:"total_profit_loss"` // Realized P&L in account currency
	TotalReturn     float64 `json:"total_return"`      // Realized P&L as a percentage of the initial account
	MaxDrawdown     float64 `json:"max_drawdown"`      // Largest peak-to-trough decline of the account, percent
	SharpeRatio     float64 `json:"sharpe_ratio"`      // Per-trade returns, annualized
}
