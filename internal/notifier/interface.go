package notifier

import (
	"context"
	"time"

	"github.com/newthinker/stratsim/internal/backtest"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Summary is the notification payload of one finished simulation.
type Summary struct {
	RunID          string
	Strategy       string
	Symbol         string
	Start          time.Time
	End            time.Time
	InitialAccount float64
	FinalAccount   float64
	ProfitLoss     float64
	Return         float64 // percent of the initial account
	Trades         int
	WinRate        float64
	Bankrupt       bool
}

// Summarize extracts the notification payload from a report.
func Summarize(r *backtest.Report) Summary {
	s := Summary{
		RunID:          r.ID,
		Strategy:       r.Strategy,
		Symbol:         r.Symbol,
		Start:          r.StartDate,
		End:            r.EndDate,
		InitialAccount: r.Params.InitialAccount,
		ProfitLoss:     r.Stats.TotalProfitLoss,
		Return:         r.Stats.TotalReturn,
		Trades:         r.Stats.TotalTrades,
		WinRate:        r.Stats.WinRate,
	}
	if r.Result != nil {
		s.FinalAccount = r.Result.FinalAccount
		s.Bankrupt = r.Result.Bankrupt
	}
	return s
}

// Notifier delivers simulation summaries to an external channel
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers a single summary
	Send(ctx context.Context, s Summary) error
}
