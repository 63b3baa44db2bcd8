package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/stratsim/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RiskLimits are the per-strategy sizing parameters used in a comparison.
type RiskLimits struct {
	RiskPerTrade      float64 `json:"risk_per_trade"`
	TotalAcceptedRisk float64 `json:"total_accepted_risk"`
}

// StrategyRun is one strategy's signal sequence and risk limits.
type StrategyRun struct {
	Name    string
	Signals []core.Action
	Limits  RiskLimits
}

// Comparison holds the cumulative realized P&L of several strategies on a
// shared time index.
type Comparison struct {
	Dates   []time.Time          `json:"dates"`
	Names   []string             `json:"names"`
	Series  map[string][]float64 `json:"series"`
	Results map[string]*Result   `json:"results"`
}

// Final returns the last cumulative P&L value of the named strategy.
func (c *Comparison) Final(name string) float64 {
	s := c.Series[name]
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// CompareSeries is Compare with the strategies supplied as parallel lists.
func (s *Simulator) CompareSeries(ctx context.Context, bars []core.OHLCV, signalSets [][]core.Action, names []string, limits []RiskLimits, initialAccount float64) (*Comparison, error) {
	if len(signalSets) != len(names) {
		return nil, core.WrapError(core.ErrInvalidArgument,
			fmt.Errorf("%d strategies but %d names", len(signalSets), len(names)))
	}
	if len(limits) != len(signalSets) {
		return nil, core.WrapError(core.ErrInvalidArgument,
			fmt.Errorf("%d strategies but %d risk settings", len(signalSets), len(limits)))
	}

	runs := make([]StrategyRun, len(signalSets))
	for i := range signalSets {
		runs[i] = StrategyRun{Name: names[i], Signals: signalSets[i], Limits: limits[i]}
	}
	return s.Compare(ctx, bars, runs, initialAccount)
}

// Compare runs every strategy with forced end-of-run closure and returns the
// running sum of realized P&L per strategy, aligned on the bar timestamps.
// All inputs are validated before any simulation starts.
func (s *Simulator) Compare(ctx context.Context, bars []core.OHLCV, runs []StrategyRun, initialAccount float64) (*Comparison, error) {
	if len(runs) < 1 {
		return nil, core.WrapError(core.ErrInvalidArgument, fmt.Errorf("at least one strategy is required"))
	}

	seen := make(map[string]bool, len(runs))
	params := make([]Params, len(runs))
	for i, r := range runs {
		if r.Name == "" || seen[r.Name] {
			return nil, core.WrapError(core.ErrInvalidArgument,
				fmt.Errorf("strategy %d: name %q is empty or duplicated", i, r.Name))
		}
		seen[r.Name] = true

		if len(r.Signals) != len(bars) {
			return nil, core.WrapError(core.ErrInvalidArgument,
				fmt.Errorf("strategy %q: got %d signals for %d bars", r.Name, len(r.Signals), len(bars)))
		}
		params[i] = Params{
			InitialAccount:    initialAccount,
			RiskPerTrade:      r.Limits.RiskPerTrade,
			TotalAcceptedRisk: r.Limits.TotalAcceptedRisk,
			ForceCloseAtEnd:   true,
		}
		if err := params[i].Validate(); err != nil {
			return nil, fmt.Errorf("strategy %q: %w", r.Name, err)
		}
	}

	results := make([]*Result, len(runs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range runs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.Run(bars, runs[i].Signals, params[i])
			if err != nil {
				return fmt.Errorf("strategy %q: %w", runs[i].Name, err)
			}
			results[i] = res
			s.logger.Debug("comparison run completed",
				zap.String("strategy", runs[i].Name),
				zap.Float64("final_account", res.FinalAccount),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := make(map[int64]int, len(bars))
	dates := make([]time.Time, len(bars))
	for i, bar := range bars {
		index[bar.Time.UnixNano()] = i
		dates[i] = bar.Time
	}

	cmp := &Comparison{
		Dates:   dates,
		Names:   make([]string, len(runs)),
		Series:  make(map[string][]float64, len(runs)),
		Results: make(map[string]*Result, len(runs)),
	}
	for i, r := range runs {
		cmp.Names[i] = r.Name
		cmp.Series[r.Name] = cumulativeDailyPL(results[i], index, len(bars))
		cmp.Results[r.Name] = results[i]
	}

	return cmp, nil
}

// cumulativeDailyPL sums realized P&L per closing bar and accumulates it over
// the full index. Bars without closures contribute zero.
func cumulativeDailyPL(res *Result, index map[int64]int, n int) []float64 {
	daily := make([]float64, n)
	for _, p := range res.Ledger {
		if !p.IsClosed() {
			continue
		}
		if i, ok := index[p.Exit.ClosedOn.UnixNano()]; ok {
			daily[i] += p.Exit.ProfitLoss
		}
	}

	var running float64
	for i := range daily {
		running += daily[i]
		daily[i] = running
	}
	return daily
}
