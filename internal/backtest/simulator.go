package backtest

import (
	"fmt"
	"math"

	"github.com/newthinker/stratsim/internal/core"
	"go.uber.org/zap"
)

// Snapshot describes the engine state after a bar has been processed.
type Snapshot struct {
	Index       int
	Account     float64
	FrozenFunds float64
	OpenBuys    int
	OpenSells   int
}

// Simulator replays a signal sequence against a price series. It holds no
// per-run state and is safe for concurrent use.
type Simulator struct {
	logger   *zap.Logger
	observer func(Snapshot)
}

// NewSimulator creates a new simulator
func NewSimulator(logger ...*zap.Logger) *Simulator {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Simulator{logger: l}
}

// WithObserver returns a copy of the simulator that reports a Snapshot after
// every processed bar. Compare runs strategies in parallel goroutines, so an
// observer used there must be safe for concurrent use.
func (s *Simulator) WithObserver(fn func(Snapshot)) *Simulator {
	cp := *s
	cp.observer = fn
	return &cp
}

// book is the per-run engine state. side is ActionNone while flat and the
// direction of every open position otherwise.
type book struct {
	account float64
	frozen  float64
	side    core.Action
	open    []int // ledger indices of open positions, oldest first
	ledger  []Position
}

func (b *book) snapshot(i int) Snapshot {
	snap := Snapshot{Index: i, Account: b.account, FrozenFunds: b.frozen}
	switch b.side {
	case core.ActionBuy:
		snap.OpenBuys = len(b.open)
	case core.ActionSell:
		snap.OpenSells = len(b.open)
	}
	return snap
}

// Run simulates trading signals over bars. Inputs are not modified.
//
// A non-positive account at the start of a bar halts the run; the partial
// result is returned with Bankrupt set and no error.
func (s *Simulator) Run(bars []core.OHLCV, signals []core.Action, p Params) (*Result, error) {
	if len(signals) != len(bars) {
		return nil, core.WrapError(core.ErrInvalidArgument,
			fmt.Errorf("got %d signals for %d bars", len(signals), len(bars)))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	b := &book{account: p.InitialAccount}
	res := &Result{HaltedAt: -1, Equity: make([]EquityPoint, 0, len(bars))}

	for i, bar := range bars {
		if b.account <= 0 {
			s.logger.Warn("account exhausted, halting simulation",
				zap.Int("bar", i),
				zap.Time("time", bar.Time),
				zap.Float64("account", b.account),
			)
			res.Bankrupt = true
			res.HaltedAt = i
			break
		}

		if signals[i].IsTrade() {
			if !s.enter(b, signals[i], bar, p) {
				res.Rejected++
			}
		}

		res.Equity = append(res.Equity, EquityPoint{Time: bar.Time, Account: b.account, FrozenFunds: b.frozen})
		if s.observer != nil {
			s.observer(b.snapshot(i))
		}
	}

	if p.ForceCloseAtEnd && !res.Bankrupt && len(bars) > 0 {
		s.liquidate(b, bars[len(bars)-1])
		// The last bar's equity reflects the forced closure.
		last := &res.Equity[len(res.Equity)-1]
		last.Account = b.account
		last.FrozenFunds = b.frozen
	}

	res.Ledger = b.ledger
	res.FinalAccount = b.account
	res.FrozenFunds = b.frozen
	return res, nil
}

// enter processes a Buy or Sell signal: positions in the opposite direction
// are closed first, then a new position is opened if sizing and the total
// risk ceiling allow it. It reports false when the open was rejected.
func (s *Simulator) enter(b *book, action core.Action, bar core.OHLCV, p Params) bool {
	if b.side == action.Opposite() && len(b.open) > 0 {
		var incoming float64
		for _, idx := range b.open {
			incoming += b.ledger[idx].close(bar.Close, bar.Time)
		}
		s.logger.Debug("closed opposite positions",
			zap.Stringer("side", b.side),
			zap.Int("count", len(b.open)),
			zap.Float64("profit_loss", incoming),
			zap.Time("time", bar.Time),
		)
		b.account += incoming
		b.frozen = 0
		b.open = b.open[:0]
		b.side = core.ActionNone
	}

	shares := math.Floor(b.account * p.RiskPerTrade / bar.Close)
	investment := bar.Close * shares
	if !(investment > 0) || (b.frozen+investment)/b.account > p.TotalAcceptedRisk {
		s.logger.Debug("position rejected by risk limits",
			zap.Stringer("action", action),
			zap.Time("time", bar.Time),
			zap.Float64("investment", investment),
			zap.Float64("frozen_funds", b.frozen),
			zap.Float64("account", b.account),
		)
		return false
	}

	b.ledger = append(b.ledger, Position{
		Action:          action,
		EntryPrice:      bar.Close,
		OpenedOn:        bar.Time,
		NumberOfShares:  int64(shares),
		TotalInvestment: investment,
	})
	b.open = append(b.open, len(b.ledger)-1)
	b.frozen += investment
	b.side = action

	s.logger.Debug("position opened",
		zap.Stringer("action", action),
		zap.Time("time", bar.Time),
		zap.Float64("price", bar.Close),
		zap.Int64("shares", int64(shares)),
	)
	return true
}

// liquidate closes every open position at the final bar.
func (s *Simulator) liquidate(b *book, last core.OHLCV) {
	for _, idx := range b.open {
		b.account += b.ledger[idx].close(last.Close, last.Time)
	}
	if len(b.open) > 0 {
		s.logger.Debug("force-closed open positions",
			zap.Int("count", len(b.open)),
			zap.Time("time", last.Time),
		)
	}
	b.open = b.open[:0]
	b.side = core.ActionNone
	b.frozen = 0
}
