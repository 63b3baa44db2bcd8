package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/stratsim/internal/core"
	"github.com/newthinker/stratsim/internal/strategy"
	"go.uber.org/zap"
)

// HistoryProvider defines the interface for fetching historical OHLCV data
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// Recorder receives simulation outcomes, typically for metrics.
type Recorder interface {
	RecordSimulation(strategy string, res *Result, duration time.Duration)
	RecordSimulationError(strategy string)
}

// ReportSink persists finished reports.
type ReportSink interface {
	SaveReport(ctx context.Context, report *Report) error
}

// Request describes a single backtest.
type Request struct {
	Strategy string
	Symbol   string
	Start    time.Time
	End      time.Time
	Interval string
	Params   Params
}

// Report holds the complete backtest output
type Report struct {
	ID        string    `json:"id"`
	Strategy  string    `json:"strategy"`
	Symbol    string    `json:"symbol"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Params    Params    `json:"params"`
	Bars      int       `json:"bars"`
	Signals   int       `json:"signals"`
	Result    *Result   `json:"result"`
	Stats     Stats     `json:"stats"`
	CreatedAt time.Time `json:"created_at"`
}

// CompareRequest describes a multi-strategy comparison on one symbol.
type CompareRequest struct {
	Symbol         string
	Start          time.Time
	End            time.Time
	Interval       string
	InitialAccount float64
	Strategies     []string
	Limits         []RiskLimits
}

// Backtester loads history, generates signals and runs the simulator
type Backtester struct {
	provider   HistoryProvider
	strategies *strategy.Registry
	sim        *Simulator
	recorder   Recorder
	sinks      []ReportSink
	logger     *zap.Logger
}

// Option configures a Backtester.
type Option func(*Backtester)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backtester) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(b *Backtester) { b.recorder = r }
}

// WithSinks adds report sinks that receive every successful report.
func WithSinks(sinks ...ReportSink) Option {
	return func(b *Backtester) { b.sinks = append(b.sinks, sinks...) }
}

// New creates a new Backtester with the given history provider and strategies
func New(provider HistoryProvider, strategies *strategy.Registry, opts ...Option) *Backtester {
	b := &Backtester{
		provider:   provider,
		strategies: strategies,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.sim = NewSimulator(b.logger.Named("simulator"))
	return b
}

// Simulator returns the engine used by the backtester.
func (b *Backtester) Simulator() *Simulator {
	return b.sim
}

// History fetches bars from the provider and validates them. An empty
// interval means daily bars.
func (b *Backtester) History(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if interval == "" {
		interval = "1d"
	}
	bars, err := b.provider.FetchHistory(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s %s..%s", symbol,
			start.Format("2006-01-02"), end.Format("2006-01-02")))
	}
	if err := core.ValidateSeries(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// Run executes a backtest for the given strategy and symbol over the specified time range
func (b *Backtester) Run(ctx context.Context, req Request) (*Report, error) {
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	bars, err := b.History(ctx, req.Symbol, req.Start, req.End, req.Interval)
	if err != nil {
		b.recordError(req.Strategy)
		return nil, err
	}

	signals, err := b.strategies.Generate(ctx, req.Strategy, bars)
	if err != nil {
		b.recordError(req.Strategy)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	res, err := b.sim.Run(bars, signals, req.Params)
	if err != nil {
		b.recordError(req.Strategy)
		return nil, err
	}
	if b.recorder != nil {
		b.recorder.RecordSimulation(req.Strategy, res, time.Since(started))
	}

	report := &Report{
		ID:        uuid.NewString(),
		Strategy:  req.Strategy,
		Symbol:    req.Symbol,
		StartDate: req.Start,
		EndDate:   req.End,
		Params:    req.Params,
		Bars:      len(bars),
		Signals:   core.CountTrades(signals),
		Result:    res,
		Stats:     CalculateStats(res, req.Params.InitialAccount),
		CreatedAt: time.Now().UTC(),
	}

	b.logger.Info("backtest completed",
		zap.String("id", report.ID),
		zap.String("strategy", req.Strategy),
		zap.String("symbol", req.Symbol),
		zap.Int("positions", len(res.Ledger)),
		zap.Float64("final_account", res.FinalAccount),
		zap.Bool("bankrupt", res.Bankrupt),
	)

	// Every sink sees the report even when an earlier one fails.
	var errs []error
	for _, sink := range b.sinks {
		if err := sink.SaveReport(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return report, fmt.Errorf("saving report %s: %w", report.ID, err)
	}

	return report, nil
}

// Compare runs several registered strategies on the same history and returns
// their cumulative P&L series.
func (b *Backtester) Compare(ctx context.Context, req CompareRequest) (*Comparison, error) {
	if len(req.Strategies) < 1 {
		return nil, core.WrapError(core.ErrInvalidArgument, fmt.Errorf("at least one strategy is required"))
	}
	if len(req.Limits) != len(req.Strategies) {
		return nil, core.WrapError(core.ErrInvalidArgument,
			fmt.Errorf("%d strategies but %d risk settings", len(req.Strategies), len(req.Limits)))
	}
	for _, name := range req.Strategies {
		if _, ok := b.strategies.Get(name); !ok {
			return nil, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("%q", name))
		}
	}

	bars, err := b.History(ctx, req.Symbol, req.Start, req.End, req.Interval)
	if err != nil {
		return nil, err
	}

	signalSets := make([][]core.Action, len(req.Strategies))
	for i, name := range req.Strategies {
		signalSets[i], err = b.strategies.Generate(ctx, name, bars)
		if err != nil {
			return nil, err
		}
	}

	started := time.Now()
	cmp, err := b.sim.CompareSeries(ctx, bars, signalSets, req.Strategies, req.Limits, req.InitialAccount)
	if err != nil {
		return nil, err
	}
	if b.recorder != nil {
		elapsed := time.Since(started)
		for _, name := range cmp.Names {
			b.recorder.RecordSimulation(name, cmp.Results[name], elapsed)
		}
	}

	for _, name := range cmp.Names {
		b.logger.Info("comparison result",
			zap.String("strategy", name),
			zap.String("symbol", req.Symbol),
			zap.Float64("cumulative_profit_loss", cmp.Final(name)),
		)
	}

	return cmp, nil
}

func (b *Backtester) recordError(strategy string) {
	if b.recorder != nil {
		b.recorder.RecordSimulationError(strategy)
	}
}
