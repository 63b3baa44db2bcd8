package strategy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/stratsim/internal/core"
	"go.uber.org/zap"
)

// Registry manages the available signal generators
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     *zap.Logger
}

// NewRegistry creates a new strategy registry
func NewRegistry(logger ...*zap.Logger) *Registry {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Registry{
		strategies: make(map[string]Strategy),
		logger:     l,
	}
}

// Register adds a strategy to the registry
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// Names returns the registered strategy names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate runs the named strategy over bars and checks that the resulting
// signal sequence is aligned with the series.
func (r *Registry) Generate(ctx context.Context, name string, bars []core.OHLCV) ([]core.Action, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s, ok := r.Get(name)
	if !ok {
		return nil, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("%q", name))
	}

	signals, err := s.Signals(bars)
	if err != nil {
		r.logger.Warn("signal generation failed",
			zap.String("strategy", name),
			zap.Error(err),
		)
		return nil, core.WrapError(core.ErrStrategyFailed, err)
	}
	if len(signals) != len(bars) {
		return nil, core.WrapError(core.ErrStrategyFailed,
			fmt.Errorf("%s produced %d signals for %d bars", name, len(signals), len(bars)))
	}

	r.logger.Debug("signals generated",
		zap.String("strategy", name),
		zap.Int("bars", len(bars)),
		zap.Int("trades", core.CountTrades(signals)),
	)

	return signals, nil
}
