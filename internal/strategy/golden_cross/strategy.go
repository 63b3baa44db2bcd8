package golden_cross

import (
	"fmt"

	"github.com/newthinker/stratsim/internal/core"
	"github.com/newthinker/stratsim/internal/indicator"
	"github.com/newthinker/stratsim/internal/strategy"
)

const (
	defaultFastPeriod = 50
	defaultSlowPeriod = 200
)

// GoldenCross emits Buy on a golden cross (fast SMA crosses above slow SMA)
// and Sell on a death cross (fast SMA crosses below slow SMA).
type GoldenCross struct {
	fastPeriod int
	slowPeriod int
}

// New creates a new golden cross strategy
func New(fastPeriod, slowPeriod int) *GoldenCross {
	return &GoldenCross{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}
}

// Default returns the classic 50/200 configuration.
func Default() *GoldenCross {
	return New(defaultFastPeriod, defaultSlowPeriod)
}

func (g *GoldenCross) Name() string {
	return "golden_cross"
}

func (g *GoldenCross) Description() string {
	return fmt.Sprintf("Golden Cross / Death Cross (SMA %d/%d)", g.fastPeriod, g.slowPeriod)
}

func (g *GoldenCross) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: g.slowPeriod + 1,
		Indicators:   []string{"SMA"},
	}
}

func (g *GoldenCross) Init(cfg strategy.Config) error {
	fast := strategy.IntParam(cfg.Params, "fast_period", g.fastPeriod)
	slow := strategy.IntParam(cfg.Params, "slow_period", g.slowPeriod)
	if fast <= 0 || slow <= fast {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("golden_cross: need 0 < fast_period < slow_period, got %d/%d", fast, slow))
	}
	g.fastPeriod = fast
	g.slowPeriod = slow
	return nil
}

func (g *GoldenCross) Signals(bars []core.OHLCV) ([]core.Action, error) {
	signals := make([]core.Action, len(bars))
	if len(bars) < 2 {
		return signals, nil
	}

	prices := core.Closes(bars)
	fast := indicator.SMA(prices, g.fastPeriod)
	slow := indicator.SMA(prices, g.slowPeriod)

	// Comparisons against NaN are false, so the warm-up window stays ActionNone.
	for i := 1; i < len(bars); i++ {
		switch {
		case slow[i-1] > fast[i-1] && slow[i] < fast[i]:
			signals[i] = core.ActionBuy
		case slow[i-1] < fast[i-1] && slow[i] > fast[i]:
			signals[i] = core.ActionSell
		}
	}

	return signals, nil
}
