package bollinger

import (
	"fmt"

	"github.com/newthinker/stratsim/internal/core"
	"github.com/newthinker/stratsim/internal/indicator"
	"github.com/newthinker/stratsim/internal/strategy"
)

// Bands buys when the close touches the lower Bollinger Band and sells when it
// touches the upper band.
type Bands struct {
	period     int
	deviations float64
}

// New creates a new Bollinger Band strategy
func New(period int, deviations float64) *Bands {
	return &Bands{period: period, deviations: deviations}
}

// Default returns the SMA(50), 2 standard deviation configuration.
func Default() *Bands {
	return New(50, 2)
}

func (b *Bands) Name() string {
	return "bollinger"
}

func (b *Bands) Description() string {
	return fmt.Sprintf("Bollinger Bands buy lower / sell upper (SMA %d, %.1fσ)", b.period, b.deviations)
}

func (b *Bands) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: b.period,
		Indicators:   []string{"SMA", "STDDEV"},
	}
}

func (b *Bands) Init(cfg strategy.Config) error {
	period := strategy.IntParam(cfg.Params, "period", b.period)
	deviations := strategy.FloatParam(cfg.Params, "deviations", b.deviations)
	if period < 2 || deviations <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("bollinger: need period >= 2 and deviations > 0, got %d/%v", period, deviations))
	}
	b.period = period
	b.deviations = deviations
	return nil
}

func (b *Bands) Signals(bars []core.OHLCV) ([]core.Action, error) {
	signals := make([]core.Action, len(bars))
	bands := indicator.Bollinger(core.Closes(bars), b.period, b.deviations)

	for i, bar := range bars {
		switch {
		case bar.Close <= bands.Lower[i]:
			signals[i] = core.ActionBuy
		case bar.Close >= bands.Upper[i]:
			signals[i] = core.ActionSell
		}
	}

	return signals, nil
}
