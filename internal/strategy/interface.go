package strategy

import (
	"github.com/newthinker/stratsim/internal/core"
)

// Config holds strategy configuration
type Config struct {
	Enabled bool
	Params  map[string]any
}

// DataRequirements specifies what data a strategy needs
type DataRequirements struct {
	PriceHistory int // Bars needed before the first signal can be produced
	Indicators   []string
}

// Strategy maps a price series to a per-bar signal sequence. Implementations
// must return exactly one Action per input bar.
type Strategy interface {
	Name() string
	Description() string
	RequiredData() DataRequirements
	Init(cfg Config) error
	Signals(bars []core.OHLCV) ([]core.Action, error)
}
