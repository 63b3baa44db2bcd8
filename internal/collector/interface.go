package collector

import (
	"context"
	"time"

	"github.com/newthinker/stratsim/internal/core"
)

// Config holds collector configuration
type Config struct {
	Enabled  bool
	Interval string
	Path     string // file or directory for file-backed sources
	Extra    map[string]any
}

// Collector loads historical price bars for a symbol
type Collector interface {
	Name() string
	Init(cfg Config) error

	// FetchHistory returns the bars of symbol with start <= Time <= end,
	// ordered by time.
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}
