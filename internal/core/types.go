package core

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// OHLCV represents a candlestick/bar
type OHLCV struct {
	Symbol   string    `json:"symbol,omitempty"`
	Interval string    `json:"interval,omitempty"` // "1m", "5m", "1d"
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume,omitempty"`
	Time     time.Time `json:"time"`
}

// Action is the per-bar directive produced by a signal generator.
// The zero value is ActionNone.
type Action int8

const (
	ActionNone Action = iota
	ActionBuy
	ActionSell
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "none"
	}
}

// Opposite returns the closing direction of a position opened with a.
func (a Action) Opposite() Action {
	switch a {
	case ActionBuy:
		return ActionSell
	case ActionSell:
		return ActionBuy
	default:
		return ActionNone
	}
}

// IsTrade reports whether the action opens a position.
func (a Action) IsTrade() bool {
	return a == ActionBuy || a == ActionSell
}

// ParseAction converts a textual signal into an Action. Empty strings and
// "none"/"null" map to ActionNone.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return ActionBuy, nil
	case "sell":
		return ActionSell, nil
	case "", "none", "null", "hold":
		return ActionNone, nil
	}
	return ActionNone, fmt.Errorf("unknown action %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// CountTrades returns how many entries in signals are Buy or Sell.
func CountTrades(signals []Action) int {
	n := 0
	for _, s := range signals {
		if s.IsTrade() {
			n++
		}
	}
	return n
}

// Closes extracts the closing prices of a bar series.
func Closes(bars []OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// ValidateSeries checks that bars are strictly ordered by time and carry
// finite positive closing prices.
func ValidateSeries(bars []OHLCV) error {
	for i, b := range bars {
		if !(b.Close > 0) || math.IsInf(b.Close, 1) {
			return WrapError(ErrInvalidData, fmt.Errorf("bar %d: close must be finite and positive, got %v", i, b.Close))
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return WrapError(ErrInvalidData, fmt.Errorf("bar %d: time %s not after %s", i,
				b.Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339)))
		}
	}
	return nil
}
