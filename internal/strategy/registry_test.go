package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/stratsim/internal/core"
)

type mockStrategy struct {
	name    string
	signals []core.Action
	err     error
}

func (m *mockStrategy) Name() string        { return m.name }
func (m *mockStrategy) Description() string { return "mock strategy" }
func (m *mockStrategy) RequiredData() DataRequirements {
	return DataRequirements{PriceHistory: 1}
}
func (m *mockStrategy) Init(cfg Config) error { return nil }
func (m *mockStrategy) Signals(bars []core.OHLCV) ([]core.Action, error) {
	return m.signals, m.err
}

func TestRegistry_RegisterAndGenerate(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockStrategy{
		name:    "mock",
		signals: []core.Action{core.ActionBuy, core.ActionNone},
	})

	bars := []core.OHLCV{{Close: 1}, {Close: 2}}
	signals, err := reg.Generate(context.Background(), "mock", bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(signals))
	}
	if signals[0] != core.ActionBuy {
		t.Errorf("expected Buy action, got %s", signals[0])
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockStrategy{name: "b"})
	reg.Register(&mockStrategy{name: "a"})

	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
}

func TestRegistry_GenerateUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Generate(context.Background(), "missing", nil)
	if !errors.Is(err, core.ErrStrategyNotFound) {
		t.Errorf("expected ErrStrategyNotFound, got %v", err)
	}
}

func TestRegistry_GenerateMisaligned(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockStrategy{name: "short", signals: []core.Action{core.ActionBuy}})

	_, err := reg.Generate(context.Background(), "short", []core.OHLCV{{Close: 1}, {Close: 2}})
	if !errors.Is(err, core.ErrStrategyFailed) {
		t.Errorf("expected ErrStrategyFailed, got %v", err)
	}
}

func TestRegistry_GenerateStrategyError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockStrategy{name: "broken", err: errors.New("boom")})

	_, err := reg.Generate(context.Background(), "broken", []core.OHLCV{{Close: 1}})
	if !errors.Is(err, core.ErrStrategyFailed) {
		t.Errorf("expected ErrStrategyFailed, got %v", err)
	}
}

func TestRegistry_GenerateCancelled(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockStrategy{name: "mock"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := reg.Generate(ctx, "mock", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIntParam(t *testing.T) {
	params := map[string]any{"a": 5, "b": int64(6), "c": 7.0, "d": "x"}
	if IntParam(params, "a", 0) != 5 || IntParam(params, "b", 0) != 6 || IntParam(params, "c", 0) != 7 {
		t.Error("numeric params not decoded")
	}
	if IntParam(params, "d", 9) != 9 || IntParam(params, "missing", 9) != 9 {
		t.Error("expected default for non-numeric/missing params")
	}
	if FloatParam(params, "a", 0) != 5 || FloatParam(params, "missing", 1.5) != 1.5 {
		t.Error("float params not decoded")
	}
}
