package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestAction_String(t *testing.T) {
	actions := []Action{ActionNone, ActionBuy, ActionSell}
	expected := []string{"none", "buy", "sell"}

	for i, a := range actions {
		if a.String() != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], a)
		}
	}
}

func TestAction_ZeroValueIsNone(t *testing.T) {
	var a Action
	if a != ActionNone {
		t.Errorf("zero value = %v, want none", a)
	}
	if a.IsTrade() {
		t.Error("zero value must not be a trade")
	}
}

func TestAction_Opposite(t *testing.T) {
	if ActionBuy.Opposite() != ActionSell {
		t.Error("opposite of buy should be sell")
	}
	if ActionSell.Opposite() != ActionBuy {
		t.Error("opposite of sell should be buy")
	}
	if ActionNone.Opposite() != ActionNone {
		t.Error("opposite of none should be none")
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"Buy", ActionBuy, false},
		{"SELL", ActionSell, false},
		{"", ActionNone, false},
		{"None", ActionNone, false},
		{"hold", ActionNone, false},
		{"short", ActionNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAction(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAction(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAction_JSON(t *testing.T) {
	data, err := json.Marshal([]Action{ActionBuy, ActionNone, ActionSell})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["buy","none","sell"]` {
		t.Errorf("unexpected json: %s", data)
	}

	var back []Action
	if err := json.Unmarshal([]byte(`["sell","","buy"]`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[0] != ActionSell || back[1] != ActionNone || back[2] != ActionBuy {
		t.Errorf("unexpected actions: %v", back)
	}
}

func TestCountTrades(t *testing.T) {
	signals := []Action{ActionBuy, ActionNone, ActionSell, ActionNone, ActionBuy}
	if got := CountTrades(signals); got != 3 {
		t.Errorf("CountTrades = %d, want 3", got)
	}
}

func TestValidateSeries(t *testing.T) {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	good := []OHLCV{
		{Close: 10, Time: base},
		{Close: 11, Time: base.AddDate(0, 0, 1)},
	}
	if err := ValidateSeries(good); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	dup := []OHLCV{
		{Close: 10, Time: base},
		{Close: 11, Time: base},
	}
	if err := ValidateSeries(dup); !errors.Is(err, ErrInvalidData) {
		t.Errorf("expected ErrInvalidData for duplicate time, got %v", err)
	}

	zero := []OHLCV{{Close: 0, Time: base}}
	if err := ValidateSeries(zero); !errors.Is(err, ErrInvalidData) {
		t.Errorf("expected ErrInvalidData for zero close, got %v", err)
	}

	for _, c := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -5} {
		bars := []OHLCV{{Close: 10, Time: base}, {Close: c, Time: base.AddDate(0, 0, 1)}}
		if err := ValidateSeries(bars); !errors.Is(err, ErrInvalidData) {
			t.Errorf("expected ErrInvalidData for close %v, got %v", c, err)
		}
	}
}

func TestCloses(t *testing.T) {
	bars := []OHLCV{{Close: 1}, {Close: 2}, {Close: 3}}
	got := Closes(bars)
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("Closes = %v", got)
	}
}
