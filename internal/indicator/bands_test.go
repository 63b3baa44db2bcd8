package indicator

import (
	"math"
	"testing"
)

func TestBollinger_FlatSeriesCollapses(t *testing.T) {
	prices := []float64{5, 5, 5, 5, 5}
	b := Bollinger(prices, 3, 2)

	if !math.IsNaN(b.Upper[1]) {
		t.Errorf("expected NaN during warm-up, got %f", b.Upper[1])
	}
	for i := 2; i < len(prices); i++ {
		if b.Upper[i] != 5 || b.Lower[i] != 5 || b.Middle[i] != 5 {
			t.Errorf("bar %d: bands should collapse to 5, got %f/%f/%f", i, b.Lower[i], b.Middle[i], b.Upper[i])
		}
	}
}

func TestBollinger_Symmetric(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6}
	b := Bollinger(prices, 3, 2)

	for i := 2; i < len(prices); i++ {
		up := b.Upper[i] - b.Middle[i]
		down := b.Middle[i] - b.Lower[i]
		if !almostEqual(up, down, 1e-9) {
			t.Errorf("bar %d: bands not symmetric (%f vs %f)", i, up, down)
		}
		// window of consecutive integers has sample stddev 1
		if !almostEqual(up, 2, 1e-9) {
			t.Errorf("bar %d: band width = %f, want 2", i, up)
		}
	}
}
