package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/newthinker/stratsim/internal/core"
)

func trendingBars(n int) []core.OHLCV {
	bars := make([]core.OHLCV, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		p := 100 + float64(i)
		bars[i] = core.OHLCV{Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Time: base.AddDate(0, 0, i)}
	}
	return bars
}

func TestADX_Uptrend(t *testing.T) {
	period := 5
	res := ADX(trendingBars(20), period)

	if !math.IsNaN(res.PlusDI[period-1]) {
		t.Errorf("+DI should be NaN before index %d", period)
	}
	if !math.IsNaN(res.ADX[2*period-1]) {
		t.Errorf("ADX should be NaN before index %d", 2*period)
	}

	for i := period; i < 20; i++ {
		if res.PlusDI[i] <= res.MinusDI[i] {
			t.Errorf("bar %d: +DI %f should exceed -DI %f in an uptrend", i, res.PlusDI[i], res.MinusDI[i])
		}
	}
	// pure uptrend: -DM is always zero so DX is 100
	if !almostEqual(res.ADX[19], 100, 1e-9) {
		t.Errorf("ADX = %f, want 100", res.ADX[19])
	}
}

func TestADX_NotEnoughData(t *testing.T) {
	res := ADX(trendingBars(3), 14)
	for i := range res.ADX {
		if !math.IsNaN(res.ADX[i]) || !math.IsNaN(res.PlusDI[i]) {
			t.Errorf("bar %d: expected NaN output", i)
		}
	}
}
