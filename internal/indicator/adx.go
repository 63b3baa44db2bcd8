package indicator

import (
	"math"

	"github.com/newthinker/stratsim/internal/core"
)

// ADXResult holds the directional indicators and the Average Directional Index.
type ADXResult struct {
	PlusDI  []float64
	MinusDI []float64
	ADX     []float64
}

// ADX calculates Wilder's Average Directional Index. +DI/-DI become available
// at index period and ADX at index 2*period.
func ADX(bars []core.OHLCV, period int) ADXResult {
	n := len(bars)
	res := ADXResult{PlusDI: nanSeries(n), MinusDI: nanSeries(n), ADX: nanSeries(n)}
	if period <= 0 || n <= period {
		return res
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := bars[i].High - bars[i-1].High
		downMove := bars[i-1].Low - bars[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = math.Max(bars[i].High, bars[i-1].Close) - math.Min(bars[i].Low, bars[i-1].Close)
	}

	var atr, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		atr += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}
	p := float64(period)
	atr /= p
	smPlus /= p
	smMinus /= p

	dx := nanSeries(n)
	for i := period; i < n; i++ {
		if i > period {
			atr = (atr*(p-1) + tr[i]) / p
			smPlus = (smPlus*(p-1) + plusDM[i]) / p
			smMinus = (smMinus*(p-1) + minusDM[i]) / p
		}
		if atr == 0 {
			continue
		}
		res.PlusDI[i] = 100 * smPlus / atr
		res.MinusDI[i] = 100 * smMinus / atr
		if sum := res.PlusDI[i] + res.MinusDI[i]; sum != 0 {
			dx[i] = 100 * math.Abs(res.PlusDI[i]-res.MinusDI[i]) / sum
		}
	}

	if n <= 2*period {
		return res
	}

	var adx float64
	for i := period; i <= 2*period; i++ {
		adx += dx[i]
	}
	adx /= p + 1
	res.ADX[2*period] = adx
	for i := 2*period + 1; i < n; i++ {
		adx = (adx*(p-1) + dx[i]) / p
		res.ADX[i] = adx
	}

	return res
}
