package indicator

import (
	"fmt"
	"math"

	"github.com/newthinker/stratsim/internal/core"
)

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates Moving Average Convergence Divergence. The signal line is an
// EMA of the MACD line seeded with the mean of its first signalPeriod values.
func MACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) (MACDResult, error) {
	if slowPeriod <= fastPeriod {
		return MACDResult{}, core.WrapError(core.ErrInvalidArgument,
			fmt.Errorf("slow period %d must be larger than fast period %d", slowPeriod, fastPeriod))
	}
	if fastPeriod <= 0 || signalPeriod <= 0 {
		return MACDResult{}, core.WrapError(core.ErrInvalidArgument,
			fmt.Errorf("periods must be positive"))
	}

	fast := EMA(prices, fastPeriod)
	slow := EMA(prices, slowPeriod)

	macd := nanSeries(len(prices))
	for i := range prices {
		macd[i] = fast[i] - slow[i]
	}

	signal := nanSeries(len(prices))
	first := slowPeriod - 1
	if len(prices) >= first+signalPeriod {
		multiplier := 2.0 / float64(signalPeriod+1)
		var sum float64
		for i := first; i < first+signalPeriod; i++ {
			sum += macd[i]
		}
		line := sum / float64(signalPeriod)
		signal[first+signalPeriod-1] = line
		for i := first + signalPeriod; i < len(prices); i++ {
			line = macd[i]*multiplier + line*(1-multiplier)
			signal[i] = line
		}
	}

	histogram := nanSeries(len(prices))
	for i := range prices {
		histogram[i] = macd[i] - signal[i]
	}

	return MACDResult{MACD: macd, Signal: signal, Histogram: histogram}, nil
}

// RSI calculates the Relative Strength Index using Wilder's smoothed moving
// average of up and down moves. The first value is available at index period.
func RSI(prices []float64, period int) []float64 {
	result := nanSeries(len(prices))
	if period <= 0 || len(prices) <= period {
		return result
	}

	up := make([]float64, len(prices))
	down := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		if change := prices[i] - prices[i-1]; change >= 0 {
			up[i] = change
		} else {
			down[i] = -change
		}
	}

	var avgUp, avgDown float64
	for i := 1; i <= period; i++ {
		avgUp += up[i]
		avgDown += down[i]
	}
	avgUp /= float64(period)
	avgDown /= float64(period)
	result[period] = rsiValue(avgUp, avgDown)

	for i := period + 1; i < len(prices); i++ {
		avgUp = (avgUp*float64(period-1) + up[i]) / float64(period)
		avgDown = (avgDown*float64(period-1) + down[i]) / float64(period)
		result[i] = rsiValue(avgUp, avgDown)
	}

	return result
}

func rsiValue(avgUp, avgDown float64) float64 {
	if avgDown == 0 {
		if avgUp == 0 {
			return math.NaN()
		}
		return 100
	}
	return 100 - 100/(1+avgUp/avgDown)
}
