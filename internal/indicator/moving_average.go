// Package indicator implements stateless technical indicators. Every function
// returns a series aligned with its input: element i describes bar i, and bars
// inside the warm-up window hold NaN.
package indicator

import "math"

// nanSeries returns a slice of length n filled with NaN.
func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA calculates the Simple Moving Average over period bars.
func SMA(prices []float64, period int) []float64 {
	result := nanSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return result
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result[period-1] = sum / float64(period)

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result[i] = sum / float64(period)
	}

	return result
}

// EMA calculates the Exponential Moving Average with the conventional
// smoothing factor of 2. The first value is seeded with the SMA of the first
// period prices.
func EMA(prices []float64, period int) []float64 {
	return EMAWithSmoothing(prices, period, 2)
}

// EMAWithSmoothing calculates an EMA with multiplier smoothing/(1+period).
func EMAWithSmoothing(prices []float64, period int, smoothing float64) []float64 {
	result := nanSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return result
	}

	multiplier := smoothing / float64(period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)
	result[period-1] = ema

	for i := period; i < len(prices); i++ {
		ema = prices[i]*multiplier + ema*(1-multiplier)
		result[i] = ema
	}

	return result
}

// StdDev calculates the rolling sample standard deviation (n-1 denominator).
func StdDev(prices []float64, period int) []float64 {
	result := nanSeries(len(prices))
	if period < 2 || len(prices) < period {
		return result
	}

	for i := period - 1; i < len(prices); i++ {
		window := prices[i-period+1 : i+1]
		var mean float64
		for _, p := range window {
			mean += p
		}
		mean /= float64(period)

		var variance float64
		for _, p := range window {
			variance += (p - mean) * (p - mean)
		}
		result[i] = math.Sqrt(variance / float64(period-1))
	}

	return result
}
