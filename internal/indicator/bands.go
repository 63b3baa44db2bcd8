package indicator

// Bands holds Bollinger Band series aligned with the input prices.
type Bands struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// Bollinger calculates Bollinger Bands: an SMA middle line with upper and lower
// bands sitting deviations sample standard deviations away from it.
func Bollinger(prices []float64, period int, deviations float64) Bands {
	middle := SMA(prices, period)
	sd := StdDev(prices, period)

	upper := nanSeries(len(prices))
	lower := nanSeries(len(prices))
	for i := range prices {
		upper[i] = middle[i] + sd[i]*deviations
		lower[i] = middle[i] - sd[i]*deviations
	}

	return Bands{Middle: middle, Upper: upper, Lower: lower}
}
