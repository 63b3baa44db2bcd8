package indicator

import "github.com/newthinker/stratsim/internal/core"

// Standard periods of the indicator suite.
const (
	SMAPeriod        = 15
	EMAPeriod        = 20
	MACDFast         = 12
	MACDSlow         = 26
	MACDSignal       = 9
	BollingerPeriod  = 50
	BollingerStdDevs = 2
	RSIPeriod        = 14
	ADXPeriod        = 14
)

// Suite is every indicator computed over one bar series with the standard
// periods. All series have the length of the input.
type Suite struct {
	SMA       []float64
	EMA       []float64
	MACD      MACDResult
	Bollinger Bands
	RSI       []float64
	ADX       ADXResult
}

// Compute calculates the indicator suite for bars.
func Compute(bars []core.OHLCV) (Suite, error) {
	closes := core.Closes(bars)
	macd, err := MACD(closes, MACDFast, MACDSlow, MACDSignal)
	if err != nil {
		return Suite{}, err
	}
	return Suite{
		SMA:       SMA(closes, SMAPeriod),
		EMA:       EMA(closes, EMAPeriod),
		MACD:      macd,
		Bollinger: Bollinger(closes, BollingerPeriod, BollingerStdDevs),
		RSI:       RSI(closes, RSIPeriod),
		ADX:       ADX(bars, ADXPeriod),
	}, nil
}
