package backtest

import (
	"math"
)

// CalculateStats computes performance statistics from a simulation result
func CalculateStats(res *Result, initialAccount float64) Stats {
	if res == nil || len(res.Ledger) == 0 {
		return Stats{}
	}

	var winning, losing, open int
	var totalPL float64
	var returns []float64

	for _, p := range res.Ledger {
		if !p.IsClosed() {
			open++
			continue
		}
		returns = append(returns, p.Return())
		totalPL += p.Exit.ProfitLoss
		if p.IsWin() {
			winning++
		} else {
			losing++
		}
	}

	closedTrades := winning + losing
	var winRate float64
	if closedTrades > 0 {
		winRate = float64(winning) / float64(closedTrades) * 100
	}

	var totalReturn float64
	if initialAccount > 0 {
		totalReturn = totalPL / initialAccount * 100
	}

	return Stats{
		TotalTrades:     len(res.Ledger),
		OpenTrades:      open,
		WinningTrades:   winning,
		LosingTrades:    losing,
		WinRate:         winRate,
		TotalProfitLoss: totalPL,
		TotalReturn:     totalReturn,
		MaxDrawdown:     calculateMaxDrawdown(initialAccount, res.Equity) * 100,
		SharpeRatio:     calculateSharpeRatio(returns),
	}
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of the account
func calculateMaxDrawdown(initial float64, equity []EquityPoint) float64 {
	var maxDD float64
	peak := initial

	for _, e := range equity {
		if e.Account > peak {
			peak = e.Account
		}
		if peak > 0 {
			dd := (peak - e.Account) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

// calculateSharpeRatio computes risk-adjusted return
// Assumes risk-free rate of 0 for simplicity
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}

	// Annualize (assuming ~252 trading days)
	annualizedReturn := mean * 252
	annualizedStdDev := stdDev * math.Sqrt(252)

	return annualizedReturn / annualizedStdDev
}
