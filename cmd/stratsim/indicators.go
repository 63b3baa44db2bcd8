package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/newthinker/stratsim/internal/core"
	"github.com/newthinker/stratsim/internal/indicator"
	"github.com/spf13/cobra"
)

var (
	indSymbol string
	indFrom   string
	indTo     string
	indOut    string
)

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "Export technical indicators for a symbol",
	Long: fmt.Sprintf("Compute SMA(%d), EMA(%d), MACD(%d,%d,%d), Bollinger(%d,%d), RSI(%d) and ADX(%d) over historical prices and write them as CSV",
		indicator.SMAPeriod, indicator.EMAPeriod, indicator.MACDFast, indicator.MACDSlow, indicator.MACDSignal,
		indicator.BollingerPeriod, indicator.BollingerStdDevs, indicator.RSIPeriod, indicator.ADXPeriod),
	Args: cobra.NoArgs,
	RunE: runIndicators,
}

func init() {
	indicatorsCmd.Flags().StringVar(&indSymbol, "symbol", "", "Symbol to analyze (required)")
	indicatorsCmd.Flags().StringVar(&indFrom, "from", "", "Start date YYYY-MM-DD (required)")
	indicatorsCmd.Flags().StringVar(&indTo, "to", "", "End date YYYY-MM-DD (required)")
	indicatorsCmd.Flags().StringVarP(&indOut, "out", "o", "-", "Output file (- for stdout)")

	indicatorsCmd.MarkFlagRequired("symbol")
	indicatorsCmd.MarkFlagRequired("from")
	indicatorsCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(indicatorsCmd)
}

func runIndicators(cmd *cobra.Command, args []string) error {
	fromDate, toDate, err := parseDates(indFrom, indTo)
	if err != nil {
		return err
	}

	c, err := build(false)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	bars, err := c.backtester.History(ctx, indSymbol, fromDate, toDate, c.cfg.Data.Interval)
	if err != nil {
		return err
	}
	suite, err := indicator.Compute(bars)
	if err != nil {
		return err
	}

	if indOut == "-" {
		return writeIndicators(cmd.OutOrStdout(), bars, suite)
	}
	f, err := os.Create(indOut)
	if err != nil {
		return fmt.Errorf("creating indicators file: %w", err)
	}
	if err := writeIndicators(f, bars, suite); err != nil {
		f.Close()
		return fmt.Errorf("writing indicators: %w", err)
	}
	return f.Close()
}

var indicatorHeader = []string{
	"date", "close",
	"sma", "ema",
	"macd", "macd_signal", "macd_histogram",
	"bb_middle", "bb_upper", "bb_lower",
	"rsi", "plus_di", "minus_di", "adx",
}

// writeIndicators writes one row per bar. Warm-up cells are left empty.
func writeIndicators(w io.Writer, bars []core.OHLCV, s indicator.Suite) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(indicatorHeader); err != nil {
		return err
	}
	for i, b := range bars {
		row := []string{
			b.Time.Format(dateLayout),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			cell(s.SMA[i]), cell(s.EMA[i]),
			cell(s.MACD.MACD[i]), cell(s.MACD.Signal[i]), cell(s.MACD.Histogram[i]),
			cell(s.Bollinger.Middle[i]), cell(s.Bollinger.Upper[i]), cell(s.Bollinger.Lower[i]),
			cell(s.RSI[i]), cell(s.ADX.PlusDI[i]), cell(s.ADX.MinusDI[i]), cell(s.ADX.ADX[i]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
