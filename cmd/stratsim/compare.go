package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/spf13/cobra"
)

var (
	cmpSymbol     string
	cmpFrom       string
	cmpTo         string
	cmpStrategies []string
	cmpDaily      bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare cumulative P&L of several strategies",
	Long: `Run several strategies on the same price history, closing every position
at the end, and print each strategy's cumulative realized profit and loss.`,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&cmpSymbol, "symbol", "", "Symbol to simulate (required)")
	compareCmd.Flags().StringVar(&cmpFrom, "from", "", "Start date YYYY-MM-DD (required)")
	compareCmd.Flags().StringVar(&cmpTo, "to", "", "End date YYYY-MM-DD (required)")
	compareCmd.Flags().StringSliceVar(&cmpStrategies, "strategies", nil, "Strategies to compare (default: all registered)")
	compareCmd.Flags().BoolVar(&cmpDaily, "daily", false, "Print the cumulative P&L of every bar")

	compareCmd.MarkFlagRequired("symbol")
	compareCmd.MarkFlagRequired("from")
	compareCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	fromDate, toDate, err := parseDates(cmpFrom, cmpTo)
	if err != nil {
		return err
	}

	c, err := build(false)
	if err != nil {
		return err
	}
	defer c.Close()

	names := cmpStrategies
	if len(names) == 0 {
		names = c.strategies.Names()
	}
	limits := make([]backtest.RiskLimits, len(names))
	for i, name := range names {
		limits[i] = c.limits(name)
	}

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	cmp, err := c.backtester.Compare(ctx, backtest.CompareRequest{
		Symbol:         cmpSymbol,
		Start:          fromDate,
		End:            toDate,
		Interval:       c.cfg.Data.Interval,
		InitialAccount: c.cfg.Simulation.InitialAccount,
		Strategies:     names,
		Limits:         limits,
	})
	if err != nil {
		return err
	}

	printComparison(cmd.OutOrStdout(), cmpSymbol, cmp, cmpDaily)
	return nil
}

func printComparison(w io.Writer, symbol string, cmp *backtest.Comparison, daily bool) {
	fmt.Fprintln(w, "=== stratsim Comparison ===")
	fmt.Fprintf(w, "Symbol: %s\n\n", symbol)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	if daily {
		fmt.Fprint(tw, "DATE\t")
		for _, name := range cmp.Names {
			fmt.Fprintf(tw, "%s\t", name)
		}
		fmt.Fprintln(tw)
		for i, d := range cmp.Dates {
			fmt.Fprintf(tw, "%s\t", d.Format(dateLayout))
			for _, name := range cmp.Names {
				fmt.Fprintf(tw, "%.2f\t", cmp.Series[name][i])
			}
			fmt.Fprintln(tw)
		}
		fmt.Fprintln(tw)
	}

	fmt.Fprintln(tw, "STRATEGY\tCUMULATIVE P&L\tFINAL ACCOUNT\tTRADES\tBANKRUPT\t")
	for _, name := range cmp.Names {
		res := cmp.Results[name]
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%d\t%t\t\n",
			name, cmp.Final(name), res.FinalAccount, len(res.ClosedPositions()), res.Bankrupt)
	}
	tw.Flush()
}
