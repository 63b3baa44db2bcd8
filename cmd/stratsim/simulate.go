package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var (
	simSymbol         string
	simFrom           string
	simTo             string
	simLedger         string
	simInitialAccount float64
	simRiskPerTrade   float64
	simTotalRisk      float64
	simNoForceClose   bool
	simNoSave         bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [strategy]",
	Short: "Simulate a strategy on historical prices",
	Long:  "Run a strategy against historical data, print performance statistics and optionally export the ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simSymbol, "symbol", "", "Symbol to simulate (required)")
	simulateCmd.Flags().StringVar(&simFrom, "from", "", "Start date YYYY-MM-DD (required)")
	simulateCmd.Flags().StringVar(&simTo, "to", "", "End date YYYY-MM-DD (required)")
	simulateCmd.Flags().StringVar(&simLedger, "ledger", "", "Write the ledger as CSV to this file (- for stdout)")
	simulateCmd.Flags().Float64Var(&simInitialAccount, "initial-account", 0, "Starting account balance")
	simulateCmd.Flags().Float64Var(&simRiskPerTrade, "risk-per-trade", 0, "Fraction of the account committed per position")
	simulateCmd.Flags().Float64Var(&simTotalRisk, "total-risk", 0, "Ceiling on frozen funds as a fraction of the account")
	simulateCmd.Flags().BoolVar(&simNoForceClose, "no-force-close", false, "Leave positions open at the end of the series")
	simulateCmd.Flags().BoolVar(&simNoSave, "no-save", false, "Do not archive or journal the report")

	simulateCmd.MarkFlagRequired("symbol")
	simulateCmd.MarkFlagRequired("from")
	simulateCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(simulateCmd)
}

func parseDates(from, to string) (time.Time, time.Time, error) {
	fromDate, err := time.Parse(dateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
	}
	toDate, err := time.Parse(dateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
	}
	if !toDate.After(fromDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date must be after start date")
	}
	return fromDate, toDate, nil
}

// simulationParams applies the command line overrides to the configured
// defaults.
func simulationParams(cmd *cobra.Command, defaults backtest.Params) backtest.Params {
	p := defaults
	if cmd.Flags().Changed("initial-account") {
		p.InitialAccount = simInitialAccount
	}
	if cmd.Flags().Changed("risk-per-trade") {
		p.RiskPerTrade = simRiskPerTrade
	}
	if cmd.Flags().Changed("total-risk") {
		p.TotalAcceptedRisk = simTotalRisk
	}
	if simNoForceClose {
		p.ForceCloseAtEnd = false
	}
	return p
}

func runSimulate(cmd *cobra.Command, args []string) error {
	name := args[0]

	fromDate, toDate, err := parseDates(simFrom, simTo)
	if err != nil {
		return err
	}

	c, err := build(!simNoSave)
	if err != nil {
		return err
	}
	defer c.Close()

	params := c.defaults()
	if cfg, ok := c.cfg.Strategies[name]; ok {
		params.RiskPerTrade, params.TotalAcceptedRisk = cfg.Limits(c.cfg.Simulation)
	}
	params = simulationParams(cmd, params)

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	report, err := c.backtester.Run(ctx, backtest.Request{
		Strategy: name,
		Symbol:   simSymbol,
		Start:    fromDate,
		End:      toDate,
		Interval: c.cfg.Data.Interval,
		Params:   params,
	})
	if report == nil {
		return err
	}
	if err != nil {
		// the simulation finished but persisting it did not
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	out := cmd.OutOrStdout()
	printReport(out, report)

	if simLedger != "" {
		if err := writeLedger(simLedger, out, report.Result.Ledger); err != nil {
			return err
		}
	}
	return nil
}

func printReport(w io.Writer, r *backtest.Report) {
	res, s := r.Result, r.Stats

	fmt.Fprintln(w, "=== stratsim Simulation ===")
	fmt.Fprintf(w, "Run:      %s\n", r.ID)
	fmt.Fprintf(w, "Strategy: %s\n", r.Strategy)
	fmt.Fprintf(w, "Symbol:   %s\n", r.Symbol)
	fmt.Fprintf(w, "Period:   %s to %s (%d bars, %d signals)\n",
		r.StartDate.Format(dateLayout), r.EndDate.Format(dateLayout), r.Bars, r.Signals)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Initial account:  %.2f\n", r.Params.InitialAccount)
	fmt.Fprintf(w, "Final account:    %.2f\n", res.FinalAccount)
	fmt.Fprintf(w, "Frozen funds:     %.2f\n", res.FrozenFunds)
	fmt.Fprintf(w, "Realized P&L:     %.2f (%.2f%%)\n", s.TotalProfitLoss, s.TotalReturn)
	fmt.Fprintf(w, "Closed trades:    %d (%d won, %d lost, win rate %.1f%%)\n",
		s.TotalTrades, s.WinningTrades, s.LosingTrades, s.WinRate)
	fmt.Fprintf(w, "Open positions:   %d\n", s.OpenTrades)
	fmt.Fprintf(w, "Risk rejections:  %d\n", res.Rejected)
	fmt.Fprintf(w, "Max drawdown:     %.2f%%\n", s.MaxDrawdown)
	fmt.Fprintf(w, "Sharpe ratio:     %.2f\n", s.SharpeRatio)
	if res.Bankrupt {
		fmt.Fprintf(w, "BANKRUPT at bar %d\n", res.HaltedAt)
	}
}

func writeLedger(path string, stdout io.Writer, ledger []backtest.Position) error {
	if path == "-" {
		return backtest.WriteLedgerCSV(stdout, ledger)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating ledger file: %w", err)
	}
	if err := backtest.WriteLedgerCSV(f, ledger); err != nil {
		f.Close()
		return fmt.Errorf("writing ledger: %w", err)
	}
	return f.Close()
}

// withSignals returns a context cancelled on SIGINT or SIGTERM.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
