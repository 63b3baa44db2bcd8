package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var ledgerHeader = []string{
	"action", "entry_price", "opened_on", "number_of_shares", "total_investment",
	"closing_price", "closed_on", "profit_loss",
}

// WriteLedgerCSV writes the ledger as CSV, one row per position in opening
// order. Exit columns are empty for positions that are still open.
func WriteLedgerCSV(w io.Writer, ledger []Position) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledgerHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, p := range ledger {
		row := []string{
			p.Action.String(),
			formatFloat(p.EntryPrice),
			p.OpenedOn.Format(time.RFC3339),
			strconv.FormatInt(p.NumberOfShares, 10),
			formatFloat(p.TotalInvestment),
			"", "", "",
		}
		if p.Exit != nil {
			row[5] = formatFloat(p.Exit.ClosingPrice)
			row[6] = p.Exit.ClosedOn.Format(time.RFC3339)
			row[7] = formatFloat(p.Exit.ProfitLoss)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing position %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
