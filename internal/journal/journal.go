// Package journal records simulation runs and their ledgers in SQLite.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/newthinker/stratsim/internal/core"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    strategy TEXT NOT NULL,
    symbol TEXT NOT NULL,
    start_date INTEGER NOT NULL,
    end_date INTEGER NOT NULL,
    initial_account REAL NOT NULL,
    risk_per_trade REAL NOT NULL,
    total_accepted_risk REAL NOT NULL,
    force_close INTEGER NOT NULL,
    final_account REAL NOT NULL,
    frozen_funds REAL NOT NULL,
    bankrupt INTEGER NOT NULL,
    halted_at INTEGER NOT NULL,
    rejected INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy, created_at);

CREATE TABLE IF NOT EXISTS positions (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    action TEXT NOT NULL,
    entry_price REAL NOT NULL,
    opened_on INTEGER NOT NULL,
    shares INTEGER NOT NULL,
    total_investment REAL NOT NULL,
    closing_price REAL,
    closed_on INTEGER,
    profit_loss REAL,
    PRIMARY KEY (run_id, seq)
);
`

// Run is the journal summary row of one simulation.
type Run struct {
	ID           string          `json:"id"`
	Strategy     string          `json:"strategy"`
	Symbol       string          `json:"symbol"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	Params       backtest.Params `json:"params"`
	FinalAccount float64         `json:"final_account"`
	FrozenFunds  float64         `json:"frozen_funds"`
	Bankrupt     bool            `json:"bankrupt"`
	HaltedAt     int             `json:"halted_at"`
	Rejected     int             `json:"rejected"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Journal wraps the SQL handle.
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (and creates if needed) the SQLite database at path and
// applies the schema. ":memory:" opens a private in-memory database.
func Open(path string, logger ...*zap.Logger) (*Journal, error) {
	if path == "" {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("journal path is empty"))
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; also keeps :memory: alive
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Journal{db: db, logger: l}, nil
}

// Close releases the underlying DB handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// SaveReport implements backtest.ReportSink. The run and its ledger are
// written in one transaction.
func (j *Journal) SaveReport(ctx context.Context, report *backtest.Report) error {
	if report.Result == nil {
		return core.WrapError(core.ErrInvalidArgument, errors.New("report has no result"))
	}
	res := report.Result

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	created := report.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, strategy, symbol, start_date, end_date,
			initial_account, risk_per_trade, total_accepted_risk, force_close,
			final_account, frozen_funds, bankrupt, halted_at, rejected, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.Strategy, report.Symbol,
		report.StartDate.UnixNano(), report.EndDate.UnixNano(),
		report.Params.InitialAccount, report.Params.RiskPerTrade, report.Params.TotalAcceptedRisk,
		report.Params.ForceCloseAtEnd,
		res.FinalAccount, res.FrozenFunds, res.Bankrupt, res.HaltedAt, res.Rejected,
		created.UnixNano())
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("insert run: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (run_id, seq, action, entry_price, opened_on, shares,
			total_investment, closing_price, closed_on, profit_loss)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("prepare positions: %w", err))
	}
	defer stmt.Close()

	for i, p := range res.Ledger {
		var closingPrice, profitLoss sql.NullFloat64
		var closedOn sql.NullInt64
		if p.Exit != nil {
			closingPrice = sql.NullFloat64{Float64: p.Exit.ClosingPrice, Valid: true}
			closedOn = sql.NullInt64{Int64: p.Exit.ClosedOn.UnixNano(), Valid: true}
			profitLoss = sql.NullFloat64{Float64: p.Exit.ProfitLoss, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, report.ID, i, p.Action.String(), p.EntryPrice,
			p.OpenedOn.UnixNano(), p.NumberOfShares, p.TotalInvestment,
			closingPrice, closedOn, profitLoss); err != nil {
			return core.WrapError(core.ErrStorageFailed, fmt.Errorf("insert position %d: %w", i, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("commit: %w", err))
	}

	j.logger.Debug("run journaled",
		zap.String("id", report.ID),
		zap.Int("positions", len(res.Ledger)),
	)
	return nil
}

const runColumns = `id, strategy, symbol, start_date, end_date, initial_account,
	risk_per_trade, total_accepted_risk, force_close, final_account, frozen_funds,
	bankrupt, halted_at, rejected, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var start, end, created int64
	if err := s.Scan(&r.ID, &r.Strategy, &r.Symbol, &start, &end,
		&r.Params.InitialAccount, &r.Params.RiskPerTrade, &r.Params.TotalAcceptedRisk,
		&r.Params.ForceCloseAtEnd, &r.FinalAccount, &r.FrozenFunds,
		&r.Bankrupt, &r.HaltedAt, &r.Rejected, &created); err != nil {
		return nil, err
	}
	r.StartDate = fromNanos(start)
	r.EndDate = fromNanos(end)
	r.CreatedAt = fromNanos(created)
	return &r, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// GetRun returns the run with the given ID.
func (j *Journal) GetRun(ctx context.Context, id string) (*Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("run %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first. An empty strategy
// lists all strategies; limit <= 0 means no limit.
func (j *Journal) ListRuns(ctx context.Context, strategy string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE (? = '' OR strategy = ?)
		ORDER BY created_at DESC, id
		LIMIT ?
	`, strategy, strategy, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// ListPositions returns the ledger of a run in opening order.
func (j *Journal) ListPositions(ctx context.Context, runID string) ([]backtest.Position, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT action, entry_price, opened_on, shares, total_investment,
			closing_price, closed_on, profit_loss
		FROM positions
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var ledger []backtest.Position
	for rows.Next() {
		var p backtest.Position
		var action string
		var opened int64
		var closingPrice, profitLoss sql.NullFloat64
		var closedOn sql.NullInt64
		if err := rows.Scan(&action, &p.EntryPrice, &opened, &p.NumberOfShares, &p.TotalInvestment,
			&closingPrice, &closedOn, &profitLoss); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		if p.Action, err = core.ParseAction(action); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		p.OpenedOn = fromNanos(opened)
		if closedOn.Valid {
			p.Exit = &backtest.Exit{
				ClosingPrice: closingPrice.Float64,
				ClosedOn:     fromNanos(closedOn.Int64),
				ProfitLoss:   profitLoss.Float64,
			}
		}
		ledger = append(ledger, p)
	}
	return ledger, rows.Err()
}

// DeleteRun removes a run and its ledger.
func (j *Journal) DeleteRun(ctx context.Context, id string) error {
	res, err := j.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.WrapError(core.ErrNotFound, fmt.Errorf("run %s", id))
	}
	return nil
}
