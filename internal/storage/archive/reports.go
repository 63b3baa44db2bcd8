package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/newthinker/stratsim/internal/core"
	"go.uber.org/zap"
)

const reportsRoot = "reports"

// Reports stores backtest reports as JSON, with the ledger alongside as CSV:
//
//	reports/<strategy>/<symbol>/<id>.json
//	reports/<strategy>/<symbol>/<id>.ledger.csv
type Reports struct {
	store  Storage
	logger *zap.Logger
}

// NewReports wraps a storage backend.
func NewReports(store Storage, logger ...*zap.Logger) *Reports {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Reports{store: store, logger: l}
}

func reportDir(strategy, symbol string) string {
	return path.Join(reportsRoot, safeSegment(strategy), safeSegment(symbol))
}

func safeSegment(s string) string {
	s = strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(s)
	if s == "" {
		return "_"
	}
	return s
}

// SaveReport implements backtest.ReportSink.
func (r *Reports) SaveReport(ctx context.Context, report *backtest.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("encoding report: %w", err))
	}

	dir := reportDir(report.Strategy, report.Symbol)
	if err := r.store.Write(ctx, path.Join(dir, report.ID+".json"), data); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}

	if report.Result != nil {
		var buf bytes.Buffer
		if err := backtest.WriteLedgerCSV(&buf, report.Result.Ledger); err != nil {
			return core.WrapError(core.ErrStorageFailed, err)
		}
		if err := r.store.Write(ctx, path.Join(dir, report.ID+".ledger.csv"), buf.Bytes()); err != nil {
			return core.WrapError(core.ErrStorageFailed, err)
		}
	}

	r.logger.Debug("report archived",
		zap.String("id", report.ID),
		zap.String("dir", dir),
	)
	return nil
}

// List returns the IDs of the archived reports of a strategy, optionally
// narrowed to one symbol.
func (r *Reports) List(ctx context.Context, strategy, symbol string) ([]string, error) {
	prefix := path.Join(reportsRoot, safeSegment(strategy))
	if symbol != "" {
		prefix = reportDir(strategy, symbol)
	}
	paths, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.HasSuffix(p, ".json") {
			ids = append(ids, strings.TrimSuffix(path.Base(p), ".json"))
		}
	}
	return ids, nil
}

// Get finds a report by ID anywhere in the archive.
func (r *Reports) Get(ctx context.Context, id string) (*backtest.Report, error) {
	paths, err := r.store.List(ctx, reportsRoot)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	name := id + ".json"
	for _, p := range paths {
		if path.Base(p) != name {
			continue
		}
		data, err := r.store.Read(ctx, p)
		if err != nil {
			return nil, err
		}
		var report backtest.Report
		if err := json.Unmarshal(data, &report); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("decoding %s: %w", p, err))
		}
		return &report, nil
	}
	return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("report %s", id))
}
