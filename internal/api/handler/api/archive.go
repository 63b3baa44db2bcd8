// internal/api/handler/api/archive.go
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/newthinker/stratsim/internal/api/response"
	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/newthinker/stratsim/internal/journal"
)

// ReportFinder looks up archived reports.
type ReportFinder interface {
	Get(ctx context.Context, id string) (*backtest.Report, error)
}

// RunJournal queries journaled runs.
type RunJournal interface {
	GetRun(ctx context.Context, id string) (*journal.Run, error)
	ListRuns(ctx context.Context, strategy string, limit int) ([]journal.Run, error)
	ListPositions(ctx context.Context, runID string) ([]backtest.Position, error)
}

// ArchiveHandler serves persisted reports and runs.
type ArchiveHandler struct {
	reports ReportFinder
	journal RunJournal
}

// NewArchiveHandler creates a handler; either backend may be nil.
func NewArchiveHandler(reports ReportFinder, runs RunJournal) *ArchiveHandler {
	return &ArchiveHandler{reports: reports, journal: runs}
}

// Report handles GET /api/reports/{id}.
func (h *ArchiveHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, report)
}

// Runs handles GET /api/runs?strategy=&limit=.
func (h *ArchiveHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	runs, err := h.journal.ListRuns(r.Context(), r.URL.Query().Get("strategy"), limit)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if runs == nil {
		runs = []journal.Run{}
	}
	response.JSON(w, http.StatusOK, runs)
}

// Run handles GET /api/runs/{id}, returning the run with its ledger.
func (h *ArchiveHandler) Run(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := h.journal.GetRun(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	ledger, err := h.journal.ListPositions(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"run":    run,
		"ledger": ledger,
	})
}
