// internal/api/handler/api/simulations.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/stratsim/internal/api/job"
	"github.com/newthinker/stratsim/internal/api/response"
	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/newthinker/stratsim/internal/core"
	"github.com/newthinker/stratsim/internal/strategy"
	"go.uber.org/zap"
)

const (
	simulationTimeout = 5 * time.Minute
	simulationJobType = "simulation"
	dateLayout        = "2006-01-02"
)

// JobGauge receives the number of unfinished jobs of a type.
type JobGauge interface {
	SetJobsActive(jobType string, count int)
}

// SimulationRequest is the request body for starting a simulation.
// Unset numeric fields fall back to the server defaults.
type SimulationRequest struct {
	Symbol            string   `json:"symbol"`
	Strategy          string   `json:"strategy"`
	Start             string   `json:"start"`
	End               string   `json:"end"`
	Interval          string   `json:"interval,omitempty"`
	InitialAccount    *float64 `json:"initial_account,omitempty"`
	RiskPerTrade      *float64 `json:"risk_per_trade,omitempty"`
	TotalAcceptedRisk *float64 `json:"total_accepted_risk,omitempty"`
	ForceClose        *bool    `json:"force_close,omitempty"`
}

func (r SimulationRequest) params(defaults backtest.Params) backtest.Params {
	p := defaults
	if r.InitialAccount != nil {
		p.InitialAccount = *r.InitialAccount
	}
	if r.RiskPerTrade != nil {
		p.RiskPerTrade = *r.RiskPerTrade
	}
	if r.TotalAcceptedRisk != nil {
		p.TotalAcceptedRisk = *r.TotalAcceptedRisk
	}
	if r.ForceClose != nil {
		p.ForceCloseAtEnd = *r.ForceClose
	}
	return p
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, core.WrapError(core.ErrInvalidArgument, fmt.Errorf("start: %w", err))
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, core.WrapError(core.ErrInvalidArgument, fmt.Errorf("end: %w", err))
	}
	if !s.Before(e) {
		return time.Time{}, time.Time{}, core.WrapError(core.ErrInvalidArgument, errors.New("start must be before end"))
	}
	return s, e, nil
}

// SimulationHandler handles simulation API requests.
type SimulationHandler struct {
	jobStore   *job.Store
	backtester *backtest.Backtester
	strategies *strategy.Registry
	defaults   backtest.Params
	gauge      JobGauge
	logger     *zap.Logger
}

// NewSimulationHandler creates a new simulation handler. gauge may be nil.
func NewSimulationHandler(
	jobStore *job.Store,
	backtester *backtest.Backtester,
	strategies *strategy.Registry,
	defaults backtest.Params,
	gauge JobGauge,
	logger *zap.Logger,
) *SimulationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulationHandler{
		jobStore:   jobStore,
		backtester: backtester,
		strategies: strategies,
		defaults:   defaults,
		gauge:      gauge,
		logger:     logger,
	}
}

// Create starts a new simulation job.
func (h *SimulationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidArgument, err))
		return
	}

	// Validate required fields
	if req.Symbol == "" || req.Strategy == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidArgument, errors.New("symbol and strategy are required")))
		return
	}

	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		response.Fail(w, err)
		return
	}

	if _, ok := h.strategies.Get(req.Strategy); !ok {
		response.Fail(w, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("%q", req.Strategy)))
		return
	}

	params := req.params(h.defaults)
	if err := params.Validate(); err != nil {
		response.Fail(w, err)
		return
	}

	// Create job
	j := h.jobStore.Create(simulationJobType)
	h.reportActive()

	go h.run(j.ID, backtest.Request{
		Strategy: req.Strategy,
		Symbol:   req.Symbol,
		Start:    start,
		End:      end,
		Interval: req.Interval,
		Params:   params,
	})

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

// run executes the simulation and updates job status.
func (h *SimulationHandler) run(jobID string, req backtest.Request) {
	// Mark as running
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})
	defer h.reportActive()

	ctx, cancel := context.WithTimeout(context.Background(), simulationTimeout)
	defer cancel()
	report, err := h.backtester.Run(ctx, req)

	if err != nil {
		h.logger.Warn("simulation job failed",
			zap.String("job_id", jobID),
			zap.String("strategy", req.Strategy),
			zap.Error(err),
		)
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
			// a report that failed to persist is still returned
			if report != nil {
				j.Result = report
			}
		})
		return
	}

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = report
	})
}

func (h *SimulationHandler) reportActive() {
	if h.gauge != nil {
		h.gauge.SetJobsActive(simulationJobType, h.jobStore.Active(simulationJobType))
	}
}

func asCoreError(err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return core.WrapError(core.ErrStrategyFailed, err)
}

// Get returns the status of a simulation job.
func (h *SimulationHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}

	if j.Result != nil {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = response.Detail(j.Error)
	}

	response.JSON(w, http.StatusOK, resp)
}

// Ledger streams the ledger of a finished simulation as CSV.
func (h *SimulationHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	report, ok := j.Result.(*backtest.Report)
	if !ok || report.Result == nil {
		response.Error(w, http.StatusConflict,
			core.WrapError(core.ErrNoData, fmt.Errorf("job %s has no result yet", j.ID)))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, report.ID))
	if err := backtest.WriteLedgerCSV(w, report.Result.Ledger); err != nil {
		h.logger.Warn("writing ledger csv", zap.String("job_id", j.ID), zap.Error(err))
	}
}

// List returns all known simulation jobs without their results.
func (h *SimulationHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobStore.List()
	out := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		if j.Type != simulationJobType {
			continue
		}
		out = append(out, map[string]any{
			"job_id":     j.ID,
			"status":     j.Status,
			"created_at": j.CreatedAt,
		})
	}
	response.JSON(w, http.StatusOK, out)
}
