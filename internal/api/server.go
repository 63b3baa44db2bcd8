// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apihandler "github.com/newthinker/stratsim/internal/api/handler/api"
	"github.com/newthinker/stratsim/internal/api/job"
	"github.com/newthinker/stratsim/internal/api/middleware"
	"github.com/newthinker/stratsim/internal/api/response"
	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/newthinker/stratsim/internal/metrics"
	"github.com/newthinker/stratsim/internal/strategy"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for stratsim
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string
}

// Dependencies are the components the API handlers are built on.
// Metrics, Reports and Journal are optional.
type Dependencies struct {
	Backtester *backtest.Backtester
	Strategies *strategy.Registry
	Jobs       *job.Store
	Defaults   backtest.Params
	Metrics    *metrics.Registry
	Reports    apihandler.ReportFinder
	Journal    apihandler.RunJournal
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Backtester == nil || deps.Strategies == nil {
		return nil, fmt.Errorf("backtester and strategy registry are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Jobs == nil {
		deps.Jobs = job.NewStore(100, time.Hour)
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	s.handler = metrics.LoggingMiddleware(logger)(h)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// comparisons run synchronously inside the request
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	auth := middleware.APIKeyAuth(cfg.APIKey)
	handle := func(pattern string, fn http.HandlerFunc) {
		s.mux.Handle(pattern, auth(fn))
	}

	var gauge apihandler.JobGauge
	if deps.Metrics != nil {
		gauge = deps.Metrics
	}

	sims := apihandler.NewSimulationHandler(deps.Jobs, deps.Backtester, deps.Strategies, deps.Defaults, gauge, s.logger)
	handle("POST /api/simulations", sims.Create)
	handle("GET /api/simulations", sims.List)
	handle("GET /api/simulations/{id}", sims.Get)
	handle("GET /api/simulations/{id}/ledger", sims.Ledger)

	cmp := apihandler.NewCompareHandler(deps.Backtester, deps.Defaults)
	handle("POST /api/compare", cmp.Compare)

	strategies := apihandler.NewStrategiesHandler(deps.Strategies)
	handle("GET /api/strategies", strategies.List)

	indicators := apihandler.NewIndicatorsHandler(deps.Backtester)
	handle("GET /api/indicators", indicators.Get)

	archive := apihandler.NewArchiveHandler(deps.Reports, deps.Journal)
	if deps.Reports != nil {
		handle("GET /api/reports/{id}", archive.Report)
	}
	if deps.Journal != nil {
		handle("GET /api/runs", archive.Runs)
		handle("GET /api/runs/{id}", archive.Run)
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
