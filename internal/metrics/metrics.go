package metrics

import (
	"time"

	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Simulation metrics
	simulationsTotal   *prometheus.CounterVec
	simulationDuration *prometheus.HistogramVec
	positionsOpened    *prometheus.CounterVec
	positionsClosed    *prometheus.CounterVec
	riskRejections     *prometheus.CounterVec
	bankruptcies       *prometheus.CounterVec
	jobsActive         *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Simulation metrics
	r.simulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratsim_simulations_total",
			Help: "Total number of simulation runs",
		},
		[]string{"strategy", "outcome"},
	)
	r.simulationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stratsim_simulation_duration_seconds",
			Help:    "Simulation engine run time in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"strategy"},
	)
	r.positionsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratsim_positions_opened_total",
			Help: "Total number of positions opened",
		},
		[]string{"strategy", "action"},
	)
	r.positionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratsim_positions_closed_total",
			Help: "Total number of positions closed",
		},
		[]string{"strategy", "result"},
	)
	r.riskRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratsim_risk_rejections_total",
			Help: "Total number of signals skipped by the risk limits",
		},
		[]string{"strategy"},
	)
	r.bankruptcies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratsim_bankruptcies_total",
			Help: "Total number of simulations halted by an exhausted account",
		},
		[]string{"strategy"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stratsim_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)

	reg.MustRegister(r.simulationsTotal)
	reg.MustRegister(r.simulationDuration)
	reg.MustRegister(r.positionsOpened)
	reg.MustRegister(r.positionsClosed)
	reg.MustRegister(r.riskRejections)
	reg.MustRegister(r.bankruptcies)
	reg.MustRegister(r.jobsActive)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordSimulation records a finished simulation run.
func (r *Registry) RecordSimulation(strategy string, res *backtest.Result, duration time.Duration) {
	outcome := "completed"
	if res.Bankrupt {
		outcome = "bankrupt"
		r.bankruptcies.WithLabelValues(strategy).Inc()
	}
	r.simulationsTotal.WithLabelValues(strategy, outcome).Inc()
	r.simulationDuration.WithLabelValues(strategy).Observe(duration.Seconds())

	for _, p := range res.Ledger {
		r.positionsOpened.WithLabelValues(strategy, p.Action.String()).Inc()
		if !p.IsClosed() {
			continue
		}
		result := "loss"
		if p.IsWin() {
			result = "win"
		}
		r.positionsClosed.WithLabelValues(strategy, result).Inc()
	}
	if res.Rejected > 0 {
		r.riskRejections.WithLabelValues(strategy).Add(float64(res.Rejected))
	}
}

// RecordSimulationError records a run that failed before producing a result.
func (r *Registry) RecordSimulationError(strategy string) {
	r.simulationsTotal.WithLabelValues(strategy, "error").Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
