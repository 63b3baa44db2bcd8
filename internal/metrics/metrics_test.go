package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/newthinker/stratsim/internal/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// family returns the named metric family from the registry.
func family(t *testing.T, reg *Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not registered", name)
	return nil
}

func bars(closes ...float64) []core.OHLCV {
	start := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	out := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = core.OHLCV{Close: c, Time: start.AddDate(0, 0, i)}
	}
	return out
}

func TestRegistry_ExposesSimulationRun(t *testing.T) {
	reg := NewRegistry()

	// Long 100 @10 closed @20, reversal short 100 @20 force-closed @10: two wins.
	res, err := backtest.NewSimulator().Run(bars(10, 20, 10),
		[]core.Action{core.ActionBuy, core.ActionSell, core.ActionNone},
		backtest.Params{InitialAccount: 1000, RiskPerTrade: 1, TotalAcceptedRisk: 1, ForceCloseAtEnd: true})
	require.NoError(t, err)
	reg.RecordSimulation("golden_cross", res, 2*time.Millisecond)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `stratsim_simulations_total{outcome="completed",strategy="golden_cross"} 1`)
	assert.Contains(t, text, `stratsim_positions_opened_total{action="buy",strategy="golden_cross"} 1`)
	assert.Contains(t, text, `stratsim_positions_opened_total{action="sell",strategy="golden_cross"} 1`)
	assert.Contains(t, text, `stratsim_positions_closed_total{result="win",strategy="golden_cross"} 2`)
	assert.Contains(t, text, `stratsim_simulation_duration_seconds_count{strategy="golden_cross"} 1`)
	assert.NotContains(t, text, "stratsim_bankruptcies_total{")
	assert.Contains(t, text, "go_goroutines")
}

func TestRegistry_RecordRequestBucketsStatus(t *testing.T) {
	reg := NewRegistry()
	route := "GET /api/simulations/{id}"

	for _, status := range []int{101, 200, 202, 304, 401, 404, 409, 500, 503} {
		reg.RecordRequest("GET", route, status, 0.01)
	}

	want := map[string]float64{"1xx": 1, "2xx": 2, "3xx": 1, "4xx": 3, "5xx": 2}
	for bucket, n := range want {
		got := counterValue(t, reg, "http_requests_total", map[string]string{"method": "GET", "path": route, "status": bucket})
		assert.Equal(t, n, got, bucket)
	}
	assert.Len(t, family(t, reg, "http_requests_total").GetMetric(), len(want))

	hist := family(t, reg, "http_request_duration_seconds").GetMetric()
	require.Len(t, hist, 1, "durations are labelled by route only")
	assert.Equal(t, uint64(9), hist[0].GetHistogram().GetSampleCount())
}

func TestRegistry_InFlightBalances(t *testing.T) {
	reg := NewRegistry()

	reg.InFlightInc()
	reg.InFlightInc()
	assert.Equal(t, 2.0, family(t, reg, "http_requests_in_flight").GetMetric()[0].GetGauge().GetValue())

	reg.InFlightDec()
	reg.InFlightDec()
	assert.Equal(t, 0.0, family(t, reg, "http_requests_in_flight").GetMetric()[0].GetGauge().GetValue())
}

func TestRegistry_SetJobsActive(t *testing.T) {
	reg := NewRegistry()

	reg.SetJobsActive("simulation", 3)
	reg.SetJobsActive("simulation", 1)

	metrics := family(t, reg, "stratsim_jobs_active").GetMetric()
	require.Len(t, metrics, 1)
	assert.True(t, matches(metrics[0], map[string]string{"type": "simulation"}))
	assert.Equal(t, 1.0, metrics[0].GetGauge().GetValue())
}
