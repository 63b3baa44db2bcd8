// internal/api/server_test.go
package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/stratsim/internal/backtest"
	"github.com/newthinker/stratsim/internal/core"
	"github.com/newthinker/stratsim/internal/metrics"
	"github.com/newthinker/stratsim/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedProvider struct{}

func (fixedProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	t0 := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	return []core.OHLCV{
		{Symbol: symbol, Close: 10, Time: t0},
		{Symbol: symbol, Close: 20, Time: t0.AddDate(0, 0, 1)},
	}, nil
}

type holdStrategy struct{}

func (holdStrategy) Name() string                            { return "hold" }
func (holdStrategy) Description() string                     { return "Buys on the first bar" }
func (holdStrategy) RequiredData() strategy.DataRequirements { return strategy.DataRequirements{} }
func (holdStrategy) Init(cfg strategy.Config) error          { return nil }
func (holdStrategy) Signals(bars []core.OHLCV) ([]core.Action, error) {
	out := make([]core.Action, len(bars))
	if len(out) > 0 {
		out[0] = core.ActionBuy
	}
	return out, nil
}

func testDeps(reg *metrics.Registry) Dependencies {
	strategies := strategy.NewRegistry()
	strategies.Register(holdStrategy{})
	return Dependencies{
		Backtester: backtest.New(fixedProvider{}, strategies),
		Strategies: strategies,
		Defaults: backtest.Params{
			InitialAccount:    1000,
			RiskPerTrade:      0.5,
			TotalAcceptedRisk: 1,
			ForceCloseAtEnd:   true,
		},
		Metrics: reg,
	}
}

func newTestServer(t *testing.T, cfg Config, deps Dependencies) http.Handler {
	t.Helper()
	srv, err := NewServer(cfg, deps, zap.NewNop())
	require.NoError(t, err)
	return srv.Handler()
}

func TestServer_Health(t *testing.T) {
	h := newTestServer(t, Config{Host: "localhost", APIKey: "test-key"}, testDeps(nil))

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	assert.NotEmpty(t, w.Header().Get(metrics.RequestIDHeader))
}

func TestServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(Config{}, Dependencies{}, nil)
	assert.Error(t, err)
}

func TestServer_APIAuth_Required(t *testing.T) {
	h := newTestServer(t, Config{APIKey: "test-key"}, testDeps(nil))

	req := httptest.NewRequest("GET", "/api/strategies", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}
}

func TestServer_APIAuth_ValidKey(t *testing.T) {
	h := newTestServer(t, Config{APIKey: "test-key"}, testDeps(nil))

	req := httptest.NewRequest("GET", "/api/strategies", nil)
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", w.Code)
	}
	assert.Contains(t, w.Body.String(), `"hold"`)
}

func TestServer_APIAuth_Disabled(t *testing.T) {
	h := newTestServer(t, Config{}, testDeps(nil))

	req := httptest.NewRequest("GET", "/api/simulations", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with disabled auth, got %d", w.Code)
	}
}

func TestServer_OptionalRoutesAbsent(t *testing.T) {
	h := newTestServer(t, Config{}, testDeps(nil))

	for _, path := range []string{"/api/runs", "/api/reports/x", "/metrics"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	h := newTestServer(t, Config{}, testDeps(nil))

	req := httptest.NewRequest("DELETE", "/api/compare", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_Compare(t *testing.T) {
	h := newTestServer(t, Config{}, testDeps(nil))

	body := `{"symbol":"AAPL","start":"2021-01-01","end":"2021-02-01","strategies":[{"name":"hold"}]}`
	req := httptest.NewRequest("POST", "/api/compare", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// 50 shares from 10 to 20
	assert.Contains(t, w.Body.String(), `"final":{"hold":500}`)
}

func TestServer_Indicators(t *testing.T) {
	h := newTestServer(t, Config{APIKey: "test-key"}, testDeps(nil))

	req := httptest.NewRequest("GET", "/api/indicators?symbol=AAPL&start=2021-01-01&end=2021-02-01", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req.Header.Set("X-API-Key", "test-key")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	// two bars are all warm-up
	assert.Contains(t, w.Body.String(), `"sma":[null,null]`)
	assert.Contains(t, w.Body.String(), `"close":[10,20]`)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	h := newTestServer(t, Config{MetricsPath: "/internal/metrics"}, testDeps(reg))

	req := httptest.NewRequest("GET", "/api/simulations/abc", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/internal/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	out, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(out), `path="GET /api/simulations/{id}"`)
	assert.Contains(t, string(out), `status="4xx"`)
}
