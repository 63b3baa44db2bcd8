package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareHandler_Compare(t *testing.T) {
	bt, _ := newTestRig()
	h := NewCompareHandler(bt, testDefaults)

	w := serve(h.Compare, "POST", "/api/compare", "/api/compare",
		`{"symbol":"AAPL","start":"2021-01-01","end":"2021-02-01",
		  "strategies":[{"name":"late"},{"name":"early"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Names      []string             `json:"names"`
		Series     map[string][]float64 `json:"series"`
		Final      map[string]float64   `json:"final"`
		Bankruptcy map[string]bool      `json:"bankruptcy"`
	}
	decode(t, w, &data)

	assert.Equal(t, []string{"late", "early"}, data.Names)
	assert.Equal(t, []float64{0, 0, 0, 1000}, data.Series["late"])
	assert.Equal(t, []float64{0, 0, 500, 0}, data.Series["early"])
	assert.Equal(t, 1000.0, data.Final["late"])
	assert.False(t, data.Bankruptcy["early"])
}

func TestCompareHandler_RiskOverrides(t *testing.T) {
	bt, _ := newTestRig()
	h := NewCompareHandler(bt, testDefaults)

	// half the account per trade: 50 shares bought at 10 and sold at 20
	w := serve(h.Compare, "POST", "/api/compare", "/api/compare",
		`{"symbol":"AAPL","start":"2021-01-01","end":"2021-02-01",
		  "strategies":[{"name":"late","risk_per_trade":0.5}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Final map[string]float64 `json:"final"`
	}
	decode(t, w, &data)
	assert.Equal(t, 500.0, data.Final["late"])
}

func TestCompareHandler_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `[`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"no strategies", `{"symbol":"AAPL","start":"2021-01-01","end":"2021-02-01","strategies":[]}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"bad range", `{"symbol":"AAPL","start":"2021-01-01","end":"2021-01-01","strategies":[{"name":"late"}]}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"unknown strategy", `{"symbol":"AAPL","start":"2021-01-01","end":"2021-02-01","strategies":[{"name":"nope"}]}`, http.StatusBadRequest, "STRATEGY_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bt, _ := newTestRig()
			h := NewCompareHandler(bt, testDefaults)

			w := serve(h.Compare, "POST", "/api/compare", "/api/compare", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w, nil).Error.Code)
		})
	}
}
