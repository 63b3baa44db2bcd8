// internal/api/handler/api/strategies.go
package api

import (
	"net/http"

	"github.com/newthinker/stratsim/internal/api/response"
	"github.com/newthinker/stratsim/internal/strategy"
)

// StrategyInfo describes a registered strategy.
type StrategyInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	PriceHistory int    `json:"price_history"`
}

// StrategiesHandler lists the registered strategies.
type StrategiesHandler struct {
	strategies *strategy.Registry
}

func NewStrategiesHandler(strategies *strategy.Registry) *StrategiesHandler {
	return &StrategiesHandler{strategies: strategies}
}

// List handles GET /api/strategies.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	names := h.strategies.Names()
	out := make([]StrategyInfo, 0, len(names))
	for _, name := range names {
		s, ok := h.strategies.Get(name)
		if !ok {
			continue
		}
		out = append(out, StrategyInfo{
			Name:         name,
			Description:  s.Description(),
			PriceHistory: s.RequiredData().PriceHistory,
		})
	}
	response.JSON(w, http.StatusOK, out)
}
