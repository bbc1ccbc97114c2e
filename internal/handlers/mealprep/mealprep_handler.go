// internal/handlers/mealprep/mealprep_handler.go
package mealprep

import (
	"net/http"
	"time"

	"mealbox-service/internal/pkg/response"
	service "mealbox-service/internal/service/mealprep"

	"github.com/gin-gonic/gin"
)

type MealPrepHandler struct {
	aggregator *service.AggregatorService
}

func NewMealPrepHandler(aggregator *service.AggregatorService) *MealPrepHandler {
	return &MealPrepHandler{aggregator: aggregator}
}

// Report serves the kitchen prep rollup for a date. Defaults to today;
// ?refresh=true bypasses the cache.
func (h *MealPrepHandler) Report(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD", err)
			return
		}
		date = parsed
	}
	refresh := c.Query("refresh") == "true"

	report, err := h.aggregator.AggregateForDate(c.Request.Context(), date, refresh)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to build prep report", err)
		return
	}
	response.Success(c, http.StatusOK, "prep report generated", report)
}
