package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aulanet/booking-api/internal/service"
	"github.com/aulanet/booking-api/pkg/response"
)

// DashboardHandler exposes usage statistics.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Statistics godoc
// @Summary Dashboard statistics
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/statistics [get]
func (h *DashboardHandler) Statistics(c *gin.Context) {
	stats, err := h.dashboard.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
