package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aulanet/booking-api/internal/models"
	"github.com/aulanet/booking-api/internal/service"
	"github.com/aulanet/booking-api/pkg/response"
)

// AuditHandler exposes the action history trail.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary List audit trail entries
// @Tags Audit
// @Produce json
// @Param action query string false "Filter by action"
// @Param userId query string false "Filter by user"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditLogFilter{
		Action: c.Query("action"),
		UserID: c.Query("userId"),
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.Limit = limit
	}

	logs, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
