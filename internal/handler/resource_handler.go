package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aulanet/booking-api/internal/models"
	"github.com/aulanet/booking-api/internal/service"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
	"github.com/aulanet/booking-api/pkg/response"
)

// ResourceHandler manages equipment inventory endpoints.
type ResourceHandler struct {
	resources *service.ResourceService
}

// NewResourceHandler constructs handler.
func NewResourceHandler(resources *service.ResourceService) *ResourceHandler {
	return &ResourceHandler{resources: resources}
}

// List godoc
// @Summary List resources
// @Tags Resources
// @Produce json
// @Param roomId query string false "Filter by room"
// @Param kind query string false "Filter by kind"
// @Param state query string false "Filter by state"
// @Success 200 {object} response.Envelope
// @Router /resources [get]
func (h *ResourceHandler) List(c *gin.Context) {
	filter := models.ResourceFilter{
		RoomID: c.Query("roomId"),
		Kind:   c.Query("kind"),
		State:  models.ResourceState(c.Query("state")),
	}
	resources, err := h.resources.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resources, nil)
}

// Create godoc
// @Summary Register a resource in a room
// @Tags Resources
// @Accept json
// @Produce json
// @Param payload body service.CreateResourceRequest true "Resource payload"
// @Success 201 {object} response.Envelope
// @Router /resources [post]
func (h *ResourceHandler) Create(c *gin.Context) {
	var req service.CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resource, err := h.resources.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resource)
}

// UpdateState godoc
// @Summary Update a resource's condition
// @Tags Resources
// @Accept json
// @Produce json
// @Param id path string true "Resource ID"
// @Param payload body service.UpdateResourceStateRequest true "State payload"
// @Success 200 {object} response.Envelope
// @Router /resources/{id}/state [patch]
func (h *ResourceHandler) UpdateState(c *gin.Context) {
	var req service.UpdateResourceStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resource, err := h.resources.UpdateState(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resource, nil)
}
