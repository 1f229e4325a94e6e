package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aulanet/booking-api/internal/models"
	"github.com/aulanet/booking-api/internal/service"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
	"github.com/aulanet/booking-api/pkg/response"
)

type bookingService interface {
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, *models.Pagination, error)
	Create(ctx context.Context, req service.CreateReservationRequest, actor service.Actor) (*models.Reservation, error)
	Cancel(ctx context.Context, id string, actor service.Actor) error
}

type availabilityChecker interface {
	Check(ctx context.Context, roomID, date, startTime, endTime string) (*models.AvailabilityResult, error)
}

// BookingHandler manages reservation and availability endpoints.
type BookingHandler struct {
	bookings     bookingService
	availability availabilityChecker
}

// NewBookingHandler constructs handler.
func NewBookingHandler(bookings bookingService, availability availabilityChecker) *BookingHandler {
	return &BookingHandler{bookings: bookings, availability: availability}
}

// CheckAvailability godoc
// @Summary Check whether a room slot is free
// @Tags Reservations
// @Produce json
// @Param roomId query string true "Room ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param startTime query string true "Start time (HH:MM)"
// @Param endTime query string true "End time (HH:MM)"
// @Success 200 {object} response.Envelope
// @Router /availability [get]
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	result, err := h.availability.Check(
		c.Request.Context(),
		c.Query("roomId"),
		c.Query("date"),
		c.Query("startTime"),
		c.Query("endTime"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List reservations
// @Tags Reservations
// @Produce json
// @Param roomId query string false "Filter by room"
// @Param status query string false "Filter by status"
// @Param date query string false "Filter by date"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reservations [get]
func (h *BookingHandler) List(c *gin.Context) {
	var filter models.ReservationFilter
	filter.RoomID = c.Query("roomId")
	filter.Status = models.ReservationStatus(c.Query("status"))
	filter.Date = c.Query("date")
	filter.UserID = c.Query("userId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	reservations, pagination, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservations, pagination)
}

// Create godoc
// @Summary Book a room
// @Tags Reservations
// @Accept json
// @Produce json
// @Param payload body service.CreateReservationRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Router /reservations [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req service.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	reservation, err := h.bookings.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reservation)
}

// Cancel godoc
// @Summary Cancel a reservation
// @Tags Reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 204
// @Router /reservations/{id} [delete]
func (h *BookingHandler) Cancel(c *gin.Context) {
	if err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
