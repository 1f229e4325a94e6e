package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aulanet/booking-api/internal/models"
	"github.com/aulanet/booking-api/internal/repository"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
)

type bookingLedger interface {
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error)
	Book(ctx context.Context, res *models.Reservation) ([]models.Reservation, error)
	Cancel(ctx context.Context, id string) (*models.Reservation, bool, error)
}

type notificationDispatcher interface {
	EnqueueEmail(snap ReservationSnapshot, to, cc string)
	EnqueueGroupMessage(snap ReservationSnapshot, group string)
}

type auditRecorder interface {
	Record(ctx context.Context, log *models.AuditLog)
}

type adminDirectory interface {
	AdminEmail(ctx context.Context) (string, error)
}

type bookingMetrics interface {
	ReservationCreated()
	ReservationCancelled()
	BookingRejected(reason string)
}

// Actor identifies the authenticated user a booking is attributed to.
type Actor struct {
	UserID    string
	Email     string
	IP        string
	UserAgent string
}

// CreateReservationRequest describes the payload for creating a reservation.
type CreateReservationRequest struct {
	RoomID      string  `json:"room_id" validate:"required"`
	Instructor  string  `json:"instructor" validate:"required"`
	Date        string  `json:"date" validate:"required"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	NotifyGroup *string `json:"notify_group,omitempty"`
}

// BookingService is the orchestrator for the two state-mutating flows of
// the system: create-reservation and cancel-reservation. Conflict checking
// and the ledger/room writes run in one transaction owned by the
// repository; notifications and audit records happen after commit and
// never affect the caller's outcome.
type BookingService struct {
	ledger      bookingLedger
	users       adminDirectory
	notifier    notificationDispatcher
	audit       auditRecorder
	metrics     bookingMetrics
	validator   *validator.Validate
	logger      *zap.Logger
	horizonDays int
	now         func() time.Time
}

// NewBookingService instantiates BookingService. notifier, audit and
// metrics may be nil; those side channels are then skipped.
func NewBookingService(ledger bookingLedger, users adminDirectory, notifier notificationDispatcher, audit auditRecorder, metrics bookingMetrics, validate *validator.Validate, logger *zap.Logger, horizonDays int) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if horizonDays <= 0 {
		horizonDays = 7
	}
	return &BookingService{
		ledger:      ledger,
		users:       users,
		notifier:    notifier,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

// List returns reservations with pagination metadata.
func (s *BookingService) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, *models.Pagination, error) {
	reservations, total, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return reservations, pagination, nil
}

// Create validates and books a reservation, then fans out the post-commit
// side effects.
func (s *BookingService) Create(ctx context.Context, req CreateReservationRequest, actor Actor) (*models.Reservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	if err := validateDateAndTimes(req.Date, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	switch checkHorizon(req.Date, s.now(), s.horizonDays) {
	case horizonPast:
		s.countRejection("past_date")
		return nil, appErrors.Clone(appErrors.ErrPastDate, "")
	case horizonTooFar:
		s.countRejection("too_far_ahead")
		return nil, appErrors.Clone(appErrors.ErrTooFarAhead, fmt.Sprintf("reservations may be placed at most %d days ahead", s.horizonDays))
	}

	res := &models.Reservation{
		UserID:      actor.UserID,
		RoomID:      req.RoomID,
		Instructor:  req.Instructor,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		NotifyGroup: req.NotifyGroup,
	}

	conflicts, err := s.ledger.Book(ctx, res)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reservation")
	}
	if len(conflicts) > 0 {
		s.countRejection("conflict")
		domainErr := &models.ReservationConflictError{Message: "room already reserved in that time window", Conflicts: conflicts}
		return nil, appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, domainErr.Message).
			WithDetails(map[string]interface{}{"conflicts": conflicts})
	}

	if s.metrics != nil {
		s.metrics.ReservationCreated()
	}
	s.dispatchConfirmation(ctx, res, actor)
	s.record(ctx, actor, models.AuditActionCreateReservation, "reservation", res.ID,
		fmt.Sprintf("Reserved %s for %s %s-%s", res.RoomName, res.Date, res.StartTime, res.EndTime))

	return res, nil
}

// Cancel flips a reservation to Cancelada and records the action. No
// notifications are sent on cancellation.
func (s *BookingService) Cancel(ctx context.Context, id string, actor Actor) error {
	res, freed, err := s.ledger.Cancel(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReservationNotFound):
			return appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		case errors.Is(err, repository.ErrReservationNotActive):
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "reservation is not active")
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel reservation")
		}
	}

	if s.metrics != nil {
		s.metrics.ReservationCancelled()
	}
	detail := fmt.Sprintf("Cancelled reservation %s - %s", res.ID, res.RoomName)
	if freed {
		detail += " (room freed)"
	}
	s.record(ctx, actor, models.AuditActionCancelReservation, "reservation", res.ID, detail)
	return nil
}

// dispatchConfirmation enqueues the booking confirmation side effects.
// Everything here is fire-and-forget: failures are logged by the queue and
// never reach the booking caller.
func (s *BookingService) dispatchConfirmation(ctx context.Context, res *models.Reservation, actor Actor) {
	if s.notifier == nil {
		return
	}

	snap := ReservationSnapshot{
		Instructor: res.Instructor,
		RoomName:   res.RoomName,
		RoomModule: res.RoomModule,
		Date:       res.Date,
		StartTime:  res.StartTime,
		EndTime:    res.EndTime,
	}

	cc := ""
	if s.users != nil {
		adminEmail, err := s.users.AdminEmail(ctx)
		if err != nil {
			s.logger.Warn("failed to resolve admin email for notification", zap.Error(err))
		} else {
			cc = adminEmail
		}
	}
	s.notifier.EnqueueEmail(snap, actor.Email, cc)

	if res.NotifyGroup != nil && *res.NotifyGroup != "" {
		s.notifier.EnqueueGroupMessage(snap, *res.NotifyGroup)
	}
}

// AdminEmailFallback wraps a directory lookup with a configured address
// used when no active admin exists.
type AdminEmailFallback struct {
	Directory adminDirectory
	Email     string
}

func (f AdminEmailFallback) AdminEmail(ctx context.Context) (string, error) {
	email, err := f.Directory.AdminEmail(ctx)
	if err == nil && email != "" {
		return email, nil
	}
	if f.Email != "" {
		return f.Email, nil
	}
	return email, err
}

func (s *BookingService) countRejection(reason string) {
	if s.metrics != nil {
		s.metrics.BookingRejected(reason)
	}
}

func (s *BookingService) record(ctx context.Context, actor Actor, action, resource, resourceID, details string) {
	if s.audit == nil {
		return
	}
	var userID *string
	if actor.UserID != "" {
		userID = &actor.UserID
	}
	s.audit.Record(ctx, &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		Details:    details,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	})
}
