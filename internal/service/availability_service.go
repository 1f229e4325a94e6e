package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aulanet/booking-api/internal/models"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
)

type availabilityLedger interface {
	FindActiveOverlapping(ctx context.Context, roomID, date, startTime, endTime string) ([]models.Reservation, error)
}

// Horizon verdicts returned by checkHorizon.
type horizonVerdict int

const (
	horizonOK horizonVerdict = iota
	horizonPast
	horizonTooFar
)

// AvailabilityService answers read-only availability queries over the
// reservation ledger. It has no side effects; the authoritative
// check-and-insert happens inside the booking transaction.
type AvailabilityService struct {
	ledger      availabilityLedger
	horizonDays int
	now         func() time.Time
	logger      *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(ledger availabilityLedger, horizonDays int, logger *zap.Logger) *AvailabilityService {
	if horizonDays <= 0 {
		horizonDays = 7
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{ledger: ledger, horizonDays: horizonDays, now: time.Now, logger: logger}
}

// Check reports whether the proposed interval can be booked. The horizon
// verdict is authoritative: an out-of-window date short-circuits the
// conflict scan.
func (s *AvailabilityService) Check(ctx context.Context, roomID, date, startTime, endTime string) (*models.AvailabilityResult, error) {
	if roomID == "" || date == "" || startTime == "" || endTime == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "room_id, date, start_time and end_time are required")
	}
	if err := validateDateAndTimes(date, startTime, endTime); err != nil {
		return nil, err
	}

	switch checkHorizon(date, s.now(), s.horizonDays) {
	case horizonPast:
		return &models.AvailabilityResult{Available: false, Reason: appErrors.ErrPastDate.Message}, nil
	case horizonTooFar:
		return &models.AvailabilityResult{Available: false, Reason: appErrors.ErrTooFarAhead.Message}, nil
	}

	scanned, err := s.ledger.FindActiveOverlapping(ctx, roomID, date, startTime, endTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability")
	}

	// Recompute the verdict on the scanned rows: a touching endpoint is
	// never a conflict, no matter how the scan query compared the times.
	var conflicts []models.Reservation
	for _, r := range scanned {
		if overlaps(startTime, endTime, r.StartTime, r.EndTime) {
			conflicts = append(conflicts, r)
		}
	}
	if len(conflicts) > 0 {
		return &models.AvailabilityResult{Available: false, Reason: "room already reserved in that time window", Conflicts: conflicts}, nil
	}
	return &models.AvailabilityResult{Available: true}, nil
}

// overlaps implements half-open interval intersection on HH:MM strings.
// Zero-padded wall-clock times compare correctly as strings, so
// [s1,e1) and [s2,e2) intersect iff s1 < e2 && s2 < e1. Touching
// endpoints (one interval ending exactly when the other starts) do not
// overlap.
func overlaps(start1, end1, start2, end2 string) bool {
	return start1 < end2 && start2 < end1
}

// checkHorizon classifies a reservation date against the booking window
// [today, today+horizonDays], both ends inclusive, where today is the
// server-local calendar day truncated to midnight.
func checkHorizon(date string, now time.Time, horizonDays int) horizonVerdict {
	day, err := time.ParseInLocation(models.DateLayout, date, now.Location())
	if err != nil {
		return horizonPast
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return horizonPast
	}
	if day.After(today.AddDate(0, 0, horizonDays)) {
		return horizonTooFar
	}
	return horizonOK
}

// validateDateAndTimes checks syntactic validity and start < end ordering.
func validateDateAndTimes(date, startTime, endTime string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	start, err := time.Parse(models.TimeLayout, startTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be formatted as HH:MM")
	}
	end, err := time.Parse(models.TimeLayout, endTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be formatted as HH:MM")
	}
	if !start.Before(end) {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return nil
}
