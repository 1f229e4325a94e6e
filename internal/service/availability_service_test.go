package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/booking-api/internal/models"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
)

type fakeLedger struct {
	conflicts []models.Reservation
	err       error
	calls     int
}

func (f *fakeLedger) FindActiveOverlapping(context.Context, string, string, string, string) ([]models.Reservation, error) {
	f.calls++
	return f.conflicts, f.err
}

func fixedNow(t *testing.T) time.Time {
	t.Helper()
	now, err := time.ParseInLocation("2006-01-02 15:04", "2026-08-29 10:30", time.Local)
	require.NoError(t, err)
	return now
}

func newAvailabilityFixture(t *testing.T, ledger *fakeLedger) *AvailabilityService {
	t.Helper()
	svc := NewAvailabilityService(ledger, 7, nil)
	svc.now = func() time.Time { return fixedNow(t) }
	return svc
}

func TestCheckAvailableWhenNoOverlap(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newAvailabilityFixture(t, ledger)

	result, err := svc.Check(context.Background(), "room-1", "2026-08-30", "10:00", "12:00")
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Empty(t, result.Conflicts)
}

func TestCheckReportsConflicts(t *testing.T) {
	existing := models.Reservation{ID: "res-1", StartTime: "11:00", EndTime: "13:00"}
	ledger := &fakeLedger{conflicts: []models.Reservation{existing}}
	svc := newAvailabilityFixture(t, ledger)

	result, err := svc.Check(context.Background(), "room-1", "2026-08-30", "10:00", "12:00")
	require.NoError(t, err)
	assert.False(t, result.Available)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "res-1", result.Conflicts[0].ID)
}

func TestCheckIgnoresTouchingEndpoints(t *testing.T) {
	// A reservation starting exactly when the requested window ends is not
	// a conflict, even if the ledger scan hands the row back.
	touching := models.Reservation{ID: "res-1", StartTime: "12:00", EndTime: "14:00"}
	ledger := &fakeLedger{conflicts: []models.Reservation{touching}}
	svc := newAvailabilityFixture(t, ledger)

	result, err := svc.Check(context.Background(), "room-1", "2026-08-30", "10:00", "12:00")
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Empty(t, result.Conflicts)
}

func TestCheckRejectsPastDate(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newAvailabilityFixture(t, ledger)

	result, err := svc.Check(context.Background(), "room-1", "2026-08-28", "10:00", "12:00")
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, appErrors.ErrPastDate.Message, result.Reason)
	assert.Zero(t, ledger.calls, "out-of-horizon dates must not hit the ledger")
}

func TestCheckAcceptsTodayDespiteLaterWallClock(t *testing.T) {
	// now is 10:30; booking today is still within the window because the
	// horizon compares calendar days, not instants.
	ledger := &fakeLedger{}
	svc := newAvailabilityFixture(t, ledger)

	result, err := svc.Check(context.Background(), "room-1", "2026-08-29", "08:00", "09:00")
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckAcceptsHorizonBoundary(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newAvailabilityFixture(t, ledger)

	result, err := svc.Check(context.Background(), "room-1", "2026-09-05", "10:00", "12:00")
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckRejectsBeyondHorizon(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newAvailabilityFixture(t, ledger)

	result, err := svc.Check(context.Background(), "room-1", "2026-09-06", "10:00", "12:00")
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, appErrors.ErrTooFarAhead.Message, result.Reason)
	assert.Zero(t, ledger.calls)
}

func TestCheckValidatesInput(t *testing.T) {
	svc := newAvailabilityFixture(t, &fakeLedger{})

	cases := []struct {
		name      string
		roomID    string
		date      string
		startTime string
		endTime   string
	}{
		{"missing room", "", "2026-08-30", "10:00", "12:00"},
		{"bad date", "room-1", "30/08/2026", "10:00", "12:00"},
		{"bad start", "room-1", "2026-08-30", "10am", "12:00"},
		{"start equals end", "room-1", "2026-08-30", "10:00", "10:00"},
		{"start after end", "room-1", "2026-08-30", "12:00", "10:00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Check(context.Background(), tc.roomID, tc.date, tc.startTime, tc.endTime)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		})
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	ledger := &fakeLedger{}
	svc := newAvailabilityFixture(t, ledger)

	for i := 0; i < 3; i++ {
		result, err := svc.Check(context.Background(), "room-1", "2026-08-30", "10:00", "12:00")
		require.NoError(t, err)
		assert.True(t, result.Available)
	}
	assert.Equal(t, 3, ledger.calls)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name    string
		s1, e1  string
		s2, e2  string
		overlap bool
	}{
		{"disjoint before", "08:00", "09:00", "10:00", "11:00", false},
		{"touching endpoints", "08:00", "10:00", "10:00", "12:00", false},
		{"touching reversed", "10:00", "12:00", "08:00", "10:00", false},
		{"partial overlap", "09:00", "11:00", "10:00", "12:00", true},
		{"containment", "09:00", "13:00", "10:00", "11:00", true},
		{"identical", "10:00", "12:00", "10:00", "12:00", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlap, overlaps(tc.s1, tc.e1, tc.s2, tc.e2))
			assert.Equal(t, tc.overlap, overlaps(tc.s2, tc.e2, tc.s1, tc.e1), "overlap must be symmetric")
		})
	}
}
