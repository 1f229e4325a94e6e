package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/booking-api/internal/models"
	"github.com/aulanet/booking-api/internal/repository"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
)

type fakeBookingLedger struct {
	listResult   []models.Reservation
	listTotal    int
	bookConflict []models.Reservation
	bookErr      error
	booked       *models.Reservation
	cancelRes    *models.Reservation
	cancelFreed  bool
	cancelErr    error
	cancelledID  string
}

func (f *fakeBookingLedger) List(context.Context, models.ReservationFilter) ([]models.Reservation, int, error) {
	return f.listResult, f.listTotal, nil
}

func (f *fakeBookingLedger) Book(_ context.Context, res *models.Reservation) ([]models.Reservation, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	if len(f.bookConflict) > 0 {
		return f.bookConflict, nil
	}
	res.ID = "res-new"
	res.Status = models.ReservationActive
	res.RoomName = "Aula 101"
	res.RoomModule = "A"
	f.booked = res
	return nil, nil
}

func (f *fakeBookingLedger) Cancel(_ context.Context, id string) (*models.Reservation, bool, error) {
	f.cancelledID = id
	if f.cancelErr != nil {
		return nil, false, f.cancelErr
	}
	return f.cancelRes, f.cancelFreed, nil
}

type fakeNotifier struct {
	emails []string
	groups []string
}

func (f *fakeNotifier) EnqueueEmail(_ ReservationSnapshot, to, cc string) {
	f.emails = append(f.emails, to+"|"+cc)
}

func (f *fakeNotifier) EnqueueGroupMessage(_ ReservationSnapshot, group string) {
	f.groups = append(f.groups, group)
}

type fakeAudit struct {
	logs []*models.AuditLog
}

func (f *fakeAudit) Record(_ context.Context, log *models.AuditLog) {
	f.logs = append(f.logs, log)
}

type fakeAdmins struct {
	email string
	err   error
}

func (f *fakeAdmins) AdminEmail(context.Context) (string, error) {
	return f.email, f.err
}

type fakeMetrics struct {
	created   int
	cancelled int
	rejected  map[string]int
}

func (f *fakeMetrics) ReservationCreated()   { f.created++ }
func (f *fakeMetrics) ReservationCancelled() { f.cancelled++ }
func (f *fakeMetrics) BookingRejected(reason string) {
	if f.rejected == nil {
		f.rejected = map[string]int{}
	}
	f.rejected[reason]++
}

type bookingFixture struct {
	svc      *BookingService
	ledger   *fakeBookingLedger
	notifier *fakeNotifier
	audit    *fakeAudit
	metrics  *fakeMetrics
}

func newBookingFixture(t *testing.T, ledger *fakeBookingLedger) *bookingFixture {
	t.Helper()
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	metrics := &fakeMetrics{}
	svc := NewBookingService(ledger, &fakeAdmins{email: "admin@example.edu"}, notifier, audit, metrics, nil, nil, 7)
	svc.now = func() time.Time { return fixedNow(t) }
	return &bookingFixture{svc: svc, ledger: ledger, notifier: notifier, audit: audit, metrics: metrics}
}

func validRequest() CreateReservationRequest {
	return CreateReservationRequest{
		RoomID:     "room-1",
		Instructor: "Prof. Vega",
		Date:       "2026-08-30",
		StartTime:  "10:00",
		EndTime:    "12:00",
	}
}

func TestCreateReservationSuccess(t *testing.T) {
	fix := newBookingFixture(t, &fakeBookingLedger{})
	actor := Actor{UserID: "user-1", Email: "vega@example.edu", IP: "10.0.0.1"}

	res, err := fix.svc.Create(context.Background(), validRequest(), actor)
	require.NoError(t, err)
	assert.Equal(t, "res-new", res.ID)
	assert.Equal(t, models.ReservationActive, res.Status)
	assert.Equal(t, "user-1", res.UserID)

	assert.Equal(t, 1, fix.metrics.created)
	require.Len(t, fix.notifier.emails, 1)
	assert.Equal(t, "vega@example.edu|admin@example.edu", fix.notifier.emails[0])
	assert.Empty(t, fix.notifier.groups)

	require.Len(t, fix.audit.logs, 1)
	assert.Equal(t, models.AuditActionCreateReservation, fix.audit.logs[0].Action)
	require.NotNil(t, fix.audit.logs[0].UserID)
	assert.Equal(t, "user-1", *fix.audit.logs[0].UserID)
}

func TestCreateReservationNotifiesGroup(t *testing.T) {
	fix := newBookingFixture(t, &fakeBookingLedger{})
	group := "grupo-a"
	req := validRequest()
	req.NotifyGroup = &group

	_, err := fix.svc.Create(context.Background(), req, Actor{UserID: "user-1", Email: "vega@example.edu"})
	require.NoError(t, err)
	assert.Equal(t, []string{"grupo-a"}, fix.notifier.groups)
}

func TestCreateReservationConflict(t *testing.T) {
	existing := models.Reservation{ID: "res-1", StartTime: "11:00", EndTime: "13:00"}
	fix := newBookingFixture(t, &fakeBookingLedger{bookConflict: []models.Reservation{existing}})

	_, err := fix.svc.Create(context.Background(), validRequest(), Actor{UserID: "user-1"})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	var conflictErr *models.ReservationConflictError
	require.True(t, errors.As(err, &conflictErr))
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, "res-1", conflictErr.Conflicts[0].ID)

	details, ok := appErr.Details.(map[string]interface{})
	require.True(t, ok, "conflict error must carry serializable details")
	conflicts, ok := details["conflicts"].([]models.Reservation)
	require.True(t, ok)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "res-1", conflicts[0].ID)

	assert.Zero(t, fix.metrics.created)
	assert.Equal(t, 1, fix.metrics.rejected["conflict"])
	assert.Empty(t, fix.notifier.emails, "no notification on rejection")
	assert.Empty(t, fix.audit.logs)
}

func TestCreateReservationPastDate(t *testing.T) {
	fix := newBookingFixture(t, &fakeBookingLedger{})
	req := validRequest()
	req.Date = "2026-08-28"

	_, err := fix.svc.Create(context.Background(), req, Actor{UserID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPastDate.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, fix.metrics.rejected["past_date"])
	assert.Nil(t, fix.ledger.booked, "ledger must not be touched")
}

func TestCreateReservationTooFarAhead(t *testing.T) {
	fix := newBookingFixture(t, &fakeBookingLedger{})
	req := validRequest()
	req.Date = "2026-09-06"

	_, err := fix.svc.Create(context.Background(), req, Actor{UserID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTooFarAhead.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, fix.metrics.rejected["too_far_ahead"])
}

func TestCreateReservationHorizonBoundary(t *testing.T) {
	fix := newBookingFixture(t, &fakeBookingLedger{})
	req := validRequest()
	req.Date = "2026-09-05"

	_, err := fix.svc.Create(context.Background(), req, Actor{UserID: "user-1"})
	require.NoError(t, err)
}

func TestCreateReservationRoomMissing(t *testing.T) {
	fix := newBookingFixture(t, &fakeBookingLedger{bookErr: repository.ErrRoomNotFound})

	_, err := fix.svc.Create(context.Background(), validRequest(), Actor{UserID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateReservationValidatesPayload(t *testing.T) {
	fix := newBookingFixture(t, &fakeBookingLedger{})
	req := validRequest()
	req.Instructor = ""

	_, err := fix.svc.Create(context.Background(), req, Actor{UserID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCancelReservation(t *testing.T) {
	cancelled := &models.Reservation{ID: "res-1", RoomName: "Aula 101"}
	fix := newBookingFixture(t, &fakeBookingLedger{cancelRes: cancelled, cancelFreed: true})

	err := fix.svc.Cancel(context.Background(), "res-1", Actor{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "res-1", fix.ledger.cancelledID)
	assert.Equal(t, 1, fix.metrics.cancelled)

	require.Len(t, fix.audit.logs, 1)
	assert.Equal(t, models.AuditActionCancelReservation, fix.audit.logs[0].Action)
	assert.Contains(t, fix.audit.logs[0].Details, "room freed")
}

func TestCancelReservationNotFound(t *testing.T) {
	fix := newBookingFixture(t, &fakeBookingLedger{cancelErr: repository.ErrReservationNotFound})

	err := fix.svc.Cancel(context.Background(), "missing", Actor{UserID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCancelReservationAlreadyCancelled(t *testing.T) {
	fix := newBookingFixture(t, &fakeBookingLedger{cancelErr: repository.ErrReservationNotActive})

	err := fix.svc.Cancel(context.Background(), "res-1", Actor{UserID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Zero(t, fix.metrics.cancelled)
}

func TestListAppliesPaginationDefaults(t *testing.T) {
	fix := newBookingFixture(t, &fakeBookingLedger{listTotal: 42})

	_, pagination, err := fix.svc.List(context.Background(), models.ReservationFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 42, pagination.TotalCount)
}
