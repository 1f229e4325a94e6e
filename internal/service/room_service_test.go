package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/booking-api/internal/models"
	"github.com/aulanet/booking-api/internal/repository"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
	"github.com/aulanet/booking-api/pkg/storage"
)

type fakeRoomDirectory struct {
	rooms      map[string]*models.Room
	counters   *models.RoomWithCounters
	lastQRURL  string
	createdIDs []string
}

func (f *fakeRoomDirectory) List(context.Context) ([]models.RoomWithCounters, error) {
	var out []models.RoomWithCounters
	if f.counters != nil {
		out = append(out, *f.counters)
	}
	return out, nil
}

func (f *fakeRoomDirectory) FindByID(_ context.Context, id string) (*models.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return room, nil
}

func (f *fakeRoomDirectory) FindWithCounters(_ context.Context, id string) (*models.RoomWithCounters, error) {
	if f.counters == nil || f.counters.ID != id {
		return nil, repository.ErrRoomNotFound
	}
	return f.counters, nil
}

func (f *fakeRoomDirectory) Create(_ context.Context, room *models.Room) error {
	room.ID = "room-new"
	f.createdIDs = append(f.createdIDs, room.ID)
	return nil
}

func (f *fakeRoomDirectory) Update(_ context.Context, room *models.Room) error {
	if _, ok := f.rooms[room.ID]; !ok {
		return repository.ErrRoomNotFound
	}
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeRoomDirectory) UpdateQRURL(_ context.Context, _, qrURL string) error {
	f.lastQRURL = qrURL
	return nil
}

type fakeRoomLedger struct {
	active []models.Reservation
	synced *models.Room
	err    error
}

func (f *fakeRoomLedger) ListActiveByRoom(context.Context, string) ([]models.Reservation, error) {
	return f.active, nil
}

func (f *fakeRoomLedger) SyncRoomState(context.Context, string) (*models.Room, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.synced, nil
}

func newRoomFixture(t *testing.T, dir *fakeRoomDirectory, ledger *fakeRoomLedger) (*RoomService, *fakeAudit) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	audit := &fakeAudit{}
	return NewRoomService(dir, ledger, audit, store, signer, "http://localhost:8080", nil, nil), audit
}

func TestRoomServiceGetIncludesActiveReservations(t *testing.T) {
	dir := &fakeRoomDirectory{
		counters: &models.RoomWithCounters{
			Room:               models.Room{ID: "room-1", Name: "Aula 101", State: models.RoomStateOccupied},
			TotalReservations:  3,
			ActiveReservations: 1,
		},
	}
	ledger := &fakeRoomLedger{active: []models.Reservation{{ID: "res-1", Status: models.ReservationActive}}}
	svc, _ := newRoomFixture(t, dir, ledger)

	detail, err := svc.Get(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Room.ActiveReservations)
	require.Len(t, detail.Reservations, 1)
	assert.Equal(t, "res-1", detail.Reservations[0].ID)
}

func TestRoomServiceGetNotFound(t *testing.T) {
	svc, _ := newRoomFixture(t, &fakeRoomDirectory{}, &fakeRoomLedger{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRoomServiceCreateRecordsAudit(t *testing.T) {
	dir := &fakeRoomDirectory{rooms: map[string]*models.Room{}}
	svc, audit := newRoomFixture(t, dir, &fakeRoomLedger{})

	room, err := svc.Create(context.Background(), CreateRoomRequest{Name: "Aula 201", Module: "B"}, Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoomStateFree, room.State)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCreateRoom, audit.logs[0].Action)
}

func TestRoomServiceReconcile(t *testing.T) {
	occupant := "Prof. Ruiz"
	ledger := &fakeRoomLedger{synced: &models.Room{ID: "room-1", Name: "Aula 101", State: models.RoomStateOccupied, OccupiedBy: &occupant}}
	svc, audit := newRoomFixture(t, &fakeRoomDirectory{}, ledger)

	room, err := svc.Reconcile(context.Background(), "room-1", Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoomStateOccupied, room.State)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionReconcileRoom, audit.logs[0].Action)
}

func TestRoomServiceReconcileUnknownRoom(t *testing.T) {
	svc, _ := newRoomFixture(t, &fakeRoomDirectory{}, &fakeRoomLedger{err: repository.ErrRoomNotFound})

	_, err := svc.Reconcile(context.Background(), "missing", Actor{UserID: "admin-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRoomServiceGenerateQRStoresAndSigns(t *testing.T) {
	dir := &fakeRoomDirectory{rooms: map[string]*models.Room{
		"room-1": {ID: "room-1", Name: "Aula 101", Module: "A"},
	}}
	svc, audit := newRoomFixture(t, dir, &fakeRoomLedger{})

	result, err := svc.GenerateQR(context.Background(), "room-1", Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.QRURL, "http://localhost:8080/qrcodes/download?token="))
	assert.Equal(t, result.QRURL, dir.lastQRURL)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionGenerateQR, audit.logs[0].Action)

	// The issued token must resolve to a stored PNG.
	token := strings.TrimPrefix(result.QRURL, "http://localhost:8080/qrcodes/download?token=")
	data, err := svc.OpenQR(token)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRoomServiceOpenQRRejectsBadToken(t *testing.T) {
	svc, _ := newRoomFixture(t, &fakeRoomDirectory{}, &fakeRoomLedger{})

	_, err := svc.OpenQR("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
