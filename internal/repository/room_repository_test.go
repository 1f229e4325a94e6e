package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/booking-api/internal/models"
)

func TestRoomRepositoryCreateDefaultsToFree(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRoomRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rooms")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	room := &models.Room{Name: "Aula 101", Module: "A"}
	require.NoError(t, repo.Create(context.Background(), room))
	require.NotEmpty(t, room.ID)
	require.Equal(t, models.RoomStateFree, room.State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryListWithCounters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRoomRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "module", "state", "occupied_by", "qr_url", "created_at", "updated_at", "total_reservations", "active_reservations"}).
		AddRow("room-1", "Aula 101", "A", "Ocupada", "Prof. Vega", nil, time.Now(), time.Now(), 5, 2).
		AddRow("room-2", "Aula 102", "A", "Libre", nil, nil, time.Now(), time.Now(), 0, 0)
	mock.ExpectQuery(regexp.QuoteMeta("FILTER (WHERE res.status = 'Activa')")).
		WillReturnRows(rows)

	rooms, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.Equal(t, 2, rooms[0].ActiveReservations)
	require.Equal(t, models.RoomStateOccupied, rooms[0].State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRoomRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(roomRows())

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRoomNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRoomRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET name")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Room{ID: "missing", Name: "Aula 1", Module: "B"})
	require.ErrorIs(t, err, ErrRoomNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryUpdateQRURL(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRoomRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET qr_url = $1")).
		WithArgs("http://localhost:8080/qrcodes/download?token=abc", sqlmock.AnyArg(), "room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateQRURL(context.Background(), "room-1", "http://localhost:8080/qrcodes/download?token=abc"))
	require.NoError(t, mock.ExpectationsWereMet())
}
