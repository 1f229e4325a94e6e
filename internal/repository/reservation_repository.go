package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aulanet/booking-api/internal/models"
)

const reservationColumns = "id, user_id, room_id, instructor, room_name, room_module, date, start_time, end_time, notify_group, status, created_at, updated_at"

// ReservationRepository provides persistence for the reservation ledger and
// owns the booking/cancellation transactions. The ledger is append-heavy:
// reservations are inserted and status-flipped, never deleted.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// List returns reservations with optional filtering and pagination, newest first.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error) {
	base := "FROM reservations WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date DESC, start_time DESC LIMIT %d OFFSET %d", reservationColumns, base, size, offset)
	var reservations []models.Reservation
	if err := r.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	return reservations, total, nil
}

// FindByID loads a reservation by id.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	query := fmt.Sprintf("SELECT %s FROM reservations WHERE id = $1", reservationColumns)
	var res models.Reservation
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("find reservation: %w", err)
	}
	return &res, nil
}

// FindActiveOverlapping returns active reservations on the same room and
// date whose [start,end) interval intersects the proposed one. Half-open
// semantics: touching endpoints do not overlap.
func (r *ReservationRepository) FindActiveOverlapping(ctx context.Context, roomID, date, startTime, endTime string) ([]models.Reservation, error) {
	return findActiveOverlapping(ctx, r.db, roomID, date, startTime, endTime)
}

func findActiveOverlapping(ctx context.Context, q sqlx.QueryerContext, roomID, date, startTime, endTime string) ([]models.Reservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE room_id = $1 AND date = $2 AND status = $3 AND start_time < $4 AND end_time > $5 ORDER BY start_time ASC`, reservationColumns)
	var conflicts []models.Reservation
	if err := sqlx.SelectContext(ctx, q, &conflicts, query, roomID, date, models.ReservationActive, endTime, startTime); err != nil {
		return nil, fmt.Errorf("find overlapping reservations: %w", err)
	}
	return conflicts, nil
}

// Book atomically re-checks conflicts and inserts the reservation while
// holding a row lock on the room, then flips the room's occupancy
// projection. The lock serializes concurrent bookings per room so two
// overlapping requests cannot both pass the conflict check. A non-empty
// conflict slice (with nil error) means the booking was rejected and
// nothing was persisted.
func (r *ReservationRepository) Book(ctx context.Context, res *models.Reservation) ([]models.Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var room models.Room
	if err = tx.GetContext(ctx, &room, `SELECT id, name, module, state, occupied_by, qr_url, created_at, updated_at FROM rooms WHERE id = $1 FOR UPDATE`, res.RoomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrRoomNotFound
			return nil, err
		}
		return nil, fmt.Errorf("lock room: %w", err)
	}

	conflicts, err := findActiveOverlapping(ctx, tx, res.RoomID, res.Date, res.StartTime, res.EndTime)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		_ = tx.Rollback()
		return conflicts, nil
	}

	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	res.CreatedAt = now
	res.UpdatedAt = now
	res.Status = models.ReservationActive
	res.RoomName = room.Name
	res.RoomModule = room.Module

	const insert = `INSERT INTO reservations (id, user_id, room_id, instructor, room_name, room_module, date, start_time, end_time, notify_group, status, created_at, updated_at)
		VALUES (:id, :user_id, :room_id, :instructor, :room_name, :room_module, :date, :start_time, :end_time, :notify_group, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insert, res); err != nil {
		return nil, fmt.Errorf("insert reservation: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE rooms SET state = $1, occupied_by = $2, updated_at = $3 WHERE id = $4`,
		models.RoomStateOccupied, res.Instructor, now, res.RoomID); err != nil {
		return nil, fmt.Errorf("update room state: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	return nil, nil
}

// Cancel flips a reservation to Cancelada and re-syncs the room projection
// in the same transaction. Returns the cancelled reservation and whether
// the room was freed. The room row is locked before the status flip so
// cancellation serializes with concurrent bookings for the same room.
// When other active reservations remain, the occupant label is deliberately
// left untouched; the reconcile routine is the repair path.
func (r *ReservationRepository) Cancel(ctx context.Context, id string) (*models.Reservation, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin cancel: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res models.Reservation
	query := fmt.Sprintf("SELECT %s FROM reservations WHERE id = $1", reservationColumns)
	if err = tx.GetContext(ctx, &res, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrReservationNotFound
			return nil, false, err
		}
		return nil, false, fmt.Errorf("find reservation: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, res.RoomID); err != nil {
		return nil, false, fmt.Errorf("lock room: %w", err)
	}

	if res.Status != models.ReservationActive {
		err = ErrReservationNotActive
		return nil, false, err
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE reservations SET status = $1, updated_at = $2 WHERE id = $3`,
		models.ReservationCancelled, now, id); err != nil {
		return nil, false, fmt.Errorf("cancel reservation: %w", err)
	}

	var remaining int
	if err = tx.GetContext(ctx, &remaining, `SELECT COUNT(*) FROM reservations WHERE room_id = $1 AND status = $2 AND id != $3`,
		res.RoomID, models.ReservationActive, id); err != nil {
		return nil, false, fmt.Errorf("count remaining reservations: %w", err)
	}

	freed := remaining == 0
	if freed {
		if _, err = tx.ExecContext(ctx, `UPDATE rooms SET state = $1, occupied_by = NULL, updated_at = $2 WHERE id = $3`,
			models.RoomStateFree, now, res.RoomID); err != nil {
			return nil, false, fmt.Errorf("free room: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit cancel: %w", err)
	}

	res.Status = models.ReservationCancelled
	res.UpdatedAt = now
	return &res, freed, nil
}

// SyncRoomState recomputes a room's occupancy projection from the ledger.
// Used for recovery after partial failures and exposed as the reconcile
// operation. The occupant becomes the instructor of the earliest remaining
// active reservation, or NULL when none remain.
func (r *ReservationRepository) SyncRoomState(ctx context.Context, roomID string) (*models.Room, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sync: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var room models.Room
	if err = tx.GetContext(ctx, &room, `SELECT id, name, module, state, occupied_by, qr_url, created_at, updated_at FROM rooms WHERE id = $1 FOR UPDATE`, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrRoomNotFound
			return nil, err
		}
		return nil, fmt.Errorf("lock room: %w", err)
	}

	var instructors []string
	if err = tx.SelectContext(ctx, &instructors, `SELECT instructor FROM reservations WHERE room_id = $1 AND status = $2 ORDER BY date ASC, start_time ASC LIMIT 1`,
		roomID, models.ReservationActive); err != nil {
		return nil, fmt.Errorf("scan active reservations: %w", err)
	}

	now := time.Now().UTC()
	if len(instructors) == 0 {
		room.State = models.RoomStateFree
		room.OccupiedBy = nil
		if _, err = tx.ExecContext(ctx, `UPDATE rooms SET state = $1, occupied_by = NULL, updated_at = $2 WHERE id = $3`,
			models.RoomStateFree, now, roomID); err != nil {
			return nil, fmt.Errorf("sync room state: %w", err)
		}
	} else {
		occupant := instructors[0]
		room.State = models.RoomStateOccupied
		room.OccupiedBy = &occupant
		if _, err = tx.ExecContext(ctx, `UPDATE rooms SET state = $1, occupied_by = $2, updated_at = $3 WHERE id = $4`,
			models.RoomStateOccupied, occupant, now, roomID); err != nil {
			return nil, fmt.Errorf("sync room state: %w", err)
		}
	}
	room.UpdatedAt = now

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sync: %w", err)
	}
	return &room, nil
}

// ListActiveByRoom returns a room's active reservations ordered by date and start time.
func (r *ReservationRepository) ListActiveByRoom(ctx context.Context, roomID string) ([]models.Reservation, error) {
	query := fmt.Sprintf("SELECT %s FROM reservations WHERE room_id = $1 AND status = $2 ORDER BY date ASC, start_time ASC", reservationColumns)
	var reservations []models.Reservation
	if err := r.db.SelectContext(ctx, &reservations, query, roomID, models.ReservationActive); err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}
	return reservations, nil
}
