package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aulanet/booking-api/internal/models"
)

// RoomRepository provides persistence for the room directory. Occupancy
// fields are written only by the booking transactions in
// ReservationRepository; this repository handles identity and metadata.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// List returns all rooms with derived reservation counters, grouped by module.
func (r *RoomRepository) List(ctx context.Context) ([]models.RoomWithCounters, error) {
	const query = `SELECT r.id, r.name, r.module, r.state, r.occupied_by, r.qr_url, r.created_at, r.updated_at,
		COUNT(res.id) AS total_reservations,
		COUNT(res.id) FILTER (WHERE res.status = 'Activa') AS active_reservations
		FROM rooms r
		LEFT JOIN reservations res ON res.room_id = r.id
		GROUP BY r.id
		ORDER BY r.module ASC, r.name ASC`
	var rooms []models.RoomWithCounters
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// FindByID loads a room by id.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	const query = `SELECT id, name, module, state, occupied_by, qr_url, created_at, updated_at FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &room, nil
}

// FindWithCounters loads a room with its derived reservation counters.
func (r *RoomRepository) FindWithCounters(ctx context.Context, id string) (*models.RoomWithCounters, error) {
	const query = `SELECT r.id, r.name, r.module, r.state, r.occupied_by, r.qr_url, r.created_at, r.updated_at,
		COUNT(res.id) AS total_reservations,
		COUNT(res.id) FILTER (WHERE res.status = 'Activa') AS active_reservations
		FROM rooms r
		LEFT JOIN reservations res ON res.room_id = r.id
		WHERE r.id = $1
		GROUP BY r.id`
	var room models.RoomWithCounters
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("find room with counters: %w", err)
	}
	return &room, nil
}

// Create stores a new room record in the Free state.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.State == "" {
		room.State = models.RoomStateFree
	}
	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now

	const query = `INSERT INTO rooms (id, name, module, state, occupied_by, qr_url, created_at, updated_at)
		VALUES (:id, :name, :module, :state, :occupied_by, :qr_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// Update modifies a room's identity fields (never its occupancy projection).
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = time.Now().UTC()
	const query = `UPDATE rooms SET name = :name, module = :module, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, room)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// UpdateQRURL records the generated QR code location for a room.
func (r *RoomRepository) UpdateQRURL(ctx context.Context, id, qrURL string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE rooms SET qr_url = $1, updated_at = $2 WHERE id = $3`, qrURL, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update room qr url: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrRoomNotFound
	}
	return nil
}
