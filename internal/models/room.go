package models

import "time"

// RoomState is the cached occupancy projection of a room.
type RoomState string

const (
	RoomStateFree     RoomState = "Libre"
	RoomStateOccupied RoomState = "Ocupada"
)

// Room represents a bookable classroom. State and OccupiedBy are a
// materialized projection of the active reservations for the room; they are
// re-synced inside every booking transaction and can be recomputed from the
// ledger through the reconcile routine.
type Room struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Module     string    `db:"module" json:"module"`
	State      RoomState `db:"state" json:"state"`
	OccupiedBy *string   `db:"occupied_by" json:"occupied_by,omitempty"`
	QRURL      *string   `db:"qr_url" json:"qr_url,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// RoomWithCounters augments a room with derived reservation counters.
type RoomWithCounters struct {
	Room
	TotalReservations  int `db:"total_reservations" json:"total_reservations"`
	ActiveReservations int `db:"active_reservations" json:"active_reservations"`
}

// RoomDetail bundles a room with its active reservations.
type RoomDetail struct {
	Room         RoomWithCounters `json:"room"`
	Reservations []Reservation    `json:"reservations"`
}
