package models

import "time"

// ReservationStatus enumerates ledger states. Completada exists in the
// reporting vocabulary but is never assigned by this service.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "Activa"
	ReservationCancelled ReservationStatus = "Cancelada"
	ReservationCompleted ReservationStatus = "Completada"
)

// Reservation is a ledger record. Rows are never hard-deleted; the only
// status transition is Activa -> Cancelada. RoomName and RoomModule are a
// snapshot taken at booking time so history survives room renames.
type Reservation struct {
	ID          string            `db:"id" json:"id"`
	UserID      string            `db:"user_id" json:"user_id"`
	RoomID      string            `db:"room_id" json:"room_id"`
	Instructor  string            `db:"instructor" json:"instructor"`
	RoomName    string            `db:"room_name" json:"room_name"`
	RoomModule  string            `db:"room_module" json:"room_module"`
	Date        string            `db:"date" json:"date"`
	StartTime   string            `db:"start_time" json:"start_time"`
	EndTime     string            `db:"end_time" json:"end_time"`
	NotifyGroup *string           `db:"notify_group" json:"notify_group,omitempty"`
	Status      ReservationStatus `db:"status" json:"status"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// ReservationFilter captures listing criteria for the ledger.
type ReservationFilter struct {
	RoomID   string
	Status   ReservationStatus
	Date     string
	UserID   string
	Page     int
	PageSize int
}

// AvailabilityResult is the transient outcome of an availability check.
// Conflicts is populated only when the requested interval overlaps active
// reservations; Reason carries the horizon verdict when the date is out of
// the booking window.
type AvailabilityResult struct {
	Available bool          `json:"available"`
	Reason    string        `json:"reason,omitempty"`
	Conflicts []Reservation `json:"conflicts,omitempty"`
}

// ReservationConflictError carries the conflicting set for callers that
// need to render it.
type ReservationConflictError struct {
	Message   string
	Conflicts []Reservation
}

func (e *ReservationConflictError) Error() string {
	return e.Message
}
