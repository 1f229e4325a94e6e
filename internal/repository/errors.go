package repository

import "errors"

// Sentinel errors surfaced by repositories so services can map them onto
// the API error taxonomy without inspecting SQL details.
var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrReservationNotActive = errors.New("reservation is not active")
	ErrResourceNotFound     = errors.New("resource not found")
	ErrUserNotFound         = errors.New("user not found")
)
