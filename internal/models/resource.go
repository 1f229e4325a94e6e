package models

import "time"

// ResourceState tracks the condition of a piece of classroom equipment.
type ResourceState string

const (
	ResourceActive   ResourceState = "Activo"
	ResourceDamaged  ResourceState = "Dañado"
	ResourceRepaired ResourceState = "Reparado"
)

// Resource is a piece of equipment assigned to a room.
type Resource struct {
	ID        string        `db:"id" json:"id"`
	RoomID    string        `db:"room_id" json:"room_id"`
	Kind      string        `db:"kind" json:"kind"`
	Code      string        `db:"code" json:"code"`
	State     ResourceState `db:"state" json:"state"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// ResourceWithRoom joins resource rows with their room's name and module.
type ResourceWithRoom struct {
	Resource
	RoomName   string `db:"room_name" json:"room_name"`
	RoomModule string `db:"room_module" json:"room_module"`
}

// ResourceFilter captures listing criteria for resources.
type ResourceFilter struct {
	RoomID string
	Kind   string
	State  ResourceState
}
