package models

import "time"

// AuditAction constants represent actions recorded in the trail.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionCreateReservation = "CREATE_RESERVATION"
	AuditActionCancelReservation = "CANCEL_RESERVATION"
	AuditActionCreateRoom        = "CREATE_ROOM"
	AuditActionUpdateRoom        = "UPDATE_ROOM"
	AuditActionGenerateQR        = "GENERATE_QR"
	AuditActionReconcileRoom     = "RECONCILE_ROOM"
	AuditActionCreateResource    = "CREATE_RESOURCE"
	AuditActionUpdateResource    = "UPDATE_RESOURCE_STATUS"
)

// AuditLog represents an audit trail record. Writes are best-effort; a
// failed audit insert never fails the action it describes.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details    string    `db:"details" json:"details"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditLogWithActor joins the trail with the acting user's name and email.
type AuditLogWithActor struct {
	AuditLog
	UserName  *string `db:"user_name" json:"user_name,omitempty"`
	UserEmail *string `db:"user_email" json:"user_email,omitempty"`
}

// AuditLogFilter captures listing criteria for the trail.
type AuditLogFilter struct {
	Action string
	UserID string
	Limit  int
}
