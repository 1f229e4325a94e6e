package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aulanet/booking-api/internal/models"
)

// AuditRepository appends and lists audit trail records.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit record.
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, details, ip_address, user_agent, created_at)
		VALUES (:id, :user_id, :action, :resource, :resource_id, :details, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// List returns the newest audit records joined with the acting user.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLogWithActor, error) {
	base := `SELECT l.id, l.user_id, l.action, l.resource, l.resource_id, l.details, l.ip_address, l.user_agent, l.created_at,
		u.full_name AS user_name, u.email AS user_email
		FROM audit_logs l
		LEFT JOIN users u ON u.id = l.user_id
		WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("l.action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("l.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY l.created_at DESC LIMIT %d", limit)

	var logs []models.AuditLogWithActor
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
