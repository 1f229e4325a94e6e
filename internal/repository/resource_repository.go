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

// ResourceRepository provides persistence for room equipment.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository creates a new resource repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// List returns resources joined with their room, applying optional filters.
func (r *ResourceRepository) List(ctx context.Context, filter models.ResourceFilter) ([]models.ResourceWithRoom, error) {
	base := `SELECT res.id, res.room_id, res.kind, res.code, res.state, res.created_at, res.updated_at,
		rm.name AS room_name, rm.module AS room_module
		FROM resources res
		INNER JOIN rooms rm ON rm.id = res.room_id
		WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("res.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("res.kind ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Kind+"%")
	}
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("res.state = $%d", len(args)+1))
		args = append(args, filter.State)
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY res.room_id ASC, res.kind ASC, res.code ASC"

	var resources []models.ResourceWithRoom
	if err := r.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// FindByID loads a resource by id.
func (r *ResourceRepository) FindByID(ctx context.Context, id string) (*models.Resource, error) {
	const query = `SELECT id, room_id, kind, code, state, created_at, updated_at FROM resources WHERE id = $1`
	var resource models.Resource
	if err := r.db.GetContext(ctx, &resource, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("find resource: %w", err)
	}
	return &resource, nil
}

// Create stores a new resource record.
func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	if resource.State == "" {
		resource.State = models.ResourceActive
	}
	now := time.Now().UTC()
	resource.CreatedAt = now
	resource.UpdatedAt = now

	const query = `INSERT INTO resources (id, room_id, kind, code, state, created_at, updated_at)
		VALUES (:id, :room_id, :kind, :code, :state, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, resource); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

// UpdateState changes a resource's condition.
func (r *ResourceRepository) UpdateState(ctx context.Context, id string, state models.ResourceState) error {
	result, err := r.db.ExecContext(ctx, `UPDATE resources SET state = $1, updated_at = $2 WHERE id = $3`, state, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update resource state: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrResourceNotFound
	}
	return nil
}
