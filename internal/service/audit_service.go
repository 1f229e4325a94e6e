package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/aulanet/booking-api/internal/models"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
)

type auditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLogWithActor, error)
}

// AuditService records and lists the action trail. Writes are best-effort:
// a failed insert is logged and swallowed so audit problems never fail the
// action being audited.
type AuditService struct {
	store  auditStore
	logger *zap.Logger
}

// NewAuditService instantiates AuditService.
func NewAuditService(store auditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: store, logger: logger}
}

// Record appends an audit entry, swallowing failures.
func (s *AuditService) Record(ctx context.Context, log *models.AuditLog) {
	if err := s.store.Create(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log",
			zap.String("action", log.Action),
			zap.String("resource", log.Resource),
			zap.Error(err),
		)
	}
}

// List returns trail entries for the history view.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLogWithActor, error) {
	logs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}
