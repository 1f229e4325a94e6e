package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aulanet/booking-api/internal/models"
	"github.com/aulanet/booking-api/internal/repository"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
)

type resourceInventory interface {
	List(ctx context.Context, filter models.ResourceFilter) ([]models.ResourceWithRoom, error)
	FindByID(ctx context.Context, id string) (*models.Resource, error)
	Create(ctx context.Context, resource *models.Resource) error
	UpdateState(ctx context.Context, id string, state models.ResourceState) error
}

type resourceRoomDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// CreateResourceRequest registers a piece of equipment in a room.
type CreateResourceRequest struct {
	RoomID string `json:"room_id" validate:"required"`
	Kind   string `json:"kind" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

// UpdateResourceStateRequest marks a resource as working, damaged or repaired.
type UpdateResourceStateRequest struct {
	State models.ResourceState `json:"state" validate:"required"`
}

// ResourceService manages the equipment inventory attached to rooms.
type ResourceService struct {
	resources resourceInventory
	rooms     resourceRoomDirectory
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

func NewResourceService(resources resourceInventory, rooms resourceRoomDirectory, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ResourceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceService{
		resources: resources,
		rooms:     rooms,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// List returns resources, optionally filtered by room, kind or state.
func (s *ResourceService) List(ctx context.Context, filter models.ResourceFilter) ([]models.ResourceWithRoom, error) {
	resources, err := s.resources.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}
	return resources, nil
}

// Create registers a resource in the Active state after verifying the
// owning room exists.
func (s *ResourceService) Create(ctx context.Context, req CreateResourceRequest, actor Actor) (*models.Resource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}

	if _, err := s.rooms.FindByID(ctx, req.RoomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	resource := &models.Resource{
		RoomID: req.RoomID,
		Kind:   req.Kind,
		Code:   req.Code,
		State:  models.ResourceActive,
	}
	if err := s.resources.Create(ctx, resource); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource")
	}

	s.record(ctx, actor, models.AuditActionCreateResource, resource.ID, fmt.Sprintf("Registered %s %q in room %s", resource.Kind, resource.Code, resource.RoomID))
	return resource, nil
}

// UpdateState transitions a resource between Active, Damaged and Repaired.
func (s *ResourceService) UpdateState(ctx context.Context, id string, req UpdateResourceStateRequest, actor Actor) (*models.Resource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resource payload")
	}

	switch req.State {
	case models.ResourceActive, models.ResourceDamaged, models.ResourceRepaired:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown resource state %q", req.State))
	}

	if err := s.resources.UpdateState(ctx, id, req.State); err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update resource state")
	}

	resource, err := s.resources.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}

	s.record(ctx, actor, models.AuditActionUpdateResource, resource.ID, fmt.Sprintf("Resource %q is now %s", resource.Code, resource.State))
	return resource, nil
}

func (s *ResourceService) record(ctx context.Context, actor Actor, action, resourceID, details string) {
	if s.audit == nil {
		return
	}
	var userID *string
	if actor.UserID != "" {
		userID = &actor.UserID
	}
	s.audit.Record(ctx, &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   "resource",
		ResourceID: &resourceID,
		Details:    details,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	})
}
