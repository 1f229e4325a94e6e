package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/booking-api/internal/models"
	"github.com/aulanet/booking-api/internal/repository"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
)

type fakeInventory struct {
	resources map[string]*models.Resource
	created   []*models.Resource
}

func (f *fakeInventory) List(context.Context, models.ResourceFilter) ([]models.ResourceWithRoom, error) {
	var out []models.ResourceWithRoom
	for _, r := range f.resources {
		out = append(out, models.ResourceWithRoom{Resource: *r, RoomName: "Aula 101", RoomModule: "A"})
	}
	return out, nil
}

func (f *fakeInventory) FindByID(_ context.Context, id string) (*models.Resource, error) {
	r, ok := f.resources[id]
	if !ok {
		return nil, repository.ErrResourceNotFound
	}
	return r, nil
}

func (f *fakeInventory) Create(_ context.Context, resource *models.Resource) error {
	resource.ID = "resource-new"
	f.created = append(f.created, resource)
	return nil
}

func (f *fakeInventory) UpdateState(_ context.Context, id string, state models.ResourceState) error {
	r, ok := f.resources[id]
	if !ok {
		return repository.ErrResourceNotFound
	}
	r.State = state
	return nil
}

type fakeResourceRooms struct {
	ids map[string]bool
}

func (f *fakeResourceRooms) FindByID(_ context.Context, id string) (*models.Room, error) {
	if !f.ids[id] {
		return nil, repository.ErrRoomNotFound
	}
	return &models.Room{ID: id, Name: "Aula 101", Module: "A"}, nil
}

func TestResourceServiceCreate(t *testing.T) {
	inv := &fakeInventory{resources: map[string]*models.Resource{}}
	audit := &fakeAudit{}
	svc := NewResourceService(inv, &fakeResourceRooms{ids: map[string]bool{"room-1": true}}, audit, nil, nil)

	resource, err := svc.Create(context.Background(), CreateResourceRequest{RoomID: "room-1", Kind: "Proyector", Code: "PRJ-001"}, Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, models.ResourceActive, resource.State)
	assert.Equal(t, "resource-new", resource.ID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCreateResource, audit.logs[0].Action)
}

func TestResourceServiceCreateUnknownRoom(t *testing.T) {
	svc := NewResourceService(&fakeInventory{}, &fakeResourceRooms{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateResourceRequest{RoomID: "missing", Kind: "Proyector", Code: "PRJ-001"}, Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResourceServiceCreateValidation(t *testing.T) {
	svc := NewResourceService(&fakeInventory{}, &fakeResourceRooms{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateResourceRequest{RoomID: "room-1"}, Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResourceServiceUpdateState(t *testing.T) {
	inv := &fakeInventory{resources: map[string]*models.Resource{
		"resource-1": {ID: "resource-1", RoomID: "room-1", Kind: "Proyector", Code: "PRJ-001", State: models.ResourceActive},
	}}
	audit := &fakeAudit{}
	svc := NewResourceService(inv, &fakeResourceRooms{}, audit, nil, nil)

	resource, err := svc.UpdateState(context.Background(), "resource-1", UpdateResourceStateRequest{State: models.ResourceDamaged}, Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, models.ResourceDamaged, resource.State)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionUpdateResource, audit.logs[0].Action)
}

func TestResourceServiceUpdateStateRejectsUnknownState(t *testing.T) {
	svc := NewResourceService(&fakeInventory{}, &fakeResourceRooms{}, nil, nil, nil)

	_, err := svc.UpdateState(context.Background(), "resource-1", UpdateResourceStateRequest{State: "Perdido"}, Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResourceServiceUpdateStateNotFound(t *testing.T) {
	svc := NewResourceService(&fakeInventory{resources: map[string]*models.Resource{}}, &fakeResourceRooms{}, nil, nil, nil)

	_, err := svc.UpdateState(context.Background(), "missing", UpdateResourceStateRequest{State: models.ResourceRepaired}, Actor{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
