package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/aulanet/booking-api/internal/models"
	"github.com/aulanet/booking-api/internal/repository"
	appErrors "github.com/aulanet/booking-api/pkg/errors"
	"github.com/aulanet/booking-api/pkg/storage"
)

type roomDirectory interface {
	List(ctx context.Context) ([]models.RoomWithCounters, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindWithCounters(ctx context.Context, id string) (*models.RoomWithCounters, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	UpdateQRURL(ctx context.Context, id, qrURL string) error
}

type roomLedger interface {
	ListActiveByRoom(ctx context.Context, roomID string) ([]models.Reservation, error)
	SyncRoomState(ctx context.Context, roomID string) (*models.Room, error)
}

// CreateRoomRequest describes the payload for registering a room.
type CreateRoomRequest struct {
	Name   string `json:"name" validate:"required"`
	Module string `json:"module" validate:"required"`
}

// UpdateRoomRequest renames a room. Renames do not rewrite ledger history;
// reservations keep the snapshot taken at booking time.
type UpdateRoomRequest struct {
	Name   string `json:"name" validate:"required"`
	Module string `json:"module" validate:"required"`
}

// QRCodeResult returns the signed download token for a generated QR image.
type QRCodeResult struct {
	QRURL     string `json:"qr_url"`
	ExpiresAt string `json:"expires_at"`
}

// RoomService coordinates room directory use cases, including the
// occupancy reconciliation routine and per-room QR codes.
type RoomService struct {
	rooms      roomDirectory
	ledger     roomLedger
	audit      auditRecorder
	store      *storage.LocalStorage
	signer     *storage.SignedURLSigner
	publicBase string
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewRoomService instantiates RoomService. store and signer may be nil,
// which disables QR generation.
func NewRoomService(rooms roomDirectory, ledger roomLedger, audit auditRecorder, store *storage.LocalStorage, signer *storage.SignedURLSigner, publicBase string, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{
		rooms:      rooms,
		ledger:     ledger,
		audit:      audit,
		store:      store,
		signer:     signer,
		publicBase: publicBase,
		validator:  validate,
		logger:     logger,
	}
}

// List returns all rooms with occupancy and reservation counters.
func (s *RoomService) List(ctx context.Context) ([]models.RoomWithCounters, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// Get returns a room with counters and its active reservations.
func (s *RoomService) Get(ctx context.Context, id string) (*models.RoomDetail, error) {
	room, err := s.rooms.FindWithCounters(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	reservations, err := s.ledger.ListActiveByRoom(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room reservations")
	}

	return &models.RoomDetail{Room: *room, Reservations: reservations}, nil
}

// Create registers a new room in the Free state.
func (s *RoomService) Create(ctx context.Context, req CreateRoomRequest, actor Actor) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room := &models.Room{Name: req.Name, Module: req.Module, State: models.RoomStateFree}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}

	s.record(ctx, actor, models.AuditActionCreateRoom, room.ID, fmt.Sprintf("Created room %s (%s)", room.Name, room.Module))
	return room, nil
}

// Update renames a room.
func (s *RoomService) Update(ctx context.Context, id string, req UpdateRoomRequest, actor Actor) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	room.Name = req.Name
	room.Module = req.Module
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}

	s.record(ctx, actor, models.AuditActionUpdateRoom, room.ID, fmt.Sprintf("Updated room %s (%s)", room.Name, room.Module))
	return room, nil
}

// Reconcile recomputes the room's occupancy projection from the ledger.
// This is the recovery path after a partial failure between ledger and
// room-state writes.
func (s *RoomService) Reconcile(ctx context.Context, id string, actor Actor) (*models.Room, error) {
	room, err := s.ledger.SyncRoomState(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile room state")
	}

	s.record(ctx, actor, models.AuditActionReconcileRoom, room.ID, fmt.Sprintf("Reconciled occupancy for %s: %s", room.Name, room.State))
	return room, nil
}

// GenerateQR renders a PNG QR code pointing at the room's booking page,
// stores it and records a signed download URL on the room.
func (s *RoomService) GenerateQR(ctx context.Context, id string, actor Actor) (*QRCodeResult, error) {
	if s.store == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "qr generation is not configured")
	}

	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	target := fmt.Sprintf("%s/rooms/%s", s.publicBase, room.ID)
	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode qr code")
	}

	relPath := fmt.Sprintf("rooms/%s.png", room.ID)
	if _, err := s.store.Save(relPath, png); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store qr code")
	}

	token, expiresAt, err := s.signer.Generate(room.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign qr url")
	}

	qrURL := fmt.Sprintf("%s/qrcodes/download?token=%s", s.publicBase, token)
	if err := s.rooms.UpdateQRURL(ctx, room.ID, qrURL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save qr url")
	}

	s.record(ctx, actor, models.AuditActionGenerateQR, room.ID, fmt.Sprintf("Generated QR code for %s", room.Name))
	return &QRCodeResult{QRURL: qrURL, ExpiresAt: expiresAt.UTC().Format("2006-01-02T15:04:05Z07:00")}, nil
}

// OpenQR resolves a signed token to the stored PNG bytes.
func (s *RoomService) OpenQR(token string) ([]byte, error) {
	if s.store == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "qr generation is not configured")
	}
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	data, err := s.store.Read(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "qr code not found")
	}
	return data, nil
}

func (s *RoomService) record(ctx context.Context, actor Actor, action, roomID, details string) {
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
		Resource:   "room",
		ResourceID: &roomID,
		Details:    details,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	})
}
