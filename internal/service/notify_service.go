package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aulanet/booking-api/pkg/jobs"
)

// ReservationSnapshot is the denormalized booking data carried by outbound
// notifications. It is captured at commit time so later room renames or
// cancellations do not alter the message.
type ReservationSnapshot struct {
	Instructor string `json:"instructor"`
	RoomName   string `json:"room_name"`
	RoomModule string `json:"room_module"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// EmailSender delivers booking confirmations to the requester (and an
// optional CC address).
type EmailSender interface {
	SendReservationEmail(ctx context.Context, snap ReservationSnapshot, to, cc string) error
}

// GroupMessenger broadcasts a booking confirmation to a class group handle.
type GroupMessenger interface {
	SendGroupMessage(ctx context.Context, snap ReservationSnapshot, group string) error
}

const (
	jobTypeEmail = "reservation_email"
	jobTypeGroup = "reservation_group_message"
)

type emailJob struct {
	Snapshot ReservationSnapshot
	To       string
	CC       string
}

type groupJob struct {
	Snapshot ReservationSnapshot
	Group    string
}

// NotifyService decouples notification delivery from the booking request
// path. Jobs are enqueued after the booking transaction commits and
// processed by background workers; delivery failures are retried by the
// queue and then dropped with a log, never surfacing to the caller.
type NotifyService struct {
	queue  *jobs.Queue
	email  EmailSender
	group  GroupMessenger
	logger *zap.Logger
}

// NewNotifyService wires the dispatch queue around the provided senders.
func NewNotifyService(email EmailSender, group GroupMessenger, cfg jobs.QueueConfig, logger *zap.Logger) *NotifyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotifyService{email: email, group: group, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s.queue = jobs.NewQueue("notifications", s.handle, cfg)
	return s
}

// Start launches the background workers.
func (s *NotifyService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotifyService) Stop() {
	s.queue.Stop()
}

// EnqueueEmail schedules a confirmation email. Errors are logged only.
func (s *NotifyService) EnqueueEmail(snap ReservationSnapshot, to, cc string) {
	if to == "" {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: jobTypeEmail, Payload: emailJob{Snapshot: snap, To: to, CC: cc}}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue reservation email", zap.Error(err))
	}
}

// EnqueueGroupMessage schedules a group broadcast. Errors are logged only.
func (s *NotifyService) EnqueueGroupMessage(snap ReservationSnapshot, group string) {
	if group == "" {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: jobTypeGroup, Payload: groupJob{Snapshot: snap, Group: group}}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue group message", zap.Error(err))
	}
}

func (s *NotifyService) handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobTypeEmail:
		payload, ok := job.Payload.(emailJob)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", job.Type)
		}
		if s.email == nil {
			return nil
		}
		return s.email.SendReservationEmail(ctx, payload.Snapshot, payload.To, payload.CC)
	case jobTypeGroup:
		payload, ok := job.Payload.(groupJob)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", job.Type)
		}
		if s.group == nil {
			return nil
		}
		return s.group.SendGroupMessage(ctx, payload.Snapshot, payload.Group)
	default:
		return fmt.Errorf("unknown notification job type %s", job.Type)
	}
}

// LogEmailSender records confirmations to the application log. Real SMTP
// delivery is an integration concern plugged in behind EmailSender.
type LogEmailSender struct {
	Logger *zap.Logger
}

func (l *LogEmailSender) SendReservationEmail(_ context.Context, snap ReservationSnapshot, to, cc string) error {
	l.Logger.Info("reservation confirmation email",
		zap.String("to", to),
		zap.String("cc", cc),
		zap.String("room", snap.RoomName),
		zap.String("date", snap.Date),
		zap.String("window", snap.StartTime+"-"+snap.EndTime),
	)
	return nil
}

// LogGroupMessenger records group broadcasts to the application log.
type LogGroupMessenger struct {
	Logger *zap.Logger
}

func (l *LogGroupMessenger) SendGroupMessage(_ context.Context, snap ReservationSnapshot, group string) error {
	l.Logger.Info("reservation group broadcast",
		zap.String("group", group),
		zap.String("room", snap.RoomName),
		zap.String("instructor", snap.Instructor),
		zap.String("date", snap.Date),
		zap.String("window", snap.StartTime+"-"+snap.EndTime),
	)
	return nil
}
