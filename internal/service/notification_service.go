package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitsync/academia-api/internal/models"
	"github.com/fitsync/academia-api/pkg/email"
	"github.com/fitsync/academia-api/pkg/jobs"
)

const jobTypeCheckinEmail = "checkin_email"

type contactReader interface {
	Contact(ctx context.Context, userID string) (*models.UserContact, error)
}

type checkinEmailPayload struct {
	AlunoID   string
	TurmaNome string
	Status    models.PresencaStatus
}

// NotificationService delivers check-in confirmation emails through a
// background queue. Failures are logged and never surfaced to the request
// that triggered them.
type NotificationService struct {
	queue    *jobs.Queue
	sender   email.Sender
	contacts contactReader
	logger   *zap.Logger
}

// NewNotificationService constructs NotificationService. The returned
// service owns the queue; call Start before use and Stop on shutdown.
func NewNotificationService(sender email.Sender, contacts contactReader, workers, bufferSize int, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		sender:   sender,
		contacts: contacts,
		logger:   logger,
	}
	s.queue = jobs.NewQueue(jobTypeCheckinEmail, s.process, jobs.QueueConfig{
		Workers:    workers,
		BufferSize: bufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the background workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyCheckin enqueues a confirmation email for a recorded check-in. The
// call never blocks the check-in response on delivery.
func (s *NotificationService) NotifyCheckin(p models.Presenca, turmaNome string) {
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypeCheckinEmail,
		Payload: checkinEmailPayload{
			AlunoID:   p.AlunoID,
			TurmaNome: turmaNome,
			Status:    p.Status,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue checkin notification",
			zap.String("aluno_id", p.AlunoID), zap.Error(err))
	}
}

func (s *NotificationService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(checkinEmailPayload)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}

	contact, err := s.contacts.Contact(ctx, payload.AlunoID)
	if err != nil {
		return fmt.Errorf("load contact %s: %w", payload.AlunoID, err)
	}
	if contact.Email == "" {
		return nil
	}

	subject := fmt.Sprintf("Check-in registrado: %s", payload.TurmaNome)
	body := fmt.Sprintf("Ola %s,\n\nSeu check-in na turma %s foi registrado com status %s.",
		contact.NomeCompleto, payload.TurmaNome, payload.Status)
	if payload.Status == models.PresencaPendente {
		body += "\nEle sera confirmado pela equipe da academia."
	}

	return s.sender.Send(email.Message{
		ToName:    contact.NomeCompleto,
		ToAddress: contact.Email,
		Subject:   subject,
		TextBody:  body,
	})
}
