// Package reminder delivers planned appointment reminders when they fall due.
package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"clinic-scheduler-backend/internal/model"
	"clinic-scheduler-backend/internal/notification"
	"clinic-scheduler-backend/internal/store"
)

const batchSize = 100

// Store is the persistence the reminder loop needs.
type Store interface {
	DueReminders(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error)
	MarkReminderSent(ctx context.Context, id int64, at time.Time) error
	GetPatient(ctx context.Context, id int64) (*model.Patient, error)
}

// Deliverer sends a message to a patient over all channels.
type Deliverer interface {
	Deliver(ctx context.Context, p *model.Patient, msg notification.Message) error
}

// Service polls for due reminders and sends them.
type Service struct {
	store    Store
	sender   Deliverer
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a reminder service polling every interval.
func NewService(st Store, sender Deliverer, interval time.Duration, log zerolog.Logger) *Service {
	return &Service{
		store:    st,
		sender:   sender,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "reminder").Logger(),
	}
}

// Run sends due reminders in a loop until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("starting reminder service")

	s.SendDue(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reminder service shutting down")
			return
		case <-timer.C:
			s.SendDue(ctx)
			timer.Reset(s.interval)
		}
	}
}

// SendDue delivers every reminder due now and returns how many were sent.
// A reminder that fails to deliver stays pending and is retried next cycle.
func (s *Service) SendDue(ctx context.Context) int {
	sent := 0
	for {
		reminders, err := s.store.DueReminders(ctx, s.now(), batchSize)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to fetch due reminders")
			return sent
		}

		progressed := false
		for _, r := range reminders {
			ok, err := s.send(ctx, r)
			if err != nil {
				s.log.Warn().Err(err).Int64("reminder", r.ID).Str("booking", r.BookingID).Msg("reminder not delivered")
			}
			if ok {
				sent++
				progressed = true
			}
		}
		if len(reminders) < batchSize || !progressed {
			break
		}
	}
	if sent > 0 {
		s.log.Info().Int("sent", sent).Msg("reminders sent")
	}
	return sent
}

// send delivers one reminder and marks it sent. Reminders of deleted
// patients are marked sent without delivery.
func (s *Service) send(ctx context.Context, r model.Reminder) (bool, error) {
	p, err := s.store.GetPatient(ctx, r.PatientID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.log.Warn().Int64("patient", r.PatientID).Int64("reminder", r.ID).Msg("patient gone, dropping reminder")
	case err != nil:
		return false, err
	default:
		if err := s.sender.Deliver(ctx, p, notification.ReminderMessage(r)); err != nil {
			return false, err
		}
	}

	if err := s.store.MarkReminderSent(ctx, r.ID, s.now()); err != nil {
		return false, err
	}
	return true, nil
}
