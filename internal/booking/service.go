package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clinic-scheduler-backend/internal/lock"
	"clinic-scheduler-backend/internal/metrics"
	"clinic-scheduler-backend/internal/store"
)

// Options configures a Service.
type Options struct {
	Granularity time.Duration
	LockTimeout time.Duration
	Notifier    Notifier
	Metrics     *metrics.BookingMetrics
	Logger      zerolog.Logger
	Now         func() time.Time
}

// Service runs slot searches and schedule transactions against the availability store.
type Service struct {
	store       store.ScheduleStore
	guard       lock.Guard
	granularity time.Duration
	lockTimeout time.Duration
	notifier    Notifier
	metrics     *metrics.BookingMetrics
	log         zerolog.Logger
	now         func() time.Time
}

// NewService creates a booking service.
func NewService(st store.ScheduleStore, guard lock.Guard, opts Options) *Service {
	if opts.Granularity <= 0 {
		opts.Granularity = 15 * time.Minute
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:       st,
		guard:       guard,
		granularity: opts.Granularity,
		lockTimeout: opts.LockTimeout,
		notifier:    opts.Notifier,
		metrics:     opts.Metrics,
		log:         opts.Logger.With().Str("component", "booking").Logger(),
		now:         opts.Now,
	}
}

// Granularity returns the slot length.
func (s *Service) Granularity() time.Duration {
	return s.granularity
}

func (s *Service) validateDuration(duration time.Duration) error {
	if duration <= 0 || duration%s.granularity != 0 {
		return fmt.Errorf("%w: duration %s is not a positive multiple of %s", ErrValidation, duration, s.granularity)
	}
	return nil
}

func (s *Service) validateWindow(start time.Time, duration time.Duration) error {
	if err := s.validateDuration(duration); err != nil {
		return err
	}
	if !start.Truncate(s.granularity).Equal(start) {
		return fmt.Errorf("%w: start %s is not aligned to %s", ErrValidation, start.Format(time.RFC3339), s.granularity)
	}
	return nil
}

// withSchedule runs mutate against a fresh copy of the doctor's schedule
// while holding the doctor's lock, then persists the changes. Nothing is
// written when mutate fails.
func (s *Service) withSchedule(ctx context.Context, resourceID string, mutate func(*store.Schedule) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	waitStart := time.Now()
	release, err := s.guard.Acquire(lockCtx, resourceID)
	s.metrics.ObserveLockWait(time.Since(waitStart).Seconds())
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return fmt.Errorf("%w: schedule of %q is busy", ErrLockTimeout, resourceID)
		}
		return err
	}
	defer release()

	sched, err := s.store.LoadSchedule(ctx, resourceID)
	if err != nil {
		return translateStoreErr(resourceID, err)
	}
	if err := mutate(sched); err != nil {
		return err
	}
	if err := s.store.PersistSchedule(ctx, sched); err != nil {
		return translateStoreErr(resourceID, err)
	}
	return nil
}

// emit hands a committed event to the notifier.
func (s *Service) emit(ctx context.Context, ev Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("event", string(ev.Kind)).
			Str("doctor", ev.Booking.ResourceID).
			Time("start", ev.Booking.Start).
			Msg("booking event not delivered")
	}
}
