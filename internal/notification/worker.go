package notification

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"clinic-scheduler-backend/internal/booking"
	"clinic-scheduler-backend/internal/model"
	"clinic-scheduler-backend/internal/store"
)

// ErrQueueFull is returned by Notify when the worker pool cannot take more events.
var ErrQueueFull = errors.New("notification queue full")

// Store is what the worker pool needs from persistence.
type Store interface {
	store.PatientStore
	store.NotificationStore
}

// Options configures a WorkerPool.
type Options struct {
	Size            int
	QueueSize       int
	ReminderOffsets []time.Duration
	IntakeFormURL   string
	Location        *time.Location
	Now             func() time.Time
}

// WorkerPool consumes booking events: it writes the admin report, sends
// confirmations, plans reminders and cancels them on release.
type WorkerPool struct {
	size      int
	jobs      chan booking.Event
	store     Store
	messenger *Messenger
	offsets   []time.Duration
	intakeURL string
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(st Store, messenger *Messenger, opts Options, log zerolog.Logger) *WorkerPool {
	if opts.Size <= 0 {
		opts.Size = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	offsets := append([]time.Duration(nil), opts.ReminderOffsets...)
	slices.Sort(offsets)
	slices.Reverse(offsets)

	return &WorkerPool{
		size:      opts.Size,
		jobs:      make(chan booking.Event, opts.QueueSize),
		store:     st,
		messenger: messenger,
		offsets:   offsets,
		intakeURL: opts.IntakeFormURL,
		loc:       opts.Location,
		now:       opts.Now,
		log:       log.With().Str("component", "notification").Logger(),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.log.With().Int("worker", id).Logger()
	log.Debug().Msg("worker started")
	for {
		select {
		case ev := <-wp.jobs:
			if err := wp.Handle(ctx, ev); err != nil {
				log.Error().Err(err).Str("event", string(ev.Kind)).Str("doctor", ev.Booking.ResourceID).Msg("event handling failed")
			}
		case <-ctx.Done():
			log.Debug().Msg("worker shutting down")
			return
		}
	}
}

// Notify queues an event without blocking.
func (wp *WorkerPool) Notify(_ context.Context, ev booking.Event) error {
	select {
	case wp.jobs <- ev:
		return nil
	default:
		return fmt.Errorf("%w: %s event for %q dropped", ErrQueueFull, ev.Kind, ev.Booking.ResourceID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan booking.Event {
	return wp.jobs
}

// Handle processes one event synchronously.
func (wp *WorkerPool) Handle(ctx context.Context, ev booking.Event) error {
	switch ev.Kind {
	case booking.EventBooked:
		return wp.handleBooked(ctx, ev.Booking)
	case booking.EventReleased:
		n, err := wp.store.DeletePendingReminders(ctx, ev.Booking.ResourceID, ev.Booking.Start)
		if err != nil {
			return err
		}
		wp.log.Info().Str("doctor", ev.Booking.ResourceID).Time("start", ev.Booking.Start).Int64("reminders", n).Msg("reminders cancelled")
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

func (wp *WorkerPool) handleBooked(ctx context.Context, b booking.Booking) error {
	patient, err := wp.patientFor(ctx, b.Owner)
	if err != nil {
		return err
	}

	report := &model.BookingReport{
		BookingID:       b.ID,
		PatientName:     b.Owner,
		InsuranceStatus: "unknown",
		Doctor:          b.ResourceID,
		AppointmentAt:   b.Start,
		Owner:           b.Owner,
		CreatedAt:       wp.now().UTC(),
	}
	if patient == nil {
		// Nobody to notify; the report still records the booking.
		return wp.store.CreateBookingReport(ctx, report)
	}

	previous, err := wp.store.CountBookingReports(ctx, patient.ID)
	if err != nil {
		return err
	}
	firstVisit := previous == 0

	report.PatientName = patient.Name
	report.PatientID = &patient.ID
	report.DOB = patient.DOB
	report.InsuranceStatus = "pending"
	if patient.Insurance != nil {
		report.InsuranceStatus = "provided"
	}
	if err := wp.store.CreateBookingReport(ctx, report); err != nil {
		return err
	}

	var errs []error
	if err := wp.messenger.Deliver(ctx, patient, wp.confirmation(b)); err != nil {
		errs = append(errs, fmt.Errorf("confirmation: %w", err))
	}
	if firstVisit {
		if err := wp.messenger.Email(ctx, patient, wp.intakeForm(b)); err != nil {
			errs = append(errs, fmt.Errorf("intake form: %w", err))
		}
	}
	if err := wp.store.CreateReminders(ctx, wp.planReminders(b, patient.ID, firstVisit)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// patientFor resolves a booking owner to a registered patient. Owners that
// are not patient ids yield nil.
func (wp *WorkerPool) patientFor(ctx context.Context, owner string) (*model.Patient, error) {
	id, err := strconv.ParseInt(owner, 10, 64)
	if err != nil {
		return nil, nil
	}
	p, err := wp.store.GetPatient(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return p, err
}
