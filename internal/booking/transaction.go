package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinic-scheduler-backend/internal/model"
	"clinic-scheduler-backend/internal/store"
)

// Book reserves the window [start, start+duration) on the doctor's schedule
// for owner. Every covered slot must be Available when checked under the
// doctor's lock, otherwise ErrSlotUnavailable is returned and nothing changes.
func (s *Service) Book(ctx context.Context, resourceID string, start time.Time, duration time.Duration, owner string) (*Booking, error) {
	b, err := s.book(ctx, resourceID, start.UTC(), duration, strings.TrimSpace(owner))
	s.metrics.ObserveTransaction("book", resultLabel(err))
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("booking", b.ID).Str("doctor", resourceID).Time("start", b.Start).Dur("duration", duration).Msg("booked")
	s.emit(ctx, Event{Kind: EventBooked, Booking: *b})
	return b, nil
}

func (s *Service) book(ctx context.Context, resourceID string, start time.Time, duration time.Duration, owner string) (*Booking, error) {
	if err := s.validateWindow(start, duration); err != nil {
		return nil, err
	}
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if start.Before(s.now()) {
		return nil, fmt.Errorf("%w: start %s is in the past", ErrValidation, start.Format(time.RFC3339))
	}

	err := s.withSchedule(ctx, resourceID, func(sched *store.Schedule) error {
		idx, err := coveredSlots(sched, start, duration, s.granularity)
		if err != nil {
			return err
		}
		for _, i := range idx {
			if st := sched.Slots[i].Status; st != model.SlotAvailable {
				return fmt.Errorf("%w: %q at %s is %s", ErrSlotUnavailable, resourceID, sched.Slots[i].StartTime.Format(time.RFC3339), st)
			}
		}
		for _, i := range idx {
			sched.Set(i, model.SlotBooked, owner)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Booking{
		ID:         uuid.NewString(),
		ResourceID: resourceID,
		Start:      start,
		End:        start.Add(duration),
		Owner:      owner,
		CreatedAt:  s.now().UTC(),
	}, nil
}

// Release returns a booked window to Available. Every covered slot must be
// booked by owner.
func (s *Service) Release(ctx context.Context, resourceID string, start time.Time, duration time.Duration, owner string) error {
	start = start.UTC()
	owner = strings.TrimSpace(owner)
	err := s.release(ctx, resourceID, start, duration, owner)
	s.metrics.ObserveTransaction("release", resultLabel(err))
	if err != nil {
		return err
	}

	s.log.Info().Str("doctor", resourceID).Time("start", start).Dur("duration", duration).Msg("released")
	s.emit(ctx, Event{Kind: EventReleased, Booking: Booking{
		ResourceID: resourceID,
		Start:      start,
		End:        start.Add(duration),
		Owner:      owner,
		CreatedAt:  s.now().UTC(),
	}})
	return nil
}

func (s *Service) release(ctx context.Context, resourceID string, start time.Time, duration time.Duration, owner string) error {
	if err := s.validateWindow(start, duration); err != nil {
		return err
	}
	if owner == "" {
		return fmt.Errorf("%w: owner is required", ErrValidation)
	}

	return s.withSchedule(ctx, resourceID, func(sched *store.Schedule) error {
		idx, err := coveredSlots(sched, start, duration, s.granularity)
		if err != nil {
			return err
		}
		for _, i := range idx {
			slot := sched.Slots[i]
			if slot.Status != model.SlotBooked || slot.Owner != owner {
				return fmt.Errorf("%w: %q at %s is not booked by %s", ErrSlotUnavailable, resourceID, slot.StartTime.Format(time.RFC3339), owner)
			}
		}
		for _, i := range idx {
			sched.Set(i, model.SlotAvailable, "")
		}
		return nil
	})
}

// SetBlocked blocks or unblocks a window. Slots already in the target state
// are left alone; a Booked slot in the window fails the whole call.
func (s *Service) SetBlocked(ctx context.Context, resourceID string, start time.Time, duration time.Duration, blocked bool) error {
	op := "unblock"
	if blocked {
		op = "block"
	}
	start = start.UTC()

	err := s.setBlocked(ctx, resourceID, start, duration, blocked)
	s.metrics.ObserveTransaction(op, resultLabel(err))
	if err == nil {
		s.log.Info().Str("doctor", resourceID).Time("start", start).Dur("duration", duration).Msg(op)
	}
	return err
}

func (s *Service) setBlocked(ctx context.Context, resourceID string, start time.Time, duration time.Duration, blocked bool) error {
	if err := s.validateWindow(start, duration); err != nil {
		return err
	}

	from, to := model.SlotBlocked, model.SlotAvailable
	if blocked {
		from, to = model.SlotAvailable, model.SlotBlocked
	}

	return s.withSchedule(ctx, resourceID, func(sched *store.Schedule) error {
		idx, err := coveredSlots(sched, start, duration, s.granularity)
		if err != nil {
			return err
		}
		for _, i := range idx {
			if sched.Slots[i].Status == model.SlotBooked {
				return fmt.Errorf("%w: %q at %s is booked", ErrSlotUnavailable, resourceID, sched.Slots[i].StartTime.Format(time.RFC3339))
			}
		}
		for _, i := range idx {
			if sched.Slots[i].Status == from {
				sched.Set(i, to, "")
			}
		}
		return nil
	})
}
