package booking

import (
	"context"
	"fmt"
	"time"

	"clinic-scheduler-backend/internal/model"
	"clinic-scheduler-backend/internal/store"
)

// FindSlots returns up to count windows of the given duration on the doctor's
// schedule, starting at or after horizonStart, in ascending start order. One
// window is returned per distinct qualifying start. Search takes no lock and
// may be stale by the time a window is booked.
func (s *Service) FindSlots(ctx context.Context, resourceID string, duration time.Duration, count int, horizonStart time.Time) ([]Window, error) {
	windows, err := s.findSlots(ctx, resourceID, duration, count, horizonStart)
	switch {
	case err != nil:
		s.metrics.ObserveSearch(resultLabel(err))
	case len(windows) == 0:
		s.metrics.ObserveSearch("empty")
	default:
		s.metrics.ObserveSearch("found")
	}
	return windows, err
}

func (s *Service) findSlots(ctx context.Context, resourceID string, duration time.Duration, count int, horizonStart time.Time) ([]Window, error) {
	if err := s.validateDuration(duration); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", ErrValidation, count)
	}

	sched, err := s.store.LoadSchedule(ctx, resourceID)
	if err != nil {
		return nil, translateStoreErr(resourceID, err)
	}
	return scanWindows(sched, duration, count, horizonStart.UTC(), s.granularity), nil
}

// scanWindows walks the schedule keeping the length of the current run of
// contiguous Available slots. A non-Available slot or a hole in the timeline
// ends the run.
func scanWindows(sched *store.Schedule, duration time.Duration, count int, from time.Time, granularity time.Duration) []Window {
	need := int(duration / granularity)
	windows := make([]Window, 0, min(count, len(sched.Slots)))

	run := 0
	for i, slot := range sched.Slots {
		if len(windows) == count {
			break
		}
		if slot.StartTime.Before(from) {
			continue
		}
		if slot.Status != model.SlotAvailable {
			run = 0
			continue
		}
		if run > 0 && !slot.StartTime.Equal(sched.Slots[i-1].StartTime.Add(granularity)) {
			run = 0
		}
		run++
		if run >= need {
			start := sched.Slots[i-need+1].StartTime
			windows = append(windows, Window{
				ResourceID: sched.ResourceID,
				Start:      start,
				End:        start.Add(duration),
			})
		}
	}
	return windows
}

// coveredSlots returns the indexes of the slots making up [start, start+duration).
// A slot missing from the timeline makes the window unavailable.
func coveredSlots(sched *store.Schedule, start time.Time, duration, granularity time.Duration) ([]int, error) {
	n := int(duration / granularity)
	first, ok := sched.Index(start)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no slot at %s", ErrSlotUnavailable, sched.ResourceID, start.Format(time.RFC3339))
	}
	if n > len(sched.Slots)-first {
		return nil, fmt.Errorf("%w: %q has no %s window at %s", ErrSlotUnavailable, sched.ResourceID, duration, start.Format(time.RFC3339))
	}

	idx := make([]int, 0, n)
	for k := 0; k < n; k++ {
		i := first + k
		want := start.Add(time.Duration(k) * granularity)
		if i >= len(sched.Slots) || !sched.Slots[i].StartTime.Equal(want) {
			return nil, fmt.Errorf("%w: %q has no slot at %s", ErrSlotUnavailable, sched.ResourceID, want.Format(time.RFC3339))
		}
		idx = append(idx, i)
	}
	return idx, nil
}
