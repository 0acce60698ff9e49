package booking

import (
	"time"

	"clinic-scheduler-backend/internal/model"
)

// GenerateOptions describes a working-hours template.
type GenerateOptions struct {
	From          time.Time // first day; only the date part is used
	Days          int
	DayStart      time.Duration // offset from local midnight
	DayEnd        time.Duration
	Granularity   time.Duration
	Location      *time.Location
	BlockWeekends bool
}

// GenerateSlots lays out the slots of one doctor over opts.Days days. Slots
// are Available, or Blocked on Saturdays and Sundays when BlockWeekends is set.
// Start times are returned in UTC.
func GenerateSlots(resourceID string, opts GenerateOptions) []model.Slot {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	if opts.Granularity <= 0 || opts.DayEnd <= opts.DayStart {
		return nil
	}

	from := opts.From.In(loc)
	perDay := int((opts.DayEnd - opts.DayStart) / opts.Granularity)
	slots := make([]model.Slot, 0, perDay*opts.Days)
	for d := 0; d < opts.Days; d++ {
		midnight := time.Date(from.Year(), from.Month(), from.Day()+d, 0, 0, 0, 0, loc)
		status := model.SlotAvailable
		if opts.BlockWeekends && (midnight.Weekday() == time.Saturday || midnight.Weekday() == time.Sunday) {
			status = model.SlotBlocked
		}
		for t := midnight.Add(opts.DayStart); t.Add(opts.Granularity).Compare(midnight.Add(opts.DayEnd)) <= 0; t = t.Add(opts.Granularity) {
			slots = append(slots, model.Slot{
				ResourceID: resourceID,
				StartTime:  t.UTC(),
				Status:     status,
			})
		}
	}
	return slots
}
