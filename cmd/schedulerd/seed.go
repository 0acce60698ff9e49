package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clinic-scheduler-backend/config"
	"clinic-scheduler-backend/internal/booking"
	"clinic-scheduler-backend/internal/model"
	"clinic-scheduler-backend/internal/parse"
	"clinic-scheduler-backend/internal/store"
)

// seedSchedules creates the configured doctors and their slots from today
// on. Existing slots are kept, so restarting never clears bookings.
func seedSchedules(ctx context.Context, st store.ScheduleStore, cfg *config.Config, loc *time.Location, logger zerolog.Logger) error {
	dayStart, err := parse.Clock(cfg.Seed.DayStart)
	if err != nil {
		return fmt.Errorf("seed.day_start: %w", err)
	}
	dayEnd, err := parse.Clock(cfg.Seed.DayEnd)
	if err != nil {
		return fmt.Errorf("seed.day_end: %w", err)
	}

	var slots []model.Slot
	for _, doctor := range cfg.Seed.Doctors {
		slots = append(slots, booking.GenerateSlots(doctor, booking.GenerateOptions{
			From:          time.Now().In(loc),
			Days:          cfg.Seed.Days,
			DayStart:      dayStart,
			DayEnd:        dayEnd,
			Granularity:   cfg.Scheduling.SlotGranularity,
			Location:      loc,
			BlockWeekends: cfg.Seed.BlockWeekends,
		})...)
	}

	if err := st.UpsertDoctorsAndSlots(ctx, cfg.Seed.Doctors, slots); err != nil {
		return err
	}
	logger.Info().Strs("doctors", cfg.Seed.Doctors).Int("days", cfg.Seed.Days).Int("slots", len(slots)).Msg("schedules seeded")
	return nil
}
