package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-scheduler-backend/internal/model"
)

// ScheduleStore is the availability store: per-doctor schedules with
// all-or-nothing updates.
type ScheduleStore interface {
	LoadSchedule(ctx context.Context, resourceID string) (*Schedule, error)
	PersistSchedule(ctx context.Context, sched *Schedule) error
	ListDoctors(ctx context.Context, from time.Time) ([]DoctorSummary, error)
	UpsertDoctorsAndSlots(ctx context.Context, doctors []string, slots []model.Slot) error
}

// PatientStore persists patients and their insurance.
type PatientStore interface {
	LookupPatient(ctx context.Context, name, dob string) (*model.Patient, error)
	GetPatient(ctx context.Context, id int64) (*model.Patient, error)
	RegisterPatient(ctx context.Context, p *model.Patient) error
	SaveInsurance(ctx context.Context, ins *model.Insurance) error
}

// NotificationStore persists the admin report, reminders and push subscriptions.
type NotificationStore interface {
	CreateBookingReport(ctx context.Context, r *model.BookingReport) error
	CountBookingReports(ctx context.Context, patientID int64) (int64, error)
	CreateReminders(ctx context.Context, reminders []model.Reminder) error
	DeletePendingReminders(ctx context.Context, resourceID string, appointmentAt time.Time) (int64, error)
	DueReminders(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error)
	MarkReminderSent(ctx context.Context, id int64, at time.Time) error
	PutSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForPatient(ctx context.Context, patientID int64) ([]model.PushSubscription, error)
}

// Store defines the interface for all database operations.
type Store interface {
	ScheduleStore
	PatientStore
	NotificationStore
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// LoadSchedule reads every slot of the doctor from the database.
func (s *gormStore) LoadSchedule(ctx context.Context, resourceID string) (*Schedule, error) {
	var slots []model.Slot
	if err := s.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("start_time").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to load schedule for %q: %w", resourceID, err)
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("schedule for %q: %w", resourceID, ErrNotFound)
	}
	return NewSchedule(resourceID, slots), nil
}

// PersistSchedule writes the changed slots of the schedule in a single
// transaction. Either every change is committed or none is. A slot whose
// stored status differs from the one it was loaded with fails the whole
// write with ErrConflict.
func (s *gormStore) PersistSchedule(ctx context.Context, sched *Schedule) error {
	changed := sched.Changed()
	if len(changed) == 0 {
		return nil
	}
	for _, slot := range changed {
		if !slot.Valid() {
			return fmt.Errorf("slot %s of %q has status %q with owner %q: %w",
				slot.StartTime.Format(time.RFC3339), sched.ResourceID, slot.Status, slot.Owner, ErrInvalidSlot)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, slot := range changed {
			res := tx.Model(&model.Slot{}).
				Where("id = ? AND resource_id = ? AND status = ?", slot.ID, sched.ResourceID, slot.Previous).
				Updates(map[string]any{"status": slot.Status, "owner": slot.Owner})
			if res.Error != nil {
				return fmt.Errorf("failed to update slot %d of %q: %w", slot.ID, sched.ResourceID, res.Error)
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("slot %d of %q was %s at load: %w", slot.ID, sched.ResourceID, slot.Previous, ErrConflict)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	sched.dirty = nil
	return nil
}

// ListDoctors returns every doctor with the number of available slots at or after from.
func (s *gormStore) ListDoctors(ctx context.Context, from time.Time) ([]DoctorSummary, error) {
	var doctors []model.Doctor
	if err := s.db.WithContext(ctx).Order("id").Find(&doctors).Error; err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}

	type aggRow struct {
		ResourceID     string
		AvailableSlots int64
	}
	var aggs []aggRow
	if err := s.db.WithContext(ctx).
		Model(&model.Slot{}).
		Select("resource_id as resource_id, COUNT(*) as available_slots").
		Where("status = ? AND start_time >= ?", model.SlotAvailable, from.UTC()).
		Group("resource_id").
		Scan(&aggs).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate slots: %w", err)
	}

	aggMap := make(map[string]int64, len(aggs))
	for _, a := range aggs {
		aggMap[a.ResourceID] = a.AvailableSlots
	}

	summaries := make([]DoctorSummary, 0, len(doctors))
	for _, d := range doctors {
		summaries = append(summaries, DoctorSummary{ID: d.ID, AvailableSlots: aggMap[d.ID]})
	}
	return summaries, nil
}

// UpsertDoctorsAndSlots creates doctors and slots that do not exist yet.
// Existing slots are left untouched, so regenerating a horizon never
// clears a booking.
func (s *gormStore) UpsertDoctorsAndSlots(ctx context.Context, doctors []string, slots []model.Slot) error {
	if len(doctors) == 0 {
		return nil
	}
	rows := make([]model.Doctor, 0, len(doctors))
	for _, id := range doctors {
		rows = append(rows, model.Doctor{ID: id})
	}
	for i := range slots {
		slots[i].StartTime = slots[i].StartTime.UTC()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("batch upsert doctors failed: %w", err)
		}
		if len(slots) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "resource_id"}, {Name: "start_time"}},
			DoNothing: true,
		}).CreateInBatches(&slots, 500).Error; err != nil {
			return fmt.Errorf("batch upsert slots failed: %w", err)
		}
		return nil
	})
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
