package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"clinic-scheduler-backend/internal/model"
)

// CreateBookingReport appends a row to the admin report. Reporting the same booking twice is a no-op.
func (s *gormStore) CreateBookingReport(ctx context.Context, r *model.BookingReport) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "booking_id"}},
		DoNothing: true,
	}).Create(r).Error; err != nil {
		return fmt.Errorf("failed to write booking report %s: %w", r.BookingID, err)
	}
	return nil
}

// CountBookingReports counts the bookings reported for a patient.
func (s *gormStore) CountBookingReports(ctx context.Context, patientID int64) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.BookingReport{}).Where("patient_id = ?", patientID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count bookings of patient %d: %w", patientID, err)
	}
	return n, nil
}

func (s *gormStore) CreateReminders(ctx context.Context, reminders []model.Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&reminders).Error; err != nil {
		return fmt.Errorf("failed to create %d reminders: %w", len(reminders), err)
	}
	return nil
}

// DeletePendingReminders removes unsent reminders of an appointment and returns how many were removed.
func (s *gormStore) DeletePendingReminders(ctx context.Context, resourceID string, appointmentAt time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("resource_id = ? AND appointment_at = ? AND sent_at IS NULL", resourceID, appointmentAt.UTC()).
		Delete(&model.Reminder{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete reminders for %q at %s: %w", resourceID, appointmentAt, res.Error)
	}
	return res.RowsAffected, nil
}

// DueReminders returns unsent reminders due at or before now, oldest first.
func (s *gormStore) DueReminders(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error) {
	var reminders []model.Reminder
	if err := s.db.WithContext(ctx).
		Where("sent_at IS NULL AND due_at <= ?", now.UTC()).
		Order("due_at").
		Limit(limit).
		Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch due reminders: %w", err)
	}
	return reminders, nil
}

func (s *gormStore) MarkReminderSent(ctx context.Context, id int64, at time.Time) error {
	at = at.UTC()
	res := s.db.WithContext(ctx).Model(&model.Reminder{}).Where("id = ?", id).Update("sent_at", &at)
	if res.Error != nil {
		return fmt.Errorf("failed to mark reminder %d sent: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reminder %d: %w", id, ErrNotFound)
	}
	return nil
}

// PutSubscription creates or replaces a push subscription.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"patient_id", "p256dh", "auth_secret"}),
	}).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, notFound(err, "subscription")
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", endpoint, err)
	}
	return nil
}

func (s *gormStore) SubscriptionsForPatient(ctx context.Context, patientID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("patient_id = ?", patientID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for patient %d: %w", patientID, err)
	}
	return subs, nil
}
