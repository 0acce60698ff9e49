package model

import "time"

// BookingReport is one row of the admin-facing booking report.
type BookingReport struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	BookingID       string    `gorm:"size:64;not null;uniqueIndex"`
	PatientName     string    `gorm:"size:256"`
	PatientID       *int64    `gorm:"index"`
	DOB             string    `gorm:"column:dob;size:10"`
	InsuranceStatus string    `gorm:"size:32;not null"`
	Doctor          string    `gorm:"size:128;not null"`
	AppointmentAt   time.Time `gorm:"not null"`
	Owner           string    `gorm:"size:256;not null"`
	CreatedAt       time.Time `gorm:"not null"`
}

// Reminder is a notification planned ahead of an appointment.
type Reminder struct {
	ID            int64      `gorm:"primaryKey;autoIncrement"`
	BookingID     string     `gorm:"size:64;not null;index"`
	ResourceID    string     `gorm:"size:128;not null;index:idx_reminder_appointment,priority:1"`
	AppointmentAt time.Time  `gorm:"not null;index:idx_reminder_appointment,priority:2"`
	PatientID     int64      `gorm:"not null;index"`
	Subject       string     `gorm:"size:256;not null"`
	Message       string     `gorm:"not null"`
	DueAt         time.Time  `gorm:"not null;index"`
	SentAt        *time.Time `gorm:"index"`
}
