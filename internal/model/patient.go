package model

import "time"

// Patient is a registered patient. DOB is stored as YYYY-MM-DD.
type Patient struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"size:256;not null;index"`
	DOB       string    `gorm:"column:dob;size:10;not null;index"`
	Email     string    `gorm:"size:256"`
	Phone     string    `gorm:"size:64"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Insurance *Insurance `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
}

// Insurance holds the insurance details captured after booking.
type Insurance struct {
	PatientID   int64     `gorm:"primaryKey"`
	Company     string    `gorm:"size:256;not null"`
	MemberID    string    `gorm:"size:128;not null"`
	GroupNumber string    `gorm:"size:128"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// PushSubscription is a browser endpoint that receives a patient's
// confirmations and reminders. Keys are the base64url values sent by the
// browser's PushManager.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	PatientID int64     `gorm:"column:patient_id;index;not null"`
	P256DH    string    `gorm:"column:p256dh;size:128;not null"`
	Auth      string    `gorm:"column:auth_secret;size:64;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
