package model

import "time"

// Doctor is a bookable resource with its own schedule.
type Doctor struct {
	ID        string    `gorm:"primaryKey;size:128"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	// Associations
	Slots []Slot `gorm:"foreignKey:ResourceID"`
}
