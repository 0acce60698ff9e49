package model

import "time"

// SlotStatus is the lifecycle state of a single slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "Available"
	SlotBlocked   SlotStatus = "Blocked"
	SlotBooked    SlotStatus = "Booked"
)

// Slot is the smallest schedulable unit of one doctor's time.
type Slot struct {
	ID         int64      `gorm:"primaryKey;autoIncrement"`
	ResourceID string     `gorm:"size:128;not null;uniqueIndex:idx_slot_resource_start,priority:1"`
	StartTime  time.Time  `gorm:"not null;uniqueIndex:idx_slot_resource_start,priority:2"`
	Status     SlotStatus `gorm:"size:16;not null;index"`
	Owner      string     `gorm:"size:256;not null"`
	UpdatedAt  time.Time
}

// Valid reports whether the status/owner pair respects the slot invariant.
func (s Slot) Valid() bool {
	switch s.Status {
	case SlotBooked:
		return s.Owner != ""
	case SlotAvailable, SlotBlocked:
		return s.Owner == ""
	default:
		return false
	}
}
