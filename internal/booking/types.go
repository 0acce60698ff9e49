package booking

import (
	"context"
	"time"
)

// Window is a contiguous run of available slots long enough for a requested duration.
type Window struct {
	ResourceID string    `json:"doctor"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Booking is a committed reservation of a window.
type Booking struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"doctor"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Owner      string    `json:"owner"`
	CreatedAt  time.Time `json:"createdAt"`
}

// EventKind names what happened to a booking.
type EventKind string

const (
	EventBooked   EventKind = "booked"
	EventReleased EventKind = "released"
)

// Event is published after a schedule transaction commits.
type Event struct {
	Kind    EventKind
	Booking Booking
}

// Notifier receives booking events. Delivery is best effort: an error is
// logged by the service and never undoes the committed transaction.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// DurationPolicy maps the patient type onto the appointment length.
type DurationPolicy struct {
	New       time.Duration
	Returning time.Duration
}

// For returns the appointment length for a new or returning patient.
func (p DurationPolicy) For(isNew bool) time.Duration {
	if isNew {
		return p.New
	}
	return p.Returning
}
