package booking

import (
	"errors"
	"fmt"

	"clinic-scheduler-backend/internal/store"
)

var (
	// ErrNotFound means the doctor has no schedule. Caller mistake, not retried.
	ErrNotFound = errors.New("resource not found")
	// ErrSlotUnavailable means a covered slot is missing or not in the required state.
	// Expected under contention: search again and offer other windows.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrLockTimeout means the schedule lock could not be taken in time. Retriable with backoff.
	ErrLockTimeout = errors.New("lock timeout")
	// ErrValidation means a malformed duration, window alignment, count or owner.
	ErrValidation = errors.New("validation error")
)

// translateStoreErr maps store sentinels onto the booking taxonomy.
func translateStoreErr(resourceID string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %q: %v", ErrNotFound, resourceID, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
	case errors.Is(err, store.ErrInvalidSlot):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	default:
		return err
	}
}

// resultLabel classifies an outcome for metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "error"
	}
}
