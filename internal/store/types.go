package store

import (
	"errors"
	"sort"
	"time"

	"clinic-scheduler-backend/internal/model"
)

var (
	// ErrNotFound is returned when the requested record or schedule does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSlot is returned when a slot violates the status/owner invariant.
	ErrInvalidSlot = errors.New("invalid slot")
	// ErrConflict is returned when a slot no longer has the status it was loaded with.
	ErrConflict = errors.New("slot changed since load")
)

// Schedule is the ordered set of slots of one doctor. Slots are sorted by
// StartTime and unique per start. Modifications made through Set are tracked
// so PersistSchedule only writes what changed.
type Schedule struct {
	ResourceID string
	Slots      []model.Slot

	// dirty maps a modified slot to its status at load time.
	dirty map[int]model.SlotStatus
}

// SlotChange is a modified slot together with the status it was loaded with.
type SlotChange struct {
	model.Slot
	Previous model.SlotStatus
}

// NewSchedule sorts the slots and wraps them in a Schedule.
func NewSchedule(resourceID string, slots []model.Slot) *Schedule {
	for i := range slots {
		slots[i].StartTime = slots[i].StartTime.UTC()
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
	return &Schedule{ResourceID: resourceID, Slots: slots}
}

// Index returns the position of the slot starting exactly at start.
func (s *Schedule) Index(start time.Time) (int, bool) {
	i := sort.Search(len(s.Slots), func(i int) bool {
		return !s.Slots[i].StartTime.Before(start)
	})
	if i < len(s.Slots) && s.Slots[i].StartTime.Equal(start) {
		return i, true
	}
	return i, false
}

// Set updates the status and owner of slot i and marks it for persistence.
func (s *Schedule) Set(i int, status model.SlotStatus, owner string) {
	if s.dirty == nil {
		s.dirty = make(map[int]model.SlotStatus)
	}
	if _, ok := s.dirty[i]; !ok {
		s.dirty[i] = s.Slots[i].Status
	}
	s.Slots[i].Status = status
	s.Slots[i].Owner = owner
}

// Changed returns the slots modified since the schedule was loaded or last persisted, in time order.
func (s *Schedule) Changed() []SlotChange {
	idx := make([]int, 0, len(s.dirty))
	for i := range s.dirty {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	changed := make([]SlotChange, 0, len(idx))
	for _, i := range idx {
		changed = append(changed, SlotChange{Slot: s.Slots[i], Previous: s.dirty[i]})
	}
	return changed
}

// Clone returns a deep copy without pending changes.
func (s *Schedule) Clone() *Schedule {
	slots := make([]model.Slot, len(s.Slots))
	copy(slots, s.Slots)
	return &Schedule{ResourceID: s.ResourceID, Slots: slots}
}

// DoctorSummary is a doctor together with its count of bookable slots.
type DoctorSummary struct {
	ID             string `json:"id"`
	AvailableSlots int64  `json:"availableSlots"`
}
