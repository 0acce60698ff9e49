package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"clinic-scheduler-backend/internal/db"
	"clinic-scheduler-backend/internal/model"
)

var day = time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)

// newSQLiteDB opens a private in-memory database with the scheduler schema.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func slotsFor(resourceID string, start time.Time, statuses ...model.SlotStatus) []model.Slot {
	slots := make([]model.Slot, 0, len(statuses))
	for i, st := range statuses {
		owner := ""
		if st == model.SlotBooked {
			owner = "seed"
		}
		slots = append(slots, model.Slot{
			ResourceID: resourceID,
			StartTime:  start.Add(time.Duration(i) * 15 * time.Minute),
			Status:     st,
			Owner:      owner,
		})
	}
	return slots
}

func seed(t *testing.T, s Store, resourceID string, statuses ...model.SlotStatus) {
	t.Helper()
	require.NoError(t, s.UpsertDoctorsAndSlots(context.Background(), []string{resourceID}, slotsFor(resourceID, day, statuses...)))
}

func TestGormStore_LoadSchedule(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newSQLiteDB(t))

	_, err := s.LoadSchedule(ctx, "DrNobody")
	assert.ErrorIs(t, err, ErrNotFound)

	// Insert out of order to check sorting.
	slots := slotsFor("DrA", day, model.SlotAvailable, model.SlotBlocked, model.SlotBooked)
	slots[0], slots[2] = slots[2], slots[0]
	require.NoError(t, s.UpsertDoctorsAndSlots(ctx, []string{"DrA"}, slots))

	sched, err := s.LoadSchedule(ctx, "DrA")
	require.NoError(t, err)
	require.Len(t, sched.Slots, 3)
	for i, slot := range sched.Slots {
		assert.True(t, day.Add(time.Duration(i)*15*time.Minute).Equal(slot.StartTime))
		assert.Equal(t, time.UTC, slot.StartTime.Location())
	}
	assert.Equal(t, model.SlotAvailable, sched.Slots[0].Status)
	assert.Equal(t, model.SlotBlocked, sched.Slots[1].Status)
	assert.Equal(t, model.SlotBooked, sched.Slots[2].Status)
	assert.Equal(t, "seed", sched.Slots[2].Owner)
}

func TestGormStore_UpsertKeepsExistingSlots(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newSQLiteDB(t))
	seed(t, s, "DrA", model.SlotAvailable, model.SlotAvailable)

	sched, err := s.LoadSchedule(ctx, "DrA")
	require.NoError(t, err)
	sched.Set(0, model.SlotBooked, "patient-1")
	require.NoError(t, s.PersistSchedule(ctx, sched))

	// Regenerating the horizon must not clear the booking and must add the new slot.
	regen := slotsFor("DrA", day, model.SlotAvailable, model.SlotAvailable, model.SlotAvailable)
	require.NoError(t, s.UpsertDoctorsAndSlots(ctx, []string{"DrA"}, regen))

	sched, err = s.LoadSchedule(ctx, "DrA")
	require.NoError(t, err)
	require.Len(t, sched.Slots, 3)
	assert.Equal(t, model.SlotBooked, sched.Slots[0].Status)
	assert.Equal(t, "patient-1", sched.Slots[0].Owner)
}

func TestGormStore_PersistSchedule(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newSQLiteDB(t))
	seed(t, s, "DrA", model.SlotAvailable, model.SlotAvailable, model.SlotAvailable)
	seed(t, s, "DrB", model.SlotAvailable, model.SlotAvailable)

	sched, err := s.LoadSchedule(ctx, "DrA")
	require.NoError(t, err)
	sched.Set(1, model.SlotBooked, "patient-7")
	sched.Set(2, model.SlotBooked, "patient-7")
	require.NoError(t, s.PersistSchedule(ctx, sched))
	assert.Empty(t, sched.Changed())

	reloaded, err := s.LoadSchedule(ctx, "DrA")
	require.NoError(t, err)
	assert.Equal(t, model.SlotAvailable, reloaded.Slots[0].Status)
	assert.Equal(t, model.SlotBooked, reloaded.Slots[1].Status)
	assert.Equal(t, "patient-7", reloaded.Slots[2].Owner)

	other, err := s.LoadSchedule(ctx, "DrB")
	require.NoError(t, err)
	for _, slot := range other.Slots {
		assert.Equal(t, model.SlotAvailable, slot.Status)
	}
}

func TestGormStore_PersistScheduleIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newSQLiteDB(t))
	seed(t, s, "DrA", model.SlotAvailable, model.SlotAvailable)

	t.Run("invalid slot is rejected before writing", func(t *testing.T) {
		sched, err := s.LoadSchedule(ctx, "DrA")
		require.NoError(t, err)
		sched.Set(0, model.SlotBooked, "patient-1")
		sched.Set(1, model.SlotBooked, "")
		assert.ErrorIs(t, s.PersistSchedule(ctx, sched), ErrInvalidSlot)
	})

	t.Run("missing row rolls back earlier updates", func(t *testing.T) {
		sched, err := s.LoadSchedule(ctx, "DrA")
		require.NoError(t, err)
		sched.Set(0, model.SlotBooked, "patient-1")
		sched.Slots[1].ID = 999999
		sched.Set(1, model.SlotBooked, "patient-1")
		assert.ErrorIs(t, s.PersistSchedule(ctx, sched), ErrConflict)
	})

	sched, err := s.LoadSchedule(ctx, "DrA")
	require.NoError(t, err)
	for _, slot := range sched.Slots {
		assert.Equal(t, model.SlotAvailable, slot.Status)
		assert.Empty(t, slot.Owner)
	}
}

func TestGormStore_PersistScheduleRejectsStaleCopy(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newSQLiteDB(t))
	seed(t, s, "DrA", model.SlotAvailable, model.SlotAvailable)

	stale, err := s.LoadSchedule(ctx, "DrA")
	require.NoError(t, err)

	fresh, err := s.LoadSchedule(ctx, "DrA")
	require.NoError(t, err)
	fresh.Set(1, model.SlotBooked, "patient-1")
	require.NoError(t, s.PersistSchedule(ctx, fresh))

	stale.Set(0, model.SlotBooked, "patient-2")
	stale.Set(1, model.SlotBooked, "patient-2")
	assert.ErrorIs(t, s.PersistSchedule(ctx, stale), ErrConflict)

	sched, err := s.LoadSchedule(ctx, "DrA")
	require.NoError(t, err)
	assert.Equal(t, model.SlotAvailable, sched.Slots[0].Status)
	assert.Empty(t, sched.Slots[0].Owner)
	assert.Equal(t, "patient-1", sched.Slots[1].Owner)
}

func TestSchedule_ChangedKeepsLoadedStatus(t *testing.T) {
	sched := NewSchedule("DrA", slotsFor("DrA", day, model.SlotAvailable))
	sched.Set(0, model.SlotBooked, "patient-1")
	sched.Set(0, model.SlotBlocked, "")

	changed := sched.Changed()
	require.Len(t, changed, 1)
	assert.Equal(t, model.SlotBlocked, changed[0].Status)
	assert.Equal(t, model.SlotAvailable, changed[0].Previous)
}

func TestGormStore_PersistSchedule_SQL(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	sched := NewSchedule("DrA", []model.Slot{
		{ID: 1, ResourceID: "DrA", StartTime: day, Status: model.SlotAvailable},
		{ID: 2, ResourceID: "DrA", StartTime: day.Add(15 * time.Minute), Status: model.SlotAvailable},
	})
	sched.Set(0, model.SlotBooked, "patient-1")
	sched.Set(1, model.SlotBooked, "patient-1")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "slots" SET`)).
		WithArgs(Any{}, Any{}, Any{}, int64(1), "DrA", string(model.SlotAvailable)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "slots" SET`)).
		WithArgs(Any{}, Any{}, Any{}, int64(2), "DrA", string(model.SlotAvailable)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.PersistSchedule(context.Background(), sched)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Len(t, sched.Changed(), 2, "failed persist keeps pending changes")
}

func TestGormStore_ListDoctors(t *testing.T) {
	ctx := context.Background()
	s := NewGormStore(newSQLiteDB(t))
	seed(t, s, "DrA", model.SlotAvailable, model.SlotBooked, model.SlotAvailable, model.SlotBlocked)
	seed(t, s, "DrB", model.SlotBlocked)

	doctors, err := s.ListDoctors(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, []DoctorSummary{{ID: "DrA", AvailableSlots: 2}, {ID: "DrB", AvailableSlots: 0}}, doctors)

	doctors, err = s.ListDoctors(ctx, day.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), doctors[0].AvailableSlots)
}

func TestSchedule_Index(t *testing.T) {
	sched := NewSchedule("DrA", slotsFor("DrA", day, model.SlotAvailable, model.SlotAvailable))

	i, ok := sched.Index(day.Add(15 * time.Minute))
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = sched.Index(day.Add(5 * time.Minute))
	assert.False(t, ok)

	i, ok = sched.Index(day.Add(-time.Hour))
	assert.False(t, ok)
	assert.Equal(t, 0, i)

	clone := sched.Clone()
	clone.Set(0, model.SlotBlocked, "")
	assert.Equal(t, model.SlotAvailable, sched.Slots[0].Status)
	assert.Empty(t, sched.Changed())
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
