package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-scheduler-backend/internal/model"
	"clinic-scheduler-backend/internal/notification"
	"clinic-scheduler-backend/internal/store"
)

var now = time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)

// mockStore is an in-memory implementation of Store.
type mockStore struct {
	mu        sync.Mutex
	reminders []model.Reminder
	patients  map[int64]*model.Patient
	fetchErr  error
}

func (m *mockStore) DueReminders(_ context.Context, at time.Time, limit int) ([]model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var due []model.Reminder
	for _, r := range m.reminders {
		if r.SentAt == nil && !r.DueAt.After(at) && len(due) < limit {
			due = append(due, r)
		}
	}
	return due, nil
}

func (m *mockStore) MarkReminderSent(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reminders {
		if m.reminders[i].ID == id {
			m.reminders[i].SentAt = &at
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *mockStore) GetPatient(_ context.Context, id int64) (*model.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %d: %w", id, store.ErrNotFound)
	}
	return p, nil
}

func (m *mockStore) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reminders {
		if r.SentAt == nil {
			n++
		}
	}
	return n
}

type mockDeliverer struct {
	mu   sync.Mutex
	sent []string
	fail map[int64]bool
}

func (d *mockDeliverer) Deliver(_ context.Context, p *model.Patient, msg notification.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail[p.ID] {
		return errors.New("smtp down")
	}
	d.sent = append(d.sent, fmt.Sprintf("%d:%s", p.ID, msg.Subject))
	return nil
}

func newService(st Store, d Deliverer) *Service {
	s := NewService(st, d, 10*time.Millisecond, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func TestSendDue(t *testing.T) {
	st := &mockStore{
		patients: map[int64]*model.Patient{
			1000: {ID: 1000, Email: "a@example.com"},
			1001: {ID: 1001, Email: "b@example.com"},
		},
		reminders: []model.Reminder{
			{ID: 1, PatientID: 1000, Subject: "Appointment Reminder", DueAt: now.Add(-time.Hour)},
			{ID: 2, PatientID: 1001, Subject: "Appointment Reminder", DueAt: now.Add(-time.Minute)},
			{ID: 3, PatientID: 1000, Subject: "Later", DueAt: now.Add(time.Hour)},
			{ID: 4, PatientID: 4242, Subject: "Orphan", DueAt: now.Add(-time.Hour)},
		},
	}
	d := &mockDeliverer{fail: map[int64]bool{1001: true}}
	s := newService(st, d)

	sent := s.SendDue(context.Background())
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"1000:Appointment Reminder"}, d.sent)

	// The failed delivery and the future reminder are still pending.
	assert.Equal(t, 2, st.pending())

	d.fail = nil
	assert.Equal(t, 1, s.SendDue(context.Background()))
	assert.Equal(t, 1, st.pending())
}

func TestSendDue_FetchError(t *testing.T) {
	st := &mockStore{fetchErr: errors.New("db down")}
	s := newService(st, &mockDeliverer{})
	assert.Zero(t, s.SendDue(context.Background()))
}

func TestRun_StopsOnCancel(t *testing.T) {
	st := &mockStore{
		patients:  map[int64]*model.Patient{1000: {ID: 1000}},
		reminders: []model.Reminder{{ID: 1, PatientID: 1000, Subject: "s", DueAt: now}},
	}
	s := newService(st, &mockDeliverer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return st.pending() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
