package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "database:\n  dsn: host=localhost\n"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Scheduling.SlotGranularity)
	assert.Equal(t, 10*time.Second, cfg.Scheduling.LockTimeout)
	assert.Equal(t, 3, cfg.Scheduling.SearchCount)
	assert.Equal(t, 50, cfg.Scheduling.MaxSearchCount)
	assert.Equal(t, 60, cfg.Scheduling.NewPatientMinutes)
	assert.Equal(t, 30, cfg.Scheduling.ReturningPatientMinutes)
	assert.Equal(t, "memory", cfg.Lock.Backend)
	assert.Equal(t, []time.Duration{48 * time.Hour, 24 * time.Hour, 6 * time.Hour}, cfg.Reminders.Offsets)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database:
  driver: sqlite
  dsn: "file::memory:"
scheduling:
  slot_minutes: 30
  lock_timeout_ms: 250
  new_patient_minutes: 90
  returning_patient_minutes: 30
reminders:
  offsets_hours: [12]
`))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Scheduling.SlotGranularity)
	assert.Equal(t, 250*time.Millisecond, cfg.Scheduling.LockTimeout)
	assert.Equal(t, []time.Duration{12 * time.Hour}, cfg.Reminders.Offsets)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: mysql\n"},
		{"misaligned policy", "scheduling:\n  slot_minutes: 20\n  new_patient_minutes: 60\n  returning_patient_minutes: 30\n"},
		{"redis without addr", "lock:\n  backend: redis\n"},
		{"bad timezone", "scheduling:\n  timezone: Mars/Base\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}
