package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Lock       LockConfig       `yaml:"lock"`
	Push       PushConfig       `yaml:"push"`
	Email      EmailConfig      `yaml:"email"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Reminders  RemindersConfig  `yaml:"reminders"`
	Seed       SeedConfig       `yaml:"seed"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// SchedulingConfig holds slot granularity and booking policy.
type SchedulingConfig struct {
	SlotMinutes             int           `yaml:"slot_minutes"`
	SlotGranularity         time.Duration `yaml:"-"`
	LockTimeoutMillis       int           `yaml:"lock_timeout_ms"`
	LockTimeout             time.Duration `yaml:"-"`
	SearchCount             int           `yaml:"search_count"`
	MaxSearchCount          int           `yaml:"max_search_count"`
	NewPatientMinutes       int           `yaml:"new_patient_minutes"`
	ReturningPatientMinutes int           `yaml:"returning_patient_minutes"`
	Timezone                string        `yaml:"timezone"`
}

// LockConfig selects the concurrency guard backend.
type LockConfig struct {
	Backend       string        `yaml:"backend"` // "memory" or "redis"
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTLSeconds    int           `yaml:"ttl_seconds"`
	TTL           time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// EmailConfig holds the SendGrid settings. An empty API key logs e-mails instead of sending them.
type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	IntakeFormURL  string `yaml:"intake_form_url"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// RemindersConfig controls reminder planning and delivery.
type RemindersConfig struct {
	Enabled         bool            `yaml:"enabled"`
	IntervalSeconds int             `yaml:"interval_seconds"`
	Interval        time.Duration   `yaml:"-"`
	OffsetsHours    []int           `yaml:"offsets_hours"`
	Offsets         []time.Duration `yaml:"-"`
}

// SeedConfig describes the schedule generated at startup.
type SeedConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Doctors       []string `yaml:"doctors"`
	Days          int      `yaml:"days"`
	DayStart      string   `yaml:"day_start"`
	DayEnd        string   `yaml:"day_end"`
	BlockWeekends bool     `yaml:"block_weekends"`
}

// LogConfig controls the zerolog root logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database.driver %q", cfg.Database.Driver)
	}

	s := &cfg.Scheduling
	if s.SlotMinutes <= 0 {
		s.SlotMinutes = 15
	}
	s.SlotGranularity = time.Duration(s.SlotMinutes) * time.Minute
	if s.LockTimeoutMillis <= 0 {
		s.LockTimeoutMillis = 10000
	}
	s.LockTimeout = time.Duration(s.LockTimeoutMillis) * time.Millisecond
	if s.SearchCount <= 0 {
		s.SearchCount = 3
	}
	if s.MaxSearchCount < s.SearchCount {
		s.MaxSearchCount = max(s.SearchCount, 50)
	}
	if s.NewPatientMinutes <= 0 {
		s.NewPatientMinutes = 60
	}
	if s.ReturningPatientMinutes <= 0 {
		s.ReturningPatientMinutes = 30
	}
	if s.NewPatientMinutes%s.SlotMinutes != 0 || s.ReturningPatientMinutes%s.SlotMinutes != 0 {
		return fmt.Errorf("patient durations must be multiples of slot_minutes (%d)", s.SlotMinutes)
	}
	if s.Timezone == "" {
		s.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("invalid scheduling.timezone %q: %w", s.Timezone, err)
	}

	if cfg.Lock.Backend == "" {
		cfg.Lock.Backend = "memory"
	}
	if cfg.Lock.Backend == "redis" && cfg.Lock.RedisAddr == "" {
		return fmt.Errorf("lock.redis_addr is required when lock.backend is redis")
	}
	if cfg.Lock.TTLSeconds <= 0 {
		cfg.Lock.TTLSeconds = 30
	}
	cfg.Lock.TTL = time.Duration(cfg.Lock.TTLSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "The Clinic"
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}

	if cfg.Reminders.IntervalSeconds <= 0 {
		cfg.Reminders.IntervalSeconds = 60
	}
	cfg.Reminders.Interval = time.Duration(cfg.Reminders.IntervalSeconds) * time.Second
	if len(cfg.Reminders.OffsetsHours) == 0 {
		cfg.Reminders.OffsetsHours = []int{48, 24, 6}
	}
	cfg.Reminders.Offsets = cfg.Reminders.Offsets[:0]
	for _, h := range cfg.Reminders.OffsetsHours {
		cfg.Reminders.Offsets = append(cfg.Reminders.Offsets, time.Duration(h)*time.Hour)
	}

	if cfg.Seed.Days <= 0 {
		cfg.Seed.Days = 14
	}
	if cfg.Seed.DayStart == "" {
		cfg.Seed.DayStart = "09:00"
	}
	if cfg.Seed.DayEnd == "" {
		cfg.Seed.DayEnd = "17:00"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return nil
}
