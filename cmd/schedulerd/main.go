package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"clinic-scheduler-backend/config"
	"clinic-scheduler-backend/internal/api"
	"clinic-scheduler-backend/internal/booking"
	"clinic-scheduler-backend/internal/db"
	"clinic-scheduler-backend/internal/lock"
	"clinic-scheduler-backend/internal/metrics"
	"clinic-scheduler-backend/internal/notification"
	"clinic-scheduler-backend/internal/reminder"
	"clinic-scheduler-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}

	logger := newLogger(cfg.Log)
	logger.Info().Str("path", configPath).Msg("configuration loaded")

	loc, _ := time.LoadLocation(cfg.Scheduling.Timezone) // validated by config.Load

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	appStore := store.NewGormStore(gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Seed.Enabled {
		if err := seedSchedules(ctx, appStore, cfg, loc, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed schedules")
		}
	}

	guard, closeGuard, err := newGuard(cfg.Lock, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize schedule lock")
	}
	defer closeGuard()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(registry)

	var webpushOptions *webpush.Options
	var pushSender notification.PushSender
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pushSender = &notification.WebPushSender{}
	} else {
		logger.Warn().Msg("VAPID keys not configured, web push disabled")
	}

	var emailSender notification.EmailSender = notification.NewLogEmailSender(logger)
	if sg := notification.NewSendGridSender(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName); sg != nil {
		emailSender = sg
	}
	messenger := notification.NewMessenger(appStore, emailSender, notification.NewLogSMSSender(logger), pushSender, webpushOptions, logger)

	workerPool := notification.NewWorkerPool(appStore, messenger, notification.Options{
		Size:            cfg.WorkerPool.Size,
		QueueSize:       cfg.WorkerPool.QueueSize,
		ReminderOffsets: cfg.Reminders.Offsets,
		IntakeFormURL:   cfg.Email.IntakeFormURL,
		Location:        loc,
	}, logger)
	workerPool.Start(ctx)

	if cfg.Reminders.Enabled {
		go reminder.NewService(appStore, messenger, cfg.Reminders.Interval, logger).Run(ctx)
	} else {
		logger.Info().Msg("reminder delivery disabled")
	}

	bookingSvc := booking.NewService(appStore, guard, booking.Options{
		Granularity: cfg.Scheduling.SlotGranularity,
		LockTimeout: cfg.Scheduling.LockTimeout,
		Notifier:    workerPool,
		Metrics:     bookingMetrics,
		Logger:      logger,
	})

	handler := api.NewHandler(appStore, bookingSvc, api.HandlerOptions{
		Policy: booking.DurationPolicy{
			New:       time.Duration(cfg.Scheduling.NewPatientMinutes) * time.Minute,
			Returning: time.Duration(cfg.Scheduling.ReturningPatientMinutes) * time.Minute,
		},
		SearchCount:    cfg.Scheduling.SearchCount,
		MaxSearchCount: cfg.Scheduling.MaxSearchCount,
		WebPush:        webpushOptions,
	}, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		RateLimit: rate.Limit(cfg.Server.RateLimitPerSec),
		Burst:     cfg.Server.RateLimitBurst,
		CacheTTL:  time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		Gatherer:  registry,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server ListenAndServe")
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server Shutdown")
		return
	}
	logger.Info().Msg("server gracefully stopped")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.With().Timestamp().Str("service", "schedulerd").Logger()
}

// newGuard builds the configured schedule lock. The returned func releases its resources.
func newGuard(cfg config.LockConfig, logger zerolog.Logger) (lock.Guard, func(), error) {
	if cfg.Backend != "redis" {
		logger.Info().Msg("using in-process schedule lock")
		return lock.NewMemoryGuard(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	logger.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.TTL).Msg("using redis schedule lock")
	return lock.NewRedisGuard(client, cfg.TTL, logger), func() { client.Close() }, nil
}
