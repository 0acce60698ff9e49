package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinic-scheduler-backend/internal/booking"
	"clinic-scheduler-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store       store.Store
	booking     *booking.Service
	policy      booking.DurationPolicy
	searchCount int
	maxCount    int
	webpush     *webpush.Options
	now         func() time.Time
	log         zerolog.Logger
}

// HandlerOptions carries the scheduling settings exposed through the API.
type HandlerOptions struct {
	Policy      booking.DurationPolicy
	SearchCount    int
	MaxSearchCount int
	WebPush     *webpush.Options
	Now         func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, svc *booking.Service, opts HandlerOptions, log zerolog.Logger) *Handler {
	if opts.SearchCount <= 0 {
		opts.SearchCount = 3
	}
	if opts.MaxSearchCount < opts.SearchCount {
		opts.MaxSearchCount = max(opts.SearchCount, 50)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{
		store:       s,
		booking:     svc,
		policy:      opts.Policy,
		searchCount: opts.SearchCount,
		maxCount:    opts.MaxSearchCount,
		webpush:     opts.WebPush,
		now:         opts.Now,
		log:         log.With().Str("component", "api").Logger(),
	}
}

// writeError maps a booking or store error onto an HTTP status.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrSlotUnavailable):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrLockTimeout):
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
