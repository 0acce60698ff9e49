package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"clinic-scheduler-backend/internal/mw"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	RateLimit rate.Limit
	Burst     int
	CacheTTL  time.Duration
	Gatherer  prometheus.Gatherer
	Logger    zerolog.Logger
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(mw.RequestLogger(opts.Logger), gin.Recovery())

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	responses := mw.NewResponseCache(opts.CacheTTL)
	caching := responses.Cache()
	invalidate := responses.FlushOnSuccess()

	api := r.Group("/api")
	api.Use(mw.RateLimiter(opts.RateLimit, opts.Burst))
	{
		api.GET("/doctors", caching, h.ListDoctors)
		api.GET("/doctors/:doctor/slots", h.FindSlots)
		api.PUT("/doctors/:doctor/blocks", invalidate, h.SetBlocked)

		api.POST("/bookings", invalidate, h.Book)
		api.DELETE("/bookings", invalidate, h.Release)

		api.GET("/patients/lookup", h.LookupPatient)
		api.POST("/patients", h.RegisterPatient)
		api.PUT("/patients/:id/insurance", h.SaveInsurance)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.PushKey)
	}

	return r
}
