package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	r.ServeHTTP(w, req)
	return w
}

func TestResponseCache(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	calls := 0

	r := gin.New()
	r.Use(rc.Cache())
	r.GET("/doctors", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/missing", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})
	r.POST("/bookings", rc.FlushOnSuccess(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	r.DELETE("/bookings", rc.FlushOnSuccess(), func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	first := do(r, http.MethodGet, "/doctors")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(r, http.MethodGet, "/doctors")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	// Errors are never cached.
	do(r, http.MethodGet, "/missing")
	do(r, http.MethodGet, "/missing")
	assert.Equal(t, 3, calls)

	// A failed write keeps the cache.
	do(r, http.MethodDelete, "/bookings")
	assert.Equal(t, 1, rc.Len())

	do(r, http.MethodPost, "/bookings")
	assert.Zero(t, rc.Len())
	third := do(r, http.MethodGet, "/doctors")
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Equal(t, 4, calls)
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/").Code)
	w := do(r, http.MethodGet, "/")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Another client has its own bucket.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIPRateLimiter_ReusesLimiter(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Minute)
	assert.Same(t, l.GetLimiter("a"), l.GetLimiter("a"))
	assert.NotSame(t, l.GetLimiter("a"), l.GetLimiter("b"))
}
