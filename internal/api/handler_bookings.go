package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-scheduler-backend/internal/parse"
)

type bookRequest struct {
	Doctor      string    `json:"doctor" binding:"required"`
	Start       time.Time `json:"start" binding:"required"`
	Duration    string    `json:"duration"`
	PatientType string    `json:"patient_type"`
	Owner       string    `json:"owner" binding:"required"`
}

// Book handles POST /api/bookings.
func (h *Handler) Book(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	duration, ok := h.requestDuration(c, req.Duration, req.PatientType)
	if !ok {
		return
	}

	b, err := h.booking.Book(c.Request.Context(), req.Doctor, req.Start, duration, req.Owner)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

type releaseRequest struct {
	Doctor   string    `json:"doctor" binding:"required"`
	Start    time.Time `json:"start" binding:"required"`
	Duration string    `json:"duration" binding:"required"`
	Owner    string    `json:"owner" binding:"required"`
}

// Release handles DELETE /api/bookings.
func (h *Handler) Release(c *gin.Context) {
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	duration, err := parse.Duration(req.Duration)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.booking.Release(c.Request.Context(), req.Doctor, req.Start, duration, req.Owner); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type blockRequest struct {
	Start    time.Time `json:"start" binding:"required"`
	Duration string    `json:"duration" binding:"required"`
	Blocked  *bool     `json:"blocked" binding:"required"`
}

// SetBlocked handles PUT /api/doctors/:doctor/blocks.
func (h *Handler) SetBlocked(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	duration, err := parse.Duration(req.Duration)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.booking.SetBlocked(c.Request.Context(), c.Param("doctor"), req.Start, duration, *req.Blocked); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
