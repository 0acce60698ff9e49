package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-scheduler-backend/internal/booking"
	"clinic-scheduler-backend/internal/parse"
)

// ListDoctors handles GET /api/doctors.
func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.store.ListDoctors(c.Request.Context(), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doctors)
}

type slotsResponse struct {
	Doctor          string           `json:"doctor"`
	DurationMinutes int              `json:"durationMinutes"`
	Windows         []booking.Window `json:"windows"`
}

// FindSlots handles GET /api/doctors/:doctor/slots.
func (h *Handler) FindSlots(c *gin.Context) {
	doctor := c.Param("doctor")

	duration, ok := h.requestDuration(c, c.Query("duration"), c.Query("patient_type"))
	if !ok {
		return
	}

	count := h.searchCount
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "Invalid count")
			return
		}
		if n > h.maxCount {
			badRequest(c, fmt.Sprintf("count must not exceed %d", h.maxCount))
			return
		}
		count = n
	}

	from := h.now()
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "Invalid 'from' timestamp format. Use RFC3339.")
			return
		}
		from = t
	}

	windows, err := h.booking.FindSlots(c.Request.Context(), doctor, duration, count, from)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, slotsResponse{
		Doctor:          doctor,
		DurationMinutes: int(duration / time.Minute),
		Windows:         windows,
	})
}

// requestDuration resolves an explicit duration or, failing that, the
// patient type through the duration policy.
func (h *Handler) requestDuration(c *gin.Context, rawDuration, patientType string) (time.Duration, bool) {
	if rawDuration != "" {
		d, err := parse.Duration(rawDuration)
		if err != nil {
			badRequest(c, err.Error())
			return 0, false
		}
		return d, true
	}
	switch patientType {
	case "new":
		return h.policy.For(true), true
	case "returning":
		return h.policy.For(false), true
	case "":
		badRequest(c, "duration or patient_type is required")
	default:
		badRequest(c, "patient_type must be 'new' or 'returning'")
	}
	return 0, false
}
