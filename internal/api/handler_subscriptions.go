package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clinic-scheduler-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint  string `json:"endpoint" binding:"required"`
	P256DH    string `json:"p256dh" binding:"required"`
	Auth      string `json:"auth" binding:"required"`
	PatientID int64  `json:"patient_id" binding:"required"`
}

// PutSubscription handles the creation or replacement of a subscription.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	if _, err := h.store.GetPatient(c.Request.Context(), req.PatientID); err != nil {
		h.writeError(c, err)
		return
	}

	sub := &model.PushSubscription{
		Endpoint:  req.Endpoint,
		PatientID: req.PatientID,
		P256DH:    req.P256DH,
		Auth:      req.Auth,
	}
	if err := h.store.PutSubscription(c.Request.Context(), sub); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// rawQueryParam reads a query value without URL decoding; push endpoints
// are compared byte for byte.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription handles the retrieval of a subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		badRequest(c, "endpoint is required")
		return
	}

	sub, err := h.store.GetSubscription(c.Request.Context(), raw)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patient_id": sub.PatientID})
}

type pushKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// PushKey handles GET /api/vapid_public_key. Patients' browsers need the
// application server key before they can subscribe to reminders.
func (h *Handler) PushKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push reminders are disabled on this server"})
		return
	}
	c.JSON(http.StatusOK, pushKeyResponse{PublicKey: h.webpush.VAPIDPublicKey})
}
