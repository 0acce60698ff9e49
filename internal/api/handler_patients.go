package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-scheduler-backend/internal/model"
	"clinic-scheduler-backend/internal/parse"
	"clinic-scheduler-backend/internal/store"
)

type lookupResponse struct {
	IsNew           bool   `json:"is_new"`
	PatientID       *int64 `json:"patient_id,omitempty"`
	Name            string `json:"name,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
}

// LookupPatient handles GET /api/patients/lookup. Unknown patients are new
// patients, not an error.
func (h *Handler) LookupPatient(c *gin.Context) {
	name, err := parse.Name(c.Query("name"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	dob, err := parse.DOB(c.Query("dob"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	p, err := h.store.LookupPatient(c.Request.Context(), name, dob)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, lookupResponse{IsNew: true, DurationMinutes: int(h.policy.For(true) / time.Minute)})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lookupResponse{
		PatientID:       &p.ID,
		Name:            p.Name,
		DurationMinutes: int(h.policy.For(false) / time.Minute),
	})
}

type registerRequest struct {
	Name  string `json:"name" binding:"required"`
	DOB   string `json:"dob" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// RegisterPatient handles POST /api/patients.
func (h *Handler) RegisterPatient(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	name, err := parse.Name(req.Name)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	dob, err := parse.DOB(req.DOB)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	p := &model.Patient{Name: name, DOB: dob, Email: req.Email, Phone: req.Phone, CreatedAt: h.now().UTC()}
	if err := h.store.RegisterPatient(c.Request.Context(), p); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"patient_id": p.ID})
}

type insuranceRequest struct {
	Company     string `json:"company" binding:"required"`
	MemberID    string `json:"member_id" binding:"required"`
	GroupNumber string `json:"group_number"`
}

// SaveInsurance handles PUT /api/patients/:id/insurance.
func (h *Handler) SaveInsurance(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid patient ID")
		return
	}
	var req insuranceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	ins := &model.Insurance{PatientID: id, Company: req.Company, MemberID: req.MemberID, GroupNumber: req.GroupNumber}
	if err := h.store.SaveInsurance(c.Request.Context(), ins); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
