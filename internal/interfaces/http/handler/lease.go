package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/murichu/rent-sub002/internal/application/billing"
	"github.com/murichu/rent-sub002/internal/interfaces/http/dto"
)

// LeaseHandler handles lease API endpoints
type LeaseHandler struct {
	BaseHandler
	leases *billingapp.LeaseService
}

// NewLeaseHandler creates a new LeaseHandler
func NewLeaseHandler(leases *billingapp.LeaseService) *LeaseHandler {
	return &LeaseHandler{leases: leases}
}

// CreateLeaseRequest represents a request to register a new lease
type CreateLeaseRequest struct {
	PropertyID        string `json:"property_id" binding:"required,uuid"`
	UnitID            string `json:"unit_id" binding:"required,uuid"`
	TenantID          string `json:"tenant_id" binding:"required,uuid"`
	StartDate         string `json:"start_date" binding:"required"`
	RentAmountCents   int64  `json:"rent_amount_cents" binding:"required,gt=0"`
	PaymentDayOfMonth int    `json:"payment_day_of_month" binding:"required,min=1,max=31"`
}

// TerminateLeaseRequest represents a request to end a lease
type TerminateLeaseRequest struct {
	EndDate string `json:"end_date" binding:"required"`
}

// parseDate accepts a bare date or a full RFC3339 timestamp
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// Create registers a new lease for the agency
func (h *LeaseHandler) Create(c *gin.Context) {
	agencyID, err := getAgencyID(c)
	if err != nil {
		h.Unauthorized(c, "Agency identification required")
		return
	}

	var req CreateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		h.BadRequest(c, "start_date must be YYYY-MM-DD or RFC3339")
		return
	}

	cmd := billingapp.CreateLeaseCommand{
		AgencyID:          agencyID,
		PropertyID:        uuid.MustParse(req.PropertyID),
		UnitID:            uuid.MustParse(req.UnitID),
		TenantID:          uuid.MustParse(req.TenantID),
		StartDate:         startDate,
		RentAmountCents:   req.RentAmountCents,
		PaymentDayOfMonth: req.PaymentDayOfMonth,
	}

	lease, err := h.leases.CreateLease(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, lease)
}

// Terminate ends an active lease
func (h *LeaseHandler) Terminate(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}

	var req TerminateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	endDate, err := parseDate(req.EndDate)
	if err != nil {
		h.BadRequest(c, "end_date must be YYYY-MM-DD or RFC3339")
		return
	}

	lease, err := h.leases.TerminateLease(c.Request.Context(), uuid.MustParse(uri.ID), endDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lease)
}

// GetByID retrieves a lease by ID
func (h *LeaseHandler) GetByID(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}

	lease, err := h.leases.GetLease(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lease)
}

// List returns the agency's leases with pagination
func (h *LeaseHandler) List(c *gin.Context) {
	agencyID, err := getAgencyID(c)
	if err != nil {
		h.Unauthorized(c, "Agency identification required")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	leases, total, err := h.leases.ListLeases(c.Request.Context(), agencyID, toFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, leases, total, req.Page, req.PageSize)
}
