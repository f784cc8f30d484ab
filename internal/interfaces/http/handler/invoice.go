package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/murichu/rent-sub002/internal/application/billing"
	"github.com/murichu/rent-sub002/internal/interfaces/http/dto"
)

// InvoiceHandler handles invoice API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoices *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// GenerateInvoiceRequest represents a request to generate one invoice for a
// lease billing period
type GenerateInvoiceRequest struct {
	LeaseID     string `json:"lease_id" binding:"required,uuid"`
	PeriodYear  int    `json:"period_year" binding:"required,min=2000,max=2200"`
	PeriodMonth int    `json:"period_month" binding:"required,min=1,max=12"`
}

// BillingRunRequest represents a request for a manual monthly billing run
type BillingRunRequest struct {
	PeriodYear  int `json:"period_year" binding:"required,min=2000,max=2200"`
	PeriodMonth int `json:"period_month" binding:"required,min=1,max=12"`
}

// Generate creates a single invoice for a lease period
func (h *InvoiceHandler) Generate(c *gin.Context) {
	var req GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoices.GenerateInvoice(
		c.Request.Context(),
		uuid.MustParse(req.LeaseID),
		req.PeriodYear,
		time.Month(req.PeriodMonth),
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// RunBilling triggers a monthly billing run for all active leases
func (h *InvoiceHandler) RunBilling(c *gin.Context) {
	var req BillingRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.invoices.RunMonthlyBilling(c.Request.Context(), req.PeriodYear, time.Month(req.PeriodMonth))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetByID retrieves an invoice by ID
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoices.GetInvoice(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// List returns the agency's invoices with pagination
func (h *InvoiceHandler) List(c *gin.Context) {
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

	invoices, total, err := h.invoices.ListInvoices(c.Request.Context(), agencyID, toFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, invoices, total, req.Page, req.PageSize)
}

// ListByLease returns all invoices for one lease, oldest first
func (h *InvoiceHandler) ListByLease(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}

	invoices, err := h.invoices.ListLeaseInvoices(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoices)
}
