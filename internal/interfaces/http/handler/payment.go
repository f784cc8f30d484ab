package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/murichu/rent-sub002/internal/application/billing"
	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/interfaces/http/dto"
)

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	payments *billingapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *billingapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// RecordPaymentRequest represents a manually recorded payment
type RecordPaymentRequest struct {
	LeaseID         string  `json:"lease_id" binding:"required,uuid"`
	AmountCents     int64   `json:"amount_cents" binding:"required,gt=0"`
	PaidAt          string  `json:"paid_at" binding:"required"`
	Method          string  `json:"method" binding:"required,oneof=MANUAL MPESA_C2B BANK_TRANSFER CASH PESAPAL CARD"`
	ReferenceNumber string  `json:"reference_number" binding:"required,min=1,max=100"`
	InvoiceID       *string `json:"invoice_id" binding:"omitempty,uuid"`
}

// ReversePaymentRequest represents a request to reverse part or all of a payment
type ReversePaymentRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	InvoiceID   string `json:"invoice_id" binding:"required,uuid"`
	Reason      string `json:"reason" binding:"required,min=1,max=500"`
}

// Record records a payment and matches it against the lease's open invoices
func (h *PaymentHandler) Record(c *gin.Context) {
	agencyID, err := getAgencyID(c)
	if err != nil {
		h.Unauthorized(c, "Agency identification required")
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	paidAt, err := time.Parse(time.RFC3339, req.PaidAt)
	if err != nil {
		h.BadRequest(c, "paid_at must be RFC3339")
		return
	}

	cmd := billingapp.RecordPaymentCommand{
		AgencyID:        agencyID,
		LeaseID:         uuid.MustParse(req.LeaseID),
		AmountCents:     req.AmountCents,
		PaidAt:          paidAt,
		Method:          billing.PaymentMethod(req.Method),
		ReferenceNumber: req.ReferenceNumber,
	}
	if req.InvoiceID != nil {
		invoiceID := uuid.MustParse(*req.InvoiceID)
		cmd.InvoiceID = &invoiceID
	}

	result, err := h.payments.RecordPayment(c.Request.Context(), cmd)
	if err != nil {
		if errors.Is(err, billing.ErrUnresolvedPayment) {
			// The payment was recorded and held as credit; report both the
			// record and the unresolved condition
			requestID := getRequestID(c)
			c.JSON(dto.GetHTTPStatus(dto.ErrCodeUnresolvedPayment), dto.Response{
				Success: false,
				Data:    result,
				Error: &dto.ErrorInfo{
					Code:      dto.ErrCodeUnresolvedPayment,
					Message:   "Payment matched no outstanding invoice; funds held as unapplied credit",
					RequestID: requestID,
				},
			})
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Reverse reverses a previously recorded payment against an invoice
func (h *PaymentHandler) Reverse(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	var req ReversePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.payments.ReversePayment(
		c.Request.Context(),
		uuid.MustParse(uri.ID),
		req.AmountCents,
		uuid.MustParse(req.InvoiceID),
		req.Reason,
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID retrieves a payment by ID
func (h *PaymentHandler) GetByID(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	payment, err := h.payments.GetPayment(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// ListByLease returns payments recorded against one lease
func (h *PaymentHandler) ListByLease(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payments, total, err := h.payments.ListLeasePayments(c.Request.Context(), uuid.MustParse(uri.ID), toFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, payments, total, req.Page, req.PageSize)
}

// ListUnappliedCredit returns payments with credit no invoice has absorbed yet
func (h *PaymentHandler) ListUnappliedCredit(c *gin.Context) {
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

	payments, total, err := h.payments.ListUnappliedCredit(c.Request.Context(), agencyID, toFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, payments, total, req.Page, req.PageSize)
}
