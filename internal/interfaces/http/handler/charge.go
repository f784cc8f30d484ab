package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	paymentsapp "github.com/murichu/rent-sub002/internal/application/payments"
	"github.com/murichu/rent-sub002/internal/domain/payments"
	"github.com/murichu/rent-sub002/internal/interfaces/http/dto"
)

// ChargeHandler handles mobile money charge API endpoints
type ChargeHandler struct {
	BaseHandler
	charges   *paymentsapp.ChargeService
	callbacks map[payments.GatewayChannel]string
}

// NewChargeHandler creates a new ChargeHandler. callbacks maps each channel
// to the webhook URL the provider should notify.
func NewChargeHandler(charges *paymentsapp.ChargeService, callbacks map[payments.GatewayChannel]string) *ChargeHandler {
	return &ChargeHandler{charges: charges, callbacks: callbacks}
}

// InitiateChargeRequest represents a request to collect rent through a
// mobile money gateway
type InitiateChargeRequest struct {
	LeaseID          string  `json:"lease_id" binding:"required,uuid"`
	InvoiceID        *string `json:"invoice_id" binding:"omitempty,uuid"`
	AmountCents      int64   `json:"amount_cents" binding:"required,gt=0"`
	Channel          string  `json:"channel" binding:"required,oneof=MPESA_STK PESAPAL"`
	MSISDN           string  `json:"msisdn" binding:"omitempty,min=10,max=15"`
	AccountReference string  `json:"account_reference" binding:"required,min=1,max=50"`
	Description      string  `json:"description" binding:"max=200"`
}

// Initiate starts a charge against the payer. The charge resolves
// asynchronously; poll the transaction or wait for the webhook.
func (h *ChargeHandler) Initiate(c *gin.Context) {
	agencyID, err := getAgencyID(c)
	if err != nil {
		h.Unauthorized(c, "Agency identification required")
		return
	}

	var req InitiateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	channel := payments.GatewayChannel(req.Channel)
	chargeReq := &payments.InitiateChargeRequest{
		AgencyID:         agencyID,
		LeaseID:          uuid.MustParse(req.LeaseID),
		Amount:           decimal.NewFromInt(req.AmountCents).Shift(-2),
		Channel:          channel,
		MSISDN:           req.MSISDN,
		AccountReference: req.AccountReference,
		Description:      req.Description,
		CallbackURL:      h.callbacks[channel],
	}
	if req.InvoiceID != nil {
		invoiceID := uuid.MustParse(*req.InvoiceID)
		chargeReq.InvoiceID = &invoiceID
	}

	txn, err := h.charges.InitiateCharge(c.Request.Context(), chargeReq)
	if err != nil {
		if errors.Is(err, paymentsapp.ErrChannelNotEnabled) {
			h.ErrorWithCode(c, dto.ErrCodeGatewayNotEnabled, "Payment channel is not enabled")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, txn)
}

// Resolve polls the provider until the charge reaches a final status or the
// polling budget runs out
func (h *ChargeHandler) Resolve(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.charges.Resolve(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		if errors.Is(err, payments.ErrGatewayTimeout) {
			// The charge is TIMED_OUT but the record is still useful to the caller
			requestID := getRequestID(c)
			c.JSON(dto.GetHTTPStatus(dto.ErrCodeGatewayTimeout), dto.Response{
				Success: false,
				Data:    txn,
				Error: &dto.ErrorInfo{
					Code:      dto.ErrCodeGatewayTimeout,
					Message:   "Charge did not reach a final status within the polling budget",
					RequestID: requestID,
				},
			})
			return
		}
		if errors.Is(err, paymentsapp.ErrChannelNotEnabled) {
			h.ErrorWithCode(c, dto.ErrCodeGatewayNotEnabled, "Payment channel is not enabled")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, txn)
}

// GetByID retrieves a gateway transaction by ID
func (h *ChargeHandler) GetByID(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.charges.GetTransaction(c.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, txn)
}

// List returns the agency's gateway transactions with pagination
func (h *ChargeHandler) List(c *gin.Context) {
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

	txns, total, err := h.charges.ListTransactions(c.Request.Context(), agencyID, toFilter(req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, txns, total, req.Page, req.PageSize)
}
