package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	paymentsapp "github.com/murichu/rent-sub002/internal/application/payments"
	"github.com/murichu/rent-sub002/internal/domain/payments"
)

// WebhookHandler receives asynchronous charge results from the payment
// providers. These endpoints sit outside the agency middleware; the charge
// is looked up by the provider's reference.
type WebhookHandler struct {
	BaseHandler
	charges *paymentsapp.ChargeService
	logger  *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(charges *paymentsapp.ChargeService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{charges: charges, logger: logger}
}

// Mpesa handles the Daraja STK push result callback
func (h *WebhookHandler) Mpesa(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "Unreadable payload"})
		return
	}

	_, err = h.charges.HandleNotification(c.Request.Context(), payments.GatewayChannelMpesaSTK, payload)
	if err != nil {
		if errors.Is(err, payments.ErrGatewayInvalidWebhook) {
			c.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "Rejected"})
			return
		}
		// Ack anyway so Daraja stops retrying; the reconciliation sweep
		// resolves charges the callback could not settle
		h.logger.Warn("M-Pesa callback not settled", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// pesapalIPNQuery mirrors the query parameters PesaPal sends on GET IPNs
type pesapalIPNQuery struct {
	OrderTrackingID       string `form:"OrderTrackingId" json:"OrderTrackingId"`
	OrderMerchantRef      string `form:"OrderMerchantReference" json:"OrderMerchantReference"`
	OrderNotificationType string `form:"OrderNotificationType" json:"OrderNotificationType"`
}

// Pesapal handles the PesaPal IPN. PesaPal delivers it as GET query
// parameters or a POST JSON body depending on how the IPN was registered;
// both are accepted here.
func (h *WebhookHandler) Pesapal(c *gin.Context) {
	var payload []byte

	if c.Request.Method == http.MethodGet {
		var q pesapalIPNQuery
		if err := c.ShouldBindQuery(&q); err != nil || q.OrderTrackingID == "" {
			h.respondPesapal(c, http.StatusBadRequest, q)
			return
		}
		payload, _ = json.Marshal(q)

		_, err := h.charges.HandleNotification(c.Request.Context(), payments.GatewayChannelPesapal, payload)
		h.finishPesapal(c, q, err)
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.respondPesapal(c, http.StatusBadRequest, pesapalIPNQuery{})
		return
	}

	var q pesapalIPNQuery
	_ = json.Unmarshal(payload, &q)

	_, err = h.charges.HandleNotification(c.Request.Context(), payments.GatewayChannelPesapal, payload)
	h.finishPesapal(c, q, err)
}

func (h *WebhookHandler) finishPesapal(c *gin.Context, q pesapalIPNQuery, err error) {
	if err != nil {
		if errors.Is(err, payments.ErrGatewayInvalidWebhook) {
			h.respondPesapal(c, http.StatusBadRequest, q)
			return
		}
		// Ack so PesaPal stops retrying; reconciliation picks up the rest
		h.logger.Warn("PesaPal IPN not settled",
			zap.String("order_tracking_id", q.OrderTrackingID),
			zap.Error(err))
	}
	h.respondPesapal(c, http.StatusOK, q)
}

// respondPesapal sends the acknowledgement shape PesaPal expects
func (h *WebhookHandler) respondPesapal(c *gin.Context, status int, q pesapalIPNQuery) {
	c.JSON(status, gin.H{
		"orderNotificationType":  "IPNCHANGE",
		"orderTrackingId":        q.OrderTrackingID,
		"orderMerchantReference": q.OrderMerchantRef,
		"status":                 status,
	})
}
