package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/murichu/rent-sub002/internal/domain/payments"
)

const (
	pesapalAuthPath   = "/api/Auth/RequestToken"
	pesapalOrderPath  = "/api/Transactions/SubmitOrderRequest"
	pesapalStatusPath = "/api/Transactions/GetTransactionStatus?orderTrackingId=%s"

	// PesaPal bearer tokens live for five minutes
	pesapalTokenTTL = 5 * time.Minute
)

// pesapalDateLayouts are the timestamp shapes PesaPal has been seen to return
var pesapalDateLayouts = []string{
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// PesapalAdapter implements the MobileMoneyGateway interface for the
// PesaPal API 3.0 hosted order flow
type PesapalAdapter struct {
	config     *PesapalConfig
	httpClient *http.Client

	mu          sync.Mutex
	bearerToken string
	tokenExpiry time.Time
}

// NewPesapalAdapter creates a new PesaPal adapter
func NewPesapalAdapter(config *PesapalConfig) (*PesapalAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &PesapalAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Channel returns the rail this gateway serves
func (a *PesapalAdapter) Channel() payments.GatewayChannel {
	return payments.GatewayChannelPesapal
}

// InitiateCharge submits a hosted order and returns the redirect URL the
// payer completes the charge on
func (a *PesapalAdapter) InitiateCharge(ctx context.Context, req *payments.InitiateChargeRequest) (*payments.InitiateChargeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	desc := req.Description
	if desc == "" {
		desc = "Rent payment " + req.AccountReference
	}

	merchantRef := uuid.New().String()
	body := pesapalOrderRequest{
		ID:             merchantRef,
		Currency:       "KES",
		Amount:         req.Amount,
		Description:    desc,
		CallbackURL:    req.CallbackURL,
		NotificationID: a.config.IPNID,
		BillingAddress: pesapalBillingAddress{
			PhoneNumber: req.MSISDN,
			CountryCode: "KE",
		},
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, pesapalOrderPath, body)
	if err != nil {
		return nil, err
	}

	var respData pesapalOrderResponse
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrGatewayInvalidResponse, err)
	}

	if respData.Error != nil && respData.Error.Code != "" {
		return nil, fmt.Errorf("%w: %s - %s",
			payments.ErrGatewayRequestFailed, respData.Error.Code, respData.Error.Message)
	}
	if respData.OrderTrackingID == "" {
		return nil, fmt.Errorf("%w: missing order_tracking_id", payments.ErrGatewayInvalidResponse)
	}

	return &payments.InitiateChargeResponse{
		GatewayReference:  respData.OrderTrackingID,
		MerchantReference: merchantRef,
		Status:            payments.GatewayStatusPending,
		RedirectURL:       respData.RedirectURL,
		RawResponse:       string(respBody),
	}, nil
}

// QueryCharge fetches the current state of an order
func (a *PesapalAdapter) QueryCharge(ctx context.Context, req *payments.QueryChargeRequest) (*payments.QueryChargeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.GatewayReference == "" {
		return nil, payments.ErrQueryInvalidParams
	}

	path := fmt.Sprintf(pesapalStatusPath, req.GatewayReference)

	respBody, err := a.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var respData pesapalStatusResponse
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrGatewayInvalidResponse, err)
	}

	if respData.Error != nil && respData.Error.Code != "" {
		return nil, fmt.Errorf("%w: %s - %s",
			payments.ErrGatewayRequestFailed, respData.Error.Code, respData.Error.Message)
	}

	response := &payments.QueryChargeResponse{
		GatewayReference: respData.OrderTrackingID,
		Status:           mapPesapalStatus(respData.PaymentStatusDescription),
		Receipt:          respData.ConfirmationCode,
		Amount:           respData.Amount,
		RawResponse:      string(respBody),
	}
	if response.GatewayReference == "" {
		response.GatewayReference = req.GatewayReference
	}

	if response.Status == payments.GatewayStatusFailed {
		response.FailureReason = respData.Description
		if response.FailureReason == "" {
			response.FailureReason = respData.PaymentStatusDescription
		}
	}

	if response.Status == payments.GatewayStatusCompleted && respData.CreatedDate != "" {
		for _, layout := range pesapalDateLayouts {
			if t, err := time.Parse(layout, respData.CreatedDate); err == nil {
				response.CompletedAt = &t
				break
			}
		}
	}

	return response, nil
}

// ParseNotification parses an IPN change notification. PesaPal IPNs only
// name the order, so the current state is fetched from the provider before
// the notification is handed to the tracker.
func (a *PesapalAdapter) ParseNotification(ctx context.Context, payload []byte) (*payments.ChargeNotification, error) {
	var ipn pesapalIPN
	if err := json.Unmarshal(payload, &ipn); err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrGatewayInvalidWebhook, err)
	}
	if ipn.OrderTrackingID == "" {
		return nil, fmt.Errorf("%w: missing OrderTrackingId", payments.ErrGatewayInvalidWebhook)
	}

	status, err := a.QueryCharge(ctx, &payments.QueryChargeRequest{
		GatewayReference:  ipn.OrderTrackingID,
		MerchantReference: ipn.MerchantReference,
	})
	if err != nil {
		return nil, err
	}

	return &payments.ChargeNotification{
		Channel:          payments.GatewayChannelPesapal,
		GatewayReference: ipn.OrderTrackingID,
		Status:           status.Status,
		Receipt:          status.Receipt,
		Amount:           status.Amount,
		FailureReason:    status.FailureReason,
		CompletedAt:      status.CompletedAt,
		RawPayload:       string(payload),
	}, nil
}

// doRequest performs an authenticated request to the PesaPal API
func (a *PesapalAdapter) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	token, err := a.getBearerToken(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("pesapal: failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("pesapal: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pesapal: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", payments.ErrGatewayRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

// getBearerToken returns a cached bearer token, refreshing it when close
// to expiry
func (a *PesapalAdapter) getBearerToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bearerToken != "" && time.Now().Before(a.tokenExpiry) {
		return a.bearerToken, nil
	}

	bodyBytes, err := json.Marshal(pesapalAuthRequest{
		ConsumerKey:    a.config.ConsumerKey,
		ConsumerSecret: a.config.ConsumerSecret,
	})
	if err != nil {
		return "", fmt.Errorf("pesapal: failed to marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+pesapalAuthPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("pesapal: failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", payments.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("pesapal: failed to read auth response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: auth returned HTTP %d", payments.ErrGatewayRequestFailed, resp.StatusCode)
	}

	var authResp pesapalAuthResponse
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return "", fmt.Errorf("%w: %v", payments.ErrGatewayInvalidResponse, err)
	}
	if authResp.Error != nil && authResp.Error.Code != "" {
		return "", fmt.Errorf("%w: %s - %s",
			payments.ErrGatewayRequestFailed, authResp.Error.Code, authResp.Error.Message)
	}
	if authResp.Token == "" {
		return "", fmt.Errorf("%w: empty bearer token", payments.ErrGatewayInvalidResponse)
	}

	a.bearerToken = authResp.Token
	// Refresh a little early to absorb clock skew
	a.tokenExpiry = time.Now().Add(pesapalTokenTTL - 30*time.Second)

	return a.bearerToken, nil
}

// mapPesapalStatus maps a PesaPal payment status description to a gateway
// status
func mapPesapalStatus(status string) payments.GatewayStatus {
	switch status {
	case "COMPLETED":
		return payments.GatewayStatusCompleted
	case "FAILED", "INVALID", "REVERSED":
		return payments.GatewayStatusFailed
	default:
		return payments.GatewayStatusPending
	}
}

// Ensure PesapalAdapter implements MobileMoneyGateway interface
var _ payments.MobileMoneyGateway = (*PesapalAdapter)(nil)
