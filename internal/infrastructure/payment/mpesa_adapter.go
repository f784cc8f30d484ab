package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/payments"
)

const (
	mpesaOAuthPath    = "/oauth/v1/generate?grant_type=client_credentials"
	mpesaSTKPushPath  = "/mpesa/stkpush/v1/processrequest"
	mpesaSTKQueryPath = "/mpesa/stkpushquery/v1/query"

	mpesaTimestampLayout = "20060102150405"

	// Daraja reports this errorCode while the payer is still on the PIN prompt
	mpesaErrCodeProcessing = "500.001.1001"
)

// Daraja timestamps are East Africa Time regardless of server locale
var mpesaTimeZone = time.FixedZone("EAT", 3*60*60)

// MpesaAdapter implements the MobileMoneyGateway interface for Safaricom
// M-Pesa STK Push (Lipa na M-Pesa Online) via the Daraja API
type MpesaAdapter struct {
	config     *MpesaConfig
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewMpesaAdapter creates a new M-Pesa STK Push adapter
func NewMpesaAdapter(config *MpesaConfig) (*MpesaAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &MpesaAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Channel returns the rail this gateway serves
func (a *MpesaAdapter) Channel() payments.GatewayChannel {
	return payments.GatewayChannelMpesaSTK
}

// InitiateCharge triggers the STK prompt on the payer's handset
func (a *MpesaAdapter) InitiateCharge(ctx context.Context, req *payments.InitiateChargeRequest) (*payments.InitiateChargeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	timestamp := time.Now().In(mpesaTimeZone).Format(mpesaTimestampLayout)

	desc := req.Description
	if desc == "" {
		desc = "Rent payment"
	}

	body := mpesaSTKPushRequest{
		BusinessShortCode: a.config.ShortCode,
		Password:          a.stkPassword(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount.Round(0).String(),
		PartyA:            req.MSISDN,
		PartyB:            a.config.ShortCode,
		PhoneNumber:       req.MSISDN,
		CallBackURL:       req.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   desc,
	}

	respBody, err := a.doRequest(ctx, mpesaSTKPushPath, body)
	if err != nil {
		return nil, err
	}

	var respData mpesaSTKPushResponse
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrGatewayInvalidResponse, err)
	}

	if respData.ResponseCode != "0" {
		return nil, fmt.Errorf("%w: %s - %s",
			payments.ErrGatewayRequestFailed, respData.ResponseCode, respData.ResponseDescription)
	}
	if respData.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", payments.ErrGatewayInvalidResponse)
	}

	return &payments.InitiateChargeResponse{
		GatewayReference:  respData.CheckoutRequestID,
		MerchantReference: respData.MerchantRequestID,
		Status:            payments.GatewayStatusAccepted,
		RawResponse:       string(respBody),
	}, nil
}

// QueryCharge queries Daraja for the current state of an STK Push charge
func (a *MpesaAdapter) QueryCharge(ctx context.Context, req *payments.QueryChargeRequest) (*payments.QueryChargeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.GatewayReference == "" {
		return nil, payments.ErrQueryInvalidParams
	}

	timestamp := time.Now().In(mpesaTimeZone).Format(mpesaTimestampLayout)

	body := mpesaSTKQueryRequest{
		BusinessShortCode: a.config.ShortCode,
		Password:          a.stkPassword(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: req.GatewayReference,
	}

	respBody, err := a.doRequest(ctx, mpesaSTKQueryPath, body)
	if err != nil {
		// A charge still waiting on the payer comes back as an error
		// envelope, not a result
		if strings.Contains(err.Error(), mpesaErrCodeProcessing) {
			return &payments.QueryChargeResponse{
				GatewayReference: req.GatewayReference,
				Status:           payments.GatewayStatusPending,
			}, nil
		}
		return nil, err
	}

	var respData mpesaSTKQueryResponse
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrGatewayInvalidResponse, err)
	}

	response := &payments.QueryChargeResponse{
		GatewayReference: respData.CheckoutRequestID,
		RawResponse:      string(respBody),
	}
	if response.GatewayReference == "" {
		response.GatewayReference = req.GatewayReference
	}

	resultCode, err := strconv.Atoi(respData.ResultCode)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable ResultCode %q", payments.ErrGatewayInvalidResponse, respData.ResultCode)
	}

	response.Status = mapMpesaResultCode(resultCode)
	if response.Status == payments.GatewayStatusFailed || response.Status == payments.GatewayStatusCancelled {
		response.FailureReason = respData.ResultDesc
	}

	return response, nil
}

// ParseNotification verifies and parses an STK Push result callback
func (a *MpesaAdapter) ParseNotification(ctx context.Context, payload []byte) (*payments.ChargeNotification, error) {
	var envelope mpesaCallbackEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrGatewayInvalidWebhook, err)
	}

	callback := envelope.Body.StkCallback
	if callback.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", payments.ErrGatewayInvalidWebhook)
	}

	notification := &payments.ChargeNotification{
		Channel:          payments.GatewayChannelMpesaSTK,
		GatewayReference: callback.CheckoutRequestID,
		Status:           mapMpesaResultCode(callback.ResultCode),
		RawPayload:       string(payload),
	}

	if notification.Status != payments.GatewayStatusCompleted {
		notification.FailureReason = callback.ResultDesc
		return notification, nil
	}

	if callback.CallbackMetadata == nil {
		return nil, fmt.Errorf("%w: success callback without metadata", payments.ErrGatewayInvalidWebhook)
	}

	for _, item := range callback.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			var amount decimal.Decimal
			if err := json.Unmarshal(item.Value, &amount); err == nil {
				notification.Amount = amount
			}
		case "MpesaReceiptNumber":
			var receipt string
			if err := json.Unmarshal(item.Value, &receipt); err == nil {
				notification.Receipt = receipt
			}
		case "PhoneNumber":
			var msisdn json.Number
			if err := json.Unmarshal(item.Value, &msisdn); err == nil {
				notification.MSISDN = msisdn.String()
			}
		case "TransactionDate":
			var stamp json.Number
			if err := json.Unmarshal(item.Value, &stamp); err == nil {
				if t, err := time.ParseInLocation(mpesaTimestampLayout, stamp.String(), mpesaTimeZone); err == nil {
					notification.CompletedAt = &t
				}
			}
		}
	}

	if notification.Receipt == "" {
		return nil, fmt.Errorf("%w: success callback without receipt", payments.ErrGatewayInvalidWebhook)
	}

	return notification, nil
}

// stkPassword builds the Lipa na M-Pesa online password for a timestamp
func (a *MpesaAdapter) stkPassword(timestamp string) string {
	return base64.StdEncoding.EncodeToString(
		[]byte(a.config.ShortCode + a.config.Passkey + timestamp))
}

// doRequest performs an authenticated POST to the Daraja API
func (a *MpesaAdapter) doRequest(ctx context.Context, path string, body interface{}) ([]byte, error) {
	token, err := a.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("mpesa: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("mpesa: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mpesa: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp mpesaErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.ErrorCode != "" {
			return nil, fmt.Errorf("%w: %s - %s",
				payments.ErrGatewayRequestFailed, errResp.ErrorCode, errResp.ErrorMessage)
		}
		return nil, fmt.Errorf("%w: HTTP %d", payments.ErrGatewayRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

// getAccessToken returns a cached OAuth token, refreshing it when close to
// expiry. Daraja tokens live for an hour.
func (a *MpesaAdapter) getAccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessToken != "" && time.Now().Before(a.tokenExpiry) {
		return a.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+mpesaOAuthPath, nil)
	if err != nil {
		return "", fmt.Errorf("mpesa: failed to create token request: %w", err)
	}
	req.SetBasicAuth(a.config.ConsumerKey, a.config.ConsumerSecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", payments.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("mpesa: failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request returned HTTP %d", payments.ErrGatewayRequestFailed, resp.StatusCode)
	}

	var tokenResp mpesaTokenResponse
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return "", fmt.Errorf("%w: %v", payments.ErrGatewayInvalidResponse, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", payments.ErrGatewayInvalidResponse)
	}

	ttl := 3600
	if seconds, err := strconv.Atoi(tokenResp.ExpiresIn); err == nil && seconds > 0 {
		ttl = seconds
	}

	a.accessToken = tokenResp.AccessToken
	// Refresh a little early to absorb clock skew
	a.tokenExpiry = time.Now().Add(time.Duration(ttl-30) * time.Second)

	return a.accessToken, nil
}

// mapMpesaResultCode maps a Daraja result code to a gateway status
func mapMpesaResultCode(code int) payments.GatewayStatus {
	switch code {
	case mpesaResultSuccess:
		return payments.GatewayStatusCompleted
	case mpesaResultUserCancelled:
		return payments.GatewayStatusCancelled
	default:
		return payments.GatewayStatusFailed
	}
}

// Ensure MpesaAdapter implements MobileMoneyGateway interface
var _ payments.MobileMoneyGateway = (*MpesaAdapter)(nil)
