package payment

import "github.com/shopspring/decimal"

// pesapalAuthRequest is the RequestToken body
type pesapalAuthRequest struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
}

// pesapalAuthResponse is the RequestToken result
type pesapalAuthResponse struct {
	Token      string        `json:"token"`
	ExpiryDate string        `json:"expiryDate"`
	Status     string        `json:"status"`
	Message    string        `json:"message"`
	Error      *pesapalError `json:"error"`
}

// pesapalError is the error object embedded in PesaPal responses
type pesapalError struct {
	Type    string `json:"error_type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// pesapalOrderRequest is the SubmitOrderRequest body
type pesapalOrderRequest struct {
	ID             string                `json:"id"`
	Currency       string                `json:"currency"`
	Amount         decimal.Decimal       `json:"amount"`
	Description    string                `json:"description"`
	CallbackURL    string                `json:"callback_url"`
	NotificationID string                `json:"notification_id"`
	BillingAddress pesapalBillingAddress `json:"billing_address"`
}

// pesapalBillingAddress identifies the payer
type pesapalBillingAddress struct {
	PhoneNumber string `json:"phone_number,omitempty"`
	EmailAddr   string `json:"email_address,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// pesapalOrderResponse is the SubmitOrderRequest acknowledgement
type pesapalOrderResponse struct {
	OrderTrackingID   string        `json:"order_tracking_id"`
	MerchantReference string        `json:"merchant_reference"`
	RedirectURL       string        `json:"redirect_url"`
	Status            string        `json:"status"`
	Error             *pesapalError `json:"error"`
}

// pesapalStatusResponse is the GetTransactionStatus result
type pesapalStatusResponse struct {
	OrderTrackingID          string          `json:"order_tracking_id"`
	MerchantReference        string          `json:"merchant_reference"`
	PaymentMethod            string          `json:"payment_method"`
	Amount                   decimal.Decimal `json:"amount"`
	CreatedDate              string          `json:"created_date"`
	ConfirmationCode         string          `json:"confirmation_code"`
	PaymentStatusDescription string          `json:"payment_status_description"`
	Description              string          `json:"description"`
	Message                  string          `json:"message"`
	PaymentAccount           string          `json:"payment_account"`
	StatusCode               int             `json:"status_code"`
	Error                    *pesapalError   `json:"error"`
}

// pesapalIPN is the change notification pushed to the registered IPN URL.
// It names the order but carries no status; the current state has to be
// fetched with GetTransactionStatus.
type pesapalIPN struct {
	OrderTrackingID   string `json:"OrderTrackingId"`
	MerchantReference string `json:"OrderMerchantReference"`
	NotificationType  string `json:"OrderNotificationType"`
}
