package payment

import "errors"

// MpesaConfig contains configuration for the Safaricom Daraja STK Push API
type MpesaConfig struct {
	// BaseURL is the Daraja API host, sandbox or production
	BaseURL string
	// ConsumerKey is the Daraja app consumer key
	ConsumerKey string
	// ConsumerSecret is the Daraja app consumer secret
	ConsumerSecret string
	// ShortCode is the Lipa na M-Pesa business short code (paybill or till)
	ShortCode string
	// Passkey is the Lipa na M-Pesa online passkey issued with the short code
	Passkey string
	// CallbackURL receives the STK Push result notification
	CallbackURL string
}

// Errors for configuration validation
var (
	ErrMpesaMissingBaseURL        = errors.New("mpesa: missing base URL")
	ErrMpesaMissingConsumerKey    = errors.New("mpesa: missing consumer key")
	ErrMpesaMissingConsumerSecret = errors.New("mpesa: missing consumer secret")
	ErrMpesaMissingShortCode      = errors.New("mpesa: missing business short code")
	ErrMpesaMissingPasskey        = errors.New("mpesa: missing passkey")
	ErrMpesaMissingCallbackURL    = errors.New("mpesa: missing callback URL")
)

// Validate validates the configuration
func (c *MpesaConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrMpesaMissingBaseURL
	}
	if c.ConsumerKey == "" {
		return ErrMpesaMissingConsumerKey
	}
	if c.ConsumerSecret == "" {
		return ErrMpesaMissingConsumerSecret
	}
	if c.ShortCode == "" {
		return ErrMpesaMissingShortCode
	}
	if c.Passkey == "" {
		return ErrMpesaMissingPasskey
	}
	if c.CallbackURL == "" {
		return ErrMpesaMissingCallbackURL
	}
	return nil
}
