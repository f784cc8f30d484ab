package payment

import "errors"

// PesapalConfig contains configuration for the PesaPal API 3.0
type PesapalConfig struct {
	// BaseURL is the PesaPal API host, sandbox (cybqa) or production
	BaseURL string
	// ConsumerKey is the merchant consumer key
	ConsumerKey string
	// ConsumerSecret is the merchant consumer secret
	ConsumerSecret string
	// IPNID is the notification id of the registered IPN endpoint
	IPNID string
	// CallbackURL is where the payer lands after the hosted flow
	CallbackURL string
}

// Errors for configuration validation
var (
	ErrPesapalMissingBaseURL        = errors.New("pesapal: missing base URL")
	ErrPesapalMissingConsumerKey    = errors.New("pesapal: missing consumer key")
	ErrPesapalMissingConsumerSecret = errors.New("pesapal: missing consumer secret")
	ErrPesapalMissingIPNID          = errors.New("pesapal: missing IPN notification id")
	ErrPesapalMissingCallbackURL    = errors.New("pesapal: missing callback URL")
)

// Validate validates the configuration
func (c *PesapalConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrPesapalMissingBaseURL
	}
	if c.ConsumerKey == "" {
		return ErrPesapalMissingConsumerKey
	}
	if c.ConsumerSecret == "" {
		return ErrPesapalMissingConsumerSecret
	}
	if c.IPNID == "" {
		return ErrPesapalMissingIPNID
	}
	if c.CallbackURL == "" {
		return ErrPesapalMissingCallbackURL
	}
	return nil
}
