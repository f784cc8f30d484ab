package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Mobile Money Gateway Errors
// ---------------------------------------------------------------------------

var (
	// Charge initiation errors
	ErrChargeInvalidAgencyID  = errors.New("charge: invalid agency ID")
	ErrChargeInvalidLeaseID   = errors.New("charge: invalid lease ID")
	ErrChargeInvalidAmount    = errors.New("charge: invalid charge amount")
	ErrChargeInvalidChannel   = errors.New("charge: invalid payment channel")
	ErrChargeInvalidMSISDN    = errors.New("charge: invalid payer phone number")
	ErrChargeInvalidReference = errors.New("charge: invalid account reference")
	ErrChargeInvalidCallback  = errors.New("charge: invalid callback URL")

	// Query errors
	ErrQueryInvalidParams  = errors.New("query: need a gateway reference or transaction ID")
	ErrTransactionNotFound = errors.New("gateway: transaction not found")

	// Gateway errors
	ErrGatewayNotConfigured   = errors.New("gateway: not configured")
	ErrGatewayNotEnabled      = errors.New("gateway: not enabled")
	ErrGatewayUnavailable     = errors.New("gateway: temporarily unavailable")
	ErrGatewayRequestFailed   = errors.New("gateway: request failed")
	ErrGatewayInvalidResponse = errors.New("gateway: invalid response")
	ErrGatewayTimeout         = errors.New("gateway: status not final within the polling budget")
	ErrGatewayInvalidWebhook  = errors.New("gateway: invalid webhook signature")
)

// GatewayChannel identifies the mobile money rail used for a charge
type GatewayChannel string

const (
	// GatewayChannelMpesaSTK is Safaricom M-Pesa STK Push (Lipa na M-Pesa Online)
	GatewayChannelMpesaSTK GatewayChannel = "MPESA_STK"
	// GatewayChannelPesapal is the PesaPal hosted order flow (cards and wallets)
	GatewayChannelPesapal GatewayChannel = "PESAPAL"
)

// IsValid returns true if the channel is valid
func (c GatewayChannel) IsValid() bool {
	switch c {
	case GatewayChannelMpesaSTK, GatewayChannelPesapal:
		return true
	default:
		return false
	}
}

// String returns the string representation of GatewayChannel
func (c GatewayChannel) String() string {
	return string(c)
}

// RequiresMSISDN returns true if the channel needs the payer's phone number up front
func (c GatewayChannel) RequiresMSISDN() bool {
	return c == GatewayChannelMpesaSTK
}

// GatewayStatus is the provider-side view of a charge, as reported by a
// callback or a status query. It is mapped onto the TransactionStatus state
// machine by the tracker; the two are deliberately separate vocabularies.
type GatewayStatus string

const (
	// GatewayStatusAccepted indicates the provider accepted the charge request
	GatewayStatusAccepted GatewayStatus = "ACCEPTED"
	// GatewayStatusPending indicates the charge awaits payer action
	GatewayStatusPending GatewayStatus = "PENDING"
	// GatewayStatusCompleted indicates the payer confirmed and funds moved
	GatewayStatusCompleted GatewayStatus = "COMPLETED"
	// GatewayStatusFailed indicates the charge failed (insufficient funds, wrong PIN)
	GatewayStatusFailed GatewayStatus = "FAILED"
	// GatewayStatusCancelled indicates the payer dismissed the prompt
	GatewayStatusCancelled GatewayStatus = "CANCELLED"
)

// IsValid returns true if the status is valid
func (s GatewayStatus) IsValid() bool {
	switch s {
	case GatewayStatusAccepted, GatewayStatusPending, GatewayStatusCompleted,
		GatewayStatusFailed, GatewayStatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of GatewayStatus
func (s GatewayStatus) String() string {
	return string(s)
}

// IsFinal returns true if the provider will not change this status again
func (s GatewayStatus) IsFinal() bool {
	switch s {
	case GatewayStatusCompleted, GatewayStatusFailed, GatewayStatusCancelled:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Charge Request/Response DTOs
// ---------------------------------------------------------------------------

// InitiateChargeRequest asks the gateway to start collecting a payment
type InitiateChargeRequest struct {
	// AgencyID is the agency collecting the rent
	AgencyID uuid.UUID
	// LeaseID is the lease being paid
	LeaseID uuid.UUID
	// InvoiceID optionally pins the charge to a specific invoice
	InvoiceID *uuid.UUID
	// Amount is the charge amount in KES
	Amount decimal.Decimal
	// Channel selects the mobile money rail
	Channel GatewayChannel
	// MSISDN is the payer's phone number in E.164 without plus, e.g. 2547XXXXXXXX
	MSISDN string
	// AccountReference is shown on the payer's statement, e.g. the unit number
	AccountReference string
	// Description is an optional narration shown to the payer
	Description string
	// CallbackURL receives the asynchronous result notification
	CallbackURL string
}

// Validate validates the initiate charge request
func (r *InitiateChargeRequest) Validate() error {
	if r.AgencyID == uuid.Nil {
		return ErrChargeInvalidAgencyID
	}
	if r.LeaseID == uuid.Nil {
		return ErrChargeInvalidLeaseID
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrChargeInvalidAmount
	}
	if !r.Channel.IsValid() {
		return ErrChargeInvalidChannel
	}
	if r.Channel.RequiresMSISDN() && len(r.MSISDN) < 10 {
		return ErrChargeInvalidMSISDN
	}
	if r.AccountReference == "" {
		return ErrChargeInvalidReference
	}
	if r.CallbackURL == "" {
		return ErrChargeInvalidCallback
	}
	return nil
}

// InitiateChargeResponse is the provider's acknowledgement of a charge request
type InitiateChargeResponse struct {
	// GatewayReference is the provider's identifier for this charge:
	// the CheckoutRequestID for M-Pesa, the OrderTrackingID for PesaPal
	GatewayReference string
	// MerchantReference is the secondary provider identifier, when one exists
	MerchantReference string
	// Status is the initial provider status
	Status GatewayStatus
	// RedirectURL is where to send the payer, for hosted flows
	RedirectURL string
	// RawResponse is the original provider response (JSON)
	RawResponse string
}

// QueryChargeRequest asks the provider for the current state of a charge
type QueryChargeRequest struct {
	// GatewayReference is the provider's identifier for the charge
	GatewayReference string
	// MerchantReference is the secondary provider identifier
	MerchantReference string
}

// Validate validates the query charge request
func (r *QueryChargeRequest) Validate() error {
	if r.GatewayReference == "" && r.MerchantReference == "" {
		return ErrQueryInvalidParams
	}
	return nil
}

// QueryChargeResponse is the provider's report of a charge's state
type QueryChargeResponse struct {
	// GatewayReference is the provider's identifier for the charge
	GatewayReference string
	// Status is the current provider status
	Status GatewayStatus
	// Receipt is the provider's settlement receipt, e.g. the M-Pesa receipt number
	Receipt string
	// Amount is the confirmed amount, when the provider reports one
	Amount decimal.Decimal
	// FailureReason describes why the charge failed, when it did
	FailureReason string
	// CompletedAt is when the payer confirmed, when the provider reports it
	CompletedAt *time.Time
	// RawResponse is the original provider response (JSON)
	RawResponse string
}

// ChargeNotification is an asynchronous result pushed by the provider
type ChargeNotification struct {
	// Channel identifies which provider sent the notification
	Channel GatewayChannel
	// GatewayReference is the provider's identifier for the charge
	GatewayReference string
	// Status is the reported provider status
	Status GatewayStatus
	// Receipt is the provider's settlement receipt
	Receipt string
	// Amount is the confirmed amount
	Amount decimal.Decimal
	// MSISDN is the payer's phone number as reported by the provider
	MSISDN string
	// FailureReason describes why the charge failed, when it did
	FailureReason string
	// CompletedAt is when the payer confirmed
	CompletedAt *time.Time
	// RawPayload is the original notification payload
	RawPayload string
}

// ---------------------------------------------------------------------------
// MobileMoneyGateway Port Interface
// ---------------------------------------------------------------------------

// MobileMoneyGateway defines the port interface for external mobile money
// providers. It is defined in the domain layer; concrete adapters (M-Pesa
// Daraja, PesaPal) live in the infrastructure layer.
type MobileMoneyGateway interface {
	// Channel returns the rail this gateway serves
	Channel() GatewayChannel

	// InitiateCharge starts collecting a payment from the payer.
	// For M-Pesa this triggers the STK prompt on the payer's handset.
	InitiateCharge(ctx context.Context, req *InitiateChargeRequest) (*InitiateChargeResponse, error)

	// QueryCharge queries the provider for the current state of a charge
	QueryCharge(ctx context.Context, req *QueryChargeRequest) (*QueryChargeResponse, error)

	// ParseNotification verifies and parses an asynchronous result notification.
	// Returns ErrGatewayInvalidWebhook when the payload cannot be authenticated.
	ParseNotification(ctx context.Context, payload []byte) (*ChargeNotification, error)
}

// GatewayRegistry provides access to the configured mobile money gateways
type GatewayRegistry interface {
	// GetGateway returns the gateway serving the specified channel
	GetGateway(channel GatewayChannel) (MobileMoneyGateway, error)

	// ListGateways returns all registered gateways
	ListGateways() []MobileMoneyGateway

	// IsEnabled returns true if the channel has a configured gateway
	IsEnabled(channel GatewayChannel) bool
}
