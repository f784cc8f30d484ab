package payments

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/domain/shared/valueobject"
)

// TransactionStatus is the tracker's view of a gateway charge
type TransactionStatus string

const (
	// TransactionStatusInitiated means the charge record exists but the
	// provider has not yet acknowledged the request
	TransactionStatusInitiated TransactionStatus = "INITIATED"
	// TransactionStatusPending means the provider accepted the charge and the
	// payer has been prompted
	TransactionStatusPending TransactionStatus = "PENDING"
	// TransactionStatusCompleted means the payer confirmed and funds moved
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	// TransactionStatusFailed means the charge failed at the provider
	TransactionStatusFailed TransactionStatus = "FAILED"
	// TransactionStatusCancelled means the payer dismissed the prompt
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
	// TransactionStatusTimedOut means no final status arrived within the
	// polling budget. Not necessarily a failure: the provider may still
	// confirm later, and the reconciliation sweep picks that up.
	TransactionStatusTimedOut TransactionStatus = "TIMED_OUT"
)

// IsValid returns true if the status is a valid TransactionStatus
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusInitiated, TransactionStatusPending, TransactionStatusCompleted,
		TransactionStatusFailed, TransactionStatusCancelled, TransactionStatusTimedOut:
		return true
	}
	return false
}

// String returns the string representation of TransactionStatus
func (s TransactionStatus) String() string {
	return string(s)
}

// IsTerminal returns true once no further transition is expected.
// TIMED_OUT is terminal for the polling loop but may still move to COMPLETED
// through reconciliation.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusFailed,
		TransactionStatusCancelled, TransactionStatusTimedOut:
		return true
	}
	return false
}

// IsSuccess returns true if the charge collected funds
func (s TransactionStatus) IsSuccess() bool {
	return s == TransactionStatusCompleted
}

// GatewayTransaction tracks one asynchronous mobile money charge from
// initiation to settlement. It is the system of record for webhook and
// polling results: transitions are guarded so that conflicting provider
// reports cannot corrupt a settled charge, and repeated delivery of the
// same result is a no-op.
type GatewayTransaction struct {
	shared.AgencyAggregateRoot
	LeaseID           uuid.UUID         `json:"lease_id"`
	InvoiceID         *uuid.UUID        `json:"invoice_id,omitempty"`
	Channel           GatewayChannel    `json:"channel"`
	Status            TransactionStatus `json:"status"`
	Amount            decimal.Decimal   `json:"amount"`
	MSISDN            string            `json:"msisdn"`
	AccountReference  string            `json:"account_reference"`
	GatewayReference  string            `json:"gateway_reference,omitempty"`  // CheckoutRequestID / OrderTrackingID
	MerchantReference string            `json:"merchant_reference,omitempty"` // MerchantRequestID / merchant order ID
	Receipt           string            `json:"receipt,omitempty"`            // Provider settlement receipt
	FailureReason     string            `json:"failure_reason,omitempty"`
	InitiatedAt       time.Time         `json:"initiated_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	TimedOutAt        *time.Time        `json:"timed_out_at,omitempty"`
	PollCount         int               `json:"poll_count"`
	LastPolledAt      *time.Time        `json:"last_polled_at,omitempty"`
}

// NewGatewayTransaction creates a charge record in INITIATED state.
// The record must be persisted before the provider is called, so a crash
// between the two leaves a row the reconciliation sweep can resolve.
func NewGatewayTransaction(req *InitiateChargeRequest) (*GatewayTransaction, error) {
	if req == nil {
		return nil, ErrChargeInvalidAmount
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	txn := &GatewayTransaction{
		AgencyAggregateRoot: shared.NewAgencyAggregateRoot(req.AgencyID),
		LeaseID:             req.LeaseID,
		InvoiceID:           req.InvoiceID,
		Channel:             req.Channel,
		Status:              TransactionStatusInitiated,
		Amount:              req.Amount,
		MSISDN:              req.MSISDN,
		AccountReference:    req.AccountReference,
		InitiatedAt:         time.Now(),
	}

	txn.AddDomainEvent(NewChargeInitiatedEvent(txn))

	return txn, nil
}

// MarkAccepted records the provider's acknowledgement and moves INITIATED to
// PENDING. Idempotent when already PENDING with the same reference.
func (t *GatewayTransaction) MarkAccepted(gatewayReference, merchantReference string) error {
	if gatewayReference == "" {
		return ErrGatewayInvalidResponse
	}
	if t.Status == TransactionStatusPending && t.GatewayReference == gatewayReference {
		return nil
	}
	if t.Status != TransactionStatusInitiated {
		return t.invalidTransition(TransactionStatusPending)
	}

	t.Status = TransactionStatusPending
	t.GatewayReference = gatewayReference
	t.MerchantReference = merchantReference
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// Complete settles the charge. Allowed from INITIATED, PENDING and TIMED_OUT;
// the last covers providers that confirm after the polling budget expired.
// A repeated completion with the same receipt is a no-op, so webhook retries
// and concurrent polls cannot settle a charge twice.
func (t *GatewayTransaction) Complete(receipt string, amount decimal.Decimal, completedAt time.Time) error {
	if receipt == "" {
		return ErrGatewayInvalidResponse
	}
	if t.Status == TransactionStatusCompleted {
		if t.Receipt == receipt {
			return nil
		}
		return t.invalidTransition(TransactionStatusCompleted)
	}
	switch t.Status {
	case TransactionStatusInitiated, TransactionStatusPending, TransactionStatusTimedOut:
	default:
		return t.invalidTransition(TransactionStatusCompleted)
	}
	if amount.GreaterThan(decimal.Zero) && !amount.Equal(t.Amount) {
		return shared.NewDomainError("AMOUNT_MISMATCH",
			fmt.Sprintf("Provider confirmed %s but %s was requested", amount, t.Amount))
	}

	wasTimedOut := t.Status == TransactionStatusTimedOut
	t.Status = TransactionStatusCompleted
	t.Receipt = receipt
	t.FailureReason = ""
	t.CompletedAt = &completedAt
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewChargeCompletedEvent(t, wasTimedOut))

	return nil
}

// Fail records a provider failure. Idempotent when already FAILED; rejected
// once the charge has COMPLETED or been CANCELLED.
func (t *GatewayTransaction) Fail(reason string) error {
	if t.Status == TransactionStatusFailed {
		return nil
	}
	switch t.Status {
	case TransactionStatusInitiated, TransactionStatusPending, TransactionStatusTimedOut:
	default:
		return t.invalidTransition(TransactionStatusFailed)
	}

	t.Status = TransactionStatusFailed
	t.FailureReason = reason
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewChargeFailedEvent(t))

	return nil
}

// Cancel records that the payer dismissed the prompt. Idempotent when
// already CANCELLED; rejected once the charge has COMPLETED or FAILED.
func (t *GatewayTransaction) Cancel(reason string) error {
	if t.Status == TransactionStatusCancelled {
		return nil
	}
	switch t.Status {
	case TransactionStatusInitiated, TransactionStatusPending, TransactionStatusTimedOut:
	default:
		return t.invalidTransition(TransactionStatusCancelled)
	}

	t.Status = TransactionStatusCancelled
	t.FailureReason = reason
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewChargeCancelledEvent(t))

	return nil
}

// TimeOut records that the polling budget expired without a final status.
// Only INITIATED and PENDING charges can time out; a terminal charge is
// left untouched.
func (t *GatewayTransaction) TimeOut(now time.Time) error {
	if t.Status == TransactionStatusTimedOut {
		return nil
	}
	switch t.Status {
	case TransactionStatusInitiated, TransactionStatusPending:
	default:
		return t.invalidTransition(TransactionStatusTimedOut)
	}

	t.Status = TransactionStatusTimedOut
	t.TimedOutAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewChargeTimedOutEvent(t))

	return nil
}

// ApplyStatus maps a provider-reported status onto the state machine.
// Used by both the webhook handler and the polling loop; every path funnels
// through the guarded transitions above.
func (t *GatewayTransaction) ApplyStatus(status GatewayStatus, receipt string, amount decimal.Decimal, failureReason string, completedAt time.Time) error {
	switch status {
	case GatewayStatusCompleted:
		return t.Complete(receipt, amount, completedAt)
	case GatewayStatusFailed:
		return t.Fail(failureReason)
	case GatewayStatusCancelled:
		return t.Cancel(failureReason)
	case GatewayStatusAccepted, GatewayStatusPending:
		// Still in flight, nothing to record
		return nil
	default:
		return ErrGatewayInvalidResponse
	}
}

// RecordPoll bumps the polling bookkeeping
func (t *GatewayTransaction) RecordPoll(now time.Time) {
	t.PollCount++
	t.LastPolledAt = &now
}

// IsResolvable returns true while the charge can still reach a final answer
func (t *GatewayTransaction) IsResolvable() bool {
	return !t.Status.IsTerminal() || t.Status == TransactionStatusTimedOut
}

// GetAmountMoney returns the charge amount as Money
func (t *GatewayTransaction) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyKES(t.Amount)
}

func (t *GatewayTransaction) invalidTransition(target TransactionStatus) error {
	return shared.NewDomainError("INVALID_STATE",
		fmt.Sprintf("Cannot transition gateway transaction from %s to %s", t.Status, target))
}
