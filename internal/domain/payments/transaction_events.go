package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/shared"
)

// Gateway transaction event types
const (
	EventTypeChargeInitiated = "payments.charge.initiated"
	EventTypeChargeCompleted = "payments.charge.completed"
	EventTypeChargeFailed    = "payments.charge.failed"
	EventTypeChargeCancelled = "payments.charge.cancelled"
	EventTypeChargeTimedOut  = "payments.charge.timed_out"
)

// ChargeInitiatedEvent is published when a charge record is created
type ChargeInitiatedEvent struct {
	shared.BaseDomainEvent
	LeaseID uuid.UUID       `json:"lease_id"`
	Channel GatewayChannel  `json:"channel"`
	Amount  decimal.Decimal `json:"amount"`
	MSISDN  string          `json:"msisdn"`
}

// NewChargeInitiatedEvent creates a new charge initiated event
func NewChargeInitiatedEvent(txn *GatewayTransaction) *ChargeInitiatedEvent {
	return &ChargeInitiatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChargeInitiated, "GatewayTransaction", txn.ID, txn.AgencyID),
		LeaseID:         txn.LeaseID,
		Channel:         txn.Channel,
		Amount:          txn.Amount,
		MSISDN:          txn.MSISDN,
	}
}

// ChargeCompletedEvent is published exactly once when a charge settles.
// The settlement pipeline listens for it to create the payment record.
type ChargeCompletedEvent struct {
	shared.BaseDomainEvent
	LeaseID       uuid.UUID       `json:"lease_id"`
	InvoiceID     *uuid.UUID      `json:"invoice_id,omitempty"`
	Channel       GatewayChannel  `json:"channel"`
	Amount        decimal.Decimal `json:"amount"`
	Receipt       string          `json:"receipt"`
	LateArrival   bool            `json:"late_arrival"` // Confirmed after the polling budget expired
}

// NewChargeCompletedEvent creates a new charge completed event
func NewChargeCompletedEvent(txn *GatewayTransaction, lateArrival bool) *ChargeCompletedEvent {
	return &ChargeCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChargeCompleted, "GatewayTransaction", txn.ID, txn.AgencyID),
		LeaseID:         txn.LeaseID,
		InvoiceID:       txn.InvoiceID,
		Channel:         txn.Channel,
		Amount:          txn.Amount,
		Receipt:         txn.Receipt,
		LateArrival:     lateArrival,
	}
}

// ChargeFailedEvent is published when a charge fails at the provider
type ChargeFailedEvent struct {
	shared.BaseDomainEvent
	LeaseID uuid.UUID      `json:"lease_id"`
	Channel GatewayChannel `json:"channel"`
	Reason  string         `json:"reason"`
}

// NewChargeFailedEvent creates a new charge failed event
func NewChargeFailedEvent(txn *GatewayTransaction) *ChargeFailedEvent {
	return &ChargeFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChargeFailed, "GatewayTransaction", txn.ID, txn.AgencyID),
		LeaseID:         txn.LeaseID,
		Channel:         txn.Channel,
		Reason:          txn.FailureReason,
	}
}

// ChargeCancelledEvent is published when the payer dismisses the prompt
type ChargeCancelledEvent struct {
	shared.BaseDomainEvent
	LeaseID uuid.UUID      `json:"lease_id"`
	Channel GatewayChannel `json:"channel"`
	Reason  string         `json:"reason"`
}

// NewChargeCancelledEvent creates a new charge cancelled event
func NewChargeCancelledEvent(txn *GatewayTransaction) *ChargeCancelledEvent {
	return &ChargeCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChargeCancelled, "GatewayTransaction", txn.ID, txn.AgencyID),
		LeaseID:         txn.LeaseID,
		Channel:         txn.Channel,
		Reason:          txn.FailureReason,
	}
}

// ChargeTimedOutEvent is published when the polling budget expires without a
// final provider answer
type ChargeTimedOutEvent struct {
	shared.BaseDomainEvent
	LeaseID   uuid.UUID      `json:"lease_id"`
	Channel   GatewayChannel `json:"channel"`
	PollCount int            `json:"poll_count"`
}

// NewChargeTimedOutEvent creates a new charge timed out event
func NewChargeTimedOutEvent(txn *GatewayTransaction) *ChargeTimedOutEvent {
	return &ChargeTimedOutEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChargeTimedOut, "GatewayTransaction", txn.ID, txn.AgencyID),
		LeaseID:         txn.LeaseID,
		Channel:         txn.Channel,
		PollCount:       txn.PollCount,
	}
}
