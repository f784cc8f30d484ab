package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/shared"
)

// Penalty event types
const (
	EventTypePenaltyAssessed = "billing.penalty.assessed"
	EventTypePenaltyPaid     = "billing.penalty.paid"
	EventTypePenaltyWaived   = "billing.penalty.waived"
)

// PenaltyAssessedEvent is published when a late fee is assessed
type PenaltyAssessedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID         `json:"invoice_id"`
	LeaseID    uuid.UUID         `json:"lease_id"`
	PolicyType PenaltyPolicyType `json:"policy_type"`
	Amount     decimal.Decimal   `json:"amount"`
}

// NewPenaltyAssessedEvent creates a new penalty assessed event
func NewPenaltyAssessedEvent(penalty *Penalty) *PenaltyAssessedEvent {
	return &PenaltyAssessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePenaltyAssessed, "Penalty", penalty.ID, penalty.AgencyID),
		InvoiceID:       penalty.InvoiceID,
		LeaseID:         penalty.LeaseID,
		PolicyType:      penalty.PolicyType,
		Amount:          penalty.Amount,
	}
}

// PenaltyPaidEvent is published when a penalty is settled
type PenaltyPaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentReference string          `json:"payment_reference,omitempty"`
}

// NewPenaltyPaidEvent creates a new penalty paid event
func NewPenaltyPaidEvent(penalty *Penalty) *PenaltyPaidEvent {
	return &PenaltyPaidEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypePenaltyPaid, "Penalty", penalty.ID, penalty.AgencyID),
		InvoiceID:        penalty.InvoiceID,
		Amount:           penalty.Amount,
		PaymentReference: penalty.PaymentReference,
	}
}

// PenaltyWaivedEvent is published when a penalty is cancelled
type PenaltyWaivedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Note      string    `json:"note"`
}

// NewPenaltyWaivedEvent creates a new penalty waived event
func NewPenaltyWaivedEvent(penalty *Penalty) *PenaltyWaivedEvent {
	return &PenaltyWaivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePenaltyWaived, "Penalty", penalty.ID, penalty.AgencyID),
		InvoiceID:       penalty.InvoiceID,
		Note:            penalty.WaiveNote,
	}
}
