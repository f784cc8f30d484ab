package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/shared"
)

// Payment event types
const (
	EventTypePaymentRecorded = "billing.payment.recorded"
	EventTypePaymentReversed = "billing.payment.reversed"
)

// PaymentRecordedEvent is published when a payment is recorded
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	LeaseID         uuid.UUID       `json:"lease_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          PaymentMethod   `json:"method"`
	ReferenceNumber string          `json:"reference_number"`
}

// NewPaymentRecordedEvent creates a new payment recorded event
func NewPaymentRecordedEvent(payment *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, "Payment", payment.ID, payment.AgencyID),
		LeaseID:         payment.LeaseID,
		Amount:          payment.Amount,
		Method:          payment.Method,
		ReferenceNumber: payment.ReferenceNumber,
	}
}

// PaymentReversedEvent is published when a reversal record is created
type PaymentReversedEvent struct {
	shared.BaseDomainEvent
	OriginalPaymentID uuid.UUID       `json:"original_payment_id"`
	LeaseID           uuid.UUID       `json:"lease_id"`
	ReversedAmount    decimal.Decimal `json:"reversed_amount"`
	Reason            string          `json:"reason"`
}

// NewPaymentReversedEvent creates a new payment reversed event
func NewPaymentReversedEvent(reversal *Payment, original *Payment) *PaymentReversedEvent {
	return &PaymentReversedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypePaymentReversed, "Payment", reversal.ID, reversal.AgencyID),
		OriginalPaymentID: original.ID,
		LeaseID:           reversal.LeaseID,
		ReversedAmount:    reversal.Amount.Abs(),
		Reason:            reversal.Remark,
	}
}
