package event

import (
	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/payments"
)

// RegisterAllEvents registers all domain event types with the serializer
// This is required for the OutboxProcessor to deserialize events from the outbox table
func RegisterAllEvents(serializer *EventSerializer) {
	// Billing domain - Lease events
	serializer.Register(billing.EventTypeLeaseCreated, &billing.LeaseCreatedEvent{})
	serializer.Register(billing.EventTypeLeaseTerminated, &billing.LeaseTerminatedEvent{})

	// Billing domain - Invoice events
	serializer.Register(billing.EventTypeInvoiceIssued, &billing.InvoiceIssuedEvent{})
	serializer.Register(billing.EventTypeInvoicePaid, &billing.InvoicePaidEvent{})
	serializer.Register(billing.EventTypeInvoicePartiallyPaid, &billing.InvoicePartiallyPaidEvent{})
	serializer.Register(billing.EventTypeInvoiceOverdue, &billing.InvoiceOverdueEvent{})

	// Billing domain - Payment events
	serializer.Register(billing.EventTypePaymentRecorded, &billing.PaymentRecordedEvent{})
	serializer.Register(billing.EventTypePaymentReversed, &billing.PaymentReversedEvent{})

	// Billing domain - Penalty events
	serializer.Register(billing.EventTypePenaltyAssessed, &billing.PenaltyAssessedEvent{})
	serializer.Register(billing.EventTypePenaltyPaid, &billing.PenaltyPaidEvent{})
	serializer.Register(billing.EventTypePenaltyWaived, &billing.PenaltyWaivedEvent{})

	// Payments domain - Gateway charge events
	serializer.Register(payments.EventTypeChargeInitiated, &payments.ChargeInitiatedEvent{})
	serializer.Register(payments.EventTypeChargeCompleted, &payments.ChargeCompletedEvent{})
	serializer.Register(payments.EventTypeChargeFailed, &payments.ChargeFailedEvent{})
	serializer.Register(payments.EventTypeChargeCancelled, &payments.ChargeCancelledEvent{})
	serializer.Register(payments.EventTypeChargeTimedOut, &payments.ChargeTimedOutEvent{})
}
