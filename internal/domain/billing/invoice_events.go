package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/domain/shared/valueobject"
)

// Invoice event types
const (
	EventTypeInvoiceIssued        = "billing.invoice.issued"
	EventTypeInvoicePaid          = "billing.invoice.paid"
	EventTypeInvoicePartiallyPaid = "billing.invoice.partially_paid"
	EventTypeInvoiceOverdue       = "billing.invoice.overdue"
)

// InvoiceIssuedEvent is published when a periodic invoice is generated
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	LeaseID       uuid.UUID       `json:"lease_id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	Period        string          `json:"period"`
	Amount        decimal.Decimal `json:"amount"`
	DueAt         time.Time       `json:"due_at"`
}

// NewInvoiceIssuedEvent creates a new invoice issued event
func NewInvoiceIssuedEvent(invoice *Invoice) *InvoiceIssuedEvent {
	return &InvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceIssued, "Invoice", invoice.ID, invoice.AgencyID),
		InvoiceNumber:   invoice.InvoiceNumber,
		LeaseID:         invoice.LeaseID,
		TenantID:        invoice.TenantID,
		Period:          invoice.Period(),
		Amount:          invoice.Amount,
		DueAt:           invoice.DueAt,
	}
}

// InvoicePaidEvent is published when an invoice becomes fully settled
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	LeaseID       uuid.UUID       `json:"lease_id"`
	Period        string          `json:"period"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
}

// NewInvoicePaidEvent creates a new invoice paid event
func NewInvoicePaidEvent(invoice *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, "Invoice", invoice.ID, invoice.AgencyID),
		InvoiceNumber:   invoice.InvoiceNumber,
		LeaseID:         invoice.LeaseID,
		Period:          invoice.Period(),
		TotalPaid:       invoice.TotalPaid,
	}
}

// InvoicePartiallyPaidEvent is published when a payment covers part of an invoice
type InvoicePartiallyPaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	LeaseID       uuid.UUID       `json:"lease_id"`
	Period        string          `json:"period"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// NewInvoicePartiallyPaidEvent creates a new invoice partially paid event
func NewInvoicePartiallyPaidEvent(invoice *Invoice, applied valueobject.Money) *InvoicePartiallyPaidEvent {
	return &InvoicePartiallyPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePartiallyPaid, "Invoice", invoice.ID, invoice.AgencyID),
		InvoiceNumber:   invoice.InvoiceNumber,
		LeaseID:         invoice.LeaseID,
		Period:          invoice.Period(),
		AppliedAmount:   applied.Amount(),
		Outstanding:     invoice.Outstanding(),
	}
}

// InvoiceOverdueEvent is published by the overdue sweep when an invoice
// passes its due date without full settlement
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	LeaseID       uuid.UUID       `json:"lease_id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	Period        string          `json:"period"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	DueAt         time.Time       `json:"due_at"`
}

// NewInvoiceOverdueEvent creates a new invoice overdue event
func NewInvoiceOverdueEvent(invoice *Invoice) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceOverdue, "Invoice", invoice.ID, invoice.AgencyID),
		InvoiceNumber:   invoice.InvoiceNumber,
		LeaseID:         invoice.LeaseID,
		TenantID:        invoice.TenantID,
		Period:          invoice.Period(),
		Outstanding:     invoice.Outstanding(),
		DueAt:           invoice.DueAt,
	}
}
