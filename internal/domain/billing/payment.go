package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/domain/shared/valueobject"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodManual       PaymentMethod = "MANUAL"
	PaymentMethodMpesaC2B     PaymentMethod = "MPESA_C2B"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodPesapal      PaymentMethod = "PESAPAL"
	PaymentMethodCard         PaymentMethod = "CARD"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodManual, PaymentMethodMpesaC2B, PaymentMethodBankTransfer,
		PaymentMethodCash, PaymentMethodPesapal, PaymentMethodCard:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment represents money received from (or returned to) a tenant.
// Payments are immutable once recorded: the amount is never edited, and
// corrections are expressed as separate negative-amount reversal records.
type Payment struct {
	shared.AgencyAggregateRoot
	LeaseID              uuid.UUID       `json:"lease_id"`
	InvoiceID            *uuid.UUID      `json:"invoice_id,omitempty"` // Explicit target; nil until matched
	Amount               decimal.Decimal `json:"amount"`
	AppliedAmount        decimal.Decimal `json:"applied_amount"` // Portion matched to invoices
	PaidAt               time.Time       `json:"paid_at"`
	Method               PaymentMethod   `json:"method"`
	ReferenceNumber      string          `json:"reference_number"`
	GatewayTransactionID *uuid.UUID      `json:"gateway_transaction_id,omitempty"`
	ReversesPaymentID    *uuid.UUID      `json:"reverses_payment_id,omitempty"`
	Remark               string          `json:"remark,omitempty"`
}

// NewPayment creates a new incoming payment record
func NewPayment(
	agencyID uuid.UUID,
	leaseID uuid.UUID,
	amount valueobject.Money,
	paidAt time.Time,
	method PaymentMethod,
	referenceNumber string,
) (*Payment, error) {
	if agencyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_AGENCY", "Agency ID cannot be empty")
	}
	if leaseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LEASE", "Lease ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Payment method is not valid")
	}
	if referenceNumber == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Payment reference number cannot be empty")
	}

	p := &Payment{
		AgencyAggregateRoot: shared.NewAgencyAggregateRoot(agencyID),
		LeaseID:             leaseID,
		Amount:              amount.Amount(),
		AppliedAmount:       decimal.Zero,
		PaidAt:              paidAt,
		Method:              method,
		ReferenceNumber:     referenceNumber,
	}

	p.AddDomainEvent(NewPaymentRecordedEvent(p))

	return p, nil
}

// NewReversalPayment creates a negative-amount correction record for a prior
// payment. It flows through the same matching rules; the original record is
// never mutated.
func NewReversalPayment(
	original *Payment,
	amount valueobject.Money,
	invoiceID uuid.UUID,
	reason string,
) (*Payment, error) {
	if original == nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Original payment cannot be nil")
	}
	if original.IsReversal() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot reverse a reversal record")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Reversal amount must be positive")
	}
	if amount.Amount().GreaterThan(original.Amount) {
		return nil, shared.NewDomainError("EXCEEDS_ORIGINAL", "Reversal amount exceeds original payment")
	}
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Reversals must target the invoice the original payment settled")
	}
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Reversal reason is required")
	}

	originalID := original.ID
	p := &Payment{
		AgencyAggregateRoot: shared.NewAgencyAggregateRoot(original.AgencyID),
		LeaseID:             original.LeaseID,
		InvoiceID:           &invoiceID,
		Amount:              amount.Amount().Neg(),
		AppliedAmount:       decimal.Zero,
		PaidAt:              time.Now(),
		Method:              original.Method,
		ReferenceNumber:     original.ReferenceNumber + "/R",
		ReversesPaymentID:   &originalID,
		Remark:              reason,
	}

	p.AddDomainEvent(NewPaymentReversedEvent(p, original))

	return p, nil
}

// SetExplicitInvoice pins the payment to a specific invoice before matching
func (p *Payment) SetExplicitInvoice(invoiceID uuid.UUID) {
	if invoiceID == uuid.Nil {
		return
	}
	p.InvoiceID = &invoiceID
}

// AttachGatewayTransaction links the payment to the gateway transaction that produced it
func (p *Payment) AttachGatewayTransaction(txnID uuid.UUID) {
	if txnID == uuid.Nil {
		return
	}
	p.GatewayTransactionID = &txnID
}

// RecordApplied accumulates the matched portion after the matcher runs
func (p *Payment) RecordApplied(applied decimal.Decimal) {
	p.AppliedAmount = p.AppliedAmount.Add(applied)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// UnappliedAmount returns the residual credit not matched to any invoice
func (p *Payment) UnappliedAmount() decimal.Decimal {
	if p.IsReversal() {
		return decimal.Zero
	}
	return p.Amount.Sub(p.AppliedAmount)
}

// IsReversal returns true for negative-amount correction records
func (p *Payment) IsReversal() bool {
	return p.Amount.IsNegative()
}

// GetAmountMoney returns the payment amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyKES(p.Amount)
}
