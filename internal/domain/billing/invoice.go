package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the derived status of a rent invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING" // Issued, nothing paid, not past due
	InvoiceStatusPartial InvoiceStatus = "PARTIAL" // Partially paid, not past due
	InvoiceStatusPaid    InvoiceStatus = "PAID"    // Fully settled
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE" // Past due and not fully settled
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsSettled returns true if no further payment is expected
func (s InvoiceStatus) IsSettled() bool {
	return s == InvoiceStatusPaid
}

// ComputeInvoiceStatus derives invoice status from payment state and wall-clock time.
// It is a pure function: identical inputs always produce the same status, which
// makes recomputation after every payment event and overdue sweep idempotent.
// Precedence: PAID > OVERDUE > PARTIAL > PENDING. PAID always wins regardless
// of date; OVERDUE is never a one-way edge and reverts as soon as totalPaid
// covers the amount.
func ComputeInvoiceStatus(totalPaid, amount decimal.Decimal, dueAt, now time.Time) InvoiceStatus {
	if totalPaid.GreaterThanOrEqual(amount) {
		return InvoiceStatusPaid
	}
	if now.After(dueAt) {
		return InvoiceStatusOverdue
	}
	if totalPaid.GreaterThan(decimal.Zero) {
		return InvoiceStatusPartial
	}
	return InvoiceStatusPending
}

// PaymentApplication records a slice of a payment applied to this invoice.
// It is a value object within the Invoice aggregate, stored as JSONB.
type PaymentApplication struct {
	ID        uuid.UUID       `json:"id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	AppliedAt time.Time       `json:"applied_at"`
	Remark    string          `json:"remark,omitempty"`
}

// PaymentApplications is a slice of PaymentApplication implementing the GORM
// Scanner/Valuer interfaces for JSONB storage
type PaymentApplications []PaymentApplication

// Value implements driver.Valuer for GORM to store as JSONB
func (p PaymentApplications) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for GORM to read from JSONB
func (p *PaymentApplications) Scan(value interface{}) error {
	if value == nil {
		*p = PaymentApplications{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentApplications: unsupported type")
	}

	if len(bytes) == 0 {
		*p = PaymentApplications{}
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// Invoice represents a periodic rent invoice aggregate root.
// Exactly one invoice exists per (lease, year, month); TotalPaid is derived
// from the applied payments but persisted for fast reads and must always
// equal the sum of application amounts.
type Invoice struct {
	shared.AgencyAggregateRoot
	InvoiceNumber string              `json:"invoice_number"`
	LeaseID       uuid.UUID           `json:"lease_id"`
	TenantID      uuid.UUID           `json:"tenant_id"`
	PeriodYear    int                 `json:"period_year"`
	PeriodMonth   int                 `json:"period_month"`
	Amount        decimal.Decimal     `json:"amount"`
	TotalPaid     decimal.Decimal     `json:"total_paid"`
	Status        InvoiceStatus       `json:"status"`
	IssuedAt      time.Time           `json:"issued_at"`
	DueAt         time.Time           `json:"due_at"`
	Applications  PaymentApplications `json:"applications"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
}

// NewInvoice creates a new pending invoice for a lease billing period
func NewInvoice(
	lease *Lease,
	invoiceNumber string,
	year int,
	month time.Month,
	issuedAt time.Time,
) (*Invoice, error) {
	if lease == nil {
		return nil, shared.NewDomainError("INVALID_LEASE", "Lease cannot be nil")
	}
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if month < time.January || month > time.December {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Billing month must be between 1 and 12")
	}
	if !lease.RentAmount.GreaterThan(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount must be positive")
	}
	if !lease.CoversPeriod(year, month) {
		return nil, shared.NewDomainError("PERIOD_NOT_COVERED", fmt.Sprintf("Lease does not cover billing period %04d-%02d", year, month))
	}

	inv := &Invoice{
		AgencyAggregateRoot: shared.NewAgencyAggregateRoot(lease.AgencyID),
		InvoiceNumber:       invoiceNumber,
		LeaseID:             lease.ID,
		TenantID:            lease.TenantID,
		PeriodYear:          year,
		PeriodMonth:         int(month),
		Amount:              lease.RentAmount,
		TotalPaid:           decimal.Zero,
		Status:              InvoiceStatusPending,
		IssuedAt:            issuedAt,
		DueAt:               lease.DueDateFor(year, month),
		Applications:        PaymentApplications{},
	}

	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))

	return inv, nil
}

// Outstanding returns the unpaid remainder
func (i *Invoice) Outstanding() decimal.Decimal {
	return i.Amount.Sub(i.TotalPaid)
}

// GetOutstandingMoney returns the unpaid remainder as Money
func (i *Invoice) GetOutstandingMoney() valueobject.Money {
	return valueobject.NewMoneyKES(i.Outstanding())
}

// StatusAt derives the status as of the given instant without mutating the invoice
func (i *Invoice) StatusAt(now time.Time) InvoiceStatus {
	return ComputeInvoiceStatus(i.TotalPaid, i.Amount, i.DueAt, now)
}

// RecomputeStatus recomputes and persists the derived status as of now.
// Safe to call repeatedly; the computation is pure.
func (i *Invoice) RecomputeStatus(now time.Time) {
	previous := i.Status
	i.Status = i.StatusAt(now)
	if i.Status == previous {
		return
	}
	i.UpdatedAt = now
	if i.Status == InvoiceStatusPaid && i.PaidAt == nil {
		paidAt := now
		i.PaidAt = &paidAt
	}
}

// Apply applies part of a payment to this invoice, capped at the outstanding
// balance, and returns the amount actually applied. The remainder is the
// caller's to cascade to the next invoice.
func (i *Invoice) Apply(payment valueobject.Money, paymentID uuid.UUID, now time.Time, remark string) (valueobject.Money, error) {
	if paymentID == uuid.Nil {
		return valueobject.ZeroKES(), shared.NewDomainError("INVALID_PAYMENT", "Payment ID cannot be empty")
	}
	if !payment.IsPositive() {
		return valueobject.ZeroKES(), shared.NewDomainError("INVALID_AMOUNT", "Applied amount must be positive")
	}
	outstanding := i.Outstanding()
	if !outstanding.GreaterThan(decimal.Zero) {
		return valueobject.ZeroKES(), shared.NewDomainError("INVALID_STATE", "Invoice is already fully settled")
	}

	applied := payment.Amount()
	if applied.GreaterThan(outstanding) {
		applied = outstanding
	}

	i.Applications = append(i.Applications, PaymentApplication{
		ID:        uuid.New(),
		PaymentID: paymentID,
		Amount:    applied,
		AppliedAt: now,
		Remark:    remark,
	})
	i.TotalPaid = i.TotalPaid.Add(applied)
	i.RecomputeStatus(now)
	i.UpdatedAt = now
	i.IncrementVersion()

	appliedMoney := valueobject.NewMoneyKES(applied)
	if i.Status == InvoiceStatusPaid {
		i.AddDomainEvent(NewInvoicePaidEvent(i))
	} else {
		i.AddDomainEvent(NewInvoicePartiallyPaidEvent(i, appliedMoney))
	}

	return appliedMoney, nil
}

// ApplyReversal records a negative application against this invoice,
// reducing TotalPaid. Used for payment corrections; historical applications
// are never mutated or removed.
func (i *Invoice) ApplyReversal(amount valueobject.Money, paymentID uuid.UUID, now time.Time, remark string) error {
	if paymentID == uuid.Nil {
		return shared.NewDomainError("INVALID_PAYMENT", "Payment ID cannot be empty")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Reversal amount must be positive")
	}
	if amount.Amount().GreaterThan(i.TotalPaid) {
		return shared.NewDomainError("EXCEEDS_PAID", fmt.Sprintf("Reversal %s exceeds paid total %s", amount.Amount(), i.TotalPaid))
	}

	i.Applications = append(i.Applications, PaymentApplication{
		ID:        uuid.New(),
		PaymentID: paymentID,
		Amount:    amount.Amount().Neg(),
		AppliedAt: now,
		Remark:    remark,
	})
	i.TotalPaid = i.TotalPaid.Sub(amount.Amount())
	i.PaidAt = nil
	i.RecomputeStatus(now)
	i.UpdatedAt = now
	i.IncrementVersion()

	return nil
}

// AppliedTotal sums the application amounts. It must always equal TotalPaid;
// a mismatch indicates corruption.
func (i *Invoice) AppliedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range i.Applications {
		total = total.Add(a.Amount)
	}
	return total
}

// Period returns the billing period as a display string, e.g. "2024-03"
func (i *Invoice) Period() string {
	return fmt.Sprintf("%04d-%02d", i.PeriodYear, i.PeriodMonth)
}

// IsOpen returns true if the invoice can still receive payments
func (i *Invoice) IsOpen() bool {
	return i.Outstanding().GreaterThan(decimal.Zero)
}
