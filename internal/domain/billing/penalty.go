package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/domain/shared/valueobject"
)

// PenaltyPolicyType selects how a late fee is computed
type PenaltyPolicyType string

const (
	PenaltyPolicyFlat    PenaltyPolicyType = "FLAT"    // Fixed fee per late invoice
	PenaltyPolicyPercent PenaltyPolicyType = "PERCENT" // Percentage of the outstanding balance
)

// IsValid checks if the type is a valid PenaltyPolicyType
func (t PenaltyPolicyType) IsValid() bool {
	return t == PenaltyPolicyFlat || t == PenaltyPolicyPercent
}

// String returns the string representation of PenaltyPolicyType
func (t PenaltyPolicyType) String() string {
	return string(t)
}

// PenaltyPolicy is an agency-level late fee rule. The grace period counts
// from the invoice due date; an invoice settled inside the grace window is
// never penalized.
type PenaltyPolicy struct {
	Type      PenaltyPolicyType `json:"type"`
	FlatFee   decimal.Decimal   `json:"flat_fee"`   // Used when Type is FLAT
	Percent   decimal.Decimal   `json:"percent"`    // Used when Type is PERCENT, e.g. 5 for 5%
	GraceDays int               `json:"grace_days"` // Days after due date before a penalty accrues
}

// NewFlatPenaltyPolicy creates a flat fee policy
func NewFlatPenaltyPolicy(fee valueobject.Money, graceDays int) (PenaltyPolicy, error) {
	if !fee.IsPositive() {
		return PenaltyPolicy{}, shared.NewDomainError("INVALID_AMOUNT", "Penalty fee must be positive")
	}
	if graceDays < 0 {
		return PenaltyPolicy{}, shared.NewDomainError("INVALID_GRACE", "Grace days cannot be negative")
	}
	return PenaltyPolicy{
		Type:      PenaltyPolicyFlat,
		FlatFee:   fee.Amount(),
		Percent:   decimal.Zero,
		GraceDays: graceDays,
	}, nil
}

// NewPercentPenaltyPolicy creates a percentage-of-outstanding policy
func NewPercentPenaltyPolicy(percent decimal.Decimal, graceDays int) (PenaltyPolicy, error) {
	if !percent.GreaterThan(decimal.Zero) || percent.GreaterThan(decimal.NewFromInt(100)) {
		return PenaltyPolicy{}, shared.NewDomainError("INVALID_PERCENT", "Penalty percent must be between 0 and 100")
	}
	if graceDays < 0 {
		return PenaltyPolicy{}, shared.NewDomainError("INVALID_GRACE", "Grace days cannot be negative")
	}
	return PenaltyPolicy{
		Type:      PenaltyPolicyPercent,
		FlatFee:   decimal.Zero,
		Percent:   percent,
		GraceDays: graceDays,
	}, nil
}

// AccruesAt returns the instant from which the invoice is penalizable
func (p PenaltyPolicy) AccruesAt(invoice *Invoice) time.Time {
	return invoice.DueAt.AddDate(0, 0, p.GraceDays)
}

// Assess computes the penalty for an invoice as of now. It returns zero and
// false when no penalty is due: the invoice is settled, or the grace window
// has not elapsed. The amount is rounded to whole cents.
func (p PenaltyPolicy) Assess(invoice *Invoice, now time.Time) (valueobject.Money, bool) {
	if invoice == nil || !invoice.IsOpen() {
		return valueobject.ZeroKES(), false
	}
	if !now.After(p.AccruesAt(invoice)) {
		return valueobject.ZeroKES(), false
	}

	switch p.Type {
	case PenaltyPolicyFlat:
		return valueobject.NewMoneyKES(p.FlatFee), true
	case PenaltyPolicyPercent:
		amount := invoice.Outstanding().Mul(p.Percent).Div(decimal.NewFromInt(100)).Round(2)
		if !amount.GreaterThan(decimal.Zero) {
			return valueobject.ZeroKES(), false
		}
		return valueobject.NewMoneyKES(amount), true
	}
	return valueobject.ZeroKES(), false
}

// PenaltyStatus is the lifecycle state of an assessed penalty
type PenaltyStatus string

const (
	PenaltyStatusPending PenaltyStatus = "PENDING" // Assessed, awaiting payment
	PenaltyStatusPaid    PenaltyStatus = "PAID"    // Settled by the tenant
	PenaltyStatusWaived  PenaltyStatus = "WAIVED"  // Cancelled by the agency
)

// IsValid checks if the status is a valid PenaltyStatus
func (s PenaltyStatus) IsValid() bool {
	return s == PenaltyStatusPending || s == PenaltyStatusPaid || s == PenaltyStatusWaived
}

// String returns the string representation of PenaltyStatus
func (s PenaltyStatus) String() string {
	return string(s)
}

// Penalty represents a late fee assessed against an overdue invoice.
// At most one non-waived penalty exists per invoice; the sweep that assesses
// them is idempotent by checking for an existing record before creating one.
// Waiving a penalty makes the invoice eligible for re-assessment.
type Penalty struct {
	shared.AgencyAggregateRoot
	InvoiceID        uuid.UUID         `json:"invoice_id"`
	LeaseID          uuid.UUID         `json:"lease_id"`
	TenantID         uuid.UUID         `json:"tenant_id"`
	PolicyType       PenaltyPolicyType `json:"policy_type"`
	Amount           decimal.Decimal   `json:"amount"`
	Status           PenaltyStatus     `json:"status"`
	AssessedAt       time.Time         `json:"assessed_at"`
	PaidAt           *time.Time        `json:"paid_at,omitempty"`
	PaymentReference string            `json:"payment_reference,omitempty"`
	WaivedAt         *time.Time        `json:"waived_at,omitempty"`
	WaiveNote        string            `json:"waive_note,omitempty"`
}

// NewPenalty assesses a late fee against an overdue invoice under the policy
func NewPenalty(invoice *Invoice, policy PenaltyPolicy, now time.Time) (*Penalty, error) {
	if invoice == nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice cannot be nil")
	}
	if !policy.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_POLICY", "Penalty policy type is not valid")
	}

	amount, due := policy.Assess(invoice, now)
	if !due {
		return nil, shared.NewDomainError("NOT_PENALIZABLE", "Invoice is not eligible for a penalty")
	}

	pen := &Penalty{
		AgencyAggregateRoot: shared.NewAgencyAggregateRoot(invoice.AgencyID),
		InvoiceID:           invoice.ID,
		LeaseID:             invoice.LeaseID,
		TenantID:            invoice.TenantID,
		PolicyType:          policy.Type,
		Amount:              amount.Amount(),
		Status:              PenaltyStatusPending,
		AssessedAt:          now,
	}

	pen.AddDomainEvent(NewPenaltyAssessedEvent(pen))

	return pen, nil
}

// Waive cancels the penalty without deleting the record. Only a pending
// penalty can be waived; a settled one stays on the ledger.
func (p *Penalty) Waive(note string) error {
	if p.Status != PenaltyStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot waive a %s penalty", p.Status))
	}
	if note == "" {
		return shared.NewDomainError("INVALID_REASON", "Waive note is required")
	}

	now := time.Now()
	p.Status = PenaltyStatusWaived
	p.WaivedAt = &now
	p.WaiveNote = note
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPenaltyWaivedEvent(p))

	return nil
}

// MarkPaid settles the penalty. reference is the payment reference that
// covered it, if known.
func (p *Penalty) MarkPaid(reference string) error {
	if p.Status != PenaltyStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot settle a %s penalty", p.Status))
	}

	now := time.Now()
	p.Status = PenaltyStatusPaid
	p.PaidAt = &now
	p.PaymentReference = reference
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPenaltyPaidEvent(p))

	return nil
}

// IsWaived returns true if the penalty has been cancelled
func (p *Penalty) IsWaived() bool {
	return p.Status == PenaltyStatusWaived
}

// IsPaid returns true if the penalty has been settled
func (p *Penalty) IsPaid() bool {
	return p.Status == PenaltyStatusPaid
}

// GetAmountMoney returns the penalty amount as Money
func (p *Penalty) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyKES(p.Amount)
}
