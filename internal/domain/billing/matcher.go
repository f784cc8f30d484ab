package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/domain/shared/valueobject"
)

// InvoiceApplication is one (invoice, amount) pair produced by the matcher
type InvoiceApplication struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Period        string          `json:"period"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
}

// MatchResult describes how a payment was distributed across invoices
type MatchResult struct {
	PaymentID       uuid.UUID            `json:"payment_id"`
	Applications    []InvoiceApplication `json:"applications"`
	TotalApplied    decimal.Decimal      `json:"total_applied"`
	UnappliedCredit decimal.Decimal      `json:"unapplied_credit"`
	UpdatedInvoices []*Invoice           `json:"-"`
}

// FullyApplied returns true if no residual credit remains
func (r *MatchResult) FullyApplied() bool {
	return r.UnappliedCredit.IsZero()
}

// PaymentMatcher is the domain service that allocates an incoming payment to
// a lease's outstanding invoices: oldest debt first, cascading any remainder
// to the next period, so an overpayment is never lost and never double-applied.
//
// The matcher is pure in-memory allocation over the invoices it is given; the
// application layer loads the candidates, holds the per-lease lock, and
// persists the updated aggregates.
type PaymentMatcher struct {
	graceWindow time.Duration
}

// MatcherOption is a functional option for configuring PaymentMatcher
type MatcherOption func(*PaymentMatcher)

// WithGraceWindow extends invoice eligibility to invoices whose due date lies
// within the window after now, so a payment arriving a few days early still
// settles the upcoming period.
func WithGraceWindow(window time.Duration) MatcherOption {
	return func(m *PaymentMatcher) {
		if window > 0 {
			m.graceWindow = window
		}
	}
}

// NewPaymentMatcher creates a new payment matcher
func NewPaymentMatcher(opts ...MatcherOption) *PaymentMatcher {
	m := &PaymentMatcher{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Apply distributes the payment across the candidate invoices and mutates both
// the payment (applied total) and the matched invoices (balances + status).
//
// Resolution order:
//  1. An explicitly targeted invoice is settled first.
//  2. Remaining funds cascade across non-settled invoices of the lease,
//     ordered by (period year, period month, id) ascending.
//  3. Whatever cannot be matched stays on the payment as unapplied credit;
//     funds are never discarded.
//
// Reversal (negative) payments must target an explicit invoice and never cascade.
func (m *PaymentMatcher) Apply(payment *Payment, candidates []*Invoice, now time.Time) (*MatchResult, error) {
	if payment == nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment cannot be nil")
	}

	if payment.IsReversal() {
		return m.applyReversal(payment, candidates, now)
	}

	result := &MatchResult{
		PaymentID:       payment.ID,
		Applications:    []InvoiceApplication{},
		TotalApplied:    decimal.Zero,
		UnappliedCredit: payment.Amount,
	}

	ordered := m.eligible(payment, candidates, now)
	remaining := payment.Amount

	for _, inv := range ordered {
		if !remaining.GreaterThan(decimal.Zero) {
			break
		}
		if !inv.IsOpen() {
			continue
		}

		applied, err := inv.Apply(
			valueobject.NewMoneyKES(remaining),
			payment.ID,
			now,
			fmt.Sprintf("Matched from payment %s", payment.ReferenceNumber),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to apply payment to invoice %s: %w", inv.InvoiceNumber, err)
		}

		remaining = remaining.Sub(applied.Amount())
		result.Applications = append(result.Applications, InvoiceApplication{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			Period:        inv.Period(),
			AppliedAmount: applied.Amount(),
		})
		result.TotalApplied = result.TotalApplied.Add(applied.Amount())
		result.UpdatedInvoices = append(result.UpdatedInvoices, inv)
	}

	result.UnappliedCredit = remaining
	if result.TotalApplied.GreaterThan(decimal.Zero) {
		payment.RecordApplied(result.TotalApplied)
		if payment.InvoiceID == nil && len(result.Applications) > 0 {
			first := result.Applications[0].InvoiceID
			payment.InvoiceID = &first
		}
	}

	return result, nil
}

// applyReversal routes a negative payment to its explicit invoice
func (m *PaymentMatcher) applyReversal(payment *Payment, candidates []*Invoice, now time.Time) (*MatchResult, error) {
	if payment.InvoiceID == nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Reversal payments require an explicit invoice")
	}

	var target *Invoice
	for _, inv := range candidates {
		if inv.ID == *payment.InvoiceID {
			target = inv
			break
		}
	}
	if target == nil {
		return nil, shared.ErrNotFound
	}

	amount := valueobject.NewMoneyKES(payment.Amount.Abs())
	if err := target.ApplyReversal(amount, payment.ID, now, payment.Remark); err != nil {
		return nil, err
	}
	payment.RecordApplied(payment.Amount)

	return &MatchResult{
		PaymentID: payment.ID,
		Applications: []InvoiceApplication{{
			InvoiceID:     target.ID,
			InvoiceNumber: target.InvoiceNumber,
			Period:        target.Period(),
			AppliedAmount: payment.Amount,
		}},
		TotalApplied:    payment.Amount,
		UnappliedCredit: decimal.Zero,
		UpdatedInvoices: []*Invoice{target},
	}, nil
}

// eligible filters and orders the candidate invoices for matching.
// The explicit target, when set, always comes first; the rest follow in
// (period year, period month, id) order, oldest debt first. Invoices due
// beyond now+graceWindow are excluded from implicit matching.
func (m *PaymentMatcher) eligible(payment *Payment, candidates []*Invoice, now time.Time) []*Invoice {
	horizon := now.Add(m.graceWindow)

	var explicit *Invoice
	rest := make([]*Invoice, 0, len(candidates))
	for _, inv := range candidates {
		if inv.LeaseID != payment.LeaseID {
			continue
		}
		if payment.InvoiceID != nil && inv.ID == *payment.InvoiceID {
			explicit = inv
			continue
		}
		if inv.DueAt.After(horizon) {
			continue
		}
		rest = append(rest, inv)
	}

	sort.SliceStable(rest, func(a, b int) bool {
		if rest[a].PeriodYear != rest[b].PeriodYear {
			return rest[a].PeriodYear < rest[b].PeriodYear
		}
		if rest[a].PeriodMonth != rest[b].PeriodMonth {
			return rest[a].PeriodMonth < rest[b].PeriodMonth
		}
		return rest[a].ID.String() < rest[b].ID.String()
	})

	if explicit != nil {
		return append([]*Invoice{explicit}, rest...)
	}
	return rest
}
