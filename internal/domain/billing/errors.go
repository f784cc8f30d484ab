package billing

import "github.com/murichu/rent-sub002/internal/domain/shared"

// Billing-specific domain errors
var (
	// ErrDuplicateInvoice is returned when an invoice already exists for a lease period.
	// The period uniqueness invariant prevents double-billing; callers must not overwrite.
	ErrDuplicateInvoice = shared.NewDomainError("DUPLICATE_INVOICE", "An invoice already exists for this lease period")

	// ErrUnresolvedPayment is returned when a payment could not be matched to any
	// invoice. The funds are retained as unapplied credit for manual reconciliation.
	ErrUnresolvedPayment = shared.NewDomainError("UNRESOLVED_PAYMENT", "Payment could not be matched to any outstanding invoice")

	// ErrInvalidLeaseSchedule is returned for an out-of-range payment day
	ErrInvalidLeaseSchedule = shared.NewDomainError("INVALID_LEASE_SCHEDULE", "Lease payment day must be between 1 and 31")
)
