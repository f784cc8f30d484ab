package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/murichu/rent-sub002/internal/domain/shared"
)

// LeaseRepository defines the interface for lease persistence
type LeaseRepository interface {
	// Save persists a new lease
	Save(ctx context.Context, lease *Lease) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, lease *Lease) error

	// FindByID retrieves a lease by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Lease, error)

	// FindByAgency retrieves leases for an agency
	FindByAgency(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*Lease, int64, error)

	// FindActiveByAgency retrieves all active leases for an agency
	FindActiveByAgency(ctx context.Context, agencyID uuid.UUID) ([]*Lease, error)

	// FindActiveCoveringPeriod retrieves active leases billable for (year, month)
	// across all agencies, for the monthly invoice run
	FindActiveCoveringPeriod(ctx context.Context, year int, month time.Month) ([]*Lease, error)
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// Save persists a new invoice. Implementations must enforce the
	// (lease_id, period_year, period_month) uniqueness constraint and return
	// ErrDuplicateInvoice on conflict.
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// FindByID retrieves an invoice by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber retrieves an invoice by its invoice number
	FindByNumber(ctx context.Context, agencyID uuid.UUID, invoiceNumber string) (*Invoice, error)

	// FindByLeaseAndPeriod retrieves the unique invoice for a lease period
	FindByLeaseAndPeriod(ctx context.Context, leaseID uuid.UUID, year int, month time.Month) (*Invoice, error)

	// FindByLease retrieves all invoices for a lease ordered by period ascending
	FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*Invoice, error)

	// FindOpenByLease retrieves non-settled invoices for a lease ordered by
	// period ascending, the candidate set for payment matching
	FindOpenByLease(ctx context.Context, leaseID uuid.UUID) ([]*Invoice, error)

	// FindDueBefore retrieves unsettled invoices whose due date precedes the
	// cutoff, for the overdue and penalty sweeps
	FindDueBefore(ctx context.Context, cutoff time.Time, filter shared.Filter) ([]*Invoice, error)

	// FindByAgency retrieves invoices for an agency with pagination
	FindByAgency(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*Invoice, int64, error)

	// NextInvoiceNumber allocates the next invoice number for an agency
	NextInvoiceNumber(ctx context.Context, agencyID uuid.UUID, year int) (string, error)
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// Save persists a new payment. Implementations must enforce uniqueness on
	// gateway_transaction_id so a gateway settlement yields exactly one payment.
	Save(ctx context.Context, payment *Payment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, payment *Payment) error

	// FindByID retrieves a payment by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByLease retrieves payments for a lease ordered by paid_at descending
	FindByLease(ctx context.Context, leaseID uuid.UUID, filter shared.Filter) ([]*Payment, int64, error)

	// FindByGatewayTransaction retrieves the payment settled from a gateway
	// transaction, if one exists
	FindByGatewayTransaction(ctx context.Context, txnID uuid.UUID) (*Payment, error)

	// FindByReference retrieves payments matching a reference number
	FindByReference(ctx context.Context, agencyID uuid.UUID, reference string) ([]*Payment, error)

	// FindWithUnappliedCredit retrieves payments whose amount exceeds the
	// applied total, for manual reconciliation
	FindWithUnappliedCredit(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*Payment, int64, error)
}

// PenaltyRepository defines the interface for penalty persistence
type PenaltyRepository interface {
	// Save persists a new penalty
	Save(ctx context.Context, penalty *Penalty) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, penalty *Penalty) error

	// FindByID retrieves a penalty by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Penalty, error)

	// FindByInvoice retrieves the penalty assessed against an invoice, if any
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*Penalty, error)

	// ExistsForInvoice reports whether a penalty has been assessed against the
	// invoice. The penalty sweep uses this to stay idempotent.
	ExistsForInvoice(ctx context.Context, invoiceID uuid.UUID) (bool, error)

	// FindByLease retrieves penalties for a lease
	FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*Penalty, error)

	// FindByAgency retrieves penalties for an agency with pagination
	FindByAgency(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*Penalty, int64, error)
}
