package billing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/shared"
)

// In-memory repositories for service tests

type fakeLeaseRepo struct {
	mu     sync.Mutex
	leases map[uuid.UUID]*billing.Lease
}

func newFakeLeaseRepo() *fakeLeaseRepo {
	return &fakeLeaseRepo{leases: map[uuid.UUID]*billing.Lease{}}
}

func (r *fakeLeaseRepo) Save(_ context.Context, lease *billing.Lease) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leases[lease.ID] = lease
	return nil
}

func (r *fakeLeaseRepo) SaveWithLock(ctx context.Context, lease *billing.Lease) error {
	return r.Save(ctx, lease)
}

func (r *fakeLeaseRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leases[id], nil
}

func (r *fakeLeaseRepo) FindByAgency(_ context.Context, agencyID uuid.UUID, _ shared.Filter) ([]*billing.Lease, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Lease
	for _, l := range r.leases {
		if l.AgencyID == agencyID {
			out = append(out, l)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeLeaseRepo) FindActiveByAgency(_ context.Context, agencyID uuid.UUID) ([]*billing.Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Lease
	for _, l := range r.leases {
		if l.AgencyID == agencyID && l.IsActive() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeLeaseRepo) FindActiveCoveringPeriod(_ context.Context, year int, month time.Month) ([]*billing.Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Lease
	for _, l := range r.leases {
		if l.IsActive() && l.CoversPeriod(year, month) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID.String() < out[b].ID.String() })
	return out, nil
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*billing.Invoice
	seq      int
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: map[uuid.UUID]*billing.Invoice{}}
}

func (r *fakeInvoiceRepo) Save(_ context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.invoices {
		if existing.LeaseID == invoice.LeaseID &&
			existing.PeriodYear == invoice.PeriodYear &&
			existing.PeriodMonth == invoice.PeriodMonth {
			return billing.ErrDuplicateInvoice
		}
	}
	r.invoices[invoice.ID] = invoice
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(_ context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[invoice.ID] = invoice
	return nil
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invoices[id], nil
}

func (r *fakeInvoiceRepo) FindByNumber(_ context.Context, agencyID uuid.UUID, number string) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.AgencyID == agencyID && inv.InvoiceNumber == number {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeInvoiceRepo) FindByLeaseAndPeriod(_ context.Context, leaseID uuid.UUID, year int, month time.Month) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.LeaseID == leaseID && inv.PeriodYear == year && inv.PeriodMonth == int(month) {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeInvoiceRepo) FindByLease(_ context.Context, leaseID uuid.UUID) ([]*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.LeaseID == leaseID {
			out = append(out, inv)
		}
	}
	sortByPeriod(out)
	return out, nil
}

func (r *fakeInvoiceRepo) FindOpenByLease(_ context.Context, leaseID uuid.UUID) ([]*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.LeaseID == leaseID && inv.IsOpen() {
			out = append(out, inv)
		}
	}
	sortByPeriod(out)
	return out, nil
}

func (r *fakeInvoiceRepo) FindDueBefore(_ context.Context, cutoff time.Time, _ shared.Filter) ([]*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.IsOpen() && inv.DueAt.Before(cutoff) {
			out = append(out, inv)
		}
	}
	sortByPeriod(out)
	return out, nil
}

func (r *fakeInvoiceRepo) FindByAgency(_ context.Context, agencyID uuid.UUID, _ shared.Filter) ([]*billing.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Invoice
	for _, inv := range r.invoices {
		if inv.AgencyID == agencyID {
			out = append(out, inv)
		}
	}
	sortByPeriod(out)
	return out, int64(len(out)), nil
}

func (r *fakeInvoiceRepo) NextInvoiceNumber(_ context.Context, _ uuid.UUID, year int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("INV-%04d-%06d", year, r.seq), nil
}

func sortByPeriod(invoices []*billing.Invoice) {
	sort.Slice(invoices, func(a, b int) bool {
		if invoices[a].PeriodYear != invoices[b].PeriodYear {
			return invoices[a].PeriodYear < invoices[b].PeriodYear
		}
		if invoices[a].PeriodMonth != invoices[b].PeriodMonth {
			return invoices[a].PeriodMonth < invoices[b].PeriodMonth
		}
		return invoices[a].ID.String() < invoices[b].ID.String()
	})
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*billing.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[uuid.UUID]*billing.Payment{}}
}

func (r *fakePaymentRepo) Save(_ context.Context, payment *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payment.GatewayTransactionID != nil {
		for _, existing := range r.payments {
			if existing.GatewayTransactionID != nil && *existing.GatewayTransactionID == *payment.GatewayTransactionID {
				return shared.ErrAlreadyExists
			}
		}
	}
	r.payments[payment.ID] = payment
	return nil
}

func (r *fakePaymentRepo) SaveWithLock(ctx context.Context, payment *billing.Payment) error {
	return r.Save(ctx, payment)
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payments[id], nil
}

func (r *fakePaymentRepo) FindByLease(_ context.Context, leaseID uuid.UUID, _ shared.Filter) ([]*billing.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Payment
	for _, p := range r.payments {
		if p.LeaseID == leaseID {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakePaymentRepo) FindByGatewayTransaction(_ context.Context, txnID uuid.UUID) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.GatewayTransactionID != nil && *p.GatewayTransactionID == txnID {
			return p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakePaymentRepo) FindByReference(_ context.Context, agencyID uuid.UUID, reference string) ([]*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Payment
	for _, p := range r.payments {
		if p.AgencyID == agencyID && p.ReferenceNumber == reference {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) FindWithUnappliedCredit(_ context.Context, agencyID uuid.UUID, _ shared.Filter) ([]*billing.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Payment
	for _, p := range r.payments {
		if p.AgencyID == agencyID && p.UnappliedAmount().IsPositive() {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakePaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
}

type fakePenaltyRepo struct {
	mu        sync.Mutex
	penalties map[uuid.UUID]*billing.Penalty
}

func newFakePenaltyRepo() *fakePenaltyRepo {
	return &fakePenaltyRepo{penalties: map[uuid.UUID]*billing.Penalty{}}
}

func (r *fakePenaltyRepo) Save(_ context.Context, penalty *billing.Penalty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.penalties[penalty.ID] = penalty
	return nil
}

func (r *fakePenaltyRepo) SaveWithLock(ctx context.Context, penalty *billing.Penalty) error {
	return r.Save(ctx, penalty)
}

func (r *fakePenaltyRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Penalty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.penalties[id], nil
}

func (r *fakePenaltyRepo) FindByInvoice(_ context.Context, invoiceID uuid.UUID) (*billing.Penalty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *billing.Penalty
	for _, p := range r.penalties {
		if p.InvoiceID != invoiceID {
			continue
		}
		// A live penalty shadows an earlier waived one
		if found == nil || (found.IsWaived() && !p.IsWaived()) {
			found = p
		}
	}
	if found == nil {
		return nil, shared.ErrNotFound
	}
	return found, nil
}

func (r *fakePenaltyRepo) ExistsForInvoice(_ context.Context, invoiceID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.penalties {
		if p.InvoiceID == invoiceID && !p.IsWaived() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePenaltyRepo) FindByLease(_ context.Context, leaseID uuid.UUID) ([]*billing.Penalty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Penalty
	for _, p := range r.penalties {
		if p.LeaseID == leaseID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePenaltyRepo) FindByAgency(_ context.Context, agencyID uuid.UUID, _ shared.Filter) ([]*billing.Penalty, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Penalty
	for _, p := range r.penalties {
		if p.AgencyID == agencyID {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakePenaltyRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.penalties)
}
