package payments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/payments"
	"github.com/murichu/rent-sub002/internal/domain/shared"
)

// fakeGateway is a scriptable MobileMoneyGateway for service tests
type fakeGateway struct {
	mu           sync.Mutex
	channel      payments.GatewayChannel
	seq          int
	failInitiate bool

	resultStatus  payments.GatewayStatus
	resultReceipt string
	resultReason  string

	notification *payments.ChargeNotification
}

func newFakeGateway(channel payments.GatewayChannel) *fakeGateway {
	return &fakeGateway{
		channel:      channel,
		resultStatus: payments.GatewayStatusPending,
	}
}

func (g *fakeGateway) setResult(status payments.GatewayStatus, receipt, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resultStatus = status
	g.resultReceipt = receipt
	g.resultReason = reason
}

func (g *fakeGateway) Channel() payments.GatewayChannel {
	return g.channel
}

func (g *fakeGateway) InitiateCharge(_ context.Context, req *payments.InitiateChargeRequest) (*payments.InitiateChargeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failInitiate {
		return nil, payments.ErrGatewayUnavailable
	}
	g.seq++
	return &payments.InitiateChargeResponse{
		GatewayReference:  fmt.Sprintf("ws_CO_%06d", g.seq),
		MerchantReference: fmt.Sprintf("29115-%06d-1", g.seq),
		Status:            payments.GatewayStatusAccepted,
	}, nil
}

func (g *fakeGateway) QueryCharge(_ context.Context, req *payments.QueryChargeRequest) (*payments.QueryChargeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	resp := &payments.QueryChargeResponse{
		GatewayReference: req.GatewayReference,
		Status:           g.resultStatus,
		Receipt:          g.resultReceipt,
		FailureReason:    g.resultReason,
	}
	if g.resultStatus == payments.GatewayStatusCompleted {
		resp.CompletedAt = &now
	}
	return resp, nil
}

func (g *fakeGateway) ParseNotification(_ context.Context, _ []byte) (*payments.ChargeNotification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.notification == nil {
		return nil, payments.ErrGatewayInvalidWebhook
	}
	return g.notification, nil
}

// fakeRegistry serves a fixed set of gateways
type fakeRegistry struct {
	gateways map[payments.GatewayChannel]payments.MobileMoneyGateway
}

func newFakeRegistry(gateways ...payments.MobileMoneyGateway) *fakeRegistry {
	m := map[payments.GatewayChannel]payments.MobileMoneyGateway{}
	for _, g := range gateways {
		m[g.Channel()] = g
	}
	return &fakeRegistry{gateways: m}
}

func (r *fakeRegistry) GetGateway(channel payments.GatewayChannel) (payments.MobileMoneyGateway, error) {
	g, ok := r.gateways[channel]
	if !ok {
		return nil, payments.ErrGatewayNotConfigured
	}
	return g, nil
}

func (r *fakeRegistry) ListGateways() []payments.MobileMoneyGateway {
	out := make([]payments.MobileMoneyGateway, 0, len(r.gateways))
	for _, g := range r.gateways {
		out = append(out, g)
	}
	return out
}

func (r *fakeRegistry) IsEnabled(channel payments.GatewayChannel) bool {
	_, ok := r.gateways[channel]
	return ok
}

// fakeTxnRepo is an in-memory GatewayTransactionRepository
type fakeTxnRepo struct {
	mu   sync.Mutex
	txns map[uuid.UUID]*payments.GatewayTransaction
}

func newFakeTxnRepo() *fakeTxnRepo {
	return &fakeTxnRepo{txns: map[uuid.UUID]*payments.GatewayTransaction{}}
}

func (r *fakeTxnRepo) Save(_ context.Context, txn *payments.GatewayTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txns[txn.ID] = txn
	return nil
}

func (r *fakeTxnRepo) SaveWithLock(ctx context.Context, txn *payments.GatewayTransaction) error {
	return r.Save(ctx, txn)
}

func (r *fakeTxnRepo) FindByID(_ context.Context, id uuid.UUID) (*payments.GatewayTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.txns[id], nil
}

func (r *fakeTxnRepo) FindByGatewayReference(_ context.Context, channel payments.GatewayChannel, reference string) (*payments.GatewayTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, txn := range r.txns {
		if txn.Channel == channel && txn.GatewayReference == reference {
			return txn, nil
		}
	}
	return nil, nil
}

func (r *fakeTxnRepo) FindByLease(_ context.Context, leaseID uuid.UUID, _ shared.Filter) ([]*payments.GatewayTransaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payments.GatewayTransaction
	for _, txn := range r.txns {
		if txn.LeaseID == leaseID {
			out = append(out, txn)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeTxnRepo) FindByAgency(_ context.Context, agencyID uuid.UUID, _ shared.Filter) ([]*payments.GatewayTransaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payments.GatewayTransaction
	for _, txn := range r.txns {
		if txn.AgencyID == agencyID {
			out = append(out, txn)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeTxnRepo) FindUnresolved(_ context.Context, olderThan time.Time, limit int) ([]*payments.GatewayTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payments.GatewayTransaction
	for _, txn := range r.txns {
		switch txn.Status {
		case payments.TransactionStatusTimedOut:
			out = append(out, txn)
		case payments.TransactionStatusInitiated, payments.TransactionStatusPending:
			if txn.InitiatedAt.Before(olderThan) {
				out = append(out, txn)
			}
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].InitiatedAt.Before(out[b].InitiatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeLeaseRepo / fakeInvoiceRepo / fakePaymentRepo mirror the billing
// repositories in memory for settlement tests

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
	return out, nil
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*billing.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: map[uuid.UUID]*billing.Invoice{}}
}

func (r *fakeInvoiceRepo) Save(_ context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[invoice.ID] = invoice
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	return r.Save(ctx, invoice)
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invoices[id], nil
}

func (r *fakeInvoiceRepo) FindByNumber(_ context.Context, _ uuid.UUID, _ string) (*billing.Invoice, error) {
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
	return out, int64(len(out)), nil
}

func (r *fakeInvoiceRepo) NextInvoiceNumber(_ context.Context, _ uuid.UUID, year int) (string, error) {
	return fmt.Sprintf("INV-%04d-%06d", year, len(r.invoices)+1), nil
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

// Count returns the number of stored payments
func (r *fakePaymentRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
}
