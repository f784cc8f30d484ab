package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/shared/valueobject"
)

func newServiceLease(t *testing.T, leaseRepo *fakeLeaseRepo, rentCents int64, paymentDay int) *billing.Lease {
	t.Helper()
	lease, err := billing.NewLease(
		uuid.New(),
		uuid.New(),
		uuid.New(),
		uuid.New(),
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		valueobject.NewMoneyKESFromCents(rentCents),
		paymentDay,
	)
	require.NoError(t, err)
	lease.ClearDomainEvents()
	require.NoError(t, leaseRepo.Save(context.Background(), lease))
	return lease
}

func TestInvoiceServiceGenerateInvoice(t *testing.T) {
	ctx := context.Background()
	leaseRepo := newFakeLeaseRepo()
	invoiceRepo := newFakeInvoiceRepo()
	svc := NewInvoiceService(InvoiceServiceConfig{LeaseRepo: leaseRepo, InvoiceRepo: invoiceRepo})

	lease := newServiceLease(t, leaseRepo, 1000000, 5)

	invoice, err := svc.GenerateInvoice(ctx, lease.ID, 2024, time.March)
	require.NoError(t, err)

	assert.Equal(t, billing.InvoiceStatusPending, invoice.Status)
	assert.Equal(t, "2024-03", invoice.Period())
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), invoice.DueAt)

	t.Run("second generation for same period is rejected", func(t *testing.T) {
		_, err := svc.GenerateInvoice(ctx, lease.ID, 2024, time.March)
		assert.ErrorIs(t, err, billing.ErrDuplicateInvoice)

		invoices, err := invoiceRepo.FindByLease(ctx, lease.ID)
		require.NoError(t, err)
		assert.Len(t, invoices, 1, "the existing invoice is never overwritten")
	})

	t.Run("different period generates a new invoice", func(t *testing.T) {
		_, err := svc.GenerateInvoice(ctx, lease.ID, 2024, time.April)
		require.NoError(t, err)
	})
}

func TestInvoiceServiceRunMonthlyBilling(t *testing.T) {
	ctx := context.Background()
	leaseRepo := newFakeLeaseRepo()
	invoiceRepo := newFakeInvoiceRepo()
	svc := NewInvoiceService(InvoiceServiceConfig{LeaseRepo: leaseRepo, InvoiceRepo: invoiceRepo})

	for i := 0; i < 3; i++ {
		newServiceLease(t, leaseRepo, 1000000, 5)
	}

	first, err := svc.RunMonthlyBilling(ctx, 2024, time.March)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Generated)
	assert.Equal(t, 0, first.Skipped)

	t.Run("rerun skips every lease already billed", func(t *testing.T) {
		second, err := svc.RunMonthlyBilling(ctx, 2024, time.March)
		require.NoError(t, err)
		assert.Equal(t, 0, second.Generated)
		assert.Equal(t, 3, second.Skipped)
		assert.Equal(t, 0, second.Failed)
	})

	t.Run("terminated lease drops out of later runs", func(t *testing.T) {
		leases, err := leaseRepo.FindActiveCoveringPeriod(ctx, 2024, time.April)
		require.NoError(t, err)
		require.NoError(t, leases[0].Terminate(time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)))

		result, err := svc.RunMonthlyBilling(ctx, 2024, time.April)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Generated)
	})
}

func TestInvoiceServiceRunOverdueSweep(t *testing.T) {
	ctx := context.Background()
	leaseRepo := newFakeLeaseRepo()
	invoiceRepo := newFakeInvoiceRepo()
	svc := NewInvoiceService(InvoiceServiceConfig{LeaseRepo: leaseRepo, InvoiceRepo: invoiceRepo})

	lease := newServiceLease(t, leaseRepo, 1000000, 5)
	invoice, err := svc.GenerateInvoice(ctx, lease.ID, 2024, time.March)
	require.NoError(t, err)
	require.Equal(t, billing.InvoiceStatusPending, invoice.Status)

	now := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	first, err := svc.RunOverdueSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Marked)

	stored, err := invoiceRepo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusOverdue, stored.Status)

	t.Run("second sweep is a no-op", func(t *testing.T) {
		second, err := svc.RunOverdueSweep(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 0, second.Marked)
	})
}
