package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/shared"
)

// InvoiceService generates and maintains periodic rent invoices
type InvoiceService struct {
	leaseRepo      billing.LeaseRepository
	invoiceRepo    billing.InvoiceRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// InvoiceServiceConfig holds configuration for the invoice service
type InvoiceServiceConfig struct {
	LeaseRepo      billing.LeaseRepository
	InvoiceRepo    billing.InvoiceRepository
	EventPublisher shared.EventPublisher
	Logger         *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(config InvoiceServiceConfig) *InvoiceService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		leaseRepo:      config.LeaseRepo,
		invoiceRepo:    config.InvoiceRepo,
		eventPublisher: config.EventPublisher,
		logger:         logger,
	}
}

// GenerateInvoice creates the invoice for one lease billing period.
// Exactly one invoice may exist per (lease, year, month): a second call for
// the same period returns ErrDuplicateInvoice and leaves the existing
// invoice untouched.
func (s *InvoiceService) GenerateInvoice(ctx context.Context, leaseID uuid.UUID, year int, month time.Month) (*billing.Invoice, error) {
	lease, err := s.leaseRepo.FindByID(ctx, leaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lease: %w", err)
	}
	if lease == nil {
		return nil, shared.ErrNotFound
	}

	existing, err := s.invoiceRepo.FindByLeaseAndPeriod(ctx, leaseID, year, month)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing invoice: %w", err)
	}
	if existing != nil {
		return nil, billing.ErrDuplicateInvoice
	}

	number, err := s.invoiceRepo.NextInvoiceNumber(ctx, lease.AgencyID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate invoice number: %w", err)
	}

	invoice, err := billing.NewInvoice(lease, number, year, month, time.Now())
	if err != nil {
		return nil, err
	}

	// The unique index on (lease_id, period_year, period_month) backstops the
	// pre-check against concurrent generation.
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		if errors.Is(err, billing.ErrDuplicateInvoice) {
			return nil, billing.ErrDuplicateInvoice
		}
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice.GetDomainEvents())
	invoice.ClearDomainEvents()

	s.logger.Info("Invoice generated",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("lease_id", leaseID.String()),
		zap.String("period", invoice.Period()),
		zap.String("amount", invoice.Amount.String()))

	return invoice, nil
}

// BillingRunResult summarizes one monthly billing run
type BillingRunResult struct {
	Period    string    `json:"period"`
	Generated int       `json:"generated"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	RanAt     time.Time `json:"ran_at"`
}

// RunMonthlyBilling generates invoices for every active lease covering the
// period. Re-running the same period is safe: leases already billed are
// counted as skipped, never double-billed.
func (s *InvoiceService) RunMonthlyBilling(ctx context.Context, year int, month time.Month) (*BillingRunResult, error) {
	leases, err := s.leaseRepo.FindActiveCoveringPeriod(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to load billable leases: %w", err)
	}

	result := &BillingRunResult{
		Period: fmt.Sprintf("%04d-%02d", year, month),
		RanAt:  time.Now(),
	}

	for _, lease := range leases {
		_, err := s.GenerateInvoice(ctx, lease.ID, year, month)
		switch {
		case err == nil:
			result.Generated++
		case errors.Is(err, billing.ErrDuplicateInvoice):
			result.Skipped++
		default:
			result.Failed++
			s.logger.Error("Failed to generate invoice in billing run",
				zap.String("lease_id", lease.ID.String()),
				zap.String("period", result.Period),
				zap.Error(err))
		}
	}

	s.logger.Info("Monthly billing run finished",
		zap.String("period", result.Period),
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))

	return result, nil
}

// OverdueSweepResult summarizes one overdue status sweep
type OverdueSweepResult struct {
	Examined int       `json:"examined"`
	Marked   int       `json:"marked"`
	RanAt    time.Time `json:"ran_at"`
}

// RunOverdueSweep recomputes the status of unsettled invoices past their due
// date. Status derivation is pure, so running the sweep twice in a row is a
// no-op the second time.
func (s *InvoiceService) RunOverdueSweep(ctx context.Context, now time.Time) (*OverdueSweepResult, error) {
	invoices, err := s.invoiceRepo.FindDueBefore(ctx, now, shared.DefaultFilter())
	if err != nil {
		return nil, fmt.Errorf("failed to load due invoices: %w", err)
	}

	result := &OverdueSweepResult{Examined: len(invoices), RanAt: now}

	for _, invoice := range invoices {
		previous := invoice.Status
		invoice.RecomputeStatus(now)
		if invoice.Status == previous {
			continue
		}

		if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
			s.logger.Error("Failed to persist overdue status",
				zap.String("invoice_number", invoice.InvoiceNumber),
				zap.Error(err))
			continue
		}
		result.Marked++

		if invoice.Status == billing.InvoiceStatusOverdue {
			s.publishEvents(ctx, []shared.DomainEvent{billing.NewInvoiceOverdueEvent(invoice)})
		}
	}

	return result, nil
}

// GetInvoice retrieves an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.ErrNotFound
	}
	return invoice, nil
}

// ListInvoices retrieves invoices for an agency with pagination
func (s *InvoiceService) ListInvoices(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*billing.Invoice, int64, error) {
	return s.invoiceRepo.FindByAgency(ctx, agencyID, filter)
}

// ListLeaseInvoices retrieves the full invoice history of a lease
func (s *InvoiceService) ListLeaseInvoices(ctx context.Context, leaseID uuid.UUID) ([]*billing.Invoice, error) {
	return s.invoiceRepo.FindByLease(ctx, leaseID)
}

func (s *InvoiceService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range events {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
}
