package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/domain/shared/valueobject"
	"github.com/murichu/rent-sub002/internal/infrastructure/locking"
)

// PaymentService records payments and distributes them across invoices.
// All matching for a lease runs under that lease's mutex, so concurrent
// payments cannot interleave their read-match-write cycles; optimistic
// locking on the invoice rows backstops the mutex across processes.
type PaymentService struct {
	paymentRepo    billing.PaymentRepository
	invoiceRepo    billing.InvoiceRepository
	leaseRepo      billing.LeaseRepository
	matcher        *billing.PaymentMatcher
	leaseLocks     *locking.KeyedMutex
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// PaymentServiceConfig holds configuration for the payment service
type PaymentServiceConfig struct {
	PaymentRepo    billing.PaymentRepository
	InvoiceRepo    billing.InvoiceRepository
	LeaseRepo      billing.LeaseRepository
	Matcher        *billing.PaymentMatcher
	LeaseLocks     *locking.KeyedMutex
	EventPublisher shared.EventPublisher
	Logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(config PaymentServiceConfig) *PaymentService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	matcher := config.Matcher
	if matcher == nil {
		matcher = billing.NewPaymentMatcher()
	}
	locks := config.LeaseLocks
	if locks == nil {
		locks = locking.NewKeyedMutex()
	}
	return &PaymentService{
		paymentRepo:    config.PaymentRepo,
		invoiceRepo:    config.InvoiceRepo,
		leaseRepo:      config.LeaseRepo,
		matcher:        matcher,
		leaseLocks:     locks,
		eventPublisher: config.EventPublisher,
		logger:         logger,
	}
}

// RecordPaymentCommand describes an incoming payment to record
type RecordPaymentCommand struct {
	AgencyID        uuid.UUID
	LeaseID         uuid.UUID
	AmountCents     int64
	PaidAt          time.Time
	Method          billing.PaymentMethod
	ReferenceNumber string
	InvoiceID       *uuid.UUID // Optional explicit target
	GatewayTxnID    *uuid.UUID // Set when the payment settles a gateway charge
}

// RecordPaymentResult is the outcome of recording and matching a payment
type RecordPaymentResult struct {
	Payment *billing.Payment     `json:"payment"`
	Match   *billing.MatchResult `json:"match"`
}

// RecordPayment records a payment and matches it against the lease's open
// invoices, oldest first. Residual credit that no invoice can absorb stays
// on the payment; it is reported, never discarded.
func (s *PaymentService) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (*RecordPaymentResult, error) {
	payment, err := billing.NewPayment(
		cmd.AgencyID,
		cmd.LeaseID,
		valueobject.NewMoneyKESFromCents(cmd.AmountCents),
		cmd.PaidAt,
		cmd.Method,
		cmd.ReferenceNumber,
	)
	if err != nil {
		return nil, err
	}
	if cmd.InvoiceID != nil {
		payment.SetExplicitInvoice(*cmd.InvoiceID)
	}
	if cmd.GatewayTxnID != nil {
		payment.AttachGatewayTransaction(*cmd.GatewayTxnID)
	}

	return s.matchAndPersist(ctx, payment)
}

// ReversePayment creates a negative correction record for a prior payment
// and backs its amount out of the targeted invoice. The original payment is
// never mutated.
func (s *PaymentService) ReversePayment(ctx context.Context, paymentID uuid.UUID, amountCents int64, invoiceID uuid.UUID, reason string) (*RecordPaymentResult, error) {
	original, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if original == nil {
		return nil, shared.ErrNotFound
	}

	reversal, err := billing.NewReversalPayment(original, valueobject.NewMoneyKESFromCents(amountCents), invoiceID, reason)
	if err != nil {
		return nil, err
	}

	return s.matchAndPersist(ctx, reversal)
}

// matchAndPersist runs the matcher under the lease lock and persists the
// payment and every touched invoice
func (s *PaymentService) matchAndPersist(ctx context.Context, payment *billing.Payment) (*RecordPaymentResult, error) {
	unlock, err := s.leaseLocks.LockLease(ctx, payment.LeaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease lock: %w", err)
	}
	defer unlock()

	candidates, err := s.invoiceRepo.FindOpenByLease(ctx, payment.LeaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open invoices: %w", err)
	}
	if payment.IsReversal() && payment.InvoiceID != nil {
		// The target of a reversal may already be settled and absent from
		// the open set
		if target := s.loadTarget(ctx, candidates, *payment.InvoiceID); target != nil {
			candidates = append(candidates, target)
		}
	}

	now := time.Now()
	match, err := s.matcher.Apply(payment, candidates, now)
	if err != nil {
		return nil, err
	}

	for _, invoice := range match.UpdatedInvoices {
		if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				return nil, shared.ErrConcurrencyConflict
			}
			return nil, fmt.Errorf("failed to save invoice %s: %w", invoice.InvoiceNumber, err)
		}
		s.publishEvents(ctx, invoice.GetDomainEvents())
		invoice.ClearDomainEvents()
	}

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}
	s.publishEvents(ctx, payment.GetDomainEvents())
	payment.ClearDomainEvents()

	if match.UnappliedCredit.GreaterThan(decimal.Zero) {
		s.logger.Warn("Payment carries unapplied credit",
			zap.String("payment_id", payment.ID.String()),
			zap.String("lease_id", payment.LeaseID.String()),
			zap.String("unapplied", match.UnappliedCredit.String()))
	}

	s.logger.Info("Payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("lease_id", payment.LeaseID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.Int("invoices_touched", len(match.Applications)))

	result := &RecordPaymentResult{Payment: payment, Match: match}

	// A payment that matched nothing is persisted and kept as credit, but the
	// caller needs to know reconciliation is manual from here
	if !payment.IsReversal() && match.TotalApplied.IsZero() {
		return result, billing.ErrUnresolvedPayment
	}

	return result, nil
}

func (s *PaymentService) loadTarget(ctx context.Context, candidates []*billing.Invoice, invoiceID uuid.UUID) *billing.Invoice {
	for _, inv := range candidates {
		if inv.ID == invoiceID {
			return nil
		}
	}
	target, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil || target == nil {
		return nil
	}
	return target
}

// GetPayment retrieves a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, shared.ErrNotFound
	}
	return payment, nil
}

// ListLeasePayments retrieves payments for a lease with pagination
func (s *PaymentService) ListLeasePayments(ctx context.Context, leaseID uuid.UUID, filter shared.Filter) ([]*billing.Payment, int64, error) {
	return s.paymentRepo.FindByLease(ctx, leaseID, filter)
}

// ListUnappliedCredit retrieves payments with residual unmatched funds
func (s *PaymentService) ListUnappliedCredit(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*billing.Payment, int64, error) {
	return s.paymentRepo.FindWithUnappliedCredit(ctx, agencyID, filter)
}

func (s *PaymentService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
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
