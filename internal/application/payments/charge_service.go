package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appbilling "github.com/murichu/rent-sub002/internal/application/billing"
	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/payments"
	"github.com/murichu/rent-sub002/internal/domain/shared"
)

var (
	// ErrChannelNotEnabled is returned when no gateway serves the requested channel
	ErrChannelNotEnabled = errors.New("charge: channel not enabled")
	// ErrChargeNotResolvable is returned when resolving a charge that already
	// reached a final non-timeout state
	ErrChargeNotResolvable = errors.New("charge: already in a final state")
)

// ChargeService drives asynchronous mobile money charges from initiation to
// settlement. A charge record is persisted before the provider is called;
// results arrive by webhook, by polling, or by the reconciliation sweep, and
// every path converges on the same idempotent settlement so a completed
// charge yields exactly one payment no matter how many times its result is
// delivered.
type ChargeService struct {
	txnRepo        payments.GatewayTransactionRepository
	paymentRepo    billing.PaymentRepository
	paymentService *appbilling.PaymentService
	registry       payments.GatewayRegistry
	idempotency    shared.IdempotencyStore
	eventPublisher shared.EventPublisher
	logger         *zap.Logger

	resolveGroup singleflight.Group

	pollInterval time.Duration
	pollBudget   time.Duration
	staleAfter   time.Duration
}

// ChargeServiceConfig holds configuration for the charge service
type ChargeServiceConfig struct {
	TxnRepo        payments.GatewayTransactionRepository
	PaymentRepo    billing.PaymentRepository
	PaymentService *appbilling.PaymentService
	Registry       payments.GatewayRegistry
	Idempotency    shared.IdempotencyStore
	EventPublisher shared.EventPublisher
	Logger         *zap.Logger

	// PollInterval is the pause between provider status queries
	PollInterval time.Duration
	// PollBudget bounds how long Resolve keeps polling before timing out
	PollBudget time.Duration
	// StaleAfter is how old an in-flight charge must be before the
	// reconciliation sweep picks it up
	StaleAfter time.Duration
}

// NewChargeService creates a new ChargeService
func NewChargeService(config ChargeServiceConfig) *ChargeService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pollInterval := config.PollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	pollBudget := config.PollBudget
	if pollBudget <= 0 {
		pollBudget = 90 * time.Second
	}
	staleAfter := config.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	return &ChargeService{
		txnRepo:        config.TxnRepo,
		paymentRepo:    config.PaymentRepo,
		paymentService: config.PaymentService,
		registry:       config.Registry,
		idempotency:    config.Idempotency,
		eventPublisher: config.EventPublisher,
		logger:         logger,
		pollInterval:   pollInterval,
		pollBudget:     pollBudget,
		staleAfter:     staleAfter,
	}
}

// InitiateCharge persists an INITIATED record, then asks the provider to
// start collecting. The persist-first order means a crash mid-call leaves a
// row the reconciliation sweep can resolve instead of an orphaned provider
// charge.
func (s *ChargeService) InitiateCharge(ctx context.Context, req *payments.InitiateChargeRequest) (*payments.GatewayTransaction, error) {
	gateway, err := s.registry.GetGateway(req.Channel)
	if err != nil {
		return nil, ErrChannelNotEnabled
	}

	txn, err := payments.NewGatewayTransaction(req)
	if err != nil {
		return nil, err
	}
	if err := s.txnRepo.Save(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save gateway transaction: %w", err)
	}
	s.publishEvents(ctx, txn.GetDomainEvents())
	txn.ClearDomainEvents()

	resp, err := gateway.InitiateCharge(ctx, req)
	if err != nil {
		if failErr := txn.Fail(fmt.Sprintf("initiation failed: %v", err)); failErr == nil {
			if saveErr := s.txnRepo.SaveWithLock(ctx, txn); saveErr != nil {
				s.logger.Error("Failed to persist charge failure",
					zap.String("transaction_id", txn.ID.String()),
					zap.Error(saveErr))
			}
			s.publishEvents(ctx, txn.GetDomainEvents())
			txn.ClearDomainEvents()
		}
		return nil, fmt.Errorf("%w: %v", payments.ErrGatewayRequestFailed, err)
	}

	if err := txn.MarkAccepted(resp.GatewayReference, resp.MerchantReference); err != nil {
		return nil, err
	}
	if err := s.txnRepo.SaveWithLock(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save gateway transaction: %w", err)
	}

	s.logger.Info("Charge initiated",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("channel", txn.Channel.String()),
		zap.String("gateway_reference", txn.GatewayReference),
		zap.String("amount", txn.Amount.String()))

	return txn, nil
}

// Resolve drives a charge to a final answer by polling the provider within
// the configured budget. Concurrent resolves of the same charge collapse
// into one flight; callers all see the same outcome. If the budget expires
// without a final status the charge is marked TIMED_OUT and
// ErrGatewayTimeout is returned; the reconciliation sweep may still settle
// it later.
func (s *ChargeService) Resolve(ctx context.Context, txnID uuid.UUID) (*payments.GatewayTransaction, error) {
	v, err, _ := s.resolveGroup.Do(txnID.String(), func() (interface{}, error) {
		return s.resolve(ctx, txnID)
	})
	if v == nil {
		return nil, err
	}
	return v.(*payments.GatewayTransaction), err
}

func (s *ChargeService) resolve(ctx context.Context, txnID uuid.UUID) (*payments.GatewayTransaction, error) {
	txn, err := s.txnRepo.FindByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, payments.ErrTransactionNotFound
	}
	if txn.Status.IsTerminal() && txn.Status != payments.TransactionStatusTimedOut {
		// Nothing left to resolve; the stored outcome is the answer
		return txn, nil
	}

	gateway, err := s.registry.GetGateway(txn.Channel)
	if err != nil {
		return txn, ErrChannelNotEnabled
	}

	deadline := time.Now().Add(s.pollBudget)
	for {
		now := time.Now()
		txn.RecordPoll(now)

		resp, err := gateway.QueryCharge(ctx, &payments.QueryChargeRequest{
			GatewayReference:  txn.GatewayReference,
			MerchantReference: txn.MerchantReference,
		})
		if err != nil {
			s.logger.Warn("Charge status query failed",
				zap.String("transaction_id", txn.ID.String()),
				zap.Error(err))
		} else if resp.Status.IsFinal() {
			var completedAt time.Time
			if resp.CompletedAt != nil {
				completedAt = *resp.CompletedAt
			} else {
				completedAt = now
			}
			if err := txn.ApplyStatus(resp.Status, resp.Receipt, resp.Amount, resp.FailureReason, completedAt); err != nil {
				return txn, err
			}
			if err := s.txnRepo.SaveWithLock(ctx, txn); err != nil {
				return txn, fmt.Errorf("failed to save gateway transaction: %w", err)
			}
			s.publishEvents(ctx, txn.GetDomainEvents())
			txn.ClearDomainEvents()

			if txn.Status == payments.TransactionStatusCompleted {
				if err := s.settle(ctx, txn); err != nil {
					return txn, err
				}
			}
			return txn, nil
		}

		if time.Now().After(deadline) {
			if err := txn.TimeOut(time.Now()); err != nil {
				return txn, err
			}
			if err := s.txnRepo.SaveWithLock(ctx, txn); err != nil {
				return txn, fmt.Errorf("failed to save gateway transaction: %w", err)
			}
			s.publishEvents(ctx, txn.GetDomainEvents())
			txn.ClearDomainEvents()
			return txn, payments.ErrGatewayTimeout
		}

		select {
		case <-ctx.Done():
			return txn, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// HandleNotification processes an asynchronous provider result. Verification
// and parsing are delegated to the channel's adapter; the parsed status then
// flows through the same guarded transitions and idempotent settlement as
// polling.
func (s *ChargeService) HandleNotification(ctx context.Context, channel payments.GatewayChannel, payload []byte) (*payments.GatewayTransaction, error) {
	gateway, err := s.registry.GetGateway(channel)
	if err != nil {
		return nil, ErrChannelNotEnabled
	}

	notification, err := gateway.ParseNotification(ctx, payload)
	if err != nil {
		return nil, err
	}

	txn, err := s.txnRepo.FindByGatewayReference(ctx, channel, notification.GatewayReference)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		s.logger.Warn("Notification for unknown charge",
			zap.String("channel", channel.String()),
			zap.String("gateway_reference", notification.GatewayReference))
		return nil, payments.ErrTransactionNotFound
	}

	var completedAt time.Time
	if notification.CompletedAt != nil {
		completedAt = *notification.CompletedAt
	} else {
		completedAt = time.Now()
	}
	if err := txn.ApplyStatus(notification.Status, notification.Receipt, notification.Amount, notification.FailureReason, completedAt); err != nil {
		return nil, err
	}
	if err := s.txnRepo.SaveWithLock(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save gateway transaction: %w", err)
	}
	s.publishEvents(ctx, txn.GetDomainEvents())
	txn.ClearDomainEvents()

	if txn.Status == payments.TransactionStatusCompleted {
		if err := s.settle(ctx, txn); err != nil {
			return nil, err
		}
	}

	return txn, nil
}

// ReconcileResult summarizes one reconciliation sweep over stale charges
type ReconcileResult struct {
	Examined  int       `json:"examined"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	TimedOut  int       `json:"timed_out"`
	RanAt     time.Time `json:"ran_at"`
}

// ReconcileStale queries the provider once for every charge still awaiting a
// final answer: in-flight rows older than the stale threshold and TIMED_OUT
// rows. Late completions settle here, which is how a charge confirmed after
// the polling budget still produces its payment.
func (s *ChargeService) ReconcileStale(ctx context.Context, now time.Time) (*ReconcileResult, error) {
	stale, err := s.txnRepo.FindUnresolved(ctx, now.Add(-s.staleAfter), 200)
	if err != nil {
		return nil, fmt.Errorf("failed to load unresolved charges: %w", err)
	}

	result := &ReconcileResult{Examined: len(stale), RanAt: now}

	for _, txn := range stale {
		gateway, err := s.registry.GetGateway(txn.Channel)
		if err != nil {
			continue
		}

		resp, err := gateway.QueryCharge(ctx, &payments.QueryChargeRequest{
			GatewayReference:  txn.GatewayReference,
			MerchantReference: txn.MerchantReference,
		})
		if err != nil {
			s.logger.Warn("Reconciliation query failed",
				zap.String("transaction_id", txn.ID.String()),
				zap.Error(err))
			continue
		}

		if !resp.Status.IsFinal() {
			// Still pending at the provider; time out charges past the budget
			if txn.Status != payments.TransactionStatusTimedOut && now.Sub(txn.InitiatedAt) > s.pollBudget {
				if err := txn.TimeOut(now); err == nil {
					if err := s.txnRepo.SaveWithLock(ctx, txn); err == nil {
						result.TimedOut++
					}
					s.publishEvents(ctx, txn.GetDomainEvents())
					txn.ClearDomainEvents()
				}
			}
			continue
		}

		var completedAt time.Time
		if resp.CompletedAt != nil {
			completedAt = *resp.CompletedAt
		} else {
			completedAt = now
		}
		if err := txn.ApplyStatus(resp.Status, resp.Receipt, resp.Amount, resp.FailureReason, completedAt); err != nil {
			s.logger.Warn("Reconciliation transition rejected",
				zap.String("transaction_id", txn.ID.String()),
				zap.String("status", txn.Status.String()),
				zap.Error(err))
			continue
		}
		if err := s.txnRepo.SaveWithLock(ctx, txn); err != nil {
			continue
		}
		s.publishEvents(ctx, txn.GetDomainEvents())
		txn.ClearDomainEvents()

		switch txn.Status {
		case payments.TransactionStatusCompleted:
			if err := s.settle(ctx, txn); err != nil {
				s.logger.Error("Failed to settle reconciled charge",
					zap.String("transaction_id", txn.ID.String()),
					zap.Error(err))
				continue
			}
			result.Completed++
		case payments.TransactionStatusFailed, payments.TransactionStatusCancelled:
			result.Failed++
		}
	}

	return result, nil
}

// settle turns a COMPLETED charge into exactly one payment and matches it
// against the lease's invoices. Three guards enforce the exactly-once
// property: the idempotency store short-circuits repeats, the repository
// lookup catches anything the store lost, and the unique index on
// payments.gateway_transaction_id backstops both.
func (s *ChargeService) settle(ctx context.Context, txn *payments.GatewayTransaction) error {
	key := fmt.Sprintf("settlement:%s", txn.ID)
	if s.idempotency != nil {
		fresh, err := s.idempotency.MarkProcessed(ctx, key, 24*time.Hour)
		if err != nil {
			s.logger.Warn("Idempotency store unavailable, falling back to repository check",
				zap.Error(err))
		} else if !fresh {
			return nil
		}
	}

	existing, err := s.paymentRepo.FindByGatewayTransaction(ctx, txn.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("failed to check existing settlement: %w", err)
	}
	if existing != nil {
		return nil
	}

	txnID := txn.ID
	_, err = s.paymentService.RecordPayment(ctx, appbilling.RecordPaymentCommand{
		AgencyID:        txn.AgencyID,
		LeaseID:         txn.LeaseID,
		AmountCents:     txn.GetAmountMoney().Cents(),
		PaidAt:          settledAt(txn),
		Method:          methodForChannel(txn.Channel),
		ReferenceNumber: txn.Receipt,
		InvoiceID:       txn.InvoiceID,
		GatewayTxnID:    &txnID,
	})
	if err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil
		}
		if errors.Is(err, billing.ErrUnresolvedPayment) {
			// The funds landed as unapplied credit; the charge itself settled
			s.logger.Warn("Settlement matched no invoice, held as credit",
				zap.String("transaction_id", txn.ID.String()),
				zap.String("receipt", txn.Receipt))
		} else {
			return fmt.Errorf("failed to record settlement payment: %w", err)
		}
	}

	s.logger.Info("Charge settled",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("receipt", txn.Receipt),
		zap.String("amount", txn.Amount.String()))

	return nil
}

// GetTransaction retrieves a gateway transaction by ID
func (s *ChargeService) GetTransaction(ctx context.Context, id uuid.UUID) (*payments.GatewayTransaction, error) {
	txn, err := s.txnRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, payments.ErrTransactionNotFound
	}
	return txn, nil
}

// ListTransactions retrieves gateway transactions for an agency
func (s *ChargeService) ListTransactions(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*payments.GatewayTransaction, int64, error) {
	return s.txnRepo.FindByAgency(ctx, agencyID, filter)
}

func settledAt(txn *payments.GatewayTransaction) time.Time {
	if txn.CompletedAt != nil {
		return *txn.CompletedAt
	}
	return time.Now()
}

func methodForChannel(channel payments.GatewayChannel) billing.PaymentMethod {
	switch channel {
	case payments.GatewayChannelMpesaSTK:
		return billing.PaymentMethodMpesaC2B
	case payments.GatewayChannelPesapal:
		return billing.PaymentMethodPesapal
	default:
		return billing.PaymentMethodManual
	}
}

func (s *ChargeService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
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
