package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/shared"
)

// PenaltyService assesses late fees against overdue invoices
type PenaltyService struct {
	invoiceRepo    billing.InvoiceRepository
	penaltyRepo    billing.PenaltyRepository
	policy         billing.PenaltyPolicy
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// PenaltyServiceConfig holds configuration for the penalty service
type PenaltyServiceConfig struct {
	InvoiceRepo    billing.InvoiceRepository
	PenaltyRepo    billing.PenaltyRepository
	Policy         billing.PenaltyPolicy
	EventPublisher shared.EventPublisher
	Logger         *zap.Logger
}

// NewPenaltyService creates a new PenaltyService
func NewPenaltyService(config PenaltyServiceConfig) *PenaltyService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PenaltyService{
		invoiceRepo:    config.InvoiceRepo,
		penaltyRepo:    config.PenaltyRepo,
		policy:         config.Policy,
		eventPublisher: config.EventPublisher,
		logger:         logger,
	}
}

// PenaltySweepResult summarizes one penalty sweep
type PenaltySweepResult struct {
	Examined int       `json:"examined"`
	Assessed int       `json:"assessed"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	RanAt    time.Time `json:"ran_at"`
}

// RunPenaltySweep assesses the policy's late fee against every unsettled
// invoice past its grace window. The sweep is idempotent: an invoice already
// carrying a non-waived penalty is skipped, so running it daily never stacks
// fees. A waived penalty does not shield the invoice; it stays eligible.
func (s *PenaltyService) RunPenaltySweep(ctx context.Context, now time.Time) (*PenaltySweepResult, error) {
	cutoff := now.AddDate(0, 0, -s.policy.GraceDays)
	invoices, err := s.invoiceRepo.FindDueBefore(ctx, cutoff, shared.DefaultFilter())
	if err != nil {
		return nil, fmt.Errorf("failed to load overdue invoices: %w", err)
	}

	result := &PenaltySweepResult{Examined: len(invoices), RanAt: now}

	for _, invoice := range invoices {
		exists, err := s.penaltyRepo.ExistsForInvoice(ctx, invoice.ID)
		if err != nil {
			result.Failed++
			s.logger.Error("Failed to check existing penalty",
				zap.String("invoice_number", invoice.InvoiceNumber),
				zap.Error(err))
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		penalty, err := billing.NewPenalty(invoice, s.policy, now)
		if err != nil {
			// Not penalizable, e.g. settled between query and assessment
			result.Skipped++
			continue
		}

		if err := s.penaltyRepo.Save(ctx, penalty); err != nil {
			result.Failed++
			s.logger.Error("Failed to save penalty",
				zap.String("invoice_number", invoice.InvoiceNumber),
				zap.Error(err))
			continue
		}
		result.Assessed++

		s.publishEvents(ctx, penalty.GetDomainEvents())
		penalty.ClearDomainEvents()
	}

	s.logger.Info("Penalty sweep finished",
		zap.Int("examined", result.Examined),
		zap.Int("assessed", result.Assessed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))

	return result, nil
}

// WaivePenalty cancels a penalty without deleting the record
func (s *PenaltyService) WaivePenalty(ctx context.Context, penaltyID uuid.UUID, note string) (*billing.Penalty, error) {
	penalty, err := s.penaltyRepo.FindByID(ctx, penaltyID)
	if err != nil {
		return nil, err
	}
	if penalty == nil {
		return nil, shared.ErrNotFound
	}

	if err := penalty.Waive(note); err != nil {
		return nil, err
	}
	if err := s.penaltyRepo.SaveWithLock(ctx, penalty); err != nil {
		return nil, fmt.Errorf("failed to save penalty: %w", err)
	}

	s.publishEvents(ctx, penalty.GetDomainEvents())
	penalty.ClearDomainEvents()

	return penalty, nil
}

// MarkPenaltyPaid settles a penalty, recording the payment reference when known
func (s *PenaltyService) MarkPenaltyPaid(ctx context.Context, penaltyID uuid.UUID, reference string) (*billing.Penalty, error) {
	penalty, err := s.penaltyRepo.FindByID(ctx, penaltyID)
	if err != nil {
		return nil, err
	}
	if penalty == nil {
		return nil, shared.ErrNotFound
	}

	if err := penalty.MarkPaid(reference); err != nil {
		return nil, err
	}
	if err := s.penaltyRepo.SaveWithLock(ctx, penalty); err != nil {
		return nil, fmt.Errorf("failed to save penalty: %w", err)
	}

	s.publishEvents(ctx, penalty.GetDomainEvents())
	penalty.ClearDomainEvents()

	return penalty, nil
}

// GetPenalty retrieves a penalty by ID
func (s *PenaltyService) GetPenalty(ctx context.Context, id uuid.UUID) (*billing.Penalty, error) {
	penalty, err := s.penaltyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if penalty == nil {
		return nil, shared.ErrNotFound
	}
	return penalty, nil
}

// ListPenalties retrieves penalties for an agency with pagination
func (s *PenaltyService) ListPenalties(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*billing.Penalty, int64, error) {
	return s.penaltyRepo.FindByAgency(ctx, agencyID, filter)
}

func (s *PenaltyService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
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
