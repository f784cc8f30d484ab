package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/domain/shared/valueobject"
)

// LeaseService manages lease lifecycle
type LeaseService struct {
	leaseRepo      billing.LeaseRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// LeaseServiceConfig holds configuration for the lease service
type LeaseServiceConfig struct {
	LeaseRepo      billing.LeaseRepository
	EventPublisher shared.EventPublisher
	Logger         *zap.Logger
}

// NewLeaseService creates a new LeaseService
func NewLeaseService(config LeaseServiceConfig) *LeaseService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaseService{
		leaseRepo:      config.LeaseRepo,
		eventPublisher: config.EventPublisher,
		logger:         logger,
	}
}

// CreateLeaseCommand describes a new tenancy agreement
type CreateLeaseCommand struct {
	AgencyID          uuid.UUID
	PropertyID        uuid.UUID
	UnitID            uuid.UUID
	TenantID          uuid.UUID
	StartDate         time.Time
	RentAmountCents   int64
	PaymentDayOfMonth int
}

// CreateLease registers a new lease
func (s *LeaseService) CreateLease(ctx context.Context, cmd CreateLeaseCommand) (*billing.Lease, error) {
	lease, err := billing.NewLease(
		cmd.AgencyID,
		cmd.PropertyID,
		cmd.UnitID,
		cmd.TenantID,
		cmd.StartDate,
		valueobject.NewMoneyKESFromCents(cmd.RentAmountCents),
		cmd.PaymentDayOfMonth,
	)
	if err != nil {
		return nil, err
	}

	if err := s.leaseRepo.Save(ctx, lease); err != nil {
		return nil, fmt.Errorf("failed to save lease: %w", err)
	}

	s.publishEvents(ctx, lease.GetDomainEvents())
	lease.ClearDomainEvents()

	s.logger.Info("Lease created",
		zap.String("lease_id", lease.ID.String()),
		zap.String("tenant_id", lease.TenantID.String()),
		zap.String("rent", lease.RentAmount.String()),
		zap.Int("payment_day", lease.PaymentDayOfMonth))

	return lease, nil
}

// TerminateLease ends a lease at the given date. Invoices already issued
// stay collectible.
func (s *LeaseService) TerminateLease(ctx context.Context, leaseID uuid.UUID, endDate time.Time) (*billing.Lease, error) {
	lease, err := s.leaseRepo.FindByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, shared.ErrNotFound
	}

	if err := lease.Terminate(endDate); err != nil {
		return nil, err
	}
	if err := s.leaseRepo.SaveWithLock(ctx, lease); err != nil {
		return nil, fmt.Errorf("failed to save lease: %w", err)
	}

	s.publishEvents(ctx, lease.GetDomainEvents())
	lease.ClearDomainEvents()

	return lease, nil
}

// GetLease retrieves a lease by ID
func (s *LeaseService) GetLease(ctx context.Context, id uuid.UUID) (*billing.Lease, error) {
	lease, err := s.leaseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, shared.ErrNotFound
	}
	return lease, nil
}

// ListLeases retrieves leases for an agency with pagination
func (s *LeaseService) ListLeases(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*billing.Lease, int64, error) {
	return s.leaseRepo.FindByAgency(ctx, agencyID, filter)
}

func (s *LeaseService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
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
