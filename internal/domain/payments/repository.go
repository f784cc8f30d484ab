package payments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/murichu/rent-sub002/internal/domain/shared"
)

// GatewayTransactionRepository defines the interface for charge persistence
type GatewayTransactionRepository interface {
	// Save persists a new gateway transaction
	Save(ctx context.Context, txn *GatewayTransaction) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, txn *GatewayTransaction) error

	// FindByID retrieves a transaction by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*GatewayTransaction, error)

	// FindByGatewayReference retrieves a transaction by the provider's identifier
	FindByGatewayReference(ctx context.Context, channel GatewayChannel, reference string) (*GatewayTransaction, error)

	// FindByLease retrieves transactions for a lease ordered by initiated_at descending
	FindByLease(ctx context.Context, leaseID uuid.UUID, filter shared.Filter) ([]*GatewayTransaction, int64, error)

	// FindByAgency retrieves transactions for an agency with pagination
	FindByAgency(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*GatewayTransaction, int64, error)

	// FindUnresolved retrieves charges still awaiting a final provider answer:
	// INITIATED and PENDING rows older than the cutoff, plus TIMED_OUT rows.
	// The reconciliation sweep feeds on this.
	FindUnresolved(ctx context.Context, olderThan time.Time, limit int) ([]*GatewayTransaction, error)
}
