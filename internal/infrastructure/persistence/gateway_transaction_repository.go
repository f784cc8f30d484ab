package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/murichu/rent-sub002/internal/domain/payments"
	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/infrastructure/persistence/models"
)

// GormGatewayTransactionRepository implements GatewayTransactionRepository using GORM
type GormGatewayTransactionRepository struct {
	db *gorm.DB
}

// NewGormGatewayTransactionRepository creates a new GormGatewayTransactionRepository
func NewGormGatewayTransactionRepository(db *gorm.DB) *GormGatewayTransactionRepository {
	return &GormGatewayTransactionRepository{db: db}
}

// Save persists a new gateway transaction
func (r *GormGatewayTransactionRepository) Save(ctx context.Context, txn *payments.GatewayTransaction) error {
	model := models.GatewayTransactionModelFromDomain(txn)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves a transaction with optimistic locking (version check).
// The webhook handler and the polling loop can race on the same charge; the
// loser gets shared.ErrConcurrencyConflict and must re-read.
func (r *GormGatewayTransactionRepository) SaveWithLock(ctx context.Context, txn *payments.GatewayTransaction) error {
	model := models.GatewayTransactionModelFromDomain(txn)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", txn.ID, txn.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID retrieves a transaction by its ID
func (r *GormGatewayTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*payments.GatewayTransaction, error) {
	var model models.GatewayTransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByGatewayReference retrieves a transaction by the provider's identifier
func (r *GormGatewayTransactionRepository) FindByGatewayReference(ctx context.Context, channel payments.GatewayChannel, reference string) (*payments.GatewayTransaction, error) {
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Gateway reference cannot be empty")
	}
	var model models.GatewayTransactionModel
	if err := r.db.WithContext(ctx).
		Where("channel = ? AND gateway_reference = ?", channel, reference).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLease retrieves transactions for a lease ordered by initiated_at descending
func (r *GormGatewayTransactionRepository) FindByLease(ctx context.Context, leaseID uuid.UUID, filter shared.Filter) ([]*payments.GatewayTransaction, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.GatewayTransactionModel{}).
		Where("lease_id = ?", leaseID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&models.GatewayTransactionModel{}).
		Where("lease_id = ?", leaseID).
		Order("initiated_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var txnModels []models.GatewayTransactionModel
	if err := query.Find(&txnModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainTransactions(txnModels), total, nil
}

// FindByAgency retrieves transactions for an agency with pagination
func (r *GormGatewayTransactionRepository) FindByAgency(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*payments.GatewayTransaction, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.GatewayTransactionModel{}).
		Where("agency_id = ?", agencyID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txnModels []models.GatewayTransactionModel
	query := r.db.WithContext(ctx).Model(&models.GatewayTransactionModel{}).Where("agency_id = ?", agencyID)
	if err := applyFilter(query, filter, GatewayTransactionSortFields).Find(&txnModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainTransactions(txnModels), total, nil
}

// FindUnresolved retrieves charges still awaiting a final provider answer:
// INITIATED and PENDING rows older than the cutoff, plus every TIMED_OUT row.
// The reconciliation sweep feeds on this, oldest first.
func (r *GormGatewayTransactionRepository) FindUnresolved(ctx context.Context, olderThan time.Time, limit int) ([]*payments.GatewayTransaction, error) {
	var txnModels []models.GatewayTransactionModel
	if err := r.db.WithContext(ctx).
		Where("(status IN ? AND initiated_at < ?) OR status = ?",
			[]payments.TransactionStatus{payments.TransactionStatusInitiated, payments.TransactionStatusPending},
			olderThan,
			payments.TransactionStatusTimedOut).
		Order("initiated_at ASC").
		Limit(limit).
		Find(&txnModels).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(txnModels), nil
}

func toDomainTransactions(txnModels []models.GatewayTransactionModel) []*payments.GatewayTransaction {
	txns := make([]*payments.GatewayTransaction, len(txnModels))
	for i := range txnModels {
		txns[i] = txnModels[i].ToDomain()
	}
	return txns
}

// Ensure GormGatewayTransactionRepository implements GatewayTransactionRepository
var _ payments.GatewayTransactionRepository = (*GormGatewayTransactionRepository)(nil)
