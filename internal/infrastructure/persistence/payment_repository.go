package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/infrastructure/persistence/models"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Save persists a new payment. The unique index on gateway_transaction_id
// makes a second settlement of the same gateway charge fail with
// shared.ErrAlreadyExists, which keeps settlement idempotent under retries.
func (r *GormPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock saves a payment with optimistic locking (version check).
// Returns shared.ErrConcurrencyConflict if another transaction got there first.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", payment.ID, payment.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID retrieves a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLease retrieves payments for a lease ordered by paid_at descending
func (r *GormPaymentRepository) FindByLease(ctx context.Context, leaseID uuid.UUID, filter shared.Filter) ([]*billing.Payment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("lease_id = ?", leaseID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("lease_id = ?", leaseID).
		Order("paid_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var paymentModels []models.PaymentModel
	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainPayments(paymentModels), total, nil
}

// FindByGatewayTransaction retrieves the payment settled from a gateway transaction
func (r *GormPaymentRepository) FindByGatewayTransaction(ctx context.Context, txnID uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("gateway_transaction_id = ?", txnID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByReference retrieves payments matching a reference number
func (r *GormPaymentRepository) FindByReference(ctx context.Context, agencyID uuid.UUID, reference string) ([]*billing.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("agency_id = ? AND reference_number = ?", agencyID, reference).
		Order("paid_at DESC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return toDomainPayments(paymentModels), nil
}

// FindWithUnappliedCredit retrieves payments whose amount exceeds the applied
// total. Reversal records are excluded; their credit never cascades.
func (r *GormPaymentRepository) FindWithUnappliedCredit(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*billing.Payment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("agency_id = ? AND amount > 0 AND applied_amount < amount", agencyID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("agency_id = ? AND amount > 0 AND applied_amount < amount", agencyID).
		Order("paid_at ASC")
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var paymentModels []models.PaymentModel
	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainPayments(paymentModels), total, nil
}

func toDomainPayments(paymentModels []models.PaymentModel) []*billing.Payment {
	payments := make([]*billing.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = paymentModels[i].ToDomain()
	}
	return payments
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
