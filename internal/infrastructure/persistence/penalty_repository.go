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

// GormPenaltyRepository implements PenaltyRepository using GORM
type GormPenaltyRepository struct {
	db *gorm.DB
}

// NewGormPenaltyRepository creates a new GormPenaltyRepository
func NewGormPenaltyRepository(db *gorm.DB) *GormPenaltyRepository {
	return &GormPenaltyRepository{db: db}
}

// Save persists a new penalty. The partial unique index on invoice_id
// rejects a second live assessment against the same invoice with
// shared.ErrAlreadyExists; waived rows do not count.
func (r *GormPenaltyRepository) Save(ctx context.Context, penalty *billing.Penalty) error {
	model := models.PenaltyModelFromDomain(penalty)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock saves a penalty with optimistic locking (version check).
// Returns shared.ErrConcurrencyConflict if another transaction got there first.
func (r *GormPenaltyRepository) SaveWithLock(ctx context.Context, penalty *billing.Penalty) error {
	model := models.PenaltyModelFromDomain(penalty)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", penalty.ID, penalty.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID retrieves a penalty by its ID
func (r *GormPenaltyRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Penalty, error) {
	var model models.PenaltyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice retrieves the latest penalty assessed against an invoice,
// if any. A waived penalty may coexist with a later re-assessment; the most
// recent one is the live record.
func (r *GormPenaltyRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.Penalty, error) {
	var model models.PenaltyModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("assessed_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsForInvoice reports whether a non-waived penalty stands against the
// invoice. Waived penalties leave the invoice eligible for re-assessment.
func (r *GormPenaltyRepository) ExistsForInvoice(ctx context.Context, invoiceID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PenaltyModel{}).
		Where("invoice_id = ? AND status <> ?", invoiceID, billing.PenaltyStatusWaived).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByLease retrieves penalties for a lease
func (r *GormPenaltyRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*billing.Penalty, error) {
	var penaltyModels []models.PenaltyModel
	if err := r.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("assessed_at DESC").
		Find(&penaltyModels).Error; err != nil {
		return nil, err
	}
	return toDomainPenalties(penaltyModels), nil
}

// FindByAgency retrieves penalties for an agency with pagination
func (r *GormPenaltyRepository) FindByAgency(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*billing.Penalty, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.PenaltyModel{}).
		Where("agency_id = ?", agencyID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var penaltyModels []models.PenaltyModel
	query := r.db.WithContext(ctx).Model(&models.PenaltyModel{}).Where("agency_id = ?", agencyID)
	if err := applyFilter(query, filter, PenaltySortFields).Find(&penaltyModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainPenalties(penaltyModels), total, nil
}

func toDomainPenalties(penaltyModels []models.PenaltyModel) []*billing.Penalty {
	penalties := make([]*billing.Penalty, len(penaltyModels))
	for i := range penaltyModels {
		penalties[i] = penaltyModels[i].ToDomain()
	}
	return penalties
}

// Ensure GormPenaltyRepository implements PenaltyRepository
var _ billing.PenaltyRepository = (*GormPenaltyRepository)(nil)
