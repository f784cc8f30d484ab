package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/infrastructure/persistence/models"
)

// GormLeaseRepository implements LeaseRepository using GORM
type GormLeaseRepository struct {
	db *gorm.DB
}

// NewGormLeaseRepository creates a new GormLeaseRepository
func NewGormLeaseRepository(db *gorm.DB) *GormLeaseRepository {
	return &GormLeaseRepository{db: db}
}

// Save persists a new lease
func (r *GormLeaseRepository) Save(ctx context.Context, lease *billing.Lease) error {
	model := models.LeaseModelFromDomain(lease)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves a lease with optimistic locking (version check).
// Returns shared.ErrConcurrencyConflict if another transaction got there first.
func (r *GormLeaseRepository) SaveWithLock(ctx context.Context, lease *billing.Lease) error {
	model := models.LeaseModelFromDomain(lease)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", lease.ID, lease.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID retrieves a lease by its ID
func (r *GormLeaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Lease, error) {
	var model models.LeaseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAgency retrieves leases for an agency with pagination
func (r *GormLeaseRepository) FindByAgency(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*billing.Lease, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.LeaseModel{}).
		Where("agency_id = ?", agencyID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var leaseModels []models.LeaseModel
	query := r.db.WithContext(ctx).Model(&models.LeaseModel{}).Where("agency_id = ?", agencyID)
	if err := applyFilter(query, filter, LeaseSortFields).Find(&leaseModels).Error; err != nil {
		return nil, 0, err
	}

	leases := make([]*billing.Lease, len(leaseModels))
	for i := range leaseModels {
		leases[i] = leaseModels[i].ToDomain()
	}
	return leases, total, nil
}

// FindActiveByAgency retrieves all active leases for an agency
func (r *GormLeaseRepository) FindActiveByAgency(ctx context.Context, agencyID uuid.UUID) ([]*billing.Lease, error) {
	var leaseModels []models.LeaseModel
	if err := r.db.WithContext(ctx).
		Where("agency_id = ? AND status = ?", agencyID, billing.LeaseStatusActive).
		Order("start_date ASC").
		Find(&leaseModels).Error; err != nil {
		return nil, err
	}

	leases := make([]*billing.Lease, len(leaseModels))
	for i := range leaseModels {
		leases[i] = leaseModels[i].ToDomain()
	}
	return leases, nil
}

// FindActiveCoveringPeriod retrieves active leases billable for (year, month)
// across all agencies. This feeds the monthly invoice run.
func (r *GormLeaseRepository) FindActiveCoveringPeriod(ctx context.Context, year int, month time.Month) ([]*billing.Lease, error) {
	periodStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0).Add(-time.Nanosecond)

	var leaseModels []models.LeaseModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)",
			billing.LeaseStatusActive, periodEnd, periodStart).
		Order("agency_id ASC, start_date ASC").
		Find(&leaseModels).Error; err != nil {
		return nil, err
	}

	leases := make([]*billing.Lease, len(leaseModels))
	for i := range leaseModels {
		leases[i] = leaseModels[i].ToDomain()
	}
	return leases, nil
}

// applyFilter applies pagination and ordering shared by the list queries.
// The sort field is checked against the caller's whitelist so user input
// never reaches the ORDER BY clause unescaped.
func applyFilter(query *gorm.DB, filter shared.Filter, allowedFields map[string]bool) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, allowedFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// Ensure GormLeaseRepository implements LeaseRepository
var _ billing.LeaseRepository = (*GormLeaseRepository)(nil)
