package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Save persists a new invoice. The (lease_id, period_year, period_month)
// unique index turns a concurrent double-issue into ErrDuplicateInvoice.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return billing.ErrDuplicateInvoice
		}
		return err
	}
	return nil
}

// SaveWithLock saves an invoice with optimistic locking (version check).
// Returns shared.ErrConcurrencyConflict if another transaction got there first.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID retrieves an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber retrieves an invoice by its invoice number within an agency
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, agencyID uuid.UUID, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("agency_id = ? AND invoice_number = ?", agencyID, invoiceNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLeaseAndPeriod retrieves the unique invoice for a lease billing period
func (r *GormInvoiceRepository) FindByLeaseAndPeriod(ctx context.Context, leaseID uuid.UUID, year int, month time.Month) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("lease_id = ? AND period_year = ? AND period_month = ?", leaseID, year, int(month)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLease retrieves all invoices for a lease ordered by period ascending
func (r *GormInvoiceRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("period_year ASC, period_month ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// FindOpenByLease retrieves non-settled invoices for a lease ordered by period
// ascending. This ordering is what makes payment matching oldest-first.
func (r *GormInvoiceRepository) FindOpenByLease(ctx context.Context, leaseID uuid.UUID) ([]*billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("lease_id = ? AND total_paid < amount", leaseID).
		Order("period_year ASC, period_month ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// FindDueBefore retrieves unsettled invoices whose due date precedes the cutoff
func (r *GormInvoiceRepository) FindDueBefore(ctx context.Context, cutoff time.Time, filter shared.Filter) ([]*billing.Invoice, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("due_at < ? AND total_paid < amount", cutoff).
		Order("due_at ASC")

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var invoiceModels []models.InvoiceModel
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// FindByAgency retrieves invoices for an agency with pagination
func (r *GormInvoiceRepository) FindByAgency(ctx context.Context, agencyID uuid.UUID, filter shared.Filter) ([]*billing.Invoice, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("agency_id = ?", agencyID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoiceModels []models.InvoiceModel
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("agency_id = ?", agencyID)
	if err := applyFilter(query, filter, InvoiceSortFields).Find(&invoiceModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainInvoices(invoiceModels), total, nil
}

// NextInvoiceNumber allocates the next invoice number for an agency year,
// formatted INV-YYYY-NNNNNN. The current maximum is read under a row lock;
// the unique index on (agency_id, invoice_number) backstops any race on the
// first number of a year.
func (r *GormInvoiceRepository) NextInvoiceNumber(ctx context.Context, agencyID uuid.UUID, year int) (string, error) {
	prefix := fmt.Sprintf("INV-%04d-", year)

	var numbers []string
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("agency_id = ? AND invoice_number LIKE ?", agencyID, prefix+"%").
		Order("invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &numbers).Error; err != nil {
		return "", err
	}

	seq := 0
	if len(numbers) > 0 {
		suffix := strings.TrimPrefix(numbers[0], prefix)
		parsed, err := strconv.Atoi(suffix)
		if err != nil {
			return "", fmt.Errorf("malformed invoice number %q: %w", numbers[0], err)
		}
		seq = parsed
	}

	return fmt.Sprintf("%s%06d", prefix, seq+1), nil
}

func toDomainInvoices(invoiceModels []models.InvoiceModel) []*billing.Invoice {
	invoices := make([]*billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}
	return invoices
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
