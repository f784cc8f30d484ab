package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/shared"
	"github.com/murichu/rent-sub002/internal/domain/shared/valueobject"
)

// LeaseStatus represents the lifecycle status of a lease
type LeaseStatus string

const (
	LeaseStatusActive     LeaseStatus = "ACTIVE"
	LeaseStatusTerminated LeaseStatus = "TERMINATED"
)

// IsValid checks if the status is a valid LeaseStatus
func (s LeaseStatus) IsValid() bool {
	return s == LeaseStatusActive || s == LeaseStatusTerminated
}

// String returns the string representation of LeaseStatus
func (s LeaseStatus) String() string {
	return string(s)
}

// Lease represents a tenancy agreement aggregate root.
// It is the billing source for periodic rent invoices: rent amount and the
// payment day of month are fixed at signing and immutable once invoices
// reference the lease; only termination mutates it afterwards.
type Lease struct {
	shared.AgencyAggregateRoot
	PropertyID        uuid.UUID       `json:"property_id"`
	UnitID            uuid.UUID       `json:"unit_id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           *time.Time      `json:"end_date,omitempty"`
	RentAmount        decimal.Decimal `json:"rent_amount"`
	PaymentDayOfMonth int             `json:"payment_day_of_month"`
	Status            LeaseStatus     `json:"status"`
	TerminatedAt      *time.Time      `json:"terminated_at,omitempty"`
}

// NewLease creates a new lease
func NewLease(
	agencyID uuid.UUID,
	propertyID uuid.UUID,
	unitID uuid.UUID,
	tenantID uuid.UUID,
	startDate time.Time,
	rentAmount valueobject.Money,
	paymentDayOfMonth int,
) (*Lease, error) {
	if agencyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_AGENCY", "Agency ID cannot be empty")
	}
	if propertyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROPERTY", "Property ID cannot be empty")
	}
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if startDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_START_DATE", "Lease start date is required")
	}
	if !rentAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_RENT_AMOUNT", "Rent amount must be positive")
	}
	if paymentDayOfMonth < 1 || paymentDayOfMonth > 31 {
		return nil, ErrInvalidLeaseSchedule
	}

	l := &Lease{
		AgencyAggregateRoot: shared.NewAgencyAggregateRoot(agencyID),
		PropertyID:          propertyID,
		UnitID:              unitID,
		TenantID:            tenantID,
		StartDate:           startDate,
		RentAmount:          rentAmount.Amount(),
		PaymentDayOfMonth:   paymentDayOfMonth,
		Status:              LeaseStatusActive,
	}

	l.AddDomainEvent(NewLeaseCreatedEvent(l))

	return l, nil
}

// Terminate ends the lease at the given date. Invoices already issued are unaffected.
func (l *Lease) Terminate(endDate time.Time) error {
	if l.Status == LeaseStatusTerminated {
		return shared.NewDomainError("INVALID_STATE", "Lease is already terminated")
	}
	if endDate.Before(l.StartDate) {
		return shared.NewDomainError("INVALID_END_DATE", "Lease end date cannot precede the start date")
	}

	now := time.Now()
	l.Status = LeaseStatusTerminated
	l.EndDate = &endDate
	l.TerminatedAt = &now
	l.UpdatedAt = now
	l.IncrementVersion()

	l.AddDomainEvent(NewLeaseTerminatedEvent(l))

	return nil
}

// GetRentAmountMoney returns the rent as Money
func (l *Lease) GetRentAmountMoney() valueobject.Money {
	return valueobject.NewMoneyKES(l.RentAmount)
}

// IsActive returns true if the lease has not been terminated
func (l *Lease) IsActive() bool {
	return l.Status == LeaseStatusActive
}

// CoversPeriod returns true if the lease is billable for the given (year, month)
func (l *Lease) CoversPeriod(year int, month time.Month) bool {
	periodStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0).Add(-time.Nanosecond)

	if l.StartDate.After(periodEnd) {
		return false
	}
	if l.EndDate != nil && l.EndDate.Before(periodStart) {
		return false
	}
	return true
}

// DueDateFor computes the invoice due date for a billing period.
// The lease payment day is clamped to the last day of short months,
// e.g. day 31 in February becomes February 28/29.
func (l *Lease) DueDateFor(year int, month time.Month) time.Time {
	day := l.PaymentDayOfMonth
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// lastDayOfMonth returns the number of days in (year, month)
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
