package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/shared"
)

// Lease event types
const (
	EventTypeLeaseCreated    = "billing.lease.created"
	EventTypeLeaseTerminated = "billing.lease.terminated"
)

// LeaseCreatedEvent is published when a new lease is signed
type LeaseCreatedEvent struct {
	shared.BaseDomainEvent
	PropertyID        uuid.UUID       `json:"property_id"`
	UnitID            uuid.UUID       `json:"unit_id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	RentAmount        decimal.Decimal `json:"rent_amount"`
	PaymentDayOfMonth int             `json:"payment_day_of_month"`
	StartDate         time.Time       `json:"start_date"`
}

// NewLeaseCreatedEvent creates a new lease created event
func NewLeaseCreatedEvent(lease *Lease) *LeaseCreatedEvent {
	return &LeaseCreatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeLeaseCreated, "Lease", lease.ID, lease.AgencyID),
		PropertyID:        lease.PropertyID,
		UnitID:            lease.UnitID,
		TenantID:          lease.TenantID,
		RentAmount:        lease.RentAmount,
		PaymentDayOfMonth: lease.PaymentDayOfMonth,
		StartDate:         lease.StartDate,
	}
}

// LeaseTerminatedEvent is published when a lease is ended
type LeaseTerminatedEvent struct {
	shared.BaseDomainEvent
	TenantID uuid.UUID  `json:"tenant_id"`
	EndDate  *time.Time `json:"end_date,omitempty"`
}

// NewLeaseTerminatedEvent creates a new lease terminated event
func NewLeaseTerminatedEvent(lease *Lease) *LeaseTerminatedEvent {
	return &LeaseTerminatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeaseTerminated, "Lease", lease.ID, lease.AgencyID),
		TenantID:        lease.TenantID,
		EndDate:         lease.EndDate,
	}
}
