package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/billing"
)

// LeaseModel is the persistence model for the Lease aggregate root.
type LeaseModel struct {
	AgencyAggregateModel
	PropertyID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	UnitID            uuid.UUID           `gorm:"type:uuid;not null;index"`
	TenantID          uuid.UUID           `gorm:"type:uuid;not null;index"`
	StartDate         time.Time           `gorm:"not null;index"`
	EndDate           *time.Time          `gorm:"index"`
	RentAmount        decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	PaymentDayOfMonth int                 `gorm:"not null"`
	Status            billing.LeaseStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	TerminatedAt      *time.Time
}

// TableName returns the table name for GORM
func (LeaseModel) TableName() string {
	return "leases"
}

// ToDomain converts the persistence model to a domain Lease entity.
func (m *LeaseModel) ToDomain() *billing.Lease {
	l := &billing.Lease{
		PropertyID:        m.PropertyID,
		UnitID:            m.UnitID,
		TenantID:          m.TenantID,
		StartDate:         m.StartDate,
		EndDate:           m.EndDate,
		RentAmount:        m.RentAmount,
		PaymentDayOfMonth: m.PaymentDayOfMonth,
		Status:            m.Status,
		TerminatedAt:      m.TerminatedAt,
	}
	m.PopulateAgencyAggregateRoot(&l.AgencyAggregateRoot)
	return l
}

// FromDomain populates the persistence model from a domain Lease entity.
func (m *LeaseModel) FromDomain(l *billing.Lease) {
	m.FromDomainAgencyAggregateRoot(l.AgencyAggregateRoot)
	m.PropertyID = l.PropertyID
	m.UnitID = l.UnitID
	m.TenantID = l.TenantID
	m.StartDate = l.StartDate
	m.EndDate = l.EndDate
	m.RentAmount = l.RentAmount
	m.PaymentDayOfMonth = l.PaymentDayOfMonth
	m.Status = l.Status
	m.TerminatedAt = l.TerminatedAt
}

// LeaseModelFromDomain creates a new persistence model from a domain Lease.
func LeaseModelFromDomain(l *billing.Lease) *LeaseModel {
	m := &LeaseModel{}
	m.FromDomain(l)
	return m
}

// InvoiceModel is the persistence model for the Invoice aggregate root.
// The composite unique index on (lease_id, period_year, period_month) enforces
// one invoice per lease billing period at the database level.
type InvoiceModel struct {
	AgencyAggregateModel
	InvoiceNumber string                      `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_agency_number,priority:2"`
	LeaseID       uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_lease_period,priority:1"`
	TenantID      uuid.UUID                   `gorm:"type:uuid;not null;index"`
	PeriodYear    int                         `gorm:"not null;uniqueIndex:idx_invoice_lease_period,priority:2"`
	PeriodMonth   int                         `gorm:"not null;uniqueIndex:idx_invoice_lease_period,priority:3"`
	Amount        decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	TotalPaid     decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	Status        billing.InvoiceStatus       `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	IssuedAt      time.Time                   `gorm:"not null"`
	DueAt         time.Time                   `gorm:"not null;index"`
	Applications  billing.PaymentApplications `gorm:"type:jsonb;default:'[]'"`
	PaidAt        *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		InvoiceNumber: m.InvoiceNumber,
		LeaseID:       m.LeaseID,
		TenantID:      m.TenantID,
		PeriodYear:    m.PeriodYear,
		PeriodMonth:   m.PeriodMonth,
		Amount:        m.Amount,
		TotalPaid:     m.TotalPaid,
		Status:        m.Status,
		IssuedAt:      m.IssuedAt,
		DueAt:         m.DueAt,
		Applications:  m.Applications,
		PaidAt:        m.PaidAt,
	}
	if inv.Applications == nil {
		inv.Applications = billing.PaymentApplications{}
	}
	m.PopulateAgencyAggregateRoot(&inv.AgencyAggregateRoot)
	return inv
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAgencyAggregateRoot(inv.AgencyAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.LeaseID = inv.LeaseID
	m.TenantID = inv.TenantID
	m.PeriodYear = inv.PeriodYear
	m.PeriodMonth = inv.PeriodMonth
	m.Amount = inv.Amount
	m.TotalPaid = inv.TotalPaid
	m.Status = inv.Status
	m.IssuedAt = inv.IssuedAt
	m.DueAt = inv.DueAt
	m.Applications = inv.Applications
	m.PaidAt = inv.PaidAt
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
// The unique index on gateway_transaction_id guarantees one settlement payment
// per gateway charge; NULLs are exempt so manual payments are unaffected.
type PaymentModel struct {
	AgencyAggregateModel
	LeaseID              uuid.UUID             `gorm:"type:uuid;not null;index"`
	InvoiceID            *uuid.UUID            `gorm:"type:uuid;index"`
	Amount               decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	AppliedAmount        decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	PaidAt               time.Time             `gorm:"not null;index"`
	Method               billing.PaymentMethod `gorm:"type:varchar(30);not null"`
	ReferenceNumber      string                `gorm:"type:varchar(100);not null;index"`
	GatewayTransactionID *uuid.UUID            `gorm:"type:uuid;uniqueIndex:idx_payment_gateway_txn"`
	ReversesPaymentID    *uuid.UUID            `gorm:"type:uuid;index"`
	Remark               string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *billing.Payment {
	p := &billing.Payment{
		LeaseID:              m.LeaseID,
		InvoiceID:            m.InvoiceID,
		Amount:               m.Amount,
		AppliedAmount:        m.AppliedAmount,
		PaidAt:               m.PaidAt,
		Method:               m.Method,
		ReferenceNumber:      m.ReferenceNumber,
		GatewayTransactionID: m.GatewayTransactionID,
		ReversesPaymentID:    m.ReversesPaymentID,
		Remark:               m.Remark,
	}
	m.PopulateAgencyAggregateRoot(&p.AgencyAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainAgencyAggregateRoot(p.AgencyAggregateRoot)
	m.LeaseID = p.LeaseID
	m.InvoiceID = p.InvoiceID
	m.Amount = p.Amount
	m.AppliedAmount = p.AppliedAmount
	m.PaidAt = p.PaidAt
	m.Method = p.Method
	m.ReferenceNumber = p.ReferenceNumber
	m.GatewayTransactionID = p.GatewayTransactionID
	m.ReversesPaymentID = p.ReversesPaymentID
	m.Remark = p.Remark
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// PenaltyModel is the persistence model for the Penalty aggregate root.
// The partial unique index on invoice_id keeps the penalty sweep idempotent
// while a penalty stands; a waived one drops out of the index so the invoice
// can be re-assessed.
type PenaltyModel struct {
	AgencyAggregateModel
	InvoiceID        uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:idx_penalty_invoice,where:status <> 'WAIVED'"`
	LeaseID          uuid.UUID                 `gorm:"type:uuid;not null;index"`
	TenantID         uuid.UUID                 `gorm:"type:uuid;not null;index"`
	PolicyType       billing.PenaltyPolicyType `gorm:"type:varchar(20);not null"`
	Amount           decimal.Decimal           `gorm:"type:decimal(18,2);not null"`
	Status           billing.PenaltyStatus     `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	AssessedAt       time.Time                 `gorm:"not null;index"`
	PaidAt           *time.Time
	PaymentReference string `gorm:"type:varchar(100)"`
	WaivedAt         *time.Time
	WaiveNote        string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PenaltyModel) TableName() string {
	return "penalties"
}

// ToDomain converts the persistence model to a domain Penalty entity.
func (m *PenaltyModel) ToDomain() *billing.Penalty {
	p := &billing.Penalty{
		InvoiceID:        m.InvoiceID,
		LeaseID:          m.LeaseID,
		TenantID:         m.TenantID,
		PolicyType:       m.PolicyType,
		Amount:           m.Amount,
		Status:           m.Status,
		AssessedAt:       m.AssessedAt,
		PaidAt:           m.PaidAt,
		PaymentReference: m.PaymentReference,
		WaivedAt:         m.WaivedAt,
		WaiveNote:        m.WaiveNote,
	}
	m.PopulateAgencyAggregateRoot(&p.AgencyAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain Penalty entity.
func (m *PenaltyModel) FromDomain(p *billing.Penalty) {
	m.FromDomainAgencyAggregateRoot(p.AgencyAggregateRoot)
	m.InvoiceID = p.InvoiceID
	m.LeaseID = p.LeaseID
	m.TenantID = p.TenantID
	m.PolicyType = p.PolicyType
	m.Amount = p.Amount
	m.Status = p.Status
	m.AssessedAt = p.AssessedAt
	m.PaidAt = p.PaidAt
	m.PaymentReference = p.PaymentReference
	m.WaivedAt = p.WaivedAt
	m.WaiveNote = p.WaiveNote
}

// PenaltyModelFromDomain creates a new persistence model from a domain Penalty.
func PenaltyModelFromDomain(p *billing.Penalty) *PenaltyModel {
	m := &PenaltyModel{}
	m.FromDomain(p)
	return m
}
