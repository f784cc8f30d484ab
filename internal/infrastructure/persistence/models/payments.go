package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/murichu/rent-sub002/internal/domain/payments"
)

// GatewayTransactionModel is the persistence model for the GatewayTransaction
// aggregate root. The (channel, gateway_reference) index serves webhook and
// polling lookups; the reference is assigned by the provider so it is not
// unique until the charge has been accepted.
type GatewayTransactionModel struct {
	AgencyAggregateModel
	LeaseID           uuid.UUID                   `gorm:"type:uuid;not null;index"`
	InvoiceID         *uuid.UUID                  `gorm:"type:uuid;index"`
	Channel           payments.GatewayChannel    `gorm:"type:varchar(20);not null;index:idx_gateway_channel_ref,priority:1"`
	Status            payments.TransactionStatus `gorm:"type:varchar(20);not null;default:'INITIATED';index"`
	Amount            decimal.Decimal            `gorm:"type:decimal(18,2);not null"`
	MSISDN            string                     `gorm:"type:varchar(20);not null"`
	AccountReference  string                     `gorm:"type:varchar(100);not null"`
	GatewayReference  string                     `gorm:"type:varchar(100);index:idx_gateway_channel_ref,priority:2"`
	MerchantReference string                     `gorm:"type:varchar(100)"`
	Receipt           string                     `gorm:"type:varchar(100)"`
	FailureReason     string                     `gorm:"type:varchar(500)"`
	InitiatedAt       time.Time                  `gorm:"not null;index"`
	CompletedAt       *time.Time
	TimedOutAt        *time.Time
	PollCount         int `gorm:"not null;default:0"`
	LastPolledAt      *time.Time
}

// TableName returns the table name for GORM
func (GatewayTransactionModel) TableName() string {
	return "gateway_transactions"
}

// ToDomain converts the persistence model to a domain GatewayTransaction entity.
func (m *GatewayTransactionModel) ToDomain() *payments.GatewayTransaction {
	t := &payments.GatewayTransaction{
		LeaseID:           m.LeaseID,
		InvoiceID:         m.InvoiceID,
		Channel:           m.Channel,
		Status:            m.Status,
		Amount:            m.Amount,
		MSISDN:            m.MSISDN,
		AccountReference:  m.AccountReference,
		GatewayReference:  m.GatewayReference,
		MerchantReference: m.MerchantReference,
		Receipt:           m.Receipt,
		FailureReason:     m.FailureReason,
		InitiatedAt:       m.InitiatedAt,
		CompletedAt:       m.CompletedAt,
		TimedOutAt:        m.TimedOutAt,
		PollCount:         m.PollCount,
		LastPolledAt:      m.LastPolledAt,
	}
	m.PopulateAgencyAggregateRoot(&t.AgencyAggregateRoot)
	return t
}

// FromDomain populates the persistence model from a domain GatewayTransaction entity.
func (m *GatewayTransactionModel) FromDomain(t *payments.GatewayTransaction) {
	m.FromDomainAgencyAggregateRoot(t.AgencyAggregateRoot)
	m.LeaseID = t.LeaseID
	m.InvoiceID = t.InvoiceID
	m.Channel = t.Channel
	m.Status = t.Status
	m.Amount = t.Amount
	m.MSISDN = t.MSISDN
	m.AccountReference = t.AccountReference
	m.GatewayReference = t.GatewayReference
	m.MerchantReference = t.MerchantReference
	m.Receipt = t.Receipt
	m.FailureReason = t.FailureReason
	m.InitiatedAt = t.InitiatedAt
	m.CompletedAt = t.CompletedAt
	m.TimedOutAt = t.TimedOutAt
	m.PollCount = t.PollCount
	m.LastPolledAt = t.LastPolledAt
}

// GatewayTransactionModelFromDomain creates a new persistence model from a domain GatewayTransaction.
func GatewayTransactionModelFromDomain(t *payments.GatewayTransaction) *GatewayTransactionModel {
	m := &GatewayTransactionModel{}
	m.FromDomain(t)
	return m
}
