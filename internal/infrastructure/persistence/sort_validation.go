package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// LeaseSortFields contains allowed sort fields for leases
var LeaseSortFields = map[string]bool{
	"id":                   true,
	"created_at":           true,
	"updated_at":           true,
	"start_date":           true,
	"end_date":             true,
	"rent_amount":          true,
	"payment_day_of_month": true,
	"status":               true,
	"terminated_at":        true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"lease_id":       true,
	"tenant_id":      true,
	"period_year":    true,
	"period_month":   true,
	"amount":         true,
	"total_paid":     true,
	"status":         true,
	"issued_at":      true,
	"due_at":         true,
	"paid_at":        true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"lease_id":         true,
	"invoice_id":       true,
	"amount":           true,
	"applied_amount":   true,
	"paid_at":          true,
	"method":           true,
	"reference_number": true,
}

// PenaltySortFields contains allowed sort fields for penalties
var PenaltySortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"invoice_id":  true,
	"lease_id":    true,
	"tenant_id":   true,
	"policy_type": true,
	"amount":      true,
	"assessed_at": true,
	"waived_at":   true,
}

// GatewayTransactionSortFields contains allowed sort fields for gateway transactions
var GatewayTransactionSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"lease_id":     true,
	"invoice_id":   true,
	"channel":      true,
	"status":       true,
	"amount":       true,
	"initiated_at": true,
	"completed_at": true,
	"timed_out_at": true,
}
