package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appbilling "github.com/murichu/rent-sub002/internal/application/billing"
	apppayments "github.com/murichu/rent-sub002/internal/application/payments"
)

// InvoiceRunner runs the invoice-side sweeps
type InvoiceRunner interface {
	RunMonthlyBilling(ctx context.Context, year int, month time.Month) (*appbilling.BillingRunResult, error)
	RunOverdueSweep(ctx context.Context, now time.Time) (*appbilling.OverdueSweepResult, error)
}

// PenaltyRunner assesses late fees
type PenaltyRunner interface {
	RunPenaltySweep(ctx context.Context, now time.Time) (*appbilling.PenaltySweepResult, error)
}

// ChargeReconciler resolves stale gateway transactions
type ChargeReconciler interface {
	ReconcileStale(ctx context.Context, now time.Time) (*apppayments.ReconcileResult, error)
}

// BillingJobExecutor dispatches scheduled jobs to the application services
type BillingJobExecutor struct {
	invoices  InvoiceRunner
	penalties PenaltyRunner
	charges   ChargeReconciler
	logger    *zap.Logger
}

// NewBillingJobExecutor creates a new billing job executor
func NewBillingJobExecutor(
	invoices InvoiceRunner,
	penalties PenaltyRunner,
	charges ChargeReconciler,
	logger *zap.Logger,
) *BillingJobExecutor {
	return &BillingJobExecutor{
		invoices:  invoices,
		penalties: penalties,
		charges:   charges,
		logger:    logger,
	}
}

// Execute runs a single scheduled job
func (e *BillingJobExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Type {
	case JobTypeBillingRun:
		result, err := e.invoices.RunMonthlyBilling(ctx, job.PeriodYear, job.PeriodMonth)
		if err != nil {
			return err
		}
		e.logger.Info("Monthly billing run finished",
			zap.String("period", result.Period),
			zap.Int("generated", result.Generated),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
		return nil

	case JobTypePenaltySweep:
		result, err := e.penalties.RunPenaltySweep(ctx, job.AsOf)
		if err != nil {
			return err
		}
		e.logger.Info("Penalty sweep finished",
			zap.Int("examined", result.Examined),
			zap.Int("assessed", result.Assessed),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
		return nil

	case JobTypeOverdueSweep:
		result, err := e.invoices.RunOverdueSweep(ctx, job.AsOf)
		if err != nil {
			return err
		}
		e.logger.Info("Overdue sweep finished",
			zap.Int("examined", result.Examined),
			zap.Int("marked", result.Marked),
		)
		return nil

	case JobTypeReconcile:
		result, err := e.charges.ReconcileStale(ctx, job.AsOf)
		if err != nil {
			return err
		}
		e.logger.Info("Gateway reconciliation finished",
			zap.Int("examined", result.Examined),
			zap.Int("completed", result.Completed),
			zap.Int("failed", result.Failed),
			zap.Int("timed_out", result.TimedOut),
		)
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrInvalidJobType, job.Type)
	}
}

// Ensure BillingJobExecutor implements JobExecutor interface
var _ JobExecutor = (*BillingJobExecutor)(nil)
