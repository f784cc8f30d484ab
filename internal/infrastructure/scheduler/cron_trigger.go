package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronTriggerConfig holds the cron expressions for the recurring jobs.
// All expressions are standard five-field crontab specs.
type CronTriggerConfig struct {
	// BillingRunSchedule fires the monthly invoice generation run
	BillingRunSchedule string
	// PenaltySweepSchedule fires the daily late fee assessment
	PenaltySweepSchedule string
	// OverdueSweepSchedule fires the daily overdue status sweep
	OverdueSweepSchedule string
	// ReconcileSchedule fires the stale gateway transaction reconciliation
	ReconcileSchedule string
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		BillingRunSchedule:   "0 2 1 * *",
		PenaltySweepSchedule: "0 3 * * *",
		OverdueSweepSchedule: "30 2 * * *",
		ReconcileSchedule:    "*/10 * * * *",
	}
}

// CronTrigger submits the recurring billing jobs on their schedules
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, scheduler *Scheduler, logger *zap.Logger) (*CronTrigger, error) {
	t := &CronTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
		cron:      cron.New(),
	}

	entries := []struct {
		spec string
		fn   func()
	}{
		{config.BillingRunSchedule, t.triggerBillingRun},
		{config.PenaltySweepSchedule, func() { t.submit(NewJob(JobTypePenaltySweep, time.Now(), scheduler.config.RetryAttempts)) }},
		{config.OverdueSweepSchedule, func() { t.submit(NewJob(JobTypeOverdueSweep, time.Now(), scheduler.config.RetryAttempts)) }},
		{config.ReconcileSchedule, func() { t.submit(NewJob(JobTypeReconcile, time.Now(), scheduler.config.RetryAttempts)) }},
	}

	for _, entry := range entries {
		if _, err := t.cron.AddFunc(entry.spec, entry.fn); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Start starts the cron trigger
func (t *CronTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isRunning {
		return nil
	}
	t.isRunning = true
	t.cron.Start()

	t.logger.Info("Cron trigger started",
		zap.String("billing_run", t.config.BillingRunSchedule),
		zap.String("penalty_sweep", t.config.PenaltySweepSchedule),
		zap.String("overdue_sweep", t.config.OverdueSweepSchedule),
		zap.String("reconcile", t.config.ReconcileSchedule),
	)

	return nil
}

// Stop stops the cron trigger, waiting for in-flight trigger functions
func (t *CronTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isRunning {
		return nil
	}
	t.isRunning = false

	stopCtx := t.cron.Stop()
	select {
	case <-stopCtx.Done():
		t.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerBillingRun submits a billing run for an explicit period, for
// manual catch-up runs
func (t *CronTrigger) TriggerBillingRun(year int, month time.Month) error {
	return t.scheduler.SubmitJob(NewBillingRunJob(year, month, t.scheduler.config.RetryAttempts))
}

// triggerBillingRun bills the month the schedule fired in
func (t *CronTrigger) triggerBillingRun() {
	now := time.Now()
	t.submit(NewBillingRunJob(now.Year(), now.Month(), t.scheduler.config.RetryAttempts))
}

func (t *CronTrigger) submit(job *Job) {
	if err := t.scheduler.SubmitJob(job); err != nil {
		t.logger.Error("Failed to submit scheduled job",
			zap.String("job_type", string(job.Type)),
			zap.Error(err),
		)
	}
}
