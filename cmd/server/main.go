package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	billingapp "github.com/murichu/rent-sub002/internal/application/billing"
	eventapp "github.com/murichu/rent-sub002/internal/application/event"
	paymentsapp "github.com/murichu/rent-sub002/internal/application/payments"
	"github.com/murichu/rent-sub002/internal/domain/billing"
	"github.com/murichu/rent-sub002/internal/domain/payments"
	"github.com/murichu/rent-sub002/internal/domain/shared/valueobject"
	"github.com/murichu/rent-sub002/internal/infrastructure/cache"
	"github.com/murichu/rent-sub002/internal/infrastructure/config"
	"github.com/murichu/rent-sub002/internal/infrastructure/event"
	"github.com/murichu/rent-sub002/internal/infrastructure/locking"
	"github.com/murichu/rent-sub002/internal/infrastructure/logger"
	"github.com/murichu/rent-sub002/internal/infrastructure/payment"
	"github.com/murichu/rent-sub002/internal/infrastructure/persistence"
	"github.com/murichu/rent-sub002/internal/infrastructure/scheduler"
	"github.com/murichu/rent-sub002/internal/interfaces/http/handler"
	"github.com/murichu/rent-sub002/internal/interfaces/http/middleware"
	"github.com/murichu/rent-sub002/internal/interfaces/http/router"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting rent billing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	leaseRepo := persistence.NewGormLeaseRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	penaltyRepo := persistence.NewGormPenaltyRepository(db.DB)
	txnRepo := persistence.NewGormGatewayTransactionRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

	// Services publish through the outbox; the processor relays entries
	// to the in-memory bus after commit
	eventPublisher := event.NewOutboxEventPublisher(outboxRepo, eventSerializer)
	eventBus := event.NewInMemoryEventBus(log)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	outboxProcessorConfig := event.DefaultOutboxProcessorConfig()
	outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
	if err := outboxProcessor.Start(context.Background()); err != nil {
		log.Fatal("Failed to start outbox processor", zap.Error(err))
	}
	defer func() {
		if err := outboxProcessor.Stop(context.Background()); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}()
	log.Info("Outbox processor started",
		zap.Int("batch_size", outboxProcessorConfig.BatchSize),
		zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
	)

	// Penalty policy from config
	penaltyPolicy, err := buildPenaltyPolicy(cfg.Billing)
	if err != nil {
		log.Fatal("Invalid penalty policy configuration", zap.Error(err))
	}

	// Initialize application services
	leaseService := billingapp.NewLeaseService(billingapp.LeaseServiceConfig{
		LeaseRepo:      leaseRepo,
		EventPublisher: eventPublisher,
		Logger:         log,
	})
	invoiceService := billingapp.NewInvoiceService(billingapp.InvoiceServiceConfig{
		LeaseRepo:      leaseRepo,
		InvoiceRepo:    invoiceRepo,
		EventPublisher: eventPublisher,
		Logger:         log,
	})
	paymentService := billingapp.NewPaymentService(billingapp.PaymentServiceConfig{
		PaymentRepo:    paymentRepo,
		InvoiceRepo:    invoiceRepo,
		LeaseRepo:      leaseRepo,
		Matcher:        billing.NewPaymentMatcher(),
		LeaseLocks:     locking.NewKeyedMutex(),
		EventPublisher: eventPublisher,
		Logger:         log,
	})
	penaltyService := billingapp.NewPenaltyService(billingapp.PenaltyServiceConfig{
		InvoiceRepo:    invoiceRepo,
		PenaltyRepo:    penaltyRepo,
		Policy:         penaltyPolicy,
		EventPublisher: eventPublisher,
		Logger:         log,
	})

	// Mobile money gateways from config
	registry, callbacks, err := buildGatewayRegistry(cfg.Gateway)
	if err != nil {
		log.Fatal("Failed to configure payment gateways", zap.Error(err))
	}
	for _, gw := range registry.ListGateways() {
		log.Info("Payment gateway enabled", zap.String("channel", string(gw.Channel())))
	}

	// Idempotency store for webhook settlement (Redis with in-memory fallback)
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Audit trail: every domain event relayed off the outbox is logged,
	// deduplicated by event ID so redelivery does not double-log
	auditHandler := event.NewIdempotentHandler(event.NewAuditLogHandler(log), idempotencyStore, log)
	eventBus.Subscribe(auditHandler)

	chargeService := paymentsapp.NewChargeService(paymentsapp.ChargeServiceConfig{
		TxnRepo:        txnRepo,
		PaymentRepo:    paymentRepo,
		PaymentService: paymentService,
		Registry:       registry,
		Idempotency:    idempotencyStore,
		EventPublisher: eventPublisher,
		Logger:         log,
		PollInterval:   cfg.Gateway.PollInterval,
		PollBudget:     cfg.Gateway.PollBudget,
		StaleAfter:     cfg.Gateway.StaleAfter,
	})

	// Background jobs: monthly billing, overdue sweep, penalty sweep,
	// stale charge reconciliation
	if cfg.Scheduler.Enabled {
		executor := scheduler.NewBillingJobExecutor(invoiceService, penaltyService, chargeService, log)
		jobScheduler := scheduler.NewScheduler(scheduler.SchedulerConfig{
			Enabled:           cfg.Scheduler.Enabled,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}, executor, log)
		if err := jobScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := jobScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()

		cronTrigger, err := scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
			BillingRunSchedule:   cfg.Scheduler.BillingRunSchedule,
			PenaltySweepSchedule: cfg.Scheduler.PenaltySweepSchedule,
			OverdueSweepSchedule: cfg.Scheduler.OverdueSweepSchedule,
			ReconcileSchedule:    cfg.Scheduler.ReconcileSchedule,
		}, jobScheduler, log)
		if err != nil {
			log.Fatal("Invalid cron schedule", zap.Error(err))
		}
		if err := cronTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		defer func() {
			if err := cronTrigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping cron trigger", zap.Error(err))
			}
		}()
		log.Info("Scheduler started",
			zap.String("billing_run", cfg.Scheduler.BillingRunSchedule),
			zap.String("penalty_sweep", cfg.Scheduler.PenaltySweepSchedule),
			zap.String("overdue_sweep", cfg.Scheduler.OverdueSweepSchedule),
			zap.String("reconcile", cfg.Scheduler.ReconcileSchedule),
		)
	}

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Leases:    handler.NewLeaseHandler(leaseService),
		Invoices:  handler.NewInvoiceHandler(invoiceService),
		Payments:  handler.NewPaymentHandler(paymentService),
		Penalties: handler.NewPenaltyHandler(penaltyService),
		Charges:   handler.NewChargeHandler(chargeService, callbacks),
		Webhooks:  handler.NewWebhookHandler(chargeService, log),
		Outbox:    handler.NewOutboxHandler(eventapp.NewOutboxService(outboxRepo, log)),
		Health:    handler.NewHealthHandler(db, version),
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Agency scoping for the API surface. Health and provider webhooks
	// are exempt.
	agencyConfig := middleware.DefaultAgencyConfig()
	agencyConfig.Logger = log
	engine.Use(middleware.AgencyMiddlewareWithConfig(agencyConfig))

	router.Setup(engine, handlers)

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// buildPenaltyPolicy maps billing configuration to a domain penalty policy
func buildPenaltyPolicy(cfg config.BillingConfig) (billing.PenaltyPolicy, error) {
	switch cfg.PenaltyType {
	case "percent":
		return billing.NewPercentPenaltyPolicy(decimal.NewFromFloat(cfg.PenaltyPercent), cfg.GraceDays)
	default:
		return billing.NewFlatPenaltyPolicy(valueobject.NewMoneyKESFromCents(cfg.PenaltyFlatCents), cfg.GraceDays)
	}
}

// buildGatewayRegistry constructs the enabled gateway adapters and the
// per-channel callback URLs handed out on charge initiation
func buildGatewayRegistry(cfg config.GatewayConfig) (*payment.Registry, map[payments.GatewayChannel]string, error) {
	var gateways []payments.MobileMoneyGateway
	callbacks := make(map[payments.GatewayChannel]string)

	if cfg.Mpesa.Enabled {
		adapter, err := payment.NewMpesaAdapter(&payment.MpesaConfig{
			BaseURL:        cfg.Mpesa.BaseURL,
			ConsumerKey:    cfg.Mpesa.ConsumerKey,
			ConsumerSecret: cfg.Mpesa.ConsumerSecret,
			ShortCode:      cfg.Mpesa.ShortCode,
			Passkey:        cfg.Mpesa.Passkey,
			CallbackURL:    cfg.Mpesa.CallbackURL,
		})
		if err != nil {
			return nil, nil, err
		}
		gateways = append(gateways, adapter)
		callbacks[payments.GatewayChannelMpesaSTK] = cfg.Mpesa.CallbackURL
	}

	if cfg.Pesapal.Enabled {
		adapter, err := payment.NewPesapalAdapter(&payment.PesapalConfig{
			BaseURL:        cfg.Pesapal.BaseURL,
			ConsumerKey:    cfg.Pesapal.ConsumerKey,
			ConsumerSecret: cfg.Pesapal.ConsumerSecret,
			IPNID:          cfg.Pesapal.IPNID,
			CallbackURL:    cfg.Pesapal.CallbackURL,
		})
		if err != nil {
			return nil, nil, err
		}
		gateways = append(gateways, adapter)
		callbacks[payments.GatewayChannelPesapal] = cfg.Pesapal.CallbackURL
	}

	registry, err := payment.NewRegistry(gateways...)
	if err != nil {
		return nil, nil, err
	}
	return registry, callbacks, nil
}
