package router

import (
	"github.com/gin-gonic/gin"

	"github.com/murichu/rent-sub002/internal/interfaces/http/handler"
)

// Handlers bundles the API handlers the router wires up
type Handlers struct {
	Leases    *handler.LeaseHandler
	Invoices  *handler.InvoiceHandler
	Payments  *handler.PaymentHandler
	Penalties *handler.PenaltyHandler
	Charges   *handler.ChargeHandler
	Webhooks  *handler.WebhookHandler
	Outbox    *handler.OutboxHandler
	Health    *handler.HealthHandler
}

// Setup registers all routes on the engine. Health and provider webhooks
// live outside the versioned API group; the agency middleware skips them.
func Setup(engine *gin.Engine, h Handlers) {
	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
		engine.GET("/health/ready", h.Health.Ready)
	}

	if h.Webhooks != nil {
		webhooks := engine.Group("/webhooks")
		webhooks.POST("/mpesa", h.Webhooks.Mpesa)
		webhooks.POST("/pesapal", h.Webhooks.Pesapal)
		webhooks.GET("/pesapal", h.Webhooks.Pesapal)
	}

	r := NewRouter(engine)

	leases := NewDomainGroup("leases", "/leases")
	leases.POST("", h.Leases.Create)
	leases.GET("", h.Leases.List)
	leases.GET("/:id", h.Leases.GetByID)
	leases.POST("/:id/terminate", h.Leases.Terminate)
	leases.GET("/:id/invoices", h.Invoices.ListByLease)
	leases.GET("/:id/payments", h.Payments.ListByLease)
	r.Register(leases)

	invoices := NewDomainGroup("invoices", "/invoices")
	invoices.POST("", h.Invoices.Generate)
	invoices.POST("/runs", h.Invoices.RunBilling)
	invoices.GET("", h.Invoices.List)
	invoices.GET("/:id", h.Invoices.GetByID)
	r.Register(invoices)

	payments := NewDomainGroup("payments", "/payments")
	payments.POST("", h.Payments.Record)
	payments.GET("/credit", h.Payments.ListUnappliedCredit)
	payments.GET("/:id", h.Payments.GetByID)
	payments.POST("/:id/reverse", h.Payments.Reverse)
	r.Register(payments)

	penalties := NewDomainGroup("penalties", "/penalties")
	penalties.GET("", h.Penalties.List)
	penalties.GET("/:id", h.Penalties.GetByID)
	penalties.POST("/:id/pay", h.Penalties.Pay)
	penalties.POST("/:id/waive", h.Penalties.Waive)
	r.Register(penalties)

	charges := NewDomainGroup("charges", "/charges")
	charges.POST("", h.Charges.Initiate)
	charges.GET("", h.Charges.List)
	charges.GET("/:id", h.Charges.GetByID)
	charges.POST("/:id/resolve", h.Charges.Resolve)
	r.Register(charges)

	if h.Outbox != nil {
		outbox := NewDomainGroup("outbox", "/outbox")
		outbox.GET("/stats", h.Outbox.Stats)
		outbox.GET("/dead", h.Outbox.ListDead)
		outbox.POST("/dead/retry", h.Outbox.RetryAll)
		outbox.GET("/:id", h.Outbox.GetByID)
		outbox.POST("/:id/retry", h.Outbox.Retry)
		r.Register(outbox)
	}

	r.Setup()
}
