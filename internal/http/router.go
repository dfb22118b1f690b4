package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/zealits/bulkpayout-sub001/internal/http/handlers"
	"github.com/zealits/bulkpayout-sub001/internal/http/middleware"
	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
	"github.com/zealits/bulkpayout-sub001/internal/modules/refdata"
)

// Deps carries everything the HTTP surface needs. Construction happens in
// cmd/api; the router only wires.
type Deps struct {
	Logger        *slog.Logger
	DB            *gorm.DB
	Gateways      payouts.Gateways
	Uploader      *payouts.Uploader
	Processor     *payouts.Processor
	Reconciler    *payouts.Reconciler
	WebhookSvc    *payouts.WebhookService
	RefData       *refdata.Cache
	JWTSecret     string
	WebhookSecret string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Metrics(),
		middleware.Recovery(d.Logger),
		middleware.ErrorHandler(d.Logger),
	)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	batches := handlers.NewBatchHandler(d.DB, d.Logger, d.Uploader)
	process := handlers.NewProcessHandler(d.Logger, d.Processor, d.Reconciler)
	payments := handlers.NewPaymentsHandler(d.DB, d.Logger)
	provs := handlers.NewProvidersHandler(d.DB, d.Logger, d.Gateways, d.RefData)
	webhooks := handlers.NewWebhookHandler(d.Logger, d.WebhookSvc, d.WebhookSecret)

	// Provider push endpoints authenticate by signature, not bearer token.
	r.POST("/webhooks/paypal", webhooks.HandlePayPal)

	api := r.Group("/api/v1")
	api.Use(middleware.RequireAuth(d.JWTSecret))
	{
		api.POST("/batches", batches.Create)
		api.POST("/batches/upload", batches.Upload)
		api.GET("/batches", batches.List)
		api.GET("/batches/:id", batches.Get)
		api.DELETE("/batches/:id", batches.Delete)

		api.POST("/batches/:id/process", process.Process)
		api.GET("/batches/:id/process/stream", process.Stream)
		api.POST("/batches/:id/sync", process.Sync)

		api.GET("/batches/:id/payments", payments.List)
		api.GET("/payments/:id", payments.Get)
		api.PATCH("/payments/:id/status", payments.UpdateStatus)

		api.POST("/payments/:id/bank/approve", provs.ApproveContract)
		api.POST("/payments/:id/bank/cancel", provs.CancelContract)

		api.GET("/providers/giftogram/campaigns", provs.Campaigns)
		api.GET("/providers/xe/accounts", provs.Accounts)
		api.GET("/providers/xe/fields", provs.FieldRequirements)

		api.GET("/stats", batches.Stats)
	}

	return r
}
