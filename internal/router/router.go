package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"daanseva/internal/handler"
	"daanseva/internal/middleware"
)

// Handlers bundles the wired handlers for route registration.
type Handlers struct {
	Payment  *handler.PaymentHandler
	Webhook  *handler.WebhookHandler
	Campaign *handler.CampaignHandler
	Product  *handler.ProductHandler
	Stats    *handler.StatsHandler
}

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	h *Handlers,
	logger *zap.Logger,
	adminAPIKey string,
	eventDeduper middleware.EventDeduper,
) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())

	// Public API
	apiGroup := e.Group("/api")
	apiGroup.GET("/campaigns", h.Campaign.List)
	apiGroup.GET("/campaigns/:id", h.Campaign.Get)
	apiGroup.GET("/campaigns/:id/donations", h.Campaign.Donations)
	apiGroup.GET("/products", h.Product.List)
	apiGroup.POST("/donations", h.Payment.CreateDonation)
	apiGroup.POST("/orders", h.Payment.CreateOrder)
	apiGroup.POST("/payments/verify", h.Payment.Verify)

	// Admin API (token auth)
	adminGroup := e.Group("/api")
	adminGroup.Use(middleware.AdminAuth(adminAPIKey))
	adminGroup.POST("/campaigns", h.Campaign.Create)
	adminGroup.PUT("/campaigns/:id", h.Campaign.Update)
	adminGroup.POST("/products", h.Product.Create)
	adminGroup.PUT("/products/:id", h.Product.Update)
	adminGroup.POST("/payments/refund", h.Payment.Refund)
	adminGroup.GET("/donations", h.Campaign.DonorHistory)
	adminGroup.GET("/stats/donations", h.Stats.Report)

	// Gateway webhook (signature checked in the dispatcher; dedup only
	// short-circuits retry storms)
	webhookGroup := e.Group("/webhooks")
	webhookGroup.Use(middleware.WebhookEventDedup(eventDeduper))
	webhookGroup.POST("/gateway", h.Webhook.Handle)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	logger.Info("routes registered")
}
