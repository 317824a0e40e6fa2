package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/onurcolak/whatsapp-copilot/environments"
	"github.com/onurcolak/whatsapp-copilot/handlers"
	"github.com/onurcolak/whatsapp-copilot/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	webhookHandler *handlers.WebhookHandler,
	usageHandler *handlers.UsageHandler,
	sweeperHandler *handlers.SweeperHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Any method reaches the handler so non-POST gets the provider-facing 404 body.
	e.Any("/webhooks/inbound", webhookHandler.Inbound)

	v1 := e.Group("/api/v1", middlewares.APIKeyAuth(cfg.Auth.AdminAPIKey))

	usage := v1.Group("/usage")
	usage.GET("", usageHandler.ListUsage)
	usage.GET("/stats", usageHandler.GetStats)
	usage.GET("/:phone", usageHandler.GetUsage)
	usage.PUT("/:phone/count", usageHandler.SetCount)
	usage.POST("/:phone/reset", usageHandler.ResetUsage)
	usage.DELETE("/:phone/notification", usageHandler.ClearNotification)

	sweeper := v1.Group("/sweeper")
	sweeper.POST("/start", sweeperHandler.StartSweeper)
	sweeper.POST("/stop", sweeperHandler.StopSweeper)
	sweeper.GET("/status", sweeperHandler.GetSweeperStatus)
}
