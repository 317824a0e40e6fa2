package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/onurcolak/whatsapp-copilot/environments"
	"github.com/onurcolak/whatsapp-copilot/handlers"
	"github.com/onurcolak/whatsapp-copilot/internal/domain"
	"github.com/onurcolak/whatsapp-copilot/internal/middlewares"
	"github.com/onurcolak/whatsapp-copilot/internal/repository"
	"github.com/onurcolak/whatsapp-copilot/internal/scheduler"
	"github.com/onurcolak/whatsapp-copilot/internal/service"
	"github.com/onurcolak/whatsapp-copilot/pkg/database"
	"github.com/onurcolak/whatsapp-copilot/pkg/flowise"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
	"github.com/onurcolak/whatsapp-copilot/pkg/mpesa"
	"github.com/onurcolak/whatsapp-copilot/pkg/phone"
	"github.com/onurcolak/whatsapp-copilot/pkg/redis"
	"github.com/onurcolak/whatsapp-copilot/pkg/validator"
	"github.com/onurcolak/whatsapp-copilot/pkg/vision"
	"github.com/onurcolak/whatsapp-copilot/pkg/vonage"
	"github.com/onurcolak/whatsapp-copilot/routes"

	_ "github.com/onurcolak/whatsapp-copilot/docs" // swagger docs
)

// @title WhatsApp Copilot API
// @version 1.0
// @description WhatsApp webhook relay with a free-message threshold and Mpesa paid unlock

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	cfg := environments.Load()
	logger.Init(cfg.Log.Level)

	// Hard-fail if required secrets are missing
	if cfg.Auth.AdminAPIKey == "" {
		logger.Fatalf("ADMIN_API_KEY is required but not set")
	}
	if cfg.Flowise.URL == "" {
		logger.Fatalf("FLOWISE_API_URL is required but not set")
	}
	if cfg.Payment.InitiateURL == "" || cfg.Payment.StatusURL == "" {
		logger.Fatalf("MPESA_API_URL and MPESA_CHECK_URL are required but not set")
	}

	logger.Infof("Starting WhatsApp Copilot...")

	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Redis backs the idempotency ledger, so it is not optional.
	redisClient, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}

	messenger, err := vonage.NewClient(cfg.Vonage)
	if err != nil {
		logger.Fatalf("Failed to initialise Vonage client: %v", err)
	}
	logger.Infof("Vonage configured: %s", messenger.GetURL())

	conversation := flowise.NewClient(cfg.Flowise)
	describer := vision.NewClient(cfg.Vision)
	if cfg.Vision.Endpoint == "" {
		logger.Warnf("VISION_ENDPOINT is not set, image messages will get the fallback reply")
	}
	gateway := mpesa.NewClient(cfg.Payment)

	usageRepo := repository.NewUsageRepository(db)
	usageService := service.NewUsageService(usageRepo, cfg.Usage.NotificationCooldown)

	paymentService := service.NewPaymentService(gateway, messenger, usageService, redisClient, cfg.Payment)

	policy := domain.NewThresholdPolicy(
		cfg.Usage.DefaultThreshold,
		cfg.Usage.AllowListThreshold,
		phone.NormalizeAll(cfg.Usage.AllowList),
	)
	gate := service.NewThresholdGate(
		usageService,
		messenger,
		paymentService,
		policy,
		cfg.Payment.Amount,
		cfg.Usage.SupportContact,
	)

	dispatcher := service.NewDispatcher(redisClient, conversation, describer, gate, cfg.Server.NoTypePolicy)
	logger.Infof("No-type policy: %s, threshold: %d (allow-list %d for %d numbers)",
		cfg.Server.NoTypePolicy, cfg.Usage.DefaultThreshold, cfg.Usage.AllowListThreshold, len(cfg.Usage.AllowList))

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := scheduler.NewSweeper(usageService, cfg.Usage.SweepInterval)

	healthHandler := handlers.NewHealthHandler(db, redisClient)
	webhookHandler := handlers.NewWebhookHandler(dispatcher)
	usageHandler := handlers.NewUsageHandler(usageService)
	sweeperHandler := handlers.NewSweeperHandler(sweeper, ctx, cfg.Usage)

	if cfg.Usage.AutoStartSweeper {
		logger.Infof("Auto-starting notification sweeper...")
		if err := sweeper.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start sweeper: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	// A blocked reply waits for the whole payment poll before answering.
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			middlewares.APIKeyHeader,
		},
	}))

	routes.RegisterRoutes(e, healthHandler, webhookHandler, usageHandler, sweeperHandler, cfg)

	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	cancel()

	if sweeper.IsRunning() {
		logger.Infof("Stopping sweeper...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()

		done := make(chan error, 1)
		go func() {
			done <- sweeper.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Errorf("Error stopping sweeper: %v", err)
			} else {
				logger.Infof("Sweeper stopped successfully")
			}
		case <-stopCtx.Done():
			logger.Warnf("Sweeper stop timeout, forcing shutdown")
		}
	}

	// In-flight webhooks may be polling a payment; give them the write timeout to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	logger.Infof("Closing Redis connection...")
	if err := redisClient.Close(); err != nil {
		logger.Errorf("Error closing Redis: %v", err)
	}

	logger.Infof("Graceful shutdown completed")
}
