package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/portal/backend/internal/application/billing"
	usageapp "github.com/portal/backend/internal/application/usage"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/usage"
	"github.com/portal/backend/internal/infrastructure/auth"
	"github.com/portal/backend/internal/infrastructure/cache"
	"github.com/portal/backend/internal/infrastructure/config"
	"github.com/portal/backend/internal/infrastructure/gateway"
	"github.com/portal/backend/internal/infrastructure/logger"
	"github.com/portal/backend/internal/infrastructure/notification"
	"github.com/portal/backend/internal/infrastructure/persistence"
	"github.com/portal/backend/internal/infrastructure/scheduler"
	"github.com/portal/backend/internal/infrastructure/webhook"
	"github.com/portal/backend/internal/interfaces/http/handler"
	"github.com/portal/backend/internal/interfaces/http/middleware"
	"github.com/portal/backend/internal/interfaces/http/router"
)

const maxBodySize = 1 << 20 // 1 MiB

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file (default: ./config.toml)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting billing portal",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	log.Info("Database connected")

	// Repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	packageRepo := persistence.NewGormServicePackageRepository(db.DB)
	usageRepo := persistence.NewGormUsageRepository(db.DB)
	budgetRepo := persistence.NewGormBudgetRepository(db.DB)

	// Webhook idempotency store. Redis when configured, otherwise a
	// single-instance in-memory store.
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	gatewayClient := gateway.NewClient(cfg.Gateway, log)
	notifier := notification.NewLogNotifier(log)
	trackerVerifier := webhook.NewTrackerVerifier(cfg.Webhook.TrackerSecret)
	identityVerifier := webhook.NewIdentityVerifier(cfg.Webhook.IdentitySecret, cfg.Webhook.Tolerance)
	tokenVerifier := auth.NewTokenVerifier(cfg.JWT)

	// Application services
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, paymentRepo, log)
	paymentService := billingapp.NewPaymentService(invoiceRepo, paymentRepo, gatewayClient, log)
	subscriptionService := billingapp.NewSubscriptionService(subscriptionRepo, packageRepo, gatewayClient, log)
	webhookService := billingapp.NewWebhookService(billingapp.WebhookServiceConfig{
		Gateway:          gatewayClient,
		InvoiceRepo:      invoiceRepo,
		PaymentRepo:      paymentRepo,
		SubscriptionRepo: subscriptionRepo,
		Payments:         paymentService,
		Idempotency:      idempotencyStore,
		IdempotencyCfg:   shared.DefaultIdempotencyConfig(),
		Notifier:         notifier,
		NotifyRecipient:  cfg.Notifier.Recipient,
		Logger:           log,
	})
	usageService := usageapp.NewUsageService(usageRepo, usage.DefaultPriceTable(), log)
	budgetService := usageapp.NewBudgetService(budgetRepo, usageRepo, log)
	sweepService := usageapp.NewBudgetSweepService(budgetRepo, usageRepo, notifier, cfg.Notifier.Recipient, log)

	sweepScheduler := scheduler.NewBudgetSweepScheduler(sweepService, log, scheduler.BudgetSweepSchedulerConfig{
		Enabled:    cfg.Sweep.Enabled,
		Interval:   cfg.Sweep.Interval,
		RunTimeout: cfg.Sweep.RunTimeout,
	})
	if err := sweepScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start budget sweep scheduler", zap.Error(err))
	}

	// HTTP engine
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))
	engine.Use(middleware.BodyLimit(maxBodySize))

	// Health endpoints, outside API versioning and authentication
	handler.NewHealthHandler(db.DB).RegisterRoutes(engine.Group(""))

	// Webhook endpoints authenticate by signature, not by bearer token, so
	// they are mounted outside the JWT-protected router
	handler.NewWebhookHandler(webhookService, trackerVerifier, identityVerifier, log).
		RegisterRoutes(engine.Group("/api/v1"))

	// Portal API, behind JWT verification
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuth(tokenVerifier))
	r.Register(handler.NewInvoiceHandler(invoiceService, paymentService)).
		Register(handler.NewSubscriptionHandler(subscriptionService)).
		Register(handler.NewUsageHandler(usageService, budgetService)).
		Register(handler.NewAdminHandler(sweepScheduler))
	r.Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sweepScheduler.Stop(ctx); err != nil {
		log.Warn("Budget sweep scheduler did not stop cleanly", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
