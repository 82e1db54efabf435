package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"daanseva/internal/bootstrap"
	"daanseva/internal/config"
	cronpkg "daanseva/internal/cron"
	"daanseva/internal/gateway"
	"daanseva/internal/handler"
	"daanseva/internal/middleware"
	"daanseva/internal/notify"
	"daanseva/internal/repository"
	"daanseva/internal/router"
	"daanseva/internal/service"
	"daanseva/internal/signature"
)

func main() {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database, cfg.Server.Env)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.MigrateAndSeed(db, cfg.Server.Env); err != nil {
		logger.Fatal("Failed to bootstrap database schema", zap.Error(err))
	}

	// --- Repositories ---
	transactions := repository.NewTransactionRepository(db)
	campaigns := repository.NewCampaignRepository(db)
	products := repository.NewProductRepository(db)
	stats := repository.NewStatsRepository(db)

	// --- Gateway + signature verification ---
	gw := gateway.NewRazorpayClient(cfg.Gateway.KeyID, cfg.Gateway.KeySecret)
	verifier := signature.NewVerifier(cfg.Gateway.CallbackSecret, cfg.Gateway.WebhookSecret)

	// --- Receipt notifier ---
	var receipts notify.ReceiptSender
	if cfg.Mailer.Endpoint != "" {
		receipts = notify.NewHTTPSender(cfg.Mailer.Endpoint, cfg.Mailer.APIKey, logger)
	} else {
		receipts = notify.NewLogSender(logger)
	}

	// --- Services ---
	settlement := service.NewSettlement(transactions, products, gw, verifier, receipts, logger)
	initiator := service.NewInitiator(transactions, campaigns, products, gw, logger)
	refunds := service.NewRefunds(transactions, gw, logger)
	dispatcher := service.NewDispatcher(verifier, settlement, logger)
	statsService := service.NewStats(stats)

	// --- Webhook event dedup (Redis with in-memory fallback) ---
	eventDeduper, dedupeErr := middleware.NewEventDeduper(
		cfg.Redis.Addr,
		cfg.Redis.Pass,
		cfg.Redis.DB,
		10*time.Minute,
	)
	if dedupeErr != nil {
		logger.Warn("Redis unavailable for webhook dedup, using in-memory fallback", zap.Error(dedupeErr))
	}

	// --- Echo + routes ---
	e := echo.New()
	e.HideBanner = true

	handlers := &router.Handlers{
		Payment:  handler.NewPaymentHandler(initiator, settlement, refunds, cfg.Gateway.KeyID, logger),
		Webhook:  handler.NewWebhookHandler(dispatcher, logger),
		Campaign: handler.NewCampaignHandler(campaigns, transactions, logger),
		Product:  handler.NewProductHandler(products, logger),
		Stats:    handler.NewStatsHandler(statsService, logger),
	}
	router.Setup(e, handlers, logger, cfg.Admin.APIKey, eventDeduper)

	// --- Cron Scheduler ---
	scheduler := cronpkg.New(cfg, transactions, settlement, gw, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start cron scheduler", zap.Error(err))
	}

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting daanseva server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Stop cron
	ctx := scheduler.Stop()
	<-ctx.Done()

	// Stop HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
