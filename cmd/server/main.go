package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eason8811/international-shopping-sub004/config"
	"github.com/eason8811/international-shopping-sub004/internal/app/controller"
	"github.com/eason8811/international-shopping-sub004/internal/app/repository"
	"github.com/eason8811/international-shopping-sub004/internal/app/service"
	"github.com/eason8811/international-shopping-sub004/internal/db"
	"github.com/eason8811/international-shopping-sub004/internal/middleware"
	"github.com/eason8811/international-shopping-sub004/internal/router"
	"github.com/eason8811/international-shopping-sub004/internal/scheduler"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"github.com/eason8811/international-shopping-sub004/pkg/payment/paypal"
	redispkg "github.com/eason8811/international-shopping-sub004/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting Fulfillment Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Seed database (optional)
	if err := db.Seed(); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Initialize redis (webhook replay gate)
	if err := redispkg.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, webhook replay gate disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer func() {
			if err := redispkg.Close(); err != nil {
				logger.Error("Failed to close redis connection", err)
			}
		}()
	}

	// Initialize payment gateway client
	gateway, err := paypal.NewClient(paypal.Config{
		ClientID:  cfg.Payment.PayPal.ClientID,
		Secret:    cfg.Payment.PayPal.Secret,
		BaseURL:   cfg.Payment.PayPal.BaseURL,
		ReturnURL: cfg.Payment.PayPal.ReturnURL,
		CancelURL: cfg.Payment.PayPal.CancelURL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize payment gateway client", err)
	}

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(db.GetDB())
	inventoryRepo := repository.NewInventoryRepository(db.GetDB())
	paymentRepo := repository.NewPaymentRepository(db.GetDB())
	refundRepo := repository.NewRefundRepository(db.GetDB())
	shipmentRepo := repository.NewShipmentRepository(db.GetDB())

	// Initialize services
	inventoryService := service.NewInventoryService(inventoryRepo, db.GetDB())
	orderService := service.NewOrderService(orderRepo, inventoryService, db.GetDB())
	refundService := service.NewRefundService(refundRepo, paymentRepo, orderRepo, inventoryService, gateway, db.GetDB())
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, inventoryService, refundService, gateway, db.GetDB())
	shipmentService := service.NewShipmentService(shipmentRepo, orderRepo, db.GetDB(), cfg.Tracking.SeventeenTrack.APIKey, cfg.Tracking.SeventeenTrack.ReplayTTL)

	// Initialize controllers
	orderController := controller.NewOrderController(orderService, cfg.Orders.Timeout)
	paymentController := controller.NewPaymentController(paymentService)
	refundController := controller.NewRefundController(refundService)
	shipmentController := controller.NewShipmentController(shipmentService)
	inventoryController := controller.NewInventoryController(inventoryService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Start schedulers
	timeoutScheduler := scheduler.NewOrderTimeoutScheduler(orderService, cfg.Orders.Timeout)
	if err := timeoutScheduler.Start(); err != nil {
		logger.Fatal("Failed to start order timeout scheduler", err)
	}
	defer timeoutScheduler.Stop()

	syncScheduler := scheduler.NewPaymentSyncScheduler(paymentService, refundService, cfg.Payment)
	if err := syncScheduler.Start(); err != nil {
		logger.Fatal("Failed to start payment sync scheduler", err)
	}
	defer syncScheduler.Stop()

	// Setup router
	r := router.NewRouter(
		orderController,
		paymentController,
		refundController,
		shipmentController,
		inventoryController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
