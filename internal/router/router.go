package router

import (
	"github.com/eason8811/international-shopping-sub004/config"
	"github.com/eason8811/international-shopping-sub004/internal/app/controller"
	"github.com/eason8811/international-shopping-sub004/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	orderController     *controller.OrderController
	paymentController   *controller.PaymentController
	refundController    *controller.RefundController
	shipmentController  *controller.ShipmentController
	inventoryController *controller.InventoryController
	authMiddleware      *middleware.AuthMiddleware
	config              *config.Config
}

func NewRouter(
	orderController *controller.OrderController,
	paymentController *controller.PaymentController,
	refundController *controller.RefundController,
	shipmentController *controller.ShipmentController,
	inventoryController *controller.InventoryController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		orderController:     orderController,
		paymentController:   paymentController,
		refundController:    refundController,
		shipmentController:  shipmentController,
		inventoryController: inventoryController,
		authMiddleware:      authMiddleware,
		config:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Fulfillment API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		{
			// 게이트웨이/물류 연동 조회는 인증 없이 열어둔다
			orders.GET("/:orderNo", r.orderController.GetOrder)
			orders.GET("/:orderNo/logs", r.orderController.GetStatusLogs)
			orders.GET("/:orderNo/payments", r.paymentController.ListOrderPayments)
			orders.GET("/:orderNo/refunds", r.refundController.ListOrderRefunds)
			orders.GET("/:orderNo/shipments", r.shipmentController.ListOrderShipments)

			orders.POST("", r.authMiddleware.Authenticate(), r.orderController.CreateOrder)
			orders.GET("", r.authMiddleware.Authenticate(), r.orderController.ListOrders)
			orders.POST("/:orderNo/cancel", r.authMiddleware.Authenticate(), r.orderController.CancelOrder)
			orders.POST("/:orderNo/refunds", r.authMiddleware.Authenticate(), r.refundController.RequestRefund)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/checkout", r.authMiddleware.Authenticate(), r.paymentController.Checkout)
			payments.POST("/webhook/paypal", r.paymentController.PayPalWebhook)
			payments.GET("/:paymentNo", r.paymentController.GetPayment)
		}

		refunds := v1.Group("/refunds")
		{
			refunds.GET("/:refundNo", r.refundController.GetRefund)
		}

		shipments := v1.Group("/shipments")
		{
			shipments.POST("/webhook/17track", r.shipmentController.SeventeenTrackWebhook)
			shipments.GET("/:shipmentNo", r.shipmentController.GetShipment)
			shipments.GET("/:shipmentNo/track", r.shipmentController.GetTrack)
		}

		inventory := v1.Group("/inventory")
		{
			inventory.GET("", r.inventoryController.ListAvailability)
			inventory.GET("/:skuCode", r.inventoryController.GetAvailability)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole("admin"))
		{
			admin.POST("/orders/timeout-sweep", r.orderController.SweepTimeouts)
			admin.POST("/orders/:orderNo/close", r.orderController.CloseOrder)
			admin.POST("/shipments", r.shipmentController.CreateShipment)
			admin.POST("/shipments/:shipmentNo/dispatch", r.shipmentController.RegisterTracking)
			admin.POST("/inventory/:skuCode/restock", r.inventoryController.Restock)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
