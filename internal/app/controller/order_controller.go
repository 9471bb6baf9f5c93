package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/eason8811/international-shopping-sub004/config"
	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/internal/app/service"
	"github.com/eason8811/international-shopping-sub004/internal/middleware"
	"github.com/gin-gonic/gin"
)

type OrderController struct {
	orderService service.OrderService
	timeoutCfg   config.OrderTimeoutConfig
}

func NewOrderController(orderService service.OrderService, timeoutCfg config.OrderTimeoutConfig) *OrderController {
	return &OrderController{
		orderService: orderService,
		timeoutCfg:   timeoutCfg,
	}
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type SweepTimeoutsRequest struct {
	TTLMinutes int    `json:"ttl_minutes"`
	BatchSize  int    `json:"batch_size"`
	Reason     string `json:"reason"`
}

// CreateOrder creates a new order and reserves stock for it
// POST /api/v1/orders
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized attempt to create order", nil)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create order request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}
	req.UserID = userID

	log.Debug("Creating order", map[string]interface{}{
		"user_id":    userID,
		"item_count": len(req.Items),
	})

	order, err := ctrl.orderService.CreateOrder(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyOrderItems):
			log.Warn("Order creation failed: no items", map[string]interface{}{
				"user_id": userID,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Order must contain at least one item",
			})
			return
		case errors.Is(err, service.ErrSkuNotFound):
			log.Warn("Order creation failed: sku not found", map[string]interface{}{
				"user_id": userID,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "One or more SKUs are unavailable",
			})
			return
		case errors.Is(err, service.ErrInsufficientStock):
			log.Warn("Order creation failed: insufficient stock", map[string]interface{}{
				"user_id": userID,
			})
			c.JSON(http.StatusConflict, gin.H{
				"error": "Insufficient stock for one or more items",
			})
			return
		case errors.Is(err, service.ErrMixedCurrency):
			log.Warn("Order creation failed: mixed currencies", map[string]interface{}{
				"user_id": userID,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "All items must share one currency",
			})
			return
		case errors.Is(err, service.ErrInvalidAddress):
			log.Warn("Order creation failed: invalid shipping address", map[string]interface{}{
				"user_id": userID,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Shipping address is incomplete",
			})
			return
		case errors.Is(err, service.ErrInvalidOrderAmount):
			log.Warn("Order creation failed: invalid amount", map[string]interface{}{
				"user_id": userID,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Order amount is invalid",
			})
			return
		default:
			log.Error("Failed to create order", err, map[string]interface{}{
				"user_id": userID,
			})
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create order",
			})
			return
		}
	}

	log.Info("Order created successfully", map[string]interface{}{
		"user_id":    userID,
		"order_no":   order.OrderNo,
		"pay_amount": order.PayAmount,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"order":   order,
	})
}

// GetOrder returns an order by its number
// GET /api/v1/orders/:orderNo
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderNo := c.Param("orderNo")

	order, err := ctrl.orderService.GetOrderByNo(orderNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			log.Warn("Order not found", map[string]interface{}{
				"order_no": orderNo,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		log.Error("Failed to fetch order", err, map[string]interface{}{
			"order_no": orderNo,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch order",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// ListOrders returns orders filtered by status
// GET /api/v1/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	status := c.Query("status")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, total, err := ctrl.orderService.ListOrders(status, limit, offset)
	if err != nil {
		log.Error("Failed to list orders", err, map[string]interface{}{
			"status": status,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
	})
}

// GetStatusLogs returns the transition history of an order
// GET /api/v1/orders/:orderNo/logs
func (ctrl *OrderController) GetStatusLogs(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderNo := c.Param("orderNo")

	logs, err := ctrl.orderService.GetStatusLogs(orderNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			log.Warn("Order not found", map[string]interface{}{
				"order_no": orderNo,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		log.Error("Failed to fetch order status logs", err, map[string]interface{}{
			"order_no": orderNo,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch order status logs",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs": logs,
	})
}

// CancelOrder cancels an unpaid order and releases its reserved stock
// POST /api/v1/orders/:orderNo/cancel
func (ctrl *OrderController) CancelOrder(c *gin.Context) {
	ctrl.terminate(c, model.EventSourceUser, "cancel")
}

// CloseOrder closes an order administratively
// POST /api/v1/admin/orders/:orderNo/close
func (ctrl *OrderController) CloseOrder(c *gin.Context) {
	ctrl.terminate(c, model.EventSourceAdmin, "close")
}

func (ctrl *OrderController) terminate(c *gin.Context, source model.EventSource, action string) {
	log := middleware.GetLoggerFromContext(c)

	orderNo := c.Param("orderNo")

	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn("Invalid order terminate request", map[string]interface{}{
				"order_no": orderNo,
				"action":   action,
				"error":    err.Error(),
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request data",
			})
			return
		}
	}

	var order *model.Order
	var err error
	if action == "close" {
		order, err = ctrl.orderService.Close(orderNo, source, req.Reason)
	} else {
		order, err = ctrl.orderService.Cancel(orderNo, source, req.Reason)
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			log.Warn("Order not found", map[string]interface{}{
				"order_no": orderNo,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		case errors.Is(err, model.ErrInvalidTransition):
			log.Warn("Order terminate rejected: invalid transition", map[string]interface{}{
				"order_no": orderNo,
				"action":   action,
			})
			c.JSON(http.StatusConflict, gin.H{
				"error": "Order status does not allow this action",
			})
			return
		default:
			log.Error("Failed to terminate order", err, map[string]interface{}{
				"order_no": orderNo,
				"action":   action,
			})
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update order",
			})
			return
		}
	}

	log.Info("Order terminated successfully", map[string]interface{}{
		"order_no": orderNo,
		"action":   action,
		"status":   order.Status,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Order updated successfully",
		"order":   order,
	})
}

// SweepTimeouts cancels orders that waited too long for payment (Admin only)
// POST /api/v1/admin/orders/timeout-sweep
func (ctrl *OrderController) SweepTimeouts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	req := SweepTimeoutsRequest{
		BatchSize: ctrl.timeoutCfg.BatchSize,
		Reason:    ctrl.timeoutCfg.CancelReason,
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn("Invalid timeout sweep request", map[string]interface{}{
				"error": err.Error(),
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request data",
			})
			return
		}
	}

	ttl := ctrl.timeoutCfg.TTL
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}

	cancelled, err := ctrl.orderService.RecoverTimeouts(ttl, req.BatchSize, req.Reason)
	if err != nil {
		log.Error("Manual timeout sweep failed", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to sweep timed out orders",
		})
		return
	}

	log.Info("Manual timeout sweep completed", map[string]interface{}{
		"cancelled": cancelled,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":   "Timeout sweep completed",
		"cancelled": cancelled,
	})
}
