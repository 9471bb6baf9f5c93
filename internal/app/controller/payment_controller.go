package controller

import (
	"errors"
	"net/http"

	"github.com/eason8811/international-shopping-sub004/internal/app/service"
	"github.com/eason8811/international-shopping-sub004/internal/middleware"
	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	paymentService service.PaymentService
}

func NewPaymentController(paymentService service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
	}
}

// CheckoutRequest represents the request to start a payment attempt
type CheckoutRequest struct {
	OrderNo string `json:"order_no" binding:"required"`
}

// Checkout opens a new payment attempt for an order
// POST /api/v1/payments/checkout
func (ctrl *PaymentController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid checkout request", map[string]interface{}{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	resp, err := ctrl.paymentService.Checkout(c.Request.Context(), req.OrderNo)
	if err != nil {
		log.Error("Failed to checkout", err, map[string]interface{}{
			"order_no": req.OrderNo,
		})

		status := http.StatusInternalServerError
		message := "Failed to start payment"

		if errors.Is(err, service.ErrOrderNotFound) {
			status = http.StatusNotFound
			message = "Order not found"
		} else if errors.Is(err, service.ErrOrderNotPayable) {
			status = http.StatusConflict
			message = "Order is not payable in its current status"
		} else if errors.Is(err, service.ErrGatewayRejected) {
			status = http.StatusBadGateway
			message = "Payment gateway rejected the request"
		}

		c.JSON(status, gin.H{
			"error": message,
		})
		return
	}

	log.Info("Checkout started successfully", map[string]interface{}{
		"order_no":    req.OrderNo,
		"payment_no":  resp.PaymentNo,
		"external_id": resp.ExternalID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout started successfully",
		"data":    resp,
	})
}

// PayPalWebhook ingests asynchronous payment notifications
// POST /api/v1/payments/webhook/paypal
func (ctrl *PaymentController) PayPalWebhook(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	body, err := c.GetRawData()
	if err != nil {
		log.Warn("Failed to read webhook body", map[string]interface{}{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	result, err := ctrl.paymentService.IngestWebhook(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, service.ErrMalformedWebhook) {
			log.Warn("Malformed payment webhook", map[string]interface{}{
				"error": err.Error(),
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Malformed webhook payload",
				"result": result,
			})
			return
		}
		log.Error("Failed to process payment webhook", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Failed to process webhook",
			"result": result,
		})
		return
	}

	log.Info("Payment webhook processed", map[string]interface{}{
		"result": result,
	})

	// 게이트웨이 재시도를 막기 위해 거부한 이벤트도 200으로 응답한다
	c.JSON(http.StatusOK, gin.H{
		"result": result,
	})
}

// GetPayment returns a payment attempt by its number
// GET /api/v1/payments/:paymentNo
func (ctrl *PaymentController) GetPayment(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	paymentNo := c.Param("paymentNo")

	payment, err := ctrl.paymentService.GetByPaymentNo(paymentNo)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			log.Warn("Payment not found", map[string]interface{}{
				"payment_no": paymentNo,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Payment not found",
			})
			return
		}
		log.Error("Failed to fetch payment", err, map[string]interface{}{
			"payment_no": paymentNo,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch payment",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": payment,
	})
}

// ListOrderPayments returns every payment attempt of an order
// GET /api/v1/orders/:orderNo/payments
func (ctrl *PaymentController) ListOrderPayments(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderNo := c.Param("orderNo")

	payments, err := ctrl.paymentService.ListByOrderNo(orderNo)
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
		log.Error("Failed to fetch payments", err, map[string]interface{}{
			"order_no": orderNo,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch payments",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"count":    len(payments),
	})
}
