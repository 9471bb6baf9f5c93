package controller

import (
	"errors"
	"net/http"

	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/internal/app/service"
	"github.com/eason8811/international-shopping-sub004/internal/middleware"
	"github.com/gin-gonic/gin"
)

type RefundController struct {
	refundService service.RefundService
}

func NewRefundController(refundService service.RefundService) *RefundController {
	return &RefundController{
		refundService: refundService,
	}
}

// RequestRefundBody represents the refund request payload.
// Items omitted means a full refund of whatever remains.
type RequestRefundBody struct {
	Items      []service.RefundRequestItem `json:"items"`
	ReasonCode model.RefundReasonCode      `json:"reason_code"`
	ReasonText string                      `json:"reason_text"`
}

// RequestRefund opens a refund for a paid order
// POST /api/v1/orders/:orderNo/refunds
func (ctrl *RefundController) RequestRefund(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderNo := c.Param("orderNo")

	var body RequestRefundBody
	if err := c.ShouldBindJSON(&body); err != nil {
		log.Warn("Invalid refund request", map[string]interface{}{
			"order_no": orderNo,
			"error":    err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	initiator := model.RefundInitiatorUser
	if role, ok := middleware.GetUserRole(c); ok && role == "admin" {
		initiator = model.RefundInitiatorAdmin
	}

	refund, err := ctrl.refundService.RequestRefund(c.Request.Context(), service.RequestRefundInput{
		OrderNo:    orderNo,
		Items:      body.Items,
		ReasonCode: body.ReasonCode,
		ReasonText: body.ReasonText,
		Initiator:  initiator,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			log.Warn("Refund request failed: order not found", map[string]interface{}{
				"order_no": orderNo,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		case errors.Is(err, service.ErrOrderNotRefundable):
			log.Warn("Refund request failed: order not refundable", map[string]interface{}{
				"order_no": orderNo,
			})
			c.JSON(http.StatusConflict, gin.H{
				"error": "Order status does not allow refunds",
			})
			return
		case errors.Is(err, service.ErrNoCapturedPayment):
			log.Warn("Refund request failed: no captured payment", map[string]interface{}{
				"order_no": orderNo,
			})
			c.JSON(http.StatusConflict, gin.H{
				"error": "Order has no captured payment to refund",
			})
			return
		case errors.Is(err, service.ErrRefundExceedsPaid):
			log.Warn("Refund request failed: exceeds paid amount", map[string]interface{}{
				"order_no": orderNo,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Refund amount exceeds what was paid",
			})
			return
		case errors.Is(err, service.ErrNothingToRefund):
			log.Warn("Refund request failed: nothing left to refund", map[string]interface{}{
				"order_no": orderNo,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Nothing left to refund",
			})
			return
		default:
			log.Error("Failed to request refund", err, map[string]interface{}{
				"order_no": orderNo,
			})
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to request refund",
			})
			return
		}
	}

	log.Info("Refund requested successfully", map[string]interface{}{
		"order_no":  orderNo,
		"refund_no": refund.RefundNo,
		"amount":    refund.Amount,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Refund requested successfully",
		"refund":  refund,
	})
}

// GetRefund returns a refund by its number
// GET /api/v1/refunds/:refundNo
func (ctrl *RefundController) GetRefund(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	refundNo := c.Param("refundNo")

	refund, err := ctrl.refundService.GetByRefundNo(refundNo)
	if err != nil {
		if errors.Is(err, service.ErrRefundNotFound) {
			log.Warn("Refund not found", map[string]interface{}{
				"refund_no": refundNo,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Refund not found",
			})
			return
		}
		log.Error("Failed to fetch refund", err, map[string]interface{}{
			"refund_no": refundNo,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch refund",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refund": refund,
	})
}

// ListOrderRefunds returns every refund of an order
// GET /api/v1/orders/:orderNo/refunds
func (ctrl *RefundController) ListOrderRefunds(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderNo := c.Param("orderNo")

	refunds, err := ctrl.refundService.ListByOrderNo(orderNo)
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
		log.Error("Failed to fetch refunds", err, map[string]interface{}{
			"order_no": orderNo,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch refunds",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refunds": refunds,
		"count":   len(refunds),
	})
}
