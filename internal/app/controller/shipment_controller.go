package controller

import (
	"errors"
	"net/http"

	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/internal/app/service"
	"github.com/eason8811/international-shopping-sub004/internal/middleware"
	"github.com/eason8811/international-shopping-sub004/pkg/tracking/seventeentrack"
	"github.com/gin-gonic/gin"
)

type ShipmentController struct {
	shipmentService service.ShipmentService
}

func NewShipmentController(shipmentService service.ShipmentService) *ShipmentController {
	return &ShipmentController{
		shipmentService: shipmentService,
	}
}

// RegisterTrackingRequest binds the carrier handoff payload
type RegisterTrackingRequest struct {
	CarrierCode string `json:"carrier_code" binding:"required"`
	TrackingNo  string `json:"tracking_no" binding:"required"`
}

// CreateShipment creates a shipment for a paid order (Admin only)
// POST /api/v1/admin/shipments
func (ctrl *ShipmentController) CreateShipment(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req service.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create shipment request", map[string]interface{}{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	shipment, err := ctrl.shipmentService.CreateShipment(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			log.Warn("Shipment creation failed: order not found", map[string]interface{}{
				"order_no": req.OrderNo,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		case errors.Is(err, service.ErrOrderNotShippable):
			log.Warn("Shipment creation failed: order not shippable", map[string]interface{}{
				"order_no": req.OrderNo,
			})
			c.JSON(http.StatusConflict, gin.H{
				"error": "Order status does not allow shipping",
			})
			return
		case errors.Is(err, service.ErrEmptyShipmentItems):
			log.Warn("Shipment creation failed: no items", map[string]interface{}{
				"order_no": req.OrderNo,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Shipment must contain at least one item",
			})
			return
		case errors.Is(err, service.ErrShipmentExceedsOrder):
			log.Warn("Shipment creation failed: exceeds ordered quantity", map[string]interface{}{
				"order_no": req.OrderNo,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Shipment quantity exceeds what remains to ship",
			})
			return
		default:
			log.Error("Failed to create shipment", err, map[string]interface{}{
				"order_no": req.OrderNo,
			})
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create shipment",
			})
			return
		}
	}

	log.Info("Shipment created successfully", map[string]interface{}{
		"order_no":    req.OrderNo,
		"shipment_no": shipment.ShipmentNo,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Shipment created successfully",
		"shipment": shipment,
	})
}

// RegisterTracking records the carrier handoff for a shipment (Admin only)
// POST /api/v1/admin/shipments/:shipmentNo/dispatch
func (ctrl *ShipmentController) RegisterTracking(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	shipmentNo := c.Param("shipmentNo")

	var req RegisterTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid register tracking request", map[string]interface{}{
			"shipment_no": shipmentNo,
			"error":       err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	shipment, err := ctrl.shipmentService.RegisterTracking(shipmentNo, req.CarrierCode, req.TrackingNo)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrShipmentNotFound):
			log.Warn("Shipment not found", map[string]interface{}{
				"shipment_no": shipmentNo,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Shipment not found",
			})
			return
		case errors.Is(err, model.ErrInvalidTransition):
			log.Warn("Register tracking rejected: invalid transition", map[string]interface{}{
				"shipment_no": shipmentNo,
			})
			c.JSON(http.StatusConflict, gin.H{
				"error": "Shipment status does not allow dispatch",
			})
			return
		default:
			log.Error("Failed to register tracking", err, map[string]interface{}{
				"shipment_no": shipmentNo,
			})
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to register tracking",
			})
			return
		}
	}

	log.Info("Tracking registered successfully", map[string]interface{}{
		"shipment_no": shipmentNo,
		"carrier":     req.CarrierCode,
		"tracking_no": req.TrackingNo,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":  "Tracking registered successfully",
		"shipment": shipment,
	})
}

// GetShipment returns a shipment by its number
// GET /api/v1/shipments/:shipmentNo
func (ctrl *ShipmentController) GetShipment(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	shipmentNo := c.Param("shipmentNo")

	shipment, err := ctrl.shipmentService.GetByShipmentNo(shipmentNo)
	if err != nil {
		if errors.Is(err, service.ErrShipmentNotFound) {
			log.Warn("Shipment not found", map[string]interface{}{
				"shipment_no": shipmentNo,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Shipment not found",
			})
			return
		}
		log.Error("Failed to fetch shipment", err, map[string]interface{}{
			"shipment_no": shipmentNo,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch shipment",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shipment": shipment,
	})
}

// GetTrack returns the tracking history of a shipment
// GET /api/v1/shipments/:shipmentNo/track
func (ctrl *ShipmentController) GetTrack(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	shipmentNo := c.Param("shipmentNo")

	logs, err := ctrl.shipmentService.GetTrack(shipmentNo)
	if err != nil {
		if errors.Is(err, service.ErrShipmentNotFound) {
			log.Warn("Shipment not found", map[string]interface{}{
				"shipment_no": shipmentNo,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Shipment not found",
			})
			return
		}
		log.Error("Failed to fetch tracking history", err, map[string]interface{}{
			"shipment_no": shipmentNo,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch tracking history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"track": logs,
	})
}

// ListOrderShipments returns every shipment of an order
// GET /api/v1/orders/:orderNo/shipments
func (ctrl *ShipmentController) ListOrderShipments(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderNo := c.Param("orderNo")

	shipments, err := ctrl.shipmentService.ListByOrderNo(orderNo)
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
		log.Error("Failed to fetch shipments", err, map[string]interface{}{
			"order_no": orderNo,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch shipments",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shipments": shipments,
		"count":     len(shipments),
	})
}

// SeventeenTrackWebhook ingests tracking pushes from 17track
// POST /api/v1/shipments/webhook/17track
func (ctrl *ShipmentController) SeventeenTrackWebhook(c *gin.Context) {
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

	result, err := ctrl.shipmentService.IngestCarrierWebhook(c.Request.Context(), body, c.GetHeader("sign"))
	if err != nil {
		switch {
		case errors.Is(err, seventeentrack.ErrInvalidSignature):
			log.Warn("Tracking webhook rejected: invalid signature", nil)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid signature",
			})
			return
		case errors.Is(err, seventeentrack.ErrMalformedPush):
			log.Warn("Tracking webhook rejected: malformed payload", map[string]interface{}{
				"error": err.Error(),
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Malformed webhook payload",
			})
			return
		case errors.Is(err, service.ErrWebhookReplayInFlight):
			// 동일 본문이 처리 중이므로 재시도를 유도한다
			log.Warn("Tracking webhook rejected: duplicate in flight", nil)
			c.JSON(http.StatusConflict, gin.H{
				"error": "Same event is already being processed",
			})
			return
		default:
			log.Error("Failed to process tracking webhook", err, nil)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to process webhook",
			})
			return
		}
	}

	log.Info("Tracking webhook processed", map[string]interface{}{
		"result": result,
	})

	c.JSON(http.StatusOK, gin.H{
		"result": result,
	})
}
