package controller

import (
	"errors"
	"net/http"

	"github.com/eason8811/international-shopping-sub004/internal/app/service"
	"github.com/eason8811/international-shopping-sub004/internal/middleware"
	"github.com/gin-gonic/gin"
)

type InventoryController struct {
	inventoryService service.InventoryService
}

func NewInventoryController(inventoryService service.InventoryService) *InventoryController {
	return &InventoryController{
		inventoryService: inventoryService,
	}
}

type RestockRequest struct {
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Reason   string `json:"reason"`
}

// ListAvailability returns every SKU with its derived available stock
// GET /api/v1/inventory
func (ctrl *InventoryController) ListAvailability(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	skus, err := ctrl.inventoryService.ListAvailability()
	if err != nil {
		log.Error("Failed to list inventory", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch inventory",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"skus":  skus,
		"count": len(skus),
	})
}

// GetAvailability returns the derived available stock of one SKU
// GET /api/v1/inventory/:skuCode
func (ctrl *InventoryController) GetAvailability(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	skuCode := c.Param("skuCode")

	availability, err := ctrl.inventoryService.GetAvailability(skuCode)
	if err != nil {
		if errors.Is(err, service.ErrSkuNotFound) {
			log.Warn("Sku not found", map[string]interface{}{
				"sku_code": skuCode,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "SKU not found",
			})
			return
		}
		log.Error("Failed to fetch availability", err, map[string]interface{}{
			"sku_code": skuCode,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch availability",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"availability": availability,
	})
}

// Restock adds stock back to a SKU (Admin only)
// POST /api/v1/admin/inventory/:skuCode/restock
func (ctrl *InventoryController) Restock(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	skuCode := c.Param("skuCode")

	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid restock request", map[string]interface{}{
			"sku_code": skuCode,
			"error":    err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	availability, err := ctrl.inventoryService.RestockByCode(skuCode, req.Quantity, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSkuNotFound):
			log.Warn("Restock failed: sku not found", map[string]interface{}{
				"sku_code": skuCode,
			})
			c.JSON(http.StatusNotFound, gin.H{
				"error": "SKU not found",
			})
			return
		case errors.Is(err, service.ErrInvalidQuantity):
			log.Warn("Restock failed: invalid quantity", map[string]interface{}{
				"sku_code": skuCode,
				"quantity": req.Quantity,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Quantity must be positive",
			})
			return
		default:
			log.Error("Failed to restock", err, map[string]interface{}{
				"sku_code": skuCode,
			})
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to restock",
			})
			return
		}
	}

	log.Info("Restock completed successfully", map[string]interface{}{
		"sku_code": skuCode,
		"quantity": req.Quantity,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":      "Restock completed successfully",
		"availability": availability,
	})
}
