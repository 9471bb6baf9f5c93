package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eason8811/international-shopping-sub004/config"
	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/internal/app/repository"
	"github.com/eason8811/international-shopping-sub004/internal/app/service"
	"github.com/eason8811/international-shopping-sub004/internal/db"
	"github.com/eason8811/international-shopping-sub004/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setUserIDInContext(c *gin.Context, userID uint) {
	c.Set(middleware.UserIDKey, userID)
}

func setupOrderControllerTest(t *testing.T) (*OrderController, *gin.Engine, *gorm.DB, service.OrderService) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	orderRepo := repository.NewOrderRepository(testDB)
	invRepo := repository.NewInventoryRepository(testDB)
	invService := service.NewInventoryService(invRepo, testDB)
	orderService := service.NewOrderService(orderRepo, invService, testDB)
	orderController := NewOrderController(orderService, config.OrderTimeoutConfig{
		TTL:          30 * time.Minute,
		BatchSize:    100,
		CancelReason: "payment timeout",
	})

	// 테스트용 SKU 2종
	require.NoError(t, testDB.Create(&model.Sku{
		SkuCode: "SKU-A", Name: "Widget A", Currency: "USD", UnitPrice: 2500, InitialStock: 10,
	}).Error)
	require.NoError(t, testDB.Create(&model.Sku{
		SkuCode: "SKU-B", Name: "Widget B", Currency: "USD", UnitPrice: 2800, InitialStock: 5,
	}).Error)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	return orderController, router, testDB, orderService
}

// testAddressBody 주문 생성 요청 공용 배송지 본문
func testAddressBody() map[string]interface{} {
	return map[string]interface{}{
		"recipient":   "Jane Doe",
		"phone":       "+1-202-555-0101",
		"country":     "US",
		"province":    "CA",
		"city":        "San Francisco",
		"postal_code": "94105",
		"line1":       "123 Market St",
	}
}

func createOrderForControllerTest(t *testing.T, orderService service.OrderService) *model.Order {
	order, err := orderService.CreateOrder(service.CreateOrderRequest{
		UserID: 7,
		Address: service.CreateOrderAddressRequest{
			Recipient:  "Jane Doe",
			Phone:      "+1-202-555-0101",
			Country:    "US",
			City:       "San Francisco",
			PostalCode: "94105",
			Line1:      "123 Market St",
		},
		Items: []service.CreateOrderItemRequest{
			{SkuCode: "SKU-A", Quantity: 1},
			{SkuCode: "SKU-B", Quantity: 1},
		},
		ShippingFee: 200,
	})
	require.NoError(t, err)
	return order
}

func TestOrderController_CreateOrder_Success(t *testing.T) {
	controller, router, _, _ := setupOrderControllerTest(t)

	router.POST("/orders", func(c *gin.Context) {
		setUserIDInContext(c, 7)
		controller.CreateOrder(c)
	})

	reqBody := map[string]interface{}{
		"items": []map[string]interface{}{
			{"sku_code": "SKU-A", "quantity": 1},
			{"sku_code": "SKU-B", "quantity": 1},
		},
		"address":      testAddressBody(),
		"shipping_fee": 200,
	}

	jsonBody, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "Order created successfully", response["message"])

	orderData := response["order"].(map[string]interface{})
	assert.Equal(t, float64(5300), orderData["total_amount"])
	assert.Equal(t, float64(5500), orderData["pay_amount"])
	assert.Equal(t, string(model.OrderStatusPendingPayment), orderData["status"])
	assert.Len(t, orderData["order_no"].(string), 26)

	// 배송지 스냅샷이 응답에 실린다
	address := orderData["address"].(map[string]interface{})
	assert.Equal(t, "Jane Doe", address["recipient"])
	assert.Equal(t, "94105", address["postal_code"])
}

func TestOrderController_CreateOrder_Unauthorized(t *testing.T) {
	controller, router, _, _ := setupOrderControllerTest(t)

	router.POST("/orders", controller.CreateOrder)

	reqBody := map[string]interface{}{
		"items": []map[string]interface{}{{"sku_code": "SKU-A", "quantity": 1}},
	}

	jsonBody, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "User not authenticated", response["error"])
}

func TestOrderController_CreateOrder_InvalidRequest(t *testing.T) {
	controller, router, _, _ := setupOrderControllerTest(t)

	router.POST("/orders", func(c *gin.Context) {
		setUserIDInContext(c, 7)
		controller.CreateOrder(c)
	})

	tests := []struct {
		name    string
		reqBody map[string]interface{}
	}{
		{
			name:    "Missing items",
			reqBody: map[string]interface{}{},
		},
		{
			name: "Zero quantity",
			reqBody: map[string]interface{}{
				"items":   []map[string]interface{}{{"sku_code": "SKU-A", "quantity": 0}},
				"address": testAddressBody(),
			},
		},
		{
			name: "Missing address",
			reqBody: map[string]interface{}{
				"items": []map[string]interface{}{{"sku_code": "SKU-A", "quantity": 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jsonBody, _ := json.Marshal(tt.reqBody)
			req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(jsonBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			require.NoError(t, err)

			assert.Equal(t, "Invalid request data", response["error"])
		})
	}
}

func TestOrderController_CreateOrder_SkuNotFound(t *testing.T) {
	controller, router, _, _ := setupOrderControllerTest(t)

	router.POST("/orders", func(c *gin.Context) {
		setUserIDInContext(c, 7)
		controller.CreateOrder(c)
	})

	reqBody := map[string]interface{}{
		"items":   []map[string]interface{}{{"sku_code": "NOPE", "quantity": 1}},
		"address": testAddressBody(),
	}

	jsonBody, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "One or more SKUs are unavailable", response["error"])
}

func TestOrderController_CreateOrder_InsufficientStock(t *testing.T) {
	controller, router, _, _ := setupOrderControllerTest(t)

	router.POST("/orders", func(c *gin.Context) {
		setUserIDInContext(c, 7)
		controller.CreateOrder(c)
	})

	reqBody := map[string]interface{}{
		"items":   []map[string]interface{}{{"sku_code": "SKU-A", "quantity": 100}},
		"address": testAddressBody(),
	}

	jsonBody, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "Insufficient stock for one or more items", response["error"])
}

func TestOrderController_GetOrder_Success(t *testing.T) {
	controller, router, _, orderService := setupOrderControllerTest(t)

	order := createOrderForControllerTest(t, orderService)

	router.GET("/orders/:orderNo", controller.GetOrder)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+order.OrderNo, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	orderData := response["order"].(map[string]interface{})
	assert.Equal(t, order.OrderNo, orderData["order_no"])
	assert.Len(t, orderData["items"].([]interface{}), 2)
}

func TestOrderController_GetOrder_NotFound(t *testing.T) {
	controller, router, _, _ := setupOrderControllerTest(t)

	router.GET("/orders/:orderNo", controller.GetOrder)

	req := httptest.NewRequest(http.MethodGet, "/orders/01UNKNOWNORDERNO0000000000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "Order not found", response["error"])
}

func TestOrderController_ListOrders_FilterByStatus(t *testing.T) {
	controller, router, _, orderService := setupOrderControllerTest(t)

	first := createOrderForControllerTest(t, orderService)
	createOrderForControllerTest(t, orderService)

	_, err := orderService.Cancel(first.OrderNo, model.EventSourceUser, "changed mind")
	require.NoError(t, err)

	router.GET("/orders", controller.ListOrders)

	req := httptest.NewRequest(http.MethodGet, "/orders?status=PENDING_PAYMENT", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, float64(1), response["total"])
	orders := response["orders"].([]interface{})
	require.Len(t, orders, 1)
	assert.NotEqual(t, first.OrderNo, orders[0].(map[string]interface{})["order_no"])
}

func TestOrderController_GetStatusLogs(t *testing.T) {
	controller, router, _, orderService := setupOrderControllerTest(t)

	order := createOrderForControllerTest(t, orderService)

	router.GET("/orders/:orderNo/logs", controller.GetStatusLogs)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+order.OrderNo+"/logs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	// 생성과 결제 대기 전이가 각각 기록된다
	logs := response["logs"].([]interface{})
	require.Len(t, logs, 2)
	assert.Equal(t, string(model.OrderStatusPendingPayment), logs[1].(map[string]interface{})["to_status"])
}

func TestOrderController_CancelOrder_Success(t *testing.T) {
	controller, router, _, orderService := setupOrderControllerTest(t)

	order := createOrderForControllerTest(t, orderService)

	router.POST("/orders/:orderNo/cancel", func(c *gin.Context) {
		setUserIDInContext(c, 7)
		controller.CancelOrder(c)
	})

	jsonBody, _ := json.Marshal(CancelOrderRequest{Reason: "changed mind"})
	req := httptest.NewRequest(http.MethodPost, "/orders/"+order.OrderNo+"/cancel", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	orderData := response["order"].(map[string]interface{})
	assert.Equal(t, string(model.OrderStatusCancelled), orderData["status"])
}

func TestOrderController_CancelOrder_Conflict(t *testing.T) {
	controller, router, _, orderService := setupOrderControllerTest(t)

	order := createOrderForControllerTest(t, orderService)
	_, err := orderService.Cancel(order.OrderNo, model.EventSourceUser, "changed mind")
	require.NoError(t, err)

	router.POST("/orders/:orderNo/cancel", controller.CancelOrder)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+order.OrderNo+"/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var response map[string]interface{}
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "Order status does not allow this action", response["error"])
}

func TestOrderController_CloseOrder_FromCancelled(t *testing.T) {
	controller, router, _, orderService := setupOrderControllerTest(t)

	order := createOrderForControllerTest(t, orderService)
	_, err := orderService.Cancel(order.OrderNo, model.EventSourceUser, "changed mind")
	require.NoError(t, err)

	router.POST("/admin/orders/:orderNo/close", controller.CloseOrder)

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/"+order.OrderNo+"/close", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err = json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	orderData := response["order"].(map[string]interface{})
	assert.Equal(t, string(model.OrderStatusClosed), orderData["status"])
}

func TestOrderController_SweepTimeouts(t *testing.T) {
	controller, router, testDB, orderService := setupOrderControllerTest(t)

	stale := createOrderForControllerTest(t, orderService)
	createOrderForControllerTest(t, orderService)

	// 결제 대기 시간을 넘긴 주문 하나를 만든다
	require.NoError(t, testDB.Model(&model.Order{}).
		Where("id = ?", stale.ID).
		UpdateColumn("created_at", time.Now().Add(-time.Hour)).Error)

	router.POST("/admin/orders/timeout-sweep", controller.SweepTimeouts)

	jsonBody, _ := json.Marshal(SweepTimeoutsRequest{TTLMinutes: 30})
	req := httptest.NewRequest(http.MethodPost, "/admin/orders/timeout-sweep", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "Timeout sweep completed", response["message"])
	assert.Equal(t, float64(1), response["cancelled"])

	refreshed, err := orderService.GetOrderByNo(stale.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, refreshed.Status)
}
