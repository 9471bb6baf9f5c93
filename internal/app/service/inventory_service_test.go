package service

import (
	"testing"

	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/internal/app/repository"
	"github.com/eason8811/international-shopping-sub004/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupInventoryServiceTest(t *testing.T) (InventoryService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	invRepo := repository.NewInventoryRepository(testDB)
	return NewInventoryService(invRepo, testDB), testDB
}

func TestInventoryService_Reserve_Success(t *testing.T) {
	invService, testDB := setupInventoryServiceTest(t)

	sku := createTestSku(t, testDB, "SKU-A", 2500, 10)

	got, err := invService.Reserve(testDB, "SKU-A", 42, 3, "order created")
	require.NoError(t, err)
	assert.Equal(t, sku.ID, got.ID)

	avail, err := invService.GetAvailability("SKU-A")
	require.NoError(t, err)
	assert.Equal(t, 7, avail.Available)

	invRepo := repository.NewInventoryRepository(testDB)
	logs, err := invRepo.FindLogsByOrderID(42)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.InventoryChangeReserve, logs[0].ChangeType)
	assert.Equal(t, 3, logs[0].Quantity)
}

func TestInventoryService_Reserve_InsufficientStock(t *testing.T) {
	invService, testDB := setupInventoryServiceTest(t)

	createTestSku(t, testDB, "SKU-A", 2500, 2)

	_, err := invService.Reserve(testDB, "SKU-A", 42, 3, "order created")
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// 부분 예약으로 줄어든 가용분까지 정확히 검사한다
	_, err = invService.Reserve(testDB, "SKU-A", 42, 2, "order created")
	require.NoError(t, err)
	_, err = invService.Reserve(testDB, "SKU-A", 43, 1, "order created")
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestInventoryService_Reserve_InvalidQuantity(t *testing.T) {
	invService, testDB := setupInventoryServiceTest(t)

	createTestSku(t, testDB, "SKU-A", 2500, 10)

	_, err := invService.Reserve(testDB, "SKU-A", 42, 0, "order created")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = invService.Reserve(testDB, "SKU-A", 42, -1, "order created")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestInventoryService_Reserve_SkuNotFound(t *testing.T) {
	invService, testDB := setupInventoryServiceTest(t)

	_, err := invService.Reserve(testDB, "NOPE", 42, 1, "order created")
	assert.ErrorIs(t, err, ErrSkuNotFound)
}

func TestInventoryService_DeductOutstanding(t *testing.T) {
	invService, testDB := setupInventoryServiceTest(t)

	sku := createTestSku(t, testDB, "SKU-A", 2500, 10)

	_, err := invService.Reserve(testDB, "SKU-A", 42, 4, "order created")
	require.NoError(t, err)

	deducted, err := invService.DeductOutstanding(testDB, sku.ID, 42, "payment captured")
	require.NoError(t, err)
	assert.Equal(t, 4, deducted)

	// DEDUCT는 예약분의 확정이라 가용 재고는 그대로다
	avail, err := invService.GetAvailability("SKU-A")
	require.NoError(t, err)
	assert.Equal(t, 6, avail.Available)

	// 두 번째 호출은 확정할 예약이 없어 아무것도 기록하지 않는다
	deducted, err = invService.DeductOutstanding(testDB, sku.ID, 42, "payment captured")
	require.NoError(t, err)
	assert.Zero(t, deducted)

	invRepo := repository.NewInventoryRepository(testDB)
	logs, err := invRepo.FindLogsByOrderID(42)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestInventoryService_ReleaseOutstanding(t *testing.T) {
	invService, testDB := setupInventoryServiceTest(t)

	sku := createTestSku(t, testDB, "SKU-A", 2500, 10)

	_, err := invService.Reserve(testDB, "SKU-A", 42, 4, "order created")
	require.NoError(t, err)

	released, err := invService.ReleaseOutstanding(testDB, sku.ID, 42, "order cancelled")
	require.NoError(t, err)
	assert.Equal(t, 4, released)

	avail, err := invService.GetAvailability("SKU-A")
	require.NoError(t, err)
	assert.Equal(t, 10, avail.Available)

	// 재호출은 멱등이다
	released, err = invService.ReleaseOutstanding(testDB, sku.ID, 42, "order cancelled")
	require.NoError(t, err)
	assert.Zero(t, released)

	avail, err = invService.GetAvailability("SKU-A")
	require.NoError(t, err)
	assert.Equal(t, 10, avail.Available)
}

func TestInventoryService_ReleaseAfterDeduct(t *testing.T) {
	invService, testDB := setupInventoryServiceTest(t)

	sku := createTestSku(t, testDB, "SKU-A", 2500, 10)

	_, err := invService.Reserve(testDB, "SKU-A", 42, 4, "order created")
	require.NoError(t, err)
	_, err = invService.DeductOutstanding(testDB, sku.ID, 42, "payment captured")
	require.NoError(t, err)

	// 확정 뒤에는 풀 예약이 남아 있지 않다
	released, err := invService.ReleaseOutstanding(testDB, sku.ID, 42, "order cancelled")
	require.NoError(t, err)
	assert.Zero(t, released)
}

func TestInventoryService_Restock(t *testing.T) {
	invService, testDB := setupInventoryServiceTest(t)

	sku := createTestSku(t, testDB, "SKU-A", 2500, 10)

	_, err := invService.Reserve(testDB, "SKU-A", 42, 4, "order created")
	require.NoError(t, err)
	_, err = invService.DeductOutstanding(testDB, sku.ID, 42, "payment captured")
	require.NoError(t, err)

	require.NoError(t, invService.Restock(testDB, sku.ID, 42, 2, "refund"))

	avail, err := invService.GetAvailability("SKU-A")
	require.NoError(t, err)
	assert.Equal(t, 8, avail.Available)

	assert.ErrorIs(t, invService.Restock(testDB, sku.ID, 42, 0, "refund"), ErrInvalidQuantity)
}

func TestInventoryService_RestockByCode(t *testing.T) {
	invService, testDB := setupInventoryServiceTest(t)

	sku := createTestSku(t, testDB, "SKU-A", 2500, 10)

	avail, err := invService.RestockByCode("SKU-A", 5, "manual replenishment")
	require.NoError(t, err)
	assert.Equal(t, 15, avail.Available)

	// 수동 입고는 주문과 묶이지 않는다
	var log model.InventoryLog
	require.NoError(t, testDB.Where("sku_id = ? AND change_type = ?", sku.ID, model.InventoryChangeRestock).
		First(&log).Error)
	assert.Zero(t, log.OrderID)
	assert.Equal(t, "manual replenishment", log.Reason)
}

func TestInventoryService_RestockByCode_Errors(t *testing.T) {
	invService, testDB := setupInventoryServiceTest(t)

	createTestSku(t, testDB, "SKU-A", 2500, 10)

	_, err := invService.RestockByCode("NOPE", 5, "manual")
	assert.ErrorIs(t, err, ErrSkuNotFound)

	_, err = invService.RestockByCode("SKU-A", 0, "manual")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestInventoryService_ListAvailability(t *testing.T) {
	invService, testDB := setupInventoryServiceTest(t)

	createTestSku(t, testDB, "SKU-B", 2800, 5)
	createTestSku(t, testDB, "SKU-A", 2500, 10)

	_, err := invService.Reserve(testDB, "SKU-B", 42, 2, "order created")
	require.NoError(t, err)

	list, err := invService.ListAvailability()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "SKU-A", list[0].Sku.SkuCode)
	assert.Equal(t, 10, list[0].Available)
	assert.Equal(t, "SKU-B", list[1].Sku.SkuCode)
	assert.Equal(t, 3, list[1].Available)
}

func TestInventoryService_GetAvailability_NotFound(t *testing.T) {
	invService, _ := setupInventoryServiceTest(t)

	_, err := invService.GetAvailability("NOPE")
	assert.ErrorIs(t, err, ErrSkuNotFound)
}
