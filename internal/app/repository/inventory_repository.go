package repository

import (
	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository interface {
	CreateSku(sku *model.Sku) error
	FindSkuByID(id uint) (*model.Sku, error)
	FindSkuByCode(skuCode string) (*model.Sku, error)
	FindSkuByCodeForUpdate(skuCode string) (*model.Sku, error)
	ListSkus() ([]model.Sku, error)
	AppendLog(log *model.InventoryLog) error
	AvailableStock(sku *model.Sku) (int, error)
	OutstandingReserved(skuID, orderID uint) (int, error)
	FindLogsByOrderID(orderID uint) ([]model.InventoryLog, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) CreateSku(sku *model.Sku) error {
	logger.Debug("Creating sku in database", map[string]interface{}{
		"sku_code": sku.SkuCode,
	})

	if err := r.db.Create(sku).Error; err != nil {
		logger.Error("Failed to create sku in database", err, map[string]interface{}{
			"sku_code": sku.SkuCode,
		})
		return err
	}
	return nil
}

func (r *inventoryRepository) FindSkuByID(id uint) (*model.Sku, error) {
	var sku model.Sku
	if err := r.db.First(&sku, id).Error; err != nil {
		logger.Error("Failed to find sku by ID in database", err, map[string]interface{}{
			"sku_id": id,
		})
		return nil, err
	}
	return &sku, nil
}

func (r *inventoryRepository) FindSkuByCode(skuCode string) (*model.Sku, error) {
	var sku model.Sku
	if err := r.db.Where("sku_code = ?", skuCode).First(&sku).Error; err != nil {
		logger.Error("Failed to find sku by code in database", err, map[string]interface{}{
			"sku_code": skuCode,
		})
		return nil, err
	}
	return &sku, nil
}

// FindSkuByCodeForUpdate SKU 행 잠금 후 조회. 원장 검사와 기록 사이의 경쟁을 막는다.
func (r *inventoryRepository) FindSkuByCodeForUpdate(skuCode string) (*model.Sku, error) {
	logger.Debug("Locking sku row for update", map[string]interface{}{
		"sku_code": skuCode,
	})

	var sku model.Sku
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sku_code = ?", skuCode).
		First(&sku).Error; err != nil {
		logger.Error("Failed to lock sku row in database", err, map[string]interface{}{
			"sku_code": skuCode,
		})
		return nil, err
	}
	return &sku, nil
}

func (r *inventoryRepository) ListSkus() ([]model.Sku, error) {
	var skus []model.Sku
	if err := r.db.Order("sku_code ASC").Find(&skus).Error; err != nil {
		logger.Error("Failed to list skus in database", err, nil)
		return nil, err
	}
	return skus, nil
}

func (r *inventoryRepository) AppendLog(log *model.InventoryLog) error {
	logger.Debug("Appending inventory log in database", map[string]interface{}{
		"sku_id":      log.SkuID,
		"order_id":    log.OrderID,
		"change_type": log.ChangeType,
		"quantity":    log.Quantity,
	})

	if err := r.db.Create(log).Error; err != nil {
		logger.Error("Failed to append inventory log in database", err, map[string]interface{}{
			"sku_id":      log.SkuID,
			"change_type": log.ChangeType,
		})
		return err
	}
	return nil
}

// AvailableStock 가용 재고 = 기초 재고 - RESERVE 합 + RELEASE 합 + RESTOCK 합.
// DEDUCT는 예약분의 확정이므로 여기에 포함하지 않는다.
func (r *inventoryRepository) AvailableStock(sku *model.Sku) (int, error) {
	var delta struct {
		Total int
	}
	if err := r.db.Model(&model.InventoryLog{}).
		Select(`COALESCE(SUM(CASE change_type
			WHEN 'RESERVE' THEN -quantity
			WHEN 'RELEASE' THEN quantity
			WHEN 'RESTOCK' THEN quantity
			ELSE 0 END), 0) as total`).
		Where("sku_id = ?", sku.ID).
		Scan(&delta).Error; err != nil {
		logger.Error("Failed to sum inventory ledger in database", err, map[string]interface{}{
			"sku_id": sku.ID,
		})
		return 0, err
	}

	return sku.InitialStock + delta.Total, nil
}

// OutstandingReserved 주문이 아직 쥐고 있는 예약 수량 = RESERVE 합 - RELEASE 합 - DEDUCT 합
func (r *inventoryRepository) OutstandingReserved(skuID, orderID uint) (int, error) {
	var delta struct {
		Total int
	}
	if err := r.db.Model(&model.InventoryLog{}).
		Select(`COALESCE(SUM(CASE change_type
			WHEN 'RESERVE' THEN quantity
			WHEN 'RELEASE' THEN -quantity
			WHEN 'DEDUCT' THEN -quantity
			ELSE 0 END), 0) as total`).
		Where("sku_id = ? AND order_id = ?", skuID, orderID).
		Scan(&delta).Error; err != nil {
		logger.Error("Failed to sum outstanding reservation in database", err, map[string]interface{}{
			"sku_id":   skuID,
			"order_id": orderID,
		})
		return 0, err
	}
	return delta.Total, nil
}

func (r *inventoryRepository) FindLogsByOrderID(orderID uint) ([]model.InventoryLog, error) {
	var logs []model.InventoryLog
	if err := r.db.Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&logs).Error; err != nil {
		logger.Error("Failed to find inventory logs by order ID in database", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}
	return logs, nil
}
