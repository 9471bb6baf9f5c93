package service

import (
	"errors"

	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/internal/app/repository"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrSkuNotFound       = errors.New("sku not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// SkuAvailability SKU 현재 가용 재고 조회 결과
type SkuAvailability struct {
	Sku       model.Sku `json:"sku"`
	Available int       `json:"available"`
}

// InventoryService 재고 원장 조작.
// Reserve/Deduct/Release/Restock은 호출 측 트랜잭션 안에서 실행돼야 하므로
// 트랜잭션 핸들을 인자로 받는다. 원장은 append-only이고 수량 열은 덮어쓰지 않는다.
type InventoryService interface {
	Reserve(tx *gorm.DB, skuCode string, orderID uint, quantity int, reason string) (*model.Sku, error)
	DeductOutstanding(tx *gorm.DB, skuID, orderID uint, reason string) (int, error)
	ReleaseOutstanding(tx *gorm.DB, skuID, orderID uint, reason string) (int, error)
	Restock(tx *gorm.DB, skuID, orderID uint, quantity int, reason string) error
	RestockByCode(skuCode string, quantity int, reason string) (*SkuAvailability, error)
	GetAvailability(skuCode string) (*SkuAvailability, error)
	ListAvailability() ([]SkuAvailability, error)
}

type inventoryService struct {
	invRepo repository.InventoryRepository
	db      *gorm.DB
}

func NewInventoryService(invRepo repository.InventoryRepository, db *gorm.DB) InventoryService {
	return &inventoryService{invRepo: invRepo, db: db}
}

// Reserve SKU 행을 잠근 뒤 가용 재고를 검사하고 RESERVE 기록을 남긴다.
func (s *inventoryService) Reserve(tx *gorm.DB, skuCode string, orderID uint, quantity int, reason string) (*model.Sku, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	repo := repository.NewInventoryRepository(tx)

	sku, err := repo.FindSkuByCodeForUpdate(skuCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Reserve failed: sku not found", map[string]interface{}{
				"sku_code": skuCode,
				"order_id": orderID,
			})
			return nil, ErrSkuNotFound
		}
		return nil, err
	}

	available, err := repo.AvailableStock(sku)
	if err != nil {
		return nil, err
	}
	if available < quantity {
		logger.Warn("Reserve failed: insufficient stock", map[string]interface{}{
			"sku_code":  skuCode,
			"order_id":  orderID,
			"requested": quantity,
			"available": available,
		})
		return nil, ErrInsufficientStock
	}

	if err := repo.AppendLog(&model.InventoryLog{
		SkuID:      sku.ID,
		OrderID:    orderID,
		ChangeType: model.InventoryChangeReserve,
		Quantity:   quantity,
		Reason:     reason,
	}); err != nil {
		return nil, err
	}

	logger.Debug("Stock reserved", map[string]interface{}{
		"sku_code": skuCode,
		"order_id": orderID,
		"quantity": quantity,
	})
	return sku, nil
}

// DeductOutstanding 주문이 쥐고 있는 예약 전량을 DEDUCT로 확정한다.
// 확정할 예약이 없으면 아무것도 기록하지 않는다.
func (s *inventoryService) DeductOutstanding(tx *gorm.DB, skuID, orderID uint, reason string) (int, error) {
	repo := repository.NewInventoryRepository(tx)

	outstanding, err := repo.OutstandingReserved(skuID, orderID)
	if err != nil {
		return 0, err
	}
	if outstanding <= 0 {
		return 0, nil
	}

	if err := repo.AppendLog(&model.InventoryLog{
		SkuID:      skuID,
		OrderID:    orderID,
		ChangeType: model.InventoryChangeDeduct,
		Quantity:   outstanding,
		Reason:     reason,
	}); err != nil {
		return 0, err
	}

	logger.Debug("Reserved stock deducted", map[string]interface{}{
		"sku_id":   skuID,
		"order_id": orderID,
		"quantity": outstanding,
	})
	return outstanding, nil
}

// ReleaseOutstanding 주문이 쥐고 있는 예약 전량을 RELEASE로 되돌린다.
// 이미 해제/확정된 주문에 다시 불려도 기록이 중복되지 않는다.
func (s *inventoryService) ReleaseOutstanding(tx *gorm.DB, skuID, orderID uint, reason string) (int, error) {
	repo := repository.NewInventoryRepository(tx)

	outstanding, err := repo.OutstandingReserved(skuID, orderID)
	if err != nil {
		return 0, err
	}
	if outstanding <= 0 {
		return 0, nil
	}

	if err := repo.AppendLog(&model.InventoryLog{
		SkuID:      skuID,
		OrderID:    orderID,
		ChangeType: model.InventoryChangeRelease,
		Quantity:   outstanding,
		Reason:     reason,
	}); err != nil {
		return 0, err
	}

	logger.Debug("Reserved stock released", map[string]interface{}{
		"sku_id":   skuID,
		"order_id": orderID,
		"quantity": outstanding,
	})
	return outstanding, nil
}

// Restock 환불 등으로 재고를 다시 가용분에 더한다.
func (s *inventoryService) Restock(tx *gorm.DB, skuID, orderID uint, quantity int, reason string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	repo := repository.NewInventoryRepository(tx)
	if err := repo.AppendLog(&model.InventoryLog{
		SkuID:      skuID,
		OrderID:    orderID,
		ChangeType: model.InventoryChangeRestock,
		Quantity:   quantity,
		Reason:     reason,
	}); err != nil {
		return err
	}

	logger.Debug("Stock restocked", map[string]interface{}{
		"sku_id":   skuID,
		"order_id": orderID,
		"quantity": quantity,
	})
	return nil
}

// RestockByCode 관리자 수동 입고. 주문과 무관하므로 OrderID 없이 기록한다.
func (s *inventoryService) RestockByCode(skuCode string, quantity int, reason string) (*SkuAvailability, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	repo := repository.NewInventoryRepository(tx)

	sku, err := repo.FindSkuByCodeForUpdate(skuCode)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSkuNotFound
		}
		return nil, err
	}

	if err := repo.AppendLog(&model.InventoryLog{
		SkuID:      sku.ID,
		ChangeType: model.InventoryChangeRestock,
		Quantity:   quantity,
		Reason:     reason,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.Info("Stock restocked manually", map[string]interface{}{
		"sku_code": skuCode,
		"quantity": quantity,
	})

	return s.GetAvailability(skuCode)
}

func (s *inventoryService) GetAvailability(skuCode string) (*SkuAvailability, error) {
	sku, err := s.invRepo.FindSkuByCode(skuCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSkuNotFound
		}
		return nil, err
	}

	available, err := s.invRepo.AvailableStock(sku)
	if err != nil {
		return nil, err
	}
	return &SkuAvailability{Sku: *sku, Available: available}, nil
}

func (s *inventoryService) ListAvailability() ([]SkuAvailability, error) {
	skus, err := s.invRepo.ListSkus()
	if err != nil {
		return nil, err
	}

	result := make([]SkuAvailability, 0, len(skus))
	for i := range skus {
		available, err := s.invRepo.AvailableStock(&skus[i])
		if err != nil {
			return nil, err
		}
		result = append(result, SkuAvailability{Sku: skus[i], Available: available})
	}
	return result, nil
}
