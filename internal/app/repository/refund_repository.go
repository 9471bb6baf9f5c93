package repository

import (
	"time"

	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RefundRepository interface {
	Create(refund *model.RefundOrder) error
	FindByID(id uint) (*model.RefundOrder, error)
	FindByRefundNo(refundNo string) (*model.RefundOrder, error)
	FindByExternalRefundID(externalRefundID string) (*model.RefundOrder, error)
	FindByExternalRefundIDForUpdate(externalRefundID string) (*model.RefundOrder, error)
	FindByOrderID(orderID uint) ([]model.RefundOrder, error)
	Update(refund *model.RefundOrder) error
	SumRefundedByOrderItem(orderID uint) (map[uint]int, error)
	SumRefundedShipping(orderID uint) (int64, error)
	FindStaleOpen(cutoff time.Time, limit int) ([]model.RefundOrder, error)
}

type refundRepository struct {
	db *gorm.DB
}

func NewRefundRepository(db *gorm.DB) RefundRepository {
	return &refundRepository{db: db}
}

func (r *refundRepository) preloadRefund() *gorm.DB {
	return r.db.Preload("Items")
}

func (r *refundRepository) Create(refund *model.RefundOrder) error {
	logger.Debug("Creating refund order in database", map[string]interface{}{
		"refund_no": refund.RefundNo,
		"order_id":  refund.OrderID,
		"amount":    refund.Amount,
	})

	if err := r.db.Create(refund).Error; err != nil {
		logger.Error("Failed to create refund order in database", err, map[string]interface{}{
			"refund_no": refund.RefundNo,
			"order_id":  refund.OrderID,
		})
		return err
	}
	return nil
}

func (r *refundRepository) FindByID(id uint) (*model.RefundOrder, error) {
	var refund model.RefundOrder
	if err := r.preloadRefund().First(&refund, id).Error; err != nil {
		logger.Error("Failed to find refund order by ID in database", err, map[string]interface{}{
			"refund_id": id,
		})
		return nil, err
	}
	return &refund, nil
}

func (r *refundRepository) FindByRefundNo(refundNo string) (*model.RefundOrder, error) {
	var refund model.RefundOrder
	if err := r.preloadRefund().Where("refund_no = ?", refundNo).
		First(&refund).Error; err != nil {
		logger.Error("Failed to find refund order by refund no in database", err, map[string]interface{}{
			"refund_no": refundNo,
		})
		return nil, err
	}
	return &refund, nil
}

func (r *refundRepository) FindByExternalRefundID(externalRefundID string) (*model.RefundOrder, error) {
	var refund model.RefundOrder
	if err := r.db.Where("external_refund_id = ?", externalRefundID).
		First(&refund).Error; err != nil {
		logger.Error("Failed to find refund order by external refund ID in database", err, map[string]interface{}{
			"external_refund_id": externalRefundID,
		})
		return nil, err
	}
	return &refund, nil
}

// FindByExternalRefundIDForUpdate 웹훅/폴링 중복 적용을 막기 위한 행 잠금 조회
func (r *refundRepository) FindByExternalRefundIDForUpdate(externalRefundID string) (*model.RefundOrder, error) {
	var refund model.RefundOrder
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_refund_id = ?", externalRefundID).
		First(&refund).Error; err != nil {
		logger.Error("Failed to lock refund order by external refund ID in database", err, map[string]interface{}{
			"external_refund_id": externalRefundID,
		})
		return nil, err
	}
	return &refund, nil
}

func (r *refundRepository) FindByOrderID(orderID uint) ([]model.RefundOrder, error) {
	var refunds []model.RefundOrder
	if err := r.preloadRefund().Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&refunds).Error; err != nil {
		logger.Error("Failed to find refund orders by order ID in database", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}
	return refunds, nil
}

func (r *refundRepository) Update(refund *model.RefundOrder) error {
	logger.Debug("Updating refund order in database", map[string]interface{}{
		"refund_id": refund.ID,
		"refund_no": refund.RefundNo,
		"status":    refund.Status,
	})

	if err := r.db.Save(refund).Error; err != nil {
		logger.Error("Failed to update refund order in database", err, map[string]interface{}{
			"refund_id": refund.ID,
			"refund_no": refund.RefundNo,
		})
		return err
	}
	return nil
}

// SumRefundedByOrderItem 주문 항목별 환불 확정/진행 수량 합계.
// FAIL로 끝난 환불은 제외한다.
func (r *refundRepository) SumRefundedByOrderItem(orderID uint) (map[uint]int, error) {
	rows := []struct {
		OrderItemID uint
		Total       int
	}{}
	if err := r.db.Model(&model.RefundItem{}).
		Select("refund_items.order_item_id, COALESCE(SUM(refund_items.quantity), 0) as total").
		Joins("JOIN refund_orders ON refund_orders.id = refund_items.refund_order_id").
		Where("refund_orders.order_id = ? AND refund_orders.status <> ?", orderID, model.RefundStatusFail).
		Group("refund_items.order_item_id").
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to sum refunded quantities in database", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}

	totals := make(map[uint]int, len(rows))
	for _, row := range rows {
		totals[row.OrderItemID] = row.Total
	}
	return totals, nil
}

// SumRefundedShipping 주문에 대해 이미 환불(진행 포함)된 배송비 합계
func (r *refundRepository) SumRefundedShipping(orderID uint) (int64, error) {
	var result struct {
		Total int64
	}
	if err := r.db.Model(&model.RefundOrder{}).
		Select("COALESCE(SUM(shipping_amount), 0) as total").
		Where("order_id = ? AND status <> ?", orderID, model.RefundStatusFail).
		Scan(&result).Error; err != nil {
		logger.Error("Failed to sum refunded shipping in database", err, map[string]interface{}{
			"order_id": orderID,
		})
		return 0, err
	}
	return result.Total, nil
}

// FindStaleOpen 게이트웨이 결론이 오지 않은 환불 조회 (대사 작업용)
func (r *refundRepository) FindStaleOpen(cutoff time.Time, limit int) ([]model.RefundOrder, error) {
	logger.Debug("Finding stale open refund orders in database", map[string]interface{}{
		"cutoff": cutoff,
		"limit":  limit,
	})

	var refunds []model.RefundOrder
	if err := r.db.Where("status IN ? AND updated_at < ?", []model.RefundStatus{
		model.RefundStatusInit,
		model.RefundStatusPending,
	}, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&refunds).Error; err != nil {
		logger.Error("Failed to find stale open refund orders in database", err, nil)
		return nil, err
	}

	logger.Debug("Stale open refund orders found in database", map[string]interface{}{
		"count": len(refunds),
	})
	return refunds, nil
}
