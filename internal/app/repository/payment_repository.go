package repository

import (
	"time"

	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	Create(payment *model.PaymentOrder) error
	FindByID(id uint) (*model.PaymentOrder, error)
	FindByPaymentNo(paymentNo string) (*model.PaymentOrder, error)
	FindByExternalID(externalID string) (*model.PaymentOrder, error)
	FindByExternalIDForUpdate(externalID string) (*model.PaymentOrder, error)
	FindOpenByOrderID(orderID uint) ([]model.PaymentOrder, error)
	FindByOrderID(orderID uint) ([]model.PaymentOrder, error)
	Update(payment *model.PaymentOrder) error
	FindStalePending(cutoff time.Time, limit int) ([]model.PaymentOrder, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(payment *model.PaymentOrder) error {
	logger.Debug("Creating payment order in database", map[string]interface{}{
		"payment_no": payment.PaymentNo,
		"order_id":   payment.OrderID,
		"amount":     payment.Amount,
	})

	if err := r.db.Create(payment).Error; err != nil {
		logger.Error("Failed to create payment order in database", err, map[string]interface{}{
			"payment_no": payment.PaymentNo,
			"order_id":   payment.OrderID,
		})
		return err
	}
	return nil
}

func (r *paymentRepository) FindByID(id uint) (*model.PaymentOrder, error) {
	var payment model.PaymentOrder
	if err := r.db.First(&payment, id).Error; err != nil {
		logger.Error("Failed to find payment order by ID in database", err, map[string]interface{}{
			"payment_id": id,
		})
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByPaymentNo(paymentNo string) (*model.PaymentOrder, error) {
	var payment model.PaymentOrder
	if err := r.db.Where("payment_no = ?", paymentNo).First(&payment).Error; err != nil {
		logger.Error("Failed to find payment order by payment no in database", err, map[string]interface{}{
			"payment_no": paymentNo,
		})
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByExternalID(externalID string) (*model.PaymentOrder, error) {
	var payment model.PaymentOrder
	if err := r.db.Where("external_id = ?", externalID).First(&payment).Error; err != nil {
		logger.Error("Failed to find payment order by external ID in database", err, map[string]interface{}{
			"external_id": externalID,
		})
		return nil, err
	}
	return &payment, nil
}

// FindByExternalIDForUpdate 웹훅/폴링 중복 적용을 막기 위한 행 잠금 조회
func (r *paymentRepository) FindByExternalIDForUpdate(externalID string) (*model.PaymentOrder, error) {
	var payment model.PaymentOrder
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_id = ?", externalID).
		First(&payment).Error; err != nil {
		logger.Error("Failed to lock payment order by external ID in database", err, map[string]interface{}{
			"external_id": externalID,
		})
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindOpenByOrderID(orderID uint) ([]model.PaymentOrder, error) {
	var payments []model.PaymentOrder
	if err := r.db.Where("order_id = ? AND status IN ?", orderID, []model.PaymentStatus{
		model.PaymentStatusInit,
		model.PaymentStatusPending,
	}).Find(&payments).Error; err != nil {
		logger.Error("Failed to find open payment orders in database", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) FindByOrderID(orderID uint) ([]model.PaymentOrder, error) {
	var payments []model.PaymentOrder
	if err := r.db.Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		logger.Error("Failed to find payment orders by order ID in database", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) Update(payment *model.PaymentOrder) error {
	logger.Debug("Updating payment order in database", map[string]interface{}{
		"payment_id": payment.ID,
		"payment_no": payment.PaymentNo,
		"status":     payment.Status,
	})

	if err := r.db.Save(payment).Error; err != nil {
		logger.Error("Failed to update payment order in database", err, map[string]interface{}{
			"payment_id": payment.ID,
			"payment_no": payment.PaymentNo,
		})
		return err
	}
	return nil
}

// FindStalePending 웹훅이 오지 않아 PENDING에 머문 시도 조회 (대사 작업용)
func (r *paymentRepository) FindStalePending(cutoff time.Time, limit int) ([]model.PaymentOrder, error) {
	logger.Debug("Finding stale pending payment orders in database", map[string]interface{}{
		"cutoff": cutoff,
		"limit":  limit,
	})

	var payments []model.PaymentOrder
	if err := r.db.Where("status = ? AND external_id IS NOT NULL AND updated_at < ?",
		model.PaymentStatusPending, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&payments).Error; err != nil {
		logger.Error("Failed to find stale pending payment orders in database", err, nil)
		return nil, err
	}

	logger.Debug("Stale pending payment orders found in database", map[string]interface{}{
		"count": len(payments),
	})
	return payments, nil
}
