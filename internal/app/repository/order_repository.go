package repository

import (
	"time"

	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(order *model.Order) error
	FindByID(id uint) (*model.Order, error)
	FindByOrderNo(orderNo string) (*model.Order, error)
	List(status string, limit, offset int) ([]model.Order, int64, error)
	Update(order *model.Order) error
	CreateStatusLog(log *model.OrderStatusLog) error
	FindStatusLogs(orderID uint) ([]model.OrderStatusLog, error)
	FindPaymentTimedOut(deadline time.Time, limit int) ([]model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) preloadOrder() *gorm.DB {
	return r.db.Preload("Items")
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"order_no":   order.OrderNo,
		"pay_amount": order.PayAmount,
		"currency":   order.Currency,
	})

	if err := r.db.Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"order_no": order.OrderNo,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id": order.ID,
		"order_no": order.OrderNo,
	})
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.preloadOrder().First(&order, id).Error; err != nil {
		logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}

	logger.Debug("Order found by ID in database", map[string]interface{}{
		"order_id": order.ID,
		"order_no": order.OrderNo,
		"status":   order.Status,
	})
	return &order, nil
}

func (r *orderRepository) FindByOrderNo(orderNo string) (*model.Order, error) {
	logger.Debug("Finding order by order no in database", map[string]interface{}{
		"order_no": orderNo,
	})

	var order model.Order
	if err := r.preloadOrder().Where("order_no = ?", orderNo).
		First(&order).Error; err != nil {
		logger.Error("Failed to find order by order no in database", err, map[string]interface{}{
			"order_no": orderNo,
		})
		return nil, err
	}

	logger.Debug("Order found by order no in database", map[string]interface{}{
		"order_id": order.ID,
		"order_no": order.OrderNo,
		"status":   order.Status,
	})
	return &order, nil
}

func (r *orderRepository) List(status string, limit, offset int) ([]model.Order, int64, error) {
	logger.Debug("Listing orders in database", map[string]interface{}{
		"status": status,
		"limit":  limit,
		"offset": offset,
	})

	query := r.db.Model(&model.Order{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count orders in database", err, map[string]interface{}{
			"status": status,
		})
		return nil, 0, err
	}

	var orders []model.Order
	if err := query.Preload("Items").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		logger.Error("Failed to list orders in database", err, map[string]interface{}{
			"status": status,
		})
		return nil, 0, err
	}

	logger.Debug("Orders listed in database", map[string]interface{}{
		"status": status,
		"count":  len(orders),
		"total":  total,
	})
	return orders, total, nil
}

func (r *orderRepository) Update(order *model.Order) error {
	logger.Debug("Updating order in database", map[string]interface{}{
		"order_id": order.ID,
		"order_no": order.OrderNo,
		"status":   order.Status,
	})

	if err := r.db.Save(order).Error; err != nil {
		logger.Error("Failed to update order in database", err, map[string]interface{}{
			"order_id": order.ID,
			"order_no": order.OrderNo,
		})
		return err
	}

	logger.Debug("Order updated in database", map[string]interface{}{
		"order_id": order.ID,
		"order_no": order.OrderNo,
		"status":   order.Status,
	})
	return nil
}

func (r *orderRepository) CreateStatusLog(log *model.OrderStatusLog) error {
	logger.Debug("Creating order status log in database", map[string]interface{}{
		"order_id":     log.OrderID,
		"to_status":    log.ToStatus,
		"event_source": log.EventSource,
	})

	if err := r.db.Create(log).Error; err != nil {
		logger.Error("Failed to create order status log in database", err, map[string]interface{}{
			"order_id":  log.OrderID,
			"to_status": log.ToStatus,
		})
		return err
	}
	return nil
}

func (r *orderRepository) FindStatusLogs(orderID uint) ([]model.OrderStatusLog, error) {
	logger.Debug("Finding order status logs in database", map[string]interface{}{
		"order_id": orderID,
	})

	var logs []model.OrderStatusLog
	if err := r.db.Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&logs).Error; err != nil {
		logger.Error("Failed to find order status logs in database", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}

	logger.Debug("Order status logs found in database", map[string]interface{}{
		"order_id": orderID,
		"count":    len(logs),
	})
	return logs, nil
}

// FindPaymentTimedOut 결제 대기 시간이 지난 주문 조회 (오래된 순)
func (r *orderRepository) FindPaymentTimedOut(deadline time.Time, limit int) ([]model.Order, error) {
	logger.Debug("Finding payment timed out orders in database", map[string]interface{}{
		"deadline": deadline,
		"limit":    limit,
	})

	var orders []model.Order
	if err := r.db.Where("status IN ?", []model.OrderStatus{
		model.OrderStatusCreated,
		model.OrderStatusPendingPayment,
	}).Where("created_at < ?", deadline).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find payment timed out orders in database", err, map[string]interface{}{
			"deadline": deadline,
		})
		return nil, err
	}

	logger.Debug("Payment timed out orders found in database", map[string]interface{}{
		"count": len(orders),
	})
	return orders, nil
}
