package repository

import (
	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShipmentRepository interface {
	Create(shipment *model.Shipment) error
	FindByID(id uint) (*model.Shipment, error)
	FindByShipmentNo(shipmentNo string) (*model.Shipment, error)
	FindByTrackingNo(trackingNo string) (*model.Shipment, error)
	FindByTrackingNoForUpdate(trackingNo string) (*model.Shipment, error)
	FindByOrderID(orderID uint) ([]model.Shipment, error)
	Update(shipment *model.Shipment) error
	CreateStatusLog(log *model.ShipmentStatusLog) error
	FindStatusLogs(shipmentID uint) ([]model.ShipmentStatusLog, error)
	EventExists(shipmentID uint, source model.EventSource, sourceRef string) (bool, error)
}

type shipmentRepository struct {
	db *gorm.DB
}

func NewShipmentRepository(db *gorm.DB) ShipmentRepository {
	return &shipmentRepository{db: db}
}

func (r *shipmentRepository) preloadShipment() *gorm.DB {
	return r.db.Preload("Items")
}

func (r *shipmentRepository) Create(shipment *model.Shipment) error {
	logger.Debug("Creating shipment in database", map[string]interface{}{
		"shipment_no": shipment.ShipmentNo,
		"order_id":    shipment.OrderID,
		"items":       len(shipment.Items),
	})

	if err := r.db.Create(shipment).Error; err != nil {
		logger.Error("Failed to create shipment in database", err, map[string]interface{}{
			"shipment_no": shipment.ShipmentNo,
			"order_id":    shipment.OrderID,
		})
		return err
	}

	logger.Debug("Shipment created in database", map[string]interface{}{
		"shipment_id": shipment.ID,
		"shipment_no": shipment.ShipmentNo,
	})
	return nil
}

func (r *shipmentRepository) FindByID(id uint) (*model.Shipment, error) {
	var shipment model.Shipment
	if err := r.preloadShipment().First(&shipment, id).Error; err != nil {
		logger.Error("Failed to find shipment by ID in database", err, map[string]interface{}{
			"shipment_id": id,
		})
		return nil, err
	}
	return &shipment, nil
}

func (r *shipmentRepository) FindByShipmentNo(shipmentNo string) (*model.Shipment, error) {
	var shipment model.Shipment
	if err := r.preloadShipment().Where("shipment_no = ?", shipmentNo).
		First(&shipment).Error; err != nil {
		logger.Error("Failed to find shipment by shipment no in database", err, map[string]interface{}{
			"shipment_no": shipmentNo,
		})
		return nil, err
	}
	return &shipment, nil
}

func (r *shipmentRepository) FindByTrackingNo(trackingNo string) (*model.Shipment, error) {
	var shipment model.Shipment
	if err := r.preloadShipment().Where("tracking_no = ?", trackingNo).
		First(&shipment).Error; err != nil {
		logger.Error("Failed to find shipment by tracking no in database", err, map[string]interface{}{
			"tracking_no": trackingNo,
		})
		return nil, err
	}
	return &shipment, nil
}

// FindByTrackingNoForUpdate 추적 이벤트 적용 중 동시 갱신을 막기 위한 행 잠금 조회
func (r *shipmentRepository) FindByTrackingNoForUpdate(trackingNo string) (*model.Shipment, error) {
	var shipment model.Shipment
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tracking_no = ?", trackingNo).
		First(&shipment).Error; err != nil {
		logger.Error("Failed to lock shipment by tracking no in database", err, map[string]interface{}{
			"tracking_no": trackingNo,
		})
		return nil, err
	}
	return &shipment, nil
}

// FindByOrderID 주문-배송 연관은 shipment_items를 기준으로 푼다.
// shipments.order_id는 발신 주문 힌트일 뿐이다.
func (r *shipmentRepository) FindByOrderID(orderID uint) ([]model.Shipment, error) {
	var shipments []model.Shipment
	if err := r.preloadShipment().
		Where("id IN (?)", r.db.Model(&model.ShipmentItem{}).
			Select("shipment_id").
			Where("order_id = ?", orderID)).
		Order("created_at ASC").
		Find(&shipments).Error; err != nil {
		logger.Error("Failed to find shipments by order ID in database", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}
	return shipments, nil
}

func (r *shipmentRepository) Update(shipment *model.Shipment) error {
	logger.Debug("Updating shipment in database", map[string]interface{}{
		"shipment_id": shipment.ID,
		"shipment_no": shipment.ShipmentNo,
		"status":      shipment.Status,
	})

	if err := r.db.Save(shipment).Error; err != nil {
		logger.Error("Failed to update shipment in database", err, map[string]interface{}{
			"shipment_id": shipment.ID,
			"shipment_no": shipment.ShipmentNo,
		})
		return err
	}
	return nil
}

func (r *shipmentRepository) CreateStatusLog(log *model.ShipmentStatusLog) error {
	logger.Debug("Creating shipment status log in database", map[string]interface{}{
		"shipment_id":  log.ShipmentID,
		"to_status":    log.ToStatus,
		"event_source": log.EventSource,
		"source_ref":   log.SourceRef,
	})

	if err := r.db.Create(log).Error; err != nil {
		logger.Error("Failed to create shipment status log in database", err, map[string]interface{}{
			"shipment_id": log.ShipmentID,
			"source_ref":  log.SourceRef,
		})
		return err
	}
	return nil
}

func (r *shipmentRepository) FindStatusLogs(shipmentID uint) ([]model.ShipmentStatusLog, error) {
	var logs []model.ShipmentStatusLog
	if err := r.db.Where("shipment_id = ?", shipmentID).
		Order("event_time ASC, id ASC").
		Find(&logs).Error; err != nil {
		logger.Error("Failed to find shipment status logs in database", err, map[string]interface{}{
			"shipment_id": shipmentID,
		})
		return nil, err
	}
	return logs, nil
}

// EventExists (shipment_id, event_source, source_ref) 키로 이미 처리한 이벤트인지 검사
func (r *shipmentRepository) EventExists(shipmentID uint, source model.EventSource, sourceRef string) (bool, error) {
	var count int64
	if err := r.db.Model(&model.ShipmentStatusLog{}).
		Where("shipment_id = ? AND event_source = ? AND source_ref = ?", shipmentID, source, sourceRef).
		Count(&count).Error; err != nil {
		logger.Error("Failed to check shipment event existence in database", err, map[string]interface{}{
			"shipment_id": shipmentID,
			"source_ref":  sourceRef,
		})
		return false, err
	}
	return count > 0, nil
}
