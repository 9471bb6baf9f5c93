package service

import (
	"context"
	"errors"
	"time"

	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/internal/app/repository"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"github.com/eason8811/international-shopping-sub004/pkg/number"
	redispkg "github.com/eason8811/international-shopping-sub004/pkg/redis"
	"github.com/eason8811/international-shopping-sub004/pkg/tracking/seventeentrack"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrShipmentNotFound      = errors.New("shipment not found")
	ErrEmptyShipmentItems    = errors.New("shipment has no items")
	ErrShipmentExceedsOrder  = errors.New("shipment quantity exceeds order")
	ErrOrderNotShippable     = errors.New("order is not ready for shipping")
	ErrWebhookReplayInFlight = errors.New("webhook payload is being processed")
)

// inflightTTL 웹훅 처리 중 잠금 유지 시간
const inflightTTL = 2 * time.Minute

// CreateShipmentItemRequest 배송 생성 항목
type CreateShipmentItemRequest struct {
	OrderItemID uint `json:"order_item_id" binding:"required"`
	Quantity    int  `json:"quantity" binding:"required,gt=0"`
}

// CreateShipmentRequest 배송 생성 요청. 포장/통관 스냅샷은 선택 입력이다.
type CreateShipmentRequest struct {
	OrderNo        string                      `json:"order_no"`
	Items          []CreateShipmentItemRequest `json:"items" binding:"required,dive"`
	CarrierCode    string                      `json:"carrier_code"`
	TrackingNo     string                      `json:"tracking_no"`
	WeightGram     int                         `json:"weight_gram" binding:"omitempty,gte=0"`
	LengthCm       int                         `json:"length_cm" binding:"omitempty,gte=0"`
	WidthCm        int                         `json:"width_cm" binding:"omitempty,gte=0"`
	HeightCm       int                         `json:"height_cm" binding:"omitempty,gte=0"`
	DeclaredAmount int64                       `json:"declared_amount" binding:"omitempty,gte=0"`
	CustomsNote    string                      `json:"customs_note"`
}

type ShipmentService interface {
	CreateShipment(req CreateShipmentRequest) (*model.Shipment, error)
	RegisterTracking(shipmentNo, carrierCode, trackingNo string) (*model.Shipment, error)
	GetByShipmentNo(shipmentNo string) (*model.Shipment, error)
	ListByOrderNo(orderNo string) ([]model.Shipment, error)
	GetTrack(shipmentNo string) ([]model.ShipmentStatusLog, error)
	IngestTrackingEvent(trackingNo string, event model.TrackingEvent) (ApplyResult, error)
	IngestCarrierWebhook(ctx context.Context, body []byte, signature string) (ApplyResult, error)
}

type shipmentService struct {
	shipmentRepo repository.ShipmentRepository
	orderRepo    repository.OrderRepository
	db           *gorm.DB
	apiKey       string
	replayTTL    time.Duration
}

func NewShipmentService(
	shipmentRepo repository.ShipmentRepository,
	orderRepo repository.OrderRepository,
	db *gorm.DB,
	apiKey string,
	replayTTL time.Duration,
) ShipmentService {
	return &shipmentService{
		shipmentRepo: shipmentRepo,
		orderRepo:    orderRepo,
		db:           db,
		apiKey:       apiKey,
		replayTTL:    replayTTL,
	}
}

// CreateShipment 배송 생성. 항목이 없는 배송은 거부하고, 항목별 수량은
// 주문 수량에서 이미 배송에 실린 수량을 뺀 범위 안이어야 한다.
func (s *shipmentService) CreateShipment(req CreateShipmentRequest) (*model.Shipment, error) {
	logger.Info("Creating shipment", map[string]interface{}{
		"order_no":   req.OrderNo,
		"item_count": len(req.Items),
	})

	if len(req.Items) == 0 {
		return nil, ErrEmptyShipmentItems
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var order model.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_no = ?", req.OrderNo).
		First(&order).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.Status != model.OrderStatusPaid && order.Status != model.OrderStatusFulfilled {
		tx.Rollback()
		logger.Warn("Shipment rejected: order not shippable", map[string]interface{}{
			"order_no": order.OrderNo,
			"status":   order.Status,
		})
		return nil, ErrOrderNotShippable
	}

	var items []model.OrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	itemsByID := make(map[uint]model.OrderItem, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	// 기존 배송에 이미 실린 수량
	shipped := map[uint]int{}
	rows := []struct {
		OrderItemID uint
		Total       int
	}{}
	if err := tx.Model(&model.ShipmentItem{}).
		Select("shipment_items.order_item_id, COALESCE(SUM(shipment_items.quantity), 0) as total").
		Joins("JOIN shipments ON shipments.id = shipment_items.shipment_id").
		Where("shipment_items.order_id = ? AND shipments.status NOT IN ?", order.ID, []model.ShipmentStatus{
			model.ShipmentStatusCancelled,
		}).
		Group("shipment_items.order_item_id").
		Scan(&rows).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, row := range rows {
		shipped[row.OrderItemID] = row.Total
	}

	shipmentItems := make([]model.ShipmentItem, 0, len(req.Items))
	for _, reqItem := range req.Items {
		item, ok := itemsByID[reqItem.OrderItemID]
		if !ok {
			tx.Rollback()
			return nil, ErrShipmentExceedsOrder
		}
		remaining := item.Quantity - shipped[item.ID]
		if reqItem.Quantity <= 0 || reqItem.Quantity > remaining {
			tx.Rollback()
			logger.Warn("Shipment rejected: quantity exceeds order", map[string]interface{}{
				"order_no":      order.OrderNo,
				"order_item_id": item.ID,
				"requested":     reqItem.Quantity,
				"remaining":     remaining,
			})
			return nil, ErrShipmentExceedsOrder
		}
		shipmentItems = append(shipmentItems, model.ShipmentItem{
			OrderID:     order.ID,
			OrderItemID: item.ID,
			SkuID:       item.SkuID,
			Quantity:    reqItem.Quantity,
		})
	}

	shipment := &model.Shipment{
		ShipmentNo:     number.New(),
		OrderID:        order.ID,
		CarrierCode:    req.CarrierCode,
		TrackingNo:     req.TrackingNo,
		Status:         model.ShipmentStatusCreated,
		WeightGram:     req.WeightGram,
		LengthCm:       req.LengthCm,
		WidthCm:        req.WidthCm,
		HeightCm:       req.HeightCm,
		DeclaredAmount: req.DeclaredAmount,
		CustomsNote:    req.CustomsNote,
		Items:          shipmentItems,
	}
	if req.DeclaredAmount > 0 {
		shipment.DeclaredCurrency = order.Currency
	}
	if err := tx.Create(shipment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Create(&model.ShipmentStatusLog{
		ShipmentID:  shipment.ID,
		EventSource: model.EventSourceAdmin,
		SourceRef:   "create:" + shipment.ShipmentNo,
		ToStatus:    model.ShipmentStatusCreated,
		EventTime:   time.Now(),
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.Info("Shipment created", map[string]interface{}{
		"shipment_no": shipment.ShipmentNo,
		"order_no":    order.OrderNo,
	})
	return shipment, nil
}

// RegisterTracking 운송장 발급 처리. 택배사와 운송장 번호를 기록하고
// LABEL_CREATED로 전이시킨다.
func (s *shipmentService) RegisterTracking(shipmentNo, carrierCode, trackingNo string) (*model.Shipment, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var shipment model.Shipment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("shipment_no = ?", shipmentNo).
		First(&shipment).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShipmentNotFound
		}
		return nil, err
	}

	if !shipment.CanTransit(model.ShipmentStatusLabelCreated) {
		tx.Rollback()
		return nil, model.ErrInvalidTransition
	}

	from := shipment.Status
	now := time.Now()
	shipment.CarrierCode = carrierCode
	shipment.TrackingNo = trackingNo
	shipment.ApplyTransition(model.ShipmentStatusLabelCreated, now)

	if err := tx.Save(&shipment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Create(&model.ShipmentStatusLog{
		ShipmentID:  shipment.ID,
		EventSource: model.EventSourceAdmin,
		SourceRef:   "dispatch:" + shipment.ShipmentNo,
		FromStatus:  from,
		ToStatus:    shipment.Status,
		EventTime:   now,
		Note:        "tracking " + trackingNo,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.Info("Tracking registered", map[string]interface{}{
		"shipment_no": shipment.ShipmentNo,
		"carrier":     carrierCode,
		"tracking_no": trackingNo,
	})
	return &shipment, nil
}

func (s *shipmentService) GetByShipmentNo(shipmentNo string) (*model.Shipment, error) {
	shipment, err := s.shipmentRepo.FindByShipmentNo(shipmentNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShipmentNotFound
		}
		return nil, err
	}
	return shipment, nil
}

func (s *shipmentService) ListByOrderNo(orderNo string) ([]model.Shipment, error) {
	order, err := s.orderRepo.FindByOrderNo(orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return s.shipmentRepo.FindByOrderID(order.ID)
}

func (s *shipmentService) GetTrack(shipmentNo string) ([]model.ShipmentStatusLog, error) {
	shipment, err := s.GetByShipmentNo(shipmentNo)
	if err != nil {
		return nil, err
	}
	return s.shipmentRepo.FindStatusLogs(shipment.ID)
}

// IngestTrackingEvent 정규화된 추적 이벤트를 반영한다.
// 같은 (출처, 참조) 이벤트는 한 번만 적용되고, 역행 이벤트는 이력만 남는다.
// 모든 배송이 배달 완료되면 주문을 FULFILLED로 전이시킨다.
func (s *shipmentService) IngestTrackingEvent(trackingNo string, event model.TrackingEvent) (ApplyResult, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var shipment model.Shipment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tracking_no = ?", trackingNo).
		First(&shipment).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Tracking event for unknown shipment", map[string]interface{}{
				"tracking_no": trackingNo,
			})
			return ApplyResultRejected, nil
		}
		return "", err
	}

	txShipmentRepo := repository.NewShipmentRepository(tx)
	seen, err := txShipmentRepo.EventExists(shipment.ID, event.Source, event.SourceRef)
	if err != nil {
		tx.Rollback()
		return "", err
	}
	if seen {
		tx.Rollback()
		logger.Debug("Tracking event already processed", map[string]interface{}{
			"shipment_no": shipment.ShipmentNo,
			"source_ref":  event.SourceRef,
		})
		return ApplyResultAlreadyApplied, nil
	}

	logEntry := &model.ShipmentStatusLog{
		ShipmentID:  shipment.ID,
		EventSource: event.Source,
		SourceRef:   event.SourceRef,
		FromStatus:  shipment.Status,
		ToStatus:    shipment.Status,
		EventTime:   event.EventTime,
		Note:        event.Note,
		RawPayload:  event.RawPayload,
	}

	// 전이 목표가 없는 이벤트는 이력만 남긴다
	if event.TargetStatus == nil {
		if err := txShipmentRepo.CreateStatusLog(logEntry); err != nil {
			tx.Rollback()
			return "", err
		}
		if err := tx.Commit().Error; err != nil {
			return "", err
		}
		return ApplyResultApplied, nil
	}

	target := *event.TargetStatus

	if shipment.Status == target {
		if err := txShipmentRepo.CreateStatusLog(logEntry); err != nil {
			tx.Rollback()
			return "", err
		}
		if err := tx.Commit().Error; err != nil {
			return "", err
		}
		return ApplyResultAlreadyApplied, nil
	}

	if shipment.Status.Terminal() {
		tx.Rollback()
		logger.Warn("Tracking event rejected: shipment in terminal state", map[string]interface{}{
			"shipment_no": shipment.ShipmentNo,
			"status":      shipment.Status,
			"target":      target,
		})
		return ApplyResultRejected, nil
	}

	if !shipment.CanTransit(target) {
		// 역행 이벤트는 상태를 건드리지 않고 이력만 남긴다
		if err := txShipmentRepo.CreateStatusLog(logEntry); err != nil {
			tx.Rollback()
			return "", err
		}
		if err := tx.Commit().Error; err != nil {
			return "", err
		}
		logger.Debug("Out of order tracking event recorded without transition", map[string]interface{}{
			"shipment_no": shipment.ShipmentNo,
			"status":      shipment.Status,
			"target":      target,
		})
		return ApplyResultAlreadyApplied, nil
	}

	from := shipment.Status
	shipment.ApplyTransition(target, event.EventTime)
	if event.CarrierCode != "" && shipment.CarrierCode == "" {
		shipment.CarrierCode = event.CarrierCode
	}
	if err := tx.Save(&shipment).Error; err != nil {
		tx.Rollback()
		return "", err
	}

	logEntry.FromStatus = from
	logEntry.ToStatus = shipment.Status
	if err := txShipmentRepo.CreateStatusLog(logEntry); err != nil {
		tx.Rollback()
		return "", err
	}

	if target == model.ShipmentStatusDelivered {
		if err := s.fulfillOrderIfDelivered(tx, &shipment, event); err != nil {
			tx.Rollback()
			return "", err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return "", err
	}

	logger.Info("Tracking event applied", map[string]interface{}{
		"shipment_no": shipment.ShipmentNo,
		"from_status": from,
		"to_status":   shipment.Status,
	})
	return ApplyResultApplied, nil
}

// fulfillOrderIfDelivered 주문 항목 전 수량이 배달 완료된 배송에 실려 있을 때만
// 주문을 이행 완료로 전이시킨다. 아직 실리지 않은 항목이 있으면 건드리지 않는다.
// 주문이 이미 다른 상태로 넘어가 있으면 조용히 넘어간다.
func (s *shipmentService) fulfillOrderIfDelivered(tx *gorm.DB, shipment *model.Shipment, event model.TrackingEvent) error {
	var items []model.OrderItem
	if err := tx.Where("order_id = ?", shipment.OrderID).Find(&items).Error; err != nil {
		return err
	}

	delivered := map[uint]int{}
	rows := []struct {
		OrderItemID uint
		Total       int
	}{}
	if err := tx.Model(&model.ShipmentItem{}).
		Select("shipment_items.order_item_id, COALESCE(SUM(shipment_items.quantity), 0) as total").
		Joins("JOIN shipments ON shipments.id = shipment_items.shipment_id").
		Where("shipment_items.order_id = ? AND shipments.status = ?", shipment.OrderID, model.ShipmentStatusDelivered).
		Group("shipment_items.order_item_id").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		delivered[row.OrderItemID] = row.Total
	}

	for _, item := range items {
		if delivered[item.ID] < item.Quantity {
			return nil
		}
	}

	var order model.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, shipment.OrderID).Error; err != nil {
		return err
	}

	from := order.Status
	if err := order.MarkFulfilled(event.EventTime); err != nil {
		logger.Debug("Order not fulfillable on delivery", map[string]interface{}{
			"order_id": order.ID,
			"status":   order.Status,
		})
		return nil
	}
	if err := tx.Save(&order).Error; err != nil {
		return err
	}
	return tx.Create(model.NewOrderStatusLog(order.ID, event.Source, &from, order.Status, "shipment "+shipment.ShipmentNo+" delivered")).Error
}

// IngestCarrierWebhook 물류 웹훅 수신 경로. 서명 검증과 원문 해시 기반
// 재전송 차단을 거친 뒤 정규화된 이벤트로 반영한다.
func (s *shipmentService) IngestCarrierWebhook(ctx context.Context, body []byte, signature string) (ApplyResult, error) {
	if s.apiKey != "" {
		if err := seventeentrack.VerifySignature(body, s.apiKey, signature); err != nil {
			logger.Warn("Carrier webhook signature verification failed", nil)
			return ApplyResultRejected, err
		}
	}

	push, err := seventeentrack.ParsePush(body)
	if err != nil {
		logger.Warn("Malformed carrier webhook", map[string]interface{}{
			"error": err.Error(),
		})
		return ApplyResultRejected, err
	}

	dedupeKey := seventeentrack.DedupeKey(body)
	gated := redispkg.GetClient() != nil
	if gated {
		state, err := redispkg.TryEnterProcessing(ctx, dedupeKey, inflightTTL)
		if err != nil {
			return "", err
		}
		switch state {
		case redispkg.DedupeAlreadyProcessed:
			return ApplyResultAlreadyApplied, nil
		case redispkg.DedupeProcessing:
			return ApplyResultRejected, ErrWebhookReplayInFlight
		}
	}

	result, err := s.applyPush(push, body)
	if gated {
		if err != nil {
			if clearErr := redispkg.ClearProcessing(ctx, dedupeKey); clearErr != nil {
				logger.Error("Failed to release webhook claim", clearErr, nil)
			}
		} else if markErr := redispkg.MarkProcessed(ctx, dedupeKey, s.replayTTL); markErr != nil {
			logger.Error("Failed to mark webhook processed", markErr, nil)
		}
	}
	return result, err
}

func (s *shipmentService) applyPush(push *seventeentrack.Push, body []byte) (ApplyResult, error) {
	status := push.Data.TrackInfo.LatestStatus

	// 늦은 캐리어 등록이 만드는 유령 이벤트는 운송장 발급 이후에는 버린다
	if seventeentrack.InvalidCode(status.SubStatus) {
		shipment, err := s.shipmentRepo.FindByTrackingNo(push.Data.Number)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ApplyResultRejected, nil
			}
			return "", err
		}
		if shipment.Status.Priority() > model.ShipmentStatusLabelCreated.Priority() {
			logger.Debug("Ignoring invalid code push for progressed shipment", map[string]interface{}{
				"shipment_no": shipment.ShipmentNo,
				"status":      shipment.Status,
			})
			return ApplyResultAlreadyApplied, nil
		}
	}

	event := model.TrackingEvent{
		EventTime:  push.EventTime(),
		Source:     model.EventSourceCarrierWebhook,
		SourceRef:  seventeentrack.SourceRef(body),
		Note:       push.Note(),
		RawPayload: string(body),
	}
	if target, ok := seventeentrack.Normalize(status.Status, status.SubStatus); ok {
		ts := model.ShipmentStatus(target)
		event.TargetStatus = &ts
	}

	return s.IngestTrackingEvent(push.Data.Number, event)
}
