package model

import "time"

type ShipmentStatus string // 배송 상태 코드

const (
	ShipmentStatusCreated           ShipmentStatus = "CREATED"            // 배송 생성
	ShipmentStatusLabelCreated      ShipmentStatus = "LABEL_CREATED"      // 운송장 발급
	ShipmentStatusPickedUp          ShipmentStatus = "PICKED_UP"          // 집화 완료
	ShipmentStatusInTransit         ShipmentStatus = "IN_TRANSIT"         // 운송 중
	ShipmentStatusCustomsProcessing ShipmentStatus = "CUSTOMS_PROCESSING" // 통관 진행
	ShipmentStatusCustomsHold       ShipmentStatus = "CUSTOMS_HOLD"       // 통관 보류
	ShipmentStatusCustomsReleased   ShipmentStatus = "CUSTOMS_RELEASED"   // 통관 완료
	ShipmentStatusHandedOver        ShipmentStatus = "HANDED_OVER"        // 현지 택배사 인계
	ShipmentStatusOutForDelivery    ShipmentStatus = "OUT_FOR_DELIVERY"   // 배달 출발
	ShipmentStatusDelivered         ShipmentStatus = "DELIVERED"          // 배달 완료
	ShipmentStatusException         ShipmentStatus = "EXCEPTION"          // 이상 상황 (복구 가능)
	ShipmentStatusReturned          ShipmentStatus = "RETURNED"           // 반송 완료
	ShipmentStatusCancelled         ShipmentStatus = "CANCELLED"          // 배송 취소
	ShipmentStatusLost              ShipmentStatus = "LOST"               // 분실 확정
)

// 선형 진행 단계의 우선순위. 역행 이벤트 차단에 사용한다.
var shipmentPriority = map[ShipmentStatus]int{
	ShipmentStatusCreated:           1,
	ShipmentStatusLabelCreated:      2,
	ShipmentStatusPickedUp:          3,
	ShipmentStatusInTransit:         4,
	ShipmentStatusCustomsProcessing: 5,
	ShipmentStatusCustomsHold:       6,
	ShipmentStatusCustomsReleased:   7,
	ShipmentStatusHandedOver:        8,
	ShipmentStatusOutForDelivery:    9,
	ShipmentStatusDelivered:         10,
}

// Priority 선형 단계 우선순위, 선형 단계가 아니면 0
func (s ShipmentStatus) Priority() int {
	return shipmentPriority[s]
}

// Terminal 더 이상 전이할 수 없는 최종 상태인지
func (s ShipmentStatus) Terminal() bool {
	switch s {
	case ShipmentStatusDelivered, ShipmentStatusReturned, ShipmentStatusCancelled, ShipmentStatusLost:
		return true
	default:
		return false
	}
}

type Shipment struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                   // 배송 ID
	ShipmentNo       string         `gorm:"type:char(26);uniqueIndex;not null" json:"shipment_no"`  // 배송 번호 (대외 노출)
	OrderID          uint           `gorm:"not null;index" json:"order_id"`                         // 발신 주문 ID (비정규화 힌트)
	CarrierCode      string         `gorm:"type:varchar(32)" json:"carrier_code,omitempty"`         // 택배사 코드
	TrackingNo       string         `gorm:"type:varchar(64);index" json:"tracking_no,omitempty"`    // 운송장 번호
	Status           ShipmentStatus `gorm:"type:varchar(20);default:'CREATED';index" json:"status"` // 배송 상태
	WeightGram       int            `gorm:"not null;default:0" json:"weight_gram,omitempty"`        // 중량 (g)
	LengthCm         int            `gorm:"not null;default:0" json:"length_cm,omitempty"`          // 가로 (cm)
	WidthCm          int            `gorm:"not null;default:0" json:"width_cm,omitempty"`           // 세로 (cm)
	HeightCm         int            `gorm:"not null;default:0" json:"height_cm,omitempty"`          // 높이 (cm)
	DeclaredAmount   int64          `gorm:"not null;default:0" json:"declared_amount,omitempty"`    // 통관 신고 금액 (최소 화폐 단위)
	DeclaredCurrency string         `gorm:"type:char(3)" json:"declared_currency,omitempty"`        // 신고 통화
	CustomsNote      string         `gorm:"type:varchar(255)" json:"customs_note,omitempty"`        // 통관 비고
	PickupTime       *time.Time     `json:"pickup_time,omitempty"`                                  // 집화 시각
	DeliveredTime    *time.Time     `json:"delivered_time,omitempty"`                               // 배달 완료 시각
	CreatedAt        time.Time      `json:"created_at"`                                             // 생성 시각
	UpdatedAt        time.Time      `json:"updated_at"`                                             // 수정 시각

	Items []ShipmentItem `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE" json:"items,omitempty"` // 배송 항목
}

func (Shipment) TableName() string {
	return "shipments"
}

// ShipmentItem 주문-배송 연관의 원천. 하나의 배송 안에서 주문 항목은 중복될 수 없다.
type ShipmentItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                                   // 배송 항목 ID
	ShipmentID  uint      `gorm:"not null;index;uniqueIndex:uidx_shipment_order_item" json:"shipment_id"` // 배송 ID
	OrderID     uint      `gorm:"not null;index" json:"order_id"`                                         // 주문 ID
	OrderItemID uint      `gorm:"not null;uniqueIndex:uidx_shipment_order_item" json:"order_item_id"`     // 주문 항목 ID
	SkuID       uint      `gorm:"not null;index" json:"sku_id"`                                           // SKU ID
	Quantity    int       `gorm:"not null" json:"quantity"`                                               // 수량
	CreatedAt   time.Time `json:"created_at"`                                                             // 생성 시각
}

func (ShipmentItem) TableName() string {
	return "shipment_items"
}

// ShipmentStatusLog 배송 상태 이력 (append-only)
// (shipment_id, event_source, source_ref)가 중복 이벤트 차단 키다.
type ShipmentStatusLog struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                                       // 이력 ID
	ShipmentID  uint           `gorm:"not null;index;uniqueIndex:uidx_shipment_event" json:"shipment_id"`          // 배송 ID
	EventSource EventSource    `gorm:"type:varchar(20);not null;uniqueIndex:uidx_shipment_event" json:"event_source"` // 이벤트 출처
	SourceRef   string         `gorm:"type:varchar(128);not null;uniqueIndex:uidx_shipment_event" json:"source_ref"`  // 출처별 멱등 키
	FromStatus  ShipmentStatus `gorm:"type:varchar(20)" json:"from_status"`                                        // 이전 상태
	ToStatus    ShipmentStatus `gorm:"type:varchar(20);not null" json:"to_status"`                                 // 전이 후 상태
	EventTime   time.Time      `json:"event_time"`                                                                 // 이벤트 발생 시각 (출처 기준)
	Note        string         `gorm:"type:varchar(255)" json:"note,omitempty"`                                    // 비고
	RawPayload  string         `gorm:"type:text" json:"-"`                                                         // 원문 보관
	CreatedAt   time.Time      `json:"created_at"`                                                                 // 기록 시각
}

func (ShipmentStatusLog) TableName() string {
	return "shipment_status_logs"
}

// CanTransit 현재 상태에서 to로 전이 가능한지 판단한다.
// 선형 단계는 우선순위가 커지는 방향만 허용하고 중간 단계 생략은 허용한다.
func (s *Shipment) CanTransit(to ShipmentStatus) bool {
	if s.Status.Terminal() {
		return false
	}
	if to == ShipmentStatusException {
		return true
	}
	if to == ShipmentStatusCancelled {
		// 집화 전에만 취소할 수 있다
		return s.Status.Priority() > 0 && s.Status.Priority() < ShipmentStatusPickedUp.Priority()
	}
	if s.Status == ShipmentStatusException {
		// 이상 상황에서는 임의 선형 단계로 복구하거나 반송/분실로 끝난다
		return to.Priority() > 0 || to == ShipmentStatusReturned || to == ShipmentStatusLost
	}
	if to == ShipmentStatusReturned || to == ShipmentStatusLost {
		// 반송/분실은 진행 중 어느 단계에서도 도달 가능
		return true
	}
	return to.Priority() > s.Status.Priority()
}

// ApplyTransition 상태를 전이시키고 부수 시각 필드를 갱신한다.
// 전이 가능 여부 검사는 호출 측(CanTransit)에서 끝났다고 가정한다.
func (s *Shipment) ApplyTransition(to ShipmentStatus, eventTime time.Time) {
	s.Status = to
	if to == ShipmentStatusPickedUp && s.PickupTime == nil {
		t := eventTime
		s.PickupTime = &t
	}
	if to == ShipmentStatusDelivered && s.DeliveredTime == nil {
		t := eventTime
		s.DeliveredTime = &t
	}
}

// TrackingEvent 정규화된 배송 추적 이벤트.
// TargetStatus가 nil이면 상태 전이 없이 이력만 남긴다.
type TrackingEvent struct {
	TargetStatus *ShipmentStatus // 전이 목표 상태 (nil = 기록만)
	EventTime    time.Time       // 이벤트 발생 시각
	Source       EventSource     // 이벤트 출처
	SourceRef    string          // 출처별 멱등 키
	CarrierCode  string          // 택배사 코드 (있으면 갱신)
	Note         string          // 비고
	RawPayload   string          // 원문
}
