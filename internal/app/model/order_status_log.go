package model

import "time"

// OrderStatusLog 주문 상태 전이 이력 (append-only, 감사/재생용)
type OrderStatusLog struct {
	ID          uint         `gorm:"primarykey" json:"id"`                           // 이력 ID
	OrderID     uint         `gorm:"not null;index" json:"order_id"`                 // 주문 ID
	EventSource EventSource  `gorm:"type:varchar(20);not null" json:"event_source"`  // 이벤트 출처
	FromStatus  *OrderStatus `gorm:"type:varchar(20)" json:"from_status,omitempty"`  // 이전 상태 (첫 이력은 없음)
	ToStatus    OrderStatus  `gorm:"type:varchar(20);not null" json:"to_status"`     // 전이 후 상태
	Note        string       `gorm:"type:varchar(255)" json:"note,omitempty"`        // 비고
	CreatedAt   time.Time    `json:"created_at"`                                     // 기록 시각
}

func (OrderStatusLog) TableName() string {
	return "order_status_logs"
}

// NewOrderStatusLog 상태 전이 이력 생성 (id 없는 상태로 반환)
func NewOrderStatusLog(orderID uint, source EventSource, from *OrderStatus, to OrderStatus, note string) *OrderStatusLog {
	return &OrderStatusLog{
		OrderID:     orderID,
		EventSource: source,
		FromStatus:  from,
		ToStatus:    to,
		Note:        note,
	}
}
