package model

import (
	"errors"
	"time"
)

type OrderStatus string // 주문 상태 코드
type EventSource string // 상태 변경 이벤트 출처

const (
	OrderStatusCreated        OrderStatus = "CREATED"         // 주문 생성
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT" // 결제 대기
	OrderStatusPaid           OrderStatus = "PAID"            // 결제 완료
	OrderStatusFulfilled      OrderStatus = "FULFILLED"       // 이행 완료
	OrderStatusCancelled      OrderStatus = "CANCELLED"       // 주문 취소
	OrderStatusRefunding      OrderStatus = "REFUNDING"       // 환불 진행 중
	OrderStatusRefunded       OrderStatus = "REFUNDED"        // 환불 완료
	OrderStatusClosed         OrderStatus = "CLOSED"          // 주문 종결

	EventSourceSystem          EventSource = "SYSTEM"           // 시스템 내부
	EventSourceUser            EventSource = "USER"             // 사용자 요청
	EventSourcePaymentCallback EventSource = "PAYMENT_CALLBACK" // 결제 콜백
	EventSourceScheduler       EventSource = "SCHEDULER"        // 스케줄러
	EventSourceAdmin           EventSource = "ADMIN"            // 관리자
	EventSourceCarrierWebhook  EventSource = "CARRIER_WEBHOOK"  // 물류 웹훅
)

// ErrInvalidTransition 허용되지 않은 상태 전이
var ErrInvalidTransition = errors.New("invalid status transition")

// AddressSnapshot 주문 생성 시점에 고정되는 배송지 사본.
// 이후 주소록이 바뀌어도 주문에 남은 값은 변하지 않는다.
type AddressSnapshot struct {
	Recipient  string `gorm:"type:varchar(100)" json:"recipient"`          // 수취인
	Phone      string `gorm:"type:varchar(32)" json:"phone"`               // 연락처
	Country    string `gorm:"type:char(2)" json:"country"`                 // 국가 코드 (ISO 3166-1 alpha-2)
	Province   string `gorm:"type:varchar(100)" json:"province,omitempty"` // 주/도
	City       string `gorm:"type:varchar(100)" json:"city"`               // 도시
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code"`         // 우편번호
	Line1      string `gorm:"type:varchar(255)" json:"line1"`              // 주소 1
	Line2      string `gorm:"type:varchar(255)" json:"line2,omitempty"`    // 주소 2
}

type Order struct {
	ID             uint        `gorm:"primarykey" json:"id"`                                 // 주문 ID
	OrderNo        string      `gorm:"type:char(26);uniqueIndex;not null" json:"order_no"`   // 주문 번호 (대외 노출)
	UserID         uint        `gorm:"not null;index" json:"user_id"`                        // 주문자 ID
	Currency       string      `gorm:"type:char(3);not null" json:"currency"`                // 결제 통화
	TotalAmount    int64       `gorm:"not null" json:"total_amount"`                         // 상품 총액 (최소 화폐 단위)
	DiscountAmount int64       `gorm:"not null;default:0" json:"discount_amount"`            // 할인 금액
	ShippingFee    int64       `gorm:"not null;default:0" json:"shipping_fee"`               // 배송비
	PayAmount      int64       `gorm:"not null" json:"pay_amount"`                           // 실결제 금액 = total - discount + shipping
	Status         OrderStatus `gorm:"type:varchar(20);default:'CREATED';index" json:"status"` // 주문 상태
	Remark         string      `gorm:"type:varchar(255)" json:"remark,omitempty"`            // 주문 비고

	Address AddressSnapshot `gorm:"embedded;embeddedPrefix:ship_" json:"address"` // 배송지 스냅샷

	PaidAt      *time.Time `json:"paid_at,omitempty"`      // 결제 완료 시각
	CancelledAt *time.Time `json:"cancelled_at,omitempty"` // 취소 시각
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty"` // 이행 완료 시각
	ClosedAt    *time.Time `json:"closed_at,omitempty"`    // 종결 시각
	CreatedAt   time.Time  `json:"created_at"`             // 생성 시각
	UpdatedAt   time.Time  `json:"updated_at"`             // 수정 시각

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"` // 주문 항목 목록
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID         uint      `gorm:"primarykey" json:"id"`                      // 주문 항목 ID
	OrderID    uint      `gorm:"not null;index" json:"order_id"`            // 주문 ID
	SkuID      uint      `gorm:"not null;index" json:"sku_id"`              // SKU ID
	SkuCode    string    `gorm:"type:varchar(64);not null" json:"sku_code"` // SKU 코드 스냅샷
	Name       string    `gorm:"type:varchar(255)" json:"name"`             // 상품명 스냅샷
	UnitPrice  int64     `gorm:"not null" json:"unit_price"`                // 단가 스냅샷
	Quantity   int       `gorm:"not null" json:"quantity"`                  // 수량
	LineAmount int64     `gorm:"not null" json:"line_amount"`               // 항목 금액 = unit_price * quantity
	CreatedAt  time.Time `json:"created_at"`                                // 생성 시각
}

func (OrderItem) TableName() string {
	return "order_items"
}

// MarkPendingPayment CREATED -> PENDING_PAYMENT
func (o *Order) MarkPendingPayment() error {
	if o.Status != OrderStatusCreated {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusPendingPayment
	return nil
}

// MarkPaid PENDING_PAYMENT -> PAID
func (o *Order) MarkPaid(now time.Time) error {
	if o.Status != OrderStatusPendingPayment {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusPaid
	o.PaidAt = &now
	return nil
}

// MarkFulfilled PAID -> FULFILLED
func (o *Order) MarkFulfilled(now time.Time) error {
	if o.Status != OrderStatusPaid {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusFulfilled
	o.FulfilledAt = &now
	return nil
}

// Cancel CREATED/PENDING_PAYMENT -> CANCELLED
func (o *Order) Cancel(now time.Time) error {
	if o.Status != OrderStatusCreated && o.Status != OrderStatusPendingPayment {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	return nil
}

// Close CREATED/PENDING_PAYMENT/CANCELLED -> CLOSED
func (o *Order) Close(now time.Time) error {
	switch o.Status {
	case OrderStatusCreated, OrderStatusPendingPayment, OrderStatusCancelled:
		o.Status = OrderStatusClosed
		o.ClosedAt = &now
		return nil
	default:
		return ErrInvalidTransition
	}
}

// BeginRefund PAID/FULFILLED -> REFUNDING
func (o *Order) BeginRefund() error {
	if o.Status != OrderStatusPaid && o.Status != OrderStatusFulfilled {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusRefunding
	return nil
}

// CompleteRefund REFUNDING -> REFUNDED
func (o *Order) CompleteRefund() error {
	if o.Status != OrderStatusRefunding {
		return ErrInvalidTransition
	}
	o.Status = OrderStatusRefunded
	return nil
}

// Payable 결제 진행이 가능한 상태인지
func (o *Order) Payable() bool {
	return o.Status == OrderStatusPendingPayment
}
