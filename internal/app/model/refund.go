package model

import "time"

type RefundStatus string     // 환불 상태 코드
type RefundInitiator string  // 환불 발기인
type RefundReasonCode string // 환불 사유 분류

const (
	RefundStatusInit    RefundStatus = "INIT"    // 생성됨
	RefundStatusPending RefundStatus = "PENDING" // 게이트웨이 처리 중
	RefundStatusSuccess RefundStatus = "SUCCESS" // 환불 완료
	RefundStatusFail    RefundStatus = "FAIL"    // 환불 실패

	RefundInitiatorUser   RefundInitiator = "USER"   // 사용자 요청
	RefundInitiatorAdmin  RefundInitiator = "ADMIN"  // 관리자 요청
	RefundInitiatorSystem RefundInitiator = "SYSTEM" // 시스템 자동

	RefundReasonUserRequest RefundReasonCode = "USER_REQUEST" // 단순 변심 등 사용자 요청
	RefundReasonLatePayment RefundReasonCode = "LATE_PAYMENT" // 취소된 주문에 늦게 도착한 결제
	RefundReasonDefective   RefundReasonCode = "DEFECTIVE"    // 상품 하자
	RefundReasonOther       RefundReasonCode = "OTHER"        // 기타
)

// RefundOrder 환불 단위. 생성 입구는 주문 도메인이고 상태 추적은 결제 대사와 같은 방식이다.
type RefundOrder struct {
	ID               uint             `gorm:"primarykey" json:"id"`                                  // 환불 ID
	RefundNo         string           `gorm:"type:char(26);uniqueIndex;not null" json:"refund_no"`   // 환불 번호 (대외 노출)
	OrderID          uint             `gorm:"not null;index" json:"order_id"`                        // 주문 ID
	PaymentOrderID   uint             `gorm:"not null;index" json:"payment_order_id"`                // 원 결제 ID
	ExternalRefundID *string          `gorm:"type:varchar(64);uniqueIndex" json:"external_refund_id,omitempty"` // 게이트웨이 환불 ID
	Amount           int64            `gorm:"not null" json:"amount"`                                // 환불 총액 (최소 화폐 단위)
	Currency         string           `gorm:"type:char(3);not null" json:"currency"`                 // 통화
	ItemsAmount      int64            `gorm:"not null;default:0" json:"items_amount"`                // 상품분 환불액
	ShippingAmount   int64            `gorm:"not null;default:0" json:"shipping_amount"`             // 배송비분 환불액
	Status           RefundStatus     `gorm:"type:varchar(10);default:'INIT';index" json:"status"`   // 환불 상태
	ReasonCode       RefundReasonCode `gorm:"type:varchar(20);not null" json:"reason_code"`          // 사유 분류
	ReasonText       string           `gorm:"type:varchar(255)" json:"reason_text,omitempty"`        // 사유 비고
	Initiator        RefundInitiator  `gorm:"type:varchar(10);not null" json:"initiator"`            // 발기인
	RequestPayload   string           `gorm:"type:text" json:"-"`                                    // 게이트웨이 요청 원문
	ResponsePayload  string           `gorm:"type:text" json:"-"`                                    // 게이트웨이 응답 원문
	NotifyPayload    string           `gorm:"type:text" json:"-"`                                    // 최근 웹훅 원문
	LastPolledAt     *time.Time       `json:"last_polled_at,omitempty"`                              // 최근 폴링 시각
	LastNotifiedAt   *time.Time       `json:"last_notified_at,omitempty"`                            // 최근 웹훅 처리 시각
	CreatedAt        time.Time        `json:"created_at"`                                            // 생성 시각
	UpdatedAt        time.Time        `json:"updated_at"`                                            // 수정 시각

	Items []RefundItem `gorm:"foreignKey:RefundOrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"` // 환불 명세
}

func (RefundOrder) TableName() string {
	return "refund_orders"
}

type RefundItem struct {
	ID            uint      `gorm:"primarykey" json:"id"`                   // 환불 명세 ID
	RefundOrderID uint      `gorm:"not null;index" json:"refund_order_id"`  // 환불 ID
	OrderItemID   uint      `gorm:"not null;index" json:"order_item_id"`    // 주문 항목 ID
	SkuID         uint      `gorm:"not null" json:"sku_id"`                 // SKU ID
	Quantity      int       `gorm:"not null" json:"quantity"`               // 환불 수량
	Amount        int64     `gorm:"not null" json:"amount"`                 // 환불 금액
	CreatedAt     time.Time `json:"created_at"`                             // 생성 시각
}

func (RefundItem) TableName() string {
	return "refund_items"
}

// MarkPending INIT -> PENDING
func (r *RefundOrder) MarkPending() error {
	if r.Status != RefundStatusInit {
		return ErrInvalidTransition
	}
	r.Status = RefundStatusPending
	return nil
}

// MarkSuccess INIT/PENDING -> SUCCESS
func (r *RefundOrder) MarkSuccess() error {
	if r.Status != RefundStatusInit && r.Status != RefundStatusPending {
		return ErrInvalidTransition
	}
	r.Status = RefundStatusSuccess
	return nil
}

// MarkFail INIT/PENDING -> FAIL
func (r *RefundOrder) MarkFail() error {
	if r.Status != RefundStatusInit && r.Status != RefundStatusPending {
		return ErrInvalidTransition
	}
	r.Status = RefundStatusFail
	return nil
}
