package model

import "time"

type PaymentStatus string // 결제 시도 상태 코드

const (
	PaymentStatusInit      PaymentStatus = "INIT"      // 생성됨 (게이트웨이 미전송)
	PaymentStatusPending   PaymentStatus = "PENDING"   // 게이트웨이 주문 생성, 승인 대기
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"   // 결제 성공
	PaymentStatusFail      PaymentStatus = "FAIL"      // 결제 실패
	PaymentStatusClosed    PaymentStatus = "CLOSED"    // 종료 (재시도로 대체/주문 취소)
	PaymentStatusException PaymentStatus = "EXCEPTION" // 대사 불일치, 수동 처리 필요
)

// PaymentOrder 결제 시도 단위. 재시도는 새 행을 만들고 이전 행은 CLOSED 처리한다.
type PaymentOrder struct {
	ID              uint          `gorm:"primarykey" json:"id"`                                    // 결제 ID
	PaymentNo       string        `gorm:"type:char(26);uniqueIndex;not null" json:"payment_no"`    // 결제 번호 (대외 노출)
	OrderID         uint          `gorm:"not null;index" json:"order_id"`                          // 주문 ID
	Channel         string        `gorm:"type:varchar(20);not null" json:"channel"`                // 결제 채널 (paypal 등)
	ExternalID      *string       `gorm:"type:varchar(64);uniqueIndex" json:"external_id,omitempty"` // 게이트웨이 주문 ID
	CaptureID       *string       `gorm:"type:varchar(64);index" json:"capture_id,omitempty"`        // 게이트웨이 캡처 ID (환불의 기준)
	Amount          int64         `gorm:"not null" json:"amount"`                                  // 결제 금액 (최소 화폐 단위)
	Currency        string        `gorm:"type:char(3);not null" json:"currency"`                   // 결제 통화
	Status          PaymentStatus `gorm:"type:varchar(10);default:'INIT';index" json:"status"`     // 결제 상태
	RequestPayload  string        `gorm:"type:text" json:"-"`                                      // 게이트웨이 요청 원문
	ResponsePayload string        `gorm:"type:text" json:"-"`                                      // 게이트웨이 응답 원문
	NotifyPayload   string        `gorm:"type:text" json:"-"`                                      // 최근 웹훅 원문
	PaidAt          *time.Time    `json:"paid_at,omitempty"`                                       // 결제 성공 시각
	LastPolledAt    *time.Time    `json:"last_polled_at,omitempty"`                                // 최근 폴링 시각
	LastNotifiedAt  *time.Time    `json:"last_notified_at,omitempty"`                              // 최근 웹훅 처리 시각
	CreatedAt       time.Time     `json:"created_at"`                                              // 생성 시각
	UpdatedAt       time.Time     `json:"updated_at"`                                              // 수정 시각
}

func (PaymentOrder) TableName() string {
	return "payment_orders"
}

// MarkGatewayCreated INIT -> PENDING, 게이트웨이 주문 ID 기록
func (p *PaymentOrder) MarkGatewayCreated(externalID string) error {
	if p.Status != PaymentStatusInit {
		return ErrInvalidTransition
	}
	p.Status = PaymentStatusPending
	p.ExternalID = &externalID
	return nil
}

// MarkSuccess INIT/PENDING -> SUCCESS
func (p *PaymentOrder) MarkSuccess(now time.Time) error {
	if p.Status != PaymentStatusInit && p.Status != PaymentStatusPending {
		return ErrInvalidTransition
	}
	p.Status = PaymentStatusSuccess
	p.PaidAt = &now
	return nil
}

// MarkFail INIT/PENDING -> FAIL
func (p *PaymentOrder) MarkFail() error {
	if p.Status != PaymentStatusInit && p.Status != PaymentStatusPending {
		return ErrInvalidTransition
	}
	p.Status = PaymentStatusFail
	return nil
}

// Close INIT/PENDING -> CLOSED
func (p *PaymentOrder) Close() error {
	if p.Status != PaymentStatusInit && p.Status != PaymentStatusPending {
		return ErrInvalidTransition
	}
	p.Status = PaymentStatusClosed
	return nil
}

// ReopenSuccess CLOSED -> SUCCESS, 닫힌 시도에 뒤늦게 확정된 캡처 반영용
func (p *PaymentOrder) ReopenSuccess(now time.Time) error {
	if p.Status != PaymentStatusClosed {
		return ErrInvalidTransition
	}
	p.Status = PaymentStatusSuccess
	p.PaidAt = &now
	return nil
}

// MarkException PENDING -> EXCEPTION
func (p *PaymentOrder) MarkException() error {
	if p.Status != PaymentStatusPending {
		return ErrInvalidTransition
	}
	p.Status = PaymentStatusException
	return nil
}

// Open 아직 결론이 나지 않은 시도인지
func (p *PaymentOrder) Open() bool {
	return p.Status == PaymentStatusInit || p.Status == PaymentStatusPending
}
