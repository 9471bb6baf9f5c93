package model

import "time"

type InventoryChangeType string // 재고 변동 유형

const (
	InventoryChangeReserve InventoryChangeType = "RESERVE" // 예약 (주문 생성)
	InventoryChangeDeduct  InventoryChangeType = "DEDUCT"  // 차감 확정 (결제 완료)
	InventoryChangeRelease InventoryChangeType = "RELEASE" // 예약 해제 (취소/종결)
	InventoryChangeRestock InventoryChangeType = "RESTOCK" // 재입고 (환불 완료 등)
)

type Sku struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                // SKU ID
	SkuCode      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"sku_code"` // SKU 코드
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`              // 상품명
	UnitPrice    int64     `gorm:"not null" json:"unit_price"`                          // 판매 단가 (최소 화폐 단위)
	Currency     string    `gorm:"type:char(3);not null" json:"currency"`               // 판매 통화
	InitialStock int       `gorm:"not null;default:0" json:"initial_stock"`             // 기초 재고
	CreatedAt    time.Time `json:"created_at"`                                          // 생성 시각
	UpdatedAt    time.Time `json:"updated_at"`                                          // 수정 시각
}

func (Sku) TableName() string {
	return "skus"
}

// InventoryLog 재고 변동 원장 (append-only)
// 가용 재고는 이 원장의 합산으로만 계산한다:
//   available = initial - sum(RESERVE) + sum(RELEASE) + sum(RESTOCK)
// DEDUCT는 이미 예약된 수량의 확정이므로 가용 재고에는 영향이 없다.
type InventoryLog struct {
	ID         uint                `gorm:"primarykey" json:"id"`                          // 원장 ID
	SkuID      uint                `gorm:"not null;index" json:"sku_id"`                  // SKU ID
	OrderID    uint                `gorm:"not null;index" json:"order_id"`                // 주문 ID
	ChangeType InventoryChangeType `gorm:"type:varchar(10);not null" json:"change_type"`  // 변동 유형
	Quantity   int                 `gorm:"not null" json:"quantity"`                      // 변동 수량 (항상 양수)
	Reason     string              `gorm:"type:varchar(255)" json:"reason,omitempty"`     // 변동 사유
	CreatedAt  time.Time           `json:"created_at"`                                    // 기록 시각
}

func (InventoryLog) TableName() string {
	return "inventory_logs"
}
