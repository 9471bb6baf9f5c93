package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/internal/app/repository"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"github.com/eason8811/international-shopping-sub004/pkg/money"
	"github.com/eason8811/international-shopping-sub004/pkg/number"
	"github.com/eason8811/international-shopping-sub004/pkg/payment/paypal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRefundNotFound     = errors.New("refund not found")
	ErrOrderNotRefundable = errors.New("order is not refundable")
	ErrNoCapturedPayment  = errors.New("order has no captured payment")
	ErrRefundExceedsPaid  = errors.New("refund exceeds refundable amount")
	ErrNothingToRefund    = errors.New("nothing left to refund")
)

// refundInvoicePrefix 게이트웨이 환불 멱등 키 접두사
const refundInvoicePrefix = "ppref-"

// RefundRequestItem 환불 요청 항목
type RefundRequestItem struct {
	OrderItemID uint `json:"order_item_id" binding:"required"`
	Quantity    int  `json:"quantity" binding:"required,gt=0"`
}

// RequestRefundInput 환불 요청. Items가 비어 있으면 남은 전량 환불로 처리한다.
type RequestRefundInput struct {
	OrderNo    string                 `json:"order_no"`
	Items      []RefundRequestItem    `json:"items"`
	ReasonCode model.RefundReasonCode `json:"reason_code"`
	ReasonText string                 `json:"reason_text"`
	Initiator  model.RefundInitiator  `json:"-"`
}

type RefundService interface {
	RequestRefund(ctx context.Context, input RequestRefundInput) (*model.RefundOrder, error)
	CreateLatePaymentRefund(ctx context.Context, paymentID uint) (*model.RefundOrder, error)
	ApplyGatewayOutcome(externalRefundID, invoiceID string, success bool, raw string) (ApplyResult, error)
	GetByRefundNo(refundNo string) (*model.RefundOrder, error)
	ListByOrderNo(orderNo string) ([]model.RefundOrder, error)
	SyncOpen(ctx context.Context, olderThan time.Duration, batchSize int) (int, error)
}

type refundService struct {
	refundRepo  repository.RefundRepository
	paymentRepo repository.PaymentRepository
	orderRepo   repository.OrderRepository
	invSvc      InventoryService
	gateway     PaymentGateway
	db          *gorm.DB
}

func NewRefundService(
	refundRepo repository.RefundRepository,
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	invSvc InventoryService,
	gateway PaymentGateway,
	db *gorm.DB,
) RefundService {
	return &refundService{
		refundRepo:  refundRepo,
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		invSvc:      invSvc,
		gateway:     gateway,
		db:          db,
	}
}

// RequestRefund 환불 생성. 주문 항목 스냅샷 기준으로 환불 가능 수량을 검사하고,
// 이번 환불로 전 항목이 소진되면 남은 배송비도 함께 환불한다.
// 게이트웨이 호출이 실패해도 환불 건은 INIT으로 남아 대사 작업이 재시도한다.
func (s *refundService) RequestRefund(ctx context.Context, input RequestRefundInput) (*model.RefundOrder, error) {
	logger.Info("Requesting refund", map[string]interface{}{
		"order_no":    input.OrderNo,
		"reason_code": input.ReasonCode,
		"initiator":   input.Initiator,
	})

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var order model.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_no = ?", input.OrderNo).
		First(&order).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	switch order.Status {
	case model.OrderStatusPaid, model.OrderStatusFulfilled, model.OrderStatusRefunding:
	default:
		tx.Rollback()
		logger.Warn("Refund rejected: order not refundable", map[string]interface{}{
			"order_no": order.OrderNo,
			"status":   order.Status,
		})
		return nil, ErrOrderNotRefundable
	}

	payment, err := s.findCapturedPayment(tx, order.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	var items []model.OrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	txRefundRepo := repository.NewRefundRepository(tx)
	refunded, err := txRefundRepo.SumRefundedByOrderItem(order.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	requested := input.Items
	if len(requested) == 0 {
		// 남은 전량 환불
		for _, item := range items {
			remaining := item.Quantity - refunded[item.ID]
			if remaining > 0 {
				requested = append(requested, RefundRequestItem{OrderItemID: item.ID, Quantity: remaining})
			}
		}
	}
	if len(requested) == 0 {
		tx.Rollback()
		return nil, ErrNothingToRefund
	}

	itemsByID := make(map[uint]model.OrderItem, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	itemsAmount, err := money.Zero(order.Currency)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	refundItems := make([]model.RefundItem, 0, len(requested))
	for _, reqItem := range requested {
		item, ok := itemsByID[reqItem.OrderItemID]
		if !ok {
			tx.Rollback()
			return nil, ErrRefundExceedsPaid
		}
		remaining := item.Quantity - refunded[item.ID]
		if reqItem.Quantity <= 0 || reqItem.Quantity > remaining {
			tx.Rollback()
			logger.Warn("Refund rejected: quantity exceeds remaining", map[string]interface{}{
				"order_no":      order.OrderNo,
				"order_item_id": item.ID,
				"requested":     reqItem.Quantity,
				"remaining":     remaining,
			})
			return nil, ErrRefundExceedsPaid
		}

		unitPrice, err := money.New(order.Currency, item.UnitPrice)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		lineAmount, err := unitPrice.MulQty(reqItem.Quantity)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		itemsAmount, err = itemsAmount.Add(lineAmount)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		refundItems = append(refundItems, model.RefundItem{
			OrderItemID: item.ID,
			SkuID:       item.SkuID,
			Quantity:    reqItem.Quantity,
			Amount:      lineAmount.Amount,
		})
	}

	// 이번 환불로 전 항목이 소진되면 남은 배송비를 포함한다
	fullAfterThis := true
	for _, item := range items {
		spent := refunded[item.ID]
		for _, reqItem := range requested {
			if reqItem.OrderItemID == item.ID {
				spent += reqItem.Quantity
			}
		}
		if spent < item.Quantity {
			fullAfterThis = false
			break
		}
	}

	var shippingAmount int64
	if fullAfterThis {
		refundedShipping, err := txRefundRepo.SumRefundedShipping(order.ID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		shippingAmount = order.ShippingFee - refundedShipping
		if shippingAmount < 0 {
			shippingAmount = 0
		}
	}

	// 할인 적용 주문에서 실결제 금액을 넘지 않도록 상한을 건다
	refundedTotal, err := s.sumRefundedTotal(txRefundRepo, order.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	remaining := order.PayAmount - refundedTotal
	if remaining <= 0 {
		tx.Rollback()
		return nil, ErrNothingToRefund
	}
	total := itemsAmount.Amount + shippingAmount
	if total > remaining {
		itemsAmount = money.Money{Currency: order.Currency, Amount: remaining - shippingAmount}
		if itemsAmount.Amount < 0 {
			itemsAmount.Amount = 0
			shippingAmount = remaining
		}
		total = remaining
	}

	if order.Status != model.OrderStatusRefunding {
		from := order.Status
		if err := order.BeginRefund(); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Save(&order).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		source := model.EventSourceUser
		if input.Initiator == model.RefundInitiatorAdmin {
			source = model.EventSourceAdmin
		}
		if err := tx.Create(model.NewOrderStatusLog(order.ID, source, &from, order.Status, input.ReasonText)).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	refund := &model.RefundOrder{
		RefundNo:       number.New(),
		OrderID:        order.ID,
		PaymentOrderID: payment.ID,
		Amount:         total,
		Currency:       order.Currency,
		ItemsAmount:    itemsAmount.Amount,
		ShippingAmount: shippingAmount,
		Status:         model.RefundStatusInit,
		ReasonCode:     input.ReasonCode,
		ReasonText:     input.ReasonText,
		Initiator:      input.Initiator,
		Items:          refundItems,
	}
	if err := txRefundRepo.Create(refund); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.Info("Refund created", map[string]interface{}{
		"refund_no": refund.RefundNo,
		"order_no":  order.OrderNo,
		"amount":    refund.Amount,
	})

	s.submitToGateway(ctx, refund, payment)
	return s.GetByRefundNo(refund.RefundNo)
}

// CreateLatePaymentRefund 취소/종결된 주문에 늦게 확정된 결제를 전액 자동 환불한다.
// 재고는 취소 시점에 이미 풀렸으므로 환불 명세는 비워 둔다.
func (s *refundService) CreateLatePaymentRefund(ctx context.Context, paymentID uint) (*model.RefundOrder, error) {
	payment, err := s.paymentRepo.FindByID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	logger.Info("Creating late payment auto refund", map[string]interface{}{
		"payment_no": payment.PaymentNo,
		"order_id":   payment.OrderID,
		"amount":     payment.Amount,
	})

	refund := &model.RefundOrder{
		RefundNo:       number.New(),
		OrderID:        payment.OrderID,
		PaymentOrderID: payment.ID,
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		ItemsAmount:    payment.Amount,
		Status:         model.RefundStatusInit,
		ReasonCode:     model.RefundReasonLatePayment,
		ReasonText:     "payment captured after order was no longer payable",
		Initiator:      model.RefundInitiatorSystem,
	}
	if err := s.refundRepo.Create(refund); err != nil {
		return nil, err
	}

	s.submitToGateway(ctx, refund, payment)
	return s.GetByRefundNo(refund.RefundNo)
}

// submitToGateway 게이트웨이에 환불을 요청한다. 실패는 삼키고 INIT으로 남긴다.
func (s *refundService) submitToGateway(ctx context.Context, refund *model.RefundOrder, payment *model.PaymentOrder) {
	if payment.CaptureID == nil {
		logger.Warn("Refund submission skipped: payment has no capture ID", map[string]interface{}{
			"refund_no":  refund.RefundNo,
			"payment_no": payment.PaymentNo,
		})
		return
	}

	amount, err := money.New(refund.Currency, refund.Amount)
	if err != nil {
		logger.Error("Refund submission skipped: invalid amount", err, map[string]interface{}{
			"refund_no": refund.RefundNo,
		})
		return
	}

	req := paypal.RefundRequest{
		Amount: &paypal.Amount{
			CurrencyCode: refund.Currency,
			Value:        amount.Major(),
		},
		InvoiceID:   refundInvoicePrefix + refund.RefundNo,
		NoteToPayer: refund.ReasonText,
	}

	resp, err := s.gateway.RefundCapture(ctx, *payment.CaptureID, req, refundInvoicePrefix+refund.RefundNo)
	if err != nil {
		logger.Warn("Gateway refund failed, leaving refund for reconciliation", map[string]interface{}{
			"refund_no": refund.RefundNo,
			"error":     err.Error(),
		})
		return
	}

	refund.ExternalRefundID = &resp.ID
	if err := s.db.Model(&model.RefundOrder{}).Where("id = ?", refund.ID).
		Update("external_refund_id", resp.ID).Error; err != nil {
		logger.Error("Failed to store external refund ID", err, map[string]interface{}{
			"refund_no": refund.RefundNo,
		})
		return
	}

	switch resp.Status {
	case paypal.RefundStatusCompleted:
		if _, err := s.applyOutcome(refund.ID, true, ""); err != nil {
			logger.Error("Failed to apply immediate refund outcome", err, map[string]interface{}{
				"refund_no": refund.RefundNo,
			})
		}
	default:
		if err := refund.MarkPending(); err == nil {
			if err := s.refundRepo.Update(refund); err != nil {
				logger.Error("Failed to mark refund pending", err, map[string]interface{}{
					"refund_no": refund.RefundNo,
				})
			}
		}
	}
}

// ApplyGatewayOutcome 웹훅/폴링으로 전달된 환불 결론을 반영한다.
// 외부 환불 ID로 찾지 못하면 인보이스의 환불 번호로 재시도한다.
func (s *refundService) ApplyGatewayOutcome(externalRefundID, invoiceID string, success bool, raw string) (ApplyResult, error) {
	refund, err := s.locate(externalRefundID, invoiceID)
	if err != nil {
		if errors.Is(err, ErrRefundNotFound) {
			logger.Warn("Refund outcome for unknown refund", map[string]interface{}{
				"external_refund_id": externalRefundID,
				"invoice_id":         invoiceID,
			})
			return ApplyResultRejected, nil
		}
		return "", err
	}

	if refund.ExternalRefundID == nil && externalRefundID != "" {
		if err := s.db.Model(&model.RefundOrder{}).Where("id = ?", refund.ID).
			Update("external_refund_id", externalRefundID).Error; err != nil {
			return "", err
		}
	}

	return s.applyOutcome(refund.ID, success, raw)
}

func (s *refundService) locate(externalRefundID, invoiceID string) (*model.RefundOrder, error) {
	if externalRefundID != "" {
		refund, err := s.refundRepo.FindByExternalRefundID(externalRefundID)
		if err == nil {
			return refund, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if refundNo, ok := strings.CutPrefix(invoiceID, refundInvoicePrefix); ok {
		refund, err := s.refundRepo.FindByRefundNo(refundNo)
		if err == nil {
			return refund, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrRefundNotFound
}

// applyOutcome 환불 확정 경로. 성공 시 환불 명세만큼 재입고하고,
// 실결제 금액 전액이 환불되면 주문을 REFUNDED로 전이시킨다.
func (s *refundService) applyOutcome(refundID uint, success bool, raw string) (ApplyResult, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var refund model.RefundOrder
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&refund, refundID).Error; err != nil {
		tx.Rollback()
		return "", err
	}

	wanted := model.RefundStatusSuccess
	if !success {
		wanted = model.RefundStatusFail
	}
	if refund.Status == wanted {
		tx.Rollback()
		return ApplyResultAlreadyApplied, nil
	}

	now := time.Now()
	var transitErr error
	if success {
		transitErr = refund.MarkSuccess()
	} else {
		transitErr = refund.MarkFail()
	}
	if transitErr != nil {
		tx.Rollback()
		logger.Warn("Refund outcome rejected: conflicting terminal state", map[string]interface{}{
			"refund_no": refund.RefundNo,
			"status":    refund.Status,
			"success":   success,
		})
		return ApplyResultRejected, nil
	}
	if raw != "" {
		refund.NotifyPayload = raw
		refund.LastNotifiedAt = &now
	}

	if err := tx.Save(&refund).Error; err != nil {
		tx.Rollback()
		return "", err
	}

	if success {
		for _, item := range refund.Items {
			if err := s.invSvc.Restock(tx, item.SkuID, refund.OrderID, item.Quantity, "refund "+refund.RefundNo); err != nil {
				tx.Rollback()
				return "", err
			}
		}

		var order model.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, refund.OrderID).Error; err != nil {
			tx.Rollback()
			return "", err
		}

		if order.Status == model.OrderStatusRefunding {
			txRefundRepo := repository.NewRefundRepository(tx)
			refundedTotal, err := s.sumRefundedSuccess(txRefundRepo, order.ID)
			if err != nil {
				tx.Rollback()
				return "", err
			}
			if refundedTotal >= order.PayAmount {
				from := order.Status
				if err := order.CompleteRefund(); err != nil {
					tx.Rollback()
					return "", err
				}
				if err := tx.Save(&order).Error; err != nil {
					tx.Rollback()
					return "", err
				}
				if err := tx.Create(model.NewOrderStatusLog(order.ID, model.EventSourcePaymentCallback, &from, order.Status, "refund "+refund.RefundNo)).Error; err != nil {
					tx.Rollback()
					return "", err
				}
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return "", err
	}

	logger.Info("Refund outcome applied", map[string]interface{}{
		"refund_no": refund.RefundNo,
		"status":    refund.Status,
	})
	return ApplyResultApplied, nil
}

func (s *refundService) GetByRefundNo(refundNo string) (*model.RefundOrder, error) {
	refund, err := s.refundRepo.FindByRefundNo(refundNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefundNotFound
		}
		return nil, err
	}
	return refund, nil
}

func (s *refundService) ListByOrderNo(orderNo string) ([]model.RefundOrder, error) {
	order, err := s.orderRepo.FindByOrderNo(orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return s.refundRepo.FindByOrderID(order.ID)
}

// SyncOpen 결론이 나지 않은 환불을 게이트웨이 기준으로 대사한다.
// 외부 ID가 없는 INIT 건은 게이트웨이 재요청, 있는 건은 상태 조회로 처리한다.
func (s *refundService) SyncOpen(ctx context.Context, olderThan time.Duration, batchSize int) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	refunds, err := s.refundRepo.FindStaleOpen(cutoff, batchSize)
	if err != nil {
		return 0, err
	}
	if len(refunds) == 0 {
		return 0, nil
	}

	logger.Info("Syncing open refunds with gateway", map[string]interface{}{
		"count": len(refunds),
	})

	synced := 0
	now := time.Now()
	for i := range refunds {
		refund := &refunds[i]

		if refund.ExternalRefundID == nil {
			payment, err := s.paymentRepo.FindByID(refund.PaymentOrderID)
			if err != nil {
				logger.Error("Failed to load payment for refund sync", err, map[string]interface{}{
					"refund_no": refund.RefundNo,
				})
				continue
			}
			s.submitToGateway(ctx, refund, payment)
			synced++
			continue
		}

		resp, err := s.gateway.GetRefund(ctx, *refund.ExternalRefundID)
		if err != nil {
			logger.Warn("Failed to poll refund from gateway", map[string]interface{}{
				"refund_no": refund.RefundNo,
				"error":     err.Error(),
			})
			continue
		}

		refund.LastPolledAt = &now
		if err := s.refundRepo.Update(refund); err != nil {
			return synced, err
		}

		switch resp.Status {
		case paypal.RefundStatusCompleted:
			if _, err := s.applyOutcome(refund.ID, true, ""); err != nil {
				return synced, err
			}
			synced++
		case paypal.RefundStatusFailed, paypal.RefundStatusCancelled:
			if _, err := s.applyOutcome(refund.ID, false, ""); err != nil {
				return synced, err
			}
			synced++
		}
	}

	return synced, nil
}

func (s *refundService) findCapturedPayment(tx *gorm.DB, orderID uint) (*model.PaymentOrder, error) {
	var payment model.PaymentOrder
	if err := tx.Where("order_id = ? AND status = ?", orderID, model.PaymentStatusSuccess).
		Order("created_at DESC").
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCapturedPayment
		}
		return nil, err
	}
	if payment.CaptureID == nil {
		return nil, ErrNoCapturedPayment
	}
	return &payment, nil
}

// sumRefundedTotal FAIL 제외 모든 환불 총액
func (s *refundService) sumRefundedTotal(repo repository.RefundRepository, orderID uint) (int64, error) {
	refunds, err := repo.FindByOrderID(orderID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, r := range refunds {
		if r.Status != model.RefundStatusFail {
			total += r.Amount
		}
	}
	return total, nil
}

// sumRefundedSuccess SUCCESS 환불 총액
func (s *refundService) sumRefundedSuccess(repo repository.RefundRepository, orderID uint) (int64, error) {
	refunds, err := repo.FindByOrderID(orderID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, r := range refunds {
		if r.Status == model.RefundStatusSuccess {
			total += r.Amount
		}
	}
	return total, nil
}
