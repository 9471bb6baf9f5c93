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
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrOrderNotPayable  = errors.New("order is not payable")
	ErrGatewayRejected  = errors.New("gateway rejected the payment")
	ErrMalformedWebhook = errors.New("malformed webhook payload")
)

// checkoutInvoicePrefix 게이트웨이 결제 멱등 키 접두사
const checkoutInvoicePrefix = "ppco-"

// PaymentGateway abstracts the PayPal client so tests can use a fake
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req paypal.CreateOrderRequest, requestID string) (*paypal.OrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*paypal.OrderResponse, error)
	CaptureOrder(ctx context.Context, orderID string, requestID string) (*paypal.OrderResponse, error)
	RefundCapture(ctx context.Context, captureID string, req paypal.RefundRequest, requestID string) (*paypal.RefundResponse, error)
	GetRefund(ctx context.Context, refundID string) (*paypal.RefundResponse, error)
}

// CheckoutResponse 결제 시도 생성 결과
type CheckoutResponse struct {
	PaymentNo  string `json:"payment_no"`
	ExternalID string `json:"external_id"`
	ApproveURL string `json:"approve_url"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
}

type PaymentService interface {
	Checkout(ctx context.Context, orderNo string) (*CheckoutResponse, error)
	IngestWebhook(ctx context.Context, body []byte) (ApplyResult, error)
	GetByPaymentNo(paymentNo string) (*model.PaymentOrder, error)
	ListByOrderNo(orderNo string) ([]model.PaymentOrder, error)
	SyncPending(ctx context.Context, olderThan time.Duration, batchSize int) (int, error)
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	orderRepo   repository.OrderRepository
	invSvc      InventoryService
	refundSvc   RefundService
	gateway     PaymentGateway
	db          *gorm.DB
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	invSvc InventoryService,
	refundSvc RefundService,
	gateway PaymentGateway,
	db *gorm.DB,
) PaymentService {
	return &paymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		invSvc:      invSvc,
		refundSvc:   refundSvc,
		gateway:     gateway,
		db:          db,
	}
}

// Checkout 결제 시도 개설. 이전 미결 시도를 닫고 새 시도를 만든 뒤
// 게이트웨이 주문을 생성해 승인 URL을 돌려준다.
func (s *paymentService) Checkout(ctx context.Context, orderNo string) (*CheckoutResponse, error) {
	logger.Info("Opening payment attempt", map[string]interface{}{
		"order_no": orderNo,
	})

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var order model.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_no = ?", orderNo).
		First(&order).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if !order.Payable() {
		tx.Rollback()
		logger.Warn("Checkout rejected: order not payable", map[string]interface{}{
			"order_no": order.OrderNo,
			"status":   order.Status,
		})
		return nil, ErrOrderNotPayable
	}

	// 재시도는 새 행으로, 이전 미결 시도는 닫는다
	txPaymentRepo := repository.NewPaymentRepository(tx)
	openPayments, err := txPaymentRepo.FindOpenByOrderID(order.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	for i := range openPayments {
		if err := openPayments[i].Close(); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := txPaymentRepo.Update(&openPayments[i]); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	payment := &model.PaymentOrder{
		PaymentNo: number.New(),
		OrderID:   order.ID,
		Channel:   "paypal",
		Amount:    order.PayAmount,
		Currency:  order.Currency,
		Status:    model.PaymentStatusInit,
	}
	if err := txPaymentRepo.Create(payment); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	amount, err := money.New(payment.Currency, payment.Amount)
	if err != nil {
		return nil, err
	}

	req := paypal.CreateOrderRequest{
		PurchaseUnits: []paypal.PurchaseUnit{{
			ReferenceID: payment.PaymentNo,
			InvoiceID:   checkoutInvoicePrefix + payment.PaymentNo,
			CustomID:    payment.PaymentNo,
			Description: "order " + order.OrderNo,
			Amount: paypal.Amount{
				CurrencyCode: payment.Currency,
				Value:        amount.Major(),
			},
		}},
	}

	resp, err := s.gateway.CreateOrder(ctx, req, checkoutInvoicePrefix+payment.PaymentNo)
	if err != nil {
		logger.Error("Gateway order creation failed", err, map[string]interface{}{
			"payment_no": payment.PaymentNo,
		})
		if markErr := payment.MarkFail(); markErr == nil {
			if saveErr := s.paymentRepo.Update(payment); saveErr != nil {
				logger.Error("Failed to mark payment failed", saveErr, map[string]interface{}{
					"payment_no": payment.PaymentNo,
				})
			}
		}
		return nil, ErrGatewayRejected
	}

	if err := payment.MarkGatewayCreated(resp.ID); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Update(payment); err != nil {
		return nil, err
	}

	logger.Info("Payment attempt opened", map[string]interface{}{
		"payment_no":  payment.PaymentNo,
		"external_id": resp.ID,
	})

	return &CheckoutResponse{
		PaymentNo:  payment.PaymentNo,
		ExternalID: resp.ID,
		ApproveURL: resp.ApproveLink(),
		Amount:     payment.Amount,
		Currency:   payment.Currency,
	}, nil
}

// IngestWebhook 게이트웨이 웹훅을 정규화해 반영한다.
// 모르는 이벤트 유형은 거부로 처리하되 오류로 보지 않는다.
func (s *paymentService) IngestWebhook(ctx context.Context, body []byte) (ApplyResult, error) {
	event, err := paypal.ParseWebhookEvent(body)
	if err != nil {
		logger.Warn("Malformed payment webhook", map[string]interface{}{
			"error": err.Error(),
		})
		return ApplyResultRejected, ErrMalformedWebhook
	}

	logger.Info("Processing payment webhook", map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.EventType,
	})

	switch event.EventType {
	case paypal.EventCheckoutOrderApproved:
		return s.handleOrderApproved(ctx, event, string(body))
	case paypal.EventPaymentCaptureCompleted:
		return s.handleCaptureOutcome(ctx, event, string(body), true)
	case paypal.EventPaymentCaptureDenied:
		return s.handleCaptureOutcome(ctx, event, string(body), false)
	case paypal.EventRefundCompleted:
		return s.refundSvc.ApplyGatewayOutcome(event.Resource.ID, event.Resource.InvoiceID, true, string(body))
	case paypal.EventRefundFailed:
		return s.refundSvc.ApplyGatewayOutcome(event.Resource.ID, event.Resource.InvoiceID, false, string(body))
	default:
		logger.Warn("Unsupported payment webhook event type", map[string]interface{}{
			"event_type": event.EventType,
		})
		return ApplyResultRejected, nil
	}
}

// handleOrderApproved 구매자 승인 즉시 캡처를 시도한다
func (s *paymentService) handleOrderApproved(ctx context.Context, event *paypal.WebhookEvent, raw string) (ApplyResult, error) {
	payment, err := s.locate(event.Resource.ID, event.Resource.InvoiceID, event.Resource.CustomID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			logger.Warn("Webhook for unknown payment", map[string]interface{}{
				"external_id": event.Resource.ID,
			})
			return ApplyResultRejected, nil
		}
		return "", err
	}

	if payment.Status == model.PaymentStatusSuccess {
		return ApplyResultAlreadyApplied, nil
	}
	if !payment.Open() && payment.Status != model.PaymentStatusClosed {
		return ApplyResultRejected, nil
	}
	if payment.ExternalID == nil {
		return ApplyResultRejected, nil
	}

	capResp, err := s.gateway.CaptureOrder(ctx, *payment.ExternalID, checkoutInvoicePrefix+payment.PaymentNo)
	if err != nil {
		if errors.Is(err, paypal.ErrAlreadyCaptured) {
			// 이미 캡처됨, 게이트웨이 상태로 대사한다
			return s.reconcileFromGateway(ctx, payment, raw)
		}
		logger.Error("Capture failed after approval", err, map[string]interface{}{
			"payment_no": payment.PaymentNo,
		})
		return s.applyCaptureOutcome(payment.ID, nil, raw, false)
	}

	capture := capResp.FirstCapture()
	if capture == nil || capture.Status != paypal.CaptureStatusCompleted {
		return s.applyCaptureOutcome(payment.ID, capture, raw, false)
	}
	return s.applyCaptureOutcome(payment.ID, capture, raw, true)
}

// handleCaptureOutcome 캡처 완료/거절 웹훅을 반영한다
func (s *paymentService) handleCaptureOutcome(ctx context.Context, event *paypal.WebhookEvent, raw string, success bool) (ApplyResult, error) {
	orderID := ""
	if event.Resource.SupplementaryData != nil {
		orderID = event.Resource.SupplementaryData.RelatedIDs.OrderID
	}
	payment, err := s.locate(orderID, event.Resource.InvoiceID, event.Resource.CustomID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			logger.Warn("Capture webhook for unknown payment", map[string]interface{}{
				"capture_id": event.Resource.ID,
				"invoice_id": event.Resource.InvoiceID,
			})
			return ApplyResultRejected, nil
		}
		return "", err
	}

	capture := &paypal.Capture{
		ID:        event.Resource.ID,
		InvoiceID: event.Resource.InvoiceID,
	}
	if event.Resource.Amount != nil {
		capture.Amount = *event.Resource.Amount
	}
	if success {
		capture.Status = paypal.CaptureStatusCompleted
	} else {
		capture.Status = paypal.CaptureStatusDeclined
	}

	result, err := s.applyCaptureOutcome(payment.ID, capture, raw, success)
	if err != nil {
		return result, err
	}

	// 결제는 확정됐지만 주문이 더 이상 결제 가능 상태가 아니면 전액 자동 환불
	if result == ApplyResultApplied && success {
		s.maybeRefundLatePayment(ctx, payment.ID)
	}
	return result, nil
}

// applyCaptureOutcome 결제 시도에 캡처 결론을 반영하고, 주문이 결제 대기 중이면
// PAID 전이와 예약 재고 확정까지 한 트랜잭션으로 처리한다.
func (s *paymentService) applyCaptureOutcome(paymentID uint, capture *paypal.Capture, raw string, success bool) (ApplyResult, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var payment model.PaymentOrder
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payment, paymentID).Error; err != nil {
		tx.Rollback()
		return "", err
	}

	wanted := model.PaymentStatusSuccess
	if !success {
		wanted = model.PaymentStatusFail
	}
	if payment.Status == wanted {
		tx.Rollback()
		return ApplyResultAlreadyApplied, nil
	}

	now := time.Now()

	if success && capture != nil && capture.Amount.Value != "" {
		// 금액 불일치는 자동 확정하지 않고 수동 처리 대상으로 돌린다
		captured, err := money.FromMajorString(capture.Amount.CurrencyCode, capture.Amount.Value)
		if err != nil || captured.Amount != payment.Amount || captured.Currency != payment.Currency {
			logger.Warn("Capture amount mismatch, marking payment exception", map[string]interface{}{
				"payment_no": payment.PaymentNo,
				"expected":   payment.Amount,
				"captured":   capture.Amount.Value,
			})
			if markErr := payment.MarkException(); markErr != nil {
				tx.Rollback()
				return ApplyResultRejected, nil
			}
			payment.NotifyPayload = raw
			payment.LastNotifiedAt = &now
			if err := tx.Save(&payment).Error; err != nil {
				tx.Rollback()
				return "", err
			}
			if err := tx.Commit().Error; err != nil {
				return "", err
			}
			return ApplyResultRejected, nil
		}
	}

	var transitErr error
	if success {
		if payment.Status == model.PaymentStatusClosed {
			transitErr = payment.ReopenSuccess(now)
		} else {
			transitErr = payment.MarkSuccess(now)
		}
	} else {
		transitErr = payment.MarkFail()
	}
	if transitErr != nil {
		tx.Rollback()
		logger.Warn("Capture outcome rejected: conflicting payment state", map[string]interface{}{
			"payment_no": payment.PaymentNo,
			"status":     payment.Status,
			"success":    success,
		})
		return ApplyResultRejected, nil
	}

	if capture != nil && capture.ID != "" {
		payment.CaptureID = &capture.ID
	}
	payment.NotifyPayload = raw
	payment.LastNotifiedAt = &now

	if err := tx.Save(&payment).Error; err != nil {
		tx.Rollback()
		return "", err
	}

	if success {
		var order model.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, payment.OrderID).Error; err != nil {
			tx.Rollback()
			return "", err
		}

		if order.Payable() {
			from := order.Status
			if err := order.MarkPaid(now); err != nil {
				tx.Rollback()
				return "", err
			}

			var items []model.OrderItem
			if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
				tx.Rollback()
				return "", err
			}
			for _, item := range items {
				if _, err := s.invSvc.DeductOutstanding(tx, item.SkuID, order.ID, "payment "+payment.PaymentNo); err != nil {
					tx.Rollback()
					return "", err
				}
			}

			if err := tx.Save(&order).Error; err != nil {
				tx.Rollback()
				return "", err
			}
			if err := tx.Create(model.NewOrderStatusLog(order.ID, model.EventSourcePaymentCallback, &from, order.Status, "payment "+payment.PaymentNo)).Error; err != nil {
				tx.Rollback()
				return "", err
			}
		} else {
			logger.Warn("Payment captured for non payable order", map[string]interface{}{
				"payment_no": payment.PaymentNo,
				"order_no":   order.OrderNo,
				"status":     order.Status,
			})
		}
	}

	if err := tx.Commit().Error; err != nil {
		return "", err
	}

	logger.Info("Capture outcome applied", map[string]interface{}{
		"payment_no": payment.PaymentNo,
		"status":     payment.Status,
	})
	return ApplyResultApplied, nil
}

// maybeRefundLatePayment 확정된 결제의 주문이 결제 불가 상태면 전액 자동 환불을 건다
func (s *paymentService) maybeRefundLatePayment(ctx context.Context, paymentID uint) {
	payment, err := s.paymentRepo.FindByID(paymentID)
	if err != nil || payment.Status != model.PaymentStatusSuccess {
		return
	}
	order, err := s.orderRepo.FindByID(payment.OrderID)
	if err != nil {
		return
	}
	switch order.Status {
	case model.OrderStatusCancelled, model.OrderStatusClosed:
		if _, err := s.refundSvc.CreateLatePaymentRefund(ctx, payment.ID); err != nil {
			logger.Error("Failed to create late payment refund", err, map[string]interface{}{
				"payment_no": payment.PaymentNo,
			})
		}
	}
}

// reconcileFromGateway 게이트웨이에 저장된 주문 상태를 가져와 반영한다
func (s *paymentService) reconcileFromGateway(ctx context.Context, payment *model.PaymentOrder, raw string) (ApplyResult, error) {
	if payment.ExternalID == nil {
		return ApplyResultRejected, nil
	}

	resp, err := s.gateway.GetOrder(ctx, *payment.ExternalID)
	if err != nil {
		if errors.Is(err, paypal.ErrOrderNotFound) {
			return s.markException(payment.ID, raw)
		}
		return "", err
	}

	now := time.Now()
	payment.LastPolledAt = &now
	if err := s.paymentRepo.Update(payment); err != nil {
		return "", err
	}

	switch resp.Status {
	case paypal.OrderStatusCompleted:
		capture := resp.FirstCapture()
		success := capture != nil && capture.Status == paypal.CaptureStatusCompleted
		result, err := s.applyCaptureOutcome(payment.ID, capture, raw, success)
		if err != nil {
			return result, err
		}
		if result == ApplyResultApplied && success {
			s.maybeRefundLatePayment(ctx, payment.ID)
		}
		return result, nil
	case paypal.OrderStatusVoided:
		return s.applyCaptureOutcome(payment.ID, nil, raw, false)
	default:
		return ApplyResultAlreadyApplied, nil
	}
}

// markException 결제 시도를 수동 처리 대상으로 돌린다
func (s *paymentService) markException(paymentID uint, raw string) (ApplyResult, error) {
	payment, err := s.paymentRepo.FindByID(paymentID)
	if err != nil {
		return "", err
	}
	if err := payment.MarkException(); err != nil {
		return ApplyResultRejected, nil
	}
	now := time.Now()
	payment.NotifyPayload = raw
	payment.LastNotifiedAt = &now
	if err := s.paymentRepo.Update(payment); err != nil {
		return "", err
	}
	return ApplyResultApplied, nil
}

// locate 외부 주문 ID, 인보이스, custom_id 순으로 결제 시도를 찾는다
func (s *paymentService) locate(externalID, invoiceID, customID string) (*model.PaymentOrder, error) {
	if externalID != "" {
		payment, err := s.paymentRepo.FindByExternalID(externalID)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	paymentNo := customID
	if no, ok := strings.CutPrefix(invoiceID, checkoutInvoicePrefix); ok {
		paymentNo = no
	}
	if paymentNo != "" {
		payment, err := s.paymentRepo.FindByPaymentNo(paymentNo)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrPaymentNotFound
}

func (s *paymentService) GetByPaymentNo(paymentNo string) (*model.PaymentOrder, error) {
	payment, err := s.paymentRepo.FindByPaymentNo(paymentNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) ListByOrderNo(orderNo string) ([]model.PaymentOrder, error) {
	order, err := s.orderRepo.FindByOrderNo(orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return s.paymentRepo.FindByOrderID(order.ID)
}

// SyncPending 웹훅이 오지 않아 PENDING에 머문 시도를 게이트웨이 기준으로 대사한다
func (s *paymentService) SyncPending(ctx context.Context, olderThan time.Duration, batchSize int) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	payments, err := s.paymentRepo.FindStalePending(cutoff, batchSize)
	if err != nil {
		return 0, err
	}
	if len(payments) == 0 {
		return 0, nil
	}

	logger.Info("Syncing pending payments with gateway", map[string]interface{}{
		"count": len(payments),
	})

	synced := 0
	for i := range payments {
		result, err := s.reconcileFromGateway(ctx, &payments[i], "")
		if err != nil {
			logger.Error("Failed to reconcile payment", err, map[string]interface{}{
				"payment_no": payments[i].PaymentNo,
			})
			continue
		}
		if result == ApplyResultApplied {
			synced++
		}
	}
	return synced, nil
}
