package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/internal/app/repository"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
	"github.com/eason8811/international-shopping-sub004/pkg/money"
	"github.com/eason8811/international-shopping-sub004/pkg/number"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrEmptyOrderItems    = errors.New("order has no items")
	ErrMixedCurrency      = errors.New("order items span multiple currencies")
	ErrInvalidOrderAmount = errors.New("invalid order amounts")
	ErrInvalidAddress     = errors.New("invalid shipping address")
)

// CreateOrderItemRequest 주문 생성 항목
type CreateOrderItemRequest struct {
	SkuCode  string `json:"sku_code" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderAddressRequest 주문 생성 시 배송지 입력
type CreateOrderAddressRequest struct {
	Recipient  string `json:"recipient" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	Country    string `json:"country" binding:"required,len=2"`
	Province   string `json:"province"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
}

// valid HTTP 바인딩을 거치지 않는 호출 경로를 위한 최소 검증
func (a CreateOrderAddressRequest) valid() bool {
	return a.Recipient != "" && a.Phone != "" && len(a.Country) == 2 &&
		a.City != "" && a.PostalCode != "" && a.Line1 != ""
}

// snapshot 생성 시점 값을 그대로 주문에 고정한다
func (a CreateOrderAddressRequest) snapshot() model.AddressSnapshot {
	return model.AddressSnapshot{
		Recipient:  a.Recipient,
		Phone:      a.Phone,
		Country:    a.Country,
		Province:   a.Province,
		City:       a.City,
		PostalCode: a.PostalCode,
		Line1:      a.Line1,
		Line2:      a.Line2,
	}
}

// CreateOrderRequest 주문 생성 요청
type CreateOrderRequest struct {
	UserID         uint                      `json:"user_id"`
	Items          []CreateOrderItemRequest  `json:"items" binding:"required,dive"`
	Address        CreateOrderAddressRequest `json:"address" binding:"required"`
	DiscountAmount int64                     `json:"discount_amount"`
	ShippingFee    int64                     `json:"shipping_fee"`
	Remark         string                    `json:"remark"`
}

type OrderService interface {
	CreateOrder(req CreateOrderRequest) (*model.Order, error)
	GetOrderByNo(orderNo string) (*model.Order, error)
	ListOrders(status string, limit, offset int) ([]model.Order, int64, error)
	GetStatusLogs(orderNo string) ([]model.OrderStatusLog, error)
	Cancel(orderNo string, source model.EventSource, reason string) (*model.Order, error)
	Close(orderNo string, source model.EventSource, reason string) (*model.Order, error)
	RecoverTimeouts(ttl time.Duration, batchSize int, reason string) (int, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
	invSvc    InventoryService
	db        *gorm.DB
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	invSvc InventoryService,
	db *gorm.DB,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		invSvc:    invSvc,
		db:        db,
	}
}

// CreateOrder 주문 생성. 한 트랜잭션 안에서 SKU 잠금, 금액 계산, 재고 예약,
// CREATED -> PENDING_PAYMENT 전이까지 끝낸다.
func (s *orderService) CreateOrder(req CreateOrderRequest) (*model.Order, error) {
	logger.Info("Creating order", map[string]interface{}{
		"user_id":    req.UserID,
		"item_count": len(req.Items),
	})

	if len(req.Items) == 0 {
		logger.Warn("Cannot create order: no items", map[string]interface{}{
			"user_id": req.UserID,
		})
		return nil, ErrEmptyOrderItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if !req.Address.valid() {
		logger.Warn("Cannot create order: invalid shipping address", map[string]interface{}{
			"user_id": req.UserID,
		})
		return nil, ErrInvalidAddress
	}

	// 같은 SKU가 여러 줄로 오면 수량을 합치고, SKU 코드 순으로 잠가 교착을 피한다
	quantities := make(map[string]int, len(req.Items))
	for _, item := range req.Items {
		quantities[item.SkuCode] += item.Quantity
	}
	items := make([]CreateOrderItemRequest, 0, len(quantities))
	for code, qty := range quantities {
		items = append(items, CreateOrderItemRequest{SkuCode: code, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SkuCode < items[j].SkuCode })

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during order creation, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"user_id": req.UserID,
			})
		}
	}()

	txInvRepo := repository.NewInventoryRepository(tx)

	var (
		total      money.Money
		currency   string
		orderItems []model.OrderItem
	)

	for _, item := range items {
		sku, err := txInvRepo.FindSkuByCodeForUpdate(item.SkuCode)
		if err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Warn("Sku not found during order creation", map[string]interface{}{
					"user_id":  req.UserID,
					"sku_code": item.SkuCode,
				})
				return nil, ErrSkuNotFound
			}
			return nil, err
		}

		if currency == "" {
			currency = sku.Currency
			total, err = money.Zero(currency)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
		} else if sku.Currency != currency {
			tx.Rollback()
			logger.Warn("Order creation failed: mixed currencies", map[string]interface{}{
				"user_id":  req.UserID,
				"sku_code": item.SkuCode,
				"expected": currency,
				"got":      sku.Currency,
			})
			return nil, ErrMixedCurrency
		}

		unitPrice, err := money.New(currency, sku.UnitPrice)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		lineAmount, err := unitPrice.MulQty(item.Quantity)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		total, err = total.Add(lineAmount)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		orderItems = append(orderItems, model.OrderItem{
			SkuID:      sku.ID,
			SkuCode:    sku.SkuCode,
			Name:       sku.Name,
			UnitPrice:  sku.UnitPrice,
			Quantity:   item.Quantity,
			LineAmount: lineAmount.Amount,
		})
	}

	// pay = total - discount + shipping, 중간값 포함 전부 음수 불가
	discount, err := money.New(currency, req.DiscountAmount)
	if err != nil {
		tx.Rollback()
		return nil, ErrInvalidOrderAmount
	}
	shipping, err := money.New(currency, req.ShippingFee)
	if err != nil {
		tx.Rollback()
		return nil, ErrInvalidOrderAmount
	}
	afterDiscount, err := total.Sub(discount)
	if err != nil {
		tx.Rollback()
		logger.Warn("Order creation failed: discount exceeds total", map[string]interface{}{
			"user_id":  req.UserID,
			"total":    total.Amount,
			"discount": discount.Amount,
		})
		return nil, ErrInvalidOrderAmount
	}
	payAmount, err := afterDiscount.Add(shipping)
	if err != nil {
		tx.Rollback()
		return nil, ErrInvalidOrderAmount
	}

	order := &model.Order{
		OrderNo:        number.New(),
		UserID:         req.UserID,
		Currency:       currency,
		TotalAmount:    total.Amount,
		DiscountAmount: discount.Amount,
		ShippingFee:    shipping.Amount,
		PayAmount:      payAmount.Amount,
		Status:         model.OrderStatusCreated,
		Remark:         req.Remark,
		Address:        req.Address.snapshot(),
		Items:          orderItems,
	}

	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to create order", err, map[string]interface{}{
			"user_id": req.UserID,
		})
		return nil, err
	}

	if err := tx.Create(model.NewOrderStatusLog(order.ID, model.EventSourceUser, nil, model.OrderStatusCreated, "")).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for _, item := range order.Items {
		if _, err := s.invSvc.Reserve(tx, item.SkuCode, order.ID, item.Quantity, "order created"); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	from := order.Status
	if err := order.MarkPendingPayment(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Save(order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Create(model.NewOrderStatusLog(order.ID, model.EventSourceSystem, &from, order.Status, "")).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit order creation", err, map[string]interface{}{
			"user_id": req.UserID,
		})
		return nil, err
	}

	logger.Info("Order created successfully", map[string]interface{}{
		"order_id":   order.ID,
		"order_no":   order.OrderNo,
		"pay_amount": order.PayAmount,
		"currency":   order.Currency,
	})
	return order, nil
}

func (s *orderService) GetOrderByNo(orderNo string) (*model.Order, error) {
	order, err := s.orderRepo.FindByOrderNo(orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) ListOrders(status string, limit, offset int) ([]model.Order, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.orderRepo.List(status, limit, offset)
}

func (s *orderService) GetStatusLogs(orderNo string) ([]model.OrderStatusLog, error) {
	order, err := s.GetOrderByNo(orderNo)
	if err != nil {
		return nil, err
	}
	return s.orderRepo.FindStatusLogs(order.ID)
}

// Cancel 주문 취소. 예약 재고를 전량 해제하고 미결 결제 시도를 닫는다.
func (s *orderService) Cancel(orderNo string, source model.EventSource, reason string) (*model.Order, error) {
	logger.Info("Cancelling order", map[string]interface{}{
		"order_no": orderNo,
		"source":   source,
	})
	return s.terminate(orderNo, source, reason, func(order *model.Order, now time.Time) error {
		return order.Cancel(now)
	})
}

// Close 주문 종결. 취소와 같은 정리 작업을 수행하되 CANCELLED에서도 진입할 수 있다.
func (s *orderService) Close(orderNo string, source model.EventSource, reason string) (*model.Order, error) {
	logger.Info("Closing order", map[string]interface{}{
		"order_no": orderNo,
		"source":   source,
	})
	return s.terminate(orderNo, source, reason, func(order *model.Order, now time.Time) error {
		return order.Close(now)
	})
}

// terminate 취소/종결 공통 경로. 전이 검증은 transit 콜백에 맡긴다.
func (s *orderService) terminate(orderNo string, source model.EventSource, reason string, transit func(*model.Order, time.Time) error) (*model.Order, error) {
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

	from := order.Status
	if err := transit(&order, time.Now()); err != nil {
		tx.Rollback()
		return nil, err
	}

	var items []model.OrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, item := range items {
		if _, err := s.invSvc.ReleaseOutstanding(tx, item.SkuID, order.ID, reason); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// 미결 결제 시도는 더 진행될 수 없으므로 닫는다
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

	if err := tx.Save(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Create(model.NewOrderStatusLog(order.ID, source, &from, order.Status, reason)).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.Info("Order terminated", map[string]interface{}{
		"order_no":    order.OrderNo,
		"from_status": from,
		"to_status":   order.Status,
		"source":      source,
	})
	return &order, nil
}

// RecoverTimeouts 결제 대기 시간을 넘긴 주문을 일괄 취소한다.
// 경합으로 이미 상태가 바뀐 주문은 조용히 건너뛴다.
func (s *orderService) RecoverTimeouts(ttl time.Duration, batchSize int, reason string) (int, error) {
	deadline := time.Now().Add(-ttl)

	candidates, err := s.orderRepo.FindPaymentTimedOut(deadline, batchSize)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	logger.Info("Recovering timed out orders", map[string]interface{}{
		"deadline":  deadline,
		"candidate": len(candidates),
	})

	cancelled := 0
	for _, candidate := range candidates {
		if _, err := s.Cancel(candidate.OrderNo, model.EventSourceScheduler, reason); err != nil {
			if errors.Is(err, model.ErrInvalidTransition) || errors.Is(err, ErrOrderNotFound) {
				logger.Debug("Skipping order already transitioned", map[string]interface{}{
					"order_no": candidate.OrderNo,
				})
				continue
			}
			logger.Error("Failed to cancel timed out order", err, map[string]interface{}{
				"order_no": candidate.OrderNo,
			})
			return cancelled, err
		}
		cancelled++
	}

	logger.Info("Timed out orders recovered", map[string]interface{}{
		"cancelled": cancelled,
	})
	return cancelled, nil
}
