package service

import (
	"context"
	"testing"
	"time"

	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/internal/app/repository"
	"github.com/eason8811/international-shopping-sub004/pkg/number"
	"github.com/eason8811/international-shopping-sub004/pkg/payment/paypal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createPaidOrder SKU-A 2개 + SKU-B 1개 + 배송비 200 = 실결제 8000짜리
// 주문을 만들고 결제까지 확정한다.
func createPaidOrder(t *testing.T, env *paymentTestEnv) *model.Order {
	t.Helper()
	order, err := env.orderSvc.CreateOrder(CreateOrderRequest{
		UserID:  1,
		Address: testShippingAddress(),
		Items: []CreateOrderItemRequest{
			{SkuCode: "SKU-A", Quantity: 2},
			{SkuCode: "SKU-B", Quantity: 1},
		},
		ShippingFee: 200,
	})
	require.NoError(t, err)

	env.capturePayment(t, order, "PP-"+order.OrderNo[:8], "CAP-"+order.OrderNo[:8])

	paid, err := env.orderSvc.GetOrderByNo(order.OrderNo)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusPaid, paid.Status)
	return paid
}

func orderItemByCode(t *testing.T, order *model.Order, skuCode string) model.OrderItem {
	t.Helper()
	for _, item := range order.Items {
		if item.SkuCode == skuCode {
			return item
		}
	}
	t.Fatalf("order has no item with sku code %s", skuCode)
	return model.OrderItem{}
}

func TestRefundService_RequestRefund_Partial(t *testing.T) {
	env := setupPaymentTestEnv(t)
	order := createPaidOrder(t, env)
	itemA := orderItemByCode(t, order, "SKU-A")

	env.gateway.refundCaptureFn = func(captureID string, req paypal.RefundRequest, requestID string) (*paypal.RefundResponse, error) {
		return &paypal.RefundResponse{ID: "REF-1", Status: paypal.RefundStatusCompleted}, nil
	}

	refund, err := env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		Items:      []RefundRequestItem{{OrderItemID: itemA.ID, Quantity: 1}},
		ReasonCode: model.RefundReasonUserRequest,
		ReasonText: "one unit damaged",
		Initiator:  model.RefundInitiatorUser,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusSuccess, refund.Status)
	assert.Equal(t, int64(2500), refund.Amount)
	assert.Equal(t, int64(2500), refund.ItemsAmount)
	// 부분 환불에는 배송비가 붙지 않는다
	assert.Zero(t, refund.ShippingAmount)
	require.Len(t, refund.Items, 1)
	assert.Equal(t, 1, refund.Items[0].Quantity)

	// 환불 성공분만큼 재입고된다
	avail, err := env.invSvc.GetAvailability("SKU-A")
	require.NoError(t, err)
	assert.Equal(t, 9, avail.Available)

	refunding, err := env.orderSvc.GetOrderByNo(order.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusRefunding, refunding.Status)
}

func TestRefundService_RequestRefund_FullRemaining(t *testing.T) {
	env := setupPaymentTestEnv(t)
	order := createPaidOrder(t, env)
	itemA := orderItemByCode(t, order, "SKU-A")

	refundID := "REF-1"
	env.gateway.refundCaptureFn = func(captureID string, req paypal.RefundRequest, requestID string) (*paypal.RefundResponse, error) {
		return &paypal.RefundResponse{ID: refundID, Status: paypal.RefundStatusCompleted}, nil
	}

	_, err := env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		Items:      []RefundRequestItem{{OrderItemID: itemA.ID, Quantity: 1}},
		ReasonCode: model.RefundReasonUserRequest,
		Initiator:  model.RefundInitiatorUser,
	})
	require.NoError(t, err)

	// 항목을 비우면 남은 전량 + 남은 배송비가 환불된다
	refundID = "REF-2"
	refund, err := env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		ReasonCode: model.RefundReasonUserRequest,
		Initiator:  model.RefundInitiatorAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusSuccess, refund.Status)
	assert.Equal(t, int64(5500), refund.Amount)
	assert.Equal(t, int64(5300), refund.ItemsAmount)
	assert.Equal(t, int64(200), refund.ShippingAmount)

	// 전액 환불로 주문이 REFUNDED로 넘어간다
	refunded, err := env.orderSvc.GetOrderByNo(order.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusRefunded, refunded.Status)

	availA, err := env.invSvc.GetAvailability("SKU-A")
	require.NoError(t, err)
	assert.Equal(t, 10, availA.Available)
	availB, err := env.invSvc.GetAvailability("SKU-B")
	require.NoError(t, err)
	assert.Equal(t, 5, availB.Available)

	// 더 환불할 것이 없다
	_, err = env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		ReasonCode: model.RefundReasonUserRequest,
		Initiator:  model.RefundInitiatorUser,
	})
	assert.ErrorIs(t, err, ErrNothingToRefund)
}

func TestRefundService_RequestRefund_ExceedsQuantity(t *testing.T) {
	env := setupPaymentTestEnv(t)
	order := createPaidOrder(t, env)
	itemA := orderItemByCode(t, order, "SKU-A")

	_, err := env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		Items:      []RefundRequestItem{{OrderItemID: itemA.ID, Quantity: 3}},
		ReasonCode: model.RefundReasonUserRequest,
		Initiator:  model.RefundInitiatorUser,
	})
	assert.ErrorIs(t, err, ErrRefundExceedsPaid)

	_, err = env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		Items:      []RefundRequestItem{{OrderItemID: 99999, Quantity: 1}},
		ReasonCode: model.RefundReasonUserRequest,
		Initiator:  model.RefundInitiatorUser,
	})
	assert.ErrorIs(t, err, ErrRefundExceedsPaid)
}

func TestRefundService_RequestRefund_NotRefundable(t *testing.T) {
	env := setupPaymentTestEnv(t)
	order := env.createOrder(t)

	_, err := env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		ReasonCode: model.RefundReasonUserRequest,
		Initiator:  model.RefundInitiatorUser,
	})
	assert.ErrorIs(t, err, ErrOrderNotRefundable)
}

func TestRefundService_RequestRefund_NoCapturedPayment(t *testing.T) {
	env := setupPaymentTestEnv(t)

	// 결제 이력 없이 PAID로 들어간 주문
	orderRepo := repository.NewOrderRepository(env.db)
	order := &model.Order{
		OrderNo:     number.New(),
		UserID:      1,
		Currency:    "USD",
		TotalAmount: 2500,
		PayAmount:   2500,
		Status:      model.OrderStatusPaid,
	}
	require.NoError(t, orderRepo.Create(order))

	_, err := env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		ReasonCode: model.RefundReasonUserRequest,
		Initiator:  model.RefundInitiatorUser,
	})
	assert.ErrorIs(t, err, ErrNoCapturedPayment)
}

func TestRefundService_ApplyGatewayOutcome_PendingThenCompleted(t *testing.T) {
	env := setupPaymentTestEnv(t)
	order := createPaidOrder(t, env)

	env.gateway.refundCaptureFn = func(captureID string, req paypal.RefundRequest, requestID string) (*paypal.RefundResponse, error) {
		return &paypal.RefundResponse{ID: "REF-1", Status: paypal.RefundStatusPending}, nil
	}

	refund, err := env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		ReasonCode: model.RefundReasonUserRequest,
		Initiator:  model.RefundInitiatorUser,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusPending, refund.Status)

	result, err := env.refundSvc.ApplyGatewayOutcome("REF-1", "", true, `{"id":"WH-R"}`)
	require.NoError(t, err)
	assert.Equal(t, ApplyResultApplied, result)

	// 같은 결론은 한 번만 반영된다
	result, err = env.refundSvc.ApplyGatewayOutcome("REF-1", "", true, `{"id":"WH-R"}`)
	require.NoError(t, err)
	assert.Equal(t, ApplyResultAlreadyApplied, result)

	done, err := env.refundSvc.GetByRefundNo(refund.RefundNo)
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusSuccess, done.Status)

	refunded, err := env.orderSvc.GetOrderByNo(order.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusRefunded, refunded.Status)
}

func TestRefundService_ApplyGatewayOutcome_Failure(t *testing.T) {
	env := setupPaymentTestEnv(t)
	order := createPaidOrder(t, env)

	env.gateway.refundCaptureFn = func(captureID string, req paypal.RefundRequest, requestID string) (*paypal.RefundResponse, error) {
		return &paypal.RefundResponse{ID: "REF-1", Status: paypal.RefundStatusPending}, nil
	}

	refund, err := env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		ReasonCode: model.RefundReasonUserRequest,
		Initiator:  model.RefundInitiatorUser,
	})
	require.NoError(t, err)

	result, err := env.refundSvc.ApplyGatewayOutcome("REF-1", "", false, "")
	require.NoError(t, err)
	assert.Equal(t, ApplyResultApplied, result)

	failed, err := env.refundSvc.GetByRefundNo(refund.RefundNo)
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusFail, failed.Status)

	// 실패한 환불은 재입고하지 않는다
	avail, err := env.invSvc.GetAvailability("SKU-A")
	require.NoError(t, err)
	assert.Equal(t, 8, avail.Available)

	stuck, err := env.orderSvc.GetOrderByNo(order.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusRefunding, stuck.Status)
}

func TestRefundService_ApplyGatewayOutcome_InvoiceFallback(t *testing.T) {
	env := setupPaymentTestEnv(t)
	order := createPaidOrder(t, env)

	// 게이트웨이 요청이 실패해 외부 환불 ID 없이 INIT으로 남는다
	env.gateway.refundCaptureFn = func(captureID string, req paypal.RefundRequest, requestID string) (*paypal.RefundResponse, error) {
		return nil, paypal.ErrNetworkError
	}

	refund, err := env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		ReasonCode: model.RefundReasonUserRequest,
		Initiator:  model.RefundInitiatorUser,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusInit, refund.Status)
	assert.Nil(t, refund.ExternalRefundID)

	// 인보이스의 환불 번호로 찾아 외부 ID를 채워 넣는다
	result, err := env.refundSvc.ApplyGatewayOutcome("REF-X", "ppref-"+refund.RefundNo, true, "")
	require.NoError(t, err)
	assert.Equal(t, ApplyResultApplied, result)

	done, err := env.refundSvc.GetByRefundNo(refund.RefundNo)
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusSuccess, done.Status)
	require.NotNil(t, done.ExternalRefundID)
	assert.Equal(t, "REF-X", *done.ExternalRefundID)
}

func TestRefundService_ApplyGatewayOutcome_UnknownRefund(t *testing.T) {
	env := setupPaymentTestEnv(t)

	result, err := env.refundSvc.ApplyGatewayOutcome("REF-NOBODY", "ppref-01UNKNOWN0000000000000000", true, "")
	require.NoError(t, err)
	assert.Equal(t, ApplyResultRejected, result)
}

func TestRefundService_SyncOpen_ResubmitsInit(t *testing.T) {
	env := setupPaymentTestEnv(t)
	order := createPaidOrder(t, env)

	env.gateway.refundCaptureFn = func(captureID string, req paypal.RefundRequest, requestID string) (*paypal.RefundResponse, error) {
		return nil, paypal.ErrNetworkError
	}

	refund, err := env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		ReasonCode: model.RefundReasonUserRequest,
		Initiator:  model.RefundInitiatorUser,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusInit, refund.Status)

	require.NoError(t, env.db.Model(&model.RefundOrder{}).
		Where("id = ?", refund.ID).
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	// 대사 작업이 게이트웨이 요청을 다시 시도한다
	env.gateway.refundCaptureFn = func(captureID string, req paypal.RefundRequest, requestID string) (*paypal.RefundResponse, error) {
		return &paypal.RefundResponse{ID: "REF-RETRY", Status: paypal.RefundStatusCompleted}, nil
	}

	synced, err := env.refundSvc.SyncOpen(context.Background(), 10*time.Minute, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	done, err := env.refundSvc.GetByRefundNo(refund.RefundNo)
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusSuccess, done.Status)
}

func TestRefundService_SyncOpen_PollsPending(t *testing.T) {
	env := setupPaymentTestEnv(t)
	order := createPaidOrder(t, env)

	env.gateway.refundCaptureFn = func(captureID string, req paypal.RefundRequest, requestID string) (*paypal.RefundResponse, error) {
		return &paypal.RefundResponse{ID: "REF-1", Status: paypal.RefundStatusPending}, nil
	}

	refund, err := env.refundSvc.RequestRefund(context.Background(), RequestRefundInput{
		OrderNo:    order.OrderNo,
		ReasonCode: model.RefundReasonUserRequest,
		Initiator:  model.RefundInitiatorUser,
	})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&model.RefundOrder{}).
		Where("id = ?", refund.ID).
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	env.gateway.getRefundFn = func(refundID string) (*paypal.RefundResponse, error) {
		assert.Equal(t, "REF-1", refundID)
		return &paypal.RefundResponse{ID: "REF-1", Status: paypal.RefundStatusCompleted}, nil
	}

	synced, err := env.refundSvc.SyncOpen(context.Background(), 10*time.Minute, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	done, err := env.refundSvc.GetByRefundNo(refund.RefundNo)
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusSuccess, done.Status)
	assert.NotNil(t, done.LastPolledAt)
}
