package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_HappyPath(t *testing.T) {
	now := time.Now()
	order := &Order{Status: OrderStatusCreated}

	require.NoError(t, order.MarkPendingPayment())
	assert.Equal(t, OrderStatusPendingPayment, order.Status)

	require.NoError(t, order.MarkPaid(now))
	assert.Equal(t, OrderStatusPaid, order.Status)
	require.NotNil(t, order.PaidAt)

	require.NoError(t, order.MarkFulfilled(now))
	assert.Equal(t, OrderStatusFulfilled, order.Status)
	assert.NotNil(t, order.FulfilledAt)
}

func TestOrder_CancelAllowedStates(t *testing.T) {
	now := time.Now()

	for _, from := range []OrderStatus{OrderStatusCreated, OrderStatusPendingPayment} {
		order := &Order{Status: from}
		require.NoError(t, order.Cancel(now), "cancel from %s", from)
		assert.Equal(t, OrderStatusCancelled, order.Status)
		assert.NotNil(t, order.CancelledAt)
	}

	for _, from := range []OrderStatus{OrderStatusPaid, OrderStatusFulfilled, OrderStatusCancelled, OrderStatusRefunding, OrderStatusRefunded, OrderStatusClosed} {
		order := &Order{Status: from}
		assert.ErrorIs(t, order.Cancel(now), ErrInvalidTransition, "cancel from %s", from)
		assert.Equal(t, from, order.Status)
	}
}

func TestOrder_CloseAllowedStates(t *testing.T) {
	now := time.Now()

	for _, from := range []OrderStatus{OrderStatusCreated, OrderStatusPendingPayment, OrderStatusCancelled} {
		order := &Order{Status: from}
		require.NoError(t, order.Close(now), "close from %s", from)
		assert.Equal(t, OrderStatusClosed, order.Status)
	}

	for _, from := range []OrderStatus{OrderStatusPaid, OrderStatusFulfilled, OrderStatusRefunding, OrderStatusRefunded, OrderStatusClosed} {
		order := &Order{Status: from}
		assert.ErrorIs(t, order.Close(now), ErrInvalidTransition, "close from %s", from)
	}
}

func TestOrder_RefundTransitions(t *testing.T) {
	for _, from := range []OrderStatus{OrderStatusPaid, OrderStatusFulfilled} {
		order := &Order{Status: from}
		require.NoError(t, order.BeginRefund(), "begin refund from %s", from)
		assert.Equal(t, OrderStatusRefunding, order.Status)

		require.NoError(t, order.CompleteRefund())
		assert.Equal(t, OrderStatusRefunded, order.Status)
	}

	order := &Order{Status: OrderStatusPendingPayment}
	assert.ErrorIs(t, order.BeginRefund(), ErrInvalidTransition)

	order = &Order{Status: OrderStatusPaid}
	assert.ErrorIs(t, order.CompleteRefund(), ErrInvalidTransition)
}

func TestOrder_MarkPaidRejectsCancelled(t *testing.T) {
	now := time.Now()
	order := &Order{Status: OrderStatusPendingPayment}

	require.NoError(t, order.Cancel(now))
	assert.ErrorIs(t, order.MarkPaid(now), ErrInvalidTransition)
	assert.Equal(t, OrderStatusCancelled, order.Status)
	assert.Nil(t, order.PaidAt)
}

func TestOrder_Payable(t *testing.T) {
	assert.True(t, (&Order{Status: OrderStatusPendingPayment}).Payable())
	assert.False(t, (&Order{Status: OrderStatusCreated}).Payable())
	assert.False(t, (&Order{Status: OrderStatusCancelled}).Payable())
}

func TestPaymentOrder_Transitions(t *testing.T) {
	now := time.Now()

	p := &PaymentOrder{Status: PaymentStatusInit}
	require.NoError(t, p.MarkGatewayCreated("ext-1"))
	assert.Equal(t, PaymentStatusPending, p.Status)
	require.NotNil(t, p.ExternalID)
	assert.Equal(t, "ext-1", *p.ExternalID)

	require.NoError(t, p.MarkSuccess(now))
	assert.Equal(t, PaymentStatusSuccess, p.Status)
	assert.NotNil(t, p.PaidAt)

	// 종결된 시도는 더 이상 움직이지 않는다
	assert.ErrorIs(t, p.MarkFail(), ErrInvalidTransition)
	assert.ErrorIs(t, p.Close(), ErrInvalidTransition)
	assert.ErrorIs(t, p.MarkGatewayCreated("ext-2"), ErrInvalidTransition)

	p = &PaymentOrder{Status: PaymentStatusPending}
	require.NoError(t, p.MarkException())
	assert.Equal(t, PaymentStatusException, p.Status)

	p = &PaymentOrder{Status: PaymentStatusInit}
	require.NoError(t, p.Close())
	assert.Equal(t, PaymentStatusClosed, p.Status)
	assert.False(t, p.Open())
}

func TestRefundOrder_Transitions(t *testing.T) {
	r := &RefundOrder{Status: RefundStatusInit}
	require.NoError(t, r.MarkPending())
	require.NoError(t, r.MarkSuccess())
	assert.ErrorIs(t, r.MarkFail(), ErrInvalidTransition)

	r = &RefundOrder{Status: RefundStatusInit}
	require.NoError(t, r.MarkSuccess())

	r = &RefundOrder{Status: RefundStatusFail}
	assert.ErrorIs(t, r.MarkPending(), ErrInvalidTransition)
}
