package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShipmentStatus_Priority(t *testing.T) {
	assert.Equal(t, 1, ShipmentStatusCreated.Priority())
	assert.Equal(t, 10, ShipmentStatusDelivered.Priority())
	assert.Equal(t, 0, ShipmentStatusException.Priority())
	assert.Equal(t, 0, ShipmentStatusReturned.Priority())
}

func TestShipmentStatus_Terminal(t *testing.T) {
	for _, s := range []ShipmentStatus{ShipmentStatusDelivered, ShipmentStatusReturned, ShipmentStatusCancelled, ShipmentStatusLost} {
		assert.True(t, s.Terminal(), "%s", s)
	}
	for _, s := range []ShipmentStatus{ShipmentStatusCreated, ShipmentStatusInTransit, ShipmentStatusException, ShipmentStatusCustomsHold} {
		assert.False(t, s.Terminal(), "%s", s)
	}
}

func TestShipment_CanTransit_Forward(t *testing.T) {
	s := &Shipment{Status: ShipmentStatusLabelCreated}

	assert.True(t, s.CanTransit(ShipmentStatusPickedUp))
	// 중간 단계 생략 허용
	assert.True(t, s.CanTransit(ShipmentStatusOutForDelivery))
	assert.True(t, s.CanTransit(ShipmentStatusDelivered))
}

func TestShipment_CanTransit_Backward(t *testing.T) {
	s := &Shipment{Status: ShipmentStatusInTransit}

	assert.False(t, s.CanTransit(ShipmentStatusPickedUp))
	assert.False(t, s.CanTransit(ShipmentStatusInTransit))
}

func TestShipment_CanTransit_Exception(t *testing.T) {
	s := &Shipment{Status: ShipmentStatusCustomsHold}
	assert.True(t, s.CanTransit(ShipmentStatusException))

	// 이상 상황 복구: 임의 단계로 이동 가능
	s = &Shipment{Status: ShipmentStatusException}
	assert.True(t, s.CanTransit(ShipmentStatusInTransit))
	assert.True(t, s.CanTransit(ShipmentStatusDelivered))
	assert.True(t, s.CanTransit(ShipmentStatusReturned))
	assert.True(t, s.CanTransit(ShipmentStatusLost))
	assert.False(t, s.CanTransit(ShipmentStatusCancelled))
}

func TestShipment_CanTransit_CancelOnlyBeforePickup(t *testing.T) {
	for _, from := range []ShipmentStatus{ShipmentStatusCreated, ShipmentStatusLabelCreated} {
		s := &Shipment{Status: from}
		assert.True(t, s.CanTransit(ShipmentStatusCancelled), "from %s", from)
	}

	// 집화 이후에는 반송/분실만 가능하다
	for _, from := range []ShipmentStatus{ShipmentStatusPickedUp, ShipmentStatusInTransit, ShipmentStatusCustomsHold, ShipmentStatusOutForDelivery} {
		s := &Shipment{Status: from}
		assert.False(t, s.CanTransit(ShipmentStatusCancelled), "from %s", from)
	}
}

func TestShipment_CanTransit_Terminal(t *testing.T) {
	for _, terminal := range []ShipmentStatus{ShipmentStatusDelivered, ShipmentStatusReturned, ShipmentStatusCancelled, ShipmentStatusLost} {
		s := &Shipment{Status: terminal}
		assert.False(t, s.CanTransit(ShipmentStatusInTransit), "from %s", terminal)
		assert.False(t, s.CanTransit(ShipmentStatusException), "from %s", terminal)
	}

	// 진행 중 어느 단계에서든 반송/분실로 끝날 수 있다
	s := &Shipment{Status: ShipmentStatusOutForDelivery}
	assert.True(t, s.CanTransit(ShipmentStatusReturned))
	assert.True(t, s.CanTransit(ShipmentStatusLost))
}

func TestShipment_ApplyTransition_Timestamps(t *testing.T) {
	eventTime := time.Now().Add(-time.Hour)
	s := &Shipment{Status: ShipmentStatusLabelCreated}

	s.ApplyTransition(ShipmentStatusPickedUp, eventTime)
	assert.Equal(t, ShipmentStatusPickedUp, s.Status)
	if assert.NotNil(t, s.PickupTime) {
		assert.Equal(t, eventTime, *s.PickupTime)
	}

	// 이미 기록된 집화 시각은 덮어쓰지 않는다
	later := eventTime.Add(time.Hour)
	s.ApplyTransition(ShipmentStatusDelivered, later)
	assert.Equal(t, eventTime, *s.PickupTime)
	if assert.NotNil(t, s.DeliveredTime) {
		assert.Equal(t, later, *s.DeliveredTime)
	}
}
