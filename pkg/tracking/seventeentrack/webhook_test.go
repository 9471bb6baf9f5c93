package seventeentrack

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePush(t *testing.T) {
	body := []byte(`{"event":"TRACKING_UPDATED","data":{"number":"TRK-1","carrier":100001,"track_info":{"latest_status":{"status":"InTransit","sub_status":"InTransit_PickedUp"},"latest_event":{"time_iso":"2026-08-30T10:00:00Z","description":"Picked up","location":"Shenzhen"}}}}`)

	push, err := ParsePush(body)
	require.NoError(t, err)
	assert.Equal(t, EventTrackingUpdated, push.Event)
	assert.Equal(t, "TRK-1", push.Data.Number)
	assert.Equal(t, "InTransit", push.Data.TrackInfo.LatestStatus.Status)
	assert.Equal(t, "InTransit_PickedUp", push.Data.TrackInfo.LatestStatus.SubStatus)

	expected, _ := time.Parse(time.RFC3339, "2026-08-30T10:00:00Z")
	assert.Equal(t, expected, push.EventTime())
	assert.Equal(t, "Picked up (Shenzhen)", push.Note())
}

func TestParsePush_Malformed(t *testing.T) {
	_, err := ParsePush([]byte("not json"))
	assert.ErrorIs(t, err, ErrMalformedPush)

	// 이벤트 유형이나 운송장 번호가 빠지면 거부한다
	_, err = ParsePush([]byte(`{"event":"TRACKING_UPDATED"}`))
	assert.ErrorIs(t, err, ErrMalformedPush)
	_, err = ParsePush([]byte(`{"data":{"number":"TRK-1"}}`))
	assert.ErrorIs(t, err, ErrMalformedPush)
}

func TestPush_EventTimeFallback(t *testing.T) {
	push := &Push{Event: EventTrackingUpdated, Data: PushData{Number: "TRK-1"}}

	before := time.Now()
	got := push.EventTime()
	assert.False(t, got.Before(before))
}

func TestPush_Note_NoLocation(t *testing.T) {
	push := &Push{
		Data: PushData{TrackInfo: TrackInfo{LatestEvent: &LatestEvent{Description: "Delivered"}}},
	}
	assert.Equal(t, "Delivered", push.Note())

	empty := &Push{}
	assert.Empty(t, empty.Note())
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"TRACKING_UPDATED","data":{"number":"TRK-1"}}`)

	assert.NoError(t, VerifySignature(body, "api-key", Sign(body, "api-key")))
	assert.ErrorIs(t, VerifySignature(body, "api-key", ""), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(body, "api-key", "bogus"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(body, "other-key", Sign(body, "api-key")), ErrInvalidSignature)
}

func TestDedupeKey(t *testing.T) {
	body := []byte(`{"event":"TRACKING_UPDATED","data":{"number":"TRK-1"}}`)

	assert.True(t, strings.HasPrefix(DedupeKey(body), "17track:webhook:"))
	assert.Equal(t, DedupeKey(body), DedupeKey(body))
	assert.NotEqual(t, DedupeKey(body), DedupeKey([]byte(`{"event":"TRACKING_STOPPED"}`)))

	// 이력 멱등 키는 같은 해시를 쓰되 접두사가 없다
	assert.Equal(t, strings.TrimPrefix(DedupeKey(body), "17track:webhook:"), SourceRef(body))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		status    string
		subStatus string
		target    string
		ok        bool
	}{
		{"InfoReceived", "", TargetLabelCreated, true},
		{"InTransit", "", TargetInTransit, true},
		{"InTransit", "InTransit_PickedUp", TargetPickedUp, true},
		{"InTransit", "InTransit_CustomsProcessing", TargetCustomsProcessing, true},
		{"InTransit", "InTransit_CustomsRequiringInformation", TargetCustomsHold, true},
		{"InTransit", "InTransit_CustomsReleased", TargetCustomsReleased, true},
		{"InTransit", "InTransit_HandedOver", TargetHandedOver, true},
		{"AvailableForPickup", "", TargetHandedOver, true},
		{"OutForDelivery", "", TargetOutForDelivery, true},
		{"Delivered", "", TargetDelivered, true},
		{"DeliveryFailure", "", TargetException, true},
		{"Exception", "", TargetException, true},
		{"Exception", "Exception_Returning", TargetException, true},
		{"Exception", "Exception_Returned", TargetReturned, true},
		{"Exception", "Exception_Cancel", TargetCancelled, true},
		{"Exception", "Exception_Lost", TargetLost, true},
		{"Exception", "Exception_Destroyed", TargetLost, true},
		// 위치 정보가 없는 상태는 전이 없이 기록만 한다
		{"Expired", "", "", false},
		{"NotFound", "", "", false},
		{"NotFound", "NotFound_InvalidCode", "", false},
		{"SomethingNew", "", "", false},
	}

	for _, tt := range tests {
		target, ok := Normalize(tt.status, tt.subStatus)
		assert.Equal(t, tt.ok, ok, "%s/%s", tt.status, tt.subStatus)
		assert.Equal(t, tt.target, target, "%s/%s", tt.status, tt.subStatus)
	}
}

func TestInvalidCode(t *testing.T) {
	assert.True(t, InvalidCode("NotFound_InvalidCode"))
	assert.False(t, InvalidCode("NotFound_Other"))
	assert.False(t, InvalidCode(""))
}
