package seventeentrack

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidSignature is returned when the push signature does not match
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedPush is returned when the push body cannot be decoded
	ErrMalformedPush = errors.New("malformed webhook payload")
)

// Push event types sent by the 17track webhook
const (
	EventTrackingUpdated = "TRACKING_UPDATED"
	EventTrackingStopped = "TRACKING_STOPPED"
)

// LatestStatus is the normalized status block of a tracked number
type LatestStatus struct {
	Status    string `json:"status"`
	SubStatus string `json:"sub_status"`
}

// LatestEvent is the most recent carrier scan event
type LatestEvent struct {
	TimeISO     string `json:"time_iso"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// TrackInfo carries the fields this integration reads from track_info
type TrackInfo struct {
	LatestStatus LatestStatus `json:"latest_status"`
	LatestEvent  *LatestEvent `json:"latest_event,omitempty"`
}

// PushData is the data object of a push notification
type PushData struct {
	Number    string    `json:"number"`
	Carrier   int       `json:"carrier"`
	TrackInfo TrackInfo `json:"track_info"`
}

// Push is a 17track webhook notification
type Push struct {
	Event string   `json:"event"`
	Data  PushData `json:"data"`
}

// EventTime parses the latest event time, falling back to now
func (p *Push) EventTime() time.Time {
	if p.Data.TrackInfo.LatestEvent != nil {
		if t, err := time.Parse(time.RFC3339, p.Data.TrackInfo.LatestEvent.TimeISO); err == nil {
			return t
		}
	}
	return time.Now()
}

// Note builds a short human readable note from the latest event
func (p *Push) Note() string {
	ev := p.Data.TrackInfo.LatestEvent
	if ev == nil {
		return ""
	}
	if ev.Location != "" {
		return fmt.Sprintf("%s (%s)", ev.Description, ev.Location)
	}
	return ev.Description
}

// ParsePush decodes a raw webhook body
func ParsePush(body []byte) (*Push, error) {
	var push Push
	if err := json.Unmarshal(body, &push); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPush, err)
	}
	if push.Event == "" || push.Data.Number == "" {
		return nil, ErrMalformedPush
	}
	return &push, nil
}

// Sign computes the expected signature for a push body.
// The provider signs sha256(body + "/" + apiKey) and sends it in the sign header.
func Sign(body []byte, apiKey string) string {
	sum := sha256.Sum256(append(append([]byte{}, body...), []byte("/"+apiKey)...))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks the sign header against the body
func VerifySignature(body []byte, apiKey, signature string) error {
	if signature == "" || signature != Sign(body, apiKey) {
		return ErrInvalidSignature
	}
	return nil
}

// DedupeKey derives the replay gate key for a raw push body.
// Identical retransmissions hash to the same key.
func DedupeKey(body []byte) string {
	sum := sha256.Sum256(body)
	return "17track:webhook:" + hex.EncodeToString(sum[:])
}

// SourceRef derives the per-event idempotency reference stored with the
// status log. It uses the same body hash as the replay gate.
func SourceRef(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
