package models

import "time"

// Delivery status values reported by the Cloud API.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// SenderUnknown is the placeholder used when no sender identifier can be
// derived from an unrecognized payload fragment.
const SenderUnknown = "unknown"

// InboundEvent is one flattened record extracted from a webhook delivery.
// Every event produced from the same delivery carries the same Raw body.
type InboundEvent struct {
	EventID    string    `bson:"event_id" json:"event_id"`
	Sender     string    `bson:"sender" json:"sender"`
	Recipient  string    `bson:"recipient" json:"recipient"`
	OccurredAt int64     `bson:"occurred_at" json:"occurred_at"`
	Kind       string    `bson:"kind" json:"kind"`
	Summary    *string   `bson:"summary" json:"summary"`
	Raw        string    `bson:"raw" json:"raw"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// IsStatus reports whether the event is a delivery lifecycle receipt rather
// than a user-authored message.
func (e InboundEvent) IsStatus() bool {
	switch e.Kind {
	case StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

// KindCount is one bucket of the aggregated daily digest.
type KindCount struct {
	Kind  string `bson:"_id" json:"kind"`
	Count int64  `bson:"count" json:"count"`
}
