package domain

import (
	"time"

	"github.com/google/uuid"
)

// TimeOfDayLayout is the layout used for Message.TimestampDisplay.
const TimeOfDayLayout = "15:04"

// Message is a single conversation entry. Messages are values and are never
// mutated after creation.
type Message struct {
	ID               string    `json:"id"`
	Text             string    `json:"text"`
	TimestampDisplay string    `json:"timestamp_display"`
	Direction        Direction `json:"direction"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewMessage builds a message stamped with now. IDs are UUIDv7 so that they
// sort in creation order.
func NewMessage(text string, dir Direction, status Status, now time.Time) Message {
	return Message{
		ID:               uuid.Must(uuid.NewV7()).String(),
		Text:             text,
		TimestampDisplay: now.Format(TimeOfDayLayout),
		Direction:        dir,
		Status:           status,
		CreatedAt:        now,
	}
}

// Outbound reports whether the message was authored by the user.
func (m Message) Outbound() bool {
	return m.Direction == DirectionOutbound
}

// IsError reports whether the message stands in for a failed dispatch.
func (m Message) IsError() bool {
	return m.Status == StatusError
}
