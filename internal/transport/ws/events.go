package ws

import (
	"time"

	"github.com/xiaot623/gogo/chatwidget/internal/domain"
)

// Event types pushed to viewers.
const (
	TypeSnapshot        = "snapshot"
	TypeMessageAppended = "message_appended"
	TypeBusy            = "busy"
)

// Event is the envelope of every frame sent to a viewer.
type Event struct {
	Type      string           `json:"type"`
	Ts        int64            `json:"ts"`
	SessionID string           `json:"session_id,omitempty"`
	Message   *domain.Message  `json:"message,omitempty"`
	Messages  []domain.Message `json:"messages,omitempty"`
	Busy      *bool            `json:"busy,omitempty"`
}

func newEvent(typ, sessionID string) Event {
	return Event{Type: typ, Ts: time.Now().UnixMilli(), SessionID: sessionID}
}
