package domain

import "github.com/google/uuid"

// SessionPrefix prefixes every generated session identifier.
const SessionPrefix = "session-"

// NewSessionID returns an opaque token that correlates all turns of one
// conversation on the remote side. It is generated once per session.
func NewSessionID() string {
	return SessionPrefix + uuid.New().String()
}
