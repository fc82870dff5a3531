// Package domain defines the core domain models for the chat widget.
package domain

// Direction tells who authored a message.
type Direction string

const (
	DirectionOutbound Direction = "outbound" // user-authored
	DirectionInbound  Direction = "inbound"  // service-authored
)

// Status represents the status of a message.
type Status string

const (
	StatusNormal Status = "normal"
	StatusError  Status = "error"
)
