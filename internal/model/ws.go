package model

import "time"

// WSMessageType represents the type of a dashboard WebSocket message
type WSMessageType string

const (
	MessageTypeTick        WSMessageType = "tick"
	MessageTypeSignal      WSMessageType = "signal"
	MessageTypeTrades      WSMessageType = "trades"
	MessageTypeSignals     WSMessageType = "signals"
	MessageTypeBalance     WSMessageType = "balance"
	MessageTypePerformance WSMessageType = "performance"
	MessageTypeConnection  WSMessageType = "connection"
	MessageTypeBotState    WSMessageType = "bot_state"
	MessageTypeSnapshot    WSMessageType = "snapshot"
	MessageTypeError       WSMessageType = "error"
	MessageTypePong        WSMessageType = "pong"
)

// WSMessage is the envelope for all dashboard WebSocket messages
type WSMessage struct {
	Type WSMessageType `json:"type"`
	Data interface{}   `json:"data"`
}

// WSConnectionPayload mirrors the engine connection state for dashboard clients
type WSConnectionPayload struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// WSBalancePayload carries a balance update
type WSBalancePayload struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency,omitempty"`
}

// WSBotStatePayload carries a bot run-state change
type WSBotStatePayload struct {
	State string `json:"state"`
}
