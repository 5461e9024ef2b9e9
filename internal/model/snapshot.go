package model

import (
	"time"

	"tradepulse/backend/pkg/engine"
)

// Bot run state constants
const (
	BotStateStopped = "stopped"
	BotStateRunning = "running"
)

// MarketTick is the last known quote for the traded symbol
type MarketTick struct {
	Symbol     string    `json:"symbol"`
	LastPrice  float64   `json:"last_price"`
	Timestamp  int64     `json:"timestamp"` // engine epoch seconds
	ReceivedAt time.Time `json:"received_at"`
}

// TradingSnapshot is the authoritative view of current trading state.
// It is owned by the state reconciler; readers get copies.
type TradingSnapshot struct {
	BotState         string          `json:"bot_state"` // stopped, running
	Tick             *MarketTick     `json:"tick,omitempty"`
	Balance          float64         `json:"balance"`
	Performance      engine.Metrics  `json:"performance,omitempty"`
	Trades           []engine.Trade  `json:"trades"`
	Signals          []engine.Signal `json:"signals"`
	ConnectionStatus string          `json:"connection_status"`
	LastUpdated      *time.Time      `json:"last_updated,omitempty"`
}

// Clone returns a deep copy safe to hand to readers
func (s *TradingSnapshot) Clone() *TradingSnapshot {
	out := &TradingSnapshot{
		BotState:         s.BotState,
		Balance:          s.Balance,
		ConnectionStatus: s.ConnectionStatus,
	}
	if s.Tick != nil {
		tick := *s.Tick
		out.Tick = &tick
	}
	if s.Performance != nil {
		out.Performance = make(engine.Metrics, len(s.Performance))
		for k, v := range s.Performance {
			out.Performance[k] = v
		}
	}
	if s.Trades != nil {
		out.Trades = make([]engine.Trade, len(s.Trades))
		copy(out.Trades, s.Trades)
	}
	if s.Signals != nil {
		out.Signals = make([]engine.Signal, len(s.Signals))
		copy(out.Signals, s.Signals)
	}
	if s.LastUpdated != nil {
		ts := *s.LastUpdated
		out.LastUpdated = &ts
	}
	return out
}
