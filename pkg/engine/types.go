package engine

// DefaultSymbol is the synthetic index traded when none is configured
const DefaultSymbol = "R_100"

// Trade status constants as reported by the engine
const (
	TradeStatusPending = "PENDING" // Contract bought, not yet active
	TradeStatusActive  = "ACTIVE"  // Contract running
	TradeStatusWon     = "WON"     // Settled in profit
	TradeStatusLost    = "LOST"    // Settled at a loss
	TradeStatusError   = "ERROR"   // Purchase or settlement failed
)

// Trade direction constants
const (
	DirectionRise = "RISE"
	DirectionFall = "FALL"
)

// Trade represents a single engine trade record
type Trade struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Direction   string  `json:"direction"` // RISE, FALL
	StakeAmount float64 `json:"stake_amount"`

	// Settlement
	Status    string  `json:"status"` // PENDING, ACTIVE, WON, LOST, ERROR
	EntryTick float64 `json:"entry_tick,omitempty"`
	ExitTick  float64 `json:"exit_tick,omitempty"`
	Payout    float64 `json:"payout,omitempty"`
	Profit    float64 `json:"profit,omitempty"`
	NetProfit float64 `json:"net_profit,omitempty"`

	// Timestamps
	CreatedAt EventTime  `json:"created_at"`
	SettledAt *EventTime `json:"settled_at,omitempty"`
}

// IsTerminal reports whether the trade settled with a definitive win or loss
func (t *Trade) IsTerminal() bool {
	return t.Status == TradeStatusWon || t.Status == TradeStatusLost
}

// Signal represents a strategy signal emitted by the engine
type Signal struct {
	ID         string    `json:"id"`
	Direction  string    `json:"direction"` // RISE, FALL
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Timestamp  EventTime `json:"timestamp"`
	Message    string    `json:"message,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Strength   string    `json:"strength,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
	Score      float64   `json:"score,omitempty"`
}

// Metrics is the opaque bag of named numeric performance fields
type Metrics map[string]float64

// MetricsFromPayload keeps the numeric fields of a decoded metrics
// payload and drops everything else (run flag, symbol, nested blobs)
func MetricsFromPayload(raw map[string]interface{}) Metrics {
	metrics := make(Metrics, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			metrics[k] = f
		}
	}
	return metrics
}

// TickEvent is a tick frame payload
type TickEvent struct {
	Symbol string  `json:"symbol"`
	Quote  float64 `json:"quote"`
	Epoch  int64   `json:"epoch"`
}

// BalanceEvent is a balance push payload
type BalanceEvent struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency,omitempty"`
}

// TradeEvent is a contract-update push payload. Untagged updates carry
// the raw engine contract fields rather than a full trade record.
type TradeEvent struct {
	TradeID      string  `json:"trade_id,omitempty"`
	ContractID   int64   `json:"contract_id,omitempty"`
	ContractType string  `json:"contract_type,omitempty"` // CALL, PUT
	Side         string  `json:"side,omitempty"`
	Status       string  `json:"status,omitempty"`
	Profit       float64 `json:"profit,omitempty"`
}

// IsTerminal reports whether the update carries a settled win or loss
func (e *TradeEvent) IsTerminal() bool {
	return e.Status == TradeStatusWon || e.Status == TradeStatusLost
}

// ConnectionEvent reports engine-side connection state changes
type ConnectionEvent struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// BalanceResponse is the pull-API balance payload
type BalanceResponse struct {
	Balance float64 `json:"balance"`
}

// BotStatusResponse is the pull-API bot status payload
type BotStatusResponse struct {
	Running         bool   `json:"running"`
	Symbol          string `json:"symbol,omitempty"`
	ActivePositions int    `json:"active_positions,omitempty"`
}

// TradeHistoryResponse is the pull-API trade list payload
type TradeHistoryResponse struct {
	Trades []Trade `json:"trades"`
}

// SignalsResponse is the pull-API signal feed payload
type SignalsResponse struct {
	Signals      []Signal `json:"signals"`
	TotalSignals int      `json:"total_signals,omitempty"`
	RiseSignals  int      `json:"rise_signals,omitempty"`
	FallSignals  int      `json:"fall_signals,omitempty"`
	BotRunning   bool     `json:"bot_running,omitempty"`
}

// CommandResponse acknowledges a start or stop command
type CommandResponse struct {
	Status  string `json:"status,omitempty"`
	Running bool   `json:"running"`
}

// TradeReceipt acknowledges a manual trade
type TradeReceipt struct {
	TradeID   string  `json:"trade_id"`
	Direction string  `json:"direction"`
	Amount    float64 `json:"amount"`
}
