package model

// ManualTradeRequest represents the payload to place a one-shot trade
type ManualTradeRequest struct {
	Direction string  `json:"direction" binding:"required,oneof=RISE FALL"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}
