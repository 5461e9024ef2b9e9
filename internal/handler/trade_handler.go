package handler

import (
	"tradepulse/backend/internal/model"
	"tradepulse/backend/internal/service"
	"tradepulse/backend/internal/util"

	"github.com/gin-gonic/gin"
)

// TradeHandler handles trade and signal feed endpoints
type TradeHandler struct {
	sessionService *service.SessionService
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(sessionService *service.SessionService) *TradeHandler {
	return &TradeHandler{
		sessionService: sessionService,
	}
}

// GetTrades returns the reconciled trade history, most recent first
// GET /api/v1/trades
func (h *TradeHandler) GetTrades(c *gin.Context) {
	rec, ok := activeReconciler(c, h.sessionService)
	if !ok {
		return
	}

	util.SendSuccess(c, gin.H{"trades": rec.Snapshot().Trades})
}

// GetSignals returns the reconciled signal feed, most recent first
// GET /api/v1/signals
func (h *TradeHandler) GetSignals(c *gin.Context) {
	rec, ok := activeReconciler(c, h.sessionService)
	if !ok {
		return
	}

	util.SendSuccess(c, gin.H{"signals": rec.Snapshot().Signals})
}

// ExecuteManualTrade places a one-shot trade
// POST /api/v1/trades/manual
func (h *TradeHandler) ExecuteManualTrade(c *gin.Context) {
	var req model.ManualTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendValidationError(c, err.Error())
		return
	}

	rec, ok := activeReconciler(c, h.sessionService)
	if !ok {
		return
	}
	if !requireEngineLink(c, rec) {
		return
	}

	receipt, err := rec.ExecuteManualTrade(c.Request.Context(), req.Direction, req.Amount)
	if err != nil {
		util.SendError(c, util.ErrEngineAPI("Failed to execute manual trade", err))
		return
	}

	util.SendSuccessWithMessage(c, receipt, "Trade submitted")
}
