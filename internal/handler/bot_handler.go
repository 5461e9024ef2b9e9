package handler

import (
	"tradepulse/backend/internal/service"
	"tradepulse/backend/internal/util"
	"tradepulse/backend/pkg/engine"

	"github.com/gin-gonic/gin"
)

// BotHandler handles bot run-state endpoints
type BotHandler struct {
	sessionService *service.SessionService
}

// NewBotHandler creates a new bot handler
func NewBotHandler(sessionService *service.SessionService) *BotHandler {
	return &BotHandler{
		sessionService: sessionService,
	}
}

// requireEngineLink fails fast when the engine feed is down, so commands
// are never silently queued against a dead link
func requireEngineLink(c *gin.Context, rec *service.Reconciler) bool {
	if rec.ConnectionStatus() != engine.StateConnected {
		util.SendError(c, util.ErrConnectionDown("Engine connection is down, command rejected"))
		return false
	}
	return true
}

// StartBot starts automated trading
// POST /api/v1/bot/start
func (h *BotHandler) StartBot(c *gin.Context) {
	rec, ok := activeReconciler(c, h.sessionService)
	if !ok {
		return
	}
	if !requireEngineLink(c, rec) {
		return
	}

	if err := rec.StartBot(c.Request.Context()); err != nil {
		util.SendError(c, util.ErrEngineAPI("Failed to start bot", err))
		return
	}

	util.SendSuccessWithMessage(c, gin.H{"bot_state": rec.Snapshot().BotState}, "Bot started")
}

// StopBot stops automated trading
// POST /api/v1/bot/stop
func (h *BotHandler) StopBot(c *gin.Context) {
	rec, ok := activeReconciler(c, h.sessionService)
	if !ok {
		return
	}
	if !requireEngineLink(c, rec) {
		return
	}

	if err := rec.StopBot(c.Request.Context()); err != nil {
		util.SendError(c, util.ErrEngineAPI("Failed to stop bot", err))
		return
	}

	util.SendSuccessWithMessage(c, gin.H{"bot_state": rec.Snapshot().BotState}, "Bot stopped")
}

// GetBotStatus returns the bot run state and the engine link state
// GET /api/v1/bot/status
func (h *BotHandler) GetBotStatus(c *gin.Context) {
	rec, ok := activeReconciler(c, h.sessionService)
	if !ok {
		return
	}

	snap := rec.Snapshot()
	util.SendSuccess(c, gin.H{
		"bot_state":         snap.BotState,
		"connection_status": snap.ConnectionStatus,
		"last_updated":      snap.LastUpdated,
	})
}
