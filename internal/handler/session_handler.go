package handler

import (
	"tradepulse/backend/internal/model"
	"tradepulse/backend/internal/service"
	"tradepulse/backend/internal/util"

	"github.com/gin-gonic/gin"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// CreateSession opens a trading session against the engine
// POST /api/v1/session
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req model.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendValidationError(c, err.Error())
		return
	}

	tokens, err := h.sessionService.CreateSession(c.Request.Context(), &req)
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendCreated(c, tokens, "Session created")
}

// GetSession returns the caller's session
// GET /api/v1/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.GetString("session_id")

	session, err := h.sessionService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, session)
}

// EndSession tears the caller's session down
// DELETE /api/v1/session
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID := c.GetString("session_id")

	if err := h.sessionService.EndSession(c.Request.Context(), sessionID); err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccessWithMessage(c, nil, "Session ended")
}

// RefreshToken mints a new access token
// POST /api/v1/session/refresh
func (h *SessionHandler) RefreshToken(c *gin.Context) {
	var req model.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.SendValidationError(c, err.Error())
		return
	}

	tokens, err := h.sessionService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		util.SendError(c, err)
		return
	}

	util.SendSuccess(c, tokens)
}
