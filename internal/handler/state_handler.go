package handler

import (
	"tradepulse/backend/internal/service"
	"tradepulse/backend/internal/util"

	"github.com/gin-gonic/gin"
)

// StateHandler exposes the reconciled trading snapshot
type StateHandler struct {
	sessionService *service.SessionService
}

// NewStateHandler creates a new state handler
func NewStateHandler(sessionService *service.SessionService) *StateHandler {
	return &StateHandler{
		sessionService: sessionService,
	}
}

// activeReconciler resolves the live reconciler or answers with the
// session error
func activeReconciler(c *gin.Context, sessionService *service.SessionService) (*service.Reconciler, bool) {
	rec, err := sessionService.Reconciler()
	if err != nil {
		util.SendError(c, err)
		return nil, false
	}
	return rec, true
}

// GetState returns the current trading snapshot
// GET /api/v1/state
func (h *StateHandler) GetState(c *gin.Context) {
	rec, ok := activeReconciler(c, h.sessionService)
	if !ok {
		return
	}

	util.SendSuccess(c, rec.Snapshot())
}

// RefreshState pulls every snapshot field from the engine and reports
// which pulls failed
// POST /api/v1/state/refresh
func (h *StateHandler) RefreshState(c *gin.Context) {
	rec, ok := activeReconciler(c, h.sessionService)
	if !ok {
		return
	}

	failed := rec.RefreshAll(c.Request.Context())
	failures := make(map[string]string, len(failed))
	for field, err := range failed {
		failures[field] = err.Error()
	}

	util.SendSuccess(c, gin.H{
		"snapshot": rec.Snapshot(),
		"failed":   failures,
	})
}
