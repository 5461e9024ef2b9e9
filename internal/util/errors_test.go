package util_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"tradepulse/backend/internal/util"

	"gotest.tools/assert"
)

func TestAppError_Error(t *testing.T) {
	appErr := util.NewAppError(http.StatusNotFound, util.ErrCodeNotFound, "Session not found")
	assert.Equal(t, appErr.Error(), "Session not found")
	assert.Equal(t, appErr.StatusCode, http.StatusNotFound)
	assert.Equal(t, appErr.Code, util.ErrCodeNotFound)
}

func TestAppError_Wrapping(t *testing.T) {
	cause := errors.New("connection refused")
	appErr := util.WrapError(http.StatusBadGateway, util.ErrCodeEngineAPI, "Engine is unreachable", cause)

	assert.Equal(t, appErr.Error(), "connection refused", "wrapped cause wins for logging")
	assert.Assert(t, errors.Is(appErr, cause))
}

func TestErrEngineAPI(t *testing.T) {
	cause := errors.New("engine /api/start: status 502")
	appErr := util.ErrEngineAPI("Engine rejected the command", cause)

	assert.Equal(t, appErr.StatusCode, http.StatusBadGateway)
	assert.Equal(t, appErr.Code, util.ErrCodeEngineAPI)
	assert.Assert(t, errors.Is(appErr, cause))
}

func TestErrConnectionDown(t *testing.T) {
	appErr := util.ErrConnectionDown("Engine connection is down")
	assert.Equal(t, appErr.StatusCode, http.StatusServiceUnavailable)
	assert.Equal(t, appErr.Code, util.ErrCodeConnectionDown)
}

func TestGetAppError(t *testing.T) {
	appErr := util.ErrUnauthorized("nope")
	wrapped := fmt.Errorf("handler: %w", appErr)

	assert.Assert(t, util.IsAppError(wrapped))
	assert.Equal(t, util.GetAppError(wrapped), appErr)

	assert.Assert(t, !util.IsAppError(errors.New("plain")))
	assert.Assert(t, util.GetAppError(errors.New("plain")) == nil)
}

func TestIsEngineAuthError(t *testing.T) {
	assert.Assert(t, util.IsEngineAuthError(errors.New("engine GET /api/bot/status: status 401: invalid token")))
	assert.Assert(t, util.IsEngineAuthError(errors.New("authorization failed")))
	assert.Assert(t, util.IsEngineAuthError(errors.New("Invalid Credentials")))
	assert.Assert(t, !util.IsEngineAuthError(errors.New("engine GET /api/balance: status 500")))
	assert.Assert(t, !util.IsEngineAuthError(nil))
}
