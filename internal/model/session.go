package model

import "time"

// Session represents the active sync session against the engine.
// The engine token is an opaque credential obtained by the client
// through the engine's own authentication flow.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AccountID   string    `json:"account_id,omitempty"`
	EngineToken string    `json:"engine_token"` // Stored in Redis, excluded from SafeSession responses
	CreatedAt   time.Time `json:"created_at"`
}

// SafeSession returns session data safe for API response (no credentials)
type SafeSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AccountID string    `json:"account_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToSafeSession converts Session to SafeSession
func (s *Session) ToSafeSession() *SafeSession {
	return &SafeSession{
		ID:        s.ID,
		UserID:    s.UserID,
		AccountID: s.AccountID,
		CreatedAt: s.CreatedAt,
	}
}

// SessionRequest carries externally-obtained engine credentials
type SessionRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	Token     string `json:"session_token" binding:"required"`
	AccountID string `json:"account_id"`
}

// RefreshRequest carries a refresh token to rotate the access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// SessionTokens is returned on session creation and refresh
type SessionTokens struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	Session      *SafeSession `json:"session,omitempty"`
}
