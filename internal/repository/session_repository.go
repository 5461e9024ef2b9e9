// Package repository provides data access for the application and interacts with Redis.
package repository

import (
	"context"
	"errors"
	"time"

	"tradepulse/backend/internal/model"
	"tradepulse/backend/pkg/redis"

	redislib "github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when no session matches the lookup
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository handles session persistence
type SessionRepository struct {
	redis *redis.Client
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(redisClient *redis.Client) *SessionRepository {
	return &SessionRepository{
		redis: redisClient,
	}
}

// Save stores the session and marks it as the active one. The TTL bounds
// how long an abandoned session lingers before Redis reclaims it.
func (r *SessionRepository) Save(ctx context.Context, session *model.Session, ttl time.Duration) error {
	if err := r.redis.SetJSON(ctx, redis.SessionKey(session.ID), session, ttl); err != nil {
		return err
	}
	return r.redis.Set(ctx, redis.ActiveSessionKey(), session.ID, ttl)
}

// GetByID gets a session by ID
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	if err := r.redis.GetJSON(ctx, redis.SessionKey(sessionID), &session); err != nil {
		if err == redislib.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetActive returns the currently active session, if any
func (r *SessionRepository) GetActive(ctx context.Context) (*model.Session, error) {
	sessionID, err := r.redis.Get(ctx, redis.ActiveSessionKey())
	if err != nil {
		if err == redislib.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, sessionID)
}

// Delete removes a session, clearing the active marker when it points
// at the same session
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.redis.Del(ctx, redis.SessionKey(sessionID)); err != nil {
		return err
	}

	activeID, err := r.redis.Get(ctx, redis.ActiveSessionKey())
	if err != nil {
		if err == redislib.Nil {
			return nil
		}
		return err
	}
	if activeID == sessionID {
		return r.redis.Del(ctx, redis.ActiveSessionKey())
	}
	return nil
}
