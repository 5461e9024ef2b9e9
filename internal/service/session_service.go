package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"tradepulse/backend/internal/model"
	"tradepulse/backend/internal/repository"
	"tradepulse/backend/internal/util"
	"tradepulse/backend/pkg/engine"
	"tradepulse/backend/pkg/jwt"
	"tradepulse/backend/pkg/logger"

	"github.com/google/uuid"
)

// SessionServiceConfig carries the engine endpoints and session policy.
type SessionServiceConfig struct {
	EngineAPIURL   string
	EngineWSURL    string
	EngineAppID    string
	RequestTimeout time.Duration
	SessionTTL     time.Duration

	Reconciler           ReconcilerConfig
	ReconnectBaseDelay   time.Duration
	ReconnectGrowth      float64
	ReconnectMaxAttempts int
}

// sessionRuntime bundles the sync machinery living for one session.
type sessionRuntime struct {
	session    *model.Session
	reconciler *Reconciler
}

// SessionService manages the single active engine session: credential
// verification, token minting, and the reconciler lifecycle bound to it.
type SessionService struct {
	sessionRepo *repository.SessionRepository
	jwtManager  *jwt.JWTManager
	hub         *WSHub
	cfg         SessionServiceConfig

	mu      sync.Mutex
	runtime *sessionRuntime

	// construction seam, swapped for fakes in tests
	buildSync func(token string) (PullAPI, PushFeed)
}

// NewSessionService creates a new session service
func NewSessionService(sessionRepo *repository.SessionRepository, jwtManager *jwt.JWTManager, hub *WSHub, cfg SessionServiceConfig) *SessionService {
	s := &SessionService{
		sessionRepo: sessionRepo,
		jwtManager:  jwtManager,
		hub:         hub,
		cfg:         cfg,
	}
	s.buildSync = s.buildEngineClients
	return s
}

func (s *SessionService) buildEngineClients(token string) (PullAPI, PushFeed) {
	rest := engine.NewClient(s.cfg.EngineAPIURL, s.cfg.RequestTimeout)
	rest.SetSessionToken(token)

	wsURL := s.cfg.EngineWSURL
	if s.cfg.EngineAppID != "" {
		sep := "?"
		if strings.Contains(wsURL, "?") {
			sep = "&"
		}
		wsURL += sep + "app_id=" + s.cfg.EngineAppID
	}

	feed := engine.NewWSClient(engine.WSClientConfig{
		URL:                  wsURL,
		Token:                token,
		ReconnectBaseDelay:   s.cfg.ReconnectBaseDelay,
		ReconnectGrowth:      s.cfg.ReconnectGrowth,
		MaxReconnectAttempts: s.cfg.ReconnectMaxAttempts,
	})
	return rest, feed
}

// CreateSession verifies the engine token, replaces any previous session
// and starts a reconciler for the new one. Only one session is live at a
// time; creating a new one tears the previous one down.
func (s *SessionService) CreateSession(ctx context.Context, req *model.SessionRequest) (*model.SessionTokens, error) {
	api, feed := s.buildSync(req.Token)

	// Verify against the engine before touching the current session
	if _, err := api.GetBotStatus(ctx); err != nil {
		if util.IsEngineAuthError(err) {
			return nil, util.NewAppError(401, util.ErrCodeInvalidCredentials, "Engine rejected the session token")
		}
		return nil, util.ErrEngineAPI("Engine is unreachable", err)
	}

	session := &model.Session{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		AccountID:   req.AccountID,
		EngineToken: req.Token,
		CreatedAt:   time.Now(),
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(session.UserID, session.ID)
	if err != nil {
		return nil, util.ErrInternalServer("Failed to generate access token")
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(session.UserID, session.ID)
	if err != nil {
		return nil, util.ErrInternalServer("Failed to generate refresh token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runtime != nil {
		logger.Infof("Replacing active session %s", s.runtime.session.ID)
		s.teardownLocked(ctx)
	}

	if err := s.sessionRepo.Save(ctx, session, s.cfg.SessionTTL); err != nil {
		return nil, util.ErrInternalServer("Failed to persist session")
	}

	s.startRuntimeLocked(session, api, feed)

	logger.Infof("Session %s created for user %s", session.ID, session.UserID)
	return &model.SessionTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Session:      session.ToSafeSession(),
	}, nil
}

// ResumeActiveSession restores the sync machinery for a session that
// survived a restart. Called once at boot; a missing or stale session is
// not an error.
func (s *SessionService) ResumeActiveSession(ctx context.Context) error {
	session, err := s.sessionRepo.GetActive(ctx)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return nil
		}
		return err
	}

	api, feed := s.buildSync(session.EngineToken)
	if _, err := api.GetBotStatus(ctx); err != nil {
		logger.Warnf("Stored session %s no longer accepted by engine, discarding: %v", session.ID, err)
		if delErr := s.sessionRepo.Delete(ctx, session.ID); delErr != nil {
			logger.Warnf("Failed to discard stale session %s: %v", session.ID, delErr)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runtime != nil {
		return nil
	}
	s.startRuntimeLocked(session, api, feed)

	logger.Infof("Resumed session %s for user %s", session.ID, session.UserID)
	return nil
}

// GetSession returns the stored session without its engine token
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*model.SafeSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return nil, util.NewAppError(404, util.ErrCodeSessionNotFound, "Session not found")
		}
		return nil, util.ErrInternalServer("Failed to load session")
	}
	return session.ToSafeSession(), nil
}

// EndSession stops the sync machinery and removes the session record
func (s *SessionService) EndSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runtime != nil && s.runtime.session.ID == sessionID {
		s.teardownLocked(ctx)
		return nil
	}

	if _, err := s.sessionRepo.GetByID(ctx, sessionID); err != nil {
		if err == repository.ErrSessionNotFound {
			return util.NewAppError(404, util.ErrCodeSessionNotFound, "Session not found")
		}
		return util.ErrInternalServer("Failed to load session")
	}
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		return util.ErrInternalServer("Failed to delete session")
	}
	return nil
}

// RefreshToken mints a new access token for a still-valid session
func (s *SessionService) RefreshToken(ctx context.Context, refreshToken string) (*model.SessionTokens, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, util.NewAppError(401, util.ErrCodeTokenInvalid, "Invalid refresh token")
	}

	session, err := s.sessionRepo.GetByID(ctx, claims.SessionID)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return nil, util.NewAppError(401, util.ErrCodeSessionNotFound, "Session no longer exists")
		}
		return nil, util.ErrInternalServer("Failed to load session")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(session.UserID, session.ID)
	if err != nil {
		return nil, util.ErrInternalServer("Failed to generate access token")
	}

	return &model.SessionTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken, // Return same refresh token
		Session:      session.ToSafeSession(),
	}, nil
}

// ValidateAccessToken checks the token signature and that the session it
// was minted for still exists
func (s *SessionService) ValidateAccessToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, util.NewAppError(401, util.ErrCodeTokenInvalid, "Invalid or expired token")
	}

	if _, err := s.sessionRepo.GetByID(ctx, claims.SessionID); err != nil {
		if err == repository.ErrSessionNotFound {
			return nil, util.NewAppError(401, util.ErrCodeSessionNotFound, "Session no longer exists")
		}
		return nil, util.ErrInternalServer("Failed to verify session")
	}
	return claims, nil
}

// Reconciler returns the live reconciler, or a session error when no
// session is active
func (s *SessionService) Reconciler() (*Reconciler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runtime == nil {
		return nil, util.NewAppError(404, util.ErrCodeSessionNotFound, "No active session")
	}
	return s.runtime.reconciler, nil
}

// ActiveSession returns the live session, if any
func (s *SessionService) ActiveSession() (*model.SafeSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runtime == nil {
		return nil, false
	}
	return s.runtime.session.ToSafeSession(), true
}

// Shutdown suspends the live session without deleting its record, so a
// restart can resume it.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt := s.runtime
	s.runtime = nil
	if rt == nil {
		return
	}
	s.hub.SetSnapshotSource(nil)
	rt.reconciler.Stop()
	logger.Infof("Session %s suspended for shutdown", rt.session.ID)
}

func (s *SessionService) startRuntimeLocked(session *model.Session, api PullAPI, feed PushFeed) {
	rec := NewReconciler(api, feed, s.cfg.Reconciler)
	rec.SubscribeUpdates(s.hub.Broadcast)
	// lifetime is bound to Stop, not to any request context
	rec.Start(context.Background())

	s.runtime = &sessionRuntime{session: session, reconciler: rec}
	s.hub.SetSnapshotSource(rec.Snapshot)
}

func (s *SessionService) teardownLocked(ctx context.Context) {
	rt := s.runtime
	s.runtime = nil
	if rt == nil {
		return
	}

	s.hub.SetSnapshotSource(nil)
	rt.reconciler.Stop()
	if err := s.sessionRepo.Delete(ctx, rt.session.ID); err != nil {
		logger.Warnf("Failed to delete session %s: %v", rt.session.ID, err)
	}
	logger.Infof("Session %s ended", rt.session.ID)
}
