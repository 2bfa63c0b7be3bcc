// Package login owns console sessions: logging a user in against the
// backend, the signed session cookie and the middleware that puts the
// current user on the request context.
package login

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/gitclub-console/internal/api"
	"github.com/wolfeidau/gitclub-console/internal/models"
	"github.com/wolfeidau/gitclub-console/internal/store"
	"github.com/wolfeidau/gitclub-console/internal/telemetry"

	httputil "github.com/wolfeidau/gitclub-console/internal/http"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrExpiredSession = errors.New("session expired")
)

const (
	DefaultCookieName = "_gitclub_session"
	DefaultTTL        = 24 * time.Hour
)

type contextKey string

const sessionContextKey contextKey = "session"

// Backend is the part of the backend API used to log users in and out.
type Backend interface {
	Login(ctx context.Context, username string) (*models.User, error)
	Logout(ctx context.Context) error
}

// Config configures the session manager.
type Config struct {
	// Secret signs session cookies and must be at least 32 bytes.
	Secret     []byte
	TTL        time.Duration
	CookieName string
	// Secure marks the cookie Secure, which browsers require for HTTPS.
	Secure bool
}

// Manager issues and validates console sessions.
type Manager struct {
	sessions store.SessionStore
	backend  Backend
	signer   *tokenSigner

	ttl        time.Duration
	cookieName string
	secure     bool
}

// New creates a session manager.
func New(cfg Config, sessions store.SessionStore, backend Backend) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if sessions == nil || backend == nil {
		return nil, errors.New("session store and backend are required")
	}
	if cfg.TTL < 0 {
		return nil, errors.New("session TTL must not be negative")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	return &Manager{
		sessions:   sessions,
		backend:    backend,
		signer:     &tokenSigner{secret: cfg.Secret},
		ttl:        cfg.TTL,
		cookieName: cfg.CookieName,
		secure:     cfg.Secure,
	}, nil
}

// StartSession logs username in against the backend, records a console
// session and sets its cookie. An empty username lets the backend pick a
// random identity.
func (m *Manager) StartSession(w http.ResponseWriter, r *http.Request, username string) (*models.Session, error) {
	ctx := r.Context()

	user, err := m.backend.Login(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("backend login: %w", err)
	}

	sessionID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := time.Now()
	session := &models.Session{
		SessionID:  sessionID,
		UserID:     user.ID,
		Username:   user.Username,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
		LastUsedAt: now,
		UserAgent:  r.UserAgent(),
		IPAddress:  httputil.ClientIPFromContext(ctx),
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := m.signer.sign(session)
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})

	telemetry.GetMetrics().LoginsTotal.Add(ctx, 1)

	log.Info().
		Str("username", session.Username).
		Stringer("session_id", session.SessionID).
		Msg("User logged in")

	return session, nil
}

// EndSession logs the current session out of the backend, deletes it and
// clears the cookie. Missing or invalid sessions only clear the cookie.
func (m *Manager) EndSession(w http.ResponseWriter, r *http.Request) error {
	defer m.clearCookie(w)

	session, err := m.GetSession(r)
	if err != nil {
		return nil
	}

	ctx := api.WithUser(r.Context(), session.User())
	if err := m.backend.Logout(ctx); err != nil {
		log.Warn().Err(err).Str("username", session.Username).Msg("Backend logout failed")
	}

	if err := m.sessions.Delete(ctx, session.SessionID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	log.Info().Str("username", session.Username).Msg("User logged out")
	return nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetSession validates the session cookie of r and loads its session.
func (m *Manager) GetSession(r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, ErrInvalidSession
	}

	sessionID, err := m.signer.verify(cookie.Value)
	if err != nil {
		return nil, err
	}

	session, err := m.sessions.Get(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSessionExpired):
			return nil, ErrExpiredSession
		case errors.Is(err, store.ErrSessionNotFound):
			return nil, ErrInvalidSession
		default:
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
	}

	if err := m.sessions.UpdateLastUsed(r.Context(), sessionID); err != nil {
		log.Debug().Err(err).Stringer("session_id", sessionID).Msg("Failed to update session last used")
	}

	return session, nil
}

// RequireAuth rejects requests without a valid session. Browsers are
// redirected to loginURL with an error_code and a return path; requests
// asking for JSON get a 401.
func (m *Manager) RequireAuth(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := m.GetSession(r)
			if err != nil {
				errorCode := "invalid"
				if errors.Is(err, ErrExpiredSession) {
					errorCode = "expired"
				}
				log.Debug().Str("path", r.URL.Path).Str("error_code", errorCode).Msg("No valid session")

				if wantsJSON(r) {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}

				q := url.Values{"error_code": {errorCode}}
				if r.Method == http.MethodGet {
					q.Set("return_to", r.URL.RequestURI())
				}
				http.Redirect(w, r, loginURL+"?"+q.Encode(), http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
		})
	}
}

// OptionalUser attaches the session when one is present and otherwise lets
// the request through anonymously.
func (m *Manager) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session, err := m.GetSession(r); err == nil {
			r = r.WithContext(withSession(r.Context(), session))
		}
		next.ServeHTTP(w, r)
	})
}

func withSession(ctx context.Context, session *models.Session) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, session)
	return api.WithUser(ctx, session.User())
}

// SessionFromContext returns the session attached by RequireAuth or OptionalUser.
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*models.Session)
	return session, ok
}

// UserFromContext returns the logged in user, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return nil, false
	}
	user := session.User()
	return &user, true
}

// SafeReturnPath returns p when it is a local absolute path, otherwise fallback.
func SafeReturnPath(p, fallback string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return fallback
	}
	return p
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}
