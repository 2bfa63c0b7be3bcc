package login

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/gitclub-console/internal/api"
	"github.com/wolfeidau/gitclub-console/internal/models"
	"github.com/wolfeidau/gitclub-console/internal/store/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeBackend struct {
	logins  []string
	logouts []models.User
	err     error
}

func (f *fakeBackend) Login(ctx context.Context, username string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.logins = append(f.logins, username)
	if username == "" {
		username = "random-user"
	}
	return &models.User{ID: 7, Username: username}, nil
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	user, _ := api.UserFromContext(ctx)
	f.logouts = append(f.logouts, user)
	return nil
}

func newTestManager(t *testing.T) (*Manager, *memory.SessionStore, *fakeBackend) {
	t.Helper()
	sessions := memory.NewSessionStore()
	backend := &fakeBackend{}
	m, err := New(Config{Secret: testSecret}, sessions, backend)
	require.NoError(t, err)
	return m, sessions, backend
}

// login starts a session and returns the cookie it set.
func login(t *testing.T, m *Manager, username string) (*models.Session, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)

	session, err := m.StartSession(rec, req, username)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return session, cookies[0]
}

func TestNew_validation(t *testing.T) {
	sessions := memory.NewSessionStore()
	backend := &fakeBackend{}

	_, err := New(Config{Secret: []byte("short")}, sessions, backend)
	require.Error(t, err)

	_, err = New(Config{Secret: testSecret}, nil, backend)
	require.Error(t, err)

	_, err = New(Config{Secret: testSecret, TTL: -time.Second}, sessions, backend)
	require.Error(t, err)

	m, err := New(Config{Secret: testSecret}, sessions, backend)
	require.NoError(t, err)
	require.Equal(t, DefaultTTL, m.ttl)
	require.Equal(t, DefaultCookieName, m.cookieName)
}

func TestStartSession(t *testing.T) {
	m, sessions, backend := newTestManager(t)

	session, cookie := login(t, m, "  john ")

	require.Equal(t, []string{"john"}, backend.logins)
	require.Equal(t, "john", session.Username)
	require.Equal(t, int64(7), session.UserID)
	require.Equal(t, DefaultCookieName, cookie.Name)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.NotEmpty(t, cookie.Value)

	stored, err := sessions.Get(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.Equal(t, "john", stored.Username)
}

func TestStartSession_randomUser(t *testing.T) {
	m, _, backend := newTestManager(t)

	session, _ := login(t, m, "")

	require.Equal(t, []string{""}, backend.logins)
	require.Equal(t, "random-user", session.Username)
}

func TestStartSession_backendError(t *testing.T) {
	m, _, backend := newTestManager(t)
	backend.err = errors.New("backend down")

	rec := httptest.NewRecorder()
	_, err := m.StartSession(rec, httptest.NewRequest(http.MethodPost, "/login", nil), "john")
	require.ErrorContains(t, err, "backend down")
	require.Empty(t, rec.Result().Cookies())
}

func TestGetSession(t *testing.T) {
	m, _, _ := newTestManager(t)
	session, cookie := login(t, m, "john")

	req := httptest.NewRequest(http.MethodGet, "/orgs", nil)
	req.AddCookie(cookie)

	got, err := m.GetSession(req)
	require.NoError(t, err)
	require.Equal(t, session.SessionID, got.SessionID)
}

func TestGetSession_rejected(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, cookie := login(t, m, "john")

	other, err := New(Config{Secret: []byte("ffffffffffffffffffffffffffffffff")}, memory.NewSessionStore(), &fakeBackend{})
	require.NoError(t, err)
	forged, err := other.signer.sign(&models.Session{
		SessionID: uuid.Must(uuid.NewV7()),
		Username:  "mallory",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	unknown, err := m.signer.sign(&models.Session{
		SessionID: uuid.Must(uuid.NewV7()),
		Username:  "ghost",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "missing cookie"},
		{name: "garbage", cookie: &http.Cookie{Name: DefaultCookieName, Value: "not-a-token"}},
		{name: "tampered", cookie: &http.Cookie{Name: DefaultCookieName, Value: cookie.Value + "x"}},
		{name: "bad signature", cookie: &http.Cookie{Name: DefaultCookieName, Value: forged}},
		{name: "unknown session", cookie: &http.Cookie{Name: DefaultCookieName, Value: unknown}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orgs", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			_, err := m.GetSession(req)
			require.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestGetSession_expired(t *testing.T) {
	m, sessions, _ := newTestManager(t)

	t.Run("expired token", func(t *testing.T) {
		token, err := m.signer.sign(&models.Session{
			SessionID: uuid.Must(uuid.NewV7()),
			Username:  "john",
			CreatedAt: time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/orgs", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})

		_, err = m.GetSession(req)
		require.ErrorIs(t, err, ErrExpiredSession)
	})

	t.Run("expired session", func(t *testing.T) {
		session := &models.Session{
			SessionID: uuid.Must(uuid.NewV7()),
			Username:  "john",
			CreatedAt: time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(-time.Hour),
		}
		require.NoError(t, sessions.Create(context.Background(), session))

		// token outlives the stored session
		token, err := m.signer.sign(&models.Session{
			SessionID: session.SessionID,
			Username:  "john",
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/orgs", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})

		_, err = m.GetSession(req)
		require.ErrorIs(t, err, ErrExpiredSession)
	})
}

func TestRequireAuth(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, cookie := login(t, m, "john")

	var gotUser models.User
	handler := m.RequireAuth("/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		gotUser = *user
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orgs", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "john", gotUser.Username)
	})

	t.Run("browser redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orgs/1?tab=repos", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/login", loc.Path)
		require.Equal(t, "invalid", loc.Query().Get("error_code"))
		require.Equal(t, "/orgs/1?tab=repos", loc.Query().Get("return_to"))
	})

	t.Run("post has no return path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orgs", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		require.NotContains(t, rec.Header().Get("Location"), "return_to")
	})

	t.Run("api unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orgs/1/repos/2/jobs", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("event stream unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
		req.Header.Set("Accept", "text/event-stream")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOptionalUser(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, cookie := login(t, m, "john")

	var (
		loggedIn bool
		identity models.User
	)
	handler := m.OptionalUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, loggedIn = UserFromContext(r.Context())
		identity, _ = api.UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/orgs", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.False(t, loggedIn)
	require.Empty(t, identity.Username)

	req = httptest.NewRequest(http.MethodGet, "/orgs", nil)
	req.AddCookie(cookie)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, loggedIn)
	require.Equal(t, "john", identity.Username)
	require.Equal(t, int64(7), identity.ID)
}

func TestEndSession(t *testing.T) {
	m, sessions, backend := newTestManager(t)
	session, cookie := login(t, m, "john")

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	require.NoError(t, m.EndSession(rec, req))

	require.Len(t, backend.logouts, 1)
	require.Equal(t, "john", backend.logouts[0].Username)

	_, err := sessions.Get(context.Background(), session.SessionID)
	require.Error(t, err)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Equal(t, -1, cleared[0].MaxAge)

	// a second logout without a session only clears the cookie
	rec = httptest.NewRecorder()
	require.NoError(t, m.EndSession(rec, httptest.NewRequest(http.MethodPost, "/logout", nil)))
	require.Len(t, backend.logouts, 1)
	require.True(t, strings.Contains(rec.Header().Get("Set-Cookie"), DefaultCookieName))
}

func TestSafeReturnPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "", expected: "/orgs"},
		{input: "/orgs/1/repos/2", expected: "/orgs/1/repos/2"},
		{input: "//evil.example.com", expected: "/orgs"},
		{input: "/\\evil.example.com", expected: "/orgs"},
		{input: "https://evil.example.com", expected: "/orgs"},
		{input: "orgs", expected: "/orgs"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, SafeReturnPath(tt.input, "/orgs"))
		})
	}
}
