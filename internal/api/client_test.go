package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/gitclub-console/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...func(*Config)) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{BaseURL: srv.URL, Timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{BaseURL: "http://localhost:5000"}},
		{name: "missing base URL", cfg: Config{}, wantErr: true},
		{name: "bad scheme", cfg: Config{BaseURL: "ftp://localhost"}, wantErr: true},
		{name: "partial client credentials", cfg: Config{BaseURL: "https://api", ClientID: "id"}, wantErr: true},
		{name: "full client credentials", cfg: Config{BaseURL: "https://api", ClientID: "id", ClientSecret: "s", TokenURL: "https://auth/token"}},
		{name: "negative timeout", cfg: Config{BaseURL: "https://api", Timeout: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Username == "" {
			req.Username = "random"
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: req.Username, Path: "/"})
		writeJSON(w, http.StatusCreated, models.User{ID: 1, Username: req.Username})
	})
	mux.HandleFunc("GET /session", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, models.User{ID: 1, Username: c.Value})
	})
	mux.HandleFunc("DELETE /session/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Path: "/", MaxAge: -1})
		w.WriteHeader(http.StatusNoContent)
	})

	c := newTestClient(t, mux, func(cfg *Config) { cfg.Cookies = true })
	ctx := context.Background()

	user, err := c.Session.Current(ctx)
	require.NoError(t, err)
	require.Nil(t, user)

	user, err = c.Session.Login(ctx, "  john ")
	require.NoError(t, err)
	require.Equal(t, "john", user.Username)
	require.Len(t, c.Cookies(), 1)

	user, err = c.Session.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, "john", user.Username)

	require.NoError(t, c.Session.Logout(ctx))

	user, err = c.Session.Current(ctx)
	require.NoError(t, err)
	require.Nil(t, user)

	user, err = c.Session.Login(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "random", user.Username)
}

func TestSetCookies(t *testing.T) {
	var seen atomic.Value
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("session"); err == nil {
			seen.Store(ck.Value)
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	}), func(cfg *Config) { cfg.Cookies = true })

	c.SetCookies([]*http.Cookie{{Name: "session", Value: "abc", Path: "/"}})

	_, err := c.Session.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", seen.Load())
}

func TestWithUser_setsIdentityHeaders(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "7", r.Header.Get("X-User-Id"))
		require.Equal(t, "john", r.Header.Get("X-Username"))
		require.Equal(t, "gitclub-console", r.Header.Get("User-Agent"))
		writeJSON(w, http.StatusOK, []models.Org{{ID: 1, Name: "Acme"}})
	}))

	ctx := WithUser(context.Background(), models.User{ID: 7, Username: "john"})

	orgs, err := c.Orgs.List(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	require.Equal(t, "Acme", orgs[0].Name)
}

func TestStaticToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, models.Org{ID: 3})
	}), func(cfg *Config) { cfg.Token = "secret" })

	org, err := c.Orgs.Get(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), org.ID)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"message":"no such org"}`, sentinel: ErrNotFound, message: "no such org"},
		{name: "forbidden", status: http.StatusForbidden, body: `{"error":"nope"}`, sentinel: ErrForbidden, message: "nope"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `plain text`, sentinel: ErrUnauthorized, message: "plain text"},
		{name: "bad request", status: http.StatusBadRequest, body: `<html>oops</html>`, sentinel: ErrBadRequest, message: ""},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, body: `{}`, sentinel: ErrBadRequest, message: ""},
		{name: "json without message", status: http.StatusUnprocessableEntity, body: `{"detail":"taken"}`, sentinel: ErrBadRequest, message: ""},
		{name: "empty body", status: http.StatusNotFound, body: ``, sentinel: ErrNotFound, message: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			_, err := c.Orgs.Get(context.Background(), 1)
			require.ErrorIs(t, err, tt.sentinel)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Equal(t, tt.message, apiErr.Message)
			require.Equal(t, "/orgs/1", apiErr.Path)
		})
	}
}

func TestErrors_serverErrorMatchesNoSentinel(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.Orgs.List(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "500 Internal Server Error")
}

func TestRepos(t *testing.T) {
	var deleted atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orgs/1/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Repo{{ID: 2, Name: "website", OrgID: 1}})
	})
	mux.HandleFunc("POST /orgs/1/repos", func(w http.ResponseWriter, r *http.Request) {
		var params models.RepoParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		writeJSON(w, http.StatusCreated, models.Repo{ID: 3, Name: params.Name, OrgID: 1})
	})
	mux.HandleFunc("GET /orgs/1/repos/2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Repo{ID: 2, Name: "website", OrgID: 1})
	})
	mux.HandleFunc("DELETE /orgs/1/repos/2", func(w http.ResponseWriter, r *http.Request) {
		deleted.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	repos, err := c.Repos.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, repos, 1)

	repo, err := c.Repos.Create(ctx, 1, models.RepoParams{Name: "api"})
	require.NoError(t, err)
	require.Equal(t, "api", repo.Name)

	repo, err = c.Repos.Get(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), repo.OrgID)

	require.NoError(t, c.Repos.Delete(ctx, 1, 2))
	require.True(t, deleted.Load())
}

func TestJobs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orgs/1/repos/2/jobs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":5,"name":"build","status":"running","creatorId":1,"createdAt":"2024-03-01T10:00:00","updatedAt":"2024-03-01T10:00:00","cancelable":true}]`)
	})
	mux.HandleFunc("POST /orgs/1/repos/2/jobs", func(w http.ResponseWriter, r *http.Request) {
		var params models.JobParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		writeJSON(w, http.StatusCreated, models.Job{ID: "6", Name: params.Name, Status: models.JobStatusPending})
	})
	mux.HandleFunc("POST /orgs/1/repos/2/jobs/5/cancel", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Job{ID: "5", Status: models.JobStatusCanceled})
	})

	c := newTestClient(t, mux)
	ctx := context.Background()
	svc := c.Jobs(1, 2)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, models.ID("5"), list[0].ID)
	require.Equal(t, models.JobStatusRunning, list[0].Status)
	require.True(t, list[0].Cancelable)

	job, err := svc.Create(ctx, models.JobParams{Name: "deploy"})
	require.NoError(t, err)
	require.Equal(t, "deploy", job.Name)

	job, err = svc.Cancel(ctx, "5")
	require.NoError(t, err)
	require.True(t, job.IsTerminal())

	_, err = svc.Cancel(ctx, "")
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestIssues(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orgs/1/repos/2/issues", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Issue{{ID: 1, Title: "Broken build", RepoID: 2}})
	})
	mux.HandleFunc("GET /orgs/1/repos/2/issues/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Issue{ID: 1, Title: "Broken build", RepoID: 2})
	})
	mux.HandleFunc("POST /orgs/1/repos/2/issues", func(w http.ResponseWriter, r *http.Request) {
		var params models.IssueParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		writeJSON(w, http.StatusCreated, models.Issue{ID: 9, Title: params.Title, RepoID: 2})
	})

	c := newTestClient(t, mux)
	ctx := context.Background()
	svc := c.Issues(1, 2)

	issues, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	issue, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Broken build", issue.Title)

	issue, err = svc.Create(ctx, models.IssueParams{Title: "Flaky test"})
	require.NoError(t, err)
	require.Equal(t, int64(9), issue.ID)
}

func TestUsersAndRoles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/john", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.User{ID: 1, Username: "john"})
	})
	mux.HandleFunc("GET /users/john/orgs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Org{{ID: 1}})
	})
	mux.HandleFunc("GET /users/john/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Repo{{ID: 1}, {ID: 2}})
	})
	mux.HandleFunc("GET /orgs/1/role_assignments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.RoleAssignment{{User: models.User{Username: "john"}, Role: "owner"}})
	})
	mux.HandleFunc("GET /orgs/1/unassigned_users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.User{{Username: "ringo"}})
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	user, err := c.Users.Get(ctx, "john")
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)

	orgs, err := c.Users.Orgs(ctx, "john")
	require.NoError(t, err)
	require.Len(t, orgs, 1)

	repos, err := c.Users.Repos(ctx, "john")
	require.NoError(t, err)
	require.Len(t, repos, 2)

	roles, err := c.Orgs.RoleAssignments(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "owner", roles[0].Role)

	users, err := c.Orgs.UnassignedUsers(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "ringo", users[0].Username)
}
