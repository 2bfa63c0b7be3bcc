package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/gitclub-console/cmd/console/internal/profile"
	"github.com/wolfeidau/gitclub-console/internal/api"
)

type Globals struct {
	Debug      bool
	Version    string
	Backend    string
	Profile    string
	ProfileDir string
	CacheDir   string

	// Stdout is where command output goes, os.Stdout when nil.
	Stdout io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Stdout != nil {
		return g.Stdout
	}
	return os.Stdout
}

// session is an API client acting as the saved profile's user.
type session struct {
	client  *api.Client
	store   *profile.Store
	profile *profile.Profile
}

// connect creates an API client for the backend and restores the saved
// profile's cookies and identity into the returned context.
func (g *Globals) connect(ctx context.Context) (context.Context, *session, error) {
	store, err := profile.NewStore(g.ProfileDir)
	if err != nil {
		return ctx, nil, err
	}

	cacheDir := g.CacheDir
	if cacheDir == "" {
		if userCache, err := os.UserCacheDir(); err == nil {
			cacheDir = filepath.Join(userCache, "gitclub", "http")
		}
	}

	client, err := api.New(ctx, api.Config{
		BaseURL:   g.Backend,
		Timeout:   30 * time.Second,
		CacheDir:  cacheDir,
		Cookies:   true,
		UserAgent: "gitclub-console/" + g.Version,
	})
	if err != nil {
		return ctx, nil, err
	}

	s := &session{client: client, store: store}

	p, err := store.Get(g.Profile)
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
		return ctx, s, nil
	case err != nil:
		return ctx, nil, err
	}

	if p.BackendURL != "" && p.BackendURL != client.BaseURL() {
		log.Warn().
			Str("profile", p.Name).
			Str("profile_backend", p.BackendURL).
			Str("backend", client.BaseURL()).
			Msg("Profile belongs to another backend, ignoring it")
		return ctx, s, nil
	}

	s.profile = p
	client.SetCookies(p.HTTPCookies())
	return api.WithUser(ctx, p.User()), s, nil
}

// requireLogin fails when no profile is logged in.
func (s *session) requireLogin(g *Globals) error {
	if s.profile == nil {
		return fmt.Errorf("not logged in to %s (profile %q), run: console login", s.client.BaseURL(), g.Profile)
	}
	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		// running time streams stay open for as long as a job runs
		WriteTimeout:   0,
		IdleTimeout:    5 * time.Minute,
		MaxHeaderBytes: 8 * 1024, // 8KiB
	}
}
