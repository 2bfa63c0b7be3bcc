// Package console serves the gitclub admin console: server rendered pages
// for orgs, repos, jobs and issues, plus the JSON listing and running time
// stream used by the jobs page script.
package console

import (
	"errors"
	"net/http"
	"time"

	"filippo.io/csrf"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wolfeidau/gitclub-console/internal/api"
	"github.com/wolfeidau/gitclub-console/internal/assets"
	"github.com/wolfeidau/gitclub-console/internal/logger"
	"github.com/wolfeidau/gitclub-console/internal/login"

	httputil "github.com/wolfeidau/gitclub-console/internal/http"
)

// DefaultStatusInterval is how often a running time stream re-fetches the
// job to pick up status changes.
const DefaultStatusInterval = 2 * time.Second

type Config struct {
	// CORSOrigins are allowed to call the /api routes with credentials.
	CORSOrigins []string
	// PublicDir holds the built page scripts served under /public/.
	PublicDir string
	// StatusInterval overrides DefaultStatusInterval.
	StatusInterval time.Duration
	// Tracing wraps the router in otelhttp.
	Tracing bool
	// TrustProxy takes client addresses from X-Forwarded-For and X-Real-IP.
	TrustProxy bool
}

func (c *Config) ApplyDefaults() {
	if c.PublicDir == "" {
		c.PublicDir = "public"
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = DefaultStatusInterval
	}
}

// Server renders console pages backed by the gitclub API.
type Server struct {
	cfg      Config
	api      *api.Client
	sessions *login.Manager
	pages    *assets.Pipeline
	log      zerolog.Logger
}

// New creates a console server.
func New(cfg Config, client *api.Client, sessions *login.Manager, pages *assets.Pipeline, log zerolog.Logger) (*Server, error) {
	if client == nil || sessions == nil || pages == nil {
		return nil, errors.New("api client, session manager and pages are required")
	}
	cfg.ApplyDefaults()

	return &Server{
		cfg:      cfg,
		api:      client,
		sessions: sessions,
		pages:    pages,
		log:      log,
	}, nil
}

// Handler returns the console's HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(httputil.RequestIDMiddleware())
	r.Use(httputil.ClientIPMiddleware(s.cfg.TrustProxy))
	r.Use(logger.Requests(s.log))

	r.Get("/healthz", s.healthz)
	r.Handle("/public/*", http.StripPrefix("/public/", http.FileServer(http.Dir(s.cfg.PublicDir))))

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodHead},
			AllowedHeaders:   []string{"Accept", "If-None-Match"},
			ExposedHeaders:   []string{"ETag", httputil.RequestIDHeader},
			AllowCredentials: true,
		}).Handler)
		r.Use(s.sessions.RequireAuth("/login"))

		r.Get("/orgs/{orgID}/repos/{repoID}/jobs", s.jobsJSON)
		r.Get("/orgs/{orgID}/repos/{repoID}/jobs/{jobID}/running-time", s.runningTimeStream)
	})

	r.Group(func(r chi.Router) {
		r.Use(csrf.New().Handler)
		r.Use(httputil.Compress())

		r.Get("/", http.RedirectHandler("/orgs", http.StatusFound).ServeHTTP)
		r.Get("/login", s.loginPage)
		r.Post("/login", s.login)
		r.Post("/logout", s.logout)

		// issues can be browsed anonymously
		r.Group(func(r chi.Router) {
			r.Use(s.sessions.OptionalUser)
			r.Get("/orgs/{orgID}/repos/{repoID}/issues", s.issueIndex)
			r.Get("/orgs/{orgID}/repos/{repoID}/issues/{issueID:[0-9]+}", s.issueShow)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.sessions.RequireAuth("/login"))

			r.Get("/orgs", s.orgIndex)
			r.Get("/orgs/new", s.orgNew)
			r.Post("/orgs", s.orgCreate)
			r.Get("/orgs/{orgID}", s.orgShow)
			r.Post("/orgs/{orgID}/repos", s.repoCreate)
			r.Get("/orgs/{orgID}/repos/{repoID}", s.repoShow)

			for _, scope := range []string{"/orgs/{orgID}", "/orgs/{orgID}/repos/{repoID}"} {
				r.Get(scope+"/members", s.memberIndex)
				r.Post(scope+"/members", s.memberAssign)
				r.Post(scope+"/members/{userID}", s.memberUpdate)
				r.Post(scope+"/members/{userID}/remove", s.memberRemove)
			}

			r.Get("/orgs/{orgID}/repos/{repoID}/jobs", s.jobIndex)
			r.Post("/orgs/{orgID}/repos/{repoID}/jobs", s.jobSchedule)
			r.Post("/orgs/{orgID}/repos/{repoID}/jobs/{jobID}/cancel", s.jobCancel)

			r.Get("/orgs/{orgID}/repos/{repoID}/issues/new", s.issueNew)
			r.Post("/orgs/{orgID}/repos/{repoID}/issues", s.issueCreate)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, errNotFound)
	})

	if s.cfg.Tracing {
		return otelhttp.NewHandler(r, "console")
	}
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := httputil.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to write health response")
	}
}
