package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/gitclub-console/internal/api"
	"github.com/wolfeidau/gitclub-console/internal/assets"
	"github.com/wolfeidau/gitclub-console/internal/console"
	"github.com/wolfeidau/gitclub-console/internal/logger"
	"github.com/wolfeidau/gitclub-console/internal/login"
	"github.com/wolfeidau/gitclub-console/internal/store"
	memorystore "github.com/wolfeidau/gitclub-console/internal/store/memory"
	postgresstore "github.com/wolfeidau/gitclub-console/internal/store/postgres"
	"github.com/wolfeidau/gitclub-console/internal/telemetry"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"127.0.0.1:3000" env:"GITCLUB_LISTEN"`
	Cert   string `help:"path to TLS cert file, serves plain HTTP when empty" default:"" env:"GITCLUB_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"GITCLUB_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for /api requests" default:"http://localhost:3000" env:"GITCLUB_CORS_ORIGINS"`

	// Session configuration
	SessionSecret   string        `help:"secret used to sign session cookies, at least 32 bytes" env:"GITCLUB_SESSION_SECRET"`
	SessionTTL      time.Duration `help:"session TTL" default:"168h" env:"GITCLUB_SESSION_TTL"`
	SessionSweep    time.Duration `help:"how often expired sessions are removed" default:"10m" env:"GITCLUB_SESSION_SWEEP"`
	SecureCookies   bool          `help:"mark session cookies Secure (implied when serving TLS)" default:"false" env:"GITCLUB_SECURE_COOKIES"`
	StatusInterval  time.Duration `help:"job status re-fetch interval for running time streams" default:"2s" env:"GITCLUB_STATUS_INTERVAL"`
	BuildAssets     bool          `help:"bundle page scripts with esbuild on startup" default:"true" negatable:"" env:"GITCLUB_BUILD_ASSETS"`
	BackendWait     time.Duration `help:"how long to wait for the backend on startup, zero skips the check" default:"30s" env:"GITCLUB_BACKEND_WAIT"`
	ShutdownTimeout time.Duration `help:"graceful shutdown timeout" default:"10s" env:"GITCLUB_SHUTDOWN_TIMEOUT"`

	// Backend credentials
	Backend BackendFlags `embed:"" prefix:"backend-"`

	// Operational modes
	Tracing    bool `help:"enable tracing and metrics export" default:"false" env:"GITCLUB_TRACING"`
	TrustProxy bool `help:"take client addresses from X-Forwarded-For, only behind a trusted proxy" env:"GITCLUB_TRUST_PROXY"`

	// Store configuration
	StoreType     string             `help:"session store type (memory or postgres)" default:"memory" env:"GITCLUB_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type BackendFlags struct {
	Token        string `help:"static bearer token sent to the backend" env:"GITCLUB_BACKEND_TOKEN"`
	ClientID     string `help:"OAuth2 client ID for the client credentials grant" env:"GITCLUB_BACKEND_CLIENT_ID"`
	ClientSecret string `help:"OAuth2 client secret" env:"GITCLUB_BACKEND_CLIENT_SECRET"`
	TokenURL     string `help:"OAuth2 token URL" env:"GITCLUB_BACKEND_TOKEN_URL"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"10"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"1"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"GITCLUB_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (c *ServerCmd) Validate() error {
	if len(c.SessionSecret) < 32 {
		return errors.New("session secret must be at least 32 bytes (--session-secret or GITCLUB_SESSION_SECRET)")
	}
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS requires both --cert and --key")
	}
	if c.StoreType == "postgres" {
		return c.PostgresStore.validate()
	}
	return nil
}

func (c *ServerCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting console")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		providers, err := telemetry.Start(ctx, telemetry.Config{
			ServiceName: "gitclub-console",
			Version:     globals.Version,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := providers.Shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Failed to shutdown telemetry")
				}
			}()
		}
	}

	client, err := api.New(ctx, api.Config{
		BaseURL: globals.Backend,
		// responses vary per console user, the shared cache is for the CLI
		DisableCache: true,
		Token:        c.Backend.Token,
		ClientID:     c.Backend.ClientID,
		ClientSecret: c.Backend.ClientSecret,
		TokenURL:     c.Backend.TokenURL,
		UserAgent:    "gitclub-console/" + globals.Version,
	})
	if err != nil {
		return fmt.Errorf("failed to create api client: %w", err)
	}

	if c.BackendWait > 0 {
		if err := client.WaitForBackend(ctx, c.BackendWait); err != nil {
			return fmt.Errorf("backend %s is not reachable: %w", client.BaseURL(), err)
		}
	}

	sessionStore, closeStore, err := c.openSessionStore(ctx, log)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions, err := login.New(login.Config{
		Secret: []byte(c.SessionSecret),
		TTL:    c.SessionTTL,
		Secure: c.SecureCookies || c.Cert != "",
	}, sessionStore, client.Session)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	assetCfg := assets.DefaultConfig()
	assetCfg.Development = globals.Debug
	pages, err := console.NewPages(assetCfg)
	if err != nil {
		return fmt.Errorf("failed to load page templates: %w", err)
	}
	if c.BuildAssets {
		if err := pages.Build(); err != nil {
			return fmt.Errorf("failed to build js assets: %w", err)
		}
	} else if err := pages.LoadMetadata(); err != nil {
		log.Warn().Err(err).Str("path", assetCfg.MetafilePath).Msg("No asset metadata, pages render without scripts")
	}

	srv, err := console.New(console.Config{
		CORSOrigins:    c.CORSOrigins,
		PublicDir:      assetCfg.OutputDir,
		StatusInterval: c.StatusInterval,
		Tracing:        c.Tracing,
		TrustProxy:     c.TrustProxy,
	}, client, sessions, pages, log)
	if err != nil {
		return fmt.Errorf("failed to create console: %w", err)
	}

	go sweepSessions(ctx, sessionStore, c.SessionSweep)

	httpServer := configureHTTPServer(c.Listen, srv.Handler())

	errCh := make(chan error, 1)
	go func() {
		if c.Cert != "" {
			if _, err := os.Stat(c.Cert); err != nil {
				errCh <- fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
				return
			}
			log.Info().Str("addr", c.Listen).Str("backend", client.BaseURL()).Msg("Starting HTTPS server")
			errCh <- httpServer.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		log.Info().Str("addr", c.Listen).Str("backend", client.BaseURL()).Msg("Starting HTTP server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (c *ServerCmd) openSessionStore(ctx context.Context, log zerolog.Logger) (store.SessionStore, func(), error) {
	switch c.StoreType {
	case "postgres":
		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
			AutoMigrate:     c.PostgresStore.AutoMigrate,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		log.Info().Bool("auto_migrate", c.PostgresStore.AutoMigrate).Msg("Using PostgreSQL session store")
		return postgresstore.NewSessionStore(pool), pool.Close, nil

	default:
		log.Info().Msg("Using in-memory session store")
		return memorystore.NewSessionStore(), func() {}, nil
	}
}

func sweepSessions(ctx context.Context, sessions store.SessionStore, every time.Duration) {
	if every <= 0 {
		return
	}

	log := zerolog.Ctx(ctx)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to delete expired sessions")
				continue
			}
			if n > 0 {
				log.Debug().Int("count", n).Msg("Deleted expired sessions")
			}
		}
	}
}
