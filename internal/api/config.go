package api

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend root, for example http://localhost:5000.
	BaseURL string
	Timeout time.Duration

	// CacheDir enables an on-disk HTTP cache for GET requests. Empty keeps
	// the cache in memory.
	CacheDir string
	// DisableCache turns off response caching altogether.
	DisableCache bool

	// Token is a static bearer token sent to the backend.
	Token string
	// ClientID, ClientSecret and TokenURL enable the client credentials
	// grant. They take precedence over Token.
	ClientID     string
	ClientSecret string
	TokenURL     string

	// Cookies keeps backend cookies in a jar, which is how a single user
	// (the CLI) holds on to its backend session.
	Cookies bool

	UserAgent string
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must be http or https, got %q", u.Scheme)
	}
	if c.ClientID != "" && (c.ClientSecret == "" || c.TokenURL == "") {
		return errors.New("client credentials require client secret and token URL")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "gitclub-console"
	}
}
