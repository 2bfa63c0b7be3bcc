// Package api is the console's client for the gitclub backend: typed REST
// services for orgs, repos, jobs, issues, users and sessions plus the
// ListJobs GraphQL query.
package api

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/gitclub-console/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 4096

// Client talks to the backend. It is safe for concurrent use; per-user
// identity travels in the request context (see WithUser).
type Client struct {
	baseURL *url.URL
	http    *http.Client
	jar     http.CookieJar

	Session *SessionService
	Orgs    *OrgService
	Repos   *RepoService
	Users   *UserService
}

// New creates a client from cfg.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid api config: %w", err)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	httpClient, jar, err := newHTTPClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	c := &Client{
		baseURL: base,
		http:    httpClient,
		jar:     jar,
	}
	c.Session = &SessionService{c: c}
	c.Orgs = &OrgService{c: c}
	c.Repos = &RepoService{c: c}
	c.Users = &UserService{c: c}

	return c, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Cookies returns the backend cookies held by the client's jar.
func (c *Client) Cookies() []*http.Cookie {
	if c.jar == nil {
		return nil
	}
	return c.jar.Cookies(c.baseURL)
}

// SetCookies restores backend cookies, typically from a saved CLI profile.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if c.jar == nil || len(cookies) == 0 {
		return
	}
	c.jar.SetCookies(c.baseURL, cookies)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) patch(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPatch, path, in, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. Non-2xx responses become *Error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}

	return nil
}

// send performs req with request metrics and debug logging. Non-2xx
// responses are consumed and returned as *Error.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	method, path := req.Method, strings.TrimPrefix(req.URL.EscapedPath(), c.baseURL.EscapedPath())
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}

	m := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("method", method))
	start := time.Now()

	m.APIRequestsTotal.Add(ctx, 1, attrs)

	resp, err := c.http.Do(req)
	m.APIDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	if err != nil {
		m.APIErrorsTotal.Add(ctx, 1, attrs)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Bool("cached", resp.Header.Get("X-From-Cache") == "1").
		Dur("duration", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		m.APIErrorsTotal.Add(ctx, 1, attrs)
		return nil, newError(method, path, resp)
	}
	return resp, nil
}

func newError(method, path string, resp *http.Response) *Error {
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Method:     method,
		Path:       path,
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	switch err := json.Unmarshal(raw, &payload); {
	case err == nil:
		apiErr.Message = cmp.Or(payload.Message, payload.Error)
	case !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("<")):
		// plain text bodies are shown as is, HTML error pages are not
		apiErr.Message = strings.TrimSpace(string(raw))
	}

	return apiErr
}

func pathf(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			escaped[i] = url.PathEscape(v)
		case fmt.Stringer:
			escaped[i] = url.PathEscape(v.String())
		default:
			escaped[i] = a
		}
	}
	return fmt.Sprintf(format, escaped...)
}
