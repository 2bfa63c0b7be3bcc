package api

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"strconv"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/wolfeidau/gitclub-console/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	headerUserID   = "X-User-Id"
	headerUsername = "X-Username"
)

type userKey struct{}

// WithUser returns a context whose requests act as user.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user set with WithUser.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey{}).(models.User)
	return user, ok
}

// identityTransport stamps the acting user onto every request.
type identityTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *identityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)

	if user, ok := UserFromContext(req.Context()); ok {
		if user.ID != 0 {
			req.Header.Set(headerUserID, strconv.FormatInt(user.ID, 10))
		}
		if user.Username != "" {
			req.Header.Set(headerUsername, user.Username)
		}
	}

	return t.next.RoundTrip(req)
}

// newHTTPClient layers the transports: identity, then the GET cache, then
// bearer tokens, then tracing closest to the wire.
func newHTTPClient(ctx context.Context, cfg Config) (*http.Client, http.CookieJar, error) {
	var rt http.RoundTripper = otelhttp.NewTransport(http.DefaultTransport)

	switch {
	case cfg.ClientID != "":
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: rt, Timeout: cfg.Timeout})
		rt = &oauth2.Transport{Source: cc.TokenSource(ctx), Base: rt}
	case cfg.Token != "":
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   rt,
		}
	}

	if !cfg.DisableCache {
		rt = newCachingTransport(cfg.CacheDir, rt)
	}

	rt = &identityTransport{next: rt, userAgent: cfg.UserAgent}

	client := &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
	}

	if !cfg.Cookies {
		return client, nil, nil
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, nil, err
	}
	client.Jar = jar

	return client, jar, nil
}

// newCachingTransport honours the backend's cache headers for GET requests.
// With cacheDir set the cache survives restarts.
func newCachingTransport(cacheDir string, next http.RoundTripper) *httpcache.Transport {
	var cache httpcache.Cache = httpcache.NewMemoryCache()
	if cacheDir != "" {
		cache = diskcache.New(cacheDir)
	}

	t := httpcache.NewTransport(cache)
	t.Transport = next
	t.MarkCachedResponses = true
	return t
}
