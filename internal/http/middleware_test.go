package http

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{name: "ipv4 remote", remoteAddr: "192.0.2.10:54321", want: "192.0.2.10"},
		{name: "ipv6 remote", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "mapped ipv4 remote", remoteAddr: "[::ffff:192.0.2.10]:80", want: "192.0.2.10"},
		{name: "remote without port", remoteAddr: "192.0.2.10", want: "192.0.2.10"},
		{
			name:       "forwarded ignored without trust",
			remoteAddr: "10.0.0.2:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "10.0.0.2",
		},
		{
			name:       "first forwarded hop",
			remoteAddr: "10.0.0.2:80",
			headers:    map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"},
			trustProxy: true,
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded wins over real ip",
			remoteAddr: "10.0.0.2:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.4"},
			trustProxy: true,
			want:       "203.0.113.7",
		},
		{
			name:       "garbage forwarded falls back to real ip",
			remoteAddr: "10.0.0.2:80",
			headers:    map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "198.51.100.4"},
			trustProxy: true,
			want:       "198.51.100.4",
		},
		{
			name:       "garbage headers fall back to remote",
			remoteAddr: "10.0.0.2:80",
			headers:    map[string]string{"X-Real-IP": "<script>"},
			trustProxy: true,
			want:       "10.0.0.2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/orgs", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			require.Equal(t, tt.want, ClientIP(r, tt.trustProxy))
		})
	}
}

func TestClientIPMiddleware(t *testing.T) {
	var seen string
	handler := ClientIPMiddleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIPFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	require.Equal(t, "203.0.113.7", seen)
	require.Empty(t, ClientIPFromContext(context.Background()))
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "generates id", incoming: ""},
		{name: "reuses valid id", incoming: "abc-123_DEF", reuse: true},
		{name: "replaces invalid id", incoming: "bad id\n"},
		{name: "replaces oversized id", incoming: strings.Repeat("a", 65)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = RequestIDFromContext(r.Context())
			}))

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				r.Header.Set(RequestIDHeader, tt.incoming)
			}

			handler.ServeHTTP(w, r)

			require.NotEmpty(t, captured)
			require.Equal(t, captured, w.Header().Get(RequestIDHeader))
			if tt.reuse {
				require.Equal(t, tt.incoming, captured)
			} else {
				require.NotEqual(t, tt.incoming, captured)
			}
		})
	}
}

func TestNewRequestID_unique(t *testing.T) {
	ids := make(map[string]bool)
	for range 100 {
		id := NewRequestID()
		require.True(t, validRequestID(id))
		ids[id] = true
	}
	require.Len(t, ids, 100)
}

func TestCompress(t *testing.T) {
	body := strings.Repeat("<p>hello</p>", 200)
	handler := Compress()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, body)
	}))

	t.Run("gzips html", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Accept-Encoding", "gzip")

		handler.ServeHTTP(w, r)

		require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
		zr, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		out, err := io.ReadAll(zr)
		require.NoError(t, err)
		require.Equal(t, body, string(out))
	})

	t.Run("skips event streams", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Accept-Encoding", "gzip")
		r.Header.Set("Accept", "text/event-stream")

		handler.ServeHTTP(w, r)

		require.Empty(t, w.Header().Get("Content-Encoding"))
		require.Equal(t, body, w.Body.String())
	})
}
