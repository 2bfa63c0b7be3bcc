package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	httputil "github.com/wolfeidau/gitclub-console/internal/http"
)

func TestRequests(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{name: "ok", status: http.StatusOK, level: "info"},
		{name: "not found", status: http.StatusNotFound, level: "warn"},
		{name: "server error", status: http.StatusBadGateway, level: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := zerolog.New(&buf)

			var ctxLogger *zerolog.Logger
			handler := httputil.RequestIDMiddleware()(Requests(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxLogger = zerolog.Ctx(r.Context())
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("hello"))
			})))

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/orgs", nil)
			handler.ServeHTTP(w, r)

			require.NotNil(t, ctxLogger)
			require.NotEqual(t, zerolog.Disabled, ctxLogger.GetLevel())

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			require.Equal(t, tt.level, entry["level"])
			require.Equal(t, "/orgs", entry["path"])
			require.Equal(t, "GET", entry["method"])
			require.Equal(t, float64(tt.status), entry["status"])
			require.Equal(t, float64(5), entry["bytes"])
			require.Equal(t, w.Header().Get(httputil.RequestIDHeader), entry["request_id"])
		})
	}
}

func TestStatusRecorder_Flush(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	var flusher http.Flusher = rec
	flusher.Flush()
	require.True(t, w.Flushed)
}
