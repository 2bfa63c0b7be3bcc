package assets

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	p := newTestPipeline(t)
	require.True(t, p.HasPage("hello"))
	require.False(t, p.HasPage("layout"))

	rec := httptest.NewRecorder()
	p.Render(rec, http.StatusAccepted, "hello", map[string]string{"Title": "Hi", "Name": "<john>"})

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "<title>Hi</title>hello &lt;john&gt;", rec.Body.String())
}

func TestRender_failures(t *testing.T) {
	p := newTestPipeline(t)

	rec := httptest.NewRecorder()
	p.Render(rec, http.StatusOK, "missing", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	broken, err := New(DefaultConfig(), fstest.MapFS{
		"layouts/layout.html": {Data: []byte(`{{define "layout"}}{{.Missing.Field}}{{end}}`)},
		"pages/broken.html":   {Data: []byte(`{{define "content"}}{{end}}`)},
	}, nil)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	broken.Render(rec, http.StatusOK, "broken", struct{}{})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "<")
}

func TestNew_noPages(t *testing.T) {
	_, err := New(DefaultConfig(), fstest.MapFS{
		"layouts/layout.html": {Data: []byte(`{{define "layout"}}{{end}}`)},
	}, nil)
	require.ErrorContains(t, err, "no page templates found")
}

func TestRender_jsonHelper(t *testing.T) {
	p, err := New(DefaultConfig(), fstest.MapFS{
		"layouts/layout.html": {Data: []byte(`{{define "layout"}}<script>const jobs = {{json .}};</script>{{end}}`)},
		"pages/jobs.html":     {Data: []byte(`{{define "content"}}{{end}}`)},
	}, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.Render(rec, http.StatusOK, "jobs", []map[string]any{{"id": 1, "name": "</script>"}})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `<script>const jobs = [{"id":1,"name":"\u003c/script\u003e"}];</script>`, rec.Body.String())
}
