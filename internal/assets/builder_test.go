package assets

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

const testMetafile = `{
  "outputs": {
    "public/jobs-AAAA.js": {
      "entryPoint": "ui/pages/jobs.ts",
      "imports": [{"path": "public/chunks/poller-BBBB.js"}, {"path": "public/chunks/dom-CCCC.js"}]
    },
    "public/chunks/poller-BBBB.js": {
      "imports": [{"path": "public/chunks/dom-CCCC.js"}]
    },
    "public/chunks/dom-CCCC.js": {"imports": []},
    "public/orgs-DDDD.js": {"entryPoint": "ui/pages/orgs.ts", "imports": []}
  }
}`

var testTemplates = fstest.MapFS{
	"layouts/layout.html": {Data: []byte(`{{define "layout"}}<title>{{.Title}}</title>{{template "content" .}}{{end}}`)},
	"pages/hello.html":    {Data: []byte(`{{define "content"}}hello {{.Name}}{{end}}`)},
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(DefaultConfig(), testTemplates, nil)
	require.NoError(t, err)
	return p
}

func TestLoadScripts(t *testing.T) {
	p := newTestPipeline(t)
	require.NoError(t, p.setMetadata([]byte(testMetafile)))

	scripts, err := p.LoadScripts("ui/pages/jobs.ts")
	require.NoError(t, err)
	require.Equal(t, []string{
		"/jobs-AAAA.js",
		"/chunks/poller-BBBB.js",
		"/chunks/dom-CCCC.js",
	}, scripts)

	scripts, err = p.LoadScripts("ui/pages/orgs.ts")
	require.NoError(t, err)
	require.Equal(t, []string{"/orgs-DDDD.js"}, scripts)
}

func TestLoadScripts_errors(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.LoadScripts("ui/pages/jobs.ts")
	require.ErrorIs(t, err, ErrNotBuilt)
	require.Nil(t, p.Scripts("ui/pages/jobs.ts"))

	require.NoError(t, p.setMetadata([]byte(testMetafile)))
	_, err = p.LoadScripts("ui/pages/missing.ts")
	require.ErrorIs(t, err, ErrUnknownEntryPoint)
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.MetafilePath = filepath.Join(dir, "meta.json")

	p, err := New(cfg, testTemplates, nil)
	require.NoError(t, err)
	require.Error(t, p.LoadMetadata())

	require.NoError(t, writeFileAtomic(cfg.MetafilePath, []byte(testMetafile)))
	require.NoError(t, p.LoadMetadata())
	require.Len(t, p.Scripts("ui/pages/jobs.ts"), 3)

	require.NoError(t, os.WriteFile(cfg.MetafilePath, []byte("{"), 0o600))
	require.ErrorContains(t, p.LoadMetadata(), "failed to parse asset metadata")
}

func TestPublicPath(t *testing.T) {
	require.Equal(t, "/jobs.js", publicPath("public", "public/jobs.js"))
	require.Equal(t, "/chunks/a.js", publicPath("public", filepath.Join("public", "chunks", "a.js")))
	require.Equal(t, "/elsewhere/a.js", publicPath("public", "elsewhere/a.js"))
}

func TestBuildOptions(t *testing.T) {
	p := newTestPipeline(t)
	opts := p.buildOptions([]string{"ui/pages/jobs.ts"})
	require.True(t, opts.MinifySyntax)
	require.Equal(t, "public", opts.Outdir)

	p.config.Development = true
	opts = p.buildOptions([]string{"ui/pages/jobs.ts"})
	require.False(t, opts.MinifySyntax)
}
