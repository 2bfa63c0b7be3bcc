package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// BuildMetadata is the subset of the esbuild metafile used to resolve the
// scripts a page needs.
type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
}

// Pipeline bundles page scripts and renders HTML pages.
//
// Files under layouts/ are shared by every page. Each file under pages/
// becomes a page named after its base name, executed via "layout".
type Pipeline struct {
	config Config
	pages  map[string]*template.Template

	mu       sync.RWMutex
	metadata *BuildMetadata
}

// New parses templates. funcs are added to the built in "json" helper,
// which embeds a value as a JavaScript literal.
func New(config Config, templates fs.FS, funcs template.FuncMap) (*Pipeline, error) {
	all := template.FuncMap{"json": jsonLiteral}
	maps.Copy(all, funcs)

	layouts, err := template.New("layouts").Funcs(all).ParseFS(templates, "layouts/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layouts: %w", err)
	}

	files, err := fs.Glob(templates, "pages/*.html")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no page templates found")
	}

	p := &Pipeline{config: config, pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		page, err := template.Must(layouts.Clone()).ParseFS(templates, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		p.pages[strings.TrimSuffix(path.Base(file), path.Ext(file))] = page
	}
	return p, nil
}

// Render executes page into a buffer and writes it with status, so a
// template error never leaves a half written page behind.
func (p *Pipeline) Render(w http.ResponseWriter, status int, page string, data any) {
	t, ok := p.pages[page]
	if !ok {
		log.Error().Str("page", page).Msg("Unknown page template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("page", page).Msg("Failed to render template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// HasPage reports whether a page template exists.
func (p *Pipeline) HasPage(page string) bool {
	_, ok := p.pages[page]
	return ok
}

func jsonLiteral(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil //nolint:gosec // json.Marshal escapes <, > and &
}
