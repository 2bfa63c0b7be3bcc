package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotBuilt is returned while neither Build nor LoadMetadata succeeded.
	ErrNotBuilt = errors.New("page scripts not built")
	// ErrUnknownEntryPoint is returned for scripts esbuild never bundled.
	ErrUnknownEntryPoint = errors.New("unknown entry point")
)

// Build bundles every page script, writes the metafile and keeps the
// resulting output graph for Scripts.
func (p *Pipeline) Build() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entryPoints, err := filepath.Glob(p.config.EntryPoints)
	if err != nil {
		return fmt.Errorf("invalid entry point pattern %q: %w", p.config.EntryPoints, err)
	}
	if len(entryPoints) == 0 {
		return fmt.Errorf("no page scripts match %q", p.config.EntryPoints)
	}

	log.Info().Strs("entrypoints", entryPoints).Bool("development", p.config.Development).Msg("Bundling page scripts")

	result := api.Build(p.buildOptions(entryPoints))
	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			ev := log.Error().Str("error", msg.Text)
			if msg.Location != nil {
				ev = ev.Str("file", msg.Location.File).Int("line", msg.Location.Line)
			}
			ev.Msg("Bundle error")
		}
		return fmt.Errorf("esbuild failed with %d errors", len(result.Errors))
	}
	for _, msg := range result.Warnings {
		log.Warn().Str("warning", msg.Text).Msg("Bundle warning")
	}

	if err := writeFileAtomic(p.config.MetafilePath, []byte(result.Metafile)); err != nil {
		return fmt.Errorf("failed to write asset metadata: %w", err)
	}

	return p.setMetadata([]byte(result.Metafile))
}

func (p *Pipeline) buildOptions(entryPoints []string) api.BuildOptions {
	opts := api.BuildOptions{
		EntryPoints: entryPoints,
		Bundle:      true,
		Splitting:   true,
		Write:       true,
		Outdir:      p.config.OutputDir,
		// page scripts are served from a cache friendly path per build
		EntryNames:  "[name]-[hash]",
		ChunkNames:  "chunks/[name]-[hash]",
		Format:      api.FormatESModule,
		Target:      api.ES2020,
		TreeShaking: api.TreeShakingTrue,
		Metafile:    true,
		LogLevel:    api.LogLevelSilent,
	}

	if p.config.Development {
		opts.Sourcemap = api.SourceMapInline
		return opts
	}

	opts.MinifyWhitespace = true
	opts.MinifyIdentifiers = true
	opts.MinifySyntax = true
	opts.Sourcemap = api.SourceMapLinked
	return opts
}

// LoadMetadata reads the metafile written by an earlier Build.
func (p *Pipeline) LoadMetadata() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.config.MetafilePath)
	if err != nil {
		return fmt.Errorf("failed to read asset metadata: %w", err)
	}
	return p.setMetadata(data)
}

func (p *Pipeline) setMetadata(data []byte) error {
	var metadata BuildMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return fmt.Errorf("failed to parse asset metadata: %w", err)
	}
	p.metadata = &metadata
	return nil
}

// LoadScripts returns the URL paths a page needs for entryPoint: the entry
// bundle first, then the chunks it imports in discovery order.
func (p *Pipeline) LoadScripts(entryPoint string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, ErrNotBuilt
	}

	for output, info := range p.metadata.Outputs {
		if info.EntryPoint != entryPoint {
			continue
		}
		return p.metadata.walk(output, p.config.OutputDir), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownEntryPoint, entryPoint)
}

// Scripts is LoadScripts for templates. Pages still render, without their
// scripts, when bundles are missing.
func (p *Pipeline) Scripts(entryPoint string) []string {
	scripts, err := p.LoadScripts(entryPoint)
	if err != nil {
		log.Debug().Err(err).Str("entrypoint", entryPoint).Msg("Page scripts unavailable")
		return nil
	}
	return scripts
}

// walk lists output and its transitive imports breadth first, as paths
// relative to outputDir.
func (m *BuildMetadata) walk(output, outputDir string) []string {
	seen := map[string]bool{output: true}
	queue := []string{output}
	var scripts []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		scripts = append(scripts, publicPath(outputDir, current))

		for _, imp := range m.Outputs[current].Imports {
			if seen[imp.Path] {
				continue
			}
			seen[imp.Path] = true
			queue = append(queue, imp.Path)
		}
	}

	return scripts
}

// publicPath turns an esbuild output path into its URL below /public.
func publicPath(outputDir, output string) string {
	rel, err := filepath.Rel(outputDir, output)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = output
	}
	return "/" + filepath.ToSlash(rel)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
