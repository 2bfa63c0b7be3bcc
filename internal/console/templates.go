package console

import (
	"embed"
	"html/template"
	"io/fs"

	"github.com/wolfeidau/gitclub-console/internal/assets"
)

//go:embed templates
var templateFS embed.FS

// NewPages parses the console's page templates into an asset pipeline.
func NewPages(cfg assets.Config) (*assets.Pipeline, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	return assets.New(cfg, sub, template.FuncMap{
		"ago": ago,
	})
}
