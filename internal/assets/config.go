package assets

// Config controls how the page scripts under ui/ are bundled.
type Config struct {
	// EntryPoints globs the page scripts; each match becomes one bundle.
	EntryPoints string
	// OutputDir receives the bundles. The console serves it under /public/.
	OutputDir string
	// MetafilePath is written by Build and read back by LoadMetadata when
	// the console starts with prebuilt bundles.
	MetafilePath string
	// Development skips minification and inlines source maps.
	Development bool
}

func DefaultConfig() Config {
	return Config{
		EntryPoints:  "ui/pages/*.ts",
		OutputDir:    "public",
		MetafilePath: "public/meta.json",
	}
}
