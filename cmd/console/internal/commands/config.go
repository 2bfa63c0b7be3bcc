package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPaths are checked for a configuration file when --config is
// not given. Missing files are ignored.
var DefaultConfigPaths = []string{
	"gitclub-console.yaml",
	"~/.config/gitclub/console.yaml",
}

// YAMLConfig resolves flag values from a YAML document. Keys are flag names
// with dashes or underscores, and embedded flag groups may be nested:
//
//	backend: http://localhost:5000
//	session-ttl: 24h
//	postgres:
//	  conn-string: postgres://localhost/console
func YAMLConfig(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	data, err := json.Marshal(normalizeKeys(values))
	if err != nil {
		return nil, fmt.Errorf("failed to convert config: %w", err)
	}
	return kong.JSON(bytes.NewReader(data))
}

// normalizeKeys joins nested keys and rewrites dashes so postgres.conn-string
// becomes postgres_conn_string, the form kong's JSON resolver looks up.
func normalizeKeys(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	flatten("", values, out)
	return out
}

func flatten(prefix string, values map[string]any, out map[string]any) {
	for key, value := range values {
		name := underscore(key)
		if prefix != "" {
			name = prefix + "_" + name
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(name, nested, out)
			continue
		}
		out[name] = value
	}
}

func underscore(s string) string {
	return strings.ReplaceAll(s, "-", "_")
}
