package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banghyang/scentflow/pkg/flowgraph/template"
)

// FromFile loads configuration from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data into a Config.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses JSON data into a Config.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}

// ExpandEnv returns a copy of c with ${VAR} and ${VAR:-default}
// placeholders replaced from vars. A placeholder with neither a value
// nor a default is an error, so a missing secret fails at startup.
func ExpandEnv(c Config, vars map[string]any) (Config, error) {
	exp := template.NewExpander(template.WithMissingAction(template.MissingError))
	expanded, err := exp.ExpandMap(c.Raw(), vars)
	if err != nil {
		return Config{}, fmt.Errorf("expand config: %w", err)
	}
	return New(expanded), nil
}
