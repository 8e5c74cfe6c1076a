/*
Package config loads application configuration from YAML or JSON files.

# Raw Access

Config wraps a map[string]any and provides comma-ok typed accessors.
Keys may be dotted paths into nested sections:

	cfg, err := config.FromFile("scentflow.yaml")
	model, ok := cfg.String("llm.model")
	timeout, ok := cfg.Duration("llm.timeout")

Duration accepts strings parsed by time.ParseDuration, and ints or
float64s interpreted as seconds.

# Environment Placeholders

String values may reference the environment as ${VAR} or ${VAR:-default}.
ExpandEnv resolves them and fails when a variable has neither a value nor
a default.

# Typed Settings

LoadSettings combines the two and decodes the result over DefaultSettings
with mapstructure:

	settings, err := config.LoadSettings("scentflow.yaml")

Unknown keys and unknown enum values (provider, driver, backend, lock)
are rejected.
*/
package config
