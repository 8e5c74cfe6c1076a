package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banghyang/scentflow/pkg/flowgraph/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nested() config.Config {
	return config.New(map[string]any{
		"name": "scentflow",
		"llm": map[string]any{
			"model":   "doubao-pro",
			"timeout": "45s",
			"retries": float64(2),
		},
		"history": map[string]any{
			"enabled": true,
			"tags":    []any{"chat", "summary"},
		},
		"a.b": "literal",
	})
}

func TestNew(t *testing.T) {
	assert.NotNil(t, config.New(nil).Raw())
}

func TestString(t *testing.T) {
	cfg := nested()

	tests := []struct {
		name   string
		key    string
		want   string
		wantOK bool
	}{
		{"top level", "name", "scentflow", true},
		{"dotted path", "llm.model", "doubao-pro", true},
		{"exact key wins", "a.b", "literal", true},
		{"missing", "llm.provider", "", false},
		{"wrong type", "history.enabled", "", false},
		{"path through scalar", "name.x", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cfg.String(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDuration(t *testing.T) {
	cfg := config.New(map[string]any{
		"str":   "1h30m",
		"int":   5,
		"float": 1.5,
		"dur":   2 * time.Second,
		"bad":   "soon",
	})

	tests := map[string]time.Duration{
		"str":   90 * time.Minute,
		"int":   5 * time.Second,
		"float": 1500 * time.Millisecond,
		"dur":   2 * time.Second,
	}
	for key, want := range tests {
		got, ok := cfg.Duration(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	_, ok := cfg.Duration("bad")
	assert.False(t, ok)
	_, ok = cfg.Duration("missing")
	assert.False(t, ok)
}

func TestIntBoolSlice(t *testing.T) {
	cfg := nested()

	n, ok := cfg.Int("llm.retries")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	_, ok = config.New(map[string]any{"x": 1.5}).Int("x")
	assert.False(t, ok, "fractional numbers are not ints")
	n, _ = config.New(map[string]any{"x": int64(3)}).Int("x")
	assert.Equal(t, 3, n)

	b, ok := cfg.Bool("history.enabled")
	assert.True(t, ok)
	assert.True(t, b)
	_, ok = cfg.Bool("llm.model")
	assert.False(t, ok)

	tags, ok := cfg.StringSlice("history.tags")
	assert.True(t, ok)
	assert.Equal(t, []string{"chat", "summary"}, tags)
	_, ok = config.New(map[string]any{"x": []any{"a", 1}}).StringSlice("x")
	assert.False(t, ok)
}

func TestHasAny(t *testing.T) {
	cfg := nested()

	assert.True(t, cfg.Has("llm.model"))
	assert.False(t, cfg.Has("llm.nope"))
	assert.Equal(t, "fallback", cfg.Any("nope", "fallback"))
	assert.Equal(t, map[string]any{"model": "doubao-pro", "timeout": "45s", "retries": float64(2)}, cfg.Any("llm", nil))
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("llm:\n  model: m1\n"), 0o600))
	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	model, _ := cfg.String("llm.model")
	assert.Equal(t, "m1", model)

	jsonPath := filepath.Join(dir, "c.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"llm":{"model":"m2"}}`), 0o600))
	cfg, err = config.FromFile(jsonPath)
	require.NoError(t, err)
	model, _ = cfg.String("llm.model")
	assert.Equal(t, "m2", model)

	_, err = config.FromFile(filepath.Join(dir, "c.toml"))
	assert.Error(t, err)

	txtPath := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o600))
	_, err = config.FromFile(txtPath)
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = config.FromYAML([]byte("a: [unclosed"))
	assert.Error(t, err)
}

func TestExpandEnv(t *testing.T) {
	cfg := config.New(map[string]any{
		"llm": map[string]any{"api_key": "${ARK_KEY}", "model": "${ARK_MODEL:-doubao}"},
	})

	out, err := config.ExpandEnv(cfg, map[string]any{"ARK_KEY": "secret"})
	require.NoError(t, err)
	key, _ := out.String("llm.api_key")
	assert.Equal(t, "secret", key)
	model, _ := out.String("llm.model")
	assert.Equal(t, "doubao", model)

	_, err = config.ExpandEnv(cfg, nil)
	assert.ErrorContains(t, err, "ARK_KEY")
}
