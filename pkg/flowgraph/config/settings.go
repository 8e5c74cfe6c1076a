package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/banghyang/scentflow/pkg/flowgraph/template"
)

// Settings is the typed application configuration.
type Settings struct {
	LLM     LLMSettings     `mapstructure:"llm"`
	Catalog CatalogSettings `mapstructure:"catalog"`
	Image   ImageSettings   `mapstructure:"image"`
	History HistorySettings `mapstructure:"history"`
	Server  ServerSettings  `mapstructure:"server"`
	Log     LogSettings     `mapstructure:"log"`
}

// LLMSettings selects and configures the chat model.
type LLMSettings struct {
	// Provider is "ark" or "mock".
	Provider    string        `mapstructure:"provider"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`

	// Backoff and MaxBackoff shape the wait between model attempts.
	Backoff    time.Duration `mapstructure:"backoff"`
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
}

// CatalogSettings configures the perfume catalog database.
type CatalogSettings struct {
	// Driver is "sqlite" or "mysql".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`

	// Seed loads the sample catalog into an empty database.
	Seed bool `mapstructure:"seed"`
}

// ImageSettings configures the image synthesis service.
type ImageSettings struct {
	Enabled   bool          `mapstructure:"enabled"`
	Endpoint  string        `mapstructure:"endpoint"`
	APIKey    string        `mapstructure:"api_key"`
	OutputDir string        `mapstructure:"output_dir"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// HistorySettings configures chat history storage and locking.
type HistorySettings struct {
	// Backend is "memory", "sqlite" or "mongo".
	Backend  string `mapstructure:"backend"`
	DSN      string `mapstructure:"dsn"`
	Database string `mapstructure:"database"`
	// Threshold is the number of turns kept before compaction summarizes
	// the older ones.
	Threshold int `mapstructure:"threshold"`
	// Lock is "local" or "redis".
	Lock      string        `mapstructure:"lock"`
	RedisAddr string        `mapstructure:"redis_addr"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
	NodeID    int64         `mapstructure:"node_id"`
}

// ServerSettings configures the HTTP facade.
type ServerSettings struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogSettings configures the process logger.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultSettings returns the settings used for any value not configured.
func DefaultSettings() Settings {
	return Settings{
		LLM: LLMSettings{
			Provider:    "ark",
			BaseURL:     "https://ark.cn-beijing.volces.com/api/v3",
			Timeout:     60 * time.Second,
			MaxAttempts: 2,
			Backoff:     250 * time.Millisecond,
			MaxBackoff:  2 * time.Second,
		},
		Catalog: CatalogSettings{
			Driver: "sqlite",
			DSN:    "file:catalog.db",
		},
		Image: ImageSettings{
			OutputDir: "generated_images",
			Timeout:   2 * time.Minute,
		},
		History: HistorySettings{
			Backend:   "memory",
			Database:  "scentflow",
			Threshold: 10,
			Lock:      "local",
			LockTTL:   30 * time.Second,
			NodeID:    1,
		},
		Server: ServerSettings{
			Addr:         ":8000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 3 * time.Minute,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadSettings reads path, expands environment placeholders and decodes
// the result over DefaultSettings. An empty path returns the defaults.
func LoadSettings(path string) (Settings, error) {
	if path == "" {
		return DefaultSettings(), nil
	}
	cfg, err := FromFile(path)
	if err != nil {
		return Settings{}, err
	}
	return DecodeSettings(cfg, template.EnvVars())
}

// DecodeSettings expands cfg with vars and decodes it over DefaultSettings.
// Unknown keys are rejected so typos surface at startup.
func DecodeSettings(cfg Config, vars map[string]any) (Settings, error) {
	expanded, err := ExpandEnv(cfg, vars)
	if err != nil {
		return Settings{}, err
	}

	settings := DefaultSettings()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &settings,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Settings{}, fmt.Errorf("create settings decoder: %w", err)
	}
	if err := decoder.Decode(expanded.Raw()); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate checks enumerated fields and required values.
func (s Settings) Validate() error {
	var errs []error

	switch s.LLM.Provider {
	case "ark":
		if s.LLM.APIKey == "" || s.LLM.Model == "" {
			errs = append(errs, errors.New("llm: ark provider needs api_key and model"))
		}
	case "mock":
	default:
		errs = append(errs, fmt.Errorf("llm: unknown provider %q", s.LLM.Provider))
	}

	switch s.Catalog.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Errorf("catalog: unknown driver %q", s.Catalog.Driver))
	}

	if s.Image.Enabled && s.Image.Endpoint == "" {
		errs = append(errs, errors.New("image: endpoint is required when enabled"))
	}

	switch s.History.Backend {
	case "memory", "sqlite", "mongo":
	default:
		errs = append(errs, fmt.Errorf("history: unknown backend %q", s.History.Backend))
	}
	switch s.History.Lock {
	case "local":
	case "redis":
		if s.History.RedisAddr == "" {
			errs = append(errs, errors.New("history: redis lock needs redis_addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("history: unknown lock %q", s.History.Lock))
	}
	if s.History.Threshold < 1 {
		errs = append(errs, errors.New("history: threshold must be positive"))
	}

	return errors.Join(errs...)
}
