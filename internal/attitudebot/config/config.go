// Package config provides attitudebot configuration management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/prompt"
	appconfig "github.com/RobinCoderZhao/attitudebot/pkg/config"
	"github.com/RobinCoderZhao/attitudebot/pkg/docconv"
	"github.com/RobinCoderZhao/attitudebot/pkg/llm"
	"github.com/RobinCoderZhao/attitudebot/pkg/notify"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "attitudebot.yaml"

// Config is the main configuration for attitudebot.
type Config struct {
	InputDir string   `yaml:"input_dir" env:"ATTITUDEBOT_INPUT_DIR"`
	Patterns []string `yaml:"patterns"`

	Prompt          string        `yaml:"prompt"`
	Delay           time.Duration `yaml:"delay" env:"ATTITUDEBOT_DELAY"`
	MaxContentChars int           `yaml:"max_content_chars"`

	// Models is the quota fallback sequence, tried in order.
	Models         []string `yaml:"models" env:"ATTITUDEBOT_MODELS"`
	MaxQuotaErrors int      `yaml:"max_quota_errors"`

	LLM llm.Config `yaml:"llm"`

	ChartPath string `yaml:"chart" env:"ATTITUDEBOT_CHART"`
	DBPath    string `yaml:"db" env:"ATTITUDEBOT_DB"` // empty disables persistence

	// Notify receives a summary when a run finishes.
	Notify notify.Config `yaml:"notify"`
}

// DefaultConfig returns a Config with the stock classification settings.
func DefaultConfig() Config {
	patterns := make([]string, 0, len(docconv.Extensions))
	for _, ext := range docconv.Extensions {
		patterns = append(patterns, "*"+ext)
	}
	return Config{
		InputDir:        "data",
		Patterns:        patterns,
		Prompt:          prompt.MarketAttitude,
		Delay:           7 * time.Second,
		MaxContentChars: 100_000,
		Models:          []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-1.0-pro"},
		MaxQuotaErrors:  5,
		LLM:             llm.DefaultConfig(),
		ChartPath:       "attitude_trend.png",
		DBPath:          "attitudebot.db",
	}
}

// Load reads path (if it exists) over the defaults and applies environment
// overrides. The API key falls back to LLM_API_KEY when GEMINI_API_KEY is
// unset.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath
	}
	if err := appconfig.LoadOrDefault(path, &cfg); err != nil {
		return cfg, err
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = llm.APIKeyFromEnv()
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	var errs []error
	if c.InputDir == "" {
		errs = append(errs, errors.New("input_dir is required"))
	}
	if len(c.Models) == 0 {
		errs = append(errs, errors.New("at least one model is required"))
	}
	if c.Delay < 0 {
		errs = append(errs, fmt.Errorf("delay must not be negative, got %s", c.Delay))
	}
	if c.MaxContentChars <= 0 {
		errs = append(errs, fmt.Errorf("max_content_chars must be positive, got %d", c.MaxContentChars))
	}
	if c.MaxQuotaErrors < 0 {
		errs = append(errs, fmt.Errorf("max_quota_errors must not be negative, got %d", c.MaxQuotaErrors))
	}
	if c.Prompt == "" {
		errs = append(errs, errors.New("prompt is required"))
	}
	return errors.Join(errs...)
}

// RequireAPIKey fails when the configured provider needs a key and none
// was supplied.
func (c Config) RequireAPIKey() error {
	if c.LLM.Provider.RequiresAPIKey() && c.LLM.APIKey == "" {
		return fmt.Errorf("API key not found: set the GEMINI_API_KEY environment variable (or LLM_API_KEY, or llm.api_key in %s)", DefaultPath)
	}
	return nil
}
