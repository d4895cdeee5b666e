// Package config provides configuration structures and loading logic for the educator agent.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/polisai/educator-agent/internal/governance"
	"github.com/polisai/educator-agent/pkg/domain"
	"github.com/polisai/educator-agent/pkg/llm"
	"github.com/polisai/educator-agent/pkg/logging"
	"github.com/polisai/educator-agent/pkg/oer"
	"github.com/polisai/educator-agent/pkg/policy/sanitize"
	"github.com/polisai/educator-agent/pkg/telemetry"
)

// DefaultEnvFile is read for secrets when the config does not name another file.
const DefaultEnvFile = ".env"

// Config holds the global configuration for the agent.
type Config struct {
	Model     string           `yaml:"model"`
	OutputDir string           `yaml:"output_dir"`
	EnvFile   string           `yaml:"env_file"`
	LLM       llm.Config       `yaml:"llm"`
	OER       OERConfig        `yaml:"oer"`
	Notes     NotesConfig      `yaml:"notes"`
	Sanitizer SanitizerConfig  `yaml:"sanitizer"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Logging   logging.Config   `yaml:"logging"`
}

// OERConfig configures resource suggestions.
type OERConfig struct {
	oer.Config `yaml:",inline"`
	Count      int `yaml:"count"`
}

// NotesConfig configures speaker-notes generation.
type NotesConfig struct {
	Model       string `yaml:"model"`
	Concurrency int    `yaml:"concurrency"`
}

// SanitizerConfig extends the builtin redaction rules.
type SanitizerConfig struct {
	Marker        string          `yaml:"marker"`
	ProfanityMask string          `yaml:"profanity_mask"`
	Rules         []sanitize.Rule `yaml:"rules"`
	Stopwords     []string        `yaml:"stopwords"`
	Profanity     []string        `yaml:"profanity"`
	Disable       []string        `yaml:"disable"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Model:     domain.DefaultModel,
		OutputDir: "output",
		EnvFile:   DefaultEnvFile,
		LLM: llm.Config{
			BaseURL: llm.DefaultBaseURL,
			Retry:   governance.DefaultRetryConfig(),
			Breaker: governance.DefaultBreakerConfig(),
		},
		OER: OERConfig{
			Config: oer.Config{
				BaseURL: oer.DefaultBaseURL,
				Retry:   governance.DefaultRetryConfig(),
			},
			Count: oer.DefaultCount,
		},
		Notes: NotesConfig{
			Concurrency: 4,
		},
		Telemetry: telemetry.Config{
			ServiceName: "educator-agent",
			Insecure:    true,
		},
		Logging: logging.Config{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads configuration from a file, then the env file, and applies
// environment variable overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // Config file path is chosen by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	dotenv, err := readEnvFile(cfg.EnvFile)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg, func(key string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return dotenv[key]
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// readEnvFile loads KEY=value pairs without touching the process environment.
// A missing file yields no values.
func readEnvFile(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return values, nil
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if val := getenv("OPENAI_API_KEY"); val != "" {
		cfg.LLM.APIKey = val
	}
	if val := getenv("OPENAI_BASE_URL"); val != "" {
		cfg.LLM.BaseURL = val
	}
	if val := getenv("EDUCATOR_MODEL"); val != "" {
		cfg.Model = val
	}
	if val := getenv("EDUCATOR_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := getenv("EDUCATOR_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.Endpoint = val
	}
	if val := getenv("EDUCATOR_OER_BASE_URL"); val != "" {
		cfg.OER.BaseURL = val
	}
}

// Validate checks the whole configuration and fills in normalised values.
func (c *Config) Validate() error {
	c.Model = strings.TrimSpace(c.Model)
	if c.Model == "" {
		c.Model = domain.DefaultModel
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		c.OutputDir = "output"
	}

	if err := validateLevel(&c.Logging); err != nil {
		return fmt.Errorf("%w: logging: %w", domain.ErrConfigInvalid, err)
	}
	if c.Notes.Concurrency < 0 {
		return fmt.Errorf("%w: notes: concurrency must not be negative", domain.ErrConfigInvalid)
	}
	if c.OER.Count < 0 {
		return fmt.Errorf("%w: oer: count must not be negative", domain.ErrConfigInvalid)
	}
	if c.LLM.Retry.MaxRetries < 0 || c.OER.Retry.MaxRetries < 0 {
		return fmt.Errorf("%w: retry: max_retries must not be negative", domain.ErrConfigInvalid)
	}
	if _, err := c.Sanitizer.PatternSet(); err != nil {
		return fmt.Errorf("%w: sanitizer: %w", domain.ErrConfigInvalid, err)
	}
	return nil
}

func validateLevel(c *logging.Config) error {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "info"
	}

	level := strings.TrimSpace(strings.ToLower(c.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Level = level
		return nil
	default:
		return fmt.Errorf("invalid log level %q, supported levels: debug, info, warn, error", c.Level)
	}
}

// IsZero reports whether the section leaves the builtin rules untouched.
func (c SanitizerConfig) IsZero() bool {
	return c.Marker == "" && c.ProfanityMask == "" && len(c.Rules) == 0 &&
		len(c.Stopwords) == 0 && len(c.Profanity) == 0 && len(c.Disable) == 0
}

// PatternSet compiles the section on top of the builtin rules.
func (c SanitizerConfig) PatternSet() (*sanitize.PatternSet, error) {
	if c.IsZero() {
		return sanitize.Default(), nil
	}

	b := sanitize.NewBuilder(nil).
		AddRules(c.Rules...).
		AddStopwords(c.Stopwords...).
		AddProfanity(c.Profanity...).
		Disable(c.Disable...)
	if c.Marker != "" {
		b.WithMarker(c.Marker)
	}
	if c.ProfanityMask != "" {
		b.WithProfanityMask(c.ProfanityMask)
	}
	return b.Build()
}
