package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// ConfigurationError reports an invalid setting or request parameter. It is
// fatal: a request carrying one can never succeed, so it aborts before any
// document is processed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DOCINTEL_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: DOCINTEL_PORT -> port, etc.
	if err := k.Load(env.Provider("DOCINTEL_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DOCINTEL_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized embedding provider values.
var validProviders = map[EmbeddingProvider]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.EmbeddingProvider == "" {
		return &ConfigurationError{Field: "embedding_provider", Reason: "required"}
	}
	if !validProviders[c.EmbeddingProvider] {
		return &ConfigurationError{
			Field:  "embedding_provider",
			Reason: fmt.Sprintf("invalid value %q: must be one of openai, ollama", c.EmbeddingProvider),
		}
	}
	if c.EmbeddingModel == "" {
		return &ConfigurationError{Field: "embedding_model", Reason: "required"}
	}
	if c.EmbeddingDims <= 0 {
		return &ConfigurationError{Field: "embedding_dims", Reason: "must be positive"}
	}
	if c.NearDupThreshold <= 0 || c.NearDupThreshold > 1 {
		return &ConfigurationError{Field: "near_dup_threshold", Reason: "must be in (0, 1]"}
	}
	if c.AutoAssignThreshold < 0 || c.AutoAssignThreshold > 1 {
		return &ConfigurationError{Field: "auto_assign_threshold", Reason: "must be in [0, 1]"}
	}
	if c.PatternConfidence < 0 || c.PatternConfidence > 1 {
		return &ConfigurationError{Field: "pattern_confidence", Reason: "must be in [0, 1]"}
	}
	if c.ProjectCodePattern == "" {
		return &ConfigurationError{Field: "project_code_pattern", Reason: "required"}
	}
	if c.MaxConcurrency < 0 {
		return &ConfigurationError{Field: "max_concurrency", Reason: "must be non-negative"}
	}
	if c.RetryAttempts < 1 {
		return &ConfigurationError{Field: "retry_attempts", Reason: "must be at least 1"}
	}
	if c.TrendMargin < 0 || c.TrendMargin >= 1 {
		return &ConfigurationError{Field: "trend_margin", Reason: "must be in [0, 1)"}
	}
	if c.DataDir == "" {
		return &ConfigurationError{Field: "data_dir", Reason: "required"}
	}
	return nil
}
