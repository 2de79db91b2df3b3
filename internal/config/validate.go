package config

import (
	"fmt"
	"net/url"

	"github.com/IshaanNene/radarbr/internal/types"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Site.BaseURL); err != nil {
		return &types.ConfigError{Field: "site.base_url", Msg: err.Error()}
	}
	if cfg.Site.DefaultCategory == "" {
		return &types.ConfigError{Field: "site.default_category", Msg: "must not be empty"}
	}

	if cfg.LLM.Provider != "openai" && cfg.LLM.Provider != "ollama" {
		return &types.ConfigError{Field: "llm.provider", Msg: fmt.Sprintf("must be 'openai' or 'ollama', got %q", cfg.LLM.Provider)}
	}
	if cfg.LLM.MaxTokens < 1 {
		return &types.ConfigError{Field: "llm.max_tokens", Msg: fmt.Sprintf("must be >= 1, got %d", cfg.LLM.MaxTokens)}
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return &types.ConfigError{Field: "llm.temperature", Msg: fmt.Sprintf("must be within [0, 2], got %v", cfg.LLM.Temperature)}
	}

	if cfg.Resolver.Attempts < 1 {
		return &types.ConfigError{Field: "resolver.attempts", Msg: fmt.Sprintf("must be >= 1, got %d", cfg.Resolver.Attempts)}
	}
	if cfg.Resolver.NavTimeout <= 0 {
		return &types.ConfigError{Field: "resolver.nav_timeout", Msg: "must be > 0"}
	}
	if cfg.Resolver.MaxItems < 1 {
		return &types.ConfigError{Field: "resolver.max_items", Msg: fmt.Sprintf("must be >= 1, got %d", cfg.Resolver.MaxItems)}
	}

	validProviders := map[string]bool{
		"google_news": true, "google_trends": true, "reddit": true,
		"news_sites": true, "twitter": true, "youtube": true,
	}
	for _, p := range cfg.Trends.Providers {
		if !validProviders[p] {
			return &types.ConfigError{Field: "trends.providers", Msg: fmt.Sprintf("unknown provider %q", p)}
		}
	}

	if cfg.Cache.Backend != "file" && cfg.Cache.Backend != "redis" {
		return &types.ConfigError{Field: "cache.backend", Msg: fmt.Sprintf("must be 'file' or 'redis', got %q", cfg.Cache.Backend)}
	}
	if cfg.Cache.Backend == "redis" && cfg.Cache.RedisURL == "" {
		return &types.ConfigError{Field: "cache.redis_url", Msg: "required when cache.backend is 'redis'"}
	}
	if cfg.Cache.MaxAge <= 0 {
		return &types.ConfigError{Field: "cache.max_age", Msg: "must be > 0"}
	}

	validBackends := map[string]bool{
		"postgres": true, "mongo": true, "memory": true,
	}
	if !validBackends[cfg.Storage.Backend] {
		return &types.ConfigError{Field: "storage.backend", Msg: fmt.Sprintf("%q is not supported (valid: postgres, mongo, memory)", cfg.Storage.Backend)}
	}

	if cfg.Pipeline.Words < 100 {
		return &types.ConfigError{Field: "pipeline.words", Msg: fmt.Sprintf("must be >= 100, got %d", cfg.Pipeline.Words)}
	}
	if cfg.Pipeline.DedupPrefixLen < 1 {
		return &types.ConfigError{Field: "pipeline.dedup_prefix_len", Msg: "must be >= 1"}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return &types.ConfigError{Field: "logging.level", Msg: fmt.Sprintf("must be debug/info/warn/error, got %q", cfg.Logging.Level)}
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return &types.ConfigError{Field: "logging.format", Msg: fmt.Sprintf("must be 'text' or 'json', got %q", cfg.Logging.Format)}
	}

	return nil
}

// RequireLLM checks that the rewrite model can be reached. Dry runs and
// commands that never call the model skip this check.
func RequireLLM(cfg *Config) error {
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		return &types.ConfigError{Field: "llm.api_key", Msg: "OPENAI_API_KEY is not set"}
	}
	if cfg.LLM.Endpoint == "" {
		return &types.ConfigError{Field: "llm.endpoint", Msg: "must not be empty"}
	}
	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
