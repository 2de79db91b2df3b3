package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/radarbr/internal/types"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad base url", func(c *Config) { c.Site.BaseURL = "radarbr.com" }, "site.base_url"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "bard" }, "llm.provider"},
		{"bad storage", func(c *Config) { c.Storage.Backend = "sqlite" }, "storage.backend"},
		{"few words", func(c *Config) { c.Pipeline.Words = 50 }, "pipeline.words"},
		{"redis without url", func(c *Config) { c.Cache.Backend = "redis" }, "cache.redis_url"},
		{"unknown trend provider", func(c *Config) { c.Trends.Providers = []string{"tiktok"} }, "trends.providers"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			var cfgErr *types.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestRequireLLM(t *testing.T) {
	cfg := DefaultConfig()
	if err := RequireLLM(cfg); err == nil {
		t.Fatal("expected error without api key")
	}
	cfg.LLM.APIKey = "sk-test"
	if err := RequireLLM(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.LLM.Provider = "ollama"
	cfg.LLM.APIKey = ""
	if err := RequireLLM(cfg); err != nil {
		t.Fatalf("ollama needs no key: %v", err)
	}
}

func TestLoadPlainEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("SITE_BASE_URL", "https://radarbr.com")
	t.Setenv("PEXELS_API_KEY", "pex")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		// An explicit but missing file is an error.
		t.Fatalf("expected error for missing explicit config, got cfg %+v", cfg.Site)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "radarbr.yaml")
	content := "pipeline:\n  words: 600\nresolver:\n  retry_pause: 1s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.Site.BaseURL != "https://radarbr.com" {
		t.Errorf("base url = %q", cfg.Site.BaseURL)
	}
	if cfg.Images.PexelsKey != "pex" {
		t.Errorf("pexels key = %q", cfg.Images.PexelsKey)
	}
	if cfg.Video.YouTubeKey != "yt-key" || !cfg.Video.Enabled || cfg.Video.Search {
		t.Errorf("video = %+v", cfg.Video)
	}
	if got := cfg.Redacted().Video.YouTubeKey; got == "yt-key" {
		t.Error("youtube key not masked")
	}
	if cfg.Pipeline.Words != 600 {
		t.Errorf("words = %d, want 600", cfg.Pipeline.Words)
	}
	if cfg.Resolver.RetryPause != time.Second {
		t.Errorf("retry pause = %v", cfg.Resolver.RetryPause)
	}
	if cfg.Cache.MaxAge != 7*24*time.Hour {
		t.Errorf("cache max age default lost: %v", cfg.Cache.MaxAge)
	}
}

func TestYAMLMasksSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-abcdefgh1234"
	cfg.Storage.DatabaseURL = "postgres://user:secret@db:5432/radarbr"

	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML: %v", err)
	}
	s := string(out)
	if strings.Contains(s, "sk-abcdefgh1234") {
		t.Error("api key leaked")
	}
	if !strings.Contains(s, "1234") {
		t.Error("masked key should keep last 4 chars")
	}
	if strings.Contains(s, "secret") {
		t.Error("database password leaked")
	}
	if cfg.LLM.APIKey != "sk-abcdefgh1234" {
		t.Error("Redacted must not mutate the original")
	}
}
