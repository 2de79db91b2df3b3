package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// plainEnv maps config keys to the unprefixed environment variables the
// deployment already exports.
var plainEnv = map[string][]string{
	"llm.api_key":          {"OPENAI_API_KEY"},
	"llm.model":            {"OPENAI_MODEL"},
	"images.unsplash_key":  {"UNSPLASH_API_KEY", "UNSPLASH_ACCESS_KEY"},
	"images.pexels_key":    {"PEXELS_API_KEY"},
	"images.pixabay_key":   {"PIXABAY_API_KEY"},
	"video.youtube_key":    {"YOUTUBE_API_KEY"},
	"site.base_url":        {"SITE_BASE_URL"},
	"storage.database_url": {"DATABASE_URL"},
	"storage.mongo_uri":    {"MONGO_URI"},
	"cache.redis_url":      {"REDIS_URL"},
}

// Load reads configuration from .env, environment, and config file.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("RADARBR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range plainEnv {
		envKey := "RADARBR_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envKey}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("radarbr")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".radarbr"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("site.base_url", cfg.Site.BaseURL)
	v.SetDefault("site.default_category", cfg.Site.DefaultCategory)

	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.endpoint", cfg.LLM.Endpoint)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.api_key", cfg.LLM.APIKey)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.frequency_penalty", cfg.LLM.FrequencyPenalty)
	v.SetDefault("llm.presence_penalty", cfg.LLM.PresencePenalty)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("llm.style", cfg.LLM.Style)

	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.max_retries", cfg.Fetcher.MaxRetries)
	v.SetDefault("fetcher.retry_delay", cfg.Fetcher.RetryDelay)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)

	v.SetDefault("resolver.headless", cfg.Resolver.Headless)
	v.SetDefault("resolver.browser_bin", cfg.Resolver.BrowserBin)
	v.SetDefault("resolver.user_agent", cfg.Resolver.UserAgent)
	v.SetDefault("resolver.nav_timeout", cfg.Resolver.NavTimeout)
	v.SetDefault("resolver.selector_timeout", cfg.Resolver.SelectorTimeout)
	v.SetDefault("resolver.settle_delay", cfg.Resolver.SettleDelay)
	v.SetDefault("resolver.attempts", cfg.Resolver.Attempts)
	v.SetDefault("resolver.retry_pause", cfg.Resolver.RetryPause)
	v.SetDefault("resolver.max_items", cfg.Resolver.MaxItems)
	v.SetDefault("resolver.max_peers", cfg.Resolver.MaxPeers)
	v.SetDefault("resolver.rss_base_url", cfg.Resolver.RSSBaseURL)

	v.SetDefault("trends.providers", cfg.Trends.Providers)
	v.SetDefault("trends.timeout", cfg.Trends.Timeout)
	v.SetDefault("trends.reddit_min_score", cfg.Trends.RedditMinScore)
	v.SetDefault("trends.news_sites", cfg.Trends.NewsSites)

	v.SetDefault("images.unsplash_key", cfg.Images.UnsplashKey)
	v.SetDefault("images.pexels_key", cfg.Images.PexelsKey)
	v.SetDefault("images.pixabay_key", cfg.Images.PixabayKey)
	v.SetDefault("images.timeout", cfg.Images.Timeout)
	v.SetDefault("images.validate_timeout", cfg.Images.ValidateTimeout)
	v.SetDefault("images.placeholder_url", cfg.Images.PlaceholderURL)
	v.SetDefault("images.publisher_hero", cfg.Images.PublisherHero)

	v.SetDefault("video.enabled", cfg.Video.Enabled)
	v.SetDefault("video.search", cfg.Video.Search)
	v.SetDefault("video.youtube_key", cfg.Video.YouTubeKey)
	v.SetDefault("video.timeout", cfg.Video.Timeout)

	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.redis_url", cfg.Cache.RedisURL)
	v.SetDefault("cache.max_age", cfg.Cache.MaxAge)

	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.database_url", cfg.Storage.DatabaseURL)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.migrate_on_start", cfg.Storage.MigrateOnStart)

	v.SetDefault("pipeline.words", cfg.Pipeline.Words)
	v.SetDefault("pipeline.dedup_prefix_len", cfg.Pipeline.DedupPrefixLen)
	v.SetDefault("pipeline.recent_window", cfg.Pipeline.RecentWindow)
	v.SetDefault("pipeline.recent_max", cfg.Pipeline.RecentMax)
	v.SetDefault("pipeline.source_envelope", cfg.Pipeline.SourceEnvelope)

	v.SetDefault("seo.ping_enabled", cfg.SEO.PingEnabled)
	v.SetDefault("seo.ping_timeout", cfg.SEO.PingTimeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
}

// Redacted returns a copy of cfg with credentials masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.LLM.APIKey = mask(c.LLM.APIKey)
	out.Images.UnsplashKey = mask(c.Images.UnsplashKey)
	out.Images.PexelsKey = mask(c.Images.PexelsKey)
	out.Images.PixabayKey = mask(c.Images.PixabayKey)
	out.Video.YouTubeKey = mask(c.Video.YouTubeKey)
	out.Storage.DatabaseURL = maskURL(c.Storage.DatabaseURL)
	out.Storage.MongoURI = maskURL(c.Storage.MongoURI)
	out.Cache.RedisURL = maskURL(c.Cache.RedisURL)
	return &out
}

// YAML renders the effective configuration with credentials masked.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + s[len(s)-4:]
}

// maskURL hides the password portion of a connection string.
func maskURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	userinfo := raw[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		userinfo = userinfo[:colon] + ":****"
	}
	return raw[:scheme+3] + userinfo + raw[at:]
}
