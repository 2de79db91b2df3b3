package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/IshaanNene/radarbr/internal/ai"
	"github.com/IshaanNene/radarbr/internal/classifier"
	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/extractor"
	"github.com/IshaanNene/radarbr/internal/fetcher"
	"github.com/IshaanNene/radarbr/internal/imagecache"
	"github.com/IshaanNene/radarbr/internal/images"
	"github.com/IshaanNene/radarbr/internal/observability"
	"github.com/IshaanNene/radarbr/internal/pipeline"
	"github.com/IshaanNene/radarbr/internal/resolver"
	"github.com/IshaanNene/radarbr/internal/seo"
	"github.com/IshaanNene/radarbr/internal/storage"
	"github.com/IshaanNene/radarbr/internal/title"
	"github.com/IshaanNene/radarbr/internal/trends"
	"github.com/IshaanNene/radarbr/internal/video"
)

// app holds the components shared by the publishing commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics

	http    *fetcher.HTTPFetcher
	browser *fetcher.BrowserFetcher
	store   storage.Store
	cache   imagecache.Cache
	orch    *pipeline.Orchestrator
}

// newApp wires the pipeline. Dry runs use a seeded in-memory store and never
// ping the search engines.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, dryRun bool) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(logger),
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	a.http = httpFetcher
	a.browser = fetcher.NewBrowserFetcher(&cfg.Resolver, logger)

	if dryRun {
		a.store = storage.NewMemoryStore(cfg.Site.BaseURL, logger).Seed(classifier.Vocabulary()...)
	} else {
		a.store, err = storage.Open(ctx, cfg, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open store: %w", err)
		}
	}
	a.cache = openCache(ctx, cfg, logger)

	seed := time.Now().UnixNano()
	llm := ai.NewLLMClient(cfg.LLM, logger)
	loader := resolver.Chain(logger, a.browser, resolver.NewHTTPLoader(httpFetcher, cfg.Resolver.NavTimeout))

	deps := pipeline.Deps{
		Resolver:   resolver.New(cfg.Resolver, loader, httpFetcher, logger),
		Extractor:  extractor.New(logger),
		Rewriter:   ai.NewRewriter(llm, rand.New(rand.NewSource(seed)), logger),
		Styler:     title.NewStyler(llm, rand.New(rand.NewSource(seed+1)), logger),
		Classifier: classifier.New(logger),
		Store:      a.store,
		Images:     images.New(cfg.Images, httpFetcher, a.cache, logger),
		Metrics:    a.metrics,
	}
	if cfg.SEO.PingEnabled && !dryRun {
		deps.Pinger = seo.NewPinger(cfg.SEO, cfg.Site.BaseURL, httpFetcher, logger)
	}
	if cfg.Video.Enabled {
		deps.Videos = video.New(cfg.Video, httpFetcher, logger)
	}
	a.orch = pipeline.New(cfg, deps, logger)

	logger.Debug("pipeline ready",
		"store", a.store.Name(),
		"stages", a.orch.Chain(pipeline.Options{DryRun: dryRun}).Names(),
	)
	return a, nil
}

// trendSource builds the configured trend providers over the shared fetcher.
func (a *app) trendSource() (*trends.Source, error) {
	return trends.New(a.cfg.Trends, a.http, a.logger)
}

// Close releases the browser, store, cache and HTTP connections.
func (a *app) Close() {
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			a.logger.Debug("browser close", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close", "error", err)
		}
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if a.http != nil {
		a.http.Close()
	}
}

// openCache opens the configured image cache. An unreachable Redis falls
// back to the file cache, and a broken file cache runs without caching.
func openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) imagecache.Cache {
	if cfg.Cache.Backend == "redis" {
		rc, err := imagecache.NewRedisCache(ctx, cfg.Cache.RedisURL, cfg.Cache.MaxAge, logger)
		if err == nil {
			return rc
		}
		logger.Warn("redis image cache unavailable, using file cache", "error", err)
	}
	fc, err := imagecache.NewFileCache(cfg.Cache.Path, cfg.Cache.MaxAge, logger)
	if err != nil {
		logger.Warn("image cache disabled", "path", cfg.Cache.Path, "error", err)
		return nil
	}
	return fc
}
