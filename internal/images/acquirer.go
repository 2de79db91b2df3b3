// Package images picks a freely licensed image for an article: cached
// choice, stock photo search, category fallback, then a placeholder.
package images

import (
	"context"
	"log/slog"
	"strings"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/fetcher"
	"github.com/IshaanNene/radarbr/internal/imagecache"
	"github.com/IshaanNene/radarbr/internal/textutil"
	"github.com/IshaanNene/radarbr/internal/types"
)

const (
	maxKeywords   = 5
	minKeywordLen = 4
	queryWords    = 3
)

// Request describes the article an image is wanted for.
type Request struct {
	Title    string
	Body     string
	Category string // display name
	// Hero is the publisher's lead image, used only when enabled in config.
	Hero string
	// Domain is the publisher host, used to credit a hero image.
	Domain string
}

// Acquirer runs the image cascade.
type Acquirer struct {
	cfg       config.ImagesConfig
	doer      fetcher.Doer
	cache     imagecache.Cache
	endpoints Endpoints
	logger    *slog.Logger
}

// New creates an Acquirer. cache may be nil.
func New(cfg config.ImagesConfig, doer fetcher.Doer, cache imagecache.Cache, logger *slog.Logger) *Acquirer {
	return &Acquirer{
		cfg:       cfg,
		doer:      doer,
		cache:     cache,
		endpoints: DefaultEndpoints,
		logger:    logger.With("component", "images"),
	}
}

// WithEndpoints overrides the stock API endpoints.
func (a *Acquirer) WithEndpoints(e Endpoints) *Acquirer {
	a.endpoints = e
	return a
}

// providers returns the stock providers with a configured key, in cascade
// order.
func (a *Acquirer) providers() []stockProvider {
	var out []stockProvider
	if a.cfg.UnsplashKey != "" {
		out = append(out, stockProvider{ProviderUnsplash, a.searchUnsplash})
	}
	if a.cfg.PexelsKey != "" {
		out = append(out, stockProvider{ProviderPexels, a.searchPexels})
	}
	if a.cfg.PixabayKey != "" {
		out = append(out, stockProvider{ProviderPixabay, a.searchPixabay})
	}
	return out
}

// Acquire returns an image for req. It never fails: when every source is
// exhausted it returns the configured placeholder.
func (a *Acquirer) Acquire(ctx context.Context, req Request) types.ImageResult {
	catSlug := textutil.Slugify(req.Category)
	alt := types.Truncate(textutil.NormalizeSpace(req.Title), types.MaxImageAltLen)

	if a.cache != nil {
		if e, ok := a.cache.Get(ctx, req.Title, catSlug); ok {
			if a.Validate(ctx, e.URL) {
				res := fromEntry(e, alt)
				a.logger.Debug("image from cache", "title", req.Title, "url", res.URL)
				return res
			}
			if err := a.cache.Delete(ctx, req.Title, catSlug); err != nil {
				a.logger.Warn("cache evict failed", "error", err)
			}
		}
	}

	if a.cfg.PublisherHero && req.Hero != "" && a.Validate(ctx, req.Hero) {
		res := types.ImageResult{
			URL:       req.Hero,
			Alt:       alt,
			Credit:    "Foto: " + req.Domain + " (reprodução)",
			Licence:   "reprodução",
			SourceURL: req.Hero,
			Provider:  ProviderPublisher,
		}
		a.remember(ctx, req.Title, catSlug, res)
		return res
	}

	keywords := Keywords(req.Title, req.Body, req.Category)
	if len(keywords) > 0 {
		query := SearchQuery(keywords)
		for _, p := range a.providers() {
			if ctx.Err() != nil {
				break
			}
			res, err := p.search(ctx, query)
			if err != nil {
				a.logger.Warn("image provider failed", "provider", p.name, "query", query, "error", err)
				continue
			}
			if res == nil {
				a.logger.Debug("image provider returned nothing", "provider", p.name, "query", query)
				continue
			}
			if !a.Validate(ctx, res.URL) {
				continue
			}
			if res.Alt == "" {
				res.Alt = alt
			}
			a.logger.Info("image found", "provider", p.name, "query", query, "url", res.URL)
			a.remember(ctx, req.Title, catSlug, *res)
			return *res
		}
	}

	fallback := CategoryFallback(catSlug, alt)
	if a.Validate(ctx, fallback.URL) {
		a.logger.Info("using category image", "category", req.Category, "url", fallback.URL)
		a.remember(ctx, req.Title, catSlug, fallback)
		return fallback
	}

	a.logger.Warn("no image found, using placeholder", "title", req.Title)
	return types.ImageResult{
		URL:      a.cfg.PlaceholderURL,
		Alt:      alt,
		Credit:   "RadarBR",
		Licence:  "gratuita",
		Provider: ProviderPlaceholder,
	}
}

func (a *Acquirer) remember(ctx context.Context, title, catSlug string, res types.ImageResult) {
	if a.cache == nil {
		return
	}
	meta := map[string]string{
		"provider":   res.Provider,
		"credit":     res.Credit,
		"licence":    res.Licence,
		"source_url": res.SourceURL,
		"alt":        res.Alt,
	}
	if err := a.cache.Set(ctx, title, res.URL, catSlug, meta); err != nil {
		a.logger.Warn("cache write failed", "error", err)
	}
}

func fromEntry(e imagecache.Entry, alt string) types.ImageResult {
	res := types.ImageResult{
		URL:       e.URL,
		Alt:       e.Metadata["alt"],
		Credit:    e.Metadata["credit"],
		Licence:   e.Metadata["licence"],
		SourceURL: e.Metadata["source_url"],
		Provider:  ProviderCache,
	}
	if res.Alt == "" {
		res.Alt = alt
	}
	return res
}

// Keywords picks up to five search words from the title and then the body:
// non-stopwords of at least four letters that are not generic. The category
// leads the list when it is not already in it.
func Keywords(title, body, category string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(w string) {
		if len(out) >= maxKeywords || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}

	cat := strings.ToLower(strings.TrimSpace(category))
	if cat != "" && cat != "geral" {
		add(cat)
	}
	for _, text := range []string{title, textutil.StripTags(body)} {
		for _, w := range textutil.Keywords(text, minKeywordLen, 0) {
			if textutil.IsGeneric(w) || isNumeric(w) {
				continue
			}
			add(w)
		}
	}
	return out
}

// SearchQuery joins the leading keywords into "<term> brasil".
func SearchQuery(keywords []string) string {
	n := min(len(keywords), queryWords)
	term := strings.Join(keywords[:n], " ")
	if strings.Contains(term, "brasil") {
		return term
	}
	return term + " brasil"
}

func isNumeric(w string) bool {
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
