// Package resolver finds the publisher article behind a topic or a Google
// News link by chasing redirects in a headless browser.
package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/fetcher"
	"github.com/IshaanNene/radarbr/internal/types"
)

// DefaultRSSBase is the Google News search feed.
const DefaultRSSBase = "https://news.google.com/rss/search"

// PageLoader renders a URL and reports where it ended up.
type PageLoader interface {
	Load(ctx context.Context, url string) (*types.PageResult, error)
}

// FeedItem is one Google News search result.
type FeedItem struct {
	Title     string
	Link      string
	Publisher string
	Published time.Time
}

// Resolution is a resolved publisher page.
type Resolution struct {
	Page *types.PageResult
	Item FeedItem
	// Via is the link that led to the page: a feed link, a cluster peer or
	// the input URL itself.
	Via string
}

// Resolver turns topics and Google News links into publisher pages.
type Resolver struct {
	cfg    config.ResolverConfig
	loader PageLoader
	http   fetcher.Doer
	parser *gofeed.Parser
	logger *slog.Logger
	pause  func(ctx context.Context, d time.Duration) error
}

// New creates a Resolver. http is used for the RSS search only.
func New(cfg config.ResolverConfig, loader PageLoader, http fetcher.Doer, logger *slog.Logger) *Resolver {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.RSSBaseURL == "" {
		cfg.RSSBaseURL = DefaultRSSBase
	}
	return &Resolver{
		cfg:    cfg,
		loader: loader,
		http:   http,
		parser: gofeed.NewParser(),
		logger: logger.With("component", "resolver"),
		pause:  sleep,
	}
}

// SearchURL builds the Google News RSS search URL for topic.
func SearchURL(base, topic string) string {
	q := url.Values{}
	q.Set("q", topic)
	return base + "?" + q.Encode() + "&hl=pt-BR&gl=BR&ceid=BR:pt-BR"
}

// Search queries the Google News RSS feed for topic and returns its items in
// feed order.
func (r *Resolver) Search(ctx context.Context, topic string) ([]FeedItem, error) {
	req := fetcher.NewRequest(SearchURL(r.cfg.RSSBaseURL, topic)).
		WithHeader("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8").
		WithTimeout(15 * time.Second)
	body, err := fetcher.GetBody(ctx, r.http, req)
	if err != nil {
		return nil, &types.ProviderError{Provider: "google_news_rss", Err: err}
	}
	feed, err := r.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &types.ProviderError{Provider: "google_news_rss", Err: fmt.Errorf("parse feed: %w", err)}
	}

	items := make([]FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it.Link == "" {
			continue
		}
		fi := FeedItem{Link: it.Link}
		fi.Title, fi.Publisher = SplitPublisher(it.Title)
		if it.PublishedParsed != nil {
			fi.Published = *it.PublishedParsed
		}
		items = append(items, fi)
	}
	r.logger.Debug("rss search", "topic", topic, "items", len(items))
	return items, nil
}

// SplitPublisher splits a Google News headline "Title - Publisher".
func SplitPublisher(headline string) (title, publisher string) {
	headline = strings.TrimSpace(headline)
	if i := strings.LastIndex(headline, " - "); i > 0 {
		return strings.TrimSpace(headline[:i]), strings.TrimSpace(headline[i+3:])
	}
	return headline, ""
}

// Resolve finds the publisher page for input, which is either a topic or an
// http(s) URL. It returns ErrResolveExhausted when no candidate reaches a
// publisher within the attempt budget.
func (r *Resolver) Resolve(ctx context.Context, input string) (*Resolution, error) {
	input = strings.TrimSpace(input)
	if isHTTPURL(input) {
		page, err := r.ResolveLink(ctx, input)
		if err != nil {
			return nil, err
		}
		return &Resolution{Page: page, Item: FeedItem{Link: input}, Via: input}, nil
	}

	items, err := r.Search(ctx, input)
	if err != nil {
		r.logger.Warn("rss search failed", "topic", input, "error", err)
		return nil, fmt.Errorf("resolve %q: %w", input, errors.Join(types.ErrResolveExhausted, err))
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("resolve %q: no feed items: %w", input, types.ErrResolveExhausted)
	}

	limit := min(len(items), max(r.cfg.MaxItems, 1))
	for i, item := range items[:limit] {
		page, err := r.ResolveLink(ctx, item.Link)
		if err == nil {
			r.logger.Info("resolved",
				"topic", input,
				"item", i+1,
				"final_url", page.FinalURL,
				"publisher", item.Publisher,
			)
			return &Resolution{Page: page, Item: item, Via: item.Link}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("feed item unresolved", "topic", input, "item", i+1, "error", err)
	}
	return nil, fmt.Errorf("resolve %q: %d feed items tried: %w", input, limit, types.ErrResolveExhausted)
}

// ResolveLink loads link until it leaves Google News. While the page is still
// a Google News page its outbound publisher links are tried once each. The
// whole sequence is repeated up to cfg.Attempts times.
func (r *Resolver) ResolveLink(ctx context.Context, link string) (*types.PageResult, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		if attempt > 1 {
			if err := r.pause(ctx, r.cfg.RetryPause); err != nil {
				return nil, err
			}
		}

		page, err := r.loader.Load(ctx, link)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Debug("load failed", "url", link, "attempt", attempt, "error", err)
			lastErr = err
			continue
		}
		if !IsGoogleNews(page.FinalURL) {
			return page, nil
		}

		if peer, err := r.tryPeers(ctx, page); err == nil {
			return peer, nil
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("still on news.google.com")
	}
	return nil, fmt.Errorf("resolve link %s after %d attempts: %w", link, r.cfg.Attempts,
		errors.Join(types.ErrResolveExhausted, lastErr))
}

func (r *Resolver) tryPeers(ctx context.Context, page *types.PageResult) (*types.PageResult, error) {
	doc, err := page.Document()
	if err != nil {
		return nil, fmt.Errorf("parse google news page: %w", err)
	}
	peers := ExternalLinks(page.FinalURL, doc)
	if len(peers) == 0 {
		return nil, errors.New("no external links on google news page")
	}
	if len(peers) > r.cfg.MaxPeers {
		peers = peers[:r.cfg.MaxPeers]
	}

	var lastErr error
	for _, peer := range peers {
		p, err := r.loader.Load(ctx, peer)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if !IsGoogleNews(p.FinalURL) {
			r.logger.Debug("resolved through peer", "peer", peer, "final_url", p.FinalURL)
			return p, nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("peers stayed on news.google.com")
	}
	return nil, lastErr
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
