package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/radarbr/internal/fetcher"
	"github.com/IshaanNene/radarbr/internal/types"
)

// HTTPLoader loads pages with a plain HTTP client. It follows server
// redirects but runs no scripts, so Google News links usually stay put.
type HTTPLoader struct {
	doer    fetcher.Doer
	timeout time.Duration
}

// NewHTTPLoader creates an HTTPLoader.
func NewHTTPLoader(doer fetcher.Doer, timeout time.Duration) *HTTPLoader {
	return &HTTPLoader{doer: doer, timeout: timeout}
}

// Load fetches url and returns the final URL and body.
func (l *HTTPLoader) Load(ctx context.Context, url string) (*types.PageResult, error) {
	req := fetcher.NewRequest(url).
		WithHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8").
		WithTimeout(l.timeout)
	resp, err := l.doer.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &types.FetchError{URL: url, StatusCode: resp.StatusCode, Err: errors.New("unexpected status")}
	}
	return &types.PageResult{
		FinalURL:  resp.FinalURL,
		HTML:      string(resp.Body),
		FetchedAt: resp.FetchedAt,
		Duration:  resp.Duration,
	}, nil
}

// ChainLoader tries each loader in order and returns the first page that
// left Google News, or the last page or error seen.
type ChainLoader struct {
	loaders []PageLoader
	logger  *slog.Logger
}

// Chain combines loaders into one PageLoader.
func Chain(logger *slog.Logger, loaders ...PageLoader) *ChainLoader {
	return &ChainLoader{loaders: loaders, logger: logger.With("component", "page_loader")}
}

// Load implements PageLoader.
func (c *ChainLoader) Load(ctx context.Context, url string) (*types.PageResult, error) {
	var (
		last    *types.PageResult
		lastErr error
	)
	for i, l := range c.loaders {
		page, err := l.Load(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Debug("loader failed", "loader", i, "url", url, "error", err)
			lastErr = err
			continue
		}
		if !IsGoogleNews(page.FinalURL) {
			return page, nil
		}
		last = page
	}
	if last != nil {
		return last, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no loaders configured")
	}
	return nil, lastErr
}
