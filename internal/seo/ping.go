// Package seo notifies search engines that the portal sitemap changed.
package seo

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/fetcher"
	"github.com/IshaanNene/radarbr/internal/types"
)

const userAgent = "RadarBRBot/1.0 (+https://radarbr.com)"

// Endpoints are the sitemap ping URLs.
type Endpoints struct {
	Google string
	Bing   string
}

// DefaultEndpoints are the public ping endpoints.
var DefaultEndpoints = Endpoints{
	Google: "https://www.google.com/ping",
	Bing:   "https://www.bing.com/ping",
}

// PingResult records which engines accepted the ping.
type PingResult struct {
	Google bool `json:"google"`
	Bing   bool `json:"bing"`
}

// OK reports whether any engine accepted the ping.
func (r PingResult) OK() bool { return r.Google || r.Bing }

// Pinger sends sitemap pings.
type Pinger struct {
	cfg       config.SEOConfig
	siteBase  string
	doer      fetcher.Doer
	endpoints Endpoints
	logger    *slog.Logger
}

// NewPinger creates a Pinger for the site at siteBase.
func NewPinger(cfg config.SEOConfig, siteBase string, doer fetcher.Doer, logger *slog.Logger) *Pinger {
	return &Pinger{
		cfg:       cfg,
		siteBase:  siteBase,
		doer:      doer,
		endpoints: DefaultEndpoints,
		logger:    logger.With("component", "seo_ping"),
	}
}

// WithEndpoints overrides the ping endpoints.
func (p *Pinger) WithEndpoints(e Endpoints) *Pinger {
	p.endpoints = e
	return p
}

// SitemapURL returns the portal sitemap location.
func (p *Pinger) SitemapURL() string {
	return strings.TrimRight(p.siteBase, "/") + "/sitemap.xml"
}

// Ping notifies both engines concurrently. It returns ErrPingFailed, with
// the partial result, when neither accepted.
func (p *Pinger) Ping(ctx context.Context) (PingResult, error) {
	var res PingResult
	if !p.cfg.PingEnabled {
		return res, nil
	}
	sitemap := p.SitemapURL()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Google = p.ping(ctx, "google", p.endpoints.Google, sitemap)
	}()
	go func() {
		defer wg.Done()
		res.Bing = p.ping(ctx, "bing", p.endpoints.Bing, sitemap)
	}()
	wg.Wait()

	p.logger.Info("sitemap ping", "sitemap", sitemap, "google", res.Google, "bing", res.Bing)
	if !res.OK() {
		return res, types.ErrPingFailed
	}
	return res, nil
}

func (p *Pinger) ping(ctx context.Context, engine, endpoint, sitemap string) bool {
	if endpoint == "" {
		return false
	}
	req := fetcher.NewRequest(endpoint+"?sitemap="+url.QueryEscape(sitemap)).
		WithHeader("User-Agent", userAgent).
		WithTimeout(p.cfg.PingTimeout)
	req.NoRetry = true

	resp, err := p.doer.Do(ctx, req)
	if err != nil {
		p.logger.Warn("ping failed", "engine", engine, "error", err)
		return false
	}
	if !resp.IsSuccess() {
		p.logger.Warn("ping rejected", "engine", engine, "status", resp.StatusCode)
		return false
	}
	return true
}
