package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/radarbr/internal/automation"
	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/types"
)

// BrowserFetcher renders pages in headless Chromium. The browser process is
// shared; every Load runs in its own incognito context so cookies, cache and
// consent state never leak between calls.
type BrowserFetcher struct {
	cfg     *config.ResolverConfig
	profile *BrowserProfile
	logger  *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowserFetcher creates a browser fetcher. Chromium is launched on first use.
func NewBrowserFetcher(cfg *config.ResolverConfig, logger *slog.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		cfg:     cfg,
		profile: DefaultBrowserProfile(cfg.UserAgent),
		logger:  logger.With("component", "browser_fetcher"),
	}
}

// launch starts a Chromium instance with appropriate flags.
func (bf *BrowserFetcher) launch() (*rod.Browser, error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.browser != nil {
		return bf.browser, nil
	}

	l := launcher.New().
		Headless(bf.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Set("lang", "pt-BR").
		Set("window-size", bf.profile.WindowSize)
	if bf.cfg.BrowserBin != "" {
		l = l.Bin(bf.cfg.BrowserBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf.browser = browser
	bf.logger.Info("browser ready", "headless", bf.cfg.Headless)
	return browser, nil
}

// Load navigates to url in a fresh incognito context and returns the final
// URL and rendered HTML. Every wait is scoped with its own timeout and all of
// them share the navigation budget, so a page that never settles is still
// read instead of being dropped.
func (bf *BrowserFetcher) Load(ctx context.Context, url string) (*types.PageResult, error) {
	start := time.Now()

	browser, err := bf.launch()
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: false}
	}
	deadline := start.Add(bf.cfg.NavTimeout)

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: fmt.Errorf("incognito context: %w", err), Retryable: true}
	}
	defer incognito.Close()

	page, err := stealth.Page(incognito)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: fmt.Errorf("stealth page: %w", err), Retryable: true}
	}
	page = page.Context(ctx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      bf.profile.UserAgent,
		AcceptLanguage: bf.profile.AcceptLanguage,
	}); err != nil {
		bf.logger.Warn("failed to set user agent", "error", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             bf.profile.ViewportWidth,
		Height:            bf.profile.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		bf.logger.Debug("failed to set viewport", "error", err)
	}

	if err := page.Timeout(waitBudget(deadline, 0, bf.cfg.NavTimeout)).Navigate(url); err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: true}
	}

	// Load, then network quiet. Either may time out on ad-heavy pages; the
	// DOM is usually usable by then.
	if err := page.Timeout(waitBudget(deadline, readReserve, bf.cfg.NavTimeout)).WaitLoad(); err != nil {
		bf.logger.Debug("load event timeout, continuing", "url", url, "error", err)
	}
	if err := page.Timeout(waitBudget(deadline, readReserve, stableTimeout)).WaitStable(500 * time.Millisecond); err != nil {
		bf.logger.Debug("page stability timeout, continuing", "url", url, "error", err)
	}
	if ctx.Err() != nil {
		return nil, &types.FetchError{URL: url, Err: ctx.Err(), Retryable: false}
	}

	actions := automation.NewPageActions(page, bf.logger)
	if err := actions.WaitAny(automation.ContentSelectors, waitBudget(deadline, readReserve, bf.cfg.SelectorTimeout)); err != nil {
		bf.logger.Debug("content selector wait", "url", url, "error", err)
	}
	actions.TriggerLazyLoad(waitBudget(deadline, readReserve, bf.cfg.SettleDelay))
	actions.DismissConsent()

	page = page.Timeout(readReserve)
	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: true}
	}

	finalURL := url
	if info, err := page.Info(); err == nil && info != nil && info.URL != "" {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.logger.Debug("browser load complete",
		"url", url,
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	return &types.PageResult{
		FinalURL:  finalURL,
		HTML:      html,
		FetchedAt: time.Now(),
		Duration:  duration,
	}, nil
}

const (
	// readReserve is kept out of the wait budget for reading the DOM.
	readReserve   = 5 * time.Second
	stableTimeout = 10 * time.Second
)

// waitBudget caps a wait of d so that it ends reserve before deadline.
func waitBudget(deadline time.Time, reserve, d time.Duration) time.Duration {
	left := time.Until(deadline) - reserve
	if left <= 0 {
		return 0
	}
	return min(d, left)
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	if bf.browser == nil {
		return nil
	}
	err := bf.browser.Close()
	bf.browser = nil
	return err
}
