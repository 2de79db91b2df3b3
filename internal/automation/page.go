// Package automation holds the page interactions used while rendering a
// publisher page: waiting for content, lazy-load scrolling and consent banners.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// ContentSelectors are the containers that signal an article has rendered.
var ContentSelectors = []string{
	"article", "main", "[itemprop=articleBody]", ".post-content",
	".entry-content", ".article-body", ".news-content",
}

// ConsentSelectors are cookie-banner buttons clicked to reveal the page.
var ConsentSelectors = []string{
	`button[aria-label="Aceitar tudo"]`,
	`button[aria-label="Accept all"]`,
	`#onetrust-accept-btn-handler`,
	`.fc-cta-consent`,
	`button[mode="primary"]`,
}

// consentText matches consent buttons by their label.
const consentText = `^\s*(Aceitar|Concordo|Accept|Accept all|I agree|Aceito)\b`

const (
	// consentTimeout bounds each consent lookup and click; a hidden button
	// would otherwise block until the page context ends.
	consentTimeout = 2 * time.Second
	scrollTimeout  = 3 * time.Second
)

// PageActions wraps a Rod page with the interactions the resolver needs.
type PageActions struct {
	page   *rod.Page
	logger *slog.Logger
}

// NewPageActions wraps a Rod page.
func NewPageActions(page *rod.Page, logger *slog.Logger) *PageActions {
	return &PageActions{
		page:   page,
		logger: logger.With("component", "page_actions"),
	}
}

// WaitAny waits up to timeout for any of the selectors to appear.
func (pa *PageActions) WaitAny(selectors []string, timeout time.Duration) error {
	_, err := pa.page.Timeout(timeout).Element(strings.Join(selectors, ", "))
	if err != nil {
		return fmt.Errorf("none of %d selectors appeared: %w", len(selectors), err)
	}
	return nil
}

// ScrollToBottom scrolls to the bottom of the page.
func (pa *PageActions) ScrollToBottom() error {
	_, err := pa.page.Timeout(scrollTimeout).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

// ScrollToTop scrolls back to the top of the page.
func (pa *PageActions) ScrollToTop() error {
	_, err := pa.page.Timeout(scrollTimeout).Eval(`() => window.scrollTo(0, 0)`)
	return err
}

// TriggerLazyLoad scrolls down, waits for lazy content, then scrolls back up.
func (pa *PageActions) TriggerLazyLoad(settle time.Duration) {
	if err := pa.ScrollToBottom(); err != nil {
		pa.logger.Debug("scroll to bottom failed", "error", err)
		return
	}
	if err := Settle(pa.page.GetContext(), settle); err != nil {
		pa.logger.Debug("lazy load settle interrupted", "error", err)
		return
	}
	if err := pa.ScrollToTop(); err != nil {
		pa.logger.Debug("scroll to top failed", "error", err)
	}
}

// Click clicks an element matched by the CSS selector.
func (pa *PageActions) Click(selector string, timeout time.Duration) error {
	el, err := pa.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}
	return el.Timeout(timeout).Click(proto.InputMouseButtonLeft, 1)
}

// Settle waits for d or until ctx is done, whichever comes first.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DismissConsent clicks the first consent button found. It reports whether a
// button was clicked; a page without a banner is not an error.
func (pa *PageActions) DismissConsent() bool {
	page := pa.page.Timeout(consentTimeout)
	defer page.CancelTimeout()
	for _, sel := range ConsentSelectors {
		if has, el, _ := page.Has(sel); has && pa.click(el) {
			pa.logger.Debug("consent dismissed", "selector", sel)
			return true
		}
	}
	if has, el, _ := page.HasR("button", consentText); has && pa.click(el) {
		pa.logger.Debug("consent dismissed by label")
		return true
	}
	return false
}

func (pa *PageActions) click(el *rod.Element) bool {
	err := el.Timeout(consentTimeout).Click(proto.InputMouseButtonLeft, 1)
	if err != nil {
		pa.logger.Debug("consent click failed", "error", err)
	}
	return err == nil
}
