// Package dashboard serves the operator status page. The page polls the API
// for counters and recent runs.
package dashboard

import (
	"bytes"
	"log/slog"
	"net/http"
)

// Page is the data rendered into the status page.
type Page struct {
	Title   string
	Version string
	SiteURL string
	// Refresh is the poll interval in milliseconds.
	Refresh int
}

// Dashboard renders the status page.
type Dashboard struct {
	page   []byte
	logger *slog.Logger
}

// New renders the page once; every request serves the same bytes.
func New(p Page, logger *slog.Logger) (*Dashboard, error) {
	if p.Title == "" {
		p.Title = "RadarBR"
	}
	if p.Refresh <= 0 {
		p.Refresh = 5000
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		return nil, err
	}
	return &Dashboard{
		page:   buf.Bytes(),
		logger: logger.With("component", "dashboard"),
	}, nil
}

func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(d.page); err != nil {
		d.logger.Debug("write dashboard", "error", err)
	}
}
