package types

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// TrendCandidate is a topic proposed by a trend provider.
type TrendCandidate struct {
	Topic         string         `json:"topic"`
	Source        string         `json:"source"`
	Score         float64        `json:"trend_score"`
	Category      string         `json:"category"`
	OriginalTitle string         `json:"original_title,omitempty"`
	URL           string         `json:"url,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
}

// PageResult is a rendered page returned by the resolver.
type PageResult struct {
	FinalURL  string
	HTML      string
	FetchedAt time.Time
	Duration  time.Duration

	doc *goquery.Document
}

// Document returns a parsed goquery document, lazily initializing it.
func (p *PageResult) Document() (*goquery.Document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return nil, err
	}
	p.doc = doc
	return doc, nil
}

// ExtractedArticle holds the fields parsed from a publisher page.
type ExtractedArticle struct {
	URL               string   `json:"url"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Body              string   `json:"body"`
	Author            string   `json:"author"`
	Date              string   `json:"date"`
	Images            []string `json:"images"`
	Videos            []string `json:"videos,omitempty"`
	Category          string   `json:"category"`
	InferredCategory  string   `json:"inferred_category"`
	Domain            string   `json:"domain"`
	ExtractedByReader bool     `json:"extracted_by_reader,omitempty"`
}

// MinBodyLen is the body length an extraction must exceed to be usable.
const MinBodyLen = 200

// Valid reports whether the extraction has a title and a long enough body.
func (e *ExtractedArticle) Valid() bool {
	return strings.TrimSpace(e.Title) != "" && len([]rune(e.Body)) > MinBodyLen
}

// ImageResult is the outcome of image acquisition.
type ImageResult struct {
	URL       string `json:"url"`
	Alt       string `json:"alt"`
	Credit    string `json:"credit"`
	Licence   string `json:"licence"`
	SourceURL string `json:"source_url"`
	Provider  string `json:"provider"`
}
