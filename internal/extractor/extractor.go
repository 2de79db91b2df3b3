// Package extractor parses publisher HTML into an ExtractedArticle.
package extractor

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/IshaanNene/radarbr/internal/textutil"
	"github.com/IshaanNene/radarbr/internal/types"
)

const (
	maxImages         = 5
	maxVideos         = 5
	minTitleLen       = 10
	minDescriptionLen = 20
	minParagraphLen   = 20
)

var (
	titleSelectors = []string{
		"h1", ".titulo", ".title", ".headline", ".noticia-titulo", ".materia-titulo",
		".artigo-titulo", ".post-title", ".entry-title", `[data-testid="headline"]`,
		".content-head__title",
	}
	descriptionSelectors = []string{
		".subtitulo", ".resumo", ".lead", ".summary",
		".noticia-resumo", ".materia-resumo", ".artigo-resumo",
		".post-excerpt", ".entry-summary", ".content-head__subtitle",
	}
	bodySelectors = []string{
		".conteudo", ".noticia-conteudo", ".materia-conteudo", ".artigo-conteudo",
		"article", ".post-content", ".entry-content", ".article-body", ".story-body", ".news-content",
		`[data-testid="article-body"]`, `[itemprop="articleBody"]`, "main",
		".single-content", ".c-entry-content", ".article__content", ".article-content",
	}
	noiseSelector    = "script, style, noscript, nav, aside, advertisement, .ad, .ads, .publicidade"
	blockSelector    = "p, h2, h3, h4, blockquote"
	authorSelectors  = []string{".autor", ".author", ".byline", ".escritor", ".writer", `[data-testid="author"]`, ".content-head__author"}
	dateSelectors    = []string{".data", ".date", ".published", ".timestamp", "time", `[data-testid="timestamp"]`, ".content-head__date"}
	breadcrumbLinks  = []string{".breadcrumb a", ".breadcrumbs a", "nav.breadcrumb a", "ol.breadcrumb li a", "ul.breadcrumb li a"}
	tagLinkSelectors = []string{".tags a", ".label a", ".categoria a", ".category a"}
)

// Extractor parses publisher pages.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor.
func New(logger *slog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With("component", "extractor"),
	}
}

// Extract parses a rendered page. The page itself is not modified.
func (e *Extractor) Extract(page *types.PageResult) (*types.ExtractedArticle, error) {
	if page == nil {
		return nil, fmt.Errorf("extract: nil page: %w", types.ErrExtractionInsufficient)
	}
	return e.ExtractHTML(page.FinalURL, page.HTML)
}

// ExtractHTML parses rawHTML fetched from pageURL. It returns the partial
// article together with ErrExtractionInsufficient when the title is missing
// or the body is too short.
func (e *Extractor) ExtractHTML(pageURL, rawHTML string) (*types.ExtractedArticle, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", pageURL, types.ErrInvalidURL)
	}
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract %s: parse html: %w", pageURL, err)
	}
	doc := goquery.NewDocumentFromNode(root)
	ld := extractLinkedData(doc)

	ex := &types.ExtractedArticle{
		URL:              pageURL,
		Domain:           strings.ToLower(base.Hostname()),
		InferredCategory: InferCategory(pageURL),
	}

	ex.Title = metaContent(root, metaProperty("og:title"), metaName("title"))
	if ex.Title == "" {
		ex.Title = firstText(doc, titleSelectors, minTitleLen)
	}
	if ex.Title == "" {
		ex.Title = ld.Headline
	}

	ex.Description = metaContent(root, metaProperty("og:description"), metaName("description"))
	if ex.Description == "" {
		ex.Description = firstText(doc, descriptionSelectors, minDescriptionLen)
	}

	ex.Category = metaContent(root, metaProperty("article:section"), metaName("section"))
	if ex.Category == "" {
		ex.Category = breadcrumbCategory(doc)
	}
	if ex.Category == "" {
		ex.Category = ld.Section
	}

	ex.Author = firstText(doc, authorSelectors, 0)
	if ex.Author == "" {
		ex.Author = ld.Author
	}
	if ex.Author == "" {
		ex.Author = metaContent(root, metaName("author"), metaProperty("article:author"))
	}

	date := metaContent(root, metaProperty("article:published_time"))
	if date == "" {
		date = timeAttr(doc)
	}
	if date == "" {
		date = firstText(doc, dateSelectors, 0)
	}
	if date == "" {
		date = ld.DatePublished
	}
	ex.Date = NormalizeDate(date)

	ex.Images = collectImages(doc, base, metaContent(root, metaProperty("og:image")), ld.Image)

	doc.Find(noiseSelector).Remove()
	ex.Videos = collectVideos(doc, base,
		metaContent(root, metaProperty("og:video:secure_url"), metaProperty("og:video:url"), metaProperty("og:video")),
		metaContent(root, metaName("twitter:player")),
	)
	ex.Body = bodyText(doc)
	if utf8.RuneCountInString(ex.Body) <= types.MinBodyLen {
		if text := readerText(rawHTML, base); utf8.RuneCountInString(text) > utf8.RuneCountInString(ex.Body) {
			ex.Body = text
			ex.ExtractedByReader = true
		}
	}

	e.logger.Debug("extracted",
		"url", pageURL,
		"title_len", utf8.RuneCountInString(ex.Title),
		"body_len", utf8.RuneCountInString(ex.Body),
		"category", ex.Category,
		"inferred", ex.InferredCategory,
		"reader", ex.ExtractedByReader,
	)

	if !ex.Valid() {
		return ex, fmt.Errorf("extract %s: title %d chars, body %d chars: %w",
			pageURL, utf8.RuneCountInString(ex.Title), utf8.RuneCountInString(ex.Body), types.ErrExtractionInsufficient)
	}
	return ex, nil
}

// WordCount returns the number of words in the extracted body.
func WordCount(ex *types.ExtractedArticle) int {
	if ex == nil {
		return 0
	}
	return len(strings.Fields(ex.Body))
}

func firstText(doc *goquery.Document, selectors []string, minLen int) string {
	for _, sel := range selectors {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := textutil.NormalizeSpace(s.Text())
			if utf8.RuneCountInString(text) > minLen {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func breadcrumbCategory(doc *goquery.Document) string {
	for _, sel := range breadcrumbLinks {
		links := doc.Find(sel)
		if links.Length() == 0 {
			continue
		}
		if text := textutil.NormalizeSpace(links.Last().Text()); utf8.RuneCountInString(text) > 2 {
			return text
		}
	}
	return firstText(doc, tagLinkSelectors, 0)
}

func timeAttr(doc *goquery.Document) string {
	if v, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// bodyText picks the first body container with enough text, then falls back
// to every long paragraph on the page.
func bodyText(doc *goquery.Document) string {
	for _, sel := range bodySelectors {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := blockText(s)
			if utf8.RuneCountInString(text) > types.MinBodyLen {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := textutil.NormalizeSpace(s.Text()); utf8.RuneCountInString(text) > minParagraphLen {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

// blockText joins the block-level children of s with blank lines, or returns
// the collapsed text when s has no blocks.
func blockText(s *goquery.Selection) string {
	var parts []string
	s.Find(blockSelector).Each(func(_ int, b *goquery.Selection) {
		if b.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		if text := textutil.NormalizeSpace(b.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return textutil.NormalizeSpace(s.Text())
	}
	return strings.Join(parts, "\n\n")
}

func collectImages(doc *goquery.Document, base *url.URL, extra ...string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(raw string) {
		abs := absoluteURL(base, raw)
		if abs == "" || seen[abs] || len(out) >= maxImages {
			return
		}
		seen[abs] = true
		out = append(out, abs)
	}
	for _, e := range extra {
		add(e)
	}
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" || strings.HasPrefix(src, "data:") {
			src, _ = s.Attr("data-src")
		}
		add(src)
	})
	return out
}

// collectVideos returns YouTube links embedded or linked in the page. Sidebars
// are already stripped, so related-video widgets do not count.
func collectVideos(doc *goquery.Document, base *url.URL, extra ...string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(raw string) {
		abs := absoluteURL(base, raw)
		if abs == "" || seen[abs] || len(out) >= maxVideos || !strings.Contains(strings.ToLower(abs), "youtu") {
			return
		}
		seen[abs] = true
		out = append(out, abs)
	}
	for _, e := range extra {
		add(e)
	}
	doc.Find("iframe, embed").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" {
			src, _ = s.Attr("data-src")
		}
		add(src)
	})
	doc.Find(`a[href*="youtu"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		add(href)
	})
	return out
}

func absoluteURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

func readerText(rawHTML string, base *url.URL) string {
	article, err := readability.FromReader(strings.NewReader(rawHTML), base)
	if err != nil {
		return ""
	}
	var parts []string
	for _, line := range strings.Split(article.TextContent, "\n") {
		if line = textutil.NormalizeSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "\n\n")
}
