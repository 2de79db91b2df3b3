package extractor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// metaContent returns the content of the first non-empty meta tag matched by
// the XPath expressions, in order.
func metaContent(root *html.Node, exprs ...string) string {
	for _, expr := range exprs {
		nodes, err := htmlquery.QueryAll(root, expr)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			if v := strings.TrimSpace(htmlquery.SelectAttr(n, "content")); v != "" {
				return v
			}
		}
	}
	return ""
}

func metaProperty(name string) string { return `//meta[@property="` + name + `"]` }
func metaName(name string) string     { return `//meta[@name="` + name + `"]` }

// linkedData holds the article fields found in JSON-LD blocks.
type linkedData struct {
	Headline      string
	Author        string
	DatePublished string
	Section       string
	Image         string
}

var articleTypes = map[string]bool{
	"NewsArticle":          true,
	"Article":              true,
	"ReportageNewsArticle": true,
	"AnalysisNewsArticle":  true,
	"OpinionNewsArticle":   true,
	"BlogPosting":          true,
}

// extractLinkedData parses <script type="application/ld+json"> blocks and
// returns the first article-typed object. Objects may appear alone, in an
// array or inside @graph.
func extractLinkedData(doc *goquery.Document) linkedData {
	var found linkedData
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return true
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return true
		}
		for _, obj := range flattenLD(v) {
			if !isArticleType(obj["@type"]) {
				continue
			}
			found = linkedData{
				Headline:      ldString(obj["headline"]),
				Author:        ldName(obj["author"]),
				DatePublished: ldString(obj["datePublished"]),
				Section:       ldString(obj["articleSection"]),
				Image:         ldURL(obj["image"]),
			}
			return false
		}
		return true
	})
	return found
}

func flattenLD(v any) []map[string]any {
	var out []map[string]any
	switch t := v.(type) {
	case map[string]any:
		out = append(out, t)
		if g, ok := t["@graph"]; ok {
			out = append(out, flattenLD(g)...)
		}
	case []any:
		for _, e := range t {
			out = append(out, flattenLD(e)...)
		}
	}
	return out
}

func isArticleType(v any) bool {
	switch t := v.(type) {
	case string:
		return articleTypes[t]
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && articleTypes[s] {
				return true
			}
		}
	}
	return false
}

func ldString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		if len(t) > 0 {
			return ldString(t[0])
		}
	}
	return ""
}

func ldName(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return ldString(t["name"])
	case []any:
		var names []string
		for _, e := range t {
			if n := ldName(e); n != "" {
				names = append(names, n)
			}
		}
		return strings.Join(names, ", ")
	}
	return ""
}

func ldURL(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return ldString(t["url"])
	case []any:
		if len(t) > 0 {
			return ldURL(t[0])
		}
	}
	return ""
}
