package extractor

import (
	"net/url"
	"strings"
)

// categoryHints maps URL path fragments to category names. The first match wins.
var categoryHints = []struct {
	fragment string
	category string
}{
	{"/politica", "política"},
	{"/poder", "política"},
	{"/economia", "economia"},
	{"/mercados", "economia"},
	{"/mundo", "mundo"},
	{"/internacional", "mundo"},
	{"/esportes", "esportes"},
	{"/esporte", "esportes"},
	{"/tecnologia", "tecnologia"},
	{"/ciencia", "ciência"},
	{"/saude", "saúde"},
	{"/educacao", "educação"},
	{"/brasil", "brasil"},
}

// InferCategory guesses a category from the URL path, or returns "".
func InferCategory(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.ToLower(u.Path)
	for _, h := range categoryHints {
		if strings.Contains(path, h.fragment) {
			return h.category
		}
	}
	return ""
}
