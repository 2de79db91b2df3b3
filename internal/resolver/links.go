package resolver

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// googleHosts are registrable domains whose links never count as publisher
// links.
var googleHosts = []string{
	"google.com", "google.com.br", "googleusercontent.com", "gstatic.com",
	"googleapis.com", "googlesyndication.com", "doubleclick.net",
	"youtube.com", "youtu.be", "blogger.com", "g.co",
}

// IsGoogleHost reports whether host belongs to Google.
func IsGoogleHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, g := range googleHosts {
		if host == g || strings.HasSuffix(host, "."+g) {
			return true
		}
	}
	return false
}

// IsGoogleNews reports whether rawURL still points at Google News.
func IsGoogleNews(rawURL string) bool {
	return strings.Contains(strings.ToLower(rawURL), "news.google.com")
}

// unwrapGoogle returns the target of google.com/url?url= or ?q= redirects,
// or rawURL unchanged.
func unwrapGoogle(u *url.URL) *url.URL {
	if !IsGoogleHost(u.Hostname()) || u.Path != "/url" {
		return u
	}
	q := u.Query()
	for _, key := range []string{"url", "q"} {
		if target := q.Get(key); target != "" {
			if t, err := url.Parse(target); err == nil && t.IsAbs() {
				return t
			}
		}
	}
	return u
}

// ExternalLinks returns the outbound non-Google http(s) links of a page in
// document order, resolved against base and deduplicated by canonical form.
func ExternalLinks(base string, doc *goquery.Document) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		u := unwrapGoogle(baseURL.ResolveReference(ref))
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		if IsGoogleHost(u.Hostname()) {
			return
		}
		key := CanonicalizeURL(u.String())
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, u.String())
	})
	return out
}

// CanonicalizeURL normalizes a URL for deduplication:
// - lowercases scheme and host
// - removes fragment, default ports and utm_* parameters
// - sorts query parameters
// - removes trailing slash (except root)
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			if strings.HasPrefix(strings.ToLower(k), "utm_") {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
