package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/radarbr/internal/fetcher"
	"github.com/IshaanNene/radarbr/internal/textutil"
	"github.com/IshaanNene/radarbr/internal/types"
)

// Provider names accepted in trends.providers.
const (
	GoogleNews   = "google_news"
	GoogleTrends = "google_trends"
	Reddit       = "reddit"
	NewsSites    = "news_sites"
	Twitter      = "twitter"
	YouTube      = "youtube"
	Seasonal     = "seasonal"
)

// Default provider endpoints.
const (
	GoogleNewsURL   = "https://news.google.com/rss?hl=pt-BR&gl=BR&ceid=BR:pt-BR"
	GoogleTrendsURL = "https://trends.google.com/trends/api/dailytrends?hl=pt-BR&tz=-180&geo=BR&ns=15"
	RedditURL       = "https://www.reddit.com/r/brasil/hot.json?limit=25"
)

// Provider returns trend candidates from one source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) ([]types.TrendCandidate, error)
}

func candidate(topic, source string, score float64) types.TrendCandidate {
	return types.TrendCandidate{
		Topic:    topic,
		Source:   source,
		Score:    max(0, min(score, 100)),
		Category: CategorizeTopic(topic),
	}
}

// GoogleNewsProvider reads the Google News top stories feed.
type GoogleNewsProvider struct {
	URL     string
	doer    fetcher.Doer
	timeout time.Duration
	parser  *gofeed.Parser
}

// NewGoogleNewsProvider creates a GoogleNewsProvider for the Brazilian edition.
func NewGoogleNewsProvider(doer fetcher.Doer, timeout time.Duration) *GoogleNewsProvider {
	return &GoogleNewsProvider{URL: GoogleNewsURL, doer: doer, timeout: timeout, parser: gofeed.NewParser()}
}

func (p *GoogleNewsProvider) Name() string { return GoogleNews }

func (p *GoogleNewsProvider) Fetch(ctx context.Context) ([]types.TrendCandidate, error) {
	body, err := fetcher.GetBody(ctx, p.doer, fetcher.NewRequest(p.URL).WithTimeout(p.timeout))
	if err != nil {
		return nil, err
	}
	feed, err := p.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var out []types.TrendCandidate
	for i, item := range feed.Items {
		if i >= 20 {
			break
		}
		headline := item.Title
		if j := strings.LastIndex(headline, " - "); j > 0 {
			headline = headline[:j]
		}
		headline = strings.TrimSpace(headline)
		if headline == "" {
			continue
		}
		c := candidate(ExtractTopic(headline), GoogleNews, 90-3*float64(i))
		c.OriginalTitle = headline
		c.URL = item.Link
		out = append(out, c)
	}
	return out, nil
}

// fallbackTopics stand in for Google Trends when its endpoint is unavailable.
var fallbackTopics = []string{
	"eleições 2026", "inflação Brasil", "economia brasileira", "política nacional",
	"tecnologia Brasil", "saúde pública", "meio ambiente", "esportes Brasil", "educação brasileira",
}

// GoogleTrendsProvider reads the Google Trends daily trends for Brazil and
// falls back to a curated list when the endpoint fails.
type GoogleTrendsProvider struct {
	URL     string
	doer    fetcher.Doer
	timeout time.Duration
}

// NewGoogleTrendsProvider creates a GoogleTrendsProvider.
func NewGoogleTrendsProvider(doer fetcher.Doer, timeout time.Duration) *GoogleTrendsProvider {
	return &GoogleTrendsProvider{URL: GoogleTrendsURL, doer: doer, timeout: timeout}
}

func (p *GoogleTrendsProvider) Name() string { return GoogleTrends }

type dailyTrends struct {
	Default struct {
		TrendingSearchesDays []struct {
			TrendingSearches []struct {
				Title struct {
					Query string `json:"query"`
				} `json:"title"`
				FormattedTraffic string `json:"formattedTraffic"`
			} `json:"trendingSearches"`
		} `json:"trendingSearchesDays"`
	} `json:"default"`
}

func (p *GoogleTrendsProvider) Fetch(ctx context.Context) ([]types.TrendCandidate, error) {
	out, err := p.fetchDaily(ctx)
	if err == nil && len(out) > 0 {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	fallback := make([]types.TrendCandidate, 0, len(fallbackTopics))
	for i, t := range fallbackTopics {
		c := candidate(t, GoogleTrends, 80-3*float64(i))
		c.Meta = map[string]any{"fallback": true}
		fallback = append(fallback, c)
	}
	return fallback, nil
}

func (p *GoogleTrendsProvider) fetchDaily(ctx context.Context) ([]types.TrendCandidate, error) {
	body, err := fetcher.GetBody(ctx, p.doer, fetcher.NewRequest(p.URL).WithTimeout(p.timeout))
	if err != nil {
		return nil, err
	}
	body = bytes.TrimPrefix(bytes.TrimSpace(body), []byte(")]}',"))

	var daily dailyTrends
	if err := json.Unmarshal(body, &daily); err != nil {
		return nil, fmt.Errorf("decode daily trends: %w", err)
	}
	days := daily.Default.TrendingSearchesDays
	if len(days) == 0 {
		return nil, types.ErrEmptyResponse
	}

	var out []types.TrendCandidate
	for i, s := range days[0].TrendingSearches {
		q := strings.TrimSpace(s.Title.Query)
		if q == "" {
			continue
		}
		c := candidate(q, GoogleTrends, 100-5*float64(i))
		if s.FormattedTraffic != "" {
			c.Meta = map[string]any{"traffic": s.FormattedTraffic}
		}
		out = append(out, c)
	}
	return out, nil
}

// RedditProvider reads the hot posts of r/brasil.
type RedditProvider struct {
	URL      string
	MinScore int
	doer     fetcher.Doer
	timeout  time.Duration
}

// NewRedditProvider creates a RedditProvider keeping posts above minScore.
func NewRedditProvider(doer fetcher.Doer, timeout time.Duration, minScore int) *RedditProvider {
	return &RedditProvider{URL: RedditURL, MinScore: minScore, doer: doer, timeout: timeout}
}

func (p *RedditProvider) Name() string { return Reddit }

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title     string `json:"title"`
				Score     int    `json:"score"`
				Permalink string `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

const redditTop = 15

func (p *RedditProvider) Fetch(ctx context.Context) ([]types.TrendCandidate, error) {
	var listing redditListing
	req := fetcher.NewRequest(p.URL).
		WithHeader("Accept", "application/json").
		WithTimeout(p.timeout)
	if err := fetcher.DecodeJSON(ctx, p.doer, req, &listing); err != nil {
		return nil, err
	}

	var out []types.TrendCandidate
	for _, child := range listing.Data.Children {
		if len(out) >= redditTop {
			break
		}
		post := child.Data
		if post.Score <= p.MinScore || strings.TrimSpace(post.Title) == "" {
			continue
		}
		c := candidate(ExtractTopic(post.Title), Reddit, float64(post.Score)/10)
		c.OriginalTitle = post.Title
		if post.Permalink != "" {
			c.URL = "https://www.reddit.com" + post.Permalink
		}
		c.Meta = map[string]any{"reddit_score": post.Score}
		out = append(out, c)
	}
	return out, nil
}

// NewsSitesProvider scrapes headlines from publisher home pages.
type NewsSitesProvider struct {
	Sites   []string
	doer    fetcher.Doer
	timeout time.Duration
}

// NewNewsSitesProvider creates a NewsSitesProvider over sites.
func NewNewsSitesProvider(doer fetcher.Doer, timeout time.Duration, sites []string) *NewsSitesProvider {
	return &NewsSitesProvider{Sites: sites, doer: doer, timeout: timeout}
}

func (p *NewsSitesProvider) Name() string { return NewsSites }

const headlinesPerSite = 10

func (p *NewsSitesProvider) Fetch(ctx context.Context) ([]types.TrendCandidate, error) {
	var (
		out     []types.TrendCandidate
		lastErr error
	)
	for _, site := range p.Sites {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		headlines, err := p.headlines(ctx, site)
		if err != nil {
			lastErr = err
			continue
		}
		for _, h := range headlines {
			c := candidate(ExtractTopic(h), NewsSites, 70)
			c.OriginalTitle = h
			c.URL = site
			c.Meta = map[string]any{"site": hostOf(site)}
			out = append(out, c)
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (p *NewsSitesProvider) headlines(ctx context.Context, site string) ([]string, error) {
	body, err := fetcher.GetBody(ctx, p.doer, fetcher.NewRequest(site).WithTimeout(p.timeout))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", site, err)
	}
	var out []string
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := textutil.NormalizeSpace(s.Text())
		if len([]rune(text)) > 10 {
			out = append(out, text)
		}
		return len(out) < headlinesPerSite
	})
	return out, nil
}

// staticProvider serves a fixed list for sources without a public API.
type staticProvider struct {
	name   string
	topics []string
	volume []int
	divide int
}

// NewTwitterProvider returns the static Twitter Brasil list, scored by tweet
// volume.
func NewTwitterProvider() Provider {
	return &staticProvider{
		name:   Twitter,
		topics: []string{"eleições 2026", "copa do mundo", "inflação", "ChatGPT", "crise hídrica"},
		volume: []int{50000, 30000, 25000, 20000, 15000},
		divide: 500,
	}
}

// NewYouTubeProvider returns the static YouTube Brasil list, scored by views.
func NewYouTubeProvider() Provider {
	return &staticProvider{
		name:   YouTube,
		topics: []string{"tecnologia Brasil", "política nacional", "economia brasileira", "esportes Brasil", "saúde pública"},
		volume: []int{1000000, 800000, 600000, 500000, 400000},
		divide: 10000,
	}
}

func (p *staticProvider) Name() string { return p.name }

func (p *staticProvider) Fetch(context.Context) ([]types.TrendCandidate, error) {
	out := make([]types.TrendCandidate, len(p.topics))
	for i, t := range p.topics {
		out[i] = candidate(t, p.name, float64(p.volume[i]/p.divide))
		out[i].Meta = map[string]any{"volume": p.volume[i]}
	}
	return out, nil
}

// SeasonalProvider offers the recurring topics of the current month.
type SeasonalProvider struct {
	Now func() time.Time
}

func (p *SeasonalProvider) Name() string { return Seasonal }

func (p *SeasonalProvider) Fetch(context.Context) ([]types.TrendCandidate, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	topics := SeasonalTopics(int(now().Month()))
	out := make([]types.TrendCandidate, len(topics))
	for i, t := range topics {
		out[i] = candidate(t, Seasonal, 60)
	}
	return out, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Hostname()
}
