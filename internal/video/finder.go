package video

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"net/url"
	"strings"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/fetcher"
	"github.com/IshaanNene/radarbr/internal/types"
)

// DefaultSearchEndpoint is the YouTube Data API v3 search endpoint.
const DefaultSearchEndpoint = "https://www.googleapis.com/youtube/v3/search"

// Request is the material a video is looked up in.
type Request struct {
	Topic   string
	Article *types.ExtractedArticle
	Body    string // rewritten HTML
}

// Finder picks the video for an article: first one the publisher links,
// then one named in the rewrite, then an optional keyed search.
type Finder struct {
	cfg      config.VideoConfig
	doer     fetcher.Doer
	endpoint string
	logger   *slog.Logger
}

// New creates a Finder. doer is only used for searches.
func New(cfg config.VideoConfig, doer fetcher.Doer, logger *slog.Logger) *Finder {
	return &Finder{
		cfg:      cfg,
		doer:     doer,
		endpoint: DefaultSearchEndpoint,
		logger:   logger.With("component", "video"),
	}
}

// WithEndpoint overrides the search endpoint.
func (f *Finder) WithEndpoint(endpoint string) *Finder {
	f.endpoint = endpoint
	return f
}

// Find returns the video for req, or nil when the article has none. An error
// is returned only by a failed search.
func (f *Finder) Find(ctx context.Context, req Request) (*Video, error) {
	if ex := req.Article; ex != nil {
		if id := ExtractID(ex.URL); id != "" {
			return f.found(Video{ID: id, Title: titleFromSource, Source: SourcePublisherURL}), nil
		}
		for _, link := range ex.Videos {
			if id := ExtractID(link); id != "" {
				return f.found(Video{ID: id, Title: titleFromSource, Source: SourcePublisherPage}), nil
			}
		}
		if id := ExtractID(ex.Title + " " + ex.Description + " " + ex.Body); id != "" {
			return f.found(Video{ID: id, Title: titleFromSource, Source: SourcePublisherText}), nil
		}
	}
	if id := ExtractID(req.Body); id != "" {
		return f.found(Video{ID: id, Title: titleRelated, Source: SourceRewrite}), nil
	}

	if !f.cfg.Search || f.cfg.YouTubeKey == "" || !f.mentioned(req) {
		return nil, nil
	}
	v, err := f.search(ctx, req.Topic)
	if err != nil || v == nil {
		return nil, err
	}
	return f.found(*v), nil
}

func (f *Finder) found(v Video) *Video {
	f.logger.Debug("video found", "id", v.ID, "source", v.Source)
	return &v
}

// mentioned reports whether the source material talks about a video.
func (f *Finder) mentioned(req Request) bool {
	if ex := req.Article; ex != nil && HasMention(ex.Title+" "+ex.Description+" "+ex.Body) {
		return true
	}
	return HasMention(req.Topic)
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

func (f *Finder) search(ctx context.Context, topic string) (*Video, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("q", topic+" brasil")
	q.Set("type", "video")
	q.Set("maxResults", "1")
	q.Set("order", "relevance")
	q.Set("relevanceLanguage", "pt")
	q.Set("regionCode", "BR")
	q.Set("safeSearch", "strict")
	q.Set("key", f.cfg.YouTubeKey)
	req := fetcher.NewRequest(f.endpoint+"?"+q.Encode()).
		WithHeader("Accept", "application/json").
		WithTimeout(f.cfg.Timeout)

	var resp searchResponse
	if err := fetcher.DecodeJSON(ctx, f.doer, req, &resp); err != nil {
		pe := &types.ProviderError{Provider: SourceSearch, Err: err}
		var fe *types.FetchError
		if errors.As(err, &fe) {
			pe.StatusCode = fe.StatusCode
			pe.Retryable = fe.Retryable
		}
		return nil, pe
	}
	for _, item := range resp.Items {
		if len(item.ID.VideoID) == 11 {
			t := strings.TrimSpace(html.UnescapeString(item.Snippet.Title))
			if t == "" {
				t = titleRelated
			}
			return &Video{ID: item.ID.VideoID, Title: t, Source: SourceSearch}, nil
		}
	}
	return nil, nil
}
