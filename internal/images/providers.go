package images

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/IshaanNene/radarbr/internal/fetcher"
	"github.com/IshaanNene/radarbr/internal/types"
)

// Provider names as recorded in ImageResult.Provider.
const (
	ProviderCache       = "cache"
	ProviderPublisher   = "publisher"
	ProviderUnsplash    = "unsplash"
	ProviderPexels      = "pexels"
	ProviderPixabay     = "pixabay"
	ProviderCategory    = "category_fallback"
	ProviderPlaceholder = "placeholder"
)

// Endpoints are the stock photo search APIs.
type Endpoints struct {
	Unsplash string
	Pexels   string
	Pixabay  string
}

// DefaultEndpoints are the public API endpoints.
var DefaultEndpoints = Endpoints{
	Unsplash: "https://api.unsplash.com/search/photos",
	Pexels:   "https://api.pexels.com/v1/search",
	Pixabay:  "https://pixabay.com/api/",
}

// stockProvider searches one stock photo API for query.
type stockProvider struct {
	name   string
	search func(ctx context.Context, query string) (*types.ImageResult, error)
}

type unsplashResponse struct {
	Results []struct {
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Regular string `json:"regular"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
	} `json:"results"`
}

func (a *Acquirer) searchUnsplash(ctx context.Context, query string) (*types.ImageResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", "1")
	q.Set("orientation", "landscape")
	q.Set("content_filter", "high")
	req := fetcher.NewRequest(a.endpoints.Unsplash+"?"+q.Encode()).
		WithHeader("Authorization", "Client-ID "+a.cfg.UnsplashKey).
		WithHeader("Accept-Version", "v1")
	var resp unsplashResponse
	if err := a.getJSON(ctx, ProviderUnsplash, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 || resp.Results[0].URLs.Regular == "" {
		return nil, nil
	}
	photo := resp.Results[0]
	return &types.ImageResult{
		URL:       photo.URLs.Regular,
		Alt:       photo.AltDescription,
		Credit:    credit(photo.User.Name, "Unsplash"),
		Licence:   "Unsplash License",
		SourceURL: photo.Links.HTML,
		Provider:  ProviderUnsplash,
	}, nil
}

type pexelsResponse struct {
	Photos []struct {
		URL          string `json:"url"`
		Alt          string `json:"alt"`
		Photographer string `json:"photographer"`
		Src          struct {
			Large string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

func (a *Acquirer) searchPexels(ctx context.Context, query string) (*types.ImageResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", "1")
	q.Set("orientation", "landscape")
	req := fetcher.NewRequest(a.endpoints.Pexels+"?"+q.Encode()).
		WithHeader("Authorization", a.cfg.PexelsKey)
	var resp pexelsResponse
	if err := a.getJSON(ctx, ProviderPexels, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Photos) == 0 || resp.Photos[0].Src.Large == "" {
		return nil, nil
	}
	photo := resp.Photos[0]
	return &types.ImageResult{
		URL:       photo.Src.Large,
		Alt:       photo.Alt,
		Credit:    credit(photo.Photographer, "Pexels"),
		Licence:   "Pexels License",
		SourceURL: photo.URL,
		Provider:  ProviderPexels,
	}, nil
}

type pixabayResponse struct {
	Hits []struct {
		PageURL      string `json:"pageURL"`
		Tags         string `json:"tags"`
		WebformatURL string `json:"webformatURL"`
		User         string `json:"user"`
	} `json:"hits"`
}

func (a *Acquirer) searchPixabay(ctx context.Context, query string) (*types.ImageResult, error) {
	q := url.Values{}
	q.Set("key", a.cfg.PixabayKey)
	q.Set("q", query)
	q.Set("per_page", "3")
	q.Set("image_type", "photo")
	q.Set("orientation", "horizontal")
	q.Set("min_width", "800")
	q.Set("min_height", "600")
	q.Set("lang", "pt")
	req := fetcher.NewRequest(a.endpoints.Pixabay + "?" + q.Encode())
	var resp pixabayResponse
	if err := a.getJSON(ctx, ProviderPixabay, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Hits) == 0 || resp.Hits[0].WebformatURL == "" {
		return nil, nil
	}
	hit := resp.Hits[0]
	return &types.ImageResult{
		URL:       hit.WebformatURL,
		Alt:       hit.Tags,
		Credit:    credit(hit.User, "Pixabay"),
		Licence:   "Pixabay License",
		SourceURL: hit.PageURL,
		Provider:  ProviderPixabay,
	}, nil
}

func (a *Acquirer) getJSON(ctx context.Context, provider string, req *fetcher.Request, out any) error {
	req.WithHeader("User-Agent", userAgent).
		WithHeader("Accept", "application/json").
		WithTimeout(a.cfg.Timeout)
	if err := fetcher.DecodeJSON(ctx, a.doer, req, out); err != nil {
		pe := &types.ProviderError{Provider: provider, Err: err}
		var fe *types.FetchError
		if errors.As(err, &fe) {
			pe.StatusCode = fe.StatusCode
			pe.Retryable = fe.Retryable
		}
		return pe
	}
	return nil
}

func credit(name, provider string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return provider
	}
	return "Foto: " + name + " (" + provider + ")"
}

// categoryPhotos are generic stock photos per category slug.
var categoryPhotos = map[string]string{
	"esportes": "photo-1517649763962-0c623066013b",
	"economia": "photo-1556740772-1a741367b93e",
	"politica": "photo-1529101091764-c3526daf38fe",
	"mundo":    "photo-1460899960812-f6ee1ecaf117",
	"brasil":   "photo-1507003211169-0a1dd7228f2d",
}

const defaultCategoryPhoto = "photo-1477959858617-67f85cf4f1df"

// CategoryFallback returns the illustrative stock photo for category.
func CategoryFallback(categorySlug, alt string) types.ImageResult {
	id, ok := categoryPhotos[categorySlug]
	if !ok {
		id = defaultCategoryPhoto
	}
	u := "https://images.unsplash.com/" + id + "?auto=format&fit=crop&w=1200&q=80"
	return types.ImageResult{
		URL:       u,
		Alt:       alt,
		Credit:    "Unsplash (ilustrativa)",
		Licence:   "gratuita",
		SourceURL: "https://unsplash.com/photos/" + strings.TrimPrefix(id, "photo-"),
		Provider:  ProviderCategory,
	}
}
