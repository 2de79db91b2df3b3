package images

import (
	"context"
	"net/http"
	"strings"

	"github.com/IshaanNene/radarbr/internal/fetcher"
)

const userAgent = "RadarBR/1.0 (News Aggregator)"

// MediaType classifies a Content-Type.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaAudio    MediaType = "audio"
	MediaDocument MediaType = "document"
	MediaOther    MediaType = "other"
)

// ClassifyMedia maps a Content-Type header to a MediaType.
func ClassifyMedia(contentType string) MediaType {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return MediaImage
	case strings.HasPrefix(ct, "video/"):
		return MediaVideo
	case strings.HasPrefix(ct, "audio/"):
		return MediaAudio
	case strings.HasPrefix(ct, "text/"),
		strings.HasPrefix(ct, "application/pdf"),
		strings.HasPrefix(ct, "application/json"),
		strings.HasPrefix(ct, "application/msword"),
		strings.HasPrefix(ct, "application/vnd."):
		return MediaDocument
	default:
		return MediaOther
	}
}

// Validate sends a HEAD request to rawURL. The image is usable when the
// server answers 200 and does not declare a non-image content type.
func (a *Acquirer) Validate(ctx context.Context, rawURL string) bool {
	if rawURL == "" {
		return false
	}
	req := fetcher.NewRequest(rawURL).
		WithHeader("User-Agent", userAgent).
		WithHeader("Accept", "image/*").
		WithTimeout(a.cfg.ValidateTimeout)
	req.Method = http.MethodHead
	req.NoRetry = true

	resp, err := a.doer.Do(ctx, req)
	if err != nil {
		a.logger.Debug("image validation failed", "url", rawURL, "error", err)
		return false
	}
	if resp.StatusCode != http.StatusOK {
		a.logger.Debug("image validation failed", "url", rawURL, "status", resp.StatusCode)
		return false
	}
	switch mt := ClassifyMedia(resp.Headers.Get("Content-Type")); mt {
	case MediaImage, MediaOther:
		return true
	default:
		a.logger.Debug("image validation failed", "url", rawURL, "media_type", mt)
		return false
	}
}
