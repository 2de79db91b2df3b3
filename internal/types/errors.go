package types

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the per-topic skip reasons.
var (
	ErrNoTrends               = errors.New("no trend candidates")
	ErrResolveExhausted       = errors.New("no publisher URL within attempt budget")
	ErrExtractionInsufficient = errors.New("extracted article is insufficient")
	ErrRewriteRejected        = errors.New("rewrite rejected")
	ErrPersistCollision       = errors.New("slug or source URL already present")
	ErrDuplicate              = errors.New("similar article already published today")
	ErrNotFound               = errors.New("not found")
	ErrPingFailed             = errors.New("search engine ping failed")
	ErrEmptyResponse          = errors.New("empty response body")
	ErrInvalidURL             = errors.New("invalid URL")
)

// Skip reasons reported in run summaries.
const (
	ReasonResolveExhausted       = "resolve_exhausted"
	ReasonExtractionInsufficient = "extraction_insufficient"
	ReasonRewriteRejected        = "rewrite_rejected"
	ReasonDuplicate              = "duplicate"
	ReasonPersistCollision       = "persist_collision"
	ReasonCanceled               = "canceled"
	ReasonError                  = "error"
)

// ConfigError reports an unusable configuration. It is fatal at startup.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Msg)
}

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ProviderError wraps a failure at an external service (trends, images, LLM).
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StorageError wraps errors returned by a store backend.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s %s): %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in a pipeline stage.
type PipelineError struct {
	Stage string
	Topic string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q for topic %q: %v", e.Stage, e.Topic, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// SkipReason maps an error chain to the reason key used in run summaries.
func SkipReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrResolveExhausted):
		return ReasonResolveExhausted
	case errors.Is(err, ErrExtractionInsufficient):
		return ReasonExtractionInsufficient
	case errors.Is(err, ErrRewriteRejected):
		return ReasonRewriteRejected
	case errors.Is(err, ErrDuplicate):
		return ReasonDuplicate
	case errors.Is(err, ErrPersistCollision):
		return ReasonPersistCollision
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	}
	return ReasonError
}
