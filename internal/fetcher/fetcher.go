package fetcher

import (
	"context"
	"net/http"
	"time"
)

// Doer is the HTTP surface used by the trend, image, LLM and ping clients.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Request describes one outbound call.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
	// Timeout bounds this call; zero keeps the client default.
	Timeout time.Duration
	// NoRetry disables retries, e.g. for HEAD validation and pings.
	NoRetry bool
}

// NewRequest creates a GET request for url.
func NewRequest(url string) *Request {
	return &Request{Method: http.MethodGet, URL: url, Headers: make(http.Header)}
}

// WithHeader sets a header and returns the request.
func (r *Request) WithHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	r.Headers.Set(key, value)
	return r
}

// WithTimeout sets the per-call timeout and returns the request.
func (r *Request) WithTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	FinalURL   string
	Duration   time.Duration
	FetchedAt  time.Time
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
