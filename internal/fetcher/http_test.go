package fetcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig().Fetcher
	cfg.RetryDelay = time.Millisecond
	f, err := NewHTTPFetcher(&cfg, testLogger)
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	return f
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	resp, err := f.Do(context.Background(), NewRequest(srv.URL))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if string(resp.Body) != "ok" || calls.Load() != 2 {
		t.Errorf("body=%q calls=%d", resp.Body, calls.Load())
	}
}

func TestDoNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	req := NewRequest(srv.URL)
	req.NoRetry = true
	_, err := f.Do(context.Background(), req)

	var fe *types.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected FetchError 503, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", calls.Load())
	}
}

func TestDoDecodesBrotli(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write([]byte("olá mundo"))
		bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	resp, err := f.Do(context.Background(), NewRequest(srv.URL))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if string(resp.Body) != "olá mundo" {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestDoSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Client-ID abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Accept-Language") == "" || r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	var out struct {
		OK bool `json:"ok"`
	}
	req := NewRequest(srv.URL).WithHeader("Authorization", "Client-ID abc")
	if err := f.GetJSON(context.Background(), req, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if !out.OK {
		t.Error("expected ok=true")
	}
}

func TestGetJSONNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	var out map[string]any
	err := f.GetJSON(context.Background(), NewRequest(srv.URL), &out)
	var fe *types.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 FetchError, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 5 * time.Second},
		{"3", 3 * time.Second},
		{"600", 120 * time.Second},
		{"garbage", 5 * time.Second},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRandomDelayBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := RandomDelay(base)
		if d < 75*time.Millisecond || d > 125*time.Millisecond {
			t.Fatalf("delay %v out of ±25%% range", d)
		}
	}
}
