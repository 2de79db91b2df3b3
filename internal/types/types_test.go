package types

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestTrendingScore(t *testing.T) {
	tests := []struct {
		name                  string
		views, clicks, shares int64
		age                   float64
		want                  float64
	}{
		{"fresh empty", 0, 0, 0, 0, 3.0},
		{"counters only", 10, 5, 2, 40, 10 + 10 + 6},
		{"mixed", 1, 1, 1, 10, 6 + 2.0},
		{"age boundary", 0, 0, 0, 30, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrendingScore(tt.views, tt.clicks, tt.shares, tt.age)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("TrendingScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAgeDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := AgeDays(now.Add(-49*time.Hour), now); got != 2 {
		t.Errorf("AgeDays = %v, want 2", got)
	}
	if got := AgeDays(now.Add(time.Hour), now); got != 0 {
		t.Errorf("future creation should be 0, got %v", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := Truncate("eleições", 5); got != "eleiç" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestSkipReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&PipelineError{Stage: "resolve", Err: ErrResolveExhausted}, ReasonResolveExhausted},
		{fmt.Errorf("wrap: %w", ErrExtractionInsufficient), ReasonExtractionInsufficient},
		{&PipelineError{Stage: "rewrite", Err: fmt.Errorf("x: %w", ErrRewriteRejected)}, ReasonRewriteRejected},
		{ErrDuplicate, ReasonDuplicate},
		{&StorageError{Backend: "postgres", Op: "insert", Err: ErrPersistCollision}, ReasonPersistCollision},
		{context.Canceled, ReasonCanceled},
		{errors.New("boom"), ReasonError},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := SkipReason(tt.err); got != tt.want {
			t.Errorf("SkipReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestExtractedArticleValid(t *testing.T) {
	long := make([]rune, 201)
	for i := range long {
		long[i] = 'a'
	}
	e := &ExtractedArticle{Title: "Título", Body: string(long)}
	if !e.Valid() {
		t.Error("expected valid extraction")
	}
	e.Body = string(long[:200])
	if e.Valid() {
		t.Error("body of exactly 200 chars must be invalid")
	}
	e.Body = string(long)
	e.Title = "  "
	if e.Valid() {
		t.Error("blank title must be invalid")
	}
}
