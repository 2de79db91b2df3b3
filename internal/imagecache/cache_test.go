package imagecache

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestKey(t *testing.T) {
	if Key("Inflação Brasil", "economia") != Key("inflação brasil", "ECONOMIA") {
		t.Error("key must be case-insensitive")
	}
	if Key("a", "b") == Key("a_b", "") {
		t.Error("distinct inputs collided")
	}
	if len(Key("x", "y")) != 32 {
		t.Errorf("key should be 32 hex chars, got %q", Key("x", "y"))
	}
}

func newTestFileCache(t *testing.T) (*FileCache, *time.Time) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache", "image_cache.json")
	fc, err := NewFileCache(path, DefaultMaxAge, testLogger)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	fc.now = func() time.Time { return now }
	return fc, &now
}

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	fc, now := newTestFileCache(t)

	meta := map[string]string{"credit": "Foto: Ana (Unsplash)"}
	if err := fc.Set(ctx, "Inflação sobe", "https://img/1.jpg", "economia", meta); err != nil {
		t.Fatalf("Set: %v", err)
	}

	e, ok := fc.Get(ctx, "Inflação sobe", "economia")
	if !ok || e.URL != "https://img/1.jpg" {
		t.Fatalf("Get = %+v, %v", e, ok)
	}
	if e.Metadata["credit"] != "Foto: Ana (Unsplash)" {
		t.Errorf("metadata lost: %v", e.Metadata)
	}

	// Reload from disk.
	reloaded, err := NewFileCache(fc.path, DefaultMaxAge, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	reloaded.now = fc.now
	if e, ok := reloaded.Get(ctx, "Inflação sobe", "economia"); !ok || e.URL != "https://img/1.jpg" {
		t.Errorf("reloaded Get = %+v, %v", e, ok)
	}

	*now = now.Add(DefaultMaxAge + time.Second)
	if _, ok := fc.Get(ctx, "Inflação sobe", "economia"); ok {
		t.Error("expected miss after TTL")
	}
	st, _ := fc.Stats(ctx)
	if st.TotalEntries != 0 {
		t.Errorf("expired entry should be evicted on read, stats %+v", st)
	}
}

func TestFileCacheClearExpiredAndStats(t *testing.T) {
	ctx := context.Background()
	fc, now := newTestFileCache(t)

	fc.Set(ctx, "old", "https://img/old.jpg", "mundo", nil)
	*now = now.Add(6 * 24 * time.Hour)
	fc.Set(ctx, "new", "https://img/new.jpg", "mundo", nil)
	*now = now.Add(2 * 24 * time.Hour)

	st, err := fc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalEntries != 2 || st.ExpiredEntries != 1 || st.ActiveEntries != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.MaxAgeDays != 7 {
		t.Errorf("max age days = %v", st.MaxAgeDays)
	}

	removed, err := fc.ClearExpired(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("ClearExpired = %d, %v", removed, err)
	}
	if _, ok := fc.Get(ctx, "new", "mundo"); !ok {
		t.Error("active entry was swept")
	}
}

func TestFileCacheAtomicFileIsValidJSON(t *testing.T) {
	ctx := context.Background()
	fc, _ := newTestFileCache(t)
	fc.Set(ctx, "a", "https://img/a.jpg", "", nil)
	fc.Delete(ctx, "a", "")
	fc.Set(ctx, "b", "https://img/b.jpg", "", nil)

	data, err := os.ReadFile(fc.path)
	if err != nil {
		t.Fatal(err)
	}
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("cache file is not valid JSON: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry on disk, got %d", len(entries))
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(fc.path), ".image_cache-*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestFileCacheTitlePreviewTruncated(t *testing.T) {
	ctx := context.Background()
	fc, _ := newTestFileCache(t)
	long := make([]rune, 150)
	for i := range long {
		long[i] = 'ã'
	}
	fc.Set(ctx, string(long), "https://img/x.jpg", "", nil)
	e, ok := fc.Get(ctx, string(long), "")
	if !ok {
		t.Fatal("miss")
	}
	if got := len([]rune(e.Title)); got != 100 {
		t.Errorf("title preview has %d runes, want 100", got)
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	url := os.Getenv("RADARBR_TEST_REDIS_URL")
	if testing.Short() || url == "" {
		t.Skip("RADARBR_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	rc, err := NewRedisCache(ctx, url, time.Hour, testLogger)
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer rc.Close()

	if err := rc.Set(ctx, "redis title", "https://img/r.jpg", "brasil", nil); err != nil {
		t.Fatal(err)
	}
	defer rc.Delete(ctx, "redis title", "brasil")
	if e, ok := rc.Get(ctx, "redis title", "brasil"); !ok || e.URL != "https://img/r.jpg" {
		t.Errorf("Get = %+v, %v", e, ok)
	}
}
