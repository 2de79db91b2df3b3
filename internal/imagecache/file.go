package imagecache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileCache keeps entries in one JSON file rewritten atomically on every
// mutation. It assumes a single writer process.
type FileCache struct {
	path    string
	maxAge  time.Duration
	entries map[string]Entry
	mu      sync.Mutex
	now     func() time.Time
	logger  *slog.Logger
}

// NewFileCache loads the cache file at path. A missing or unreadable file
// starts an empty cache.
func NewFileCache(path string, maxAge time.Duration, logger *slog.Logger) (*FileCache, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	fc := &FileCache{
		path:    path,
		maxAge:  maxAge,
		entries: make(map[string]Entry),
		now:     time.Now,
		logger:  logger.With("component", "image_cache", "backend", "file"),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		fc.logger.Warn("cache file unreadable, starting empty", "path", path, "error", err)
	default:
		if err := json.Unmarshal(data, &fc.entries); err != nil {
			fc.logger.Warn("cache file corrupt, starting empty", "path", path, "error", err)
			fc.entries = make(map[string]Entry)
		}
	}
	return fc, nil
}

func (fc *FileCache) Get(_ context.Context, title, category string) (Entry, bool) {
	key := Key(title, category)

	fc.mu.Lock()
	defer fc.mu.Unlock()

	e, ok := fc.entries[key]
	if !ok {
		return Entry{}, false
	}
	if e.expired(fc.now(), fc.maxAge) {
		delete(fc.entries, key)
		if err := fc.save(); err != nil {
			fc.logger.Warn("failed to persist eviction", "error", err)
		}
		return Entry{}, false
	}
	return e, true
}

func (fc *FileCache) Set(_ context.Context, title, url, category string, metadata map[string]string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.entries[Key(title, category)] = newEntry(fc.now(), title, url, category, metadata)
	return fc.save()
}

func (fc *FileCache) Delete(_ context.Context, title, category string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	key := Key(title, category)
	if _, ok := fc.entries[key]; !ok {
		return nil
	}
	delete(fc.entries, key)
	return fc.save()
}

func (fc *FileCache) ClearExpired(_ context.Context) (int, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	now := fc.now()
	removed := 0
	for key, e := range fc.entries {
		if e.expired(now, fc.maxAge) {
			delete(fc.entries, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	fc.logger.Info("removed expired cache entries", "count", removed)
	return removed, fc.save()
}

func (fc *FileCache) Stats(_ context.Context) (Stats, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	now := fc.now()
	expired := 0
	for _, e := range fc.entries {
		if e.expired(now, fc.maxAge) {
			expired++
		}
	}
	return Stats{
		TotalEntries:   len(fc.entries),
		ExpiredEntries: expired,
		ActiveEntries:  len(fc.entries) - expired,
		MaxAgeDays:     fc.maxAge.Hours() / 24,
		Backend:        "file",
		Location:       fc.path,
	}, nil
}

func (fc *FileCache) Close() error { return nil }

// save writes the entries to a temp file and renames it over the cache file.
// Callers hold fc.mu.
func (fc *FileCache) save() error {
	data, err := json.MarshalIndent(fc.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fc.path), ".image_cache-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, fc.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
