// Package imagecache remembers which image was chosen for a title and
// category so repeated topics skip the provider calls.
package imagecache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// DefaultMaxAge is the entry time-to-live.
const DefaultMaxAge = 7 * 24 * time.Hour

// Entry is a cached image choice. Timestamp is Unix seconds so files written
// by earlier tooling stay readable.
type Entry struct {
	URL       string            `json:"url"`
	Timestamp float64           `json:"timestamp"`
	Title     string            `json:"title"`
	Category  string            `json:"category"`
	Metadata  map[string]string `json:"metadata"`
}

// Time returns the entry's write time.
func (e Entry) Time() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func (e Entry) expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.Time()) > maxAge
}

// Stats summarises the cache contents.
type Stats struct {
	TotalEntries   int     `json:"total_entries"`
	ExpiredEntries int     `json:"expired_entries"`
	ActiveEntries  int     `json:"active_entries"`
	MaxAgeDays     float64 `json:"max_age_days"`
	Backend        string  `json:"backend"`
	Location       string  `json:"location"`
}

// Cache is the contract both backends implement.
type Cache interface {
	// Get returns the entry for title+category. Expired entries are evicted
	// and reported as a miss.
	Get(ctx context.Context, title, category string) (Entry, bool)
	// Set overwrites the entry for title+category.
	Set(ctx context.Context, title, url, category string, metadata map[string]string) error
	// Delete evicts the entry for title+category.
	Delete(ctx context.Context, title, category string) error
	// ClearExpired removes every expired entry and returns how many were removed.
	ClearExpired(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Key returns md5(lower(title + "_" + category)) as hex.
func Key(title, category string) string {
	sum := md5.Sum([]byte(strings.ToLower(title + "_" + category)))
	return hex.EncodeToString(sum[:])
}

func newEntry(now time.Time, title, url, category string, metadata map[string]string) Entry {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return Entry{
		URL:       url,
		Timestamp: float64(now.UnixNano()) / 1e9,
		Title:     truncateRunes(title, 100),
		Category:  category,
		Metadata:  metadata,
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
