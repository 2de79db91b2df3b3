// Package storage persists categories and articles. Postgres is the
// production backend; MongoDB and an in-memory map implement the same Store.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/textutil"
	"github.com/IshaanNene/radarbr/internal/types"
)

// Backend names.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// maxSlugSuffix bounds the numeric suffix loop.
const maxSlugSuffix = 1000

// Store is the interface for all article store backends.
type Store interface {
	ListCategories(ctx context.Context) ([]types.Category, error)
	// FindCategoryByName matches case-insensitively and returns ErrNotFound
	// when absent.
	FindCategoryByName(ctx context.Context, name string) (types.Category, error)
	// GetOrCreateCategory is idempotent on name and slug.
	GetOrCreateCategory(ctx context.Context, name, slug string) (types.Category, error)

	ExistsArticleBySourceURL(ctx context.Context, sourceURL string) (bool, error)
	// ExistsSimilarTitleToday reports whether an article created since
	// midnight (Brasília) has a title starting with prefix.
	ExistsSimilarTitleToday(ctx context.Context, prefix string) (bool, error)

	// SaveArticle assigns ID, unique slug and timestamps, fills a blank
	// source URL and inserts the article. A source URL already present
	// yields an error matching ErrPersistCollision.
	SaveArticle(ctx context.Context, a *types.Article) error
	UpdateArticleImage(ctx context.Context, id string, img types.ImageResult) error
	GetArticleBySlug(ctx context.Context, slug string) (*types.Article, error)
	// RecentArticles returns articles created at or after since, newest first.
	RecentArticles(ctx context.Context, since time.Time) ([]types.Article, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)

	IncrementViews(ctx context.Context, id string) error
	IncrementClicks(ctx context.Context, id string) error
	IncrementShares(ctx context.Context, id string) error

	Name() string
	Close() error
}

// Open creates the backend named in cfg.Storage.Backend. Postgres runs the
// embedded migrations first when MigrateOnStart is set.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.Storage.Backend {
	case BackendPostgres, "":
		s, err := NewPostgresStore(ctx, cfg.Storage.DatabaseURL, cfg.Site.BaseURL, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.MigrateOnStart {
			if err := s.Migrate(ctx); err != nil {
				s.Close()
				return nil, err
			}
		}
		return s, nil
	case BackendMongo:
		return NewMongoStore(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Site.BaseURL, logger)
	case BackendMemory:
		return NewMemoryStore(cfg.Site.BaseURL, logger), nil
	default:
		return nil, &types.ConfigError{Field: "storage.backend", Msg: fmt.Sprintf("unknown backend %q", cfg.Storage.Backend)}
	}
}

// FallbackSourceURL is the portal URL used when no publisher URL is known.
func FallbackSourceURL(siteBase, slug string) string {
	return strings.TrimRight(siteBase, "/") + "/noticia/" + slug
}

// SlugCandidate returns the n-th slug candidate for base: base itself, then
// base-2, base-3, ... The result never exceeds MaxSlugLen.
func SlugCandidate(base string, n int) string {
	if n <= 1 {
		return types.Truncate(base, types.MaxSlugLen)
	}
	suffix := "-" + strconv.Itoa(n)
	stem := strings.TrimRight(types.Truncate(base, types.MaxSlugLen-len(suffix)), "-")
	return stem + suffix
}

// uniqueSlug walks the slug candidates until taken reports one free.
func uniqueSlug(ctx context.Context, title string, taken func(context.Context, string) (bool, error)) (string, error) {
	base := textutil.SlugifyMax(title, types.MaxSlugLen)
	if base == "" {
		base = "noticia"
	}
	for n := 1; n <= maxSlugSuffix; n++ {
		slug := SlugCandidate(base, n)
		exists, err := taken(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
	}
	return "", fmt.Errorf("slug %q: %w", base, types.ErrPersistCollision)
}

// prepare fills the server-assigned fields and truncates to column limits.
func prepare(a *types.Article, id, slug, siteBase string, now time.Time) {
	a.ID = id
	a.Slug = slug
	a.Title = types.Truncate(a.Title, types.MaxTitleLen)
	if strings.TrimSpace(a.SourceURL) == "" {
		a.SourceURL = FallbackSourceURL(siteBase, slug)
	}
	a.SourceURL = types.Truncate(a.SourceURL, types.MaxSourceURLLen)
	a.SourceName = types.Truncate(a.SourceName, types.MaxSourceNameLen)
	a.ApplyImage(types.ImageResult{
		URL:       a.ImageURL,
		Alt:       a.ImageAlt,
		Credit:    a.ImageCredit,
		Licence:   a.ImageLicence,
		SourceURL: a.ImageSourceURL,
	})
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.PublishedAt.IsZero() {
		a.PublishedAt = now
	}
	a.HasVideo = len(a.VideoURLs) > 0
	a.RecomputeTrending(now)
}

// categoryFields normalizes a category name and slug for insertion.
func categoryFields(name, slug string) (string, string) {
	name = types.Truncate(strings.TrimSpace(name), types.MaxCategoryNameLen)
	if slug == "" {
		slug = textutil.Slugify(name)
	}
	return name, types.Truncate(slug, types.MaxCategorySlugLen)
}

func collision(backend, op, detail string) error {
	return &types.StorageError{Backend: backend, Op: op, Err: fmt.Errorf("%w: %s", types.ErrPersistCollision, detail)}
}
