package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/radarbr/internal/types"
)

// MemoryStore keeps categories and articles in maps. Used by tests and
// dry runs.
type MemoryStore struct {
	mu         sync.RWMutex
	categories []types.Category
	articles   map[string]*types.Article // by ID
	bySlug     map[string]string
	bySource   map[string]string
	siteBase   string
	now        func() time.Time
	logger     *slog.Logger
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(siteBase string, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		articles: make(map[string]*types.Article),
		bySlug:   make(map[string]string),
		bySource: make(map[string]string),
		siteBase: siteBase,
		now:      time.Now,
		logger:   logger.With("component", "memory_store"),
	}
}

// WithClock overrides the store's clock.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Seed inserts categories by name, deriving slugs.
func (s *MemoryStore) Seed(names ...string) *MemoryStore {
	for _, n := range names {
		_, _ = s.GetOrCreateCategory(context.Background(), n, "")
	}
	return s
}

func (s *MemoryStore) Name() string { return BackendMemory }

func (s *MemoryStore) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.logger.Debug("memory store closing", "articles", len(s.articles))
	return nil
}

func (s *MemoryStore) ListCategories(_ context.Context) ([]types.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Category(nil), s.categories...), nil
}

func (s *MemoryStore) FindCategoryByName(_ context.Context, name string) (types.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c, nil
		}
	}
	return types.Category{}, fmt.Errorf("category %q: %w", name, types.ErrNotFound)
}

func (s *MemoryStore) GetOrCreateCategory(_ context.Context, name, slug string) (types.Category, error) {
	name, slug = categoryFields(name, slug)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.Slug == slug || strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	c := types.Category{ID: uuid.NewString(), Name: name, Slug: slug}
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *MemoryStore) ExistsArticleBySourceURL(_ context.Context, sourceURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bySource[sourceURL]
	return ok, nil
}

func (s *MemoryStore) ExistsSimilarTitleToday(_ context.Context, prefix string) (bool, error) {
	prefix = strings.ToLower(prefix)
	since := types.StartOfDay(s.now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.articles {
		if !a.CreatedAt.Before(since) && strings.HasPrefix(strings.ToLower(a.Title), prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) SaveArticle(ctx context.Context, a *types.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slug, err := uniqueSlug(ctx, a.Title, func(_ context.Context, slug string) (bool, error) {
		_, ok := s.bySlug[slug]
		return ok, nil
	})
	if err != nil {
		return err
	}
	prepare(a, uuid.NewString(), slug, s.siteBase, s.now())
	if _, ok := s.bySource[a.SourceURL]; ok {
		return collision(BackendMemory, "save_article", "fonte_url "+a.SourceURL)
	}

	stored := *a
	stored.VideoURLs = append([]string(nil), a.VideoURLs...)
	s.articles[a.ID] = &stored
	s.bySlug[a.Slug] = a.ID
	s.bySource[a.SourceURL] = a.ID
	s.logger.Debug("article stored", "id", a.ID, "slug", a.Slug)
	return nil
}

func (s *MemoryStore) UpdateArticleImage(_ context.Context, id string, img types.ImageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return fmt.Errorf("article %s: %w", id, types.ErrNotFound)
	}
	a.ApplyImage(img)
	return nil
}

func (s *MemoryStore) GetArticleBySlug(_ context.Context, slug string) (*types.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("article %q: %w", slug, types.ErrNotFound)
	}
	a := *s.articles[id]
	return &a, nil
}

func (s *MemoryStore) RecentArticles(_ context.Context, since time.Time) ([]types.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Article
	for _, a := range s.articles {
		if !a.CreatedAt.Before(since) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	recent, err := s.RecentArticles(ctx, since)
	return len(recent), err
}

func (s *MemoryStore) IncrementViews(_ context.Context, id string) error {
	return s.increment(id, func(a *types.Article) { a.Views++ })
}

func (s *MemoryStore) IncrementClicks(_ context.Context, id string) error {
	return s.increment(id, func(a *types.Article) { a.Clicks++ })
}

func (s *MemoryStore) IncrementShares(_ context.Context, id string) error {
	return s.increment(id, func(a *types.Article) { a.Shares++ })
}

func (s *MemoryStore) increment(id string, bump func(*types.Article)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return fmt.Errorf("article %s: %w", id, types.ErrNotFound)
	}
	bump(a)
	a.RecomputeTrending(s.now())
	return nil
}
