package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/observability"
	"github.com/IshaanNene/radarbr/internal/storage"
	"github.com/IshaanNene/radarbr/internal/textutil"
	"github.com/IshaanNene/radarbr/internal/types"
)

// recentOverlap is the word overlap above which a topic counts as already
// covered by a recent article.
const recentOverlap = 0.5

// TopStories fetches headline candidates, typically the Google News top
// stories feed.
type TopStories interface {
	Fetch(ctx context.Context) ([]types.TrendCandidate, error)
}

// Automation is the unattended topic source: it throttles runs by recent
// output and picks topics that were not covered lately.
type Automation struct {
	store   storage.Store
	feed    TopStories
	window  time.Duration
	max     int
	metrics *observability.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

// NewAutomation creates an Automation. feed may be nil, in which case only
// the hour-of-day fallback topics are used.
func NewAutomation(cfg config.PipelineConfig, store storage.Store, feed TopStories, metrics *observability.Metrics, logger *slog.Logger) *Automation {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	return &Automation{
		store:   store,
		feed:    feed,
		window:  time.Duration(cfg.RecentWindow) * time.Hour,
		max:     cfg.RecentMax,
		metrics: metrics,
		now:     time.Now,
		logger:  logger.With("component", "automation"),
	}
}

// ShouldRun reports whether fewer than the configured maximum of articles
// were created within the recent window. force always allows the run.
func (a *Automation) ShouldRun(ctx context.Context, force bool) (bool, error) {
	if force {
		return true, nil
	}
	n, err := a.store.CountCreatedSince(ctx, a.now().Add(-a.window))
	if err != nil {
		return false, err
	}
	if n >= a.max {
		a.metrics.RunsBlocked.Add(1)
		a.logger.Info("run blocked", "recent_articles", n, "window", a.window, "max", a.max)
		return false, nil
	}
	return true, nil
}

// Topics returns up to limit topics from the top stories feed, falling back
// to the topics for the current hour. Topics overlapping an article created
// in the last 24 hours are dropped.
func (a *Automation) Topics(ctx context.Context, limit int) ([]string, error) {
	var topics []string
	if a.feed != nil {
		cands, err := a.feed.Fetch(ctx)
		if err != nil {
			a.logger.Warn("top stories unavailable", "error", err)
		}
		for _, c := range cands {
			if limit > 0 && len(topics) >= limit {
				break
			}
			t := c.OriginalTitle
			if t == "" {
				t = c.Topic
			}
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		topics = FallbackTopics(a.now().In(types.Brasilia).Hour())
		a.logger.Info("using fallback topics", "topics", topics)
	}

	kept, err := a.FilterRecent(ctx, topics)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, nil
}

// FilterRecent drops topics whose words overlap a title created in the last
// 24 hours by more than half of the smaller word set.
func (a *Automation) FilterRecent(ctx context.Context, topics []string) ([]string, error) {
	recent, err := a.store.RecentArticles(ctx, a.now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	var kept []string
	for _, t := range topics {
		covered := ""
		for _, art := range recent {
			if textutil.OverlapRatio(t, art.Title) > recentOverlap {
				covered = art.Title
				break
			}
		}
		if covered != "" {
			a.logger.Info("topic recently covered", "topic", t, "article", covered)
			continue
		}
		kept = append(kept, t)
	}
	return kept, nil
}

// FallbackTopics returns the default topics for an hour of day in Brasília.
func FallbackTopics(hour int) []string {
	switch {
	case hour >= 6 && hour < 12:
		return []string{"notícias do dia", "economia matinal", "tecnologia"}
	case hour >= 12 && hour < 18:
		return []string{"esportes", "entretenimento", "cultura"}
	case hour >= 18 && hour < 22:
		return []string{"política", "economia", "tecnologia"}
	default:
		return []string{"preparação para o dia", "tendências"}
	}
}
