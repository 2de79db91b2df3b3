package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/radarbr/internal/audience"
	"github.com/IshaanNene/radarbr/internal/trends"
	"github.com/IshaanNene/radarbr/internal/types"
)

// Topic selection strategies for smart publishing.
const (
	StrategyTrending = "trending"
	StrategyAudience = "audience"
	StrategyMixed    = "mixed"
)

// Strategies lists the accepted strategy names.
var Strategies = []string{StrategyTrending, StrategyAudience, StrategyMixed}

// poolFactor sizes the candidate pool ranked by the audience strategy.
const poolFactor = 3

// TrendLister returns merged trend candidates.
type TrendLister interface {
	GetAll(ctx context.Context, limit int) []types.TrendCandidate
}

// TopicRanker orders topics by predicted success.
type TopicRanker interface {
	Rank(ctx context.Context, topics []string) ([]audience.Prediction, error)
}

// Selector picks the topics of a smart publishing run.
type Selector struct {
	trends   TrendLister
	ranker   TopicRanker
	seasonal bool
	now      func() time.Time
	logger   *slog.Logger
}

// NewSelector creates a Selector. ranker may be nil when only the trending
// strategy is used.
func NewSelector(trends TrendLister, ranker TopicRanker, logger *slog.Logger) *Selector {
	return &Selector{
		trends: trends,
		ranker: ranker,
		now:    time.Now,
		logger: logger.With("component", "selector"),
	}
}

// WithSeasonal adds the current month's seasonal topics to the pool.
func (s *Selector) WithSeasonal(on bool) *Selector {
	s.seasonal = on
	return s
}

// Select returns up to limit topics chosen by strategy. An empty pool
// returns ErrNoTrends.
func (s *Selector) Select(ctx context.Context, strategy string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}
	switch strategy {
	case StrategyTrending, StrategyAudience, StrategyMixed:
	default:
		return nil, &types.ConfigError{
			Field: "strategy",
			Msg:   fmt.Sprintf("unknown strategy %q (want %s)", strategy, strings.Join(Strategies, ", ")),
		}
	}
	if strategy != StrategyTrending && s.ranker == nil {
		return nil, &types.ConfigError{Field: "strategy", Msg: strategy + " strategy needs an audience ranker"}
	}

	pool := s.pool(ctx, limit*poolFactor)
	if len(pool) == 0 {
		return nil, types.ErrNoTrends
	}

	var out []string
	switch strategy {
	case StrategyTrending:
		out = head(pool, limit)
	case StrategyAudience:
		ranked, err := s.rank(ctx, pool)
		if err != nil {
			return nil, err
		}
		out = head(ranked, limit)
	case StrategyMixed:
		ranked, err := s.rank(ctx, pool)
		if err != nil {
			return nil, err
		}
		out = head(Interleave(pool, ranked), limit)
	}
	s.logger.Info("topics selected", "strategy", strategy, "pool", len(pool), "topics", out)
	return out, nil
}

func (s *Selector) pool(ctx context.Context, n int) []string {
	cands := s.trends.GetAll(ctx, n)
	if s.seasonal {
		extra, _ := (&trends.SeasonalProvider{Now: s.now}).Fetch(ctx)
		cands = trends.Merge(append(cands, extra...))
	}
	return trends.Topics(cands)
}

func (s *Selector) rank(ctx context.Context, topics []string) ([]string, error) {
	preds, err := s.ranker.Rank(ctx, topics)
	if err != nil {
		return nil, fmt.Errorf("rank topics: %w", err)
	}
	out := make([]string, len(preds))
	for i, p := range preds {
		s.logger.Debug("topic ranked", "topic", p.Topic, "score", p.Score, "performance", p.Performance)
		out[i] = p.Topic
	}
	return out, nil
}

// Interleave alternates the items of a and b, dropping repeats.
func Interleave(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for i := 0; i < max(len(a), len(b)); i++ {
		if i < len(a) {
			add(a[i])
		}
		if i < len(b) {
			add(b[i])
		}
	}
	return out
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
