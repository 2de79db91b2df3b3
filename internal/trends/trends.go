// Package trends aggregates candidate topics from trend providers.
package trends

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/fetcher"
	"github.com/IshaanNene/radarbr/internal/types"
)

// Source merges the candidates of its providers.
type Source struct {
	providers []Provider
	logger    *slog.Logger
}

// NewSource creates a Source over providers, given in priority order.
func NewSource(logger *slog.Logger, providers ...Provider) *Source {
	return &Source{providers: providers, logger: logger.With("component", "trends")}
}

// New builds the providers named in cfg.Providers.
func New(cfg config.TrendsConfig, doer fetcher.Doer, logger *slog.Logger) (*Source, error) {
	var providers []Provider
	for _, name := range cfg.Providers {
		switch name {
		case GoogleNews:
			providers = append(providers, NewGoogleNewsProvider(doer, cfg.Timeout))
		case GoogleTrends:
			providers = append(providers, NewGoogleTrendsProvider(doer, cfg.Timeout))
		case Reddit:
			providers = append(providers, NewRedditProvider(doer, cfg.Timeout, cfg.RedditMinScore))
		case NewsSites:
			providers = append(providers, NewNewsSitesProvider(doer, cfg.Timeout, cfg.NewsSites))
		case Twitter:
			providers = append(providers, NewTwitterProvider())
		case YouTube:
			providers = append(providers, NewYouTubeProvider())
		case Seasonal:
			providers = append(providers, &SeasonalProvider{})
		default:
			return nil, &types.ConfigError{Field: "trends.providers", Msg: fmt.Sprintf("unknown provider %q", name)}
		}
	}
	return NewSource(logger, providers...), nil
}

// Providers returns the provider names in priority order.
func (s *Source) Providers() []string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Name()
	}
	return names
}

// GetAll queries the providers one after another in priority order and
// returns at most limit candidates: noisy topics dropped, near-duplicates
// collapsed in favour of the higher-priority provider, sorted by score.
// Provider failures are logged and skipped. Cancellation stops the walk and
// keeps what was already collected. A limit <= 0 returns every candidate.
func (s *Source) GetAll(ctx context.Context, limit int) []types.TrendCandidate {
	results := make([][]types.TrendCandidate, 0, len(s.providers))
	for _, p := range s.providers {
		if ctx.Err() != nil {
			s.logger.Warn("trend collection canceled", "provider", p.Name(), "error", ctx.Err())
			break
		}
		cands, err := p.Fetch(ctx)
		if err != nil {
			s.logger.Warn("provider failed", "provider", p.Name(), "error", err)
			continue
		}
		s.logger.Debug("provider done", "provider", p.Name(), "candidates", len(cands))
		results = append(results, cands)
	}

	var all []types.TrendCandidate
	for _, r := range results {
		all = append(all, r...)
	}
	merged := Merge(all)
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	s.logger.Info("trends collected", "providers", len(s.providers), "raw", len(all), "kept", len(merged))
	return merged
}

// Merge drops noisy topics, removes near-duplicates keeping the first
// occurrence, and stable-sorts the rest by descending score.
func Merge(cands []types.TrendCandidate) []types.TrendCandidate {
	var kept []types.TrendCandidate
	for _, c := range cands {
		if IsNoisy(c.Topic) {
			continue
		}
		dup := false
		for _, k := range kept {
			if Similar(c.Topic, k.Topic) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	return kept
}

// Topics returns the topic strings of cands.
func Topics(cands []types.TrendCandidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Topic
	}
	return out
}
