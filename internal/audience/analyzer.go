// Package audience scores candidate topics against what the portal has
// recently published: frequent categories, title keywords and hours.
package audience

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/IshaanNene/radarbr/internal/types"
)

// DefaultWindow is the analysis window.
const DefaultWindow = 30 * 24 * time.Hour

// Prediction labels.
const (
	High   = "high"
	Medium = "medium"
	Low    = "low"
)

const maxScore = 10

// highEngagement are title words associated with engaging content.
var highEngagement = map[string]bool{
	"como": true, "melhor": true, "dicas": true, "guia": true, "tutorial": true,
	"comparação": true, "análise": true, "opinião": true, "reviews": true,
	"completo": true,
}

// Source is the read access the analyzer needs from the store.
type Source interface {
	ListCategories(ctx context.Context) ([]types.Category, error)
	RecentArticles(ctx context.Context, since time.Time) ([]types.Article, error)
}

// Count pairs a key with its frequency.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// HourCount pairs an hour of day (Brasília) with its frequency.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// Performance summarizes the articles in the window.
type Performance struct {
	Categories     []Count     `json:"categories"`
	TopKeywords    []Count     `json:"top_keywords"`
	HighEngagement []Count     `json:"high_engagement"`
	BestHours      []HourCount `json:"best_hours"`
	Hourly         map[int]int `json:"hourly"`
	Total          int         `json:"total"`
}

// Insights is the condensed view of a Performance.
type Insights struct {
	TopCategories   []string `json:"top_categories"`
	TrendingWords   []string `json:"trending_keywords"`
	BestHours       []int    `json:"best_hours"`
	Recommendations []string `json:"recommendations"`
}

// Prediction is the expected success of a topic.
type Prediction struct {
	Topic           string   `json:"topic"`
	Score           float64  `json:"success_score"`
	Performance     string   `json:"predicted_performance"`
	Recommendations []string `json:"recommendations"`
}

// Analyzer computes audience performance from stored articles.
type Analyzer struct {
	source Source
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// New creates an Analyzer over the last window of articles.
func New(source Source, window time.Duration, logger *slog.Logger) *Analyzer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Analyzer{
		source: source,
		window: window,
		now:    time.Now,
		logger: logger.With("component", "audience"),
	}
}

// Analyze aggregates the articles published in the window.
func (a *Analyzer) Analyze(ctx context.Context) (*Performance, error) {
	since := a.now().Add(-a.window)
	articles, err := a.source.RecentArticles(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("audience: recent articles: %w", err)
	}
	categories, err := a.source.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("audience: categories: %w", err)
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	byCategory := make(map[string]int)
	words := make(map[string]int)
	hourly := make(map[int]int)
	total := 0
	for _, art := range articles {
		if art.PublishedAt.Before(since) {
			continue
		}
		total++
		if name, ok := names[art.CategoryID]; ok {
			byCategory[name]++
		}
		for _, w := range titleWords(art.Title) {
			words[w]++
		}
		hourly[art.PublishedAt.In(types.Brasilia).Hour()]++
	}

	perf := &Performance{
		Categories: sortCounts(byCategory),
		Hourly:     hourly,
		Total:      total,
	}
	ranked := sortCounts(words)
	perf.TopKeywords = head(ranked, 10)
	for _, c := range head(ranked, 20) {
		if highEngagement[c.Key] {
			perf.HighEngagement = append(perf.HighEngagement, c)
		}
	}
	perf.BestHours = bestHours(hourly, 5)

	a.logger.Debug("audience analyzed", "articles", total, "categories", len(byCategory))
	return perf, nil
}

// Insights analyzes the window and condenses it with recommendations.
func (a *Analyzer) Insights(ctx context.Context) (*Insights, error) {
	perf, err := a.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	ins := &Insights{Recommendations: recommendations(perf)}
	for _, c := range head(perf.Categories, 3) {
		ins.TopCategories = append(ins.TopCategories, c.Key)
	}
	for _, c := range head(perf.TopKeywords, 5) {
		ins.TrendingWords = append(ins.TrendingWords, c.Key)
	}
	for i, h := range perf.BestHours {
		if i == 3 {
			break
		}
		ins.BestHours = append(ins.BestHours, h.Hour)
	}
	return ins, nil
}

// Predict scores topic against a fresh analysis.
func (a *Analyzer) Predict(ctx context.Context, topic string) (Prediction, error) {
	perf, err := a.Analyze(ctx)
	if err != nil {
		return Prediction{}, err
	}
	return perf.Predict(topic), nil
}

// Rank orders topics by predicted success, keeping the input order among
// equal scores.
func (a *Analyzer) Rank(ctx context.Context, topics []string) ([]Prediction, error) {
	perf, err := a.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Prediction, len(topics))
	for i, t := range topics {
		out[i] = perf.Predict(t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// Predict scores topic: two points per high-engagement word, one per
// frequent keyword, plus a tenth of the article count of a category named
// in the topic. The score is capped at 10.
func (p *Performance) Predict(topic string) Prediction {
	lower := strings.ToLower(topic)
	engaging := make(map[string]bool, len(p.HighEngagement))
	for _, c := range p.HighEngagement {
		engaging[c.Key] = true
	}
	frequent := make(map[string]bool, len(p.TopKeywords))
	for _, c := range p.TopKeywords {
		frequent[c.Key] = true
	}

	score := 0.0
	for _, w := range strings.Fields(lower) {
		switch {
		case engaging[w]:
			score += 2
		case frequent[w]:
			score++
		}
	}
	for _, c := range p.Categories {
		if strings.Contains(lower, strings.ToLower(c.Key)) {
			score += float64(c.Count) * 0.1
			break
		}
	}

	pred := Prediction{Topic: topic, Score: min(score, maxScore), Performance: Label(score)}
	switch {
	case score < 3:
		pred.Recommendations = []string{
			"Considere adicionar palavras-chave de alto engajamento ao título",
			"Verifique se o tópico está alinhado com as categorias de melhor performance",
		}
	case score > 6:
		pred.Recommendations = []string{
			"Este tópico tem alto potencial de sucesso",
			"Considere criar conteúdo relacionado para maximizar o alcance",
		}
	}
	return pred
}

// Label maps a score to high (> 6), medium (> 3) or low.
func Label(score float64) string {
	switch {
	case score > 6:
		return High
	case score > 3:
		return Medium
	default:
		return Low
	}
}

func recommendations(p *Performance) []string {
	var out []string
	if len(p.Categories) > 0 {
		out = append(out, fmt.Sprintf("Foque mais em conteúdo de '%s' (categoria com melhor performance)", p.Categories[0].Key))
	}
	if len(p.HighEngagement) > 0 {
		out = append(out, fmt.Sprintf("Use mais palavras-chave como '%s' nos títulos para aumentar engajamento", p.HighEngagement[0].Key))
	}
	if hours := p.BestHours; len(hours) > 0 {
		last := hours[min(len(hours), 3)-1]
		out = append(out, fmt.Sprintf("Publique mais conteúdo entre %d:00h e %d:00h (horários com melhor performance)", hours[0].Hour, last.Hour))
	}
	return out
}

// titleWords lowercases a title, strips punctuation from each
// whitespace-separated word and keeps words longer than three letters.
func titleWords(title string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(title)) {
		w := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, f)
		if len([]rune(w)) > 3 {
			out = append(out, w)
		}
	}
	return out
}

func sortCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func bestHours(hourly map[int]int, n int) []HourCount {
	out := make([]HourCount, 0, len(hourly))
	for h, c := range hourly {
		out = append(out, HourCount{Hour: h, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Hour < out[j].Hour
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func head(c []Count, n int) []Count {
	if len(c) > n {
		return c[:n]
	}
	return c
}
