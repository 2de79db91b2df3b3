// Package classifier assigns one category from a closed vocabulary using
// weighted keyword and context-pattern scoring.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/IshaanNene/radarbr/internal/types"
)

var tagRe = regexp.MustCompile(`<[^>]+>`)

// Decision is the outcome of scoring a text.
type Decision struct {
	Category   string
	Score      float64
	Confidence float64
	Scores     map[string]float64
}

// Classifier scores text against the category pattern table.
type Classifier struct {
	logger *slog.Logger
}

// New creates a Classifier.
func New(logger *slog.Logger) *Classifier {
	return &Classifier{
		logger: logger.With("component", "classifier"),
	}
}

// Vocabulary returns the closed category vocabulary in table order.
func Vocabulary() []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.category
	}
	return out
}

// Classify returns the best category for title+content+topic, or Fallback when
// no category scores above Threshold.
func (c *Classifier) Classify(title, content, topic string) Decision {
	text := prepare(title, content, topic)
	scores := score(text)

	best, bestScore, total := "", 0.0, 0.0
	for _, p := range patterns {
		s := scores[p.category]
		total += s
		if best == "" || s > bestScore {
			best, bestScore = p.category, s
		}
	}

	d := Decision{Category: best, Score: bestScore, Scores: scores}
	if total > 0 {
		d.Confidence = bestScore / total
	}
	if bestScore <= Threshold {
		d.Category = Fallback
	}

	c.logger.Debug("classified",
		"category", d.Category,
		"score", fmt.Sprintf("%.2f", d.Score),
		"confidence", fmt.Sprintf("%.2f", d.Confidence),
	)
	return d
}

// Confidence returns best/total over the category scores, 0 when nothing matched.
func (c *Classifier) Confidence(title, content, topic string) float64 {
	return c.Classify(title, content, topic).Confidence
}

func prepare(title, content, topic string) string {
	full := strings.ToLower(title + " " + content + " " + topic)
	return tagRe.ReplaceAllString(full, " ")
}

func score(text string) map[string]float64 {
	scores := make(map[string]float64, len(patterns))
	for _, p := range patterns {
		s := 0.0
		matched := 0
		for _, kw := range p.keywords {
			if !strings.Contains(text, kw) {
				continue
			}
			matched++
			if len(strings.Fields(kw)) > 1 {
				s += 2.0
			} else {
				s += 1.0
			}
		}
		for _, re := range p.context {
			if re.MatchString(text) {
				s += 3.0
			}
		}
		if matched > 0 {
			s += float64(matched) / float64(len(p.keywords)) * 5.0
		}
		scores[p.category] = s * p.weight
	}

	if mentionsForeign(text) && !strings.Contains(text, "brasil") && !strings.Contains(text, "brasileir") {
		scores["mundo"] *= 1.5
	}
	return scores
}

func mentionsForeign(text string) bool {
	for _, m := range foreignMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// CategoryLister is the read access the classifier needs from the store.
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]types.Category, error)
}

// Match finds a category by case-insensitive name.
func Match(categories []types.Category, name string) (types.Category, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Category{}, false
	}
	for _, cat := range categories {
		if strings.EqualFold(cat.Name, name) {
			return cat, true
		}
	}
	return types.Category{}, false
}

// Resolve maps a category name to a stored Category: exact name, then
// fallback, then the first stored category.
func Resolve(ctx context.Context, store CategoryLister, name, fallback string) (types.Category, error) {
	categories, err := store.ListCategories(ctx)
	if err != nil {
		return types.Category{}, err
	}
	if cat, ok := Match(categories, name); ok {
		return cat, nil
	}
	if cat, ok := Match(categories, fallback); ok {
		return cat, nil
	}
	if cat, ok := Match(categories, Fallback); ok {
		return cat, nil
	}
	if len(categories) == 0 {
		return types.Category{}, fmt.Errorf("resolve category %q: %w", name, types.ErrNotFound)
	}
	return categories[0], nil
}
