// Package title builds original, SEO-oriented headlines that keep a
// mandatory keyword and never repeat the publisher's title.
package title

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/IshaanNene/radarbr/internal/ai"
	"github.com/IshaanNene/radarbr/internal/textutil"
	"github.com/IshaanNene/radarbr/internal/types"
)

const (
	MinLen = 20
	MaxLen = 140

	fallbackSuffix = " — análise"
)

var (
	brandSuffixRe []*regexp.Regexp
	brandPrefixRe []*regexp.Regexp

	sectionPrefixRe = regexp.MustCompile(`(?i)^(opini[aã]o|coluna|an[áa]lise|blog)\s*[-–—:|]+\s*`)
	byAuthorRe      = regexp.MustCompile(`^[Pp]or\s+\p{Lu}\p{L}+(\s+\p{Lu}\p{L}+){0,3}\s*:\s*`)
	leadingNameRe   = regexp.MustCompile(`^\p{Lu}\p{Ll}+(\s+\p{Lu}\p{Ll}+)?\s*:\s+`)
	trailingPunctRe = regexp.MustCompile(`\s*[:\-–—|•]\s*$`)
	questionRe      = regexp.MustCompile(`\?\s*$`)
	urgentRe        = regexp.MustCompile(`(?i)\b(urgente|agora|ao vivo|última hora)\b`)
)

func init() {
	for _, b := range brands {
		q := regexp.QuoteMeta(b)
		brandSuffixRe = append(brandSuffixRe,
			regexp.MustCompile(`\s*[-|–—•/]\s*`+q+`\s*$`),
			regexp.MustCompile(`\s*\(`+q+`\)\s*$`),
		)
		brandPrefixRe = append(brandPrefixRe, regexp.MustCompile(`^`+q+`\s*[-|–—•:]\s*`))
	}
}

// Input is what the styler knows about an article.
type Input struct {
	Original    string // publisher title
	Description string
	Keyword     string // mandatory keyword, usually the topic
	Category    string
}

// Result is a styled title.
type Result struct {
	Title    string
	Cleaned  string
	Keyword  string
	Bank     string
	FromLLM  bool
	Fallback bool
}

// Styler produces headline variants.
type Styler struct {
	llm    ai.Completer
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewStyler creates a Styler. llm may be nil, in which case StyleWithLLM
// behaves like Style.
func NewStyler(llm ai.Completer, rng *rand.Rand, logger *slog.Logger) *Styler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Styler{
		llm:    llm,
		rng:    rng,
		logger: logger.With("component", "title_styler"),
	}
}

// Clean strips publisher brands and columnist prefixes from a title.
func Clean(t string) string {
	out := textutil.NormalizeSpace(t)
	for changed := true; changed; {
		changed = false
		for _, re := range brandSuffixRe {
			if next := re.ReplaceAllString(out, ""); next != out && next != "" {
				out, changed = next, true
			}
		}
		for _, re := range brandPrefixRe {
			if next := re.ReplaceAllString(out, ""); next != out && next != "" {
				out, changed = next, true
			}
		}
	}

	out = sectionPrefixRe.ReplaceAllString(out, "")
	out = byAuthorRe.ReplaceAllString(out, "")
	if stripped := leadingNameRe.ReplaceAllString(out, ""); utf8.RuneCountInString(stripped) >= 10 {
		out = stripped
	}
	out = trailingPunctRe.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// Keywords returns the ordered content keywords of title and description.
func Keywords(title, description string) []string {
	return textutil.Keywords(title+" "+description, 3, 8)
}

// Style picks a template candidate that satisfies the length, keyword and
// originality constraints.
func (s *Styler) Style(in Input) Result {
	cleaned := Clean(in.Original)
	keyword := strings.TrimSpace(in.Keyword)
	if keyword == "" {
		if kws := Keywords(cleaned, in.Description); len(kws) > 0 {
			keyword = kws[0]
		}
	}
	bankName := s.pickBank(in.Category, cleaned)

	res := Result{Cleaned: cleaned, Keyword: keyword, Bank: bankName}
	for _, c := range s.candidates(cleaned, keyword, bankName) {
		if Acceptable(c, in.Original, keyword) {
			res.Title = c
			s.logger.Debug("title styled", "bank", bankName, "title", c)
			return res
		}
	}

	res.Title = Fallback(cleaned, in.Original)
	res.Fallback = true
	s.logger.Debug("title fallback", "title", res.Title)
	return res
}

// StyleWithLLM asks the model for a synonym rewrite of the cleaned title and
// falls back to Style when the answer breaks a constraint.
func (s *Styler) StyleWithLLM(ctx context.Context, in Input) Result {
	if s.llm == nil {
		return s.Style(in)
	}
	cleaned := Clean(in.Original)
	keyword := strings.TrimSpace(in.Keyword)
	if cleaned == "" || keyword == "" {
		return s.Style(in)
	}

	base := utf8.RuneCountInString(cleaned)
	lo, hi := int(float64(base)*0.85), int(float64(base)*1.15)
	raw, err := s.llm.Complete(ctx, ai.ChatRequest{
		Prompt:      synonymPrompt(cleaned, keyword, lo, hi),
		MaxTokens:   120,
		Temperature: 0.7,
	})
	if err != nil {
		s.logger.Warn("llm title rewrite failed", "error", err)
		return s.Style(in)
	}

	candidate := textutil.NormalizeSpace(strings.Trim(strings.TrimSpace(raw), `"'“”`))
	candidate = ensureKeyword(candidate, keyword)
	n := utf8.RuneCountInString(candidate)
	if n < lo || n > hi || !Acceptable(candidate, in.Original, keyword) {
		s.logger.Debug("llm title rejected", "title", candidate, "len", n, "min", lo, "max", hi)
		return s.Style(in)
	}
	return Result{Title: candidate, Cleaned: cleaned, Keyword: keyword, FromLLM: true}
}

// Acceptable reports whether candidate fits the length bounds, contains the
// keyword and differs from the original after normalisation.
func Acceptable(candidate, original, keyword string) bool {
	n := utf8.RuneCountInString(candidate)
	if n < MinLen || n > MaxLen {
		return false
	}
	if !ContainsKeyword(candidate, keyword) {
		return false
	}
	return textutil.Normalize(candidate) != textutil.Normalize(original)
}

// Fallback appends the analysis suffix to the cleaned title, keeping the
// result within MaxLen.
func Fallback(cleaned, original string) string {
	if cleaned == "" {
		cleaned = textutil.NormalizeSpace(original)
	}
	room := MaxLen - utf8.RuneCountInString(fallbackSuffix)
	return strings.TrimSpace(types.Truncate(cleaned, room)) + fallbackSuffix
}

func (s *Styler) pickBank(category, cleaned string) string {
	if b, ok := categoryBanks[strings.ToLower(category)]; ok {
		return b
	}
	switch {
	case questionRe.MatchString(cleaned):
		return "pergunta_direta"
	case urgentRe.MatchString(cleaned):
		return "urgente_atual"
	}
	if s.intn(2) == 0 {
		return "analise_profunda"
	}
	return "explicativo_didatico"
}

// candidates lists titles in preference order: the reworded original and
// framed originals when the source already carries the keyword, then the
// chosen bank, then the remaining banks.
func (s *Styler) candidates(cleaned, keyword, bankName string) []string {
	var out []string
	if cleaned != "" && ContainsKeyword(cleaned, keyword) {
		out = append(out, textutil.Capitalize(reword(cleaned)))
		for _, i := range s.perm(len(wrappers)) {
			out = append(out, textutil.Capitalize(strings.ReplaceAll(wrappers[i], "{base}", cleaned)))
		}
	}
	if keyword == "" {
		return out
	}
	fill := func(b bank) {
		for _, i := range s.perm(len(b.templates)) {
			out = append(out, textutil.Capitalize(strings.ReplaceAll(b.templates[i], "{keyword}", keyword)))
		}
	}
	fill(banks[bankName])
	for _, name := range bankOrder {
		if name != bankName {
			fill(banks[name])
		}
	}
	return out
}

func (s *Styler) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

func (s *Styler) perm(n int) []int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Perm(n)
}

// ContainsKeyword reports whether t holds keyword, either verbatim or as all
// of its content words, ignoring case.
func ContainsKeyword(t, keyword string) bool {
	if keyword == "" || strings.Contains(strings.ToLower(t), strings.ToLower(keyword)) {
		return true
	}
	have := make(map[string]bool)
	for _, w := range textutil.Words(t) {
		have[w] = true
	}
	words := textutil.Keywords(keyword, 3, 0)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !have[w] {
			return false
		}
	}
	return true
}

// ensureKeyword inserts keyword after the first word when it is missing.
func ensureKeyword(t, keyword string) string {
	if ContainsKeyword(t, keyword) {
		return t
	}
	words := strings.Fields(t)
	if len(words) < 2 {
		return strings.TrimSpace(keyword + " " + t)
	}
	return strings.Join(append([]string{words[0], keyword}, words[1:]...), " ")
}

func reword(t string) string {
	padded := " " + t + " "
	for _, pair := range synonyms {
		padded = strings.ReplaceAll(padded, " "+pair[0]+" ", " "+pair[1]+" ")
	}
	return strings.TrimSpace(padded)
}

func synonymPrompt(cleaned, keyword string, lo, hi int) string {
	var b strings.Builder
	b.WriteString("Você é um editor de notícias especializado em reescrever títulos de forma única e SEO-friendly.\n\n")
	b.WriteString("TAREFA: reescreva o título abaixo trocando palavras por sinônimos e reorganizando a estrutura, ")
	b.WriteString("mantendo o significado e a palavra-chave obrigatória.\n\n")
	b.WriteString("TÍTULO ORIGINAL: \"" + cleaned + "\"\n")
	b.WriteString("PALAVRA-CHAVE OBRIGATÓRIA: \"" + keyword + "\"\n\n")
	b.WriteString("REGRAS:\n")
	b.WriteString("1. A palavra-chave deve aparecer no título reescrito\n")
	b.WriteString("2. Troque palavras por sinônimos naturais em português brasileiro\n")
	b.WriteString("3. Mantenha o significado original\n")
	fmt.Fprintf(&b, "4. Tamanho: entre %d e %d caracteres\n", lo, hi)
	b.WriteString("5. NÃO mencione portais ou colunistas\n")
	b.WriteString("6. Responda APENAS com o título reescrito\n\n")
	b.WriteString("TÍTULO REESCRITO:")
	return b.String()
}
