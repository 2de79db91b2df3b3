package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/radarbr/internal/textutil"
	"github.com/IshaanNene/radarbr/internal/types"
)

const (
	maxAttempts   = 2
	maxDekLen     = 300
	maxSourceText = 5000
	minSourceSize = 600

	rewriteSystem = "Você é um jornalista brasileiro especializado em criar artigos únicos e informativos."
)

var (
	fenceStart   = regexp.MustCompile("^\\s*```[a-zA-Z]*\\s*")
	fenceEnd     = regexp.MustCompile("\\s*```\\s*$")
	ellipsisHead = regexp.MustCompile(`^\s*(\.\.\.|…)\s*`)
	ellipsisTail = regexp.MustCompile(`\s*(\.\.\.|…)\s*$`)
	finalPunct   = regexp.MustCompile(`[.!?]["')\]]*$`)
)

// Envelope is the accepted word-count range of a rewritten body.
type Envelope struct {
	Target int // words the model is asked for
	Min    int // strict floor
	Max    int // strict ceiling; longer bodies are truncated
	Soft   int // floor accepted with a note
	Cap    int // truncation limit
}

// NewEnvelope sizes the envelope from the configured minimum words, or from
// the source body length when sourceWords is known and large enough.
func NewEnvelope(words, sourceWords int) Envelope {
	if sourceWords > 0 {
		target := max(minSourceSize, int(math.Floor(float64(sourceWords)*0.7)))
		if int(math.Ceil(float64(sourceWords)*1.15)) >= target {
			return band(sourceWords, target)
		}
		words = target
	}
	return band(words, words)
}

func band(base, target int) Envelope {
	e := Envelope{
		Target: target,
		Min:    int(math.Floor(float64(base) * 0.85)),
		Max:    int(math.Ceil(float64(base) * 1.15)),
		Cap:    int(math.Ceil(float64(base) * 1.1)),
	}
	e.Soft = min(e.Min, int(math.Floor(float64(target)*0.8)))
	return e
}

// RewriteRequest is the input of one rewrite.
type RewriteRequest struct {
	Topic       string
	Article     *types.ExtractedArticle
	Words       int
	SourceWords int    // 0 when the extracted length should not size the envelope
	Style       string // empty picks a random style
}

// Rewrite is an accepted rewritten body.
type Rewrite struct {
	Title        string // title suggested by the model, often empty
	Dek          string
	HTML         string
	Words        int
	Style        string
	Attempts     int
	Truncated    bool
	NearEnvelope bool
}

// Rewriter turns an extracted article into an original HTML body.
type Rewriter struct {
	llm    Completer
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewRewriter creates a Rewriter. A nil rng is seeded from the clock.
func NewRewriter(llm Completer, rng *rand.Rand, logger *slog.Logger) *Rewriter {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Rewriter{
		llm:    llm,
		rng:    rng,
		logger: logger.With("component", "rewriter"),
	}
}

// Rewrite asks the model for a body inside the envelope, retrying once.
// It returns ErrRewriteRejected when both attempts fail.
func (r *Rewriter) Rewrite(ctx context.Context, req RewriteRequest) (*Rewrite, error) {
	if req.Article == nil {
		return nil, fmt.Errorf("rewrite %q: no article: %w", req.Topic, types.ErrRewriteRejected)
	}
	env := NewEnvelope(req.Words, req.SourceWords)
	style := LookupStyle(req.Style)
	if req.Style == "" {
		r.rngMu.Lock()
		style = RandomStyle(r.rng)
		r.rngMu.Unlock()
	}
	prompt := buildRewritePrompt(req.Topic, req.Article, env, style)

	var lastErr error
	lastWords := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := r.llm.Complete(ctx, ChatRequest{System: rewriteSystem, Prompt: prompt})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("completion failed", "topic", req.Topic, "attempt", attempt, "error", err)
			lastErr = err
			continue
		}

		out, err := r.accept(raw, env)
		if err != nil {
			r.logger.Warn("rewrite outside envelope",
				"topic", req.Topic,
				"attempt", attempt,
				"error", err,
				"min", env.Min,
				"max", env.Max,
			)
			lastErr = err
			lastWords = out.Words
			continue
		}
		out.Style = style.Key
		out.Attempts = attempt
		r.logger.Info("rewrite accepted",
			"topic", req.Topic,
			"attempt", attempt,
			"words", out.Words,
			"style", style.Key,
			"truncated", out.Truncated,
		)
		return out, nil
	}

	r.logger.Warn(fmt.Sprintf("Rewrite rejected after %d attempts", maxAttempts),
		"topic", req.Topic,
		"last_words", lastWords,
		"soft_min", env.Soft,
	)
	return nil, fmt.Errorf("rewrite %q: %w", req.Topic, errors.Join(types.ErrRewriteRejected, lastErr))
}

// accept cleans a raw response and checks it against env. The returned
// Rewrite carries the word count even when rejected.
func (r *Rewriter) accept(raw string, env Envelope) (*Rewrite, error) {
	out := &Rewrite{}
	body := cleanResponse(raw)
	if strings.HasPrefix(body, "{") {
		var payload struct {
			Title string `json:"title"`
			Dek   string `json:"dek"`
			HTML  string `json:"html"`
		}
		if err := json.Unmarshal([]byte(extractJSON(body)), &payload); err == nil && payload.HTML != "" {
			body = cleanResponse(payload.HTML)
			out.Title = strings.TrimSpace(payload.Title)
			out.Dek = strings.TrimSpace(payload.Dek)
		}
	}

	body, err := sanitizeHTML(body)
	if err != nil {
		return out, fmt.Errorf("malformed html: %w", err)
	}
	out.Words = textutil.CountWords(body)

	switch {
	case out.Words > env.Max:
		body, err = truncateHTML(body, env.Cap)
		if err != nil {
			return out, fmt.Errorf("truncate: %w", err)
		}
		out.Truncated = true
		out.Words = textutil.CountWords(body)
		if out.Words < env.Soft {
			return out, fmt.Errorf("truncated to %d words, need at least %d", out.Words, env.Soft)
		}
		if out.Words < env.Min {
			out.NearEnvelope = true
			r.logger.Info("near envelope", "words", out.Words, "min", env.Min, "soft_min", env.Soft, "truncated", true)
		}
	case out.Words >= env.Min:
	case out.Words >= env.Soft:
		out.NearEnvelope = true
		r.logger.Info("near envelope", "words", out.Words, "min", env.Min, "soft_min", env.Soft)
	default:
		return out, fmt.Errorf("%d words, need at least %d", out.Words, env.Soft)
	}

	out.HTML = body
	if out.Dek == "" {
		out.Dek = DekFromHTML(body)
	}
	return out, nil
}

// cleanResponse strips markdown fences and leading or trailing ellipses.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = fenceStart.ReplaceAllString(s, "")
	s = fenceEnd.ReplaceAllString(s, "")
	s = ellipsisHead.ReplaceAllString(s, "")
	s = ellipsisTail.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// sanitizeHTML drops active content and inline event handlers.
func sanitizeHTML(s string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, iframe, object, embed, form").Remove()
	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		for _, node := range sel.Nodes {
			attrs := node.Attr[:0]
			for _, a := range node.Attr {
				if !strings.HasPrefix(strings.ToLower(a.Key), "on") {
					attrs = append(attrs, a)
				}
			}
			node.Attr = attrs
		}
	})
	out, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// truncateHTML keeps whole blocks while they fit in limit words, cuts the
// first paragraph that does not fit at a sentence boundary and drops the rest.
func truncateHTML(s string, limit int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", err
	}
	blocks := doc.Find("body").Children()
	if blocks.Length() == 0 {
		return "<p>" + cutSentences(textutil.StripTags(s), limit) + "</p>", nil
	}

	var (
		kept  []string
		heads []bool
		total int
	)
	blocks.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		outer, err := goquery.OuterHtml(sel)
		if err != nil {
			return true
		}
		n := textutil.CountWords(outer)
		if total+n <= limit {
			kept = append(kept, outer)
			heads = append(heads, isHeading(sel))
			total += n
			return true
		}
		if cut := cutSentences(textutil.StripTags(outer), limit-total); cut != "" && !isHeading(sel) {
			kept = append(kept, "<p>"+cut+"</p>")
			heads = append(heads, false)
		}
		return false
	})
	for len(kept) > 0 && heads[len(kept)-1] {
		kept = kept[:len(kept)-1]
		heads = heads[:len(heads)-1]
	}
	if len(kept) == 0 {
		return "<p>" + cutSentences(textutil.StripTags(s), limit) + "</p>", nil
	}
	return strings.Join(kept, "\n"), nil
}

// cutSentences returns the longest run of leading sentences of text that fits
// in limit words, ending with a period.
func cutSentences(text string, limit int) string {
	var (
		acc   []string
		count int
	)
	for _, sent := range textutil.Sentences(text) {
		n := len(strings.Fields(sent))
		if count+n > limit {
			break
		}
		acc = append(acc, sent)
		count += n
	}
	out := strings.TrimSpace(strings.Join(acc, " "))
	if out != "" && !finalPunct.MatchString(out) {
		out += "."
	}
	return out
}

func isHeading(sel *goquery.Selection) bool {
	switch goquery.NodeName(sel) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

// DekFromHTML returns the text of the first paragraph, at most 300 runes.
func DekFromHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return ""
	}
	text := textutil.NormalizeSpace(doc.Find("p").First().Text())
	if len([]rune(text)) <= maxDekLen {
		return text
	}
	cut := types.Truncate(text, maxDekLen-1)
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "…"
}

func buildRewritePrompt(topic string, ex *types.ExtractedArticle, env Envelope, style WritingStyle) string {
	base := ex.Body
	if base == "" {
		base = ex.Title + " " + ex.Description
	}
	base = types.Truncate(base, maxSourceText)

	var b strings.Builder
	b.WriteString("Papel: jornalista brasileiro sênior. Reescreva a notícia com naturalidade, precisão e SEO.\n\n")
	b.WriteString("Base (resumo factual, não copie literalmente):\n")
	fmt.Fprintf(&b, "Tópico: %s\n", topic)
	fmt.Fprintf(&b, "Título: %s\n", ex.Title)
	fmt.Fprintf(&b, "Descrição: %s\n", ex.Description)
	if ex.Date != "" {
		fmt.Fprintf(&b, "Data: %s\n", ex.Date)
	}
	fmt.Fprintf(&b, "Fonte/portal: %s\n", ex.Domain)
	fmt.Fprintf(&b, "Texto-base (trechos):\n%s\n\n", base)

	b.WriteString(style.Prompt(topic, env.Target))

	b.WriteString("\nRegras essenciais (responda exclusivamente em português do Brasil):\n")
	b.WriteString("- Reescreva completamente, sem copiar frases do original.\n")
	b.WriteString("- Preserve os fatos e não invente nomes, números ou datas.\n")
	b.WriteString("- Não use palavras em inglês, exceto termos técnicos consagrados.\n")
	b.WriteString("- Não mencione o nome do site fonte.\n")
	fmt.Fprintf(&b, "- Mantenha o tamanho final EXATAMENTE entre %d e %d palavras.\n\n", env.Target, env.Max)

	b.WriteString("Estrutura (EXATAMENTE 2 seções):\n")
	b.WriteString("<h2>[Primeira seção: contexto e desenvolvimentos]</h2>\n")
	b.WriteString("<p>[4 a 5 parágrafos informativos, cada um com 3 a 4 frases]</p>\n")
	b.WriteString("<h2>[Segunda seção: análise e perspectivas]</h2>\n")
	b.WriteString("<p>[4 a 5 parágrafos analíticos, cada um com 3 a 4 frases]</p>\n\n")

	b.WriteString("IMPORTANTE:\n")
	b.WriteString("- NÃO use ```html ou ``` no início\n")
	b.WriteString("- NÃO use ... no final\n")
	b.WriteString("- Saída APENAS HTML puro, sem markdown, sem CSS e sem scripts\n")
	b.WriteString("- Comece diretamente com <h2> e termine com </p>\n")
	return b.String()
}
