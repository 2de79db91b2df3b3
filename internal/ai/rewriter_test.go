package ai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/textutil"
	"github.com/IshaanNene/radarbr/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type stubCompleter struct {
	replies []string
	errs    []error
	calls   int
	last    ChatRequest
}

func (s *stubCompleter) Complete(_ context.Context, req ChatRequest) (string, error) {
	i := s.calls
	s.calls++
	s.last = req
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i >= len(s.replies) {
		return s.replies[len(s.replies)-1], nil
	}
	return s.replies[i], nil
}

// article builds an HTML body with exactly n words: a two-word heading
// followed by paragraphs of four five-word sentences.
func article(n int) string {
	var b strings.Builder
	b.WriteString("<h2>Contexto atual</h2>\n<p>")
	left := n - 2
	inPara := 0
	for left > 0 {
		k := min(5, left)
		words := make([]string, k)
		for i := range words {
			words[i] = "palavra"
		}
		b.WriteString(strings.Join(words, " ") + ". ")
		left -= k
		inPara++
		if inPara == 4 && left > 0 {
			b.WriteString("</p>\n<p>")
			inPara = 0
		}
	}
	b.WriteString("</p>")
	return b.String()
}

func testArticle() *types.ExtractedArticle {
	return &types.ExtractedArticle{
		URL:         "https://g1.globo.com/economia/noticia/inflacao.ghtml",
		Title:       "Inflação desacelera em setembro",
		Description: "IPCA sobe menos que o esperado",
		Body:        strings.Repeat("O índice de preços ao consumidor subiu no mês. ", 20),
		Domain:      "g1.globo.com",
	}
}

// fixedCompleter answers every request with the same reply and is safe for
// concurrent use.
type fixedCompleter string

func (f fixedCompleter) Complete(context.Context, ChatRequest) (string, error) {
	return string(f), nil
}

func newTestRewriter(c Completer) *Rewriter {
	return NewRewriter(c, rand.New(rand.NewSource(1)), testLogger)
}

func TestArticleHelperCountsExactly(t *testing.T) {
	for _, n := range []int{500, 800, 920, 921} {
		if got := textutil.CountWords(article(n)); got != n {
			t.Fatalf("article(%d) has %d words", n, got)
		}
	}
}

func TestNewEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		words, src int
		want       Envelope
	}{
		{"configured words", 800, 0, Envelope{Target: 800, Min: 680, Max: 920, Soft: 640, Cap: 880}},
		{"source sized", 800, 1000, Envelope{Target: 700, Min: 850, Max: 1150, Soft: 560, Cap: 1100}},
		{"short source uses floor", 800, 300, Envelope{Target: 600, Min: 510, Max: 690, Soft: 480, Cap: 660}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewEnvelope(tt.words, tt.src); got != tt.want {
				t.Errorf("NewEnvelope(%d, %d) = %+v, want %+v", tt.words, tt.src, got, tt.want)
			}
		})
	}
}

func TestRewriteAcceptsUpperBound(t *testing.T) {
	stub := &stubCompleter{replies: []string{article(920)}}
	out, err := newTestRewriter(stub).Rewrite(context.Background(), RewriteRequest{
		Topic: "inflação Brasil", Article: testArticle(), Words: 800,
	})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if out.Words != 920 || out.Truncated {
		t.Errorf("words = %d truncated = %v, want 920 untouched", out.Words, out.Truncated)
	}
	if out.Attempts != 1 || stub.calls != 1 {
		t.Errorf("attempts = %d calls = %d", out.Attempts, stub.calls)
	}
	if stub.last.System != rewriteSystem {
		t.Errorf("system prompt = %q", stub.last.System)
	}
}

func TestRewriteTruncatesJustAboveUpperBound(t *testing.T) {
	stub := &stubCompleter{replies: []string{article(921)}}
	out, err := newTestRewriter(stub).Rewrite(context.Background(), RewriteRequest{
		Topic: "inflação Brasil", Article: testArticle(), Words: 800,
	})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if !out.Truncated {
		t.Fatal("expected truncation")
	}
	if got := textutil.CountWords(out.HTML); got > 880 || got < 680 {
		t.Errorf("truncated to %d words, want within [680, 880]", got)
	}
	if !strings.HasSuffix(out.HTML, ".</p>") {
		t.Errorf("truncated body must end with a sentence: %q", out.HTML[len(out.HTML)-40:])
	}
	if !strings.HasPrefix(out.HTML, "<h2>") {
		t.Errorf("heading lost: %q", out.HTML[:40])
	}
}

// runOnParagraphs builds a heading followed by paragraphs that are each a
// single unpunctuated sentence of words words.
func runOnParagraphs(paras, words int) string {
	var b strings.Builder
	b.WriteString("<h2>Contexto atual</h2>")
	sentence := strings.TrimSpace(strings.Repeat("palavra ", words))
	for i := 0; i < paras; i++ {
		b.WriteString("\n<p>" + sentence + "</p>")
	}
	return b.String()
}

func TestRewriteRejectsTruncationBelowFloor(t *testing.T) {
	long := runOnParagraphs(3, 310)
	if got := textutil.CountWords(long); got != 932 {
		t.Fatalf("fixture has %d words", got)
	}
	stub := &stubCompleter{replies: []string{long, long}}
	_, err := newTestRewriter(stub).Rewrite(context.Background(), RewriteRequest{
		Topic: "inflação Brasil", Article: testArticle(), Words: 800,
	})
	if !errors.Is(err, types.ErrRewriteRejected) {
		t.Fatalf("expected ErrRewriteRejected, got %v", err)
	}
	if stub.calls != maxAttempts {
		t.Errorf("calls = %d, want %d", stub.calls, maxAttempts)
	}
}

func TestRewriteTruncationKeepsFloorOnRetry(t *testing.T) {
	stub := &stubCompleter{replies: []string{runOnParagraphs(3, 310), article(800)}}
	out, err := newTestRewriter(stub).Rewrite(context.Background(), RewriteRequest{
		Topic: "inflação Brasil", Article: testArticle(), Words: 800,
	})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if out.Attempts != 2 || out.Words != 800 || out.Truncated {
		t.Errorf("attempts = %d words = %d truncated = %v", out.Attempts, out.Words, out.Truncated)
	}
}

func TestRewriteConcurrentRandomStyles(t *testing.T) {
	rw := newTestRewriter(fixedCompleter(article(800)))
	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				out, err := rw.Rewrite(context.Background(), RewriteRequest{
					Topic: "inflação Brasil", Article: testArticle(), Words: 800,
				})
				if err != nil {
					errs <- err
					return
				}
				if LookupStyle(out.Style).Key != out.Style {
					errs <- errors.New("unknown style " + out.Style)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRewriteRejectedTwice(t *testing.T) {
	stub := &stubCompleter{replies: []string{article(500), article(500)}}
	_, err := newTestRewriter(stub).Rewrite(context.Background(), RewriteRequest{
		Topic: "inflação Brasil", Article: testArticle(), Words: 800,
	})
	if !errors.Is(err, types.ErrRewriteRejected) {
		t.Fatalf("expected ErrRewriteRejected, got %v", err)
	}
	if stub.calls != maxAttempts {
		t.Errorf("calls = %d, want %d", stub.calls, maxAttempts)
	}
	if got := types.SkipReason(err); got != types.ReasonRewriteRejected {
		t.Errorf("SkipReason = %q", got)
	}
}

func TestRewriteRetriesOnce(t *testing.T) {
	stub := &stubCompleter{replies: []string{article(300), article(800)}}
	out, err := newTestRewriter(stub).Rewrite(context.Background(), RewriteRequest{
		Topic: "inflação Brasil", Article: testArticle(), Words: 800,
	})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if out.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", out.Attempts)
	}
}

func TestRewriteCompletionErrorCountsAsAttempt(t *testing.T) {
	stub := &stubCompleter{
		replies: []string{"", article(800)},
		errs:    []error{&types.ProviderError{Provider: "openai", StatusCode: 500, Err: errors.New("boom")}},
	}
	out, err := newTestRewriter(stub).Rewrite(context.Background(), RewriteRequest{
		Topic: "x", Article: testArticle(), Words: 800,
	})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if out.Attempts != 2 {
		t.Errorf("attempts = %d", out.Attempts)
	}
}

func TestRewriteNearEnvelope(t *testing.T) {
	stub := &stubCompleter{replies: []string{article(650)}}
	out, err := newTestRewriter(stub).Rewrite(context.Background(), RewriteRequest{
		Topic: "x", Article: testArticle(), Words: 800,
	})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if !out.NearEnvelope || out.Words != 650 {
		t.Errorf("near = %v words = %d", out.NearEnvelope, out.Words)
	}
}

func TestRewriteStripsFencesAndEllipses(t *testing.T) {
	raw := "```html\n" + article(800) + "\n```"
	stub := &stubCompleter{replies: []string{raw}}
	out, err := newTestRewriter(stub).Rewrite(context.Background(), RewriteRequest{
		Topic: "x", Article: testArticle(), Words: 800,
	})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if strings.Contains(out.HTML, "```") {
		t.Error("fence left in body")
	}
	if got := cleanResponse("...<p>texto</p>..."); got != "<p>texto</p>" {
		t.Errorf("cleanResponse = %q", got)
	}
}

func TestRewriteAcceptsJSONPayload(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{
		"title": "Inflação perde força",
		"dek":   "Resumo curto",
		"html":  article(800),
	})
	stub := &stubCompleter{replies: []string{string(payload)}}
	out, err := newTestRewriter(stub).Rewrite(context.Background(), RewriteRequest{
		Topic: "x", Article: testArticle(), Words: 800,
	})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if out.Title != "Inflação perde força" || out.Dek != "Resumo curto" || out.Words != 800 {
		t.Errorf("payload not used: %+v", out)
	}
}

func TestRewriteNamedStyle(t *testing.T) {
	stub := &stubCompleter{replies: []string{article(800)}}
	out, err := newTestRewriter(stub).Rewrite(context.Background(), RewriteRequest{
		Topic: "x", Article: testArticle(), Words: 800, Style: "tecnico",
	})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if out.Style != "tecnico" || !strings.Contains(stub.last.Prompt, "Técnico/Analítico") {
		t.Errorf("style = %q", out.Style)
	}
}

func TestSanitizeHTML(t *testing.T) {
	got, err := sanitizeHTML(`<h2 onclick="x()">Título</h2><script>alert(1)</script><p onmouseover="y">Texto</p>`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "script") || strings.Contains(got, "onclick") || strings.Contains(got, "onmouseover") {
		t.Errorf("sanitizeHTML = %q", got)
	}
	if !strings.Contains(got, "<h2>Título</h2>") {
		t.Errorf("content lost: %q", got)
	}
}

func TestDekFromHTML(t *testing.T) {
	if got := DekFromHTML("<h2>A</h2><p>Primeiro parágrafo.</p><p>Segundo.</p>"); got != "Primeiro parágrafo." {
		t.Errorf("DekFromHTML = %q", got)
	}
	long := "<p>" + strings.Repeat("palavra ", 100) + "</p>"
	got := DekFromHTML(long)
	if n := len([]rune(got)); n > maxDekLen {
		t.Errorf("dek has %d runes", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("long dek should end with an ellipsis: %q", got)
	}
}

func TestStyles(t *testing.T) {
	if len(StyleKeys()) != 6 {
		t.Fatalf("styles = %v", StyleKeys())
	}
	if LookupStyle("desconhecido").Key != DefaultStyle {
		t.Error("unknown style should fall back to the default")
	}
	rng := rand.New(rand.NewSource(42))
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[RandomStyle(rng).Key] = true
	}
	if len(seen) != 6 {
		t.Errorf("random selection reached %d styles", len(seen))
	}
	p := LookupStyle("natural").Prompt("copa do mundo", 800)
	if !strings.Contains(p, "copa do mundo") || !strings.Contains(p, "800") {
		t.Errorf("prompt = %q", p)
	}
}

func TestLLMClientOpenAI(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  <h2>ok</h2>  "}}]}`))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig().LLM
	cfg.Endpoint = srv.URL
	cfg.APIKey = "sk-test"
	c := NewLLMClient(cfg, testLogger)

	out, err := c.Complete(context.Background(), ChatRequest{System: "s", Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "<h2>ok</h2>" {
		t.Errorf("out = %q", out)
	}
	if got["model"] != "gpt-4o-mini" || got["frequency_penalty"] != 0.5 || got["presence_penalty"] != 0.3 {
		t.Errorf("payload = %v", got)
	}
}

func TestLLMClientNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig().LLM
	cfg.Endpoint = srv.URL
	_, err := NewLLMClient(cfg, testLogger).Complete(context.Background(), ChatRequest{Prompt: "p"})
	var pe *types.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.StatusCode != http.StatusTooManyRequests || !pe.Retryable {
		t.Errorf("provider error = %+v", pe)
	}
}
