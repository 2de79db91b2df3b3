package title

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/IshaanNene/radarbr/internal/ai"
	"github.com/IshaanNene/radarbr/internal/textutil"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestStyler(llm ai.Completer) *Styler {
	return NewStyler(llm, rand.New(rand.NewSource(7)), testLogger)
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Inflação desacelera em setembro - G1", "Inflação desacelera em setembro"},
		{"Dólar fecha em queda | Folha", "Dólar fecha em queda"},
		{"Governo anuncia pacote (Estadão)", "Governo anuncia pacote"},
		{"Mercado reage ao Copom — CNN Brasil", "Mercado reage ao Copom"},
		{"Opinião — O futuro da reforma tributária", "O futuro da reforma tributária"},
		{"Por Maria Silva: O que esperar do Copom", "O que esperar do Copom"},
		{"Miriam Leitão: Juros seguem altos no país", "Juros seguem altos no país"},
		{"G1 - Chuvas atingem o Sul do país", "Chuvas atingem o Sul do país"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStyleConstraints(t *testing.T) {
	s := newTestStyler(nil)
	inputs := []Input{
		{Original: "Inflação desacelera em setembro - G1", Keyword: "inflação", Category: "economia"},
		{Original: "Seleção vence e garante vaga na Copa do Mundo | UOL", Keyword: "copa do mundo", Category: "esportes"},
		{Original: "Senado aprova reforma tributária", Keyword: "reforma tributária", Category: "política"},
		{Original: "Novo chip promete baterias mais duradouras", Keyword: "inteligência artificial"},
	}
	for _, in := range inputs {
		res := s.Style(in)
		n := utf8.RuneCountInString(res.Title)
		if n < MinLen || n > MaxLen {
			t.Errorf("%q: length %d out of bounds: %q", in.Original, n, res.Title)
		}
		if !ContainsKeyword(res.Title, in.Keyword) {
			t.Errorf("%q: keyword %q missing from %q", in.Original, in.Keyword, res.Title)
		}
		if textutil.Normalize(res.Title) == textutil.Normalize(in.Original) {
			t.Errorf("%q: title not distinct", in.Original)
		}
	}
}

func TestStyleUsesCategoryBank(t *testing.T) {
	res := newTestStyler(nil).Style(Input{Original: "Algo aconteceu", Keyword: "juros", Category: "economia"})
	if res.Bank != "economico_financeiro" {
		t.Errorf("bank = %q", res.Bank)
	}
}

func TestStyleFallback(t *testing.T) {
	long := strings.Repeat("palavra ", 30)
	res := newTestStyler(nil).Style(Input{Original: long, Keyword: strings.Repeat("chave", 30)})
	if !res.Fallback {
		t.Fatalf("expected fallback, got %q", res.Title)
	}
	if !strings.HasSuffix(res.Title, fallbackSuffix) {
		t.Errorf("fallback = %q", res.Title)
	}
	if utf8.RuneCountInString(res.Title) > MaxLen {
		t.Errorf("fallback too long: %d", utf8.RuneCountInString(res.Title))
	}
}

func TestContainsKeyword(t *testing.T) {
	if !ContainsKeyword("Inflação no Brasil perde força", "inflação Brasil") {
		t.Error("content words should satisfy the keyword")
	}
	if ContainsKeyword("Inflação perde força", "inflação Brasil") {
		t.Error("missing word should fail")
	}
}

type fixedCompleter struct {
	out string
	err error
}

func (f fixedCompleter) Complete(context.Context, ai.ChatRequest) (string, error) { return f.out, f.err }

func TestStyleWithLLM(t *testing.T) {
	in := Input{Original: "Tesla pede que Suprema Corte restabeleça pagamento de Musk - G1", Keyword: "Tesla"}

	res := newTestStyler(fixedCompleter{out: `"Tesla solicita que Corte Suprema restaure bônus de Musk"`}).StyleWithLLM(context.Background(), in)
	if !res.FromLLM {
		t.Fatalf("expected llm title, got %+v", res)
	}
	if res.Title != "Tesla solicita que Corte Suprema restaure bônus de Musk" {
		t.Errorf("title = %q", res.Title)
	}

	res = newTestStyler(fixedCompleter{out: "Curto"}).StyleWithLLM(context.Background(), in)
	if res.FromLLM {
		t.Error("short llm answer must fall back to templates")
	}

	res = newTestStyler(fixedCompleter{err: errors.New("down")}).StyleWithLLM(context.Background(), in)
	if res.FromLLM || res.Title == "" {
		t.Errorf("error must fall back to templates: %+v", res)
	}
}

func TestEnsureKeyword(t *testing.T) {
	if got := ensureKeyword("Mercado reage bem", "dólar"); got != "Mercado dólar reage bem" {
		t.Errorf("ensureKeyword = %q", got)
	}
}
