package classifier

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"

	"github.com/IshaanNene/radarbr/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestClassify(t *testing.T) {
	c := New(testLogger)
	tests := []struct {
		name                  string
		title, content, topic string
		want                  string
	}{
		{
			"economy",
			"Inflação sobe e Banco Central eleva a Selic",
			"<p>O mercado reage à alta dos juros.</p>",
			"inflação Brasil",
			"economia",
		},
		{
			"foreign conflict",
			"Israel e Hamas negociam cessar-fogo em Gaza",
			"A guerra no Oriente Médio continua; ONU pede acordo.",
			"",
			"mundo",
		},
		{
			"sports phrase",
			"copa do mundo",
			"",
			"",
			"esportes",
		},
		{
			"vague topic falls back",
			"Dia bonito com sorrisos",
			"Pessoas felizes passeiam.",
			"boas vibrações",
			Fallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.title, tt.content, tt.topic)
			if got.Category != tt.want {
				t.Errorf("Classify = %q (score %.2f, scores %v), want %q", got.Category, got.Score, got.Scores, tt.want)
			}
		})
	}
}

func TestScoreArithmetic(t *testing.T) {
	// "copa" (+1) and "copa do mundo" (+2), density 2/30·5.
	scores := score(prepare("copa do mundo", "", ""))
	want := 3.0 + 2.0/30.0*5.0
	if math.Abs(scores["esportes"]-want) > 1e-9 {
		t.Errorf("esportes score = %v, want %v", scores["esportes"], want)
	}
}

func TestForeignBoostSuppressedByBrazilMention(t *testing.T) {
	with := score(prepare("China anuncia tarifas", "", ""))
	without := score(prepare("China anuncia tarifas contra o Brasil", "", ""))
	if with["mundo"] <= without["mundo"] {
		t.Errorf("foreign boost missing: %v vs %v", with["mundo"], without["mundo"])
	}
}

func TestConfidence(t *testing.T) {
	c := New(testLogger)
	if got := c.Confidence("", "", ""); got != 0 {
		t.Errorf("empty confidence = %v", got)
	}
	got := c.Confidence("copa do mundo", "", "")
	if got <= 0 || got > 1 {
		t.Errorf("confidence out of range: %v", got)
	}
}

func TestVocabularyIsClosed(t *testing.T) {
	want := []string{"política", "economia", "esportes", "saúde", "meio ambiente", "tecnologia", "mundo", "lazer", "brasil"}
	got := Vocabulary()
	if len(got) != len(want) {
		t.Fatalf("vocabulary = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vocabulary[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

type fakeLister struct {
	cats []types.Category
	err  error
}

func (f fakeLister) ListCategories(context.Context) ([]types.Category, error) { return f.cats, f.err }

func TestResolve(t *testing.T) {
	ctx := context.Background()
	cats := []types.Category{
		{ID: "1", Name: "Economia", Slug: "economia"},
		{ID: "2", Name: "Brasil", Slug: "brasil"},
	}
	tests := []struct {
		name    string
		cats    []types.Category
		in      string
		wantID  string
		wantErr bool
	}{
		{"case insensitive", cats, "ECONOMIA", "1", false},
		{"falls back to brasil", cats, "esportes", "2", false},
		{"first when no brasil", cats[:1], "esportes", "1", false},
		{"empty store", nil, "esportes", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(ctx, fakeLister{cats: tt.cats}, tt.in, "brasil")
			if tt.wantErr {
				if !errors.Is(err, types.ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("Resolve = %+v, want id %s", got, tt.wantID)
			}
		})
	}
}
