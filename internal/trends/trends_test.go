package trends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/fetcher"
	"github.com/IshaanNene/radarbr/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(t *testing.T) *fetcher.HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig().Fetcher
	cfg.MaxRetries = 0
	f, err := fetcher.NewHTTPFetcher(&cfg, testLogger)
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func serve(t *testing.T, status int, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleNewsProvider(t *testing.T) {
	srv := serve(t, http.StatusOK, "application/rss+xml", `<?xml version="1.0"?><rss version="2.0"><channel>
<item><title>Copom mantém Selic em 10,5% ao ano - g1</title><link>https://news.google.com/a</link></item>
<item><title>Senado aprova reforma tributária em segundo turno - Folha de S.Paulo</title><link>https://news.google.com/b</link></item>
</channel></rss>`)
	p := NewGoogleNewsProvider(newTestFetcher(t), 5*time.Second)
	p.URL = srv.URL

	got, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates", len(got))
	}
	if got[0].Score != 90 || got[1].Score != 87 {
		t.Errorf("scores = %v, %v", got[0].Score, got[1].Score)
	}
	if got[0].OriginalTitle != "Copom mantém Selic em 10,5% ao ano" {
		t.Errorf("publisher suffix kept: %q", got[0].OriginalTitle)
	}
	if got[0].Topic != "copom mantém selic" {
		t.Errorf("topic = %q", got[0].Topic)
	}
	if got[1].Category != "política" {
		t.Errorf("category = %q", got[1].Category)
	}
}

func TestGoogleTrendsProvider(t *testing.T) {
	srv := serve(t, http.StatusOK, "application/json", `)]}',
{"default":{"trendingSearchesDays":[{"trendingSearches":[
{"title":{"query":"Flamengo x Palmeiras"},"formattedTraffic":"200 mil+"},
{"title":{"query":"Dólar hoje"}},
{"title":{"query":"Vacina da dengue"}}]}]}}`)
	p := NewGoogleTrendsProvider(newTestFetcher(t), 5*time.Second)
	p.URL = srv.URL

	got, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candidates", len(got))
	}
	wantScores := []float64{100, 95, 90}
	for i, c := range got {
		if c.Score != wantScores[i] {
			t.Errorf("score[%d] = %v, want %v", i, c.Score, wantScores[i])
		}
	}
	if got[0].Category != "esportes" || got[2].Category != "saúde" {
		t.Errorf("categories = %q, %q", got[0].Category, got[2].Category)
	}
	if got[0].Meta["traffic"] != "200 mil+" {
		t.Errorf("meta = %v", got[0].Meta)
	}
}

func TestGoogleTrendsFallback(t *testing.T) {
	srv := serve(t, http.StatusTooManyRequests, "text/plain", "slow down")
	p := NewGoogleTrendsProvider(newTestFetcher(t), 5*time.Second)
	p.URL = srv.URL

	got, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != len(fallbackTopics) {
		t.Fatalf("got %d candidates", len(got))
	}
	if got[0].Topic != "eleições 2026" || got[0].Score != 80 || got[1].Score != 77 {
		t.Errorf("first = %+v, second score %v", got[0], got[1].Score)
	}
}

func TestRedditProvider(t *testing.T) {
	var children []string
	children = append(children, `{"data":{"title":"Post fraco sobre nada","score":50}}`)
	children = append(children, `{"data":{"title":"Governo anuncia corte de gastos","score":2400,"permalink":"/r/brasil/1"}}`)
	for i := 0; i < 20; i++ {
		children = append(children, fmt.Sprintf(`{"data":{"title":"Assunto número %d em destaque","score":%d}}`, i, 100+i))
	}
	srv := serve(t, http.StatusOK, "application/json", `{"data":{"children":[`+strings.Join(children, ",")+`]}}`)

	p := NewRedditProvider(newTestFetcher(t), 5*time.Second, 50)
	p.URL = srv.URL
	got, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 15 {
		t.Fatalf("got %d candidates, want 15", len(got))
	}
	if got[0].OriginalTitle != "Governo anuncia corte de gastos" {
		t.Errorf("score 50 post should be dropped, first = %q", got[0].OriginalTitle)
	}
	if got[0].Score != 100 {
		t.Errorf("score should cap at 100, got %v", got[0].Score)
	}
	if got[1].Score != 10 {
		t.Errorf("score = %v, want 10", got[1].Score)
	}
	if got[0].URL != "https://www.reddit.com/r/brasil/1" {
		t.Errorf("url = %q", got[0].URL)
	}
}

func TestNewsSitesProvider(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><h1>Curto</h1>")
	for i := 0; i < 14; i++ {
		fmt.Fprintf(&b, "<h2>Manchete de capa número %d</h2>", i)
	}
	b.WriteString("</body></html>")
	good := serve(t, http.StatusOK, "text/html", b.String())
	bad := serve(t, http.StatusInternalServerError, "text/html", "")

	p := NewNewsSitesProvider(newTestFetcher(t), 5*time.Second, []string{bad.URL, good.URL})
	got, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != headlinesPerSite {
		t.Fatalf("got %d candidates", len(got))
	}
	for _, c := range got {
		if c.Score != 70 || c.Source != NewsSites {
			t.Errorf("candidate = %+v", c)
		}
	}
}

func TestStaticProviders(t *testing.T) {
	tw, _ := NewTwitterProvider().Fetch(context.Background())
	if tw[0].Topic != "eleições 2026" || tw[0].Score != 100 || tw[4].Score != 30 {
		t.Errorf("twitter = %+v", tw)
	}
	yt, _ := NewYouTubeProvider().Fetch(context.Background())
	if yt[0].Score != 100 || yt[4].Score != 40 {
		t.Errorf("youtube = %+v", yt)
	}
	june := &SeasonalProvider{Now: func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }}
	sp, _ := june.Fetch(context.Background())
	if len(sp) != 3 || sp[0].Topic != "festas juninas" || sp[0].Score != 60 {
		t.Errorf("seasonal = %+v", sp)
	}
}

type fakeProvider struct {
	name  string
	cands []types.TrendCandidate
	err   error
}

func (f fakeProvider) Name() string { return f.name }
func (f fakeProvider) Fetch(context.Context) ([]types.TrendCandidate, error) {
	return f.cands, f.err
}

func TestGetAll(t *testing.T) {
	src := NewSource(testLogger,
		fakeProvider{name: "a", cands: []types.TrendCandidate{
			{Topic: "reforma tributária senado", Score: 80},
			{Topic: "previsão do tempo", Score: 99},
			{Topic: "dólar", Score: 50},
		}},
		fakeProvider{name: "broken", err: errors.New("boom")},
		fakeProvider{name: "b", cands: []types.TrendCandidate{
			{Topic: "reforma tributária senado aprova", Score: 95},
			{Topic: "copa do mundo", Score: 80},
			{Topic: "vacina dengue", Score: 85},
		}},
	)

	got := src.GetAll(context.Background(), 3)
	want := []string{"vacina dengue", "reforma tributária senado", "copa do mundo"}
	if strings.Join(Topics(got), "|") != strings.Join(want, "|") {
		t.Errorf("GetAll = %v, want %v", Topics(got), want)
	}
}

// orderedProvider records when it was queried.
type orderedProvider struct {
	name   string
	calls  *[]string
	cancel context.CancelFunc
}

func (p orderedProvider) Name() string { return p.name }
func (p orderedProvider) Fetch(context.Context) ([]types.TrendCandidate, error) {
	*p.calls = append(*p.calls, p.name)
	if p.cancel != nil {
		p.cancel()
	}
	return []types.TrendCandidate{{Topic: "tema de " + p.name, Score: 10}}, nil
}

func TestGetAllQueriesInPriorityOrder(t *testing.T) {
	var calls []string
	src := NewSource(testLogger,
		orderedProvider{name: "google_trends", calls: &calls},
		orderedProvider{name: "google_news", calls: &calls},
		orderedProvider{name: "reddit", calls: &calls},
	)
	src.GetAll(context.Background(), 0)
	if got := strings.Join(calls, ","); got != "google_trends,google_news,reddit" {
		t.Errorf("calls = %s", got)
	}
}

func TestGetAllStopsOnCancel(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := NewSource(testLogger,
		orderedProvider{name: "google_trends", calls: &calls, cancel: cancel},
		orderedProvider{name: "google_news", calls: &calls},
	)
	got := src.GetAll(ctx, 0)
	if strings.Join(calls, ",") != "google_trends" {
		t.Errorf("calls = %v", calls)
	}
	if len(got) != 1 || got[0].Topic != "tema de google_trends" {
		t.Errorf("GetAll = %v", Topics(got))
	}
}

func TestGetAllEmpty(t *testing.T) {
	src := NewSource(testLogger, fakeProvider{name: "x", err: errors.New("down")})
	if got := src.GetAll(context.Background(), 10); len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	cfg := config.DefaultConfig().Trends
	cfg.Providers = []string{"google_news", "orkut"}
	_, err := New(cfg, newTestFetcher(t), testLogger)
	var ce *types.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestExtractTopic(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Lula anuncia novo pacote de investimentos em infraestrutura", "lula anuncia pacote"},
		{"Inflação, de novo", "inflação"},
		{"O que é o PIX", "O que é o PIX"},
		{"Notícias do Brasil e do mundo sobre tudo que acontece", "mundo tudo acontece"},
	}
	for _, tt := range tests {
		if got := ExtractTopic(tt.in); got != tt.want {
			t.Errorf("ExtractTopic(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCategorizeTopic(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Eleições 2026", "política"},
		{"Dólar dispara", "economia"},
		{"IA generativa nas escolas", "tecnologia"},
		{"Flamengo vence", "esportes"},
		{"Surto de dengue lota hospital", "saúde"},
		{"Seca na Amazônia e crise hídrica", "meio ambiente"},
		{"Show de rock", "geral"},
	}
	for _, tt := range tests {
		if got := CategorizeTopic(tt.in); got != tt.want {
			t.Errorf("CategorizeTopic(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsNoisy(t *testing.T) {
	noisy := []string{"pix", "jogo do flamengo hoje", "Mega-Sena 2750", "resultado lotofacil", "que horas são", "previsão do tempo sp", "Fases da Lua", "vai chover amanhã"}
	for _, s := range noisy {
		if !IsNoisy(s) {
			t.Errorf("IsNoisy(%q) = false", s)
		}
	}
	clean := []string{"reforma tributária", "quinta-feira santa", "Copom mantém Selic"}
	for _, s := range clean {
		if IsNoisy(s) {
			t.Errorf("IsNoisy(%q) = true", s)
		}
	}
}

func TestSeasonalTopics(t *testing.T) {
	for m := 1; m <= 12; m++ {
		if len(SeasonalTopics(m)) == 0 {
			t.Errorf("month %d has no topics", m)
		}
	}
	if SeasonalTopics(13) != nil {
		t.Error("invalid month should return nil")
	}
}
