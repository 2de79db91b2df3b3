package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/fetcher"
	"github.com/IshaanNene/radarbr/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeLoader maps a requested URL to the page it lands on. A missing entry
// is a load failure.
type fakeLoader struct {
	mu    sync.Mutex
	pages map[string]*types.PageResult
	fails map[string]int // remaining failures before pages[url] is served
	calls []string
}

func (f *fakeLoader) Load(_ context.Context, url string) (*types.PageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if f.fails[url] > 0 {
		f.fails[url]--
		return nil, errors.New("navigation timeout")
	}
	p, ok := f.pages[url]
	if !ok {
		return nil, errors.New("navigation timeout")
	}
	return &types.PageResult{FinalURL: p.FinalURL, HTML: p.HTML}, nil
}

func newTestResolver(t *testing.T, rssURL string, loader PageLoader) *Resolver {
	t.Helper()
	fc := config.DefaultConfig().Fetcher
	fc.MaxRetries = 0
	hf, err := fetcher.NewHTTPFetcher(&fc, testLogger)
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	t.Cleanup(func() { hf.Close() })

	r := New(config.ResolverConfig{
		Attempts:   2,
		RetryPause: 3 * time.Second,
		MaxItems:   3,
		MaxPeers:   3,
		RSSBaseURL: rssURL,
	}, loader, hf, testLogger)
	r.pause = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return r
}

func rssServer(t *testing.T, links ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("hl") != "pt-BR" || r.URL.Query().Get("ceid") != "BR:pt-BR" {
			http.Error(w, "bad locale", http.StatusBadRequest)
			return
		}
		var items strings.Builder
		for i, l := range links {
			fmt.Fprintf(&items, `<item><title>Manchete %d - Publisher %d</title><link>%s</link><pubDate>Wed, 19 Jun 2024 21:30:00 GMT</pubDate></item>`, i+1, i+1, l)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Busca</title>%s</channel></rss>`, items.String())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveSecondItemAfterFirstFails(t *testing.T) {
	gn1 := "https://news.google.com/rss/articles/AAA?oc=5"
	gn2 := "https://news.google.com/rss/articles/BBB?oc=5"
	srv := rssServer(t, gn1, gn2)

	loader := &fakeLoader{pages: map[string]*types.PageResult{
		gn2: {FinalURL: "https://g1.globo.com/economia/noticia/copom.ghtml", HTML: "<html></html>"},
	}}
	r := newTestResolver(t, srv.URL, loader)

	res, err := r.Resolve(context.Background(), "copom selic")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Page.FinalURL != "https://g1.globo.com/economia/noticia/copom.ghtml" {
		t.Errorf("final url = %q", res.Page.FinalURL)
	}
	if res.Item.Publisher != "Publisher 2" || res.Item.Title != "Manchete 2" {
		t.Errorf("item = %+v", res.Item)
	}
	if res.Item.Published.IsZero() {
		t.Error("published date not parsed")
	}
	// two attempts on the first link, one on the second
	if len(loader.calls) != 3 {
		t.Errorf("loader calls = %v", loader.calls)
	}
}

func TestResolveNoItems(t *testing.T) {
	srv := rssServer(t)
	loader := &fakeLoader{}
	r := newTestResolver(t, srv.URL, loader)

	_, err := r.Resolve(context.Background(), "tema sem resultados")
	if !errors.Is(err, types.ErrResolveExhausted) {
		t.Fatalf("expected ErrResolveExhausted, got %v", err)
	}
	if len(loader.calls) != 0 {
		t.Errorf("loader should not be called: %v", loader.calls)
	}
	if types.SkipReason(err) != types.ReasonResolveExhausted {
		t.Errorf("SkipReason = %q", types.SkipReason(err))
	}
}

func TestResolveExhaustedWithinBudget(t *testing.T) {
	links := []string{
		"https://news.google.com/rss/articles/1",
		"https://news.google.com/rss/articles/2",
		"https://news.google.com/rss/articles/3",
		"https://news.google.com/rss/articles/4",
	}
	srv := rssServer(t, links...)
	loader := &fakeLoader{}
	r := newTestResolver(t, srv.URL, loader)

	_, err := r.Resolve(context.Background(), "falha total")
	if !errors.Is(err, types.ErrResolveExhausted) {
		t.Fatalf("expected ErrResolveExhausted, got %v", err)
	}
	// three items, two attempts each; the fourth item is never tried
	if len(loader.calls) != 6 {
		t.Errorf("loader calls = %d: %v", len(loader.calls), loader.calls)
	}
	for _, c := range loader.calls {
		if c == links[3] {
			t.Error("item beyond MaxItems was loaded")
		}
	}
}

func TestResolveLinkFallsBackToPeers(t *testing.T) {
	gn := "https://news.google.com/articles/CBM123"
	cluster := `<html><body>
<a href="./articles/other">interno</a>
<a href="https://www.google.com/url?url=https://www.estadao.com.br/economia/selic/&utm_source=gn">Estadão</a>
<a href="https://www.youtube.com/watch?v=1">vídeo</a>
<a href="https://www1.folha.uol.com.br/mercado/selic.shtml">Folha</a>
</body></html>`
	loader := &fakeLoader{pages: map[string]*types.PageResult{
		gn: {FinalURL: gn, HTML: cluster},
		"https://www1.folha.uol.com.br/mercado/selic.shtml": {
			FinalURL: "https://www1.folha.uol.com.br/mercado/selic.shtml",
			HTML:     "<html></html>",
		},
	}}
	r := newTestResolver(t, "http://unused.invalid", loader)

	page, err := r.ResolveLink(context.Background(), gn)
	if err != nil {
		t.Fatalf("ResolveLink: %v", err)
	}
	if page.FinalURL != "https://www1.folha.uol.com.br/mercado/selic.shtml" {
		t.Errorf("final url = %q", page.FinalURL)
	}
	// estadão peer failed before folha succeeded
	want := []string{gn, "https://www.estadao.com.br/economia/selic/", "https://www1.folha.uol.com.br/mercado/selic.shtml"}
	if strings.Join(loader.calls, " ") != strings.Join(want, " ") {
		t.Errorf("calls = %v, want %v", loader.calls, want)
	}
}

func TestResolveDirectURLRetries(t *testing.T) {
	u := "https://www.cnnbrasil.com.br/politica/x/"
	loader := &fakeLoader{
		pages: map[string]*types.PageResult{u: {FinalURL: u, HTML: "<html></html>"}},
		fails: map[string]int{u: 1},
	}
	r := newTestResolver(t, "http://unused.invalid", loader)

	res, err := r.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Via != u || len(loader.calls) != 2 {
		t.Errorf("via = %q calls = %v", res.Via, loader.calls)
	}
}

func TestResolveCanceled(t *testing.T) {
	u := "https://news.google.com/rss/articles/X"
	loader := &fakeLoader{}
	r := newTestResolver(t, "http://unused.invalid", loader)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ResolveLink(ctx, u)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExternalLinks(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body>
<a href="/search?q=x">busca</a>
<a href="#top">topo</a>
<a href="javascript:void(0)">js</a>
<a href="mailto:a@b.com">mail</a>
<a href="https://g1.globo.com/a/?utm_source=gn#x">g1</a>
<a href="https://g1.globo.com/a">g1 de novo</a>
<a href="https://www.google.com/url?q=https://www.uol.com.br/b">uol</a>
<a href="https://lh3.googleusercontent.com/img.png">img</a>
</body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	got := ExternalLinks("https://news.google.com/articles/1", doc)
	want := []string{"https://g1.globo.com/a/?utm_source=gn#x", "https://www.uol.com.br/b"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("ExternalLinks = %v, want %v", got, want)
	}
}

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"HTTPS://G1.Globo.com:443/Economia/", "https://g1.globo.com/Economia"},
		{"https://x.com/a?b=2&a=1&utm_medium=rss#frag", "https://x.com/a?a=1&b=2"},
		{"http://x.com", "http://x.com/"},
	}
	for _, tt := range tests {
		if got := CanonicalizeURL(tt.in); got != tt.want {
			t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitPublisher(t *testing.T) {
	title, pub := SplitPublisher("Dólar fecha em alta - Valor Econômico - Valor Econômico")
	if title != "Dólar fecha em alta - Valor Econômico" || pub != "Valor Econômico" {
		t.Errorf("got %q / %q", title, pub)
	}
	title, pub = SplitPublisher("Sem publisher")
	if title != "Sem publisher" || pub != "" {
		t.Errorf("got %q / %q", title, pub)
	}
}

func TestSearchURL(t *testing.T) {
	got := SearchURL(DefaultRSSBase, "dólar hoje")
	want := "https://news.google.com/rss/search?q=d%C3%B3lar+hoje&hl=pt-BR&gl=BR&ceid=BR:pt-BR"
	if got != want {
		t.Errorf("SearchURL = %q", got)
	}
}

func TestChainLoader(t *testing.T) {
	u := "https://news.google.com/rss/articles/Z"
	stuck := &fakeLoader{pages: map[string]*types.PageResult{u: {FinalURL: u}}}
	good := &fakeLoader{pages: map[string]*types.PageResult{u: {FinalURL: "https://www.uol.com.br/z"}}}

	page, err := Chain(testLogger, stuck, good).Load(context.Background(), u)
	if err != nil {
		t.Fatal(err)
	}
	if page.FinalURL != "https://www.uol.com.br/z" {
		t.Errorf("final url = %q", page.FinalURL)
	}

	page, err = Chain(testLogger, stuck).Load(context.Background(), u)
	if err != nil || page.FinalURL != u {
		t.Errorf("single stuck loader: %v %v", page, err)
	}

	if _, err := Chain(testLogger, &fakeLoader{}).Load(context.Background(), u); err == nil {
		t.Error("expected error when every loader fails")
	}
}
