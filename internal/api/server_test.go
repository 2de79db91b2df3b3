package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/radarbr/internal/dashboard"
	"github.com/IshaanNene/radarbr/internal/observability"
	"github.com/IshaanNene/radarbr/internal/pipeline"
	"github.com/IshaanNene/radarbr/internal/storage"
	"github.com/IshaanNene/radarbr/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeRunner struct {
	mu      sync.Mutex
	topics  []string
	opts    pipeline.Options
	release chan struct{}
}

func (f *fakeRunner) RunBatch(ctx context.Context, topics []string, opts pipeline.Options) *pipeline.RunSummary {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return &pipeline.RunSummary{Canceled: true, SkippedByReason: map[string]int{}}
		}
	}
	f.mu.Lock()
	f.topics, f.opts = topics, opts
	f.mu.Unlock()
	return &pipeline.RunSummary{RunID: "r1", Attempted: len(topics), Persisted: len(topics), SkippedByReason: map[string]int{}}
}

// countingRunner records how many batches run at once.
type countingRunner struct {
	mu      sync.Mutex
	active  int
	peak    int
	release chan struct{}
}

func (c *countingRunner) RunBatch(ctx context.Context, topics []string, _ pipeline.Options) *pipeline.RunSummary {
	c.mu.Lock()
	c.active++
	c.peak = max(c.peak, c.active)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	}()
	select {
	case <-c.release:
	case <-ctx.Done():
	}
	return &pipeline.RunSummary{Attempted: len(topics), SkippedByReason: map[string]int{}}
}

type fakeTrends struct{}

func (fakeTrends) GetAll(_ context.Context, limit int) []types.TrendCandidate {
	all := []types.TrendCandidate{{Topic: "inflação", Score: 90}, {Topic: "eleições", Score: 80}}
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func newTestServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()
	s := NewServer(deps, testLogger)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		srv.Close()
		s.Close()
	})
	return srv
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	m := observability.NewMetrics(testLogger)
	m.TopicsPublished.Add(2)
	srv := newTestServer(t, Deps{Metrics: m, Store: storage.NewMemoryStore("https://radarbr.test", testLogger)})

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var health map[string]string
	decode(t, resp, &health)
	if health["status"] != "ok" || health["store"] != storage.BackendMemory {
		t.Errorf("health = %v", health)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "radarbr_topics_published_total 2") {
		t.Errorf("metrics missing counter:\n%s", buf.String())
	}

	resp, err = http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	var stats map[string]int64
	decode(t, resp, &stats)
	if stats["topics_published"] != 2 {
		t.Errorf("stats = %v", stats)
	}
}

func TestTrends(t *testing.T) {
	srv := newTestServer(t, Deps{Trends: fakeTrends{}})

	resp, err := http.Get(srv.URL + "/api/trends?limit=1")
	if err != nil {
		t.Fatal(err)
	}
	var cands []types.TrendCandidate
	decode(t, resp, &cands)
	if len(cands) != 1 || cands[0].Topic != "inflação" {
		t.Errorf("trends = %+v", cands)
	}

	resp, err = http.Get(srv.URL + "/api/trends?limit=x")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUnconfiguredRoutes(t *testing.T) {
	srv := newTestServer(t, Deps{})
	for _, path := range []string{"/api/trends", "/api/articles/x"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, resp.StatusCode)
		}
	}
}

func TestCreateRun(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	srv := newTestServer(t, Deps{Runner: runner})

	body := `{"topics":[" inflação ","", "eleições"],"words":600,"dry_run":true}`
	resp, err := http.Post(srv.URL+"/api/runs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var run Run
	decode(t, resp, &run)
	if (run.Status != RunQueued && run.Status != RunRunning) || len(run.Topics) != 2 || !run.DryRun {
		t.Fatalf("run = %+v", run)
	}

	close(runner.release)
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/api/runs/" + run.ID)
		if err != nil {
			t.Fatal(err)
		}
		var got Run
		decode(t, resp, &got)
		if got.Status == RunDone {
			if got.Summary == nil || got.Summary.Persisted != 2 || got.FinishedAt == nil {
				t.Errorf("run = %+v", got)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.topics[0] != "inflação" || runner.opts.Words != 600 || !runner.opts.DryRun {
		t.Errorf("runner got topics=%v opts=%+v", runner.topics, runner.opts)
	}

	resp, err = http.Get(srv.URL + "/api/runs")
	if err != nil {
		t.Fatal(err)
	}
	var runs []Run
	decode(t, resp, &runs)
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("runs = %+v", runs)
	}
}

func TestCreateRunValidation(t *testing.T) {
	srv := newTestServer(t, Deps{Runner: &fakeRunner{}})
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"no topics", `{"topics":["  "]}`},
		{"negative words", `{"topics":["a"],"words":-1}`},
		{"too many", `{"topics":["a","b","c","d","e","f","g","h","i","j","k","l","m","n","o","p","q","r","s","t","u"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/runs", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestGetRunNotFound(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp, err := http.Get(srv.URL + "/api/runs/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestArticleCounters(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore("https://radarbr.test", testLogger)
	a := &types.Article{Title: "Copom mantém a Selic", Content: "<p>x</p>"}
	if err := store.SaveArticle(ctx, a); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, Deps{Store: store})

	for _, counter := range []string{"view", "view", "click", "share"} {
		resp, err := http.Post(srv.URL+"/api/articles/"+a.Slug+"/"+counter, "", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", counter, resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "/api/articles/" + a.Slug)
	if err != nil {
		t.Fatal(err)
	}
	var got types.Article
	decode(t, resp, &got)
	if got.Views != 2 || got.Clicks != 1 || got.Shares != 1 {
		t.Errorf("counters = %d/%d/%d", got.Views, got.Clicks, got.Shares)
	}

	for path, want := range map[string]int{
		"/api/articles/" + a.Slug + "/like": http.StatusNotFound,
		"/api/articles/missing/view":        http.StatusNotFound,
	} {
		resp, err := http.Post(srv.URL+path, "", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("%s status = %d, want %d", path, resp.StatusCode, want)
		}
	}
}

func TestRunsAreSerialised(t *testing.T) {
	runner := &countingRunner{release: make(chan struct{})}
	srv := newTestServer(t, Deps{Runner: runner})

	var ids []string
	for _, topic := range []string{"inflação", "eleições", "futebol"} {
		resp, err := http.Post(srv.URL+"/api/runs", "application/json", strings.NewReader(`{"topics":["`+topic+`"]}`))
		if err != nil {
			t.Fatal(err)
		}
		var run Run
		decode(t, resp, &run)
		ids = append(ids, run.ID)
	}

	queued := 0
	deadline := time.Now().Add(5 * time.Second)
	for queued != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected two queued runs, have %d", queued)
		}
		time.Sleep(10 * time.Millisecond)
		queued = 0
		for _, id := range ids {
			resp, err := http.Get(srv.URL + "/api/runs/" + id)
			if err != nil {
				t.Fatal(err)
			}
			var got Run
			decode(t, resp, &got)
			if got.Status == RunQueued {
				queued++
			}
		}
	}
	close(runner.release)

	for _, id := range ids {
		for {
			resp, err := http.Get(srv.URL + "/api/runs/" + id)
			if err != nil {
				t.Fatal(err)
			}
			var got Run
			decode(t, resp, &got)
			if got.Status == RunDone {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("run %s did not finish", id)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.peak != 1 {
		t.Errorf("%d batches ran at once, want 1", runner.peak)
	}
}

func TestCloseCancelsRuns(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	s := NewServer(Deps{Runner: runner}, testLogger)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/runs", "application/json", strings.NewReader(`{"topics":["a"]}`))
	if err != nil {
		t.Fatal(err)
	}
	var run Run
	decode(t, resp, &run)

	s.Close()
	resp, err = http.Get(srv.URL + "/api/runs/" + run.ID)
	if err != nil {
		t.Fatal(err)
	}
	var got Run
	decode(t, resp, &got)
	if got.Status != RunDone || got.Summary == nil || !got.Summary.Canceled {
		t.Errorf("run = %+v", got)
	}
}

func TestDashboard(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("without dashboard status = %d, want 404", resp.StatusCode)
	}

	d, err := dashboard.New(dashboard.Page{Version: "test"}, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	srv = newTestServer(t, Deps{Dashboard: d})
	resp, err = http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("status = %d content type = %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}
