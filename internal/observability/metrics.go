package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks operational metrics for the publishing pipeline.
type Metrics struct {
	// Run metrics
	RunsTotal   atomic.Int64
	RunsBlocked atomic.Int64
	LastRunUnix atomic.Int64

	// Topic metrics
	TopicsTotal     atomic.Int64
	TopicsPublished atomic.Int64
	TopicsFailed    atomic.Int64

	// Stage metrics
	ResolveFailures atomic.Int64
	RewriteRetries  atomic.Int64
	PingsOK         atomic.Int64
	PingsFailed     atomic.Int64

	skipped *labeled // by reason
	images  *labeled // by provider
	videos  *labeled // embedded videos by source
	stages  *labeled // stage errors by stage name

	logger *slog.Logger
}

// labeled is a counter vector keyed by one label value.
type labeled struct {
	mu     sync.Mutex
	values map[string]int64
}

func newLabeled() *labeled {
	return &labeled{values: make(map[string]int64)}
}

func (l *labeled) inc(key string) {
	l.mu.Lock()
	l.values[key]++
	l.mu.Unlock()
}

func (l *labeled) snapshot() map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		skipped: newLabeled(),
		images:  newLabeled(),
		videos:  newLabeled(),
		stages:  newLabeled(),
		logger:  logger.With("component", "metrics"),
	}
}

// RunStarted records the start of a batch.
func (m *Metrics) RunStarted(now time.Time) {
	m.RunsTotal.Add(1)
	m.LastRunUnix.Store(now.Unix())
}

// Skipped counts a topic skipped for reason.
func (m *Metrics) Skipped(reason string) { m.skipped.inc(reason) }

// ImageFrom counts an image chosen from provider.
func (m *Metrics) ImageFrom(provider string) { m.images.inc(provider) }

// VideoFrom counts a video embedded from source.
func (m *Metrics) VideoFrom(source string) { m.videos.inc(source) }

// StageFailed counts an error raised by stage.
func (m *Metrics) StageFailed(stage string) { m.stages.inc(stage) }

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		kind  string
		value int64
	}{
		{"radarbr_runs_total", "Pipeline runs started", "counter", m.RunsTotal.Load()},
		{"radarbr_runs_blocked_total", "Automation runs blocked by the gate", "counter", m.RunsBlocked.Load()},
		{"radarbr_last_run_timestamp_seconds", "Start time of the last run", "gauge", m.LastRunUnix.Load()},
		{"radarbr_topics_total", "Topics processed", "counter", m.TopicsTotal.Load()},
		{"radarbr_topics_published_total", "Topics that produced an article", "counter", m.TopicsPublished.Load()},
		{"radarbr_topics_failed_total", "Topics that failed", "counter", m.TopicsFailed.Load()},
		{"radarbr_resolve_failures_total", "Topics with no resolvable publisher article", "counter", m.ResolveFailures.Load()},
		{"radarbr_rewrite_retries_total", "Rewrite attempts beyond the first", "counter", m.RewriteRetries.Load()},
		{"radarbr_pings_ok_total", "Sitemap pings accepted by at least one engine", "counter", m.PingsOK.Load()},
		{"radarbr_pings_failed_total", "Sitemap pings rejected by every engine", "counter", m.PingsFailed.Load()},
	}
	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}

	writeLabeled(w, "radarbr_topics_skipped_total", "Topics skipped by reason", "reason", m.skipped.snapshot())
	writeLabeled(w, "radarbr_images_total", "Images chosen by provider", "provider", m.images.snapshot())
	writeLabeled(w, "radarbr_videos_total", "Videos embedded by source", "source", m.videos.snapshot())
	writeLabeled(w, "radarbr_stage_errors_total", "Errors by pipeline stage", "stage", m.stages.snapshot())
}

func writeLabeled(w http.ResponseWriter, name, help, label string, values map[string]int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

// Snapshot returns all metrics as a map. Labeled counters are flattened to
// name:label keys.
func (m *Metrics) Snapshot() map[string]int64 {
	out := map[string]int64{
		"runs_total":       m.RunsTotal.Load(),
		"runs_blocked":     m.RunsBlocked.Load(),
		"topics_total":     m.TopicsTotal.Load(),
		"topics_published": m.TopicsPublished.Load(),
		"topics_failed":    m.TopicsFailed.Load(),
		"resolve_failures": m.ResolveFailures.Load(),
		"rewrite_retries":  m.RewriteRetries.Load(),
		"pings_ok":         m.PingsOK.Load(),
		"pings_failed":     m.PingsFailed.Load(),
	}
	for k, v := range m.skipped.snapshot() {
		out["skipped:"+k] = v
	}
	for k, v := range m.images.snapshot() {
		out["images:"+k] = v
	}
	for k, v := range m.videos.snapshot() {
		out["videos:"+k] = v
	}
	for k, v := range m.stages.snapshot() {
		out["stage_errors:"+k] = v
	}
	return out
}

// LogSummary writes the current counters at info level.
func (m *Metrics) LogSummary() {
	m.logger.Info("metrics",
		"runs", m.RunsTotal.Load(),
		"topics", m.TopicsTotal.Load(),
		"published", m.TopicsPublished.Load(),
		"failed", m.TopicsFailed.Load(),
	)
}
