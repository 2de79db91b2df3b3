package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/radarbr/internal/ai"
	"github.com/IshaanNene/radarbr/internal/classifier"
	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/images"
	"github.com/IshaanNene/radarbr/internal/observability"
	"github.com/IshaanNene/radarbr/internal/resolver"
	"github.com/IshaanNene/radarbr/internal/seo"
	"github.com/IshaanNene/radarbr/internal/storage"
	"github.com/IshaanNene/radarbr/internal/title"
	"github.com/IshaanNene/radarbr/internal/types"
	"github.com/IshaanNene/radarbr/internal/video"
)

// Stage names.
const (
	StageResolve  = "resolve"
	StageExtract  = "extract"
	StageRewrite  = "rewrite"
	StageVideo    = "video"
	StageTitle    = "title"
	StageClassify = "classify"
	StageDedup    = "dedup"
	StagePersist  = "persist"
	StageImage    = "image"
	StagePing     = "ping"
	StagePreview  = "preview"
)

// SourceResolver finds the publisher page for a topic or link.
type SourceResolver interface {
	Resolve(ctx context.Context, input string) (*resolver.Resolution, error)
}

// ContentExtractor parses a publisher page.
type ContentExtractor interface {
	Extract(page *types.PageResult) (*types.ExtractedArticle, error)
}

// BodyRewriter produces the article body.
type BodyRewriter interface {
	Rewrite(ctx context.Context, req ai.RewriteRequest) (*ai.Rewrite, error)
}

// TitleStyler produces the headline.
type TitleStyler interface {
	StyleWithLLM(ctx context.Context, in title.Input) title.Result
}

// TextClassifier picks a category from the closed vocabulary.
type TextClassifier interface {
	Classify(title, content, topic string) classifier.Decision
}

// ImageSource picks the article image. It never fails.
type ImageSource interface {
	Acquire(ctx context.Context, req images.Request) types.ImageResult
}

// VideoFinder picks a YouTube video for the article, or nil.
type VideoFinder interface {
	Find(ctx context.Context, req video.Request) (*video.Video, error)
}

// SitemapPinger notifies search engines.
type SitemapPinger interface {
	Ping(ctx context.Context) (seo.PingResult, error)
}

// Deps are the collaborators of an Orchestrator. Videos, Pinger and Metrics
// may be nil.
type Deps struct {
	Resolver   SourceResolver
	Extractor  ContentExtractor
	Rewriter   BodyRewriter
	Styler     TitleStyler
	Classifier TextClassifier
	Store      storage.Store
	Images     ImageSource
	Videos     VideoFinder
	Pinger     SitemapPinger
	Metrics    *observability.Metrics
}

// Options are the per-run operator flags.
type Options struct {
	Words    int
	Force    bool
	DryRun   bool
	NewsURL  string // resolve this link instead of searching the topic
	Category string // overrides classification
	Title    string // overrides title styling
	Style    string // writing style key; empty picks one at random
}

// Job carries one topic through the stages.
type Job struct {
	RunID string
	Topic string
	Opts  Options
	Stage string

	Resolution *resolver.Resolution
	Extracted  *types.ExtractedArticle
	Rewrite    *ai.Rewrite
	Video      *video.Video
	Title      title.Result
	Category   types.Category
	// CategoryFrom records which rule chose the category: override,
	// publisher, url_hint or classifier.
	CategoryFrom string
	Decision     classifier.Decision
	Article      *types.Article
	Image        types.ImageResult
	Ping         *seo.PingResult

	logger *slog.Logger
}

// Published describes an article written (or previewed) by a run.
type Published struct {
	Topic         string  `json:"topic"`
	Title         string  `json:"title"`
	Slug          string  `json:"slug,omitempty"`
	Category      string  `json:"category"`
	SourceURL     string  `json:"source_url,omitempty"`
	Words         int     `json:"words"`
	ImageProvider string  `json:"image_provider,omitempty"`
	Video         string  `json:"video,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// RunSummary is the structured outcome of a batch.
type RunSummary struct {
	RunID           string         `json:"run_id"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	DryRun          bool           `json:"dry_run"`
	Attempted       int            `json:"attempted"`
	Persisted       int            `json:"persisted"`
	SkippedByReason map[string]int `json:"skipped_by_reason"`
	Articles        []Published    `json:"articles"`
	Canceled        bool           `json:"canceled,omitempty"`
	Blocked         bool           `json:"blocked,omitempty"`
}

// Skipped returns the total number of skipped topics.
func (s *RunSummary) Skipped() int {
	n := 0
	for _, c := range s.SkippedByReason {
		n += c
	}
	return n
}

// Orchestrator runs topics through the publishing stages.
type Orchestrator struct {
	cfg     *config.Config
	deps    Deps
	metrics *observability.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

// New creates an Orchestrator.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Orchestrator {
	m := deps.Metrics
	if m == nil {
		m = observability.NewMetrics(logger)
	}
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		metrics: m,
		now:     time.Now,
		logger:  logger.With("component", "orchestrator"),
	}
}

// Chain builds the stage chain for opts. Dry runs stop after classification
// and log the would-be article instead of writing it.
func (o *Orchestrator) Chain(opts Options) *Chain {
	c := NewChain(o.logger).
		Use(NewStage(StageResolve, o.resolve)).
		Use(NewStage(StageExtract, o.extract)).
		Use(NewStage(StageRewrite, o.rewrite))
	if o.deps.Videos != nil {
		c.Use(NewStage(StageVideo, o.embedVideo))
	}
	c.Use(NewStage(StageTitle, o.styleTitle)).
		Use(NewStage(StageClassify, o.classify))
	if opts.DryRun {
		return c.Use(NewStage(StagePreview, o.preview))
	}
	c.Use(NewStage(StageDedup, o.dedup)).
		Use(NewStage(StagePersist, o.persist)).
		Use(NewStage(StageImage, o.image))
	if o.deps.Pinger != nil {
		c.Use(NewStage(StagePing, o.ping))
	}
	return c
}

// PublishTopic runs one topic. The returned job is populated up to the
// failing stage.
func (o *Orchestrator) PublishTopic(ctx context.Context, topic string, opts Options) (*Job, error) {
	return o.run(ctx, uuid.NewString(), topic, opts, o.Chain(opts))
}

func (o *Orchestrator) run(ctx context.Context, runID, topic string, opts Options, chain *Chain) (*Job, error) {
	if opts.Words <= 0 {
		opts.Words = o.cfg.Pipeline.Words
	}
	job := &Job{
		RunID:  runID,
		Topic:  topic,
		Opts:   opts,
		logger: o.logger.With("topic", topic, "run_id", runID),
	}
	o.metrics.TopicsTotal.Add(1)
	job.logger.Info("topic started", "stages", chain.Len(), "dry_run", opts.DryRun)
	err := chain.Run(ctx, job)
	if err != nil {
		return job, err
	}
	if !opts.DryRun {
		o.metrics.TopicsPublished.Add(1)
	}
	return job, nil
}

// RunBatch processes topics sequentially. Per-topic failures are counted in
// the summary and never stop the batch; cancellation of ctx does.
func (o *Orchestrator) RunBatch(ctx context.Context, topics []string, opts Options) *RunSummary {
	sum := &RunSummary{
		RunID:           uuid.NewString(),
		StartedAt:       o.now(),
		DryRun:          opts.DryRun,
		SkippedByReason: make(map[string]int),
	}
	o.metrics.RunStarted(sum.StartedAt)
	logger := o.logger.With("run_id", sum.RunID)
	logger.Info("batch started", "topics", len(topics), "dry_run", opts.DryRun, "force", opts.Force)

	chain := o.Chain(opts)
	for _, topic := range topics {
		if ctx.Err() != nil {
			sum.Canceled = true
			logger.Warn("batch canceled", "remaining", len(topics)-sum.Attempted)
			break
		}
		sum.Attempted++
		job, err := o.run(ctx, sum.RunID, topic, opts, chain)
		if err != nil {
			o.recordSkip(logger, sum, topic, err)
			if errors.Is(err, context.Canceled) {
				sum.Canceled = true
				break
			}
			continue
		}
		if !opts.DryRun {
			sum.Persisted++
		}
		sum.Articles = append(sum.Articles, job.published())
	}

	sum.FinishedAt = o.now()
	logger.Info("batch finished",
		"attempted", sum.Attempted,
		"persisted", sum.Persisted,
		"skipped", sum.Skipped(),
		"duration", sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond),
	)
	return sum
}

func (o *Orchestrator) recordSkip(logger *slog.Logger, sum *RunSummary, topic string, err error) {
	reason := types.SkipReason(err)
	sum.SkippedByReason[reason]++
	o.metrics.Skipped(reason)

	stage := ""
	var pe *types.PipelineError
	if errors.As(err, &pe) {
		stage = pe.Stage
	}
	if reason == types.ReasonError {
		o.metrics.TopicsFailed.Add(1)
		o.metrics.StageFailed(stage)
		logger.Error("topic failed", "topic", topic, "stage", stage, "reason", reason, "error", err)
		return
	}
	logger.Warn("topic skipped", "topic", topic, "stage", stage, "reason", reason, "error", err)
}

func (j *Job) published() Published {
	p := Published{
		Topic:      j.Topic,
		Title:      j.Title.Title,
		Category:   j.Category.Name,
		Confidence: j.Decision.Confidence,
	}
	if j.Rewrite != nil {
		p.Words = j.Rewrite.Words
	}
	if j.Article != nil {
		p.Slug = j.Article.Slug
		p.SourceURL = j.Article.SourceURL
	}
	p.ImageProvider = j.Image.Provider
	if j.Video != nil {
		p.Video = j.Video.WatchURL()
	}
	return p
}

// String renders a one-line summary for logs and the CLI.
func (s *RunSummary) String() string {
	return fmt.Sprintf("run %s: attempted=%d persisted=%d skipped=%v", s.RunID, s.Attempted, s.Persisted, s.SkippedByReason)
}
