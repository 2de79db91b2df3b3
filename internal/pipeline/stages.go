package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/IshaanNene/radarbr/internal/ai"
	"github.com/IshaanNene/radarbr/internal/classifier"
	"github.com/IshaanNene/radarbr/internal/extractor"
	"github.com/IshaanNene/radarbr/internal/images"
	"github.com/IshaanNene/radarbr/internal/resolver"
	"github.com/IshaanNene/radarbr/internal/title"
	"github.com/IshaanNene/radarbr/internal/types"
	"github.com/IshaanNene/radarbr/internal/video"
)

// Category rules, in precedence order.
const (
	FromOverride   = "override"
	FromPublisher  = "publisher"
	FromURLHint    = "url_hint"
	FromClassifier = "classifier"
)

func (o *Orchestrator) resolve(ctx context.Context, job *Job) error {
	input := job.Topic
	if job.Opts.NewsURL != "" {
		input = job.Opts.NewsURL
	}
	res, err := o.deps.Resolver.Resolve(ctx, input)
	if err != nil {
		if errors.Is(err, types.ErrResolveExhausted) {
			o.metrics.ResolveFailures.Add(1)
		}
		return err
	}
	job.Resolution = res
	job.logger.Info("source resolved", "url", res.Page.FinalURL, "via", res.Via)
	return nil
}

func (o *Orchestrator) extract(_ context.Context, job *Job) error {
	ex, err := o.deps.Extractor.Extract(job.Resolution.Page)
	if err != nil {
		return err
	}
	if !ex.Valid() {
		return fmt.Errorf("extract %s: %w", ex.URL, types.ErrExtractionInsufficient)
	}
	job.Extracted = ex
	job.logger.Info("article extracted",
		"title", ex.Title,
		"domain", ex.Domain,
		"words", extractor.WordCount(ex),
		"reader", ex.ExtractedByReader,
	)
	return nil
}

func (o *Orchestrator) rewrite(ctx context.Context, job *Job) error {
	req := ai.RewriteRequest{
		Topic:   job.Topic,
		Article: job.Extracted,
		Words:   job.Opts.Words,
		Style:   job.Opts.Style,
	}
	if o.cfg.Pipeline.SourceEnvelope {
		req.SourceWords = extractor.WordCount(job.Extracted)
	}
	rw, err := o.deps.Rewriter.Rewrite(ctx, req)
	if err != nil {
		return err
	}
	if rw.Attempts > 1 {
		o.metrics.RewriteRetries.Add(int64(rw.Attempts - 1))
	}
	job.Rewrite = rw
	return nil
}

// embedVideo embeds a YouTube player in the rewritten body when the source has
// one. A failed lookup never skips the topic.
func (o *Orchestrator) embedVideo(ctx context.Context, job *Job) error {
	v, err := o.deps.Videos.Find(ctx, video.Request{
		Topic:   job.Topic,
		Article: job.Extracted,
		Body:    job.Rewrite.HTML,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		job.logger.Warn("video lookup failed", "error", err)
		return nil
	}
	if v == nil {
		return nil
	}
	job.Video = v
	job.Rewrite.HTML = video.Embed(job.Rewrite.HTML, *v)
	o.metrics.VideoFrom(v.Source)
	job.logger.Info("video embedded", "id", v.ID, "source", v.Source)
	return nil
}

func (o *Orchestrator) styleTitle(ctx context.Context, job *Job) error {
	if t := strings.TrimSpace(job.Opts.Title); t != "" {
		job.Title = title.Result{Title: types.Truncate(t, types.MaxTitleLen), Keyword: job.Topic}
		return nil
	}
	ex := job.Extracted
	keyword := job.Topic
	if isURL(keyword) {
		keyword = ""
	}
	hint := ex.Category
	if hint == "" {
		hint = ex.InferredCategory
	}
	job.Title = o.deps.Styler.StyleWithLLM(ctx, title.Input{
		Original:    ex.Title,
		Description: ex.Description,
		Keyword:     keyword,
		Category:    hint,
	})
	job.logger.Info("title styled", "title", job.Title.Title, "llm", job.Title.FromLLM, "fallback", job.Title.Fallback)
	return nil
}

// classify applies the category precedence: operator override, publisher
// category, URL hint, then the classifier with its fallbacks.
func (o *Orchestrator) classify(ctx context.Context, job *Job) error {
	if name := strings.TrimSpace(job.Opts.Category); name != "" {
		cat, err := o.deps.Store.FindCategoryByName(ctx, name)
		switch {
		case err == nil:
			job.Category, job.CategoryFrom = cat, FromOverride
			return nil
		case errors.Is(err, types.ErrNotFound):
			// Categories are never created here.
			job.logger.Warn("unknown category override, classifying instead", "category", name)
		default:
			return err
		}
	}

	cats, err := o.deps.Store.ListCategories(ctx)
	if err != nil {
		return err
	}
	ex := job.Extracted
	if cat, ok := classifier.Match(cats, ex.Category); ok {
		job.Category, job.CategoryFrom = cat, FromPublisher
	} else if cat, ok := classifier.Match(cats, ex.InferredCategory); ok {
		job.Category, job.CategoryFrom = cat, FromURLHint
	} else {
		job.Decision = o.deps.Classifier.Classify(job.Title.Title, job.Rewrite.HTML, job.Topic)
		cat, err := classifier.Resolve(ctx, o.deps.Store, job.Decision.Category, o.cfg.Site.DefaultCategory)
		if err != nil {
			return err
		}
		job.Category, job.CategoryFrom = cat, FromClassifier
	}
	job.logger.Info("category chosen",
		"category", job.Category.Name,
		"from", job.CategoryFrom,
		"score", job.Decision.Score,
		"confidence", fmt.Sprintf("%.2f", job.Decision.Confidence),
	)
	return nil
}

// sourceURL is the publisher URL the resolver landed on, stored as is, or
// empty when the resolver never left Google News.
func (j *Job) sourceURL() string {
	if j.Resolution == nil || j.Resolution.Page == nil {
		return ""
	}
	u := strings.TrimSpace(j.Resolution.Page.FinalURL)
	if u == "" || resolver.IsGoogleNews(u) {
		return ""
	}
	return u
}

// sourceKeys are the forms of the source URL an earlier copy may be stored
// under: the URL itself and its canonical form.
func (j *Job) sourceKeys() []string {
	src := j.sourceURL()
	if src == "" {
		return nil
	}
	if c := resolver.CanonicalizeURL(src); c != src {
		return []string{src, c}
	}
	return []string{src}
}

func (o *Orchestrator) dedup(ctx context.Context, job *Job) error {
	if job.Opts.Force {
		return nil
	}
	prefix := types.Truncate(job.Title.Title, o.cfg.Pipeline.DedupPrefixLen)
	similar, err := o.deps.Store.ExistsSimilarTitleToday(ctx, prefix)
	if err != nil {
		return err
	}
	if similar {
		return fmt.Errorf("title %q already published today: %w", prefix, types.ErrDuplicate)
	}
	for _, src := range job.sourceKeys() {
		exists, err := o.deps.Store.ExistsArticleBySourceURL(ctx, src)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("source %s already published: %w", src, types.ErrDuplicate)
		}
	}
	return nil
}

func (o *Orchestrator) persist(ctx context.Context, job *Job) error {
	now := o.now()
	ex := job.Extracted
	source := job.Resolution.Item.Publisher
	if source == "" {
		source = ex.Domain
	}
	a := &types.Article{
		Title:       job.Title.Title,
		Content:     job.Rewrite.HTML,
		PublishedAt: now,
		Status:      types.StatusPublished,
		CategoryID:  job.Category.ID,
		SourceName:  source,
	}
	if job.Video != nil {
		a.VideoURLs = []string{job.Video.WatchURL()}
		a.HasVideo = true
	}

	src := job.sourceURL()
	if src != "" {
		exists, err := o.deps.Store.ExistsArticleBySourceURL(ctx, src)
		if err != nil {
			return err
		}
		if exists {
			src = withTimestamp(src, now.Unix(), 1)
		}
	}

	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		a.SourceURL = src
		if err = o.deps.Store.SaveArticle(ctx, a); err == nil {
			break
		}
		if !errors.Is(err, types.ErrPersistCollision) || attempt == 2 {
			return err
		}
		job.logger.Warn("persist collision, retrying", "source_url", src, "error", err)
		if src != "" {
			src = withTimestamp(job.sourceURL(), now.Unix(), attempt+1)
		}
	}
	job.Article = a
	job.logger.Info("article persisted", "id", a.ID, "slug", a.Slug, "source_url", a.SourceURL)
	return nil
}

// withTimestamp appends t=<unix><index> to rawURL.
func withTimestamp(rawURL string, unix int64, index int) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "t=" + strconv.FormatInt(unix, 10) + strconv.Itoa(index)
}

func (o *Orchestrator) image(ctx context.Context, job *Job) error {
	ex := job.Extracted
	req := images.Request{
		Title:    job.Title.Title,
		Body:     job.Rewrite.HTML,
		Category: job.Category.Name,
		Domain:   ex.Domain,
	}
	if len(ex.Images) > 0 {
		req.Hero = ex.Images[0]
	}
	img := o.deps.Images.Acquire(ctx, req)
	job.Image = img
	o.metrics.ImageFrom(img.Provider)

	if err := o.deps.Store.UpdateArticleImage(ctx, job.Article.ID, img); err != nil {
		// The article is already live; a missing image is not worth a skip.
		job.logger.Warn("image update failed", "article", job.Article.ID, "error", err)
		return nil
	}
	job.Article.ApplyImage(img)
	job.logger.Info("image attached", "provider", img.Provider, "url", img.URL)
	return nil
}

func (o *Orchestrator) ping(ctx context.Context, job *Job) error {
	res, err := o.deps.Pinger.Ping(ctx)
	job.Ping = &res
	if err != nil {
		o.metrics.PingsFailed.Add(1)
		job.logger.Warn("sitemap ping failed", "error", err)
		return nil
	}
	o.metrics.PingsOK.Add(1)
	return nil
}

func (o *Orchestrator) preview(_ context.Context, job *Job) error {
	job.logger.Info("dry run article",
		"title", job.Title.Title,
		"category", job.Category.Name,
		"source_url", job.sourceURL(),
		"words", job.Rewrite.Words,
		"video", job.Video != nil,
		"dek", job.Rewrite.Dek,
	)
	return nil
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
