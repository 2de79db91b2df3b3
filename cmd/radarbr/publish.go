package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/radarbr/internal/audience"
	"github.com/IshaanNene/radarbr/internal/pipeline"
	"github.com/IshaanNene/radarbr/internal/trends"
	"github.com/IshaanNene/radarbr/internal/types"
)

// publishTopicSimpleCmd creates the "publish-topic-simple" subcommand.
func publishTopicSimpleCmd() *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:     "publish-topic-simple <topic>",
		Aliases: []string{"publish_topic_simple"},
		Short:   "Publish one article about a topic",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.NewsURL != "" && !strings.HasPrefix(opts.NewsURL, "http") {
				return &types.ConfigError{Field: "news-url", Msg: "must be an http(s) URL"}
			}
			return runTopics(cmd, []string{args[0]}, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Words, "words", 800, "target article length in words")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "skip the duplicate check")
	cmd.Flags().StringVar(&opts.NewsURL, "news-url", "", "publisher or Google News link to use instead of searching")
	return cmd
}

// publishTopicCmd creates the "publish-topic" subcommand.
func publishTopicCmd() *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:     "publish-topic <topic>",
		Aliases: []string{"publish_topic"},
		Short:   "Publish one article with optional category and title overrides",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopics(cmd, []string{args[0]}, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "category name, overrides classification")
	cmd.Flags().StringVar(&opts.Title, "title", "", "article title, overrides title styling")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "skip the duplicate check")
	cmd.Flags().IntVar(&opts.Words, "words", 800, "target article length in words")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "log the article instead of writing it")
	cmd.Flags().StringVar(&opts.Style, "style", "", "writing style key (random when empty)")
	return cmd
}

// smartTrendsPublishCmd creates the "smart-trends-publish" subcommand.
func smartTrendsPublishCmd() *cobra.Command {
	var (
		opts     pipeline.Options
		limit    int
		strategy string
		debug    bool
		seasonal bool
	)

	cmd := &cobra.Command{
		Use:     "smart-trends-publish",
		Aliases: []string{"smart_trends_publish"},
		Short:   "Pick trending topics by strategy and publish them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				verbose = true
			}
			if limit < 1 {
				return &types.ConfigError{Field: "limit", Msg: "must be at least 1"}
			}
			cfg, logger, err := loadConfig(!opts.DryRun)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, logger, opts.DryRun)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.trendSource()
			if err != nil {
				return err
			}
			ranker := audience.New(a.store, audience.DefaultWindow, logger)
			selector := pipeline.NewSelector(src, ranker, logger).WithSeasonal(seasonal)

			topics, err := selector.Select(ctx, strategy, limit)
			if errors.Is(err, types.ErrNoTrends) {
				logger.Warn("no trend candidates, nothing to publish")
				fmt.Println("No trending topics found.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Selected %d topic(s) with strategy %q: %s\n", len(topics), strategy, strings.Join(topics, ", "))

			sum := a.orch.RunBatch(ctx, topics, opts)
			printSummary(sum)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 3, "number of topics to publish")
	cmd.Flags().StringVar(&strategy, "strategy", pipeline.StrategyMixed, "topic strategy: "+strings.Join(pipeline.Strategies, ", "))
	cmd.Flags().BoolVar(&opts.Force, "force", false, "skip the duplicate check")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&seasonal, "include-seasonal", false, "add this month's seasonal topics to the pool")
	cmd.Flags().IntVar(&opts.Words, "words", 800, "target article length in words")
	return cmd
}

// automacaoRenderCmd creates the "automacao-render" subcommand, the
// scheduled entry point.
func automacaoRenderCmd() *cobra.Command {
	var (
		opts  pipeline.Options
		limit int
	)

	cmd := &cobra.Command{
		Use:     "automacao-render",
		Aliases: []string{"automacao_render"},
		Short:   "Scheduled run: publish top stories unless the site is already fresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return &types.ConfigError{Field: "limit", Msg: "must be at least 1"}
			}
			cfg, logger, err := loadConfig(!opts.DryRun)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			feed := trends.NewGoogleNewsProvider(a.http, cfg.Trends.Timeout)
			auto := pipeline.NewAutomation(cfg.Pipeline, a.store, feed, a.metrics, logger)

			ok, err := auto.ShouldRun(ctx, opts.Force)
			if err != nil {
				return err
			}
			if !ok {
				printSummary(&pipeline.RunSummary{Blocked: true, SkippedByReason: map[string]int{}})
				return nil
			}

			topics, err := auto.Topics(ctx, limit)
			if err != nil {
				return err
			}
			if len(topics) == 0 {
				fmt.Println("Every candidate topic was covered in the last 24 hours.")
				return nil
			}

			sum := a.orch.RunBatch(ctx, topics, opts)
			printSummary(sum)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 3, "number of topics to publish")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "ignore the recent-articles gate and the duplicate check")
	cmd.Flags().IntVar(&opts.Words, "words", 800, "target article length in words")
	return cmd
}

// runTopics loads the config, wires the pipeline and publishes topics.
func runTopics(cmd *cobra.Command, topics []string, opts pipeline.Options) error {
	if opts.Words < 0 {
		return &types.ConfigError{Field: "words", Msg: "must not be negative"}
	}
	cfg, logger, err := loadConfig(!opts.DryRun)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger, opts.DryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	sum := a.orch.RunBatch(cmd.Context(), topics, opts)
	printSummary(sum)
	return nil
}

func printSummary(sum *pipeline.RunSummary) {
	if sum.Blocked {
		fmt.Println("\n⏸  Run skipped: enough articles were published recently (use --force to override)")
		return
	}
	elapsed := sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond)
	fmt.Printf("\n✅ Run %s complete in %s\n", sum.RunID, elapsed)
	fmt.Printf("   Attempted: %d\n", sum.Attempted)
	fmt.Printf("   Persisted: %d\n", sum.Persisted)
	fmt.Printf("   Skipped:   %d\n", sum.Skipped())
	for reason, n := range sum.SkippedByReason {
		fmt.Printf("     %-22s %d\n", reason, n)
	}
	for _, p := range sum.Articles {
		fmt.Printf("   • [%s] %s\n", p.Category, p.Title)
		if p.Slug != "" {
			fmt.Printf("       slug=%s words=%d image=%s\n", p.Slug, p.Words, p.ImageProvider)
		} else {
			fmt.Printf("       words=%d confidence=%.2f (dry run)\n", p.Words, p.Confidence)
		}
	}
	if sum.Canceled {
		fmt.Println("   Interrupted before all topics were processed.")
	}
}
