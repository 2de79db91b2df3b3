package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/radarbr/internal/api"
	"github.com/IshaanNene/radarbr/internal/audience"
	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/dashboard"
	"github.com/IshaanNene/radarbr/internal/fetcher"
	"github.com/IshaanNene/radarbr/internal/imagecache"
	"github.com/IshaanNene/radarbr/internal/storage"
	"github.com/IshaanNene/radarbr/internal/trends"
	"github.com/IshaanNene/radarbr/internal/types"
)

// trendsCmd creates the "trends" subcommand, which lists candidates
// without publishing.
func trendsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "List trending topic candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(false)
			if err != nil {
				return err
			}
			f, err := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)
			if err != nil {
				return fmt.Errorf("create fetcher: %w", err)
			}
			defer f.Close()

			src, err := trends.New(cfg.Trends, f, logger)
			if err != nil {
				return err
			}
			cands := src.GetAll(cmd.Context(), limit)
			if len(cands) == 0 {
				fmt.Println("No trending topics found.")
				return nil
			}
			fmt.Printf("%-4s %-40s %6s  %-14s %s\n", "#", "TOPIC", "SCORE", "SOURCE", "CATEGORY")
			for i, c := range cands {
				fmt.Printf("%-4d %-40s %6.1f  %-14s %s\n", i+1, clip(c.Topic, 40), c.Score, c.Source, c.Category)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of candidates to list")
	return cmd
}

// insightsCmd creates the "insights" subcommand.
func insightsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "insights [topic...]",
		Short: "Show audience insights and predict the success of topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := storage.Open(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			an := audience.New(store, time.Duration(days)*24*time.Hour, logger)
			out := map[string]any{}
			ins, err := an.Insights(ctx)
			if err != nil {
				return err
			}
			out["insights"] = ins
			if len(args) > 0 {
				preds, err := an.Rank(ctx, args)
				if err != nil {
					return err
				}
				out["predictions"] = preds
			}
			return printJSON(os.Stdout, out)
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "analysis window in days")
	return cmd
}

// imageCacheCmd creates the "image-cache" command group.
func imageCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "image-cache",
		Aliases: []string{"image_cache"},
		Short:   "Inspect or prune the image cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := requireCache(cmd)
			if err != nil {
				return err
			}
			defer cache.Close()
			stats, err := cache.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Backend:   %s (%s)\n", stats.Backend, stats.Location)
			fmt.Printf("Entries:   %d total, %d active, %d expired\n", stats.TotalEntries, stats.ActiveEntries, stats.ExpiredEntries)
			fmt.Printf("Max age:   %.1f days\n", stats.MaxAgeDays)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "clear-expired",
		Aliases: []string{"clear_expired"},
		Short:   "Remove expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := requireCache(cmd)
			if err != nil {
				return err
			}
			defer cache.Close()
			n, err := cache.ClearExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired entr%s\n", n, plural(n, "y", "ies"))
			return nil
		},
	})
	return cmd
}

// requireCache opens the configured cache and, unlike the pipeline, treats
// an unavailable backend as an error.
func requireCache(cmd *cobra.Command) (imagecache.Cache, error) {
	cfg, logger, err := loadConfig(false)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Backend == "redis" {
		return imagecache.NewRedisCache(cmd.Context(), cfg.Cache.RedisURL, cfg.Cache.MaxAge, logger)
	}
	return imagecache.NewFileCache(cfg.Cache.Path, cfg.Cache.MaxAge, logger)
}

// migrateCmd creates the "migrate" subcommand.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(false)
			if err != nil {
				return err
			}
			if cfg.Storage.Backend != storage.BackendPostgres {
				return &types.ConfigError{Field: "storage.backend", Msg: "migrations only apply to postgres"}
			}
			store, err := storage.NewPostgresStore(cmd.Context(), cfg.Storage.DatabaseURL, cfg.Site.BaseURL, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			version, dirty, err := store.MigrationVersion()
			if err != nil {
				return err
			}
			fmt.Printf("Schema version %d (dirty=%v)\n", version, dirty)
			return nil
		},
	}
}

// exportCmd creates the "export" subcommand.
func exportCmd() *cobra.Command {
	var (
		format string
		since  time.Duration
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recent articles as JSON, JSONL or CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := storage.Open(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			articles, err := store.RecentArticles(ctx, time.Now().Add(-since))
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := storage.Export(w, strings.ToLower(format), articles); err != nil {
				return err
			}
			logger.Info("export complete", "articles", len(articles), "format", format, "output", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", storage.FormatJSON, "output format: json, jsonl, csv")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "export articles created within this window")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	return cmd
}

// serveMetricsCmd creates the "serve-metrics" subcommand, which runs the
// HTTP API with metrics, health and run triggering.
func serveMetricsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:     "serve-metrics",
		Aliases: []string{"serve"},
		Short:   "Serve /metrics, /health, the run API and the status page",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(false)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Metrics.Addr
			}
			if err := config.RequireLLM(cfg); err != nil {
				logger.Warn("LLM not configured, runs will fail at the rewrite stage", "error", err)
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.trendSource()
			if err != nil {
				return err
			}
			dash, err := dashboard.New(dashboard.Page{Version: config.Version, SiteURL: cfg.Site.BaseURL}, logger)
			if err != nil {
				return err
			}
			srv := api.NewServer(api.Deps{
				Runner:    a.orch,
				Trends:    src,
				Store:     a.store,
				Metrics:   a.metrics,
				Dashboard: dash,
			}, logger)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from metrics.addr)")
	return cmd
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("RadarBR %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration (secrets masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			out, err := cfg.Redacted().YAML()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
