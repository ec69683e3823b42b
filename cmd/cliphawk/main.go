package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cliphawk/cliphawk/internal/annotate"
	"github.com/cliphawk/cliphawk/internal/api"
	"github.com/cliphawk/cliphawk/internal/browser"
	"github.com/cliphawk/cliphawk/internal/cache"
	"github.com/cliphawk/cliphawk/internal/config"
	"github.com/cliphawk/cliphawk/internal/oembed"
	"github.com/cliphawk/cliphawk/internal/scrape"
	"github.com/cliphawk/cliphawk/internal/storage"
)

var (
	cfgFile  string
	verbose  bool
	headless bool
	keyword  string
	maxCount int
	startURL string
	output   string
	onlyHits bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cliphawk",
		Short: "cliphawk — short-video scrape orchestrator",
		Long: `cliphawk drives a stealth browser through short-video search results,
walking the feed video by video and collecting captions, author data and
lazily-loaded comments. Results are cached and can be filtered by keyword
at read time.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "run the browser headless")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serveCmd creates the "serve" subcommand: the long-running HTTP API.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scrape HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	session := browser.NewSession(&cfg.Browser, logger)
	defer session.Shutdown()

	engine := scrape.New(session, oembed.NewResolver(&cfg.Resolver, logger), cfg, logger)
	engine.Checkpoint().StartOperatorReader(os.Stdin)

	if cfg.Storage.Enabled {
		archive, err := storage.NewArchive(&cfg.Storage, logger)
		if err != nil {
			return fmt.Errorf("run archive: %w", err)
		}
		defer archive.Close()
		engine.SetArchive(archive)
	}

	store := cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	server := api.NewServer(engine, store, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("serving", "port", cfg.Server.Port, "headless", cfg.Browser.Headless)
	return server.ListenAndServe(ctx)
}

// scrapeCmd creates the "scrape" subcommand: a one-shot run printed as
// JSON.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [search phrase]",
		Short: "Run one scrape and print the results as JSON",
		Long: `Run a single scrape seeded by a search phrase, or by a video URL when
--start-url is given, and print the annotated results to stdout or a file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScrape,
	}

	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "keyword to annotate and filter by")
	cmd.Flags().IntVarP(&maxCount, "max", "m", 0, "maximum videos to collect (0 = config default)")
	cmd.Flags().StringVar(&startURL, "start-url", "", "seed from a video URL instead of a search")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write JSON to a file instead of stdout")
	cmd.Flags().BoolVar(&onlyHits, "only-matches", false, "keep only records mentioning the keyword")

	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && startURL == "" {
		return fmt.Errorf("a search phrase or --start-url is required")
	}
	if onlyHits && keyword == "" {
		return fmt.Errorf("--only-matches requires --keyword")
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	session := browser.NewSession(&cfg.Browser, logger)
	defer session.Shutdown()

	engine := scrape.New(session, oembed.NewResolver(&cfg.Resolver, logger), cfg, logger)
	engine.Checkpoint().StartOperatorReader(os.Stdin)

	if cfg.Storage.Enabled {
		archive, err := storage.NewArchive(&cfg.Storage, logger)
		if err != nil {
			return fmt.Errorf("run archive: %w", err)
		}
		defer archive.Close()
		engine.SetArchive(archive)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var res *scrape.Result
	if startURL != "" {
		res, err = engine.RunFrom(ctx, startURL, maxCount)
	} else {
		res, err = engine.Run(ctx, args[0], maxCount)
	}
	if err != nil {
		// Partial results still print below.
		logger.Error("run failed", "error", err)
	}
	if res == nil {
		return err
	}

	items := annotate.Annotate(res.Items, keyword)
	if onlyHits {
		items = annotate.Filter(items, true)
	}

	out := map[string]any{
		"items":   items,
		"metrics": res.Metrics,
	}
	encoded, jsonErr := json.MarshalIndent(out, "", "  ")
	if jsonErr != nil {
		return jsonErr
	}

	if output != "" {
		if writeErr := os.WriteFile(output, encoded, 0o644); writeErr != nil {
			return writeErr
		}
		logger.Info("results written", "path", output, "items", len(items))
	} else {
		fmt.Println(string(encoded))
	}
	return err
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cliphawk %s\n", config.Version)
		},
	}
}

// setup loads config, applies flag overrides and builds the logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if headless {
		cfg.Browser.Headless = true
	}
	if maxCount > 0 {
		cfg.Scrape.MaxVideos = maxCount
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, setupLogger(&cfg.Logging), nil
}

// setupLogger creates a structured logger from the logging config; the
// verbose flag forces debug level.
func setupLogger(cfg *config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
