package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/bakinscan/internal/checkpoint"
	"github.com/nao1215/bakinscan/internal/config"
	"github.com/nao1215/bakinscan/internal/fetch"
	"github.com/nao1215/bakinscan/internal/log"
	"github.com/nao1215/bakinscan/internal/model"
	"github.com/nao1215/bakinscan/internal/pipeline"
	"github.com/nao1215/bakinscan/internal/progress"
	"github.com/nao1215/bakinscan/internal/report"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [root-url...]",
		Short: "Crawl the reference site and extract the API dataset",
		Long: `Scan crawls the Bakin C# reference starting at the namespace index,
extracts every namespace and class page, and writes a timestamped JSON
dataset artifact.

Every finished page is checkpointed in SQLite before the crawl moves
on. Interrupt the crawl at any point and run scan again: it resumes
from the checkpoint, refetching nothing that already succeeded. Pages
that failed are retried on the next invocation by default.

With no arguments the Japanese reference index is crawled. Passing
several root URLs crawls them as a batch sharing one request gate.

Examples:
  # Crawl the default reference index
  bakinscan scan

  # Crawl politely but with more extract workers
  bakinscan scan --interval 2s --concurrency 8

  # Start over, discarding all checkpoint state
  bakinscan scan --fresh

  # Re-extract from previously saved pages, no network
  bakinscan scan --offline ./saved-pages

  # Crawl a mirror with per-host settings from a config file
  bakinscan scan -c myconfig.yaml https://mirror.example.org/csreference/doc/ja/namespaces.html`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Pacing and retry flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"HTTP timeout for each request attempt")
	cmd.Flags().DurationP("interval", "i", config.DefaultRequestInterval,
		"Minimum spacing between requests, shared by all workers")
	cmd.Flags().Int("retries", config.DefaultMaxRetries,
		"Retry budget for each retryable fetch failure")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryBaseDelay,
		"Backoff before the first retry (doubles on each further retry)")

	// Crawl behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of extract workers fetching class pages")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of crawl roots processed concurrently")
	cmd.Flags().Int("snapshot-every", config.DefaultSnapshotEvery,
		"Write a dataset snapshot after this many extracted pages (0 disables)")
	cmd.Flags().Bool("retry-failed", true,
		"Requeue pages that failed in a previous invocation")
	cmd.Flags().Bool("fresh", false,
		"Discard all checkpoint state before crawling")
	cmd.Flags().String("offline", "",
		"Serve pages from saved HTML files in this directory instead of the network")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with requests")

	// Artifact flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Directory for dataset artifacts")
	cmd.Flags().Bool("classes-list", false,
		"Also write the classes_list.json artifact")

	// Checkpoint location
	cmd.Flags().String("data-dir", "",
		"Directory for the checkpoint database (default: XDG data directory)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .bakinscan in current or home directory)")

	// Output control
	cmd.Flags().BoolP("quiet", "q", false,
		"Suppress the run summary on stdout")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildScanConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals. The checkpoint commit of the current
	// page finishes before workers stop, so a second scan resumes
	// cleanly after Ctrl-C.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, checkpointing and stopping...")
		cancel()
	}()

	return runScan(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildScanConfig creates a Config from cobra command flags.
func buildScanConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.RequestInterval, err = cmd.Flags().GetDuration("interval")
	if err != nil {
		return nil, err
	}

	cfg.MaxRetries, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}

	cfg.RetryBaseDelay, err = cmd.Flags().GetDuration("retry-delay")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.SnapshotEvery, err = cmd.Flags().GetInt("snapshot-every")
	if err != nil {
		return nil, err
	}

	cfg.RetryFailed, err = cmd.Flags().GetBool("retry-failed")
	if err != nil {
		return nil, err
	}

	cfg.Fresh, err = cmd.Flags().GetBool("fresh")
	if err != nil {
		return nil, err
	}

	cfg.LocalDir, err = cmd.Flags().GetString("offline")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.ClassList, err = cmd.Flags().GetBool("classes-list")
	if err != nil {
		return nil, err
	}

	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.CheckpointDir = dataDir
	}

	cfg.Quiet, err = cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load per-host configurations from the config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments replace the default crawl root
	if len(args) > 0 {
		cfg.RootURLs = args
	}

	return cfg, nil
}

// setupLogger creates the structured logger. Long attribute values are
// trimmed and page URLs shortened relative to the first crawl root, so
// progress lines stay one terminal row each.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := []log.TrimHandlerOption{}
	if len(cfg.RootURLs) > 0 {
		opts = append(opts, log.WithRootURL(cfg.RootURLs[0]))
	}
	return log.NewLogger(os.Stderr, cfg.Verbose, opts...)
}

// runScan executes the crawl.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"roots", len(cfg.RootURLs),
		"concurrency", cfg.Concurrency,
		"interval", cfg.RequestInterval,
		"offline", cfg.LocalDir != "",
	)

	// Open the checkpoint store
	store, err := checkpoint.Open(cfg.CheckpointDir, checkpoint.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer store.Close()
	logger.Info("checkpoint store opened", "db", store.Path())

	if cfg.Fresh {
		if err := store.Wipe(ctx); err != nil {
			return fmt.Errorf("failed to clear checkpoint state: %w", err)
		}
		logger.Info("checkpoint state cleared")
	}

	source := buildSource(cfg, logger)

	// The tracker keeps aggregate counters for the closing line; the
	// log sink streams per-page progress to stderr.
	tracker := progress.NewTracker()
	sink := progress.NewMultiSink(progress.NewLogSink(logger), tracker)

	// All roots share the store, the source, and its request gate. Only
	// the extractor is per root, because link resolution is relative to
	// each root's directory.
	factory := func(rootURL string) *pipeline.Pipeline {
		return pipeline.DefaultPipeline(store, source, rootURL,
			[]pipeline.Option{pipeline.WithLogger(logger)},
			pipeline.WithPipelineOutputDir(cfg.OutputDir),
			pipeline.WithPipelineConcurrency(cfg.Concurrency),
			pipeline.WithPipelineSnapshotEvery(cfg.SnapshotEvery),
			pipeline.WithPipelineRetryFailed(cfg.RetryFailed),
			pipeline.WithPipelineClassList(cfg.ClassList),
			pipeline.WithPipelineSink(sink),
			pipeline.WithPipelineLogger(logger),
		)
	}

	bp := pipeline.NewBatchProcessor(store, factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
		pipeline.WithBatchSink(sink),
	)

	summaries, err := bp.ProcessBatch(ctx, cfg.RootURLs)
	if err != nil {
		return fmt.Errorf("crawl aborted: %w", err)
	}

	if !cfg.Quiet {
		if err := printSummaries(cfg, summaries, tracker.Snapshot()); err != nil {
			logger.Error("failed to print summary", "error", err)
		}
	}

	// A crawl that finished with failed or missing pages still wrote a
	// dataset, but the caller should know it is incomplete.
	for _, sum := range summaries {
		if sum.Phase == model.PhaseDoneWithErrors.String() {
			return errCompletedWithFailures
		}
	}
	return nil
}

// buildSource picks the page source: saved files in offline mode, the
// paced HTTP fetcher otherwise. Per-host overrides for the first root's
// host are applied to the fetcher. The request gate is shared across
// all roots, so pacing cannot differ between hosts inside one
// invocation; the first root wins.
func buildSource(cfg *config.Config, logger *slog.Logger) fetch.Source {
	if cfg.LocalDir != "" {
		logger.Info("offline mode: serving pages from saved files", "dir", cfg.LocalDir)
		return fetch.NewFileSource(cfg.LocalDir, fetch.WithFileSourceLogger(logger))
	}

	merged := cfg
	var headers map[string]string
	if cfg.SiteConfigs != nil {
		host := hostOf(cfg.RootURLs[0])
		site := cfg.SiteConfigs.GetSiteConfig(host)
		merged = site.Apply(cfg)
		headers = site.Headers

		if len(cfg.RootURLs) > 1 && len(cfg.SiteConfigs.Sites) > 0 {
			logger.Warn("all roots share the first root's per-host overrides",
				"host", host,
				"configuredSites", len(cfg.SiteConfigs.Sites),
			)
		}
	}

	opts := []fetch.Option{
		fetch.WithTimeout(merged.Timeout),
		fetch.WithMaxRetries(merged.MaxRetries),
		fetch.WithRetryBaseDelay(merged.RetryBaseDelay),
		fetch.WithRequestInterval(merged.RequestInterval),
		fetch.WithUserAgent(merged.UserAgent),
		fetch.WithMaxBodySize(merged.MaxBodySize),
		fetch.WithLogger(logger),
	}
	if len(headers) > 0 {
		opts = append(opts, fetch.WithHeaders(headers))
	}
	return fetch.NewFetcher(&http.Client{}, opts...)
}

// hostOf extracts the host from a URL, tolerating parse failures.
// Validation already rejected unparsable roots, so the empty fallback
// only matters for direct callers in tests.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

// printSummaries writes the per-root result to stdout, followed by one
// line of aggregate counters for the whole invocation.
func printSummaries(cfg *config.Config, summaries []model.Summary, snap progress.Snapshot) error {
	writer := report.NewSimpleWriter(os.Stdout, report.WithVerbose(cfg.Verbose))

	var err error
	if len(summaries) == 1 {
		_, err = writer.Write(&summaries[0])
	} else {
		_, err = writer.WriteRuns(summaries)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d/%d pages in %s (%d fetched, %d reused, %d failed, %d missing)\n",
		snap.Terminal(), snap.Total, snap.Elapsed.Round(time.Millisecond),
		snap.Done, snap.Reused, snap.Failed, snap.Skipped)
	return nil
}
