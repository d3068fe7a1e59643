package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/urlsentry/urlsentry/internal/cache"
	"github.com/urlsentry/urlsentry/internal/config"
	"github.com/urlsentry/urlsentry/internal/log"
	"github.com/urlsentry/urlsentry/internal/model"
	"github.com/urlsentry/urlsentry/internal/pipeline"
	"github.com/urlsentry/urlsentry/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]...",
		Short: "Scan one or more URLs and score their safety",
		Long: `Scan probes each URL and produces a 0-100 safety score.

The checks cover:
- Domain registration age and registrar (WHOIS)
- TLS presence, certificate validity, and cipher strength
- Threat databases and IP reputation
- Server hygiene (security headers, cookies, exposed files, admin panels)
- A sandboxed page load that classifies every request the page triggers

Examples:
  # Scan a single URL
  urlsentry scan https://example.com/login

  # Scan multiple URLs concurrently
  urlsentry scan example.com shop.example.net 203.0.113.5

  # Output JSON report
  urlsentry scan --json https://example.com

  # Write a Markdown report to a file
  urlsentry scan --markdown -o report.md https://example.com

  # Use a custom configuration file
  urlsentry scan -c myconfig.yml https://example.com

Configuration file (.urlsentry.yml) example:
  safe_browsing_api_key: "your-key"
  abuseipdb_api_key: "your-key"
  timeout: 45s
  batch_size: 5`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Scan behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent scans")
	cmd.Flags().String("user-agent", "",
		"Override the HTTP User-Agent header")
	cmd.Flags().Bool("no-sandbox", false,
		"Skip the sandboxed page load and request classification")
	cmd.Flags().Bool("no-cache", false,
		"Disable the lookup-response cache")

	// Lookup credentials and policy
	cmd.Flags().String("safe-browsing-key", "",
		"Google Safe Browsing API key (or set safe_browsing_api_key in the config file)")
	cmd.Flags().String("abuseipdb-key", "",
		"AbuseIPDB API key (or set abuseipdb_api_key in the config file)")
	cmd.Flags().String("policy", "",
		"Classification policy file overriding the built-in rules")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .urlsentry.yml in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
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

// buildConfig creates a Config from cobra command flags and the config file.
// Precedence is flags over file over defaults.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.SafeBrowsingAPIKey, err = cmd.Flags().GetString("safe-browsing-key")
	if err != nil {
		return nil, err
	}

	cfg.AbuseIPDBAPIKey, err = cmd.Flags().GetString("abuseipdb-key")
	if err != nil {
		return nil, err
	}

	cfg.PolicyFile, err = cmd.Flags().GetString("policy")
	if err != nil {
		return nil, err
	}

	userAgent, err := cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		cfg.UserAgent = userAgent
	}

	cfg.DisableSandbox, err = cmd.Flags().GetBool("no-sandbox")
	if err != nil {
		return nil, err
	}

	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}
	if noCache {
		cfg.CacheDir = ""
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load settings from the config file.
	// If the user explicitly specified a config file path, error if not found.
	// If no path specified, silently continue when no file exists.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments are the URLs to scan
	cfg.Targets = args

	return cfg, nil
}

// runScan executes the scan.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.Targets) == 0 {
		return errors.New("no targets provided (specify one or more URLs as arguments)")
	}

	logger.Info("starting scan",
		"targets", cfg.Targets,
		"batchSize", cfg.BatchSize,
		"sandbox", !cfg.DisableSandbox,
	)

	// Open the lookup cache unless caching is disabled. A broken cache
	// is not worth failing the scan over; lookups just go uncached.
	var lookupCache *cache.LookupCache
	if cfg.CacheDir != "" {
		opts := cache.DefaultOptions()
		if cfg.CacheTTL > 0 {
			opts.TTL = cfg.CacheTTL
		}

		var err error
		lookupCache, err = cache.Open(cfg.CacheDir, opts)
		if err != nil {
			logger.Warn("lookup cache unavailable, continuing without it",
				"dir", cfg.CacheDir, "error", err)
		} else {
			defer lookupCache.Close()
			if purged, err := lookupCache.Purge(ctx); err == nil && purged > 0 {
				logger.Debug("purged expired cache entries", "count", purged)
			}
		}
	}

	client := &http.Client{Timeout: cfg.Timeout}

	// Build one pipeline up front so configuration problems (a bad
	// policy file, for instance) surface before any target is scanned.
	first, err := pipeline.DefaultPipeline(client, cfg, lookupCache,
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	if err != nil {
		return fmt.Errorf("failed to build scan pipeline: %w", err)
	}

	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return runBatchScan(ctx, cfg, client, lookupCache, logger)
	}

	return runSequentialScan(ctx, cfg, first, logger)
}

// runSequentialScan scans targets one at a time.
func runSequentialScan(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) error {
	results := make([]*model.ScanResult, 0, len(cfg.Targets))

	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result := pipeline.NewResult(target)
		if result.Error != nil {
			logger.Error("invalid target", "target", target, "error", result.Error)
			results = append(results, result)
			continue
		}

		fmt.Fprintf(os.Stderr, "Scanning %s...\n", result.URL)
		startTime := time.Now()

		if err := p.Execute(ctx, result); err != nil {
			logger.Error("scan failed", "target", target, "error", err)
		}

		elapsed := time.Since(startTime)
		fmt.Fprintf(os.Stderr, "Scan completed in %s\n\n", elapsed.Round(time.Millisecond))

		results = append(results, result)
	}

	return outputReport(cfg, results)
}

// runBatchScan scans multiple targets concurrently using BatchProcessor.
func runBatchScan(ctx context.Context, cfg *config.Config, client *http.Client, lookupCache *cache.LookupCache, logger *slog.Logger) error {
	fmt.Fprintf(os.Stderr, "Starting batch scan of %d targets (concurrency: %d)...\n\n",
		len(cfg.Targets), cfg.BatchSize)

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			// Configuration was already validated by the caller, so
			// the factory cannot fail here.
			p, _ := pipeline.DefaultPipeline(client, cfg, lookupCache,
				pipeline.WithLogger(logger),
				pipeline.WithContinueOnError(true),
			)
			return p
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	// Stream per-target progress while collecting every result for the
	// final ranked report.
	var mu sync.Mutex
	results := make([]*model.ScanResult, len(cfg.Targets))
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(result *model.ScanResult, index int) {
		mu.Lock()
		defer mu.Unlock()

		results[index] = result
		fmt.Fprintf(os.Stderr, "[%d/%d] Scan completed: %s (score %d)\n",
			index+1, len(cfg.Targets), result.URL, result.Score)
	})

	elapsed := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "\nBatch scan completed in %s\n\n", elapsed.Round(time.Millisecond))

	if err != nil {
		return err
	}
	return outputReport(cfg, results)
}

// outputReport writes the results in the requested format.
func outputReport(cfg *config.Config, results []*model.ScanResult) error {
	output, closer, err := reportDestination(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	writer := newReportWriter(cfg, output)

	if len(results) == 1 {
		_, err = writer.Write(results[0])
		return err
	}
	_, err = writer.WriteBatch(results)
	return err
}

// reportDestination resolves where the report goes: the configured file
// or stdout. The returned closer is nil for stdout.
func reportDestination(cfg *config.Config) (io.Writer, func(), error) {
	if cfg.ReportFile == "" {
		return os.Stdout, nil, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports can reveal what the operator is investigating, so keep
	// them owner-readable only.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// newReportWriter picks the report writer for the configured format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewTerminalWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
