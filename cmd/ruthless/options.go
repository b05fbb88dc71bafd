package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/ruthless/internal/config"
	"github.com/nao1215/ruthless/internal/crawler"
	"github.com/nao1215/ruthless/internal/database"
	"github.com/nao1215/ruthless/internal/fetcher"
	"github.com/nao1215/ruthless/internal/log"
	"github.com/nao1215/ruthless/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// addSeedFlags registers the flags of commands that insert seeds.
func addSeedFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("tag", "t", "", "Name of the crawl; every discovered page inherits it (required)")
	cmd.Flags().IntP("depth", "d", 0, "Depth given to the seeds; existing seeds are moved to it")
}

// addRunFlags registers the flags of commands that run the crawl loop.
func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntP("workers", "w", config.DefaultWorkers, "Number of pages processed concurrently")
	flags.Duration("poll-interval", config.DefaultPollInterval,
		"How long an idle worker waits while others are still processing")
	flags.Duration("timeout", config.DefaultFetchTimeout, "Timeout of one fetch including redirects")
	flags.Int("max-redirects", config.DefaultMaxRedirects, "Redirect limit per fetch")
	flags.Int64("max-body-size", config.DefaultMaxBodySize, "Maximum response body bytes read per page")
	flags.String("user-agent", config.DefaultUserAgent(), "User-Agent header sent with every request")
	flags.String("proxy", "", "Route fetches through a SOCKS5 proxy (host:port)")
	flags.String("redis-url", "", "Share the dedup cache through Redis (redis://host:port/db)")
	flags.String("run-id", "",
		"Run id; processes with the same run id and --redis-url share the dedup cache (default: random)")
	flags.String("redis-prefix", config.DefaultRedisPrefix, "Key prefix of the Redis dedup cache")
	flags.Duration("redis-ttl", config.DefaultRedisTTL, "Expiry of the Redis dedup sets")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}

// buildConfig creates a Config from defaults, the config file and the
// command's flags. Flags the command does not define are left at their
// defaults.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicit config path must exist; the implicit lookup is optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" && cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	stringFlags := map[string]*string{
		"driver":       &cfg.Driver,
		"dsn":          &cfg.DSN,
		"db-dir":       &cfg.DBDir,
		"tag":          &cfg.Tag,
		"user-agent":   &cfg.UserAgent,
		"proxy":        &cfg.ProxyAddress,
		"redis-url":    &cfg.RedisURL,
		"run-id":       &cfg.RunID,
		"redis-prefix": &cfg.RedisPrefix,
		"metrics-addr": &cfg.MetricsAddr,
		"output":       &cfg.ReportFile,
	}
	for name, dst := range stringFlags {
		if flags.Lookup(name) == nil {
			continue
		}
		if *dst, err = flags.GetString(name); err != nil {
			return nil, err
		}
	}

	intFlags := map[string]*int{
		"connect-retries": &cfg.ConnectRetries,
		"depth":           &cfg.SeedDepth,
		"workers":         &cfg.Workers,
		"max-redirects":   &cfg.MaxRedirects,
	}
	for name, dst := range intFlags {
		if flags.Lookup(name) == nil {
			continue
		}
		if *dst, err = flags.GetInt(name); err != nil {
			return nil, err
		}
	}

	durationFlags := map[string]*time.Duration{
		"poll-interval": &cfg.PollInterval,
		"timeout":       &cfg.FetchTimeout,
		"redis-ttl":     &cfg.RedisTTL,
	}
	for name, dst := range durationFlags {
		if flags.Lookup(name) == nil {
			continue
		}
		if *dst, err = flags.GetDuration(name); err != nil {
			return nil, err
		}
	}

	boolFlags := map[string]*bool{
		"verbose":  &cfg.Verbose,
		"log-json": &cfg.JSONLog,
		"json":     &cfg.JSONReport,
		"markdown": &cfg.MarkdownReport,
	}
	for name, dst := range boolFlags {
		if flags.Lookup(name) == nil {
			continue
		}
		if *dst, err = flags.GetBool(name); err != nil {
			return nil, err
		}
	}

	if flags.Lookup("max-body-size") != nil {
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return nil, err
		}
	}

	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg, flags.Changed)
	}

	cfg.Seeds = args

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the secure structured logger for cfg and installs it
// as the default.
func setupLogger(cfg *config.Config) *slog.Logger {
	var logger *slog.Logger
	if cfg.JSONLog {
		logger = log.NewSecureJSONLogger(os.Stderr, cfg.Verbose)
	} else {
		logger = log.NewSecureLogger(os.Stderr, cfg.Verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// The returned stop function releases the signal handler.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, finishing in-flight pages...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// openStore opens the page store selected by cfg.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*database.PageDB, error) {
	opts := database.DefaultOptions()
	opts.Driver = cfg.Driver
	opts.DSN = cfg.DSN
	opts.Dir = cfg.DBDir
	opts.ConnectRetries = cfg.ConnectRetries
	opts.Logger = logger

	store, err := database.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open page store: %w", err)
	}
	logger.Info("page store opened", "driver", store.Driver(), "location", store.Location())
	return store, nil
}

// newFetcher builds the fetcher for cfg, routed through the proxy if set.
func newFetcher(cfg *config.Config, logger *slog.Logger) (*fetcher.Fetcher, error) {
	opts := []fetcher.Option{
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithTimeout(cfg.FetchTimeout),
		fetcher.WithMaxRedirects(cfg.MaxRedirects),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithLogger(logger),
	}

	if cfg.ProxyAddress != "" {
		transport, err := fetcher.NewProxyTransport(cfg.ProxyAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to configure proxy: %w", err)
		}
		opts = append(opts, fetcher.WithTransport(transport))
		logger.Info("fetching through proxy", "address", cfg.ProxyAddress)
	}

	return fetcher.New(opts...), nil
}

// crawlRuntime bundles what a crawl needs besides the store.
type crawlRuntime struct {
	spider  *crawler.Spider
	closers []func()
}

// Close releases the Redis client and stops the metrics server.
func (r *crawlRuntime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// newCrawlRuntime wires the fetcher, dedup cache and metrics into a Spider.
func newCrawlRuntime(ctx context.Context, cfg *config.Config, store crawler.Store, logger *slog.Logger) (*crawlRuntime, error) {
	rt := &crawlRuntime{}

	f, err := newFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []crawler.SpiderOption{
		crawler.WithWorkers(cfg.Workers),
		crawler.WithPollInterval(cfg.PollInterval),
		crawler.WithLogger(logger),
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m, err := metrics.NewCrawler(reg)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		opts = append(opts, crawler.WithMetrics(m))

		metricsCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := metrics.Serve(metricsCtx, cfg.MetricsAddr, reg, logger); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		rt.closers = append(rt.closers, func() {
			stop()
			<-done
		})
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	opts = append(opts, crawler.WithRunID(runID))

	if cfg.RedisURL != "" {
		client, err := crawler.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close redis client", "error", err)
			}
		})
		opts = append(opts, crawler.WithDedupCache(
			crawler.NewRedisCache(client, cfg.RedisPrefix, runID, cfg.RedisTTL)))
		logger.Info("sharing dedup cache through redis", "run", runID)
	}

	spider := crawler.NewSpider(store, f, opts...)
	rt.spider = spider
	return rt, nil
}

// runCrawl runs the crawl loop and prints a summary. Cancellation by a
// signal is a graceful stop, not an error.
func runCrawl(ctx context.Context, cmd *cobra.Command, cfg *config.Config, store crawler.Store, logger *slog.Logger) error {
	rt, err := newCrawlRuntime(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	stats, err := rt.spider.Run(ctx)

	out := cmd.OutOrStdout()
	switch {
	case err == nil:
		fmt.Fprintf(out, "Frontier exhausted after %s\n", stats.Duration.Round(time.Millisecond))
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(out, "Crawl interrupted after %s; resume with 'ruthless run'\n",
			stats.Duration.Round(time.Millisecond))
	default:
		return fmt.Errorf("crawl failed: %w", err)
	}

	fmt.Fprintf(out, "  pages: %d fetched, %d failed, %d skipped\n",
		stats.Fetched, stats.Failed, stats.Skipped)
	fmt.Fprintf(out, "  links: %d found, %d enqueued, %d duplicates\n",
		stats.Links, stats.Enqueued, stats.Duplicates)
	return nil
}
