package main

import (
	"fmt"

	"github.com/nao1215/ruthless/internal/crawler"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl --tag TAG URL...",
		Short: "Seed URLs and crawl until the frontier is empty",
		Long: `Crawl inserts the given URLs as seeds of TAG and then processes pending
pages until none are left.

Each fetched page is stored with its HTML, and every http(s) link found in it
becomes a pending page of the same tag: one level deeper on the same host,
100 levels deeper on another host. The shallowest pending pages are always
fetched first, picked at random among equals.

Interrupting a crawl (Ctrl+C) finishes the pages in flight and exits; run
'ruthless run' later to continue where it stopped.

Examples:
  # Crawl a site with the default SQLite store
  ruthless crawl --tag docs https://go.dev/doc/

  # Four workers, shared dedup cache and metrics
  ruthless crawl -t news -w 4 --redis-url redis://localhost:6379/0 \
      --metrics-addr :9090 https://example.com/

  # Use PostgreSQL as the page store
  ruthless --driver postgres --dsn postgres://crawler@localhost/ruthless \
      crawl -t news https://example.com/`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	addSeedFlags(cmd)
	addRunFlags(cmd)

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSeeds(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := crawler.NewSeeder(store, logger).Seed(ctx, cfg.Tag, cfg.SeedDepth, cfg.Seeds...)
	if err != nil {
		return err
	}
	printSeedResult(cmd, cfg.Tag, result)

	return runCrawl(ctx, cmd, cfg, store, logger)
}
