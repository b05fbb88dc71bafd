package main

import (
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resume crawling pending pages",
		Long: `Run processes pending pages of every tag until none are left, without
adding seeds. Use it to resume an interrupted crawl or to add workers
(possibly on other machines sharing a PostgreSQL store) to a running one.

Processes started with the same --run-id and --redis-url share one dedup
cache. Without --run-id every process gets a fresh id and its own cache.

Examples:
  ruthless run
  ruthless run -w 8 --redis-url redis://localhost:6379/0 --run-id nightly`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	addRunFlags(cmd)

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg)
	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return runCrawl(ctx, cmd, cfg, store, logger)
}
