package main

import (
	"fmt"

	"github.com/nao1215/ruthless/internal/crawler"
	"github.com/spf13/cobra"
)

// NewSeedCmd creates the seed command.
func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed --tag TAG URL...",
		Short: "Add seed URLs without crawling",
		Long: `Seed inserts the given URLs as pending pages of TAG and exits.

Seeding a URL that is already stored under TAG keeps the page and its state
but moves it to --depth. Use this to pull a deep page to the front of a
running crawl.

Examples:
  ruthless seed --tag docs https://go.dev/doc/ https://pkg.go.dev/
  ruthless seed --tag docs --depth 0 https://go.dev/blog/`,
		Args: cobra.ArbitraryArgs,
		RunE: runSeedCmd,
	}

	addSeedFlags(cmd)

	return cmd
}

// runSeedCmd executes the seed command.
func runSeedCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSeeds(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx := cmd.Context()

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
	return nil
}

func printSeedResult(cmd *cobra.Command, tag string, result crawler.SeedResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded tag %q: %d new, %d moved\n", tag, result.Inserted, result.Reseeded)
}
