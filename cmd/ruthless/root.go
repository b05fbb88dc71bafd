package main

import (
	"fmt"
	"os"

	"github.com/nao1215/ruthless/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ruthless.
func NewRootCmd() *cobra.Command {
	config.Version = getVersion()

	cmd := &cobra.Command{
		Use:   "ruthless",
		Short: "Breadth-biased web crawler with a durable frontier",
		Long: `ruthless crawls the web breadth first. Every discovered link is stored as
a pending page one level deeper than its parent (or 100 levels deeper when it
points to another host), and the next page is always picked at random among
the shallowest pending pages.

Pages live in SQLite by default (in the XDG data directory) or in PostgreSQL
with --driver postgres --dsn ..., so crawls survive restarts and can be
resumed with 'ruthless run'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	flags := cmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.StringP("config", "c", "",
		"Configuration file path (default: .ruthless in current or home directory)")
	flags.String("driver", config.DefaultDriver, "Page store backend: sqlite or postgres")
	flags.String("dsn", "", "PostgreSQL connection string (postgres driver only)")
	flags.String("db-dir", config.XDGDataDir(), "Directory of the SQLite database")
	flags.Int("connect-retries", config.DefaultConnectRetries,
		"How often a failing initial database connection is retried")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
