package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/ruthless/internal/config"
	"github.com/nao1215/ruthless/internal/model"
	"github.com/nao1215/ruthless/internal/report"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show crawl progress per tag",
		Long: `Status prints how many pages of each tag are pending, fetched and failed,
and how the pending pages are spread over depths.

Examples:
  ruthless status
  ruthless status --json
  ruthless status --markdown -o reports/frontier.md`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg)
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	frontier, err := store.FrontierReport(ctx)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	return outputReport(cmd.OutOrStdout(), cfg, frontier)
}

// outputReport writes the report in the requested format to the report
// file, or to stdout when no file is configured.
func outputReport(stdout io.Writer, cfg *config.Config, frontier *model.FrontierReport) error {
	if cfg.ReportFile == "" {
		return writeReport(stdout, cfg, frontier)
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	return writeAndClose(f, func(w io.Writer) error {
		return writeReport(w, cfg, frontier)
	})
}

// writeAndClose runs write against wc and closes it. A close error is
// reported when the write itself succeeded.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) error {
	werr := write(wc)
	cerr := wc.Close()
	if werr != nil {
		return werr
	}
	if cerr != nil {
		return fmt.Errorf("failed to close output file: %w", cerr)
	}
	return nil
}

// writeReport renders frontier to output in the format selected by cfg.
func writeReport(output io.Writer, cfg *config.Config, frontier *model.FrontierReport) error {
	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output)
	}

	_, err := w.Write(frontier)
	return err
}
