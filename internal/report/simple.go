package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/ruthless/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SimpleWriter outputs a human-readable text report for the terminal.
type SimpleWriter struct {
	baseWriter

	// showDepths adds the pending depth histogram to the output.
	showDepths bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithDepths toggles the pending depth histogram section.
func WithDepths(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showDepths = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
// The depth histogram is shown by default.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showDepths: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

var title = cases.Title(language.English)

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.FrontierReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeTags(&sb, report)
	if w.showDepths {
		w.writeDepths(&sb, report)
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.FrontierReport) {
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                    RUTHLESS FRONTIER\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	totals := report.Totals()
	fmt.Fprintf(sb, "Generated:  %s\n", report.GeneratedAt.Format(timeLayout))
	fmt.Fprintf(sb, "Tags:       %d\n", len(report.Tags))
	fmt.Fprintf(sb, "Pages:      %d\n", totals.Total())
	for _, state := range []struct {
		name  model.PageState
		count int64
	}{
		{model.StatePending, totals.Pending},
		{model.StateFetched, totals.Fetched},
		{model.StateFailed, totals.Failed},
	} {
		label := title.String(state.name.String()) + ":"
		fmt.Fprintf(sb, "%-11s %d (%.1f%%)\n", label, state.count, percent(state.count, totals.Total()))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTags(sb *strings.Builder, report *model.FrontierReport) {
	sb.WriteString("TAGS\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")

	if len(report.Tags) == 0 {
		sb.WriteString("No pages stored yet. Seed a crawl with 'ruthless seed'.\n\n")
		return
	}

	fmt.Fprintf(sb, "%-20s %9s %9s %9s %9s\n", "TAG", "PENDING", "FETCHED", "FAILED", "MIN DEPTH")
	for _, s := range report.Tags {
		status := ""
		if s.Done() {
			status = "  done"
		}
		fmt.Fprintf(sb, "%-20s %9d %9d %9d %9s%s\n",
			s.Tag, s.Pending, s.Fetched, s.Failed, minDepthText(s.MinPendingDepth), status)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDepths(sb *strings.Builder, report *model.FrontierReport) {
	if len(report.PendingDepths) == 0 {
		return
	}

	sb.WriteString("PENDING BY DEPTH\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	for _, d := range report.PendingDepths {
		fmt.Fprintf(sb, "depth %-6d %d\n", d.Depth, d.Count)
	}
	sb.WriteString("\n")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
