package report

import (
	"io"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/ruthless/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.FrontierReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeSummary(md, report)
	w.writeTags(md, report)
	w.writeDepths(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.FrontierReport) {
	totals := report.Totals()

	md.H1("Ruthless Frontier Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", report.GeneratedAt.Format(timeLayout)},
			{"Tags", itoa(int64(len(report.Tags)))},
			{"Pages", itoa(totals.Total())},
			{"Pending", itoa(totals.Pending)},
			{"Fetched", itoa(totals.Fetched)},
			{"Failed", itoa(totals.Failed)},
			{"Next depth", minDepthText(totals.MinPendingDepth)},
		},
	})
	md.PlainText("")

	if totals.Total() > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Page States"),
			piechart.WithShowData(true),
		)
		if totals.Pending > 0 {
			chart.LabelAndIntValue("Pending", uint64(totals.Pending))
		}
		if totals.Fetched > 0 {
			chart.LabelAndIntValue("Fetched", uint64(totals.Fetched))
		}
		if totals.Failed > 0 {
			chart.LabelAndIntValue("Failed", uint64(totals.Failed))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case totals.Total() == 0:
		md.Note("No pages stored yet.")
	case totals.Done():
		md.Tip("The frontier is exhausted. Every stored page has been processed.")
	default:
		md.Importantf("%d page(s) still pending.", totals.Pending)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeTags(md *markdown.Markdown, report *model.FrontierReport) {
	md.H2("Tags")
	md.PlainText("")

	if len(report.Tags) == 0 {
		md.PlainText("No tags.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Tags))
	for i, s := range report.Tags {
		rows[i] = []string{
			"`" + s.Tag + "`",
			itoa(s.Pending),
			itoa(s.Fetched),
			itoa(s.Failed),
			minDepthText(s.MinPendingDepth),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Tag", "Pending", "Fetched", "Failed", "Min depth"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeDepths(md *markdown.Markdown, report *model.FrontierReport) {
	if len(report.PendingDepths) == 0 {
		return
	}

	md.H2("Pending Depths")
	md.PlainText("")
	rows := make([][]string, len(report.PendingDepths))
	for i, d := range report.PendingDepths {
		rows[i] = []string{itoa(int64(d.Depth)), itoa(d.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Depth", "Pending"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [ruthless](https://github.com/nao1215/ruthless)*")
}
