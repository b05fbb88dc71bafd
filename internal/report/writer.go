package report

import (
	"io"

	"github.com/nao1215/ruthless/internal/model"
)

// Writer renders a frontier report to its destination.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.FrontierReport) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// timeLayout is used for every human-readable timestamp.
const timeLayout = "2006-01-02 15:04:05 MST"

// minDepthText formats an optional depth, "-" when absent.
func minDepthText(depth *int) string {
	if depth == nil {
		return "-"
	}
	return itoa(int64(*depth))
}

// percent returns part/total as a percentage, 0 for an empty total.
func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}
