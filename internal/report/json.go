package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/ruthless/internal/model"
)

// JSONWriter outputs reports in JSON format for scripts and dashboards.
type JSONWriter struct {
	baseWriter

	// version is embedded in the output so consumers can tell which
	// build produced it.
	version string

	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables two-space indented output.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// WithVersion sets the version recorded in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written by JSONWriter.
type JSONReport struct {
	// Version is the ruthless version that generated this report.
	Version string `json:"version,omitempty"`

	// Totals sums all tags.
	Totals model.TagSummary `json:"totals"`

	// Report is the frontier report itself.
	Report *model.FrontierReport `json:"report"`
}

// Write outputs the report in JSON format followed by a newline.
func (w *JSONWriter) Write(report *model.FrontierReport) (int, error) {
	doc := JSONReport{
		Version: w.version,
		Totals:  report.Totals(),
		Report:  report,
	}

	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
