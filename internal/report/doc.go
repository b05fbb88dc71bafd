// Package report renders a model.FrontierReport for the status command.
//
// Three formats are available behind the Writer interface:
//   - SimpleWriter: aligned plain text for the terminal
//   - JSONWriter: the report wrapped with the tool version, for scripts
//   - MarkdownWriter: tables and a mermaid pie chart for sharing
package report
