package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/ruthless/internal/config"
	"github.com/nao1215/ruthless/internal/model"
)

// closeFailer buffers writes and fails on Close, like a file whose final
// flush hits a full disk.
type closeFailer struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (c *closeFailer) Close() error {
	c.closed = true
	return c.closeErr
}

func TestWriteAndClose(t *testing.T) {
	t.Parallel()

	errDiskFull := errors.New("no space left on device")
	errWrite := errors.New("write failed")

	tests := []struct {
		name     string
		writeErr error
		closeErr error
		wantErr  error
	}{
		{name: "success"},
		{name: "close error is returned", closeErr: errDiskFull, wantErr: errDiskFull},
		{name: "write error wins", writeErr: errWrite, closeErr: errDiskFull, wantErr: errWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wc := &closeFailer{closeErr: tt.closeErr}
			err := writeAndClose(wc, func(w io.Writer) error {
				if _, err := io.WriteString(w, "report"); err != nil {
					return err
				}
				return tt.writeErr
			})

			if !wc.closed {
				t.Error("expected the writer to be closed")
			}
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWriteReportFormats(t *testing.T) {
	t.Parallel()

	frontier := &model.FrontierReport{
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Tags:        []model.TagSummary{{Tag: "site", Pending: 1}},
	}

	tests := []struct {
		name   string
		modify func(*config.Config)
		want   string
	}{
		{name: "text", modify: func(*config.Config) {}, want: "RUTHLESS FRONTIER"},
		{name: "json", modify: func(c *config.Config) { c.JSONReport = true }, want: `"totals"`},
		{name: "markdown", modify: func(c *config.Config) { c.MarkdownReport = true }, want: "# Ruthless Frontier Report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			tt.modify(cfg)
			var buf bytes.Buffer
			if err := writeReport(&buf, cfg, frontier); err != nil {
				t.Fatalf("writeReport() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q in output\n%s", tt.want, buf.String())
			}
		})
	}
}
