package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/ruthless/internal/report"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSite serves a three page site: the index links to an article and to a
// PDF, which is not HTML and therefore fails.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><a href="/article">a</a> <a href='/paper.pdf'>p</a> <a href="mailto:x@example.com">m</a></html>`)
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><a href="/">home</a></html>`)
	})
	mux.HandleFunc("/paper.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// execute runs the CLI against an isolated database and config file.
func execute(t *testing.T, dbDir string, args ...string) (string, error) {
	t.Helper()

	cfgPath := filepath.Join(dbDir, "config.yaml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := os.WriteFile(cfgPath, []byte("crawl:\n  pollInterval: 10ms\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"-c", cfgPath, "--db-dir", dbDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func readStatus(t *testing.T, dbDir string) report.JSONReport {
	t.Helper()
	out, err := execute(t, dbDir, "status", "--json")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var doc report.JSONReport
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("status is not JSON: %v\n%s", err, out)
	}
	return doc
}

func TestCrawlCommand(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	dbDir := t.TempDir()

	out, err := execute(t, dbDir, "crawl", "--tag", "site", srv.URL+"/")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if !strings.Contains(out, `Seeded tag "site": 1 new, 0 moved`) {
		t.Errorf("unexpected seed output:\n%s", out)
	}
	if !strings.Contains(out, "Frontier exhausted") {
		t.Errorf("expected the frontier to be exhausted:\n%s", out)
	}
	if !strings.Contains(out, "2 fetched, 1 failed") {
		t.Errorf("unexpected crawl summary:\n%s", out)
	}

	doc := readStatus(t, dbDir)
	if len(doc.Report.Tags) != 1 || doc.Report.Tags[0].Tag != "site" {
		t.Fatalf("unexpected tags %+v", doc.Report.Tags)
	}
	if doc.Totals.Fetched != 2 || doc.Totals.Failed != 1 || doc.Totals.Pending != 0 {
		t.Errorf("unexpected totals %+v", doc.Totals)
	}
}

func TestSeedThenRun(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	dbDir := t.TempDir()

	if _, err := execute(t, dbDir, "seed", "--tag", "site", "--depth", "4", srv.URL+"/"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	doc := readStatus(t, dbDir)
	if doc.Totals.Pending != 1 {
		t.Fatalf("expected one pending seed, got %+v", doc.Totals)
	}
	if d := doc.Totals.MinPendingDepth; d == nil || *d != 4 {
		t.Errorf("expected seed at depth 4, got %v", d)
	}

	out, err := execute(t, dbDir, "seed", "--tag", "site", srv.URL+"/")
	if err != nil {
		t.Fatalf("reseed failed: %v", err)
	}
	if !strings.Contains(out, "0 new, 1 moved") {
		t.Errorf("expected the seed to be moved:\n%s", out)
	}
	if d := readStatus(t, dbDir).Totals.MinPendingDepth; d == nil || *d != 0 {
		t.Errorf("expected reseeded depth 0, got %v", d)
	}

	if _, err := execute(t, dbDir, "run", "-w", "2"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	doc = readStatus(t, dbDir)
	if doc.Totals.Pending != 0 || doc.Totals.Fetched != 2 {
		t.Errorf("unexpected totals after run %+v", doc.Totals)
	}
}

func TestCommandErrors(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"crawl without tag", []string{"crawl", "http://example.com/"}, "no tag"},
		{"seed without urls", []string{"seed", "--tag", "x"}, "no seed URL"},
		{"relative seed", []string{"seed", "--tag", "x", "/relative"}, "absolute"},
		{"run with arguments", []string{"run", "http://example.com/"}, "unknown command"},
	}
	for _, tt := range tests {
		_, err := execute(t, dbDir, tt.args...)
		if err == nil {
			t.Errorf("%s: expected an error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected error containing %q, got %v", tt.name, tt.want, err)
		}
	}
}

func TestStatusFormats(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	if _, err := execute(t, dbDir, "seed", "--tag", "site", "http://127.0.0.1:1/"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	out, err := execute(t, dbDir, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "RUTHLESS FRONTIER") || !strings.Contains(out, "site") {
		t.Errorf("unexpected text report:\n%s", out)
	}

	reportPath := filepath.Join(dbDir, "reports", "frontier.md")
	if _, err := execute(t, dbDir, "status", "--markdown", "-o", reportPath); err != nil {
		t.Fatalf("status to file failed: %v", err)
	}
	content, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("expected report file: %v", err)
	}
	if !strings.Contains(string(content), "# Ruthless Frontier Report") {
		t.Errorf("unexpected markdown report:\n%s", content)
	}
}
