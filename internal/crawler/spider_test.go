package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/ruthless/internal/fetcher"
	"github.com/nao1215/ruthless/internal/model"
)

func TestSpiderRun(t *testing.T) {
	t.Parallel()

	t.Run("crawls breadth first and stops on an empty frontier", func(t *testing.T) {
		t.Parallel()

		db := openTestStore(t)
		ctx := context.Background()
		if _, err := NewSeeder(db, discardLogger()).Seed(ctx, "t", 0, "https://a.example/"); err != nil {
			t.Fatal(err)
		}

		f := newStubFetcher().
			page("https://a.example/", `<a href="/x">x</a><a href="https://b.example/">b</a>`).
			page("https://a.example/x", `<a href="/">home</a><a href="/y">y</a>`).
			page("https://a.example/y", `no links`).
			page("https://b.example/", `<a href="/z">z</a>`).
			page("https://b.example/z", `end`)

		spider := NewSpider(db, f, WithLogger(discardLogger()), WithRand(seededRand()), WithRunID("run-1"))
		stats, err := spider.Run(ctx)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		want := []string{
			"https://a.example/",
			"https://a.example/x",
			"https://a.example/y",
			"https://b.example/",
			"https://b.example/z",
		}
		if got := f.order(); !slices.Equal(got, want) {
			t.Errorf("fetch order = %q, want %q", got, want)
		}
		if stats.Fetched != 5 || stats.Failed != 0 || stats.Enqueued != 4 {
			t.Errorf("stats = %+v", stats)
		}
		if stats.RunID != "run-1" || spider.RunID() != "run-1" {
			t.Errorf("RunID = %q", stats.RunID)
		}

		if got := mustGet(t, db, "https://b.example/z", "t"); got.Depth != 101 {
			t.Errorf("cross host grandchild depth = %d, want 101", got.Depth)
		}
	})

	t.Run("failures are recorded and the crawl goes on", func(t *testing.T) {
		t.Parallel()

		db := openTestStore(t)
		ctx := context.Background()
		if _, err := NewSeeder(db, discardLogger()).Seed(ctx, "t", 0, "https://a.example/"); err != nil {
			t.Fatal(err)
		}

		f := newStubFetcher().
			page("https://a.example/", `<a href="/down">d</a><a href="/ok">o</a>`).
			fail("https://a.example/down", fetcher.KindNetwork).
			page("https://a.example/ok", ``)

		stats, err := NewSpider(db, f, WithLogger(discardLogger())).Run(ctx)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if stats.Fetched != 2 || stats.Failed != 1 || stats.Processed() != 3 {
			t.Errorf("stats = %+v", stats)
		}

		down := mustGet(t, db, "https://a.example/down", "t")
		if down.State() != model.StateFailed || *down.Error != "network-error" {
			t.Errorf("down = %+v", down)
		}
	})

	t.Run("reseeded page jumps the queue", func(t *testing.T) {
		t.Parallel()

		db := openTestStore(t)
		ctx := context.Background()
		seeder := NewSeeder(db, discardLogger())
		if _, err := seeder.Seed(ctx, "t", 5, "https://a.example/", "https://b.example/"); err != nil {
			t.Fatal(err)
		}
		if _, err := seeder.Seed(ctx, "t", 0, "https://b.example/"); err != nil {
			t.Fatal(err)
		}

		f := newStubFetcher().page("https://a.example/", "").page("https://b.example/", "")
		if _, err := NewSpider(db, f, WithLogger(discardLogger())).Run(ctx); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if got := f.order(); len(got) != 2 || got[0] != "https://b.example/" {
			t.Errorf("fetch order = %q, want b first", got)
		}
	})

	t.Run("depth two pages before depth five", func(t *testing.T) {
		t.Parallel()

		db := openTestStore(t)
		ctx := context.Background()
		seeder := NewSeeder(db, discardLogger())
		if _, err := seeder.Seed(ctx, "t", 2, "https://a.example/1", "https://a.example/2"); err != nil {
			t.Fatal(err)
		}
		if _, err := seeder.Seed(ctx, "t", 5, "https://a.example/5"); err != nil {
			t.Fatal(err)
		}

		f := newStubFetcher().
			page("https://a.example/1", "").
			page("https://a.example/2", "").
			page("https://a.example/5", "")
		if _, err := NewSpider(db, f, WithLogger(discardLogger())).Run(ctx); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if got := f.order(); len(got) != 3 || got[2] != "https://a.example/5" {
			t.Errorf("fetch order = %q, want the depth 5 page last", got)
		}
	})

	t.Run("cancelled context stops before the next page", func(t *testing.T) {
		t.Parallel()

		db := openTestStore(t)
		if _, err := NewSeeder(db, discardLogger()).Seed(context.Background(), "t", 0, "https://a.example/"); err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f := newStubFetcher().page("https://a.example/", "")
		_, err := NewSpider(db, f, WithLogger(discardLogger())).Run(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(f.order()) != 0 {
			t.Errorf("fetched %q after cancellation", f.order())
		}
	})

	t.Run("store errors end the run", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("disk full")
		store := &brokenStore{memStore: &memStore{}, insertErr: boom}
		store.add("https://a.example/", 0)

		f := newStubFetcher().page("https://a.example/", `<a href="/b">b</a>`)
		_, err := NewSpider(store, f, WithLogger(discardLogger())).Run(context.Background())
		if !errors.Is(err, boom) {
			t.Errorf("expected store error, got %v", err)
		}
	})
}

func TestSpiderWorkers(t *testing.T) {
	t.Parallel()

	db := openTestStore(t)
	ctx := context.Background()
	if _, err := NewSeeder(db, discardLogger()).Seed(ctx, "t", 0, "https://a.example/0"); err != nil {
		t.Fatal(err)
	}

	// A binary tree of 31 pages on one host.
	f := newStubFetcher()
	for i := range 31 {
		var links strings.Builder
		for _, c := range []int{2*i + 1, 2*i + 2} {
			if c < 31 {
				fmt.Fprintf(&links, `<a href="/%d">%d</a>`, c, c)
			}
		}
		f.page(fmt.Sprintf("https://a.example/%d", i), links.String())
	}

	spider := NewSpider(db, f,
		WithWorkers(4),
		WithPollInterval(5*time.Millisecond),
		WithLogger(discardLogger()))
	stats, err := spider.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	order := f.order()
	if len(order) != 31 {
		t.Errorf("fetched %d pages, want 31", len(order))
	}
	seen := make(map[string]bool)
	for _, u := range order {
		if seen[u] {
			t.Errorf("%s fetched twice", u)
		}
		seen[u] = true
	}
	if stats.Fetched+stats.Skipped != 31 || stats.Enqueued != 30 {
		t.Errorf("stats = %+v", stats)
	}

	report, err := db.FrontierReport(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if totals := report.Totals(); totals.Pending != 0 || totals.Fetched != 31 {
		t.Errorf("totals = %+v", totals)
	}
}

func TestSpiderWithHTTP(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", "landing/")
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusFound)
		_, _ = w.Write([]byte(`<a href="/from-redirect-body">never</a>`))
	})
	mux.HandleFunc("/landing/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<h1>landing</h1><a href="/report.pdf">pdf</a>`))
	})
	mux.HandleFunc("/report.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	db := openTestStore(t)
	ctx := context.Background()
	if _, err := NewSeeder(db, discardLogger()).Seed(ctx, "t", 0, srv.URL+"/start"); err != nil {
		t.Fatal(err)
	}

	spider := NewSpider(db, fetcher.New(fetcher.WithLogger(discardLogger())), WithLogger(discardLogger()))
	if _, err := spider.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	start := mustGet(t, db, srv.URL+"/start", "t")
	if start.State() != model.StateFetched || !strings.Contains(*start.Content, "<h1>landing</h1>") {
		t.Errorf("stored content is not the redirect target: %+v", start)
	}

	pdf := mustGet(t, db, srv.URL+"/report.pdf", "t")
	if pdf.State() != model.StateFailed || *pdf.Error != string(fetcher.KindNotHTML) {
		t.Errorf("pdf = %+v", pdf)
	}

	if _, err := db.GetPage(ctx, srv.URL+"/from-redirect-body", "t"); !errors.Is(err, model.ErrPageNotFound) {
		t.Errorf("links from the redirect body must not be followed, got %v", err)
	}
}
