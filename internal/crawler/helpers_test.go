package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/nao1215/ruthless/internal/database"
	"github.com/nao1215/ruthless/internal/fetcher"
	"github.com/nao1215/ruthless/internal/model"
)

// discardLogger returns a logger that writes nowhere.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openTestStore opens a SQLite page store in a temporary directory.
func openTestStore(t *testing.T) *database.PageDB {
	t.Helper()

	opts := database.DefaultOptions()
	opts.Dir = t.TempDir()
	db, err := database.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// mustGet reads a page or fails the test.
func mustGet(t *testing.T, db *database.PageDB, url, tag string) *model.Page {
	t.Helper()

	page, err := db.GetPage(context.Background(), url, tag)
	if err != nil {
		t.Fatalf("GetPage(%s) failed: %v", url, err)
	}
	return page
}

// stubFetcher serves canned documents and records fetch order.
type stubFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	errs    map[string]error
	fetched []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
	}
}

func (f *stubFetcher) page(url, html string) *stubFetcher {
	f.pages[url] = html
	return f
}

func (f *stubFetcher) fail(url string, kind fetcher.Kind) *stubFetcher {
	f.errs[url] = &fetcher.FetchError{Kind: kind, URL: url}
	return f
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*fetcher.Result, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	html, ok := f.pages[url]
	if !ok {
		return nil, &fetcher.FetchError{Kind: fetcher.KindNetwork, URL: url, Err: errors.New("no such host")}
	}
	return &fetcher.Result{URL: url, HTML: html, ContentType: "text/html", StatusCode: 200}, nil
}

func (f *stubFetcher) order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// memStore is an in-memory Store for scheduler tests.
type memStore struct {
	mu     sync.Mutex
	pages  []*model.Page
	nextID int64

	// vanish makes the next n PendingPageAtOffset calls return nil.
	vanish int

	histogramErr error
}

func (s *memStore) add(url string, depth int) *model.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := model.NewSeed(url, "t", depth)
	p.ID = s.nextID
	s.pages = append(s.pages, p)
	return p
}

func (s *memStore) InsertPage(_ context.Context, page *model.Page) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pages {
		if p.URL == page.URL && p.Tag == page.Tag {
			return 0, model.ErrDuplicatePage
		}
	}
	s.nextID++
	page.ID = s.nextID
	cp := *page
	s.pages = append(s.pages, &cp)
	return page.ID, nil
}

func (s *memStore) UpdateSeedDepth(_ context.Context, url, tag string, depth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pages {
		if p.URL == url && p.Tag == tag {
			p.Depth = depth
			return nil
		}
	}
	return model.ErrPageNotFound
}

func (s *memStore) MarkFetched(_ context.Context, id int64, content string) error {
	return s.finish(id, func(p *model.Page) { p.Content = &content })
}

func (s *memStore) MarkFailed(_ context.Context, id int64, reason string) error {
	return s.finish(id, func(p *model.Page) { p.Error = &reason })
}

func (s *memStore) finish(id int64, set func(*model.Page)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pages {
		if p.ID == id {
			if p.Content != nil || p.Error != nil {
				return model.ErrPageNotPending
			}
			set(p)
			return nil
		}
	}
	return model.ErrPageNotPending
}

func (s *memStore) pending(depth int) []*model.Page {
	var out []*model.Page
	for _, p := range s.pages {
		if p.Content == nil && p.Error == nil && p.Depth == depth {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) PendingDepthHistogram(_ context.Context) ([]model.DepthCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.histogramErr != nil {
		return nil, s.histogramErr
	}
	counts := make(map[int]int64)
	for _, p := range s.pages {
		if p.Content == nil && p.Error == nil {
			counts[p.Depth]++
		}
	}
	var out []model.DepthCount
	for d, c := range counts {
		out = append(out, model.DepthCount{Depth: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Depth < out[j].Depth })
	return out, nil
}

func (s *memStore) PendingPageAtOffset(_ context.Context, depth int, offset int64) (*model.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vanish > 0 {
		s.vanish--
		return nil, nil
	}
	pending := s.pending(depth)
	if offset >= int64(len(pending)) {
		return nil, nil
	}
	cp := *pending[offset]
	return &cp, nil
}
