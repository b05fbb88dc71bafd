package crawler

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/nao1215/ruthless/internal/model"
)

func seededRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestFrontierNext(t *testing.T) {
	t.Parallel()

	t.Run("empty frontier returns nil", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier(&memStore{}, seededRand(), nil, discardLogger())
		page, err := f.Next(context.Background())
		if err != nil || page != nil {
			t.Errorf("Next() = %v, %v, want nil, nil", page, err)
		}
	})

	t.Run("always picks the smallest pending depth", func(t *testing.T) {
		t.Parallel()

		store := &memStore{}
		store.add("https://a/1", 2)
		store.add("https://a/2", 2)
		deep := store.add("https://a/deep", 5)

		f := NewFrontier(store, seededRand(), nil, discardLogger())
		ctx := context.Background()

		for range 2 {
			page, err := f.Next(ctx)
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if page.Depth != 2 {
				t.Fatalf("Next returned depth %d while depth 2 is pending", page.Depth)
			}
			if err := store.MarkFetched(ctx, page.ID, ""); err != nil {
				t.Fatalf("MarkFetched failed: %v", err)
			}
		}

		page, err := f.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if page.ID != deep.ID {
			t.Errorf("Next = %s, want the depth 5 page", page.URL)
		}
		if err := store.MarkFailed(ctx, page.ID, "network-error"); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}

		page, err = f.Next(ctx)
		if err != nil || page != nil {
			t.Errorf("Next after all terminal = %v, %v", page, err)
		}
	})

	t.Run("selection is uniform among equal depth pages", func(t *testing.T) {
		t.Parallel()

		store := &memStore{}
		const n = 4
		for i := range n {
			store.add("https://a/"+string(rune('a'+i)), 0)
		}
		store.add("https://a/deeper", 1)

		f := NewFrontier(store, seededRand(), nil, discardLogger())
		counts := make(map[int64]int)
		const draws = 8000
		for range draws {
			page, err := f.Next(context.Background())
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			counts[page.ID]++
		}

		if len(counts) != n {
			t.Fatalf("selected %d distinct pages, want %d", len(counts), n)
		}
		expected := float64(draws) / n
		for id, c := range counts {
			if dev := (float64(c) - expected) / expected; dev > 0.1 || dev < -0.1 {
				t.Errorf("page %d selected %d times, expected about %.0f", id, c, expected)
			}
		}
	})

	t.Run("vanished page is retried", func(t *testing.T) {
		t.Parallel()

		store := &memStore{vanish: maxSelectAttempts - 1}
		store.add("https://a/", 0)

		f := NewFrontier(store, seededRand(), nil, discardLogger())
		page, err := f.Next(context.Background())
		if err != nil || page == nil {
			t.Errorf("Next() = %v, %v, want a page", page, err)
		}
	})

	t.Run("persistent contention is reported", func(t *testing.T) {
		t.Parallel()

		store := &memStore{vanish: maxSelectAttempts}
		store.add("https://a/", 0)

		f := NewFrontier(store, seededRand(), nil, discardLogger())
		if _, err := f.Next(context.Background()); !errors.Is(err, ErrFrontierContention) {
			t.Errorf("expected ErrFrontierContention, got %v", err)
		}
	})

	t.Run("store errors are returned", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("disk on fire")
		f := NewFrontier(&memStore{histogramErr: boom}, seededRand(), nil, discardLogger())
		if _, err := f.Next(context.Background()); !errors.Is(err, boom) {
			t.Errorf("expected wrapped store error, got %v", err)
		}
	})

	t.Run("works on the sqlite store", func(t *testing.T) {
		t.Parallel()

		db := openTestStore(t)
		ctx := context.Background()
		for _, u := range []string{"https://a/1", "https://a/2"} {
			if _, err := db.InsertPage(ctx, model.NewSeed(u, "t", 2)); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := db.InsertPage(ctx, model.NewSeed("https://a/5", "t", 5)); err != nil {
			t.Fatal(err)
		}

		f := NewFrontier(db, seededRand(), nil, discardLogger())
		for range 20 {
			page, err := f.Next(ctx)
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if page.Depth != 2 {
				t.Fatalf("Next returned depth %d", page.Depth)
			}
		}
	})
}
