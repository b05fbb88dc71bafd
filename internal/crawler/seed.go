package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/nao1215/ruthless/internal/model"
)

// ErrInvalidSeedURL is returned for seeds that are not absolute http(s) URLs.
var ErrInvalidSeedURL = errors.New("seed must be an absolute http or https URL")

// SeedResult counts what Seed did.
type SeedResult struct {
	// Inserted is the number of new pending pages.
	Inserted int

	// Reseeded is the number of existing pages whose depth was forced.
	Reseeded int
}

// Seeder adds seed URLs to the store.
type Seeder struct {
	store  Store
	logger *slog.Logger
}

// NewSeeder creates a Seeder.
func NewSeeder(store Store, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{store: store, logger: logger}
}

// Seed inserts each URL as a pending page of tag at depth. A URL already
// known under tag keeps its row and state but gets its depth forced to
// depth, which lets an operator pull a deep page to the front of the crawl.
// Re-seeding a fetched or failed page does not make it pending again.
func (s *Seeder) Seed(ctx context.Context, tag string, depth int, urls ...string) (SeedResult, error) {
	var result SeedResult

	for _, raw := range urls {
		if err := validateSeed(raw); err != nil {
			return result, fmt.Errorf("%w: %q", err, raw)
		}

		_, err := s.store.InsertPage(ctx, model.NewSeed(raw, tag, depth))
		switch {
		case err == nil:
			result.Inserted++
			s.logger.Debug("seeded", "url", raw, "tag", tag, "depth", depth)
		case errors.Is(err, model.ErrDuplicatePage):
			if err := s.store.UpdateSeedDepth(ctx, raw, tag, depth); err != nil {
				return result, fmt.Errorf("failed to reseed %s: %w", raw, err)
			}
			result.Reseeded++
			s.logger.Debug("reseeded", "url", raw, "tag", tag, "depth", depth)
		default:
			return result, fmt.Errorf("failed to seed %s: %w", raw, err)
		}
	}

	return result, nil
}

func validateSeed(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidSeedURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidSeedURL
	}
	return nil
}
