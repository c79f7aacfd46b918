// Package lookup composes the catalog client and the record cache the way a
// front end uses them: search the catalog, remember the hit, refresh the
// recently viewed list.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/marvelous/internal/catalog"
	"github.com/lehigh-university-libraries/marvelous/internal/models"
)

// warmConcurrency caps concurrent page requests in Warm
const warmConcurrency = 4

// ErrNotFound is returned by Search when the catalog has no match
var ErrNotFound = errors.New("not found")

// Catalog is the subset of *catalog.Client the service needs
type Catalog interface {
	FetchMatching(ctx context.Context, prefix string) *catalog.Result[[]models.Record]
	FetchPage(ctx context.Context, limit, offset int) *catalog.Result[*models.Container]
}

// Store is the subset of *cache.Cache the service needs
type Store interface {
	Upsert(ctx context.Context, rec models.Record) (bool, error)
	Get(ctx context.Context, id int) (models.Record, bool, error)
	MostRecent(ctx context.Context, n int) ([]models.Record, error)
	TrimToCapacity(ctx context.Context, n int) (int64, error)
	Delete(ctx context.Context, id int) (bool, error)
}

// SearchResult is what a search hands back to the front end
type SearchResult struct {
	Selected models.Record   `json:"selected"`
	Matches  []models.Record `json:"matches"`
	Recent   []models.Record `json:"recent"`
	Created  bool            `json:"created"`
}

// Service wires a catalog to a cache with a fixed capacity
type Service struct {
	catalog    Catalog
	store      Store
	maxEntries int
}

// New creates a lookup service
func New(c Catalog, s Store, maxEntries int) *Service {
	return &Service{catalog: c, store: s, maxEntries: maxEntries}
}

// Recent returns the cached list shown before any network activity
func (s *Service) Recent(ctx context.Context) ([]models.Record, error) {
	return s.store.MostRecent(ctx, s.maxEntries)
}

// Cached returns a single cached record
func (s *Service) Cached(ctx context.Context, id int) (models.Record, bool, error) {
	return s.store.Get(ctx, id)
}

// Forget removes a record from the cache
func (s *Service) Forget(ctx context.Context, id int) (bool, error) {
	return s.store.Delete(ctx, id)
}

// Search looks up characters by name prefix. The first match is written to
// the cache, the cache is trimmed to capacity and the refreshed recent list
// is returned alongside all matches.
func (s *Service) Search(ctx context.Context, text string) (SearchResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SearchResult{}, fmt.Errorf("%w: empty search", ErrNotFound)
	}

	matches, err := s.catalog.FetchMatching(ctx, text).Await(ctx)
	if err != nil {
		return SearchResult{}, err
	}
	if len(matches) == 0 {
		return SearchResult{}, fmt.Errorf("%w: name %s", ErrNotFound, text)
	}

	selected := matches[0]
	created, err := s.remember(ctx, selected)
	if err != nil {
		return SearchResult{}, err
	}
	recent, err := s.store.MostRecent(ctx, s.maxEntries)
	if err != nil {
		return SearchResult{}, fmt.Errorf("failed to refresh recent list: %w", err)
	}

	slog.Info("Search complete", "text", text, "matches", len(matches), "selected", selected.Name, "created", created)
	return SearchResult{
		Selected: selected,
		Matches:  matches,
		Recent:   recent,
		Created:  created,
	}, nil
}

func (s *Service) remember(ctx context.Context, rec models.Record) (bool, error) {
	created, err := s.store.Upsert(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("failed to cache %s: %w", rec.Name, err)
	}
	if _, err := s.store.TrimToCapacity(ctx, s.maxEntries); err != nil {
		return created, fmt.Errorf("failed to trim cache: %w", err)
	}
	return created, nil
}

// Warm fetches the given number of listing pages concurrently and caches
// every character returned. The first failure cancels the remaining pages.
func (s *Service) Warm(ctx context.Context, pages, pageSize int) (int, error) {
	if pages <= 0 || pageSize <= 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)

	results := make([][]models.Record, pages)
	for i := 0; i < pages; i++ {
		g.Go(func() error {
			page, err := s.catalog.FetchPage(gctx, pageSize, i*pageSize).Await(gctx)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			results[i] = page.Results
			slog.Debug("Fetched page", "page", i, "count", len(page.Results))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	// write in reverse listing order so the first listed ends up newest
	written := 0
	for i := len(results) - 1; i >= 0; i-- {
		for j := len(results[i]) - 1; j >= 0; j-- {
			rec := results[i][j]
			if _, err := s.store.Upsert(ctx, rec); err != nil {
				return written, fmt.Errorf("failed to cache %s: %w", rec.Name, err)
			}
			written++
		}
	}
	if _, err := s.store.TrimToCapacity(ctx, s.maxEntries); err != nil {
		return written, fmt.Errorf("failed to trim cache: %w", err)
	}
	return written, nil
}

// Describe turns an error into the message a user sees
func Describe(err error) (title, message string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		return "Not found", err.Error()
	default:
		return "API Error", err.Error()
	}
}
