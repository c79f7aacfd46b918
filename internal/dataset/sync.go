package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/lehigh-university-libraries/marvelous/internal/cache"
)

// ImportStats summarises an Import run
type ImportStats struct {
	Created int
	Updated int
	Skipped int
}

// Export writes every cached entry, newest first, to path
func Export(ctx context.Context, c *cache.Cache, path string) (int, error) {
	entries, err := c.MostRecentEntries(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache: %w", err)
	}

	records := make([]SnapshotRecord, len(entries))
	for i, e := range entries {
		records[i] = FromEntry(e)
	}
	if err := Write(path, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Import upserts the snapshot at path into the cache. Rows are written
// oldest first so the snapshot's recency order carries over; rows without a
// positive ID are skipped.
func Import(ctx context.Context, c *cache.Cache, path string) (ImportStats, error) {
	var stats ImportStats

	records, err := NewLoader(path).Load()
	if err != nil {
		return stats, fmt.Errorf("failed to load snapshot: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].WrittenAt < records[j].WrittenAt
	})

	for _, r := range records {
		if r.ID <= 0 {
			slog.Warn("Skipping snapshot row without id", "name", r.Name)
			stats.Skipped++
			continue
		}
		created, err := c.Upsert(ctx, r.Record())
		if err != nil {
			return stats, fmt.Errorf("failed to import id %d: %w", r.ID, err)
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
	}

	slog.Info("Imported snapshot", "path", path, "created", stats.Created, "updated", stats.Updated, "skipped", stats.Skipped)
	return stats, nil
}
