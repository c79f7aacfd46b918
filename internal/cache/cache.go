// Package cache is a persistent, size-bounded store of characters ordered by
// the time they were last written. Entries are deduplicated by character ID.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	_ "modernc.org/sqlite"

	"github.com/lehigh-university-libraries/marvelous/internal/models"
	"github.com/lehigh-university-libraries/marvelous/internal/telemetry"
)

// DefaultMaxEntries is the capacity used by TrimToDefault when none is set
const DefaultMaxEntries = 20

// ErrInvalidID is returned when upserting a record without a positive ID
var ErrInvalidID = errors.New("record id must be positive")

// Entry is the persisted form of a record
type Entry struct {
	StorageKey     int64
	WriteTimestamp time.Time
	Record         models.Record
}

// Option configures a Cache
type Option func(*Cache)

// WithMaxEntries sets the capacity used by TrimToDefault
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// WithClock overrides the clock used for write timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache is safe for concurrent use. Each public operation runs under a
// single store-wide lock, so an upsert's lookup and write cannot interleave
// with another upsert or a trim.
type Cache struct {
	mu         sync.Mutex
	db         *sql.DB
	maxEntries int
	now        func() time.Time

	upserts   metric.Int64Counter
	evictions metric.Int64Counter
	lookups   metric.Int64Counter
}

// Open opens, creating if needed, the cache database at path
func Open(path string, opts ...Option) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	c, err := newCache(db, SchemaVersion, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Debug("Opened record cache", "path", path, "max_entries", c.maxEntries)
	return c, nil
}

func newCache(db *sql.DB, version int, opts ...Option) (*Cache, error) {
	c := &Cache{
		db:         db,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := ensureSchema(context.Background(), db, version); err != nil {
		return nil, fmt.Errorf("prepare schema: %w", err)
	}

	meter := telemetry.Meter()
	var err error
	if c.upserts, err = meter.Int64Counter("cache.upserts", metric.WithDescription("Record cache writes")); err != nil {
		return nil, err
	}
	if c.evictions, err = meter.Int64Counter("cache.evictions", metric.WithDescription("Entries removed by trim")); err != nil {
		return nil, err
	}
	if c.lookups, err = meter.Int64Counter("cache.lookups", metric.WithDescription("Point lookups by id")); err != nil {
		return nil, err
	}
	return c, nil
}

// Close releases the underlying database
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// MaxEntries returns the configured capacity
func (c *Cache) MaxEntries() int {
	return c.maxEntries
}

// Upsert inserts the record, or overwrites the existing entry with the same
// ID and refreshes its timestamp. It reports whether a new entry was created.
func (c *Cache) Upsert(ctx context.Context, rec models.Record) (bool, error) {
	if rec.ID <= 0 {
		return false, ErrInvalidID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var key int64
	err = tx.QueryRowContext(ctx, `SELECT dbkey FROM characters WHERE id = ?`, rec.ID).Scan(&key)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("lookup id %d: %w", rec.ID, err)
	}

	path, ext := imageColumns(rec.Thumbnail)
	ts := c.now().UnixNano()
	if created {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO characters (id, name, description, image_path, image_suffix, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Name, rec.Description, path, ext, ts)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE characters
			 SET id = ?, name = ?, description = ?, image_path = ?, image_suffix = ?, timestamp = ?
			 WHERE dbkey = ?`,
			rec.ID, rec.Name, rec.Description, path, ext, ts, key)
	}
	if err != nil {
		return false, fmt.Errorf("write id %d: %w", rec.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit upsert: %w", err)
	}

	if created {
		slog.Debug("Creating new cache entry", "id", rec.ID, "name", rec.Name)
	} else {
		slog.Debug("Updating cache entry", "id", rec.ID, "name", rec.Name, "key", key)
	}
	c.upserts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("created", created)))
	return created, nil
}

// Get looks up a record by its catalog ID
func (c *Cache) Get(ctx context.Context, id int) (models.Record, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := c.db.QueryRowContext(ctx,
		`SELECT dbkey, id, name, description, image_path, image_suffix, timestamp
		 FROM characters WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.lookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", false)))
			return models.Record{}, false, nil
		}
		return models.Record{}, false, fmt.Errorf("get id %d: %w", id, err)
	}
	c.lookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", true)))
	return entry.Record, true, nil
}

// MostRecent returns up to n records, newest first. n <= 0 returns all.
func (c *Cache) MostRecent(ctx context.Context, n int) ([]models.Record, error) {
	entries, err := c.MostRecentEntries(ctx, n)
	if err != nil {
		return nil, err
	}
	records := make([]models.Record, len(entries))
	for i, e := range entries {
		records[i] = e.Record
	}
	return records, nil
}

// All returns every record, newest first
func (c *Cache) All(ctx context.Context) ([]models.Record, error) {
	return c.MostRecent(ctx, 0)
}

// MostRecentEntries is MostRecent including storage metadata
func (c *Cache) MostRecentEntries(ctx context.Context, n int) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	query := `SELECT dbkey, id, name, description, image_path, image_suffix, timestamp
	          FROM characters ORDER BY timestamp DESC`
	args := []any{}
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	slog.Debug("Listed cache entries", "limit", n, "rows", len(entries))
	return entries, nil
}

// Count returns the number of stored entries
func (c *Cache) Count(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM characters`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// TrimToCapacity deletes every entry strictly older than the n-th newest.
// Entries tied with that boundary timestamp are kept, so more than n may
// remain. With fewer than n entries, or n <= 0, nothing is deleted.
func (c *Cache) TrimToCapacity(ctx context.Context, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx,
		`DELETE FROM characters WHERE timestamp <
		    (SELECT timestamp FROM characters ORDER BY timestamp DESC LIMIT 1 OFFSET ?)`,
		n-1)
	if err != nil {
		return 0, fmt.Errorf("trim to %d: %w", n, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("trim to %d: %w", n, err)
	}

	if deleted > 0 {
		slog.Debug("Trimmed cache", "capacity", n, "deleted", deleted)
		c.evictions.Add(ctx, deleted)
	}
	return deleted, nil
}

// TrimToDefault trims to the configured capacity
func (c *Cache) TrimToDefault(ctx context.Context) (int64, error) {
	return c.TrimToCapacity(ctx, c.maxEntries)
}

// Delete removes the entry with the given catalog ID, if present
func (c *Cache) Delete(ctx context.Context, id int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx, `DELETE FROM characters WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete id %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete id %d: %w", id, err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e    Entry
		path string
		ext  string
		ts   int64
	)
	if err := s.Scan(&e.StorageKey, &e.Record.ID, &e.Record.Name, &e.Record.Description, &path, &ext, &ts); err != nil {
		return Entry{}, err
	}
	if path != "" || ext != "" {
		e.Record.Thumbnail = &models.ImageRef{Path: path, Extension: ext}
	}
	e.WriteTimestamp = time.Unix(0, ts)
	return e, nil
}

func imageColumns(img *models.ImageRef) (string, string) {
	if img == nil {
		return "", ""
	}
	return img.Path, img.Extension
}
