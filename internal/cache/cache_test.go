package cache

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/marvelous/internal/models"
)

// stepClock advances by one millisecond on every read unless frozen
type stepClock struct {
	mu     sync.Mutex
	t      time.Time
	frozen bool
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2016, 10, 23, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.frozen {
		c.t = c.t.Add(time.Millisecond)
	}
	return c.t
}

func (c *stepClock) Freeze(frozen bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = frozen
}

func setupTestCache(t *testing.T, opts ...Option) (*Cache, *stepClock) {
	t.Helper()

	clock := newStepClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)

	c, err := Open(filepath.Join(t.TempDir(), "cache.sqlite"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Logf("failed to close cache: %v", err)
		}
	})
	return c, clock
}

func character(id int, name string) models.Record {
	return models.Record{
		ID:          id,
		Name:        name,
		Description: name + " description",
		Thumbnail: &models.ImageRef{
			Path:      fmt.Sprintf("http://i.annihil.us/u/prod/marvel/i/mg/%d", id),
			Extension: "jpg",
		},
	}
}

func ids(records []models.Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.EqualError(t, err, "cache path is required")
}

func TestUpsert_CreateThenUpdate(t *testing.T) {
	ctx := context.Background()
	c, _ := setupTestCache(t)

	created, err := c.Upsert(ctx, character(1009268, "Deadpool"))
	require.NoError(t, err)
	assert.True(t, created)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	before, err := c.MostRecentEntries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, before, 1)

	updated := character(1009268, "Deadpool")
	updated.Description = "Wade Wilson"
	updated.Thumbnail = &models.ImageRef{Path: "http://example.com/dp", Extension: "png"}
	created, err = c.Upsert(ctx, updated)
	require.NoError(t, err)
	assert.False(t, created)

	count, err = c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	after, err := c.MostRecentEntries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].StorageKey, after[0].StorageKey, "update must keep the storage key")
	assert.True(t, after[0].WriteTimestamp.After(before[0].WriteTimestamp), "update must refresh the timestamp")

	got, ok, err := c.Get(ctx, 1009268)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Wade Wilson", got.Description)
	assert.Equal(t, &models.ImageRef{Path: "http://example.com/dp", Extension: "png"}, got.Thumbnail)
}

func TestUpsert_RejectsZeroID(t *testing.T) {
	c, _ := setupTestCache(t)

	_, err := c.Upsert(context.Background(), models.Record{})
	assert.ErrorIs(t, err, ErrInvalidID)

	count, err := c.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	c, _ := setupTestCache(t)

	_, err := c.Upsert(ctx, models.Record{ID: 7, Name: "No Image"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		id     int
		wantOK bool
		want   models.Record
	}{
		{
			name:   "present without thumbnail",
			id:     7,
			wantOK: true,
			want:   models.Record{ID: 7, Name: "No Image"},
		},
		{
			name:   "absent",
			id:     8,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := c.Get(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMostRecent(t *testing.T) {
	ctx := context.Background()
	c, _ := setupTestCache(t)

	for i := 1; i <= 5; i++ {
		_, err := c.Upsert(ctx, character(i, fmt.Sprintf("hero %d", i)))
		require.NoError(t, err)
	}
	// touching 2 makes it the newest
	_, err := c.Upsert(ctx, character(2, "hero 2"))
	require.NoError(t, err)

	tests := []struct {
		name string
		n    int
		want []int
	}{
		{name: "limited", n: 3, want: []int{2, 5, 4}},
		{name: "zero returns all", n: 0, want: []int{2, 5, 4, 3, 1}},
		{name: "negative returns all", n: -4, want: []int{2, 5, 4, 3, 1}},
		{name: "larger than store", n: 50, want: []int{2, 5, 4, 3, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.MostRecent(ctx, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestTrimToCapacity_KeepsNewest(t *testing.T) {
	ctx := context.Background()
	c, _ := setupTestCache(t)

	for i := 1; i <= 10; i++ {
		_, err := c.Upsert(ctx, character(i, fmt.Sprintf("hero %d", i)))
		require.NoError(t, err)
	}

	deleted, err := c.TrimToCapacity(ctx, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 6, deleted)

	all, err := c.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 9, 8, 7}, ids(all))
}

func TestTrimToCapacity_NoOpCases(t *testing.T) {
	ctx := context.Background()
	c, _ := setupTestCache(t)

	for i := 1; i <= 3; i++ {
		_, err := c.Upsert(ctx, character(i, "hero"))
		require.NoError(t, err)
	}

	for _, n := range []int{3, 5, 0, -1} {
		deleted, err := c.TrimToCapacity(ctx, n)
		require.NoError(t, err)
		assert.Zero(t, deleted, "capacity %d", n)
	}

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestTrimToCapacity_KeepsBoundaryTies(t *testing.T) {
	ctx := context.Background()
	c, clock := setupTestCache(t)

	_, err := c.Upsert(ctx, character(1, "oldest"))
	require.NoError(t, err)

	clock.Now()
	clock.Freeze(true)
	for i := 2; i <= 5; i++ {
		_, err := c.Upsert(ctx, character(i, "tied"))
		require.NoError(t, err)
	}
	clock.Freeze(false)

	// the 2nd newest shares its timestamp with 3, 4 and 5
	deleted, err := c.TrimToCapacity(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	all, err := c.All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{2, 3, 4, 5}, ids(all))

	// with every entry tied nothing is strictly older than the boundary
	deleted, err = c.TrimToCapacity(ctx, 4)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestTrimToDefault(t *testing.T) {
	ctx := context.Background()
	c, _ := setupTestCache(t, WithMaxEntries(2))
	assert.Equal(t, 2, c.MaxEntries())

	for i := 1; i <= 4; i++ {
		_, err := c.Upsert(ctx, character(i, "hero"))
		require.NoError(t, err)
	}

	_, err := c.TrimToDefault(ctx)
	require.NoError(t, err)

	all, err := c.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3}, ids(all))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := setupTestCache(t)

	_, err := c.Upsert(ctx, character(1, "hero"))
	require.NoError(t, err)

	removed, err := c.Delete(ctx, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = c.Delete(ctx, 1)
	require.NoError(t, err)
	assert.False(t, removed)

	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsert_ConcurrentSameID(t *testing.T) {
	ctx := context.Background()
	c, _ := setupTestCache(t)

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		creates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := c.Upsert(ctx, character(42, "racer"))
			assert.NoError(t, err)
			if created {
				mu.Lock()
				creates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, creates)
	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.sqlite")

	c, err := Open(path)
	require.NoError(t, err)
	_, err = c.Upsert(ctx, character(1009268, "Deadpool"))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()

	got, ok, err := c.Get(ctx, 1009268)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Deadpool", got.Name)
}

func TestSchemaVersionBumpDropsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.sqlite")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	c, err := newCache(db, 1)
	require.NoError(t, err)
	_, err = c.Upsert(ctx, character(1, "hero"))
	require.NoError(t, err)

	c, err = newCache(db, 2)
	require.NoError(t, err)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	v, err := schemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// same version again keeps rows
	_, err = c.Upsert(ctx, character(2, "hero"))
	require.NoError(t, err)
	c, err = newCache(db, 2)
	require.NoError(t, err)
	count, err = c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
