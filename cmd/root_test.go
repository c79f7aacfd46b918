package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/marvelous/internal/dataset"
	"github.com/lehigh-university-libraries/marvelous/internal/lookup"
	"github.com/lehigh-university-libraries/marvelous/internal/models"
)

const spiderBody = `{"code":200,"status":"ok","attributionText":"Data provided by Marvel.","data":{"offset":0,"limit":20,"total":2,"count":2,
"results":[{"id":1009610,"name":"Spider-Man","description":"Bitten by a radioactive spider."},{"id":1009609,"name":"Spider-Girl (May Parker)","description":""}]}}`

const emptyBody = `{"code":200,"status":"ok","data":{"offset":0,"limit":20,"total":0,"count":0,"results":[]}}`

func setupEnv(t *testing.T) string {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("nameStartsWith") == "Spider" || q.Get("name") == "Spider-Man" || (!q.Has("nameStartsWith") && !q.Has("name")) {
			_, _ = w.Write([]byte(spiderBody))
			return
		}
		_, _ = w.Write([]byte(emptyBody))
	}))
	t.Cleanup(upstream.Close)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("MARVEL_BASE_URL", upstream.URL+"/v1/public/")
	t.Setenv("MARVEL_PUBLIC_KEY", "pub")
	t.Setenv("MARVEL_PRIVATE_KEY", "priv")
	t.Setenv("MARVEL_MAX_ENTRIES", "5")
	t.Setenv("MARVEL_CACHE_PATH", filepath.Join(dir, "cache.sqlite"))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "search", "Spider", "--json")
	require.NoError(t, err)

	var res lookup.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1009610, res.Selected.ID)
	assert.True(t, res.Created)
	require.Len(t, res.Recent, 1)

	out, err = run(t, "cache", "get", "1009610")
	require.NoError(t, err)
	var rec models.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "Spider-Man", rec.Name)
}

func TestSearchCommandNotFound(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "search", "Nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, lookup.ErrNotFound)
	assert.Equal(t, "Not found: not found: name Nobody", err.Error())
}

func TestFetchCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "fetch", "exact", "Spider-Man")
	require.NoError(t, err)
	var rec models.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, 1009610, rec.ID)

	out, err = run(t, "fetch", "match", "Spider", "--cache")
	require.NoError(t, err)
	var records []models.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Len(t, records, 2)

	out, err = run(t, "cache", "recent")
	require.NoError(t, err)
	assert.Contains(t, out, "Spider-Man")
	assert.Contains(t, out, "Spider-Girl")
	assert.Contains(t, out, "1009610")
	assert.Contains(t, out, "1009609")

	out, err = run(t, "fetch", "page", "--limit", "2")
	require.NoError(t, err)
	var container models.Container
	require.NoError(t, json.Unmarshal([]byte(out), &container))
	assert.Equal(t, 2, container.Count)
}

func TestCacheMaintenance(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, "fetch", "match", "Spider", "--cache")
	require.NoError(t, err)

	snapshot := filepath.Join(dir, "recent.jsonl")
	_, err = run(t, "cache", "export", snapshot)
	require.NoError(t, err)
	_, err = os.Stat(snapshot)
	require.NoError(t, err)

	_, err = run(t, "cache", "delete", "1009610")
	require.NoError(t, err)
	_, err = run(t, "cache", "get", "1009610")
	assert.Error(t, err)

	_, err = run(t, "cache", "import", snapshot)
	require.NoError(t, err)
	records, err := dataset.NewLoader(snapshot).Load()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = run(t, "cache", "trim", "--keep", "1")
	require.NoError(t, err)
	out, err := run(t, "cache", "recent", "-n", "0")
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("\n")))
}

func TestMissingCredentials(t *testing.T) {
	setupEnv(t)
	t.Setenv("MARVEL_PUBLIC_KEY", "")

	_, err := run(t, "fetch", "default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "public key")

	// cache commands do not need keys
	_, err = run(t, "cache", "recent")
	assert.NoError(t, err)
}
