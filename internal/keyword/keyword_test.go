package keyword

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) *Index {
	t.Helper()
	idx, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSearch(t *testing.T) {
	idx := openMem(t)

	require.NoError(t, idx.Put("a.go", "Handles user login and session tokens"))
	require.NoError(t, idx.Put("b.go", "Computes tax totals for invoices"))

	hits, err := idx.Search("login", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.go", hits[0].DocID)
	assert.Positive(t, hits[0].Score)

	hits, err = idx.Search("unrelated", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestPut_Replaces(t *testing.T) {
	idx := openMem(t)

	require.NoError(t, idx.Put("a.go", "parses configuration"))
	require.NoError(t, idx.Put("a.go", "renders templates"))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	hits, err := idx.Search("configuration", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search("templates", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestDelete(t *testing.T) {
	idx := openMem(t)

	require.NoError(t, idx.Put("a.go", "cache eviction"))
	require.NoError(t, idx.Delete("a.go"))
	require.NoError(t, idx.Delete("never-added.go"))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSearch_TiesOrderedByID(t *testing.T) {
	idx := openMem(t)

	require.NoError(t, idx.Put("c.go", "worker pool"))
	require.NoError(t, idx.Put("a.go", "worker pool"))
	require.NoError(t, idx.Put("b.go", "worker pool"))

	hits, err := idx.Search("worker", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, []string{hits[0].DocID, hits[1].DocID, hits[2].DocID})
}

func TestSearch_Validation(t *testing.T) {
	idx := openMem(t)

	_, err := idx.Search("  ", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = idx.Search("x", 0)
	assert.Error(t, err)
}

func TestOpen_OnDiskReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")

	idx, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, idx.Put("a.go", "persisted summary"))
	require.NoError(t, idx.Close())

	idx, err = Open(path)
	require.NoError(t, err)
	defer idx.Close()

	hits, err := idx.Search("persisted", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.go", hits[0].DocID)
}
