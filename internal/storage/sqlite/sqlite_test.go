package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"dashfeed/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, path string, ttl time.Duration) *SQLiteStorage {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.New(storage.Config{Type: storage.TypeSQLite, Path: path, TTL: ttl}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	return store.(*SQLiteStorage)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "http.db"), 0)

	_, ok := store.Get("https://example.com/feed.xml")
	assert.False(t, ok)

	store.Set("https://example.com/feed.xml", []byte("HTTP/1.1 200 OK\r\n\r\nfirst"))
	store.Set("https://example.com/feed.xml", []byte("HTTP/1.1 200 OK\r\n\r\nsecond"))

	got, ok := store.Get("https://example.com/feed.xml")
	require.True(t, ok)
	assert.Equal(t, "HTTP/1.1 200 OK\r\n\r\nsecond", string(got))

	store.Delete("https://example.com/feed.xml")
	_, ok = store.Get("https://example.com/feed.xml")
	assert.False(t, ok)
}

func TestSQLiteStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "http.db")

	first := newTestStore(t, path, 0)
	first.Set("k", []byte("v"))
	require.NoError(t, first.Close(context.Background()))

	second := newTestStore(t, path, 0)
	got, ok := second.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))
}

func TestSQLiteStorePrunesOldEntries(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "http.db"), 0)

	store.Set("old", []byte("1"))
	_, err := store.conn.Exec(`UPDATE http_responses SET stored_at = ? WHERE key = ?`,
		time.Now().Add(-48*time.Hour).Unix(), "old")
	require.NoError(t, err)
	store.Set("new", []byte("2"))

	require.NoError(t, store.DeleteOlderThan(context.Background(), 24*time.Hour))

	_, ok := store.Get("old")
	assert.False(t, ok)
	_, ok = store.Get("new")
	assert.True(t, ok)
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	_, err := New(storage.Config{}, slog.Default())
	require.Error(t, err)
}
