package checkpoint

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	buildapi "github.com/electricimp/build-api"
	"github.com/electricimp/build-api/buildapitest"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreSaveAndLoad(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, ok, err := store.LoadCursor(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, ok)

	since := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	require.NoError(t, store.SaveCursor(ctx, "d1", buildapi.Cursor{Since: since, Handle: "h1"}))

	got, ok, err := store.LoadCursor(ctx, "d1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, buildapi.CursorModeTimestamp, got.Mode(), "handles are not persisted")
	assert.True(t, got.Since.Equal(since), "got %s", got.Since)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	since := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveCursor(ctx, "d1", buildapi.SinceCursor(since)))
	require.NoError(t, store.Close())

	store, err = Open(dir)
	require.NoError(t, err)
	defer store.Close()

	got, ok, err := store.LoadCursor(ctx, "d1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Since.Equal(since))
}

func TestStoreListAndDelete(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	updated := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return updated }

	require.NoError(t, store.SaveCursor(ctx, "d2", buildapi.SinceCursor(time.Unix(200, 0))))
	require.NoError(t, store.SaveCursor(ctx, "d1", buildapi.SinceCursor(time.Unix(100, 0))))

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "d1", entries[0].DeviceID)
	assert.Equal(t, "d2", entries[1].DeviceID)
	assert.True(t, entries[0].Since.Equal(time.Unix(100, 0)))
	assert.True(t, entries[0].UpdatedAt.Equal(updated))

	require.NoError(t, store.Delete("d1"))
	require.NoError(t, store.Delete("unknown"))

	_, ok, err := store.LoadCursor(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreClosed(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, _, err = store.LoadCursor(context.Background(), "d1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.SaveCursor(context.Background(), "d1", buildapi.Cursor{}), ErrClosed)
	assert.ErrorIs(t, store.Delete("d1"), ErrClosed)
	_, err = store.List()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStreamResumesFromStore(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	transport := buildapitest.NewScriptedTransport(
		buildapitest.Batch("h1", buildapi.LogEntry{Timestamp: t0.Add(5 * time.Second), Message: "a"}),
		buildapitest.APIError(http.StatusInternalServerError, "Boom", "boom"),
	)
	client := buildapi.NewClient(buildapi.WithTransport(transport))

	err := client.StartStream(ctx, "d1", func(*buildapi.LogBatch, error) {},
		buildapi.WithSince(t0), buildapi.WithCheckpointer(store)).Wait()
	require.Error(t, err)

	// A second stream picks up at the last delivered entry.
	transport = buildapitest.NewScriptedTransport()
	client = buildapi.NewClient(buildapi.WithTransport(transport))
	stream := client.StartStream(ctx, "d1", func(*buildapi.LogBatch, error) {}, buildapi.WithCheckpointer(store))
	defer stream.Cancel()

	reqs := transport.WaitForRequests(1, 2*time.Second)
	require.Len(t, reqs, 1)
	assert.Equal(t, t0.Add(5*time.Second).Format(time.RFC3339Nano), reqs[0].Params["since"])
}
