package history

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration test; runs only against a real database.
func testStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	store, err := Connect(context.Background(), databaseURL)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	_, err = store.pool.Exec(context.Background(), Schema)
	require.NoError(t, err)
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "conv-test", "generate a cv for jane", "file", ""))
	require.NoError(t, store.Record(ctx, "conv-test", "blargh", "error", "I didn't understand that."))

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "blargh", entries[0].Sentence)
	assert.Equal(t, "error", entries[0].ResponseKind)
	assert.NotEmpty(t, entries[0].ErrorMessage)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-url")
	assert.Error(t, err)
}
