package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/speaktex/speaktex/pkg/speaktex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRecord(t *testing.T, store *Store, userID, timestamp string) *speaktex.HistoryRecord {
	t.Helper()

	record := &speaktex.HistoryRecord{
		UserID:     userID,
		Timestamp:  timestamp,
		ID:         fmt.Sprintf("id-%s-%s", userID, timestamp),
		Transcript: "t",
		Latex:      "$t$",
	}
	require.NoError(t, store.Insert(context.Background(), record))
	return record
}

func TestStoreQueryOrdering(t *testing.T) {
	ctx := context.Background()
	store := New()

	// Inserted out of order on purpose
	seedRecord(t, store, "user-1", "2024-10-19T12:00:02Z")
	seedRecord(t, store, "user-1", "2024-10-19T12:00:00Z")
	seedRecord(t, store, "user-1", "2024-10-19T12:00:01Z")

	records, err := store.Query(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2024-10-19T12:00:02Z", records[0].Timestamp)
	assert.Equal(t, "2024-10-19T12:00:01Z", records[1].Timestamp)
	assert.Equal(t, "2024-10-19T12:00:00Z", records[2].Timestamp)

	limited, err := store.Query(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "2024-10-19T12:00:02Z", limited[0].Timestamp)
}

func TestStoreQueryCopies(t *testing.T) {
	ctx := context.Background()
	store := New()
	seedRecord(t, store, "user-1", "2024-10-19T12:00:00Z")

	records, err := store.Query(ctx, "user-1", 0)
	require.NoError(t, err)
	records[0].Transcript = "mutated"

	again, err := store.Query(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Equal(t, "t", again[0].Transcript)
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := New()
	record := seedRecord(t, store, "user-1", "2024-10-19T12:00:00Z")

	deleted, err := store.Delete(ctx, "user-1", record.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, record.ID, deleted.ID)

	_, err = store.Delete(ctx, "user-1", record.Timestamp)
	assert.ErrorIs(t, err, speaktex.ErrRecordNotFound)

	_, err = store.Delete(ctx, "other-user", record.Timestamp)
	assert.ErrorIs(t, err, speaktex.ErrRecordNotFound)
}
