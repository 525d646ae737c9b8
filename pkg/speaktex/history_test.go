package speaktex_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/speaktex/speaktex/pkg/speaktex"
	historymemory "github.com/speaktex/speaktex/pkg/speaktex/history/memory"
	memorystorage "github.com/speaktex/speaktex/pkg/speaktex/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock hands out strictly increasing timestamps.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newHistoryService(t *testing.T, store speaktex.HistoryStore) speaktex.Service {
	t.Helper()

	clock := &tickingClock{t: time.Date(2024, 10, 19, 12, 0, 0, 0, time.UTC)}
	svc, err := speaktex.New(
		speaktex.WithBlobStore(memorystorage.New()),
		speaktex.WithHistoryStore(store),
		speaktex.WithClock(clock.Now),
	)
	require.NoError(t, err)
	return svc
}

func TestSaveHistory(t *testing.T) {
	ctx := context.Background()
	svc := newHistoryService(t, historymemory.New())

	record, err := svc.SaveHistory(ctx, speaktex.SaveHistoryRequest{
		UserID:     "user-1",
		Transcript: "x squared",
		Latex:      "$x^2$",
	})
	require.NoError(t, err)

	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, "x squared", record.Transcript)
	assert.Equal(t, "$x^2$", record.Latex)
	assert.NotEmpty(t, record.ID)

	ts, err := time.Parse(time.RFC3339Nano, record.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())

	t.Run("missing fields", func(t *testing.T) {
		cases := []speaktex.SaveHistoryRequest{
			{Transcript: "a", Latex: "$a$"},
			{UserID: "user-1", Latex: "$a$"},
			{UserID: "user-1", Transcript: "a"},
		}
		for _, req := range cases {
			_, err := svc.SaveHistory(ctx, req)
			assert.ErrorIs(t, err, speaktex.ErrMissingField)
		}
	})
}

func TestListHistory(t *testing.T) {
	ctx := context.Background()
	svc := newHistoryService(t, historymemory.New())

	transcripts := []string{"one", "two", "three"}
	for _, tr := range transcripts {
		_, err := svc.SaveHistory(ctx, speaktex.SaveHistoryRequest{
			UserID:     "user-1",
			Transcript: tr,
			Latex:      "$" + tr + "$",
		})
		require.NoError(t, err)
	}
	_, err := svc.SaveHistory(ctx, speaktex.SaveHistoryRequest{
		UserID:     "user-2",
		Transcript: "other",
		Latex:      "$other$",
	})
	require.NoError(t, err)

	t.Run("reverse chronological", func(t *testing.T) {
		records, err := svc.ListHistory(ctx, "user-1", 0)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "three", records[0].Transcript)
		assert.Equal(t, "two", records[1].Transcript)
		assert.Equal(t, "one", records[2].Transcript)
	})

	t.Run("limit", func(t *testing.T) {
		records, err := svc.ListHistory(ctx, "user-1", 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "three", records[0].Transcript)
	})

	t.Run("no cross-user visibility", func(t *testing.T) {
		records, err := svc.ListHistory(ctx, "user-2", 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "other", records[0].Transcript)
	})

	t.Run("unknown user is empty, not an error", func(t *testing.T) {
		records, err := svc.ListHistory(ctx, "nobody", 0)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestDeleteHistory(t *testing.T) {
	ctx := context.Background()
	svc := newHistoryService(t, historymemory.New())

	record, err := svc.SaveHistory(ctx, speaktex.SaveHistoryRequest{
		UserID:     "user-1",
		Transcript: "x",
		Latex:      "$x$",
	})
	require.NoError(t, err)

	deleted, err := svc.DeleteHistory(ctx, "user-1", record.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, record.ID, deleted.ID)

	_, err = svc.DeleteHistory(ctx, "user-1", record.Timestamp)
	assert.ErrorIs(t, err, speaktex.ErrRecordNotFound)
}

// flakyHistoryStore fails deletes for records whose transcript matches.
type flakyHistoryStore struct {
	*historymemory.Store
	failTranscript string
}

func (s *flakyHistoryStore) Delete(ctx context.Context, userID, timestamp string) (*speaktex.HistoryRecord, error) {
	records, _ := s.Store.Query(ctx, userID, 0)
	for _, r := range records {
		if r.Timestamp == timestamp && r.Transcript == s.failTranscript {
			return nil, errors.New("throughput exceeded")
		}
	}
	return s.Store.Delete(ctx, userID, timestamp)
}

func TestDeleteAllHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes every record", func(t *testing.T) {
		svc := newHistoryService(t, historymemory.New())
		for i := 0; i < 3; i++ {
			_, err := svc.SaveHistory(ctx, speaktex.SaveHistoryRequest{
				UserID:     "user-1",
				Transcript: "x",
				Latex:      "$x$",
			})
			require.NoError(t, err)
		}

		result, err := svc.DeleteAllHistory(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, &speaktex.DeleteAllResult{DeletedCount: 3, FailedCount: 0, TotalCount: 3}, result)

		records, err := svc.ListHistory(ctx, "user-1", 0)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("zero records is not an error", func(t *testing.T) {
		svc := newHistoryService(t, historymemory.New())

		result, err := svc.DeleteAllHistory(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, &speaktex.DeleteAllResult{DeletedCount: 0, FailedCount: 0, TotalCount: 0}, result)
	})

	t.Run("individual failures are counted, not fatal", func(t *testing.T) {
		store := &flakyHistoryStore{Store: historymemory.New(), failTranscript: "sticky"}
		svc := newHistoryService(t, store)

		for _, tr := range []string{"a", "sticky", "b"} {
			_, err := svc.SaveHistory(ctx, speaktex.SaveHistoryRequest{
				UserID:     "user-1",
				Transcript: tr,
				Latex:      "$x$",
			})
			require.NoError(t, err)
		}

		result, err := svc.DeleteAllHistory(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 2, result.DeletedCount)
		assert.Equal(t, 1, result.FailedCount)
		assert.Equal(t, 3, result.TotalCount)
	})
}
