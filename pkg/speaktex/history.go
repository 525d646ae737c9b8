package speaktex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SaveHistory persists one transcript/LaTeX pair for a user. The timestamp
// (sort key) and record id are generated server-side.
func (s *service) SaveHistory(ctx context.Context, req SaveHistoryRequest) (*HistoryRecord, error) {
	if s.history == nil {
		return nil, fmt.Errorf("%w: history store", ErrNotConfigured)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id", ErrMissingField)
	}
	if req.Transcript == "" {
		return nil, fmt.Errorf("%w: transcript", ErrMissingField)
	}
	if req.Latex == "" {
		return nil, fmt.Errorf("%w: latex", ErrMissingField)
	}

	record := &HistoryRecord{
		UserID:     req.UserID,
		Timestamp:  s.now().UTC().Format(time.RFC3339Nano),
		ID:         uuid.New().String(),
		Transcript: req.Transcript,
		Latex:      req.Latex,
	}

	if err := s.history.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save history record: %w", err)
	}

	return record, nil
}

// ListHistory returns a user's records in reverse-chronological order.
func (s *service) ListHistory(ctx context.Context, userID string, limit int) ([]*HistoryRecord, error) {
	if s.history == nil {
		return nil, fmt.Errorf("%w: history store", ErrNotConfigured)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id", ErrMissingField)
	}

	records, err := s.history.Query(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

// DeleteHistory removes a single record by (user_id, timestamp) and returns
// it, or ErrRecordNotFound.
func (s *service) DeleteHistory(ctx context.Context, userID, timestamp string) (*HistoryRecord, error) {
	if s.history == nil {
		return nil, fmt.Errorf("%w: history store", ErrNotConfigured)
	}
	if userID == "" || timestamp == "" {
		return nil, fmt.Errorf("%w: user_id and timestamp", ErrMissingField)
	}

	return s.history.Delete(ctx, userID, timestamp)
}

// DeleteAllHistory removes every record for a user, one delete at a time.
// Individual failures are counted, not fatal, so a partially failing bulk
// delete still reports what it managed to remove.
func (s *service) DeleteAllHistory(ctx context.Context, userID string) (*DeleteAllResult, error) {
	if s.history == nil {
		return nil, fmt.Errorf("%w: history store", ErrNotConfigured)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id", ErrMissingField)
	}

	records, err := s.history.Query(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list history for delete: %w", err)
	}

	result := &DeleteAllResult{TotalCount: len(records)}
	for _, record := range records {
		if _, err := s.history.Delete(ctx, userID, record.Timestamp); err != nil {
			slog.Warn("failed to delete history record",
				"user_id", userID, "timestamp", record.Timestamp, "error", err)
			result.FailedCount++
			continue
		}
		result.DeletedCount++
	}

	return result, nil
}
