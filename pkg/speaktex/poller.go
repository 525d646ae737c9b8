package speaktex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// PollResult reports the processing state for one upload key. An absent
// result object means the pipeline has not finished, which is the normal
// state during the processing window, not an error.
func (s *service) PollResult(ctx context.Context, uploadKey string) (*PollResult, error) {
	result, err := s.loadResult(ctx, uploadKey)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &PollResult{FileKey: uploadKey, Status: PollStatusProcessing}, nil
	}

	return &PollResult{
		FileKey:    uploadKey,
		Status:     pollStatusFor(result.Status),
		Transcript: result.Transcript,
		Latex:      result.Latex,
		AudioKey:   result.AudioKey,
		Error:      result.Error,
	}, nil
}

// PollResults applies the per-key poll independently to each key. A lookup
// failure for one key yields a status "error" entry for that key only and
// never aborts the rest of the batch.
func (s *service) PollResults(ctx context.Context, uploadKeys []string) []*PollResult {
	results := make([]*PollResult, 0, len(uploadKeys))
	for _, key := range uploadKeys {
		res, err := s.PollResult(ctx, key)
		if err != nil {
			results = append(results, &PollResult{
				FileKey: key,
				Status:  PollStatusError,
				Error:   err.Error(),
			})
			continue
		}
		results = append(results, res)
	}
	return results
}

// ResultStatus is the cheap existence-only status check for polling loops.
func (s *service) ResultStatus(ctx context.Context, uploadKey string) (*ResultStatus, error) {
	exists, err := s.blobStore.Exists(ctx, DeriveResultKey(uploadKey))
	if err != nil {
		return nil, &StorageError{Key: DeriveResultKey(uploadKey), Op: "exists", Err: err}
	}

	status := PollStatusProcessing
	if exists {
		status = PollStatusCompleted
	}
	return &ResultStatus{Status: status, Ready: exists}, nil
}

// loadResult fetches and decodes the result object for an upload key.
// Returns (nil, nil) when no result has been written yet.
func (s *service) loadResult(ctx context.Context, uploadKey string) (*ProcessingResult, error) {
	resultKey := DeriveResultKey(uploadKey)

	exists, err := s.blobStore.Exists(ctx, resultKey)
	if err != nil {
		return nil, &StorageError{Key: resultKey, Op: "exists", Err: err}
	}
	if !exists {
		return nil, nil
	}

	rc, err := s.blobStore.Download(ctx, resultKey)
	if err != nil {
		return nil, &StorageError{Key: resultKey, Op: "download", Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &StorageError{Key: resultKey, Op: "download", Err: err}
	}

	var result ProcessingResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode processing result at %s: %w", resultKey, err)
	}

	return &result, nil
}

func pollStatusFor(status ProcessingStatus) PollStatus {
	if status == ProcessingStatusFailed {
		return PollStatusFailed
	}
	return PollStatusCompleted
}
