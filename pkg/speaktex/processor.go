package speaktex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// ProcessUpload runs the full pipeline for one uploaded audio object:
// submit a transcription job, poll it to completion within the wall-clock
// budget, fetch the transcript, convert it to LaTeX, and write a
// ProcessingResult to the derived result key.
//
// Every path ends in a recorded result: stage failures are captured as a
// failed ProcessingResult and written to the same key, so pollers never
// wait forever. Re-running for the same upload key is safe: the result
// object is simply overwritten (last-write-wins). That overwrite is the
// system's only retry mechanism.
func (s *service) ProcessUpload(ctx context.Context, uploadKey string) (*ProcessingResult, error) {
	if s.transcriber == nil || s.markup == nil {
		return nil, fmt.Errorf("%w: transcription and markup clients", ErrNotConfigured)
	}
	if !IsUploadKey(uploadKey) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUploadKey, uploadKey)
	}

	result := s.runPipeline(ctx, uploadKey)

	if err := s.writeResult(ctx, result); err != nil {
		// The run outcome is lost to pollers at this point. Unrecoverable
		// for this run; a re-run writes to the same key.
		slog.Error("failed to write processing result",
			"upload_key", uploadKey, "status", result.Status, "error", err)
		return result, &ProcessingError{Key: uploadKey, Stage: StageWritingResult, Err: err}
	}

	if result.Status == ProcessingStatusFailed {
		slog.Info("pipeline run recorded failure", "upload_key", uploadKey, "reason", result.Error)
	} else {
		slog.Info("pipeline run completed", "upload_key", uploadKey)
	}

	return result, nil
}

func (s *service) runPipeline(ctx context.Context, uploadKey string) *ProcessingResult {
	jobName := s.newJobName()
	mediaURI := s.mediaURI(uploadKey)

	slog.Info("starting transcription job",
		"upload_key", uploadKey, "job_name", jobName, "media_uri", mediaURI)

	err := s.transcriber.StartJob(ctx, jobName, mediaURI, MediaFormatForKey(uploadKey))
	if err != nil {
		return failedResult(uploadKey, "", fmt.Sprintf("%s: %v", FailureJobSubmission, err))
	}

	job, reason := s.waitForJob(ctx, jobName)
	if reason != "" {
		return failedResult(uploadKey, "", reason)
	}

	transcript, err := s.transcriber.FetchTranscript(ctx, job.TranscriptURI)
	if err != nil {
		return failedResult(uploadKey, "", fmt.Sprintf("%s: %v", FailureTranscriptFetch, err))
	}

	convertCtx, cancel := context.WithTimeout(ctx, s.markupTimeout)
	defer cancel()

	latex, err := s.markup.ConvertToLaTeX(convertCtx, transcript)
	if err != nil {
		// The transcript survived this far; record it alongside the failure.
		return failedResult(uploadKey, transcript, fmt.Sprintf("%s: %v", FailureMarkupConversion, err))
	}

	return &ProcessingResult{
		Status:     ProcessingStatusSuccess,
		Transcript: transcript,
		Latex:      StripCodeFences(latex),
		AudioKey:   uploadKey,
	}
}

// waitForJob polls the transcription job on a fixed interval until it
// reaches a terminal status or the wall-clock budget runs out. On budget
// exhaustion the job is left running; there is no cancellation primitive.
// Returns the completed job, or a non-empty failure reason.
func (s *service) waitForJob(ctx context.Context, jobName string) (*TranscriptionJob, string) {
	deadline := s.now().Add(s.pollTimeout)

	for {
		job, err := s.transcriber.GetJob(ctx, jobName)
		if err != nil {
			return nil, fmt.Sprintf("%s: %v", FailureJobSubmission, err)
		}

		switch job.Status {
		case JobStatusCompleted:
			return job, ""
		case JobStatusFailed:
			reason := job.FailureReason
			if reason == "" {
				reason = "transcription job failed"
			}
			return nil, reason
		}

		if !s.now().Before(deadline) {
			return nil, FailurePollingTimeout
		}
		if err := s.sleep(ctx, s.pollInterval); err != nil {
			return nil, FailurePollingTimeout
		}
	}
}

// writeResult persists the run outcome at the derived result key.
func (s *service) writeResult(ctx context.Context, result *ProcessingResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode processing result: %w", err)
	}

	resultKey := DeriveResultKey(result.AudioKey)
	err = s.blobStore.UploadWithParams(ctx, bytes.NewReader(data), UploadParams{
		ObjectKey: resultKey,
		MimeType:  "application/json",
	})
	if err != nil {
		return &StorageError{Key: resultKey, Op: "upload", Err: err}
	}

	return nil
}

func (s *service) newJobName() string {
	ts := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("speaktex_%s_%s", ts, uuid.New().String()[:8])
}

// mediaURI builds the store URI handed to the transcription job service, so
// the pipeline never buffers the audio bytes itself.
func (s *service) mediaURI(uploadKey string) string {
	if s.mediaBucket == "" {
		return uploadKey
	}
	return fmt.Sprintf("s3://%s/%s", s.mediaBucket, uploadKey)
}

func failedResult(uploadKey, transcript, reason string) *ProcessingResult {
	return &ProcessingResult{
		Status:     ProcessingStatusFailed,
		Transcript: transcript,
		AudioKey:   uploadKey,
		Error:      reason,
	}
}

// StripCodeFences removes markdown code-fence markers that generative
// models sometimes wrap around LaTeX output despite being told not to.
func StripCodeFences(latex string) string {
	latex = strings.ReplaceAll(latex, "```latex", "")
	latex = strings.ReplaceAll(latex, "```", "")
	return strings.TrimSpace(latex)
}
