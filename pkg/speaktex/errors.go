package speaktex

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidContentType indicates a content type outside the audio allow-list
	ErrInvalidContentType = errors.New("invalid content type")

	// ErrInvalidUploadKey indicates a key that does not follow the uploads/ layout
	ErrInvalidUploadKey = errors.New("invalid upload key")

	// ErrUploadIssuanceFailed indicates the object store could not issue an upload URL
	ErrUploadIssuanceFailed = errors.New("upload issuance failed")

	// ErrObjectNotFound indicates an object was not found in the blob store
	ErrObjectNotFound = errors.New("object not found")

	// ErrRecordNotFound indicates a history record was not found
	ErrRecordNotFound = errors.New("history record not found")

	// ErrMissingField indicates a required request field was empty
	ErrMissingField = errors.New("missing required field")

	// ErrNotConfigured indicates an operation needs a capability the service
	// was built without
	ErrNotConfigured = errors.New("capability not configured")

	// ErrEmptyTranscript indicates a transcription job completed with no text
	ErrEmptyTranscript = errors.New("transcript text is empty")
)

// Failure reasons recorded in a failed ProcessingResult. Pollers see these
// verbatim in the result's error field.
const (
	FailureJobSubmission    = "JobSubmissionError"
	FailurePollingTimeout   = "PollingTimeout"
	FailureTranscriptFetch  = "TranscriptFetchError"
	FailureMarkupConversion = "MarkupConversionError"
)

// Pipeline stages, used in ProcessingError.
const (
	StageTranscribing  = "transcribing"
	StageConverting    = "converting"
	StageWritingResult = "writing_result"
)

// ProcessingError represents a failure of one pipeline stage for one upload key
type ProcessingError struct {
	Key   string
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing stage %s failed for key %s: %v", e.Stage, e.Key, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// StorageError represents a failure of a blob store operation
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
