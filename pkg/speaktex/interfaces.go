package speaktex

import (
	"context"
	"io"
)

// BlobStore defines the interface for object storage backends
type BlobStore interface {
	// GetUploadURL returns a time-limited signed URL for a PUT scoped to
	// exactly the given key and content type
	GetUploadURL(ctx context.Context, objectKey, contentType string) (string, error)

	// GetDownloadURL returns a time-limited signed URL for downloading an object
	GetDownloadURL(ctx context.Context, objectKey, downloadFilename string) (string, error)

	// Upload writes content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams writes content with an explicit content type
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download reads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Exists reports whether an object is present at the key
	Exists(ctx context.Context, objectKey string) (bool, error)

	// Delete removes an object
	Delete(ctx context.Context, objectKey string) error
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// TranscriptionClient defines the interface for an asynchronous
// speech-to-text job service
type TranscriptionClient interface {
	// StartJob submits a transcription job for the media at mediaURI.
	// Job names are unique per submission and never reused.
	StartJob(ctx context.Context, jobName, mediaURI, mediaFormat string) error

	// GetJob returns the current state of a submitted job
	GetJob(ctx context.Context, jobName string) (*TranscriptionJob, error)

	// FetchTranscript downloads the completed job's output document and
	// extracts the primary transcript text
	FetchTranscript(ctx context.Context, transcriptURI string) (string, error)
}

// MarkupClient defines the interface for a generative text service that
// converts a spoken-math transcript into LaTeX
type MarkupClient interface {
	ConvertToLaTeX(ctx context.Context, transcript string) (string, error)
}

// HistoryStore defines the interface for the per-user append log keyed by
// (user_id, timestamp)
type HistoryStore interface {
	// Insert appends a record
	Insert(ctx context.Context, record *HistoryRecord) error

	// Query returns a user's records in reverse-chronological order.
	// A limit of zero or less means no limit.
	Query(ctx context.Context, userID string, limit int) ([]*HistoryRecord, error)

	// Delete removes one record and returns it, or ErrRecordNotFound
	Delete(ctx context.Context, userID, timestamp string) (*HistoryRecord, error)
}
