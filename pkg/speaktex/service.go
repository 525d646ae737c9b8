package speaktex

import (
	"context"
	"errors"
	"io"
	"time"
)

// Service is the main interface for the voice-to-LaTeX pipeline
type Service interface {
	// Upload issuance
	IssueUpload(ctx context.Context, req IssueUploadRequest) (*IssueUploadResponse, error)
	DirectUpload(ctx context.Context, req DirectUploadRequest) (string, error)
	GetAudioDownloadURL(ctx context.Context, uploadKey string) (string, error)

	// Processing
	ProcessUpload(ctx context.Context, uploadKey string) (*ProcessingResult, error)

	// Result polling
	PollResult(ctx context.Context, uploadKey string) (*PollResult, error)
	PollResults(ctx context.Context, uploadKeys []string) []*PollResult
	ResultStatus(ctx context.Context, uploadKey string) (*ResultStatus, error)

	// History
	SaveHistory(ctx context.Context, req SaveHistoryRequest) (*HistoryRecord, error)
	ListHistory(ctx context.Context, userID string, limit int) ([]*HistoryRecord, error)
	DeleteHistory(ctx context.Context, userID, timestamp string) (*HistoryRecord, error)
	DeleteAllHistory(ctx context.Context, userID string) (*DeleteAllResult, error)
}

// IssueUploadRequest contains parameters for issuing a presigned upload
type IssueUploadRequest struct {
	FileName    string
	ContentType string
}

// IssueUploadResponse is the issued upload contract returned to the client.
// No object exists until the client performs the PUT itself.
type IssueUploadResponse struct {
	UploadURL string `json:"upload_url"`
	FileKey   string `json:"file_key"`
	ExpiresIn int    `json:"expires_in"`
	Method    string `json:"method"`
}

// DirectUploadRequest uploads audio through the server instead of a
// presigned PUT. The presigned flow is preferred; this exists for clients
// that cannot PUT to the store directly.
type DirectUploadRequest struct {
	FileName    string
	ContentType string
	Reader      io.Reader
}

// SaveHistoryRequest contains parameters for saving a history record
type SaveHistoryRequest struct {
	UserID     string
	Transcript string
	Latex      string
}

// Option is a functional option for configuring the service
type Option func(*service)

// WithBlobStore sets the object storage backend (required)
func WithBlobStore(store BlobStore) Option {
	return func(s *service) { s.blobStore = store }
}

// WithTranscriptionClient sets the speech-to-text job client
func WithTranscriptionClient(client TranscriptionClient) Option {
	return func(s *service) { s.transcriber = client }
}

// WithMarkupClient sets the LaTeX conversion client
func WithMarkupClient(client MarkupClient) Option {
	return func(s *service) { s.markup = client }
}

// WithHistoryStore sets the per-user history backend
func WithHistoryStore(store HistoryStore) Option {
	return func(s *service) { s.history = store }
}

// WithMediaBucket sets the bucket name used to build s3:// media URIs for
// transcription job submissions
func WithMediaBucket(bucket string) Option {
	return func(s *service) { s.mediaBucket = bucket }
}

// WithUploadExpiry sets the presigned upload URL lifetime
func WithUploadExpiry(d time.Duration) Option {
	return func(s *service) { s.uploadExpiry = d }
}

// WithPollInterval sets the delay between transcription job status checks
func WithPollInterval(d time.Duration) Option {
	return func(s *service) { s.pollInterval = d }
}

// WithPollTimeout sets the wall-clock budget for waiting on a transcription
// job. On exhaustion the run fails with PollingTimeout; the job itself is
// left running, since no cancellation primitive is assumed.
func WithPollTimeout(d time.Duration) Option {
	return func(s *service) { s.pollTimeout = d }
}

// WithMarkupTimeout sets the request timeout for one LaTeX conversion call
func WithMarkupTimeout(d time.Duration) Option {
	return func(s *service) { s.markupTimeout = d }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithSleepFunc overrides the between-poll sleep. The default blocks on a
// timer and honors context cancellation; tests swap in a fake that advances
// a synthetic clock.
func WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *service) { s.sleep = sleep }
}

type service struct {
	blobStore   BlobStore
	transcriber TranscriptionClient
	markup      MarkupClient
	history     HistoryStore

	mediaBucket   string
	uploadExpiry  time.Duration
	pollInterval  time.Duration
	pollTimeout   time.Duration
	markupTimeout time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new pipeline service with the given options. A blob store
// is required; the remaining capabilities are checked by the operations
// that need them.
func New(opts ...Option) (Service, error) {
	s := &service{
		uploadExpiry:  300 * time.Second,
		pollInterval:  5 * time.Second,
		pollTimeout:   300 * time.Second,
		markupTimeout: 30 * time.Second,
		now:           time.Now,
		sleep:         sleepContext,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.blobStore == nil {
		return nil, errors.New("blob store is required")
	}

	return s, nil
}

// sleepContext blocks for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
