package speaktex

// ProcessingStatus is the terminal outcome recorded in a ProcessingResult.
type ProcessingStatus string

const (
	ProcessingStatusSuccess ProcessingStatus = "success"
	ProcessingStatusFailed  ProcessingStatus = "failed"
)

// PollStatus is the status reported to a polling client.
type PollStatus string

const (
	// PollStatusProcessing means no result object exists yet. This is the
	// expected state while the pipeline is running, not an error.
	PollStatusProcessing PollStatus = "processing"
	PollStatusCompleted  PollStatus = "completed"
	PollStatusFailed     PollStatus = "failed"
	// PollStatusError marks a single entry of a batch poll whose store
	// lookup failed. It never aborts the rest of the batch.
	PollStatusError PollStatus = "error"
)

// JobStatus is the lifecycle state of a transcription job.
type JobStatus string

const (
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// ProcessingResult is the immutable outcome of one pipeline run, written as
// JSON to the result key derived from the upload key. A re-run overwrites
// the object at the same key (last-write-wins).
type ProcessingResult struct {
	Status     ProcessingStatus `json:"status"`
	Transcript string           `json:"transcript,omitempty"`
	Latex      string           `json:"latex,omitempty"`
	AudioKey   string           `json:"audio_key"`
	Error      string           `json:"error,omitempty"`
}

// TranscriptionJob describes an asynchronous speech-to-text job. Jobs are
// created once per submission, polled until COMPLETED or FAILED, and never
// resubmitted under the same name.
type TranscriptionJob struct {
	JobName       string    `json:"job_name"`
	Status        JobStatus `json:"status"`
	TranscriptURI string    `json:"transcript_uri,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// HistoryRecord is one saved transcript/LaTeX pair. Records are keyed and
// partitioned by user ID; the timestamp is the sort key.
type HistoryRecord struct {
	UserID     string `json:"user_id"`
	Timestamp  string `json:"timestamp"`
	ID         string `json:"id"`
	Transcript string `json:"transcript"`
	Latex      string `json:"latex"`
}

// PollResult is the per-key response of the result poller.
type PollResult struct {
	FileKey    string     `json:"file_key,omitempty"`
	Status     PollStatus `json:"status"`
	Transcript string     `json:"transcript,omitempty"`
	Latex      string     `json:"latex,omitempty"`
	AudioKey   string     `json:"audio_key,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ResultStatus is the lightweight status-only poll response.
type ResultStatus struct {
	Status PollStatus `json:"status"`
	Ready  bool       `json:"ready"`
}

// DeleteAllResult aggregates the outcome of a bulk history delete. Individual
// delete failures are tolerated and counted rather than aborting the loop.
type DeleteAllResult struct {
	DeletedCount int `json:"deleted_count"`
	FailedCount  int `json:"failed_count"`
	TotalCount   int `json:"total_count"`
}
