// Package speaktex implements the voice-to-LaTeX processing pipeline:
// presigned audio upload issuance, asynchronous transcription and LaTeX
// conversion, result polling, and per-user history.
//
// The package is storage- and vendor-agnostic. All external systems are
// capability interfaces (BlobStore, TranscriptionClient, MarkupClient,
// HistoryStore) with concrete backends in subpackages:
//
//	storage/s3, storage/memory          object storage
//	transcribe/awstranscribe            speech-to-text jobs
//	markup/openai                       LaTeX conversion
//	history/dynamodb, history/memory    per-user history log
//
// Construct a Service with New and functional options:
//
//	svc, err := speaktex.New(
//	    speaktex.WithBlobStore(store),
//	    speaktex.WithTranscriptionClient(transcriber),
//	    speaktex.WithMarkupClient(markup),
//	    speaktex.WithHistoryStore(history),
//	)
package speaktex
