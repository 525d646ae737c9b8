package speaktex

import (
	"context"
	"fmt"
)

// allowedAudioTypes is the content-type allow-list for upload issuance.
var allowedAudioTypes = map[string]bool{
	"audio/webm": true,
	"audio/wav":  true,
	"audio/mp3":  true,
	"audio/ogg":  true,
}

// AllowedContentTypes returns the audio MIME types accepted for upload.
func AllowedContentTypes() []string {
	return []string{"audio/webm", "audio/wav", "audio/mp3", "audio/ogg"}
}

// IssueUpload generates a unique upload key and a time-limited signed PUT
// URL scoped to that key and content type. No object is created until the
// client performs the PUT.
func (s *service) IssueUpload(ctx context.Context, req IssueUploadRequest) (*IssueUploadResponse, error) {
	if req.FileName == "" {
		req.FileName = "audio.webm"
	}
	if req.ContentType == "" {
		req.ContentType = "audio/webm"
	}
	if !allowedAudioTypes[req.ContentType] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContentType, req.ContentType)
	}

	key := NewUploadKey(s.now(), req.FileName)

	uploadURL, err := s.blobStore.GetUploadURL(ctx, key, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadIssuanceFailed, err)
	}

	return &IssueUploadResponse{
		UploadURL: uploadURL,
		FileKey:   key,
		ExpiresIn: int(s.uploadExpiry.Seconds()),
		Method:    "PUT",
	}, nil
}

// DirectUpload writes audio through the server under the same key scheme as
// the presigned flow and returns the upload key.
func (s *service) DirectUpload(ctx context.Context, req DirectUploadRequest) (string, error) {
	if req.FileName == "" {
		return "", fmt.Errorf("%w: filename", ErrMissingField)
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "audio/webm"
	}
	if !allowedAudioTypes[contentType] {
		return "", fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}

	key := NewUploadKey(s.now(), req.FileName)

	err := s.blobStore.UploadWithParams(ctx, req.Reader, UploadParams{
		ObjectKey: key,
		MimeType:  contentType,
	})
	if err != nil {
		return "", &StorageError{Key: key, Op: "upload", Err: err}
	}

	return key, nil
}

// GetAudioDownloadURL returns a signed GET URL for a stored audio object.
func (s *service) GetAudioDownloadURL(ctx context.Context, uploadKey string) (string, error) {
	if !IsUploadKey(uploadKey) {
		return "", fmt.Errorf("%w: %s", ErrInvalidUploadKey, uploadKey)
	}

	url, err := s.blobStore.GetDownloadURL(ctx, uploadKey, "")
	if err != nil {
		return "", &StorageError{Key: uploadKey, Op: "get_download_url", Err: err}
	}
	return url, nil
}
