package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/speaktex/speaktex/pkg/speaktex"
	"github.com/speaktex/speaktex/pkg/speaktex/api"
	historymemory "github.com/speaktex/speaktex/pkg/speaktex/history/memory"
	memorystorage "github.com/speaktex/speaktex/pkg/speaktex/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranscriber struct {
	transcript string
}

func (s *stubTranscriber) StartJob(ctx context.Context, jobName, mediaURI, mediaFormat string) error {
	return nil
}

func (s *stubTranscriber) GetJob(ctx context.Context, jobName string) (*speaktex.TranscriptionJob, error) {
	return &speaktex.TranscriptionJob{
		JobName:       jobName,
		Status:        speaktex.JobStatusCompleted,
		TranscriptURI: "s3://test-bucket/transcript.json",
	}, nil
}

func (s *stubTranscriber) FetchTranscript(ctx context.Context, transcriptURI string) (string, error) {
	return s.transcript, nil
}

type stubMarkup struct {
	latex string
}

func (s *stubMarkup) ConvertToLaTeX(ctx context.Context, transcript string) (string, error) {
	return s.latex, nil
}

type testEnv struct {
	server *httptest.Server
	store  *memorystorage.Backend
}

func newTestEnv(t *testing.T, transcript, latex string) *testEnv {
	t.Helper()

	store := memorystorage.New()
	svc, err := speaktex.New(
		speaktex.WithBlobStore(store),
		speaktex.WithTranscriptionClient(&stubTranscriber{transcript: transcript}),
		speaktex.WithMarkupClient(&stubMarkup{latex: latex}),
		speaktex.WithHistoryStore(historymemory.New()),
		speaktex.WithMediaBucket("test-bucket"),
	)
	require.NoError(t, err)

	server := httptest.NewServer(api.NewHandler(svc).Routes())
	t.Cleanup(server.Close)

	return &testEnv{server: server, store: store}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) delete(t *testing.T, path string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodDelete, e.server.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestIssueUploadEndpoint(t *testing.T) {
	env := newTestEnv(t, "", "")

	t.Run("issues a presigned upload", func(t *testing.T) {
		resp := env.postJSON(t, "/upload/presigned-url", map[string]string{
			"filename":     "audio.webm",
			"content_type": "audio/webm",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var issued speaktex.IssueUploadResponse
		decodeBody(t, resp, &issued)
		assert.NotEmpty(t, issued.UploadURL)
		assert.True(t, speaktex.IsUploadKey(issued.FileKey))
		assert.Equal(t, 300, issued.ExpiresIn)
		assert.Equal(t, "PUT", issued.Method)
	})

	t.Run("rejects disallowed content type", func(t *testing.T) {
		resp := env.postJSON(t, "/upload/presigned-url", map[string]string{
			"filename":     "video.mp4",
			"content_type": "video/mp4",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		resp, err := http.Post(env.server.URL+"/upload/presigned-url", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDirectUploadEndpoint(t *testing.T) {
	env := newTestEnv(t, "", "")

	buildMultipart := func(t *testing.T, filename, contentType, content string) (*bytes.Buffer, string) {
		t.Helper()

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename="%s"`, filename))
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
		require.NoError(t, writer.Close())
		return &buf, writer.FormDataContentType()
	}

	t.Run("stores the audio", func(t *testing.T) {
		body, contentType := buildMultipart(t, "audio.webm", "audio/webm", "webm-bytes")
		resp, err := http.Post(env.server.URL+"/upload/direct", contentType, body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out map[string]string
		decodeBody(t, resp, &out)
		require.True(t, speaktex.IsUploadKey(out["file_key"]))

		exists, err := env.store.Exists(context.Background(), out["file_key"])
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("rejects missing file field", func(t *testing.T) {
		resp, err := http.Post(env.server.URL+"/upload/direct", "multipart/form-data; boundary=x", strings.NewReader("--x--"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects non-audio content type", func(t *testing.T) {
		body, contentType := buildMultipart(t, "notes.txt", "text/plain", "hello")
		resp, err := http.Post(env.server.URL+"/upload/direct", contentType, body)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestProcessAndPollEndToEnd(t *testing.T) {
	env := newTestEnv(t, "x squared plus y squared", "$x^2 + y^2$")
	ctx := context.Background()

	// Issue an upload contract
	resp := env.postJSON(t, "/upload/presigned-url", map[string]string{
		"filename":     "audio.webm",
		"content_type": "audio/webm",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var issued speaktex.IssueUploadResponse
	decodeBody(t, resp, &issued)

	// Simulate the client's PUT against the store
	require.NoError(t, env.store.UploadWithParams(ctx, strings.NewReader("webm-bytes"), speaktex.UploadParams{
		ObjectKey: issued.FileKey,
		MimeType:  "audio/webm",
	}))

	// Nothing processed yet
	resp = env.get(t, "/results/"+issued.FileKey)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var pending speaktex.PollResult
	decodeBody(t, resp, &pending)
	assert.Equal(t, speaktex.PollStatusProcessing, pending.Status)

	// Trigger the pipeline
	resp = env.postJSON(t, "/process", map[string]string{"file_key": issued.FileKey})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	// Poll until the run lands its result document
	var final speaktex.PollResult
	require.Eventually(t, func() bool {
		resp := env.get(t, "/results/"+issued.FileKey)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return false
		}
		decodeBody(t, resp, &final)
		return true
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, speaktex.PollStatusCompleted, final.Status)
	assert.Equal(t, "x squared plus y squared", final.Transcript)
	assert.Equal(t, "$x^2 + y^2$", final.Latex)
	assert.Equal(t, issued.FileKey, final.AudioKey)

	// The status endpoint agrees
	resp = env.get(t, "/results/status/"+issued.FileKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status speaktex.ResultStatus
	decodeBody(t, resp, &status)
	assert.True(t, status.Ready)
	assert.Equal(t, speaktex.PollStatusCompleted, status.Status)
}

func TestProcessEndpointValidation(t *testing.T) {
	env := newTestEnv(t, "", "")

	resp := env.postJSON(t, "/process", map[string]string{"file_key": "results/x/audio.json"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPollBatchEndpoint(t *testing.T) {
	env := newTestEnv(t, "", "")
	ctx := context.Background()

	doneKey := "uploads/20241019_120000_aaa/audio.webm"
	pendingKey := "uploads/20241019_120000_bbb/audio.webm"

	data, err := json.Marshal(&speaktex.ProcessingResult{
		Status:     speaktex.ProcessingStatusSuccess,
		Transcript: "a",
		Latex:      "$a$",
		AudioKey:   doneKey,
	})
	require.NoError(t, err)
	require.NoError(t, env.store.UploadWithParams(ctx, bytes.NewReader(data), speaktex.UploadParams{
		ObjectKey: speaktex.DeriveResultKey(doneKey),
		MimeType:  "application/json",
	}))

	t.Run("mixed statuses", func(t *testing.T) {
		resp := env.postJSON(t, "/results/batch", map[string][]string{
			"file_keys": {doneKey, pendingKey},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Results []*speaktex.PollResult `json:"results"`
		}
		decodeBody(t, resp, &out)
		require.Len(t, out.Results, 2)
		assert.Equal(t, speaktex.PollStatusCompleted, out.Results[0].Status)
		assert.Equal(t, speaktex.PollStatusProcessing, out.Results[1].Status)
	})

	t.Run("missing file_keys", func(t *testing.T) {
		resp := env.postJSON(t, "/results/batch", map[string]string{})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t, "", "")

	saveRecord := func(t *testing.T, transcript string) *speaktex.HistoryRecord {
		t.Helper()

		resp := env.postJSON(t, "/history", map[string]string{
			"user_id":    "user-1",
			"transcript": transcript,
			"latex":      "$" + transcript + "$",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var out struct {
			Record *speaktex.HistoryRecord `json:"record"`
		}
		decodeBody(t, resp, &out)
		require.NotNil(t, out.Record)
		return out.Record
	}

	first := saveRecord(t, "one")
	saveRecord(t, "two")

	t.Run("save requires all fields", func(t *testing.T) {
		resp := env.postJSON(t, "/history", map[string]string{"user_id": "user-1"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list newest first", func(t *testing.T) {
		resp := env.get(t, "/history/user-1")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Records []*speaktex.HistoryRecord `json:"records"`
			Count   int                       `json:"count"`
		}
		decodeBody(t, resp, &out)
		require.Equal(t, 2, out.Count)
		assert.Equal(t, "two", out.Records[0].Transcript)
		assert.Equal(t, "one", out.Records[1].Transcript)
	})

	t.Run("list with limit", func(t *testing.T) {
		resp := env.get(t, "/history/user-1?limit=1")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Count int `json:"count"`
		}
		decodeBody(t, resp, &out)
		assert.Equal(t, 1, out.Count)
	})

	t.Run("bad limit", func(t *testing.T) {
		resp := env.get(t, "/history/user-1?limit=abc")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete one", func(t *testing.T) {
		resp := env.delete(t, "/history/user-1/"+url.PathEscape(first.Timestamp))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Deleted *speaktex.HistoryRecord `json:"deleted_record"`
		}
		decodeBody(t, resp, &out)
		assert.Equal(t, first.ID, out.Deleted.ID)
	})

	t.Run("delete missing is 404", func(t *testing.T) {
		resp := env.delete(t, "/history/user-1/"+url.PathEscape(first.Timestamp))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete all", func(t *testing.T) {
		resp := env.delete(t, "/history/user-1")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result speaktex.DeleteAllResult
		decodeBody(t, resp, &result)
		assert.Equal(t, 1, result.DeletedCount)
		assert.Equal(t, 0, result.FailedCount)
		assert.Equal(t, 1, result.TotalCount)
	})
}

func TestAudioDownloadEndpoint(t *testing.T) {
	env := newTestEnv(t, "", "")
	ctx := context.Background()

	uploadKey := "uploads/20241019_120000_abc/audio.webm"
	require.NoError(t, env.store.UploadWithParams(ctx, strings.NewReader("data"), speaktex.UploadParams{
		ObjectKey: uploadKey,
		MimeType:  "audio/webm",
	}))

	resp := env.get(t, "/uploads/"+uploadKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	decodeBody(t, resp, &out)
	assert.NotEmpty(t, out["download_url"])

	resp = env.get(t, "/uploads/results/x/audio.json")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
