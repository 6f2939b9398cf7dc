package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/maheshrc27/pageflow/configs"
)

type graphStub struct {
	mu        sync.Mutex
	fileSize  int64
	chunks    [][]byte
	finishes  int
	transfers int

	// Optional end_offset overrides; zero means the announced file size.
	startEndOffset    int64
	transferEndOffset int64
}

func (g *graphStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// FormValue parses both the urlencoded start/finish phases and the
		// multipart transfer phase.
		g.mu.Lock()
		defer g.mu.Unlock()

		switch r.FormValue("upload_phase") {
		case "start":
			size, _ := strconv.ParseInt(r.FormValue("file_size"), 10, 64)
			g.fileSize = size
			end := size
			if g.startEndOffset > 0 {
				end = g.startEndOffset
			}
			json.NewEncoder(w).Encode(map[string]any{
				"upload_session_id": "sess-1",
				"video_id":          "vid-1",
				"start_offset":      "0",
				"end_offset":        fmt.Sprintf("%d", end),
			})
		case "transfer":
			g.transfers++
			require.Equal(t, "sess-1", r.FormValue("upload_session_id"))

			file, _, err := r.FormFile("video_file_chunk")
			require.NoError(t, err)
			defer file.Close()
			buf := make([]byte, g.fileSize)
			n, _ := file.Read(buf)
			g.chunks = append(g.chunks, buf[:n])

			start, _ := strconv.ParseInt(r.FormValue("start_offset"), 10, 64)
			next := start + int64(n)
			end := g.fileSize
			if g.transferEndOffset > 0 {
				end = g.transferEndOffset
			}
			json.NewEncoder(w).Encode(map[string]any{
				"start_offset": fmt.Sprintf("%d", next),
				"end_offset":   fmt.Sprintf("%d", end),
			})
		case "finish":
			g.finishes++
			require.Equal(t, "sess-1", r.FormValue("upload_session_id"))
			require.Equal(t, "true", r.FormValue("published"))
			json.NewEncoder(w).Encode(map[string]any{"id": "vid-1"})
		default:
			t.Errorf("unexpected upload_phase %q", r.FormValue("upload_phase"))
		}
	}
}

func testUploadService(srv *httptest.Server) *uploadService {
	return &uploadService{
		cfg:           config.Config{GraphAPIVersion: "v20.0"},
		client:        srv.Client(),
		baseURL:       srv.URL,
		startTimeout:  5 * time.Second,
		xferTimeout:   5 * time.Second,
		finishTimeout: 5 * time.Second,
	}
}

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

type cancelAfter struct {
	calls int
	after int
}

func (c *cancelAfter) CheckAndResetCancel() bool {
	c.calls++
	return c.calls > c.after
}

func TestUploadVideoFullFlow(t *testing.T) {
	stub := &graphStub{}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	content := []byte("0123456789abcdefghij")
	path := writeTempFile(t, content)

	svc := testUploadService(srv)
	status, body := svc.UploadVideo(context.Background(), path, "page-1", "tok", UploadOptions{
		Title:     "clip",
		ChunkSize: 8,
	})

	require.NotNil(t, status)
	assert.Equal(t, http.StatusOK, *status)
	assert.Equal(t, "vid-1", body["id"])
	assert.Equal(t, 1, stub.finishes)
	assert.Equal(t, 3, stub.transfers)

	var got []byte
	for _, c := range stub.chunks {
		got = append(got, c...)
	}
	assert.Equal(t, content, got)
}

func TestUploadVideoEarlyEOFReachesFinish(t *testing.T) {
	// The server announces more bytes than the file holds; the empty read
	// ends the loop and the finish phase still runs.
	stub := &graphStub{startEndOffset: 30, transferEndOffset: 30}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	content := []byte("0123456789abcdefghij")
	path := writeTempFile(t, content)

	svc := testUploadService(srv)
	status, body := svc.UploadVideo(context.Background(), path, "page-1", "tok", UploadOptions{
		ChunkSize: 8,
	})

	require.NotNil(t, status)
	assert.Equal(t, http.StatusOK, *status)
	assert.Equal(t, "vid-1", body["id"])
	assert.Equal(t, 1, stub.finishes)
	assert.Equal(t, 3, stub.transfers)

	var got []byte
	for _, c := range stub.chunks {
		got = append(got, c...)
	}
	assert.Equal(t, content, got)
}

func TestUploadVideoServerDirectedSlice(t *testing.T) {
	// The start phase asks for a first slice smaller than the chunk size;
	// the driver sends exactly that range, then full chunks for the rest.
	stub := &graphStub{startEndOffset: 5}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	content := []byte("0123456789abcdefghij")
	path := writeTempFile(t, content)

	svc := testUploadService(srv)
	status, _ := svc.UploadVideo(context.Background(), path, "page-1", "tok", UploadOptions{
		ChunkSize: 8,
	})

	require.NotNil(t, status)
	assert.Equal(t, http.StatusOK, *status)

	require.Len(t, stub.chunks, 3)
	assert.Len(t, stub.chunks[0], 5)
	assert.Len(t, stub.chunks[1], 8)
	assert.Len(t, stub.chunks[2], 7)

	var got []byte
	for _, c := range stub.chunks {
		got = append(got, c...)
	}
	assert.Equal(t, content, got)
}

func TestUploadVideoCancelledMidTransfer(t *testing.T) {
	stub := &graphStub{}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	path := writeTempFile(t, []byte("0123456789abcdefghij"))

	svc := testUploadService(srv)
	// First poll happens before the first chunk, second at the top of the
	// first iteration; the third poll cancels before the second chunk.
	status, body := svc.UploadVideo(context.Background(), path, "page-1", "tok", UploadOptions{
		ChunkSize: 8,
		Cancel:    &cancelAfter{after: 2},
	})

	assert.Nil(t, status)
	assert.Equal(t, "cancelled", body["error"])
	assert.Equal(t, 1, stub.transfers)
	assert.Zero(t, stub.finishes)
}

func TestUploadVideoStartFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad token","code":190}}`))
	}))
	defer srv.Close()

	path := writeTempFile(t, []byte("xx"))

	svc := testUploadService(srv)
	status, body := svc.UploadVideo(context.Background(), path, "page-1", "tok", UploadOptions{})

	assert.Nil(t, status)
	assert.Equal(t, "start_failed", body["error"])
}

func TestUploadVideoMissingSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	path := writeTempFile(t, []byte("xx"))

	svc := testUploadService(srv)
	status, body := svc.UploadVideo(context.Background(), path, "page-1", "tok", UploadOptions{})

	assert.Nil(t, status)
	assert.Equal(t, "no_session", body["error"])
}

func TestUploadVideoMissingFile(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	svc := testUploadService(srv)

	status, body := svc.UploadVideo(context.Background(), "/nope/missing.mp4", "page-1", "tok", UploadOptions{})
	assert.Nil(t, status)
	assert.Equal(t, "file_read_or_transfer", body["error"])
}

func intPtr(v int) *int { return &v }

func TestIsUploadSuccessful(t *testing.T) {
	assert.False(t, IsUploadSuccessful(nil, map[string]any{"id": "1"}))
	assert.False(t, IsUploadSuccessful(intPtr(500), map[string]any{"id": "1"}))
	assert.False(t, IsUploadSuccessful(intPtr(200), map[string]any{"error": "x"}))
	assert.False(t, IsUploadSuccessful(intPtr(200), "plain text body"))

	assert.True(t, IsUploadSuccessful(intPtr(200), map[string]any{"id": "1"}))
	assert.True(t, IsUploadSuccessful(intPtr(204), map[string]any{}))
	assert.True(t, IsUploadSuccessful(intPtr(200), []any{"odd", "body"}))
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, IsRateLimitError(map[string]any{
		"error": map[string]any{"code": float64(4), "message": "Application limit reached"},
	}))
	assert.True(t, IsRateLimitError(map[string]any{
		"error": map[string]any{"code": float64(999), "message": "User request limit reached"},
	}))
	assert.True(t, IsRateLimitError(map[string]any{
		"error": "Rate limit hit, try later",
	}))

	assert.False(t, IsRateLimitError(map[string]any{
		"error": map[string]any{"code": float64(100), "message": "Invalid parameter"},
	}))
	assert.False(t, IsRateLimitError(map[string]any{"id": "1"}))
	assert.False(t, IsRateLimitError("not a map"))
	assert.False(t, IsRateLimitError(nil))
}
