package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	config "github.com/maheshrc27/pageflow/configs"
	"github.com/maheshrc27/pageflow/internal/models"
	"github.com/maheshrc27/pageflow/internal/transfer"
)

// CancelChecker is polled between chunks. A true result consumes the cancel
// request, so a later upload on the same job starts clean.
type CancelChecker interface {
	CheckAndResetCancel() bool
}

// ProgressFunc receives transfer progress after every chunk.
type ProgressFunc func(uploaded, total int64, percent, rateMBps float64, etaSeconds int64)

// UploadOptions carries the per-upload knobs of the resumable video protocol.
type UploadOptions struct {
	Title       string
	Description string
	ChunkSize   int64

	Cancel   CancelChecker
	Progress ProgressFunc
}

// UploadService drives the Graph API resumable video upload: start, a
// transfer loop, then finish. Results come back as the raw HTTP status plus
// the decoded body; protocol failures return a nil status and a body of the
// form {"error": tag, "detail": ...} so callers can classify without
// re-parsing.
type UploadService interface {
	UploadVideo(ctx context.Context, filePath, pageID, accessToken string, opts UploadOptions) (*int, map[string]any)
}

type uploadService struct {
	cfg     config.Config
	client  *http.Client
	baseURL string

	startTimeout  time.Duration
	xferTimeout   time.Duration
	finishTimeout time.Duration
}

func NewUploadService(cfg config.Config) UploadService {
	return &uploadService{
		cfg:           cfg,
		client:        &http.Client{},
		baseURL:       "https://graph-video.facebook.com",
		startTimeout:  time.Duration(cfg.UploadTimeoutStart) * time.Second,
		xferTimeout:   time.Duration(cfg.UploadTimeoutXfer) * time.Second,
		finishTimeout: time.Duration(cfg.UploadTimeoutFinish) * time.Second,
	}
}

func failure(tag string, detail any) (*int, map[string]any) {
	return nil, map[string]any{"error": tag, "detail": fmt.Sprintf("%v", detail)}
}

func (s *uploadService) endpoint(pageID string) string {
	return fmt.Sprintf("%s/%s/%s/videos", s.baseURL, s.cfg.GraphAPIVersion, pageID)
}

func (s *uploadService) UploadVideo(ctx context.Context, filePath, pageID, accessToken string, opts UploadOptions) (*int, map[string]any) {
	info, err := os.Stat(filePath)
	if err != nil {
		slog.Info(err.Error())
		return failure("file_read_or_transfer", err)
	}
	fileSize := info.Size()

	start, err := s.startSession(ctx, pageID, accessToken, fileSize)
	if err != nil {
		slog.Info(err.Error())
		return failure("start_failed", err)
	}
	if start.UploadSessionID == "" {
		return failure("no_session", "start phase returned no upload_session_id")
	}

	if tag, err := s.transferChunks(ctx, filePath, pageID, accessToken, fileSize, start, opts); err != nil {
		slog.Info(err.Error())
		return failure(tag, err)
	}

	return s.finishSession(ctx, pageID, accessToken, start.UploadSessionID, opts)
}

func (s *uploadService) startSession(ctx context.Context, pageID, accessToken string, fileSize int64) (*transfer.UploadStartResponse, error) {
	form := url.Values{}
	form.Set("upload_phase", "start")
	form.Set("file_size", strconv.FormatInt(fileSize, 10))
	form.Set("access_token", accessToken)

	ctx, cancel := context.WithTimeout(ctx, s.startTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint(pageID), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("start phase status %d: %s", resp.StatusCode, body)
	}

	var start transfer.UploadStartResponse
	if err := json.Unmarshal(body, &start); err != nil {
		return nil, fmt.Errorf("decode start response: %w", err)
	}
	return &start, nil
}

// transferChunks streams the file sequentially. Cancellation is checked
// before the first chunk and once per iteration; an early EOF ends the loop
// and lets the finish phase report whatever the server accepted.
func (s *uploadService) transferChunks(ctx context.Context, filePath, pageID, accessToken string, fileSize int64, start *transfer.UploadStartResponse, opts UploadOptions) (string, error) {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.cfg.ChunkSizeBytes
	}
	if chunkSize <= 0 {
		chunkSize = models.ChunkSizeFallback
	}

	f, err := os.Open(filePath)
	if err != nil {
		return "file_read_or_transfer", err
	}
	defer f.Close()

	startOffset := start.StartOffset.Int64()
	endOffset := start.EndOffset.Int64()
	began := time.Now()
	buf := make([]byte, chunkSize)

	if opts.Cancel != nil && opts.Cancel.CheckAndResetCancel() {
		return "cancelled", fmt.Errorf("upload cancelled before first chunk")
	}

	for startOffset != endOffset {
		if opts.Cancel != nil && opts.Cancel.CheckAndResetCancel() {
			return "cancelled", fmt.Errorf("upload cancelled at offset %d", startOffset)
		}

		if _, err := f.Seek(startOffset, io.SeekStart); err != nil {
			return "file_read_or_transfer", err
		}
		// The server may direct a slice smaller than the chunk size.
		readLen := int64(len(buf))
		if remaining := endOffset - startOffset; remaining > 0 && remaining < readLen {
			readLen = remaining
		}
		n, err := io.ReadFull(f, buf[:readLen])
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			err = nil
		}
		if err != nil {
			return "file_read_or_transfer", err
		}
		if n == 0 {
			// File shorter than the announced size; let finish settle it.
			break
		}

		reply, err := s.sendChunk(ctx, pageID, accessToken, start.UploadSessionID, startOffset, buf[:n], filepath.Base(filePath))
		if err != nil {
			return "transfer_failed", err
		}

		startOffset = reply.StartOffset.Int64()
		endOffset = reply.EndOffset.Int64()
		reportProgress(opts.Progress, startOffset, fileSize, began)
	}

	return "", nil
}

func (s *uploadService) sendChunk(ctx context.Context, pageID, accessToken, sessionID string, offset int64, chunk []byte, fileName string) (*transfer.UploadTransferResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	w.WriteField("upload_phase", "transfer")
	w.WriteField("start_offset", strconv.FormatInt(offset, 10))
	w.WriteField("upload_session_id", sessionID)
	w.WriteField("access_token", accessToken)
	part, err := w.CreateFormFile("video_file_chunk", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(chunk); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.xferTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint(pageID), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("transfer phase status %d: %s", resp.StatusCode, respBody)
	}

	var reply transfer.UploadTransferResponse
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return nil, fmt.Errorf("decode transfer response: %w", err)
	}
	return &reply, nil
}

// finishSession publishes the video. The raw status and body are returned
// without raising on non-2xx so the caller applies its own success check.
func (s *uploadService) finishSession(ctx context.Context, pageID, accessToken, sessionID string, opts UploadOptions) (*int, map[string]any) {
	form := url.Values{}
	form.Set("upload_phase", "finish")
	form.Set("upload_session_id", sessionID)
	form.Set("access_token", accessToken)
	form.Set("title", opts.Title)
	form.Set("description", opts.Description)
	form.Set("published", "true")

	ctx, cancel := context.WithTimeout(ctx, s.finishTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint(pageID), strings.NewReader(form.Encode()))
	if err != nil {
		slog.Info(err.Error())
		return failure("finish_failed", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return failure("finish_failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return failure("finish_failed", err)
	}

	status := resp.StatusCode
	var decoded map[string]any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		decoded = map[string]any{"raw": string(respBody)}
	}
	return &status, decoded
}

func reportProgress(fn ProgressFunc, uploaded, total int64, began time.Time) {
	if fn == nil || total <= 0 {
		return
	}
	elapsed := time.Since(began).Seconds()
	if elapsed <= 0 {
		elapsed = 0.001
	}
	rate := float64(uploaded) / (1024 * 1024) / elapsed
	var eta int64
	if rate > 0 {
		eta = int64(float64(total-uploaded) / (rate * 1024 * 1024))
	}
	fn(uploaded, total, float64(uploaded)/float64(total)*100, rate, eta)
}

// IsUploadSuccessful decides whether a finish-phase result counts as a
// published video. A nil status is always a failure. A JSON object body
// fails only when it carries an "error" member; string bodies are failures,
// anything else decodable is accepted.
func IsUploadSuccessful(status *int, body any) bool {
	if status == nil {
		return false
	}
	if *status < 200 || *status >= 300 {
		return false
	}
	switch b := body.(type) {
	case map[string]any:
		_, hasErr := b["error"]
		return !hasErr
	case string:
		return false
	default:
		return true
	}
}

// IsRateLimitError reports whether a failure body is the Graph API telling
// us to slow down, either by error code 4 or by message text.
func IsRateLimitError(body any) bool {
	m, ok := body.(map[string]any)
	if !ok {
		return false
	}
	errVal, ok := m["error"]
	if !ok {
		return false
	}

	var code int
	var message string
	switch e := errVal.(type) {
	case map[string]any:
		switch c := e["code"].(type) {
		case float64:
			code = int(c)
		case string:
			code, _ = strconv.Atoi(c)
		}
		message, _ = e["message"].(string)
	case string:
		message = e
	}

	if code == 4 {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "request limit") || strings.Contains(lower, "rate limit")
}
