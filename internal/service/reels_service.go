package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	config "github.com/maheshrc27/pageflow/configs"
	"github.com/maheshrc27/pageflow/internal/models"
	"github.com/maheshrc27/pageflow/internal/transfer"
)

// ReelsService publishes reels through the hosted upload flow. Files above
// the resumable threshold are sent chunk by chunk against the upload_url,
// advancing the offset header; smaller files go in a single request.
type ReelsService interface {
	UploadReel(ctx context.Context, filePath, pageID, accessToken, description string) (*int, map[string]any)
}

type reelsService struct {
	cfg     config.Config
	client  *http.Client
	baseURL string
}

func NewReelsService(cfg config.Config) ReelsService {
	return &reelsService{
		cfg:     cfg,
		client:  &http.Client{Timeout: 5 * time.Minute},
		baseURL: "https://graph.facebook.com",
	}
}

func (s *reelsService) edgeURL(pageID string) string {
	return fmt.Sprintf("%s/%s/%s/video_reels", s.baseURL, s.cfg.GraphAPIVersion, pageID)
}

func (s *reelsService) UploadReel(ctx context.Context, filePath, pageID, accessToken, description string) (*int, map[string]any) {
	start, err := s.startSession(ctx, pageID, accessToken)
	if err != nil {
		slog.Info(err.Error())
		return failure("start_failed", err)
	}
	if start.VideoID == "" || start.UploadURL == "" {
		return failure("no_session", "reels start returned no session")
	}

	if err := s.transferFile(ctx, start.UploadURL, filePath, accessToken); err != nil {
		slog.Info(err.Error())
		return failure("transfer_failed", err)
	}

	form := url.Values{}
	form.Set("upload_phase", "finish")
	form.Set("video_id", start.VideoID)
	form.Set("video_state", "PUBLISHED")
	form.Set("description", description)
	form.Set("access_token", accessToken)
	return s.finish(ctx, pageID, form)
}

func (s *reelsService) startSession(ctx context.Context, pageID, accessToken string) (*transfer.ReelsStartResponse, error) {
	form := url.Values{}
	form.Set("upload_phase", "start")
	form.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, "POST", s.edgeURL(pageID), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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
		return nil, fmt.Errorf("reels start status %d: %s", resp.StatusCode, respBody)
	}

	var start transfer.ReelsStartResponse
	if err := json.Unmarshal(respBody, &start); err != nil {
		return nil, fmt.Errorf("decode reels start: %w", err)
	}
	return &start, nil
}

func (s *reelsService) transferFile(ctx context.Context, uploadURL, filePath, accessToken string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	if info.Size() <= models.ResumableThresholdBytes {
		return s.sendRange(ctx, uploadURL, filePath, accessToken, 0, info.Size(), info.Size())
	}

	var offset int64
	for offset < info.Size() {
		length := int64(models.ChunkSizeDefault)
		if remaining := info.Size() - offset; remaining < length {
			length = remaining
		}
		if err := s.sendRange(ctx, uploadURL, filePath, accessToken, offset, length, info.Size()); err != nil {
			return err
		}
		offset += length
	}
	return nil
}

func (s *reelsService) sendRange(ctx context.Context, uploadURL, filePath, accessToken string, offset, length, total int64) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, io.LimitReader(f, length))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)
	req.Header.Set("offset", strconv.FormatInt(offset, 10))
	req.Header.Set("file_size", strconv.FormatInt(total, 10))
	req.ContentLength = length

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("reels transfer status %d at offset %d: %s", resp.StatusCode, offset, respBody)
	}
	return nil
}

func (s *reelsService) finish(ctx context.Context, pageID string, form url.Values) (*int, map[string]any) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.edgeURL(pageID), strings.NewReader(form.Encode()))
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
