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
	"github.com/maheshrc27/pageflow/internal/transfer"
)

// StoryService publishes photo and video stories to a page. Photos go up as
// unpublished page photos first and are then attached to a story; videos use
// the hosted upload flow where the start phase hands back a one-shot
// upload_url for the raw bytes.
type StoryService interface {
	UploadPhotoStory(ctx context.Context, filePath, pageID, accessToken string) (*int, map[string]any)
	UploadVideoStory(ctx context.Context, filePath, pageID, accessToken string) (*int, map[string]any)
}

type storyService struct {
	cfg     config.Config
	client  *http.Client
	baseURL string
}

func NewStoryService(cfg config.Config) StoryService {
	return &storyService{
		cfg:     cfg,
		client:  &http.Client{Timeout: 5 * time.Minute},
		baseURL: "https://graph.facebook.com",
	}
}

func (s *storyService) graphURL(pageID, edge string) string {
	return fmt.Sprintf("%s/%s/%s/%s", s.baseURL, s.cfg.GraphAPIVersion, pageID, edge)
}

func (s *storyService) UploadPhotoStory(ctx context.Context, filePath, pageID, accessToken string) (*int, map[string]any) {
	photoID, err := s.uploadUnpublishedPhoto(ctx, filePath, pageID, accessToken)
	if err != nil {
		slog.Info(err.Error())
		return failure("start_failed", err)
	}
	if photoID == "" {
		return failure("no_session", "photo upload returned no id")
	}

	form := url.Values{}
	form.Set("photo_id", photoID)
	form.Set("access_token", accessToken)
	return s.postForm(ctx, s.graphURL(pageID, "photo_stories"), form)
}

func (s *storyService) uploadUnpublishedPhoto(ctx context.Context, filePath, pageID, accessToken string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	w.WriteField("published", "false")
	w.WriteField("access_token", accessToken)
	part, err := w.CreateFormFile("source", filepath.Base(filePath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.graphURL(pageID, "photos"), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("photo upload status %d: %s", resp.StatusCode, respBody)
	}

	var photo transfer.StoryPhotoResponse
	if err := json.Unmarshal(respBody, &photo); err != nil {
		return "", fmt.Errorf("decode photo response: %w", err)
	}
	return photo.ID, nil
}

func (s *storyService) UploadVideoStory(ctx context.Context, filePath, pageID, accessToken string) (*int, map[string]any) {
	start, err := s.startHostedUpload(ctx, s.graphURL(pageID, "video_stories"), accessToken)
	if err != nil {
		slog.Info(err.Error())
		return failure("start_failed", err)
	}
	if start.VideoID == "" || start.UploadURL == "" {
		return failure("no_session", "video story start returned no session")
	}

	if err := s.uploadBinary(ctx, start.UploadURL, filePath, accessToken); err != nil {
		slog.Info(err.Error())
		return failure("transfer_failed", err)
	}

	form := url.Values{}
	form.Set("upload_phase", "finish")
	form.Set("video_id", start.VideoID)
	form.Set("access_token", accessToken)
	return s.postForm(ctx, s.graphURL(pageID, "video_stories"), form)
}

func (s *storyService) startHostedUpload(ctx context.Context, endpoint, accessToken string) (*transfer.StoryStartResponse, error) {
	form := url.Values{}
	form.Set("upload_phase", "start")
	form.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
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
		return nil, fmt.Errorf("hosted start status %d: %s", resp.StatusCode, respBody)
	}

	var start transfer.StoryStartResponse
	if err := json.Unmarshal(respBody, &start); err != nil {
		return nil, fmt.Errorf("decode start response: %w", err)
	}
	return &start, nil
}

// uploadBinary sends the whole file to the session's upload_url in one
// request, the way rupload expects: OAuth header auth plus offset and
// file_size headers.
func (s *storyService) uploadBinary(ctx context.Context, uploadURL, filePath, accessToken string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, f)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)
	req.Header.Set("offset", "0")
	req.Header.Set("file_size", strconv.FormatInt(info.Size(), 10))
	req.ContentLength = info.Size()

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
		return fmt.Errorf("binary upload status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

func (s *storyService) postForm(ctx context.Context, endpoint string, form url.Values) (*int, map[string]any) {
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
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
