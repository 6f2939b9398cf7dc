package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/maheshrc27/pageflow/internal/jobpool"
	"github.com/maheshrc27/pageflow/internal/models"
	"github.com/maheshrc27/pageflow/internal/service"
)

// HandleUploadTask runs one upload attempt for one job. The upload lock
// makes attempts per job strictly sequential even if the scan tick and a
// manual run-now both enqueued; losing the TryLock means another attempt is
// already in flight and this one simply drops.
func (q *Queue) HandleUploadTask(ctx context.Context, task *asynq.Task) error {
	var payload UploadDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	job := q.jp.Get(payload.Kind, payload.PageID)
	if job == nil {
		return nil
	}
	defer job.EndDispatch()

	if !job.Enabled() || !job.IsScheduled() {
		return nil
	}
	if !job.TryLockUpload() {
		slog.Info("upload already in flight, dropping dispatch", "kind", job.Kind, "page", job.PageID)
		return nil
	}
	defer job.UnlockUpload()

	rateLimited := q.runAttempt(ctx, job)

	// The next run is computed after the attempt concludes so a slow
	// transfer cannot eat into the following interval. Rate-limited attempts
	// already set their own backoff slot.
	if !rateLimited {
		job.ResetNextRun(q.rs)
	}
	if err := q.js.Persist(ctx, job); err != nil {
		slog.Info(err.Error())
	}
	return nil
}

// runAttempt picks the next file, uploads it and records the outcome.
// It reports whether the attempt hit the platform rate limit.
func (q *Queue) runAttempt(ctx context.Context, job *jobpool.Job) bool {
	files, err := q.candidateFiles(job)
	if err != nil {
		slog.Warn("source folder unreadable", "kind", job.Kind, "page", job.PageID, "error", err.Error())
		return false
	}
	if len(files) == 0 {
		slog.Info("no files to upload", "kind", job.Kind, "page", job.PageID, "folder", job.Folder)
		return false
	}

	token, err := q.resolveToken(ctx, job)
	if err != nil {
		slog.Warn("no usable page token", "kind", job.Kind, "page", job.PageID, "error", err.Error())
		q.record(ctx, job, "", models.UploadStatusFailed, "no usable page token: "+err.Error(), "")
		return false
	}

	switch job.Kind {
	case models.JobKindStory:
		return q.uploadStories(ctx, job, files, token)
	case models.JobKindReels:
		file := q.nextFile(job, files)
		return q.uploadReel(ctx, job, file, token)
	default:
		file := q.nextFile(job, files)
		return q.uploadVideo(ctx, job, file, token)
	}
}

func (q *Queue) candidateFiles(job *jobpool.Job) ([]string, error) {
	exts := models.VideoExtensions
	if job.Kind == models.JobKindStory {
		exts = append(append([]string{}, models.VideoExtensions...), models.ImageExtensions...)
	}
	files, err := service.ScanMediaFolder(job.Folder, exts)
	if err != nil {
		return nil, err
	}
	return service.SortMediaFiles(files, job.SortBy, nil), nil
}

// nextFile advances the round-robin index whether or not the upload later
// succeeds.
func (q *Queue) nextFile(job *jobpool.Job, files []string) string {
	return files[job.AdvanceIndex(len(files))]
}

func (q *Queue) resolveToken(ctx context.Context, job *jobpool.Job) (string, error) {
	if job.PageAccessToken != "" {
		return job.PageAccessToken, nil
	}
	if job.AppName == "" {
		return "", fmt.Errorf("job has no token and no app to resolve one from")
	}
	return q.fb.PageToken(ctx, job.AppName, job.PageID)
}

func (q *Queue) uploadVideo(ctx context.Context, job *jobpool.Job, file, token string) bool {
	title := service.RenderTitle(job.Video.TitleTemplate, file)
	if job.Video.UseFilenameAsTitle {
		title = service.RenderTitle("{filename}", file)
	}
	description := service.RenderTitle(job.Video.DescriptionTemplate, file)

	uploadPath, cleanup := q.wm.Apply(ctx, file, &job.Video.Watermark)
	defer cleanup()

	status, body := q.up.UploadVideo(ctx, uploadPath, job.PageID, token, service.UploadOptions{
		Title:       title,
		Description: description,
		ChunkSize:   job.Video.ChunkSize,
		Cancel:      job,
		Progress: func(uploaded, total int64, percent, rate float64, eta int64) {
			slog.Debug("upload progress", "page", job.PageID,
				"percent", fmt.Sprintf("%.1f", percent),
				"mbps", fmt.Sprintf("%.2f", rate), "eta_s", eta)
		},
	})

	return q.settle(ctx, job, file, status, body)
}

// uploadStories pushes a small batch per schedule slot, pausing a random
// few seconds between items so the stories do not land as one burst.
func (q *Queue) uploadStories(ctx context.Context, job *jobpool.Job, files []string, token string) bool {
	count := job.Story.StoriesPerSchedule
	if count <= 0 {
		count = 1
	}
	if count > len(files) {
		count = len(files)
	}

	for i := 0; i < count; i++ {
		if i > 0 {
			q.batchPause(job)
		}
		if job.CheckAndResetCancel() {
			q.record(ctx, job, "", models.UploadStatusCancelled, "story batch cancelled", "")
			return false
		}

		file := q.nextFile(job, files)
		var status *int
		var body map[string]any
		switch {
		case service.IsImageFile(file):
			status, body = q.st.UploadPhotoStory(ctx, file, job.PageID, token)
		case service.IsVideoFile(file):
			status, body = q.st.UploadVideoStory(ctx, file, job.PageID, token)
		default:
			q.record(ctx, job, file, models.UploadStatusFailed, "unrecognized media type", "")
			continue
		}
		if rateLimited := q.settle(ctx, job, file, status, body); rateLimited {
			return true
		}
	}
	return false
}

func (q *Queue) batchPause(job *jobpool.Job) {
	min, max := job.Story.MinBatchDelay, job.Story.MaxBatchDelay
	if min <= 0 {
		min = 5
	}
	if max <= min {
		max = min + 10
	}
	time.Sleep(time.Duration(min+rand.Intn(max-min+1)) * time.Second)
}

func (q *Queue) uploadReel(ctx context.Context, job *jobpool.Job, file, token string) bool {
	if job.CheckAndResetCancel() {
		q.record(ctx, job, file, models.UploadStatusCancelled, "upload cancelled", "")
		return false
	}

	description := service.RenderTitle(job.Reels.DescriptionTemplate, file)
	status, body := q.re.UploadReel(ctx, file, job.PageID, token, description)
	return q.settle(ctx, job, file, status, body)
}

// settle classifies an upload result, writes history and archives the file
// on success. It reports whether the failure was a rate limit, in which
// case the job gets a thirty-to-sixty-minute backoff slot.
func (q *Queue) settle(ctx context.Context, job *jobpool.Job, file string, status *int, body map[string]any) bool {
	if service.IsUploadSuccessful(status, body) {
		videoID, _ := body["id"].(string)
		q.record(ctx, job, file, models.UploadStatusSuccess, "", videoID)
		slog.Info("upload succeeded", "kind", job.Kind, "page", job.PageID, "file", filepath.Base(file), "video_id", videoID)

		if q.cfg.AutoMoveUploaded {
			if _, err := service.MoveToUploaded(file, q.cfg.UploadedFolderName); err != nil {
				slog.Warn("could not archive uploaded file", "file", file, "error", err.Error())
			}
		}
		return false
	}

	detail := describeFailure(status, body)
	if tag, _ := body["error"].(string); tag == "cancelled" {
		q.record(ctx, job, file, models.UploadStatusCancelled, detail, "")
		slog.Info("upload cancelled", "kind", job.Kind, "page", job.PageID, "file", filepath.Base(file))
		return false
	}

	q.record(ctx, job, file, models.UploadStatusFailed, detail, "")
	slog.Warn("upload failed", "kind", job.Kind, "page", job.PageID, "file", filepath.Base(file), "detail", detail)

	if service.IsRateLimitError(body) {
		backoff := 1800 + rand.Intn(1801)
		job.SetNextRun(time.Now().Unix() + int64(backoff))
		slog.Warn("rate limited, backing off", "kind", job.Kind, "page", job.PageID, "backoff_s", backoff)
		return true
	}
	return false
}

func describeFailure(status *int, body map[string]any) string {
	code := "none"
	if status != nil {
		code = fmt.Sprintf("%d", *status)
	}
	detail, err := json.Marshal(body)
	if err != nil {
		return "status " + code
	}
	return fmt.Sprintf("status %s: %s", code, detail)
}

func (q *Queue) record(ctx context.Context, job *jobpool.Job, file, status, errMsg, videoID string) {
	rec := &models.UploadRecord{
		PageID:       job.PageID,
		PageName:     job.PageName,
		FilePath:     file,
		FileName:     filepath.Base(file),
		ContentKind:  string(job.Kind),
		VideoID:      videoID,
		Status:       status,
		ErrorMessage: errMsg,
	}
	if file == "" {
		rec.FileName = ""
	}
	if _, err := q.hr.Create(ctx, rec); err != nil {
		slog.Info(err.Error())
	}
}
