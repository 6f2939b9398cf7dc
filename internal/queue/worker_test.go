package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/maheshrc27/pageflow/configs"
	"github.com/maheshrc27/pageflow/internal/jobpool"
	"github.com/maheshrc27/pageflow/internal/models"
	"github.com/maheshrc27/pageflow/internal/service"
)

type stubHistory struct {
	recs []*models.UploadRecord
}

func (s *stubHistory) Create(ctx context.Context, rec *models.UploadRecord) (int64, error) {
	s.recs = append(s.recs, rec)
	return int64(len(s.recs)), nil
}

func (s *stubHistory) ListRecent(ctx context.Context, limit int) ([]*models.UploadRecord, error) {
	return nil, nil
}

func (s *stubHistory) ListByPage(ctx context.Context, pageID string, limit int) ([]*models.UploadRecord, error) {
	return nil, nil
}

func (s *stubHistory) Stats(ctx context.Context, since time.Time) (*models.UploadStats, error) {
	return nil, nil
}

type stubResolver struct {
	ts int64
}

func (r *stubResolver) NextRun(job *jobpool.Job) (int64, string) { return r.ts, "interval" }

type stubJobService struct {
	service.JobService
	persisted int
}

func (s *stubJobService) Persist(ctx context.Context, job *jobpool.Job) error {
	s.persisted++
	return nil
}

func videoJob(pageID string) *jobpool.Job {
	return jobpool.New(&models.JobSnapshot{
		PageID:   pageID,
		PageName: "Page " + pageID,
		Folder:   "/media/" + pageID,
		Enabled:  true,
		Video:    &models.VideoSettings{},
	})
}

func TestSettleRateLimitBackoffWindow(t *testing.T) {
	hist := &stubHistory{}
	q := &Queue{hr: hist}
	job := videoJob("p1")

	status := 400
	body := map[string]any{
		"error": map[string]any{"code": float64(4), "message": "Application request limit reached"},
	}

	before := time.Now().Unix()
	rateLimited := q.settle(context.Background(), job, "/media/p1/clip.mp4", &status, body)
	after := time.Now().Unix()

	assert.True(t, rateLimited)
	assert.GreaterOrEqual(t, job.NextRun(), before+1800)
	assert.LessOrEqual(t, job.NextRun(), after+3600)

	require.Len(t, hist.recs, 1)
	assert.Equal(t, models.UploadStatusFailed, hist.recs[0].Status)
}

func TestSettleCancelledTagRecordedAsCancelled(t *testing.T) {
	hist := &stubHistory{}
	q := &Queue{hr: hist}
	job := videoJob("p1")

	body := map[string]any{"error": "cancelled", "detail": "upload cancelled at offset 8"}
	rateLimited := q.settle(context.Background(), job, "/media/p1/clip.mp4", nil, body)

	assert.False(t, rateLimited)
	require.Len(t, hist.recs, 1)
	assert.Equal(t, models.UploadStatusCancelled, hist.recs[0].Status)
	assert.Equal(t, "clip.mp4", hist.recs[0].FileName)
}

func TestSettleSuccessArchivesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	hist := &stubHistory{}
	q := &Queue{
		cfg: config.Config{AutoMoveUploaded: true, UploadedFolderName: models.UploadedFolderName},
		hr:  hist,
	}
	job := videoJob("p1")

	status := 200
	rateLimited := q.settle(context.Background(), job, file, &status, map[string]any{"id": "vid-9"})

	assert.False(t, rateLimited)
	require.Len(t, hist.recs, 1)
	assert.Equal(t, models.UploadStatusSuccess, hist.recs[0].Status)
	assert.Equal(t, "vid-9", hist.recs[0].VideoID)

	assert.NoFileExists(t, file)
	assert.FileExists(t, filepath.Join(dir, models.UploadedFolderName, "clip.mp4"))
}

func TestHandleUploadTaskClearsDispatchAndReschedules(t *testing.T) {
	pool := jobpool.NewPool()
	job := videoJob("p1")
	job.SetScheduled(true)
	require.True(t, job.BeginDispatch())
	pool.Add(job)

	js := &stubJobService{}
	rs := &stubResolver{ts: time.Now().Unix() + 4242}
	q := &Queue{jp: pool, js: js, hr: &stubHistory{}, rs: rs}

	payload, err := json.Marshal(UploadDispatchPayload{Kind: models.JobKindVideo, PageID: "p1"})
	require.NoError(t, err)

	// The source folder does not exist, so the attempt ends without an
	// upload; the handler must still reschedule, persist and clear the
	// pending-dispatch mark.
	err = q.HandleUploadTask(context.Background(), asynq.NewTask(TaskTypeUploadDispatch, payload))
	require.NoError(t, err)

	assert.Equal(t, rs.ts, job.NextRun())
	assert.Equal(t, 1, js.persisted)
	assert.True(t, job.BeginDispatch())
	job.EndDispatch()
}

func TestHandleUploadTaskSkipsUnknownAndUnscheduled(t *testing.T) {
	pool := jobpool.NewPool()
	job := videoJob("p1")
	pool.Add(job)

	js := &stubJobService{}
	q := &Queue{jp: pool, js: js, hr: &stubHistory{}, rs: &stubResolver{}}

	unknown, err := json.Marshal(UploadDispatchPayload{Kind: models.JobKindVideo, PageID: "ghost"})
	require.NoError(t, err)
	require.NoError(t, q.HandleUploadTask(context.Background(), asynq.NewTask(TaskTypeUploadDispatch, unknown)))

	// Present but not scheduled: dropped before any attempt.
	before := job.NextRun()
	payload, err := json.Marshal(UploadDispatchPayload{Kind: models.JobKindVideo, PageID: "p1"})
	require.NoError(t, err)
	require.NoError(t, q.HandleUploadTask(context.Background(), asynq.NewTask(TaskTypeUploadDispatch, payload)))

	assert.Equal(t, before, job.NextRun())
	assert.Zero(t, js.persisted)
}
