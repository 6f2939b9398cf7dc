package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/pageflow/internal/jobpool"
	"github.com/maheshrc27/pageflow/internal/models"
	"github.com/maheshrc27/pageflow/internal/repository"
	"github.com/maheshrc27/pageflow/internal/transfer"
)

var ErrJobNotFound = errors.New("job not found")

// JobService owns the lifecycle of page jobs: creation, scheduling state,
// cancellation and persistence. Every mutation lands in both the in-memory
// pool, which the dispatcher reads, and the job store, which survives
// restarts.
type JobService interface {
	Create(ctx context.Context, req *transfer.CreateJobRequest) (*jobpool.Job, error)
	Delete(ctx context.Context, kind models.JobKind, pageID string) error
	Get(kind models.JobKind, pageID string) (*jobpool.Job, error)
	List() []*jobpool.Job
	Status(kind models.JobKind, pageID string) (*transfer.JobStatusResponse, error)

	SetEnabled(ctx context.Context, kind models.JobKind, pageID string, enabled bool) error
	StartSchedule(ctx context.Context, kind models.JobKind, pageID string) error
	StopSchedule(ctx context.Context, kind models.JobKind, pageID string) error
	CancelUpload(kind models.JobKind, pageID string) error
	RunNow(ctx context.Context, kind models.JobKind, pageID string) error

	Persist(ctx context.Context, job *jobpool.Job) error
	RestorePool(ctx context.Context) error
}

type jobService struct {
	pool     *jobpool.Pool
	store    repository.JobRepository
	resolver jobpool.NextRunResolver
}

func NewJobService(pool *jobpool.Pool, store repository.JobRepository, resolver jobpool.NextRunResolver) JobService {
	return &jobService{pool: pool, store: store, resolver: resolver}
}

func (s *jobService) Create(ctx context.Context, req *transfer.CreateJobRequest) (*jobpool.Job, error) {
	if req.PageID == "" {
		return nil, errors.New("page_id is required")
	}
	if req.Folder == "" {
		return nil, errors.New("folder is required")
	}

	snap := &models.JobSnapshot{
		PageID:           req.PageID,
		PageName:         req.PageName,
		AppName:          req.AppName,
		Folder:           req.Folder,
		IntervalSeconds:  req.IntervalSeconds,
		PageAccessToken:  req.PageAccessToken,
		SortBy:           req.SortBy,
		Enabled:          true,
		UseSmartSchedule: req.UseSmartSchedule,
		TemplateID:       req.TemplateID,
		Video:            req.Video,
		Story:            req.Story,
		Reels:            req.Reels,
	}
	applyVariant(snap, req.Kind)
	if snap.SortBy == "" {
		snap.SortBy = models.SortByName
	}

	job := jobpool.New(snap)
	if existing := s.pool.Get(job.Kind, job.PageID); existing != nil {
		return nil, fmt.Errorf("job for page %s (%s) already exists", job.PageID, job.Kind)
	}

	s.pool.Add(job)
	if err := s.Persist(ctx, job); err != nil {
		s.pool.Remove(job.Kind, job.PageID)
		return nil, err
	}
	slog.Info("job created", "kind", job.Kind, "page", job.PageID, "folder", job.Folder)
	return job, nil
}

// applyVariant makes sure the snapshot carries the payload matching the
// requested kind, so a bare request still decodes to the right variant.
func applyVariant(snap *models.JobSnapshot, kind string) {
	switch models.JobKind(kind) {
	case models.JobKindStory:
		if snap.Story == nil {
			snap.Story = &models.StorySettings{StoriesPerSchedule: 1}
		}
		snap.Reels = nil
	case models.JobKindReels:
		if snap.Reels == nil {
			snap.Reels = &models.ReelsSettings{MaxDurationSeconds: 90}
		}
		snap.Story = nil
	default:
		if snap.Video == nil {
			snap.Video = &models.VideoSettings{
				TitleTemplate: "{filename}",
				ChunkSize:     models.ChunkSizeDefault,
				JitterPercent: 10,
			}
		}
		snap.Story = nil
		snap.Reels = nil
	}
}

func (s *jobService) Delete(ctx context.Context, kind models.JobKind, pageID string) error {
	job := s.pool.Get(kind, pageID)
	if job == nil {
		return ErrJobNotFound
	}

	// An in-flight upload sees the flag on its next chunk boundary.
	job.SetScheduled(false)
	job.RequestCancel()
	s.pool.Remove(kind, pageID)

	if err := s.store.Delete(ctx, kind, pageID); err != nil {
		return err
	}
	slog.Info("job deleted", "kind", kind, "page", pageID)
	return nil
}

func (s *jobService) Get(kind models.JobKind, pageID string) (*jobpool.Job, error) {
	job := s.pool.Get(kind, pageID)
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (s *jobService) List() []*jobpool.Job {
	return s.pool.List()
}

func (s *jobService) Status(kind models.JobKind, pageID string) (*transfer.JobStatusResponse, error) {
	job := s.pool.Get(kind, pageID)
	if job == nil {
		return nil, ErrJobNotFound
	}

	uploading := false
	if job.TryLockUpload() {
		job.UnlockUpload()
	} else {
		uploading = true
	}

	return &transfer.JobStatusResponse{
		Kind:             string(job.Kind),
		PageID:           job.PageID,
		PageName:         job.PageName,
		Folder:           job.Folder,
		Enabled:          job.Enabled(),
		IsScheduled:      job.IsScheduled(),
		CancelRequested:  job.CancelRequested(),
		Uploading:        uploading,
		NextRunTimestamp: job.NextRun(),
		IntervalSeconds:  job.IntervalSeconds,
		UseSmartSchedule: job.UseSmartSchedule,
		TemplateID:       job.TemplateID,
	}, nil
}

func (s *jobService) SetEnabled(ctx context.Context, kind models.JobKind, pageID string, enabled bool) error {
	job := s.pool.Get(kind, pageID)
	if job == nil {
		return ErrJobNotFound
	}
	job.SetEnabled(enabled)
	if !enabled {
		job.SetScheduled(false)
	}
	return s.Persist(ctx, job)
}

// StartSchedule arms the job. A next-run left in the past is recomputed so
// the first dispatch does not fire a backlog immediately.
func (s *jobService) StartSchedule(ctx context.Context, kind models.JobKind, pageID string) error {
	job := s.pool.Get(kind, pageID)
	if job == nil {
		return ErrJobNotFound
	}
	if !job.Enabled() {
		return errors.New("job is disabled")
	}

	if job.NextRun() <= time.Now().Unix() {
		job.ResetNextRun(s.resolver)
	}
	job.SetScheduled(true)
	return s.Persist(ctx, job)
}

// StopSchedule disarms the job and asks any running upload to stop at its
// next chunk boundary.
func (s *jobService) StopSchedule(ctx context.Context, kind models.JobKind, pageID string) error {
	job := s.pool.Get(kind, pageID)
	if job == nil {
		return ErrJobNotFound
	}
	job.SetScheduled(false)
	job.RequestCancel()
	return s.Persist(ctx, job)
}

func (s *jobService) CancelUpload(kind models.JobKind, pageID string) error {
	job := s.pool.Get(kind, pageID)
	if job == nil {
		return ErrJobNotFound
	}
	job.RequestCancel()
	return nil
}

// RunNow pulls the next run to the present; the scan tick picks it up
// within one interval.
func (s *jobService) RunNow(ctx context.Context, kind models.JobKind, pageID string) error {
	job := s.pool.Get(kind, pageID)
	if job == nil {
		return ErrJobNotFound
	}
	if !job.Enabled() {
		return errors.New("job is disabled")
	}
	job.SetNextRun(time.Now().Unix())
	job.SetScheduled(true)
	return s.Persist(ctx, job)
}

func (s *jobService) Persist(ctx context.Context, job *jobpool.Job) error {
	return s.store.Save(ctx, job.Snapshot())
}

// RestorePool loads every stored snapshot into the pool at startup.
// Scheduled jobs whose next run passed while the process was down get a
// fresh slot instead of an immediate burst.
func (s *jobService) RestorePool(ctx context.Context) error {
	snaps, err := s.store.List(ctx)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, snap := range snaps {
		// Rows from before the variant payloads existed carry none at all.
		applyVariant(snap, string(snap.Kind()))
		job := jobpool.New(snap)
		if job.IsScheduled() && job.NextRun() <= now {
			job.ResetNextRun(s.resolver)
		}
		s.pool.Add(job)
	}
	slog.Info("jobs restored", "count", len(snaps))
	return nil
}
