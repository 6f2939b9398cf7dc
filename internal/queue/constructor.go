package queue

import (
	config "github.com/maheshrc27/pageflow/configs"
	"github.com/maheshrc27/pageflow/internal/jobpool"
	"github.com/maheshrc27/pageflow/internal/models"
	"github.com/maheshrc27/pageflow/internal/repository"
	"github.com/maheshrc27/pageflow/internal/service"
)

// Queue executes upload dispatch tasks. One task equals one upload attempt
// for one job; everything the attempt needs is injected here.
type Queue struct {
	cfg config.Config
	jp  *jobpool.Pool
	js  service.JobService
	up  service.UploadService
	st  service.StoryService
	re  service.ReelsService
	wm  service.WatermarkService
	fb  service.FacebookService
	hr  repository.UploadHistoryRepository
	rs  jobpool.NextRunResolver
}

func NewQueue(
	cfg config.Config,
	jp *jobpool.Pool,
	js service.JobService,
	up service.UploadService,
	st service.StoryService,
	re service.ReelsService,
	wm service.WatermarkService,
	fb service.FacebookService,
	hr repository.UploadHistoryRepository,
	rs jobpool.NextRunResolver) *Queue {
	return &Queue{
		cfg: cfg,
		jp:  jp,
		js:  js,
		up:  up,
		st:  st,
		re:  re,
		wm:  wm,
		fb:  fb,
		hr:  hr,
		rs:  rs,
	}
}

const TaskTypeUploadDispatch = "upload:dispatch"

type UploadDispatchPayload struct {
	Kind   models.JobKind `json:"kind"`
	PageID string         `json:"page_id"`
}
