package job

import (
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/maheshrc27/pageflow/internal/jobpool"
	"github.com/maheshrc27/pageflow/internal/queue"
)

// DispatchScanJob is the scheduler tick. Each pass asks the pool for jobs
// whose next run has arrived and hands them to the task queue. Due marks a
// job as pending dispatch, so a slow worker cannot cause the same job to be
// enqueued again on the next tick.
type DispatchScanJob struct {
	jp     *jobpool.Pool
	client *asynq.Client
}

func NewDispatchScanJob(jp *jobpool.Pool, client *asynq.Client) *DispatchScanJob {
	return &DispatchScanJob{
		jp:     jp,
		client: client,
	}
}

func (c *DispatchScanJob) Scan() {
	due := c.jp.Due(time.Now().Unix())
	for _, j := range due {
		payload := queue.UploadDispatchPayload{Kind: j.Kind, PageID: j.PageID}
		if err := queue.EnqueueUpload(c.client, payload, 0); err != nil {
			slog.Info(err.Error())
			j.EndDispatch()
		}
	}
}
