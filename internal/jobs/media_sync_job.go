package job

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/pageflow/internal/jobpool"
	"github.com/maheshrc27/pageflow/internal/service"
)

// MediaSyncJob pulls remotely dropped media into each job's source folder.
// Objects live under incoming/<page_id>/ in the bucket.
type MediaSyncJob struct {
	jp *jobpool.Pool
	ms service.MediaSyncService
}

func NewMediaSyncJob(jp *jobpool.Pool, ms service.MediaSyncService) *MediaSyncJob {
	return &MediaSyncJob{
		jp: jp,
		ms: ms,
	}
}

func (c *MediaSyncJob) Sync() {
	ctx := context.Background()

	seen := make(map[string]bool)
	for _, j := range c.jp.List() {
		if seen[j.Folder] {
			continue
		}
		seen[j.Folder] = true

		n, err := c.ms.SyncFolder(ctx, "incoming/"+j.PageID+"/", j.Folder)
		if err != nil {
			slog.Info(err.Error())
			continue
		}
		if n > 0 {
			slog.Info("media synced", "page", j.PageID, "files", n)
		}
	}
}
