package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/pageflow/internal/models"
	"github.com/maheshrc27/pageflow/internal/repository"
	"github.com/maheshrc27/pageflow/internal/service"
)

// TokenRefreshJob re-exchanges long-lived user tokens before they expire.
// Long-lived Graph tokens last about sixty days; anything inside the
// seven-day window gets refreshed on the next pass.
type TokenRefreshJob struct {
	tr repository.AppTokenRepository
	fb service.FacebookService
}

func NewTokenRefreshJob(
	tr repository.AppTokenRepository,
	fb service.FacebookService) *TokenRefreshJob {
	return &TokenRefreshJob{
		tr: tr,
		fb: fb,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	cutoff := time.Now().Add(7 * 24 * time.Hour)
	tokens, err := c.tr.ListExpiringBefore(ctx, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, t := range tokens {

		wg.Add(1)
		semaphore <- struct{}{}

		go func(t *models.AppToken) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.fb.RefreshToken(ctx, t.AppName); err != nil {
				slog.Info("Unable to refresh token", "app", t.AppName, "error", err.Error())
			}
		}(t)
	}

	wg.Wait()
}
