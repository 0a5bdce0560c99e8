package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// UploadPurger deletes expired, unclaimed uploads.
type UploadPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// StartUploadCleaner periodically purges expired uploads until ctx is done.
func StartUploadCleaner(ctx context.Context, interval time.Duration, purger UploadPurger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := purger.PurgeExpired(ctx, now)
				if err != nil {
					Logger.Warn("upload cleaner failed", zap.Error(err))
					continue
				}
				if n > 0 {
					Logger.Info("upload cleaner purged files", zap.Int("count", n))
				}
			}
		}
	}()
}
