package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartAttemptCleaner deletes login attempts older than retention every interval
// until ctx is cancelled.
func StartAttemptCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, `
                    DELETE FROM login_attempts
                     WHERE created_at < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to clean login attempts", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned login attempts", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
