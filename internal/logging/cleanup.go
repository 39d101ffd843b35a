package logging

import (
	"log/slog"
	"time"

	"github.com/robwestplumbing/sitecms/internal/models"
	"gorm.io/gorm"
)

const (
	LogRetention      = 30 * 24 * time.Hour
	RevisionRetention = 365 * 24 * time.Hour
)

// StartCleanup deletes expired system_logs and content_revisions once a day
// until done is closed.
func StartCleanup(db *gorm.DB, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().Add(-LogRetention)
				purge("system_logs", db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{}))
				purge("content_revisions", db.Where("created_at < ?", time.Now().Add(-RevisionRetention)).Delete(&models.ContentRevision{}))
			case <-done:
				return
			}
		}
	}()
}

func purge(table string, result *gorm.DB) {
	if result.Error != nil {
		slog.Error("log cleanup failed", "error", result.Error, "table", table)
	} else if result.RowsAffected > 0 {
		slog.Info("log cleanup completed", "deleted", result.RowsAffected, "table", table)
	}
}
