package jobs

import (
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"leadtrace/internal/clicks"
	"leadtrace/internal/config"
)

// CleanupJob prunes raw click rows older than the retention window.
type CleanupJob struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewCleanupJob(dbManager cartridge.DBManager, logger *slog.Logger, cfg *config.Config) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run removes clicks past the retention period. A retention of zero keeps
// everything, which is the default since lead click counts are lifetime
// aggregates.
func (j *CleanupJob) Run() error {
	retentionDays := j.cfg.ClickRetentionDays
	if retentionDays <= 0 {
		j.logger.Debug("Click retention disabled, skipping cleanup")
		return nil
	}

	db := j.dbManager.GetConnection()
	cutoffDate := time.Now().UTC().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting cleanup of old clicks",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	var countToDelete int64
	if err := db.Model(&clicks.Click{}).
		Where("clicked_at < ?", cutoffDate).
		Count(&countToDelete).Error; err != nil {
		j.logger.Error("Failed to count old clicks", slog.Any("error", err))
		return err
	}

	if countToDelete == 0 {
		j.logger.Debug("No old clicks to clean up")
		return nil
	}

	// Delete in batches to avoid locking the database for too long
	batchSize := 1000
	totalDeleted := int64(0)

	for {
		result := db.Where("clicked_at < ?", cutoffDate).
			Limit(batchSize).
			Delete(&clicks.Click{})
		if result.Error != nil {
			j.logger.Error("Failed to delete old clicks", slog.Any("error", result.Error))
			return result.Error
		}

		totalDeleted += result.RowsAffected
		if result.RowsAffected < int64(batchSize) {
			break
		}
	}

	j.logger.Info("Click cleanup completed",
		slog.Int64("deleted", totalDeleted))
	return nil
}
