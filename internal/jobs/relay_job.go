package jobs

import (
	"context"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"leadtrace/internal/config"
	"leadtrace/internal/relay"
)

// RelayJob runs the hot-lead selector on the scheduler's interval.
type RelayJob struct {
	selector *relay.Selector
	logger   *slog.Logger
	cfg      *config.Config
}

func NewRelayJob(dbManager cartridge.DBManager, logger *slog.Logger, cfg *config.Config) *RelayJob {
	sender := relay.NewWebhookSender(cfg)
	return &RelayJob{
		selector: relay.NewSelector(dbManager, logger, sender, cfg),
		logger:   logger,
		cfg:      cfg,
	}
}

// Run performs one relay pass. With no webhook configured the job is a
// no-op so clicks still accumulate until a destination exists.
func (j *RelayJob) Run() error {
	if j.cfg.RelayWebhookURL == "" {
		j.logger.Debug("Relay webhook not configured, skipping hot-lead relay")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	_, err := j.selector.Run(ctx, relay.Options{})
	return err
}
