package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job drives the backup service on a robfig/cron schedule, the same cadence
// mechanism internal/ingest/binance uses for REST polling.
type Job struct {
	service         *Service
	intervalSeconds float64
	retentionDays   int
	log             zerolog.Logger
}

// NewJob builds a Job that snapshots every intervalSeconds and prunes backups older
// than retentionDays (0 disables pruning) after each successful snapshot.
func NewJob(service *Service, intervalSeconds float64, retentionDays int, log zerolog.Logger) *Job {
	return &Job{
		service:         service,
		intervalSeconds: intervalSeconds,
		retentionDays:   retentionDays,
		log:             log.With().Str("component", "backup_job").Logger(),
	}
}

// Run blocks, snapshotting on the configured cadence until ctx is cancelled.
func (j *Job) Run(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", time.Duration(j.intervalSeconds*float64(time.Second)))
	c := cron.New()

	if _, err := c.AddFunc(spec, func() { j.runOnce(ctx) }); err != nil {
		return fmt.Errorf("reliability: backup cron schedule %q: %w", spec, err)
	}
	c.Start()
	defer c.Stop()

	<-ctx.Done()
	return nil
}

func (j *Job) runOnce(ctx context.Context) {
	key, err := j.service.CreateAndUpload(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("backup failed")
		return
	}
	if err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Error().Err(err).Msg("backup rotation failed")
	}
	j.log.Info().Str("key", key).Msg("scheduled backup completed")
}
