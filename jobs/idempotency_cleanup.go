package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/cropledger/cropledger/internal/jobs"
)

// TaskIdempotencyCleanup prunes expired idempotency keys.
const TaskIdempotencyCleanup = "idempotency:cleanup"

// DefaultIdempotencyRetention keeps keys long enough to cover client retries.
const DefaultIdempotencyRetention = 30 * 24 * time.Hour

// IdempotencyCleanupPayload contains options for the cleanup job.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours,omitempty"`
}

// NewIdempotencyCleanupTask builds a new cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

// IdempotencyStore is the key store the cleanup job prunes.
type IdempotencyStore interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob deletes keys older than the retention window.
type IdempotencyCleanupJob struct {
	Store   IdempotencyStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob initialises the cleanup handler.
func NewIdempotencyCleanupJob(store IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle performs the cleanup for an Asynq task.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.RetentionHours < 0 {
		return asynq.SkipRetry
	}
	retention := DefaultIdempotencyRetention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}
	_, err := j.Run(ctx, retention)
	return err
}

// Run deletes expired keys and returns how many were removed.
func (j *IdempotencyCleanupJob) Run(ctx context.Context, retention time.Duration) (removed int64, err error) {
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		err = tracker.End(err)
	}()
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	removed, err = j.Store.Cleanup(ctx, retention)
	if err != nil {
		logger.Error("idempotency cleanup", slog.Any("error", err))
		return 0, err
	}
	logger.Info("idempotency cleanup completed",
		slog.String("job", TaskIdempotencyCleanup),
		slog.Int64("removed", removed),
		slog.Duration("retention", retention))
	return removed, nil
}
