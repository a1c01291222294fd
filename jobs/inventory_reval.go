package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/cropledger/cropledger/internal/inventory"
	jobmetrics "github.com/cropledger/cropledger/internal/jobs"
)

// DefaultRevaluationTolerance is the largest value drift left untouched.
var DefaultRevaluationTolerance = decimal.New(1, -2)

// InventoryService is the part of inventory the revaluation job needs.
type InventoryService interface {
	RevaluePositions(ctx context.Context, tolerance decimal.Decimal) (inventory.RevaluationReport, error)
}

// InventoryRevaluationJob recomputes total value from stock and average cost.
type InventoryRevaluationJob struct {
	Inventory InventoryService
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewInventoryRevaluationJob initialises the revaluation handler.
func NewInventoryRevaluationJob(service InventoryService, logger *slog.Logger, metrics *jobmetrics.Metrics) *InventoryRevaluationJob {
	return &InventoryRevaluationJob{Inventory: service, Logger: logger, Metrics: metrics}
}

// Handle executes the revaluation for an Asynq task.
func (j *InventoryRevaluationJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("inventory revaluation: handler not configured")
	}
	var payload InventoryRevaluationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tolerance := DefaultRevaluationTolerance
	if payload.Tolerance != "" {
		parsed, err := decimal.NewFromString(payload.Tolerance)
		if err != nil || parsed.IsNegative() {
			return asynq.SkipRetry
		}
		tolerance = parsed
	}
	_, err := j.Run(ctx, tolerance)
	return err
}

// Run revalues every position.
func (j *InventoryRevaluationJob) Run(ctx context.Context, tolerance decimal.Decimal) (report inventory.RevaluationReport, err error) {
	start := time.Now()
	tracker := j.Metrics.Track(TaskInventoryRevaluation)
	defer func() {
		err = tracker.End(err)
	}()
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskInventoryRevaluation))

	report, err = j.Inventory.RevaluePositions(ctx, tolerance)
	j.Metrics.AddRepairs(TaskInventoryRevaluation, report.Repaired)
	if err != nil {
		logger.Error("revalue positions", slog.Any("error", err))
		return report, err
	}
	logger.Info("inventory revaluation completed",
		slog.Int("checked", report.Checked),
		slog.Int("repaired", report.Repaired),
		slog.Duration("duration", time.Since(start)))
	return report, nil
}
