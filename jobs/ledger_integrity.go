package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/cropledger/cropledger/internal/jobs"
	"github.com/cropledger/cropledger/internal/ledger"
)

// LedgerService is the part of the ledger the integrity job needs.
type LedgerService interface {
	PartyIDs(ctx context.Context) ([]int64, error)
	RecomputeBalances(ctx context.Context, partyID int64) (ledger.RecomputeReport, error)
}

// LedgerIntegrityJob rebuilds every party's snapshots from its entries and
// repairs the mirrored balance.
type LedgerIntegrityJob struct {
	Ledger      LedgerService
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Concurrency int
}

// NewLedgerIntegrityJob initialises the integrity handler.
func NewLedgerIntegrityJob(service LedgerService, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Ledger: service, Logger: logger, Metrics: metrics, Concurrency: 4}
}

// IntegritySummary reports one run.
type IntegritySummary struct {
	Parties  int
	Repaired int
}

// Handle executes the integrity check for an Asynq task.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	_, err := j.Run(ctx, payload.PartyID)
	return err
}

// Run checks one party, or every party when partyID is zero.
func (j *LedgerIntegrityJob) Run(ctx context.Context, partyID int64) (summary IntegritySummary, err error) {
	start := time.Now()
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() {
		err = tracker.End(err)
	}()
	logger := j.logger().With(slog.String("job", TaskLedgerIntegrity))

	ids := []int64{partyID}
	if partyID == 0 {
		ids, err = j.Ledger.PartyIDs(ctx)
		if err != nil {
			logger.Error("list parties", slog.Any("error", err))
			return summary, err
		}
	}

	var repaired atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(j.Concurrency, 1))
	for _, id := range ids {
		g.Go(func() error {
			report, err := j.Ledger.RecomputeBalances(gctx, id)
			if err != nil {
				logger.Error("recompute party", slog.Int64("party_id", id), slog.Any("error", err))
				return err
			}
			if report.Repaired() {
				repaired.Add(1)
				logger.Warn("ledger drift repaired",
					slog.Int64("party_id", id),
					slog.Int("restated", report.Restated),
					slog.String("previous_balance", report.PreviousBalance.String()),
					slog.String("balance", report.Balance.String()),
					slog.String("drift", report.Drift().String()))
			}
			return nil
		})
	}
	err = g.Wait()
	summary = IntegritySummary{Parties: len(ids), Repaired: int(repaired.Load())}
	j.Metrics.AddRepairs(TaskLedgerIntegrity, summary.Repaired)
	logger.Info("ledger integrity check completed",
		slog.Int("parties", summary.Parties),
		slog.Int("repaired", summary.Repaired),
		slog.Duration("duration", time.Since(start)))
	return summary, err
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
