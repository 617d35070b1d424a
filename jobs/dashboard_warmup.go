package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/kitchenledger/kitchenledger/internal/dashboard"
	jobmetrics "github.com/kitchenledger/kitchenledger/internal/jobs"
)

// DashboardWarmer prebuilds the cached dashboard figures.
type DashboardWarmer interface {
	Warm(ctx context.Context) (dashboard.Stats, error)
}

// DashboardWarmupJob keeps today's dashboard figures hot in Redis.
type DashboardWarmupJob struct {
	Warmer  DashboardWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(warmer DashboardWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{Warmer: warmer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskDashboardWarmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Warmer == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	if _, err := decodeScheduled(t); err != nil {
		return err
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskDashboardWarmup)
	defer func() { err = tracker.End(err) }()

	logger := jobLogger(j.Logger, TaskDashboardWarmup)
	stats, err := j.Warmer.Warm(ctx)
	if err != nil {
		logger.Error("warm dashboard", slog.Any("error", err))
		return err
	}
	logger.Info("dashboard warmed",
		slog.Int64("orders", stats.OrdersCount),
		slog.String("pending", stats.PendingAmount.String()),
	)
	return nil
}
