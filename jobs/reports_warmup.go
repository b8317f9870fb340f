package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/freshmart/freshmart-pos/internal/jobs"
)

// ReportWarmer pre-builds cached reports.
type ReportWarmer interface {
	Warmup(ctx context.Context) error
}

// ReportsWarmupJob fills the report cache.
type ReportsWarmupJob struct {
	Reports ReportWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// Handle processes TaskReportsWarmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var payload ReportsWarmupPayload
	_ = json.Unmarshal(t.Payload(), &payload)
	tracker := j.Metrics.Track(TaskReportsWarmup)
	defer func() { err = tracker.End(err) }()

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	logger := jobLogger(j.Logger, TaskReportsWarmup).With(slog.String("reason", payload.Reason))
	if err := j.Reports.Warmup(ctx); err != nil {
		logger.Error("reports warmup", slog.Any("error", err))
		return err
	}
	logger.Info("reports warmed", slog.Duration("duration", time.Since(start)))
	return nil
}
