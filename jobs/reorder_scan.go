package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/freshmart/freshmart-pos/internal/jobs"
)

// ReorderScanner raises alerts for low products without one.
type ReorderScanner interface {
	ScanReorder(ctx context.Context) (int, error)
}

// ReorderScanJob runs the periodic reorder scan.
type ReorderScanJob struct {
	Scanner ReorderScanner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskReorderScan tasks.
func (j *ReorderScanJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	tracker := j.Metrics.Track(TaskReorderScan)
	defer func() { err = tracker.End(err) }()

	n, err := j.Scanner.ScanReorder(ctx)
	if err != nil {
		jobLogger(j.Logger, TaskReorderScan).Error("reorder scan", slog.Any("error", err))
		return err
	}
	j.Metrics.AddItems(TaskReorderScan, n)
	jobLogger(j.Logger, TaskReorderScan).Info("reorder scan complete", slog.Int("alerts", n))
	return nil
}
