package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueMail carries customer e-mail so a slow SMTP relay never delays scans.
	QueueMail = "mail"

	// TaskReceiptMail e-mails a receipt after checkout.
	TaskReceiptMail = "mail:receipt"
	// TaskReorderScan raises missing reorder alerts.
	TaskReorderScan = "inventory:reorder_scan"
	// TaskReportsWarmup pre-builds cached reports.
	TaskReportsWarmup = "reports:warmup"
)

// ReceiptMailPayload identifies the receipt to send.
type ReceiptMailPayload struct {
	TransactionID int64  `json:"transaction_id"`
	Email         string `json:"email"`
}

// ReorderScanPayload carries scheduling metadata.
type ReorderScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// ReportsWarmupPayload carries the reason for a warmup.
type ReportsWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewReceiptMailTask constructs an Asynq task for a receipt e-mail.
func NewReceiptMailTask(payload ReceiptMailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReceiptMail, data, asynq.Queue(QueueMail), asynq.MaxRetry(5)), nil
}

// NewReorderScanTask constructs an Asynq task for the reorder scan.
func NewReorderScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ReorderScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReorderScan, body, asynq.Queue(QueueDefault)), nil
}

// NewReportsWarmupTask constructs an Asynq task for cache warmup.
func NewReportsWarmupTask(reason string) (*asynq.Task, error) {
	body, err := json.Marshal(ReportsWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, body, asynq.Queue(QueueDefault)), nil
}
