package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/freshmart/freshmart-pos/internal/jobs"
	"github.com/freshmart/freshmart-pos/internal/money"
	"github.com/freshmart/freshmart-pos/internal/sales"
	"github.com/freshmart/freshmart-pos/internal/shared"
)

// ReceiptSource loads a receipt by transaction.
type ReceiptSource interface {
	Receipt(ctx context.Context, txID int64) (sales.Receipt, error)
}

// Mailer delivers a plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through an unauthenticated relay such as Mailpit.
type SMTPMailer struct {
	Addr string
	From string
}

// Send implements Mailer.
func (m SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	if m.Addr == "" {
		return errors.New("smtp: address not configured")
	}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, msg.Bytes())
}

var receiptText = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": money.Any,
}).Parse(`Thank you for shopping at FreshMart{{with .Header.CustomerName}}, {{.}}{{end}}!

Order #{{.Header.TransactionID}}  {{.Header.TransactionDate.Format "Jan 02, 2006 15:04"}}
Payment: {{.Header.PaymentMethod}}

{{range .Items}}{{printf "%-28s" .ProductName}} {{printf "%3d" .Quantity}} x {{money .Price}}  {{money .Subtotal}}{{if .Discount.IsPositive}}  (saved {{money .Discount}}){{end}}
{{end}}
Items: {{.Totals.TotalItems}}  Units: {{.Totals.TotalUnits}}
You saved: {{money .Totals.TotalDiscount}}
Total: {{money .Totals.SubtotalSum}}
`))

// RenderReceiptText renders the plain-text receipt body.
func RenderReceiptText(r sales.Receipt) (string, error) {
	var buf bytes.Buffer
	if err := receiptText.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ReceiptMailJob e-mails receipts to customers.
type ReceiptMailJob struct {
	Receipts ReceiptSource
	Mailer   Mailer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// Handle processes TaskReceiptMail tasks.
func (j *ReceiptMailJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var payload ReceiptMailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.TransactionID <= 0 || payload.Email == "" {
		return fmt.Errorf("receipt mail: bad payload: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskReceiptMail)
	defer func() { err = tracker.End(err) }()

	logger := jobLogger(j.Logger, TaskReceiptMail).With(slog.Int64("transaction_id", payload.TransactionID))
	receipt, err := j.Receipts.Receipt(ctx, payload.TransactionID)
	if errors.Is(err, shared.ErrNotFound) {
		logger.Warn("receipt gone, dropping mail")
		return fmt.Errorf("receipt %d: %w", payload.TransactionID, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	body, err := RenderReceiptText(receipt)
	if err != nil {
		return fmt.Errorf("render receipt: %w", asynq.SkipRetry)
	}
	subject := fmt.Sprintf("Your FreshMart receipt #%d", payload.TransactionID)
	if err := j.Mailer.Send(ctx, payload.Email, subject, body); err != nil {
		logger.Warn("send receipt", slog.Any("error", err))
		return err
	}
	j.Metrics.AddItems(TaskReceiptMail, 1)
	logger.Info("receipt sent")
	return nil
}

func jobLogger(l *slog.Logger, job string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With(slog.String("job", job))
}
