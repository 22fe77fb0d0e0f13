package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdjustmentDigestJob emails approvers a summary of adjustments that are
// still waiting for a decision.
type AdjustmentDigestJob struct {
	Pool   *pgxpool.Pool
	Mailer *Client
	Logger *slog.Logger
	clock  func() time.Time
}

// NewAdjustmentDigestJob initialises the digest handler.
func NewAdjustmentDigestJob(pool *pgxpool.Pool, mailer *Client, logger *slog.Logger) *AdjustmentDigestJob {
	return &AdjustmentDigestJob{
		Pool:   pool,
		Mailer: mailer,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type pendingSummary struct {
	Number      string
	WarehouseID int64
	Reason      string
	AgeHours    float64
}

// Handle executes the digest logic.
func (j *AdjustmentDigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("adjustment digest: handler not configured")
	}

	rows, err := j.Pool.Query(ctx, `
		SELECT number, warehouse_id, reason, EXTRACT(EPOCH FROM (NOW() - created_at)) / 3600
		FROM inventory_adjustments
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT 100`)
	if err != nil {
		return fmt.Errorf("adjustment digest: query pending: %w", err)
	}
	defer rows.Close()

	var pending []pendingSummary
	for rows.Next() {
		var p pendingSummary
		if err := rows.Scan(&p.Number, &p.WarehouseID, &p.Reason, &p.AgeHours); err != nil {
			return fmt.Errorf("adjustment digest: scan: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(pending) == 0 {
		if j.Logger != nil {
			j.Logger.Info("adjustment digest: nothing pending")
		}
		return nil
	}

	approvers, err := j.approverEmails(ctx)
	if err != nil {
		return err
	}
	if len(approvers) == 0 {
		if j.Logger != nil {
			j.Logger.Warn("adjustment digest: no approvers configured")
		}
		return nil
	}

	body := j.renderBody(pending)
	subject := fmt.Sprintf("%d inventory adjustments awaiting approval", len(pending))
	for _, to := range approvers {
		if j.Mailer == nil {
			continue
		}
		if _, err := j.Mailer.EnqueueSendEmail(ctx, SendEmailPayload{To: to, Subject: subject, Body: body}); err != nil {
			if j.Logger != nil {
				j.Logger.Error("adjustment digest: enqueue mail", slog.String("to", to), slog.Any("error", err))
			}
		}
	}
	if j.Logger != nil {
		j.Logger.Info("adjustment digest sent",
			slog.Int("pending", len(pending)),
			slog.Int("recipients", len(approvers)))
	}
	return nil
}

func (j *AdjustmentDigestJob) approverEmails(ctx context.Context) ([]string, error) {
	rows, err := j.Pool.Query(ctx, `
		SELECT DISTINCT u.email
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE u.is_active AND p.name = 'inventory.approve'`)
	if err != nil {
		return nil, fmt.Errorf("adjustment digest: query approvers: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (j *AdjustmentDigestJob) renderBody(pending []pendingSummary) string {
	var b strings.Builder
	b.WriteString("Adjustments pending approval:\n\n")
	for _, p := range pending {
		fmt.Fprintf(&b, "- %s (warehouse %d, waiting %.0fh): %s\n", p.Number, p.WarehouseID, p.AgeHours, p.Reason)
	}
	return b.String()
}
