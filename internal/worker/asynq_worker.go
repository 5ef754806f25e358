package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vtx-referral/internal/logger"
	"github.com/vtx-referral/internal/provider"
	"github.com/vtx-referral/internal/queue"
	"github.com/vtx-referral/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPartnerCodeEmail, c.handlePartnerCodeEmail)
	mux.HandleFunc(queue.TaskLedgerSummaryRefresh, c.handleLedgerSummaryRefresh)
}

func (c *Consumer) handlePartnerCodeEmail(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_partner_code_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PartnerCodeEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_partner_code_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.PartnerID == 0 {
		logger.Debugw("worker_partner_code_email_skip_invalid_payload", "partner_id", payload.PartnerID)
		return nil
	}
	if c.PartnerService == nil {
		logger.Warnw("worker_partner_code_email_skip_service_nil", "partner_id", payload.PartnerID)
		return nil
	}
	err := c.PartnerService.DeliverCodeEmail(ctx, payload.PartnerID)
	switch {
	case err == nil:
		logger.Infow("worker_partner_code_email_sent", "partner_id", payload.PartnerID)
		return nil
	case errors.Is(err, service.ErrPartnerNotFound):
		logger.Debugw("worker_partner_code_email_skip_partner_not_found", "partner_id", payload.PartnerID)
		return nil
	case errors.Is(err, service.ErrEmailServiceDisabled),
		errors.Is(err, service.ErrEmailServiceNotConfigured),
		errors.Is(err, service.ErrInvalidEmail):
		logger.Warnw("worker_partner_code_email_skip_undeliverable", "partner_id", payload.PartnerID, "error", err)
		return nil
	default:
		logger.Warnw("worker_partner_code_email_send_failed", "partner_id", payload.PartnerID, "error", err)
		return err
	}
}

func (c *Consumer) handleLedgerSummaryRefresh(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_ledger_refresh_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LedgerSummaryRefreshPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			logger.Warnw("worker_ledger_refresh_unmarshal_failed", "error", err)
			return err
		}
	}
	if c.LedgerService == nil {
		return nil
	}
	if err := c.LedgerService.RefreshSummary(ctx); err != nil {
		logger.Warnw("worker_ledger_refresh_failed", "reason", payload.Reason, "error", err)
		return err
	}
	logger.Debugw("worker_ledger_refreshed", "reason", payload.Reason)
	return nil
}

// auditLedger 只读对账，发现偏差时记录日志，修复由管理员触发
func (c *Consumer) auditLedger(ctx context.Context) {
	if c == nil || c.Container == nil || c.LedgerService == nil {
		return
	}
	report, err := c.LedgerService.Reconcile(ctx, false)
	if err != nil {
		logger.Warnw("worker_ledger_audit_failed", "error", err)
		return
	}
	if len(report.Drifts) == 0 && len(report.OrphanPartnerIDs) == 0 {
		logger.Debugw("worker_ledger_audit_clean", "checked", report.Checked)
		return
	}
	for _, drift := range report.Drifts {
		logger.Warnw("worker_ledger_audit_drift",
			"partner_id", drift.PartnerID,
			"code", drift.Code,
			"stored_count", drift.StoredCount,
			"expected_count", drift.ExpectedCount,
			"stored_earnings", drift.StoredEarnings.String(),
			"expected_earnings", drift.ExpectedEarnings.String(),
		)
	}
	if len(report.OrphanPartnerIDs) > 0 {
		logger.Infow("worker_ledger_audit_orphans", "partner_ids", report.OrphanPartnerIDs)
	}
}
