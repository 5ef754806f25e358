package queue

import (
	"encoding/json"

	"github.com/vtx-referral/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPartnerCodeEmail 推荐码邮件通知任务
	TaskPartnerCodeEmail = constants.TaskPartnerCodeEmail
	// TaskLedgerSummaryRefresh 台账汇总缓存刷新任务
	TaskLedgerSummaryRefresh = constants.TaskLedgerSummaryRefresh
)

// PartnerCodeEmailPayload 推荐码邮件任务载荷
type PartnerCodeEmailPayload struct {
	PartnerID uint `json:"partner_id"`
}

// LedgerSummaryRefreshPayload 汇总刷新任务载荷
type LedgerSummaryRefreshPayload struct {
	Reason string `json:"reason"`
}

// NewPartnerCodeEmailTask 创建推荐码邮件任务
func NewPartnerCodeEmailTask(payload PartnerCodeEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPartnerCodeEmail, body), nil
}

// NewLedgerSummaryRefreshTask 创建汇总刷新任务
func NewLedgerSummaryRefreshTask(payload LedgerSummaryRefreshPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerSummaryRefresh, body), nil
}
