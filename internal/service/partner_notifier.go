package service

import (
	"context"

	"github.com/vtx-referral/internal/models"
	"github.com/vtx-referral/internal/queue"
)

// PartnerCodeNotifier 推荐码通知通道
type PartnerCodeNotifier interface {
	NotifyPartnerCode(ctx context.Context, partner *models.Partner) error
}

// QueuedPartnerNotifier 队列可用时异步投递，否则直接发送邮件
type QueuedPartnerNotifier struct {
	queue *queue.Client
	email *EmailService
}

// NewQueuedPartnerNotifier 创建推荐码通知器
func NewQueuedPartnerNotifier(queueClient *queue.Client, email *EmailService) *QueuedPartnerNotifier {
	return &QueuedPartnerNotifier{queue: queueClient, email: email}
}

// NotifyPartnerCode 通知合作伙伴其推荐码
// 没有可用通道时返回 ErrPartnerNotifySkipped
func (n *QueuedPartnerNotifier) NotifyPartnerCode(ctx context.Context, partner *models.Partner) error {
	if n == nil || partner == nil {
		return ErrPartnerNotifySkipped
	}
	if n.queue != nil && n.queue.Enabled() {
		return n.queue.EnqueuePartnerCodeEmail(queue.PartnerCodeEmailPayload{PartnerID: partner.ID})
	}
	if !n.email.Enabled() {
		return ErrPartnerNotifySkipped
	}
	return n.email.SendPartnerCode(partner.Email, PartnerCodeEmailInput{
		Name: partner.Name,
		Code: partner.Code,
		Tier: partner.Tier,
	})
}
