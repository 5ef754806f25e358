package queue

import (
	"fmt"
	"strings"

	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 通知类高优先级队列
	CriticalQueue = constants.QueueCritical

	defaultNotifyMaxRetry = 5
)

// Client 队列客户端封装
type Client struct {
	client         *asynq.Client
	enabled        bool
	defaultQueue   string
	notifyMaxRetry int
}

// NewClient 创建队列客户端，未启用时返回可安全调用的空客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue, notifyMaxRetry: defaultNotifyMaxRetry}, nil
	}
	return &Client{
		client:         asynq.NewClient(buildRedisOpt(cfg)),
		enabled:        true,
		defaultQueue:   DefaultQueue,
		notifyMaxRetry: defaultNotifyMaxRetry,
	}, nil
}

// SetNotifyMaxRetry 设置通知任务最大重试次数
func (c *Client) SetNotifyMaxRetry(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.notifyMaxRetry = n
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueuePartnerCodeEmail 推送推荐码邮件任务
func (c *Client) EnqueuePartnerCodeEmail(payload PartnerCodeEmailPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewPartnerCodeEmailTask(payload)
	if err != nil {
		return err
	}
	options := append([]asynq.Option{asynq.Queue(CriticalQueue), asynq.MaxRetry(c.notifyMaxRetry)}, opts...)
	_, err = c.client.Enqueue(task, options...)
	return err
}

// EnqueueLedgerSummaryRefresh 推送汇总缓存刷新任务
func (c *Client) EnqueueLedgerSummaryRefresh(payload LedgerSummaryRefreshPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewLedgerSummaryRefreshTask(payload)
	if err != nil {
		return err
	}
	options := append([]asynq.Option{asynq.Queue(c.defaultQueue), asynq.MaxRetry(1)}, opts...)
	_, err = c.client.Enqueue(task, options...)
	return err
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1, CriticalQueue: 2}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	opt := asynq.RedisClientOpt{}
	if cfg != nil {
		if trimmed := strings.TrimSpace(cfg.Host); trimmed != "" {
			host = trimmed
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		opt.Password = cfg.Password
		opt.DB = cfg.DB
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	return opt
}
