package provider

import (
	"errors"
	"time"

	"github.com/vtx-referral/internal/authz"
	"github.com/vtx-referral/internal/cache"
	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/logger"
	"github.com/vtx-referral/internal/models"
	"github.com/vtx-referral/internal/queue"
	"github.com/vtx-referral/internal/repository"
	"github.com/vtx-referral/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo         repository.AdminRepository
	SettingRepo       repository.SettingRepository
	PartnerRepo       repository.PartnerRepository
	LeadRepo          repository.LeadRepository
	AuthzAuditLogRepo repository.AuthzAuditLogRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	EmailService        *service.EmailService
	CaptchaService      *service.CaptchaService
	SettingService      *service.SettingService
	AuthzAuditService   *service.AuthzAuditService
	LedgerService       *service.LedgerService
	PartnerService      *service.PartnerService
	LeadService         *service.LeadService
	AdjudicationService *service.AdjudicationService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 未启用队列时 NewClient 返回空客户端，调用方无需判空
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}
	queueClient.SetNotifyMaxRetry(cfg.Referral.NotifyMaxRetry)

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initRepositories()
	c.initServices()
	return c
}

// Close 释放队列客户端与 Redis 连接
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	return errors.Join(c.QueueClient.Close(), cache.Close())
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.PartnerRepo = repository.NewPartnerRepository(db)
	c.LeadRepo = repository.NewLeadRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	referralCfg := c.Config.Referral
	c.SettingService = service.NewSettingService(c.SettingRepo)
	if referralCfg.StoreTimeoutSeconds > 0 {
		c.SettingService.SetStoreTimeout(time.Duration(referralCfg.StoreTimeoutSeconds) * time.Second)
	}

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)

	// 签发与审核共用同一把重入保护，保证同一进程内键空间一致
	guard := service.NewInflightGuard(time.Duration(referralCfg.GuardTTLSeconds) * time.Second)
	notifier := service.NewQueuedPartnerNotifier(c.QueueClient, c.EmailService)

	c.LedgerService = service.NewLedgerService(c.PartnerRepo, c.LeadRepo, c.SettingService, c.QueueClient, referralCfg)
	c.PartnerService = service.NewPartnerService(c.PartnerRepo, c.SettingService, c.LedgerService, notifier, c.EmailService, guard, referralCfg)
	c.LeadService = service.NewLeadService(c.LeadRepo, referralCfg)
	c.AdjudicationService = service.NewAdjudicationService(c.LeadRepo, c.PartnerRepo, c.SettingService, c.LedgerService, guard, referralCfg)
}
