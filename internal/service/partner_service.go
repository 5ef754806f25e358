package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/constants"
	"github.com/vtx-referral/internal/logger"
	"github.com/vtx-referral/internal/models"
	"github.com/vtx-referral/internal/repository"
)

// PartnerService 合作伙伴服务，负责推荐码签发与资料维护
type PartnerService struct {
	repo           repository.PartnerRepository
	settingService *SettingService
	ledger         *LedgerService
	notifier       PartnerCodeNotifier
	email          *EmailService
	guard          *InflightGuard
	codeFormat     referralCodeFormat
	storeTimeout   time.Duration
}

// NewPartnerService 创建合作伙伴服务
func NewPartnerService(
	repo repository.PartnerRepository,
	settingService *SettingService,
	ledger *LedgerService,
	notifier PartnerCodeNotifier,
	email *EmailService,
	guard *InflightGuard,
	cfg config.ReferralConfig,
) *PartnerService {
	return &PartnerService{
		repo:           repo,
		settingService: settingService,
		ledger:         ledger,
		notifier:       notifier,
		email:          email,
		guard:          guard,
		codeFormat:     newReferralCodeFormat(cfg.CodePrefix),
		storeTimeout:   storeTimeoutFromSeconds(cfg.StoreTimeoutSeconds),
	}
}

// PartnerIssueInput 申请推荐码输入
type PartnerIssueInput struct {
	Name      string
	Email     string
	CallerKey string // 会话标识或客户端 IP，用于防重入
}

// PartnerIssueResult 签发结果
type PartnerIssueResult struct {
	Partner  *models.Partner `json:"partner"`
	Notified bool            `json:"notified"`
}

// PartnerUpdateInput 管理端编辑合作伙伴，空字段保持原值
type PartnerUpdateInput struct {
	Name   string
	Email  string
	Code   string
	Tier   string
	Status string
}

// Issue 为新合作伙伴签发推荐码
// 通知失败时仍返回已创建的合作伙伴，并附带 ErrPartnerNotifyFailed
func (s *PartnerService) Issue(ctx context.Context, input PartnerIssueInput) (*PartnerIssueResult, error) {
	release, ok := s.guard.Acquire(ctx, "issue:"+strings.TrimSpace(input.CallerKey))
	if !ok {
		return nil, ErrIssueInProgress
	}
	defer release()

	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	fieldErrs := FieldErrors{}
	fieldErrs.add("name", validatePersonName(name))
	fieldErrs.add("email", validateEmailAddress(email, true))
	if err := fieldErrs.err(); err != nil {
		return nil, err
	}

	tiers, err := s.settingService.GetTierSetting(ctx)
	if err != nil {
		return nil, err
	}
	firstTier, _ := tiers.FirstTier()

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	repo := s.repo.WithContext(storeCtx)

	existing, err := repo.GetByEmail(email)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if existing != nil {
		return nil, ErrPartnerEmailDuplicate
	}

	partner, err := s.createWithUniqueCode(repo, name, email, firstTier.Name)
	if err != nil {
		return nil, err
	}
	logger.Infow("referral_partner_issued",
		"partner_id", partner.ID,
		"code", partner.Code,
		"tier", partner.Tier,
	)
	s.ledger.InvalidateSummary(ctx, "partner_issued")

	result := &PartnerIssueResult{Partner: partner}
	sent, err := s.notify(ctx, partner)
	if err != nil {
		return result, err
	}
	result.Notified = sent
	return result, nil
}

// createWithUniqueCode 推荐码冲突时换后缀重试，存储层唯一索引为准
func (s *PartnerService) createWithUniqueCode(repo repository.PartnerRepository, name, email, tier string) (*models.Partner, error) {
	for attempt := 0; attempt < constants.ReferralCodeMaxRetry; attempt++ {
		code, err := s.codeFormat.Generate(name)
		if err != nil {
			return nil, err
		}
		partner := &models.Partner{
			Code:          code,
			Name:          name,
			Email:         email,
			Tier:          tier,
			Status:        constants.PartnerStatusActive,
			TotalEarnings: models.NewMoneyFromInt(0),
		}
		if err := repo.Create(partner); err != nil {
			if isEmailConflict(err) {
				return nil, ErrPartnerEmailDuplicate
			}
			if isUniqueViolation(err) {
				logger.Debugw("referral_code_collision", "code", code, "attempt", attempt+1)
				continue
			}
			return nil, wrapStoreError(err)
		}
		return partner, nil
	}
	return nil, ErrPartnerCodeExhausted
}

// notify 返回通知是否已发出或入队，通道未启用时 sent=false 且不视为失败
func (s *PartnerService) notify(ctx context.Context, partner *models.Partner) (bool, error) {
	if s.notifier == nil {
		return false, nil
	}
	err := s.notifier.NotifyPartnerCode(ctx, partner)
	if errors.Is(err, ErrPartnerNotifySkipped) {
		logger.Infow("referral_partner_notify_skipped", "partner_id", partner.ID)
		return false, nil
	}
	if err != nil {
		logger.Warnw("referral_partner_notify_failed",
			"partner_id", partner.ID,
			"code", partner.Code,
			"error", err,
		)
		return false, fmt.Errorf("%w: %v", ErrPartnerNotifyFailed, err)
	}
	return true, nil
}

// ResendCode 仅重发推荐码通知，没有可用通道时返回 ErrEmailServiceDisabled
func (s *PartnerService) ResendCode(ctx context.Context, id uint) (*models.Partner, error) {
	partner, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sent, err := s.notify(ctx, partner)
	if err != nil {
		return partner, err
	}
	if !sent {
		return partner, ErrEmailServiceDisabled
	}
	return partner, nil
}

// DeliverCodeEmail 由队列消费者调用，直接发送推荐码邮件
func (s *PartnerService) DeliverCodeEmail(ctx context.Context, id uint) error {
	partner, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.email.SendPartnerCode(partner.Email, PartnerCodeEmailInput{
		Name: partner.Name,
		Code: partner.Code,
		Tier: partner.Tier,
	})
}

// Lookup 合作伙伴凭推荐码与邮箱查询自己的账户
func (s *PartnerService) Lookup(ctx context.Context, code, email string) (*models.Partner, error) {
	code = s.codeFormat.Normalize(code)
	email = strings.TrimSpace(email)
	fieldErrs := FieldErrors{}
	if !s.codeFormat.Valid(code) {
		fieldErrs.add("referral_code", "referral code format is invalid")
	}
	fieldErrs.add("email", validateEmailAddress(email, true))
	if err := fieldErrs.err(); err != nil {
		return nil, err
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	partner, err := s.repo.WithContext(storeCtx).GetByCode(code)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if partner == nil || !strings.EqualFold(partner.Email, email) {
		return nil, ErrPartnerLookupMismatch
	}
	return partner, nil
}

// Get 按 ID 获取合作伙伴
func (s *PartnerService) Get(ctx context.Context, id uint) (*models.Partner, error) {
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	partner, err := s.repo.WithContext(storeCtx).GetByID(id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if partner == nil {
		return nil, ErrPartnerNotFound
	}
	return partner, nil
}

// Update 管理端编辑合作伙伴资料，推荐数与佣金不可直接修改
func (s *PartnerService) Update(ctx context.Context, id uint, input PartnerUpdateInput) (*models.Partner, error) {
	partner, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fieldErrs := FieldErrors{}
	if name := strings.TrimSpace(input.Name); name != "" {
		fieldErrs.add("name", validatePersonName(name))
		partner.Name = name
	}
	if email := strings.TrimSpace(input.Email); email != "" {
		fieldErrs.add("email", validateEmailAddress(email, true))
		partner.Email = email
	}
	if code := s.codeFormat.Normalize(input.Code); code != "" {
		if !s.codeFormat.Valid(code) {
			fieldErrs.add("code", "referral code format is invalid")
		}
		partner.Code = code
	}
	if status := strings.TrimSpace(input.Status); status != "" {
		normalized, ok := normalizePartnerStatus(status)
		if !ok {
			fieldErrs.add("status", "status must be active or inactive")
		}
		partner.Status = normalized
	}
	if tierName := strings.TrimSpace(input.Tier); tierName != "" {
		tiers, err := s.settingService.GetTierSetting(ctx)
		if err != nil {
			return nil, err
		}
		tier, ok := tiers.Find(tierName)
		if !ok {
			fieldErrs.add("tier", "tier does not exist")
		}
		partner.Tier = tier.Name
	}
	if err := fieldErrs.err(); err != nil {
		return nil, err
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	repo := s.repo.WithContext(storeCtx)

	if other, err := repo.GetByEmail(partner.Email); err != nil {
		return nil, wrapStoreError(err)
	} else if other != nil && other.ID != partner.ID {
		return nil, ErrPartnerEmailDuplicate
	}
	if other, err := repo.GetByCode(partner.Code); err != nil {
		return nil, wrapStoreError(err)
	} else if other != nil && other.ID != partner.ID {
		return nil, ErrPartnerCodeDuplicate
	}

	partner.UpdatedAt = time.Now()
	if err := repo.UpdateProfile(partner); err != nil {
		switch {
		case isEmailConflict(err):
			return nil, ErrPartnerEmailDuplicate
		case isUniqueViolation(err):
			return nil, ErrPartnerCodeDuplicate
		}
		return nil, wrapStoreError(err)
	}
	s.ledger.InvalidateSummary(ctx, "partner_updated")
	return partner, nil
}

// SetStatus 切换合作伙伴状态
func (s *PartnerService) SetStatus(ctx context.Context, id uint, status string) (*models.Partner, error) {
	if _, ok := normalizePartnerStatus(status); !ok {
		return nil, FieldErrors{"status": "status must be active or inactive"}
	}
	return s.Update(ctx, id, PartnerUpdateInput{Status: status})
}

// Delete 删除合作伙伴，关联线索保留
func (s *PartnerService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.WithContext(storeCtx).Delete(id); err != nil {
		return wrapStoreError(err)
	}
	logger.Infow("referral_partner_deleted", "partner_id", id)
	s.ledger.InvalidateSummary(ctx, "partner_deleted")
	return nil
}

// IsPartialIssue 判断签发是否为部分成功（已创建但通知失败）
func IsPartialIssue(result *PartnerIssueResult, err error) bool {
	return result != nil && result.Partner != nil && errors.Is(err, ErrPartnerNotifyFailed)
}
