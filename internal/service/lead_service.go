package service

import (
	"context"
	"strings"
	"time"

	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/constants"
	"github.com/vtx-referral/internal/logger"
	"github.com/vtx-referral/internal/models"
	"github.com/vtx-referral/internal/repository"
)

// LeadService 线索录入与维护
type LeadService struct {
	repo         repository.LeadRepository
	codeFormat   referralCodeFormat
	storeTimeout time.Duration
}

// NewLeadService 创建线索服务
func NewLeadService(repo repository.LeadRepository, cfg config.ReferralConfig) *LeadService {
	return &LeadService{
		repo:         repo,
		codeFormat:   newReferralCodeFormat(cfg.CodePrefix),
		storeTimeout: storeTimeoutFromSeconds(cfg.StoreTimeoutSeconds),
	}
}

// LeadSubmitInput 提交线索输入
type LeadSubmitInput struct {
	ReferralCode string
	ClientName   string
	ClientPhone  string
	ClientEmail  string
	ProjectType  string
	Notes        string
}

// Submit 校验并保存线索，只校验推荐码格式不校验是否存在
func (s *LeadService) Submit(ctx context.Context, input LeadSubmitInput) (*models.Lead, error) {
	code := s.codeFormat.Normalize(input.ReferralCode)
	lead := &models.Lead{
		ReferralCode: code,
		ClientName:   strings.TrimSpace(input.ClientName),
		ClientPhone:  strings.TrimSpace(input.ClientPhone),
		ClientEmail:  strings.TrimSpace(input.ClientEmail),
		ProjectType:  strings.TrimSpace(input.ProjectType),
		Notes:        strings.TrimSpace(input.Notes),
		Status:       constants.LeadStatusNew,
		SubmittedAt:  time.Now(),
	}

	fieldErrs := FieldErrors{}
	if code == "" {
		fieldErrs.add("referral_code", "referral code is required")
	} else if !s.codeFormat.Valid(code) {
		fieldErrs.add("referral_code", "referral code format is invalid")
	}
	fieldErrs.add("client_name", validatePersonName(lead.ClientName))
	fieldErrs.add("client_phone", validatePhone(lead.ClientPhone))
	fieldErrs.add("client_email", validateEmailAddress(lead.ClientEmail, false))
	fieldErrs.add("project_type", validateBoundedText(lead.ProjectType, "project type", projectTypeMaxRune, true))
	fieldErrs.add("notes", validateBoundedText(lead.Notes, "notes", leadNotesMaxRune, false))
	if err := fieldErrs.err(); err != nil {
		return nil, err
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.WithContext(storeCtx).Create(lead); err != nil {
		return nil, wrapStoreError(err)
	}
	logger.Infow("referral_lead_submitted", "lead_id", lead.ID, "referral_code", lead.ReferralCode)
	return lead, nil
}

// List 分页查询线索，读取失败时返回空列表
func (s *LeadService) List(ctx context.Context, filter repository.LeadListFilter) ([]models.Lead, int64) {
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	leads, total, err := s.repo.WithContext(storeCtx).List(filter)
	if err != nil {
		logger.Warnw("referral_lead_list_failed", "error", err)
		return []models.Lead{}, 0
	}
	return leads, total
}

// Get 按 ID 获取线索
func (s *LeadService) Get(ctx context.Context, id uint) (*models.Lead, error) {
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	lead, err := s.repo.WithContext(storeCtx).GetByID(id)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}

// Delete 删除线索，已入账佣金保留，可通过对账重算
func (s *LeadService) Delete(ctx context.Context, id uint) error {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.repo.WithContext(storeCtx).Delete(id); err != nil {
		return wrapStoreError(err)
	}
	logger.Infow("referral_lead_deleted", "lead_id", id, "status", lead.Status)
	return nil
}
