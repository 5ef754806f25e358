package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/constants"
	"github.com/vtx-referral/internal/logger"
	"github.com/vtx-referral/internal/models"
	"github.com/vtx-referral/internal/repository"

	"gorm.io/gorm"
)

var errLeadAlreadyClaimed = errors.New("lead already adjudicated")

// AdjudicationResult 审核结果
type AdjudicationResult struct {
	Outcome        string          `json:"outcome"`
	Lead           *models.Lead    `json:"lead,omitempty"`
	Partner        *models.Partner `json:"partner,omitempty"`
	CreditedAmount models.Money    `json:"credited_amount"`
	CreditedTier   string          `json:"credited_tier"`
	Promoted       bool            `json:"promoted"`
}

// AdjudicationService 线索审核，批准时入账并检查晋升
type AdjudicationService struct {
	leadRepo           repository.LeadRepository
	partnerRepo        repository.PartnerRepository
	settingService     *SettingService
	ledger             *LedgerService
	guard              *InflightGuard
	promotionThreshold int64
	storeTimeout       time.Duration
}

// NewAdjudicationService 创建审核服务
func NewAdjudicationService(
	leadRepo repository.LeadRepository,
	partnerRepo repository.PartnerRepository,
	settingService *SettingService,
	ledger *LedgerService,
	guard *InflightGuard,
	cfg config.ReferralConfig,
) *AdjudicationService {
	threshold := int64(cfg.PromotionThreshold)
	if threshold <= 0 {
		threshold = constants.ReferralPromotionThreshold
	}
	return &AdjudicationService{
		leadRepo:           leadRepo,
		partnerRepo:        partnerRepo,
		settingService:     settingService,
		ledger:             ledger,
		guard:              guard,
		promotionThreshold: threshold,
		storeTimeout:       storeTimeoutFromSeconds(cfg.StoreTimeoutSeconds),
	}
}

// Approve 批准线索
// 线索领取、佣金入账、晋升与入账快照在同一事务内完成，失败时线索保持 new
func (s *AdjudicationService) Approve(ctx context.Context, leadID, adminID uint) (*AdjudicationResult, error) {
	release, ok := s.guard.Acquire(ctx, leadGuardKey(leadID))
	if !ok {
		return nil, ErrAdjudicationInProgress
	}
	defer release()

	tiers, err := s.settingService.GetTierSetting(ctx)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	leadRepo := s.leadRepo.WithContext(storeCtx)

	lead, err := leadRepo.GetByID(leadID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if result, done, err := approvePrecheck(leadID, lead); done {
		return result, err
	}

	result := &AdjudicationResult{Outcome: constants.AdjudicationOutcomeApproved}
	err = leadRepo.Transaction(func(tx *gorm.DB) error {
		txLeads := s.leadRepo.WithTx(tx)
		txPartners := s.partnerRepo.WithTx(tx)
		now := time.Now()

		claimed, err := txLeads.ClaimNew(lead.ID, constants.LeadStatusApproved, adminID, now)
		if err != nil {
			return err
		}
		if !claimed {
			return errLeadAlreadyClaimed
		}

		partner, err := txPartners.GetByCode(lead.ReferralCode)
		if err != nil {
			return err
		}
		if partner == nil {
			result.Outcome = constants.AdjudicationOutcomePartnerNotFound
			return nil
		}

		amount, tierName := tiers.CommissionFor(partner.Tier)
		if err := txPartners.ApplyCredit(partner.ID, amount, now); err != nil {
			// 合作伙伴在读取后被删除
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Outcome = constants.AdjudicationOutcomePartnerNotFound
				return nil
			}
			return err
		}
		if tiers.PromotionEnabled() {
			promoted, err := txPartners.PromoteIfEligible(partner.ID, s.promotionThreshold, tiers.UpgradeTier, now)
			if err != nil {
				return err
			}
			result.Promoted = promoted
		}
		if err := txLeads.RecordCredit(lead.ID, partner.ID, tierName, amount); err != nil {
			return err
		}

		credited, err := txPartners.GetByID(partner.ID)
		if err != nil {
			return err
		}
		result.Partner = credited
		result.CreditedAmount = models.NewMoneyFromDecimal(amount)
		result.CreditedTier = tierName
		return nil
	})
	if errors.Is(err, errLeadAlreadyClaimed) {
		current, readErr := leadRepo.GetByID(leadID)
		if readErr != nil {
			return nil, wrapStoreError(readErr)
		}
		if result, done, err := approvePrecheck(leadID, current); done {
			return result, err
		}
		return nil, ErrAdjudicationInProgress
	}
	if err != nil {
		logger.Errorw("referral_approve_ledger_failed",
			"lead_id", lead.ID,
			"referral_code", lead.ReferralCode,
			"error", err,
		)
		return nil, wrapStoreError(err)
	}

	if updated, err := leadRepo.GetByID(leadID); err == nil && updated != nil {
		result.Lead = updated
	} else {
		result.Lead = lead
	}

	if result.Outcome == constants.AdjudicationOutcomePartnerNotFound {
		logger.Warnw("referral_lead_partner_missing",
			"lead_id", lead.ID,
			"referral_code", lead.ReferralCode,
		)
		return result, nil
	}
	logger.Infow("referral_lead_approved",
		"lead_id", lead.ID,
		"partner_id", result.Partner.ID,
		"credited_tier", result.CreditedTier,
		"credited_amount", result.CreditedAmount.String(),
		"promoted", result.Promoted,
	)
	s.ledger.InvalidateSummary(ctx, "lead_approved")
	return result, nil
}

// Reject 拒绝线索，不影响账本
func (s *AdjudicationService) Reject(ctx context.Context, leadID, adminID uint) (*AdjudicationResult, error) {
	release, ok := s.guard.Acquire(ctx, leadGuardKey(leadID))
	if !ok {
		return nil, ErrAdjudicationInProgress
	}
	defer release()

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	leadRepo := s.leadRepo.WithContext(storeCtx)

	lead, err := leadRepo.GetByID(leadID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if result, done, err := rejectPrecheck(leadID, lead); done {
		return result, err
	}

	claimed, err := leadRepo.ClaimNew(lead.ID, constants.LeadStatusRejected, adminID, time.Now())
	if err != nil {
		return nil, wrapStoreError(err)
	}
	current, err := leadRepo.GetByID(leadID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if !claimed {
		if result, done, err := rejectPrecheck(leadID, current); done {
			return result, err
		}
		return nil, ErrAdjudicationInProgress
	}
	logger.Infow("referral_lead_rejected", "lead_id", lead.ID, "admin_id", adminID)
	return &AdjudicationResult{Outcome: constants.AdjudicationOutcomeRejected, Lead: current}, nil
}

// approvePrecheck 处理无需入账的情形，done 为 true 时直接返回
func approvePrecheck(leadID uint, lead *models.Lead) (*AdjudicationResult, bool, error) {
	if lead == nil {
		logger.Warnw("referral_adjudicate_lead_missing", "lead_id", leadID, "action", "approve")
		return &AdjudicationResult{Outcome: constants.AdjudicationOutcomeLeadNotFound}, true, nil
	}
	switch lead.Status {
	case constants.LeadStatusApproved:
		return &AdjudicationResult{Outcome: constants.AdjudicationOutcomeAlreadyApproved, Lead: lead}, true, nil
	case constants.LeadStatusRejected:
		return nil, true, ErrLeadStatusInvalid
	}
	return nil, false, nil
}

func rejectPrecheck(leadID uint, lead *models.Lead) (*AdjudicationResult, bool, error) {
	if lead == nil {
		logger.Warnw("referral_adjudicate_lead_missing", "lead_id", leadID, "action", "reject")
		return &AdjudicationResult{Outcome: constants.AdjudicationOutcomeLeadNotFound}, true, nil
	}
	switch lead.Status {
	case constants.LeadStatusRejected:
		return &AdjudicationResult{Outcome: constants.AdjudicationOutcomeAlreadyRejected, Lead: lead}, true, nil
	case constants.LeadStatusApproved:
		return nil, true, ErrLeadStatusInvalid
	}
	return nil, false, nil
}

func leadGuardKey(leadID uint) string {
	return "lead:" + strconv.FormatUint(uint64(leadID), 10)
}
