package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/vtx-referral/internal/cache"
	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/constants"
	"github.com/vtx-referral/internal/logger"
	"github.com/vtx-referral/internal/models"
	"github.com/vtx-referral/internal/queue"
	"github.com/vtx-referral/internal/repository"

	"gorm.io/gorm"
)

const defaultLedgerCacheTTL = 30 * time.Second

// LedgerSummary 合作伙伴账本汇总
type LedgerSummary struct {
	TotalPartners  int64        `json:"total_partners"`
	ElitePartners  int64        `json:"elite_partners"`
	TotalReferrals int64        `json:"total_referrals"`
	TotalEarnings  models.Money `json:"total_earnings"`
	EliteTier      string       `json:"elite_tier"`
}

// LedgerDrift 单个合作伙伴的账本偏差
type LedgerDrift struct {
	PartnerID        uint         `json:"partner_id"`
	Code             string       `json:"code"`
	StoredCount      int64        `json:"stored_count"`
	ExpectedCount    int64        `json:"expected_count"`
	StoredEarnings   models.Money `json:"stored_earnings"`
	ExpectedEarnings models.Money `json:"expected_earnings"`
}

// LedgerReconcileReport 对账结果
type LedgerReconcileReport struct {
	Checked          int           `json:"checked"`
	Drifts           []LedgerDrift `json:"drifts"`
	OrphanPartnerIDs []uint        `json:"orphan_partner_ids"` // 线索已入账但合作伙伴已删除
	Applied          bool          `json:"applied"`
}

// LedgerService 账本读模型与对账
type LedgerService struct {
	partnerRepo    repository.PartnerRepository
	leadRepo       repository.LeadRepository
	settingService *SettingService
	queue          *queue.Client
	storeTimeout   time.Duration
	cacheTTL       time.Duration
}

// NewLedgerService 创建账本服务
func NewLedgerService(
	partnerRepo repository.PartnerRepository,
	leadRepo repository.LeadRepository,
	settingService *SettingService,
	queueClient *queue.Client,
	cfg config.ReferralConfig,
) *LedgerService {
	ttl := defaultLedgerCacheTTL
	if cfg.LedgerCacheSeconds > 0 {
		ttl = time.Duration(cfg.LedgerCacheSeconds) * time.Second
	}
	return &LedgerService{
		partnerRepo:    partnerRepo,
		leadRepo:       leadRepo,
		settingService: settingService,
		queue:          queueClient,
		storeTimeout:   storeTimeoutFromSeconds(cfg.StoreTimeoutSeconds),
		cacheTTL:       ttl,
	}
}

// Summary 汇总合作伙伴数量、精英数量、推荐数与佣金
func (s *LedgerService) Summary(ctx context.Context, filter repository.PartnerListFilter) (*LedgerSummary, error) {
	tiers, err := s.settingService.GetTierSetting(ctx)
	if err != nil {
		return nil, err
	}

	key := ledgerSummaryCacheKey(filter, tiers.UpgradeTier)
	var cached LedgerSummary
	if hit, err := cache.GetJSON(ctx, key, &cached); err != nil {
		logger.Warnw("ledger_summary_cache_get_failed", "key", key, "error", err)
	} else if hit {
		return &cached, nil
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	agg, err := s.partnerRepo.WithContext(storeCtx).Summary(filter, tiers.UpgradeTier)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	summary := &LedgerSummary{
		TotalPartners:  agg.TotalPartners,
		ElitePartners:  agg.ElitePartners,
		TotalReferrals: agg.TotalReferrals,
		TotalEarnings:  models.NewMoneyFromDecimal(agg.TotalEarnings),
		EliteTier:      tiers.UpgradeTier,
	}
	if err := cache.SetJSON(ctx, key, summary, s.cacheTTL); err != nil {
		logger.Warnw("ledger_summary_cache_set_failed", "key", key, "error", err)
	}
	return summary, nil
}

// List 分页查询合作伙伴，读取失败时返回空列表
func (s *LedgerService) List(ctx context.Context, filter repository.PartnerListFilter) ([]models.Partner, int64) {
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	partners, total, err := s.partnerRepo.WithContext(storeCtx).List(filter)
	if err != nil {
		logger.Warnw("referral_ledger_list_failed", "error", err)
		return []models.Partner{}, 0
	}
	return partners, total
}

// InvalidateSummary 清除汇总缓存，队列可用时异步预热
func (s *LedgerService) InvalidateSummary(ctx context.Context, reason string) {
	if s == nil || !cache.Enabled() {
		return
	}
	if err := cache.DelPrefix(ctx, constants.CacheKeyLedgerSummaryPrefix); err != nil {
		logger.Warnw("ledger_summary_cache_invalidate_failed", "reason", reason, "error", err)
	}
	if s.queue == nil || !s.queue.Enabled() {
		return
	}
	if err := s.queue.EnqueueLedgerSummaryRefresh(queue.LedgerSummaryRefreshPayload{Reason: reason}); err != nil {
		logger.Warnw("ledger_summary_refresh_enqueue_failed", "reason", reason, "error", err)
	}
}

// RefreshSummary 重新计算全量汇总并写入缓存
func (s *LedgerService) RefreshSummary(ctx context.Context) error {
	_, err := s.Summary(ctx, repository.PartnerListFilter{})
	return err
}

// Reconcile 由已批准线索的入账快照重算账本
// apply 为 true 时用重算结果覆盖合作伙伴的推荐数与佣金
func (s *LedgerService) Reconcile(ctx context.Context, apply bool) (*LedgerReconcileReport, error) {
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	partners, err := s.partnerRepo.WithContext(storeCtx).ListAll()
	if err != nil {
		return nil, wrapStoreError(err)
	}
	aggregates, err := s.leadRepo.WithContext(storeCtx).AggregateCredited()
	if err != nil {
		return nil, wrapStoreError(err)
	}

	expected := make(map[uint]repository.CreditedLeadAggregate, len(aggregates))
	for _, item := range aggregates {
		expected[item.PartnerID] = item
	}

	report := &LedgerReconcileReport{
		Checked:          len(partners),
		Drifts:           make([]LedgerDrift, 0),
		OrphanPartnerIDs: make([]uint, 0),
	}
	for _, partner := range partners {
		agg := expected[partner.ID]
		delete(expected, partner.ID)
		expectedEarnings := models.NewMoneyFromDecimal(agg.Amount)
		if partner.ReferralCount == agg.Count && partner.TotalEarnings.Equal(expectedEarnings) {
			continue
		}
		report.Drifts = append(report.Drifts, LedgerDrift{
			PartnerID:        partner.ID,
			Code:             partner.Code,
			StoredCount:      partner.ReferralCount,
			ExpectedCount:    agg.Count,
			StoredEarnings:   partner.TotalEarnings,
			ExpectedEarnings: expectedEarnings,
		})
	}
	for partnerID := range expected {
		report.OrphanPartnerIDs = append(report.OrphanPartnerIDs, partnerID)
	}

	if !apply || len(report.Drifts) == 0 {
		return report, nil
	}
	err = s.partnerRepo.WithContext(storeCtx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.partnerRepo.WithTx(tx)
		now := time.Now()
		for _, drift := range report.Drifts {
			if err := txRepo.OverwriteLedger(drift.PartnerID, drift.ExpectedCount, drift.ExpectedEarnings.Decimal, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Errorw("referral_ledger_reconcile_failed", "drifts", len(report.Drifts), "error", err)
		return nil, wrapStoreError(err)
	}
	report.Applied = true
	logger.Infow("referral_ledger_reconciled", "checked", report.Checked, "drifts", len(report.Drifts))
	s.InvalidateSummary(ctx, "ledger_reconciled")
	return report, nil
}

func ledgerSummaryCacheKey(filter repository.PartnerListFilter, eliteTier string) string {
	raw := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(filter.Tier)),
		strings.ToLower(strings.TrimSpace(filter.Status)),
		strings.ToLower(strings.TrimSpace(filter.Keyword)),
		strings.TrimSpace(eliteTier),
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return constants.CacheKeyLedgerSummaryPrefix + hex.EncodeToString(sum[:8])
}
