package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/models"
	"github.com/vtx-referral/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type mockPartnerNotifier struct {
	mu    sync.Mutex
	calls []uint
	err   error
}

func (m *mockPartnerNotifier) NotifyPartnerCode(_ context.Context, partner *models.Partner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, partner.ID)
	return m.err
}

func (m *mockPartnerNotifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// failingCreditRepo 让入账步骤失败，用于验证事务回滚
type failingCreditRepo struct {
	repository.PartnerRepository
}

func (r failingCreditRepo) WithTx(tx *gorm.DB) repository.PartnerRepository {
	return failingCreditRepo{PartnerRepository: r.PartnerRepository.WithTx(tx)}
}

func (r failingCreditRepo) WithContext(ctx context.Context) repository.PartnerRepository {
	return failingCreditRepo{PartnerRepository: r.PartnerRepository.WithContext(ctx)}
}

func (r failingCreditRepo) ApplyCredit(uint, decimal.Decimal, time.Time) error {
	return errors.New("disk I/O error")
}

// collidingCodeRepo 在前 collide 次创建前先占用同一推荐码，collide<0 时每次都冲突
type collidingCodeRepo struct {
	repository.PartnerRepository
	collide  int
	attempts *int
}

func (r collidingCodeRepo) WithTx(tx *gorm.DB) repository.PartnerRepository {
	return collidingCodeRepo{PartnerRepository: r.PartnerRepository.WithTx(tx), collide: r.collide, attempts: r.attempts}
}

func (r collidingCodeRepo) WithContext(ctx context.Context) repository.PartnerRepository {
	return collidingCodeRepo{PartnerRepository: r.PartnerRepository.WithContext(ctx), collide: r.collide, attempts: r.attempts}
}

func (r collidingCodeRepo) Create(partner *models.Partner) error {
	*r.attempts++
	if r.collide < 0 || *r.attempts <= r.collide {
		_ = r.PartnerRepository.Create(&models.Partner{
			Code:          partner.Code,
			Name:          "Code Holder",
			Email:         fmt.Sprintf("holder%d@example.com", *r.attempts),
			Tier:          partner.Tier,
			Status:        partner.Status,
			TotalEarnings: models.NewMoneyFromInt(0),
		})
	}
	return r.PartnerRepository.Create(partner)
}

// vanishingPartnerRepo 读取合作伙伴后立即删除，模拟审核期间被删
type vanishingPartnerRepo struct {
	repository.PartnerRepository
}

func (r vanishingPartnerRepo) WithTx(tx *gorm.DB) repository.PartnerRepository {
	return vanishingPartnerRepo{PartnerRepository: r.PartnerRepository.WithTx(tx)}
}

func (r vanishingPartnerRepo) WithContext(ctx context.Context) repository.PartnerRepository {
	return vanishingPartnerRepo{PartnerRepository: r.PartnerRepository.WithContext(ctx)}
}

func (r vanishingPartnerRepo) GetByCode(code string) (*models.Partner, error) {
	partner, err := r.PartnerRepository.GetByCode(code)
	if err != nil || partner == nil {
		return partner, err
	}
	if err := r.PartnerRepository.Delete(partner.ID); err != nil {
		return nil, err
	}
	return partner, nil
}

type referralTestEnv struct {
	db           *gorm.DB
	partnerRepo  *repository.GormPartnerRepository
	leadRepo     *repository.GormLeadRepository
	settings     *SettingService
	ledger       *LedgerService
	partners     *PartnerService
	leads        *LeadService
	adjudication *AdjudicationService
	guard        *InflightGuard
	notifier     *mockPartnerNotifier
	cfg          config.ReferralConfig
}

func setupReferralServiceTest(t *testing.T) *referralTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:referral_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	cfg := config.ReferralConfig{
		CodePrefix:          "VTX",
		PromotionThreshold:  3,
		StoreTimeoutSeconds: 8,
	}
	env := &referralTestEnv{
		db:          db,
		partnerRepo: repository.NewPartnerRepository(db),
		leadRepo:    repository.NewLeadRepository(db),
		settings:    NewSettingService(repository.NewSettingRepository(db)),
		guard:       NewInflightGuard(time.Minute),
		notifier:    &mockPartnerNotifier{},
		cfg:         cfg,
	}
	env.ledger = NewLedgerService(env.partnerRepo, env.leadRepo, env.settings, nil, cfg)
	env.partners = NewPartnerService(env.partnerRepo, env.settings, env.ledger, env.notifier, NewEmailService(nil), env.guard, cfg)
	env.leads = NewLeadService(env.leadRepo, cfg)
	env.adjudication = NewAdjudicationService(env.leadRepo, env.partnerRepo, env.settings, env.ledger, env.guard, cfg)
	return env
}

func (env *referralTestEnv) issuePartner(t *testing.T, name, email string) *models.Partner {
	t.Helper()
	result, err := env.partners.Issue(context.Background(), PartnerIssueInput{
		Name:      name,
		Email:     email,
		CallerKey: "caller-" + email,
	})
	if err != nil {
		t.Fatalf("issue partner failed: %v", err)
	}
	return result.Partner
}

func (env *referralTestEnv) submitLead(t *testing.T, code, clientName string) *models.Lead {
	t.Helper()
	lead, err := env.leads.Submit(context.Background(), LeadSubmitInput{
		ReferralCode: code,
		ClientName:   clientName,
		ClientPhone:  "+1 (555) 123-4567",
		ClientEmail:  "client@example.com",
		ProjectType:  "Web Platform",
	})
	if err != nil {
		t.Fatalf("submit lead failed: %v", err)
	}
	return lead
}

func (env *referralTestEnv) reloadPartner(t *testing.T, id uint) *models.Partner {
	t.Helper()
	partner, err := env.partnerRepo.GetByID(id)
	if err != nil || partner == nil {
		t.Fatalf("reload partner failed: %v", err)
	}
	return partner
}

func (env *referralTestEnv) reloadLead(t *testing.T, id uint) *models.Lead {
	t.Helper()
	lead, err := env.leadRepo.GetByID(id)
	if err != nil || lead == nil {
		t.Fatalf("reload lead failed: %v", err)
	}
	return lead
}

func assertMoney(t *testing.T, label string, got models.Money, want int64) {
	t.Helper()
	if !got.Equal(models.NewMoneyFromInt(want)) {
		t.Fatalf("%s: expected %d, got %s", label, want, got.String())
	}
}
