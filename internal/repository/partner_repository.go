package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vtx-referral/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PartnerRepository 合作伙伴数据访问接口
type PartnerRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PartnerRepository
	WithContext(ctx context.Context) PartnerRepository

	GetByID(id uint) (*models.Partner, error)
	GetByCode(code string) (*models.Partner, error)
	GetByEmail(email string) (*models.Partner, error)
	ListAll() ([]models.Partner, error)
	List(filter PartnerListFilter) ([]models.Partner, int64, error)
	Create(partner *models.Partner) error
	UpdateProfile(partner *models.Partner) error
	Delete(id uint) error

	ApplyCredit(id uint, amount decimal.Decimal, at time.Time) error
	PromoteIfEligible(id uint, threshold int64, upgradeTier string, at time.Time) (bool, error)
	OverwriteLedger(id uint, count int64, earnings decimal.Decimal, at time.Time) error
	Summary(filter PartnerListFilter, eliteTier string) (PartnerSummaryAggregate, error)
}

// GormPartnerRepository GORM 实现
type GormPartnerRepository struct {
	db *gorm.DB
}

// NewPartnerRepository 创建合作伙伴仓库
func NewPartnerRepository(db *gorm.DB) *GormPartnerRepository {
	return &GormPartnerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPartnerRepository) WithTx(tx *gorm.DB) PartnerRepository {
	if tx == nil {
		return r
	}
	return &GormPartnerRepository{db: tx}
}

// WithContext 绑定请求上下文（超时与取消）
func (r *GormPartnerRepository) WithContext(ctx context.Context) PartnerRepository {
	if ctx == nil {
		return r
	}
	return &GormPartnerRepository{db: r.db.WithContext(ctx)}
}

// Transaction 执行事务
func (r *GormPartnerRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按 ID 获取合作伙伴
func (r *GormPartnerRepository) GetByID(id uint) (*models.Partner, error) {
	if id == 0 {
		return nil, nil
	}
	var partner models.Partner
	if err := r.db.First(&partner, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// GetByCode 按推荐码获取合作伙伴
func (r *GormPartnerRepository) GetByCode(code string) (*models.Partner, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var partner models.Partner
	if err := r.db.Where("code = ?", normalized).First(&partner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// GetByEmail 按邮箱获取合作伙伴（不区分大小写）
func (r *GormPartnerRepository) GetByEmail(email string) (*models.Partner, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return nil, nil
	}
	var partner models.Partner
	if err := r.db.Where("email_normalized = ?", normalized).First(&partner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &partner, nil
}

// ListAll 获取全部合作伙伴
func (r *GormPartnerRepository) ListAll() ([]models.Partner, error) {
	partners := make([]models.Partner, 0)
	if err := r.db.Order("id ASC").Find(&partners).Error; err != nil {
		return nil, err
	}
	return partners, nil
}

// List 分页查询合作伙伴
func (r *GormPartnerRepository) List(filter PartnerListFilter) ([]models.Partner, int64, error) {
	query := r.filteredQuery(filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	partners := make([]models.Partner, 0)
	if err := query.Order("id DESC").Find(&partners).Error; err != nil {
		return nil, 0, err
	}
	return partners, total, nil
}

// Create 创建合作伙伴
func (r *GormPartnerRepository) Create(partner *models.Partner) error {
	if partner == nil {
		return nil
	}
	partner.EmailNormalized = normalizeEmail(partner.Email)
	return r.db.Create(partner).Error
}

// UpdateProfile 更新资料字段，推荐数与佣金只通过入账接口变更
func (r *GormPartnerRepository) UpdateProfile(partner *models.Partner) error {
	if partner == nil || partner.ID == 0 {
		return nil
	}
	partner.EmailNormalized = normalizeEmail(partner.Email)
	return r.db.Model(partner).
		Select("code", "name", "email", "email_normalized", "tier", "status", "updated_at").
		Updates(partner).Error
}

// Delete 删除合作伙伴，不级联处理线索
func (r *GormPartnerRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Partner{}, id).Error
}

// ApplyCredit 原子累加推荐数与佣金
func (r *GormPartnerRepository) ApplyCredit(id uint, amount decimal.Decimal, at time.Time) error {
	result := r.db.Model(&models.Partner{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"referral_count": gorm.Expr("referral_count + ?", 1),
			"total_earnings": gorm.Expr("total_earnings + ?", amount.Round(2)),
			"updated_at":     at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PromoteIfEligible 推荐数达到阈值且未处于升级等级时晋升，返回是否发生晋升
func (r *GormPartnerRepository) PromoteIfEligible(id uint, threshold int64, upgradeTier string, at time.Time) (bool, error) {
	upgradeTier = strings.TrimSpace(upgradeTier)
	if id == 0 || upgradeTier == "" || threshold <= 0 {
		return false, nil
	}
	result := r.db.Model(&models.Partner{}).
		Where("id = ? AND referral_count >= ? AND tier <> ?", id, threshold, upgradeTier).
		Updates(map[string]interface{}{
			"tier":       upgradeTier,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// OverwriteLedger 用重算结果覆盖推荐数与佣金
func (r *GormPartnerRepository) OverwriteLedger(id uint, count int64, earnings decimal.Decimal, at time.Time) error {
	return r.db.Model(&models.Partner{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"referral_count": count,
			"total_earnings": earnings.Round(2),
			"updated_at":     at,
		}).Error
}

// Summary 汇总合作伙伴数量、推荐数与佣金
func (r *GormPartnerRepository) Summary(filter PartnerListFilter, eliteTier string) (PartnerSummaryAggregate, error) {
	var row struct {
		TotalPartners  int64
		ElitePartners  int64
		TotalReferrals int64
		TotalEarnings  decimal.Decimal
	}
	err := r.filteredQuery(filter).
		Select(
			"COUNT(*) AS total_partners, "+
				"COALESCE(SUM(CASE WHEN tier = ? THEN 1 ELSE 0 END), 0) AS elite_partners, "+
				"COALESCE(SUM(referral_count), 0) AS total_referrals, "+
				"COALESCE(SUM(total_earnings), 0) AS total_earnings",
			strings.TrimSpace(eliteTier),
		).
		Scan(&row).Error
	if err != nil {
		return PartnerSummaryAggregate{}, err
	}
	return PartnerSummaryAggregate{
		TotalPartners:  row.TotalPartners,
		ElitePartners:  row.ElitePartners,
		TotalReferrals: row.TotalReferrals,
		TotalEarnings:  row.TotalEarnings.Round(2),
	}, nil
}

func (r *GormPartnerRepository) filteredQuery(filter PartnerListFilter) *gorm.DB {
	query := r.db.Model(&models.Partner{})
	if tier := strings.TrimSpace(filter.Tier); tier != "" {
		query = query.Where("LOWER(tier) = ?", strings.ToLower(tier))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", strings.ToLower(status))
	}
	if condition, args := buildKeywordCondition(r.db, filter.Keyword, "name", "email", "code"); condition != "" {
		query = query.Where(condition, args...)
	}
	return query
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
