package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vtx-referral/internal/constants"
	"github.com/vtx-referral/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LeadRepository 线索数据访问接口
type LeadRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) LeadRepository
	WithContext(ctx context.Context) LeadRepository

	GetByID(id uint) (*models.Lead, error)
	ListAll() ([]models.Lead, error)
	List(filter LeadListFilter) ([]models.Lead, int64, error)
	Create(lead *models.Lead) error
	Delete(id uint) error

	ClaimNew(id uint, status string, adminID uint, at time.Time) (bool, error)
	RecordCredit(id uint, partnerID uint, tier string, amount decimal.Decimal) error
	AggregateCredited() ([]CreditedLeadAggregate, error)
}

// GormLeadRepository GORM 实现
type GormLeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository 创建线索仓库
func NewLeadRepository(db *gorm.DB) *GormLeadRepository {
	return &GormLeadRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLeadRepository) WithTx(tx *gorm.DB) LeadRepository {
	if tx == nil {
		return r
	}
	return &GormLeadRepository{db: tx}
}

// WithContext 绑定请求上下文
func (r *GormLeadRepository) WithContext(ctx context.Context) LeadRepository {
	if ctx == nil {
		return r
	}
	return &GormLeadRepository{db: r.db.WithContext(ctx)}
}

// Transaction 执行事务
func (r *GormLeadRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按 ID 获取线索
func (r *GormLeadRepository) GetByID(id uint) (*models.Lead, error) {
	if id == 0 {
		return nil, nil
	}
	var lead models.Lead
	if err := r.db.First(&lead, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lead, nil
}

// ListAll 获取全部线索
func (r *GormLeadRepository) ListAll() ([]models.Lead, error) {
	leads := make([]models.Lead, 0)
	if err := r.db.Order("id ASC").Find(&leads).Error; err != nil {
		return nil, err
	}
	return leads, nil
}

// List 分页查询线索
func (r *GormLeadRepository) List(filter LeadListFilter) ([]models.Lead, int64, error) {
	query := r.db.Model(&models.Lead{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", strings.ToLower(status))
	}
	if code := strings.TrimSpace(filter.ReferralCode); code != "" {
		query = query.Where("referral_code = ?", strings.ToUpper(code))
	}
	if condition, args := buildKeywordCondition(r.db, filter.Keyword, "client_name", "client_phone", "client_email"); condition != "" {
		query = query.Where(condition, args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	leads := make([]models.Lead, 0)
	if err := query.Order("submitted_at DESC, id DESC").Find(&leads).Error; err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// Create 创建线索
func (r *GormLeadRepository) Create(lead *models.Lead) error {
	if lead == nil {
		return nil
	}
	return r.db.Create(lead).Error
}

// Delete 删除线索，不回滚已入账佣金
func (r *GormLeadRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Lead{}, id).Error
}

// ClaimNew 仅当线索仍为 new 时切换状态，返回是否抢占成功
func (r *GormLeadRepository) ClaimNew(id uint, status string, adminID uint, at time.Time) (bool, error) {
	if id == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Lead{}).
		Where("id = ? AND status = ?", id, constants.LeadStatusNew).
		Updates(map[string]interface{}{
			"status":         status,
			"adjudicated_at": at,
			"adjudicated_by": adminID,
			"updated_at":     at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecordCredit 记录批准时的入账快照
func (r *GormLeadRepository) RecordCredit(id uint, partnerID uint, tier string, amount decimal.Decimal) error {
	return r.db.Model(&models.Lead{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"credited_partner_id": partnerID,
			"credited_tier":       tier,
			"credited_amount":     amount.Round(2),
		}).Error
}

// AggregateCredited 按入账合作伙伴聚合已批准线索
func (r *GormLeadRepository) AggregateCredited() ([]CreditedLeadAggregate, error) {
	var rows []struct {
		PartnerID uint
		LeadCount int64
		Amount    decimal.Decimal
	}
	err := r.db.Model(&models.Lead{}).
		Select("credited_partner_id AS partner_id, COUNT(*) AS lead_count, COALESCE(SUM(credited_amount), 0) AS amount").
		Where("status = ? AND credited_partner_id IS NOT NULL", constants.LeadStatusApproved).
		Group("credited_partner_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]CreditedLeadAggregate, 0, len(rows))
	for _, row := range rows {
		result = append(result, CreditedLeadAggregate{
			PartnerID: row.PartnerID,
			Count:     row.LeadCount,
			Amount:    row.Amount.Round(2),
		})
	}
	return result, nil
}
