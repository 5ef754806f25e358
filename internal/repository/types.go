package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartnerListFilter 查询合作伙伴列表的过滤条件
type PartnerListFilter struct {
	Page     int
	PageSize int
	Tier     string
	Status   string
	Keyword  string // 匹配姓名、邮箱、推荐码
}

// LeadListFilter 查询线索列表的过滤条件
type LeadListFilter struct {
	Page         int
	PageSize     int
	Status       string
	ReferralCode string
	Keyword      string // 匹配客户姓名、电话、邮箱
}

// AuthzAuditLogListFilter 查询角色审计日志的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time // 不含
}

// PartnerSummaryAggregate 合作伙伴汇总统计
type PartnerSummaryAggregate struct {
	TotalPartners  int64
	ElitePartners  int64
	TotalReferrals int64
	TotalEarnings  decimal.Decimal
}

// CreditedLeadAggregate 按入账合作伙伴聚合的已批准线索
type CreditedLeadAggregate struct {
	PartnerID uint
	Count     int64
	Amount    decimal.Decimal
}
