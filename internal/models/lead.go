package models

import "time"

// Lead 合作伙伴提交的客户线索
type Lead struct {
	ID                uint       `gorm:"primarykey" json:"id"`
	ReferralCode      string     `gorm:"type:varchar(32);index;not null" json:"referral_code"`
	ClientName        string     `gorm:"type:varchar(100);not null" json:"client_name"`
	ClientPhone       string     `gorm:"type:varchar(32);not null" json:"client_phone"`
	ClientEmail       string     `gorm:"type:varchar(255);not null;default:''" json:"client_email"`
	ProjectType       string     `gorm:"type:varchar(100);not null" json:"project_type"`
	Notes             string     `gorm:"type:text" json:"notes"`
	Status            string     `gorm:"type:varchar(20);index;not null;default:'new'" json:"status"` // new / approved / rejected
	SubmittedAt       time.Time  `gorm:"index" json:"submitted_at"`
	AdjudicatedAt     *time.Time `json:"adjudicated_at,omitempty"`
	AdjudicatedBy     uint       `gorm:"not null;default:0" json:"adjudicated_by"`
	CreditedPartnerID *uint      `gorm:"index" json:"credited_partner_id,omitempty"` // 入账的合作伙伴
	CreditedTier      string     `gorm:"type:varchar(50);not null;default:''" json:"credited_tier"`
	CreditedAmount    Money      `gorm:"type:decimal(20,2);not null;default:0" json:"credited_amount"` // 批准时计入的佣金
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Lead) TableName() string {
	return "leads"
}
