package models

import "time"

// Partner 推荐合作伙伴
type Partner struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	Code            string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`                // 推荐码 VTX-XXX-####
	Name            string    `gorm:"type:varchar(100);not null" json:"name"`                           // 姓名
	Email           string    `gorm:"type:varchar(255);not null" json:"email"`                          // 邮箱（原样保存）
	EmailNormalized string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`                  // 小写邮箱，用于唯一约束
	Tier            string    `gorm:"type:varchar(50);index;not null" json:"tier"`                      // 当前等级名称
	Status          string    `gorm:"type:varchar(20);index;not null;default:'active'" json:"status"`   // active / inactive
	ReferralCount   int64     `gorm:"not null;default:0" json:"referral_count"`                         // 已批准线索数
	TotalEarnings   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_earnings"`      // 累计佣金
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `gorm:"index" json:"updated_at"`
}

// TableName 指定表名
func (Partner) TableName() string {
	return "partners"
}
