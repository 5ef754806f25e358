package models

import "time"

// AuthzAuditLog 后台角色变更审计日志
type AuthzAuditLog struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	OperatorAdminID  uint      `gorm:"index;not null" json:"operator_admin_id"`
	OperatorUsername string    `gorm:"type:varchar(100);not null;default:''" json:"operator_username"`
	TargetAdminID    uint      `gorm:"index;not null" json:"target_admin_id"`
	Action           string    `gorm:"type:varchar(100);index;not null" json:"action"`
	Roles            string    `gorm:"type:varchar(500);not null;default:''" json:"roles"` // 逗号分隔
	RequestID        string    `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AuthzAuditLog) TableName() string {
	return "authz_audit_logs"
}
