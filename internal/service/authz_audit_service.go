package service

import (
	"context"
	"strings"
	"time"

	"github.com/vtx-referral/internal/models"
	"github.com/vtx-referral/internal/repository"
)

// AuthzAuditRecordInput 角色变更审计输入
type AuthzAuditRecordInput struct {
	OperatorAdminID  uint
	OperatorUsername string
	TargetAdminID    uint
	Action           string
	Roles            []string
	RequestID        string
}

// AuthzAuditService 角色审计服务
type AuthzAuditService struct {
	repo repository.AuthzAuditLogRepository
}

// NewAuthzAuditService 创建角色审计服务
func NewAuthzAuditService(repo repository.AuthzAuditLogRepository) *AuthzAuditService {
	return &AuthzAuditService{repo: repo}
}

// Record 记录审计日志，操作人或动作为空时忽略
func (s *AuthzAuditService) Record(ctx context.Context, input AuthzAuditRecordInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	action := strings.TrimSpace(input.Action)
	if input.OperatorAdminID == 0 || action == "" {
		return nil
	}
	roles := make([]string, 0, len(input.Roles))
	for _, role := range input.Roles {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return s.repo.WithContext(ctx).Create(&models.AuthzAuditLog{
		OperatorAdminID:  input.OperatorAdminID,
		OperatorUsername: strings.TrimSpace(input.OperatorUsername),
		TargetAdminID:    input.TargetAdminID,
		Action:           action,
		Roles:            strings.Join(roles, ","),
		RequestID:        strings.TrimSpace(input.RequestID),
		CreatedAt:        time.Now(),
	})
}

// List 分页查询审计日志
func (s *AuthzAuditService) List(ctx context.Context, filter repository.AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuthzAuditLog{}, 0, nil
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && !filter.CreatedFrom.Before(*filter.CreatedTo) {
		return []models.AuthzAuditLog{}, 0, nil
	}
	items, total, err := s.repo.WithContext(ctx).List(filter)
	if err != nil {
		return nil, 0, wrapStoreError(err)
	}
	return items, total, nil
}
