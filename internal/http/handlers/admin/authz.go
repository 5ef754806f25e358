package admin

import (
	"errors"
	"strconv"

	"github.com/vtx-referral/internal/authz"
	"github.com/vtx-referral/internal/constants"
	"github.com/vtx-referral/internal/http/handlers/shared"
	"github.com/vtx-referral/internal/http/response"
	"github.com/vtx-referral/internal/logger"
	"github.com/vtx-referral/internal/repository"
	"github.com/vtx-referral/internal/service"

	"github.com/gin-gonic/gin"
)

type setAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

// GetAuthzMe 当前管理员的角色与策略
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_unavailable", err)
		return
	}
	policies, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_unavailable", err)
		return
	}
	response.Success(c, gin.H{
		"admin_id": admin.ID,
		"username": admin.Username,
		"is_super": admin.IsSuper,
		"roles":    roles,
		"policies": policies,
	})
}

// ListAuthzRoles 可分配角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	response.Success(c, h.AuthzService.ListRoles())
}

// SetAuthzAdminRoles 覆盖管理员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req setAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	target, err := h.AdminRepo.GetByID(targetID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if target == nil {
		respondError(c, response.CodeNotFound, "error.not_found", nil)
		return
	}

	roles, err := h.AuthzService.SetAdminRoles(targetID, req.Roles)
	if err != nil {
		if errors.Is(err, authz.ErrUnknownRole) {
			respondError(c, response.CodeBadRequest, "error.role_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.authz_unavailable", err)
		return
	}

	if err := h.AuthzAuditService.Record(c.Request.Context(), service.AuthzAuditRecordInput{
		OperatorAdminID:  currentAdminID(c),
		OperatorUsername: currentUsername(c),
		TargetAdminID:    targetID,
		Action:           constants.AuthzAuditActionSetAdminRoles,
		Roles:            roles,
		RequestID:        currentRequestID(c),
	}); err != nil {
		requestLog(c).Warnw("admin_authz_audit_record_failed", "target_admin_id", targetID, "error", err)
	}
	logger.Infow("admin_authz_roles_updated",
		"operator_admin_id", currentAdminID(c),
		"target_admin_id", targetID,
		"roles", roles,
	)
	response.Success(c, gin.H{"admin_id": targetID, "roles": roles})
}

// ListAuthzAuditLogs 角色变更审计日志
func (h *Handler) ListAuthzAuditLogs(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	operatorID, _ := strconv.ParseUint(c.Query("operator_admin_id"), 10, 64)
	targetID, _ := strconv.ParseUint(c.Query("target_admin_id"), 10, 64)

	from, ok := parseDateQuery(c, "created_from")
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "created_to")
	if !ok {
		return
	}

	logs, total, err := h.AuthzAuditService.List(c.Request.Context(), repository.AuthzAuditLogListFilter{
		Page:            page,
		PageSize:        pageSize,
		OperatorAdminID: uint(operatorID),
		TargetAdminID:   uint(targetID),
		Action:          c.Query("action"),
		CreatedFrom:     from,
		CreatedTo:       to,
	})
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.SuccessWithPage(c, logs, response.BuildPagination(page, pageSize, total))
}
