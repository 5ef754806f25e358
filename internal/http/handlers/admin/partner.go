package admin

import (
	"errors"
	"strconv"

	"github.com/vtx-referral/internal/http/handlers/shared"
	"github.com/vtx-referral/internal/http/response"
	"github.com/vtx-referral/internal/repository"
	"github.com/vtx-referral/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdatePartnerRequest 编辑合作伙伴，空字段保持原值
type UpdatePartnerRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Code   string `json:"code"`
	Tier   string `json:"tier"`
	Status string `json:"status"`
}

// UpdatePartnerStatusRequest 启用或停用合作伙伴
type UpdatePartnerStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func partnerFilterFromQuery(c *gin.Context) repository.PartnerListFilter {
	page, pageSize := shared.ParsePagination(c)
	return repository.PartnerListFilter{
		Page:     page,
		PageSize: pageSize,
		Tier:     c.Query("tier"),
		Status:   c.Query("status"),
		Keyword:  c.Query("keyword"),
	}
}

// ListPartners 合作伙伴账本列表
func (h *Handler) ListPartners(c *gin.Context) {
	filter := partnerFilterFromQuery(c)
	partners, total := h.LedgerService.List(c.Request.Context(), filter)
	response.SuccessWithPage(c, partners, response.BuildPagination(filter.Page, filter.PageSize, total))
}

// GetPartnerSummary 账本汇总
func (h *Handler) GetPartnerSummary(c *gin.Context) {
	summary, err := h.LedgerService.Summary(c.Request.Context(), partnerFilterFromQuery(c))
	if err != nil {
		respondServiceError(c, err, "error.partner_fetch_failed")
		return
	}
	response.Success(c, summary)
}

// ReconcilePartners 按已批准线索重算账本，apply=true 时写回
func (h *Handler) ReconcilePartners(c *gin.Context) {
	apply, _ := strconv.ParseBool(c.DefaultQuery("apply", "false"))
	report, err := h.LedgerService.Reconcile(c.Request.Context(), apply)
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	requestLog(c).Infow("admin_partner_reconcile",
		"admin_id", currentAdminID(c),
		"apply", apply,
		"checked", report.Checked,
		"drifts", len(report.Drifts),
	)
	response.Success(c, report)
}

// GetPartner 合作伙伴详情
func (h *Handler) GetPartner(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	partner, err := h.PartnerService.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "error.partner_fetch_failed")
		return
	}
	response.Success(c, partner)
}

// UpdatePartner 编辑合作伙伴资料
func (h *Handler) UpdatePartner(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	partner, err := h.PartnerService.Update(c.Request.Context(), id, service.PartnerUpdateInput{
		Name:   req.Name,
		Email:  req.Email,
		Code:   req.Code,
		Tier:   req.Tier,
		Status: req.Status,
	})
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, partner)
}

// UpdatePartnerStatus 启用或停用合作伙伴
func (h *Handler) UpdatePartnerStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdatePartnerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	partner, err := h.PartnerService.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, partner)
}

// ResendPartnerCode 重新发送推荐码通知
func (h *Handler) ResendPartnerCode(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	partner, err := h.PartnerService.ResendCode(c.Request.Context(), id)
	if err != nil {
		if partner != nil && errors.Is(err, service.ErrPartnerNotifyFailed) {
			response.Partial(c, shared.Message("error.partner_notify_failed"), gin.H{"partner": partner})
			requestLog(c).Warnw("admin_partner_resend_failed", "partner_id", id, "error", err)
			return
		}
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, partner)
}

// DeletePartner 删除合作伙伴，其线索保留
func (h *Handler) DeletePartner(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.PartnerService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, nil)
}
