package admin

import (
	"github.com/vtx-referral/internal/http/handlers/shared"
	"github.com/vtx-referral/internal/http/response"
	"github.com/vtx-referral/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListLeads 线索列表
func (h *Handler) ListLeads(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	leads, total := h.LeadService.List(c.Request.Context(), repository.LeadListFilter{
		Page:         page,
		PageSize:     pageSize,
		Status:       c.Query("status"),
		ReferralCode: c.Query("referral_code"),
		Keyword:      c.Query("keyword"),
	})
	response.SuccessWithPage(c, leads, response.BuildPagination(page, pageSize, total))
}

// GetLead 线索详情
func (h *Handler) GetLead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	lead, err := h.LeadService.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, lead)
}

// ApproveLead 批准线索并为合作伙伴入账
// 线索不存在或已审核时返回无操作结果
func (h *Handler) ApproveLead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.AdjudicationService.Approve(c.Request.Context(), id, currentAdminID(c))
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, result)
}

// RejectLead 拒绝线索，不影响账本
func (h *Handler) RejectLead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.AdjudicationService.Reject(c.Request.Context(), id, currentAdminID(c))
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, result)
}

// DeleteLead 删除线索
func (h *Handler) DeleteLead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.LeadService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, nil)
}
