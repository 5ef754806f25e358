package public

import (
	"strings"

	"github.com/vtx-referral/internal/constants"
	"github.com/vtx-referral/internal/http/handlers/shared"
	"github.com/vtx-referral/internal/http/response"
	"github.com/vtx-referral/internal/service"

	"github.com/gin-gonic/gin"
)

// IssuePartnerRequest 申请推荐码
type IssuePartnerRequest struct {
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	CaptchaPayload CaptchaPayload `json:"captcha_payload"`
}

// LookupPartnerRequest 凭推荐码与邮箱查询
type LookupPartnerRequest struct {
	Code  string `json:"code"`
	Email string `json:"email"`
}

// SubmitLeadRequest 提交客户线索
type SubmitLeadRequest struct {
	ReferralCode   string         `json:"referral_code"`
	ClientName     string         `json:"client_name"`
	ClientPhone    string         `json:"client_phone"`
	ClientEmail    string         `json:"client_email"`
	ProjectType    string         `json:"project_type"`
	Notes          string         `json:"notes"`
	CaptchaPayload CaptchaPayload `json:"captcha_payload"`
}

// GetTiers 公开的等级与佣金
func (h *Handler) GetTiers(c *gin.Context) {
	setting, err := h.SettingService.GetTierSetting(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, setting)
}

// IssuePartner 新合作伙伴申请推荐码
// 通知失败时合作伙伴已创建，返回 207 与推荐码
func (h *Handler) IssuePartner(c *gin.Context) {
	var req IssuePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if !h.verifyCaptcha(c, constants.CaptchaScenePartnerSignup, req.CaptchaPayload) {
		return
	}

	result, err := h.PartnerService.Issue(c.Request.Context(), service.PartnerIssueInput{
		Name:      req.Name,
		Email:     req.Email,
		CallerKey: callerKey(c),
	})
	if service.IsPartialIssue(result, err) {
		shared.RequestLog(c).Warnw("public_partner_issue_notify_failed", "partner_id", result.Partner.ID, "error", err)
		response.Partial(c, shared.Message("error.partner_notify_failed"), gin.H{"partner": result.Partner})
		return
	}
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, result)
}

// LookupPartner 合作伙伴查询自己的推荐数与佣金
func (h *Handler) LookupPartner(c *gin.Context) {
	var req LookupPartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	partner, err := h.PartnerService.Lookup(c.Request.Context(), req.Code, req.Email)
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, partner)
}

// SubmitLead 提交客户线索，推荐码只校验格式
func (h *Handler) SubmitLead(c *gin.Context) {
	var req SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if !h.verifyCaptcha(c, constants.CaptchaSceneLeadSubmit, req.CaptchaPayload) {
		return
	}
	lead, err := h.LeadService.Submit(c.Request.Context(), service.LeadSubmitInput{
		ReferralCode: req.ReferralCode,
		ClientName:   req.ClientName,
		ClientPhone:  req.ClientPhone,
		ClientEmail:  req.ClientEmail,
		ProjectType:  req.ProjectType,
		Notes:        req.Notes,
	})
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, gin.H{
		"id":            lead.ID,
		"referral_code": lead.ReferralCode,
		"status":        lead.Status,
		"submitted_at":  lead.SubmittedAt,
	})
}

// callerKey 优先使用前端会话标识，其次客户端 IP
func callerKey(c *gin.Context) string {
	if session := strings.TrimSpace(c.GetHeader("X-Session-ID")); session != "" {
		return "session:" + session
	}
	return "ip:" + c.ClientIP()
}
