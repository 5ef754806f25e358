package admin

import (
	"github.com/vtx-referral/internal/http/response"
	"github.com/vtx-referral/internal/service"

	"github.com/gin-gonic/gin"
)

// GetTiers 当前等级配置
func (h *Handler) GetTiers(c *gin.Context) {
	setting, err := h.SettingService.GetTierSetting(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, setting)
}

// UpdateTiers 整体替换等级配置，仅影响之后批准的线索
func (h *Handler) UpdateTiers(c *gin.Context) {
	var req service.TierSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	setting, err := h.SettingService.UpdateTierSetting(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "error.tier_config_invalid")
		return
	}
	h.LedgerService.InvalidateSummary(c.Request.Context(), "tiers_updated")
	requestLog(c).Infow("admin_tiers_updated", "admin_id", currentAdminID(c), "tiers", len(setting.Tiers), "upgrade_tier", setting.UpgradeTier)
	response.Success(c, setting)
}
