package public

import (
	"errors"
	"strings"

	"github.com/vtx-referral/internal/http/response"
	"github.com/vtx-referral/internal/service"

	"github.com/gin-gonic/gin"
)

// CaptchaPayload 请求体中的验证码字段
type CaptchaPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

func (p CaptchaPayload) toService() service.CaptchaVerifyPayload {
	return service.CaptchaVerifyPayload{
		CaptchaID:   strings.TrimSpace(p.CaptchaID),
		CaptchaCode: strings.TrimSpace(p.CaptchaCode),
	}
}

// GetPublicConfig 前台需要的开关配置
func (h *Handler) GetPublicConfig(c *gin.Context) {
	response.Success(c, gin.H{
		"captcha": h.CaptchaService.PublicSetting(),
	})
}

// GetImageCaptcha 获取图片验证码挑战
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	if h.CaptchaService == nil {
		respondError(c, response.CodeInternal, "error.captcha_config_invalid", service.ErrCaptchaConfigInvalid)
		return
	}

	challenge, err := h.CaptchaService.GenerateImageChallenge()
	switch {
	case err == nil:
		response.Success(c, gin.H{
			"captcha_id":   challenge.CaptchaID,
			"image_base64": challenge.ImageBase64,
		})
	case errors.Is(err, service.ErrCaptchaConfigInvalid):
		respondError(c, response.CodeBadRequest, "error.captcha_config_invalid", nil)
	default:
		respondError(c, response.CodeInternal, "error.captcha_generate_failed", err)
	}
}

// verifyCaptcha 校验场景验证码，失败时已写出响应
func (h *Handler) verifyCaptcha(c *gin.Context, scene string, payload CaptchaPayload) bool {
	if h.CaptchaService == nil {
		return true
	}
	err := h.CaptchaService.Verify(scene, payload.toService())
	switch {
	case err == nil:
		return true
	case errors.Is(err, service.ErrCaptchaRequired):
		respondError(c, response.CodeBadRequest, "error.captcha_required", nil)
	case errors.Is(err, service.ErrCaptchaInvalid):
		respondError(c, response.CodeBadRequest, "error.captcha_invalid", nil)
	default:
		respondError(c, response.CodeInternal, "error.captcha_config_invalid", err)
	}
	return false
}
