package public

import "github.com/vtx-referral/internal/provider"

// Handler 公开接口，无需登录，入口处由验证码与限流保护
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
