package admin

import (
	handlershared "github.com/vtx-referral/internal/http/handlers/shared"
	"github.com/vtx-referral/internal/provider"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 管理端接口，供审核员与运营维护合作伙伴、线索和等级
type Handler struct {
	*provider.Container
}

// New 创建管理端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// requestLog 附带 request_id 与当前管理员
func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c).With("admin_id", currentAdminID(c))
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondServiceError(c *gin.Context, err error, fallbackKey string, rules ...handlershared.MappedError) {
	handlershared.RespondServiceError(c, err, fallbackKey, rules...)
}
