package shared

import (
	"github.com/vtx-referral/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 中间件写入 gin.Context 的键
const (
	ContextKeyAdminID   = "admin_id"
	ContextKeyUsername  = "username"
	ContextKeyRequestID = "request_id"
)

// ContextUint 读取上下文中的 uint 值，缺失或类型不符时返回 false
func ContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

// ContextString 读取上下文中的字符串，缺失时返回空串
func ContextString(c *gin.Context, key string) string {
	return c.GetString(key)
}

// RequireContextUint 读取必需的 uint 值，缺失时响应 401
func RequireContextUint(c *gin.Context, key string) (uint, bool) {
	id, ok := ContextUint(c, key)
	if !ok || id == 0 {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	return id, true
}
