package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/vtx-referral/internal/http/handlers/shared"
	"github.com/vtx-referral/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.RequireContextUint(c, handlershared.ContextKeyAdminID)
}

func currentAdminID(c *gin.Context) uint {
	id, _ := handlershared.ContextUint(c, handlershared.ContextKeyAdminID)
	return id
}

func currentUsername(c *gin.Context) string {
	return handlershared.ContextString(c, handlershared.ContextKeyUsername)
}

func currentRequestID(c *gin.Context) string {
	return handlershared.ContextString(c, handlershared.ContextKeyRequestID)
}

// parseIDParam 读取路径中的数字 id，非法时直接响应 400
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(id), true
}

// parseDateQuery 解析 RFC3339 或 YYYY-MM-DD，纯日期的 created_to 视为当天结束
func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, true
	}
	parsed, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return nil, false
	}
	if strings.HasSuffix(name, "_to") {
		parsed = parsed.AddDate(0, 0, 1)
	}
	return &parsed, true
}
