package shared

import (
	"errors"
	"fmt"

	"github.com/vtx-referral/internal/http/response"
	"github.com/vtx-referral/internal/logger"
	"github.com/vtx-referral/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := ContextString(c, ContextKeyRequestID); id != "" {
		return logger.SW(ContextKeyRequestID, id)
	}
	return logger.S()
}

// RespondError 按 key 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondErrorWithMsg(c, code, Message(key), err)
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	appErr.Write(c)
}

// MappedError 业务错误到接口错误响应的映射
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// ReferralErrorRules 推荐计划通用错误映射
var ReferralErrorRules = []MappedError{
	{Target: service.ErrPartnerNotFound, Code: response.CodeNotFound, Key: "error.partner_not_found"},
	{Target: service.ErrPartnerEmailDuplicate, Code: response.CodeConflict, Key: "error.partner_email_duplicate"},
	{Target: service.ErrPartnerCodeDuplicate, Code: response.CodeConflict, Key: "error.partner_code_duplicate"},
	{Target: service.ErrPartnerCodeExhausted, Code: response.CodeConflict, Key: "error.partner_code_exhausted"},
	{Target: service.ErrPartnerLookupMismatch, Code: response.CodeNotFound, Key: "error.partner_lookup_mismatch"},
	{Target: service.ErrIssueInProgress, Code: response.CodeTooManyRequests, Key: "error.issue_in_progress"},
	{Target: service.ErrLeadNotFound, Code: response.CodeNotFound, Key: "error.lead_not_found"},
	{Target: service.ErrLeadStatusInvalid, Code: response.CodeConflict, Key: "error.lead_status_invalid"},
	{Target: service.ErrAdjudicationInProgress, Code: response.CodeConflict, Key: "error.adjudication_in_progress"},
	{Target: service.ErrTierConfigInvalid, Code: response.CodeBadRequest, Key: "error.tier_config_invalid"},
	{Target: service.ErrEmailServiceDisabled, Code: response.CodeBadRequest, Key: "error.email_service_disabled"},
	{Target: service.ErrEmailServiceNotConfigured, Code: response.CodeBadRequest, Key: "error.email_service_unconfigured"},
	{Target: service.ErrInvalidEmail, Code: response.CodeBadRequest, Key: "error.email_invalid"},
	{Target: service.ErrWeakPassword, Code: response.CodeBadRequest, Key: "error.password_weak"},
}

// RespondServiceError 统一处理 service 层错误
// 字段校验错误附带 data.errors，存储故障固定返回 Connection Failed
func RespondServiceError(c *gin.Context, err error, fallbackKey string, rules ...MappedError) {
	var fieldErrs service.FieldErrors
	if errors.As(err, &fieldErrs) {
		appErr := response.WrapError(response.CodeBadRequest, Message("error.validation_failed"), nil)
		appErr.Data = gin.H{"errors": fieldErrs}
		appErr.Write(c)
		return
	}
	if appErr, ok := response.AsAppError(err); ok {
		appErr.Write(c)
		return
	}
	if errors.Is(err, service.ErrConnectionFailed) {
		RespondError(c, response.CodeUnavailable, "error.connection_failed", err)
		return
	}
	var keyed interface {
		Key() string
		Args() []interface{}
	}
	if errors.As(err, &keyed) {
		RespondErrorWithMsg(c, response.CodeBadRequest, fmt.Sprintf(Message(keyed.Key()), keyed.Args()...), nil)
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	for _, rule := range ReferralErrorRules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, response.CodeInternal, fallbackKey, err)
}
