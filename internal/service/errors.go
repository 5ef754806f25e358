package service

import "errors"

var (
	ErrNotFound           = errors.New("资源不存在")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidPassword    = errors.New("原密码错误")
	ErrWeakPassword       = errors.New("密码强度不足")

	ErrConnectionFailed = errors.New("Connection Failed")
	ErrValidation       = errors.New("参数校验失败")

	ErrPartnerNotFound       = errors.New("合作伙伴不存在")
	ErrPartnerEmailDuplicate = errors.New("该邮箱已注册合作伙伴")
	ErrPartnerCodeDuplicate  = errors.New("推荐码已被占用")
	ErrPartnerCodeExhausted  = errors.New("推荐码生成失败")
	ErrPartnerNotifyFailed   = errors.New("推荐码通知发送失败")
	ErrPartnerNotifySkipped  = errors.New("推荐码通知通道未启用")
	ErrPartnerLookupMismatch = errors.New("推荐码与邮箱不匹配")
	ErrIssueInProgress       = errors.New("推荐码申请正在处理中")

	ErrLeadNotFound           = errors.New("线索不存在")
	ErrLeadStatusInvalid      = errors.New("线索状态不允许该操作")
	ErrAdjudicationInProgress = errors.New("线索正在审核中")

	ErrTierConfigInvalid = errors.New("等级配置无效")

	ErrEmailServiceDisabled      = errors.New("邮件服务未启用")
	ErrEmailServiceNotConfigured = errors.New("邮件服务未配置")
	ErrInvalidEmail              = errors.New("邮箱格式无效")

	ErrCaptchaRequired      = errors.New("请完成验证码")
	ErrCaptchaInvalid       = errors.New("验证码错误")
	ErrCaptchaConfigInvalid = errors.New("验证码配置无效")
)
