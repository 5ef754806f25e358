package constants

// 合作伙伴状态常量
const (
	PartnerStatusActive   = "active"
	PartnerStatusInactive = "inactive"
)

// 线索状态常量
const (
	LeadStatusNew      = "new"
	LeadStatusApproved = "approved"
	LeadStatusRejected = "rejected"
)

// 推荐计划默认参数
const (
	ReferralCodePrefix         = "VTX"
	ReferralPromotionThreshold = 3
	ReferralStoreTimeoutSecond = 8
	ReferralCodeMaxRetry       = 8
	ReferralCodeSuffixMin      = 1000
	ReferralCodeSuffixMax      = 9999
	DefaultUpgradeTierName     = "Nexus"
)

// 审核结果常量
const (
	AdjudicationOutcomeApproved        = "approved"
	AdjudicationOutcomeRejected        = "rejected"
	AdjudicationOutcomeAlreadyApproved = "already_approved"
	AdjudicationOutcomeAlreadyRejected = "already_rejected"
	AdjudicationOutcomeLeadNotFound    = "lead_not_found"
	AdjudicationOutcomePartnerNotFound = "partner_not_found"
)

// 验证码场景常量
const (
	CaptchaSceneAdminLogin    = "admin_login"
	CaptchaScenePartnerSignup = "partner_signup"
	CaptchaSceneLeadSubmit    = "lead_submit"
)

// 异步任务常量
const (
	QueueDefault             = "default"
	QueueCritical            = "critical"
	TaskPartnerCodeEmail     = "partner:code_email"
	TaskLedgerSummaryRefresh = "ledger:summary_refresh"
)

// 设置键常量
const (
	SettingKeyReferralTiers = "referral_tiers"
)

// 缓存键前缀
const (
	CacheKeyLedgerSummaryPrefix = "ledger:summary:"
	CacheKeyGuardPrefix         = "guard:"
	CacheKeyAdminAuthPrefix     = "auth:admin:"
)

// 审计动作常量
const (
	AuthzAuditActionSetAdminRoles = "set_admin_roles"
)
