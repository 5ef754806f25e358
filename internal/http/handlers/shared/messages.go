package shared

// 错误提示文案，接口只返回英文
var messages = map[string]string{
	"error.bad_request":                "Invalid request",
	"error.unauthorized":               "Unauthorized",
	"error.forbidden":                  "Forbidden",
	"error.token_invalid":              "Invalid or expired token",
	"error.rate_limited":               "Too many requests, please retry in %d seconds",
	"error.rate_limit_unavailable":     "Rate limiter unavailable",
	"error.auth_header_missing":        "Authorization header is required",
	"error.auth_header_invalid":        "Authorization header must be a Bearer token",
	"error.jwt_secret_missing":         "JWT secret is not configured",
	"error.token_revoked":              "Token has been revoked",
	"error.internal":                   "Internal server error",
	"error.connection_failed":          "Connection Failed",
	"error.validation_failed":          "Validation failed",
	"error.invalid_credentials":        "Invalid username or password",
	"error.invalid_old_password":       "Current password is incorrect",
	"error.password_weak":              "Password does not meet the policy",
	"error.password_min_length":        "Password must be at least %d characters",
	"error.password_max_length":        "Password must be at most %d bytes",
	"error.password_require_upper":     "Password must contain an uppercase letter",
	"error.password_require_lower":     "Password must contain a lowercase letter",
	"error.password_require_number":    "Password must contain a number",
	"error.login_failed":               "Login failed",
	"error.captcha_required":           "Please complete the captcha",
	"error.captcha_invalid":            "Captcha is incorrect",
	"error.captcha_config_invalid":     "Captcha is not available",
	"error.captcha_generate_failed":    "Failed to generate captcha",
	"error.partner_not_found":          "Partner not found",
	"error.partner_email_duplicate":    "This email is already registered",
	"error.partner_code_duplicate":     "This referral code is already in use",
	"error.partner_code_exhausted":     "Could not generate a unique referral code, please retry",
	"error.partner_notify_failed":      "Referral code created, but the notification could not be sent",
	"error.partner_lookup_mismatch":    "Referral code and email do not match",
	"error.issue_in_progress":          "A referral code request is already in progress",
	"error.partner_fetch_failed":       "Failed to load partners",
	"error.lead_not_found":             "Lead not found",
	"error.lead_status_invalid":        "Lead status does not allow this action",
	"error.adjudication_in_progress":   "Lead is being reviewed",
	"error.tier_config_invalid":        "Tier configuration is invalid",
	"error.email_invalid":              "Email is invalid",
	"error.email_service_disabled":     "Email service is disabled",
	"error.email_service_unconfigured": "Email service is not configured",
	"error.role_invalid":               "Role is invalid",
	"error.authz_unavailable":          "Authorization service unavailable",
	"error.not_found":                  "Resource not found",
}

// Message 根据 key 返回提示文案，未知 key 原样返回
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}
