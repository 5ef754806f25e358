package response

// 响应体 status_code，HTTP 状态码固定为 200
const (
	CodeOK              = 0
	CodePartial         = 207 // 合作伙伴已创建但推荐码通知失败
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409 // 重复邮箱、推荐码冲突或线索状态不符
	CodeTooManyRequests = 429
	CodeInternal        = 500
	CodeUnavailable     = 503 // 存储不可达，msg 固定为 Connection Failed
)
