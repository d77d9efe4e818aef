package constants

// 通用错误消息
const (
	// 认证相关错误
	ErrUnauthorized           = "未授权，请先登录"
	ErrInvalidToken           = "无效的Token"
	ErrInsufficientPermission = "权限不足"

	// 参数相关错误
	ErrInvalidParams  = "参数错误"
	ErrInvalidRequest = "无效请求格式"
	ErrInvalidOrderID = "订单ID格式错误"

	// 订单相关错误
	ErrOrderNotFound        = "订单不存在"
	ErrNotOrderOwner        = "无权操作该订单"
	ErrChildNameEmpty       = "孩子姓名不能为空"
	ErrGuardianNameEmpty    = "监护人姓名不能为空"
	ErrGuardianPhoneEmpty   = "监护人电话不能为空"
	ErrActivityNotFound     = "活动不存在或已下架"
	ErrPhotographerNotFound = "摄影师不存在或已停用"
	ErrOrderCreating        = "订单正在创建中，请勿重复提交"
	ErrOrderNoConflict      = "订单号冲突，请重试"
	ErrAmountMismatch       = "支付金额与订单金额不一致"
	ErrOrderAlreadyPaid     = "订单已支付"
	ErrOrderStatusChanged   = "订单状态已变化，请刷新后重试"
	ErrPhotosEmpty          = "请至少上传一张照片"
	ErrRejectReasonTooShort = "驳回原因不能少于5个字"
	ErrRejectLimitExceeded  = "驳回次数已达上限，请确认或联系客服"
	ErrNotAssigned          = "该订单未分配给您"
	ErrPaymentUnavailable   = "支付通道暂不可用，请稍后重试"
	ErrInvalidNotify        = "支付回调校验失败"

	// 档案相关错误
	ErrStudentNotFound    = "学生档案不存在"
	ErrCertificateLocked  = "证件照已锁定，如需修改请联系管理员"
	ErrStudentNameEmpty   = "学生姓名不能为空"
	ErrStudentNameExists  = "该家长名下已有同名学生档案"
	ErrCertificateMissing = "证件照不能为空"

	// 系统错误
	ErrInternalServer       = "服务器内部错误"
	ErrOperationTooFrequent = "请求过于频繁，请稍后重试"
)

// 成功消息
const (
	SuccessCreate  = "创建成功"
	SuccessUpdate  = "更新成功"
	SuccessGet     = "获取成功"
	SuccessPay     = "获取支付参数成功"
	SuccessSubmit  = "提交成功"
	SuccessReview  = "审核完成"
	SuccessConfirm = "确认成功"
	SuccessReject  = "驳回成功"
	SuccessCancel  = "取消成功"
)
