package types

import "github.com/shopspring/decimal"

// CreateOrderRequest 下单请求，幂等键通过 Idempotency-Key 请求头传递
type CreateOrderRequest struct {
	ActivityID     uint64   `json:"activity_id" binding:"required"`
	PhotographerID uint64   `json:"photographer_id" binding:"required"`
	ChildName      string   `json:"child_name"`
	GuardianName   string   `json:"guardian_name"`
	GuardianPhone  string   `json:"guardian_phone"`
	Remark         string   `json:"remark"`
	LifePhotos     []string `json:"life_photos"`
}

// PayOrderRequest 拉起支付请求，金额单位为分
type PayOrderRequest struct {
	OrderNo string `json:"order_no" binding:"required"`
	Amount  int64  `json:"amount" binding:"required"`
}

// RejectOrderRequest 家长驳回请求
type RejectOrderRequest struct {
	Reason string `json:"reason"`
}

// SubmitWorkRequest 摄影师提交照片
type SubmitWorkRequest struct {
	Photos []string `json:"photos"`
	Note   string   `json:"note"`
}

// ReviewOrderRequest 管理员审核
type ReviewOrderRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Reason  string `json:"reason"`
}

// EscalateOrderRequest 转售后
type EscalateOrderRequest struct {
	Note string `json:"note"`
}

// UpdateStudentRequest 家长修改档案
type UpdateStudentRequest struct {
	Name             string `json:"name"`
	GuardianContact  string `json:"guardian_contact"`
	CertificatePhoto string `json:"certificate_photo"`
}

// OverrideCertificateRequest 管理员替换证件照
type OverrideCertificateRequest struct {
	Photo string `json:"photo" binding:"required"`
}

// CreateActivityRequest 创建活动
type CreateActivityRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	IsActive    *bool           `json:"is_active"`
}

// UpdatePriceRequest 调整活动价格
type UpdatePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

// ListQuery 分页查询参数
type ListQuery struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
}
