package model

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// RejectType 驳回来源
type RejectType string

const (
	RejectNone  RejectType = ""
	RejectAdmin RejectType = "admin"
	RejectUser  RejectType = "user"
)

// MaxRejectCount 家长驳回次数上限
const MaxRejectCount = 3

// Order 订单模型
type Order struct {
	ID               uint64          `db:"id" json:"id"`
	OrderNo          string          `db:"order_no" json:"order_no"`
	OwnerID          uint64          `db:"owner_id" json:"owner_id"`
	PhotographerID   uint64          `db:"photographer_id" json:"photographer_id"`
	ActivityID       uint64          `db:"activity_id" json:"activity_id"`
	ActivityName     string          `db:"activity_name" json:"activity_name"`
	Category         string          `db:"category" json:"category"`
	IdentityPhoto    bool            `db:"identity_photo" json:"identity_photo"`
	ChildName        string          `db:"child_name" json:"child_name"`
	GuardianName     string          `db:"guardian_name" json:"guardian_name"`
	GuardianPhone    string          `db:"guardian_phone" json:"guardian_phone"`
	Remark           string          `db:"remark" json:"remark"`
	LockedPrice      decimal.Decimal `db:"locked_price" json:"locked_price"`
	PaymentStatus    PaymentStatus   `db:"payment_status" json:"payment_status"`
	Status           OrderStatus     `db:"status" json:"status"`
	Photos           StringList      `db:"photos" json:"photos"`
	LifePhotos       StringList      `db:"life_photos" json:"life_photos"`
	PhotographerNote string          `db:"photographer_note" json:"photographer_note"`
	RejectReason     string          `db:"reject_reason" json:"reject_reason"`
	RejectType       RejectType      `db:"reject_type" json:"reject_type"`
	RejectCount      int             `db:"reject_count" json:"reject_count"`
	StudentID        sql.NullString  `db:"student_id" json:"student_id,omitempty"`
	TradeNo          sql.NullString  `db:"trade_no" json:"-"`
	IdempotencyKey   sql.NullString  `db:"idempotency_key" json:"-"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	PaidAt           sql.NullTime    `db:"paid_at" json:"paid_at,omitempty"`
	SubmittedAt      sql.NullTime    `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewedAt       sql.NullTime    `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ConfirmedAt      sql.NullTime    `db:"confirmed_at" json:"confirmed_at,omitempty"`
	RejectedAt       sql.NullTime    `db:"rejected_at" json:"rejected_at,omitempty"`
	CancelledAt      sql.NullTime    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	EscalatedAt      sql.NullTime    `db:"escalated_at" json:"escalated_at,omitempty"`
	ResumedAt        sql.NullTime    `db:"resumed_at" json:"resumed_at,omitempty"`
	RefundedAt       sql.NullTime    `db:"refunded_at" json:"refunded_at,omitempty"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// AmountFen 锁定价格换算成分
func (o *Order) AmountFen() int64 {
	return ToFen(o.LockedPrice)
}

// RemainingRejects 剩余可驳回次数
func (o *Order) RemainingRejects() int {
	if o.RejectCount >= MaxRejectCount {
		return 0
	}
	return MaxRejectCount - o.RejectCount
}

// PaymentExpired 待支付订单是否已超过支付时限
func (o *Order) PaymentExpired(now time.Time, window time.Duration) bool {
	return o.Status == StatusPendingPayment &&
		o.PaymentStatus == PaymentUnpaid &&
		now.Sub(o.CreatedAt) > window
}

// ToFen 元转分
func ToFen(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// CertificatePhotoFrom 取最终确认照片中的第一张作为证件照。
// 这是业务约定：摄影师提交的第一张即证件照。
func CertificatePhotoFrom(photos StringList) (string, bool) {
	if len(photos) == 0 || photos[0] == "" {
		return "", false
	}
	return photos[0], true
}

// OrderGuard 条件更新的前置条件
type OrderGuard struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus // 为空表示不校验
	RejectCount   *int          // 为nil表示不校验
}

// Matches 判断订单当前是否满足前置条件
func (g OrderGuard) Matches(o *Order) bool {
	if o.Status != g.Status {
		return false
	}
	if g.PaymentStatus != "" && o.PaymentStatus != g.PaymentStatus {
		return false
	}
	if g.RejectCount != nil && o.RejectCount != *g.RejectCount {
		return false
	}
	return true
}

// OrderUpdate 一次状态迁移要写入的字段，nil 表示不修改
type OrderUpdate struct {
	Status           OrderStatus
	PaymentStatus    *PaymentStatus
	Photos           *StringList
	PhotographerNote *string
	RejectReason     *string
	RejectType       *RejectType
	RejectCount      *int
	TradeNo          *string
	PaidAt           *time.Time
	SubmittedAt      *time.Time
	ReviewedAt       *time.Time
	ConfirmedAt      *time.Time
	RejectedAt       *time.Time
	CancelledAt      *time.Time
	EscalatedAt      *time.Time
	ResumedAt        *time.Time
	RefundedAt       *time.Time
	UpdatedAt        time.Time
}

// Apply 把更新写到内存中的订单上
func (u OrderUpdate) Apply(o *Order) {
	if u.Status != "" {
		o.Status = u.Status
	}
	if u.PaymentStatus != nil {
		o.PaymentStatus = *u.PaymentStatus
	}
	if u.Photos != nil {
		o.Photos = u.Photos.Clone()
	}
	if u.PhotographerNote != nil {
		o.PhotographerNote = *u.PhotographerNote
	}
	if u.RejectReason != nil {
		o.RejectReason = *u.RejectReason
	}
	if u.RejectType != nil {
		o.RejectType = *u.RejectType
	}
	if u.RejectCount != nil {
		o.RejectCount = *u.RejectCount
	}
	if u.TradeNo != nil {
		o.TradeNo = sql.NullString{String: *u.TradeNo, Valid: *u.TradeNo != ""}
	}
	setTime(&o.PaidAt, u.PaidAt)
	setTime(&o.SubmittedAt, u.SubmittedAt)
	setTime(&o.ReviewedAt, u.ReviewedAt)
	setTime(&o.ConfirmedAt, u.ConfirmedAt)
	setTime(&o.RejectedAt, u.RejectedAt)
	setTime(&o.CancelledAt, u.CancelledAt)
	setTime(&o.EscalatedAt, u.EscalatedAt)
	setTime(&o.ResumedAt, u.ResumedAt)
	setTime(&o.RefundedAt, u.RefundedAt)
	o.UpdatedAt = u.UpdatedAt
}

func setTime(dst *sql.NullTime, t *time.Time) {
	if t != nil {
		*dst = sql.NullTime{Time: *t, Valid: true}
	}
}

// OrderFilter 订单列表筛选条件
type OrderFilter struct {
	OwnerID        uint64
	PhotographerID uint64
	Status         OrderStatus
	Page           int
	PageSize       int
}
