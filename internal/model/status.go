package model

import "fmt"

// OrderStatus 订单状态
type OrderStatus string

const (
	StatusPendingPayment OrderStatus = "pending_payment" // 待支付
	StatusInProgress     OrderStatus = "in_progress"     // 拍摄/修图中
	StatusPendingReview  OrderStatus = "pending_review"  // 待审核
	StatusPendingConfirm OrderStatus = "pending_confirm" // 待家长确认
	StatusCompleted      OrderStatus = "completed"       // 已完成
	StatusCancelled      OrderStatus = "cancelled"       // 已取消
	StatusRefunded       OrderStatus = "refunded"        // 已退款
	StatusAfterSale      OrderStatus = "after_sale"      // 售后处理中
)

// AllStatuses 全部订单状态
var AllStatuses = []OrderStatus{
	StatusPendingPayment,
	StatusInProgress,
	StatusPendingReview,
	StatusPendingConfirm,
	StatusCompleted,
	StatusCancelled,
	StatusRefunded,
	StatusAfterSale,
}

// Valid 判断状态值是否合法
func (s OrderStatus) Valid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal 终态不再接受任何事件
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

// Label 状态中文名
func (s OrderStatus) Label() string {
	switch s {
	case StatusPendingPayment:
		return "待支付"
	case StatusInProgress:
		return "进行中"
	case StatusPendingReview:
		return "待审核"
	case StatusPendingConfirm:
		return "待确认"
	case StatusCompleted:
		return "已完成"
	case StatusCancelled:
		return "已取消"
	case StatusRefunded:
		return "已退款"
	case StatusAfterSale:
		return "售后中"
	default:
		return string(s)
	}
}

// OrderEvent 驱动状态迁移的事件
type OrderEvent string

const (
	EventPay         OrderEvent = "pay"
	EventSubmit      OrderEvent = "submit"
	EventApprove     OrderEvent = "approve"
	EventAdminReject OrderEvent = "admin_reject"
	EventUserReject  OrderEvent = "user_reject"
	EventUserConfirm OrderEvent = "user_confirm"
	EventCancel      OrderEvent = "cancel"
	EventExpire      OrderEvent = "expire"
	EventRefund      OrderEvent = "refund"
	EventEscalate    OrderEvent = "escalate"
	EventResume      OrderEvent = "resume"
)

// AllEvents 全部事件
var AllEvents = []OrderEvent{
	EventPay,
	EventSubmit,
	EventApprove,
	EventAdminReject,
	EventUserReject,
	EventUserConfirm,
	EventCancel,
	EventExpire,
	EventRefund,
	EventEscalate,
	EventResume,
}

type transitionKey struct {
	from  OrderStatus
	event OrderEvent
}

// transitions 是合法迁移的唯一来源
var transitions = map[transitionKey]OrderStatus{
	{StatusPendingPayment, EventPay}:    StatusInProgress,
	{StatusPendingPayment, EventCancel}: StatusCancelled,
	{StatusPendingPayment, EventExpire}: StatusCancelled,

	{StatusInProgress, EventSubmit}:    StatusPendingReview,
	{StatusPendingReview, EventSubmit}: StatusPendingReview,

	{StatusPendingReview, EventApprove}:     StatusPendingConfirm,
	{StatusPendingReview, EventAdminReject}: StatusInProgress,

	{StatusPendingConfirm, EventUserConfirm}: StatusCompleted,
	{StatusPendingConfirm, EventUserReject}:  StatusInProgress,

	{StatusInProgress, EventEscalate}:     StatusAfterSale,
	{StatusPendingReview, EventEscalate}:  StatusAfterSale,
	{StatusPendingConfirm, EventEscalate}: StatusAfterSale,
	{StatusCompleted, EventEscalate}:      StatusAfterSale,
	{StatusAfterSale, EventResume}:        StatusInProgress,

	{StatusInProgress, EventRefund}:     StatusRefunded,
	{StatusPendingReview, EventRefund}:  StatusRefunded,
	{StatusPendingConfirm, EventRefund}: StatusRefunded,
	{StatusAfterSale, EventRefund}:      StatusRefunded,
}

// Next 返回事件作用后的目标状态
func Next(from OrderStatus, event OrderEvent) (OrderStatus, bool) {
	to, ok := transitions[transitionKey{from: from, event: event}]
	return to, ok
}

// SourcesOf 返回能接受该事件的所有状态
func SourcesOf(event OrderEvent) []OrderStatus {
	var out []OrderStatus
	for _, st := range AllStatuses {
		if _, ok := Next(st, event); ok {
			out = append(out, st)
		}
	}
	return out
}

// TransitionError 非法状态迁移
type TransitionError struct {
	From  OrderStatus
	Event OrderEvent
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("订单状态为%s，无法执行%s", e.From.Label(), e.Event)
}
