package service

import "errors"

// Kind 业务错误分类
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
	KindInvalidState        Kind = "invalid_state"
	KindAmountMismatch      Kind = "amount_mismatch"
	KindAlreadyPaid         Kind = "already_paid"
	KindRejectLimitExceeded Kind = "reject_limit_exceeded"
	KindConflict            Kind = "conflict"
)

// Error 业务错误
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Is 按分类匹配，errors.Is(err, ErrNotFound) 对任意 not_found 错误成立
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation          = &Error{Kind: KindValidation, Msg: "参数错误"}
	ErrNotFound            = &Error{Kind: KindNotFound, Msg: "资源不存在"}
	ErrForbidden           = &Error{Kind: KindForbidden, Msg: "无权操作"}
	ErrInvalidState        = &Error{Kind: KindInvalidState, Msg: "订单状态不允许该操作"}
	ErrAmountMismatch      = &Error{Kind: KindAmountMismatch, Msg: "支付金额与订单金额不一致"}
	ErrAlreadyPaid         = &Error{Kind: KindAlreadyPaid, Msg: "订单已支付"}
	ErrRejectLimitExceeded = &Error{Kind: KindRejectLimitExceeded, Msg: "驳回次数已达上限"}
	ErrConflict            = &Error{Kind: KindConflict, Msg: "操作冲突，请稍后重试"}
)

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf 返回错误分类，非业务错误返回空串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
