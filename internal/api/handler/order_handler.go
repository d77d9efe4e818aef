package handler

import (
	"kidphoto/internal/constants"
	"kidphoto/internal/model"
	"kidphoto/internal/service"
	"kidphoto/internal/types"
	"kidphoto/pkg/logger"

	"github.com/gin-gonic/gin"
)

// IdempotencyHeader 下单幂等键请求头
const IdempotencyHeader = "Idempotency-Key"

// OrderHandler 家长端订单处理器
type OrderHandler struct {
	orders   *service.OrderService
	payments *service.PaymentService
	workflow *service.WorkflowService
	history  *service.HistoryService
	logger   *logger.Logger
}

// NewOrderHandler 创建家长端订单处理器
func NewOrderHandler(
	orders *service.OrderService,
	payments *service.PaymentService,
	workflow *service.WorkflowService,
	history *service.HistoryService,
	logger *logger.Logger,
) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		payments: payments,
		workflow: workflow,
		history:  history,
		logger:   logger,
	}
}

// CreateOrder 下单
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req types.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, 400, constants.ErrInvalidParams)
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		OwnerID:        CurrentUserID(c),
		ActivityID:     req.ActivityID,
		PhotographerID: req.PhotographerID,
		Form: service.OrderForm{
			ChildName:     req.ChildName,
			GuardianName:  req.GuardianName,
			GuardianPhone: req.GuardianPhone,
			Remark:        req.Remark,
		},
		LifePhotos:     req.LifePhotos,
		IdempotencyKey: c.GetHeader(IdempotencyHeader),
	})
	if err != nil {
		Fail(c, err, h.logger)
		return
	}

	Success(c, constants.SuccessCreate, gin.H{
		"order_id":     order.ID,
		"order_no":     order.OrderNo,
		"locked_price": order.LockedPrice,
		"status":       order.Status,
	})
}

// ListOrders 当前家长的订单列表
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var q types.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		Error(c, 400, constants.ErrInvalidParams)
		return
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), model.OrderFilter{
		OwnerID:  CurrentUserID(c),
		Status:   model.OrderStatus(q.Status),
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		Fail(c, err, h.logger)
		return
	}
	Success(c, constants.SuccessGet, PageResult(orders, total, q.Page, q.PageSize))
}

// GetOrder 订单详情
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOwnedOrder(c.Request.Context(), id, CurrentUserID(c))
	if err != nil {
		Fail(c, err, h.logger)
		return
	}
	Success(c, constants.SuccessGet, gin.H{
		"order":             order,
		"status_label":      order.Status.Label(),
		"remaining_rejects": order.RemainingRejects(),
	})
}

// PayOrder 获取支付参数
func (h *OrderHandler) PayOrder(c *gin.Context) {
	var req types.PayOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, 400, constants.ErrInvalidParams)
		return
	}

	creds, err := h.payments.CreatePaymentIntent(c.Request.Context(), req.OrderNo, CurrentUserID(c), req.Amount)
	if err != nil {
		if service.KindOf(err) == "" {
			h.logger.Error("获取支付参数失败", "order_no", req.OrderNo, "error", err)
			Error(c, 503, constants.ErrPaymentUnavailable)
			return
		}
		Fail(c, err, h.logger)
		return
	}
	Success(c, constants.SuccessPay, creds)
}

// CancelOrder 取消未支付订单
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}

	order, err := h.workflow.CancelOrder(c.Request.Context(), id, CurrentUserID(c))
	if err != nil {
		Fail(c, err, h.logger)
		return
	}
	Success(c, constants.SuccessCancel, order)
}

// ConfirmOrder 家长确认验收
func (h *OrderHandler) ConfirmOrder(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}

	result, err := h.workflow.UserConfirm(c.Request.Context(), id, CurrentUserID(c))
	if err != nil {
		Fail(c, err, h.logger)
		return
	}
	Success(c, constants.SuccessConfirm, result)
}

// RejectOrder 家长驳回
func (h *OrderHandler) RejectOrder(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}

	var req types.RejectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, 400, constants.ErrInvalidParams)
		return
	}

	result, err := h.workflow.UserReject(c.Request.Context(), id, CurrentUserID(c), req.Reason)
	if err != nil {
		Fail(c, err, h.logger)
		return
	}
	Success(c, constants.SuccessReject, result)
}

// GetHistory 家长可见的驳回历史
func (h *OrderHandler) GetHistory(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}

	records, err := h.history.ParentView(c.Request.Context(), id, CurrentUserID(c))
	if err != nil {
		Fail(c, err, h.logger)
		return
	}
	Success(c, constants.SuccessGet, records)
}
