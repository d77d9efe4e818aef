package admin

import (
	"context"

	"kidphoto/internal/api/handler"
	"kidphoto/internal/constants"
	"kidphoto/internal/model"
	"kidphoto/internal/service"
	"kidphoto/internal/types"
	"kidphoto/pkg/logger"

	"github.com/gin-gonic/gin"
)

// OrderAdminHandler 订单管理处理器
type OrderAdminHandler struct {
	orders   *service.OrderService
	workflow *service.WorkflowService
	history  *service.HistoryService
	logger   *logger.Logger
}

// NewOrderAdminHandler 创建订单管理处理器实例
func NewOrderAdminHandler(orders *service.OrderService, workflow *service.WorkflowService, history *service.HistoryService, logger *logger.Logger) *OrderAdminHandler {
	return &OrderAdminHandler{
		orders:   orders,
		workflow: workflow,
		history:  history,
		logger:   logger,
	}
}

// ListOrders 订单列表，可按状态筛选
func (h *OrderAdminHandler) ListOrders(c *gin.Context) {
	var q types.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.Error(c, 400, constants.ErrInvalidParams)
		return
	}

	status := model.OrderStatus(q.Status)
	if status != "" && !status.Valid() {
		handler.Error(c, 400, constants.ErrInvalidParams)
		return
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), model.OrderFilter{
		Status:   status,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		handler.Fail(c, err, h.logger)
		return
	}
	handler.Success(c, constants.SuccessGet, handler.PageResult(orders, total, q.Page, q.PageSize))
}

// GetOrder 订单详情
func (h *OrderAdminHandler) GetOrder(c *gin.Context) {
	id, ok := handler.ParseID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err, h.logger)
		return
	}
	handler.Success(c, constants.SuccessGet, order)
}

// ReviewOrder 审核摄影师提交的照片
func (h *OrderAdminHandler) ReviewOrder(c *gin.Context) {
	id, ok := handler.ParseID(c)
	if !ok {
		return
	}

	var req types.ReviewOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, 400, constants.ErrInvalidParams)
		return
	}

	order, err := h.workflow.AdminReview(c.Request.Context(), id, *req.Approve, req.Reason)
	if err != nil {
		handler.Fail(c, err, h.logger)
		return
	}
	handler.Success(c, constants.SuccessReview, order)
}

// GetHistory 完整驳回历史
func (h *OrderAdminHandler) GetHistory(c *gin.Context) {
	id, ok := handler.ParseID(c)
	if !ok {
		return
	}

	records, err := h.history.AdminView(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err, h.logger)
		return
	}
	handler.Success(c, constants.SuccessGet, records)
}

// EscalateOrder 转入售后
func (h *OrderAdminHandler) EscalateOrder(c *gin.Context) {
	id, ok := handler.ParseID(c)
	if !ok {
		return
	}

	var req types.EscalateOrderRequest
	// 备注可选，允许空请求体
	_ = c.ShouldBindJSON(&req)

	order, err := h.workflow.Escalate(c.Request.Context(), id, req.Note)
	if err != nil {
		handler.Fail(c, err, h.logger)
		return
	}
	handler.Success(c, constants.SuccessUpdate, order)
}

// ResumeOrder 售后处理完毕，恢复拍摄
func (h *OrderAdminHandler) ResumeOrder(c *gin.Context) {
	h.afterSale(c, h.workflow.Resume)
}

// RefundOrder 标记退款
func (h *OrderAdminHandler) RefundOrder(c *gin.Context) {
	h.afterSale(c, h.workflow.Refund)
}

func (h *OrderAdminHandler) afterSale(c *gin.Context, op func(ctx context.Context, orderID uint64) (*model.Order, error)) {
	id, ok := handler.ParseID(c)
	if !ok {
		return
	}

	order, err := op(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err, h.logger)
		return
	}
	handler.Success(c, constants.SuccessUpdate, order)
}
