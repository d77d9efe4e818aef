package handler

import (
	"kidphoto/internal/constants"
	"kidphoto/internal/model"
	"kidphoto/internal/service"
	"kidphoto/internal/types"
	"kidphoto/pkg/logger"

	"github.com/gin-gonic/gin"
)

// PhotographerHandler 摄影师端处理器
type PhotographerHandler struct {
	orders   *service.OrderService
	workflow *service.WorkflowService
	logger   *logger.Logger
}

// NewPhotographerHandler 创建摄影师端处理器
func NewPhotographerHandler(orders *service.OrderService, workflow *service.WorkflowService, logger *logger.Logger) *PhotographerHandler {
	return &PhotographerHandler{orders: orders, workflow: workflow, logger: logger}
}

// ListAssigned 分配给当前摄影师的订单
func (h *PhotographerHandler) ListAssigned(c *gin.Context) {
	var q types.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		Error(c, 400, constants.ErrInvalidParams)
		return
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), model.OrderFilter{
		PhotographerID: CurrentPhotographerID(c),
		Status:         model.OrderStatus(q.Status),
		Page:           q.Page,
		PageSize:       q.PageSize,
	})
	if err != nil {
		Fail(c, err, h.logger)
		return
	}
	Success(c, constants.SuccessGet, PageResult(orders, total, q.Page, q.PageSize))
}

// SubmitWork 提交照片
func (h *PhotographerHandler) SubmitWork(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}

	var req types.SubmitWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, 400, constants.ErrInvalidParams)
		return
	}

	order, err := h.workflow.SubmitWork(c.Request.Context(), id, CurrentPhotographerID(c), req.Photos, req.Note)
	if err != nil {
		Fail(c, err, h.logger)
		return
	}
	Success(c, constants.SuccessSubmit, order)
}
