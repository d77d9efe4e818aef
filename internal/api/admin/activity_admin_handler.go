package admin

import (
	"kidphoto/internal/api/handler"
	"kidphoto/internal/constants"
	"kidphoto/internal/model"
	"kidphoto/internal/service"
	"kidphoto/internal/types"
	"kidphoto/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ActivityAdminHandler 活动管理处理器
type ActivityAdminHandler struct {
	catalog *service.CatalogService
	logger  *logger.Logger
}

// NewActivityAdminHandler 创建活动管理处理器实例
func NewActivityAdminHandler(catalog *service.CatalogService, logger *logger.Logger) *ActivityAdminHandler {
	return &ActivityAdminHandler{catalog: catalog, logger: logger}
}

// ListActivities 全部活动，包含已下架
func (h *ActivityAdminHandler) ListActivities(c *gin.Context) {
	activities, err := h.catalog.ListActivities(c.Request.Context(), false)
	if err != nil {
		handler.Fail(c, err, h.logger)
		return
	}
	handler.Success(c, constants.SuccessGet, activities)
}

// CreateActivity 创建活动
func (h *ActivityAdminHandler) CreateActivity(c *gin.Context) {
	var req types.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, 400, constants.ErrInvalidParams)
		return
	}

	activity := &model.Activity{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := h.catalog.CreateActivity(c.Request.Context(), activity); err != nil {
		handler.Fail(c, err, h.logger)
		return
	}
	handler.Success(c, constants.SuccessCreate, activity)
}

// UpdatePrice 调整价格，已创建的订单保持原锁定价
func (h *ActivityAdminHandler) UpdatePrice(c *gin.Context) {
	id, ok := handler.ParseID(c)
	if !ok {
		return
	}

	var req types.UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, 400, constants.ErrInvalidParams)
		return
	}

	if err := h.catalog.UpdatePrice(c.Request.Context(), id, req.Price); err != nil {
		handler.Fail(c, err, h.logger)
		return
	}
	handler.Success(c, constants.SuccessUpdate, gin.H{"id": id, "price": req.Price.StringFixed(2)})
}
