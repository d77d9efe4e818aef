package handler

import (
	"kidphoto/internal/constants"
	"kidphoto/internal/service"
	"kidphoto/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ActivityHandler 活动目录处理器
type ActivityHandler struct {
	catalog *service.CatalogService
	logger  *logger.Logger
}

// NewActivityHandler 创建活动目录处理器
func NewActivityHandler(catalog *service.CatalogService, logger *logger.Logger) *ActivityHandler {
	return &ActivityHandler{catalog: catalog, logger: logger}
}

// ListActivities 在售活动
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	activities, err := h.catalog.ListActivities(c.Request.Context(), true)
	if err != nil {
		Fail(c, err, h.logger)
		return
	}
	Success(c, constants.SuccessGet, activities)
}
