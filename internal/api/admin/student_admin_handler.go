package admin

import (
	"kidphoto/internal/api/handler"
	"kidphoto/internal/constants"
	"kidphoto/internal/service"
	"kidphoto/internal/types"
	"kidphoto/pkg/logger"

	"github.com/gin-gonic/gin"
)

// StudentAdminHandler 学生档案管理处理器
type StudentAdminHandler struct {
	archive *service.ArchiveService
	logger  *logger.Logger
}

// NewStudentAdminHandler 创建学生档案管理处理器实例
func NewStudentAdminHandler(archive *service.ArchiveService, logger *logger.Logger) *StudentAdminHandler {
	return &StudentAdminHandler{archive: archive, logger: logger}
}

// GetStudent 根据学号查询档案
func (h *StudentAdminHandler) GetStudent(c *gin.Context) {
	student, err := h.archive.GetStudent(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		handler.Fail(c, err, h.logger)
		return
	}
	handler.Success(c, constants.SuccessGet, student)
}

// OverrideCertificate 替换证件照
func (h *StudentAdminHandler) OverrideCertificate(c *gin.Context) {
	var req types.OverrideCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, 400, constants.ErrInvalidParams)
		return
	}

	student, err := h.archive.OverrideCertificatePhoto(c.Request.Context(), c.Param("student_id"), req.Photo)
	if err != nil {
		handler.Fail(c, err, h.logger)
		return
	}
	handler.Success(c, constants.SuccessUpdate, student)
}
