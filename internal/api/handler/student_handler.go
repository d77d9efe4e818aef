package handler

import (
	"kidphoto/internal/constants"
	"kidphoto/internal/service"
	"kidphoto/internal/types"
	"kidphoto/pkg/logger"

	"github.com/gin-gonic/gin"
)

// StudentHandler 家长端学生档案处理器
type StudentHandler struct {
	archive *service.ArchiveService
	logger  *logger.Logger
}

// NewStudentHandler 创建学生档案处理器
func NewStudentHandler(archive *service.ArchiveService, logger *logger.Logger) *StudentHandler {
	return &StudentHandler{archive: archive, logger: logger}
}

// ListStudents 当前家长名下的档案
func (h *StudentHandler) ListStudents(c *gin.Context) {
	students, err := h.archive.ListStudents(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		Fail(c, err, h.logger)
		return
	}
	Success(c, constants.SuccessGet, students)
}

// UpdateStudent 修改姓名和联系方式，证件照不可修改
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	var req types.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, 400, constants.ErrInvalidParams)
		return
	}

	student, err := h.archive.UpdateProfile(c.Request.Context(), c.Param("student_id"), CurrentUserID(c),
		req.Name, req.GuardianContact, req.CertificatePhoto)
	if err != nil {
		Fail(c, err, h.logger)
		return
	}
	Success(c, constants.SuccessUpdate, student)
}
