package handler

import (
	"net/http"
	"strconv"

	"kidphoto/internal/constants"
	"kidphoto/internal/middleware"
	"kidphoto/internal/service"
	"kidphoto/pkg/logger"

	"github.com/gin-gonic/gin"
)

// 业务错误分类对应的响应码
var kindCodes = map[service.Kind]int{
	service.KindValidation:          400,
	service.KindForbidden:           403,
	service.KindNotFound:            404,
	service.KindInvalidState:        409,
	service.KindConflict:            409,
	service.KindAmountMismatch:      402,
	service.KindAlreadyPaid:         402,
	service.KindRejectLimitExceeded: 429,
}

// Success 成功响应
func Success(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  msg,
		"data": data,
	})
}

// Error 失败响应
func Error(c *gin.Context, code int, msg string) {
	c.JSON(http.StatusOK, gin.H{
		"code": code,
		"msg":  msg,
		"data": nil,
	})
}

// Fail 按业务错误分类输出响应，未分类的错误记录日志并返回500
func Fail(c *gin.Context, err error, log *logger.Logger) {
	if code, ok := kindCodes[service.KindOf(err)]; ok {
		Error(c, code, err.Error())
		return
	}
	log.Error("请求处理失败", "path", c.FullPath(), "error", err)
	Error(c, 500, constants.ErrInternalServer)
}

// ParseID 解析路径中的 :id
func ParseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		Error(c, 400, constants.ErrInvalidOrderID)
		return 0, false
	}
	return id, true
}

// CurrentUserID 当前登录用户ID
func CurrentUserID(c *gin.Context) uint64 {
	return c.GetUint64(middleware.ContextUserID)
}

// CurrentPhotographerID 当前登录摄影师ID
func CurrentPhotographerID(c *gin.Context) uint64 {
	return c.GetUint64(middleware.ContextPhotographerID)
}

// PageResult 分页数据
func PageResult(list interface{}, total, page, pageSize int) gin.H {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	pages := (total + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}
	return gin.H{
		"list": list,
		"pagination": gin.H{
			"page":      page,
			"page_size": pageSize,
			"pages":     pages,
			"total":     total,
		},
	}
}
