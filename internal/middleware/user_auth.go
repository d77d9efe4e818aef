package middleware

import (
	"errors"
	"net/http"
	"strings"

	"kidphoto/internal/constants"
	"kidphoto/internal/model"
	"kidphoto/internal/repository"
	"kidphoto/internal/service"

	"github.com/gin-gonic/gin"
)

// 上下文中保存的当前用户信息
const (
	ContextUserID         = "user_id"
	ContextRole           = "role"
	ContextPhotographerID = "photographer_id"
)

// UserAuth 用户认证中间件，按 Token 解析当前用户
func UserAuth(users service.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从请求头获取Token
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{"code": 401, "msg": constants.ErrUnauthorized})
			return
		}

		user, err := users.GetByToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusOK, gin.H{"code": 401, "msg": constants.ErrInvalidToken})
				return
			}
			c.AbortWithStatusJSON(http.StatusOK, gin.H{"code": 500, "msg": constants.ErrInternalServer})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextRole, string(user.Role))
		c.Set(ContextPhotographerID, user.PhotographerID)
		c.Next()
	}
}

// RequireRole 角色校验，需放在 UserAuth 之后
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := model.Role(c.GetString(ContextRole))
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusOK, gin.H{"code": 403, "msg": constants.ErrInsufficientPermission})
	}
}
