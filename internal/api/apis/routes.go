package apis

import (
	"kidphoto/internal/api/handler"
	"kidphoto/internal/middleware"
	"kidphoto/internal/model"

	"github.com/gin-gonic/gin"
)

// Handlers 家长端与摄影师端处理器集合
type Handlers struct {
	Orders       *handler.OrderHandler
	Payments     *handler.PaymentHandler
	Photographer *handler.PhotographerHandler
	Students     *handler.StudentHandler
	Activities   *handler.ActivityHandler
}

// RegisterPublicRoutes 注册不需要认证的路由
func RegisterPublicRoutes(v1 *gin.RouterGroup, h Handlers) {
	// 支付回调由支付通道调用，依靠签名校验
	v1.POST("/payment/notify", h.Payments.Notify)
	v1.GET("/activities", h.Activities.ListActivities)
}

// RegisterAuthRoutes 注册需要认证的路由
func RegisterAuthRoutes(authRouter *gin.RouterGroup, h Handlers) {
	// 家长订单路由
	orders := authRouter.Group("/orders")
	orders.Use(middleware.RequireRole(model.RoleParent))
	{
		orders.POST("/create", h.Orders.CreateOrder)
		orders.GET("", h.Orders.ListOrders)
		orders.POST("/pay", h.Orders.PayOrder)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.POST("/:id/cancel", h.Orders.CancelOrder)
		orders.POST("/:id/confirm", h.Orders.ConfirmOrder)
		orders.POST("/:id/reject", h.Orders.RejectOrder)
		orders.GET("/:id/history", h.Orders.GetHistory)
	}

	// 学生档案路由
	students := authRouter.Group("/students")
	students.Use(middleware.RequireRole(model.RoleParent))
	{
		students.GET("", h.Students.ListStudents)
		students.POST("/:student_id/update", h.Students.UpdateStudent)
	}

	// 摄影师路由
	photographer := authRouter.Group("/photographer")
	photographer.Use(middleware.RequireRole(model.RolePhotographer))
	{
		photographer.GET("/orders", h.Photographer.ListAssigned)
		photographer.POST("/orders/:id/submit", h.Photographer.SubmitWork)
	}
}
