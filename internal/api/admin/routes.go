package admin

import (
	"github.com/gin-gonic/gin"
)

// Handlers 管理员处理器集合
type Handlers struct {
	Orders     *OrderAdminHandler
	Students   *StudentAdminHandler
	Activities *ActivityAdminHandler
}

// RegisterAdminRoutes 注册管理员API路由
func RegisterAdminRoutes(router *gin.RouterGroup, h Handlers) {
	// 订单管理路由
	orders := router.Group("/orders")
	{
		orders.GET("", h.Orders.ListOrders)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.POST("/:id/review", h.Orders.ReviewOrder)
		orders.GET("/:id/history", h.Orders.GetHistory)
		orders.POST("/:id/escalate", h.Orders.EscalateOrder)
		orders.POST("/:id/resume", h.Orders.ResumeOrder)
		orders.POST("/:id/refund", h.Orders.RefundOrder)
	}

	// 学生档案管理路由
	students := router.Group("/students")
	{
		students.GET("/:student_id", h.Students.GetStudent)
		students.POST("/:student_id/certificate", h.Students.OverrideCertificate)
	}

	// 活动管理路由
	activities := router.Group("/activities")
	{
		activities.GET("", h.Activities.ListActivities)
		activities.POST("/create", h.Activities.CreateActivity)
		activities.POST("/:id/price", h.Activities.UpdatePrice)
	}
}
