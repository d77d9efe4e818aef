package api

import (
	"time"

	"kidphoto/config"
	"kidphoto/internal/api/admin"
	"kidphoto/internal/api/apis"
	"kidphoto/internal/api/handler"
	"kidphoto/internal/cache"
	"kidphoto/internal/middleware"
	"kidphoto/internal/model"
	"kidphoto/internal/repository"
	"kidphoto/internal/service"
	"kidphoto/pkg/async"
	"kidphoto/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Dependencies 服务层依赖
type Dependencies struct {
	Orders        service.OrderRepository
	History       service.HistoryRepository
	Students      service.StudentRepository
	Activities    service.ActivityRepository
	Photographers service.PhotographerRepository
	Users         service.UserRepository
	Locker        service.CreationLocker
	Cache         service.CredentialCache
	Gateway       service.PaymentGateway
	Bus           service.EventBus // 为 nil 时不投递订单事件
	Worker        *async.Worker

	PaymentTimeout time.Duration
}

// NewStoreDependencies 使用 MySQL 与 Redis 初始化存储库
func NewStoreDependencies(db *sqlx.DB, redisClient *redis.Client) Dependencies {
	return Dependencies{
		Orders:        repository.NewOrderRepository(db),
		History:       repository.NewHistoryRepository(db),
		Students:      repository.NewStudentRepository(db),
		Activities:    repository.NewActivityRepository(db),
		Photographers: repository.NewPhotographerRepository(db),
		Users:         repository.NewUserRepository(db),
		Locker:        cache.NewLocker(redisClient),
		Cache:         cache.NewCredentialCache(redisClient),
	}
}

// Services 服务集合
type Services struct {
	Orders   *service.OrderService
	Payments *service.PaymentService
	Workflow *service.WorkflowService
	History  *service.HistoryService
	Archive  *service.ArchiveService
	Catalog  *service.CatalogService
	Users    service.UserRepository
}

// NewServices 初始化服务
func NewServices(deps Dependencies, logger *logger.Logger) *Services {
	events := service.NewEventDispatcher(deps.Bus, deps.Worker, logger)

	orders := service.NewOrderService(deps.Orders, deps.Activities, deps.Photographers, deps.Locker, events, logger, deps.PaymentTimeout)
	history := service.NewHistoryService(deps.History, deps.Orders, logger)
	archive := service.NewArchiveService(deps.Students, deps.Orders, events, logger)

	return &Services{
		Orders:   orders,
		Payments: service.NewPaymentService(orders, deps.Orders, deps.Gateway, deps.Cache, events, logger),
		Workflow: service.NewWorkflowService(orders, deps.Orders, history, archive, events, logger),
		History:  history,
		Archive:  archive,
		Catalog:  service.NewCatalogService(deps.Activities, logger),
		Users:    deps.Users,
	}
}

// SetupRouter 设置API路由
func SetupRouter(cfg *config.Config, logger *logger.Logger, svcs *Services) *gin.Engine {
	// 创建Gin引擎
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 使用中间件
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// 初始化处理器
	handlers := apis.Handlers{
		Orders:       handler.NewOrderHandler(svcs.Orders, svcs.Payments, svcs.Workflow, svcs.History, logger),
		Payments:     handler.NewPaymentHandler(svcs.Payments, logger),
		Photographer: handler.NewPhotographerHandler(svcs.Orders, svcs.Workflow, logger),
		Students:     handler.NewStudentHandler(svcs.Archive, logger),
		Activities:   handler.NewActivityHandler(svcs.Catalog, logger),
	}

	// 初始化管理员处理器
	adminHandlers := admin.Handlers{
		Orders:     admin.NewOrderAdminHandler(svcs.Orders, svcs.Workflow, svcs.History, logger),
		Students:   admin.NewStudentAdminHandler(svcs.Archive, logger),
		Activities: admin.NewActivityAdminHandler(svcs.Catalog, logger),
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API版本v1
	v1 := router.Group("/api/v1")

	// 注册不需要认证的路由
	apis.RegisterPublicRoutes(v1, handlers)

	// 注册需要认证的API路由
	authRouter := v1.Group("")
	authRouter.Use(middleware.UserAuth(svcs.Users))
	apis.RegisterAuthRoutes(authRouter, handlers)

	// 注册管理员API路由
	adminRouter := v1.Group("/admin")
	adminRouter.Use(middleware.UserAuth(svcs.Users), middleware.RequireRole(model.RoleAdmin))
	admin.RegisterAdminRoutes(adminRouter, adminHandlers)

	return router
}
