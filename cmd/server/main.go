package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kidphoto/config"
	"kidphoto/internal/api"
	"kidphoto/internal/producer"
	"kidphoto/internal/scheduler"
	"kidphoto/pkg/async"
	"kidphoto/pkg/database"
	"kidphoto/pkg/logger"
	"kidphoto/pkg/payment"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 初始化日志
	logger := logger.NewLoggerWithConfig(cfg.LogLevel, cfg.LogFile)
	defer logger.Sync()

	// 初始化数据库连接
	db, err := database.NewMySQLConnection(cfg.Database)
	if err != nil {
		logger.Fatal("无法链接到数据库", "error", err)
	}
	defer db.Close()

	// 初始化Redis连接
	redisClient, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("无法链接到Redis", "error", err)
	}
	defer redisClient.Close()

	deps := api.NewStoreDependencies(db, redisClient)

	// 配置了Kafka时投递订单事件，需在工作器停止后关闭
	if len(cfg.Kafka.Brokers) > 0 {
		eventProducer := producer.NewOrderEventProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer eventProducer.Close()
		deps.Bus = eventProducer
		logger.Info("订单事件投递已启用", "topic", cfg.Kafka.Topic)
	}

	// 创建异步工作器，用于投递订单事件
	worker := async.NewWorker(100, logger)
	worker.Start(5)
	defer worker.Stop()

	deps.Worker = worker
	deps.PaymentTimeout = cfg.Order.PaymentTimeout
	deps.Gateway = payment.NewClient(payment.Config{
		Endpoint:  cfg.Payment.Endpoint,
		AppID:     cfg.Payment.AppID,
		MchID:     cfg.Payment.MchID,
		APIKey:    cfg.Payment.APIKey,
		NotifyURL: cfg.Payment.NotifyURL,
		Timeout:   cfg.Payment.Timeout,
	}, logger)

	services := api.NewServices(deps, logger)

	// 启动支付超时调度器
	paymentScheduler := scheduler.NewPaymentScheduler(services.Orders, cfg.Order.SweepInterval, logger)
	paymentScheduler.Start()
	defer paymentScheduler.Stop()

	// 初始化API路由
	router := api.SetupRouter(cfg, logger, services)

	// 创建HTTP服务器
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.APIPort),
		Handler: router,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info(fmt.Sprintf("服务器启动于端口: %d", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("启动服务器失败", "error", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("服务器被强制关闭", "error", err)
	}

	logger.Info("服务器已正常退出")
}
