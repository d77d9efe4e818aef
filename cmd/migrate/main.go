package main

import (
	"context"
	"log"
	"time"

	"kidphoto/config"
	"kidphoto/pkg/database"
	"kidphoto/pkg/logger"
)

func main() {
	// 迁移只需要数据库配置
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	logger := logger.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	db, err := database.NewMySQLConnection(cfg.Database)
	if err != nil {
		logger.Fatal("无法链接到数据库", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := database.Migrate(ctx, db, logger); err != nil {
		logger.Fatal("数据库迁移失败", "error", err)
	}
}
