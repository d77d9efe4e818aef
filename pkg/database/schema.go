package database

import (
	"context"
	"fmt"

	"kidphoto/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// schema 按顺序执行的建表语句
var schema = []struct {
	name string
	ddl  string
}{
	{"users", `
CREATE TABLE IF NOT EXISTS users (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  nickname VARCHAR(64) NOT NULL DEFAULT '',
  role VARCHAR(16) NOT NULL,
  photographer_id BIGINT UNSIGNED NOT NULL DEFAULT 0,
  token VARCHAR(128) NOT NULL,
  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
  UNIQUE KEY ux_users_token (token)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"photographers", `
CREATE TABLE IF NOT EXISTS photographers (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  name VARCHAR(64) NOT NULL,
  phone VARCHAR(32) NOT NULL DEFAULT '',
  is_active TINYINT(1) NOT NULL DEFAULT 1,
  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"activities", `
CREATE TABLE IF NOT EXISTS activities (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  name VARCHAR(128) NOT NULL,
  description TEXT NOT NULL,
  category VARCHAR(32) NOT NULL,
  identity_photo TINYINT(1) NOT NULL DEFAULT 0,
  price DECIMAL(10,2) NOT NULL,
  is_active TINYINT(1) NOT NULL DEFAULT 1,
  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"orders", `
CREATE TABLE IF NOT EXISTS orders (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  order_no VARCHAR(40) NOT NULL,
  owner_id BIGINT UNSIGNED NOT NULL,
  photographer_id BIGINT UNSIGNED NOT NULL,
  activity_id BIGINT UNSIGNED NOT NULL,
  activity_name VARCHAR(128) NOT NULL,
  category VARCHAR(32) NOT NULL,
  identity_photo TINYINT(1) NOT NULL DEFAULT 0,
  child_name VARCHAR(64) NOT NULL,
  guardian_name VARCHAR(64) NOT NULL,
  guardian_phone VARCHAR(32) NOT NULL,
  remark VARCHAR(500) NOT NULL DEFAULT '',
  locked_price DECIMAL(10,2) NOT NULL,
  payment_status VARCHAR(16) NOT NULL,
  status VARCHAR(32) NOT NULL,
  photos JSON NOT NULL,
  life_photos JSON NOT NULL,
  photographer_note VARCHAR(500) NOT NULL DEFAULT '',
  reject_reason VARCHAR(500) NOT NULL DEFAULT '',
  reject_type VARCHAR(16) NOT NULL DEFAULT '',
  reject_count INT NOT NULL DEFAULT 0,
  student_id VARCHAR(16) NULL,
  trade_no VARCHAR(64) NULL,
  idempotency_key VARCHAR(64) NULL,
  created_at DATETIME(3) NOT NULL,
  paid_at DATETIME(3) NULL,
  submitted_at DATETIME(3) NULL,
  reviewed_at DATETIME(3) NULL,
  confirmed_at DATETIME(3) NULL,
  rejected_at DATETIME(3) NULL,
  cancelled_at DATETIME(3) NULL,
  escalated_at DATETIME(3) NULL,
  resumed_at DATETIME(3) NULL,
  refunded_at DATETIME(3) NULL,
  updated_at DATETIME(3) NOT NULL,
  UNIQUE KEY ux_orders_order_no (order_no),
  UNIQUE KEY ux_orders_owner_idem (owner_id, idempotency_key),
  KEY ix_orders_owner_created (owner_id, created_at),
  KEY ix_orders_photographer_status (photographer_id, status),
  KEY ix_orders_status_created (status, created_at),
  KEY ix_orders_student_id (student_id),
  CONSTRAINT chk_orders_reject_count CHECK (reject_count BETWEEN 0 AND 3)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"order_histories", `
CREATE TABLE IF NOT EXISTS order_histories (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  order_id BIGINT UNSIGNED NOT NULL,
  photos JSON NOT NULL,
  reject_type VARCHAR(16) NOT NULL,
  reject_reason VARCHAR(500) NOT NULL,
  submitted_at DATETIME(3) NOT NULL,
  rejected_at DATETIME(3) NOT NULL,
  created_at DATETIME(3) NOT NULL,
  KEY ix_order_histories_order (order_id, rejected_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"students", `
CREATE TABLE IF NOT EXISTS students (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  student_id VARCHAR(16) NOT NULL,
  year INT NOT NULL,
  seq INT NOT NULL,
  owner_id BIGINT UNSIGNED NOT NULL,
  name VARCHAR(64) NOT NULL,
  guardian_contact VARCHAR(64) NOT NULL,
  certificate_photo VARCHAR(512) NOT NULL,
  life_photos JSON NOT NULL,
  source_order_id BIGINT UNSIGNED NOT NULL,
  created_at DATETIME(3) NOT NULL,
  updated_at DATETIME(3) NOT NULL,
  UNIQUE KEY ux_students_student_id (student_id),
  UNIQUE KEY ux_students_owner_name (owner_id, name),
  KEY ix_students_year_seq (year, seq)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"student_sequences", `
CREATE TABLE IF NOT EXISTS student_sequences (
  year INT NOT NULL PRIMARY KEY,
  seq INT NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
}

// Migrate 创建业务表
func Migrate(ctx context.Context, db *sqlx.DB, log *logger.Logger) error {
	log.Info("开始数据库迁移")
	for _, s := range schema {
		if _, err := db.ExecContext(ctx, s.ddl); err != nil {
			log.Error("建表失败", "table", s.name, "error", err)
			return fmt.Errorf("create table %s: %w", s.name, err)
		}
		log.Debug("表已就绪", "table", s.name)
	}
	log.Info("数据库迁移完成")
	return nil
}
